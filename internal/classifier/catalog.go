package classifier

// CustomLabel labels rules built from user-configured work domains.
const CustomLabel = "Custom"

// Catalog is the built-in set of work applications.
var Catalog = []Rule{
	// Google Workspace
	{Domain: "docs.google.com", Label: "Google Docs"},
	{Domain: "sheets.google.com", Label: "Google Sheets"},
	{Domain: "slides.google.com", Label: "Google Slides"},
	{Domain: "mail.google.com", Label: "Gmail"},
	{Domain: "calendar.google.com", Label: "Google Calendar"},
	// Productivity
	{Domain: "notion.so", Label: "Notion"},
	{Domain: "notion.site", Label: "Notion"},
	{Domain: "linear.app", Label: "Linear"},
	{Domain: "trello.com", Label: "Trello"},
	{Domain: "asana.com", Label: "Asana"},
	{Domain: "monday.com", Label: "Monday"},
	{Domain: "clickup.com", Label: "ClickUp"},
	{Domain: "basecamp.com", Label: "Basecamp"},
	// Dev tools
	{Domain: "github.com", Label: "GitHub"},
	{Domain: "gitlab.com", Label: "GitLab"},
	{Domain: "vscode.dev", Label: "VS Code Web"},
	{Domain: "codepen.io", Label: "CodePen"},
	{Domain: "codesandbox.io", Label: "CodeSandbox"},
	{Domain: "replit.com", Label: "Replit"},
	{Domain: "stackblitz.com", Label: "StackBlitz"},
	// Design
	{Domain: "figma.com", Label: "Figma"},
	{Domain: "miro.com", Label: "Miro"},
	{Domain: "canva.com", Label: "Canva"},
	// Writing
	{Domain: "medium.com/new-story", Label: "Medium"},
	{Domain: "substack.com", Label: "Substack"},
	{Domain: "wordpress.com", Label: "WordPress"},
	// Communication
	{Domain: "slack.com", Label: "Slack"},
	{Domain: "app.slack.com", Label: "Slack"},
	{Domain: "teams.microsoft.com", Label: "Teams"},
	{Domain: "zoom.us", Label: "Zoom"},
	// Cloud storage and wikis
	{Domain: "dropbox.com", Label: "Dropbox"},
	{Domain: "sharepoint.com", Label: "SharePoint"},
	{Domain: "confluence.atlassian.com", Label: "Confluence"},
	{Domain: "jira.atlassian.com", Label: "Jira"},
	// Office
	{Domain: "office.com", Label: "Microsoft Office"},
	{Domain: "onedrive.live.com", Label: "OneDrive"},
}

// TitleKeywords are lowercase fragments whose presence in a tab title marks work.
var TitleKeywords = []string{
	"- notion", "| notion",
	"google docs", "google sheets", "google slides",
	"figma", "linear", "jira", "confluence",
	"pull request", "merge request", "commit",
	"readme", "dashboard", "report", "proposal",
	"invoice", "budget", "meeting notes", "agenda",
}
