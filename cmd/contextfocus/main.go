package main

import (
	"log/slog"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/contextfocus/cmd/contextfocus/commands"
	"git.home.luguber.info/inful/contextfocus/internal/foundation/errors"
	"git.home.luguber.info/inful/contextfocus/internal/version"
)

func main() {
	cli := &commands.CLI{}
	global := &commands.Global{}
	parser := kong.Parse(cli,
		kong.Name("contextfocus"),
		kong.Description("Context-aware focus mode daemon and client."),
		kong.UsageOnError(),
		kong.Vars{"version": version.String()},
		kong.Bind(global),
	)

	if err := parser.Run(cli); err != nil {
		errors.NewCLIErrorAdapter(cli.Verbose, slog.Default()).HandleError(err)
	}
}
