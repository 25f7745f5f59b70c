package commands

import (
	"io"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/contextfocus/internal/config"
)

// Global carries state shared by every subcommand.
type Global struct {
	Logger *slog.Logger
	// Level is shared with the daemon so a config reload can change verbosity.
	Level *slog.LevelVar
	// Out receives user-facing output. Defaults to stdout.
	Out io.Writer
}

// CLI definition & global flags.
type CLI struct {
	Config  string           `short:"c" help:"Configuration file path" default:"contextfocus.yaml" env:"CONTEXTFOCUS_CONFIG"`
	Verbose bool             `short:"v" help:"Enable verbose logging"`
	Version kong.VersionFlag `name:"version" help:"Show version and exit"`

	Daemon   DaemonCmd   `cmd:"" help:"Run the focus daemon"`
	Init     InitCmd     `cmd:"" help:"Write a default configuration file"`
	Status   StatusCmd   `cmd:"" help:"Show the current focus state"`
	Toggle   ToggleCmd   `cmd:"" help:"Toggle focus mode"`
	ForceOff ForceOffCmd `cmd:"" name:"force-off" help:"End focus mode, ignoring strict mode"`
	History  HistoryCmd  `cmd:"" help:"List recent focus sessions"`
	Blocked  BlockedCmd  `cmd:"" help:"Print the blocklist"`
}

// AfterApply runs after flag parsing; set up logging once.
// nolint:unparam // AfterApply currently never returns an error.
func (c *CLI) AfterApply(g *Global) error {
	if g.Level == nil {
		g.Level = new(slog.LevelVar)
	}
	if g.Out == nil {
		g.Out = os.Stdout
	}
	g.Logger = config.NewLogger(os.Stderr, c.logging(config.LoggingConfig{}), g.Level)
	slog.SetDefault(g.Logger)
	return nil
}

// logging resolves the logging section, letting -v force debug output.
func (c *CLI) logging(lc config.LoggingConfig) config.LoggingConfig {
	if lc.Level == "" {
		lc.Level = config.LogLevelInfo
	}
	if lc.Format == "" {
		lc.Format = config.LogFormatText
	}
	if c.Verbose {
		lc.Level = config.LogLevelDebug
	}
	return lc
}
