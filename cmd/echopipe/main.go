package main

import (
	"log/slog"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/echopipe/cmd/echopipe/commands"
	derrors "git.home.luguber.info/inful/echopipe/internal/foundation/errors"
	"git.home.luguber.info/inful/echopipe/internal/version"
)

func main() {
	var cli commands.CLI
	global := commands.NewGlobal()
	ctx := kong.Parse(&cli,
		kong.Name("echopipe"),
		kong.Description("Deterministic multi-format content pipeline with execution monitoring"),
		kong.UsageOnError(),
		kong.Vars{"version": version.String()},
	)
	err := ctx.Run(global, &cli)
	if cerr := global.Close(); cerr != nil {
		slog.Warn("Failed to close log file", "error", cerr)
	}
	derrors.NewCLIErrorAdapter(cli.Verbose, slog.Default()).HandleError(err)
}
