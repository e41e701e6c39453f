package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"golang.org/x/term"

	"github.com/p-blackswan/inactivity-report/internal/cli"
	"github.com/p-blackswan/inactivity-report/internal/config"
)

func main() {
	// Logs go to stderr; stdout carries only the report.
	logger := zerolog.New(os.Stderr).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		logger.Error().Err(err).Msg("failed to load config")
		os.Exit(cli.ExitCode(err))
	}

	if cfg.Development() || term.IsTerminal(int(os.Stderr.Fd())) {
		logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err = cli.RootCmd(cfg, cli.DefaultDeps(logger)).ExecuteContext(ctx)
	stop()

	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		code := cli.ExitCode(err)
		if code == cli.ExitUsage {
			fmt.Fprintln(os.Stderr, "Run 'inactivity-report --help' for usage.")
		}
		os.Exit(code)
	}
}
