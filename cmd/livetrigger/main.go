package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/vovakirdan/livetrigger/internal/app"
	"github.com/vovakirdan/livetrigger/internal/config"
	applog "github.com/vovakirdan/livetrigger/internal/log"
)

type rootOptions struct {
	configPath string
	overrides  config.Config

	cfg    config.Config
	logger *zerolog.Logger
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           "livetrigger",
		Short:         "Live stream device automation dashboard",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			boot := applog.New("warn", "console")
			cfg, path, err := config.Load(boot, opts.configPath)
			if err != nil {
				return err
			}
			cfg.UpdateFrom(opts.overrides)
			opts.cfg = cfg
			opts.logger = applog.New(cfg.Log.Level, cfg.Log.Format)
			opts.logger.Debug().Str("config", path).Msg("configuration loaded")
			return nil
		},
	}

	f := root.PersistentFlags()
	f.StringVar(&opts.configPath, "config", "", "config file path (default ./config.yaml)")
	f.StringVar(&opts.overrides.API.BaseURL, "base-url", "", "backend base URL")
	f.StringVar(&opts.overrides.Dashboard.Addr, "dashboard-addr", "", "local dashboard listen address")
	f.StringVar(&opts.overrides.Store.Path, "db", "", "client state database path")
	f.StringVar(&opts.overrides.Log.Level, "log-level", "", "log level (debug, info, warn, error)")
	f.StringVar(&opts.overrides.Log.Format, "log-format", "", "log format (console, json)")

	root.AddCommand(
		newWatchCmd(opts),
		newDevicesCmd(opts),
		newSettingsCmd(opts),
		newLiveCmd(opts),
		newLoginCmd(opts),
		newLogoutCmd(opts),
		newWhoamiCmd(opts),
		newThemeCmd(opts),
		newEventsCmd(opts),
	)
	return root
}

// withApp builds the application for a one-shot command and closes it after fn.
func withApp(cmd *cobra.Command, opts *rootOptions, fn func(ctx context.Context, a *app.App) error) error {
	ctx := cmd.Context()
	a, err := app.New(ctx, &opts.cfg, opts.logger)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(ctx, a)
}
