package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vovakirdan/livetrigger/internal/app"
	"github.com/vovakirdan/livetrigger/internal/feed"
	"github.com/vovakirdan/livetrigger/internal/status"
	"github.com/vovakirdan/livetrigger/internal/theme"
)

func newWatchCmd(opts *rootOptions) *cobra.Command {
	var quiet bool

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Connect to the realtime feed, serve the dashboard and print events",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := app.New(ctx, &opts.cfg, opts.logger)
			if err != nil {
				return err
			}

			if err := a.Settings.FetchAll(ctx); err != nil {
				opts.logger.Warn().Err(err).Msg("settings unavailable")
			}
			if _, err := a.Live.Status(ctx); err != nil {
				opts.logger.Warn().Err(err).Msg("live status unavailable")
			}

			if !quiet {
				out := cmd.OutOrStdout()
				st := a.Theme.Styles()
				fmt.Fprintln(out, st.Header.Render("livetrigger")+" "+st.Dimmed.Render("dashboard on http://"+opts.cfg.Dashboard.Addr))
				fmt.Fprintln(out, feed.StatusText(st, a.Status.State()))

				changes, unsub := a.Events.Subscribe(256)
				defer unsub()
				go feed.Writer(out, a.Theme.Styles, changes)

				statuses, unsubStatus := a.Status.Subscribe(16)
				defer unsubStatus()
				go printStatuses(ctx, cmd, a.Theme, statuses)
			}

			return a.Run(ctx)
		},
	}
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "do not print the event feed")
	return cmd
}

func printStatuses(ctx context.Context, cmd *cobra.Command, th *theme.Store, ch <-chan status.State) {
	for {
		select {
		case <-ctx.Done():
			return
		case s, ok := <-ch:
			if !ok {
				return
			}
			fmt.Fprintln(cmd.OutOrStdout(), feed.StatusText(th.Styles(), s))
		}
	}
}
