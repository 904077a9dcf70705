package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vovakirdan/livetrigger/internal/app"
)

func newLiveCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "live",
		Short: "Control the backend's live stream connection",
	}

	connect := &cobra.Command{
		Use:   "connect <username>",
		Short: "Join a streamer's live room",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app.App) error {
				user, err := a.Live.Connect(ctx, args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "connected to @%s\n", user)
				return nil
			})
		},
	}

	disconnect := &cobra.Command{
		Use:   "disconnect",
		Short: "Leave the live room",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app.App) error {
				return a.Live.Disconnect(ctx)
			})
		},
	}

	status := &cobra.Command{
		Use:   "status",
		Short: "Show the live stream connection",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app.App) error {
				st, err := a.Live.Status(ctx)
				if err != nil {
					return err
				}
				if !st.Connected {
					fmt.Fprintln(cmd.OutOrStdout(), "not connected")
					return nil
				}
				fmt.Fprintf(cmd.OutOrStdout(), "connected to @%s\n", st.Username)
				return nil
			})
		},
	}

	cmd.AddCommand(connect, disconnect, status)
	return cmd
}
