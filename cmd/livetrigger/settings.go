package main

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/vovakirdan/livetrigger/internal/app"
	"github.com/vovakirdan/livetrigger/internal/settings"
)

func newSettingsCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show and change automation settings",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app.App) error {
				if err := a.Settings.FetchAll(ctx); err != nil {
					return err
				}
				snap := a.Settings.Snapshot()
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "activation duration: %s\n", snap.GlobalDuration)
				fmt.Fprintf(out, "allow offline connect: %t\n", snap.AllowOffline)
				fmt.Fprintln(out, "mappings:")
				for _, trigger := range settings.AvailableTriggers() {
					dev, ok := snap.Mappings[trigger]
					if !ok {
						dev = "-"
					}
					fmt.Fprintf(out, "  %-7s %s\n", trigger, dev)
				}
				return nil
			})
		},
	}

	var device string
	duration := &cobra.Command{
		Use:   "duration <duration>",
		Short: "Set the activation duration, globally or for one device",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := time.ParseDuration(args[0])
			if err != nil || d <= 0 {
				return fmt.Errorf("invalid duration %q", args[0])
			}
			return withApp(cmd, opts, func(ctx context.Context, a *app.App) error {
				if device != "" {
					return a.Settings.SetDeviceDuration(ctx, device, d)
				}
				return a.Settings.SetGlobalDuration(ctx, d)
			})
		},
	}
	duration.Flags().StringVar(&device, "device", "", "device id")

	offline := &cobra.Command{
		Use:   "allow-offline <true|false>",
		Short: "Allow connecting to streamers that are not live",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			allow, err := strconv.ParseBool(args[0])
			if err != nil {
				return err
			}
			return withApp(cmd, opts, func(ctx context.Context, a *app.App) error {
				return a.Settings.SetAllowOffline(ctx, allow)
			})
		},
	}

	mapCmd := &cobra.Command{
		Use:       "map <trigger> <device-id>",
		Short:     "Fire a device on a stream trigger",
		Args:      cobra.ExactArgs(2),
		ValidArgs: settings.AvailableTriggers(),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validTrigger(args[0]); err != nil {
				return err
			}
			return withApp(cmd, opts, func(ctx context.Context, a *app.App) error {
				return a.Settings.SetDeviceMapping(ctx, args[0], args[1])
			})
		},
	}

	unmap := &cobra.Command{
		Use:   "unmap <trigger>",
		Short: "Remove a trigger mapping",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validTrigger(args[0]); err != nil {
				return err
			}
			return withApp(cmd, opts, func(ctx context.Context, a *app.App) error {
				return a.Settings.ClearDeviceMapping(ctx, args[0])
			})
		},
	}

	cmd.AddCommand(duration, offline, mapCmd, unmap)
	return cmd
}

func validTrigger(t string) error {
	for _, known := range settings.AvailableTriggers() {
		if t == known {
			return nil
		}
	}
	return fmt.Errorf("unknown trigger %q (want one of %v)", t, settings.AvailableTriggers())
}
