package main

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/vovakirdan/livetrigger/internal/app"
	"github.com/vovakirdan/livetrigger/internal/devices"
)

func newDevicesCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "devices",
		Short: "List and control smart devices",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app.App) error {
				if err := a.Devices.Fetch(ctx); err != nil {
					return err
				}
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "ID\tNAME\tONLINE\tCATEGORY")
				for _, d := range a.Devices.Devices() {
					fmt.Fprintf(tw, "%s\t%s\t%t\t%s\n", d.ID, d.DisplayName(), d.Online, d.Category)
				}
				return tw.Flush()
			})
		},
	}

	var duration time.Duration
	on := &cobra.Command{
		Use:   "on <id>",
		Short: "Turn a device on",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app.App) error {
				res, err := a.Devices.SwitchOn(ctx, args[0], duration)
				return printResult(cmd, res, err)
			})
		},
	}
	on.Flags().DurationVar(&duration, "duration", 0, "turn off again after this long")

	off := &cobra.Command{
		Use:   "off <id>",
		Short: "Turn a device off",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app.App) error {
				res, err := a.Devices.SwitchOff(ctx, args[0])
				return printResult(cmd, res, err)
			})
		},
	}

	var testDuration time.Duration
	test := &cobra.Command{
		Use:   "test <id>",
		Short: "Pulse a device",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app.App) error {
				res, err := a.Devices.Test(ctx, args[0], testDuration)
				return printResult(cmd, res, err)
			})
		},
	}
	test.Flags().DurationVar(&testDuration, "duration", devices.DefaultTestDuration, "pulse length")

	rename := &cobra.Command{
		Use:   "rename <id> <name>",
		Short: "Set a device's custom name",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app.App) error {
				return a.Devices.Rename(ctx, args[0], args[1])
			})
		},
	}

	state := &cobra.Command{
		Use:   "state <id>",
		Short: "Show a device's reported data points",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app.App) error {
				d, err := a.Devices.Details(ctx, args[0])
				if err != nil {
					return err
				}
				points, err := a.Devices.State(ctx, args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s (%s) online=%t\n", d.DisplayName(), d.ID, d.Online)
				for k, v := range points {
					fmt.Fprintf(cmd.OutOrStdout(), "  %s: %v\n", k, v)
				}
				return nil
			})
		},
	}

	cmd.AddCommand(on, off, test, rename, state)
	return cmd
}

func printResult(cmd *cobra.Command, res devices.SwitchResult, err error) error {
	if err != nil {
		return err
	}
	msg := res.Message
	if msg == "" {
		msg = "ok"
	}
	fmt.Fprintln(cmd.OutOrStdout(), msg)
	return nil
}
