package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vovakirdan/livetrigger/internal/app"
	"github.com/vovakirdan/livetrigger/internal/theme"
)

func newThemeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:       "theme [dark|light|toggle]",
		Short:     "Show or change the feed theme",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{string(theme.Dark), string(theme.Light), "toggle"},
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app.App) error {
				switch {
				case len(args) == 0:
				case args[0] == "toggle":
					if _, err := a.Theme.Toggle(ctx); err != nil {
						return err
					}
				case theme.Name(args[0]).Valid():
					if err := a.Theme.Set(ctx, theme.Name(args[0])); err != nil {
						return err
					}
				default:
					return fmt.Errorf("unknown theme %q", args[0])
				}
				fmt.Fprintln(cmd.OutOrStdout(), a.Theme.Styles().Header.Render(string(a.Theme.Current())))
				return nil
			})
		},
	}
}
