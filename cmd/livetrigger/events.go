package main

import (
	"fmt"
	"net/http"
	"net/url"

	"github.com/spf13/cobra"

	"github.com/vovakirdan/livetrigger/internal/feed"
	"github.com/vovakirdan/livetrigger/internal/gateway"
	"github.com/vovakirdan/livetrigger/internal/theme"
	transporthttp "github.com/vovakirdan/livetrigger/internal/transport/http"
)

func newEventsCmd(opts *rootOptions) *cobra.Command {
	var (
		kind     string
		subtype  string
		limit    int
		clearLog bool
	)

	cmd := &cobra.Command{
		Use:   "events",
		Short: "Query the event log of a running watch session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			client := gateway.New("http://"+opts.cfg.Dashboard.Addr, nil, opts.logger)

			if clearLog {
				return client.Do(ctx, http.MethodPost, "/api/events/clear", nil, nil)
			}

			q := url.Values{}
			if kind != "" {
				q.Set("kind", kind)
			}
			if subtype != "" {
				q.Set("subtype", subtype)
			}
			if limit > 0 {
				q.Set("limit", fmt.Sprint(limit))
			}
			path := "/api/events"
			if len(q) > 0 {
				path += "?" + q.Encode()
			}

			var state transporthttp.StateResponse
			if err := client.Do(ctx, http.MethodGet, "/api/state", nil, &state); err != nil {
				return fmt.Errorf("is `livetrigger watch` running? %w", err)
			}
			var resp transporthttp.EventsResponse
			if err := client.Do(ctx, http.MethodGet, path, nil, &resp); err != nil {
				return err
			}

			name := state.Theme
			if !name.Valid() {
				name = theme.SystemDefault()
			}
			st := theme.StylesFor(name)
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s  %s  %s\n",
				st.Header.Render(state.Transport.State.String()),
				feed.StatusText(st, state.Connection),
				st.Dimmed.Render(feed.CountsText(state.Counts)))
			for _, e := range resp.Events {
				fmt.Fprintln(out, feed.Line(st, e))
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&kind, "kind", "", "only events of this kind")
	f.StringVar(&subtype, "subtype", "", "only stream events of this subtype")
	f.IntVarP(&limit, "limit", "n", 0, "at most this many events")
	f.BoolVar(&clearLog, "clear", false, "clear the log instead of listing it")
	return cmd
}
