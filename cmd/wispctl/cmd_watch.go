package main

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"wisp/internal/progress"
	"wisp/internal/statusserver"
)

func (c *cli) watchCmd() *cobra.Command {
	var metricsAddr string
	var noServer bool
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Stream project changes and serve the status endpoints",
		Long: `Subscribes to the change feed and prints every applied change, refresh
and connection transition. Unless --no-server is given, the synced list,
feed status and prometheus metrics are served over HTTP (default
127.0.0.1:9877, or $` + statusserver.PortEnv + `).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.watch(cmd.Context(), cmd.OutOrStdout(), metricsAddr, !noServer)
		},
	}
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "status server listen address")
	cmd.Flags().BoolVar(&noServer, "no-server", false, "do not start the status server")
	return cmd
}

func (c *cli) watch(ctx context.Context, out io.Writer, addr string, serve bool) error {
	printer := &eventPrinter{w: out}
	syn, feed := c.env.NewSyncer(progress.FuncEmitter(printer.print))

	var srv *statusserver.Server
	if serve {
		status := func() (string, error) {
			st, err := syn.Status()
			return st.String(), err
		}
		srv = statusserver.New(c.env.Store, status, c.env.Registry, addr, c.env.Logger)
		if err := srv.Start(); err != nil {
			return err
		}
		fmt.Fprintf(out, "Status server on http://%s\n", srv.ListenAddr())
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		err := syn.Run(ctx, feed)
		if ctx.Err() != nil {
			return nil
		}
		return err
	})
	if srv != nil {
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Stop(shutdownCtx)
		})
	}
	return g.Wait()
}

// eventPrinter writes one line per progress event. Events arrive from the
// feed and refresh goroutines concurrently.
type eventPrinter struct {
	mu sync.Mutex
	w  io.Writer
}

func (p *eventPrinter) print(ev progress.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintln(p.w, formatEvent(ev))
}

func formatEvent(ev progress.Event) string {
	var b strings.Builder
	ts := ev.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	fmt.Fprintf(&b, "%s %-10s %s", ts.Format("15:04:05"), ev.Kind, ev.Message)
	if len(ev.Metadata) > 0 {
		keys := make([]string, 0, len(ev.Metadata))
		for k := range ev.Metadata {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, " %s=%s", k, ev.Metadata[k])
		}
	}
	if ev.Err != nil {
		fmt.Fprintf(&b, " error=%q", ev.Err.Error())
	}
	return b.String()
}
