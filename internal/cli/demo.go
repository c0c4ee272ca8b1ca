package cli

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/rileyhilliard/fleetwatch/internal/demo"
	"github.com/rileyhilliard/fleetwatch/internal/errors"
	"github.com/rileyhilliard/fleetwatch/internal/logger"
	"github.com/rileyhilliard/fleetwatch/internal/ui"
	"github.com/spf13/cobra"
)

var demoFlags demoOptions

// demoOptions backs `fleetwatch demo`.
type demoOptions struct {
	Addr      string
	Host      bool
	Interval  time.Duration
	Latency   time.Duration
	Seed      uint64
	Bookmarks int
	TokenTTL  time.Duration
}

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Run a local demo backend",
	Long: `Run an in-process fleet backend with a handful of synthetic agents,
monitors, alert rules and logs. It prints a token you can point the
dashboard at from another terminal.

With --host, an extra agent named "local" reports this machine's real CPU,
memory, disk and network usage.

Examples:
  fleetwatch demo
  fleetwatch demo --addr 127.0.0.1:9090 --host --latency 150ms`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := commandContext(cmd.Context())
		defer cancel()
		return runDemo(ctx, cmd.OutOrStdout(), demoFlags, nil)
	},
}

func init() {
	f := demoCmd.Flags()
	f.StringVar(&demoFlags.Addr, "addr", "127.0.0.1:8080", "listen address")
	f.BoolVar(&demoFlags.Host, "host", false, "add an agent reporting this machine's metrics")
	f.DurationVar(&demoFlags.Interval, "interval", demo.DefaultInterval, "time between streamed samples")
	f.DurationVar(&demoFlags.Latency, "latency", 0, "extra delay on monitor detail calls, to watch prefetch work")
	f.Uint64Var(&demoFlags.Seed, "seed", 1, "seed for synthetic metrics")
	f.IntVar(&demoFlags.Bookmarks, "bookmarks", demo.DefaultBookmarks, "number of monitors to create")
	f.DurationVar(&demoFlags.TokenTTL, "token-ttl", 24*time.Hour, "lifetime of the printed token")
	rootCmd.AddCommand(demoCmd)
}

// runDemo serves the demo backend until ctx is done. When ready is non-nil
// it receives the base URL and token once the listener is up.
func runDemo(ctx context.Context, w io.Writer, opts demoOptions, ready func(url, token string)) error {
	srv := demo.New(ctx, demo.Options{
		Interval:  opts.Interval,
		Latency:   opts.Latency,
		Host:      opts.Host,
		Seed:      opts.Seed,
		Bookmarks: opts.Bookmarks,
		Logger:    logger.NewEnvLogger("[demo]"),
	})
	defer srv.Close()

	token, err := srv.IssueToken("demo", opts.TokenTTL)
	if err != nil {
		return errors.WrapWithCode(err, errors.ErrAuth, "Couldn't sign a demo token", "")
	}

	ln, err := net.Listen("tcp", opts.Addr)
	if err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig,
			"Couldn't listen on "+opts.Addr,
			"Pick another address with --addr, e.g. --addr 127.0.0.1:9090.")
	}
	url := "http://" + ln.Addr().String()

	httpSrv := &http.Server{
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	serveErr := make(chan error, 1)
	go func() { serveErr <- httpSrv.Serve(ln) }()

	if ready != nil {
		ready(url, token)
	}

	info := map[string]string{"url": url, "token": token}
	if err := printResult(w, info, func() error {
		fmt.Fprintf(w, "%s Demo backend listening on %s\n\n", ui.SuccessStyle().Render(ui.SymbolSuccess), url)
		fmt.Fprintln(w, "In another terminal:")
		fmt.Fprintf(w, "  fleetwatch dashboard --server %s --token %s\n\n", url, token)
		fmt.Fprintln(w, ui.MutedStyle().Render("Or save it: fleetwatch login --server "+url+" --token <token>"))
		fmt.Fprintln(w, ui.MutedStyle().Render("Press Ctrl-C to stop."))
		return nil
	}); err != nil {
		return err
	}

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			return errors.WrapWithCode(err, errors.ErrConfig, "Demo backend stopped", "")
		}
		return nil
	}

	// Streams are long-lived; close them before waiting on the server.
	srv.DropStreams()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		return httpSrv.Close()
	}
	return nil
}
