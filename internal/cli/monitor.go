package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"math"
	"os"
	"strings"
	"time"

	"github.com/rileyhilliard/fleetwatch/internal/api"
	"github.com/rileyhilliard/fleetwatch/internal/errors"
	"github.com/rileyhilliard/fleetwatch/internal/logger"
	"github.com/rileyhilliard/fleetwatch/internal/monitor"
	"github.com/rileyhilliard/fleetwatch/internal/prefetch"
	"github.com/rileyhilliard/fleetwatch/internal/stream"
	"github.com/rileyhilliard/fleetwatch/internal/timefmt"
	"github.com/rileyhilliard/fleetwatch/internal/ui"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var (
	dashboardTab        string
	dashboardNoPrefetch bool
	dashboardHistory    bool
	watchCount          int
)

var dashboardCmd = &cobra.Command{
	Use:     "dashboard",
	Aliases: []string{"dash", "ui", "monitor"},
	Short:   "Open the full-screen dashboard",
	Long: `Open the full-screen dashboard with agents, monitors and logs tabs.

Select an agent and press enter to stream its metrics live. Press h to flip
between the live stream and stored history, ? for every shortcut.

Logs go to --log-file while the dashboard runs (discarded by default).

Examples:
  fleetwatch dashboard
  fleetwatch dashboard --tab monitors
  fleetwatch dashboard --server http://localhost:8080 --token $TOKEN`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !term.IsTerminal(int(os.Stdout.Fd())) {
			return errors.New(errors.ErrConfig,
				"The dashboard needs a terminal",
				"Use the list commands (agents list, bookmarks list, logs) when piping output.")
		}
		return withEnvironment(cmd, func(ctx context.Context, env *environment) error {
			restore, err := redirectLogs(logFileFlag)
			if err != nil {
				return err
			}
			defer restore()

			opts, err := dashboardOptions(env, dashboardTab, dashboardNoPrefetch, dashboardHistory)
			if err != nil {
				return err
			}
			return monitor.Run(ctx, opts)
		})
	},
}

var watchCmd = &cobra.Command{
	Use:   "watch <agent-id>",
	Short: "Stream an agent's metrics to stdout",
	Long: `Stream live metrics for one agent, one line per sample. The stream
reconnects with backoff when it drops and gives up after stream.max_attempts.

With --json, each sample is printed as one JSON object per line.

Examples:
  fleetwatch watch web-01
  fleetwatch watch gpu-01 --count 10 --json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEnvironment(cmd, func(ctx context.Context, env *environment) error {
			id, err := requireArgID("agent", args[0])
			if err != nil {
				return err
			}
			dialer := stream.NewWebsocketDialer(env.session, env.cfg.Stream.HandshakeTimeout)
			return watchAgent(ctx, cmd.OutOrStdout(), cmd.ErrOrStderr(), dialer, streamOptions(env), id, watchCount, env.location())
		})
	},
}

func init() {
	dashboardCmd.Flags().StringVar(&dashboardTab, "tab", "", "starting tab: agents, monitors or logs (default from prefs)")
	dashboardCmd.Flags().BoolVar(&dashboardNoPrefetch, "no-prefetch", false, "don't load monitor details in the background")
	dashboardCmd.Flags().BoolVar(&dashboardHistory, "history", false, "start in history mode instead of live")
	watchCmd.Flags().IntVarP(&watchCount, "count", "c", 0, "exit after this many samples (0 runs until interrupted)")
	rootCmd.AddCommand(dashboardCmd, watchCmd)
}

// streamOptions maps the stream config section onto client options.
func streamOptions(env *environment) stream.Options {
	return stream.Options{
		BufferSize: env.cfg.Stream.BufferSize,
		Backoff: stream.Backoff{
			Base:        env.cfg.Stream.BaseDelay,
			Cap:         env.cfg.Stream.MaxDelay,
			MaxAttempts: env.cfg.Stream.MaxAttempts,
		},
		Logger: logger.NewEnvLogger("[stream]"),
	}
}

// dashboardOptions builds the dashboard's options from config, prefs and flags.
// Flags override prefs for this run only.
func dashboardOptions(env *environment, tab string, noPrefetch, history bool) (monitor.Options, error) {
	p := env.prefs
	if tab != "" {
		if err := p.Set("default_tab", tab); err != nil {
			return monitor.Options{}, err
		}
	}
	if history {
		live := false
		p.LiveMode = &live
	}

	cfg := env.cfg
	return monitor.Options{
		Backend: env.client,
		Dialer:  stream.NewWebsocketDialer(env.session, cfg.Stream.HandshakeTimeout),
		Stream:  streamOptions(env),
		Prefetch: prefetch.Options{
			Immediate:  cfg.Prefetch.Immediate,
			ChunkSize:  cfg.Prefetch.ChunkSize,
			ChunkDelay: cfg.Prefetch.ChunkDelay,
			Logger:     logger.NewEnvLogger("[prefetch]"),
		},
		PrefetchEnabled: cfg.Prefetch.Enabled && !noPrefetch,
		HistoryLimit:    cfg.Prefetch.HistoryLimit,
		Refresh:         cfg.Display.Refresh,
		PageSize:        cfg.API.PageSize,
		Location:        env.location(),
		Warning:         cfg.Display.Thresholds.Warning,
		Critical:        cfg.Display.Thresholds.Critical,
		Prefs:           p,
		PrefsPath:       env.prefsPath,
		Logger:          logger.NewEnvLogger("[dashboard]"),
	}, nil
}

// redirectLogs points the standard logger at path, or discards it, so log
// lines don't corrupt the alt screen. The returned func restores stderr.
func redirectLogs(path string) (func(), error) {
	if path == "" {
		log.SetOutput(io.Discard)
		return func() { log.SetOutput(os.Stderr) }, nil
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrConfig,
			"Couldn't open log file "+path,
			"Check the directory exists and is writable.")
	}
	log.SetOutput(f)
	return func() {
		log.SetOutput(os.Stderr)
		f.Close()
	}, nil
}

// watchAgent streams id until ctx is done, count samples arrive, or the
// client gives up reconnecting.
func watchAgent(ctx context.Context, out, status io.Writer, dialer stream.Dialer, opts stream.Options, id string, count int, loc *time.Location) error {
	events := make(chan stream.Event, 64)
	opts.OnEvent = func(e stream.Event) {
		// Never block the reader goroutine; a slow terminal drops lines.
		select {
		case events <- e:
		default:
		}
	}

	client := stream.NewClient(dialer, opts)
	client.Connect(id)
	defer client.Disconnect()

	// A dropped state event must not leave us waiting forever.
	poll := time.NewTicker(time.Second)
	defer poll.Stop()

	enc := json.NewEncoder(out)
	seen := 0
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-poll.C:
			if snap := client.Snapshot(); snap.State == stream.StateDisconnected {
				return streamGaveUp(id, snap.Attempt, snap.LastErr)
			}
		case e := <-events:
			switch e.Kind {
			case stream.EventSample:
				if machineMode {
					if err := enc.Encode(e.Sample); err != nil {
						return err
					}
				} else {
					fmt.Fprintln(out, formatSampleLine(*e.Sample, loc))
				}
				seen++
				if count > 0 && seen >= count {
					return nil
				}

			case stream.EventState:
				if msg := streamStateLine(e); msg != "" && !machineMode {
					fmt.Fprintln(status, msg)
				}
				if e.State == stream.StateDisconnected {
					return streamGaveUp(id, e.Attempt, e.Err)
				}
			}
		}
	}
}

func streamGaveUp(id string, attempts int, cause error) error {
	return &errors.Error{
		Code:       errors.ErrStream,
		Message:    fmt.Sprintf("Stream for %s disconnected after %d attempts", id, attempts),
		Suggestion: "Check the agent is online with 'fleetwatch agents show " + id + "', then try again.",
		Cause:      cause,
	}
}

func streamStateLine(e stream.Event) string {
	switch e.State {
	case stream.StateOpen:
		if e.Attempt > 0 {
			return ui.SuccessStyle().Render(ui.SymbolLive) + " reconnected to " + e.AgentID
		}
		return ui.SuccessStyle().Render(ui.SymbolLive) + " streaming " + e.AgentID
	case stream.StateRetrying:
		reason := ""
		if e.Err != nil {
			reason = ": " + e.Err.Error()
		}
		return ui.WarningStyle().Render(ui.SymbolWarning) +
			fmt.Sprintf(" stream dropped%s, retry %d in %s", reason, e.Attempt, e.Delay.Round(time.Millisecond))
	}
	return ""
}

// formatSampleLine renders one sample as a single terminal line.
func formatSampleLine(s api.MetricSample, loc *time.Location) string {
	parts := []string{ui.MutedStyle().Render(timefmt.Format(s.Timestamp.Time, loc, timefmt.LayoutShort))}
	for _, m := range []stream.Metric{stream.MetricCPU, stream.MetricRAM, stream.MetricGPU, stream.MetricCPUTemp, stream.MetricNetIn, stream.MetricNetOut} {
		v := m.Value(s)
		if math.IsNaN(v) {
			continue
		}
		parts = append(parts, fmt.Sprintf("%s %s", ui.MutedStyle().Render(m.String()), monitor.FormatMetric(m, v)))
	}
	return strings.Join(parts, "  ")
}
