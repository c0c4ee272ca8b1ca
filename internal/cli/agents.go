package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/rileyhilliard/fleetwatch/internal/api"
	"github.com/rileyhilliard/fleetwatch/internal/errors"
	"github.com/rileyhilliard/fleetwatch/internal/monitor"
	"github.com/rileyhilliard/fleetwatch/internal/stream"
	"github.com/rileyhilliard/fleetwatch/internal/timefmt"
	"github.com/rileyhilliard/fleetwatch/internal/ui"
	"github.com/spf13/cobra"
)

var (
	agentsRestartYes   bool
	agentsProcLimit    int
	agentsHistorySince string
	agentsHistoryLimit int
	agentsHistorySVG   string
	agentsHistoryWidth int
	agentsHistoryOnly  string
)

var agentsCmd = &cobra.Command{
	Use:     "agents",
	Aliases: []string{"agent"},
	Short:   "List and inspect agents",
	Long: `List agents registered with the backend and inspect one of them.

Examples:
  fleetwatch agents list
  fleetwatch agents show web-01 --json
  fleetwatch agents history web-01 --since 6h --svg cpu.svg`,
}

var agentsListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List agents",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEnvironment(cmd, func(ctx context.Context, env *environment) error {
			return listAgents(ctx, cmd.OutOrStdout(), env.client, time.Now())
		})
	},
}

var agentsShowCmd = &cobra.Command{
	Use:   "show <agent-id>",
	Short: "Show one agent",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEnvironment(cmd, func(ctx context.Context, env *environment) error {
			return showAgent(ctx, cmd.OutOrStdout(), env.client, args[0], env.location(), time.Now())
		})
	},
}

var agentsRestartCmd = &cobra.Command{
	Use:   "restart <agent-id>",
	Short: "Ask an agent to restart",
	Long: `Ask the backend to restart an agent's collector.

Prompts for confirmation unless --yes is given.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEnvironment(cmd, func(ctx context.Context, env *environment) error {
			id, err := requireArgID("agent", args[0])
			if err != nil {
				return err
			}
			ok, err := confirmAction(agentsRestartYes, fmt.Sprintf("Restart agent '%s'?", id), "Metrics pause while the collector restarts")
			if err != nil || !ok {
				if err == nil {
					cmd.Println("Cancelled.")
				}
				return err
			}
			return restartAgent(ctx, cmd.OutOrStdout(), env.client, id)
		})
	},
}

var agentsProcessesCmd = &cobra.Command{
	Use:     "processes <agent-id>",
	Aliases: []string{"ps"},
	Short:   "Show an agent's busiest processes",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEnvironment(cmd, func(ctx context.Context, env *environment) error {
			return listProcesses(ctx, cmd.OutOrStdout(), env.client, args[0], agentsProcLimit)
		})
	},
}

var agentsHistoryCmd = &cobra.Command{
	Use:   "history <agent-id>",
	Short: "Summarize an agent's recent metrics",
	Long: `Load historical samples for an agent and print a sparkline and
min/avg/max for each metric it reports.

With --svg, the selected metric (default cpu) is also written as an SVG
sparkline. Use "-" to write it to stdout.

Examples:
  fleetwatch agents history web-01
  fleetwatch agents history gpu-01 --since 6h --metric gpu --svg gpu.svg`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEnvironment(cmd, func(ctx context.Context, env *environment) error {
			since, err := ParseSince(agentsHistorySince, time.Hour)
			if err != nil {
				return err
			}
			opts := historyOptions{
				Since:  since,
				Limit:  agentsHistoryLimit,
				Width:  agentsHistoryWidth,
				Metric: agentsHistoryOnly,
				SVG:    agentsHistorySVG,
				Now:    time.Now(),
			}
			return agentHistory(ctx, cmd.OutOrStdout(), env.client, args[0], opts)
		})
	},
}

func init() {
	agentsRestartCmd.Flags().BoolVarP(&agentsRestartYes, "yes", "y", false, "skip the confirmation prompt")
	agentsProcessesCmd.Flags().IntVar(&agentsProcLimit, "limit", 15, "number of processes to show (0 for all)")

	hf := agentsHistoryCmd.Flags()
	hf.StringVar(&agentsHistorySince, "since", "1h", "how far back to look (e.g. 30m, 6h, 7d)")
	hf.IntVar(&agentsHistoryLimit, "limit", 500, "maximum samples to load")
	hf.StringVar(&agentsHistorySVG, "svg", "", "write an SVG sparkline of --metric to this file")
	hf.IntVar(&agentsHistoryWidth, "width", 40, "sparkline width in characters")
	hf.StringVar(&agentsHistoryOnly, "metric", "", "only show this metric (cpu, ram, gpu, cpu_temp, net_in, ...)")

	agentsCmd.AddCommand(agentsListCmd, agentsShowCmd, agentsRestartCmd, agentsProcessesCmd, agentsHistoryCmd)
	rootCmd.AddCommand(agentsCmd)
}

// withEnvironment builds the environment and a signal-aware context for fn.
func withEnvironment(cmd *cobra.Command, fn func(ctx context.Context, env *environment) error) error {
	env, err := newEnvironment()
	if err != nil {
		return err
	}
	ctx, cancel := commandContext(cmd.Context())
	defer cancel()
	return fn(ctx, env)
}

func agentStatus(a api.Agent) string {
	if a.Status == "" {
		return "unknown"
	}
	return strings.ToLower(a.Status)
}

func lastSeen(a api.Agent, now time.Time) string {
	switch {
	case a.Online():
		return "now"
	case a.LastSeen.IsZero():
		return "never"
	default:
		return timefmt.Relative(a.LastSeen.Time, now)
	}
}

func listAgents(ctx context.Context, w io.Writer, client *api.Client, now time.Time) error {
	agents, err := client.ListAgents(ctx)
	if err != nil {
		return err
	}
	sort.SliceStable(agents, func(i, j int) bool {
		if agents[i].Online() != agents[j].Online() {
			return agents[i].Online()
		}
		return agents[i].DisplayName() < agents[j].DisplayName()
	})

	return printResult(w, agents, func() error {
		rows := make([]ui.StatusTableRow, 0, len(agents))
		for _, a := range agents {
			rows = append(rows, ui.StatusTableRow{
				Status:  agentStatus(a),
				Columns: []string{a.ID, a.DisplayName(), a.Platform, a.IP, lastSeen(a, now)},
			})
		}
		fmt.Fprint(w, ui.RenderStatusTable(
			[]string{"ID", "NAME", "PLATFORM", "IP", "LAST SEEN"},
			[]int{12, 16, 16, 14, 12},
			rows, "No agents registered"))
		return nil
	})
}

func showAgent(ctx context.Context, w io.Writer, client *api.Client, id string, loc *time.Location, now time.Time) error {
	id, err := requireArgID("agent", id)
	if err != nil {
		return err
	}
	agent, err := client.GetAgent(ctx, id)
	if err != nil {
		return err
	}

	return printResult(w, agent, func() error {
		fmt.Fprintf(w, "%s %s\n", ui.StatusSymbol(agentStatus(*agent)), ui.InfoStyle().Bold(true).Render(agent.DisplayName()))
		field := func(label, value string) {
			if value != "" {
				fmt.Fprintf(w, "  %s %s\n", ui.MutedStyle().Render(fmt.Sprintf("%-10s", label)), value)
			}
		}
		field("id", agent.ID)
		field("hostname", agent.Hostname)
		field("status", agentStatus(*agent))
		field("platform", agent.Platform)
		field("version", agent.Version)
		field("ip", agent.IP)
		field("tags", strings.Join(agent.Tags, ", "))
		if !agent.LastSeen.IsZero() {
			field("last seen", timefmt.Format(agent.LastSeen.Time, loc, timefmt.LayoutFull)+" ("+timefmt.Relative(agent.LastSeen.Time, now)+")")
		}
		return nil
	})
}

func restartAgent(ctx context.Context, w io.Writer, client *api.Client, id string) error {
	msg, err := client.RestartAgent(ctx, id)
	if err != nil {
		return err
	}
	return printResult(w, map[string]string{"agent_id": id, "message": msg}, func() error {
		if msg == "" {
			msg = "Restart requested for " + id
		}
		fmt.Fprintln(w, ui.SuccessStyle().Render(ui.SymbolSuccess)+" "+msg)
		return nil
	})
}

func listProcesses(ctx context.Context, w io.Writer, client *api.Client, id string, limit int) error {
	id, err := requireArgID("agent", id)
	if err != nil {
		return err
	}
	procs, err := client.ListProcesses(ctx, id)
	if err != nil {
		return err
	}
	sort.SliceStable(procs, func(i, j int) bool { return procs[i].CPUPercent > procs[j].CPUPercent })
	if limit > 0 && len(procs) > limit {
		procs = procs[:limit]
	}

	return printResult(w, procs, func() error {
		if len(procs) == 0 {
			fmt.Fprintln(w, ui.MutedStyle().Render("No processes reported"))
			return nil
		}
		rows := make([][]string, 0, len(procs))
		for _, p := range procs {
			rows = append(rows, []string{
				fmt.Sprint(p.PID),
				p.Name,
				p.User,
				fmt.Sprintf("%.1f", p.CPUPercent),
				fmt.Sprintf("%.1f", p.MemPercent),
			})
		}
		fmt.Fprintln(w, ui.RenderSimpleTable([]ui.TableColumn{
			{Title: "PID", Width: 8},
			{Title: "NAME", Width: 24},
			{Title: "USER", Width: 12},
			{Title: "CPU%", Width: 7},
			{Title: "MEM%", Width: 7},
		}, rows))
		return nil
	})
}

// historyOptions controls `agents history`.
type historyOptions struct {
	Since  time.Duration
	Limit  int
	Width  int
	Metric string
	SVG    string
	Now    time.Time

	// Stdout receives the SVG when SVG is "-". Defaults to the command writer.
	Stdout io.Writer
}

// metricSummary is one metric's line in `agents history --json`.
type metricSummary struct {
	Metric string       `json:"metric"`
	Stats  stream.Stats `json:"stats"`
}

type historySummary struct {
	AgentID string          `json:"agent_id"`
	Start   time.Time       `json:"start"`
	End     time.Time       `json:"end"`
	Samples int             `json:"samples"`
	Metrics []metricSummary `json:"metrics"`
}

func agentHistory(ctx context.Context, w io.Writer, client *api.Client, id string, opts historyOptions) error {
	id, err := requireArgID("agent", id)
	if err != nil {
		return err
	}
	if opts.Since <= 0 {
		return errors.New(errors.ErrValidation, "--since must be positive", "Try --since 1h or --since 30m.")
	}
	if opts.Now.IsZero() {
		opts.Now = time.Now()
	}
	if opts.Width <= 0 {
		opts.Width = 40
	}

	metrics := stream.Metrics
	if opts.Metric != "" {
		m, err := stream.ParseMetric(opts.Metric)
		if err != nil {
			return errors.WrapWithCode(err, errors.ErrValidation, err.Error(),
				"Known metrics: cpu, ram, gpu, cpu_temp, gpu_temp, net_in, net_out, disk_read, disk_write")
		}
		metrics = []stream.Metric{m}
	}

	page, err := client.QueryMetrics(ctx, api.MetricsQuery{
		AgentIDs: []string{id},
		Start:    opts.Now.Add(-opts.Since),
		End:      opts.Now,
		Limit:    opts.Limit,
	})
	if err != nil {
		return err
	}

	samples := page.Items
	sort.SliceStable(samples, func(i, j int) bool { return samples[i].Timestamp.Before(samples[j].Timestamp.Time) })
	series := stream.NewSeries(max(len(samples), 1))
	series.Rebuild(samples)

	summary := historySummary{
		AgentID: id,
		Start:   opts.Now.Add(-opts.Since),
		End:     opts.Now,
		Samples: len(samples),
	}
	for _, m := range metrics {
		if series.Has(m) {
			summary.Metrics = append(summary.Metrics, metricSummary{Metric: m.String(), Stats: series.Stats(m)})
		}
	}

	if opts.SVG != "" {
		if err := writeHistorySVG(w, opts, series, metrics[0]); err != nil {
			return err
		}
		if opts.SVG == "-" {
			return nil
		}
	}

	return printResult(w, summary, func() error {
		fmt.Fprintf(w, "%s  %s\n", ui.InfoStyle().Bold(true).Render(id),
			ui.MutedStyle().Render(fmt.Sprintf("%d samples over the last %s", len(samples), opts.Since)))
		if len(summary.Metrics) == 0 {
			fmt.Fprintln(w, ui.MutedStyle().Render("No readings in range"))
			return nil
		}
		for _, ms := range summary.Metrics {
			m, _ := stream.ParseMetric(ms.Metric)
			st := ms.Stats
			fmt.Fprintf(w, "  %-10s %s  %s  %s\n",
				ms.Metric,
				padSparkline(ui.RenderSparkline(series.Values(m), opts.Width), opts.Width),
				ui.InfoStyle().Render(monitor.FormatMetric(m, st.Last)),
				ui.MutedStyle().Render(fmt.Sprintf("min %s  avg %s  max %s",
					monitor.FormatMetric(m, st.Min), monitor.FormatMetric(m, st.Avg), monitor.FormatMetric(m, st.Max))))
		}
		if opts.SVG != "" {
			fmt.Fprintln(w, ui.SuccessStyle().Render(ui.SymbolSuccess)+" Wrote "+metrics[0].String()+" sparkline to "+opts.SVG)
		}
		return nil
	})
}

func writeHistorySVG(w io.Writer, opts historyOptions, series *stream.Series, m stream.Metric) error {
	svgOpts := ui.DefaultSVGOptions
	switch m {
	case stream.MetricCPU, stream.MetricRAM, stream.MetricGPU:
		svgOpts.Min, svgOpts.Max = 0, 100
	}
	svg := ui.RenderSVGSparkline(series.Values(m), svgOpts)

	if opts.SVG == "-" {
		out := opts.Stdout
		if out == nil {
			out = w
		}
		_, err := fmt.Fprintln(out, svg)
		return err
	}
	if err := os.WriteFile(opts.SVG, []byte(svg+"\n"), 0o644); err != nil {
		return errors.WrapWithCode(err, errors.ErrValidation,
			"Couldn't write "+opts.SVG,
			"Check the directory exists and is writable.")
	}
	return nil
}

// padSparkline keeps the stats column aligned when a sparkline is short.
func padSparkline(s string, width int) string {
	visible := lipgloss.Width(s)
	if visible >= width {
		return s
	}
	return strings.Repeat(" ", width-visible) + s
}
