package cli

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/rileyhilliard/fleetwatch/internal/api"
	"github.com/rileyhilliard/fleetwatch/internal/errors"
	"github.com/rileyhilliard/fleetwatch/internal/pager"
	"github.com/rileyhilliard/fleetwatch/internal/timefmt"
	"github.com/rileyhilliard/fleetwatch/internal/ui"
	"github.com/spf13/cobra"
)

var (
	logsAgents []string
	logsLevels []string
	logsSearch string
	logsSince  string
	logsUntil  string
	logsLimit  int
	logsFollow bool
)

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Search agent logs",
	Long: `Search logs collected from agents. Entries print oldest first so the
newest line ends up at the bottom, like tail.

Examples:
  fleetwatch logs
  fleetwatch logs --agent web-01,web-02 --level error,warn --since 6h
  fleetwatch logs --search "timed out" --limit 50
  fleetwatch logs --agent db-01 --follow`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEnvironment(cmd, func(ctx context.Context, env *environment) error {
			now := time.Now()
			q, err := buildLogQuery(logsAgents, logsLevels, logsSearch, logsSince, logsUntil, now)
			if err != nil {
				return err
			}
			last, err := printLogs(ctx, cmd.OutOrStdout(), env.client, q, logsLimit, env.location())
			if err != nil || !logsFollow {
				return err
			}
			return followLogs(ctx, cmd.OutOrStdout(), env.client, q, last, env.cfg.Display.Refresh, env.location())
		})
	},
}

func init() {
	f := logsCmd.Flags()
	f.StringSliceVarP(&logsAgents, "agent", "a", nil, "only these agents (repeat or comma-separate)")
	f.StringSliceVarP(&logsLevels, "level", "l", nil, "only these levels: error, warn, info, debug")
	f.StringVarP(&logsSearch, "search", "s", "", "full-text search")
	f.StringVar(&logsSince, "since", "1h", "start of the range: a lookback (6h, 7d) or a timestamp")
	f.StringVar(&logsUntil, "until", "", "end of the range: a lookback or a timestamp (default now)")
	f.IntVarP(&logsLimit, "limit", "n", 200, "maximum entries to print")
	f.BoolVarP(&logsFollow, "follow", "f", false, "keep printing new entries")
	rootCmd.AddCommand(logsCmd)
}

var validLogLevels = map[string]bool{"error": true, "warn": true, "info": true, "debug": true}

func buildLogQuery(agents, levels []string, search, since, until string, now time.Time) (api.LogQuery, error) {
	q := api.LogQuery{
		AgentIDs: splitList(agents),
		Search:   strings.TrimSpace(search),
	}
	for _, l := range splitList(levels) {
		l = strings.ToLower(l)
		if l == "warning" {
			l = "warn"
		}
		if !validLogLevels[l] {
			return q, errors.New(errors.ErrValidation,
				fmt.Sprintf("Unknown log level '%s'", l),
				"Use error, warn, info or debug.")
		}
		q.Levels = append(q.Levels, l)
	}

	var err error
	if q.Start, err = ParseTimeBound(since, now); err != nil {
		return q, err
	}
	if q.End, err = ParseTimeBound(until, now); err != nil {
		return q, err
	}
	if !q.Start.IsZero() && !q.End.IsZero() && !q.Start.Before(q.End) {
		return q, errors.New(errors.ErrValidation,
			"--since must be before --until",
			"Swap the two values, or drop --until to search up to now.")
	}
	return q, nil
}

// fetchLogs pages through q until limit entries are loaded or the backend
// runs out. Entries come back newest first.
func fetchLogs(ctx context.Context, client *api.Client, q api.LogQuery, limit int) ([]api.LogEntry, error) {
	pageSize := client.PageSize()
	if limit > 0 && limit < pageSize {
		pageSize = limit
	}
	p := pager.New(func(ctx context.Context, offset, n int) (*api.Page[api.LogEntry], error) {
		pq := q
		pq.Offset = offset
		pq.Limit = n
		return client.QueryLogs(ctx, pq)
	}, pageSize, pager.DefaultThreshold)

	for p.HasMore() && (limit <= 0 || p.Len() < limit) {
		n, err := p.Next(ctx)
		if err != nil {
			return nil, err
		}
		if n == 0 {
			break
		}
	}

	entries := p.Items()
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

// printLogs prints matching entries oldest first and returns the newest
// timestamp seen.
func printLogs(ctx context.Context, w io.Writer, client *api.Client, q api.LogQuery, limit int, loc *time.Location) (time.Time, error) {
	entries, err := fetchLogs(ctx, client, q, limit)
	if err != nil {
		return time.Time{}, err
	}
	reverse(entries)

	var newest time.Time
	if len(entries) > 0 {
		newest = entries[len(entries)-1].Timestamp.Time
	}

	return newest, printResult(w, entries, func() error {
		if len(entries) == 0 {
			fmt.Fprintln(w, ui.MutedStyle().Render("No log entries match"))
			return nil
		}
		for _, e := range entries {
			fmt.Fprintln(w, formatLogEntry(e, loc))
		}
		return nil
	})
}

// followLogs polls for entries newer than since until ctx is cancelled.
func followLogs(ctx context.Context, w io.Writer, client *api.Client, q api.LogQuery, since time.Time, every time.Duration, loc *time.Location) error {
	if every <= 0 {
		every = 5 * time.Second
	}
	if since.IsZero() {
		since = time.Now()
	}
	seen := map[string]bool{}

	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		fq := q
		fq.Start = since
		fq.End = time.Time{}
		entries, err := fetchLogs(ctx, client, fq, 0)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			ui.PrintWarning(err.Error())
			continue
		}
		reverse(entries)
		for _, e := range entries {
			key := e.ID
			if key == "" {
				key = e.Timestamp.String() + e.AgentID + e.Message
			}
			if seen[key] || e.Timestamp.Before(since) {
				continue
			}
			seen[key] = true
			if machineMode {
				_ = WriteJSONSuccess(w, e)
			} else {
				fmt.Fprintln(w, formatLogEntry(e, loc))
			}
			since = e.Timestamp.Time
		}
	}
}

func logLevelStyle(level string) lipgloss.Style {
	switch strings.ToLower(level) {
	case "error":
		return ui.ErrorStyle().Bold(true)
	case "warn", "warning":
		return ui.WarningStyle()
	case "debug":
		return ui.MutedStyle()
	default:
		return ui.InfoStyle()
	}
}

func formatLogEntry(e api.LogEntry, loc *time.Location) string {
	level := strings.ToUpper(e.Level)
	if level == "" {
		level = "-"
	}
	source := e.AgentID
	if e.Source != "" {
		source += "/" + e.Source
	}
	return fmt.Sprintf("%s %s %s %s",
		ui.MutedStyle().Render(timefmt.Format(e.Timestamp.Time, loc, timefmt.LayoutFull)),
		logLevelStyle(e.Level).Render(fmt.Sprintf("%-5s", level)),
		lipgloss.NewStyle().Bold(true).Render(source),
		e.Message)
}

func reverse[T any](s []T) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}
