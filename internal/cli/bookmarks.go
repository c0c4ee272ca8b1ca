package cli

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/rileyhilliard/fleetwatch/internal/api"
	"github.com/rileyhilliard/fleetwatch/internal/logger"
	"github.com/rileyhilliard/fleetwatch/internal/prefetch"
	"github.com/rileyhilliard/fleetwatch/internal/timefmt"
	"github.com/rileyhilliard/fleetwatch/internal/ui"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var (
	bookmarkHistory int
	bookmarkRmYes   bool
	bookmarkInput   bookmarkFlags
)

// bookmarkFlags backs the add/edit flag set. Only flags the user changed
// are applied on edit.
type bookmarkFlags struct {
	name     string
	url      string
	method   string
	interval int
	timeout  int
	expected int
	disabled bool
}

func (f *bookmarkFlags) register(fs *pflag.FlagSet) {
	fs.StringVar(&f.name, "name", "", "display name")
	fs.StringVar(&f.url, "url", "", "URL to check")
	fs.StringVar(&f.method, "method", "", "HTTP method (GET, HEAD or POST)")
	fs.IntVar(&f.interval, "interval", 0, "seconds between checks (10-86400)")
	fs.IntVar(&f.timeout, "timeout", 0, "request timeout in seconds")
	fs.IntVar(&f.expected, "expect", 0, "expected HTTP status")
	fs.BoolVar(&f.disabled, "disabled", false, "create or leave the monitor paused")
}

// apply copies changed flags onto in.
func (f *bookmarkFlags) apply(fs *pflag.FlagSet, in *api.BookmarkInput) {
	if fs.Changed("name") {
		in.Name = strings.TrimSpace(f.name)
	}
	if fs.Changed("url") {
		in.URL = strings.TrimSpace(f.url)
	}
	if fs.Changed("method") {
		in.Method = f.method
	}
	if fs.Changed("interval") {
		in.IntervalSeconds = f.interval
	}
	if fs.Changed("timeout") {
		in.TimeoutSeconds = f.timeout
	}
	if fs.Changed("expect") {
		in.ExpectedStatus = f.expected
	}
	if fs.Changed("disabled") {
		in.Enabled = !f.disabled
	}
}

var bookmarksCmd = &cobra.Command{
	Use:     "bookmarks",
	Aliases: []string{"bookmark", "monitors"},
	Short:   "Manage uptime monitors",
	Long: `List, inspect and manage uptime monitors (bookmarks).

Examples:
  fleetwatch bookmarks list
  fleetwatch bookmarks add --name api --url https://api.example.com/health
  fleetwatch bookmarks check bm-0001
  fleetwatch bookmarks prefetch`,
}

var bookmarksListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List monitors",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEnvironment(cmd, func(ctx context.Context, env *environment) error {
			return listBookmarks(ctx, cmd.OutOrStdout(), env.client, time.Now())
		})
	},
}

var bookmarksShowCmd = &cobra.Command{
	Use:   "show <bookmark-id>",
	Short: "Show a monitor with its recent checks",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEnvironment(cmd, func(ctx context.Context, env *environment) error {
			limit := bookmarkHistory
			if !cmd.Flags().Changed("history") {
				limit = env.cfg.Prefetch.HistoryLimit
			}
			return showBookmark(ctx, cmd.OutOrStdout(), env.client, args[0], limit, env.location())
		})
	},
}

var bookmarksAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Create a monitor",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEnvironment(cmd, func(ctx context.Context, env *environment) error {
			in := api.BookmarkInput{Enabled: true}
			bookmarkInput.apply(cmd.Flags(), &in)
			return saveBookmark(ctx, cmd.OutOrStdout(), env.client, "", in)
		})
	},
}

var bookmarksEditCmd = &cobra.Command{
	Use:   "edit <bookmark-id>",
	Short: "Change a monitor",
	Long: `Change a monitor. Only the flags you pass are updated.

Examples:
  fleetwatch bookmarks edit bm-0003 --interval 30
  fleetwatch bookmarks edit bm-0003 --disabled`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEnvironment(cmd, func(ctx context.Context, env *environment) error {
			id, err := requireArgID("bookmark", args[0])
			if err != nil {
				return err
			}
			current, err := env.client.GetBookmark(ctx, id)
			if err != nil {
				return err
			}
			in := current.Input()
			bookmarkInput.apply(cmd.Flags(), &in)
			return saveBookmark(ctx, cmd.OutOrStdout(), env.client, id, in)
		})
	},
}

var bookmarksRmCmd = &cobra.Command{
	Use:     "rm <bookmark-id>",
	Aliases: []string{"delete", "remove"},
	Short:   "Delete a monitor",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEnvironment(cmd, func(ctx context.Context, env *environment) error {
			id, err := requireArgID("bookmark", args[0])
			if err != nil {
				return err
			}
			b, err := env.client.GetBookmark(ctx, id)
			if err != nil {
				return err
			}
			ok, err := confirmAction(bookmarkRmYes, fmt.Sprintf("Delete monitor '%s'?", b.Name), "Its check history is deleted too. This cannot be undone")
			if err != nil || !ok {
				if err == nil {
					cmd.Println("Cancelled.")
				}
				return err
			}
			return deleteBookmark(ctx, cmd.OutOrStdout(), env.client, id, b.Name)
		})
	},
}

var bookmarksCheckCmd = &cobra.Command{
	Use:   "check <bookmark-id>",
	Short: "Run a check now",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEnvironment(cmd, func(ctx context.Context, env *environment) error {
			return checkBookmark(ctx, cmd.OutOrStdout(), env.client, args[0])
		})
	},
}

var bookmarksPrefetchCmd = &cobra.Command{
	Use:   "prefetch",
	Short: "Load every monitor's details and history",
	Long: `Load details and check history for every monitor the way the dashboard
does in the background: the first few at once, the rest in small batches.
Useful for timing the backend or warming its caches.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEnvironment(cmd, func(ctx context.Context, env *environment) error {
			opts := prefetch.Options{
				Immediate:  env.cfg.Prefetch.Immediate,
				ChunkSize:  env.cfg.Prefetch.ChunkSize,
				ChunkDelay: env.cfg.Prefetch.ChunkDelay,
				Logger:     logger.NewEnvLogger("[prefetch]"),
			}
			return prefetchBookmarks(ctx, cmd.OutOrStdout(), env.client, opts, env.cfg.Prefetch.HistoryLimit)
		})
	},
}

func init() {
	bookmarksShowCmd.Flags().IntVar(&bookmarkHistory, "history", 0, "number of recent checks to show (default prefetch.history_limit)")
	bookmarkInput.register(bookmarksAddCmd.Flags())
	_ = bookmarksAddCmd.MarkFlagRequired("url")
	bookmarkInput.register(bookmarksEditCmd.Flags())
	bookmarksRmCmd.Flags().BoolVarP(&bookmarkRmYes, "yes", "y", false, "skip the confirmation prompt")

	bookmarksCmd.AddCommand(bookmarksListCmd, bookmarksShowCmd, bookmarksAddCmd, bookmarksEditCmd,
		bookmarksRmCmd, bookmarksCheckCmd, bookmarksPrefetchCmd)
	rootCmd.AddCommand(bookmarksCmd)
}

func bookmarkStatus(b api.Bookmark) string {
	switch {
	case !b.Enabled:
		return "disabled"
	case b.Status == "":
		return "unknown"
	default:
		return strings.ToLower(b.Status)
	}
}

func formatResponse(ms float64) string {
	if ms <= 0 {
		return "-"
	}
	return fmt.Sprintf("%.0fms", ms)
}

func listBookmarks(ctx context.Context, w io.Writer, client *api.Client, now time.Time) error {
	bookmarks, err := client.ListBookmarks(ctx)
	if err != nil {
		return err
	}
	sort.SliceStable(bookmarks, func(i, j int) bool { return bookmarks[i].Name < bookmarks[j].Name })

	return printResult(w, bookmarks, func() error {
		rows := make([]ui.StatusTableRow, 0, len(bookmarks))
		for _, b := range bookmarks {
			checked := "never"
			if !b.LastCheck.IsZero() {
				checked = timefmt.Relative(b.LastCheck.Time, now)
			}
			rows = append(rows, ui.StatusTableRow{
				Status:  bookmarkStatus(b),
				Columns: []string{b.ID, b.Name, formatResponse(b.ResponseMS), checked, b.URL},
			})
		}
		fmt.Fprint(w, ui.RenderStatusTable(
			[]string{"ID", "NAME", "RESPONSE", "CHECKED", "URL"},
			[]int{10, 18, 10, 10, 40},
			rows, "No monitors yet. Add one with 'fleetwatch bookmarks add'."))
		return nil
	})
}

// bookmarkViewJSON is the --json shape of `bookmarks show`.
type bookmarkViewJSON struct {
	api.BookmarkDetails
	History []api.CheckResult `json:"history"`
}

func showBookmark(ctx context.Context, w io.Writer, client *api.Client, id string, historyLimit int, loc *time.Location) error {
	id, err := requireArgID("bookmark", id)
	if err != nil {
		return err
	}
	view, err := client.LoadBookmarkView(ctx, id, historyLimit)
	if err != nil {
		return err
	}

	return printResult(w, bookmarkViewJSON{BookmarkDetails: view.Details, History: view.History}, func() error {
		d := view.Details
		fmt.Fprintf(w, "%s %s\n", ui.StatusSymbol(bookmarkStatus(d.Bookmark)), ui.InfoStyle().Bold(true).Render(d.Name))
		field := func(label, value string) {
			fmt.Fprintf(w, "  %s %s\n", ui.MutedStyle().Render(fmt.Sprintf("%-10s", label)), value)
		}
		field("id", d.ID)
		field("url", d.URL)
		field("method", d.Method)
		field("interval", fmt.Sprintf("%ds", d.IntervalSeconds))
		if d.TimeoutSeconds > 0 {
			field("timeout", fmt.Sprintf("%ds", d.TimeoutSeconds))
		}
		if d.ExpectedStatus > 0 {
			field("expects", fmt.Sprint(d.ExpectedStatus))
		}
		field("uptime", fmt.Sprintf("%.2f%%", d.UptimePercent))

		if len(view.History) == 0 {
			fmt.Fprintln(w, ui.MutedStyle().Render("\nNo checks yet"))
			return nil
		}

		// History is newest first; the sparkline reads left to right.
		times := make([]float64, len(view.History))
		for i, r := range view.History {
			times[len(times)-1-i] = r.ResponseMS
		}
		fmt.Fprintf(w, "\n  %s %s\n\n", ui.MutedStyle().Render(fmt.Sprintf("%-10s", "response")), ui.RenderSparkline(times, 40))

		rows := make([]ui.StatusTableRow, 0, len(view.History))
		for _, r := range view.History {
			status := "down"
			if r.Up {
				status = "up"
			}
			code := "-"
			if r.StatusCode > 0 {
				code = fmt.Sprint(r.StatusCode)
			}
			rows = append(rows, ui.StatusTableRow{
				Status:  status,
				Columns: []string{timefmt.Format(r.CheckedAt.Time, loc, timefmt.LayoutFull), code, formatResponse(r.ResponseMS), r.Error},
			})
		}
		fmt.Fprint(w, ui.RenderStatusTable([]string{"CHECKED", "STATUS", "RESPONSE", "ERROR"}, []int{26, 8, 10, 30}, rows, ""))
		return nil
	})
}

// saveBookmark creates the monitor when id is empty and updates it otherwise.
func saveBookmark(ctx context.Context, w io.Writer, client *api.Client, id string, in api.BookmarkInput) error {
	in.Normalize()
	if err := in.Validate(); err != nil {
		return err
	}

	var (
		saved *api.BookmarkDetails
		err   error
		verb  = "Created"
	)
	if id == "" {
		saved, err = client.CreateBookmark(ctx, in)
	} else {
		saved, err = client.UpdateBookmark(ctx, id, in)
		verb = "Updated"
	}
	if err != nil {
		return err
	}

	return printResult(w, saved, func() error {
		fmt.Fprintf(w, "%s %s monitor %s (%s)\n", ui.SuccessStyle().Render(ui.SymbolSuccess), verb, saved.Name, saved.ID)
		return nil
	})
}

func deleteBookmark(ctx context.Context, w io.Writer, client *api.Client, id, name string) error {
	if err := client.DeleteBookmark(ctx, id); err != nil {
		return err
	}
	return printResult(w, map[string]string{"id": id, "deleted": "true"}, func() error {
		fmt.Fprintf(w, "%s Deleted monitor %s\n", ui.SuccessStyle().Render(ui.SymbolSuccess), name)
		return nil
	})
}

func checkBookmark(ctx context.Context, w io.Writer, client *api.Client, id string) error {
	id, err := requireArgID("bookmark", id)
	if err != nil {
		return err
	}
	res, err := client.CheckBookmark(ctx, id)
	if err != nil {
		return err
	}

	return printResult(w, res, func() error {
		if res.Up {
			fmt.Fprintf(w, "%s Up  %d in %s\n", ui.SuccessStyle().Render(ui.SymbolSuccess), res.StatusCode, formatResponse(res.ResponseMS))
			return nil
		}
		detail := res.Error
		if detail == "" && res.StatusCode > 0 {
			detail = fmt.Sprintf("status %d", res.StatusCode)
		}
		fmt.Fprintf(w, "%s Down  %s\n", ui.ErrorStyle().Render(ui.SymbolFail), detail)
		return nil
	})
}

// prefetchSummary is the --json shape of `bookmarks prefetch`.
type prefetchSummary struct {
	Total     int     `json:"total"`
	Fetched   int     `json:"fetched"`
	Skipped   int     `json:"skipped"`
	Failed    int     `json:"failed"`
	Cancelled bool    `json:"cancelled"`
	Seconds   float64 `json:"seconds"`
}

func prefetchBookmarks(ctx context.Context, w io.Writer, client *api.Client, opts prefetch.Options, historyLimit int) error {
	bookmarks, err := client.ListBookmarks(ctx)
	if err != nil {
		return err
	}
	ids := make([]string, len(bookmarks))
	for i, b := range bookmarks {
		ids[i] = b.ID
	}

	p := prefetch.New(func(ctx context.Context, id string) (*api.BookmarkView, error) {
		return client.LoadBookmarkView(ctx, id, historyLimit)
	}, opts)

	var spinner *ui.Spinner
	if isInteractive() {
		spinner = ui.NewSpinner(fmt.Sprintf("Prefetching %d monitors", len(ids)))
		spinner.Start()
	}

	start := time.Now()
	res := p.PrefetchAll(ctx, ids)
	summary := prefetchSummary{
		Total:     len(ids),
		Fetched:   res.Fetched,
		Skipped:   res.Skipped,
		Failed:    res.Failed,
		Cancelled: res.Cancelled,
		Seconds:   time.Since(start).Seconds(),
	}

	if spinner != nil {
		if res.Failed > 0 || res.Cancelled {
			spinner.Fail()
		} else {
			spinner.Success()
		}
	}

	return printResult(w, summary, func() error {
		fmt.Fprintf(w, "Loaded %d of %d monitors in %.1fs", p.Cache().Len(), len(ids), summary.Seconds)
		if res.Failed > 0 {
			fmt.Fprintf(w, ", %s", ui.ErrorStyle().Render(fmt.Sprintf("%d failed", res.Failed)))
		}
		if res.Cancelled {
			fmt.Fprint(w, ", "+ui.WarningStyle().Render("cancelled"))
		}
		fmt.Fprintln(w)
		return nil
	})
}
