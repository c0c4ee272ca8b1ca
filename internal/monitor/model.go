package monitor

import (
	"context"
	"errors"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/rileyhilliard/fleetwatch/internal/api"
	"github.com/rileyhilliard/fleetwatch/internal/logger"
	"github.com/rileyhilliard/fleetwatch/internal/pager"
	"github.com/rileyhilliard/fleetwatch/internal/prefetch"
	"github.com/rileyhilliard/fleetwatch/internal/prefs"
	"github.com/rileyhilliard/fleetwatch/internal/stream"
)

// Backend is the slice of the REST API the dashboard uses. *api.Client
// satisfies it.
type Backend interface {
	ListAgents(ctx context.Context) ([]api.Agent, error)
	RestartAgent(ctx context.Context, id string) (string, error)
	ListProcesses(ctx context.Context, id string) ([]api.Process, error)
	QueryMetrics(ctx context.Context, q api.MetricsQuery) (*api.Page[api.MetricSample], error)
	ListBookmarks(ctx context.Context) ([]api.Bookmark, error)
	LoadBookmarkView(ctx context.Context, id string, historyLimit int) (*api.BookmarkView, error)
	CheckBookmark(ctx context.Context, id string) (*api.CheckResult, error)
	DeleteBookmark(ctx context.Context, id string) error
	QueryLogs(ctx context.Context, q api.LogQuery) (*api.Page[api.LogEntry], error)
}

// LayoutMode represents the responsive layout mode based on terminal size.
type LayoutMode int

const (
	// LayoutMinimal is for terminals < 80 columns: single column, no graphs in cards
	LayoutMinimal LayoutMode = iota
	// LayoutCompact is for terminals 80-120 columns
	LayoutCompact
	// LayoutStandard is for terminals 120-160 columns
	LayoutStandard
	// LayoutWide is for terminals 160+ columns
	LayoutWide
)

// Width breakpoints for layout modes
const (
	BreakpointCompact  = 80
	BreakpointStandard = 120
	BreakpointWide     = 160
)

// HeightMinimal is the smallest height that still shows the footer.
const HeightMinimal = 24

// Defaults used when Options leaves a field zero.
const (
	DefaultRefresh      = 5 * time.Second
	DefaultHistoryLimit = 50
	DefaultHistoryRange = time.Hour

	spinnerInterval = 150 * time.Millisecond
	toastDuration   = 4 * time.Second
	eventBuffer     = 256
)

// Options configures the dashboard.
type Options struct {
	Backend Backend
	Dialer  stream.Dialer

	// Stream configures the live metric client. OnEvent is owned by the
	// dashboard and overwritten.
	Stream stream.Options

	// Prefetch configures background loading of monitor details.
	Prefetch        prefetch.Options
	PrefetchEnabled bool

	// HistoryLimit is how many check results load with each monitor.
	HistoryLimit int

	// HistoryRange is how far back history mode reaches.
	HistoryRange time.Duration

	// Refresh is the polling interval for list views.
	Refresh time.Duration

	PageSize int

	Location *time.Location

	Warning  int
	Critical int

	// Prefs seed the starting tab and live mode. Toggling live mode writes
	// them back to PrefsPath when it is set.
	Prefs     prefs.Prefs
	PrefsPath string

	Logger logger.Logger
	Now    func() time.Time
}

// toast is a transient status line message.
type toast struct {
	text    string
	isError bool
	expires time.Time
}

// Model is the Bubble Tea model for the dashboard.
type Model struct {
	ctx     context.Context
	cancel  context.CancelFunc
	backend Backend
	log     logger.Logger
	now     func() time.Time

	loc          *time.Location
	warning      int
	critical     int
	refresh      time.Duration
	historyLimit int
	historyRange time.Duration
	prefs        prefs.Prefs
	prefsPath    string

	tab      Tab
	viewMode ViewMode
	showHelp bool
	quitting bool
	width    int
	height   int

	// confirm holds the pending destructive action key, e.g. "delete:bm-0003".
	confirm string
	toast   *toast

	// Agents tab
	agents       []api.Agent
	agentsErr    error
	agentsLoaded bool
	cards        cardHistory
	selected     int
	sortOrder    SortOrder
	lastUpdate   time.Time

	// Agent detail
	stream      *stream.Client
	events      chan stream.Event
	detailID    string
	live        bool
	processes   []api.Process
	history     *stream.Series
	historyErr  error
	historyBusy bool

	// Monitors tab
	monitors        *prefetch.Prefetcher[*api.BookmarkView]
	prefetchEnabled bool
	prefetchResult  *prefetch.Result
	bookmarks       []api.Bookmark
	bookmarksErr    error
	bookmarkSel     int
	bookmarkView    *api.BookmarkView
	bookmarkErr     error
	bookmarkBusy    bool

	// Logs tab
	logs     *pager.Pager[api.LogEntry]
	logSel   int
	logLevel int
	pageSize int

	spinnerFrame int

	detailViewport viewport.Model
	viewportReady  bool
}

// Messages
type (
	tickMsg        time.Time
	spinnerTickMsg time.Time

	streamEventMsg stream.Event

	agentsMsg struct {
		agents []api.Agent
		err    error
		time   time.Time
	}
	cardsMsg struct {
		samples []api.MetricSample
		err     error
	}
	processesMsg struct {
		agentID   string
		processes []api.Process
		err       error
	}
	historyMsg struct {
		agentID string
		samples []api.MetricSample
		err     error
	}
	restartMsg struct {
		name    string
		message string
		err     error
	}

	bookmarksMsg struct {
		bookmarks []api.Bookmark
		err       error
	}
	bookmarkViewMsg struct {
		id   string
		view *api.BookmarkView
		err  error
	}
	prefetchDoneMsg prefetch.Result
	checkMsg        struct {
		id     string
		result *api.CheckResult
		view   *api.BookmarkView
		err    error
	}
	deleteMsg struct {
		id   string
		name string
		err  error
	}

	logsMsg struct {
		pager *pager.Pager[api.LogEntry]
		added int
		err   error
	}

	prefsSavedMsg struct{ err error }
)

// NewModel creates the dashboard. Call Close when the program exits.
func NewModel(ctx context.Context, opts Options) Model {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithCancel(ctx)

	m := Model{
		ctx:             ctx,
		cancel:          cancel,
		backend:         opts.Backend,
		log:             logger.OrDefault(opts.Logger),
		now:             opts.Now,
		loc:             opts.Location,
		warning:         opts.Warning,
		critical:        opts.Critical,
		refresh:         opts.Refresh,
		historyLimit:    opts.HistoryLimit,
		historyRange:    opts.HistoryRange,
		prefs:           opts.Prefs,
		prefsPath:       opts.PrefsPath,
		tab:             ParseTab(opts.Prefs.Tab()),
		live:            opts.Prefs.Live(),
		prefetchEnabled: opts.PrefetchEnabled,
		pageSize:        opts.PageSize,
		cards:           cardHistory{},
		events:          make(chan stream.Event, eventBuffer),
	}
	if m.now == nil {
		m.now = time.Now
	}
	if m.loc == nil {
		m.loc = time.Local
	}
	if m.warning <= 0 {
		m.warning = WarningThreshold
	}
	if m.critical <= 0 {
		m.critical = CriticalThreshold
	}
	if m.refresh <= 0 {
		m.refresh = DefaultRefresh
	}
	if m.historyLimit <= 0 {
		m.historyLimit = DefaultHistoryLimit
	}
	if m.historyRange <= 0 {
		m.historyRange = DefaultHistoryRange
	}
	if m.pageSize <= 0 {
		m.pageSize = api.DefaultPageSize
	}

	streamOpts := opts.Stream
	if streamOpts.Logger == nil {
		streamOpts.Logger = m.log
	}
	events := m.events
	streamOpts.OnEvent = func(e stream.Event) {
		// Never block the reader goroutine. A dropped event only delays a
		// redraw; the view renders from the client's snapshot.
		select {
		case events <- e:
		default:
		}
	}
	m.stream = stream.NewClient(opts.Dialer, streamOpts)

	prefetchOpts := opts.Prefetch
	if prefetchOpts.Logger == nil {
		prefetchOpts.Logger = m.log
	}
	backend, limit := m.backend, m.historyLimit
	m.monitors = prefetch.New(func(ctx context.Context, id string) (*api.BookmarkView, error) {
		return backend.LoadBookmarkView(ctx, id, limit)
	}, prefetchOpts)

	m.logs = m.newLogPager()
	return m
}

// Init starts the timers, the stream listener and the first load for the
// starting tab.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.tickCmd(),
		m.spinnerTickCmd(),
		m.waitEventCmd(),
		m.refreshAgentsCmd(),
		m.enterTab(),
	)
}

// Update handles messages and updates the model state.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		handled, cmd := m.HandleKeyMsg(msg)
		if handled {
			m.syncDetailViewport()
			return m, cmd
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

		// The detail view adds its own title row and a blank line.
		headerHeight := headerRows + 2
		viewportHeight := max(m.height-headerHeight-footerRows, 1)
		if !m.viewportReady {
			m.detailViewport = viewport.New(m.width, viewportHeight)
			m.detailViewport.YPosition = headerHeight
			m.viewportReady = true
		} else {
			m.detailViewport.Width = m.width
			m.detailViewport.Height = viewportHeight
		}
		m.syncDetailViewport()

	case tickMsg:
		return m, tea.Batch(m.tickCmd(), m.refreshCmd())

	case spinnerTickMsg:
		m.spinnerFrame = (m.spinnerFrame + 1) % 10000
		if m.toast != nil && m.now().After(m.toast.expires) {
			m.toast = nil
		}
		return m, m.spinnerTickCmd()

	case streamEventMsg:
		m.handleStreamEvent(stream.Event(msg))
		m.syncDetailViewport()
		return m, m.waitEventCmd()

	case agentsMsg:
		m.handleAgents(msg)
	case cardsMsg:
		if msg.err == nil {
			m.cards = groupSamples(msg.samples)
			m.sortAgents()
		}
	case processesMsg:
		if msg.agentID == m.detailID {
			if msg.err != nil {
				m.showError(msg.err)
			} else {
				m.processes = msg.processes
			}
			m.syncDetailViewport()
		}
	case historyMsg:
		m.handleHistory(msg)
		m.syncDetailViewport()
	case restartMsg:
		if msg.err != nil {
			m.showError(msg.err)
		} else {
			m.showInfo(msg.message)
		}

	case bookmarksMsg:
		return m, m.handleBookmarks(msg)
	case bookmarkViewMsg:
		m.handleBookmarkView(msg)
	case prefetchDoneMsg:
		res := prefetch.Result(msg)
		m.prefetchResult = &res
	case checkMsg:
		return m, m.handleCheck(msg)
	case deleteMsg:
		return m, m.handleDelete(msg)

	case logsMsg:
		if msg.pager == m.logs && msg.err != nil {
			m.showError(msg.err)
		}

	case prefsSavedMsg:
		if msg.err != nil {
			m.showError(msg.err)
		}
	}

	return m, nil
}

// View renders the dashboard.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if m.showHelp {
		return m.renderHelpOverlay()
	}
	return m.renderDashboard()
}

// Close stops the stream and any prefetch run. Safe to call more than once.
func (m *Model) Close() {
	m.monitors.Cancel()
	m.stream.Disconnect()
	m.cancel()
}

// Tab returns the active tab.
func (m Model) Tab() Tab { return m.tab }

// switchTab leaves the current tab and enters t.
func (m *Model) switchTab(t Tab) tea.Cmd {
	if t == m.tab {
		return nil
	}
	if m.tab == TabMonitors {
		// Leaving the collection view stops background loading.
		m.monitors.Cancel()
	}
	m.tab = t
	m.confirm = ""
	return m.enterTab()
}

func (m *Model) enterTab() tea.Cmd {
	switch m.tab {
	case TabMonitors:
		return m.loadBookmarksCmd()
	case TabLogs:
		if m.logs.Len() == 0 && m.logs.HasMore() {
			return m.loadLogsCmd()
		}
	}
	return nil
}

func (m Model) tickCmd() tea.Cmd {
	return tea.Tick(m.refresh, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m Model) spinnerTickCmd() tea.Cmd {
	return tea.Tick(spinnerInterval, func(t time.Time) tea.Msg {
		return spinnerTickMsg(t)
	})
}

// waitEventCmd blocks for the next stream event. Update re-issues it after
// every event, the same way the collector results were polled.
func (m Model) waitEventCmd() tea.Cmd {
	events, ctx := m.events, m.ctx
	return func() tea.Msg {
		select {
		case e := <-events:
			return streamEventMsg(e)
		case <-ctx.Done():
			return nil
		}
	}
}

// refreshCmd polls whatever the active view shows.
func (m Model) refreshCmd() tea.Cmd {
	switch {
	case m.tab == TabMonitors:
		return m.loadBookmarksCmd()
	case m.tab == TabAgents && m.viewMode == ViewList:
		return m.refreshAgentsCmd()
	case m.tab == TabAgents && m.viewMode == ViewDetail:
		return m.loadProcessesCmd(m.detailID)
	}
	return nil
}

func (m *Model) showInfo(text string) {
	m.toast = &toast{text: text, expires: m.now().Add(toastDuration)}
}

func (m *Model) showError(err error) {
	if api.IsCanceled(err) {
		return
	}
	m.log.Warn("%v", err)
	m.toast = &toast{text: errorLine(err), isError: true, expires: m.now().Add(toastDuration)}
}

// LayoutMode returns the current layout mode based on terminal width.
func (m Model) LayoutMode() LayoutMode {
	switch {
	case m.width >= BreakpointWide:
		return LayoutWide
	case m.width >= BreakpointStandard:
		return LayoutStandard
	case m.width >= BreakpointCompact:
		return LayoutCompact
	default:
		return LayoutMinimal
	}
}

// ShowFooter returns true if the terminal is tall enough to show the footer.
func (m Model) ShowFooter() bool {
	return m.height == 0 || m.height >= HeightMinimal
}

// Run starts the dashboard full screen and blocks until the user quits.
func Run(ctx context.Context, opts Options) error {
	m := NewModel(ctx, opts)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	final, err := p.Run()
	if fm, ok := final.(Model); ok {
		fm.Close()
	} else {
		m.Close()
	}
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
