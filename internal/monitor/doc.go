// Package monitor implements the interactive fleet dashboard.
//
// The dashboard has three tabs: agents, uptime monitors and logs. It talks to
// the backend through the Backend interface, which *api.Client satisfies,
// and streams live metrics for one agent at a time through a stream.Client.
//
// # Architecture
//
// The package uses the Bubble Tea framework, which follows The Elm Architecture
// (Model-Update-View pattern):
//
//   - Model: Holds application state (agents, monitors, logs, selection, layout mode)
//   - Update: Processes messages (keystrokes, ticks, API replies, stream events)
//   - View: Renders the current state to a string for display
//
// All backend calls run inside tea.Cmds and report back as messages. The
// stream client delivers events on its own goroutine; they are pushed onto a
// buffered channel that waitEventCmd drains one message at a time.
//
// # Tabs
//
//	Agents    - Card grid with recent CPU/RAM graphs. Enter opens a live view
//	            that connects the stream; Esc disconnects it. l switches
//	            between the live stream and stored history.
//	Monitors  - Monitor list with a detail pane. Entering the tab prefetches
//	            every monitor's detail in the background; leaving cancels it.
//	Logs      - Paginated log listing that loads the next page as the cursor
//	            nears the end.
//
// # Layout Modes
//
// The dashboard adapts to terminal width with four layout modes:
//
//	LayoutMinimal  (<80 cols)  - Metrics only, no graphs
//	LayoutCompact  (80-120)    - Single-row graphs
//	LayoutStandard (120-160)   - Full cards
//	LayoutWide     (160+)      - Full cards, more per row
//
// Destructive keys (x restart, d delete) need a second press to confirm.
package monitor
