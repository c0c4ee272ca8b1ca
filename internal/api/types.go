package api

import (
	"strings"

	"github.com/rileyhilliard/fleetwatch/internal/timefmt"
)

// Agent is a monitored machine reporting to the backend.
type Agent struct {
	ID       string       `json:"id"`
	Name     string       `json:"name"`
	Hostname string       `json:"hostname"`
	Status   string       `json:"status"`
	Platform string       `json:"platform,omitempty"`
	Version  string       `json:"version,omitempty"`
	IP       string       `json:"ip_address,omitempty"`
	LastSeen timefmt.Time `json:"last_seen"`
	Tags     []string     `json:"tags,omitempty"`
}

// Online reports whether the backend considers the agent connected.
func (a Agent) Online() bool {
	return strings.EqualFold(a.Status, "online")
}

// DisplayName prefers the configured name over the hostname over the id.
func (a Agent) DisplayName() string {
	switch {
	case a.Name != "":
		return a.Name
	case a.Hostname != "":
		return a.Hostname
	default:
		return a.ID
	}
}

// MetricSample is one point-in-time measurement from an agent.
type MetricSample struct {
	AgentID   string       `json:"agent_id,omitempty"`
	Timestamp timefmt.Time `json:"timestamp"`

	CPUPercent float64  `json:"cpu_percent"`
	RAMPercent float64  `json:"ram_percent"`
	GPUPercent *float64 `json:"gpu_percent,omitempty"` // nil if agent has no GPU

	CPUTemp *float64 `json:"cpu_temp,omitempty"`
	GPUTemp *float64 `json:"gpu_temp,omitempty"`

	NetInBytesPerSec     float64 `json:"net_in_bps"`
	NetOutBytesPerSec    float64 `json:"net_out_bps"`
	DiskReadBytesPerSec  float64 `json:"disk_read_bps"`
	DiskWriteBytesPerSec float64 `json:"disk_write_bps"`

	Disks []DiskUsage `json:"disks,omitempty"`
}

// DiskUsage is the fill level of one mounted filesystem.
type DiskUsage struct {
	Mount      string  `json:"mount"`
	Device     string  `json:"device,omitempty"`
	TotalBytes uint64  `json:"total_bytes"`
	UsedBytes  uint64  `json:"used_bytes"`
	Percent    float64 `json:"percent"`
}

// Process is one entry of an agent's process table.
type Process struct {
	PID        int     `json:"pid"`
	Name       string  `json:"name"`
	User       string  `json:"user,omitempty"`
	CPUPercent float64 `json:"cpu_percent"`
	MemPercent float64 `json:"mem_percent"`
	Command    string  `json:"command,omitempty"`
}

// Bookmark is an uptime monitor as it appears in the list view.
type Bookmark struct {
	ID         string       `json:"id"`
	Name       string       `json:"name"`
	URL        string       `json:"url"`
	Status     string       `json:"status"`
	Enabled    bool         `json:"enabled"`
	LastCheck  timefmt.Time `json:"last_check"`
	ResponseMS float64      `json:"response_time_ms"`
}

// Up reports whether the last check succeeded.
func (b Bookmark) Up() bool {
	return strings.EqualFold(b.Status, "up")
}

// BookmarkDetails is the full monitor definition.
type BookmarkDetails struct {
	Bookmark
	Method          string       `json:"method"`
	IntervalSeconds int          `json:"interval_seconds"`
	TimeoutSeconds  int          `json:"timeout_seconds"`
	ExpectedStatus  int          `json:"expected_status"`
	UptimePercent   float64      `json:"uptime_percent"`
	CreatedAt       timefmt.Time `json:"created_at"`
}

// Input converts the details back into an editable input.
func (d BookmarkDetails) Input() BookmarkInput {
	return BookmarkInput{
		Name:            d.Name,
		URL:             d.URL,
		Method:          d.Method,
		IntervalSeconds: d.IntervalSeconds,
		TimeoutSeconds:  d.TimeoutSeconds,
		ExpectedStatus:  d.ExpectedStatus,
		Enabled:         d.Enabled,
	}
}

// CheckResult is the outcome of a single monitor check.
type CheckResult struct {
	ID         string       `json:"id,omitempty"`
	BookmarkID string       `json:"bookmark_id,omitempty"`
	CheckedAt  timefmt.Time `json:"checked_at"`
	Up         bool         `json:"is_up"`
	StatusCode int          `json:"status_code"`
	ResponseMS float64      `json:"response_time_ms"`
	Error      string       `json:"error,omitempty"`
}

// BookmarkView is what the monitor detail pane shows: the definition plus
// recent check history. It is the unit the prefetch cache stores.
type BookmarkView struct {
	Details BookmarkDetails
	History []CheckResult
}

// AlertRule fires when Metric crosses Threshold for DurationSeconds.
type AlertRule struct {
	ID              string       `json:"id"`
	Name            string       `json:"name"`
	AgentID         string       `json:"agent_id,omitempty"` // empty applies to every agent
	Metric          string       `json:"metric"`
	Operator        string       `json:"operator"`
	Threshold       float64      `json:"threshold"`
	DurationSeconds int          `json:"duration_seconds"`
	Enabled         bool         `json:"enabled"`
	WebhookURL      string       `json:"webhook_url,omitempty"`
	LastFired       timefmt.Time `json:"last_fired"`
}

// Input converts the rule back into an editable input.
func (r AlertRule) Input() AlertRuleInput {
	return AlertRuleInput{
		Name:            r.Name,
		AgentID:         r.AgentID,
		Metric:          r.Metric,
		Operator:        r.Operator,
		Threshold:       r.Threshold,
		DurationSeconds: r.DurationSeconds,
		Enabled:         r.Enabled,
		WebhookURL:      r.WebhookURL,
	}
}

// Condition renders the rule as "cpu > 90 for 60s".
func (r AlertRule) Condition() string {
	var b strings.Builder
	b.WriteString(r.Metric)
	if r.Operator != "" {
		b.WriteString(" " + r.Operator + " " + trimFloat(r.Threshold))
	}
	if r.DurationSeconds > 0 {
		b.WriteString(" for " + itoa(r.DurationSeconds) + "s")
	}
	return b.String()
}

// LogEntry is one line from an agent's log stream.
type LogEntry struct {
	ID        string       `json:"id,omitempty"`
	AgentID   string       `json:"agent_id"`
	Timestamp timefmt.Time `json:"timestamp"`
	Level     string       `json:"level"`
	Source    string       `json:"source,omitempty"`
	Message   string       `json:"message"`
}

// Page is one slice of a paginated listing.
type Page[T any] struct {
	Items   []T
	Total   int
	HasMore bool
	Offset  int
}
