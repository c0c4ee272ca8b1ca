package api

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// LogQuery filters agent logs.
type LogQuery struct {
	AgentIDs []string
	Levels   []string
	Search   string
	Start    time.Time
	End      time.Time
	Limit    int
	Offset   int
}

func (q LogQuery) values(defaultLimit int) url.Values {
	v := url.Values{}
	if ids := joinIDs(q.AgentIDs); ids != "" {
		v.Set("agent_ids", ids)
	}
	if levels := joinIDs(q.Levels); levels != "" {
		v.Set("levels", strings.ToLower(levels))
	}
	if s := strings.TrimSpace(q.Search); s != "" {
		v.Set("search", s)
	}
	if !q.Start.IsZero() {
		v.Set("start_time", formatBound(q.Start))
	}
	if !q.End.IsZero() {
		v.Set("end_time", formatBound(q.End))
	}
	limit := q.Limit
	if limit <= 0 {
		limit = defaultLimit
	}
	v.Set("limit", strconv.Itoa(limit))
	if q.Offset > 0 {
		v.Set("offset", strconv.Itoa(q.Offset))
	}
	return v
}

// QueryLogs returns one page of log entries, newest first.
func (c *Client) QueryLogs(ctx context.Context, q LogQuery) (*Page[LogEntry], error) {
	data, err := c.do(ctx, http.MethodGet, "/api/logs", q.values(c.pageSize), nil)
	if err != nil {
		return nil, err
	}
	return decodePage[LogEntry](data, "logs", q.Offset)
}
