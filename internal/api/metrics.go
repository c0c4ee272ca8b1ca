package api

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// MetricsQuery selects historical samples.
type MetricsQuery struct {
	AgentIDs []string
	Start    time.Time
	End      time.Time
	Limit    int
	Offset   int
}

func (q MetricsQuery) values(defaultLimit int) url.Values {
	v := url.Values{}
	if ids := joinIDs(q.AgentIDs); ids != "" {
		v.Set("agent_ids", ids)
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

// QueryMetrics returns one page of historical samples.
func (c *Client) QueryMetrics(ctx context.Context, q MetricsQuery) (*Page[MetricSample], error) {
	data, err := c.do(ctx, http.MethodGet, "/api/metrics", q.values(c.pageSize), nil)
	if err != nil {
		return nil, err
	}
	return decodePage[MetricSample](data, "metrics", q.Offset)
}
