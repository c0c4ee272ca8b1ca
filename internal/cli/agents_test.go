package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rileyhilliard/fleetwatch/internal/api"
	"github.com/rileyhilliard/fleetwatch/internal/demo"
	"github.com/rileyhilliard/fleetwatch/internal/timefmt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListAgents(t *testing.T) {
	b := startBackend(t, demo.Options{})
	ctx := context.Background()

	t.Run("human", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, listAgents(ctx, &buf, b.client, time.Now()))
		out := buf.String()
		for _, id := range []string{"web-01", "web-02", "db-01", "gpu-01", "build-02"} {
			assert.Contains(t, out, id)
		}
		// Online agents sort ahead of offline ones.
		assert.Less(t, strings.Index(out, "web-01"), strings.Index(out, "build-02"))
	})

	t.Run("json", func(t *testing.T) {
		withMachineMode(t)
		var buf bytes.Buffer
		require.NoError(t, listAgents(ctx, &buf, b.client, time.Now()))

		var agents []api.Agent
		decodeEnvelope(t, &buf, &agents)
		require.Len(t, agents, 5)
		assert.Equal(t, "build-02", agents[len(agents)-1].ID)
		assert.False(t, agents[len(agents)-1].Online())
	})
}

func TestLastSeen(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, "now", lastSeen(api.Agent{Status: "online"}, now))
	assert.Equal(t, "never", lastSeen(api.Agent{Status: "offline"}, now))
	assert.Equal(t, timefmt.Relative(now.Add(-2*time.Hour), now),
		lastSeen(api.Agent{Status: "offline", LastSeen: timefmt.Time{Time: now.Add(-2 * time.Hour)}}, now))
}

func TestShowAgent(t *testing.T) {
	b := startBackend(t, demo.Options{})
	ctx := context.Background()

	t.Run("human", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, showAgent(ctx, &buf, b.client, "db-01", time.UTC, time.Now()))
		assert.Contains(t, buf.String(), "db-01")
		assert.Contains(t, buf.String(), "online")
	})

	t.Run("json", func(t *testing.T) {
		withMachineMode(t)
		var buf bytes.Buffer
		require.NoError(t, showAgent(ctx, &buf, b.client, "gpu-01", time.UTC, time.Now()))
		var agent api.Agent
		decodeEnvelope(t, &buf, &agent)
		assert.Equal(t, "gpu-01", agent.ID)
	})

	t.Run("unknown agent", func(t *testing.T) {
		var buf bytes.Buffer
		err := showAgent(ctx, &buf, b.client, "nope", time.UTC, time.Now())
		require.Error(t, err)
		assert.True(t, api.IsNotFound(err))
	})
}

func TestRestartAgent(t *testing.T) {
	b := startBackend(t, demo.Options{})
	ctx := context.Background()

	var buf bytes.Buffer
	require.NoError(t, restartAgent(ctx, &buf, b.client, "web-01"))
	assert.Contains(t, buf.String(), "restart scheduled for")

	buf.Reset()
	err := restartAgent(ctx, &buf, b.client, "build-02")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "agent is offline")
}

func TestListProcesses(t *testing.T) {
	b := startBackend(t, demo.Options{})
	withMachineMode(t)

	var buf bytes.Buffer
	require.NoError(t, listProcesses(context.Background(), &buf, b.client, "web-01", 3))

	var procs []api.Process
	decodeEnvelope(t, &buf, &procs)
	require.NotEmpty(t, procs)
	assert.LessOrEqual(t, len(procs), 3)
	for i := 1; i < len(procs); i++ {
		assert.GreaterOrEqual(t, procs[i-1].CPUPercent, procs[i].CPUPercent, "sorted by cpu")
	}
}

func TestAgentHistory(t *testing.T) {
	b := startBackend(t, demo.Options{})
	ctx := context.Background()

	t.Run("summary", func(t *testing.T) {
		withMachineMode(t)
		var buf bytes.Buffer
		require.NoError(t, agentHistory(ctx, &buf, b.client, "web-01", historyOptions{Since: 2 * time.Hour, Limit: 500}))

		var summary historySummary
		decodeEnvelope(t, &buf, &summary)
		assert.Equal(t, "web-01", summary.AgentID)
		assert.GreaterOrEqual(t, summary.Samples, 100)
		require.NotEmpty(t, summary.Metrics)
		assert.Equal(t, "cpu", summary.Metrics[0].Metric)
		st := summary.Metrics[0].Stats
		assert.LessOrEqual(t, st.Min, st.Avg)
		assert.LessOrEqual(t, st.Avg, st.Max)
	})

	t.Run("single metric to svg file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "ram.svg")
		var buf bytes.Buffer
		require.NoError(t, agentHistory(ctx, &buf, b.client, "web-01", historyOptions{
			Since:  2 * time.Hour,
			Limit:  500,
			Metric: "mem",
			SVG:    path,
		}))
		assert.Contains(t, buf.String(), "Wrote ram sparkline")

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(string(data), "<svg"))
	})

	t.Run("svg to stdout", func(t *testing.T) {
		var buf, stdout bytes.Buffer
		require.NoError(t, agentHistory(ctx, &buf, b.client, "web-01", historyOptions{
			Since:  2 * time.Hour,
			SVG:    "-",
			Stdout: &stdout,
		}))
		assert.Empty(t, buf.String())
		assert.Contains(t, stdout.String(), "<svg")
	})

	t.Run("empty window", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, agentHistory(ctx, &buf, b.client, "web-01", historyOptions{
			Since: time.Hour,
			Now:   time.Now().Add(-48 * time.Hour),
		}))
		assert.Contains(t, buf.String(), "No readings in range")
	})

	t.Run("bad metric", func(t *testing.T) {
		var buf bytes.Buffer
		err := agentHistory(ctx, &buf, b.client, "web-01", historyOptions{Since: time.Hour, Metric: "humidity"})
		assert.Error(t, err)
	})

	t.Run("non-positive since", func(t *testing.T) {
		var buf bytes.Buffer
		err := agentHistory(ctx, &buf, b.client, "web-01", historyOptions{})
		assert.Error(t, err)
	})
}

func TestPadSparkline(t *testing.T) {
	assert.Equal(t, "   abc", padSparkline("abc", 6))
	assert.Equal(t, "abcdef", padSparkline("abcdef", 4))
}
