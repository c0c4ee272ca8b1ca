package cli

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/rileyhilliard/fleetwatch/internal/api"
	"github.com/rileyhilliard/fleetwatch/internal/demo"
	"github.com/rileyhilliard/fleetwatch/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func alertByName(t *testing.T, client *api.Client, name string) api.AlertRule {
	t.Helper()
	rules, err := client.ListAlerts(context.Background())
	require.NoError(t, err)
	for _, r := range rules {
		if r.Name == name {
			return r
		}
	}
	t.Fatalf("no alert named %q", name)
	return api.AlertRule{}
}

func TestListAlerts(t *testing.T) {
	b := startBackend(t, demo.Options{Bookmarks: 1})

	var buf bytes.Buffer
	require.NoError(t, listAlerts(context.Background(), &buf, b.client, time.Now()))
	out := buf.String()
	assert.Contains(t, out, "High CPU")
	assert.Contains(t, out, "DB memory")
	assert.Contains(t, out, "Agent offline")
}

func TestAddAndDeleteAlert(t *testing.T) {
	b := startBackend(t, demo.Options{Bookmarks: 1})
	ctx := context.Background()
	withMachineMode(t)

	var buf bytes.Buffer
	require.NoError(t, addAlert(ctx, &buf, b.client, api.AlertRuleInput{
		Name:            "  Hot GPU ",
		AgentID:         "gpu-01",
		Metric:          "GPU_TEMP",
		Operator:        ">",
		Threshold:       85,
		DurationSeconds: 30,
		Enabled:         true,
	}))
	var rule api.AlertRule
	decodeEnvelope(t, &buf, &rule)
	assert.Equal(t, "Hot GPU", rule.Name)
	assert.Equal(t, "gpu_temp", rule.Metric)

	buf.Reset()
	require.NoError(t, deleteAlert(ctx, &buf, b.client, rule))
	_, err := findAlert(ctx, b.client, rule.ID)
	assert.True(t, errors.IsCode(err, errors.ErrValidation))
}

func TestAddAlertRejectsBadInput(t *testing.T) {
	b := startBackend(t, demo.Options{Bookmarks: 1})
	var buf bytes.Buffer
	err := addAlert(context.Background(), &buf, b.client, api.AlertRuleInput{Name: "x", Metric: "humidity", Operator: ">"})
	assert.Error(t, err)
}

func TestSetAlertEnabled(t *testing.T) {
	b := startBackend(t, demo.Options{Bookmarks: 1})
	ctx := context.Background()

	offline := alertByName(t, b.client, "Agent offline")
	require.False(t, offline.Enabled)

	var buf bytes.Buffer
	require.NoError(t, setAlertEnabled(ctx, &buf, b.client, offline.ID, true))
	assert.Contains(t, buf.String(), "Enabled alert Agent offline")
	assert.True(t, alertByName(t, b.client, "Agent offline").Enabled)

	buf.Reset()
	require.NoError(t, setAlertEnabled(ctx, &buf, b.client, offline.ID, true), "enabling twice is a no-op")

	buf.Reset()
	require.NoError(t, setAlertEnabled(ctx, &buf, b.client, offline.ID, false))
	assert.False(t, alertByName(t, b.client, "Agent offline").Enabled)
}

func TestFindAlertUnknown(t *testing.T) {
	b := startBackend(t, demo.Options{Bookmarks: 1})
	_, err := findAlert(context.Background(), b.client, "alert-9999")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Alert 'alert-9999' not found")
}
