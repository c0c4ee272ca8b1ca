package monitor

import (
	"testing"

	"github.com/rileyhilliard/fleetwatch/internal/prefs"
	"github.com/stretchr/testify/assert"
)

func TestParseTab(t *testing.T) {
	tests := []struct {
		in   string
		want Tab
	}{
		{"", TabAgents},
		{prefs.TabAgents, TabAgents},
		{prefs.TabMonitors, TabMonitors},
		{" Logs ", TabLogs},
		{"bogus", TabAgents},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseTab(tt.in))
		})
	}
}

func TestTabCycle(t *testing.T) {
	assert.Equal(t, TabMonitors, TabAgents.Next())
	assert.Equal(t, TabAgents, TabLogs.Next())
	assert.Equal(t, TabLogs, TabAgents.Prev())

	for tab := Tab(0); tab < numTabs; tab++ {
		assert.Equal(t, tab, ParseTab(tab.String()), "prefs name round-trips")
	}
}

func TestSortOrderCycle(t *testing.T) {
	order := SortByStatus
	var seen []string
	for i := 0; i < int(numSortOrders); i++ {
		seen = append(seen, order.String())
		order = order.Next()
	}
	assert.Equal(t, []string{"status", "name", "CPU", "RAM"}, seen)
	assert.Equal(t, SortByStatus, order)
}

func TestHelpTogglesAndEscCloses(t *testing.T) {
	m := newTestModel(t, newFakeBackend(), &fakeDialer{})

	m = update(t, m, key("?"))
	assert.True(t, m.showHelp)
	m = update(t, m, key("esc"))
	assert.False(t, m.showHelp)
}

func TestTabKeysSwitch(t *testing.T) {
	m := newTestModel(t, newFakeBackend(), &fakeDialer{})

	m = update(t, m, key("tab"))
	assert.Equal(t, TabMonitors, m.Tab())
	m = update(t, m, key("3"))
	assert.Equal(t, TabLogs, m.Tab())
	m = update(t, m, key("1"))
	assert.Equal(t, TabAgents, m.Tab())
}
