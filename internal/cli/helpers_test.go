package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rileyhilliard/fleetwatch/internal/api"
	"github.com/rileyhilliard/fleetwatch/internal/config"
	"github.com/rileyhilliard/fleetwatch/internal/demo"
	"github.com/rileyhilliard/fleetwatch/internal/logger"
	"github.com/rileyhilliard/fleetwatch/internal/session"
	"github.com/stretchr/testify/require"
)

// backend is a demo server behind httptest with a client logged in as alice.
type backend struct {
	srv    *demo.Server
	url    string
	token  string
	sess   *session.Session
	client *api.Client
}

func startBackend(t *testing.T, opts demo.Options) *backend {
	t.Helper()
	if opts.Seed == 0 {
		opts.Seed = 7
	}
	if opts.Logger == nil {
		opts.Logger = logger.Noop()
	}
	srv := demo.New(context.Background(), opts)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		srv.Close()
		ts.Close()
	})

	token, err := srv.IssueToken("alice", time.Hour)
	require.NoError(t, err)
	sess, err := session.New(ts.URL, "", token)
	require.NoError(t, err)

	return &backend{
		srv:    srv,
		url:    ts.URL,
		token:  token,
		sess:   sess,
		client: api.NewClient(sess, api.Options{Timeout: 5 * time.Second, Logger: logger.Noop()}),
	}
}

// withMachineMode turns on --json for the rest of the test.
func withMachineMode(t *testing.T) {
	t.Helper()
	orig := machineMode
	machineMode = true
	t.Cleanup(func() { machineMode = orig })
}

func loadTestConfig(t *testing.T) *config.Config {
	t.Helper()
	return config.DefaultConfig()
}

// decodeEnvelope parses one JSON envelope and unmarshals its data into v.
func decodeEnvelope(t *testing.T, buf *bytes.Buffer, v interface{}) {
	t.Helper()
	var env struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &env), buf.String())
	require.True(t, env.Success, buf.String())
	if v != nil {
		require.NoError(t, json.Unmarshal(env.Data, v))
	}
}
