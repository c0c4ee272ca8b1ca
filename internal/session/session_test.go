package session

import (
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rileyhilliard/fleetwatch/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signedToken(t *testing.T, c claims) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return tok
}

func TestNew_JWTClaims(t *testing.T) {
	exp := time.Date(2030, 1, 2, 3, 4, 5, 0, time.UTC)
	tok := signedToken(t, claims{
		Name: "Ada",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-42",
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	})

	s, err := New("https://fleet.example.com/", "", tok)
	require.NoError(t, err)

	assert.Equal(t, "Ada", s.User)
	assert.Equal(t, "user-42", s.Subject)
	assert.True(t, exp.Equal(s.ExpiresAt))
	assert.False(t, s.Expired(exp.Add(-time.Minute)))
	assert.True(t, s.Expired(exp.Add(time.Minute)))
	assert.Equal(t, "Ada@fleet.example.com", s.Label())
}

func TestNew_UsernameFallback(t *testing.T) {
	tok := signedToken(t, claims{
		Username: "ops",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject: "7",
		},
	})

	s, err := New("http://localhost:8080", "", tok)
	require.NoError(t, err)
	assert.Equal(t, "ops", s.User)
	assert.True(t, s.ExpiresAt.IsZero())
	assert.False(t, s.Expired(time.Now()))
}

func TestNew_OpaqueToken(t *testing.T) {
	s, err := New("http://localhost:8080", "", " static-api-key ")
	require.NoError(t, err)

	assert.Equal(t, "static-api-key", s.Token)
	assert.Empty(t, s.User)
	assert.Equal(t, "localhost:8080", s.Label())
}

func TestNew_InvalidURL(t *testing.T) {
	for _, raw := range []string{"", "localhost", "http://"} {
		_, err := New(raw, "", "")
		require.Error(t, err, raw)
		assert.True(t, errors.IsCode(err, errors.ErrConfig))
	}

	_, err := New("http://ok:1", "ws://", "")
	assert.Error(t, err)
}

func TestAuthorize(t *testing.T) {
	s, err := New("http://localhost:8080", "", "tok")
	require.NoError(t, err)

	req, _ := http.NewRequest(http.MethodGet, "http://localhost:8080/api/agents", nil)
	s.Authorize(req)
	assert.Equal(t, "Bearer tok", req.Header.Get("Authorization"))
	assert.Equal(t, "Bearer tok", s.Header().Get("Authorization"))

	anon, err := New("http://localhost:8080", "", "")
	require.NoError(t, err)
	req, _ = http.NewRequest(http.MethodGet, "http://localhost:8080/api/agents", nil)
	anon.Authorize(req)
	assert.Empty(t, req.Header.Get("Authorization"))
	assert.Empty(t, anon.Header())
}

func TestEndpoint(t *testing.T) {
	s, err := New("https://fleet.example.com/monitor/", "", "")
	require.NoError(t, err)

	assert.Equal(t, "https://fleet.example.com/monitor/api/agents", s.Endpoint("/api/agents", nil))

	q := url.Values{}
	q.Set("limit", "10")
	assert.Equal(t, "https://fleet.example.com/monitor/api/logs?limit=10", s.Endpoint("api/logs", q))
}

func TestStreamEndpoint(t *testing.T) {
	tests := []struct {
		name   string
		server string
		stream string
		want   string
	}{
		{"http becomes ws", "http://localhost:8080", "", "ws://localhost:8080/ws/agents/a1/metrics"},
		{"https becomes wss", "https://fleet.example.com", "", "wss://fleet.example.com/ws/agents/a1/metrics"},
		{"override", "https://fleet.example.com", "wss://stream.example.com/live", "wss://stream.example.com/live/ws/agents/a1/metrics"},
		{"http override", "https://fleet.example.com", "http://10.0.0.2:9000", "ws://10.0.0.2:9000/ws/agents/a1/metrics"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := New(tt.server, tt.stream, "")
			require.NoError(t, err)
			assert.Equal(t, tt.want, s.StreamEndpoint("/ws/agents/a1/metrics"))
		})
	}
}

func TestEndpoint_EscapedID(t *testing.T) {
	s, err := New("http://localhost:8080", "", "")
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:8080/api/agents/a%2F1/restart", s.Endpoint("/api/agents/a%2F1/restart", nil))
	assert.Equal(t, "ws://localhost:8080/ws/agents/a%2F1/metrics", s.StreamEndpoint("/ws/agents/a%2F1/metrics"))
}
