// Package session carries the identity fleetwatch talks to the backend with.
//
// A Session is an explicit value handed to the API client, the stream dialer
// and the dashboard. There is no package-level "current user".
package session

import (
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rileyhilliard/fleetwatch/internal/errors"
)

// Session is a backend base URL plus the bearer token used against it.
type Session struct {
	Server *url.URL
	Stream *url.URL
	Token  string

	// Fields below are read from the token when it is a JWT. They are for
	// display only; the backend is the one that verifies the signature.
	User      string
	Subject   string
	ExpiresAt time.Time
}

// claims is the subset of the backend's JWT we care about.
type claims struct {
	Name     string `json:"name"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// New builds a session for serverURL. streamURL overrides the WebSocket base
// and may be empty, in which case it's derived from serverURL.
func New(serverURL, streamURL, token string) (*Session, error) {
	server, err := parseBase(serverURL)
	if err != nil {
		return nil, err
	}

	s := &Session{
		Server: server,
		Token:  strings.TrimSpace(token),
	}

	if streamURL != "" {
		stream, err := parseBase(streamURL)
		if err != nil {
			return nil, err
		}
		s.Stream = stream
	}

	s.readClaims()
	return s, nil
}

func parseBase(raw string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimRight(strings.TrimSpace(raw), "/"))
	if err != nil || u.Host == "" {
		return nil, errors.New(errors.ErrConfig,
			"Invalid server URL: "+raw,
			"Use a full URL like https://fleet.example.com")
	}
	return u, nil
}

// readClaims fills User/Subject/ExpiresAt from a JWT token. Opaque tokens
// leave them empty.
func (s *Session) readClaims() {
	if s.Token == "" || strings.Count(s.Token, ".") != 2 {
		return
	}

	var c claims
	if _, _, err := jwt.NewParser().ParseUnverified(s.Token, &c); err != nil {
		return
	}

	s.Subject = c.Subject
	switch {
	case c.Name != "":
		s.User = c.Name
	case c.Username != "":
		s.User = c.Username
	default:
		s.User = c.Subject
	}
	if c.ExpiresAt != nil {
		s.ExpiresAt = c.ExpiresAt.Time
	}
}

// Expired reports whether the token carries an expiry that has passed.
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && now.After(s.ExpiresAt)
}

// Authorize adds the bearer token to req.
func (s *Session) Authorize(req *http.Request) {
	if s.Token != "" {
		req.Header.Set("Authorization", "Bearer "+s.Token)
	}
}

// Header returns the headers a stream handshake needs.
func (s *Session) Header() http.Header {
	h := http.Header{}
	if s.Token != "" {
		h.Set("Authorization", "Bearer "+s.Token)
	}
	return h
}

// Endpoint resolves an API path against the server base. p must already be
// escaped (ids go through url.PathEscape).
func (s *Session) Endpoint(p string, query url.Values) string {
	u := *s.Server
	joinPath(&u, p)
	u.RawQuery = ""
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

// StreamEndpoint resolves a WebSocket path, mapping http(s) to ws(s).
func (s *Session) StreamEndpoint(p string) string {
	base := s.Server
	if s.Stream != nil {
		base = s.Stream
	}

	u := *base
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	case "http":
		u.Scheme = "ws"
	}
	joinPath(&u, p)
	u.RawQuery = ""
	return u.String()
}

func joinPath(u *url.URL, escaped string) {
	joined := path.Join("/", u.EscapedPath(), escaped)
	if unescaped, err := url.PathUnescape(joined); err == nil {
		u.Path = unescaped
		u.RawPath = joined
		return
	}
	u.Path = joined
	u.RawPath = ""
}

// Label is a one-line description for headers and `login` output.
func (s *Session) Label() string {
	if s.User != "" {
		return s.User + "@" + s.Server.Host
	}
	return s.Server.Host
}
