package http

import (
	"crypto/tls"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

// Session is the transport context shared by all requests of one Client.
type Session struct {
	httpClient *http.Client
	closed     atomic.Bool
}

// HTTPClient returns the underlying *http.Client.
func (s *Session) HTTPClient() *http.Client {
	return s.httpClient
}

// Closed reports whether the session has been closed.
func (s *Session) Closed() bool {
	return s.closed.Load()
}

// SessionConfig configures sessions created by a Sessions manager.
type SessionConfig struct {
	// Timeout bounds a whole exchange; zero means no client-level timeout
	Timeout time.Duration

	// InsecureSkipVerify disables TLS certificate verification.
	// WARNING: This should only be used for testing purposes.
	InsecureSkipVerify bool

	// Transport replaces the default transport. It is used as-is, so
	// connection-closing behaviour is the caller's responsibility.
	Transport http.RoundTripper
}

// Sessions lazily creates and owns at most one open Session.
type Sessions struct {
	mu      sync.Mutex
	config  SessionConfig
	current *Session
}

// NewSessions returns a manager that has not created a session yet.
func NewSessions(config SessionConfig) *Sessions {
	return &Sessions{config: config}
}

// GetOrCreate returns the open session, creating a new one if none exists
// or the previous one was closed.
func (m *Sessions) GetOrCreate() *Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current != nil && !m.current.closed.Load() {
		return m.current
	}

	transport := m.config.Transport
	if transport == nil {
		transport = newTransport(m.config.InsecureSkipVerify)
	}
	m.current = &Session{
		httpClient: &http.Client{
			Transport: transport,
			Timeout:   m.config.Timeout,
		},
	}
	return m.current
}

// Close releases the session's connections. It is safe to call when no
// session exists or the session is already closed.
func (m *Sessions) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current == nil || m.current.closed.Load() {
		return nil
	}
	m.current.httpClient.CloseIdleConnections()
	m.current.closed.Store(true)
	return nil
}

// newTransport builds a transport that closes every connection after use
// so each request dials, and optionally handshakes, on its own.
func newTransport(insecure bool) *http.Transport {
	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: -1,
	}
	return &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		DialContext:         dialer.DialContext,
		DisableKeepAlives:   true,
		ForceAttemptHTTP2:   false,
		TLSHandshakeTimeout: 10 * time.Second,
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: insecure,
			MinVersion:         tls.VersionTLS12,
		},
	}
}
