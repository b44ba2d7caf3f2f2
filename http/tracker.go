package http

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/http/httptrace"
	"sync"
	"time"
)

// Resolver resolves host names. *net.Resolver satisfies it.
type Resolver interface {
	LookupHost(ctx context.Context, host string) ([]string, error)
}

// PhaseTracker captures the phase boundaries of one request. It owns the
// DNS resolution step and exposes an httptrace hook for the transport
// phases. A tracker is never shared between requests.
type PhaseTracker struct {
	mu       sync.Mutex
	timing   TimingRecord
	resolver Resolver
	logger   Logger

	// set once the transport reports real boundaries
	connectTraced bool
	tlsTraced     bool
}

// NewPhaseTracker starts a tracker whose record begins now.
func NewPhaseTracker(resolver Resolver, logger Logger) *PhaseTracker {
	if resolver == nil {
		resolver = net.DefaultResolver
	}
	if logger == nil {
		logger = nopLogger{}
	}
	return &PhaseTracker{
		timing:   NewTimingRecord(),
		resolver: resolver,
		logger:   logger,
	}
}

type lookupResult struct {
	addrs []string
	err   error
}

// TrackDNSResolution resolves host and records the DNS phase. The lookup
// runs on its own goroutine so a resolver that ignores ctx cannot hold the
// caller past cancellation. DNSEnd is recorded on every outcome, and a
// resolver error is returned unchanged.
func (p *PhaseTracker) TrackDNSResolution(ctx context.Context, host string) (string, time.Duration, error) {
	p.mark(&p.timing.DNSStart)

	done := make(chan lookupResult, 1)
	go func() {
		addrs, err := p.resolver.LookupHost(ctx, host)
		done <- lookupResult{addrs: addrs, err: err}
	}()

	var res lookupResult
	select {
	case res = <-done:
	case <-ctx.Done():
		res.err = ctx.Err()
	}
	if res.err == nil && len(res.addrs) == 0 {
		res.err = &net.DNSError{Err: "no addresses found", Name: host, IsNotFound: true}
	}

	p.mark(&p.timing.DNSEnd)

	if res.err != nil {
		p.logger.Error(fmt.Sprintf("DNS resolution failed: %v", res.err), "host", host)
		return "", p.Timing().DNSTime(), res.err
	}
	return res.addrs[0], p.Timing().DNSTime(), nil
}

// ClientTrace returns a trace that records the connect, TLS and send
// boundaries reported by the transport. The transport may invoke the
// callbacks from dialer goroutines, hence the locking.
func (p *PhaseTracker) ClientTrace() *httptrace.ClientTrace {
	return &httptrace.ClientTrace{
		ConnectStart: func(network, addr string) {
			p.mu.Lock()
			defer p.mu.Unlock()
			// with several dial attempts, keep the first start
			if !p.connectTraced {
				p.timing.ConnectStart = time.Now()
				p.connectTraced = true
			}
		},
		ConnectDone: func(network, addr string, err error) {
			if err != nil {
				return
			}
			p.mark(&p.timing.ConnectEnd)
		},
		TLSHandshakeStart: func() {
			p.mu.Lock()
			defer p.mu.Unlock()
			p.timing.SSLStart = time.Now()
			p.tlsTraced = true
		},
		TLSHandshakeDone: func(state tls.ConnectionState, err error) {
			if err != nil {
				return
			}
			p.mark(&p.timing.SSLEnd)
		},
		GotConn: func(info httptrace.GotConnInfo) {
			p.mark(&p.timing.SendStart)
		},
		WroteRequest: func(info httptrace.WroteRequestInfo) {
			if info.Err != nil {
				return
			}
			p.mark(&p.timing.SendEnd)
		},
	}
}

// MarkConnectStart records the beginning of the transport call. A real
// ConnectStart reported by the transport later replaces it.
func (p *PhaseTracker) MarkConnectStart() {
	p.mark(&p.timing.ConnectStart)
}

// MarkHeadersReceived closes the connect and TLS phases once the response
// headers arrived. Boundaries the transport already reported are kept;
// otherwise connect ends now and, for secure URLs, the TLS handshake is
// approximated as the window starting at connect end.
func (p *PhaseTracker) MarkHeadersReceived(secure bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.timing.ConnectEnd.IsZero() {
		p.timing.ConnectEnd = time.Now()
	}
	if secure && (!p.tlsTraced || p.timing.SSLEnd.IsZero()) {
		p.timing.SSLStart = p.timing.ConnectEnd
		p.timing.SSLEnd = time.Now()
	}
}

// MarkReceiveStart records the start of body reading.
func (p *PhaseTracker) MarkReceiveStart() {
	p.mark(&p.timing.ReceiveStart)
}

// MarkReceiveEnd records the end of body decoding.
func (p *PhaseTracker) MarkReceiveEnd() {
	p.mark(&p.timing.ReceiveEnd)
}

// Finalize forces ReceiveEnd if it was never set.
func (p *PhaseTracker) Finalize() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.timing.Finalize(time.Now())
}

// Timing returns a snapshot of the record.
func (p *PhaseTracker) Timing() TimingRecord {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.timing
}

func (p *PhaseTracker) mark(field *time.Time) {
	p.mu.Lock()
	*field = time.Now()
	p.mu.Unlock()
}
