package http

import (
	"fmt"
)

// Fixed phase thresholds in milliseconds.
const (
	DNSThresholdMs     = 100.0
	ConnectThresholdMs = 200.0
	TLSThresholdMs     = 300.0
	TotalThresholdMs   = 1000.0
)

// Breach is one phase that exceeded its threshold.
type Breach struct {
	Phase       string
	ValueMs     float64
	ThresholdMs float64
	Message     string
}

// Breaches inspects a summary against the fixed thresholds. The result is
// ordered dns, connect, tls, total and is empty when nothing is over.
func Breaches(s Summary) []Breach {
	var out []Breach
	if s.DNSResolution > DNSThresholdMs {
		out = append(out, Breach{
			Phase:       KeyDNSResolution,
			ValueMs:     s.DNSResolution,
			ThresholdMs: DNSThresholdMs,
			Message:     fmt.Sprintf("DNS resolution time (%vms) is high", s.DNSResolution),
		})
	}
	if s.TCPConnection > ConnectThresholdMs {
		out = append(out, Breach{
			Phase:       KeyTCPConnection,
			ValueMs:     s.TCPConnection,
			ThresholdMs: ConnectThresholdMs,
			Message:     fmt.Sprintf("TCP connection time (%vms) is high", s.TCPConnection),
		})
	}
	if s.SSLHandshake > TLSThresholdMs {
		out = append(out, Breach{
			Phase:       KeySSLHandshake,
			ValueMs:     s.SSLHandshake,
			ThresholdMs: TLSThresholdMs,
			Message:     fmt.Sprintf("SSL handshake time (%vms) is high", s.SSLHandshake),
		})
	}
	if s.TotalTime > TotalThresholdMs {
		out = append(out, Breach{
			Phase:       KeyTotalTime,
			ValueMs:     s.TotalTime,
			ThresholdMs: TotalThresholdMs,
			Message:     fmt.Sprintf("Total request time (%vms) exceeds 1 second", s.TotalTime),
		})
	}
	return out
}

// Analyze logs one warning per breached threshold.
func Analyze(logger Logger, s Summary) {
	for _, b := range Breaches(s) {
		logger.Warning(b.Message,
			"phase", b.Phase,
			"value_ms", b.ValueMs,
			"threshold_ms", b.ThresholdMs,
		)
	}
}
