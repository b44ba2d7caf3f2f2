package http

import (
	"math"
	"time"
)

// Timing map keys, shared by log records, span attributes and stores.
const (
	KeyDNSResolution   = "dns_resolution"
	KeyTCPConnection   = "tcp_connection"
	KeySSLHandshake    = "ssl_handshake"
	KeyRequestSend     = "request_send"
	KeyResponseReceive = "response_receive"
	KeyTotalTime       = "total_time"
)

// TimingRecord holds the phase boundary timestamps of a single request.
//
// Every timestamp is taken with time.Now, so differences use the monotonic
// clock. A zero time.Time means the boundary was never recorded and the
// corresponding phase reports a zero duration.
type TimingRecord struct {
	// StartTime is when the request started
	StartTime time.Time

	DNSStart     time.Time
	DNSEnd       time.Time
	ConnectStart time.Time
	ConnectEnd   time.Time
	SSLStart     time.Time
	SSLEnd       time.Time
	SendStart    time.Time
	SendEnd      time.Time
	ReceiveStart time.Time
	ReceiveEnd   time.Time
}

// NewTimingRecord returns a record whose StartTime is now.
func NewTimingRecord() TimingRecord {
	return TimingRecord{StartTime: time.Now()}
}

// span returns end-start, or zero when either boundary is unset or the
// difference would be negative.
func span(start, end time.Time) time.Duration {
	if start.IsZero() || end.IsZero() {
		return 0
	}
	d := end.Sub(start)
	if d < 0 {
		return 0
	}
	return d
}

// DNSTime is the time spent resolving the host.
func (t TimingRecord) DNSTime() time.Duration { return span(t.DNSStart, t.DNSEnd) }

// ConnectTime is the time spent establishing the TCP connection.
func (t TimingRecord) ConnectTime() time.Duration { return span(t.ConnectStart, t.ConnectEnd) }

// SSLTime is the time spent in the TLS handshake (0 for plain HTTP).
func (t TimingRecord) SSLTime() time.Duration { return span(t.SSLStart, t.SSLEnd) }

// SendTime is the time spent writing the request.
func (t TimingRecord) SendTime() time.Duration { return span(t.SendStart, t.SendEnd) }

// ReceiveTime is the time spent reading and decoding the response body.
func (t TimingRecord) ReceiveTime() time.Duration { return span(t.ReceiveStart, t.ReceiveEnd) }

// TotalTime is the time from StartTime until ReceiveEnd, or 0 if the
// receive phase never ended.
func (t TimingRecord) TotalTime() time.Duration { return span(t.StartTime, t.ReceiveEnd) }

// Finalize forces ReceiveEnd to now if it was never recorded, so that a
// total is available even when the request failed part way.
func (t *TimingRecord) Finalize(now time.Time) {
	if t.ReceiveEnd.IsZero() {
		t.ReceiveEnd = now
	}
}

// Summary is the millisecond view of a TimingRecord.
type Summary struct {
	DNSResolution   float64 `json:"dns_resolution" yaml:"dns_resolution"`
	TCPConnection   float64 `json:"tcp_connection" yaml:"tcp_connection"`
	SSLHandshake    float64 `json:"ssl_handshake" yaml:"ssl_handshake"`
	RequestSend     float64 `json:"request_send" yaml:"request_send"`
	ResponseReceive float64 `json:"response_receive" yaml:"response_receive"`
	TotalTime       float64 `json:"total_time" yaml:"total_time"`
}

// Summary converts every phase to milliseconds rounded to 2 decimals.
func (t TimingRecord) Summary() Summary {
	return Summary{
		DNSResolution:   millis(t.DNSTime()),
		TCPConnection:   millis(t.ConnectTime()),
		SSLHandshake:    millis(t.SSLTime()),
		RequestSend:     millis(t.SendTime()),
		ResponseReceive: millis(t.ReceiveTime()),
		TotalTime:       millis(t.TotalTime()),
	}
}

// Map returns the phase-name to millisecond mapping used by log records.
func (t TimingRecord) Map() map[string]float64 {
	return t.Summary().Map()
}

// Map returns the summary keyed by the Key* constants.
func (s Summary) Map() map[string]float64 {
	return map[string]float64{
		KeyDNSResolution:   s.DNSResolution,
		KeyTCPConnection:   s.TCPConnection,
		KeySSLHandshake:    s.SSLHandshake,
		KeyRequestSend:     s.RequestSend,
		KeyResponseReceive: s.ResponseReceive,
		KeyTotalTime:       s.TotalTime,
	}
}

// SummaryFromMap rebuilds a Summary from a timing map. Missing keys are 0.
func SummaryFromMap(m map[string]float64) Summary {
	return Summary{
		DNSResolution:   m[KeyDNSResolution],
		TCPConnection:   m[KeyTCPConnection],
		SSLHandshake:    m[KeySSLHandshake],
		RequestSend:     m[KeyRequestSend],
		ResponseReceive: m[KeyResponseReceive],
		TotalTime:       m[KeyTotalTime],
	}
}

func millis(d time.Duration) float64 {
	ms := float64(d) / float64(time.Millisecond)
	return math.Round(ms*100) / 100
}
