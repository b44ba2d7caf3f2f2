package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// newEchoServer mimics the httpbin endpoints used by the suite.
func newEchoServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/get", func(w http.ResponseWriter, r *http.Request) {
		args := map[string]string{}
		for key := range r.URL.Query() {
			args[key] = r.URL.Query().Get(key)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"args": args})
	})
	mux.HandleFunc("/post", func(w http.ResponseWriter, r *http.Request) {
		var payload any
		_ = json.NewDecoder(r.Body).Decode(&payload)
		headers := map[string]string{}
		for key := range r.Header {
			headers[key] = r.Header.Get(key)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"json": payload, "headers": headers})
	})
	mux.HandleFunc("/status/500", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusInternalServerError)
	})
	mux.HandleFunc("/broken", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"truncated":`))
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func TestClient_GetWithParams(t *testing.T) {
	server := newEchoServer(t)
	logger := &recordingLogger{}
	client := NewClient(WithBaseURL(server.URL), WithLogger(logger))
	defer client.Close()

	resp, err := client.Request(context.Background(), "GET", "/get", Params(map[string]string{"name": "test"}))
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, BodyJSON, resp.Kind)
	assert.Equal(t, map[string]any{"args": map[string]any{"name": "test"}}, resp.Data)
	assert.Equal(t, "test", resp.Get("args.name").String())
	assert.Greater(t, resp.Timing.Summary().TotalTime, 0.0)
	assert.Equal(t, resp.Timing.ReceiveEnd.Sub(resp.Timing.StartTime), resp.Timing.TotalTime())

	assert.Equal(t, 1, logger.requests)
	assert.Equal(t, 1, logger.responses)
	assert.Len(t, logger.lastTiming, 6)
	assert.Zero(t, logger.levelCount("error"))
}

func TestClient_PhaseOrdering(t *testing.T) {
	server := newEchoServer(t)
	client := NewClient(WithBaseURL(server.URL))
	defer client.Close()

	resp, err := client.Get(context.Background(), "/get")
	require.NoError(t, err)

	tm := resp.Timing
	ordered := []time.Time{
		tm.StartTime, tm.DNSStart, tm.DNSEnd,
		tm.ConnectStart, tm.ConnectEnd,
		tm.SendStart, tm.SendEnd,
		tm.ReceiveStart, tm.ReceiveEnd,
	}
	for i, ts := range ordered {
		require.Falsef(t, ts.IsZero(), "boundary %d unset", i)
		if i > 0 {
			assert.Falsef(t, ts.Before(ordered[i-1]), "boundary %d precedes %d", i, i-1)
		}
	}
	// plain http has no handshake
	assert.Zero(t, tm.SSLTime())
}

func TestClient_TLSPhaseIsTraced(t *testing.T) {
	server := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	client := NewClient(WithBaseURL(server.URL), WithInsecureSkipVerify())
	defer client.Close()

	resp, err := client.Get(context.Background(), "/")
	require.NoError(t, err)

	tm := resp.Timing
	assert.Equal(t, map[string]any{"ok": true}, resp.Data)
	assert.Greater(t, tm.SSLTime(), time.Duration(0))
	assert.False(t, tm.SSLStart.Before(tm.ConnectEnd))
	assert.False(t, tm.ReceiveStart.Before(tm.SSLEnd))
}

func TestClient_TLSVerificationIsOnByDefault(t *testing.T) {
	server := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer server.Close()

	logger := &recordingLogger{}
	client := NewClient(WithBaseURL(server.URL), WithLogger(logger))
	defer client.Close()

	resp, err := client.Get(context.Background(), "/")
	require.Error(t, err)
	assert.Nil(t, resp)
	assert.Equal(t, 1, logger.count("error", "Request failed"))
	assert.Zero(t, logger.responses)
}

func TestClient_ServerErrorWithEmptyTextBody(t *testing.T) {
	server := newEchoServer(t)
	logger := &recordingLogger{}
	client := NewClient(WithBaseURL(server.URL), WithLogger(logger))
	defer client.Close()

	resp, err := client.Get(context.Background(), "/status/500")
	require.NoError(t, err)

	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.True(t, resp.IsServerError())
	assert.Equal(t, "", resp.Data)
	assert.Zero(t, logger.levelCount("error"))
}

func TestClient_MalformedJSONFallsBackToText(t *testing.T) {
	server := newEchoServer(t)
	logger := &recordingLogger{}
	client := NewClient(WithBaseURL(server.URL), WithLogger(logger))
	defer client.Close()

	resp, err := client.Get(context.Background(), "/broken")
	require.NoError(t, err)

	assert.Equal(t, `{"truncated":`, resp.Data)
	assert.Equal(t, BodyText, resp.Kind)
	assert.Equal(t, 1, logger.count("error", "Failed to parse response"))
	assert.Equal(t, 1, logger.responses)
}

func TestClient_DNSFailure(t *testing.T) {
	lookupErr := &net.DNSError{Err: "no such host", Name: "api.invalid", IsNotFound: true}
	logger := &recordingLogger{}
	var recorded []Exchange
	client := NewClient(
		WithBaseURL("http://api.invalid"),
		WithResolver(&fakeResolver{err: lookupErr}),
		WithLogger(logger),
		WithRecorder(RecorderFunc(func(ctx context.Context, ex Exchange) error {
			recorded = append(recorded, ex)
			return nil
		})),
	)
	defer client.Close()

	resp, err := client.Get(context.Background(), "/get")

	assert.Nil(t, resp)
	assert.Same(t, lookupErr, err)
	assert.Equal(t, 1, logger.count("error", "DNS resolution failed"))
	assert.Zero(t, logger.requests, "no pre-request log after a DNS failure")
	assert.Zero(t, logger.responses)

	require.Len(t, recorded, 1)
	assert.Same(t, lookupErr, recorded[0].Err)
	assert.False(t, recorded[0].Timing.ReceiveEnd.IsZero(), "timing is finalized on failure")
	assert.False(t, recorded[0].Timing.DNSEnd.IsZero())
}

func TestClient_TransportErrorIsReturnedUnchanged(t *testing.T) {
	transportErr := errors.New("connection reset by peer")
	logger := &recordingLogger{}
	client := NewClient(
		WithBaseURL("http://127.0.0.1"),
		WithLogger(logger),
		WithTransport(roundTripFunc(func(*http.Request) (*http.Response, error) {
			return nil, transportErr
		})),
	)
	defer client.Close()

	_, err := client.Get(context.Background(), "/get")

	assert.ErrorIs(t, err, transportErr)
	assert.Equal(t, 1, logger.requests)
	assert.Zero(t, logger.responses)
	assert.Equal(t, 1, logger.count("error", "Request failed"))
}

func TestClient_HeaderPrecedence(t *testing.T) {
	server := newEchoServer(t)
	client := NewClient(
		WithBaseURL(server.URL),
		WithHeader("X-Env", "client"),
		WithHeader("Accept", "application/vnd.client+json"),
	)
	defer client.Close()

	resp, err := client.Post(context.Background(), "/post", map[string]any{"name": "x"},
		Headers(map[string]string{
			"content-type": "application/x-www-form-urlencoded",
			"X-Env":        "request",
		}),
	)
	require.NoError(t, err)

	assert.Equal(t, "application/x-www-form-urlencoded", resp.Get("headers.Content-Type").String())
	assert.Equal(t, "request", resp.Get("headers.X-Env").String())
	assert.Equal(t, "application/vnd.client+json", resp.Get("headers.Accept").String())
	assert.Equal(t, "x", resp.Get("json.name").String())
}

func TestClient_FallbackTimingWithCustomTransport(t *testing.T) {
	client := NewClient(
		WithBaseURL("https://127.0.0.1"),
		WithTransport(roundTripFunc(func(r *http.Request) (*http.Response, error) {
			return &http.Response{
				StatusCode: http.StatusOK,
				Status:     "200 OK",
				Header:     http.Header{"Content-Type": []string{"application/json"}},
				Body:       io.NopCloser(strings.NewReader(`{"a":1}`)),
				Request:    r,
			}, nil
		})),
	)
	defer client.Close()

	resp, err := client.Get(context.Background(), "/anything")
	require.NoError(t, err)

	tm := resp.Timing
	assert.Equal(t, map[string]any{"a": 1.0}, resp.Data)
	assert.False(t, tm.ConnectEnd.IsZero())
	assert.Equal(t, tm.ConnectEnd, tm.SSLStart, "TLS window starts at connect end")
	assert.Zero(t, tm.SendTime(), "no transport callbacks, no send phase")
}

func TestClient_ResponseBodyIsReleased(t *testing.T) {
	body := &trackingBody{data: `{"a":1}`}
	client := NewClient(
		WithBaseURL("http://127.0.0.1"),
		WithTransport(roundTripFunc(func(r *http.Request) (*http.Response, error) {
			return &http.Response{
				StatusCode: http.StatusOK,
				Header:     http.Header{"Content-Type": []string{"application/json"}},
				Body:       body,
			}, nil
		})),
	)

	resp, err := client.Get(context.Background(), "/")
	require.NoError(t, err)
	assert.True(t, body.closed)

	// callers can still read the response body
	raw, err := io.ReadAll(resp.Response.Body)
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, string(raw))
}

func TestClient_ConcurrentRequestsHaveIndependentTimings(t *testing.T) {
	server := newEchoServer(t)
	client := NewClient(WithBaseURL(server.URL))
	defer client.Close()

	const n = 8
	var wg sync.WaitGroup
	results := make([]*AugmentedResponse, n)
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = client.Get(context.Background(), "/get")
		}(i)
	}
	wg.Wait()

	for i := 0; i < n; i++ {
		require.NoError(t, errs[i])
		assert.Greater(t, results[i].Timing.TotalTime(), time.Duration(0))
	}
}

func TestClient_SpanCarriesPhases(t *testing.T) {
	server := newEchoServer(t)
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	client := NewClient(WithBaseURL(server.URL), WithTracerProvider(tp))
	defer client.Close()

	_, err := client.Get(context.Background(), "/get")
	require.NoError(t, err)

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "HTTP GET", spans[0].Name())

	attrs := map[string]bool{}
	for _, kv := range spans[0].Attributes() {
		attrs[string(kv.Key)] = true
	}
	assert.True(t, attrs["apiprobe.total_time_ms"])
	assert.True(t, attrs["http.response.status_code"])
}

func TestClient_RecorderErrorIsLoggedNotReturned(t *testing.T) {
	server := newEchoServer(t)
	logger := &recordingLogger{caseID: "test_case"}
	var caseID string
	client := NewClient(
		WithBaseURL(server.URL),
		WithLogger(logger),
		WithRecorder(RecorderFunc(func(ctx context.Context, ex Exchange) error {
			caseID = ex.CaseID
			return errors.New("disk full")
		})),
	)
	defer client.Close()

	_, err := client.Get(context.Background(), "/get")
	require.NoError(t, err)
	assert.Equal(t, "test_case", caseID)
	assert.Equal(t, 1, logger.count("error", "Failed to record exchange"))
}

func TestClient_NoHost(t *testing.T) {
	client := NewClient()
	_, err := client.Get(context.Background(), "/get")
	assert.Error(t, err)
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

type trackingBody struct {
	data   string
	offset int
	closed bool
}

func (b *trackingBody) Read(p []byte) (int, error) {
	if b.offset >= len(b.data) {
		return 0, io.EOF
	}
	n := copy(p, b.data[b.offset:])
	b.offset += n
	return n, nil
}

func (b *trackingBody) Close() error {
	b.closed = true
	return nil
}
