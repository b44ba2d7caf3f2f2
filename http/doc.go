// Package http provides a timing-aware HTTP client for API test suites.
//
// Every exchange is instrumented phase by phase and returned as an
// AugmentedResponse carrying the interpreted body and a TimingRecord:
//   - DNS resolution, tracked explicitly before the transport call
//   - TCP connect and TLS handshake, from httptrace callbacks
//   - request send and response receive (read plus decode)
//   - total time from request start to the end of decoding
//
// Basic Usage:
//
//	client := http.NewClient(
//	    http.WithBaseURL("https://httpbin.org"),
//	    http.WithLogger(logger),
//	)
//	defer client.Close()
//
//	resp, err := client.Request(ctx, "GET", "/get",
//	    http.Params(map[string]string{"name": "test"}),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	fmt.Println(resp.Get("args.name").String())
//	fmt.Println(resp.Timing.Map())
//
// Response bodies are decoded by content type: application/json (and +json
// types) as JSON, everything else as text. A JSON body that does not decode
// falls back to text and is logged, never returned as an error.
//
// Slow requests are never failures. Phases over the fixed thresholds
// (DNS 100ms, connect 200ms, TLS 300ms, total 1s) produce warning-level
// log records only.
//
// Thread Safety:
//
// Client is safe for concurrent use. Each request gets its own
// PhaseTracker; the session is the only state shared between requests.
package http
