package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/tidwall/gjson"
)

// AugmentedResponse is the result of a timed exchange: the transport
// response together with its interpreted body and timing record.
type AugmentedResponse struct {
	// Response is the transport response. Its Body has already been
	// drained and closed; it is replaced with a reader over Body.
	Response *http.Response

	// StatusCode is the HTTP status code (e.g., 200, 404, 500)
	StatusCode int

	// Status is the HTTP status string (e.g., "200 OK")
	Status string

	// Headers contains the response headers
	Headers http.Header

	// Data is the interpreted body, see Decoded.Value
	Data any

	// Kind says how Data was decoded
	Kind BodyKind

	// Body holds the raw response bytes
	Body []byte

	// Timing is the finalized timing record
	Timing TimingRecord
}

// Text returns the raw body as a string.
func (r *AugmentedResponse) Text() string {
	return string(r.Body)
}

// JSON unmarshals the raw body into v.
func (r *AugmentedResponse) JSON(v any) error {
	return json.Unmarshal(r.Body, v)
}

// Get looks up a gjson path (e.g. "args.name") in the raw body.
func (r *AugmentedResponse) Get(path string) gjson.Result {
	return gjson.GetBytes(r.Body, path)
}

// GetHeader returns the value of the specified header.
func (r *AugmentedResponse) GetHeader(key string) string {
	return r.Headers.Get(key)
}

// TotalTime is shorthand for Timing.TotalTime.
func (r *AugmentedResponse) TotalTime() time.Duration {
	return r.Timing.TotalTime()
}

// IsSuccess returns true if the response status code is in the 2xx range
func (r *AugmentedResponse) IsSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// IsRedirect returns true if the response status code is in the 3xx range
func (r *AugmentedResponse) IsRedirect() bool {
	return r.StatusCode >= 300 && r.StatusCode < 400
}

// IsClientError returns true if the response status code is in the 4xx range
func (r *AugmentedResponse) IsClientError() bool {
	return r.StatusCode >= 400 && r.StatusCode < 500
}

// IsServerError returns true if the response status code is in the 5xx range
func (r *AugmentedResponse) IsServerError() bool {
	return r.StatusCode >= 500 && r.StatusCode < 600
}
