package output

import (
	"encoding/json"
	"time"

	"gopkg.in/yaml.v3"

	probehttp "github.com/wesleyorama2/apiprobe/http"
)

// RequestData represents the structured data of an HTTP request
type RequestData struct {
	Method    string            `json:"method" yaml:"method"`
	URL       string            `json:"url" yaml:"url"`
	Headers   map[string]string `json:"headers,omitempty" yaml:"headers,omitempty"`
	Body      any               `json:"body,omitempty" yaml:"body,omitempty"`
	Timestamp string            `json:"timestamp" yaml:"timestamp"`
}

// ResponseData represents the structured data of a timed response
type ResponseData struct {
	StatusCode int               `json:"statusCode" yaml:"statusCode"`
	Status     string            `json:"status" yaml:"status"`
	Headers    map[string]string `json:"headers,omitempty" yaml:"headers,omitempty"`
	BodyKind   string            `json:"bodyKind" yaml:"bodyKind"`
	Body       any               `json:"body,omitempty" yaml:"body,omitempty"`
	Timing     probehttp.Summary `json:"timing" yaml:"timing"`
	Warnings   []string          `json:"warnings,omitempty" yaml:"warnings,omitempty"`
	Timestamp  string            `json:"timestamp" yaml:"timestamp"`
}

// StructuredFormatter renders machine-readable JSON or YAML documents.
type StructuredFormatter struct {
	Verbose bool
	Marshal func(v any) (string, error)
}

// FormatRequest formats a request as a structured document
func (f *StructuredFormatter) FormatRequest(req *probehttp.Request, fullURL string) string {
	data := RequestData{
		Method:    req.Method,
		URL:       fullURL,
		Body:      req.Body,
		Timestamp: time.Now().Format(time.RFC3339),
	}
	if f.Verbose {
		data.Headers = req.Headers
	}
	return f.render(data)
}

// FormatResponse formats a timed response as a structured document
func (f *StructuredFormatter) FormatResponse(resp *probehttp.AugmentedResponse) string {
	summary := resp.Timing.Summary()
	data := ResponseData{
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		BodyKind:   resp.Kind.String(),
		Body:       resp.Data,
		Timing:     summary,
		Timestamp:  time.Now().Format(time.RFC3339),
	}
	if f.Verbose {
		data.Headers = make(map[string]string, len(resp.Headers))
		for key := range resp.Headers {
			data.Headers[key] = resp.Headers.Get(key)
		}
	}
	for _, breach := range probehttp.Breaches(summary) {
		data.Warnings = append(data.Warnings, breach.Message)
	}
	return f.render(data)
}

func (f *StructuredFormatter) render(v any) string {
	out, err := f.Marshal(v)
	if err != nil {
		return "error: " + err.Error() + "\n"
	}
	return out
}

func marshalJSON(v any) (string, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data) + "\n", nil
}

func marshalYAML(v any) (string, error) {
	data, err := yaml.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
