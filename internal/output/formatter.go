package output

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	probehttp "github.com/wesleyorama2/apiprobe/http"
)

// OutputFormat represents the available output formats
type OutputFormat string

const (
	// FormatText is the default human-readable text format
	FormatText OutputFormat = "text"
	// FormatJSON outputs in JSON format
	FormatJSON OutputFormat = "json"
	// FormatYAML outputs in YAML format
	FormatYAML OutputFormat = "yaml"
)

// FormatProvider renders requests and timed responses.
type FormatProvider interface {
	FormatRequest(req *probehttp.Request, fullURL string) string
	FormatResponse(resp *probehttp.AugmentedResponse) string
}

// GetFormatter returns the formatter for format. Unknown formats fall back
// to text.
func GetFormatter(format OutputFormat, verbose, noColor bool) FormatProvider {
	switch format {
	case FormatJSON:
		return &StructuredFormatter{Verbose: verbose, Marshal: marshalJSON}
	case FormatYAML:
		return &StructuredFormatter{Verbose: verbose, Marshal: marshalYAML}
	default:
		return NewFormatter(verbose, noColor)
	}
}

// Formatter is responsible for formatting HTTP requests and responses in text format
type Formatter struct {
	Verbose bool
	NoColor bool

	colors *ColorScheme
}

// NewFormatter creates a new formatter with the given options
func NewFormatter(verbose, noColor bool) *Formatter {
	colors := DefaultColorScheme()
	if noColor {
		colors = NoColorScheme()
	}
	return &Formatter{
		Verbose: verbose,
		NoColor: noColor,
		colors:  colors,
	}
}

// FormatRequest formats an HTTP request for display
func (f *Formatter) FormatRequest(req *probehttp.Request, fullURL string) string {
	var buf strings.Builder

	buf.WriteString(fmt.Sprintf("▶ REQUEST: %s %s\n", f.colors.Method.Sprint(req.Method), f.colors.URL.Sprint(fullURL)))

	if f.Verbose || len(req.Headers) > 0 {
		buf.WriteString("  Headers:\n")
		for _, key := range sortedKeys(req.Headers) {
			buf.WriteString(fmt.Sprintf("    %s: %s\n", f.colors.HeaderKey.Sprint(key), req.Headers[key]))
		}
	}

	if req.Body != nil {
		buf.WriteString("  Body: ")
		switch body := req.Body.(type) {
		case string:
			buf.WriteString(formatJSONString(body))
		case []byte:
			buf.WriteString(formatJSONString(string(body)))
		default:
			jsonBody, err := json.Marshal(body)
			if err != nil {
				buf.WriteString(fmt.Sprintf("%v", body))
			} else {
				buf.WriteString(formatJSONString(string(jsonBody)))
			}
		}
		buf.WriteString("\n")
	}

	return buf.String()
}

// FormatResponse formats a timed response for display
func (f *Formatter) FormatResponse(resp *probehttp.AugmentedResponse) string {
	var buf strings.Builder
	summary := resp.Timing.Summary()

	buf.WriteString(fmt.Sprintf("◀ RESPONSE: %s (%vms)\n",
		f.colors.Status(resp.StatusCode).Sprint(resp.Status),
		summary.TotalTime))

	if f.Verbose {
		buf.WriteString(f.FormatTiming(summary))
		buf.WriteString("  Headers:\n")
		for _, key := range sortedKeys(resp.Headers) {
			for _, value := range resp.Headers[key] {
				buf.WriteString(fmt.Sprintf("    %s: %s\n", f.colors.HeaderKey.Sprint(key), value))
			}
		}
	}

	for _, breach := range probehttp.Breaches(summary) {
		buf.WriteString(fmt.Sprintf("  %s %s\n", WarningIcon(f.NoColor), f.colors.Slow.Sprint(breach.Message)))
	}

	if body := resp.Text(); body != "" {
		buf.WriteString("  Body:\n")
		buf.WriteString(formatJSONString(body))
		buf.WriteString("\n")
	}

	return buf.String()
}

// FormatTiming renders the per-phase breakdown.
func (f *Formatter) FormatTiming(summary probehttp.Summary) string {
	var buf strings.Builder
	buf.WriteString("  Timing:\n")
	for _, row := range []struct {
		label string
		ms    float64
	}{
		{"DNS Resolution:   ", summary.DNSResolution},
		{"TCP Connection:   ", summary.TCPConnection},
		{"SSL/TLS Handshake:", summary.SSLHandshake},
		{"Request Send:     ", summary.RequestSend},
		{"Response Receive: ", summary.ResponseReceive},
		{"Total:            ", summary.TotalTime},
	} {
		buf.WriteString(fmt.Sprintf("    %s %vms\n", f.colors.Phase.Sprint(row.label), row.ms))
	}
	return buf.String()
}

// formatJSONString attempts to pretty-print a JSON string
func formatJSONString(s string) string {
	var prettyJSON bytes.Buffer
	err := json.Indent(&prettyJSON, []byte(s), "  ", "  ")
	if err != nil {
		return s
	}
	return prettyJSON.String()
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
