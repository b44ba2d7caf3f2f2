package output

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"

	"gopkg.in/yaml.v3"

	probehttp "github.com/wesleyorama2/apiprobe/http"
)

func timedResponse(status int, body string, dns, total time.Duration) *probehttp.AugmentedResponse {
	start := time.Now()
	decoded := probehttp.Interpret("application/json", []byte(body))
	return &probehttp.AugmentedResponse{
		StatusCode: status,
		Status:     http.StatusText(status),
		Headers:    http.Header{"Content-Type": []string{"application/json"}},
		Data:       decoded.Value,
		Kind:       decoded.Kind,
		Body:       []byte(body),
		Timing: probehttp.TimingRecord{
			StartTime:  start,
			DNSStart:   start,
			DNSEnd:     start.Add(dns),
			ReceiveEnd: start.Add(total),
		},
	}
}

func TestFormatter_FormatRequest(t *testing.T) {
	formatter := NewFormatter(true, true) // verbose, no color

	req := probehttp.NewRequest("GET", "/users").
		WithHeader("Accept", "application/json").
		WithHeader("Authorization", "Bearer token123")

	output := formatter.FormatRequest(req, "https://api.example.com/users?limit=10&page=1")

	expectedParts := []string{
		"REQUEST: GET https://api.example.com/users?limit=10&page=1",
		"Headers:",
		"Accept: application/json",
		"Authorization: Bearer token123",
	}
	for _, part := range expectedParts {
		if !strings.Contains(output, part) {
			t.Errorf("Expected output to contain '%s', got: %s", part, output)
		}
	}

	if strings.Index(output, "Accept") > strings.Index(output, "Authorization") {
		t.Errorf("Expected headers in sorted order, got: %s", output)
	}
}

func TestFormatter_FormatRequestWithBody(t *testing.T) {
	formatter := NewFormatter(false, true)

	req := probehttp.NewRequest("POST", "/users").WithBody(map[string]string{"name": "John Doe"})
	output := formatter.FormatRequest(req, "https://api.example.com/users")

	if !strings.Contains(output, "Body: {") || !strings.Contains(output, `"name": "John Doe"`) {
		t.Errorf("Expected pretty-printed JSON body, got: %s", output)
	}
	if strings.Contains(output, "Headers:") {
		t.Errorf("Expected no headers section without headers, got: %s", output)
	}
}

func TestFormatter_FormatResponse(t *testing.T) {
	formatter := NewFormatter(false, true)

	output := formatter.FormatResponse(timedResponse(200, `{"id":1}`, 5*time.Millisecond, 42*time.Millisecond))

	if !strings.Contains(output, "RESPONSE: OK (42ms)") {
		t.Errorf("Expected status and total time, got: %s", output)
	}
	if !strings.Contains(output, `"id": 1`) {
		t.Errorf("Expected body, got: %s", output)
	}
	if strings.Contains(output, "Timing:") {
		t.Errorf("Expected no timing breakdown without verbose, got: %s", output)
	}
	if strings.Contains(output, "⚠") {
		t.Errorf("Expected no warnings for a fast response, got: %s", output)
	}
}

func TestFormatter_FormatResponseVerbose(t *testing.T) {
	formatter := NewFormatter(true, true)

	output := formatter.FormatResponse(timedResponse(500, `{}`, 150*time.Millisecond, 1200*time.Millisecond))

	expectedParts := []string{
		"RESPONSE: Internal Server Error (1200ms)",
		"Timing:",
		"DNS Resolution:    150ms",
		"SSL/TLS Handshake: 0ms",
		"Total:             1200ms",
		"Content-Type: application/json",
		"⚠ DNS resolution time (150ms) is high",
		"⚠ Total request time (1200ms) exceeds 1 second",
	}
	for _, part := range expectedParts {
		if !strings.Contains(output, part) {
			t.Errorf("Expected output to contain '%s', got: %s", part, output)
		}
	}
}

func TestGetFormatter_JSON(t *testing.T) {
	formatter := GetFormatter(FormatJSON, false, true)

	output := formatter.FormatResponse(timedResponse(200, `{"id":1}`, 120*time.Millisecond, 130*time.Millisecond))

	var data ResponseData
	if err := json.Unmarshal([]byte(output), &data); err != nil {
		t.Fatalf("Expected valid JSON, got error %v: %s", err, output)
	}
	if data.StatusCode != 200 || data.BodyKind != "json" {
		t.Errorf("Unexpected response data: %+v", data)
	}
	if data.Timing.DNSResolution != 120 || data.Timing.TotalTime != 130 {
		t.Errorf("Unexpected timing: %+v", data.Timing)
	}
	if len(data.Warnings) != 1 || !strings.Contains(data.Warnings[0], "DNS resolution time") {
		t.Errorf("Expected one DNS warning, got: %v", data.Warnings)
	}
	if data.Headers != nil {
		t.Errorf("Expected no headers without verbose, got: %v", data.Headers)
	}
}

func TestGetFormatter_YAML(t *testing.T) {
	formatter := GetFormatter(FormatYAML, true, true)

	req := probehttp.NewRequest("DELETE", "/users/1").WithHeader("X-Trace", "abc")
	output := formatter.FormatRequest(req, "http://localhost/users/1")

	var data RequestData
	if err := yaml.Unmarshal([]byte(output), &data); err != nil {
		t.Fatalf("Expected valid YAML, got error %v: %s", err, output)
	}
	if data.Method != "DELETE" || data.URL != "http://localhost/users/1" || data.Headers["X-Trace"] != "abc" {
		t.Errorf("Unexpected request data: %+v", data)
	}

	resp := formatter.FormatResponse(timedResponse(204, "", 0, time.Millisecond))
	if !strings.Contains(resp, "total_time: 1") {
		t.Errorf("Expected snake_case timing keys, got: %s", resp)
	}
}

func TestGetFormatter_DefaultsToText(t *testing.T) {
	if _, ok := GetFormatter("xml", false, true).(*Formatter); !ok {
		t.Error("Expected text formatter for unknown format")
	}
}

func TestColorSchemes(t *testing.T) {
	scheme := NoColorScheme()
	for i, c := range scheme.all() {
		if c == nil {
			t.Fatalf("color %d should not be nil", i)
		}
		if got := c.Sprint("x"); got != "x" {
			t.Errorf("color %d: expected no escape codes, got %q", i, got)
		}
	}

	if scheme.Status(201) != scheme.StatusOK || scheme.Status(302) != scheme.StatusWarn || scheme.Status(404) != scheme.StatusError {
		t.Error("Status picked the wrong color")
	}
}

func TestIcons(t *testing.T) {
	if SuccessIcon(true) != "✓" || ErrorIcon(true) != "✗" || WarningIcon(true) != "⚠" {
		t.Error("Expected plain icons with noColor")
	}
	if !strings.Contains(WarningIcon(false), "\x1b[") {
		t.Error("Expected escape codes with color")
	}
}
