package http

import (
	"encoding/json"
	"mime"
	"strings"
)

// BodyKind says how a response body was decoded.
type BodyKind int

const (
	// BodyText is a raw text decode.
	BodyText BodyKind = iota
	// BodyJSON is a structured JSON decode.
	BodyJSON
)

func (k BodyKind) String() string {
	if k == BodyJSON {
		return "json"
	}
	return "text"
}

// Decoded is the result of interpreting a response body.
type Decoded struct {
	// Value is the decoded body: a JSON value (map[string]any, []any,
	// string, float64, bool or nil) for BodyJSON, a string for BodyText.
	Value any

	Kind BodyKind

	// Err is the structured decode error that caused a text fallback.
	Err error
}

// Fallback reports whether a structured decode failed and the body was
// returned as text instead.
func (d Decoded) Fallback() bool {
	return d.Err != nil
}

// IsJSONContentType reports whether a Content-Type header declares JSON,
// either application/json or a +json structured suffix.
func IsJSONContentType(contentType string) bool {
	if contentType == "" {
		return false
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		// fall back to a substring match on malformed parameters
		return strings.Contains(strings.ToLower(contentType), "application/json")
	}
	return mediaType == "application/json" || strings.HasSuffix(mediaType, "+json")
}

// Interpret picks a decoding strategy from the declared content type.
// JSON content is decoded structurally; anything else, and any JSON body
// that fails to decode, is returned as raw text. Interpret never fails.
func Interpret(contentType string, raw []byte) Decoded {
	text := string(raw)
	if !IsJSONContentType(contentType) {
		return Decoded{Value: text, Kind: BodyText}
	}

	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return Decoded{Value: text, Kind: BodyText, Err: err}
	}
	return Decoded{Value: v, Kind: BodyJSON}
}
