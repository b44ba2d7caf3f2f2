package http

import (
	"net/url"
)

// Logger is the logging collaborator consumed by the client.
// *logging.CaseLogger satisfies it.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warning(msg string, args ...any)
	Error(msg string, args ...any)

	// LogRequest records the outgoing request before it is sent.
	LogRequest(method, url string, headers map[string]string, params url.Values, body any)

	// LogResponse records a completed exchange with its timing map.
	LogResponse(statusCode int, body any, timing map[string]float64)
}

// caseIdentifier is implemented by loggers that track an active test case.
type caseIdentifier interface {
	CaseID() string
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any)   {}
func (nopLogger) Info(string, ...any)    {}
func (nopLogger) Warning(string, ...any) {}
func (nopLogger) Error(string, ...any)   {}

func (nopLogger) LogRequest(string, string, map[string]string, url.Values, any) {}
func (nopLogger) LogResponse(int, any, map[string]float64)                      {}
