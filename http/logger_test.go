package http

import (
	"net/url"
	"strings"
	"sync"
)

type logEntry struct {
	level string
	msg   string
	args  []any
}

// recordingLogger keeps every record in memory.
type recordingLogger struct {
	mu        sync.Mutex
	entries   []logEntry
	requests  int
	responses int
	caseID    string

	lastTiming map[string]float64
	lastBody   any
}

func (l *recordingLogger) add(level, msg string, args []any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, logEntry{level: level, msg: msg, args: args})
}

func (l *recordingLogger) Debug(msg string, args ...any)   { l.add("debug", msg, args) }
func (l *recordingLogger) Info(msg string, args ...any)    { l.add("info", msg, args) }
func (l *recordingLogger) Warning(msg string, args ...any) { l.add("warning", msg, args) }
func (l *recordingLogger) Error(msg string, args ...any)   { l.add("error", msg, args) }

func (l *recordingLogger) LogRequest(method, u string, headers map[string]string, params url.Values, body any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.requests++
}

func (l *recordingLogger) LogResponse(statusCode int, body any, timing map[string]float64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.responses++
	l.lastTiming = timing
	l.lastBody = body
}

func (l *recordingLogger) CaseID() string { return l.caseID }

// count returns how many entries at level contain substr.
func (l *recordingLogger) count(level, substr string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, e := range l.entries {
		if e.level == level && strings.Contains(e.msg, substr) {
			n++
		}
	}
	return n
}

func (l *recordingLogger) levelCount(level string) int {
	return l.count(level, "")
}
