// Package logging provides the test-case aware logger used by the
// timing client, the CLI and the apitest helpers.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// LevelCritical sits above slog.LevelError.
const LevelCritical = slog.Level(12)

// CaseIDKey is the attribute carrying the active test case ID.
const CaseIDKey = "case_id"

// LevelName returns the display name of level.
func LevelName(level slog.Level) string {
	switch level {
	case slog.LevelDebug:
		return "DEBUG"
	case slog.LevelInfo:
		return "INFO"
	case slog.LevelWarn:
		return "WARNING"
	case slog.LevelError:
		return "ERROR"
	case LevelCritical:
		return "CRITICAL"
	default:
		return level.String()
	}
}

// Options configures a CaseLogger.
type Options struct {
	// Console receives human readable output. Defaults to os.Stdout.
	Console io.Writer

	// Dir is where per-case log files are written. Empty disables them.
	Dir string

	// Level is the minimum level emitted. Nil means debug.
	Level slog.Leveler

	// NoColor disables level coloring even on a terminal.
	NoColor bool
}

// CaseLogger writes leveled, structured records to the console and, while
// a test case is active, to that case's log file.
type CaseLogger struct {
	mu      sync.Mutex
	dir     string
	level   slog.Leveler
	console slog.Handler
	file    *os.File
	fileH   slog.Handler
	caseID  string
	logPath string
	now     func() time.Time

	slog *slog.Logger
}

// New creates a CaseLogger with no active test case.
func New(opts Options) *CaseLogger {
	if opts.Console == nil {
		opts.Console = os.Stdout
	}
	if opts.Level == nil {
		opts.Level = slog.LevelDebug
	}

	l := &CaseLogger{
		dir:   opts.Dir,
		level: opts.Level,
		now:   time.Now,
	}
	l.console = newConsoleHandler(opts.Console, l.level, opts.NoColor)
	l.slog = slog.New(&caseHandler{logger: l})
	return l
}

// Slog returns a *slog.Logger that writes through this CaseLogger.
func (l *CaseLogger) Slog() *slog.Logger {
	return l.slog
}

// CaseID returns the active test case ID, or "" between cases.
func (l *CaseLogger) CaseID() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.caseID
}

// LogFile returns the active case's log file path, or "".
func (l *CaseLogger) LogFile() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.logPath
}

// StartTestCase begins a new test case and returns its ID. A case that is
// still active is ended first.
func (l *CaseLogger) StartTestCase(name string) (string, error) {
	if err := l.EndTestCase(); err != nil {
		return "", err
	}

	caseID := fmt.Sprintf("test_%s_%s", l.now().Format("20060102_150405"), uuid.NewString()[:8])

	l.mu.Lock()
	if l.dir != "" {
		if err := os.MkdirAll(l.dir, 0o755); err != nil {
			l.mu.Unlock()
			return "", fmt.Errorf("failed to create log directory: %w", err)
		}

		path := filepath.Join(l.dir, fmt.Sprintf("%s_%s.log", caseID, fileSafe(name)))
		file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			l.mu.Unlock()
			return "", fmt.Errorf("failed to open case log file: %w", err)
		}

		l.file = file
		l.logPath = path
		l.fileH = slog.NewJSONHandler(file, &slog.HandlerOptions{
			Level:       l.level,
			ReplaceAttr: replaceLevel,
		})
	}
	l.caseID = caseID
	l.mu.Unlock()

	l.Info("Starting test: " + name)
	l.separator("test start")
	return caseID, nil
}

// EndTestCase closes the active case. It is a no-op between cases.
func (l *CaseLogger) EndTestCase() error {
	if l.CaseID() == "" {
		return nil
	}
	l.separator("test end")

	l.mu.Lock()
	defer l.mu.Unlock()

	var err error
	if l.file != nil {
		err = l.file.Close()
	}
	l.file = nil
	l.fileH = nil
	l.logPath = ""
	l.caseID = ""
	return err
}

// Debug logs msg at debug level.
func (l *CaseLogger) Debug(msg string, args ...any) { l.log(slog.LevelDebug, msg, args...) }

// Info logs msg at info level.
func (l *CaseLogger) Info(msg string, args ...any) { l.log(slog.LevelInfo, msg, args...) }

// Warning logs msg at warning level.
func (l *CaseLogger) Warning(msg string, args ...any) { l.log(slog.LevelWarn, msg, args...) }

// Error logs msg at error level.
func (l *CaseLogger) Error(msg string, args ...any) { l.log(slog.LevelError, msg, args...) }

// Critical logs msg at the CRITICAL level above error.
func (l *CaseLogger) Critical(msg string, args ...any) { l.log(LevelCritical, msg, args...) }

// LogRequest records an outgoing request.
func (l *CaseLogger) LogRequest(method, u string, headers map[string]string, params url.Values, body any) {
	if headers == nil {
		headers = map[string]string{}
	}
	if params == nil {
		params = url.Values{}
	}
	if body == nil {
		body = map[string]any{}
	}

	l.separator("request data")
	l.Debug("API Request Details",
		"method", method,
		"url", u,
		"headers", headers,
		"params", params,
		"data", body,
	)
}

// LogResponse records a completed exchange and, when timing is present,
// its per-phase breakdown.
func (l *CaseLogger) LogResponse(statusCode int, body any, timing map[string]float64) {
	l.separator("response data")
	l.Debug("API Response Details",
		"status_code", statusCode,
		"response", body,
	)

	if timing == nil {
		return
	}
	l.separator("performance analysis")
	l.Debug("Request Timing Breakdown",
		"DNS Resolution", ms(timing["dns_resolution"]),
		"TCP Connection", ms(timing["tcp_connection"]),
		"SSL/TLS Handshake", ms(timing["ssl_handshake"]),
		"Request Send", ms(timing["request_send"]),
		"Response Receive", ms(timing["response_receive"]),
		"Total Time", ms(timing["total_time"]),
	)
}

func (l *CaseLogger) separator(title string) {
	bar := strings.Repeat("=", 50)
	l.Debug(bar + " " + title + " " + bar)
}

func (l *CaseLogger) log(level slog.Level, msg string, args ...any) {
	l.slog.Log(context.Background(), level, msg, args...)
}

func ms(v float64) string {
	return fmt.Sprintf("%vms", v)
}

// fileSafe replaces path separators so subtest names stay in one file.
func fileSafe(name string) string {
	return strings.NewReplacer("/", "_", `\`, "_", " ", "_").Replace(name)
}

func replaceLevel(groups []string, a slog.Attr) slog.Attr {
	if a.Key == slog.LevelKey && len(groups) == 0 {
		if level, ok := a.Value.Any().(slog.Level); ok {
			a.Value = slog.StringValue(LevelName(level))
		}
	}
	return a
}

// caseHandler fans records out to the console and the active case file.
type caseHandler struct {
	logger *CaseLogger
	attrs  []slog.Attr
	group  string
}

func (h *caseHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.logger.level.Level()
}

func (h *caseHandler) Handle(ctx context.Context, r slog.Record) error {
	l := h.logger
	l.mu.Lock()
	defer l.mu.Unlock()

	var caseAttrs []slog.Attr
	if l.caseID != "" {
		caseAttrs = []slog.Attr{slog.String(CaseIDKey, l.caseID)}
	}

	err := h.scope(l.console, caseAttrs).Handle(ctx, r.Clone())
	if l.fileH != nil {
		if ferr := h.scope(l.fileH, caseAttrs).Handle(ctx, r); ferr != nil && err == nil {
			err = ferr
		}
	}
	return err
}

// scope applies the case attrs, then the handler's attrs and group, to target.
func (h *caseHandler) scope(target slog.Handler, caseAttrs []slog.Attr) slog.Handler {
	if len(caseAttrs) > 0 {
		target = target.WithAttrs(caseAttrs)
	}
	if len(h.attrs) > 0 {
		target = target.WithAttrs(h.attrs)
	}
	if h.group != "" {
		target = target.WithGroup(h.group)
	}
	return target
}

func (h *caseHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.attrs = append(append([]slog.Attr{}, h.attrs...), attrs...)
	return &clone
}

func (h *caseHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	if clone.group != "" {
		name = clone.group + "." + name
	}
	clone.group = name
	return &clone
}
