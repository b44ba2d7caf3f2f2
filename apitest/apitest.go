// Package apitest wires the timed client, the case logger and settings
// into Go tests.
//
//	func TestGetUser(t *testing.T) {
//	    settings := apitest.LoadSettings(t, "config")
//	    tc := apitest.Setup(t, settings)
//
//	    resp, err := tc.Client.Get(t.Context(), "/users/1")
//	    require.NoError(t, err)
//	    tc.VerifyResponse(resp, 200)
//	}
//
// Each test gets its own client and test case. Both are closed by
// t.Cleanup.
package apitest

import (
	"io"
	"os"
	"testing"

	"github.com/wesleyorama2/apiprobe/config"
	probehttp "github.com/wesleyorama2/apiprobe/http"
	"github.com/wesleyorama2/apiprobe/logging"
	"github.com/wesleyorama2/apiprobe/pkg/expect"
)

// DefaultLogDir is where case log files go unless overridden.
const DefaultLogDir = "logs"

// Case is the per-test state returned by Setup.
type Case struct {
	tb testing.TB

	Client   *probehttp.Client
	Logger   *logging.CaseLogger
	Settings *config.Settings
	CaseID   string
}

// Option configures Setup.
type Option func(*options)

type options struct {
	logger        *logging.CaseLogger
	logDir        string
	console       io.Writer
	clientOptions []probehttp.ClientOption
}

// WithLogger shares an existing logger instead of creating one per test.
func WithLogger(logger *logging.CaseLogger) Option {
	return func(o *options) { o.logger = logger }
}

// WithLogDir sets the case log directory. An empty dir disables case files.
func WithLogDir(dir string) Option {
	return func(o *options) { o.logDir = dir }
}

// WithConsole redirects console log output.
func WithConsole(w io.Writer) Option {
	return func(o *options) { o.console = w }
}

// WithClientOptions appends client options after the ones derived from
// settings.
func WithClientOptions(opts ...probehttp.ClientOption) Option {
	return func(o *options) { o.clientOptions = append(o.clientOptions, opts...) }
}

// LoadSettings loads the settings selected by TEST_ENV and TEST_REGION
// from dir, failing the test on any error.
func LoadSettings(tb testing.TB, dir string) *config.Settings {
	tb.Helper()

	settings, err := config.Load(dir, config.SelectionFromEnv(os.LookupEnv))
	if err != nil {
		tb.Fatalf("failed to load settings: %v", err)
	}
	if errs := config.Validate(settings); len(errs) > 0 {
		for _, e := range errs {
			tb.Errorf("invalid settings: %s", e)
		}
		tb.FailNow()
	}
	return settings
}

// Setup starts a test case named after tb and builds a client from
// settings.
func Setup(tb testing.TB, settings *config.Settings, opts ...Option) *Case {
	tb.Helper()

	o := options{logDir: DefaultLogDir, console: os.Stdout}
	for _, opt := range opts {
		opt(&o)
	}

	logger := o.logger
	if logger == nil {
		logger = logging.New(logging.Options{Console: o.console, Dir: o.logDir})
	}

	caseID, err := logger.StartTestCase(tb.Name())
	if err != nil {
		tb.Fatalf("failed to start test case: %v", err)
	}

	clientOptions := []probehttp.ClientOption{
		probehttp.WithBaseURL(settings.API.BaseURL),
		probehttp.WithHeaders(settings.API.Headers),
		probehttp.WithLogger(logger),
	}
	if timeout := settings.API.Timeout.Std(); timeout > 0 {
		clientOptions = append(clientOptions, probehttp.WithTimeout(timeout))
	}
	if settings.API.InsecureSkipVerify {
		clientOptions = append(clientOptions, probehttp.WithInsecureSkipVerify())
	}
	client := probehttp.NewClient(append(clientOptions, o.clientOptions...)...)

	tb.Cleanup(func() {
		if err := client.Close(); err != nil {
			tb.Errorf("failed to close client: %v", err)
		}
		if err := logger.EndTestCase(); err != nil {
			tb.Errorf("failed to end test case: %v", err)
		}
	})

	return &Case{
		tb:       tb,
		Client:   client,
		Logger:   logger,
		Settings: settings,
		CaseID:   caseID,
	}
}

// VerifyResponse fails the test unless resp has the expected status.
func (c *Case) VerifyResponse(resp *probehttp.AugmentedResponse, expected int) {
	c.tb.Helper()
	if err := expect.Status(resp, expected); err != nil {
		c.tb.Error(err)
	}
}
