package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/wesleyorama2/apiprobe/config"
	probehttp "github.com/wesleyorama2/apiprobe/http"
	"github.com/wesleyorama2/apiprobe/internal/output"
	"github.com/wesleyorama2/apiprobe/internal/pacer"
	"github.com/wesleyorama2/apiprobe/logging"
	"github.com/wesleyorama2/apiprobe/metrics"
	"github.com/wesleyorama2/apiprobe/pkg/expect"
	"github.com/wesleyorama2/apiprobe/store"
)

// requestFlags holds the flags shared by every request command.
type requestFlags struct {
	headers      []string
	query        []string
	data         string
	timeout      time.Duration
	insecure     bool
	noColor      bool
	verbose      bool
	format       string
	configDir    string
	env          string
	region       string
	logDir       string
	expectStatus int
	metricsFile  string
	storePath    string
	repeat       int
	rate         float64
}

func (f *requestFlags) register(cmd *cobra.Command, withBody bool) {
	flags := cmd.Flags()
	flags.StringArrayVarP(&f.headers, "header", "H", []string{}, "HTTP headers to include (can be used multiple times)")
	flags.StringArrayVarP(&f.query, "query", "q", []string{}, "Query parameters as key=value (can be used multiple times)")
	if withBody {
		flags.StringVarP(&f.data, "data", "d", "", "Request body, sent as-is")
	}
	flags.DurationVarP(&f.timeout, "timeout", "t", 30*time.Second, "Request timeout")
	flags.BoolVarP(&f.insecure, "insecure", "k", false, "Skip TLS certificate verification")
	flags.BoolVar(&f.noColor, "no-color", false, "Disable colored output")
	flags.BoolVarP(&f.verbose, "verbose", "v", false, "Show timing breakdown, headers and log records")
	flags.StringVarP(&f.format, "output", "o", string(output.FormatText), "Output format (text, json, yaml)")
	flags.StringVar(&f.configDir, "config-dir", "", "Settings directory containing environments/<region>/<env>.yaml")
	flags.StringVar(&f.env, "env", "", "Settings environment (default $TEST_ENV or test)")
	flags.StringVar(&f.region, "region", "", "Settings region (default $TEST_REGION or cn)")
	flags.StringVar(&f.logDir, "log-dir", "", "Write a per-run case log file to this directory")
	flags.IntVar(&f.expectStatus, "expect-status", 0, "Fail unless the response has this status code")
	flags.StringVar(&f.metricsFile, "metrics-file", "", "Write phase metrics in Prometheus text format to this file")
	flags.StringVar(&f.storePath, "store", "", "Record the exchange in this SQLite database")
	flags.IntVarP(&f.repeat, "repeat", "n", 1, "Send the request this many times and print phase percentiles")
	flags.Float64Var(&f.rate, "rate", 0, "Requests per second when repeating (0 sends back to back)")
}

func newRequestCmd() *cobra.Command {
	flags := &requestFlags{}
	cmd := &cobra.Command{
		Use:   "request METHOD URL",
		Short: "Make a timed request with any HTTP method",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRequest(cmd, flags, strings.ToUpper(args[0]), args[1])
		},
	}
	flags.register(cmd, true)
	return cmd
}

func newMethodCmd(method string) *cobra.Command {
	flags := &requestFlags{}
	withBody := method == "POST" || method == "PUT" || method == "PATCH"
	cmd := &cobra.Command{
		Use:   strings.ToLower(method) + " URL",
		Short: fmt.Sprintf("Make a timed %s request to the specified URL", method),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRequest(cmd, flags, method, args[0])
		},
	}
	flags.register(cmd, withBody)
	return cmd
}

func runRequest(cmd *cobra.Command, flags *requestFlags, method, rawURL string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	stdout := cmd.OutOrStdout()
	stderr := cmd.ErrOrStderr()

	settings, err := loadSettings(cmd, flags)
	if err != nil {
		return err
	}

	headers, err := parseHeaders(flags.headers)
	if err != nil {
		return err
	}
	query, err := parseQuery(flags.query)
	if err != nil {
		return err
	}

	var configuredBase string
	clientHeaders := map[string]string{}
	timeout := flags.timeout
	insecure := flags.insecure
	if settings != nil {
		configuredBase = settings.API.BaseURL
		clientHeaders = settings.API.Headers
		if t := settings.API.Timeout.Std(); t > 0 && !cmd.Flags().Changed("timeout") {
			timeout = t
		}
		insecure = insecure || settings.API.InsecureSkipVerify
	}
	baseURL, path := resolveTarget(rawURL, configuredBase)

	console := io.Discard
	if flags.verbose {
		console = stderr
	}
	logger := logging.New(logging.Options{Console: console, Dir: flags.logDir, NoColor: flags.noColor})
	if flags.logDir != "" {
		caseID, err := logger.StartTestCase("cli_" + strings.ToLower(method))
		if err != nil {
			return err
		}
		defer func() {
			if err := logger.EndTestCase(); err != nil {
				fmt.Fprintf(stderr, "Error: %v\n", err)
			}
		}()
		logger.Slog().Info("Running request", slog.String("method", method), slog.String("url", rawURL), slog.String("case", caseID))
	}

	clientOptions := []probehttp.ClientOption{
		probehttp.WithBaseURL(baseURL),
		probehttp.WithHeaders(clientHeaders),
		probehttp.WithTimeout(timeout),
		probehttp.WithLogger(logger),
	}
	if insecure {
		clientOptions = append(clientOptions, probehttp.WithInsecureSkipVerify())
	}

	if flags.repeat < 1 {
		return fmt.Errorf("--repeat must be at least 1, got %d", flags.repeat)
	}

	var (
		registry  *prometheus.Registry
		collector *metrics.Collector
	)
	if flags.metricsFile != "" || flags.repeat > 1 {
		registry = prometheus.NewRegistry()
		collector = metrics.NewCollector(registry)
		clientOptions = append(clientOptions, probehttp.WithRecorder(collector))
	}
	if flags.storePath != "" {
		st, err := store.Open(ctx, flags.storePath)
		if err != nil {
			return err
		}
		defer st.Close()
		clientOptions = append(clientOptions, probehttp.WithRecorder(st))
	}

	client := probehttp.NewClient(clientOptions...)
	defer client.Close()

	req := probehttp.NewRequest(method, path).WithHeaders(headers)
	for key, values := range query {
		for _, value := range values {
			req.WithQueryParam(key, value)
		}
	}
	if flags.data != "" {
		req.WithBody(flags.data)
	}

	formatter := output.GetFormatter(output.OutputFormat(flags.format), flags.verbose, flags.noColor)
	if flags.verbose || flags.format == string(output.FormatText) {
		fullURL := baseURL + path
		if u, err := req.URL(baseURL); err == nil {
			fullURL = u.String()
		}
		fmt.Fprint(stdout, formatter.FormatRequest(req, fullURL))
	}

	if flags.repeat > 1 {
		return runSamples(ctx, stdout, flags, client, req, collector, registry)
	}

	resp, reqErr := client.Do(ctx, req)

	if err := writeMetrics(flags, registry); err != nil {
		return err
	}

	if reqErr != nil {
		fmt.Fprintf(stderr, "%s %v\n", output.ErrorIcon(flags.noColor), reqErr)
		return reqErr
	}

	fmt.Fprint(stdout, formatter.FormatResponse(resp))

	if flags.expectStatus != 0 {
		if err := expect.Status(resp, flags.expectStatus); err != nil {
			fmt.Fprintf(stderr, "%s %v\n", output.ErrorIcon(flags.noColor), err)
			return err
		}
		fmt.Fprintf(stdout, "%s status %d\n", output.SuccessIcon(flags.noColor), resp.StatusCode)
	}
	return nil
}

// runSamples sends req flags.repeat times, paced at flags.rate, and prints
// one line per sample followed by the phase percentiles.
func runSamples(ctx context.Context, stdout io.Writer, flags *requestFlags, client *probehttp.Client, req *probehttp.Request, collector *metrics.Collector, registry *prometheus.Registry) error {
	p := pacer.New(flags.rate)
	var mismatched int
	for i := 1; i <= flags.repeat; i++ {
		if err := p.Wait(ctx); err != nil {
			return err
		}
		resp, err := client.Do(ctx, req)
		fmt.Fprint(stdout, output.FormatSample(i, resp, err, flags.noColor))
		if err == nil && flags.expectStatus != 0 && resp.StatusCode != flags.expectStatus {
			mismatched++
		}
	}

	fmt.Fprint(stdout, output.FormatSnapshot(collector.Snapshot(), flags.noColor))

	if err := writeMetrics(flags, registry); err != nil {
		return err
	}

	snap := collector.Snapshot()
	if snap.FailedRequests > 0 {
		return fmt.Errorf("%d of %d requests failed", snap.FailedRequests, snap.TotalRequests)
	}
	if mismatched > 0 {
		return fmt.Errorf("%d of %d responses did not have status code %d", mismatched, flags.repeat, flags.expectStatus)
	}
	return nil
}

func writeMetrics(flags *requestFlags, registry *prometheus.Registry) error {
	if flags.metricsFile == "" || registry == nil {
		return nil
	}
	if err := prometheus.WriteToTextfile(flags.metricsFile, registry); err != nil {
		return fmt.Errorf("failed to write metrics file: %w", err)
	}
	return nil
}

// loadSettings loads settings when any settings flag is given.
func loadSettings(cmd *cobra.Command, flags *requestFlags) (*config.Settings, error) {
	if flags.configDir == "" {
		if cmd.Flags().Changed("env") || cmd.Flags().Changed("region") {
			return nil, fmt.Errorf("--env and --region require --config-dir")
		}
		return nil, nil
	}

	selection := config.SelectionFromEnv(os.LookupEnv)
	if flags.env != "" {
		selection.Env = flags.env
	}
	if flags.region != "" {
		selection.Region = flags.region
	}

	settings, err := config.Load(flags.configDir, selection)
	if err != nil {
		return nil, err
	}
	if errs := config.Validate(settings); len(errs) > 0 {
		return nil, errs[0]
	}
	return settings, nil
}
