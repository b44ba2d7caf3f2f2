package output

import (
	"fmt"
	"strings"
	"time"

	probehttp "github.com/wesleyorama2/apiprobe/http"
	"github.com/wesleyorama2/apiprobe/metrics"
)

var phaseLabels = map[string]string{
	probehttp.KeyDNSResolution:   "DNS Resolution",
	probehttp.KeyTCPConnection:   "TCP Connection",
	probehttp.KeySSLHandshake:    "SSL/TLS Handshake",
	probehttp.KeyRequestSend:     "Request Send",
	probehttp.KeyResponseReceive: "Response Receive",
	probehttp.KeyTotalTime:       "Total",
}

// FormatSample renders one line for a repeated request.
func FormatSample(n int, resp *probehttp.AugmentedResponse, err error, noColor bool) string {
	colors := DefaultColorScheme()
	if noColor {
		colors = NoColorScheme()
	}
	if err != nil {
		return fmt.Sprintf("  #%-4d %s %v\n", n, ErrorIcon(noColor), err)
	}
	summary := resp.Timing.Summary()
	return fmt.Sprintf("  #%-4d %s  %vms\n", n, colors.Status(resp.StatusCode).Sprint(resp.StatusCode), summary.TotalTime)
}

// FormatSnapshot renders per-phase percentiles for a run of samples.
// Phases without samples are omitted.
func FormatSnapshot(snap metrics.Snapshot, noColor bool) string {
	colors := DefaultColorScheme()
	if noColor {
		colors = NoColorScheme()
	}

	var buf strings.Builder
	fmt.Fprintf(&buf, "\nSamples: %d  Failed: %d\n", snap.TotalRequests, snap.FailedRequests)
	if len(snap.Phases) == 0 {
		return buf.String()
	}

	fmt.Fprintf(&buf, "  %-18s %10s %10s %10s %10s %10s\n", "Phase", "Min", "P50", "P95", "P99", "Max")
	for _, phase := range metrics.Phases {
		stats, ok := snap.Phases[phase]
		if !ok {
			continue
		}
		fmt.Fprintf(&buf, "  %s %10s %10s %10s %10s %10s\n",
			colors.Phase.Sprintf("%-18s", phaseLabels[phase]),
			ms(stats.Min), ms(stats.P50), ms(stats.P95), ms(stats.P99), ms(stats.Max))
	}
	return buf.String()
}

func ms(d time.Duration) string {
	return fmt.Sprintf("%.2fms", float64(d)/float64(time.Millisecond))
}
