package expect

import (
	"fmt"
	"time"

	probehttp "github.com/wesleyorama2/apiprobe/http"
)

// Status checks the response status code.
func Status(resp *probehttp.AugmentedResponse, want int) error {
	if resp == nil {
		return fmt.Errorf("expected status code %d, got no response", want)
	}
	if resp.StatusCode != want {
		return fmt.Errorf("expected status code %d, got %d", want, resp.StatusCode)
	}
	return nil
}

// MaxTotal checks that the whole exchange took at most max.
func MaxTotal(resp *probehttp.AugmentedResponse, max time.Duration) error {
	if resp == nil {
		return fmt.Errorf("expected total time <= %v, got no response", max)
	}
	if total := resp.TotalTime(); total > max {
		return fmt.Errorf("expected total time <= %v, got %v", max, total)
	}
	return nil
}

// MaxPhase checks one phase, named by its timing key (e.g. "dns_resolution").
func MaxPhase(resp *probehttp.AugmentedResponse, phase string, max time.Duration) error {
	if resp == nil {
		return fmt.Errorf("expected %s <= %v, got no response", phase, max)
	}

	ms, ok := resp.Timing.Map()[phase]
	if !ok {
		return fmt.Errorf("unknown timing phase: %s", phase)
	}
	got := time.Duration(ms * float64(time.Millisecond))
	if got > max {
		return fmt.Errorf("expected %s <= %v, got %v", phase, max, got)
	}
	return nil
}
