package store

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	probehttp "github.com/wesleyorama2/apiprobe/http"
)

// newTestStore creates a store in a temporary directory.
func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), filepath.Join(t.TempDir(), "apiprobe-test.db"))
	require.NoError(t, err, "failed to init sqlite store")
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func exchange(caseID string, start time.Time, total time.Duration, err error) probehttp.Exchange {
	timing := probehttp.TimingRecord{
		StartTime:  start,
		DNSStart:   start,
		DNSEnd:     start.Add(12 * time.Millisecond),
		ReceiveEnd: start.Add(total),
	}
	ex := probehttp.Exchange{
		CaseID: caseID,
		Method: "GET",
		URL:    "https://httpbin.org/get",
		Err:    err,
		Timing: timing,
	}
	if err == nil {
		ex.StatusCode = 200
	}
	return ex
}

func TestStore_RecordAndList(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	start := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	require.NoError(t, s.Record(ctx, exchange("case-a", start.Add(time.Second), 80*time.Millisecond, nil)))
	require.NoError(t, s.Record(ctx, exchange("case-a", start, 50*time.Millisecond, errors.New("connection refused"))))
	require.NoError(t, s.Record(ctx, exchange("case-b", start, 10*time.Millisecond, nil)))

	rows, err := s.ListByCase(ctx, "case-a")
	require.NoError(t, err)
	require.Len(t, rows, 2)

	first := rows[0]
	assert.Equal(t, "case-a", first.CaseID)
	assert.Equal(t, "connection refused", first.Error)
	assert.Equal(t, 0, first.StatusCode)
	assert.True(t, start.Equal(first.StartedAt))
	assert.Equal(t, 12.0, first.Timing.DNSResolution)
	assert.Equal(t, 50.0, first.Timing.TotalTime)

	second := rows[1]
	assert.Empty(t, second.Error)
	assert.Equal(t, 200, second.StatusCode)
	assert.Equal(t, "https://httpbin.org/get", second.URL)
	assert.Equal(t, 80.0, second.Timing.TotalTime)
	assert.Zero(t, second.Timing.TCPConnection)
}

func TestStore_ListUnknownCase(t *testing.T) {
	s := newTestStore(t)

	rows, err := s.ListByCase(context.Background(), "missing")
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestStore_ReopenKeepsRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reopen.db")
	ctx := context.Background()

	s, err := Open(ctx, path)
	require.NoError(t, err)
	require.NoError(t, s.Record(ctx, exchange("case-a", time.Now(), time.Millisecond, nil)))
	require.NoError(t, s.Close())

	s, err = Open(ctx, path)
	require.NoError(t, err)
	defer s.Close()

	rows, err := s.ListByCase(ctx, "case-a")
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestStore_OpenInvalidPath(t *testing.T) {
	_, err := Open(context.Background(), filepath.Join(t.TempDir(), "missing", "dir", "x.db"))
	assert.Error(t, err)
}

func TestStore_ConcurrentRecord(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, s.Record(ctx, exchange("concurrent", time.Now(), time.Millisecond, nil)))
		}()
	}
	wg.Wait()

	rows, err := s.ListByCase(ctx, "concurrent")
	require.NoError(t, err)
	assert.Len(t, rows, 20)
}

func TestStore_IsARecorder(t *testing.T) {
	var _ probehttp.Recorder = (*Store)(nil)
}
