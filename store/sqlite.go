// Package store persists timed exchanges to SQLite so runs can be compared
// after the fact.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelsql"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"
	_ "modernc.org/sqlite"

	probehttp "github.com/wesleyorama2/apiprobe/http"
)

const (
	createExchangesTableStmt = `
		CREATE TABLE IF NOT EXISTS exchanges (
			case_id TEXT NOT NULL,
			method TEXT NOT NULL,
			url TEXT NOT NULL,
			status_code INTEGER,
			error TEXT,
			started_at INTEGER NOT NULL,
			dns_ms REAL,
			connect_ms REAL,
			ssl_ms REAL,
			send_ms REAL,
			receive_ms REAL,
			total_ms REAL
		);
	`
	createExchangesIndexStmt = `
		CREATE INDEX IF NOT EXISTS idx_exchanges_case_id ON exchanges (case_id, started_at);
	`
	configureSqliteStmt = `
		PRAGMA journal_mode = WAL;
		PRAGMA synchronous = normal;
	`
)

// Store writes exchanges to a SQLite database. It satisfies
// probehttp.Recorder.
type Store struct {
	mu sync.RWMutex
	db *sql.DB
}

// Row is one persisted exchange.
type Row struct {
	CaseID     string
	Method     string
	URL        string
	StatusCode int
	Error      string
	StartedAt  time.Time
	Timing     probehttp.Summary
}

// Open opens (creating if needed) the database at path.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := otelsql.Open("sqlite", path, otelsql.WithAttributes(semconv.DBSystemSqlite))
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping sqlite database: %w", err)
	}

	if _, err := db.ExecContext(ctx, configureSqliteStmt); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to configure sqlite database: %w", err)
	}

	if _, err := db.ExecContext(ctx, createExchangesTableStmt); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create exchanges table: %w", err)
	}

	if _, err := db.ExecContext(ctx, createExchangesIndexStmt); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create exchanges index: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Record inserts one exchange.
func (s *Store) Record(ctx context.Context, ex probehttp.Exchange) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var errText string
	if ex.Err != nil {
		errText = ex.Err.Error()
	}
	timing := ex.Timing.Summary()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO exchanges (
			case_id, method, url, status_code, error, started_at, dns_ms, connect_ms, ssl_ms, send_ms, receive_ms, total_ms
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ex.CaseID,
		ex.Method,
		ex.URL,
		ex.StatusCode,
		errText,
		ex.StartedAt().UnixNano(),
		timing.DNSResolution,
		timing.TCPConnection,
		timing.SSLHandshake,
		timing.RequestSend,
		timing.ResponseReceive,
		timing.TotalTime,
	)
	if err != nil {
		return fmt.Errorf("failed to insert exchange: %w", err)
	}
	return nil
}

// ListByCase returns the exchanges of one test case in start order.
func (s *Store) ListByCase(ctx context.Context, caseID string) ([]Row, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT case_id, method, url, status_code, error, started_at, dns_ms, connect_ms, ssl_ms, send_ms, receive_ms, total_ms
		FROM exchanges
		WHERE case_id = ?
		ORDER BY started_at, rowid`, caseID)
	if err != nil {
		return nil, fmt.Errorf("failed to query exchanges: %w", err)
	}
	defer rows.Close()

	var result []Row
	for rows.Next() {
		var (
			r         Row
			startedAt int64
		)
		if err := rows.Scan(
			&r.CaseID, &r.Method, &r.URL, &r.StatusCode, &r.Error, &startedAt,
			&r.Timing.DNSResolution, &r.Timing.TCPConnection, &r.Timing.SSLHandshake,
			&r.Timing.RequestSend, &r.Timing.ResponseReceive, &r.Timing.TotalTime,
		); err != nil {
			return nil, fmt.Errorf("failed to scan exchange: %w", err)
		}
		r.StartedAt = time.Unix(0, startedAt)
		result = append(result, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate exchanges: %w", err)
	}
	return result, nil
}
