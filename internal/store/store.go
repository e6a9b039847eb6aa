// Package store persists synthesis runs and their synthesized route-maps in
// PostgreSQL. Run payloads (the full result JSON) are zstd-compressed when
// configured.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/klauspost/compress/zstd"
	"github.com/route-beacon/bgp-synth/internal/metrics"
	"go.uber.org/zap"
)

var (
	zstdEncoder, _ = zstd.NewWriter(nil)
	zstdDecoder, _ = zstd.NewReader(nil)
)

// Run statuses.
const (
	StatusSucceeded = "succeeded"
	StatusViolated  = "violated"
	StatusFailed    = "failed"
)

type Store struct {
	pool     *pgxpool.Pool
	logger   *zap.Logger
	compress bool
}

func New(pool *pgxpool.Pool, logger *zap.Logger, compress bool) *Store {
	return &Store{pool: pool, logger: logger, compress: compress}
}

// Run is one persisted synthesis attempt.
type Run struct {
	ID         int64
	Digest     []byte // 32-byte SHA256 of the request body
	Source     string // "http" or "kafka"
	Status     string
	Violations int
	Prefixes   int
	ASPaths    int
	DurationMs int64
	CreatedAt  time.Time
}

// RouteMapRow is one synthesized route-map attached to a run.
type RouteMapRow struct {
	Node    string
	Name    string
	Payload []byte // route-map JSON per the persisted format
}

// FindSucceededRun returns the most recent succeeded run with the given
// request digest, or nil when none exists.
func (s *Store) FindSucceededRun(ctx context.Context, digest []byte) (*Run, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, digest, source, status, violations, prefixes, as_paths, duration_ms, created_at
		FROM synth_runs
		WHERE digest = $1 AND status = $2
		ORDER BY created_at DESC
		LIMIT 1`,
		digest, StatusSucceeded,
	)
	var r Run
	err := row.Scan(&r.ID, &r.Digest, &r.Source, &r.Status, &r.Violations,
		&r.Prefixes, &r.ASPaths, &r.DurationMs, &r.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: querying run by digest: %w", err)
	}
	return &r, nil
}

// InsertRun stores a run, its result payload, and its route-maps in one
// transaction, returning the run ID.
func (s *Store) InsertRun(ctx context.Context, run *Run, resultJSON []byte, routeMaps []RouteMapRow) (int64, error) {
	start := time.Now()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("store: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	payload := resultJSON
	if s.compress && len(payload) > 0 {
		payload = zstdEncoder.EncodeAll(resultJSON, nil)
	}

	var id int64
	err = tx.QueryRow(ctx, `
		INSERT INTO synth_runs (digest, source, status, violations, prefixes, as_paths,
			duration_ms, payload, payload_compressed, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, now())
		RETURNING id`,
		run.Digest, run.Source, run.Status, run.Violations, run.Prefixes,
		run.ASPaths, run.DurationMs, payload, s.compress,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("store: insert synth_run: %w", err)
	}

	var mapRows int64
	for _, rm := range routeMaps {
		tag, err := tx.Exec(ctx, `
			INSERT INTO synth_route_maps (run_id, node, name, payload)
			VALUES ($1, $2, $3, $4)`,
			id, rm.Node, rm.Name, rm.Payload,
		)
		if err != nil {
			return 0, fmt.Errorf("store: insert synth_route_map %s/%s: %w", rm.Node, rm.Name, err)
		}
		mapRows += tag.RowsAffected()
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("store: commit tx: %w", err)
	}

	dur := time.Since(start).Seconds()
	metrics.DBWriteDuration.WithLabelValues("insert").Observe(dur)
	metrics.DBRowsAffectedTotal.WithLabelValues("synth_runs", "insert").Add(1)
	metrics.DBRowsAffectedTotal.WithLabelValues("synth_route_maps", "insert").Add(float64(mapRows))

	return id, nil
}

// RunResult returns the decompressed result payload of a run.
func (s *Store) RunResult(ctx context.Context, id int64) ([]byte, error) {
	var payload []byte
	var compressed bool
	err := s.pool.QueryRow(ctx,
		`SELECT payload, payload_compressed FROM synth_runs WHERE id = $1`, id,
	).Scan(&payload, &compressed)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("store: run %d not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("store: querying run %d: %w", id, err)
	}
	if !compressed {
		return payload, nil
	}
	out, err := zstdDecoder.DecodeAll(payload, nil)
	if err != nil {
		return nil, fmt.Errorf("store: decompressing run %d payload: %w", id, err)
	}
	return out, nil
}

// RouteMaps returns a run's synthesized route-maps ordered by (node, name).
func (s *Store) RouteMaps(ctx context.Context, runID int64) ([]RouteMapRow, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT node, name, payload FROM synth_route_maps
		WHERE run_id = $1
		ORDER BY node, name`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("store: querying route maps for run %d: %w", runID, err)
	}
	defer rows.Close()

	var out []RouteMapRow
	for rows.Next() {
		var rm RouteMapRow
		if err := rows.Scan(&rm.Node, &rm.Name, &rm.Payload); err != nil {
			return nil, fmt.Errorf("store: scanning route map row: %w", err)
		}
		out = append(out, rm)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: iterating route map rows: %w", err)
	}
	return out, nil
}
