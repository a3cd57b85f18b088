package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/roach88/churnpipe/internal/features"
)

// ErrRunNotFound is returned when the requested run id has no row.
var ErrRunNotFound = fmt.Errorf("run not found")

// ListRuns returns all recorded runs, newest first.
func (s *Store) ListRuns(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, created_at, prev_month, curr_month, sessions, events
		FROM runs
		ORDER BY created_at DESC, id DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("list runs: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return runs, nil
}

// GetRun returns one run's metadata.
func (s *Store) GetRun(ctx context.Context, runID string) (Run, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, created_at, prev_month, curr_month, sessions, events
		FROM runs WHERE id = ?
	`, runID)
	run, err := scanRun(row)
	if err == sql.ErrNoRows {
		return Run{}, fmt.Errorf("get run %s: %w", runID, ErrRunNotFound)
	}
	if err != nil {
		return Run{}, fmt.Errorf("get run %s: %w", runID, err)
	}
	return run, nil
}

// LatestRun returns the most recent run, or ErrRunNotFound on an empty store.
func (s *Store) LatestRun(ctx context.Context) (Run, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, created_at, prev_month, curr_month, sessions, events
		FROM runs
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`)
	run, err := scanRun(row)
	if err == sql.ErrNoRows {
		return Run{}, fmt.Errorf("latest run: %w", ErrRunNotFound)
	}
	if err != nil {
		return Run{}, fmt.Errorf("latest run: %w", err)
	}
	return run, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (Run, error) {
	var (
		run       Run
		createdAt string
		prev      int
		curr      int
	)
	if err := row.Scan(&run.ID, &createdAt, &prev, &curr, &run.Sessions, &run.Events); err != nil {
		return Run{}, err
	}
	t, err := time.Parse(time.RFC3339, createdAt)
	if err != nil {
		return Run{}, fmt.Errorf("parse created_at %q: %w", createdAt, err)
	}
	run.CreatedAt = t
	run.PrevMonth = time.Month(prev)
	run.CurrMonth = time.Month(curr)
	return run, nil
}

// runPrefixes reconstructs the block column layout of a run.
func (s *Store) runPrefixes(ctx context.Context, runID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT prefix FROM run_blocks
		WHERE run_id = ?
		ORDER BY position
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("run blocks: %w", err)
	}
	defer rows.Close()

	var prefixes []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, fmt.Errorf("run blocks: %w", err)
		}
		prefixes = append(prefixes, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("run blocks: %w", err)
	}
	if len(prefixes) == 0 {
		return nil, fmt.Errorf("run %s: %w", runID, ErrRunNotFound)
	}
	return prefixes, nil
}

// ReadFeatures loads a run's feature table, rows ordered by session id.
func (s *Store) ReadFeatures(ctx context.Context, runID string) (*features.Table, error) {
	prefixes, err := s.runPrefixes(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("read features: %w", err)
	}

	cols := featureColumns(prefixes)
	query := fmt.Sprintf(
		"SELECT %s FROM session_features WHERE run_id = ? ORDER BY session_id",
		strings.Join(cols, ", "),
	)
	rows, err := s.db.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("read features: %w", err)
	}
	defer rows.Close()

	untouched := features.BlockMetrics{MaxStep: features.MaxStepUnused}
	table := &features.Table{Prefixes: prefixes}
	for rows.Next() {
		var (
			id         string
			r          features.Row
			firstEvent string
			age        sql.NullInt64
			lost       int
			stay       int
			isNew      int
		)
		numeric := make([]int64, len(prefixes)*len(features.Metrics)+1)

		dest := []any{
			&id, &r.SessionID, &r.DeviceID, &r.SessionNum, &firstEvent,
			&r.Manufacturer, &r.Model, &r.DeviceType, &r.OS, &age, &r.Gender,
			&lost, &stay, &isNew,
		}
		for i := range numeric {
			dest = append(dest, &numeric[i])
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("read features: scan: %w", err)
		}

		t, err := time.Parse(time.RFC3339, firstEvent)
		if err != nil {
			return nil, fmt.Errorf("read features: first_event %q: %w", firstEvent, err)
		}
		r.FirstEvent = t
		if age.Valid {
			v := int(age.Int64)
			r.Age = &v
		}
		r.IsLost = lost != 0
		r.IsStay = stay != 0
		r.IsNew = isNew != 0

		r.Blocks = make(map[string]features.BlockMetrics)
		for i, prefix := range prefixes {
			vals := numeric[i*len(features.Metrics) : (i+1)*len(features.Metrics)]
			m := features.BlockMetrics{
				Count:        vals[0],
				MaxStep:      vals[1],
				SuccessCount: vals[2],
				ReviewCount:  vals[3],
				DurSec:       vals[4],
				ClickCount:   vals[5],
				DblDurSec:    vals[6],
				DblCount:     vals[7],
			}
			if m != untouched {
				r.Blocks[prefix] = m
			}
		}
		r.SessDurSec = numeric[len(numeric)-1]

		table.Rows = append(table.Rows, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read features: %w", err)
	}
	return table, nil
}

// CohortCounts holds per-run cohort tallies over unique devices.
type CohortCounts struct {
	Lost    int `json:"lost"`
	Stayed  int `json:"stayed"`
	New     int `json:"new"`
	Other   int `json:"other"`
	Devices int `json:"devices"`
}

// ReadCohortCounts tallies cohort flags over the distinct devices of a run.
func (s *Store) ReadCohortCounts(ctx context.Context, runID string) (CohortCounts, error) {
	var c CohortCounts
	err := s.db.QueryRowContext(ctx, `
		SELECT
			COALESCE(SUM(is_lost), 0),
			COALESCE(SUM(is_stay), 0),
			COALESCE(SUM(is_new), 0),
			COALESCE(SUM(CASE WHEN is_lost = 0 AND is_stay = 0 AND is_new = 0 THEN 1 ELSE 0 END), 0),
			COUNT(*)
		FROM (
			SELECT device_id,
				MAX(is_lost) AS is_lost,
				MAX(is_stay) AS is_stay,
				MAX(is_new) AS is_new
			FROM session_features
			WHERE run_id = ?
			GROUP BY device_id
		)
	`, runID).Scan(&c.Lost, &c.Stayed, &c.New, &c.Other, &c.Devices)
	if err != nil {
		return CohortCounts{}, fmt.Errorf("cohort counts: %w", err)
	}
	return c, nil
}
