package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/roach88/churnpipe/internal/features"
)

// Run is the metadata row recorded for one pipeline execution.
type Run struct {
	ID        string
	CreatedAt time.Time
	PrevMonth time.Month
	CurrMonth time.Month
	Sessions  int
	Events    int
}

// WriteFeatures persists a feature table under the given run.
// The run row, block layout, and all feature rows are written in one
// transaction. Uses ON CONFLICT DO NOTHING on the run for idempotency;
// feature rows use INSERT OR REPLACE so a re-run with the same run id
// converges to the same table.
func (s *Store) WriteFeatures(ctx context.Context, run Run, table *features.Table) error {
	if err := s.ensureFeatureTable(table.Prefixes); err != nil {
		return fmt.Errorf("write features: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("write features: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (id, created_at, prev_month, curr_month, sessions, events)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		run.ID,
		run.CreatedAt.UTC().Format(time.RFC3339),
		int(run.PrevMonth),
		int(run.CurrMonth),
		run.Sessions,
		run.Events,
	)
	if err != nil {
		return fmt.Errorf("write features: insert run: %w", err)
	}

	for i, prefix := range table.Prefixes {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO run_blocks (run_id, position, prefix)
			VALUES (?, ?, ?)
			ON CONFLICT(run_id, position) DO NOTHING
		`, run.ID, i, prefix)
		if err != nil {
			return fmt.Errorf("write features: insert block %q: %w", prefix, err)
		}
	}

	cols := featureColumns(table.Prefixes)
	insert := fmt.Sprintf(
		"INSERT OR REPLACE INTO session_features (%s) VALUES (%s)",
		strings.Join(cols, ", "),
		strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", "),
	)
	stmt, err := tx.PrepareContext(ctx, insert)
	if err != nil {
		return fmt.Errorf("write features: prepare insert: %w", err)
	}
	defer stmt.Close()

	args := make([]any, 0, len(cols))
	for i := range table.Rows {
		r := &table.Rows[i]
		args = args[:0]

		var age any
		if r.Age != nil {
			age = *r.Age
		}
		args = append(args,
			run.ID,
			r.SessionID,
			r.DeviceID,
			r.SessionNum,
			r.FirstEvent.Format(time.RFC3339),
			r.Manufacturer,
			r.Model,
			r.DeviceType,
			r.OS,
			age,
			r.Gender,
			boolInt(r.IsLost),
			boolInt(r.IsStay),
			boolInt(r.IsNew),
		)
		for _, v := range r.Values(table.Prefixes) {
			args = append(args, v)
		}

		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("write features: insert session %d: %w", r.SessionID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("write features: commit: %w", err)
	}

	return nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
