package store

import (
	"fmt"
	"strings"

	"github.com/roach88/churnpipe/internal/features"
)

// contextDDL is the fixed head of the session_features table. Block metric
// columns follow it, one per entry of features.NumericColumns.
const contextDDL = `
    run_id       TEXT NOT NULL REFERENCES runs(id),
    session_id   INTEGER NOT NULL,
    device_id    INTEGER NOT NULL,
    session_num  INTEGER NOT NULL,
    first_event  TEXT NOT NULL,
    manufacturer TEXT NOT NULL DEFAULT '',
    model        TEXT NOT NULL DEFAULT '',
    device_type  TEXT NOT NULL DEFAULT '',
    os           TEXT NOT NULL DEFAULT '',
    age          INTEGER,
    gender       TEXT NOT NULL DEFAULT '',
    is_lost      INTEGER NOT NULL DEFAULT 0,
    is_stay      INTEGER NOT NULL DEFAULT 0,
    is_new       INTEGER NOT NULL DEFAULT 0`

// contextColumns lists the fixed columns in DDL order.
var contextColumns = []string{
	"run_id", "session_id", "device_id", "session_num", "first_event",
	"manufacturer", "model", "device_type", "os", "age", "gender",
	"is_lost", "is_stay", "is_new",
}

// featureTableDDL builds the CREATE TABLE statement for the wide feature
// table. Numeric columns default to 0 except max_step, whose untouched
// fill is -1.
func featureTableDDL(prefixes []string) string {
	var b strings.Builder
	b.WriteString("CREATE TABLE IF NOT EXISTS session_features (")
	b.WriteString(contextDDL)
	for _, col := range features.NumericColumns(prefixes) {
		fill := "0"
		if strings.HasSuffix(col, "_max_step") {
			fill = "-1"
		}
		fmt.Fprintf(&b, ",\n    %s INTEGER NOT NULL DEFAULT %s", col, fill)
	}
	b.WriteString(",\n    PRIMARY KEY (run_id, session_id)\n)")
	return b.String()
}

// featureColumns returns every column of session_features for the given
// prefixes, in DDL order.
func featureColumns(prefixes []string) []string {
	cols := append([]string{}, contextColumns...)
	return append(cols, features.NumericColumns(prefixes)...)
}

// ensureFeatureTable creates session_features and its indexes if absent,
// and verifies the existing column set matches the taxonomy when present.
func (s *Store) ensureFeatureTable(prefixes []string) error {
	existing, err := s.tableColumns("session_features")
	if err != nil {
		return err
	}
	if existing != nil {
		want := featureColumns(prefixes)
		if len(existing) != len(want) {
			return fmt.Errorf("session_features has %d columns, taxonomy needs %d; the database was built with a different taxonomy", len(existing), len(want))
		}
		for i := range want {
			if existing[i] != want[i] {
				return fmt.Errorf("session_features column %d is %q, taxonomy needs %q", i, existing[i], want[i])
			}
		}
		return nil
	}

	if _, err := s.db.Exec(featureTableDDL(prefixes)); err != nil {
		return fmt.Errorf("create session_features: %w", err)
	}
	if _, err := s.db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_session_features_device
		ON session_features(device_id)
	`); err != nil {
		return fmt.Errorf("index session_features: %w", err)
	}
	return nil
}

// tableColumns returns the column names of a table in declaration order,
// or nil if the table does not exist.
func (s *Store) tableColumns(table string) ([]string, error) {
	rows, err := s.db.Query(fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return nil, fmt.Errorf("table info %s: %w", table, err)
	}
	defer rows.Close()

	var cols []string
	for rows.Next() {
		var (
			cid        int
			name, typ  string
			notNull    int
			defaultVal any
			pk         int
		)
		if err := rows.Scan(&cid, &name, &typ, &notNull, &defaultVal, &pk); err != nil {
			return nil, fmt.Errorf("table info %s: %w", table, err)
		}
		cols = append(cols, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("table info %s: %w", table, err)
	}
	return cols, nil
}
