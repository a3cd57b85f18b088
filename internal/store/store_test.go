package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/roach88/churnpipe/internal/features"
)

func testTable() *features.Table {
	age := 34
	return &features.Table{
		Prefixes: []string{"request", "profile"},
		Rows: []features.Row{
			{
				SessionID:    1,
				DeviceID:     10,
				SessionNum:   1,
				FirstEvent:   time.Date(2025, 9, 29, 10, 0, 0, 0, time.UTC),
				Manufacturer: "Apple",
				Model:        "iPhone 13",
				DeviceType:   "phone",
				OS:           "iOS",
				Age:          &age,
				Gender:       "female",
				IsLost:       true,
				SessDurSec:   21,
				Blocks: map[string]features.BlockMetrics{
					"request": {Count: 2, MaxStep: 5, SuccessCount: 1, DurSec: 14, ClickCount: 2, DblDurSec: 8, DblCount: 2},
				},
			},
			{
				SessionID:  2,
				DeviceID:   11,
				SessionNum: 1,
				FirstEvent: time.Date(2025, 9, 29, 11, 0, 0, 0, time.UTC),
				IsStay:     true,
				SessDurSec: 7,
				Blocks: map[string]features.BlockMetrics{
					"profile": {Count: 1, DurSec: 7, ClickCount: 1},
				},
			},
		},
	}
}

func testRun(id string) Run {
	return Run{
		ID:        id,
		CreatedAt: time.Date(2025, 10, 1, 9, 0, 0, 0, time.UTC),
		PrevMonth: time.September,
		CurrMonth: time.October,
		Sessions:  2,
		Events:    3,
	}
}

func TestOpen_CreatesNewDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer s.Close()

	if err := s.verifyPragma("journal_mode", "wal"); err != nil {
		t.Errorf("pragma check failed: %v", err)
	}
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	for i := 0; i < 3; i++ {
		s, err := Open(path)
		if err != nil {
			t.Fatalf("Open() iteration %d failed: %v", i, err)
		}
		s.Close()
	}
}

func TestWriteFeatures_Roundtrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	ctx := context.Background()

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer s.Close()

	table := testTable()
	if err := s.WriteFeatures(ctx, testRun("run-1"), table); err != nil {
		t.Fatalf("WriteFeatures() failed: %v", err)
	}

	got, err := s.ReadFeatures(ctx, "run-1")
	if err != nil {
		t.Fatalf("ReadFeatures() failed: %v", err)
	}

	if len(got.Rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(got.Rows))
	}
	if got.Prefixes[0] != "request" || got.Prefixes[1] != "profile" {
		t.Errorf("prefixes not preserved: %v", got.Prefixes)
	}

	r := got.Rows[0]
	if r.SessionID != 1 || r.DeviceID != 10 {
		t.Errorf("row identity mismatch: %+v", r)
	}
	if r.Manufacturer != "Apple" || !r.IsLost || r.SessDurSec != 21 {
		t.Errorf("row context mismatch: %+v", r)
	}
	if r.Age == nil || *r.Age != 34 {
		t.Errorf("age not preserved: %v", r.Age)
	}

	m := r.Blocks["request"]
	if m.Count != 2 || m.MaxStep != 5 || m.DblDurSec != 8 {
		t.Errorf("request metrics mismatch: %+v", m)
	}
	if m2 := r.Metric("profile", "max_step"); m2 != features.MaxStepUnused {
		t.Errorf("untouched block max_step = %d, want %d", m2, features.MaxStepUnused)
	}

	if got.Rows[1].Age != nil {
		t.Errorf("nil age not preserved: %v", got.Rows[1].Age)
	}
}

func TestWriteFeatures_SameRunIDConverges(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	ctx := context.Background()

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer s.Close()

	for i := 0; i < 2; i++ {
		if err := s.WriteFeatures(ctx, testRun("run-1"), testTable()); err != nil {
			t.Fatalf("WriteFeatures() pass %d failed: %v", i, err)
		}
	}

	got, err := s.ReadFeatures(ctx, "run-1")
	if err != nil {
		t.Fatalf("ReadFeatures() failed: %v", err)
	}
	if len(got.Rows) != 2 {
		t.Errorf("got %d rows after rewrite, want 2", len(got.Rows))
	}
}

func TestWriteFeatures_MismatchedTaxonomyRejected(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	ctx := context.Background()

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer s.Close()

	if err := s.WriteFeatures(ctx, testRun("run-1"), testTable()); err != nil {
		t.Fatalf("WriteFeatures() failed: %v", err)
	}

	other := testTable()
	other.Prefixes = []string{"request", "profile", "nav"}
	if err := s.WriteFeatures(ctx, testRun("run-2"), other); err == nil {
		t.Error("expected error writing a table with a different block layout")
	}
}

func TestRuns_ListGetLatest(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	ctx := context.Background()

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer s.Close()

	if _, err := s.LatestRun(ctx); err == nil {
		t.Error("expected ErrRunNotFound on empty store")
	}

	first := testRun("run-1")
	second := testRun("run-2")
	second.CreatedAt = first.CreatedAt.Add(time.Hour)

	if err := s.WriteFeatures(ctx, first, testTable()); err != nil {
		t.Fatalf("WriteFeatures() failed: %v", err)
	}
	if err := s.WriteFeatures(ctx, second, testTable()); err != nil {
		t.Fatalf("WriteFeatures() failed: %v", err)
	}

	runs, err := s.ListRuns(ctx)
	if err != nil {
		t.Fatalf("ListRuns() failed: %v", err)
	}
	if len(runs) != 2 || runs[0].ID != "run-2" {
		t.Errorf("ListRuns() = %+v, want run-2 first", runs)
	}

	latest, err := s.LatestRun(ctx)
	if err != nil {
		t.Fatalf("LatestRun() failed: %v", err)
	}
	if latest.ID != "run-2" || latest.PrevMonth != time.September {
		t.Errorf("LatestRun() = %+v", latest)
	}

	got, err := s.GetRun(ctx, "run-1")
	if err != nil {
		t.Fatalf("GetRun() failed: %v", err)
	}
	if got.Sessions != 2 || got.Events != 3 {
		t.Errorf("GetRun() = %+v", got)
	}
}

func TestReadCohortCounts(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	ctx := context.Background()

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer s.Close()

	if err := s.WriteFeatures(ctx, testRun("run-1"), testTable()); err != nil {
		t.Fatalf("WriteFeatures() failed: %v", err)
	}

	c, err := s.ReadCohortCounts(ctx, "run-1")
	if err != nil {
		t.Fatalf("ReadCohortCounts() failed: %v", err)
	}
	if c.Devices != 2 || c.Lost != 1 || c.Stayed != 1 || c.New != 0 {
		t.Errorf("ReadCohortCounts() = %+v", c)
	}
}
