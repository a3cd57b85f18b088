package cli

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/churnpipe/internal/pipeline"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, int(time.September), cfg.PrevMonth)
	assert.Equal(t, int(time.October), cfg.CurrMonth)
	assert.False(t, cfg.IncludeNew)
	assert.Nil(t, cfg.TrailingExit)
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "churnpipe.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
events_csv: events.csv
taxonomy: blocks.json
features_csv: out.csv
database: churn.db
prev_month: 3
curr_month: 4
include_new: true
trailing_exit:
  screen: Еще
  functional: Открытие экрана
  action: Не указано
`), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "events.csv", cfg.EventsCSV)
	assert.Equal(t, "blocks.json", cfg.Taxonomy)
	assert.Equal(t, "out.csv", cfg.FeaturesCSV)
	assert.Equal(t, "churn.db", cfg.Database)
	assert.Equal(t, 3, cfg.PrevMonth)
	assert.Equal(t, 4, cfg.CurrMonth)
	assert.True(t, cfg.IncludeNew)
	require.NotNil(t, cfg.TrailingExit)
	assert.Equal(t, "Еще", cfg.TrailingExit.Screen)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig("/nonexistent/churnpipe.yaml")
	require.Error(t, err)
}

func TestConfigValidate(t *testing.T) {
	valid := Config{EventsCSV: "e.csv", Taxonomy: "t.json", PrevMonth: 9, CurrMonth: 10}
	require.NoError(t, valid.Validate())

	cases := map[string]Config{
		"missing events":   {Taxonomy: "t.json", PrevMonth: 9, CurrMonth: 10},
		"missing taxonomy": {EventsCSV: "e.csv", PrevMonth: 9, CurrMonth: 10},
		"bad prev month":   {EventsCSV: "e.csv", Taxonomy: "t.json", PrevMonth: 0, CurrMonth: 10},
		"bad curr month":   {EventsCSV: "e.csv", Taxonomy: "t.json", PrevMonth: 9, CurrMonth: 13},
		"equal months":     {EventsCSV: "e.csv", Taxonomy: "t.json", PrevMonth: 9, CurrMonth: 9},
	}
	for name, cfg := range cases {
		t.Run(name, func(t *testing.T) {
			require.Error(t, cfg.Validate())
		})
	}
}

func TestPipelineOptions(t *testing.T) {
	cfg := Config{
		PrevMonth:  3,
		CurrMonth:  4,
		IncludeNew: true,
		TrailingExit: &TrailingExitConfig{
			Screen: "Главный экран", Functional: "Меню", Action: "Тап",
		},
	}

	opts := cfg.PipelineOptions()
	assert.Equal(t, time.March, opts.PrevMonth)
	assert.Equal(t, time.April, opts.CurrMonth)
	assert.True(t, opts.IncludeNew)
	assert.Equal(t, pipeline.TrailingExit{
		Screen: "Главный экран", Functional: "Меню", Action: "Тап",
	}, opts.TrailingExit)

	// Without an override the default dead-end triple survives.
	defaults := Config{PrevMonth: 9, CurrMonth: 10}.PipelineOptions()
	assert.Equal(t, pipeline.DefaultTrailingExit, defaults.TrailingExit)
}
