package cli

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/churnpipe/internal/event"
	"github.com/roach88/churnpipe/internal/features"
	"github.com/roach88/churnpipe/internal/pipeline"
	"github.com/roach88/churnpipe/internal/store"
	"github.com/roach88/churnpipe/internal/taxonomy"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Config string

	// Flag overrides for the config file.
	EventsCSV   string
	UsersCSV    string
	Taxonomy    string
	FeaturesCSV string
	Database    string
	IncludeNew  bool
}

// RunSummary is the run command's output payload.
type RunSummary struct {
	RunID          string  `json:"run_id"`
	InputRows      int     `json:"input_rows"`
	CleanedRows    int     `json:"cleaned_rows"`
	CollapsedRows  int     `json:"collapsed_rows"`
	Sessions       int     `json:"sessions"`
	Devices        int     `json:"devices"`
	Lost           int     `json:"lost"`
	Stayed         int     `json:"stayed"`
	New            int     `json:"new"`
	ChurnRate      float64 `json:"churn_rate"`
	FeatureColumns int     `json:"feature_columns"`
	FeaturesCSV    string  `json:"features_csv,omitempty"`
	Database       string  `json:"database,omitempty"`
}

func (s RunSummary) String() string {
	return fmt.Sprintf(
		"run %s: %d rows in, %d after cleaning, %d after collapsing\n"+
			"sessions: %d  devices: %d  lost: %d  stayed: %d  new: %d  churn: %.1f%%\n"+
			"feature columns: %d",
		s.RunID, s.InputRows, s.CleanedRows, s.CollapsedRows,
		s.Sessions, s.Devices, s.Lost, s.Stayed, s.New, s.ChurnRate*100,
		s.FeatureColumns,
	)
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the feature extraction pipeline",
		Long: `Run the full feature extraction pipeline over a raw event log.

Reads the event CSV, cleans and normalizes it, collapses duplicate runs,
labels device cohorts, aggregates per-session block features against the
taxonomy, and writes the feature table to CSV and/or SQLite.

Example:
  churnpipe run --config churnpipe.yaml
  churnpipe run --events events.csv --taxonomy blocks.json --out features.csv`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPipeline(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Config, "config", "", "path to YAML config file")
	cmd.Flags().StringVar(&opts.EventsCSV, "events", "", "path to raw event CSV")
	cmd.Flags().StringVar(&opts.UsersCSV, "users", "", "path to user demographics CSV")
	cmd.Flags().StringVar(&opts.Taxonomy, "taxonomy", "", "path to taxonomy JSON")
	cmd.Flags().StringVar(&opts.FeaturesCSV, "out", "", "path for the feature table CSV")
	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database")
	cmd.Flags().BoolVar(&opts.IncludeNew, "include-new", false, "keep sessions of devices first seen in the current month")

	return cmd
}

// resolveConfig merges the config file with flag overrides.
func resolveConfig(opts *RunOptions, cmd *cobra.Command) (Config, error) {
	cfg, err := LoadConfig(opts.Config)
	if err != nil {
		return Config{}, err
	}
	if opts.EventsCSV != "" {
		cfg.EventsCSV = opts.EventsCSV
	}
	if opts.UsersCSV != "" {
		cfg.UsersCSV = opts.UsersCSV
	}
	if opts.Taxonomy != "" {
		cfg.Taxonomy = opts.Taxonomy
	}
	if opts.FeaturesCSV != "" {
		cfg.FeaturesCSV = opts.FeaturesCSV
	}
	if opts.Database != "" {
		cfg.Database = opts.Database
	}
	if cmd.Flags().Changed("include-new") {
		cfg.IncludeNew = opts.IncludeNew
	}
	return cfg, nil
}

func runPipeline(opts *RunOptions, cmd *cobra.Command) error {
	cfg, err := resolveConfig(opts, cmd)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load config", err)
	}
	if err := cfg.Validate(); err != nil {
		return WrapExitError(ExitCommandError, "invalid config", err)
	}

	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	tax, err := taxonomy.Load(cfg.Taxonomy)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load taxonomy", err)
	}
	slog.Info("taxonomy loaded", "blocks", len(tax.Blocks()), "triples", tax.TripleCount())

	raw, loadStats, err := event.ReadEvents(cfg.EventsCSV)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read events", err)
	}
	slog.Info("events read",
		"rows", loadStats.Rows,
		"bad_timestamps", loadStats.BadTimestamps,
		"bad_device_ids", loadStats.BadDeviceIDs,
		"missing_actions", loadStats.MissingActions)

	cleaned, cleanStats, err := event.Clean(raw)
	if err != nil {
		return WrapExitError(ExitFailure, "event log unusable after cleaning", err)
	}
	slog.Info("events cleaned",
		"rows", len(cleaned),
		"duplicates_removed", cleanStats.DuplicatesRemoved,
		"missing_timestamp", cleanStats.MissingTimestamp)

	if cfg.UsersCSV != "" {
		users, err := event.ReadUsers(cfg.UsersCSV)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to read users", err)
		}
		cleaned = event.JoinUsers(cleaned, users)
		slog.Info("demographics joined", "users", len(users))
	}

	res, err := pipeline.Run(cleaned, cfg.PipelineOptions())
	if err != nil {
		return WrapExitError(ExitFailure, "pipeline failed", err)
	}

	table, err := features.Aggregate(res.Events, tax)
	if err != nil {
		return WrapExitError(ExitFailure, "feature aggregation failed", err)
	}

	if cfg.FeaturesCSV != "" {
		if err := table.WriteCSVFile(cfg.FeaturesCSV); err != nil {
			return WrapExitError(ExitCommandError, "failed to write feature CSV", err)
		}
		slog.Info("feature table written", "path", cfg.FeaturesCSV, "rows", len(table.Rows))
	}

	if cfg.Database != "" {
		st, err := store.Open(cfg.Database)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open database", err)
		}
		defer func() {
			if closeErr := st.Close(); closeErr != nil {
				slog.Error("error closing database", "error", closeErr)
			}
		}()

		run := store.Run{
			ID:        res.RunID,
			CreatedAt: time.Now().UTC(),
			PrevMonth: time.Month(cfg.PrevMonth),
			CurrMonth: time.Month(cfg.CurrMonth),
			Sessions:  len(table.Rows),
			Events:    len(res.Events),
		}
		if err := st.WriteFeatures(cmd.Context(), run, table); err != nil {
			return WrapExitError(ExitCommandError, "failed to write features to database", err)
		}
		slog.Info("feature table stored", "path", cfg.Database, "run_id", res.RunID)
	}

	summary := RunSummary{
		RunID:          res.RunID,
		InputRows:      loadStats.Rows,
		CleanedRows:    len(cleaned),
		CollapsedRows:  len(res.Events),
		Sessions:       len(table.Rows),
		Devices:        res.Cohorts.Devices,
		Lost:           res.Cohorts.Lost,
		Stayed:         res.Cohorts.Stay,
		New:            res.Cohorts.New,
		ChurnRate:      res.Cohorts.ChurnRate(),
		FeatureColumns: len(table.Columns()),
		FeaturesCSV:    cfg.FeaturesCSV,
		Database:       cfg.Database,
	}
	return formatter.SuccessRun(res.RunID, summary)
}
