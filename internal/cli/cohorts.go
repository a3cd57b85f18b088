package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/churnpipe/internal/event"
	"github.com/roach88/churnpipe/internal/pipeline"
)

// CohortsOptions holds flags for the cohorts command.
type CohortsOptions struct {
	*RootOptions
	EventsCSV string
	PrevMonth int
	CurrMonth int
}

// CohortsSummary is the cohorts command's output payload.
type CohortsSummary struct {
	PrevMonth string  `json:"prev_month"`
	CurrMonth string  `json:"curr_month"`
	Devices   int     `json:"devices"`
	Lost      int     `json:"lost"`
	Stayed    int     `json:"stayed"`
	New       int     `json:"new"`
	Other     int     `json:"other"`
	ChurnRate float64 `json:"churn_rate"`
}

func (s CohortsSummary) String() string {
	return fmt.Sprintf(
		"%s -> %s over %d devices\nlost: %d  stayed: %d  new: %d  neither: %d  churn: %.1f%%",
		s.PrevMonth, s.CurrMonth, s.Devices, s.Lost, s.Stayed, s.New, s.Other, s.ChurnRate*100,
	)
}

// NewCohortsCommand creates the cohorts command.
func NewCohortsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CohortsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "cohorts <events.csv>",
		Short: "Classify device cohorts without running the full pipeline",
		Long: `Classify each device as lost, stayed, or new from its active months.

A device active only in the first reference month is lost; active in both
is stayed; active only in the second is new. Devices active in neither
month carry no flag and are reported separately.

Example:
  churnpipe cohorts events.csv
  churnpipe cohorts events.csv --prev 9 --curr 10 --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCohorts(opts, args[0], cmd)
		},
	}

	cmd.Flags().IntVar(&opts.PrevMonth, "prev", int(time.September), "first reference month (1-12)")
	cmd.Flags().IntVar(&opts.CurrMonth, "curr", int(time.October), "second reference month (1-12)")

	return cmd
}

func runCohorts(opts *CohortsOptions, eventsPath string, cmd *cobra.Command) error {
	if opts.PrevMonth < 1 || opts.PrevMonth > 12 || opts.CurrMonth < 1 || opts.CurrMonth > 12 {
		return NewExitError(ExitCommandError, "reference months must be 1-12")
	}

	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	raw, _, err := event.ReadEvents(eventsPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read events", err)
	}
	cleaned, _, err := event.Clean(raw)
	if err != nil {
		return WrapExitError(ExitFailure, "event log unusable after cleaning", err)
	}

	prev := time.Month(opts.PrevMonth)
	curr := time.Month(opts.CurrMonth)
	_, stats, err := pipeline.ClassifyDevices(cleaned, prev, curr)
	if err != nil {
		return WrapExitError(ExitFailure, "cohort classification failed", err)
	}

	return formatter.Success(CohortsSummary{
		PrevMonth: prev.String(),
		CurrMonth: curr.String(),
		Devices:   stats.Devices,
		Lost:      stats.Lost,
		Stayed:    stats.Stay,
		New:       stats.New,
		Other:     stats.Other,
		ChurnRate: stats.ChurnRate(),
	})
}
