package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/churnpipe/internal/event"
	"github.com/roach88/churnpipe/internal/profile"
)

// ProfileOptions holds flags for the profile command.
type ProfileOptions struct {
	*RootOptions
	PrevMonth int
	CurrMonth int
}

// profileText renders a summary for the text format.
type profileText struct {
	*profile.Summary
}

func (p profileText) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d rows, %d devices, %d sessions\n", p.Rows, p.Devices, p.Sessions)
	if p.FirstEvent != nil && p.LastEvent != nil {
		fmt.Fprintf(&b, "range: %s .. %s\n",
			p.FirstEvent.Format(time.RFC3339), p.LastEvent.Format(time.RFC3339))
	}
	fmt.Fprintf(&b, "bad timestamps: %d  sentinel actions: %d\n", p.BadTimestamps, p.SentinelEvents)
	fmt.Fprintf(&b, "cohorts: lost %d, stayed %d, new %d, neither %d (churn %.1f%%)\n",
		p.Cohorts.Lost, p.Cohorts.Stay, p.Cohorts.New, p.Cohorts.Other, p.ChurnRate*100)
	b.WriteString("top screens:\n")
	for _, e := range p.TopScreens {
		fmt.Fprintf(&b, "  %6d  %s\n", e.Count, e.Label)
	}
	b.WriteString("top functionals:\n")
	for _, e := range p.TopFunctionals {
		fmt.Fprintf(&b, "  %6d  %s\n", e.Count, e.Label)
	}
	return strings.TrimRight(b.String(), "\n")
}

// NewProfileCommand creates the profile command.
func NewProfileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ProfileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "profile <events.csv>",
		Short: "Profile a raw event log",
		Long: `Summarize a raw event log before running the pipeline.

Reports row, device, and session counts, the timestamp range, the
dominant screens and functional areas, and the cohort split under the
given reference months.

Example:
  churnpipe profile events.csv
  churnpipe profile events.csv --prev 9 --curr 10 --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProfile(opts, args[0], cmd)
		},
	}

	cmd.Flags().IntVar(&opts.PrevMonth, "prev", int(time.September), "first reference month (1-12)")
	cmd.Flags().IntVar(&opts.CurrMonth, "curr", int(time.October), "second reference month (1-12)")

	return cmd
}

func runProfile(opts *ProfileOptions, eventsPath string, cmd *cobra.Command) error {
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

	summary, err := profile.Build(cleaned, time.Month(opts.PrevMonth), time.Month(opts.CurrMonth))
	if err != nil {
		return WrapExitError(ExitFailure, "profiling failed", err)
	}

	if opts.Format == "json" {
		return formatter.Success(summary)
	}
	return formatter.Success(profileText{summary})
}
