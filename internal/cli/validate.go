package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/churnpipe/internal/taxonomy"
)

// ValidateOptions holds flags for the validate command.
type ValidateOptions struct {
	*RootOptions
}

// ValidateSummary is the validate command's output payload.
type ValidateSummary struct {
	Blocks     int      `json:"blocks"`
	Triples    int      `json:"triples"`
	Duplicates []string `json:"duplicates,omitempty"`
}

func (s ValidateSummary) String() string {
	out := fmt.Sprintf("taxonomy ok: %d blocks, %d triples", s.Blocks, s.Triples)
	if len(s.Duplicates) > 0 {
		out += fmt.Sprintf("\n%d duplicate triples (first block wins):\n  %s",
			len(s.Duplicates), strings.Join(s.Duplicates, "\n  "))
	}
	return out
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ValidateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "validate <taxonomy.json>",
		Short: "Validate a taxonomy document",
		Long: `Validate a taxonomy JSON document against the schema.

Checks structure, reports the block and triple counts, and lists any
(screen, functional, action) triples claimed by more than one block.
Duplicates are a warning, not an error: the lookup resolves them to the
first block in document order.

Example:
  churnpipe validate blocks.json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(opts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *ValidateOptions, path string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read taxonomy", err)
	}

	if err := taxonomy.ValidateBytes(data); err != nil {
		if ferr := formatter.Error("E101", "taxonomy validation failed", err.Error()); ferr != nil {
			return ferr
		}
		return NewExitError(ExitFailure, "taxonomy validation failed")
	}

	tax, err := taxonomy.LoadBytes(data)
	if err != nil {
		return WrapExitError(ExitFailure, "taxonomy unusable", err)
	}

	var doc taxonomy.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return WrapExitError(ExitFailure, "taxonomy unusable", err)
	}

	return formatter.Success(ValidateSummary{
		Blocks:     len(tax.Blocks()),
		Triples:    tax.TripleCount(),
		Duplicates: taxonomy.Duplicates(&doc),
	})
}
