package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/churnpipe/internal/features"
	"github.com/roach88/churnpipe/internal/taxonomy"
)

// BlocksOptions holds flags for the blocks command.
type BlocksOptions struct {
	*RootOptions
	Columns bool
}

// BlockInfo is one block's listing entry.
type BlockInfo struct {
	Name    string `json:"name"`
	Prefix  string `json:"prefix"`
	Groups  int    `json:"groups"`
	Triples int    `json:"triples"`
}

// BlocksSummary is the blocks command's output payload.
type BlocksSummary struct {
	Blocks  []BlockInfo `json:"blocks"`
	Columns []string    `json:"columns,omitempty"`
}

func (s BlocksSummary) String() string {
	var b strings.Builder
	for _, blk := range s.Blocks {
		fmt.Fprintf(&b, "%-14s %s (%d groups, %d triples)\n", blk.Prefix, blk.Name, blk.Groups, blk.Triples)
	}
	if len(s.Columns) > 0 {
		fmt.Fprintf(&b, "\n%d feature columns:\n  %s\n", len(s.Columns), strings.Join(s.Columns, "\n  "))
	}
	return strings.TrimRight(b.String(), "\n")
}

// NewBlocksCommand creates the blocks command.
func NewBlocksCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &BlocksOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "blocks <taxonomy.json>",
		Short: "List taxonomy blocks and their feature columns",
		Long: `List the functional blocks of a taxonomy with their column prefixes.

With --columns, also prints the full feature-table column set the
taxonomy produces: eight metric columns per block plus the whole-session
duration column.

Example:
  churnpipe blocks blocks.json
  churnpipe blocks blocks.json --columns --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBlocks(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Columns, "columns", false, "list the feature columns")

	return cmd
}

func runBlocks(opts *BlocksOptions, path string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	tax, err := taxonomy.Load(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load taxonomy", err)
	}

	summary := BlocksSummary{}
	for _, block := range tax.Blocks() {
		prefix, _ := tax.Prefix(block.Name)
		info := BlockInfo{
			Name:   block.Name,
			Prefix: prefix,
			Groups: len(block.Groups),
		}
		for _, group := range block.Groups {
			info.Triples += len(group.RegularActions) + len(group.CancelActions) +
				len(group.ExitActions) + len(group.SuccessReview) + len(group.SuccessActions)
		}
		summary.Blocks = append(summary.Blocks, info)
	}
	if opts.Columns {
		summary.Columns = features.NumericColumns(tax.Prefixes())
	}

	return formatter.Success(summary)
}
