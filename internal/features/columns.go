package features

import "fmt"

// Block metric names, in contract order. Every block contributes one column
// per metric, named {prefix}_{metric}.
var Metrics = []string{
	"count",
	"max_step",
	"success_count",
	"review_count",
	"dur_sec",
	"click_count",
	"dbl_dur_sec",
	"dbl_count",
}

// SessionDurationColumn is the whole-session duration column.
const SessionDurationColumn = "sess_dur_sec"

// MaxStepUnused is the sentinel for a block whose funnel was never entered
// in a session. It is a real value, never a null.
const MaxStepUnused = -1

// BlockColumns returns the block metric column names for the given prefixes
// in contract order: all eight metrics for the first block, then the next.
func BlockColumns(prefixes []string) []string {
	cols := make([]string, 0, len(prefixes)*len(Metrics))
	for _, prefix := range prefixes {
		for _, metric := range Metrics {
			cols = append(cols, fmt.Sprintf("%s_%s", prefix, metric))
		}
	}
	return cols
}

// NumericColumns returns every numeric feature column: the block columns
// followed by the session duration column.
func NumericColumns(prefixes []string) []string {
	return append(BlockColumns(prefixes), SessionDurationColumn)
}
