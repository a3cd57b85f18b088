package taxonomy

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	cuejson "cuelang.org/go/encoding/json"
)

// schemaCUE is the structural contract for the categorization artifact.
// Definitions stay open (...) because the artifact carries bookkeeping
// fields (combination counts, totals) the pipeline does not consume.
const schemaCUE = `
#Action: {
	action: string & !=""
	count?: int & >=0
	step?:  int & >=0
	...
}

#Group: {
	screen:           string & !=""
	functional:       string
	regular_actions?: [...#Action]
	cancel_actions?:  [...#Action]
	exit_actions?:    [...#Action]
	success_review?:  [...#Action]
	success_actions?: [...#Action]
	...
}

#Block: {
	name:   string & !=""
	groups: [...#Group]
	...
}

blocks: [...#Block]
...
`

// ValidateBytes checks a raw artifact against the CUE schema. Returns a
// descriptive error on the first structural violation.
func ValidateBytes(data []byte) error {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaCUE)
	if err := schema.Err(); err != nil {
		return fmt.Errorf("internal schema error: %w", err)
	}

	expr, err := cuejson.Extract("taxonomy.json", data)
	if err != nil {
		return fmt.Errorf("taxonomy is not valid JSON: %w", err)
	}
	value := ctx.BuildExpr(expr)
	if err := value.Err(); err != nil {
		return fmt.Errorf("taxonomy is not valid JSON: %w", err)
	}

	unified := schema.Unify(value)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("taxonomy schema violation: %s", cueerrors.Details(err, nil))
	}
	return nil
}

// Duplicates reports triples that appear under more than one block. The
// artifact's behavior for such triples is undefined upstream; lookup keeps
// the first assignment and this function makes the ambiguity visible.
func Duplicates(doc *Document) []string {
	owner := make(map[tripleKey]string)
	var dups []string

	for _, block := range doc.Blocks {
		for _, group := range block.Groups {
			lists := [][]ActionEntry{
				group.RegularActions,
				group.CancelActions,
				group.ExitActions,
				group.SuccessReview,
				group.SuccessActions,
			}
			for _, list := range lists {
				for _, entry := range list {
					key := normKey(group.Screen, group.Functional, entry.Action)
					prev, seen := owner[key]
					if !seen {
						owner[key] = block.Name
						continue
					}
					if prev != block.Name {
						dups = append(dups, fmt.Sprintf(
							"(%s, %s, %s) in both %q and %q",
							group.Screen, group.Functional, entry.Action, prev, block.Name))
					}
				}
			}
		}
	}
	return dups
}
