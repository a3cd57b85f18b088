package taxonomy

import (
	"golang.org/x/text/unicode/norm"
)

// tripleKey is the NFC-normalized (screen, functional, action) lookup key.
type tripleKey struct {
	screen     string
	functional string
	action     string
}

func normKey(screen, functional, action string) tripleKey {
	return tripleKey{
		screen:     norm.NFC.String(screen),
		functional: norm.NFC.String(functional),
		action:     norm.NFC.String(action),
	}
}

// Taxonomy is the compiled lookup form of a Document. Construction happens
// once in Load; all lookups afterwards are pure and O(1).
type Taxonomy struct {
	blocks   []Block
	prefixes []string          // column prefixes in document order
	names    map[string]string // block name -> prefix

	triples map[tripleKey]BlockRef
	success map[tripleKey]string // triple -> block name
	review  map[tripleKey]string
}

// compile builds the three lookup tables from a validated document.
//
// Every triple in any of the five typed action lists belongs to its block.
// A triple listed under more than one block keeps its first assignment; the
// upstream artifact does not define which block should win, so compile does
// not guess beyond "first wins" and Validate surfaces the duplicates.
func compile(doc *Document) *Taxonomy {
	t := &Taxonomy{
		names:   make(map[string]string, len(doc.Blocks)),
		triples: make(map[tripleKey]BlockRef),
		success: make(map[tripleKey]string),
		review:  make(map[tripleKey]string),
	}

	for i, block := range doc.Blocks {
		prefix := prefixFor(block.Name, i)
		t.blocks = append(t.blocks, block)
		t.prefixes = append(t.prefixes, prefix)
		t.names[block.Name] = prefix

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
					if _, taken := t.triples[key]; !taken {
						t.triples[key] = BlockRef{Name: block.Name, Prefix: prefix, Step: entry.Step}
					}
				}
			}
			for _, entry := range group.SuccessActions {
				key := normKey(group.Screen, group.Functional, entry.Action)
				if _, taken := t.success[key]; !taken {
					t.success[key] = block.Name
				}
			}
			for _, entry := range group.SuccessReview {
				key := normKey(group.Screen, group.Functional, entry.Action)
				if _, taken := t.review[key]; !taken {
					t.review[key] = block.Name
				}
			}
		}
	}
	return t
}

// Lookup resolves a triple to its block. ok is false for unmapped triples,
// which are excluded from block aggregates but still count toward the raw
// session stream.
func (t *Taxonomy) Lookup(screen, functional, action string) (BlockRef, bool) {
	ref, ok := t.triples[normKey(screen, functional, action)]
	return ref, ok
}

// IsSuccess reports whether the triple is a success-typed action.
func (t *Taxonomy) IsSuccess(screen, functional, action string) bool {
	_, ok := t.success[normKey(screen, functional, action)]
	return ok
}

// IsReview reports whether the triple is a review-typed action.
func (t *Taxonomy) IsReview(screen, functional, action string) bool {
	_, ok := t.review[normKey(screen, functional, action)]
	return ok
}

// Prefixes returns the block column prefixes in document order.
func (t *Taxonomy) Prefixes() []string {
	out := make([]string, len(t.prefixes))
	copy(out, t.prefixes)
	return out
}

// Blocks returns the blocks in document order.
func (t *Taxonomy) Blocks() []Block {
	out := make([]Block, len(t.blocks))
	copy(out, t.blocks)
	return out
}

// Prefix returns the column prefix for a block name.
func (t *Taxonomy) Prefix(blockName string) (string, bool) {
	p, ok := t.names[blockName]
	return p, ok
}

// TripleCount returns the number of distinct categorized triples.
func (t *Taxonomy) TripleCount() int {
	return len(t.triples)
}
