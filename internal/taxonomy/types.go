package taxonomy

// Document is the top-level shape of the categorization artifact.
type Document struct {
	Blocks []Block `json:"blocks"`
}

// Block is one functional area of the app, e.g. "Создание заявки".
type Block struct {
	Name   string  `json:"name"`
	Groups []Group `json:"groups"`
}

// Group collects the typed action lists for one (screen, functional) pair.
type Group struct {
	Screen         string        `json:"screen"`
	Functional     string        `json:"functional"`
	RegularActions []ActionEntry `json:"regular_actions,omitempty"`
	CancelActions  []ActionEntry `json:"cancel_actions,omitempty"`
	ExitActions    []ActionEntry `json:"exit_actions,omitempty"`
	SuccessReview  []ActionEntry `json:"success_review,omitempty"`
	SuccessActions []ActionEntry `json:"success_actions,omitempty"`
}

// ActionEntry is one categorized action. Step is the ordinal funnel position
// within the block; 0 means the action carries no step.
type ActionEntry struct {
	Action string `json:"action"`
	Count  int    `json:"count,omitempty"`
	Step   int    `json:"step,omitempty"`
}

// BlockRef identifies the block a triple belongs to.
type BlockRef struct {
	Name   string
	Prefix string
	Step   int
}
