package harness

// TraceStep records one executed flow step.
type TraceStep struct {
	Step    int    `json:"step"`
	At      uint64 `json:"at"`
	Caller  string `json:"caller"`
	Op      string `json:"op"`
	Outcome string `json:"outcome"`
	Removed int    `json:"removed,omitempty"`
}

// TraceEvent is an emitted event with hashes replaced by their scenario
// labels ("foo" for a name, "foo/s1" for a commitment) where known.
type TraceEvent struct {
	Seq       int64  `json:"seq"`
	CallID    string `json:"call_id"`
	Kind      string `json:"kind"`
	Name      string `json:"name,omitempty"`
	SealedBid string `json:"sealed_bid,omitempty"`
	From      string `json:"from"`
	At        uint64 `json:"at"`
}

// Result is the outcome of a scenario run.
type Result struct {
	// Pass is true if every step outcome and assertion matched.
	Pass bool `json:"pass"`

	Steps  []TraceStep  `json:"steps"`
	Events []TraceEvent `json:"events"`

	// Errors contains validation error messages. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Steps:  []TraceStep{},
		Events: []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
