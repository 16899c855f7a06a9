package harness

// TraceEvent records one executed scenario step and its outcome.
// Outcome is "ok" for accepted operations or the error kind string for
// rejected ones.
type TraceEvent struct {
	Op        string  `json:"op"`
	Caller    string  `json:"caller,omitempty"`
	Outcome   string  `json:"outcome"`
	PaymentID *uint64 `json:"payment_id,omitempty"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when every expect clause and assertion held.
	Pass bool `json:"pass"`

	// Trace lists every executed step in order. Compared against golden
	// files for regression detection.
	Trace []TraceEvent `json:"trace"`

	// Errors lists expect and assertion failures. Empty when Pass.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a passing result to accumulate into.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError records a failure and marks the result failed.
func (r *Result) AddError(msg string) {
	r.Errors = append(r.Errors, msg)
	r.Pass = false
}

// AddTrace appends a step outcome to the trace.
func (r *Result) AddTrace(event TraceEvent) {
	r.Trace = append(r.Trace, event)
}
