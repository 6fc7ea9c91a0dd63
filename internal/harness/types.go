package harness

// Step kinds recorded in a trace.
const (
	KindMutate  = "mutate"
	KindResolve = "resolve"
)

// TraceEvent records one executed step and what it returned.
type TraceEvent struct {
	Step        int    `json:"step"`
	Kind        string `json:"kind"`
	Model       string `json:"model"`
	Action      string `json:"action,omitempty"`
	Scope       string `json:"scope,omitempty"`
	ConfigError string `json:"config_error,omitempty"`

	// Result is an ir.SyncResult for mutate steps and an ir.ResolveResult
	// for resolve steps. Nil when the step failed with a configuration
	// error.
	Result any `json:"result,omitempty"`
}

// Result is the outcome of a scenario run.
type Result struct {
	// Pass is true when every expect clause matched.
	Pass bool `json:"pass"`

	// Trace holds one event per executed step, in order.
	Trace []TraceEvent `json:"trace"`

	// Errors holds one message per failed expectation.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds an expectation failure and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
