package harness

// StepResult records one flow step: the plan compiled for its query and the
// page it returned.
type StepResult struct {
	Name        string `json:"name"`
	Query       string `json:"query"`
	Source      string `json:"source"`
	Destination string `json:"destination"`

	// Error is the build error code (or message) when compiling failed.
	Error string `json:"error,omitempty"`

	Predicate string   `json:"predicate,omitempty"`
	Ordering  []string `json:"ordering,omitempty"`
	CacheHit  bool     `json:"cacheHit"`

	Total    int              `json:"total"`
	Page     int              `json:"page,omitempty"`
	PageSize int              `json:"pageSize,omitempty"`
	Items    []map[string]any `json:"items,omitempty"`

	// Fingerprint is left out of golden snapshots.
	Fingerprint string `json:"-"`
}

// Result is the outcome of a test scenario execution.
type Result struct {
	// Pass indicates overall test success.
	// True if all expect clauses and assertions match.
	Pass bool `json:"pass"`

	// Steps holds one entry per flow step, in order.
	Steps []StepResult `json:"steps"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Stored counts the documents loaded per shape.
	Stored map[string]int `json:"stored,omitempty"`
}

// NewResult creates a new passing result.
// Used as the starting point for test execution.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Steps:  []StepResult{},
		Errors: []string{},
		Stored: make(map[string]int),
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddStep appends a step result.
func (r *Result) AddStep(step StepResult) {
	r.Steps = append(r.Steps, step)
}

// Step returns the result of the named step.
func (r *Result) Step(name string) (StepResult, bool) {
	for _, s := range r.Steps {
		if s.Name == name {
			return s, true
		}
	}
	return StepResult{}, false
}
