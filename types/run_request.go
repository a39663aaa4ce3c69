package types

// RunRequest asks the execution engine to launch one run.
type RunRequest struct {
	// RunKey de-duplicates runs across ticks. Partition schedules use the partition name.
	RunKey string `json:"runKey,omitempty"`

	// RunConfig is the run configuration handed to the job.
	RunConfig map[string]any `json:"runConfig"`

	// Tags are attached to the launched run.
	Tags map[string]string `json:"tags"`
}

// SkipReason explains why a tick produced no runs.
type SkipReason struct {
	Message string `json:"skipMessage,omitempty"`
}

// TickResult is the outcome of evaluating a schedule once.
//
// Exactly one of Skip and RunRequests is set.
type TickResult struct {
	RunRequests []RunRequest `json:"runRequests,omitempty"`
	Skip        *SkipReason  `json:"skip,omitempty"`
}

// Skipped reports whether the tick was skipped.
func (r TickResult) Skipped() bool {
	return r.Skip != nil
}

// SkipMessage returns the skip message, or "" when the tick was not skipped.
func (r TickResult) SkipMessage() string {
	if r.Skip == nil {
		return ""
	}

	return r.Skip.Message
}

// Skip builds a skipped tick result.
func Skip(message string) TickResult {
	return TickResult{Skip: &SkipReason{Message: message}}
}
