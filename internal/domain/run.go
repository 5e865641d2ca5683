package domain

import "time"

// RunStatusNotComputed marks run detail responses whose aggregate status
// has not been derived yet. Kept as an explicit sentinel so dashboards can
// distinguish "unknown" from a real status value.
const RunStatusNotComputed = "not computed"

// Run is one launch of a task, grouping the HITs and assignments it created.
type Run struct {
	RunID     string    `json:"run_id"`
	Created   time.Time `json:"created"`
	Maximum   int       `json:"maximum"`
	Completed int       `json:"completed"`
	Failed    int       `json:"failed"`
	TaskName  string    `json:"task_name"`
	Sandbox   bool      `json:"sandbox"`
}
