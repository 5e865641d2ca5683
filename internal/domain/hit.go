package domain

import "time"

// HIT is a single published unit of work on the crowd platform.
type HIT struct {
	HITID        string    `json:"hit_id"`
	RunID        string    `json:"run_id"`
	AssignmentID *string   `json:"assignment_id"`
	Expiration   time.Time `json:"expiration"`
	Status       string    `json:"status"`
}
