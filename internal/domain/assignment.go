package domain

import "time"

// Assignment is one worker's acceptance of a HIT, as the platform sees it.
type Assignment struct {
	AssignmentID string     `json:"assignment_id"`
	HITID        string     `json:"hit_id"`
	WorkerID     string     `json:"worker_id"`
	RunID        string     `json:"run_id"`
	Status       string     `json:"status"`
	ApproveTime  *time.Time `json:"approve_time"`
}

// AssignmentView is an assignment with its local pairing state folded in.
// The pairing's own status is exposed as world_status so it never collides
// with the platform status. Overlay fields are pointers: nil means the
// assignment had no pairing row, so they serialize as null.
type AssignmentView struct {
	AssignmentID string     `json:"assignment_id"`
	HITID        string     `json:"hit_id"`
	WorkerID     string     `json:"worker_id"`
	RunID        string     `json:"run_id"`
	Status       string     `json:"status"`
	ApproveTime  *time.Time `json:"approve_time"`

	WorldStatus    *string  `json:"world_status"`
	OnboardingID   *string  `json:"onboarding_id"`
	ConversationID *string  `json:"conversation_id"`
	BonusAmount    *float64 `json:"bonus_amount"`
	BonusText      *string  `json:"bonus_text"`
	BonusPaid      *bool    `json:"bonus_paid"`
	Notes          *string  `json:"notes"`
	Hidden         *bool    `json:"hidden"`
}
