package domain

// Pairing is the local record of a worker working an assignment: the
// world-side status plus bookkeeping the platform itself never sees.
type Pairing struct {
	AssignmentID   string  `json:"assignment_id"`
	RunID          string  `json:"run_id"`
	WorkerID       string  `json:"worker_id"`
	Status         string  `json:"status"`
	OnboardingID   *string `json:"onboarding_id"`
	ConversationID *string `json:"conversation_id"`
	BonusAmount    float64 `json:"bonus_amount"`
	BonusText      string  `json:"bonus_text"`
	BonusPaid      bool    `json:"bonus_paid"`
	Notes          string  `json:"notes"`
	Hidden         bool    `json:"hidden"`
}
