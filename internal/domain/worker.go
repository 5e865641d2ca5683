package domain

// Worker aggregates a crowd worker's lifetime interaction counters.
type Worker struct {
	WorkerID     string `json:"worker_id"`
	Accepted     int    `json:"accepted"`
	Disconnected int    `json:"disconnected"`
	Completed    int    `json:"completed"`
	Approved     int    `json:"approved"`
	Rejected     int    `json:"rejected"`
	Notes        string `json:"notes"`
	Blocked      bool   `json:"blocked"`
}
