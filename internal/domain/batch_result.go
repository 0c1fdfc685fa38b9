package domain

import "time"

type Success struct {
	LocalID     string `json:"local_id"`
	Serial      string `json:"serial"`
	GeneratedID string `json:"generated_id"`
}

type Failure struct {
	LocalID      string `json:"local_id"`
	Serial       string `json:"serial"`
	ErrorMessage string `json:"error_message"`
}

type Counts struct {
	Attempted int `json:"attempted"`
	Successes int `json:"successes"`
	Failures  int `json:"failures"`
}

// BatchResult is the terminal ledger of a persisted batch.
type BatchResult struct {
	Variant    Variant   `json:"variant"`
	Operator   string    `json:"operator"`
	Successes  []Success `json:"successes"`
	Failures   []Failure `json:"failures"`
	Counts     Counts    `json:"counts"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// Progress is reported after each unit attempt.
type Progress struct {
	Current int `json:"current"`
	Total   int `json:"total"`
}
