package domain

import "time"

// ReportRecord is a reported failure as persisted by durable sinks.
type ReportRecord struct {
	ID          string    `json:"id"          db:"id"`
	Kind        string    `json:"kind"        db:"kind"`
	Message     string    `json:"message"     db:"message"`
	Tag         string    `json:"tag"         db:"tag"`
	Environment string    `json:"environment" db:"environment"`
	Fingerprint string    `json:"fingerprint" db:"fingerprint"`
	Stack       []string  `json:"stack"       db:"stack"`
	CreatedAt   time.Time `json:"created_at"  db:"created_at"`
}
