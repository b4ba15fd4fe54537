package domain

import "time"

// FailedOperation is an append-only audit record written when a tool
// invocation exhausts its retry budget. Params holds the tool parameters
// as JSON with free-text fields redacted to length-only placeholders.
type FailedOperation struct {
	ID        string
	Tool      string
	Params    string
	Error     string
	Attempts  int
	CreatedAt time.Time
}
