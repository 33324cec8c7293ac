package interview

import (
	"fmt"

	"InterviewBot/internal/backend"
)

// Phases name the provider call that failed
const (
	PhaseOpening  = "opening"
	PhaseQuestion = "question"
	PhaseClosing  = "closing"
	PhaseFeedback = "feedback"
)

// ErrProviderTimeout matches provider calls that ran past the configured timeout.
var ErrProviderTimeout = backend.ErrTimeout

// ProviderError reports a failed or unusable provider call
type ProviderError struct {
	SessionID string
	Phase     string
	Err       error
}

func (e *ProviderError) Error() string {
	if e.SessionID == "" {
		return fmt.Sprintf("error generating interview %s: %v", e.Phase, e.Err)
	}
	return fmt.Sprintf("error generating interview %s for session %s: %v", e.Phase, e.SessionID, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}
