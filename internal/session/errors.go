package session

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput is returned when caller-supplied fields are missing or malformed.
	ErrInvalidInput = errors.New("invalid input")
	// ErrSessionNotFound is returned when neither the cache nor the durable store knows the id.
	ErrSessionNotFound = errors.New("interview session not found")
	// ErrSessionCompleted is returned when a completed session receives another answer.
	ErrSessionCompleted = errors.New("interview session already completed")
	// ErrSessionConcluding is returned when an answer arrives after the closing remark.
	ErrSessionConcluding = errors.New("interview is concluding, end it to receive feedback")
	// ErrFeedbackNotReady is returned while feedback has not been generated yet.
	ErrFeedbackNotReady = errors.New("feedback not available, please end the interview first")
	// ErrSessionBusy is returned when another mutating call holds the session.
	ErrSessionBusy = errors.New("interview session is busy with another request")
)

// StoreError reports a durable store failure for a session
type StoreError struct {
	SessionID string
	Op        string
	Err       error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("durable store %s failed for session %s: %v", e.Op, e.SessionID, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}
