package session

import (
	"time"

	"github.com/google/uuid"
)

// Role identifies who authored a turn
type Role string

const (
	RoleSystem      Role = "system"
	RoleInterviewer Role = "interviewer"
	RoleCandidate   Role = "candidate"
)

// Valid reports whether r is one of the known roles
func (r Role) Valid() bool {
	switch r {
	case RoleSystem, RoleInterviewer, RoleCandidate:
		return true
	}
	return false
}

// Status is the lifecycle state of an interview session
type Status string

const (
	StatusCreated    Status = "created"
	StatusInProgress Status = "in_progress"
	StatusConcluding Status = "concluding"
	StatusCompleted  Status = "completed"
)

// Turn represents a single unit of conversation
type Turn struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Session represents one candidate's interview
type Session struct {
	ID                 string     `json:"id"`
	ResumeText         string     `json:"resume_text"`
	JobDescriptionText string     `json:"job_description_text"`
	Transcript         Transcript `json:"transcript"`
	QuestionCount      int        `json:"question_count"`
	Status             Status     `json:"status"`
	StartedAt          time.Time  `json:"started_at"`
	EndedAt            *time.Time `json:"ended_at,omitempty"`
	Feedback           string     `json:"feedback,omitempty"`
	Completed          bool       `json:"completed"`
}

// NewID returns a fresh session identifier
func NewID() string {
	return uuid.NewString()
}

// HasFeedback reports whether the feedback report has been generated
func (s *Session) HasFeedback() bool {
	return s.Feedback != ""
}

// Duration returns the whole seconds between start and end. Sessions that
// have not ended report zero.
func (s *Session) Duration() int64 {
	if s.EndedAt == nil {
		return 0
	}
	d := int64(s.EndedAt.Sub(s.StartedAt) / time.Second)
	if d < 0 {
		return 0
	}
	return d
}

// Clone returns a deep copy so callers can mutate without touching shared state
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	c := *s
	c.Transcript = s.Transcript.Clone()
	if s.EndedAt != nil {
		t := *s.EndedAt
		c.EndedAt = &t
	}
	return &c
}
