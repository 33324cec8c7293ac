package session

import "time"

// Patch describes a partial update to a session. Nil fields are left alone
// and AppendTurns is appended after the existing transcript.
type Patch struct {
	AppendTurns   []Turn
	QuestionCount *int
	Status        *Status
	Feedback      *string
	EndedAt       *time.Time
	Completed     *bool
}

// Empty reports whether the patch changes nothing
func (p Patch) Empty() bool {
	return len(p.AppendTurns) == 0 && p.QuestionCount == nil && p.Status == nil &&
		p.Feedback == nil && p.EndedAt == nil && p.Completed == nil
}

// Apply mutates s in place
func (p Patch) Apply(s *Session) {
	if len(p.AppendTurns) > 0 {
		s.Transcript = s.Transcript.Append(p.AppendTurns...)
	}
	if p.QuestionCount != nil {
		s.QuestionCount = *p.QuestionCount
	}
	if p.Status != nil {
		s.Status = *p.Status
	}
	if p.Feedback != nil {
		s.Feedback = *p.Feedback
	}
	if p.EndedAt != nil {
		t := *p.EndedAt
		s.EndedAt = &t
	}
	if p.Completed != nil {
		s.Completed = *p.Completed
	}
}
