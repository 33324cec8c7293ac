package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"InterviewBot/internal/session"
)

func TestPrintSession(t *testing.T) {
	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	end := start.Add(95 * time.Second)
	s := &session.Session{
		ID: "abc",
		Transcript: session.Transcript{
			{Role: session.RoleSystem, Content: "You are an AI interviewer. resume text here"},
			{Role: session.RoleInterviewer, Content: "Tell me about yourself."},
			{Role: session.RoleCandidate, Content: "  I write Go.  "},
		},
		QuestionCount: 1,
		Status:        session.StatusCompleted,
		StartedAt:     start,
		EndedAt:       &end,
		Feedback:      "## Overall impression\nSolid.",
		Completed:     true,
	}

	var buf bytes.Buffer
	printSession(&buf, s)
	out := buf.String()

	assert.Contains(t, out, "Session:   abc")
	assert.Contains(t, out, "(95s)")
	assert.Contains(t, out, "[system] priming instruction")
	assert.NotContains(t, out, "resume text here")
	assert.Contains(t, out, "[interviewer] Tell me about yourself.")
	assert.Contains(t, out, "[candidate] I write Go.\n")
	assert.Contains(t, out, "=== Feedback ===\n## Overall impression")
}
