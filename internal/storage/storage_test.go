package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"InterviewBot/internal/session"
)

func backends(t *testing.T) map[string]session.Durable {
	t.Helper()
	dir := t.TempDir()

	sqlite, err := Open(SchemeSQLite + filepath.Join(dir, "interview.db"))
	require.NoError(t, err)
	bolt, err := Open(SchemeBolt + filepath.Join(dir, "interview.bolt"))
	require.NoError(t, err)

	t.Cleanup(func() {
		sqlite.Close()
		bolt.Close()
	})
	return map[string]session.Durable{"sqlite": sqlite, "bolt": bolt}
}

func newSession(id string) *session.Session {
	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	return &session.Session{
		ID:                 id,
		ResumeText:         "Ten years of Go.",
		JobDescriptionText: "Senior backend engineer.",
		Transcript: session.Transcript{
			{Role: session.RoleSystem, Content: "prime", Timestamp: start},
			{Role: session.RoleInterviewer, Content: "Tell me about yourself.", Timestamp: start},
		},
		QuestionCount: 1,
		Status:        session.StatusCreated,
		StartedAt:     start,
	}
}

func TestDurable_CreateGet(t *testing.T) {
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, store.Create(ctx, newSession("s1")))

			got, err := store.Get(ctx, "s1")
			require.NoError(t, err)
			require.NotNil(t, got)

			assert.Equal(t, "Ten years of Go.", got.ResumeText)
			assert.Equal(t, "Senior backend engineer.", got.JobDescriptionText)
			assert.Equal(t, 1, got.QuestionCount)
			assert.Equal(t, session.StatusCreated, got.Status)
			assert.True(t, got.StartedAt.Equal(newSession("s1").StartedAt))
			assert.Nil(t, got.EndedAt)
			assert.False(t, got.Completed)
			require.Len(t, got.Transcript, 2)
			assert.Equal(t, session.RoleSystem, got.Transcript[0].Role)
			assert.Equal(t, "Tell me about yourself.", got.Transcript[1].Content)
		})
	}
}

func TestDurable_GetUnknown(t *testing.T) {
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			got, err := store.Get(context.Background(), "missing")
			require.NoError(t, err)
			assert.Nil(t, got)
		})
	}
}

func TestDurable_CreateDuplicate(t *testing.T) {
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, store.Create(ctx, newSession("dup")))
			assert.Error(t, store.Create(ctx, newSession("dup")))
		})
	}
}

func TestDurable_UpdateAppendsInOrder(t *testing.T) {
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, store.Create(ctx, newSession("s1")))

			now := time.Now().UTC()
			qc := 2
			status := session.StatusInProgress
			require.NoError(t, store.Update(ctx, "s1", session.Patch{
				AppendTurns: []session.Turn{
					{Role: session.RoleCandidate, Content: "A1", Timestamp: now},
					{Role: session.RoleInterviewer, Content: "Q2", Timestamp: now},
				},
				QuestionCount: &qc,
				Status:        &status,
			}))
			require.NoError(t, store.Update(ctx, "s1", session.Patch{
				AppendTurns: []session.Turn{{Role: session.RoleCandidate, Content: "A2", Timestamp: now}},
			}))

			got, err := store.Get(ctx, "s1")
			require.NoError(t, err)
			require.Len(t, got.Transcript, 5)

			var contents []string
			for _, turn := range got.Transcript {
				contents = append(contents, turn.Content)
			}
			assert.Equal(t, []string{"prime", "Tell me about yourself.", "A1", "Q2", "A2"}, contents)
			assert.Equal(t, 2, got.QuestionCount)
			assert.Equal(t, session.StatusInProgress, got.Status)
		})
	}
}

func TestDurable_UpdateCompletion(t *testing.T) {
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, store.Create(ctx, newSession("s1")))

			ended := time.Date(2026, 3, 1, 9, 12, 0, 0, time.UTC)
			feedback := "## Overall impression\nSolid."
			done := true
			status := session.StatusCompleted
			require.NoError(t, store.Update(ctx, "s1", session.Patch{
				Feedback:  &feedback,
				EndedAt:   &ended,
				Completed: &done,
				Status:    &status,
			}))

			got, err := store.Get(ctx, "s1")
			require.NoError(t, err)
			assert.Equal(t, feedback, got.Feedback)
			assert.True(t, got.Completed)
			require.NotNil(t, got.EndedAt)
			assert.True(t, got.EndedAt.Equal(ended))
			assert.Equal(t, int64(720), got.Duration())
		})
	}
}

func TestDurable_UpdateUnknown(t *testing.T) {
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			qc := 2
			err := store.Update(context.Background(), "missing", session.Patch{QuestionCount: &qc})
			assert.True(t, errors.Is(err, ErrNotFound), "got %v", err)
		})
	}
}

func TestOpen_UnknownScheme(t *testing.T) {
	_, err := Open("mongodb://localhost/interviews")
	assert.Error(t, err)
}

func TestSQLite_SurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reopen.db")
	ctx := context.Background()

	first, err := NewSQLite(path)
	require.NoError(t, err)
	require.NoError(t, first.Create(ctx, newSession("s1")))
	require.NoError(t, first.Close())

	second, err := NewSQLite(path)
	require.NoError(t, err)
	defer second.Close()

	got, err := second.Get(ctx, "s1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Len(t, got.Transcript, 2)
}
