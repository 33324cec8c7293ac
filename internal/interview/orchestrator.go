// Package interview runs the interview state machine: it owns session
// creation, turn-taking, termination and write-through persistence.
package interview

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"InterviewBot/internal/backend"
	"InterviewBot/internal/session"
)

// DefaultMaxQuestions is the number of interviewer questions before the closing remark.
const DefaultMaxQuestions = 3

// Metrics receives lifecycle events. Implementations must be safe for concurrent use.
type Metrics interface {
	SessionStarted()
	SessionCompleted()
	ProviderFailed(phase string)
}

type noopMetrics struct{}

func (noopMetrics) SessionStarted()       {}
func (noopMetrics) SessionCompleted()     {}
func (noopMetrics) ProviderFailed(string) {}

// Config holds orchestrator settings
type Config struct {
	MaxQuestions int
	Logger       *slog.Logger
	Metrics      Metrics
}

// StartResult is returned by Start
type StartResult struct {
	SessionID string
	Message   string
}

// AnswerResult is returned by SubmitAnswer
type AnswerResult struct {
	Message   string
	ShouldEnd bool
}

// Feedback is the final report for a completed session
type Feedback struct {
	Feedback  string
	Duration  int64
	Questions int
}

// Orchestrator drives interviews. Mutating calls on one session are
// serialized; a concurrent second call fails with session.ErrSessionBusy.
type Orchestrator struct {
	store        *session.Store
	provider     backend.Provider
	locks        *session.Locker
	maxQuestions int
	logger       *slog.Logger
	metrics      Metrics
	now          func() time.Time
	newID        func() string
}

// New creates an Orchestrator
func New(store *session.Store, provider backend.Provider, cfg Config) *Orchestrator {
	o := &Orchestrator{
		store:        store,
		provider:     provider,
		locks:        session.NewLocker(),
		maxQuestions: cfg.MaxQuestions,
		logger:       cfg.Logger,
		metrics:      cfg.Metrics,
		now:          func() time.Time { return time.Now().UTC() },
		newID:        session.NewID,
	}
	if o.maxQuestions < 1 {
		o.maxQuestions = DefaultMaxQuestions
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	if o.metrics == nil {
		o.metrics = noopMetrics{}
	}
	return o
}

// MaxQuestions returns the configured question limit
func (o *Orchestrator) MaxQuestions() int {
	return o.maxQuestions
}

// Start creates a session from extracted résumé and job-description text and
// returns the interviewer's opening. Nothing is persisted if the provider fails.
func (o *Orchestrator) Start(ctx context.Context, resumeText, jobDescriptionText string) (*StartResult, error) {
	if strings.TrimSpace(resumeText) == "" || strings.TrimSpace(jobDescriptionText) == "" {
		return nil, fmt.Errorf("%w: resume and job description text are required", session.ErrInvalidInput)
	}
	ctx = context.WithoutCancel(ctx)

	id := o.newID()
	logger := o.logger.With("session_id", id, "phase", PhaseOpening)
	logger.Info("starting interview",
		"resume_length", len(resumeText),
		"job_description_length", len(jobDescriptionText))

	priming := session.Turn{
		Role:      session.RoleSystem,
		Content:   primingPrompt(resumeText, jobDescriptionText),
		Timestamp: o.now(),
	}

	opening, err := o.generate(ctx, id, PhaseOpening, session.Transcript{priming})
	if err != nil {
		return nil, err
	}

	now := o.now()
	sess := &session.Session{
		ID:                 id,
		ResumeText:         resumeText,
		JobDescriptionText: jobDescriptionText,
		Transcript: session.Transcript{
			priming,
			{Role: session.RoleInterviewer, Content: opening, Timestamp: now},
		},
		QuestionCount: 1,
		Status:        session.StatusCreated,
		StartedAt:     now,
	}

	if err := o.store.Create(ctx, sess); err != nil {
		logger.Error("failed to persist new session", "error", err)
		return nil, err
	}

	o.metrics.SessionStarted()
	logger.Info("interview started")
	return &StartResult{SessionID: id, Message: opening}, nil
}

// SubmitAnswer records the candidate's answer and returns either the next
// question or, once the question limit is reached, the closing remark.
// The closing remark is returned but never added to the transcript.
func (o *Orchestrator) SubmitAnswer(ctx context.Context, sessionID, answer string) (*AnswerResult, error) {
	if strings.TrimSpace(sessionID) == "" || strings.TrimSpace(answer) == "" {
		return nil, fmt.Errorf("%w: session ID and answer are required", session.ErrInvalidInput)
	}
	ctx = context.WithoutCancel(ctx)

	release, ok := o.locks.TryLock(sessionID)
	if !ok {
		return nil, session.ErrSessionBusy
	}
	defer release()

	sess, err := o.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	switch {
	case sess.Completed:
		return nil, session.ErrSessionCompleted
	case sess.Status == session.StatusConcluding:
		return nil, session.ErrSessionConcluding
	}

	candidate := session.Turn{Role: session.RoleCandidate, Content: answer, Timestamp: o.now()}
	shouldEnd := sess.QuestionCount >= o.maxQuestions

	phase, directive := PhaseQuestion, nextQuestionPrompt
	if shouldEnd {
		phase, directive = PhaseClosing, closingPrompt
	}
	logger := o.logger.With("session_id", sessionID, "phase", phase)

	conversation := sess.Transcript.Append(candidate, session.Turn{Role: session.RoleSystem, Content: directive})
	message, err := o.generate(ctx, sessionID, phase, conversation)
	if err != nil {
		return nil, err
	}

	var patch session.Patch
	if shouldEnd {
		status := session.StatusConcluding
		patch = session.Patch{
			AppendTurns: []session.Turn{candidate},
			Status:      &status,
		}
	} else {
		count := sess.QuestionCount + 1
		status := session.StatusInProgress
		patch = session.Patch{
			AppendTurns: []session.Turn{
				candidate,
				{Role: session.RoleInterviewer, Content: message, Timestamp: o.now()},
			},
			QuestionCount: &count,
			Status:        &status,
		}
	}

	if err := o.store.Update(ctx, sessionID, patch); err != nil {
		logger.Error("failed to record answer", "error", err)
		return nil, err
	}

	logger.Info("answer processed", "question_count", sess.QuestionCount, "should_end", shouldEnd)
	return &AnswerResult{Message: message, ShouldEnd: shouldEnd}, nil
}

// Conclude generates and stores the feedback report, completing the session.
// Concluding an already completed session returns the stored report unchanged.
func (o *Orchestrator) Conclude(ctx context.Context, sessionID string) (string, error) {
	if strings.TrimSpace(sessionID) == "" {
		return "", fmt.Errorf("%w: session ID is required", session.ErrInvalidInput)
	}
	ctx = context.WithoutCancel(ctx)

	release, ok := o.locks.TryLock(sessionID)
	if !ok {
		return "", session.ErrSessionBusy
	}
	defer release()

	sess, err := o.load(ctx, sessionID)
	if err != nil {
		return "", err
	}
	logger := o.logger.With("session_id", sessionID, "phase", PhaseFeedback)

	if sess.Completed {
		logger.Info("session already completed, returning stored feedback")
		return sess.Feedback, nil
	}

	feedback, err := o.generateFeedback(ctx, sess)
	if err != nil {
		return "", err
	}

	ended := o.now()
	done := true
	status := session.StatusCompleted
	err = o.store.Update(ctx, sessionID, session.Patch{
		Feedback:  &feedback,
		EndedAt:   &ended,
		Completed: &done,
		Status:    &status,
	})
	if err != nil {
		logger.Error("failed to store feedback", "error", err)
		return "", err
	}

	o.metrics.SessionCompleted()
	logger.Info("interview completed", "turns", len(sess.Transcript), "questions", sess.QuestionCount)
	return feedback, nil
}

// GetFeedback returns the report of a completed session.
// session.ErrFeedbackNotReady means the caller should end the interview or retry later.
func (o *Orchestrator) GetFeedback(ctx context.Context, sessionID string) (*Feedback, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, fmt.Errorf("%w: session ID is required", session.ErrInvalidInput)
	}

	sess, err := o.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !sess.HasFeedback() {
		return nil, session.ErrFeedbackNotReady
	}

	return &Feedback{
		Feedback:  sess.Feedback,
		Duration:  sess.Duration(),
		Questions: sess.QuestionCount,
	}, nil
}

func (o *Orchestrator) load(ctx context.Context, sessionID string) (*session.Session, error) {
	sess, err := o.store.Get(ctx, sessionID)
	if err != nil {
		o.logger.Error("failed to load session", "session_id", sessionID, "error", err)
		return nil, err
	}
	if sess == nil {
		return nil, session.ErrSessionNotFound
	}
	return sess, nil
}

// generate calls the provider and wraps any failure with the session and phase
func (o *Orchestrator) generate(ctx context.Context, sessionID, phase string, conversation session.Transcript) (string, error) {
	text, err := o.provider.Generate(ctx, conversation)
	if err == nil && strings.TrimSpace(text) == "" {
		err = backend.ErrEmptyResponse
	}
	if err != nil {
		o.metrics.ProviderFailed(phase)
		level := slog.LevelError
		if errors.Is(err, ErrProviderTimeout) {
			level = slog.LevelWarn
		}
		o.logger.Log(ctx, level, "provider call failed",
			"session_id", sessionID, "phase", phase, "provider", o.provider.Name(), "error", err)
		return "", &ProviderError{SessionID: sessionID, Phase: phase, Err: err}
	}
	return text, nil
}
