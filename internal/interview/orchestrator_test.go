package interview

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"InterviewBot/internal/backend"
	"InterviewBot/internal/session"
	"InterviewBot/internal/storage"
)

const (
	resumeText = "Backend engineer, eight years of Go, Kubernetes and PostgreSQL."
	jobText    = "Senior platform engineer building distributed services."
)

// fakeProvider answers with "reply N" for the Nth call unless fail is set.
// When block is non-nil every call waits for it to close.
type fakeProvider struct {
	mu      sync.Mutex
	calls   [][]session.Turn
	fail    error
	block   chan struct{}
	entered chan struct{}
}

func (p *fakeProvider) Name() string { return "fake" }

func (p *fakeProvider) Generate(ctx context.Context, turns []session.Turn) (string, error) {
	p.mu.Lock()
	p.calls = append(p.calls, append([]session.Turn(nil), turns...))
	n := len(p.calls)
	fail, block, entered := p.fail, p.block, p.entered
	p.mu.Unlock()

	if entered != nil {
		entered <- struct{}{}
	}
	if block != nil {
		<-block
	}
	if fail != nil {
		return "", fail
	}
	return fmt.Sprintf("reply %d", n), nil
}

func (p *fakeProvider) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.calls)
}

func (p *fakeProvider) lastCall() []session.Turn {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls[len(p.calls)-1]
}

type countingMetrics struct {
	mu             sync.Mutex
	started        int
	completed      int
	providerFailed map[string]int
}

func (m *countingMetrics) SessionStarted() {
	m.mu.Lock()
	m.started++
	m.mu.Unlock()
}

func (m *countingMetrics) SessionCompleted() {
	m.mu.Lock()
	m.completed++
	m.mu.Unlock()
}

func (m *countingMetrics) ProviderFailed(phase string) {
	m.mu.Lock()
	if m.providerFailed == nil {
		m.providerFailed = make(map[string]int)
	}
	m.providerFailed[phase]++
	m.mu.Unlock()
}

func newTestOrchestrator(t *testing.T, p backend.Provider, maxQuestions, cacheSize int) (*Orchestrator, *session.Store, *countingMetrics) {
	t.Helper()
	durable, err := storage.Open(storage.SchemeBolt + filepath.Join(t.TempDir(), "interview.bolt"))
	require.NoError(t, err)

	store := session.NewStore(durable, cacheSize, time.Hour, nil)
	t.Cleanup(func() { store.Close() })

	metrics := &countingMetrics{}
	o := New(store, p, Config{MaxQuestions: maxQuestions, Metrics: metrics})
	return o, store, metrics
}

func TestStart_RequiresText(t *testing.T) {
	p := &fakeProvider{}
	o, _, _ := newTestOrchestrator(t, p, 3, 16)

	_, err := o.Start(context.Background(), "  ", jobText)
	assert.ErrorIs(t, err, session.ErrInvalidInput)
	_, err = o.Start(context.Background(), resumeText, "")
	assert.ErrorIs(t, err, session.ErrInvalidInput)
	assert.Zero(t, p.callCount())
}

func TestStart_CreatesSession(t *testing.T) {
	p := &fakeProvider{}
	o, store, metrics := newTestOrchestrator(t, p, 3, 16)

	res, err := o.Start(context.Background(), resumeText, jobText)
	require.NoError(t, err)
	assert.Equal(t, "reply 1", res.Message)
	assert.NotEmpty(t, res.SessionID)

	// the opening call sees only the priming turn
	first := p.lastCall()
	require.Len(t, first, 1)
	assert.Equal(t, session.RoleSystem, first[0].Role)
	assert.Contains(t, first[0].Content, resumeText)
	assert.Contains(t, first[0].Content, jobText)

	sess, err := store.Get(context.Background(), res.SessionID)
	require.NoError(t, err)
	require.NotNil(t, sess)
	assert.Equal(t, 1, sess.QuestionCount)
	assert.Equal(t, session.StatusCreated, sess.Status)
	require.Len(t, sess.Transcript, 2)
	assert.Equal(t, session.RoleInterviewer, sess.Transcript[1].Role)
	assert.Equal(t, "reply 1", sess.Transcript[1].Content)
	assert.Equal(t, 1, metrics.started)
}

func TestStart_ProviderFailureLeavesNoSession(t *testing.T) {
	p := &fakeProvider{fail: errors.New("upstream unavailable")}
	o, store, metrics := newTestOrchestrator(t, p, 3, 16)
	o.newID = func() string { return "fixed-id" }

	_, err := o.Start(context.Background(), resumeText, jobText)
	require.Error(t, err)

	var perr *ProviderError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, PhaseOpening, perr.Phase)
	assert.Equal(t, "fixed-id", perr.SessionID)

	sess, err := store.Get(context.Background(), "fixed-id")
	require.NoError(t, err)
	assert.Nil(t, sess)
	assert.Zero(t, store.Cached())
	assert.Equal(t, 1, metrics.providerFailed[PhaseOpening])
	assert.Zero(t, metrics.started)
}

func TestInterviewFlow(t *testing.T) {
	ctx := context.Background()
	p := &fakeProvider{}
	o, store, metrics := newTestOrchestrator(t, p, 3, 16)

	base := time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)
	ticks := 0
	o.now = func() time.Time {
		ticks++
		return base.Add(time.Duration(ticks) * time.Minute)
	}

	start, err := o.Start(ctx, resumeText, jobText)
	require.NoError(t, err)
	id := start.SessionID

	for i, answer := range []string{"A1", "A2"} {
		res, err := o.SubmitAnswer(ctx, id, answer)
		require.NoError(t, err)
		assert.False(t, res.ShouldEnd, "answer %d", i+1)

		sess, err := store.Get(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, 2+i, sess.QuestionCount)
		assert.Equal(t, session.StatusInProgress, sess.Status)
	}

	closing, err := o.SubmitAnswer(ctx, id, "A3")
	require.NoError(t, err)
	assert.True(t, closing.ShouldEnd)
	assert.Equal(t, "reply 4", closing.Message)

	// closing request: transcript so far, final answer, closing directive
	closingCall := p.lastCall()
	assert.Equal(t, closingPrompt, closingCall[len(closingCall)-1].Content)

	sess, err := store.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 3, sess.QuestionCount)
	assert.Equal(t, session.StatusConcluding, sess.Status)
	require.Len(t, sess.Transcript, 7)
	assert.Equal(t, 3, sess.Transcript.Count(session.RoleCandidate))
	assert.Equal(t, 3, sess.Transcript.Count(session.RoleInterviewer))
	last, _ := sess.Transcript.Last()
	assert.Equal(t, session.RoleCandidate, last.Role)
	assert.Equal(t, "A3", last.Content)

	_, err = o.GetFeedback(ctx, id)
	assert.ErrorIs(t, err, session.ErrFeedbackNotReady)

	feedback, err := o.Conclude(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "reply 5", feedback)

	feedbackCall := p.lastCall()
	require.Len(t, feedbackCall, 8)
	assert.Equal(t, feedbackPrompt, feedbackCall[7].Content)
	for _, turn := range feedbackCall {
		assert.NotEqual(t, closing.Message, turn.Content)
	}

	report, err := o.GetFeedback(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "reply 5", report.Feedback)
	assert.Equal(t, 3, report.Questions)
	assert.Positive(t, report.Duration)
	assert.Equal(t, 1, metrics.completed)
}

func TestSubmitAnswer_QuestionCountTracksAnswers(t *testing.T) {
	ctx := context.Background()
	p := &fakeProvider{}
	o, store, _ := newTestOrchestrator(t, p, 5, 16)

	start, err := o.Start(ctx, resumeText, jobText)
	require.NoError(t, err)

	for n := 1; n <= 4; n++ {
		res, err := o.SubmitAnswer(ctx, start.SessionID, fmt.Sprintf("answer %d", n))
		require.NoError(t, err)
		assert.False(t, res.ShouldEnd)

		sess, err := store.Get(ctx, start.SessionID)
		require.NoError(t, err)
		assert.Equal(t, 1+n, sess.QuestionCount)
	}

	res, err := o.SubmitAnswer(ctx, start.SessionID, "answer 5")
	require.NoError(t, err)
	assert.True(t, res.ShouldEnd)
}

func TestSubmitAnswer_Validation(t *testing.T) {
	p := &fakeProvider{}
	o, _, _ := newTestOrchestrator(t, p, 3, 16)

	_, err := o.SubmitAnswer(context.Background(), "missing", "hello")
	assert.ErrorIs(t, err, session.ErrSessionNotFound)

	_, err = o.SubmitAnswer(context.Background(), "missing", " ")
	assert.ErrorIs(t, err, session.ErrInvalidInput)

	_, err = o.Conclude(context.Background(), "missing")
	assert.ErrorIs(t, err, session.ErrSessionNotFound)

	_, err = o.GetFeedback(context.Background(), "missing")
	assert.ErrorIs(t, err, session.ErrSessionNotFound)
}

func TestSubmitAnswer_ProviderFailureDoesNotPersist(t *testing.T) {
	ctx := context.Background()
	p := &fakeProvider{}
	o, store, metrics := newTestOrchestrator(t, p, 3, 16)

	start, err := o.Start(ctx, resumeText, jobText)
	require.NoError(t, err)

	p.mu.Lock()
	p.fail = errors.New("boom")
	p.mu.Unlock()

	_, err = o.SubmitAnswer(ctx, start.SessionID, "A1")
	var perr *ProviderError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, PhaseQuestion, perr.Phase)
	assert.Equal(t, start.SessionID, perr.SessionID)

	sess, err := store.Get(ctx, start.SessionID)
	require.NoError(t, err)
	assert.Equal(t, 1, sess.QuestionCount)
	assert.Len(t, sess.Transcript, 2)
	assert.Equal(t, 1, metrics.providerFailed[PhaseQuestion])

	// the session is still usable once the provider recovers
	p.mu.Lock()
	p.fail = nil
	p.mu.Unlock()

	res, err := o.SubmitAnswer(ctx, start.SessionID, "A1")
	require.NoError(t, err)
	assert.False(t, res.ShouldEnd)
}

func TestSubmitAnswer_RejectedAfterClosing(t *testing.T) {
	ctx := context.Background()
	p := &fakeProvider{}
	o, _, _ := newTestOrchestrator(t, p, 1, 16)

	start, err := o.Start(ctx, resumeText, jobText)
	require.NoError(t, err)

	res, err := o.SubmitAnswer(ctx, start.SessionID, "only answer")
	require.NoError(t, err)
	assert.True(t, res.ShouldEnd)

	_, err = o.SubmitAnswer(ctx, start.SessionID, "one more thing")
	assert.ErrorIs(t, err, session.ErrSessionConcluding)

	_, err = o.Conclude(ctx, start.SessionID)
	require.NoError(t, err)

	_, err = o.SubmitAnswer(ctx, start.SessionID, "one more thing")
	assert.ErrorIs(t, err, session.ErrSessionCompleted)
}

func TestConclude_Idempotent(t *testing.T) {
	ctx := context.Background()
	p := &fakeProvider{}
	o, store, metrics := newTestOrchestrator(t, p, 3, 16)

	start, err := o.Start(ctx, resumeText, jobText)
	require.NoError(t, err)

	first, err := o.Conclude(ctx, start.SessionID)
	require.NoError(t, err)
	sess, err := store.Get(ctx, start.SessionID)
	require.NoError(t, err)
	endedAt := *sess.EndedAt
	calls := p.callCount()

	second, err := o.Conclude(ctx, start.SessionID)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, calls, p.callCount())

	sess, err = store.Get(ctx, start.SessionID)
	require.NoError(t, err)
	assert.True(t, sess.EndedAt.Equal(endedAt))
	assert.Equal(t, session.StatusCompleted, sess.Status)
	assert.True(t, sess.Completed)
	assert.Equal(t, 1, metrics.completed)
}

func TestConclude_ProviderFailureKeepsSessionOpen(t *testing.T) {
	ctx := context.Background()
	p := &fakeProvider{}
	o, store, _ := newTestOrchestrator(t, p, 3, 16)

	start, err := o.Start(ctx, resumeText, jobText)
	require.NoError(t, err)

	p.mu.Lock()
	p.fail = errors.New("boom")
	p.mu.Unlock()

	_, err = o.Conclude(ctx, start.SessionID)
	var perr *ProviderError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, PhaseFeedback, perr.Phase)

	sess, err := store.Get(ctx, start.SessionID)
	require.NoError(t, err)
	assert.False(t, sess.Completed)
	assert.Nil(t, sess.EndedAt)

	_, err = o.GetFeedback(ctx, start.SessionID)
	assert.ErrorIs(t, err, session.ErrFeedbackNotReady)
}

type hangingProvider struct{}

func (hangingProvider) Name() string { return "hanging" }

func (hangingProvider) Generate(ctx context.Context, _ []session.Turn) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}

func TestStart_ProviderTimeout(t *testing.T) {
	o, store, _ := newTestOrchestrator(t, backend.WithTimeout(hangingProvider{}, 20*time.Millisecond), 3, 16)

	_, err := o.Start(context.Background(), resumeText, jobText)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrProviderTimeout)

	var perr *ProviderError
	assert.ErrorAs(t, err, &perr)
	assert.Zero(t, store.Cached())
}

func TestSubmitAnswer_ConcurrentCallsAreSerialized(t *testing.T) {
	defer goleak.VerifyNone(t)

	ctx := context.Background()
	p := &fakeProvider{}
	o, store, _ := newTestOrchestrator(t, p, 2, 16)

	start, err := o.Start(ctx, resumeText, jobText)
	require.NoError(t, err)

	block := make(chan struct{})
	entered := make(chan struct{}, 1)
	p.mu.Lock()
	p.block, p.entered = block, entered
	p.mu.Unlock()

	var (
		wg     sync.WaitGroup
		first  *AnswerResult
		errOne error
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		first, errOne = o.SubmitAnswer(ctx, start.SessionID, "first")
	}()
	<-entered

	_, err = o.SubmitAnswer(ctx, start.SessionID, "second")
	assert.ErrorIs(t, err, session.ErrSessionBusy)
	_, err = o.Conclude(ctx, start.SessionID)
	assert.ErrorIs(t, err, session.ErrSessionBusy)

	close(block)
	wg.Wait()
	require.NoError(t, errOne)
	assert.False(t, first.ShouldEnd)

	sess, err := store.Get(ctx, start.SessionID)
	require.NoError(t, err)
	assert.Equal(t, 2, sess.QuestionCount)
	assert.Equal(t, 1, sess.Transcript.Count(session.RoleCandidate))

	p.mu.Lock()
	p.block, p.entered = nil, nil
	p.mu.Unlock()

	res, err := o.SubmitAnswer(ctx, start.SessionID, "third")
	require.NoError(t, err)
	assert.True(t, res.ShouldEnd)
	assert.Zero(t, o.locks.Held())
}

func TestSessionSurvivesCacheEviction(t *testing.T) {
	ctx := context.Background()
	p := &fakeProvider{}
	o, store, _ := newTestOrchestrator(t, p, 3, 1)

	a, err := o.Start(ctx, resumeText, jobText)
	require.NoError(t, err)
	_, err = o.Start(ctx, resumeText, jobText)
	require.NoError(t, err)
	assert.Equal(t, 1, store.Cached())

	res, err := o.SubmitAnswer(ctx, a.SessionID, "A1")
	require.NoError(t, err)
	assert.False(t, res.ShouldEnd)

	sess, err := store.Get(ctx, a.SessionID)
	require.NoError(t, err)
	assert.Equal(t, 2, sess.QuestionCount)
	assert.Len(t, sess.Transcript, 4)
}
