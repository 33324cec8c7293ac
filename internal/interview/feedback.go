package interview

import (
	"context"

	"InterviewBot/internal/session"
)

// generateFeedback asks the provider for the final report over the full
// persisted transcript. The report is opaque beyond being non-empty.
func (o *Orchestrator) generateFeedback(ctx context.Context, sess *session.Session) (string, error) {
	conversation := sess.Transcript.Append(session.Turn{
		Role:    session.RoleSystem,
		Content: feedbackPrompt,
	})
	return o.generate(ctx, sess.ID, PhaseFeedback, conversation)
}
