package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"InterviewBot/internal/ingest"
	"InterviewBot/internal/interview"
	"InterviewBot/internal/session"
)

type errorResponse struct {
	Message string `json:"message"`
}

// statusFor maps a domain error to an HTTP status code
func statusFor(err error) int {
	var (
		contentErr  *ingest.ContentError
		providerErr *interview.ProviderError
		storeErr    *session.StoreError
	)
	switch {
	case errors.Is(err, session.ErrInvalidInput), errors.As(err, &contentErr):
		return http.StatusBadRequest
	case errors.Is(err, session.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, session.ErrSessionCompleted),
		errors.Is(err, session.ErrSessionConcluding),
		errors.Is(err, session.ErrFeedbackNotReady):
		return http.StatusBadRequest
	case errors.Is(err, session.ErrSessionBusy):
		return http.StatusConflict
	case errors.Is(err, interview.ErrProviderTimeout):
		return http.StatusGatewayTimeout
	case errors.As(err, &providerErr):
		return http.StatusBadGateway
	case errors.As(err, &storeErr):
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Message: msg})
}

// writeError logs err and writes it as {"message": ...} with the mapped status
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	level := slog.LevelWarn
	if status >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	s.logger.Log(r.Context(), level, "request failed",
		"method", r.Method, "path", r.URL.Path, "status", status, "error", err)
	writeMessage(w, status, err.Error())
}
