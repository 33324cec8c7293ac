// Package server exposes the interview orchestrator and upload collaborator over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"InterviewBot/internal/ingest"
	"InterviewBot/internal/interview"
	"InterviewBot/internal/session"
)

const maxJSONBody = 1 << 20

type StartRequest struct {
	ResumePath         string `json:"resumePath" validate:"required"`
	JobDescriptionPath string `json:"jobDescriptionPath" validate:"required"`
}

type StartResponse struct {
	SessionID string `json:"sessionId"`
	Message   string `json:"message"`
}

type AnswerRequest struct {
	SessionID string `json:"sessionId" validate:"required"`
	Answer    string `json:"answer" validate:"required"`
}

type AnswerResponse struct {
	Message   string `json:"message"`
	ShouldEnd bool   `json:"shouldEnd"`
}

type EndRequest struct {
	SessionID string `json:"sessionId" validate:"required"`
}

type EndResponse struct {
	Message   string `json:"message"`
	SessionID string `json:"sessionId"`
}

type FeedbackResponse struct {
	Feedback  string `json:"feedback"`
	Duration  int64  `json:"duration"`
	Questions int    `json:"questions"`
}

type UploadResponse struct {
	Message string            `json:"message"`
	Data    map[string]string `json:"data"`
}

// Server routes interview and upload requests
type Server struct {
	router   *http.ServeMux
	orch     *interview.Orchestrator
	uploader *ingest.Uploader
	metrics  *Metrics
	gatherer prometheus.Gatherer
	logger   *slog.Logger
	validate *validator.Validate

	// extract resolves an uploaded path to document text
	extract func(path string) (string, error)
}

// New creates a Server. gatherer serves /metrics.
func New(orch *interview.Orchestrator, uploader *ingest.Uploader, metrics *Metrics, gatherer prometheus.Gatherer, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})

	s := &Server{
		router:   http.NewServeMux(),
		orch:     orch,
		uploader: uploader,
		metrics:  metrics,
		gatherer: gatherer,
		logger:   logger,
		validate: v,
		extract:  ingest.ExtractText,
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	s.router.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("API is running..."))
	})
	s.router.Handle("GET /metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))

	s.router.HandleFunc("POST /api/files/upload", s.handleUpload)

	s.router.HandleFunc("POST /api/interview/start", s.handleStart)
	s.router.HandleFunc("POST /api/interview/answer", s.handleAnswer)
	s.router.HandleFunc("POST /api/interview/end", s.handleEnd)
	s.router.HandleFunc("GET /api/interview/feedback/{sessionId}", s.handleFeedback)
}

// Handler returns the routed handler wrapped with request metrics
func (s *Server) Handler() http.Handler {
	if s.metrics == nil {
		return s.router
	}
	return MetricsMiddleware(s.metrics, s.router)
}

// decode reads a JSON body into v and validates it
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: invalid JSON body: %v", session.ErrInvalidInput, err)
	}
	if err := s.validate.Struct(v); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fe.Field())
			}
			return fmt.Errorf("%w: %s required", session.ErrInvalidInput, strings.Join(fields, " and "))
		}
		return fmt.Errorf("%w: %v", session.ErrInvalidInput, err)
	}
	return nil
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	limit := 2*s.uploader.MaxSize + 1<<20
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := r.ParseMultipartForm(limit); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			s.writeError(w, r, fmt.Errorf("%w: upload exceeds %d bytes", session.ErrInvalidInput, limit))
			return
		}
		s.writeError(w, r, fmt.Errorf("%w: invalid multipart form: %v", session.ErrInvalidInput, err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	files := r.MultipartForm.File
	if len(files[ingest.FieldResume]) != 1 || len(files[ingest.FieldJobDescription]) != 1 {
		writeMessage(w, http.StatusBadRequest, "Please upload both resume and job description files")
		return
	}

	data := make(map[string]string, 2)
	for _, field := range []string{ingest.FieldResume, ingest.FieldJobDescription} {
		path, err := s.uploader.Save(field, files[field][0])
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		data[field] = path
	}

	s.logger.Info("files uploaded", "resume", data[ingest.FieldResume], "job_description", data[ingest.FieldJobDescription])
	writeJSON(w, http.StatusOK, UploadResponse{Message: "Files uploaded successfully", Data: data})
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	var req StartRequest
	if err := s.decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	resume, err := s.extract(req.ResumePath)
	if err != nil {
		s.writeError(w, r, fmt.Errorf("unable to read resume file: %w", err))
		return
	}
	jobDescription, err := s.extract(req.JobDescriptionPath)
	if err != nil {
		s.writeError(w, r, fmt.Errorf("unable to read job description file: %w", err))
		return
	}

	res, err := s.orch.Start(r.Context(), resume, jobDescription)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, StartResponse{SessionID: res.SessionID, Message: res.Message})
}

func (s *Server) handleAnswer(w http.ResponseWriter, r *http.Request) {
	var req AnswerRequest
	if err := s.decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	res, err := s.orch.SubmitAnswer(r.Context(), req.SessionID, req.Answer)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, AnswerResponse{Message: res.Message, ShouldEnd: res.ShouldEnd})
}

func (s *Server) handleEnd(w http.ResponseWriter, r *http.Request) {
	var req EndRequest
	if err := s.decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	if _, err := s.orch.Conclude(r.Context(), req.SessionID); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, EndResponse{Message: "Interview completed successfully", SessionID: req.SessionID})
}

func (s *Server) handleFeedback(w http.ResponseWriter, r *http.Request) {
	fb, err := s.orch.GetFeedback(r.Context(), r.PathValue("sessionId"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, FeedbackResponse{
		Feedback:  fb.Feedback,
		Duration:  fb.Duration,
		Questions: fb.Questions,
	})
}

// Run serves on port until ctx is cancelled, then shuts down gracefully.
// writeTimeout must cover the slowest provider call.
func (s *Server) Run(ctx context.Context, port int, writeTimeout time.Duration) error {
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      s.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: writeTimeout,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("starting server", "port", port)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("server shutdown error", "error", err)
		}
	}()

	err := server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}
