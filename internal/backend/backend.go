// Package backend talks to the generative-language providers that author
// interviewer turns.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"InterviewBot/internal/session"
)

const (
	Ollama    = "ollama"
	Anthropic = "anthropic"
	Grok      = "grok"
	OpenAI    = "openai"
	Azure     = "azure"
)

var (
	// ErrTimeout is returned when a provider call exceeds its deadline.
	ErrTimeout = errors.New("provider request timed out")
	// ErrEmptyResponse is returned when the provider answers without usable text.
	ErrEmptyResponse = errors.New("provider returned an empty response")
)

// Provider produces the next model-authored turn for a conversation.
//
// The first system turn is the priming instruction. Any later system turn is
// an operator directive and is delivered to the model as a user message.
type Provider interface {
	Name() string
	Generate(ctx context.Context, turns []session.Turn) (string, error)
}

// Options configures a Provider
type Options struct {
	Kind       string
	APIKey     string
	Model      string
	Endpoint   string
	HTTPClient *http.Client
	Tracer     trace.Tracer
	Meter      metric.Meter
	Logger     *slog.Logger
}

// New builds the provider named by opts.Kind
func New(opts Options) (Provider, error) {
	in := newInstruments(opts)
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: 60 * time.Second}
	}

	switch opts.Kind {
	case OpenAI:
		return newOpenAICompatible(OpenAI, "https://api.openai.com/v1/chat/completions", "gpt-4o-mini", opts, in), nil
	case Grok:
		return newOpenAICompatible(Grok, "https://api.grok.x.ai/v1/chat/completions", "grok-1", opts, in), nil
	case Anthropic:
		return newAnthropicProvider(opts, in), nil
	case Ollama:
		return newOllamaProvider(opts, in), nil
	case Azure:
		return newAzureProvider(opts, in)
	default:
		return nil, fmt.Errorf("unknown backend: %s", opts.Kind)
	}
}

// instruments carries the tracing and metrics shared by every provider
type instruments struct {
	tracer  trace.Tracer
	meter   metric.Meter
	latency metric.Float64Histogram
	logger  *slog.Logger
}

func newInstruments(opts Options) *instruments {
	in := &instruments{tracer: opts.Tracer, meter: opts.Meter, logger: opts.Logger}
	if in.tracer == nil {
		in.tracer = otel.Tracer("interviewbot")
	}
	if in.meter == nil {
		in.meter = otel.Meter("interviewbot")
	}
	if in.logger == nil {
		in.logger = slog.Default()
	}

	histogram, err := in.meter.Float64Histogram(
		"provider.request.duration",
		metric.WithDescription("Provider request duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		in.logger.Warn("failed to create provider latency histogram", "error", err)
	}
	in.latency = histogram
	return in
}

// begin opens a span for a provider call. The returned func ends the span
// and records latency.
func (in *instruments) begin(ctx context.Context, provider string, turns int) (context.Context, func(err error)) {
	ctx, span := in.tracer.Start(ctx, provider+"_api_call",
		trace.WithAttributes(
			attribute.String("provider", provider),
			attribute.Int("turns", turns),
		),
	)
	start := time.Now()

	return ctx, func(err error) {
		if in.latency != nil {
			in.latency.Record(ctx, float64(time.Since(start).Milliseconds()),
				metric.WithAttributes(attribute.String("provider", provider)))
		}
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}
}

// recordUsage records token usage reported by the provider
func (in *instruments) recordUsage(ctx context.Context, usage map[string]interface{}) {
	for key, value := range usage {
		intVal, ok := value.(float64)
		if !ok {
			continue
		}
		counter, err := in.meter.Int64Counter(
			fmt.Sprintf("llm.usage.%s", key),
			metric.WithDescription(fmt.Sprintf("LLM usage metric: %s", key)),
		)
		if err != nil {
			in.logger.Warn("failed to create counter", "key", key, "error", err)
			continue
		}
		counter.Add(ctx, int64(intVal))
	}
}

// postJSON sends body to url and decodes a 200 response into out
func postJSON(ctx context.Context, client *http.Client, url string, headers map[string]string, body, out any) error {
	jsonData, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("content-type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("API error: %s - %s", resp.Status, string(respBody))
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return nil
}

// chatRole maps a turn to the role name used by chat-completion style APIs
func chatRole(i int, turn session.Turn) string {
	switch turn.Role {
	case session.RoleSystem:
		if i == 0 {
			return "system"
		}
		return "user"
	case session.RoleInterviewer:
		return "assistant"
	default:
		return "user"
	}
}

// chatMessages converts turns to role/content maps
func chatMessages(turns []session.Turn) []map[string]string {
	msgs := make([]map[string]string, len(turns))
	for i, turn := range turns {
		msgs[i] = map[string]string{
			"role":    chatRole(i, turn),
			"content": turn.Content,
		}
	}
	return msgs
}

// timeoutProvider bounds every call with a deadline
type timeoutProvider struct {
	Provider
	timeout time.Duration
}

// WithTimeout wraps p so that each Generate call fails with ErrTimeout after d
func WithTimeout(p Provider, d time.Duration) Provider {
	if d <= 0 {
		return p
	}
	return &timeoutProvider{Provider: p, timeout: d}
}

func (t *timeoutProvider) Generate(ctx context.Context, turns []session.Turn) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	text, err := t.Provider.Generate(callCtx, turns)
	if err != nil && errors.Is(callCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		return "", fmt.Errorf("%w after %s: %v", ErrTimeout, t.timeout, err)
	}
	return text, err
}
