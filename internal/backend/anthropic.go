package backend

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"InterviewBot/internal/session"
)

const anthropicVersion = "2023-06-01"

// AnthropicRequest represents the request body for Anthropic API
type AnthropicRequest struct {
	Model     string             `json:"model"`
	MaxTokens int                `json:"max_tokens"`
	System    string             `json:"system,omitempty"`
	Messages  []AnthropicMessage `json:"messages"`
}

// AnthropicMessage represents a message in the conversation
type AnthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// AnthropicContent represents a content block of a response
type AnthropicContent struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// AnthropicResponse represents the response from Anthropic API
type AnthropicResponse struct {
	ID           string                 `json:"id"`
	Type         string                 `json:"type"`
	Role         string                 `json:"role"`
	Content      []AnthropicContent     `json:"content"`
	Model        string                 `json:"model"`
	StopReason   string                 `json:"stop_reason"`
	StopSequence string                 `json:"stop_sequence"`
	Usage        map[string]interface{} `json:"usage"`
}

type anthropicProvider struct {
	endpoint string
	model    string
	apiKey   string
	client   *http.Client
	in       *instruments
}

func newAnthropicProvider(opts Options, in *instruments) *anthropicProvider {
	p := &anthropicProvider{
		endpoint: "https://api.anthropic.com/v1/messages",
		model:    "claude-sonnet-4-20250514",
		apiKey:   opts.APIKey,
		client:   opts.HTTPClient,
		in:       in,
	}
	if opts.Endpoint != "" {
		p.endpoint = opts.Endpoint
	}
	if opts.Model != "" {
		p.model = opts.Model
	}
	return p
}

func (p *anthropicProvider) Name() string { return Anthropic }

func (p *anthropicProvider) Generate(ctx context.Context, turns []session.Turn) (text string, err error) {
	ctx, done := p.in.begin(ctx, Anthropic, len(turns))
	defer func() { done(err) }()

	if p.apiKey == "" {
		return "", fmt.Errorf("anthropic API key not set")
	}

	system, messages := anthropicMessages(turns)
	reqBody := AnthropicRequest{
		Model:     p.model,
		MaxTokens: 1024,
		System:    system,
		Messages:  messages,
	}

	var apiResp AnthropicResponse
	headers := map[string]string{
		"x-api-key":         p.apiKey,
		"anthropic-version": anthropicVersion,
	}
	if err := postJSON(ctx, p.client, p.endpoint, headers, reqBody, &apiResp); err != nil {
		return "", err
	}

	p.in.recordUsage(ctx, apiResp.Usage)

	for _, content := range apiResp.Content {
		if content.Type == "text" && strings.TrimSpace(content.Text) != "" {
			return content.Text, nil
		}
	}
	return "", fmt.Errorf("anthropic: %w", ErrEmptyResponse)
}

// anthropicMessages lifts the priming turn into the system field, merges
// consecutive turns of the same role and makes sure the conversation opens
// with a user message.
func anthropicMessages(turns []session.Turn) (string, []AnthropicMessage) {
	var system string
	var out []AnthropicMessage

	for i, turn := range turns {
		role := chatRole(i, turn)
		if role == "system" {
			system = turn.Content
			continue
		}
		if n := len(out); n > 0 && out[n-1].Role == role {
			out[n-1].Content += "\n\n" + turn.Content
			continue
		}
		out = append(out, AnthropicMessage{Role: role, Content: turn.Content})
	}

	if len(out) == 0 || out[0].Role != "user" {
		out = append([]AnthropicMessage{{Role: "user", Content: "Please begin."}}, out...)
	}
	return system, out
}
