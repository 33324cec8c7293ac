package backend

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"InterviewBot/internal/session"
)

// OpenAIRequest represents the request body for OpenAI-compatible APIs
type OpenAIRequest struct {
	Model    string              `json:"model"`
	Messages []map[string]string `json:"messages"`
}

// OpenAIResponse represents the response from OpenAI-compatible APIs
type OpenAIResponse struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	Created int64  `json:"created"`
	Model   string `json:"model"`
	Choices []struct {
		Index   int `json:"index"`
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage map[string]interface{} `json:"usage"`
}

// openAICompatible serves OpenAI and Grok, which share a wire format
type openAICompatible struct {
	name     string
	endpoint string
	model    string
	apiKey   string
	client   *http.Client
	in       *instruments
}

func newOpenAICompatible(name, endpoint, model string, opts Options, in *instruments) *openAICompatible {
	p := &openAICompatible{
		name:     name,
		endpoint: endpoint,
		model:    model,
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

func (p *openAICompatible) Name() string { return p.name }

func (p *openAICompatible) Generate(ctx context.Context, turns []session.Turn) (text string, err error) {
	ctx, done := p.in.begin(ctx, p.name, len(turns))
	defer func() { done(err) }()

	if p.apiKey == "" {
		return "", fmt.Errorf("%s API key not set", p.name)
	}

	reqBody := OpenAIRequest{
		Model:    p.model,
		Messages: chatMessages(turns),
	}

	var apiResp OpenAIResponse
	headers := map[string]string{"Authorization": "Bearer " + p.apiKey}
	if err := postJSON(ctx, p.client, p.endpoint, headers, reqBody, &apiResp); err != nil {
		return "", err
	}

	p.in.recordUsage(ctx, apiResp.Usage)

	if len(apiResp.Choices) > 0 && strings.TrimSpace(apiResp.Choices[0].Message.Content) != "" {
		return apiResp.Choices[0].Message.Content, nil
	}
	return "", fmt.Errorf("%s: %w", p.name, ErrEmptyResponse)
}
