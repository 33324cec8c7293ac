package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"InterviewBot/internal/session"
)

// OllamaRequest represents the request body for Ollama API
type OllamaRequest struct {
	Model    string              `json:"model"`
	Messages []map[string]string `json:"messages"`
	Stream   bool                `json:"stream"`
}

// OllamaResponse represents the response from Ollama API
type OllamaResponse struct {
	Model     string `json:"model"`
	CreatedAt string `json:"created_at"`
	Message   struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"message"`
	Done bool `json:"done"`
}

type ollamaProvider struct {
	endpoint string
	model    string
	client   *http.Client
	in       *instruments
}

func newOllamaProvider(opts Options, in *instruments) *ollamaProvider {
	p := &ollamaProvider{
		endpoint: "http://localhost:11434/api/chat",
		model:    "llama3:latest",
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

func (p *ollamaProvider) Name() string { return Ollama }

func (p *ollamaProvider) Generate(ctx context.Context, turns []session.Turn) (text string, err error) {
	ctx, done := p.in.begin(ctx, Ollama, len(turns))
	defer func() { done(err) }()

	reqBody := OllamaRequest{
		Model:    p.model,
		Messages: chatMessages(turns),
		Stream:   false,
	}

	var apiResp OllamaResponse
	if err := postJSON(ctx, p.client, p.endpoint, nil, reqBody, &apiResp); err != nil {
		return "", err
	}

	if strings.TrimSpace(apiResp.Message.Content) == "" {
		return "", fmt.Errorf("ollama: %w", ErrEmptyResponse)
	}
	return apiResp.Message.Content, nil
}

// OllamaTagsResponse represents the response from Ollama's tags endpoint
type OllamaTagsResponse struct {
	Models []OllamaModel `json:"models"`
}

// OllamaModel represents a single model in the Ollama tags response
type OllamaModel struct {
	Name       string `json:"name"`
	ModifiedAt string `json:"modified_at"`
	Size       int64  `json:"size"`
	Digest     string `json:"digest"`
}

// ListOllamaModels fetches the models available on the Ollama server at baseURL,
// e.g. "http://localhost:11434". An empty baseURL uses the local default.
func ListOllamaModels(ctx context.Context, client *http.Client, baseURL string) ([]OllamaModel, error) {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	baseURL = strings.TrimSuffix(strings.TrimSuffix(baseURL, "/"), "/api/chat")
	if client == nil {
		client = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/api/tags", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request (is Ollama running?): %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API error: %s - %s", resp.Status, string(body))
	}

	var tags OllamaTagsResponse
	if err := json.Unmarshal(body, &tags); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return tags.Models, nil
}
