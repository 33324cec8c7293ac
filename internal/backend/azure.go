package backend

import (
	"context"
	"fmt"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/ai/azopenai"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"

	"InterviewBot/internal/session"
)

// azureProvider calls an Azure OpenAI deployment. The configured model is the deployment name.
type azureProvider struct {
	client       *azopenai.Client
	deploymentID string
	in           *instruments
}

func newAzureProvider(opts Options, in *instruments) (*azureProvider, error) {
	if opts.Endpoint == "" || opts.Model == "" {
		return nil, fmt.Errorf("azure backend needs an endpoint and a deployment name")
	}

	keyCredential := azcore.NewKeyCredential(opts.APIKey)
	client, err := azopenai.NewClientWithKeyCredential(opts.Endpoint, keyCredential, nil)
	if err != nil {
		return nil, fmt.Errorf("error creating Azure OpenAI client: %w", err)
	}
	return &azureProvider{client: client, deploymentID: opts.Model, in: in}, nil
}

func (p *azureProvider) Name() string { return Azure }

func (p *azureProvider) Generate(ctx context.Context, turns []session.Turn) (text string, err error) {
	ctx, done := p.in.begin(ctx, Azure, len(turns))
	defer func() { done(err) }()

	resp, err := p.client.GetChatCompletions(ctx, azopenai.ChatCompletionsOptions{
		DeploymentName: to.Ptr(p.deploymentID),
		Messages:       azureMessages(turns),
	}, nil)
	if err != nil {
		return "", fmt.Errorf("azure chat completion failed: %w", err)
	}

	if resp.Usage != nil {
		usage := map[string]interface{}{}
		if resp.Usage.PromptTokens != nil {
			usage["prompt_tokens"] = float64(*resp.Usage.PromptTokens)
		}
		if resp.Usage.CompletionTokens != nil {
			usage["completion_tokens"] = float64(*resp.Usage.CompletionTokens)
		}
		if resp.Usage.TotalTokens != nil {
			usage["total_tokens"] = float64(*resp.Usage.TotalTokens)
		}
		p.in.recordUsage(ctx, usage)
	}

	if len(resp.Choices) > 0 && resp.Choices[0].Message != nil && resp.Choices[0].Message.Content != nil {
		if content := *resp.Choices[0].Message.Content; strings.TrimSpace(content) != "" {
			return content, nil
		}
	}
	return "", fmt.Errorf("azure: %w", ErrEmptyResponse)
}

func azureMessages(turns []session.Turn) []azopenai.ChatRequestMessageClassification {
	msgs := make([]azopenai.ChatRequestMessageClassification, 0, len(turns))
	for i, turn := range turns {
		switch chatRole(i, turn) {
		case "system":
			msgs = append(msgs, &azopenai.ChatRequestSystemMessage{
				Content: azopenai.NewChatRequestSystemMessageContent(turn.Content),
			})
		case "assistant":
			msgs = append(msgs, &azopenai.ChatRequestAssistantMessage{
				Content: azopenai.NewChatRequestAssistantMessageContent(turn.Content),
			})
		default:
			msgs = append(msgs, &azopenai.ChatRequestUserMessage{
				Content: azopenai.NewChatRequestUserMessageContent(turn.Content),
			})
		}
	}
	return msgs
}
