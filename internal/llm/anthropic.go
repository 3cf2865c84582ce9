package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const defaultMaxTokens = 1024

// Anthropic talks to the messages API.
type Anthropic struct {
	client    anthropic.Client
	apiKey    string
	maxTokens int64
}

func NewAnthropic(apiKey string, maxTokens int64, opts ...option.RequestOption) *Anthropic {
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	all := append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)
	return &Anthropic{client: anthropic.NewClient(all...), apiKey: apiKey, maxTokens: maxTokens}
}

func (a *Anthropic) Configured() bool { return a.apiKey != "" }

func (a *Anthropic) Complete(ctx context.Context, model, systemPrompt, userPrompt string) (string, error) {
	msg, err := a.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: a.maxTokens,
		System:    []anthropic.TextBlockParam{{Text: systemPrompt}},
		Messages: []anthropic.MessageParam{{
			Role:    anthropic.MessageParamRoleUser,
			Content: []anthropic.ContentBlockParamUnion{anthropic.NewTextBlock(userPrompt)},
		}},
	})
	if err != nil {
		return "", fmt.Errorf("anthropic: %w", err)
	}
	var b strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	return b.String(), nil
}
