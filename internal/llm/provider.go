// Package llm sends judge prompts to hosted chat models.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrNoBackend is returned for a model whose provider has no credential.
var ErrNoBackend = errors.New("no provider configured for model")

// Provider completes one chat prompt with the named model.
type Provider interface {
	Complete(ctx context.Context, model, systemPrompt, userPrompt string) (string, error)
	Configured() bool
}

// Router picks a backend per model id. claude-* models go to Anthropic,
// everything else to OpenAI. Either backend may be nil.
type Router struct {
	OpenAI    Provider
	Anthropic Provider
}

func (r *Router) Configured() bool {
	return configured(r.OpenAI) || configured(r.Anthropic)
}

func (r *Router) Complete(ctx context.Context, model, systemPrompt, userPrompt string) (string, error) {
	backend := r.OpenAI
	if strings.HasPrefix(model, "claude-") {
		backend = r.Anthropic
	}
	if !configured(backend) {
		return "", fmt.Errorf("%w %q", ErrNoBackend, model)
	}
	return backend.Complete(ctx, model, systemPrompt, userPrompt)
}

func configured(p Provider) bool {
	return p != nil && p.Configured()
}
