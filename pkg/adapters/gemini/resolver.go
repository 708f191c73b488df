// Package gemini classifies user messages with a Gemini model.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aretw0/chatflow/internal/logging"
	"github.com/aretw0/chatflow/pkg/domain"
	"github.com/aretw0/chatflow/pkg/ports"
	"google.golang.org/genai"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "gemini-1.5-flash-latest"

// ErrMissingAPIKey is returned by New without an API key.
var ErrMissingAPIKey = errors.New("gemini: API key is required")

// Generator is the part of the genai client the resolver needs.
type Generator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Resolver implements ports.IntentResolver on top of a Gemini model.
type Resolver struct {
	models Generator
	model  string
	logger *slog.Logger
}

// Option configures the Resolver.
type Option func(*Resolver)

// WithModel overrides DefaultModel.
func WithModel(model string) Option {
	return func(r *Resolver) {
		if model != "" {
			r.model = model
		}
	}
}

// WithLogger configures a logger for the Resolver.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Resolver) {
		r.logger = logger
	}
}

// New creates a Resolver backed by the Gemini Developer API.
func New(ctx context.Context, apiKey string, opts ...Option) (*Resolver, error) {
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("creating Gemini client: %w", err)
	}
	return NewWithGenerator(client.Models, opts...), nil
}

// NewWithGenerator creates a Resolver on any Generator.
func NewWithGenerator(models Generator, opts ...Option) *Resolver {
	r := &Resolver{
		models: models,
		model:  DefaultModel,
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

var _ ports.IntentResolver = (*Resolver)(nil)

// Classify asks the model to pick one of candidates. The raw answer is returned as is; the
// caller cleans it and checks it against the candidates.
func (r *Resolver) Classify(ctx context.Context, text string, candidates []string) (string, error) {
	if len(candidates) == 0 {
		return domain.NoMatch, nil
	}

	prompt := BuildPrompt(text, candidates)
	r.logger.Debug("Classifying intent", "model", r.model, "candidates", len(candidates))

	temp := float32(0)
	cfg := &genai.GenerateContentConfig{
		Temperature:     &temp,
		MaxOutputTokens: 64,
	}
	contents := []*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)}

	res, err := r.models.GenerateContent(ctx, r.model, contents, cfg)
	if err != nil {
		return "", fmt.Errorf("gemini generate content: %w", err)
	}

	answer := res.Text()
	r.logger.Debug("Gemini answered", "answer", answer)
	if strings.TrimSpace(answer) == "" {
		return domain.NoMatch, nil
	}
	return answer, nil
}

// BuildPrompt renders the classification instructions for one message.
func BuildPrompt(text string, candidates []string) string {
	quoted := make([]string, len(candidates))
	for i, c := range candidates {
		quoted[i] = `"` + c + `"`
	}

	var b strings.Builder
	b.WriteString("You are an expert intent classifier. ")
	b.WriteString("Your task is to determine which of the predefined intents best matches the user's message. ")
	fmt.Fprintf(&b, "The user's message is: %q. ", text)
	fmt.Fprintf(&b, "The possible intents are: [%s]. ", strings.Join(quoted, ", "))
	b.WriteString("Analyze the user's message and respond with ONLY the single, exact string of the best matching intent from the provided list. ")
	b.WriteString("Do not add any explanation, punctuation, or other text. ")
	fmt.Fprintf(&b, "If no intent is a clear match, respond with the exact string %q.", domain.NoMatch)
	return b.String()
}
