package gemini

import (
	"context"
	"net/http"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/jevancousins/jobhunter/internal/ai"
	"google.golang.org/genai"
)

const (
	defaultModel           = "gemini-2.5-pro"
	defaultMaxOutputTokens = 1500
)

var billingMarkers = []string{"credit balance", "billing", "credits", "prepayment"}

type contentModels interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Generator wraps the Google GenAI client to provide simple prompt-based interactions.
type Generator struct {
	models          contentModels
	modelName       string
	maxOutputTokens int32
	temperature     *float32
}

// Option customizes a Generator.
type Option func(*Generator)

// WithMaxOutputTokens bounds the size of every completion.
func WithMaxOutputTokens(n int) Option {
	return func(g *Generator) {
		if n > 0 {
			g.maxOutputTokens = int32(n)
		}
	}
}

// WithTemperature sets the sampling temperature.
func WithTemperature(t float32) Option {
	return func(g *Generator) {
		g.temperature = &t
	}
}

// NewGenerator creates a new Generator configured for the Gemini API backend.
func NewGenerator(ctx context.Context, apiKey, model string, opts ...Option) (*Generator, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}

	cfg := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}

	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, errors.Wrap(err, "create genai client")
	}

	return newGenerator(client.Models, model, opts...), nil
}

func newGenerator(models contentModels, model string, opts ...Option) *Generator {
	if model = strings.TrimSpace(model); model == "" {
		model = defaultModel
	}

	g := &Generator{
		models:          models,
		modelName:       model,
		maxOutputTokens: defaultMaxOutputTokens,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Complete sends the prompt to Gemini and returns the joined text of the
// response candidates. Provider failures are wrapped with the ai error kinds.
func (g *Generator) Complete(ctx context.Context, prompt string) (string, error) {
	if g == nil || g.models == nil {
		return "", errors.New("gemini generator is not initialized")
	}

	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", errors.New("prompt must not be empty")
	}

	config := &genai.GenerateContentConfig{
		MaxOutputTokens: g.maxOutputTokens,
		Temperature:     g.temperature,
	}

	resp, err := g.models.GenerateContent(ctx, g.modelName, genai.Text(prompt), config)
	if err != nil {
		return "", classify(err)
	}

	var builder strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part == nil {
				continue
			}
			text := strings.TrimSpace(part.Text)
			if text == "" {
				continue
			}
			if builder.Len() > 0 {
				builder.WriteString("\n")
			}
			builder.WriteString(text)
		}
	}

	output := strings.TrimSpace(builder.String())
	if output == "" {
		return "", errors.WithStack(ai.ErrEmptyResponse)
	}

	return output, nil
}

func (g *Generator) Model() string {
	if g == nil {
		return ""
	}
	return g.modelName
}

// classify maps a genai error onto the ai error kinds.
func classify(err error) error {
	var apiErr genai.APIError
	if !errors.As(err, &apiErr) {
		return errors.Wrap(err, "generate content")
	}

	message := strings.ToLower(apiErr.Message)
	wrapped := errors.Wrap(err, "generate content")
	switch {
	case apiErr.Code == http.StatusTooManyRequests || apiErr.Status == "RESOURCE_EXHAUSTED":
		// Quota messages mention billing even for per-minute limits.
		return errors.Mark(wrapped, ai.ErrRateLimited)
	case apiErr.Code == http.StatusPaymentRequired:
		return errors.Mark(wrapped, ai.ErrBilling)
	case (apiErr.Code == http.StatusBadRequest || apiErr.Code == http.StatusForbidden) &&
		apiErr.Status == "FAILED_PRECONDITION" && containsAny(message, billingMarkers):
		return errors.Mark(wrapped, ai.ErrBilling)
	case apiErr.Code == http.StatusUnauthorized || apiErr.Code == http.StatusForbidden || apiErr.Status == "UNAUTHENTICATED" || apiErr.Status == "PERMISSION_DENIED":
		return errors.Mark(wrapped, ai.ErrAuth)
	case apiErr.Code == http.StatusBadRequest && strings.Contains(message, "api key"):
		return errors.Mark(wrapped, ai.ErrAuth)
	case apiErr.Code == http.StatusBadRequest:
		return errors.Mark(wrapped, ai.ErrBadRequest)
	default:
		return wrapped
	}
}

func containsAny(s string, markers []string) bool {
	for _, m := range markers {
		if strings.Contains(s, m) {
			return true
		}
	}
	return false
}
