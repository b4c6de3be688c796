package extraction

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"
	"google.golang.org/genai"
)

// TextGenerator is a session with the external natural-language service.
// This interface enables mocking the service in tests.
type TextGenerator interface {
	// GenerateText sends one instruction and returns the raw response text.
	GenerateText(ctx context.Context, prompt string) (string, error)

	// ModelName identifies the model behind the session.
	ModelName() string
}

// SessionFactory builds a TextGenerator from a credential. Configure calls it
// once per attempt.
type SessionFactory func(ctx context.Context, credential string) (TextGenerator, error)

// GeminiOptions tune the Gemini session. Zero values select defaults.
type GeminiOptions struct {
	Model             string
	Temperature       float32
	RequestsPerMinute float64
	Burst             int
}

// GeminiGenerator is the concrete TextGenerator backed by the Gemini API.
type GeminiGenerator struct {
	client  *genai.Client
	model   string
	config  *genai.GenerateContentConfig
	limiter *rate.Limiter
}

// NewGeminiSessionFactory returns a SessionFactory producing GeminiGenerators.
func NewGeminiSessionFactory(opts GeminiOptions) SessionFactory {
	return func(ctx context.Context, credential string) (TextGenerator, error) {
		return NewGeminiGenerator(ctx, credential, opts)
	}
}

// NewGeminiGenerator creates a Gemini client authenticated with apiKey.
func NewGeminiGenerator(ctx context.Context, apiKey string, opts GeminiOptions) (*GeminiGenerator, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("NewGeminiGenerator: api key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("NewGeminiGenerator: create genai client: %w", err)
	}

	model := opts.Model
	if model == "" {
		model = DefaultModelName
	}

	cfg := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
	}
	if opts.Temperature > 0 {
		cfg.Temperature = genai.Ptr(opts.Temperature)
	}

	g := &GeminiGenerator{
		client: client,
		model:  model,
		config: cfg,
	}
	if opts.RequestsPerMinute > 0 {
		burst := opts.Burst
		if burst <= 0 {
			burst = 1
		}
		g.limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerMinute/60.0), burst)
	}
	return g, nil
}

// GenerateText implements TextGenerator.
func (g *GeminiGenerator) GenerateText(ctx context.Context, prompt string) (string, error) {
	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("rate limiter: %w", err)
		}
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), g.config)
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}
	return resp.Text(), nil
}

// ModelName implements TextGenerator.
func (g *GeminiGenerator) ModelName() string {
	return g.model
}

var _ TextGenerator = (*GeminiGenerator)(nil)
