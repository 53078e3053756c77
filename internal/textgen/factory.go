package textgen

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/time/rate"
)

type Options struct {
	Provider string
	APIKey   string
	Model    string
	BaseURL  string
	// RequestsPerMinute > 0 wraps the provider in a rate limiter.
	RequestsPerMinute int
}

func NewGenerator(ctx context.Context, opts Options) (Generator, error) {
	provider := strings.ToLower(strings.TrimSpace(opts.Provider))
	if provider == "" {
		provider = "gemini"
	}

	var g Generator
	switch provider {
	case "gemini":
		gg, err := NewGeminiGenerator(ctx, opts.APIKey, opts.Model)
		if err != nil {
			return nil, err
		}
		g = gg
	case "openai":
		g = NewOpenAIGenerator(opts.APIKey, opts.Model, opts.BaseURL)
	default:
		return nil, fmt.Errorf("unsupported generation provider: %s", opts.Provider)
	}

	if opts.RequestsPerMinute > 0 {
		g = NewRateLimited(g, rate.Limit(float64(opts.RequestsPerMinute)/60), 1)
	}
	return g, nil
}

// RateLimited delays calls to the wrapped generator.
type RateLimited struct {
	inner   Generator
	limiter *rate.Limiter
}

func NewRateLimited(inner Generator, limit rate.Limit, burst int) *RateLimited {
	if burst < 1 {
		burst = 1
	}
	return &RateLimited{inner: inner, limiter: rate.NewLimiter(limit, burst)}
}

func (r *RateLimited) Generate(ctx context.Context, req Request) (string, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return "", &GenerationError{Err: fmt.Errorf("rate limiter: %w", err)}
	}
	return r.inner.Generate(ctx, req)
}
