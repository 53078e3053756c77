// Package textgen wraps the text-generation providers used to draft article
// blocks.
package textgen

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// NoAnalysis is returned by providers that answered with nothing usable.
const NoAnalysis = "No analysis available."

// Sentinels are response prefixes that signal a failed generation.
var Sentinels = []string{"Error al generar contenido", "Error:", NoAnalysis}

var ErrGeneration = errors.New("text generation failed")

// Request is one generation call.
type Request struct {
	Prompt      string
	System      string
	MaxTokens   int
	Temperature float64
}

// Generator produces text for a prompt.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// GenerationError carries the failing provider and, for sentinel responses, the
// raw text that was rejected.
type GenerationError struct {
	Provider string
	Response string
	Err      error
}

func (e *GenerationError) Error() string {
	switch {
	case e.Err != nil && e.Provider != "":
		return fmt.Sprintf("%s: %s: %v", ErrGeneration, e.Provider, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", ErrGeneration, e.Err)
	default:
		return fmt.Sprintf("%s: sentinel response %q", ErrGeneration, abbreviate(e.Response, 80))
	}
}

func (e *GenerationError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrGeneration}
	}
	return []error{ErrGeneration, e.Err}
}

// CheckResponse rejects empty text and responses starting with a sentinel.
func CheckResponse(text string) (string, error) {
	t := strings.TrimSpace(text)
	if t == "" {
		return "", &GenerationError{Response: text, Err: errors.New("empty response")}
	}
	for _, s := range Sentinels {
		if strings.HasPrefix(t, s) {
			return "", &GenerationError{Response: text}
		}
	}
	return t, nil
}

// Generate calls g and validates the response with CheckResponse.
func Generate(ctx context.Context, g Generator, req Request) (string, error) {
	text, err := g.Generate(ctx, req)
	if err != nil {
		var ge *GenerationError
		if errors.As(err, &ge) {
			return "", err
		}
		return "", &GenerationError{Err: err}
	}
	return CheckResponse(text)
}

func cleanOutput(text string) string {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```markdown") {
		text = strings.TrimPrefix(text, "```markdown")
		text = strings.TrimSuffix(text, "```")
	} else if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```")
		text = strings.TrimSuffix(text, "```")
	}
	return strings.TrimSpace(text)
}

func abbreviate(s string, n int) string {
	r := []rune(strings.TrimSpace(s))
	if len(r) <= n {
		return string(r)
	}
	return string(r[:n]) + "..."
}
