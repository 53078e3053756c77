package textgen

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func TestCheckResponse(t *testing.T) {
	got, err := CheckResponse("  Texto válido.  ")
	require.NoError(t, err)
	assert.Equal(t, "Texto válido.", got)

	for _, bad := range []string{"", "   ", "Error al generar contenido: timeout", "Error: quota", NoAnalysis} {
		_, err := CheckResponse(bad)
		require.Error(t, err, bad)
		assert.True(t, errors.Is(err, ErrGeneration), bad)
	}
}

func TestAPIBaseURL(t *testing.T) {
	assert.Equal(t, "", apiBaseURL(""))
	assert.Equal(t, "http://local/v1/", apiBaseURL("http://local"))
	assert.Equal(t, "http://local/v1/", apiBaseURL("http://local/v1/"))
	assert.Equal(t, "http://local/x/", apiBaseURL("http://local/x/chat/completions"))
}

type chatBody struct {
	Model    string `json:"model"`
	Messages []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
	MaxTokens   int     `json:"max_tokens"`
	Temperature float64 `json:"temperature"`
}

func TestOpenAIGenerator_Generate(t *testing.T) {
	var got chatBody
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"c1","object":"chat.completion","model":"gpt-4","choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":"` + "```markdown\\nHola mundo\\n```" + `"}}]}`))
	}))
	defer srv.Close()

	g := NewOpenAIGenerator("sk-test", "gpt-4", srv.URL, option.WithMaxRetries(0))
	out, err := g.Generate(context.Background(), Request{Prompt: "Saluda", System: "Eres experto", MaxTokens: 50, Temperature: 0.3})
	require.NoError(t, err)
	assert.Equal(t, "Hola mundo", out)

	assert.Equal(t, "gpt-4", got.Model)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.Equal(t, "Saluda", got.Messages[1].Content)
	assert.Equal(t, 50, got.MaxTokens)
	assert.InDelta(t, 0.3, got.Temperature, 0.0001)
}

func TestOpenAIGenerator_HTTPErrorIsGenerationError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"quota exceeded","type":"rate_limit"}}`))
	}))
	defer srv.Close()

	_, err := NewOpenAIGenerator("k", "m", srv.URL, option.WithMaxRetries(0)).Generate(context.Background(), Request{Prompt: "x"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrGeneration))
	var ge *GenerationError
	require.True(t, errors.As(err, &ge))
	assert.Equal(t, "openai", ge.Provider)
	var apiErr *openai.Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusTooManyRequests, apiErr.StatusCode)
}

func TestOpenAIGenerator_EmptyChoicesIsSentinel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	_, err := Generate(context.Background(), NewOpenAIGenerator("k", "m", srv.URL, option.WithMaxRetries(0)), Request{Prompt: "x"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrGeneration))
}

func TestOpenAIGenerator_RequiresKey(t *testing.T) {
	_, err := NewOpenAIGenerator("", "m", "").Generate(context.Background(), Request{Prompt: "x"})
	assert.True(t, errors.Is(err, ErrGeneration))
}

type countingGenerator struct {
	calls atomic.Int32
	text  string
	err   error
}

func (c *countingGenerator) Generate(ctx context.Context, req Request) (string, error) {
	c.calls.Add(1)
	return c.text, c.err
}

func TestGenerate_WrapsPlainErrors(t *testing.T) {
	_, err := Generate(context.Background(), &countingGenerator{err: errors.New("boom")}, Request{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrGeneration))
	assert.Contains(t, err.Error(), "boom")
}

func TestRateLimited_HonoursContext(t *testing.T) {
	inner := &countingGenerator{text: "ok"}
	rl := NewRateLimited(inner, rate.Every(time.Hour), 1)

	out, err := rl.Generate(context.Background(), Request{})
	require.NoError(t, err)
	assert.Equal(t, "ok", out)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = rl.Generate(ctx, Request{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrGeneration))
	assert.Equal(t, int32(1), inner.calls.Load())
}

func TestNewGenerator(t *testing.T) {
	_, err := NewGenerator(context.Background(), Options{Provider: "claude"})
	assert.Error(t, err)

	_, err = NewGenerator(context.Background(), Options{Provider: "gemini"})
	assert.Error(t, err)

	g, err := NewGenerator(context.Background(), Options{Provider: "OpenAI", APIKey: "k", Model: "m", RequestsPerMinute: 30})
	require.NoError(t, err)
	_, ok := g.(*RateLimited)
	assert.True(t, ok)
}
