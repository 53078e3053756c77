package textgen

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

const openAIRequestTimeout = 90 * time.Second

// OpenAIGenerator calls any OpenAI-compatible chat completions endpoint.
type OpenAIGenerator struct {
	client openai.Client
	apiKey string
	model  string
}

// NewOpenAIGenerator builds a chat client. Extra request options are applied
// after the key, base URL and timeout.
func NewOpenAIGenerator(apiKey, model, baseURL string, opts ...option.RequestOption) *OpenAIGenerator {
	base := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithRequestTimeout(openAIRequestTimeout),
	}
	if u := apiBaseURL(baseURL); u != "" {
		base = append(base, option.WithBaseURL(u))
	}
	return &OpenAIGenerator{
		client: openai.NewClient(append(base, opts...)...),
		apiKey: apiKey,
		model:  model,
	}
}

// apiBaseURL accepts a bare host, a /v1 base or a full completions URL and
// returns the base the client resolves "chat/completions" against.
func apiBaseURL(baseURL string) string {
	u := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if u == "" {
		return ""
	}
	u = strings.TrimSuffix(u, "/chat/completions")
	if !strings.HasSuffix(u, "/v1") && strings.Count(u, "/") <= 2 {
		u += "/v1"
	}
	return u + "/"
}

func (g *OpenAIGenerator) Generate(ctx context.Context, req Request) (string, error) {
	if strings.TrimSpace(g.apiKey) == "" {
		return "", &GenerationError{Provider: "openai", Err: fmt.Errorf("openai api key is required")}
	}
	if strings.TrimSpace(g.model) == "" {
		return "", &GenerationError{Provider: "openai", Err: fmt.Errorf("openai model is required")}
	}

	messages := make([]openai.ChatCompletionMessageParamUnion, 0, 2)
	if strings.TrimSpace(req.System) != "" {
		messages = append(messages, openai.SystemMessage(req.System))
	}
	messages = append(messages, openai.UserMessage(req.Prompt))

	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(g.model),
		Messages: messages,
	}
	if req.Temperature > 0 {
		params.Temperature = openai.Float(req.Temperature)
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(req.MaxTokens))
	}

	completion, err := g.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", &GenerationError{Provider: "openai", Err: fmt.Errorf("chat request failed: %w", err)}
	}
	if len(completion.Choices) == 0 {
		return NoAnalysis, nil
	}
	text := completion.Choices[0].Message.Content
	if strings.TrimSpace(text) == "" {
		return NoAnalysis, nil
	}
	return cleanOutput(text), nil
}
