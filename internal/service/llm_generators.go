package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	anthropicoption "github.com/anthropics/anthropic-sdk-go/option"
	"github.com/google/generative-ai-go/genai"
	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"github.com/varunmayaluru/soc-nextjs-ui-sub000/config"
	"google.golang.org/api/option"
)

// Generator produces one completion for a system instruction and a user prompt.
type Generator interface {
	Generate(ctx context.Context, system, prompt string) (string, error)
}

// NewGenerator picks the in-process model for TUTOR_PROVIDER. It returns nil when the remote genai
// service is used instead.
func NewGenerator(cfg *config.Config) (Generator, error) {
	switch cfg.Tutor.Provider {
	case "gemini":
		return NewGeminiGenerator(cfg)
	case "openai":
		return NewOpenAIGenerator(cfg)
	case "anthropic":
		return NewAnthropicGenerator(cfg)
	default:
		return nil, nil
	}
}

type geminiGenerator struct {
	model *genai.GenerativeModel
}

func NewGeminiGenerator(cfg *config.Config) (Generator, error) {
	if cfg.LLM.GeminiApiKey == "" {
		return nil, fmt.Errorf("TUTOR_PROVIDER=gemini requires GEMINI_API_KEY")
	}
	client, err := genai.NewClient(context.Background(), option.WithAPIKey(cfg.LLM.GeminiApiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Gemini client: %w", err)
	}
	model := client.GenerativeModel(cfg.LLM.GeminiModel)
	model.SetTemperature(0.4)
	return &geminiGenerator{model: model}, nil
}

func (g *geminiGenerator) Generate(ctx context.Context, system, prompt string) (string, error) {
	resp, err := g.model.GenerateContent(ctx, genai.Text(system), genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("gemini generate content: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("gemini returned no content")
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			sb.WriteString(string(txt))
		}
	}
	return strings.TrimSpace(sb.String()), nil
}

type openAIGenerator struct {
	llm llms.Model
}

func NewOpenAIGenerator(cfg *config.Config) (Generator, error) {
	if cfg.LLM.OpenAIApiKey == "" {
		return nil, fmt.Errorf("TUTOR_PROVIDER=openai requires OPENAI_API_KEY")
	}
	llm, err := openai.New(
		openai.WithModel(cfg.LLM.OpenAIModel),
		openai.WithToken(cfg.LLM.OpenAIApiKey),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create OpenAI client: %w", err)
	}
	return &openAIGenerator{llm: llm}, nil
}

func (g *openAIGenerator) Generate(ctx context.Context, system, prompt string) (string, error) {
	content := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, system),
		llms.TextParts(llms.ChatMessageTypeHuman, prompt),
	}
	resp, err := g.llm.GenerateContent(ctx, content, llms.WithTemperature(0.4))
	if err != nil {
		return "", fmt.Errorf("openai generate content: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai returned no choices")
	}
	return strings.TrimSpace(resp.Choices[0].Content), nil
}

type anthropicGenerator struct {
	client anthropic.Client
	model  string
}

func NewAnthropicGenerator(cfg *config.Config) (Generator, error) {
	if cfg.LLM.AnthropicApiKey == "" {
		return nil, fmt.Errorf("TUTOR_PROVIDER=anthropic requires ANTHROPIC_API_KEY")
	}
	return &anthropicGenerator{
		client: anthropic.NewClient(anthropicoption.WithAPIKey(cfg.LLM.AnthropicApiKey)),
		model:  cfg.LLM.AnthropicModel,
	}, nil
}

func (g *anthropicGenerator) Generate(ctx context.Context, system, prompt string) (string, error) {
	resp, err := g.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(g.model),
		MaxTokens: 1024,
		System:    []anthropic.TextBlockParam{{Text: system}},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("anthropic messages: %w", err)
	}

	var sb strings.Builder
	for _, block := range resp.Content {
		switch block := block.AsAny().(type) {
		case anthropic.TextBlock:
			sb.WriteString(block.Text)
		}
	}
	if sb.Len() == 0 {
		log.Warn().Str("stopReason", string(resp.StopReason)).Msg("Anthropic returned no text")
		return "", fmt.Errorf("anthropic returned no text")
	}
	return strings.TrimSpace(sb.String()), nil
}
