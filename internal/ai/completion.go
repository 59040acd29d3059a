package ai

import (
	"context"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	openai "github.com/sashabaranov/go-openai"
	"google.golang.org/api/option"

	"eduvisor-backend/internal/apperr"
	"eduvisor-backend/internal/config"
)

const (
	RoleSystem = "system"
	RoleUser   = "user"
)

// Message is one turn of a completion request.
type Message struct {
	Role    string
	Content string
}

// Completion is the opaque completion service's answer: generated text plus
// the total token count the call consumed.
type Completion struct {
	Text       string
	TokensUsed int
}

// Completer is the boundary to the text-completion service: prompt in,
// text + token count out.
type Completer interface {
	Complete(ctx context.Context, messages []Message) (*Completion, error)
}

// NewCompleter builds the configured provider client wrapped with the
// resilience layer (rate limiter, circuit breaker, bounded retries).
func NewCompleter(cfg *config.Config) (Completer, error) {
	var inner Completer
	switch cfg.LLMProvider {
	case "openai":
		inner = &openAICompleter{
			client:      openai.NewClient(cfg.OpenAIAPIKey),
			model:       cfg.OpenAIModel,
			maxTokens:   cfg.MaxOutputTokens,
			temperature: float32(cfg.Temperature),
		}
	case "google":
		client, err := genai.NewClient(context.Background(), option.WithAPIKey(cfg.GeminiAPIKey))
		if err != nil {
			return nil, apperr.Wrap(apperr.KindConfiguration, "create genai client", err)
		}
		inner = &geminiCompleter{
			client:      client,
			model:       cfg.GeminiModel,
			maxTokens:   cfg.MaxOutputTokens,
			temperature: float32(cfg.Temperature),
		}
	default:
		return nil, apperr.New(apperr.KindConfiguration,
			fmt.Sprintf("unknown LLM provider: %s", cfg.LLMProvider))
	}
	return newResilientCompleter(inner, cfg), nil
}

type openAICompleter struct {
	client      *openai.Client
	model       string
	maxTokens   int
	temperature float32
}

func (c *openAICompleter) Complete(ctx context.Context, messages []Message) (*Completion, error) {
	req := openai.ChatCompletionRequest{
		Model:       c.model,
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
	}
	req.Messages = make([]openai.ChatCompletionMessage, len(messages))
	for i, msg := range messages {
		req.Messages[i] = openai.ChatCompletionMessage{
			Role:    msg.Role,
			Content: msg.Content,
		}
	}

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindCompletion, "openai chat completion", err)
	}
	if len(resp.Choices) == 0 {
		return nil, apperr.New(apperr.KindCompletion, "openai chat completion returned no choices")
	}

	return &Completion{
		Text:       resp.Choices[0].Message.Content,
		TokensUsed: resp.Usage.TotalTokens,
	}, nil
}

type geminiCompleter struct {
	client      *genai.Client
	model       string
	maxTokens   int
	temperature float32
}

func (c *geminiCompleter) Complete(ctx context.Context, messages []Message) (*Completion, error) {
	model := c.client.GenerativeModel(c.model)
	model.SetTemperature(c.temperature)
	model.SetMaxOutputTokens(int32(c.maxTokens))

	// Gemini has no dedicated system role in this SDK surface; system turns
	// become system instructions, user turns are concatenated as the prompt.
	var system, prompt string
	for _, msg := range messages {
		switch msg.Role {
		case RoleSystem:
			if system != "" {
				system += " "
			}
			system += msg.Content
		default:
			if prompt != "" {
				prompt += "\n"
			}
			prompt += msg.Content
		}
	}
	if system != "" {
		model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(system)}}
	}

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return nil, apperr.Wrap(apperr.KindCompletion, "gemini generate content", err)
	}

	text := extractText(resp)
	if text == "" {
		return nil, apperr.New(apperr.KindCompletion, "gemini returned no candidates")
	}

	return &Completion{
		Text:       text,
		TokensUsed: extractTokenUsage(resp, text),
	}, nil
}

func extractText(resp *genai.GenerateContentResponse) string {
	var out string
	for _, candidate := range resp.Candidates {
		if candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if text, ok := part.(genai.Text); ok {
				out += string(text)
			}
		}
	}
	return out
}

// extractTokenUsage reads the actual usage from response metadata, falling
// back to a 4-characters-per-token estimate when the API omits it.
func extractTokenUsage(resp *genai.GenerateContentResponse, text string) int {
	if resp.UsageMetadata != nil {
		return int(resp.UsageMetadata.TotalTokenCount)
	}
	estimated := len(text) / 4
	if estimated < 1 {
		estimated = 1
	}
	return estimated
}
