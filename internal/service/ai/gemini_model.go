package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"google.golang.org/genai"
)

// geminiModels is the subset of *genai.Models used by the chat model and the prober.
type geminiModels interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
	List(ctx context.Context, config *genai.ListModelsConfig) (genai.Page[genai.Model], error)
}

// NewGeminiClient builds a Gemini API client for the given key.
func NewGeminiClient(ctx context.Context, apiKey string) (*genai.Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("GEMINI_API_KEY is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return client, nil
}

// GeminiChatModel adapts the Gemini generateContent call to eino's chat model contract.
type GeminiChatModel struct {
	models      geminiModels
	model       string
	temperature *float32
	maxTokens   int32
}

// GeminiOptions carries generation defaults for GeminiChatModel.
type GeminiOptions struct {
	Model       string
	Temperature *float64
	MaxTokens   *int
}

// NewGeminiChatModel wraps a genai client as an eino chat model.
func NewGeminiChatModel(client *genai.Client, opts GeminiOptions) (*GeminiChatModel, error) {
	if client == nil {
		return nil, errors.New("gemini client is required")
	}
	return newGeminiChatModel(client.Models, opts)
}

func newGeminiChatModel(models geminiModels, opts GeminiOptions) (*GeminiChatModel, error) {
	if strings.TrimSpace(opts.Model) == "" {
		return nil, errors.New("gemini model name is required")
	}

	m := &GeminiChatModel{models: models, model: opts.Model}
	if opts.Temperature != nil {
		val := float32(*opts.Temperature)
		m.temperature = &val
	}
	if opts.MaxTokens != nil {
		m.maxTokens = int32(*opts.MaxTokens)
	}
	return m, nil
}

// Generate sends the conversation to Gemini and returns the assistant message.
func (m *GeminiChatModel) Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	options := model.GetCommonOptions(&model.Options{
		Temperature: m.temperature,
		Model:       &m.model,
	}, opts...)

	contents, system := toGeminiContents(input)
	cfg := &genai.GenerateContentConfig{
		Temperature: options.Temperature,
	}
	if system != "" {
		cfg.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}
	if options.MaxTokens != nil {
		cfg.MaxOutputTokens = int32(*options.MaxTokens)
	} else if m.maxTokens > 0 {
		cfg.MaxOutputTokens = m.maxTokens
	}

	modelName := m.model
	if options.Model != nil && *options.Model != "" {
		modelName = *options.Model
	}

	resp, err := m.models.GenerateContent(ctx, modelName, contents, cfg)
	if err != nil {
		return nil, fmt.Errorf("gemini generate content: %w", err)
	}

	return schema.AssistantMessage(resp.Text(), nil), nil
}

// Stream returns the full reply as a single-chunk stream; the relay only consumes whole replies.
func (m *GeminiChatModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	msg, err := m.Generate(ctx, input, opts...)
	if err != nil {
		return nil, err
	}
	return schema.StreamReaderFromArray([]*schema.Message{msg}), nil
}

// toGeminiContents maps eino messages onto Gemini contents. System messages are
// folded into a single system instruction.
func toGeminiContents(input []*schema.Message) ([]*genai.Content, string) {
	contents := make([]*genai.Content, 0, len(input))
	var system []string

	for _, msg := range input {
		if msg == nil {
			continue
		}
		switch msg.Role {
		case schema.System:
			if msg.Content != "" {
				system = append(system, msg.Content)
			}
		case schema.Assistant:
			contents = append(contents, genai.NewContentFromText(msg.Content, genai.RoleModel))
		default:
			contents = append(contents, genai.NewContentFromText(msg.Content, genai.RoleUser))
		}
	}

	return contents, strings.Join(system, "\n\n")
}
