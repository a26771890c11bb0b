package ai

import (
	"context"
	"errors"
	"testing"

	"github.com/cloudwego/eino/schema"
	"google.golang.org/genai"
)

type fakeGeminiModels struct {
	model    string
	contents []*genai.Content
	config   *genai.GenerateContentConfig
	replies  map[string]string
	listed   []string
	listErr  error
}

func (f *fakeGeminiModels) GenerateContent(_ context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.model = model
	f.contents = contents
	f.config = config
	reply, ok := f.replies[model]
	if !ok {
		return nil, errors.New("model not found")
	}
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Role: genai.RoleModel, Parts: []*genai.Part{{Text: reply}}},
		}},
	}, nil
}

func (f *fakeGeminiModels) List(_ context.Context, _ *genai.ListModelsConfig) (genai.Page[genai.Model], error) {
	if f.listErr != nil {
		return genai.Page[genai.Model]{}, f.listErr
	}
	page := genai.Page[genai.Model]{}
	for _, name := range f.listed {
		page.Items = append(page.Items, &genai.Model{Name: name})
	}
	return page, nil
}

func TestGeminiChatModelGenerate(t *testing.T) {
	fake := &fakeGeminiModels{replies: map[string]string{"gemini-1.5-flash": "hello there"}}
	maxTokens := 128
	m, err := newGeminiChatModel(fake, GeminiOptions{Model: "gemini-1.5-flash", MaxTokens: &maxTokens})
	if err != nil {
		t.Fatalf("newGeminiChatModel err: %v", err)
	}

	msg, err := m.Generate(context.Background(), []*schema.Message{
		schema.SystemMessage("be nice"),
		schema.UserMessage("hi"),
		schema.AssistantMessage("hey", nil),
		schema.UserMessage("how are you"),
	})
	if err != nil {
		t.Fatalf("Generate err: %v", err)
	}
	if msg.Role != schema.Assistant || msg.Content != "hello there" {
		t.Fatalf("unexpected message: %+v", msg)
	}

	if len(fake.contents) != 3 {
		t.Fatalf("expected 3 contents without the system message, got %d", len(fake.contents))
	}
	if fake.contents[1].Role != string(genai.RoleModel) {
		t.Fatalf("assistant turn should map to model role, got %s", fake.contents[1].Role)
	}
	if fake.config.SystemInstruction == nil || fake.config.SystemInstruction.Parts[0].Text != "be nice" {
		t.Fatal("system message should become the system instruction")
	}
	if fake.config.MaxOutputTokens != 128 {
		t.Fatalf("unexpected max tokens: %d", fake.config.MaxOutputTokens)
	}
}

func TestGeminiChatModelStreamReturnsSingleChunk(t *testing.T) {
	fake := &fakeGeminiModels{replies: map[string]string{"m": "done"}}
	m, _ := newGeminiChatModel(fake, GeminiOptions{Model: "m"})

	stream, err := m.Stream(context.Background(), []*schema.Message{schema.UserMessage("hi")})
	if err != nil {
		t.Fatalf("Stream err: %v", err)
	}
	defer stream.Close()

	chunk, err := stream.Recv()
	if err != nil {
		t.Fatalf("Recv err: %v", err)
	}
	if chunk.Content != "done" {
		t.Fatalf("unexpected chunk: %q", chunk.Content)
	}
}

func TestGeminiChatModelRequiresModelName(t *testing.T) {
	if _, err := newGeminiChatModel(&fakeGeminiModels{}, GeminiOptions{}); err == nil {
		t.Fatal("expected error for empty model name")
	}
}

func TestProberReportsSuccessesAndFailures(t *testing.T) {
	fake := &fakeGeminiModels{
		replies: map[string]string{"gemini-1.5-flash": "hello"},
		listed:  []string{"models/gemini-1.5-flash"},
	}
	p := &Prober{models: fake}

	report := p.Run(context.Background(), []string{"gemini-1.5-flash", "gemini-ultra"})

	if len(report.AvailableModels) != 1 || report.AvailableModels[0] != "models/gemini-1.5-flash" {
		t.Fatalf("unexpected models: %v", report.AvailableModels)
	}
	if report.Successes["gemini-1.5-flash"] != "hello" {
		t.Fatalf("expected success for flash, got %v", report.Successes)
	}
	if _, ok := report.Failures["gemini-ultra"]; !ok {
		t.Fatalf("expected failure for unknown model, got %v", report.Failures)
	}
}

func TestProberKeepsProbingWhenListFails(t *testing.T) {
	fake := &fakeGeminiModels{listErr: errors.New("forbidden"), replies: map[string]string{"m": "ok"}}
	report := (&Prober{models: fake}).Run(context.Background(), []string{"m"})

	if report.ListError == "" {
		t.Fatal("expected list error to be reported")
	}
	if report.Successes["m"] != "ok" {
		t.Fatalf("expected probe success, got %v", report.Successes)
	}
}
