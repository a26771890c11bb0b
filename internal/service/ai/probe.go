package ai

import (
	"context"
	"log"

	"google.golang.org/genai"
)

const probePrompt = "Say hello in one short sentence."

// ProbeReport is the result of trying a set of model names against the vendor.
type ProbeReport struct {
	AvailableModels []string          `json:"available_models"`
	ListError       string            `json:"list_error,omitempty"`
	Successes       map[string]string `json:"successes"`
	Failures        map[string]string `json:"failures"`
}

// Prober lists Gemini models and checks which model names answer a trivial prompt.
type Prober struct {
	models geminiModels
}

// NewProber wraps a genai client for diagnostics.
func NewProber(client *genai.Client) *Prober {
	return &Prober{models: client.Models}
}

// Run lists the available models and probes every name in candidates.
func (p *Prober) Run(ctx context.Context, candidates []string) ProbeReport {
	report := ProbeReport{
		AvailableModels: []string{},
		Successes:       make(map[string]string),
		Failures:        make(map[string]string),
	}

	page, err := p.models.List(ctx, &genai.ListModelsConfig{PageSize: 100})
	if err != nil {
		report.ListError = err.Error()
	} else {
		for _, m := range page.Items {
			if m != nil {
				report.AvailableModels = append(report.AvailableModels, m.Name)
			}
		}
	}

	for _, name := range candidates {
		resp, err := p.models.GenerateContent(ctx, name, genai.Text(probePrompt), nil)
		if err != nil {
			report.Failures[name] = err.Error()
			continue
		}
		report.Successes[name] = resp.Text()
	}

	log.Printf("[ai] probe finished: models=%d ok=%d failed=%d", len(report.AvailableModels), len(report.Successes), len(report.Failures))
	return report
}
