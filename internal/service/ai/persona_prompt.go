package ai

import (
	"fmt"
	"strings"

	"github.com/zhouzirui/haley/backend/internal/model/persona"
)

// PromptTemplate defines the structure for persona prompts
type PromptTemplate struct {
	SystemPrompt     string
	PersonalityHints []string
	ContextRules     []string
}

// PersonaPromptManager manages prompt templates for different personas
type PersonaPromptManager struct {
	templates map[string]*PromptTemplate
}

// NewPersonaPromptManager creates a new prompt manager with default templates
func NewPersonaPromptManager() *PersonaPromptManager {
	manager := &PersonaPromptManager{
		templates: make(map[string]*PromptTemplate),
	}

	manager.loadDefaultTemplates()
	return manager
}

// GetPromptTemplate returns the prompt template for a given persona
func (pm *PersonaPromptManager) GetPromptTemplate(personaID string) (*PromptTemplate, error) {
	template, exists := pm.templates[personaID]
	if !exists {
		return nil, fmt.Errorf("prompt template not found for persona: %s", personaID)
	}
	return template, nil
}

// BuildSystemPrompt creates the system prompt for the persona
func (pm *PersonaPromptManager) BuildSystemPrompt(persona *persona.Persona) string {
	template, err := pm.GetPromptTemplate(persona.ID)
	if err != nil {
		return pm.buildBasicSystemPrompt(persona)
	}

	return fmt.Sprintf(`%s

Personality:
- %s

Conversation rules:
- %s`,
		template.SystemPrompt,
		strings.Join(template.PersonalityHints, "\n- "),
		strings.Join(template.ContextRules, "\n- "),
	)
}

// buildBasicSystemPrompt creates a basic system prompt when no template is available
func (pm *PersonaPromptManager) buildBasicSystemPrompt(persona *persona.Persona) string {
	return fmt.Sprintf(`You are %s, a %s. Your tone is %s.

%s`,
		persona.Name,
		persona.Title,
		persona.Tone,
		persona.PromptHint,
	)
}

func (pm *PersonaPromptManager) loadDefaultTemplates() {
	pm.templates[persona.DefaultID] = &PromptTemplate{
		SystemPrompt: "You are Haley, a warm, helpful, and slightly playful personal assistant. Keep responses concise and natural.",
		PersonalityHints: []string{
			"Friendly and upbeat without being overbearing",
			"A light sense of humour when the moment allows it",
			"Honest about what you do not know",
		},
		ContextRules: []string{
			"Every reply is read aloud by a text-to-speech voice, so answer in plain spoken sentences",
			"Never use markdown, bullet points, code blocks or emoji",
			"Prefer two or three sentences unless the user asks for more detail",
		},
	}
}
