package persona

// Persona captures the assistant attributes exposed to the frontend and the prompt builder.
type Persona struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Title       string   `json:"title"`
	Tone        string   `json:"tone"`
	PromptHint  string   `json:"promptHint"`
	OpeningLine string   `json:"openingLine"`
	VoiceID     string   `json:"voiceId,omitempty"`
	Description string   `json:"description,omitempty"`
	Traits      []string `json:"traits,omitempty"`
}

// DefaultID is the persona served when no other is configured.
const DefaultID = "haley"

// Seed provides the built-in assistant persona.
func Seed() []Persona {
	return []Persona{
		{
			ID:          DefaultID,
			Name:        "Haley",
			Title:       "personal assistant",
			Tone:        "warm, helpful, slightly playful",
			PromptHint:  "Keep responses concise and natural. Answers are spoken aloud, so avoid markdown, lists and emoji.",
			OpeningLine: "Hi, I'm Haley. What can I do for you?",
			Description: "You are Haley, a warm, helpful, and slightly playful personal assistant.",
			Traits:      []string{"warm", "helpful", "playful", "concise"},
		},
	}
}
