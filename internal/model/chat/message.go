package chat

import "time"

// Envelope types exchanged with the browser over /ws/chat.
const (
	TypeUserMessage      = "user_message"
	TypeUserTranscript   = "user_transcript"
	TypeAssistantMessage = "assistant_message"
	TypeAudioStart       = "audio_start"
	TypeAudioChunk       = "audio_chunk"
	TypeAudioEnd         = "audio_end"
	TypeAudioError       = "audio_error"
)

// Conversation roles stored in a session history.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Envelope is the tagged record sent in both directions of the pipeline socket.
// Data carries base64 audio for audio_chunk; Message carries the reason for audio_error.
type Envelope struct {
	Type    string `json:"type"`
	Text    string `json:"text,omitempty"`
	Data    string `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
}

// Turn is one entry of a session's conversation history.
type Turn struct {
	Role      string    `json:"role"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"createdAt"`
}
