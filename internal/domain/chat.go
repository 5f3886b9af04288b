package domain

type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// InlineData is a base64 attachment with its MIME type.
type InlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

// Part is one ordered piece of a chat message.
type Part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *InlineData `json:"inlineData,omitempty"`
}

// ChatMessage is an entry of the append-only transcript.
type ChatMessage struct {
	Role  Role   `json:"role"`
	Parts []Part `json:"parts"`
}

// TextMessage builds a message holding a single text part.
func TextMessage(role Role, text string) ChatMessage {
	return ChatMessage{Role: role, Parts: []Part{{Text: text}}}
}

// Text concatenates the text parts of m.
func (m ChatMessage) Text() string {
	var out string
	for _, p := range m.Parts {
		out += p.Text
	}
	return out
}

// DefaultGreeting opens every transcript unless configured otherwise.
const DefaultGreeting = "Hi! I'm your AI resume coach. Drop your ideas, experience, even images onto the canvas and I'll help you shape them into a great resume. Where shall we start?"
