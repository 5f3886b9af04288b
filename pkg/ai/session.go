package ai

import (
	"context"
	"sync"

	"resume-canvas/internal/domain"
)

// Session is a conversation bound to one model. The history only grows after
// a successful exchange, so a failed turn can be retried.
type Session struct {
	model  string
	system string

	mu      sync.Mutex
	history []geminiContent
}

// newSession seeds a session from an existing transcript. Leading model
// messages, such as the greeting, are skipped because the conversation must
// open with a user turn.
func newSession(model, system string, transcript []domain.ChatMessage) *Session {
	s := &Session{model: model, system: system}
	started := false
	for _, m := range transcript {
		if !started && m.Role != domain.RoleUser {
			continue
		}
		started = true
		s.history = append(s.history, toGeminiContent(m))
	}
	return s
}

func (s *Session) Model() string { return s.model }

// Len returns the number of turns recorded so far.
func (s *Session) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.history)
}

// send runs one turn. Turns on the same session are serialized.
func (s *Session) send(ctx context.Context, c *Client, parts []geminiPart) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	turn := geminiContent{Role: string(domain.RoleUser), Parts: parts}
	contents := make([]geminiContent, 0, len(s.history)+1)
	contents = append(contents, s.history...)
	contents = append(contents, turn)

	req := geminiRequest{
		Contents:          contents,
		SystemInstruction: &geminiContent{Parts: []geminiPart{textPart(s.system)}},
	}
	text, err := c.generate(ctx, "chat", s.model, req)
	if err != nil {
		return "", err
	}
	s.history = append(s.history, turn, geminiContent{
		Role:  string(domain.RoleModel),
		Parts: []geminiPart{textPart(text)},
	})
	return text, nil
}

func toGeminiContent(m domain.ChatMessage) geminiContent {
	gc := geminiContent{Role: string(m.Role)}
	for _, p := range m.Parts {
		gc.Parts = append(gc.Parts, toGeminiPart(p))
	}
	return gc
}

func toGeminiPart(p domain.Part) geminiPart {
	gp := geminiPart{Text: p.Text}
	if p.InlineData != nil {
		gp.InlineData = &geminiInlineData{MimeType: p.InlineData.MimeType, Data: p.InlineData.Data}
	}
	return gp
}
