package model

import "resume-canvas/internal/domain"

// Request bodies of the HTTP API. Creation bodies are checked against the
// embedded schemas before decoding.

type TextItemRequest struct {
	Content  string        `json:"content"`
	Position *domain.Point `json:"position,omitempty"`
}

type ImageItemRequest struct {
	Data     string        `json:"data"`
	MimeType string        `json:"mimeType"`
	Position *domain.Point `json:"position,omitempty"`
}

type DropRequest struct {
	Data     string       `json:"data"`
	MimeType string       `json:"mimeType"`
	Position domain.Point `json:"position"`
}

type ChatRequest struct {
	Text       string             `json:"text"`
	Attachment *domain.InlineData `json:"attachment,omitempty"`
}

type PositionRequest struct {
	Position domain.Point `json:"position"`
}

type ContentRequest struct {
	Content string `json:"content"`
}

type SizeRequest struct {
	Size domain.Size `json:"size"`
}

type PointerDownRequest struct {
	ItemID  string       `json:"itemId"`
	Target  string       `json:"target"`
	Pointer domain.Point `json:"pointer"`
}

type PointerMoveRequest struct {
	Pointer domain.Point `json:"pointer"`
}

type FocusRequest struct {
	ItemID string      `json:"itemId"`
	Rect   domain.Rect `json:"rect"`
}

type BlurRequest struct {
	ItemID string `json:"itemId"`
}

type DeepModeRequest struct {
	Enabled bool `json:"enabled"`
}

type DocumentRequest struct {
	Markdown string `json:"markdown"`
}
