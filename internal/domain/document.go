package domain

import (
	"time"

	"github.com/google/uuid"
)

// ResumeDocument is a generated resume as archived after a successful run.
type ResumeDocument struct {
	ID        uuid.UUID `json:"id"`
	Markdown  string    `json:"markdown"`
	ItemCount int       `json:"item_count"`
	Images    int       `json:"images"`
	Model     string    `json:"model"`
	CreatedAt time.Time `json:"created_at"`
}
