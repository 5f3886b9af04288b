package usecase

import (
	"context"
	"fmt"
	"strings"

	"resume-canvas/internal/domain"
	"resume-canvas/internal/sse"

	"github.com/google/uuid"
)

// ViewEvent is the payload of view.changed events.
type ViewEvent struct {
	View     domain.View `json:"view"`
	Document string      `json:"document,omitempty"`
}

// GenerateResume sends every item to the assistant and switches to the
// document view on success. An empty canvas shows the error banner and fails
// without calling out.
func (w *Workspace) GenerateResume(ctx context.Context) (string, error) {
	w.mu.Lock()
	items := w.store.Snapshot()
	if len(items) == 0 {
		w.showBannerLocked(domain.ErrEmptyCanvas.Error())
		w.mu.Unlock()
		return "", domain.Invalid(domain.ErrEmptyCanvas)
	}
	w.mu.Unlock()

	w.coach.RequestStarted()
	markdown, err := w.assistant.GenerateDocument(ctx, items)
	w.coach.RequestFinished()

	if err != nil {
		w.logger.Warn("resume generation failed", "items", len(items), "error", err)
		if !domain.IsValidation(err) {
			w.mu.Lock()
			w.showBannerLocked(userMessage(err))
			w.mu.Unlock()
		}
		return "", err
	}

	w.mu.Lock()
	w.document = markdown
	w.setViewLocked(domain.ViewResume)
	w.mu.Unlock()

	w.logger.Info("resume generated", "items", len(items), "bytes", len(markdown))
	w.archiveDocument(ctx, markdown, items)
	return markdown, nil
}

func (w *Workspace) archiveDocument(ctx context.Context, markdown string, items []domain.CanvasItem) {
	if w.archive == nil {
		return
	}
	images := 0
	for _, it := range items {
		if it.Kind == domain.ItemImage {
			images++
		}
	}
	doc := domain.ResumeDocument{
		ID:        uuid.New(),
		Markdown:  markdown,
		ItemCount: len(items),
		Images:    images,
		Model:     w.generateModel,
		CreatedAt: w.clock.Now().UTC(),
	}
	if err := w.archive.Save(ctx, doc); err != nil {
		w.logger.Warn("archive document", "id", doc.ID, "error", err)
	}
}

// UpdateDocument replaces the generated document with the user's edit.
func (w *Workspace) UpdateDocument(markdown string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.document == "" {
		return domain.Invalid(domain.ErrNoDocument)
	}
	w.document = markdown
	w.publishLocked(sse.EventViewChanged, ViewEvent{View: w.view, Document: w.document})
	return nil
}

// BackToCanvas leaves the document view. The document is kept.
func (w *Workspace) BackToCanvas() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.setViewLocked(domain.ViewCanvas)
}

// ShowDocument returns to the last generated document.
func (w *Workspace) ShowDocument() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.document == "" {
		return domain.Invalid(domain.ErrNoDocument)
	}
	w.setViewLocked(domain.ViewResume)
	return nil
}

// setViewLocked publishes view changes. Entering the resume view always
// publishes because the document may have been regenerated.
func (w *Workspace) setViewLocked(v domain.View) {
	if w.view == v && v == domain.ViewCanvas {
		return
	}
	w.view = v
	ev := ViewEvent{View: v}
	if v == domain.ViewResume {
		ev.Document = w.document
	}
	w.publishLocked(sse.EventViewChanged, ev)
}

// Document returns the current document, or ErrNoDocument.
func (w *Workspace) Document() (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.document == "" {
		return "", domain.Invalid(domain.ErrNoDocument)
	}
	return w.document, nil
}

// DocumentHTML renders the current document as a printable page.
func (w *Workspace) DocumentHTML() (string, error) {
	markdown, err := w.Document()
	if err != nil {
		return "", err
	}
	if w.pages == nil {
		return "", fmt.Errorf("document rendering is not configured")
	}
	return w.pages.Page(documentTitle(markdown), markdown)
}

// ExportPDF prints the current document.
func (w *Workspace) ExportPDF(ctx context.Context) ([]byte, error) {
	page, err := w.DocumentHTML()
	if err != nil {
		return nil, err
	}
	if w.pdf == nil {
		return nil, fmt.Errorf("pdf export is not configured")
	}
	pdf, err := w.pdf.RenderHTMLToPDF(ctx, page)
	if err != nil {
		return nil, fmt.Errorf("export pdf: %w", err)
	}
	return pdf, nil
}

// documentTitle is the first top-level heading, or "Resume".
func documentTitle(markdown string) string {
	for _, line := range strings.Split(markdown, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "# ") {
			if t := strings.TrimSpace(strings.TrimPrefix(line, "# ")); t != "" {
				return t
			}
		}
	}
	return "Resume"
}
