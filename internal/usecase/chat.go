package usecase

import (
	"context"
	"errors"
	"strings"

	"resume-canvas/internal/domain"
	"resume-canvas/internal/sse"
)

// ApologyPrefix starts the transcript entry recorded when a chat call fails.
const ApologyPrefix = "Sorry, I ran into an error. Please try again."

// OpenCoach opens the chat panel, dismissing any displayed suggestion.
func (w *Workspace) OpenCoach() { w.coach.OpenPanel() }

func (w *Workspace) CloseCoach() { w.coach.ClosePanel() }

// SetDeepMode selects the higher-capability chat model for later messages.
func (w *Workspace) SetDeepMode(on bool) {
	if w.deep.Swap(on) == on {
		return
	}
	w.pub.Publish(sse.Event{Type: sse.EventCoachChanged, Data: w.coachEvent(w.coach.Status())})
}

func (w *Workspace) DeepMode() bool { return w.deep.Load() }

// SendMessage appends the user's message, asks the assistant and appends its
// reply. The user message is recorded before the call, the reply once the
// call returns, so concurrent sends keep each reply after its own message.
//
// On a service failure an apology is appended in place of the reply, the
// banner is shown and the error is returned.
func (w *Workspace) SendMessage(ctx context.Context, text string, attachment *domain.InlineData) (domain.ChatMessage, error) {
	blank := strings.TrimSpace(text) == ""
	if blank && attachment == nil {
		return domain.ChatMessage{}, domain.Invalid(domain.ErrEmptyMessage)
	}
	if attachment != nil && (attachment.MimeType == "" || attachment.Data == "") {
		return domain.ChatMessage{}, domain.Invalid(errors.New("attachment needs both data and a MIME type"))
	}

	// The message is stored and sent as typed; only a blank text is dropped.
	if blank {
		text = ""
	}
	msg := domain.ChatMessage{Role: domain.RoleUser}
	if text != "" {
		msg.Parts = append(msg.Parts, domain.Part{Text: text})
	}
	if attachment != nil {
		att := *attachment
		msg.Parts = append(msg.Parts, domain.Part{InlineData: &att})
	}

	w.mu.Lock()
	history := append([]domain.ChatMessage(nil), w.transcript...)
	w.appendLocked(msg)
	w.mu.Unlock()

	deep := w.deep.Load()
	w.coach.RequestStarted()
	reply, err := w.assistant.ChatRespond(ctx, history, text, attachment, deep)
	w.coach.RequestFinished()

	w.mu.Lock()
	defer w.mu.Unlock()
	if err != nil {
		w.logger.Warn("chat failed", "deep", deep, "error", err)
		apology := domain.TextMessage(domain.RoleModel, ApologyPrefix+" "+userMessage(err))
		w.appendLocked(apology)
		w.showBannerLocked(userMessage(err))
		return apology, err
	}
	out := domain.TextMessage(domain.RoleModel, reply)
	w.appendLocked(out)
	return out, nil
}

func (w *Workspace) appendLocked(m domain.ChatMessage) {
	w.transcript = append(w.transcript, m)
	w.publishLocked(sse.EventChatAppended, m)
}

// Transcript returns a copy of the conversation so far.
func (w *Workspace) Transcript() []domain.ChatMessage {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]domain.ChatMessage(nil), w.transcript...)
}

func asService(err error) (*domain.ServiceError, bool) {
	var se *domain.ServiceError
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}
