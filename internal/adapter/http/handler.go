// Package http exposes the workspace over a JSON API with a server-sent
// event stream.
package http

import (
	"bufio"
	"context"
	"errors"
	"log/slog"
	"strconv"

	"resume-canvas/internal/canvas"
	"resume-canvas/internal/domain"
	"resume-canvas/internal/model"
	"resume-canvas/internal/usecase"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/gofiber/fiber/v2"
	"github.com/valyala/fasthttp"
)

// Streamer copies workspace events to a client until it goes away.
type Streamer interface {
	Stream(ctx context.Context, w *bufio.Writer) error
}

// History lists archived documents.
type History interface {
	Recent(ctx context.Context, limit int) ([]domain.ResumeDocument, error)
}

// Handler serves the workspace API.
type Handler struct {
	ws      *usecase.Workspace
	events  Streamer
	history History
	health  func() fiber.Map
	logger  *slog.Logger
	ctx     context.Context
}

// Options carries the optional collaborators of a Handler.
type Options struct {
	Events  Streamer
	History History
	// Health adds fields to the /health response.
	Health func() fiber.Map
	Logger *slog.Logger
	// Context bounds event streams; cancel it on shutdown.
	Context context.Context
}

func NewHandler(ws *usecase.Workspace, opts Options) *Handler {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Context == nil {
		opts.Context = context.Background()
	}
	return &Handler{
		ws:      ws,
		events:  opts.Events,
		history: opts.History,
		health:  opts.Health,
		logger:  opts.Logger.With("component", "http"),
		ctx:     opts.Context,
	}
}

func (h *Handler) Health(c *fiber.Ctx) error {
	body := fiber.Map{"status": "ok"}
	if h.health != nil {
		for k, v := range h.health() {
			body[k] = v
		}
	}
	return c.JSON(body)
}

func (h *Handler) State(c *fiber.Ctx) error {
	return c.JSON(h.ws.State())
}

func (h *Handler) Events(c *fiber.Ctx) error {
	if h.events == nil {
		return fiber.NewError(fiber.StatusNotFound, "event stream is not configured")
	}
	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")
	c.Set("X-Accel-Buffering", "no")

	ctx := h.ctx
	c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		if err := h.events.Stream(ctx, w); err != nil && !errors.Is(err, context.Canceled) {
			h.logger.Debug("event stream ended", "error", err)
		}
	}))
	return nil
}

func (h *Handler) AddText(c *fiber.Ctx) error {
	var req model.TextItemRequest
	if err := decode(c, model.SchemaTextItem, &req); err != nil {
		return h.fail(c, err)
	}
	item, err := h.ws.AddText(req.Content, req.Position)
	if err != nil {
		return h.fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(item)
}

func (h *Handler) AddImage(c *fiber.Ctx) error {
	var req model.ImageItemRequest
	if err := decode(c, model.SchemaImageItem, &req); err != nil {
		return h.fail(c, err)
	}
	item, err := h.ws.AddImage(req.Data, req.MimeType, req.Position)
	if err != nil {
		return h.fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(item)
}

func (h *Handler) Drop(c *fiber.Ctx) error {
	var req model.DropRequest
	if err := decode(c, model.SchemaDrop, &req); err != nil {
		return h.fail(c, err)
	}
	item, err := h.ws.Drop(req.Data, req.MimeType, req.Position)
	if err != nil {
		return h.fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(item)
}

func (h *Handler) UpdatePosition(c *fiber.Ctx) error {
	var req model.PositionRequest
	if err := decode(c, "", &req); err != nil {
		return h.fail(c, err)
	}
	item, err := h.ws.UpdatePosition(c.Params("id"), req.Position)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(item)
}

func (h *Handler) UpdateContent(c *fiber.Ctx) error {
	var req model.ContentRequest
	if err := decode(c, "", &req); err != nil {
		return h.fail(c, err)
	}
	item, err := h.ws.UpdateContent(c.Params("id"), req.Content)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(item)
}

func (h *Handler) Resize(c *fiber.Ctx) error {
	var req model.SizeRequest
	if err := decode(c, "", &req); err != nil {
		return h.fail(c, err)
	}
	item, err := h.ws.Resize(c.Params("id"), req.Size)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(item)
}

func (h *Handler) PointerDown(c *fiber.Ctx) error {
	var req model.PointerDownRequest
	if err := decode(c, "", &req); err != nil {
		return h.fail(c, err)
	}
	err := validation.ValidateStruct(&req,
		validation.Field(&req.ItemID, validation.Required),
		validation.Field(&req.Target, validation.Required, validation.In(
			string(canvas.TargetBody), string(canvas.TargetResizeHandle), string(canvas.TargetContent))),
	)
	if err != nil {
		return h.fail(c, domain.Invalid(err))
	}
	mode, err := h.ws.PointerDown(req.ItemID, canvas.Target(req.Target), req.Pointer)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{"mode": mode})
}

func (h *Handler) PointerMove(c *fiber.Ctx) error {
	var req model.PointerMoveRequest
	if err := decode(c, "", &req); err != nil {
		return h.fail(c, err)
	}
	item, moved, err := h.ws.PointerMove(req.Pointer)
	if err != nil {
		return h.fail(c, err)
	}
	if !moved {
		return c.JSON(fiber.Map{"moved": false})
	}
	return c.JSON(fiber.Map{"moved": true, "item": item})
}

func (h *Handler) PointerUp(c *fiber.Ctx) error {
	h.ws.PointerUp()
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *Handler) Focus(c *fiber.Ctx) error {
	var req model.FocusRequest
	if err := decode(c, "", &req); err != nil {
		return h.fail(c, err)
	}
	anchor, err := h.ws.Focus(req.ItemID, req.Rect)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{"activeItemId": req.ItemID, "anchor": anchor})
}

func (h *Handler) Blur(c *fiber.Ctx) error {
	var req model.BlurRequest
	if err := decode(c, "", &req); err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{"cleared": h.ws.Blur(req.ItemID)})
}

func (h *Handler) OpenCoach(c *fiber.Ctx) error {
	h.ws.OpenCoach()
	return c.JSON(h.ws.State().Coach)
}

func (h *Handler) CloseCoach(c *fiber.Ctx) error {
	h.ws.CloseCoach()
	return c.JSON(h.ws.State().Coach)
}

func (h *Handler) SetDeepMode(c *fiber.Ctx) error {
	var req model.DeepModeRequest
	if err := decode(c, "", &req); err != nil {
		return h.fail(c, err)
	}
	h.ws.SetDeepMode(req.Enabled)
	return c.JSON(fiber.Map{"deepMode": h.ws.DeepMode()})
}

func (h *Handler) SendMessage(c *fiber.Ctx) error {
	var req model.ChatRequest
	if err := decode(c, model.SchemaChat, &req); err != nil {
		return h.fail(c, err)
	}
	reply, err := h.ws.SendMessage(c.UserContext(), req.Text, req.Attachment)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(reply)
}

func (h *Handler) Transcript(c *fiber.Ctx) error {
	return c.JSON(h.ws.Transcript())
}

func (h *Handler) GenerateResume(c *fiber.Ctx) error {
	doc, err := h.ws.GenerateResume(c.UserContext())
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{"markdown": doc})
}

func (h *Handler) Document(c *fiber.Ctx) error {
	doc, err := h.ws.Document()
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{"markdown": doc})
}

func (h *Handler) UpdateDocument(c *fiber.Ctx) error {
	var req model.DocumentRequest
	if err := decode(c, "", &req); err != nil {
		return h.fail(c, err)
	}
	if err := h.ws.UpdateDocument(req.Markdown); err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{"markdown": req.Markdown})
}

func (h *Handler) BackToCanvas(c *fiber.Ctx) error {
	h.ws.BackToCanvas()
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *Handler) ShowDocument(c *fiber.Ctx) error {
	if err := h.ws.ShowDocument(); err != nil {
		return h.fail(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *Handler) DocumentHTML(c *fiber.Ctx) error {
	page, err := h.ws.DocumentHTML()
	if err != nil {
		return h.fail(c, err)
	}
	c.Set(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)
	return c.SendString(page)
}

func (h *Handler) ExportPDF(c *fiber.Ctx) error {
	pdf, err := h.ws.ExportPDF(c.UserContext())
	if err != nil {
		return h.fail(c, err)
	}
	c.Set(fiber.HeaderContentType, "application/pdf")
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="resume.pdf"`)
	return c.Send(pdf)
}

func (h *Handler) DismissBanner(c *fiber.Ctx) error {
	h.ws.DismissBanner()
	return c.SendStatus(fiber.StatusNoContent)
}

// Documents lists previously generated resumes, newest first.
func (h *Handler) Documents(c *fiber.Ctx) error {
	if h.history == nil {
		return c.JSON([]domain.ResumeDocument{})
	}
	limit, err := strconv.Atoi(c.Query("limit", "20"))
	if err != nil || limit < 1 || limit > 100 {
		return h.fail(c, domain.Invalid(errors.New("limit must be between 1 and 100")))
	}
	docs, err := h.history.Recent(c.UserContext(), limit)
	if err != nil {
		return h.fail(c, err)
	}
	if docs == nil {
		docs = []domain.ResumeDocument{}
	}
	return c.JSON(docs)
}
