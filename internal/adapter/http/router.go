package http

import (
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

// NewApp builds the fiber application with every workspace route.
func NewApp(h *Handler, bodyLimit int) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "resume-canvas",
		BodyLimit:             bodyLimit,
		DisableStartupMessage: true,
		ErrorHandler:          ErrorHandler,
	})
	app.Use(recover.New())
	app.Use(requestLogger(h.logger))
	Register(app, h)
	return app
}

// Register mounts the routes on r.
func Register(r fiber.Router, h *Handler) {
	r.Get("/health", h.Health)

	api := r.Group("/api")
	api.Get("/state", h.State)
	api.Get("/events", h.Events)

	items := api.Group("/items")
	items.Post("/text", h.AddText)
	items.Post("/image", h.AddImage)
	items.Post("/drop", h.Drop)
	items.Put("/:id/position", h.UpdatePosition)
	items.Put("/:id/content", h.UpdateContent)
	items.Put("/:id/size", h.Resize)

	api.Post("/pointer/down", h.PointerDown)
	api.Post("/pointer/move", h.PointerMove)
	api.Post("/pointer/up", h.PointerUp)
	api.Post("/focus", h.Focus)
	api.Post("/blur", h.Blur)

	api.Post("/coach/open", h.OpenCoach)
	api.Post("/coach/close", h.CloseCoach)
	api.Put("/coach/deep-mode", h.SetDeepMode)

	api.Get("/chat", h.Transcript)
	api.Post("/chat", h.SendMessage)

	api.Get("/resume.pdf", h.ExportPDF)
	api.Get("/resume.html", h.DocumentHTML)
	api.Get("/resume", h.Document)
	api.Post("/resume", h.GenerateResume)
	api.Put("/resume", h.UpdateDocument)
	api.Post("/resume/back", h.BackToCanvas)
	api.Post("/resume/show", h.ShowDocument)

	api.Get("/documents", h.Documents)

	api.Delete("/banner", h.DismissBanner)
}

func requestLogger(logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		logger.Debug("request",
			"method", c.Method(),
			"path", c.Path(),
			"status", c.Response().StatusCode(),
			"duration", time.Since(start),
		)
		return err
	}
}
