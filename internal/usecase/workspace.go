// Package usecase holds the workspace: the single state container that owns
// the canvas, the transcript, the coach and the generated document, and
// through which every mutation flows.
package usecase

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"resume-canvas/internal/canvas"
	"resume-canvas/internal/clock"
	"resume-canvas/internal/coach"
	"resume-canvas/internal/domain"
	"resume-canvas/internal/sse"
)

// DefaultBannerTimeout is how long an error banner stays visible.
const DefaultBannerTimeout = 5 * time.Second

// Assistant is the hosted model service.
type Assistant interface {
	ChatRespond(ctx context.Context, history []domain.ChatMessage, text string, attachment *domain.InlineData, deep bool) (string, error)
	GenerateDocument(ctx context.Context, items []domain.CanvasItem) (string, error)
	Suggest(ctx context.Context, newItem domain.CanvasItem, prior []domain.CanvasItem) string
}

// Publisher receives workspace events in the order they happen.
type Publisher interface {
	Publish(event sse.Event)
}

// DocumentArchive stores generated documents. Failures are logged only.
type DocumentArchive interface {
	Save(ctx context.Context, doc domain.ResumeDocument) error
}

// PageRenderer turns Markdown into a printable HTML page.
type PageRenderer interface {
	Page(title, markdown string) (string, error)
}

// PDFRenderer prints an HTML page.
type PDFRenderer interface {
	RenderHTMLToPDF(ctx context.Context, html string) ([]byte, error)
}

// Options carries the optional collaborators and settings of a Workspace.
type Options struct {
	Clock     clock.Clock
	Logger    *slog.Logger
	Publisher Publisher
	Archive   DocumentArchive
	Pages     PageRenderer
	PDF       PDFRenderer

	Coach         coach.Config
	BannerTimeout time.Duration
	Greeting      string
	// GenerateModel is recorded with archived documents.
	GenerateModel string
}

type nopPublisher struct{}

func (nopPublisher) Publish(sse.Event) {}

// Workspace is safe for concurrent use. Calls to the assistant are made
// without holding the workspace lock.
type Workspace struct {
	assistant Assistant
	clock     clock.Clock
	logger    *slog.Logger
	pub       Publisher
	archive   DocumentArchive
	pages     PageRenderer
	pdf       PDFRenderer
	coach     *coach.Coach

	bannerTimeout time.Duration
	generateModel string

	deep atomic.Bool

	mu         sync.Mutex
	store      *canvas.Store
	engine     *canvas.Engine
	tracker    *canvas.Tracker
	transcript []domain.ChatMessage
	view       domain.View
	document   string

	banner      *domain.Banner
	bannerTimer clock.Timer
	bannerGen   uint64
}

func NewWorkspace(assistant Assistant, opts Options) *Workspace {
	if opts.Clock == nil {
		opts.Clock = clock.Real{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Publisher == nil {
		opts.Publisher = nopPublisher{}
	}
	if opts.BannerTimeout <= 0 {
		opts.BannerTimeout = DefaultBannerTimeout
	}
	if opts.Greeting == "" {
		opts.Greeting = domain.DefaultGreeting
	}

	w := &Workspace{
		assistant:     assistant,
		clock:         opts.Clock,
		logger:        opts.Logger.With("component", "workspace"),
		pub:           opts.Publisher,
		archive:       opts.Archive,
		pages:         opts.Pages,
		pdf:           opts.PDF,
		bannerTimeout: opts.BannerTimeout,
		generateModel: opts.GenerateModel,
		store:         canvas.NewStore(),
		engine:        canvas.NewEngine(),
		tracker:       canvas.NewTracker(),
		transcript:    []domain.ChatMessage{domain.TextMessage(domain.RoleModel, opts.Greeting)},
		view:          domain.ViewCanvas,
	}
	w.coach = coach.New(opts.Clock, assistant, opts.Coach, opts.Logger)
	w.coach.OnChange(func(st coach.Status) {
		w.pub.Publish(sse.Event{Type: sse.EventCoachChanged, Data: w.coachEvent(st)})
	})
	return w
}

// CoachEvent is the payload of coach.changed events.
type CoachEvent struct {
	coach.Status
	DeepMode bool `json:"deepMode"`
}

func (w *Workspace) coachEvent(st coach.Status) CoachEvent {
	return CoachEvent{Status: st, DeepMode: w.deep.Load()}
}

// State is a full snapshot of the workspace.
type State struct {
	Items        []domain.CanvasItem  `json:"items"`
	Transcript   []domain.ChatMessage `json:"transcript"`
	Coach        CoachEvent           `json:"coach"`
	View         domain.View          `json:"view"`
	Document     string               `json:"document,omitempty"`
	ActiveItemID string               `json:"activeItemId,omitempty"`
	Anchor       *domain.Anchor       `json:"anchor,omitempty"`
	Banner       *domain.Banner       `json:"banner,omitempty"`
	Gesture      canvas.Mode          `json:"gesture"`
}

func (w *Workspace) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	st := State{
		Items:        w.store.Snapshot(),
		Transcript:   append([]domain.ChatMessage(nil), w.transcript...),
		Coach:        w.coachEvent(w.coach.Status()),
		View:         w.view,
		Document:     w.document,
		ActiveItemID: w.tracker.ActiveID(),
		Anchor:       w.tracker.Anchor(),
		Gesture:      w.engine.Mode(),
	}
	if w.banner != nil {
		b := *w.banner
		st.Banner = &b
	}
	return st
}

// Close stops all timers and waits for background suggestion requests.
func (w *Workspace) Close() {
	w.coach.Close()
	w.mu.Lock()
	if w.bannerTimer != nil {
		w.bannerTimer.Stop()
	}
	w.bannerGen++
	w.mu.Unlock()
}

func (w *Workspace) publishLocked(typ string, data any) {
	w.pub.Publish(sse.Event{Type: typ, Data: data})
}

// showBannerLocked displays msg and schedules its dismissal, replacing any
// banner already shown.
func (w *Workspace) showBannerLocked(msg string) {
	if w.bannerTimer != nil {
		w.bannerTimer.Stop()
	}
	w.bannerGen++
	gen := w.bannerGen
	w.banner = &domain.Banner{Message: msg, Expiry: w.clock.Now().Add(w.bannerTimeout)}
	w.bannerTimer = w.clock.AfterFunc(w.bannerTimeout, func() { w.clearBanner(gen) })
	w.publishLocked(sse.EventBannerChanged, w.banner)
}

func (w *Workspace) clearBanner(gen uint64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if gen != w.bannerGen {
		return
	}
	w.banner = nil
	w.bannerTimer = nil
	w.publishLocked(sse.EventBannerChanged, nil)
}

// DismissBanner hides the banner before its timeout.
func (w *Workspace) DismissBanner() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.banner == nil {
		return
	}
	if w.bannerTimer != nil {
		w.bannerTimer.Stop()
	}
	w.bannerGen++
	w.banner = nil
	w.bannerTimer = nil
	w.publishLocked(sse.EventBannerChanged, nil)
}

// userMessage extracts the text to show for a failed user action.
func userMessage(err error) string {
	if se, ok := asService(err); ok {
		return se.Message
	}
	return strings.TrimSpace(err.Error())
}
