package coach

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"resume-canvas/internal/clock"
	"resume-canvas/internal/domain"
)

const (
	DefaultDebounce = 1000 * time.Millisecond
	DefaultDismiss  = 8000 * time.Millisecond
)

// Suggester produces a short hint about a newly added item. It never fails;
// implementations degrade to a fallback text.
type Suggester interface {
	Suggest(ctx context.Context, newItem domain.CanvasItem, prior []domain.CanvasItem) string
}

type Config struct {
	Debounce time.Duration
	Dismiss  time.Duration
}

// Coach owns the debounce and auto-dismiss timers, the request sequence and
// the inputs StateOf is computed from. It is safe for concurrent use.
type Coach struct {
	clock     clock.Clock
	suggester Suggester
	cfg       Config
	logger    *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu       sync.Mutex
	onChange func(Status)
	closed   bool
	rev      uint64

	latest []domain.CanvasItem
	prev   []domain.CanvasItem

	debounce    clock.Timer
	debounceGen uint64
	dismiss     clock.Timer
	dismissGen  uint64

	seq        uint64
	inFlight   int
	panelOpen  bool
	suggestion *domain.Suggestion
}

func New(c clock.Clock, s Suggester, cfg Config, logger *slog.Logger) *Coach {
	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultDebounce
	}
	if cfg.Dismiss <= 0 {
		cfg.Dismiss = DefaultDismiss
	}
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Coach{
		clock:     c,
		suggester: s,
		cfg:       cfg,
		logger:    logger.With("component", "coach"),
		ctx:       ctx,
		cancel:    cancel,
	}
}

// OnChange registers the callback invoked after every status change. It is
// called without internal locks held.
func (c *Coach) OnChange(f func(Status)) {
	c.mu.Lock()
	c.onChange = f
	c.mu.Unlock()
}

// ItemsChanged records the current collection and restarts the debounce
// window. items must not be mutated by the caller afterwards.
func (c *Coach) ItemsChanged(items []domain.CanvasItem) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.latest = items
	if c.debounce != nil {
		c.debounce.Stop()
	}
	c.debounceGen++
	gen := c.debounceGen
	c.debounce = c.clock.AfterFunc(c.cfg.Debounce, func() { c.settle(gen) })
}

// settle runs when the collection has been quiet for the debounce window.
func (c *Coach) settle(gen uint64) {
	c.mu.Lock()
	if c.closed || gen != c.debounceGen {
		c.mu.Unlock()
		return
	}
	c.debounce = nil
	items, prior := c.latest, c.prev
	c.prev = items
	if len(items) <= len(prior) {
		c.mu.Unlock()
		return
	}
	newItem := items[len(items)-1]
	c.seq++
	seq := c.seq
	c.wg.Add(1)
	c.mu.Unlock()

	c.logger.Debug("requesting suggestion", "item", newItem.ID, "seq", seq, "prior", len(prior))
	go func() {
		defer c.wg.Done()
		text := c.suggester.Suggest(c.ctx, newItem, prior)
		c.deliver(seq, text)
	}()
}

func (c *Coach) deliver(seq uint64, text string) {
	c.mu.Lock()
	switch {
	case c.closed:
		c.mu.Unlock()
		return
	case seq != c.seq:
		latest := c.seq
		c.mu.Unlock()
		c.logger.Debug("dropping stale suggestion", "seq", seq, "latest", latest)
		return
	case c.panelOpen, strings.TrimSpace(text) == "":
		c.mu.Unlock()
		return
	}
	c.suggestion = &domain.Suggestion{Text: text, Expiry: c.clock.Now().Add(c.cfg.Dismiss)}
	c.restartDismissLocked()
	st, notify := c.changedLocked()
	c.mu.Unlock()
	notify(st)
}

func (c *Coach) restartDismissLocked() {
	c.stopDismissLocked()
	gen := c.dismissGen
	c.dismiss = c.clock.AfterFunc(c.cfg.Dismiss, func() { c.expire(gen) })
}

func (c *Coach) stopDismissLocked() {
	if c.dismiss != nil {
		c.dismiss.Stop()
		c.dismiss = nil
	}
	c.dismissGen++
}

func (c *Coach) expire(gen uint64) {
	c.mu.Lock()
	if c.closed || gen != c.dismissGen {
		c.mu.Unlock()
		return
	}
	c.dismiss = nil
	c.suggestion = nil
	st, notify := c.changedLocked()
	c.mu.Unlock()
	notify(st)
}

// OpenPanel opens the chat panel, dismissing any displayed suggestion at once.
func (c *Coach) OpenPanel() {
	c.update(func() {
		c.panelOpen = true
		c.stopDismissLocked()
		c.suggestion = nil
	})
}

func (c *Coach) ClosePanel() {
	c.update(func() { c.panelOpen = false })
}

// RequestStarted marks a user-initiated request as in flight.
func (c *Coach) RequestStarted() {
	c.update(func() { c.inFlight++ })
}

// RequestFinished marks one in-flight request as resolved.
func (c *Coach) RequestFinished() {
	c.update(func() {
		if c.inFlight > 0 {
			c.inFlight--
		}
	})
}

func (c *Coach) update(f func()) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	f()
	st, notify := c.changedLocked()
	c.mu.Unlock()
	notify(st)
}

func (c *Coach) changedLocked() (Status, func(Status)) {
	c.rev++
	st := c.statusLocked()
	notify := c.onChange
	if notify == nil {
		notify = func(Status) {}
	}
	return st, notify
}

func (c *Coach) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.statusLocked()
}

func (c *Coach) statusLocked() Status {
	st := Status{
		Rev:       c.rev,
		State:     StateOf(c.inFlight > 0, c.suggestion != nil),
		PanelOpen: c.panelOpen,
		InFlight:  c.inFlight,
	}
	if c.suggestion != nil {
		s := *c.suggestion
		st.Suggestion = &s
	}
	return st
}

// Close stops both timers, cancels outstanding suggestion requests and waits
// for them to return.
func (c *Coach) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	if c.debounce != nil {
		c.debounce.Stop()
	}
	if c.dismiss != nil {
		c.dismiss.Stop()
	}
	c.mu.Unlock()

	c.cancel()
	c.wg.Wait()
}
