package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"resume-canvas/internal/canvas"
	"resume-canvas/internal/clock"
	"resume-canvas/internal/coach"
	"resume-canvas/internal/domain"
	"resume-canvas/internal/sse"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type chatCall struct {
	history    []domain.ChatMessage
	text       string
	attachment *domain.InlineData
	deep       bool
}

type fakeAssistant struct {
	mu           sync.Mutex
	chatCalls    []chatCall
	genCalls     [][]domain.CanvasItem
	suggestCalls []domain.CanvasItem
	suggestPrior [][]domain.CanvasItem

	chatErr      error
	genErr       error
	genReply     string
	suggestReply string
	// gates block ChatRespond for the given text until closed.
	gates map[string]chan struct{}
	// started receives the text of every chat call as it begins.
	started chan string
}

func newFakeAssistant() *fakeAssistant {
	return &fakeAssistant{
		genReply:     "# Jane Doe\n\n- 5 years at Acme Corp",
		suggestReply: "Great start!",
		gates:        map[string]chan struct{}{},
		started:      make(chan string, 16),
	}
}

func (f *fakeAssistant) gate(text string) chan struct{} {
	ch := make(chan struct{})
	f.mu.Lock()
	f.gates[text] = ch
	f.mu.Unlock()
	return ch
}

func (f *fakeAssistant) ChatRespond(ctx context.Context, history []domain.ChatMessage, text string, attachment *domain.InlineData, deep bool) (string, error) {
	f.mu.Lock()
	f.chatCalls = append(f.chatCalls, chatCall{history: history, text: text, attachment: attachment, deep: deep})
	gate := f.gates[text]
	err := f.chatErr
	f.mu.Unlock()
	f.started <- text

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if err != nil {
		return "", err
	}
	return "reply to " + text, nil
}

func (f *fakeAssistant) GenerateDocument(_ context.Context, items []domain.CanvasItem) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.genCalls = append(f.genCalls, items)
	if f.genErr != nil {
		return "", f.genErr
	}
	return f.genReply, nil
}

func (f *fakeAssistant) Suggest(_ context.Context, newItem domain.CanvasItem, prior []domain.CanvasItem) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.suggestCalls = append(f.suggestCalls, newItem)
	f.suggestPrior = append(f.suggestPrior, prior)
	return f.suggestReply
}

func (f *fakeAssistant) counts() (chat, gen, suggest int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.chatCalls), len(f.genCalls), len(f.suggestCalls)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []sse.Event
}

func (r *recordingPublisher) Publish(e sse.Event) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
}

func (r *recordingPublisher) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

type fakeArchive struct {
	mu   sync.Mutex
	docs []domain.ResumeDocument
	err  error
}

func (a *fakeArchive) Save(_ context.Context, doc domain.ResumeDocument) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.docs = append(a.docs, doc)
	return a.err
}

type fakePages struct{}

func (fakePages) Page(title, markdown string) (string, error) {
	return "<title>" + title + "</title>" + markdown, nil
}

type fakePDF struct{ html string }

func (p *fakePDF) RenderHTMLToPDF(_ context.Context, html string) ([]byte, error) {
	p.html = html
	return []byte("%PDF-1.4"), nil
}

type fixture struct {
	ws      *Workspace
	ai      *fakeAssistant
	clock   *clock.Fake
	pub     *recordingPublisher
	archive *fakeArchive
	pdf     *fakePDF
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		ai:      newFakeAssistant(),
		clock:   clock.NewFake(time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)),
		pub:     &recordingPublisher{},
		archive: &fakeArchive{},
		pdf:     &fakePDF{},
	}
	f.ws = NewWorkspace(f.ai, Options{
		Clock:         f.clock,
		Publisher:     f.pub,
		Archive:       f.archive,
		Pages:         fakePages{},
		PDF:           f.pdf,
		GenerateModel: "gemini-2.5-pro",
	})
	t.Cleanup(f.ws.Close)
	return f
}

// settle fires the debounce window and waits for the resulting suggestion.
func (f *fixture) settle(t *testing.T) {
	t.Helper()
	f.clock.Advance(coach.DefaultDebounce)
	require.Eventually(t, func() bool { return f.ws.State().Coach.Suggestion != nil }, time.Second, time.Millisecond)
}

func TestNewWorkspaceStartsWithGreeting(t *testing.T) {
	f := newFixture(t)
	st := f.ws.State()
	require.Len(t, st.Transcript, 1)
	assert.Equal(t, domain.RoleModel, st.Transcript[0].Role)
	assert.Equal(t, domain.DefaultGreeting, st.Transcript[0].Text())
	assert.Equal(t, domain.ViewCanvas, st.View)
	assert.Equal(t, domain.CoachIdle, st.Coach.State)
	assert.Empty(t, st.Items)
	assert.Equal(t, canvas.ModeNone, st.Gesture)
}

func TestAddItems(t *testing.T) {
	f := newFixture(t)

	note, err := f.ws.AddText("", nil)
	require.NoError(t, err)
	assert.Equal(t, canvas.NewNotePlaceholder, note.Content)
	assert.Equal(t, canvas.DefaultPosition, note.Position)
	assert.Equal(t, canvas.DefaultTextSize, note.Size)

	img, err := f.ws.Drop("aGVsbG8=", "image/png", domain.Point{X: 400, Y: 120})
	require.NoError(t, err)
	assert.Equal(t, domain.ItemImage, img.Kind)
	assert.Equal(t, domain.Point{X: 400, Y: 120}, img.Position)
	assert.Equal(t, canvas.DefaultImageSize, img.Size)
	assert.Equal(t, "image/png", img.MimeType)

	_, err = f.ws.Drop("aGVsbG8=", "application/pdf", domain.Point{})
	assert.True(t, domain.IsValidation(err))
	assert.ErrorIs(t, err, domain.ErrUnsupportedMedia)

	_, err = f.ws.AddImage("not base64!", "image/png", nil)
	assert.True(t, domain.IsValidation(err))

	assert.Len(t, f.ws.State().Items, 2)
	assert.Equal(t, []string{sse.EventItemsChanged, sse.EventItemsChanged}, f.pub.types())
}

func TestLastPositionUpdateWins(t *testing.T) {
	f := newFixture(t)
	x, err := f.ws.AddText("x", nil)
	require.NoError(t, err)
	y, err := f.ws.AddText("y", nil)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _ = f.ws.UpdatePosition(y.ID, domain.Point{X: float64(i), Y: float64(i)})
		}(i)
	}
	for i := 0; i < 50; i++ {
		_, err := f.ws.UpdatePosition(x.ID, domain.Point{X: float64(i), Y: float64(2 * i)})
		require.NoError(t, err)
	}
	wg.Wait()

	st := f.ws.State()
	assert.Equal(t, domain.Point{X: 49, Y: 98}, st.Items[0].Position)

	_, err = f.ws.UpdatePosition("item-missing", domain.Point{})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestPointerGestures(t *testing.T) {
	f := newFixture(t)
	item, err := f.ws.AddText("drag me", &domain.Point{X: 100, Y: 100})
	require.NoError(t, err)

	_, moved, err := f.ws.PointerMove(domain.Point{X: 1, Y: 1})
	require.NoError(t, err)
	assert.False(t, moved)

	mode, err := f.ws.PointerDown(item.ID, canvas.TargetBody, domain.Point{X: 110, Y: 120})
	require.NoError(t, err)
	assert.Equal(t, canvas.ModeDrag, mode)

	got, moved, err := f.ws.PointerMove(domain.Point{X: -40, Y: 20})
	require.NoError(t, err)
	assert.True(t, moved)
	assert.Equal(t, domain.Point{X: -50, Y: 0}, got.Position)
	f.ws.PointerUp()

	mode, err = f.ws.PointerDown(item.ID, canvas.TargetResizeHandle, domain.Point{})
	require.NoError(t, err)
	assert.Equal(t, canvas.ModeResize, mode)
	assert.Equal(t, canvas.ModeResize, f.ws.State().Gesture)

	got, _, err = f.ws.PointerMove(domain.Point{X: -30, Y: 500})
	require.NoError(t, err)
	assert.Equal(t, domain.Size{Width: canvas.MinWidth, Height: 500}, got.Size)
	f.ws.PointerUp()

	_, moved, _ = f.ws.PointerMove(domain.Point{X: 900, Y: 900})
	assert.False(t, moved)

	mode, err = f.ws.PointerDown(item.ID, canvas.TargetContent, domain.Point{})
	require.NoError(t, err)
	assert.Equal(t, canvas.ModeNone, mode)

	_, err = f.ws.PointerDown("item-missing", canvas.TargetBody, domain.Point{})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestFocusAndStaleBlur(t *testing.T) {
	f := newFixture(t)
	a, _ := f.ws.AddText("a", nil)
	b, _ := f.ws.AddText("b", nil)

	anchor, err := f.ws.Focus(a.ID, domain.Rect{Top: 10, Left: 20, Right: 270, Bottom: 160})
	require.NoError(t, err)
	assert.Equal(t, domain.Anchor{Top: 10, Left: 285}, anchor)

	_, err = f.ws.Focus(b.ID, domain.Rect{Top: 200, Right: 100})
	require.NoError(t, err)

	assert.False(t, f.ws.Blur(a.ID))
	st := f.ws.State()
	assert.Equal(t, b.ID, st.ActiveItemID)
	require.NotNil(t, st.Anchor)
	assert.Equal(t, domain.Anchor{Top: 200, Left: 115}, *st.Anchor)

	assert.True(t, f.ws.Blur(b.ID))
	assert.Empty(t, f.ws.State().ActiveItemID)

	_, err = f.ws.Focus("item-missing", domain.Rect{})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSuggestionOnlyForNewItems(t *testing.T) {
	f := newFixture(t)

	item, err := f.ws.AddText("5 years at Acme Corp", nil)
	require.NoError(t, err)
	f.settle(t)

	_, _, n := f.ai.counts()
	require.Equal(t, 1, n)
	assert.Equal(t, item.ID, f.ai.suggestCalls[0].ID)

	_, err = f.ws.UpdateContent(item.ID, "6 years at Acme Corp")
	require.NoError(t, err)
	_, err = f.ws.UpdatePosition(item.ID, domain.Point{X: 300, Y: 300})
	require.NoError(t, err)
	f.clock.Advance(coach.DefaultDebounce)

	_, _, n = f.ai.counts()
	assert.Equal(t, 1, n)
}

func TestSuggestionDismissal(t *testing.T) {
	f := newFixture(t)
	_, err := f.ws.AddText("Team lead", nil)
	require.NoError(t, err)
	f.settle(t)
	require.Equal(t, domain.CoachSuggesting, f.ws.State().Coach.State)

	f.clock.Advance(coach.DefaultDismiss)
	assert.Nil(t, f.ws.State().Coach.Suggestion)

	_, err = f.ws.AddText("Led five engineers", nil)
	require.NoError(t, err)
	f.settle(t)
	require.NotNil(t, f.ws.State().Coach.Suggestion)

	f.ws.OpenCoach()
	st := f.ws.State().Coach
	assert.Nil(t, st.Suggestion)
	assert.True(t, st.PanelOpen)
	assert.Equal(t, domain.CoachIdle, st.State)
}

func TestThinkingWhileChatInFlight(t *testing.T) {
	f := newFixture(t)
	gate := f.ai.gate("hello")
	f.ws.OpenCoach()

	done := make(chan error, 1)
	go func() {
		_, err := f.ws.SendMessage(context.Background(), "hello", nil)
		done <- err
	}()
	<-f.ai.started

	assert.Equal(t, domain.CoachThinking, f.ws.State().Coach.State)

	// A suggestion landing now is discarded because the panel is open.
	_, err := f.ws.AddText("note", nil)
	require.NoError(t, err)
	f.clock.Advance(coach.DefaultDebounce)
	require.Eventually(t, func() bool {
		_, _, n := f.ai.counts()
		return n == 1
	}, time.Second, time.Millisecond)
	assert.Never(t, func() bool {
		return f.ws.State().Coach.State == domain.CoachSuggesting
	}, 50*time.Millisecond, time.Millisecond)

	close(gate)
	require.NoError(t, <-done)
	assert.Equal(t, domain.CoachIdle, f.ws.State().Coach.State)
}

func TestSendMessage(t *testing.T) {
	f := newFixture(t)
	f.ws.SetDeepMode(true)

	att := &domain.InlineData{MimeType: "image/png", Data: "aGk="}
	reply, err := f.ws.SendMessage(context.Background(), "  here is my badge  ", att)
	require.NoError(t, err)
	assert.Equal(t, "reply to here is my badge", reply.Text())

	require.Len(t, f.ai.chatCalls, 1)
	call := f.ai.chatCalls[0]
	assert.True(t, call.deep)
	assert.Equal(t, "here is my badge", call.text)
	assert.Equal(t, att, call.attachment)
	require.Len(t, call.history, 1, "history excludes the message being sent")

	tr := f.ws.Transcript()
	require.Len(t, tr, 3)
	assert.Equal(t, domain.RoleUser, tr[1].Role)
	require.Len(t, tr[1].Parts, 2)
	assert.Equal(t, "image/png", tr[1].Parts[1].InlineData.MimeType)
	assert.Equal(t, domain.RoleModel, tr[2].Role)

	_, err = f.ws.SendMessage(context.Background(), "   ", nil)
	assert.True(t, domain.IsValidation(err))
	assert.ErrorIs(t, err, domain.ErrEmptyMessage)
	assert.Len(t, f.ws.Transcript(), 3)
}

func TestSendMessageKeepsTextAsTyped(t *testing.T) {
	f := newFixture(t)

	_, err := f.ws.SendMessage(context.Background(), "  Led the team\n", nil)
	require.NoError(t, err)

	require.Len(t, f.ai.chatCalls, 1)
	assert.Equal(t, "  Led the team\n", f.ai.chatCalls[0].text)
	tr := f.ws.Transcript()
	require.Len(t, tr, 3)
	assert.Equal(t, "  Led the team\n", tr[1].Text())

	att := &domain.InlineData{MimeType: "image/png", Data: "aGk="}
	_, err = f.ws.SendMessage(context.Background(), " \t", att)
	require.NoError(t, err)
	require.Len(t, f.ai.chatCalls, 2)
	assert.Empty(t, f.ai.chatCalls[1].text)
	tr = f.ws.Transcript()
	require.Len(t, tr[3].Parts, 1)
	assert.NotNil(t, tr[3].Parts[0].InlineData)
}

func TestConcurrentSendsKeepReplyAfterItsMessage(t *testing.T) {
	f := newFixture(t)
	gateA, gateB := f.ai.gate("a"), f.ai.gate("b")

	results := make(chan error, 2)
	send := func(text string) {
		_, err := f.ws.SendMessage(context.Background(), text, nil)
		results <- err
	}
	go send("a")
	require.Equal(t, "a", <-f.ai.started)
	go send("b")
	require.Equal(t, "b", <-f.ai.started)

	close(gateB)
	require.NoError(t, <-results)
	close(gateA)
	require.NoError(t, <-results)

	var texts []string
	for _, m := range f.ws.Transcript()[1:] {
		texts = append(texts, m.Text())
	}
	assert.Equal(t, []string{"a", "b", "reply to b", "reply to a"}, texts)
	assert.Equal(t, domain.CoachIdle, f.ws.State().Coach.State)
}

func TestChatFailureApologizesAndShowsBanner(t *testing.T) {
	f := newFixture(t)
	f.ai.chatErr = &domain.ServiceError{Op: "chat", Message: "the AI service is busy", Err: domain.ErrRateLimit}

	msg, err := f.ws.SendMessage(context.Background(), "hello", nil)
	require.Error(t, err)
	assert.True(t, domain.IsService(err))
	assert.Equal(t, domain.RoleModel, msg.Role)
	assert.Equal(t, ApologyPrefix+" the AI service is busy", msg.Text())

	tr := f.ws.Transcript()
	require.Len(t, tr, 3)
	assert.Equal(t, "hello", tr[1].Text())
	assert.Equal(t, msg, tr[2])

	st := f.ws.State()
	require.NotNil(t, st.Banner)
	assert.Equal(t, "the AI service is busy", st.Banner.Message)
	assert.Equal(t, domain.CoachIdle, st.Coach.State)

	f.clock.Advance(DefaultBannerTimeout - time.Millisecond)
	assert.NotNil(t, f.ws.State().Banner)
	f.clock.Advance(time.Millisecond)
	assert.Nil(t, f.ws.State().Banner)
}

func TestNewBannerRestartsTimeout(t *testing.T) {
	f := newFixture(t)
	f.ai.chatErr = &domain.ServiceError{Message: "down"}

	_, _ = f.ws.SendMessage(context.Background(), "one", nil)
	f.clock.Advance(3 * time.Second)
	_, _ = f.ws.SendMessage(context.Background(), "two", nil)
	f.clock.Advance(3 * time.Second)
	assert.NotNil(t, f.ws.State().Banner)
	f.clock.Advance(2 * time.Second)
	assert.Nil(t, f.ws.State().Banner)

	_, _ = f.ws.SendMessage(context.Background(), "three", nil)
	f.ws.DismissBanner()
	assert.Nil(t, f.ws.State().Banner)
}

func TestGenerateResumeEmptyCanvas(t *testing.T) {
	f := newFixture(t)

	_, err := f.ws.GenerateResume(context.Background())
	require.Error(t, err)
	assert.True(t, domain.IsValidation(err))
	assert.ErrorIs(t, err, domain.ErrEmptyCanvas)

	_, gen, _ := f.ai.counts()
	assert.Zero(t, gen)
	st := f.ws.State()
	require.NotNil(t, st.Banner)
	assert.Equal(t, domain.ErrEmptyCanvas.Error(), st.Banner.Message)
	assert.Equal(t, domain.ViewCanvas, st.View)
	assert.Contains(t, f.pub.types(), sse.EventBannerChanged)

	f.clock.Advance(DefaultBannerTimeout)
	assert.Nil(t, f.ws.State().Banner)
}

func TestGenerateResume(t *testing.T) {
	f := newFixture(t)
	_, _ = f.ws.AddText("5 years at Acme Corp", nil)
	_, _ = f.ws.AddImage("aGVsbG8=", "image/jpeg", nil)

	md, err := f.ws.GenerateResume(context.Background())
	require.NoError(t, err)
	assert.Equal(t, f.ai.genReply, md)

	_, gen, _ := f.ai.counts()
	require.Equal(t, 1, gen)
	assert.Len(t, f.ai.genCalls[0], 2)

	st := f.ws.State()
	assert.Equal(t, domain.ViewResume, st.View)
	assert.Equal(t, md, st.Document)

	require.Len(t, f.archive.docs, 1)
	doc := f.archive.docs[0]
	assert.Equal(t, 2, doc.ItemCount)
	assert.Equal(t, 1, doc.Images)
	assert.Equal(t, "gemini-2.5-pro", doc.Model)
	assert.Equal(t, f.clock.Now(), doc.CreatedAt)
}

func TestGenerateResumeFailure(t *testing.T) {
	f := newFixture(t)
	_, _ = f.ws.AddText("note", nil)
	f.ai.genErr = &domain.ServiceError{Op: "generate", Message: "the AI service took too long to answer"}

	_, err := f.ws.GenerateResume(context.Background())
	assert.True(t, domain.IsService(err))

	st := f.ws.State()
	require.NotNil(t, st.Banner)
	assert.Equal(t, "the AI service took too long to answer", st.Banner.Message)
	assert.Equal(t, domain.ViewCanvas, st.View)
	assert.Empty(t, f.archive.docs)
}

func TestArchiveFailureIsNotFatal(t *testing.T) {
	f := newFixture(t)
	f.archive.err = errors.New("db down")
	_, _ = f.ws.AddText("note", nil)

	_, err := f.ws.GenerateResume(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.ViewResume, f.ws.State().View)
}

func TestDocumentLifecycle(t *testing.T) {
	f := newFixture(t)

	assert.ErrorIs(t, f.ws.UpdateDocument("x"), domain.ErrNoDocument)
	assert.ErrorIs(t, f.ws.ShowDocument(), domain.ErrNoDocument)
	_, err := f.ws.ExportPDF(context.Background())
	assert.ErrorIs(t, err, domain.ErrNoDocument)

	_, _ = f.ws.AddText("note", nil)
	_, err = f.ws.GenerateResume(context.Background())
	require.NoError(t, err)

	require.NoError(t, f.ws.UpdateDocument("# Jane Q. Doe\n\nEdited"))
	f.ws.BackToCanvas()
	st := f.ws.State()
	assert.Equal(t, domain.ViewCanvas, st.View)
	assert.Equal(t, "# Jane Q. Doe\n\nEdited", st.Document)

	require.NoError(t, f.ws.ShowDocument())
	assert.Equal(t, domain.ViewResume, f.ws.State().View)

	pdf, err := f.ws.ExportPDF(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []byte("%PDF-1.4"), pdf)
	assert.Contains(t, f.pdf.html, "<title>Jane Q. Doe</title>")
}

func TestDeepModeEvent(t *testing.T) {
	f := newFixture(t)
	f.ws.SetDeepMode(true)
	f.ws.SetDeepMode(true)
	assert.True(t, f.ws.DeepMode())
	assert.True(t, f.ws.State().Coach.DeepMode)
	assert.Equal(t, []string{sse.EventCoachChanged}, f.pub.types())
}

func TestDocumentTitle(t *testing.T) {
	assert.Equal(t, "Jane Doe", documentTitle("\n# Jane Doe\n## Experience"))
	assert.Equal(t, "Resume", documentTitle("## Only sections"))
	assert.Equal(t, "Resume", documentTitle(""))
}

// The canonical flow: one note, a suggestion after the debounce window that
// disappears on its own.
func TestSuggestionScenario(t *testing.T) {
	f := newFixture(t)

	item, err := f.ws.AddText("5 years at Acme Corp", nil)
	require.NoError(t, err)

	f.clock.Advance(999 * time.Millisecond)
	_, _, n := f.ai.counts()
	assert.Zero(t, n)

	f.settle(t)
	require.Len(t, f.ai.suggestCalls, 1)
	assert.Equal(t, item.ID, f.ai.suggestCalls[0].ID)
	assert.Empty(t, f.ai.suggestPrior[0])

	st := f.ws.State().Coach
	require.NotNil(t, st.Suggestion)
	assert.Equal(t, "Great start!", st.Suggestion.Text)
	assert.Equal(t, domain.CoachSuggesting, st.State)

	f.clock.Advance(coach.DefaultDismiss)
	st = f.ws.State().Coach
	assert.Nil(t, st.Suggestion)
	assert.Equal(t, domain.CoachIdle, st.State)
}
