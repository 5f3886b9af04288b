// Command scenario drives a workspace through the canvas-to-suggestion flow
// against an in-process mock of the Gemini API and reports each step.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"time"

	"resume-canvas/internal/coach"
	"resume-canvas/internal/domain"
	"resume-canvas/internal/sse"
	"resume-canvas/internal/usecase"
	"resume-canvas/pkg/ai"

	"github.com/urfave/cli/v3"
)

const (
	suggestModel  = "mock-suggest"
	chatModel     = "mock-chat"
	generateModel = "mock-generate"

	noteText       = "5 years at Acme Corp"
	suggestionText = "Great start!"
)

// mockGemini answers generateContent by model name and remembers the prompts
// it was sent.
type mockGemini struct {
	mu      sync.Mutex
	prompts map[string][]string
}

func (m *mockGemini) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// /models/{model}:generateContent
	model := strings.TrimSuffix(r.URL.Path[strings.LastIndex(r.URL.Path, "/")+1:], ":generateContent")

	var req struct {
		Contents []struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"contents"`
	}
	body, _ := io.ReadAll(r.Body)
	if err := json.Unmarshal(body, &req); err != nil {
		http.Error(w, `{"error":{"message":"bad request"}}`, http.StatusBadRequest)
		return
	}
	var prompt strings.Builder
	for _, c := range req.Contents {
		for _, p := range c.Parts {
			prompt.WriteString(p.Text)
		}
	}
	m.mu.Lock()
	if m.prompts == nil {
		m.prompts = map[string][]string{}
	}
	m.prompts[model] = append(m.prompts[model], prompt.String())
	m.mu.Unlock()

	reply := "Tell me more about what you did there."
	switch model {
	case suggestModel:
		reply = suggestionText
	case generateModel:
		reply = "```markdown\n# Your Name\n\n## Experience\n\n- " + noteText + "\n```"
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"candidates": []any{map[string]any{
			"content": map[string]any{"role": "model", "parts": []any{map[string]any{"text": reply}}},
		}},
	})
}

func (m *mockGemini) Prompts(model string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.prompts[model]...)
}

type eventLog struct {
	logger *slog.Logger
}

func (e eventLog) Publish(ev sse.Event) {
	e.logger.Debug("event", "type", ev.Type)
}

func run(ctx context.Context, cmd *cli.Command) error {
	level := slog.LevelInfo
	if cmd.Bool("verbose") {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	debounce := cmd.Duration("debounce")
	dismiss := cmd.Duration("dismiss")

	mock := &mockGemini{}
	server := httptest.NewServer(mock)
	defer server.Close()

	client := ai.NewClient(ai.Config{
		BaseURL:       server.URL,
		APIKey:        "scenario",
		ChatModel:     chatModel,
		DeepModel:     chatModel,
		GenerateModel: generateModel,
		SuggestModel:  suggestModel,
		SuggestRate:   10,
		SuggestBurst:  10,
	}, logger)

	ws := usecase.NewWorkspace(client, usecase.Options{
		Logger:        logger,
		Publisher:     eventLog{logger: logger},
		Coach:         coach.Config{Debounce: debounce, Dismiss: dismiss},
		GenerateModel: generateModel,
	})
	defer ws.Close()

	step := func(name string) { logger.Info("step", "name", name) }

	step("empty canvas")
	if n := len(ws.State().Items); n != 0 {
		return fmt.Errorf("expected an empty canvas, found %d items", n)
	}
	if _, err := ws.GenerateResume(ctx); !domain.IsValidation(err) {
		return fmt.Errorf("generating from an empty canvas should be rejected, got %v", err)
	}

	step("add text item")
	added := time.Now()
	if _, err := ws.AddText(noteText, nil); err != nil {
		return fmt.Errorf("add text: %w", err)
	}

	step("wait for suggestion")
	st, err := waitFor(ctx, ws, debounce+10*time.Second, func(s coach.Status) bool {
		return s.State == domain.CoachSuggesting
	})
	if err != nil {
		return fmt.Errorf("suggestion never appeared: %w", err)
	}
	if elapsed := time.Since(added); elapsed < debounce {
		return fmt.Errorf("suggestion requested after %s, before the %s debounce", elapsed, debounce)
	}
	if st.Suggestion == nil || st.Suggestion.Text != suggestionText {
		return fmt.Errorf("unexpected suggestion %+v", st.Suggestion)
	}
	prompts := mock.Prompts(suggestModel)
	if len(prompts) != 1 {
		return fmt.Errorf("expected one suggestion request, got %d", len(prompts))
	}
	if !strings.Contains(prompts[0], noteText) {
		return errors.New("suggestion prompt does not carry the new item")
	}
	logger.Info("suggestion shown", "text", st.Suggestion.Text, "after", time.Since(added).Round(time.Millisecond))

	step("wait for dismissal")
	shown := time.Now()
	if _, err := waitFor(ctx, ws, dismiss+5*time.Second, func(s coach.Status) bool {
		return s.State == domain.CoachIdle && s.Suggestion == nil
	}); err != nil {
		return fmt.Errorf("suggestion was not dismissed: %w", err)
	}
	logger.Info("coach idle", "after", time.Since(shown).Round(time.Millisecond))

	if cmd.Bool("full") {
		step("chat")
		reply, err := ws.SendMessage(ctx, "I led the payments team", nil)
		if err != nil {
			return fmt.Errorf("chat: %w", err)
		}
		logger.Info("coach replied", "text", reply.Text())

		step("generate resume")
		doc, err := ws.GenerateResume(ctx)
		if err != nil {
			return fmt.Errorf("generate: %w", err)
		}
		if !strings.Contains(doc, noteText) || strings.Contains(doc, "```") {
			return fmt.Errorf("unexpected document %q", doc)
		}
		if ws.State().View != domain.ViewResume {
			return errors.New("workspace did not switch to the resume view")
		}
		fmt.Println(doc)
	}

	logger.Info("scenario passed")
	return nil
}

func waitFor(ctx context.Context, ws *usecase.Workspace, timeout time.Duration, ok func(coach.Status) bool) (coach.Status, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	tick := time.NewTicker(20 * time.Millisecond)
	defer tick.Stop()
	for {
		st := ws.State().Coach.Status
		if ok(st) {
			return st, nil
		}
		select {
		case <-ctx.Done():
			return st, ctx.Err()
		case <-tick.C:
		}
	}
}

func main() {
	cmd := &cli.Command{
		Name:   "scenario",
		Usage:  "Run the add-note, suggest, dismiss flow against a mock Gemini",
		Action: run,
		Flags: []cli.Flag{
			&cli.DurationFlag{Name: "debounce", Value: coach.DefaultDebounce, Usage: "suggestion debounce"},
			&cli.DurationFlag{Name: "dismiss", Value: coach.DefaultDismiss, Usage: "suggestion auto-dismiss"},
			&cli.BoolFlag{Name: "full", Usage: "also chat and generate a resume"},
			&cli.BoolFlag{Name: "verbose", Aliases: []string{"v"}, Usage: "log workspace events"},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("scenario failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
