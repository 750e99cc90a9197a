package mcp

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	mcppkg "github.com/mark3labs/mcp-go/mcp"
	"go.uber.org/zap/zaptest"

	"github.com/uhhbyss/PA-AIPJC/internal/classifier"
	"github.com/uhhbyss/PA-AIPJC/internal/insight"
	"github.com/uhhbyss/PA-AIPJC/internal/store"
)

var base = time.Date(2025, 3, 20, 12, 0, 0, 0, time.UTC)

func newMCPTestStore(t *testing.T) *store.Store {
	t.Helper()
	cfg := store.DefaultConfig()
	cfg.DataDir = t.TempDir()

	s, err := store.New(cfg, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	t.Cleanup(func() {
		_ = s.Close()
	})
	return s
}

func callResultText(t *testing.T, res *mcppkg.CallToolResult) string {
	t.Helper()
	if res == nil || len(res.Content) == 0 {
		t.Fatalf("expected non-empty tool result")
	}
	text, ok := mcppkg.AsTextContent(res.Content[0])
	if !ok {
		t.Fatalf("expected text content")
	}
	return text.Text
}

func call(t *testing.T, h func(context.Context, mcppkg.CallToolRequest) (*mcppkg.CallToolResult, error), args map[string]any) *mcppkg.CallToolResult {
	t.Helper()
	req := mcppkg.CallToolRequest{Params: mcppkg.CallToolParams{Arguments: args}}
	res, err := h(context.Background(), req)
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	return res
}

type stubAnalyzer struct {
	event *insight.Event
	err   error
	last  insight.Request
}

func (a *stubAnalyzer) Run(_ context.Context, req insight.Request) (*insight.Event, error) {
	a.last = req
	return a.event, a.err
}

// ─── Profiles ────────────────────────────────────────────────────────────────

func TestResolveTools(t *testing.T) {
	if got := ResolveTools(""); got != nil {
		t.Fatalf("empty input should mean all, got %v", got)
	}
	if got := ResolveTools("reader,all"); got != nil {
		t.Fatalf("all should win, got %v", got)
	}

	got := ResolveTools("reader, journal_write")
	for tool := range ProfileReader {
		if !got[tool] {
			t.Fatalf("expected %s from reader profile", tool)
		}
	}
	if !got["journal_write"] || got["insight_analyze"] {
		t.Fatalf("unexpected tool set: %v", got)
	}
}

func TestNewServerRegistersTools(t *testing.T) {
	s := newMCPTestStore(t)

	srv := NewServer(Deps{Store: s, Analyzer: &stubAnalyzer{}})
	tools := srv.ListTools()
	if len(tools) != len(ProfileReader)+len(ProfileWriter) {
		t.Fatalf("expected all tools, got %d", len(tools))
	}

	srv = NewServerWithTools(Deps{Store: s, Analyzer: &stubAnalyzer{}}, ResolveTools("reader"))
	tools = srv.ListTools()
	if _, ok := tools["journal_write"]; ok {
		t.Fatalf("reader profile must not expose journal_write")
	}
	if _, ok := tools["journal_search"]; !ok {
		t.Fatalf("reader profile should expose journal_search")
	}

	srv = NewServer(Deps{Store: s})
	if _, ok := srv.ListTools()["insight_analyze"]; ok {
		t.Fatalf("insight_analyze needs an analyzer")
	}
}

// ─── Journal Tools ───────────────────────────────────────────────────────────

func TestHandleWriteThenGet(t *testing.T) {
	s := newMCPTestStore(t)

	res := call(t, handleWrite(s, func() time.Time { return base }), map[string]any{
		"content": "Walked by the river after work.",
	})
	if res.IsError {
		t.Fatalf("unexpected tool error: %s", callResultText(t, res))
	}
	if text := callResultText(t, res); text != "Entry saved: #1" {
		t.Fatalf("unexpected result: %q", text)
	}

	res = call(t, handleGet(s), map[string]any{"id": float64(1)})
	text := callResultText(t, res)
	if res.IsError || !strings.Contains(text, "Walked by the river") {
		t.Fatalf("unexpected get result: %q", text)
	}
	if !strings.Contains(text, "2025-03-20T12:00:00Z") {
		t.Fatalf("expected timestamp in %q", text)
	}
	if strings.Contains(text, "Edited") {
		t.Fatalf("fresh entry should not show an edit time: %q", text)
	}
}

func TestHandleWriteRequiresContent(t *testing.T) {
	s := newMCPTestStore(t)

	res := call(t, handleWrite(s, time.Now), map[string]any{"content": "   "})
	if !res.IsError {
		t.Fatalf("expected error for blank content")
	}
	if n, _ := s.CountEntries(context.Background()); n != 0 {
		t.Fatalf("blank entry must not be stored, have %d", n)
	}
}

func TestHandleGetMissing(t *testing.T) {
	s := newMCPTestStore(t)

	if res := call(t, handleGet(s), map[string]any{}); !res.IsError {
		t.Fatalf("expected error without id")
	}
	res := call(t, handleGet(s), map[string]any{"id": float64(42)})
	if !res.IsError || !strings.Contains(callResultText(t, res), "#42 not found") {
		t.Fatalf("expected not found, got %q", callResultText(t, res))
	}
}

func TestHandleRecentNewestFirst(t *testing.T) {
	s := newMCPTestStore(t)
	ctx := context.Background()

	res := call(t, handleRecent(s), nil)
	if text := callResultText(t, res); text != "The journal is empty." {
		t.Fatalf("unexpected empty result: %q", text)
	}

	for i, c := range []string{"oldest", "middle", "newest"} {
		if _, err := s.InsertEntry(ctx, c, base.Add(time.Duration(i)*time.Hour)); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}

	text := callResultText(t, call(t, handleRecent(s), map[string]any{"limit": float64(2)}))
	if !strings.HasPrefix(text, "2 most recent entries") {
		t.Fatalf("unexpected header: %q", text)
	}
	if strings.Index(text, "newest") > strings.Index(text, "middle") || strings.Contains(text, "oldest") {
		t.Fatalf("expected newest then middle only: %q", text)
	}
}

func TestHandleSearch(t *testing.T) {
	s := newMCPTestStore(t)
	ctx := context.Background()

	if _, err := s.InsertEntry(ctx, "Tomatoes are finally ripening in the garden", base); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if _, err := s.InsertEntry(ctx, "Quarterly review meeting ran long", base.Add(time.Hour)); err != nil {
		t.Fatalf("insert: %v", err)
	}

	text := callResultText(t, call(t, handleSearch(s), map[string]any{"query": "garden"}))
	if !strings.Contains(text, "Found 1 entries") || !strings.Contains(text, "Tomatoes") {
		t.Fatalf("unexpected search result: %q", text)
	}

	text = callResultText(t, call(t, handleSearch(s), map[string]any{"query": "holiday"}))
	if !strings.Contains(text, "No entries found") {
		t.Fatalf("expected no results, got %q", text)
	}
}

func TestHandleLoopsFiltersByStatus(t *testing.T) {
	s := newMCPTestStore(t)
	ctx := context.Background()

	work, err := s.CreateLoop(ctx, "Work Stress", base)
	if err != nil {
		t.Fatalf("create loop: %v", err)
	}
	if _, err := s.CreateLoop(ctx, "gardening", base.Add(time.Hour)); err != nil {
		t.Fatalf("create loop: %v", err)
	}
	if err := s.MarkLoopResolved(ctx, work.ID); err != nil {
		t.Fatalf("resolve: %v", err)
	}

	text := callResultText(t, call(t, handleLoops(s), nil))
	if !strings.Contains(text, "2 thought loops") || !strings.Contains(text, "work stress [resolved]") {
		t.Fatalf("unexpected loops result: %q", text)
	}

	text = callResultText(t, call(t, handleLoops(s), map[string]any{"status": "active"}))
	if strings.Contains(text, "work stress") || !strings.Contains(text, "gardening [active]") {
		t.Fatalf("expected only active loops: %q", text)
	}

	if res := call(t, handleLoops(s), map[string]any{"status": "paused"}); !res.IsError {
		t.Fatalf("expected error for unknown status")
	}
}

func TestHandleStats(t *testing.T) {
	s := newMCPTestStore(t)
	ctx := context.Background()

	text := callResultText(t, call(t, handleStats(s), nil))
	if !strings.Contains(text, "Entries: 0") || !strings.Contains(text, "no entries yet") {
		t.Fatalf("unexpected empty stats: %q", text)
	}

	if _, err := s.InsertEntry(ctx, "first", base); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if _, err := s.CreateLoop(ctx, "sleep", base); err != nil {
		t.Fatalf("create loop: %v", err)
	}
	text = callResultText(t, call(t, handleStats(s), nil))
	if !strings.Contains(text, "Entries: 1") || !strings.Contains(text, "Active loops: 1") {
		t.Fatalf("unexpected stats: %q", text)
	}
}

// ─── Analysis ────────────────────────────────────────────────────────────────

func TestHandleAnalyzeAppliesDefaultsAndOverrides(t *testing.T) {
	a := &stubAnalyzer{event: &insight.Event{
		Kind:    insight.EventSuggestion,
		Message: "Try naming one small next step.",
		Topic:   "work stress",
	}}
	defaults := classifier.Options{Mode: classifier.ModeReframing, UseRemote: true}

	res := call(t, handleAnalyze(a, defaults), map[string]any{"draft": "deadline again"})
	text := callResultText(t, res)
	if res.IsError || !strings.HasPrefix(text, "[suggestion] Try naming") || !strings.Contains(text, "Topic: work stress") {
		t.Fatalf("unexpected analyze result: %q", text)
	}
	if a.last.Draft != "deadline again" || a.last.Options != defaults {
		t.Fatalf("defaults not applied: %+v", a.last)
	}

	call(t, handleAnalyze(a, defaults), map[string]any{"mode": "action_oriented", "use_remote": false})
	want := classifier.Options{Mode: classifier.ModeActionOriented, UseRemote: false}
	if a.last.Options != want {
		t.Fatalf("overrides not applied: got %+v, want %+v", a.last.Options, want)
	}
}

func TestHandleAnalyzeRejectsUnknownMode(t *testing.T) {
	a := &stubAnalyzer{event: &insight.Event{Kind: insight.EventInfo}}

	res := call(t, handleAnalyze(a, classifier.Options{}), map[string]any{"mode": "poetry"})
	if !res.IsError {
		t.Fatalf("expected error for unknown mode")
	}
}

func TestHandleAnalyzeFailures(t *testing.T) {
	tests := []struct {
		name  string
		a     *stubAnalyzer
		wants string
	}{
		{
			name:  "in flight",
			a:     &stubAnalyzer{err: insight.ErrCycleInFlight},
			wants: "already running",
		},
		{
			name:  "abandoned",
			a:     &stubAnalyzer{err: context.Canceled},
			wants: "abandoned",
		},
		{
			name: "error event",
			a: &stubAnalyzer{event: &insight.Event{
				Kind:    insight.EventError,
				Message: "The classification service is unavailable.",
				Err:     errors.New("boom"),
			}},
			wants: "[error]",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := call(t, handleAnalyze(tt.a, classifier.Options{}), nil)
			if !res.IsError {
				t.Fatalf("expected tool error")
			}
			if text := callResultText(t, res); !strings.Contains(text, tt.wants) {
				t.Fatalf("expected %q in %q", tt.wants, text)
			}
		})
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Fatalf("unexpected: %q", got)
	}
	if got := truncate("0123456789abc", 10); got != "0123456789..." {
		t.Fatalf("unexpected: %q", got)
	}
}
