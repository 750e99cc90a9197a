package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/uhhbyss/PA-AIPJC/internal/classifier"
	"github.com/uhhbyss/PA-AIPJC/internal/insight"
	"github.com/uhhbyss/PA-AIPJC/internal/store"
)

// stubClassifier always reports the same detection.
type stubClassifier struct {
	detection *classifier.Detection
	last      classifier.Request
}

func (c *stubClassifier) Classify(_ context.Context, req classifier.Request) (*classifier.Detection, error) {
	c.last = req
	return c.detection, nil
}

func newE2EServer(t *testing.T, cls classifier.Classifier, mutate ...func(*store.Config)) (*store.Store, *httptest.Server) {
	t.Helper()
	cfg := store.DefaultConfig()
	cfg.DataDir = t.TempDir()
	for _, m := range mutate {
		m(&cfg)
	}

	logger := zaptest.NewLogger(t)
	s, err := store.New(cfg, logger)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}

	var analyzer Analyzer
	if cls != nil {
		analyzer = insight.New(s, s, cls, insight.DefaultConfig(), logger)
	}

	httpServer := httptest.NewServer(New(s, analyzer, classifier.Options{Mode: classifier.ModeReframing}, logger).Handler())
	t.Cleanup(func() {
		httpServer.Close()
		_ = s.Close()
	})

	return s, httpServer
}

func postJSON(t *testing.T, client *http.Client, url string, body any) *http.Response {
	t.Helper()
	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	resp, err := client.Post(url, "application/json", bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("post %s: %v", url, err)
	}
	return resp
}

func doRequest(t *testing.T, client *http.Client, method, url string, body any) *http.Response {
	t.Helper()
	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			t.Fatalf("marshal body: %v", err)
		}
	}
	req, err := http.NewRequest(method, url, bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	return resp
}

func decodeJSON[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var out T
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode json: %v", err)
	}
	return out
}

func TestEntryLifecycleE2E(t *testing.T) {
	_, ts := newE2EServer(t, nil)
	client := ts.Client()

	createResp := postJSON(t, client, ts.URL+"/entries", map[string]any{
		"content": "Couldn't sleep again, kept thinking about the deadline",
	})
	if createResp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201 creating entry, got %d", createResp.StatusCode)
	}
	created := decodeJSON[map[string]any](t, createResp)
	id := int64(created["id"].(float64))
	entryURL := ts.URL + "/entries/" + strconv.FormatInt(id, 10)

	getResp, err := client.Get(entryURL)
	if err != nil {
		t.Fatalf("get entry: %v", err)
	}
	if getResp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 getting entry, got %d", getResp.StatusCode)
	}
	got := decodeJSON[store.Entry](t, getResp)
	if !strings.Contains(got.Content, "deadline") {
		t.Fatalf("unexpected content %q", got.Content)
	}

	patchResp := doRequest(t, client, http.MethodPatch, entryURL, map[string]any{
		"content": "Slept fine after all",
	})
	if patchResp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 patching entry, got %d", patchResp.StatusCode)
	}
	patched := decodeJSON[store.Entry](t, patchResp)
	if patched.Content != "Slept fine after all" {
		t.Fatalf("expected edited content, got %q", patched.Content)
	}
	if !patched.Timestamp.Equal(got.Timestamp) {
		t.Fatalf("edit moved the creation timestamp: %s -> %s", got.Timestamp, patched.Timestamp)
	}

	deleteResp := doRequest(t, client, http.MethodDelete, entryURL, nil)
	if deleteResp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 deleting entry, got %d", deleteResp.StatusCode)
	}
	deleteResp.Body.Close()

	goneResp, err := client.Get(entryURL)
	if err != nil {
		t.Fatalf("get deleted entry: %v", err)
	}
	if goneResp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", goneResp.StatusCode)
	}
	goneResp.Body.Close()
}

func TestEntryValidationE2E(t *testing.T) {
	_, ts := newE2EServer(t, nil)
	client := ts.Client()

	blank := postJSON(t, client, ts.URL+"/entries", map[string]any{"content": "   "})
	if blank.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for blank content, got %d", blank.StatusCode)
	}
	blank.Body.Close()

	badID, err := client.Get(ts.URL + "/entries/abc")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if badID.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for non-numeric id, got %d", badID.StatusCode)
	}
	badID.Body.Close()

	badSince, err := client.Get(ts.URL + "/entries?since=yesterday")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if badSince.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad since, got %d", badSince.StatusCode)
	}
	badSince.Body.Close()
}

func TestEntryTooLongE2E(t *testing.T) {
	s, ts := newE2EServer(t, nil, func(c *store.Config) { c.MaxEntryLength = 10 })
	client := ts.Client()

	ok := postJSON(t, client, ts.URL+"/entries", map[string]any{"content": strings.Repeat("é", 10)})
	if ok.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201 at the limit, got %d", ok.StatusCode)
	}
	ok.Body.Close()

	long := postJSON(t, client, ts.URL+"/entries", map[string]any{"content": strings.Repeat("é", 11)})
	if long.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for over-long content, got %d", long.StatusCode)
	}
	long.Body.Close()

	if n, _ := s.CountEntries(context.Background()); n != 1 {
		t.Fatalf("expected 1 stored entry, got %d", n)
	}
}

func TestListEntriesAndSearchE2E(t *testing.T) {
	s, ts := newE2EServer(t, nil)
	client := ts.Client()
	ctx := context.Background()

	base := time.Date(2025, 5, 1, 8, 0, 0, 0, time.UTC)
	for i, content := range []string{"garden sprouts", "project deadline", "garden watering"} {
		if _, err := s.InsertEntry(ctx, content, base.Add(time.Duration(i)*24*time.Hour)); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}

	resp, err := client.Get(ts.URL + "/entries?since=" + base.Add(24*time.Hour).Format(time.RFC3339))
	if err != nil {
		t.Fatalf("list since: %v", err)
	}
	since := decodeJSON[[]store.Entry](t, resp)
	if len(since) != 2 || since[0].Content != "project deadline" {
		t.Fatalf("unexpected entries since: %+v", since)
	}

	resp, err = client.Get(ts.URL + "/entries?limit=1")
	if err != nil {
		t.Fatalf("list recent: %v", err)
	}
	recent := decodeJSON[[]store.Entry](t, resp)
	if len(recent) != 1 || recent[0].Content != "garden watering" {
		t.Fatalf("unexpected recent entries: %+v", recent)
	}

	resp, err = client.Get(ts.URL + "/search?q=garden")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	results := decodeJSON[[]store.SearchResult](t, resp)
	if len(results) != 2 {
		t.Fatalf("expected 2 search hits, got %d", len(results))
	}

	resp, err = client.Get(ts.URL + "/search")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 without q, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestAnalyzeE2E(t *testing.T) {
	cls := &stubClassifier{detection: &classifier.Detection{Topic: "Sleep", GuidanceText: "Try a wind-down routine."}}
	_, ts := newE2EServer(t, cls)
	client := ts.Client()

	// Two saved entries plus a draft clear the minimum-data gate.
	for _, content := range []string{"tired all day", "slept four hours"} {
		resp := postJSON(t, client, ts.URL+"/entries", map[string]any{"content": content})
		resp.Body.Close()
	}

	resp := postJSON(t, client, ts.URL+"/analyze", map[string]any{
		"draft":      "can't sleep again",
		"use_remote": true,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 from analyze, got %d", resp.StatusCode)
	}
	ev := decodeJSON[insight.Event](t, resp)
	if ev.Kind != insight.EventSuggestion || ev.Topic != "sleep" {
		t.Fatalf("unexpected event: %+v", ev)
	}
	if ev.CycleID == "" {
		t.Fatalf("expected a cycle id")
	}
	if cls.last.Options.Mode != classifier.ModeReframing || !cls.last.Options.UseRemote {
		t.Fatalf("expected server defaults merged with request, got %+v", cls.last.Options)
	}
	if cls.last.Entries[0].Content != "can't sleep again" {
		t.Fatalf("expected draft first, got %q", cls.last.Entries[0].Content)
	}

	loopsResp, err := client.Get(ts.URL + "/loops?status=active")
	if err != nil {
		t.Fatalf("list loops: %v", err)
	}
	loops := decodeJSON[[]store.ThoughtLoop](t, loopsResp)
	if len(loops) != 1 || loops[0].Topic != "sleep" {
		t.Fatalf("expected one active sleep loop, got %+v", loops)
	}

	bad := postJSON(t, client, ts.URL+"/analyze", map[string]any{"mode": "stoic"})
	if bad.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown mode, got %d", bad.StatusCode)
	}
	bad.Body.Close()
}

func TestAnalyzeInsufficientDataE2E(t *testing.T) {
	_, ts := newE2EServer(t, &stubClassifier{})
	client := ts.Client()

	resp, err := client.Post(ts.URL+"/analyze", "application/json", nil)
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 with an error event, got %d", resp.StatusCode)
	}
	ev := decodeJSON[insight.Event](t, resp)
	if ev.Kind != insight.EventError || !strings.Contains(ev.Message, "at least 3 entries") {
		t.Fatalf("unexpected event: %+v", ev)
	}
}

func TestAnalyzeWithoutClassifierE2E(t *testing.T) {
	_, ts := newE2EServer(t, nil)
	resp, err := ts.Client().Post(ts.URL+"/analyze", "application/json", nil)
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestSeedResetExportImportE2E(t *testing.T) {
	s, ts := newE2EServer(t, nil)
	client := ts.Client()
	ctx := context.Background()

	seedResp := postJSON(t, client, ts.URL+"/seed", nil)
	if seedResp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 seeding, got %d", seedResp.StatusCode)
	}
	seeded := decodeJSON[map[string]any](t, seedResp)
	if int(seeded["entries"].(float64)) != 21 {
		t.Fatalf("expected 21 seeded entries, got %v", seeded["entries"])
	}
	if _, err := s.CreateLoop(ctx, "project", time.Now()); err != nil {
		t.Fatalf("create loop: %v", err)
	}

	exportResp, err := client.Get(ts.URL + "/export")
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	dump := decodeJSON[store.ExportData](t, exportResp)
	if len(dump.Entries) != 21 || len(dump.Loops) != 1 {
		t.Fatalf("unexpected export sizes: %d entries, %d loops", len(dump.Entries), len(dump.Loops))
	}

	resetResp := postJSON(t, client, ts.URL+"/reset", nil)
	if resetResp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 resetting, got %d", resetResp.StatusCode)
	}
	resetResp.Body.Close()

	statsResp, err := client.Get(ts.URL + "/stats")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	stats := decodeJSON[store.Stats](t, statsResp)
	if stats.TotalEntries != 0 || stats.ActiveLoops != 0 {
		t.Fatalf("expected empty journal after reset, got %+v", stats)
	}

	importResp := postJSON(t, client, ts.URL+"/import", dump)
	if importResp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 importing, got %d", importResp.StatusCode)
	}
	result := decodeJSON[store.ImportResult](t, importResp)
	if result.EntriesImported != 21 || result.LoopsImported != 1 {
		t.Fatalf("unexpected import result: %+v", result)
	}
}

func TestListLoopsRejectsUnknownStatusE2E(t *testing.T) {
	_, ts := newE2EServer(t, nil)
	resp, err := ts.Client().Get(ts.URL + "/loops?status=paused")
	if err != nil {
		t.Fatalf("list loops: %v", err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}
