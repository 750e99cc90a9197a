package insight

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/uhhbyss/PA-AIPJC/internal/classifier"
	"github.com/uhhbyss/PA-AIPJC/internal/store"
)

var now = time.Date(2025, 3, 20, 12, 0, 0, 0, time.UTC)

const day = 24 * time.Hour

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	cfg := store.DefaultConfig()
	cfg.DataDir = t.TempDir()
	s, err := store.New(cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func addEntry(t *testing.T, s *store.Store, content string, ago time.Duration) {
	t.Helper()
	_, err := s.InsertEntry(context.Background(), content, now.Add(-ago))
	require.NoError(t, err)
}

// addFiller writes n neutral entries, a day apart, ending a day ago.
func addFiller(t *testing.T, s *store.Store, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		addEntry(t, s, "Made coffee and read for a while.", time.Duration(i+1)*day)
	}
}

func addLoop(t *testing.T, s *store.Store, topic string, seenAgo time.Duration) *store.ThoughtLoop {
	t.Helper()
	l, err := s.CreateLoop(context.Background(), topic, now.Add(-seenAgo))
	require.NoError(t, err)
	return l
}

// stubClassifier answers with fn, or with a fixed detection when fn is nil.
type stubClassifier struct {
	mu        sync.Mutex
	detection *classifier.Detection
	err       error
	fn        func(ctx context.Context, req classifier.Request) (*classifier.Detection, error)
	calls     int
	last      classifier.Request
}

func (c *stubClassifier) Classify(ctx context.Context, req classifier.Request) (*classifier.Detection, error) {
	c.mu.Lock()
	c.calls++
	c.last = req
	fn, d, err := c.fn, c.detection, c.err
	c.mu.Unlock()

	if fn != nil {
		return fn(ctx, req)
	}
	return d, err
}

func (c *stubClassifier) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

func detect(topic, guidance string) *stubClassifier {
	return &stubClassifier{detection: &classifier.Detection{Topic: topic, GuidanceText: guidance}}
}

// countingRegistry records every registry mutation on top of a real store.
type countingRegistry struct {
	*store.Store
	mu       sync.Mutex
	resolved []int64
	created  []string
	touched  []int64
}

func (r *countingRegistry) MarkLoopResolved(ctx context.Context, id int64) error {
	r.mu.Lock()
	r.resolved = append(r.resolved, id)
	r.mu.Unlock()
	return r.Store.MarkLoopResolved(ctx, id)
}

func (r *countingRegistry) CreateLoop(ctx context.Context, topic string, at time.Time) (*store.ThoughtLoop, error) {
	r.mu.Lock()
	r.created = append(r.created, topic)
	r.mu.Unlock()
	return r.Store.CreateLoop(ctx, topic, at)
}

func (r *countingRegistry) TouchLoop(ctx context.Context, id int64, at time.Time, status store.LoopStatus) error {
	r.mu.Lock()
	r.touched = append(r.touched, id)
	r.mu.Unlock()
	return r.Store.TouchLoop(ctx, id, at, status)
}

func (r *countingRegistry) mutations() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.resolved) + len(r.created) + len(r.touched)
}

func newOrchestrator(t *testing.T, s *store.Store, cls classifier.Classifier, mutate ...func(*Config)) (*Orchestrator, *countingRegistry) {
	t.Helper()
	reg := &countingRegistry{Store: s}
	cfg := DefaultConfig()
	cfg.Now = func() time.Time { return now }
	for _, m := range mutate {
		m(&cfg)
	}
	return New(reg, s, cls, cfg, zaptest.NewLogger(t)), reg
}

func loopByTopic(t *testing.T, s *store.Store, topic string) *store.ThoughtLoop {
	t.Helper()
	l, err := s.FindLoopByTopic(context.Background(), topic)
	require.NoError(t, err)
	return l
}
