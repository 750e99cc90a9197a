package insight

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/uhhbyss/PA-AIPJC/internal/classifier"
	"github.com/uhhbyss/PA-AIPJC/internal/store"
)

// Config tunes the orchestrator. Zero values fall back to DefaultConfig.
type Config struct {
	StalenessWindow   time.Duration
	RecentWindow      int
	MinEntries        int
	ClassifierTimeout time.Duration
	ResurfacePolicy   ResurfacePolicy
	// Now is the clock. Tests pin it; nil means time.Now.
	Now func() time.Time
}

func DefaultConfig() Config {
	return Config{
		StalenessWindow:   7 * 24 * time.Hour,
		RecentWindow:      10,
		MinEntries:        3,
		ClassifierTimeout: 30 * time.Second,
		ResurfacePolicy:   KeepResolved,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.StalenessWindow <= 0 {
		c.StalenessWindow = d.StalenessWindow
	}
	if c.RecentWindow <= 0 {
		c.RecentWindow = d.RecentWindow
	}
	if c.MinEntries <= 0 {
		c.MinEntries = d.MinEntries
	}
	if c.ClassifierTimeout <= 0 {
		c.ClassifierTimeout = d.ClassifierTimeout
	}
	if c.ResurfacePolicy == "" {
		c.ResurfacePolicy = d.ResurfacePolicy
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	return c
}

// Request is the caller's input to one cycle.
type Request struct {
	// Draft is unsaved text from the editor. When not blank it joins the
	// analysis window as the newest item.
	Draft   string
	Options classifier.Options
}

// Orchestrator drives analysis cycles. It is the only writer of loop
// creation and re-detection; resolution belongs to its Scanner.
//
// Cycles never overlap: Run refuses to start while another cycle is running.
type Orchestrator struct {
	registry   Registry
	entries    Entries
	classifier classifier.Classifier
	scanner    *Scanner
	cfg        Config
	inFlight   *semaphore.Weighted
	logger     *zap.Logger
}

func New(registry Registry, entries Entries, cls classifier.Classifier, cfg Config, logger *zap.Logger) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg = cfg.withDefaults()
	logger = logger.Named("insight")
	return &Orchestrator{
		registry:   registry,
		entries:    entries,
		classifier: cls,
		scanner:    NewScanner(registry, entries, cfg.StalenessWindow, logger),
		cfg:        cfg,
		inFlight:   semaphore.NewWeighted(1),
		logger:     logger,
	}
}

// Config returns the effective configuration.
func (o *Orchestrator) Config() Config {
	return o.cfg
}

// Run executes one analysis cycle and returns its event.
//
// Run returns an error, and no event, in two cases only: ErrCycleInFlight
// when another cycle is running, and ctx's error when the caller abandons
// the cycle. An abandoned cycle applies no registry mutation after the
// point it noticed cancellation. Every other outcome, failures included,
// is an Event.
func (o *Orchestrator) Run(ctx context.Context, req Request) (*Event, error) {
	if !o.inFlight.TryAcquire(1) {
		return nil, ErrCycleInFlight
	}
	defer o.inFlight.Release(1)

	c := &cycle{
		o:      o,
		id:     uuid.NewString(),
		now:    o.cfg.Now(),
		req:    req,
		logger: o.logger,
	}
	c.logger = o.logger.With(zap.String("cycle_id", c.id))
	c.logger.Debug("cycle started",
		zap.Bool("has_draft", strings.TrimSpace(req.Draft) != ""),
		zap.String("mode", string(req.Options.Mode)),
		zap.Bool("use_remote", req.Options.UseRemote))

	ev, err := c.run(ctx)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			c.logger.Info("cycle abandoned", zap.Error(ctxErr))
			return nil, ctxErr
		}
		ev = c.failure(err)
	}

	c.logger.Info("cycle finished", zap.String("kind", string(ev.Kind)), zap.String("topic", ev.Topic))
	return ev, nil
}

// ─── Cycle ───────────────────────────────────────────────────────────────────

type cycle struct {
	o      *Orchestrator
	id     string
	now    time.Time
	req    Request
	logger *zap.Logger
}

func (c *cycle) event(kind EventKind, msg string) *Event {
	return &Event{CycleID: c.id, Kind: kind, Message: msg, At: c.now}
}

// failure turns an error from the cycle into the terminal error event.
func (c *cycle) failure(err error) *Event {
	ev := c.event(EventError, msgInternal)
	ev.Err = err
	switch {
	case errors.Is(err, ErrInsufficientData):
		ev.Message = insufficientMessage(c.o.cfg.MinEntries)
	case errors.Is(err, ErrClassificationUnavailable):
		ev.Message = msgUnavailable
		c.logger.Warn("classification unavailable", zap.Error(err))
	default:
		c.logger.Error("cycle failed", zap.Error(err))
	}
	return ev
}

func (c *cycle) run(ctx context.Context) (*Event, error) {
	resolved, err := c.o.scanner.Scan(ctx, c.now)
	if err != nil {
		return nil, err
	}
	if resolved != nil {
		ev := c.event(EventCelebration, celebrationMessage(resolved.Topic))
		ev.Topic = resolved.Topic
		return ev, nil
	}

	samples, err := c.window(ctx)
	if err != nil {
		return nil, err
	}

	detection, err := c.classify(ctx, samples)
	if err != nil {
		return nil, err
	}
	if detection == nil {
		return c.event(EventInfo, msgNoPattern), nil
	}

	return c.reconcile(ctx, detection)
}

// window collects the newest entries, draft first, and applies the
// minimum-data gate.
func (c *cycle) window(ctx context.Context) ([]classifier.Sample, error) {
	recent, err := c.o.entries.RecentEntries(ctx, c.o.cfg.RecentWindow)
	if err != nil {
		return nil, fmt.Errorf("load recent entries: %w", err)
	}

	samples := make([]classifier.Sample, 0, len(recent)+1)
	if strings.TrimSpace(c.req.Draft) != "" {
		samples = append(samples, classifier.Sample{Content: c.req.Draft, Timestamp: c.now})
	}
	for _, e := range recent {
		samples = append(samples, classifier.Sample{Content: e.Content, Timestamp: e.Timestamp})
	}

	if len(samples) < c.o.cfg.MinEntries {
		return nil, fmt.Errorf("%w: have %d, need %d", ErrInsufficientData, len(samples), c.o.cfg.MinEntries)
	}
	return samples, nil
}

func (c *cycle) classify(ctx context.Context, samples []classifier.Sample) (*classifier.Detection, error) {
	cctx, cancel := context.WithTimeout(ctx, c.o.cfg.ClassifierTimeout)
	defer cancel()

	mode := c.req.Options.Mode
	if mode == "" {
		mode = classifier.ModeAuto
	}
	d, err := c.o.classifier.Classify(cctx, classifier.Request{
		Entries: samples,
		Options: classifier.Options{UseRemote: c.req.Options.UseRemote, Mode: mode},
	})
	if err != nil {
		if errors.Is(err, ErrClassificationUnavailable) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrClassificationUnavailable, err)
	}
	if d == nil || store.NormalizeTopic(d.Topic) == "" {
		return nil, nil
	}
	return d, nil
}

// reconcile applies a detection to the registry. Nothing is written until
// the classifier has answered, and nothing is written once ctx is done.
func (c *cycle) reconcile(ctx context.Context, d *classifier.Detection) (*Event, error) {
	topic := store.NormalizeTopic(d.Topic)

	existing, err := c.o.registry.FindLoopByTopic(ctx, topic)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("find loop %q: %w", topic, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	suggestion := func() *Event {
		msg := d.GuidanceText
		if msg == "" {
			msg = fmt.Sprintf("You've been writing about %q a lot lately.", topic)
		}
		ev := c.event(EventSuggestion, msg)
		ev.Topic = topic
		ev.GuidanceText = d.GuidanceText
		return ev
	}

	if existing == nil {
		_, err := c.o.registry.CreateLoop(ctx, topic, c.now)
		switch {
		case err == nil:
			c.logger.Info("loop detected", zap.String("topic", topic))
			return suggestion(), nil
		case !errors.Is(err, store.ErrDuplicateTopic):
			return nil, fmt.Errorf("create loop %q: %w", topic, err)
		}
		// Registered by someone else since the lookup: reconcile against it.
		if existing, err = c.o.registry.FindLoopByTopic(ctx, topic); err != nil {
			return nil, fmt.Errorf("find loop %q: %w", topic, err)
		}
		c.logger.Debug("loop registered concurrently", zap.Int64("loop_id", existing.ID))
		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}

	switch {
	case existing.Status == store.LoopResolved:
		if c.o.cfg.ResurfacePolicy == Reactivate {
			if err := c.o.registry.TouchLoop(ctx, existing.ID, c.now, store.LoopActive); err != nil {
				return nil, fmt.Errorf("reactivate loop %q: %w", topic, err)
			}
			c.logger.Info("loop reactivated", zap.Int64("loop_id", existing.ID), zap.String("topic", topic))
		}
		ev := c.event(EventInfo, resurfacingMessage(topic))
		ev.Topic = topic
		return ev, nil

	default:
		if err := c.o.registry.TouchLoop(ctx, existing.ID, c.now, store.LoopActive); err != nil {
			return nil, fmt.Errorf("touch loop %q: %w", topic, err)
		}
		c.logger.Debug("loop seen again", zap.Int64("loop_id", existing.ID))
		return suggestion(), nil
	}
}
