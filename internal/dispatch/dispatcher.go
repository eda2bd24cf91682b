// Package dispatch runs the order-intake pipeline for one transcript: it
// guards against duplicate submissions, extracts and resolves commands,
// applies them to the session cart, and reports every outcome through the
// notification channel and metrics.
//
// One failing command never aborts a batch. Every command in the transcript
// resolves to its own reported outcome; nothing propagates past the
// dispatch boundary as a panic or batch error.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/kiranaops/bolbill/internal/cart"
	"github.com/kiranaops/bolbill/internal/catalog"
	"github.com/kiranaops/bolbill/internal/command"
	"github.com/kiranaops/bolbill/internal/draft"
	"github.com/kiranaops/bolbill/internal/extract"
	"github.com/kiranaops/bolbill/internal/notify"
	"github.com/kiranaops/bolbill/internal/observe"
	"github.com/kiranaops/bolbill/internal/transcript"
)

// defaultDedupWindow is how long an identical normalized transcript is
// ignored after processing. Protects against duplicate end-of-speech events
// from the acquisition layer.
const defaultDedupWindow = 3 * time.Second

// notifyDuration is the default display duration for command feedback.
const notifyDuration = 4 * time.Second

// Command outcomes recorded per processed command.
const (
	OutcomeAdded        = "added"
	OutcomeMerged       = "merged"
	OutcomeUnmatched    = "unmatched"
	OutcomeRejected     = "rejected"
	OutcomeInvalid      = "invalid"
	OutcomeIncompatible = "incompatible"
	OutcomeSkipped      = "skipped"
	OutcomeError        = "error"
)

// Option is a functional option for configuring a [Dispatcher].
type Option func(*Dispatcher)

// WithDedupWindow overrides the duplicate-transcript window. Default: 3s.
func WithDedupWindow(window time.Duration) Option {
	return func(d *Dispatcher) {
		d.dedupWindow = window
	}
}

// WithClock overrides the time source. Intended for tests.
func WithClock(now func() time.Time) Option {
	return func(d *Dispatcher) {
		d.now = now
	}
}

// Dispatcher wires the pipeline stages together. Safe for concurrent use
// across sessions; passes over one session are serialized by its lock.
type Dispatcher struct {
	catalog  catalog.Lister
	engine   *cart.Engine
	drafts   draft.Store
	notifier notify.Notifier
	metrics  *observe.Metrics

	now func() time.Time

	// mu guards the hot-reloadable stages below; see [Dispatcher.Retune].
	mu          sync.RWMutex
	extractor   *extract.Extractor
	interpreter *command.Interpreter
	dedupWindow time.Duration
}

// NewDispatcher returns a ready [Dispatcher].
func NewDispatcher(
	lister catalog.Lister,
	extractor *extract.Extractor,
	interpreter *command.Interpreter,
	engine *cart.Engine,
	drafts draft.Store,
	notifier notify.Notifier,
	metrics *observe.Metrics,
	opts ...Option,
) *Dispatcher {
	d := &Dispatcher{
		catalog:     lister,
		extractor:   extractor,
		interpreter: interpreter,
		engine:      engine,
		drafts:      drafts,
		notifier:    notifier,
		metrics:     metrics,
		dedupWindow: defaultDedupWindow,
		now:         time.Now,
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

// Retune swaps the hot-reloadable pipeline stages, for config reloads that
// change the vocabulary or tuning values. In-flight passes finish with the
// stages they started with; a non-positive window keeps the current one.
func (d *Dispatcher) Retune(extractor *extract.Extractor, interpreter *command.Interpreter, dedupWindow time.Duration) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.extractor = extractor
	d.interpreter = interpreter
	if dedupWindow > 0 {
		d.dedupWindow = dedupWindow
	}
}

// RestoreDraft loads the session's saved cart snapshot, if any. Called once
// when a session starts.
func (d *Dispatcher) RestoreDraft(ctx context.Context, s *Session) error {
	snap, found, err := d.drafts.Load(ctx, s.ID)
	if err != nil {
		return fmt.Errorf("restore draft for session %q: %w", s.ID, err)
	}
	if found {
		s.Cart.RestoreSnapshot(snap)
	}
	return nil
}

// Process runs one pass of the pipeline over the session's accumulated
// transcript.
//
// An identical normalized transcript re-submitted within the dedup window
// is dropped outright unless reprocess is set. Ranges consumed by earlier
// passes stay shielded, so re-processing a grown transcript only interprets
// the new clauses.
//
// The returned commands include unmatched and rejected ones; errors are
// reserved for infrastructure failures (catalog unavailable), never for
// individual command outcomes.
func (d *Dispatcher) Process(ctx context.Context, s *Session, raw string, reprocess bool) ([]command.ResolvedCommand, error) {
	ctx, span := observe.StartSpan(ctx, "dispatch.process")
	defer span.End()
	start := d.now()

	d.mu.RLock()
	extractor, interpreter, window := d.extractor, d.interpreter, d.dedupWindow
	d.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	tr := transcript.New(raw, s.arena)

	if !reprocess && tr.Normalized == s.lastProcessed && start.Sub(s.lastProcessedAt) < window {
		d.metrics.DedupHits.Add(ctx, 1)
		observe.Logger(ctx).Debug("duplicate transcript ignored",
			"session", s.ID, "age", start.Sub(s.lastProcessedAt))
		return nil, nil
	}

	products, err := d.catalog.ListProducts(ctx)
	if err != nil {
		return nil, fmt.Errorf("catalog snapshot: %w", err)
	}

	named := extractor.Commands(tr, products)
	resolved := make([]command.ResolvedCommand, 0, len(named))
	for _, nc := range named {
		rc := d.dispatchOne(ctx, s, interpreter, nc, products)
		resolved = append(resolved, rc)
	}

	s.lastProcessed = tr.Normalized
	s.lastProcessedAt = d.now()

	d.metrics.ProcessDuration.Record(ctx, d.now().Sub(start).Seconds())
	observe.Logger(ctx).Info("transcript processed",
		"session", s.ID, "commands", len(resolved), "cart_lines", s.Cart.Len())
	return resolved, nil
}

// dispatchOne interprets and applies a single named command, mapping every
// failure mode to a notification and an outcome metric. Must be called with
// the session lock held.
func (d *Dispatcher) dispatchOne(ctx context.Context, s *Session, interpreter *command.Interpreter, nc extract.NamedCommand, products []catalog.Product) command.ResolvedCommand {
	rc, err := interpreter.Interpret(nc, products)
	switch {
	case errors.Is(err, command.ErrInvalidQuantity):
		d.metrics.RecordCommand(ctx, OutcomeInvalid)
		d.notifier.Notify(ctx, fmt.Sprintf("could not use quantity for %q", nc.SpokenName),
			notify.SeverityWarning, notifyDuration)
		return command.ResolvedCommand{SpokenName: nc.SpokenName}

	case err != nil:
		d.metrics.RecordCommand(ctx, OutcomeError)
		observe.Logger(ctx).Error("command interpretation failed",
			"session", s.ID, "spoken", nc.SpokenName, "error", err)
		return command.ResolvedCommand{SpokenName: nc.SpokenName}

	case !rc.Matched:
		d.metrics.RecordCommand(ctx, OutcomeUnmatched)
		d.notifier.Notify(ctx, fmt.Sprintf("no product found for %q", rc.SpokenName),
			notify.SeverityWarning, notifyDuration)
		return rc
	}

	d.metrics.RecordResolverMatch(ctx, rc.MatchStage)

	if !rc.UnitCompatible {
		d.metrics.RecordCommand(ctx, OutcomeIncompatible)
		d.notifier.Notify(ctx,
			fmt.Sprintf("%s is sold in %s; try one of %v", rc.Product.Name, rc.RequiredUnit, rc.UnitOptions),
			notify.SeverityWarning, notifyDuration)
		return rc
	}

	for _, w := range rc.Warnings {
		d.notifier.Notify(ctx, fmt.Sprintf("%s: %s", rc.Product.Name, w),
			notify.SeverityWarning, notifyDuration)
	}

	// An amount command against an unpriced measured product resolves to
	// quantity zero. The warning is the whole outcome; no line is inserted
	// until the product gets a price.
	if rc.Quantity <= 0 {
		d.metrics.RecordCommand(ctx, OutcomeSkipped)
		return rc
	}

	res, err := d.engine.Add(ctx, s.Cart, rc)
	var rej *cart.RejectedError
	switch {
	case errors.As(err, &rej):
		d.metrics.RecordCommand(ctx, OutcomeRejected)
		d.metrics.RecordMergeRejection(ctx, rej.Reason)
		d.notifier.Notify(ctx,
			fmt.Sprintf("cannot add %s: requested %s, available %s", rc.Product.Name, rej.RequestedDisplay, rej.StockDisplay),
			notify.SeverityError, notifyDuration)
		return rc

	case err != nil:
		d.metrics.RecordCommand(ctx, OutcomeError)
		observe.Logger(ctx).Error("cart merge failed",
			"session", s.ID, "product", rc.Product.Name, "error", err)
		d.notifier.Notify(ctx, fmt.Sprintf("could not add %s", rc.Product.Name),
			notify.SeverityError, notifyDuration)
		return rc
	}

	outcome := OutcomeAdded
	if res.Merged {
		outcome = OutcomeMerged
	}
	d.metrics.RecordCommand(ctx, outcome)
	d.notifier.Notify(ctx,
		fmt.Sprintf("%s %s — ₹%s", res.Line.ProductName,
			strconv.FormatFloat(res.Line.Quantity, 'f', -1, 64)+" "+string(res.Line.Unit),
			strconv.FormatFloat(res.Line.LineTotal, 'f', 2, 64)),
		notify.SeveritySuccess, notifyDuration)

	d.saveDraft(ctx, s)
	return rc
}

// Replace overwrites a cart line directly, outside the spoken pipeline
// (numeric edits from the UI). The session lock is taken here.
func (d *Dispatcher) Replace(ctx context.Context, s *Session, rc command.ResolvedCommand) (cart.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := d.engine.Replace(ctx, s.Cart, rc)
	if err != nil {
		var rej *cart.RejectedError
		if errors.As(err, &rej) {
			d.metrics.RecordMergeRejection(ctx, rej.Reason)
		}
		return cart.Result{}, err
	}
	d.saveDraft(ctx, s)
	return res, nil
}

// saveDraft snapshots the cart after a successful mutation. A failed save
// is logged, not propagated: the in-memory cart stays authoritative.
func (d *Dispatcher) saveDraft(ctx context.Context, s *Session) {
	if err := d.drafts.Save(ctx, s.ID, s.Cart.Snapshot()); err != nil {
		observe.Logger(ctx).Error("draft save failed", "session", s.ID, "error", err)
	}
}
