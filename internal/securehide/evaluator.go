package securehide

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.uber.org/zap"

	"github.com/steemit/securehide/pkg/logging"
	"github.com/steemit/securehide/pkg/telemetry"
)

// Cause explains why a viewer is allowed to see hidden content.
// The empty cause means access is denied.
type Cause string

// Decision causes
const (
	CauseStaff              Cause = "staff"
	CauseAuthor             Cause = "author"
	CausePreviouslyUnlocked Cause = "previously_unlocked"
	CauseUnlockedNow        Cause = "unlocked_now"
)

// Decision is the outcome of evaluating one viewer against one post.
type Decision struct {
	Mode      Mode
	Actions   []Action
	Satisfied []Action
	Allowed   bool
	Cause     Cause
	// UnlockedVia is set only when Cause is CauseUnlockedNow.
	UnlockedVia Via
}

func (d *Decision) grant(cause Cause) {
	d.Allowed = true
	d.Cause = cause
	d.Satisfied = append([]Action(nil), d.Actions...)
}

// Evaluator decides visibility of hidden regions and persists unlocks.
type Evaluator struct {
	oracle  *Oracle
	unlocks UnlockStore
	posts   PostStore
	logger  *zap.Logger
	metrics evaluatorMetrics
	now     func() time.Time
}

// NewEvaluator creates a new evaluator. unlocks may be nil, in which case every
// request is evaluated live and nothing is persisted.
func NewEvaluator(oracle *Oracle, unlocks UnlockStore, posts PostStore) *Evaluator {
	return &Evaluator{
		oracle:  oracle,
		unlocks: unlocks,
		posts:   posts,
		logger:  logging.WithComponent("secure-hide"),
		metrics: newEvaluatorMetrics(telemetry.Meter()),
		now: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Status evaluates guardian against post. It returns nil when the post has no
// hidden-content metadata.
func (e *Evaluator) Status(ctx context.Context, guardian Guardian, post *Post) (*Decision, error) {
	ctx, span := telemetry.StartSpan(ctx, "securehide.status")
	defer span.End()

	if post == nil {
		return nil, nil
	}
	meta, ok := ParseMetadata(post.Metadata)
	if !ok {
		return nil, nil
	}
	span.SetAttributes(attribute.Int64("post_id", post.ID))

	req := meta.Requirement
	d := &Decision{
		Mode:      req.Mode,
		Actions:   req.Actions,
		Satisfied: []Action{},
	}

	if guardian != nil && guardian.IsStaff() {
		d.grant(CauseStaff)
		e.record(ctx, d)
		return d, nil
	}

	var userID int64
	if guardian != nil {
		userID, ok = guardian.UserID()
	}
	if guardian == nil || !ok {
		e.record(ctx, d)
		return d, nil
	}

	if userID == post.AuthorID {
		d.grant(CauseAuthor)
		e.record(ctx, d)
		return d, nil
	}

	if e.hasUnlock(ctx, userID, post.ID) {
		d.grant(CausePreviouslyUnlocked)
		e.record(ctx, d)
		return d, nil
	}

	results, err := e.oracle.SatisfiedSet(ctx, post, userID, req.Actions)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to evaluate post %d: %w", post.ID, err)
	}
	for i, action := range req.Actions {
		if results[i] {
			d.Satisfied = append(d.Satisfied, action)
		}
	}

	if req.Mode == ModeAll {
		d.Allowed = len(d.Satisfied) == len(req.Actions)
	} else {
		d.Allowed = len(d.Satisfied) > 0
	}
	if !d.Allowed {
		e.record(ctx, d)
		return d, nil
	}

	d.Cause = CauseUnlockedNow
	if req.Mode == ModeAll {
		d.UnlockedVia = ViaAll
	} else {
		// Satisfied keeps declaration order, so this is the first configured action.
		d.UnlockedVia = Via(d.Satisfied[0])
	}
	e.createUnlock(ctx, userID, post.ID, d.UnlockedVia)
	e.record(ctx, d)

	return d, nil
}

// Reason runs the same evaluation as Status but only returns the cause.
// The cause is empty when access is denied or the post has nothing hidden.
func (e *Evaluator) Reason(ctx context.Context, guardian Guardian, post *Post) (Cause, error) {
	d, err := e.Status(ctx, guardian, post)
	if err != nil {
		return "", err
	}
	if d == nil || !d.Allowed {
		return "", nil
	}
	return d.Cause, nil
}

// Lookup loads the post and evaluates it. A missing post yields (nil, nil, nil).
func (e *Evaluator) Lookup(ctx context.Context, guardian Guardian, postID int64) (*Post, *Decision, error) {
	if e.posts == nil {
		return nil, nil, errors.New("secure hide evaluator has no post store")
	}

	post, err := e.posts.FindPost(ctx, postID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load post %d: %w", postID, err)
	}
	if post == nil {
		return nil, nil, nil
	}

	d, err := e.Status(ctx, guardian, post)
	if err != nil {
		return nil, nil, err
	}
	return post, d, nil
}

func (e *Evaluator) hasUnlock(ctx context.Context, userID, postID int64) bool {
	if e.unlocks == nil {
		return false
	}

	unlock, err := e.unlocks.Find(ctx, userID, postID)
	if err != nil {
		e.degraded(ctx, "find", userID, postID, err)
		return false
	}
	return unlock != nil
}

func (e *Evaluator) createUnlock(ctx context.Context, userID, postID int64, via Via) {
	if e.unlocks == nil {
		return
	}

	if _, err := e.unlocks.CreateIfAbsent(ctx, userID, postID, via, e.now()); err != nil {
		e.degraded(ctx, "create", userID, postID, err)
		return
	}

	e.metrics.unlocks.Add(ctx, 1, metric.WithAttributes(attribute.String("via", string(via))))
	e.logger.Debug("Unlock recorded",
		zap.Int64("user_id", userID),
		zap.Int64("post_id", postID),
		zap.String("via", string(via)))
}

// degraded logs an unlock store failure. Evaluation always continues live.
func (e *Evaluator) degraded(ctx context.Context, op string, userID, postID int64, err error) {
	e.metrics.degraded.Add(ctx, 1, metric.WithAttributes(attribute.String("op", op)))

	if errors.Is(err, ErrUnlocksUnavailable) {
		e.logger.Debug("Unlock store unavailable", zap.String("op", op))
		return
	}
	e.logger.Warn("Unlock store failed, evaluating live",
		zap.String("op", op),
		zap.Int64("user_id", userID),
		zap.Int64("post_id", postID),
		zap.Error(err))
}

func (e *Evaluator) record(ctx context.Context, d *Decision) {
	cause := string(d.Cause)
	if cause == "" {
		cause = "denied"
	}
	e.metrics.decisions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("cause", cause),
		attribute.String("mode", string(d.Mode)),
	))
}

type evaluatorMetrics struct {
	decisions metric.Int64Counter
	unlocks   metric.Int64Counter
	degraded  metric.Int64Counter
}

func newEvaluatorMetrics(meter metric.Meter) evaluatorMetrics {
	fallback := noop.NewMeterProvider().Meter("securehide")

	counter := func(name, desc string) metric.Int64Counter {
		c, err := meter.Int64Counter(name, metric.WithDescription(desc))
		if err != nil {
			c, _ = fallback.Int64Counter(name)
		}
		return c
	}

	return evaluatorMetrics{
		decisions: counter("securehide.decisions", "Visibility decisions by cause"),
		unlocks:   counter("securehide.unlocks.created", "Unlocks persisted"),
		degraded:  counter("securehide.unlock_store.degraded", "Unlock store failures absorbed by live evaluation"),
	}
}
