package endpoint

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/AntonStoeckl/signal-dispatch-go/dispatch"
	"github.com/AntonStoeckl/signal-dispatch-go/signals"
)

const (
	defaultDispatchTimeout = 10 * time.Second

	logMsgLoadFailed         = "loading target entity failed"
	logMsgNoHandler          = "no handler for signal, attempt interrupted"
	logMsgTargetNotFound     = "target does not exist and signal kind does not permit creation"
	logMsgTargetArchived     = "target is archived, attempt interrupted"
	logMsgVersionConflict    = "version conflict detected on commit"
	logMsgCommitFailed       = "committing entity state failed"
	logMsgHandlerFailed      = "handler invocation failed"
	logMsgDispatchTimedOut   = "dispatch attempt timed out, transaction aborted"
	logMsgOutcomeReported    = "dispatch attempt reported"
	logMsgDerivedPostFailed  = "posting derived signal failed"
	logMsgLifecycleFailed    = "applying lifecycle change failed"
	labelTargetType          = "target_type"
	labelOutcome             = "outcome"
	outcomeLabelSuccess      = "success"
	outcomeLabelRejection    = "rejection"
	outcomeLabelError        = "error"
	outcomeLabelInterrupted  = "interrupted"
	spanNameDispatchAttempt  = "dispatch.attempt"
	spanStatusOK             = "ok"
	spanStatusError          = "error"
	spanAttrSignalType       = "signal_type"
	spanAttrTargetID         = "target_id"
)

var ErrNegativeDispatchTimeout = errors.New("dispatch timeout must not be negative")

// Endpoint applies signals to the entities of one target type.
//
// It is the generic dispatch state machine; the per-kind variance (aggregate
// vs. process manager vs. projection) is injected as a Strategy.
type Endpoint struct {
	targetType signals.TargetTypeString
	strategy   Strategy
	repository dispatch.EntityRepository
	ledger     dispatch.AppliedSignalLedger
	resolver   dispatch.HandlerResolver
	policy     dispatch.LifecyclePolicy
	poster     dispatch.Poster
	timeout    time.Duration
	logger     dispatch.Logger
	metrics    dispatch.MetricsCollector
	tracing    dispatch.TracingCollector
}

// Option defines a functional option for configuring an Endpoint.
type Option func(*Endpoint) error

// WithLifecyclePolicy sets the lifecycle policy consulted on rejections and handler failures.
func WithLifecyclePolicy(policy dispatch.LifecyclePolicy) Option {
	return func(e *Endpoint) error {
		e.policy = policy
		return nil
	}
}

// WithPoster sets the poster used to re-inject derived signals into the pipeline.
func WithPoster(poster dispatch.Poster) Option {
	return func(e *Endpoint) error {
		e.poster = poster
		return nil
	}
}

// WithDispatchTimeout bounds one dispatch attempt. An attempt that does not
// complete in time is treated as a handler failure and aborted; nothing is
// persisted. Zero disables the bound.
func WithDispatchTimeout(timeout time.Duration) Option {
	return func(e *Endpoint) error {
		if timeout < 0 {
			return ErrNegativeDispatchTimeout
		}

		e.timeout = timeout

		return nil
	}
}

// WithLogger sets the logger for the Endpoint.
func WithLogger(logger dispatch.Logger) Option {
	return func(e *Endpoint) error {
		e.logger = logger
		return nil
	}
}

// WithMetrics sets the metrics collector for the Endpoint.
func WithMetrics(collector dispatch.MetricsCollector) Option {
	return func(e *Endpoint) error {
		e.metrics = collector
		return nil
	}
}

// WithTracing sets the tracing collector for the Endpoint.
func WithTracing(collector dispatch.TracingCollector) Option {
	return func(e *Endpoint) error {
		e.tracing = collector
		return nil
	}
}

// NewEndpoint creates an Endpoint for one target type with optional configuration.
func NewEndpoint(
	targetType signals.TargetTypeString,
	strategy Strategy,
	repository dispatch.EntityRepository,
	ledger dispatch.AppliedSignalLedger,
	resolver dispatch.HandlerResolver,
	options ...Option,
) (*Endpoint, error) {

	if targetType == "" {
		return nil, dispatch.ErrEmptyTargetTypeSupplied
	}

	if repository == nil {
		return nil, dispatch.ErrNilRepositorySupplied
	}

	if ledger == nil {
		return nil, dispatch.ErrNilLedgerSupplied
	}

	if resolver == nil {
		return nil, dispatch.ErrNilResolverSupplied
	}

	ep := &Endpoint{
		targetType: targetType,
		strategy:   strategy,
		repository: repository,
		ledger:     ledger,
		resolver:   resolver,
		timeout:    defaultDispatchTimeout,
	}

	for _, option := range options {
		if err := option(ep); err != nil {
			return nil, err
		}
	}

	return ep, nil
}

// TargetType returns the target type this endpoint serves.
func (e *Endpoint) TargetType() signals.TargetTypeString {
	return e.targetType
}

// BindPoster sets the poster after construction. The posting pipeline is
// usually assembled after the endpoints it routes to, so the wiring layer
// binds it late. A poster set via WithPoster is kept.
func (e *Endpoint) BindPoster(poster dispatch.Poster) {
	if e.poster == nil {
		e.poster = poster
	}
}

// Dispatch processes one (target, signal) pair through the full protocol and
// returns the classified outcome.
//
// The error return feeds redelivery: dispatch.ErrVersionConflict means a
// concurrent writer committed first and the pair must be re-queued; any
// other error is reported, not retried by this layer. Interruptions return a
// nil error - they are no-ops for this target, not failures.
func (e *Endpoint) Dispatch(ctx context.Context, target signals.TargetID, sig signals.Signal) (signals.Outcome, error) {
	var outcome signals.Outcome
	var dispatchErr error

	start := time.Now()

	bindErr := dispatch.RunBoundToTenant(ctx, sig.TenantID, func(tenantCtx context.Context) error {
		outcome, dispatchErr = e.dispatchInTenant(tenantCtx, target, sig)
		return nil
	})
	if bindErr != nil {
		outcome = signals.ErrorOutcome(bindErr)
		dispatchErr = bindErr
	}

	e.report(ctx, target, sig, outcome, time.Since(start))

	return outcome, dispatchErr
}

func (e *Endpoint) dispatchInTenant(
	ctx context.Context,
	target signals.TargetID,
	sig signals.Signal,
) (signals.Outcome, error) {

	spanCtx, span := e.startSpan(ctx, target, sig)
	ctx = spanCtx

	// Resolving
	entity, interruption, resolveErr := e.resolveEntity(ctx, target, sig)
	if resolveErr != nil {
		e.finishSpan(span, spanStatusError)
		return signals.ErrorOutcome(resolveErr), resolveErr
	}

	if interruption != signals.InterruptionNone {
		e.finishSpan(span, spanStatusOK)
		return signals.InterruptedOutcome(interruption), nil
	}

	operation := e.resolver.Resolve(e.targetType, sig.Type)
	if operation == nil || !e.strategy.AcceptsKind(sig.Kind) {
		if e.logger != nil {
			e.logger.Info(logMsgNoHandler,
				dispatch.LogAttrSignalType, sig.Type,
				dispatch.LogAttrTargetType, e.targetType)
		}

		e.finishSpan(span, spanStatusOK)

		return signals.InterruptedOutcome(signals.InterruptionNoHandler), nil
	}

	// InTransaction
	tx := dispatch.BeginTransaction(entity)
	outcome, timedOut := e.invokeOperation(ctx, operation, tx, sig)

	// Committed / Aborted
	if commitErr := e.commitPhase(ctx, tx, sig, outcome, timedOut); commitErr != nil {
		e.finishSpan(span, spanStatusError)
		return outcome, commitErr
	}

	// Reported
	routeErr := e.classifyAndRoute(ctx, target, sig, outcome)

	if outcome.IsError() {
		e.finishSpan(span, spanStatusError)
		return outcome, errors.Join(dispatch.ErrHandlerFailed, outcome.Err())
	}

	e.finishSpan(span, spanStatusOK)

	return outcome, routeErr
}

// resolveEntity loads the target entity within the bound tenant context,
// creating a fresh default-state entity when none exists and the signal kind
// permits creation.
func (e *Endpoint) resolveEntity(
	ctx context.Context,
	target signals.TargetID,
	sig signals.Signal,
) (dispatch.Entity, signals.InterruptionReason, error) {

	entity, found, loadErr := e.repository.Load(ctx, sig.TenantID, target)
	if loadErr != nil {
		if e.logger != nil {
			e.logger.Error(logMsgLoadFailed,
				dispatch.LogAttrError, loadErr.Error(),
				dispatch.LogAttrTargetType, target.Type,
				dispatch.LogAttrTargetID, target.ID)
		}

		return dispatch.Entity{}, signals.InterruptionNone, loadErr
	}

	if !found {
		if !e.strategy.AllowsCreation(sig.Kind) {
			if e.logger != nil {
				e.logger.Info(logMsgTargetNotFound,
					dispatch.LogAttrSignalKind, sig.Kind.String(),
					dispatch.LogAttrTargetID, target.ID)
			}

			return dispatch.Entity{}, signals.InterruptionTargetNotFound, nil
		}

		return dispatch.BuildFreshEntity(sig.TenantID, target), signals.InterruptionNone, nil
	}

	if entity.Archived {
		if e.logger != nil {
			e.logger.Info(logMsgTargetArchived,
				dispatch.LogAttrTargetType, target.Type,
				dispatch.LogAttrTargetID, target.ID)
		}

		return dispatch.Entity{}, signals.InterruptionTargetArchived, nil
	}

	return entity, signals.InterruptionNone, nil
}

// invokeOperation executes the resolved operation against the transaction
// snapshot, bounded by the dispatch timeout. On timeout the transaction is
// poisoned for persistence: nothing is written, because the handler may still
// be running.
func (e *Endpoint) invokeOperation(
	ctx context.Context,
	operation dispatch.Operation,
	tx *dispatch.Transaction,
	sig signals.Signal,
) (signals.Outcome, bool) {

	invokeCtx := ctx
	cancel := context.CancelFunc(func() {})

	if e.timeout > 0 {
		invokeCtx, cancel = context.WithTimeout(ctx, e.timeout)
	}
	defer cancel()

	outcomeCh := make(chan signals.Outcome, 1)

	go func() {
		outcomeCh <- operation.Invoke(invokeCtx, tx, sig)
	}()

	select {
	case outcome := <-outcomeCh:
		return outcome, false

	case <-invokeCtx.Done():
		if e.logger != nil {
			e.logger.Error(logMsgDispatchTimedOut,
				dispatch.LogAttrSignalID, sig.ID,
				dispatch.LogAttrSignalType, sig.Type)
		}

		return signals.ErrorOutcome(errors.Join(dispatch.ErrDispatchTimedOut, invokeCtx.Err())), true
	}
}

// commitPhase persists per the strategy's decision. A version mismatch
// surfaces as dispatch.ErrVersionConflict so delivery re-queues the pair;
// the entity is left exactly as loaded.
func (e *Endpoint) commitPhase(
	ctx context.Context,
	tx *dispatch.Transaction,
	sig signals.Signal,
	outcome signals.Outcome,
	timedOut bool,
) error {

	decision := e.strategy.PersistDecision(outcome, tx.IsModified())
	if timedOut {
		decision = PersistNone
	}

	if decision == PersistNone {
		return nil
	}

	committed := tx.Entity()
	committed.Version = tx.Version() + 1

	storeErr := e.store(ctx, committed, tx.Version(), sig.ID, decision)

	switch {
	case storeErr == nil:
		return nil

	case errors.Is(storeErr, dispatch.ErrVersionConflict):
		if e.logger != nil {
			e.logger.Info(logMsgVersionConflict,
				dispatch.LogAttrSignalID, sig.ID,
				dispatch.LogAttrTargetID, committed.Target.ID,
				dispatch.LogAttrVersion, tx.Version())
		}

		return dispatch.ErrVersionConflict

	default:
		if e.logger != nil {
			e.logger.Error(logMsgCommitFailed,
				dispatch.LogAttrError, storeErr.Error(),
				dispatch.LogAttrSignalID, sig.ID)
		}

		return storeErr
	}
}

// store persists the entity and, for PersistAndRecord, the applied-signal
// record. Repositories implementing dispatch.CommitStore do both in one
// transactional unit; others fall back to Store followed by RecordApplied.
func (e *Endpoint) store(
	ctx context.Context,
	entity dispatch.Entity,
	expectedVersion dispatch.EntityVersionUint,
	signalID signals.SignalIDString,
	decision PersistDecision,
) error {

	if decision == PersistAndRecord {
		if committer, ok := e.repository.(dispatch.CommitStore); ok {
			return committer.StoreAndRecord(ctx, entity, expectedVersion, signalID)
		}
	}

	if err := e.repository.Store(ctx, entity, expectedVersion); err != nil {
		return err
	}

	if decision == PersistAndRecord {
		return e.ledger.RecordApplied(ctx, entity.Target, signalID)
	}

	return nil
}

// classifyAndRoute submits produced signals back to the posting pipeline and
// consults the lifecycle policy on rejections and failures. Every derived
// signal is (re-)stamped with the originating signal's id as causation.
func (e *Endpoint) classifyAndRoute(
	ctx context.Context,
	target signals.TargetID,
	sig signals.Signal,
	outcome signals.Outcome,
) error {

	switch {
	case outcome.IsSuccess():
		if rejection, rejected := outcome.Rejection(); rejected {
			e.routeDerived(ctx, sig, rejection)
			e.applyRejectionPolicy(ctx, target, rejection)
			return nil
		}

		for _, produced := range outcome.Events() {
			e.routeDerived(ctx, sig, produced)
		}

		for _, produced := range outcome.Commands() {
			e.routeDerived(ctx, sig, produced)
		}

		return nil

	case outcome.IsError():
		if e.logger != nil {
			e.logger.Error(logMsgHandlerFailed,
				dispatch.LogAttrError, outcome.Err().Error(),
				dispatch.LogAttrSignalID, sig.ID,
				dispatch.LogAttrTargetID, target.ID)
		}

		if e.policy != nil {
			e.policy.OnHandlerFailed(ctx, sig.ID, outcome.Err())
		}

		return nil

	default:
		return nil
	}
}

func (e *Endpoint) routeDerived(ctx context.Context, cause signals.Signal, derived signals.Signal) {
	if e.poster == nil {
		return
	}

	derived.CausationID = cause.ID
	derived.RootID = cause.RootID

	ack := e.poster.Post(ctx, derived)
	if !ack.IsAccepted() && e.logger != nil {
		e.logger.Warn(logMsgDerivedPostFailed,
			dispatch.LogAttrSignalID, derived.ID,
			dispatch.LogAttrSignalType, derived.Type,
			dispatch.LogAttrStage, ack.Stage().String(),
			dispatch.LogAttrReason, ack.Reason())
	}
}

func (e *Endpoint) applyRejectionPolicy(ctx context.Context, target signals.TargetID, rejection signals.Signal) {
	if e.policy == nil {
		return
	}

	change := e.policy.OnRejection(ctx, target, rejection)
	if change.IsZero() {
		return
	}

	if err := e.repository.MarkLifecycle(ctx, rejection.TenantID, target, change); err != nil && e.logger != nil {
		e.logger.Error(logMsgLifecycleFailed,
			dispatch.LogAttrError, err.Error(),
			dispatch.LogAttrTargetID, target.ID)
	}
}

func (e *Endpoint) report(
	ctx context.Context,
	target signals.TargetID,
	sig signals.Signal,
	outcome signals.Outcome,
	duration time.Duration,
) {

	labels := map[string]string{
		labelTargetType: e.targetType,
		labelOutcome:    outcomeLabel(outcome),
	}

	if e.metrics != nil {
		if contextual, ok := e.metrics.(dispatch.ContextualMetricsCollector); ok {
			contextual.IncrementCounterContext(ctx, dispatch.DispatchAttemptsMetric, labels)
			contextual.RecordDurationContext(ctx, dispatch.DispatchDurationMetric, duration, labels)
		} else {
			e.metrics.IncrementCounter(dispatch.DispatchAttemptsMetric, labels)
			e.metrics.RecordDuration(dispatch.DispatchDurationMetric, duration, labels)
		}
	}

	if e.logger != nil {
		e.logger.Debug(logMsgOutcomeReported,
			dispatch.LogAttrSignalID, sig.ID,
			dispatch.LogAttrTargetType, target.Type,
			dispatch.LogAttrTargetID, target.ID,
			dispatch.LogAttrOutcome, outcomeLabel(outcome),
			dispatch.LogAttrDurationMS, durationToMilliseconds(duration))
	}
}

func (e *Endpoint) startSpan(ctx context.Context, target signals.TargetID, sig signals.Signal) (context.Context, dispatch.SpanContext) {
	if e.tracing == nil {
		return ctx, nil
	}

	return e.tracing.StartSpan(ctx, spanNameDispatchAttempt, map[string]string{
		labelTargetType:    target.Type,
		spanAttrTargetID:   target.ID,
		spanAttrSignalType: sig.Type,
	})
}

func (e *Endpoint) finishSpan(span dispatch.SpanContext, status string) {
	if e.tracing == nil || span == nil {
		return
	}

	e.tracing.FinishSpan(span, status, nil)
}

func outcomeLabel(outcome signals.Outcome) string {
	switch {
	case outcome.IsError():
		return outcomeLabelError
	case outcome.IsInterrupted():
		return outcomeLabelInterrupted
	default:
		if _, rejected := outcome.Rejection(); rejected {
			return outcomeLabelRejection
		}
		return outcomeLabelSuccess
	}
}

// durationToMilliseconds converts a time.Duration to float64 milliseconds with 3 decimal places.
func durationToMilliseconds(d time.Duration) float64 {
	return math.Round(float64(d.Nanoseconds())/1e6*1000) / 1000
}
