package sharding

import (
	"context"
	"errors"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/AntonStoeckl/signal-dispatch-go/dispatch"
	"github.com/AntonStoeckl/signal-dispatch-go/signals"
)

const (
	defaultLaneCapacity   = 1024
	defaultPostponeDelay  = 5 * time.Millisecond
	logMsgPairEnqueued    = "pair enqueued"
	logMsgDuplicateSignal = "duplicate signal dropped"
	logMsgPairPostponed   = "pair postponed to lane tail"
	logMsgConflictRequeue = "version conflict, pair re-queued for redelivery"
	logMsgDispatchFailed  = "dispatch attempt failed"
	logMsgLedgerFailed    = "applied-signal ledger check failed, pair re-queued"
	labelShard            = "shard"
)

var ErrInvalidShardCount = errors.New("shard count must be positive")
var ErrInvalidShardIndex = errors.New("shard index out of range")
var ErrLaneAlreadyConsumed = errors.New("lane is already consumed by another worker")
var ErrInvalidLaneCapacity = errors.New("lane capacity must be positive")
var ErrNegativePostponeDelay = errors.New("postpone delay must not be negative")

var errDeliveryLaneClosed = dispatch.ErrDeliveryStopped
var errLaneCapacityReached = dispatch.ErrLaneCapacityExceeded

// InProcessDelivery assigns signals to ordered in-memory lanes and guarantees
// per-target ordering without a single global sequential processor.
//
// Before invoking the dispatch callback, it drops pairs whose signal id is
// already durably recorded as applied to the target, which is what makes
// at-least-once delivery safe to retry. At most one dispatch invocation is
// in flight per target at any time, enforced by the combination of stable
// shard assignment and one consumer per lane.
type InProcessDelivery struct {
	lanes          []*deliveryLane
	consuming      []atomic.Bool
	ledger         dispatch.AppliedSignalLedger
	shouldPostpone dispatch.PostponePredicate
	onDuplicate    dispatch.DuplicateCallback
	postponeDelay  time.Duration
	logger         dispatch.Logger
	metrics        dispatch.MetricsCollector
}

// Option defines a functional option for configuring InProcessDelivery.
type Option func(*InProcessDelivery) error

// WithLaneCapacity sets the soft per-lane capacity for producer enqueues.
// Re-queued pairs bypass it so admitted signals are never lost to backpressure.
func WithLaneCapacity(capacity int) Option {
	return func(d *InProcessDelivery) error {
		if capacity <= 0 {
			return ErrInvalidLaneCapacity
		}

		for i := range d.lanes {
			d.lanes[i].capacity = capacity
		}

		return nil
	}
}

// WithPostponePredicate sets the pluggable predicate deciding whether a pair
// is deferred rather than dispatched immediately. The default never postpones.
func WithPostponePredicate(predicate dispatch.PostponePredicate) Option {
	return func(d *InProcessDelivery) error {
		d.shouldPostpone = predicate
		return nil
	}
}

// WithPostponeDelay sets the bounded pause before a postponed pair is
// re-queued, keeping a lane with a single busy target from spinning hot.
func WithPostponeDelay(delay time.Duration) Option {
	return func(d *InProcessDelivery) error {
		if delay < 0 {
			return ErrNegativePostponeDelay
		}

		d.postponeDelay = delay

		return nil
	}
}

// WithOnDuplicate sets the callback reported when a pair is dropped as a duplicate.
func WithOnDuplicate(callback dispatch.DuplicateCallback) Option {
	return func(d *InProcessDelivery) error {
		d.onDuplicate = callback
		return nil
	}
}

// WithLogger sets the logger for the InProcessDelivery.
func WithLogger(logger dispatch.Logger) Option {
	return func(d *InProcessDelivery) error {
		d.logger = logger
		return nil
	}
}

// WithMetrics sets the metrics collector for the InProcessDelivery.
func WithMetrics(collector dispatch.MetricsCollector) Option {
	return func(d *InProcessDelivery) error {
		d.metrics = collector
		return nil
	}
}

// NewInProcessDelivery creates an InProcessDelivery with one lane per shard index.
func NewInProcessDelivery(
	shardCount uint,
	ledger dispatch.AppliedSignalLedger,
	options ...Option,
) (*InProcessDelivery, error) {

	if shardCount == 0 {
		return nil, ErrInvalidShardCount
	}

	if ledger == nil {
		return nil, dispatch.ErrNilLedgerSupplied
	}

	lanes := make([]*deliveryLane, shardCount)
	for i := range lanes {
		lanes[i] = newDeliveryLane(defaultLaneCapacity)
	}

	delivery := &InProcessDelivery{
		lanes:         lanes,
		consuming:     make([]atomic.Bool, shardCount),
		ledger:        ledger,
		postponeDelay: defaultPostponeDelay,
	}

	for _, option := range options {
		if err := option(delivery); err != nil {
			return nil, err
		}
	}

	return delivery, nil
}

// ShardCount returns the number of lanes.
func (d *InProcessDelivery) ShardCount() uint {
	return uint(len(d.lanes))
}

// ShardFor returns the stable lane index for the target.
func (d *InProcessDelivery) ShardFor(target signals.TargetID) ShardIndexUint {
	return ShardIndexFor(target, uint(len(d.lanes)))
}

// Enqueue appends the pair to the lane selected by ShardFor, preserving FIFO
// order per target. It never blocks the caller; a full lane is reported as
// dispatch.ErrLaneCapacityExceeded.
func (d *InProcessDelivery) Enqueue(target signals.TargetID, sig signals.Signal) error {
	shardIndex := d.ShardFor(target)
	lane := d.lanes[shardIndex]

	if err := lane.push(laneEntry{target: target, sig: sig}, true); err != nil {
		return err
	}

	d.recordLaneDepth(shardIndex, lane)

	if d.logger != nil {
		d.logger.Debug(logMsgPairEnqueued,
			dispatch.LogAttrSignalID, sig.ID,
			dispatch.LogAttrTargetType, target.Type,
			dispatch.LogAttrTargetID, target.ID,
			dispatch.LogAttrShard, shardIndex)
	}

	return nil
}

// Run consumes the lane of the given shard index until the context is
// canceled, delivering pairs in enqueue order to dispatchFn. Exactly one
// worker per shard may run at a time; a second concurrent Run for the same
// index fails with ErrLaneAlreadyConsumed.
func (d *InProcessDelivery) Run(ctx context.Context, shardIndex uint, dispatchFn dispatch.DispatchFunc) error {
	if shardIndex >= uint(len(d.lanes)) {
		return ErrInvalidShardIndex
	}

	if !d.consuming[shardIndex].CompareAndSwap(false, true) {
		return ErrLaneAlreadyConsumed
	}
	defer d.consuming[shardIndex].Store(false)

	lane := d.lanes[shardIndex]

	stopWatcher := context.AfterFunc(ctx, lane.close)
	defer stopWatcher()

	for {
		entry, ok := lane.pop()
		if !ok {
			return ctx.Err()
		}

		d.deliverEntry(ctx, shardIndex, lane, entry, dispatchFn)
	}
}

// deliverEntry runs the de-duplication and postponement checks for one pair
// and hands it to dispatchFn. Version conflicts re-queue the pair to the tail
// of its lane; other dispatch errors are reported and the pair is dropped
// (retry is a policy decision owned by the surrounding system).
func (d *InProcessDelivery) deliverEntry(
	ctx context.Context,
	shardIndex ShardIndexUint,
	lane *deliveryLane,
	entry laneEntry,
	dispatchFn dispatch.DispatchFunc,
) {

	applied, ledgerErr := d.ledger.WasApplied(ctx, entry.target, entry.sig.ID)
	if ledgerErr != nil {
		if d.logger != nil {
			d.logger.Error(logMsgLedgerFailed,
				dispatch.LogAttrError, ledgerErr.Error(),
				dispatch.LogAttrSignalID, entry.sig.ID)
		}

		d.requeue(lane, entry)

		return
	}

	if applied {
		d.incrementCounter(ctx, dispatch.SignalsDuplicateMetric, map[string]string{labelShard: shardLabel(shardIndex)})

		if d.logger != nil {
			d.logger.Info(logMsgDuplicateSignal,
				dispatch.LogAttrSignalID, entry.sig.ID,
				dispatch.LogAttrTargetType, entry.target.Type,
				dispatch.LogAttrTargetID, entry.target.ID)
		}

		if d.onDuplicate != nil {
			d.onDuplicate(entry.target, entry.sig)
		}

		return
	}

	if d.shouldPostpone != nil && d.shouldPostpone(entry.target, entry.sig) {
		d.incrementCounter(ctx, dispatch.SignalsPostponedMetric, map[string]string{labelShard: shardLabel(shardIndex)})

		if d.logger != nil {
			d.logger.Debug(logMsgPairPostponed,
				dispatch.LogAttrSignalID, entry.sig.ID,
				dispatch.LogAttrTargetID, entry.target.ID)
		}

		d.pauseBeforeRequeue(ctx)
		d.requeue(lane, entry)

		return
	}

	dispatchErr := dispatchFn(ctx, entry.target, entry.sig)

	switch {
	case dispatchErr == nil:
		// delivered

	case errors.Is(dispatchErr, dispatch.ErrVersionConflict):
		d.incrementCounter(ctx, dispatch.DispatchConflictsMetric, map[string]string{labelShard: shardLabel(shardIndex)})

		if d.logger != nil {
			d.logger.Info(logMsgConflictRequeue,
				dispatch.LogAttrSignalID, entry.sig.ID,
				dispatch.LogAttrTargetID, entry.target.ID)
		}

		d.requeue(lane, entry)

	default:
		if d.logger != nil {
			d.logger.Error(logMsgDispatchFailed,
				dispatch.LogAttrError, dispatchErr.Error(),
				dispatch.LogAttrSignalID, entry.sig.ID,
				dispatch.LogAttrTargetType, entry.target.Type,
				dispatch.LogAttrTargetID, entry.target.ID)
		}
	}
}

// requeue appends to the tail, bypassing the producer capacity. A closed lane
// drops the pair; redelivery after restart is covered by at-least-once
// semantics upstream.
func (d *InProcessDelivery) requeue(lane *deliveryLane, entry laneEntry) {
	_ = lane.push(entry, false)
}

// pauseBeforeRequeue keeps a lane with a single busy target from spinning hot.
func (d *InProcessDelivery) pauseBeforeRequeue(ctx context.Context) {
	if d.postponeDelay == 0 {
		return
	}

	timer := time.NewTimer(d.postponeDelay)
	defer timer.Stop()

	select {
	case <-timer.C:
	case <-ctx.Done():
	}
}

func (d *InProcessDelivery) recordLaneDepth(shardIndex ShardIndexUint, lane *deliveryLane) {
	if d.metrics == nil {
		return
	}

	d.metrics.RecordValue(dispatch.LaneDepthMetric, float64(lane.depth()), map[string]string{labelShard: shardLabel(shardIndex)})
}

func (d *InProcessDelivery) incrementCounter(ctx context.Context, metric string, labels map[string]string) {
	if d.metrics == nil {
		return
	}

	if contextual, ok := d.metrics.(dispatch.ContextualMetricsCollector); ok {
		contextual.IncrementCounterContext(ctx, metric, labels)
		return
	}

	d.metrics.IncrementCounter(metric, labels)
}

func shardLabel(shardIndex ShardIndexUint) string {
	return strconv.FormatUint(uint64(shardIndex), 10)
}

// Ensure InProcessDelivery implements dispatch.Delivery.
var _ dispatch.Delivery = (*InProcessDelivery)(nil)
