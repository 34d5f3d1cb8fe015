package pipeline

import (
	"context"
	"errors"

	"github.com/AntonStoeckl/signal-dispatch-go/dispatch"
	"github.com/AntonStoeckl/signal-dispatch-go/signals"
)

const (
	logMsgSignalAdmitted = "signal admitted to delivery"
	logMsgSignalRejected = "signal rejected by posting pipeline"
	reasonDeadSignal     = "no handler registered for signal type"
	reasonUnroutedSignal = "signal has no target and no router is configured"
	labelStage           = "stage"
)

var ErrNilDirectorySupplied = errors.New("nil handler directory supplied")
var ErrNilSinkSupplied = errors.New("nil delivery sink supplied")

// HandlerDirectory answers the dead-signal filter's question: is any handler
// at all registered for a signal type, across all target types?
type HandlerDirectory interface {
	HandlesSignalType(signalType signals.SignalTypeString) bool
}

// Sink receives admitted signals; dispatch/sharding implements it.
type Sink interface {
	Enqueue(target signals.TargetID, sig signals.Signal) error
}

// Router resolves the target of a signal whose target was unknown at
// production time. It is consulted only for unrouted signals.
type Router func(sig signals.Signal) (signals.TargetID, error)

// PostingPipeline validates and filters inbound signals and hands admitted
// signals to the delivery sink. Posting is synchronous with respect to the
// filter chain and asynchronous with respect to final persistence: the
// caller is acknowledged once the signal is validated and enqueued.
type PostingPipeline struct {
	directory HandlerDirectory
	sink      Sink
	filters   []Filter
	router    Router
	logger    dispatch.Logger
	metrics   dispatch.MetricsCollector
}

// Option defines a functional option for configuring a PostingPipeline.
type Option func(*PostingPipeline) error

// WithFilters appends registered filters, run in registration order before
// the validation and dead-signal filters.
func WithFilters(filters ...Filter) Option {
	return func(p *PostingPipeline) error {
		p.filters = append(p.filters, filters...)
		return nil
	}
}

// WithRouter sets the routing function for unrouted signals.
func WithRouter(router Router) Option {
	return func(p *PostingPipeline) error {
		p.router = router
		return nil
	}
}

// WithLogger sets the logger for the PostingPipeline.
func WithLogger(logger dispatch.Logger) Option {
	return func(p *PostingPipeline) error {
		p.logger = logger
		return nil
	}
}

// WithMetrics sets the metrics collector for the PostingPipeline.
func WithMetrics(collector dispatch.MetricsCollector) Option {
	return func(p *PostingPipeline) error {
		p.metrics = collector
		return nil
	}
}

// NewPostingPipeline creates a PostingPipeline with optional configuration.
func NewPostingPipeline(directory HandlerDirectory, sink Sink, options ...Option) (*PostingPipeline, error) {
	if directory == nil {
		return nil, ErrNilDirectorySupplied
	}

	if sink == nil {
		return nil, ErrNilSinkSupplied
	}

	pipeline := &PostingPipeline{
		directory: directory,
		sink:      sink,
	}

	for _, option := range options {
		if err := option(pipeline); err != nil {
			return nil, err
		}
	}

	return pipeline, nil
}

// Post runs the signal through the admission stages and hands it to the
// delivery sink. The returned Acknowledgement is the only answer a producer
// ever sees; asynchronous dispatch outcomes are visible solely through the
// entity's persisted state and any derived signals it produces.
func (p *PostingPipeline) Post(ctx context.Context, sig signals.Signal) dispatch.Acknowledgement {
	if sig.TenantID != "" {
		ctx = dispatch.WithTenant(ctx, sig.TenantID)
	}

	for _, filter := range p.filters {
		if err := filter.Apply(ctx, sig); err != nil {
			return p.reject(ctx, sig, dispatch.StageFilters, reasonOf(err))
		}
	}

	if err := validateSignal(sig); err != nil {
		return p.reject(ctx, sig, dispatch.StageValidation, reasonOf(err))
	}

	if !p.directory.HandlesSignalType(sig.Type) {
		return p.reject(ctx, sig, dispatch.StageDeadSignal, reasonDeadSignal)
	}

	target := sig.Target
	if target.IsZero() {
		if p.router == nil {
			return p.reject(ctx, sig, dispatch.StageRouting, reasonUnroutedSignal)
		}

		routed, routeErr := p.router(sig)
		if routeErr != nil {
			return p.reject(ctx, sig, dispatch.StageRouting, routeErr.Error())
		}

		target = routed
		sig = sig.WithTarget(routed)
	}

	if enqueueErr := p.sink.Enqueue(target, sig); enqueueErr != nil {
		return p.reject(ctx, sig, dispatch.StageDelivery, enqueueErr.Error())
	}

	p.incrementCounter(ctx, dispatch.SignalsPostedMetric, nil)

	if p.logger != nil {
		p.logger.Debug(logMsgSignalAdmitted,
			dispatch.LogAttrSignalID, sig.ID,
			dispatch.LogAttrSignalType, sig.Type,
			dispatch.LogAttrTargetType, target.Type,
			dispatch.LogAttrTargetID, target.ID)
	}

	return dispatch.Acknowledged()
}

// reject reports a rejection to observability and builds the acknowledgement.
// The offending signal is not retained.
func (p *PostingPipeline) reject(
	ctx context.Context,
	sig signals.Signal,
	stage dispatch.Stage,
	reason string,
) dispatch.Acknowledgement {

	p.incrementCounter(ctx, dispatch.SignalsRejectedMetric, map[string]string{labelStage: stage.String()})

	if p.logger != nil {
		p.logger.Info(logMsgSignalRejected,
			dispatch.LogAttrSignalID, sig.ID,
			dispatch.LogAttrSignalType, sig.Type,
			dispatch.LogAttrStage, stage.String(),
			dispatch.LogAttrReason, reason)
	}

	return dispatch.Rejected(stage, reason)
}

func (p *PostingPipeline) incrementCounter(ctx context.Context, metric string, labels map[string]string) {
	if p.metrics == nil {
		return
	}

	if contextual, ok := p.metrics.(dispatch.ContextualMetricsCollector); ok {
		contextual.IncrementCounterContext(ctx, metric, labels)
		return
	}

	p.metrics.IncrementCounter(metric, labels)
}

// Ensure PostingPipeline implements dispatch.Poster.
var _ dispatch.Poster = (*PostingPipeline)(nil)
