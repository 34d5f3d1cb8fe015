package engine

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/AntonStoeckl/signal-dispatch-go/dispatch"
	"github.com/AntonStoeckl/signal-dispatch-go/dispatch/endpoint"
	"github.com/AntonStoeckl/signal-dispatch-go/dispatch/pipeline"
	"github.com/AntonStoeckl/signal-dispatch-go/signals"
)

const (
	logMsgEngineStarted   = "dispatch engine started"
	logMsgEngineStopped   = "dispatch engine stopped"
	logMsgWorkerStopped   = "shard worker stopped"
	logMsgUnknownTarget   = "no endpoint mounted for target type, pair dropped"
	logMsgWorkerRunFailed = "shard worker failed to run"
)

var ErrNilDeliverySupplied = errors.New("nil delivery supplied")
var ErrEngineAlreadyStarted = errors.New("engine is already started")
var ErrEngineNotStarted = errors.New("engine is not started")
var ErrNilEndpointSupplied = errors.New("nil endpoint supplied")

// Engine is the wiring facade over the dispatch core. It owns the handler
// registry and the posting pipeline, mounts one endpoint per target type, and
// runs one worker per shard lane.
//
// Mounting and registration must happen before Start; the maps are not
// guarded against concurrent mutation while workers consume them.
type Engine struct {
	registry   *dispatch.Registry
	delivery   dispatch.Delivery
	shardCount uint
	post       *pipeline.PostingPipeline
	endpoints  map[signals.TargetTypeString]*endpoint.Endpoint
	logger     dispatch.Logger

	started atomic.Bool
	cancel  context.CancelFunc
	workers sync.WaitGroup

	pipelineOptions []pipeline.Option
}

// Option defines a functional option for configuring an Engine.
type Option func(*Engine) error

// WithLogger sets the logger for the Engine.
func WithLogger(logger dispatch.Logger) Option {
	return func(e *Engine) error {
		e.logger = logger
		return nil
	}
}

// WithPipelineOptions forwards options to the posting pipeline the engine
// assembles, e.g. registered filters or a router for unrouted signals.
func WithPipelineOptions(options ...pipeline.Option) Option {
	return func(e *Engine) error {
		e.pipelineOptions = append(e.pipelineOptions, options...)
		return nil
	}
}

// NewEngine creates an Engine over the given delivery with one worker slot
// per shard index in [0, shardCount).
func NewEngine(delivery dispatch.Delivery, shardCount uint, options ...Option) (*Engine, error) {
	if delivery == nil {
		return nil, ErrNilDeliverySupplied
	}

	eng := &Engine{
		registry:   dispatch.NewRegistry(),
		delivery:   delivery,
		shardCount: shardCount,
		endpoints:  make(map[signals.TargetTypeString]*endpoint.Endpoint),
	}

	for _, option := range options {
		if err := option(eng); err != nil {
			return nil, err
		}
	}

	post, err := pipeline.NewPostingPipeline(eng.registry, delivery, eng.pipelineOptions...)
	if err != nil {
		return nil, err
	}

	eng.post = post

	return eng, nil
}

// Registry exposes the handler registry, e.g. for userland registration
// helpers that register many operations at once.
func (e *Engine) Registry() *dispatch.Registry {
	return e.registry
}

// MountEndpoint mounts the endpoint for its target type and binds the
// engine's posting pipeline as its poster for derived signals.
func (e *Engine) MountEndpoint(ep *endpoint.Endpoint) error {
	if ep == nil {
		return ErrNilEndpointSupplied
	}

	if _, exists := e.endpoints[ep.TargetType()]; exists {
		return dispatch.ErrDuplicateRegistration
	}

	ep.BindPoster(e.post)
	e.endpoints[ep.TargetType()] = ep

	return nil
}

// RegisterOperation registers the operation handling one (target type, signal
// type) pair.
func (e *Engine) RegisterOperation(
	targetType signals.TargetTypeString,
	signalType signals.SignalTypeString,
	operation dispatch.Operation,
) error {

	return e.registry.Register(targetType, signalType, operation)
}

// Post admits a signal through the posting pipeline.
func (e *Engine) Post(ctx context.Context, sig signals.Signal) dispatch.Acknowledgement {
	return e.post.Post(ctx, sig)
}

// Start spawns one worker goroutine per shard lane. The workers run until
// Stop is called or the given context is canceled.
func (e *Engine) Start(ctx context.Context) error {
	if !e.started.CompareAndSwap(false, true) {
		return ErrEngineAlreadyStarted
	}

	runCtx, cancel := context.WithCancel(ctx)
	e.cancel = cancel

	for shardIndex := uint(0); shardIndex < e.shardCount; shardIndex++ {
		e.workers.Add(1)

		go func(index uint) {
			defer e.workers.Done()

			if runErr := e.delivery.Run(runCtx, index, e.dispatchPair); runErr != nil && !errors.Is(runErr, context.Canceled) {
				if e.logger != nil {
					e.logger.Error(logMsgWorkerRunFailed,
						dispatch.LogAttrError, runErr.Error(),
						dispatch.LogAttrShard, index)
				}

				return
			}

			if e.logger != nil {
				e.logger.Debug(logMsgWorkerStopped, dispatch.LogAttrShard, index)
			}
		}(shardIndex)
	}

	if e.logger != nil {
		e.logger.Info(logMsgEngineStarted, dispatch.LogAttrShard, e.shardCount)
	}

	return nil
}

// Stop cancels the workers and waits for them to drain their in-flight pair.
// The given context bounds the wait.
func (e *Engine) Stop(ctx context.Context) error {
	if !e.started.CompareAndSwap(true, false) {
		return ErrEngineNotStarted
	}

	e.cancel()

	drained := make(chan struct{})
	go func() {
		e.workers.Wait()
		close(drained)
	}()

	select {
	case <-drained:
		if e.logger != nil {
			e.logger.Info(logMsgEngineStopped)
		}

		return nil

	case <-ctx.Done():
		return ctx.Err()
	}
}

// dispatchPair is the worker-side callback handing one pair to the endpoint
// mounted for the target type.
func (e *Engine) dispatchPair(ctx context.Context, target signals.TargetID, sig signals.Signal) error {
	ep, found := e.endpoints[target.Type]
	if !found {
		if e.logger != nil {
			e.logger.Warn(logMsgUnknownTarget,
				dispatch.LogAttrTargetType, target.Type,
				dispatch.LogAttrSignalID, sig.ID)
		}

		return dispatch.ErrUnknownTargetType
	}

	_, dispatchErr := ep.Dispatch(ctx, target, sig)

	return dispatchErr
}

// Ensure Engine implements dispatch.Poster.
var _ dispatch.Poster = (*Engine)(nil)
