package dispatch

import (
	"sync"

	"github.com/AntonStoeckl/signal-dispatch-go/signals"
)

type registryKey struct {
	targetType signals.TargetTypeString
	signalType signals.SignalTypeString
}

// Registry is a static handler registry built at startup: a mapping from
// (target type, signal type) to the handling operation.
//
// It is an explicitly constructed, owned instance passed to the components
// that need it; there is no ambient global registry. Registration happens
// during wiring, before dispatch starts; Resolve and HandlesSignalType are
// safe for concurrent use afterwards.
type Registry struct {
	mu          sync.RWMutex
	operations  map[registryKey]Operation
	signalTypes map[signals.SignalTypeString]int
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		operations:  make(map[registryKey]Operation),
		signalTypes: make(map[signals.SignalTypeString]int),
	}
}

// Register binds an operation to the (target type, signal type) pair.
// Registering the same pair twice is a configuration error.
func (r *Registry) Register(
	targetType signals.TargetTypeString,
	signalType signals.SignalTypeString,
	operation Operation,
) error {

	if targetType == "" {
		return ErrEmptyTargetTypeSupplied
	}

	if signalType == "" {
		return ErrEmptySignalTypeSupplied
	}

	if operation == nil {
		return ErrNilOperationSupplied
	}

	key := registryKey{targetType: targetType, signalType: signalType}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.operations[key]; exists {
		return ErrDuplicateRegistration
	}

	r.operations[key] = operation
	r.signalTypes[signalType]++

	return nil
}

// Resolve returns the operation registered for the pair, or nil when the
// signal is not handled by that target type.
func (r *Registry) Resolve(
	targetType signals.TargetTypeString,
	signalType signals.SignalTypeString,
) Operation {

	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.operations[registryKey{targetType: targetType, signalType: signalType}]
}

// HandlesSignalType reports whether any handler at all is registered for the
// signal type, across all target types. The dead-signal filter consults it.
func (r *Registry) HandlesSignalType(signalType signals.SignalTypeString) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.signalTypes[signalType] > 0
}

// Ensure Registry implements HandlerResolver.
var _ HandlerResolver = (*Registry)(nil)
