package memoryengine

import (
	"context"
	"sync"

	"github.com/AntonStoeckl/signal-dispatch-go/dispatch"
	"github.com/AntonStoeckl/signal-dispatch-go/signals"
)

type entityKey struct {
	tenantID   signals.TenantIDString
	targetType signals.TargetTypeString
	targetID   string
}

type appliedKey struct {
	targetKey string
	signalID  signals.SignalIDString
}

// MemoryEngine is a mutex-guarded in-memory implementation of
// dispatch.EntityRepository, dispatch.AppliedSignalLedger and
// dispatch.CommitStore.
//
// StoreAndRecord commits the entity and the applied-signal record under one
// lock acquisition, which gives the same all-or-nothing behavior the
// Postgres engine gets from a transaction.
type MemoryEngine struct {
	mu       sync.RWMutex
	entities map[entityKey]dispatch.Entity
	applied  map[appliedKey]struct{}
}

// NewMemoryEngine creates an empty MemoryEngine.
func NewMemoryEngine() *MemoryEngine {
	return &MemoryEngine{
		entities: make(map[entityKey]dispatch.Entity),
		applied:  make(map[appliedKey]struct{}),
	}
}

// Load implements dispatch.EntityRepository. Deleted entities are reported as
// absent; the tombstone itself stays to block silent re-creation in Store.
func (m *MemoryEngine) Load(
	_ context.Context,
	tenantID signals.TenantIDString,
	target signals.TargetID,
) (dispatch.Entity, bool, error) {

	m.mu.RLock()
	defer m.mu.RUnlock()

	entity, found := m.entities[keyOf(tenantID, target)]
	if !found || entity.Deleted {
		return dispatch.Entity{}, false, nil
	}

	return copyEntity(entity), true, nil
}

// Store implements dispatch.EntityRepository.
func (m *MemoryEngine) Store(
	_ context.Context,
	entity dispatch.Entity,
	expectedVersion dispatch.EntityVersionUint,
) error {

	m.mu.Lock()
	defer m.mu.Unlock()

	return m.storeLocked(entity, expectedVersion)
}

// MarkLifecycle implements dispatch.EntityRepository. Lifecycle flags change
// without moving the version; they are operational state, not handler state.
func (m *MemoryEngine) MarkLifecycle(
	_ context.Context,
	tenantID signals.TenantIDString,
	target signals.TargetID,
	change dispatch.LifecycleChange,
) error {

	m.mu.Lock()
	defer m.mu.Unlock()

	key := keyOf(tenantID, target)

	entity, found := m.entities[key]
	if !found {
		return dispatch.ErrEntityNotFound
	}

	if change.Archived != nil {
		entity.Archived = *change.Archived
	}

	if change.Deleted != nil {
		entity.Deleted = *change.Deleted
	}

	m.entities[key] = entity

	return nil
}

// WasApplied implements dispatch.AppliedSignalLedger.
func (m *MemoryEngine) WasApplied(
	_ context.Context,
	target signals.TargetID,
	signalID signals.SignalIDString,
) (bool, error) {

	m.mu.RLock()
	defer m.mu.RUnlock()

	_, applied := m.applied[appliedKey{targetKey: target.Key(), signalID: signalID}]

	return applied, nil
}

// RecordApplied implements dispatch.AppliedSignalLedger. Recording the same
// pair twice is a no-op.
func (m *MemoryEngine) RecordApplied(
	_ context.Context,
	target signals.TargetID,
	signalID signals.SignalIDString,
) error {

	m.mu.Lock()
	defer m.mu.Unlock()

	m.applied[appliedKey{targetKey: target.Key(), signalID: signalID}] = struct{}{}

	return nil
}

// StoreAndRecord implements dispatch.CommitStore. A signal that is already
// recorded as applied must not advance the entity again: the commit is
// refused as a conflict, and redelivery then drops the pair at the dedup
// check. This closes the race where a deliverer passes the ledger check
// before a concurrent deliverer of the same signal commits.
func (m *MemoryEngine) StoreAndRecord(
	_ context.Context,
	entity dispatch.Entity,
	expectedVersion dispatch.EntityVersionUint,
	signalID signals.SignalIDString,
) error {

	m.mu.Lock()
	defer m.mu.Unlock()

	record := appliedKey{targetKey: entity.Target.Key(), signalID: signalID}
	if _, alreadyApplied := m.applied[record]; alreadyApplied {
		return dispatch.ErrVersionConflict
	}

	if err := m.storeLocked(entity, expectedVersion); err != nil {
		return err
	}

	m.applied[record] = struct{}{}

	return nil
}

func (m *MemoryEngine) storeLocked(entity dispatch.Entity, expectedVersion dispatch.EntityVersionUint) error {
	key := keyOf(entity.TenantID, entity.Target)

	existing, found := m.entities[key]

	switch {
	case !found:
		if expectedVersion != 0 {
			return dispatch.ErrVersionConflict
		}

	case existing.Deleted:
		return dispatch.ErrEntityDeleted

	case existing.Version != expectedVersion:
		return dispatch.ErrVersionConflict
	}

	m.entities[key] = copyEntity(entity)

	return nil
}

func keyOf(tenantID signals.TenantIDString, target signals.TargetID) entityKey {
	return entityKey{tenantID: tenantID, targetType: target.Type, targetID: target.ID}
}

// copyEntity detaches the state bytes so callers cannot alias stored state.
func copyEntity(entity dispatch.Entity) dispatch.Entity {
	detached := entity
	detached.StateJSON = append([]byte(nil), entity.StateJSON...)

	return detached
}

var _ dispatch.EntityRepository = (*MemoryEngine)(nil)
var _ dispatch.AppliedSignalLedger = (*MemoryEngine)(nil)
var _ dispatch.CommitStore = (*MemoryEngine)(nil)
