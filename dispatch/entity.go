package dispatch

import (
	"github.com/AntonStoeckl/signal-dispatch-go/signals"
)

// EntityVersionUint is a type alias for uint64, representing the monotonically
// increasing version of an entity, incremented once per committed dispatch.
type EntityVersionUint = uint64

// Entity is a DTO for the persisted record of a stateful target.
//
// It is built on scalars and an opaque JSON state to be completely agnostic
// of the domain types in the client code. The record is owned by the entity
// repository; the dispatch core reads it, applies exactly one signal to it
// within a transaction, and hands it back for a version-checked store.
type Entity struct {
	Target    signals.TargetID
	TenantID  signals.TenantIDString
	StateJSON []byte
	Version   EntityVersionUint
	Archived  bool
	Deleted   bool
}

// BuildFreshEntity creates a default-state entity at version zero, used when
// a signal arrives for a target that does not exist yet and the signal kind
// permits creation.
func BuildFreshEntity(tenantID signals.TenantIDString, target signals.TargetID) Entity {
	return Entity{
		Target:    target,
		TenantID:  tenantID,
		StateJSON: []byte("{}"),
		Version:   0,
	}
}

// LifecycleChange describes a requested change of an entity's lifecycle flags.
// Nil fields leave the respective flag untouched.
type LifecycleChange struct {
	Archived *bool
	Deleted  *bool
}

// IsZero reports whether the change would not touch any flag.
func (c LifecycleChange) IsZero() bool {
	return c.Archived == nil && c.Deleted == nil
}

// ArchiveChange builds a LifecycleChange marking an entity archived.
func ArchiveChange() LifecycleChange {
	archived := true
	return LifecycleChange{Archived: &archived}
}

// DeleteChange builds a LifecycleChange marking an entity deleted.
func DeleteChange() LifecycleChange {
	deleted := true
	return LifecycleChange{Deleted: &deleted}
}
