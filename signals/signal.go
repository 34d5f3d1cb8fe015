package signals

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

var ErrInvalidPayloadJSON = errors.New("payload json is not valid")
var ErrEmptyTenantID = errors.New("empty tenantID supplied")
var ErrEmptySignalType = errors.New("empty signalType supplied")
var ErrInvalidSignalKind = errors.New("invalid signal kind")

// SignalIDString is a type alias for string, representing a unique, producer-assigned signal id.
type SignalIDString = string

// SignalTypeString is a type alias for string, naming the payload schema of a
// signal (e.g. "OpenAccount", "AccountOpened"). Handler resolution and the
// dead-signal check key on it.
type SignalTypeString = string

// TenantIDString is a type alias for string, representing the tenant a signal belongs to.
type TenantIDString = string

// TargetTypeString is a type alias for string, representing the type of a stateful target.
type TargetTypeString = string

// Signals is an alias type for a slice of Signal.
type Signals = []Signal

// Kind distinguishes the three signal flavors flowing through the pipeline.
type Kind uint8

const (
	KindUnknown Kind = iota
	KindCommand
	KindEvent
	KindRejection
)

// String returns a stable lowercase name for the Kind, suitable for log attributes and metrics labels.
func (k Kind) String() string {
	switch k {
	case KindCommand:
		return "command"
	case KindEvent:
		return "event"
	case KindRejection:
		return "rejection"
	default:
		return "unknown"
	}
}

// TargetID identifies the stateful entity a signal is routed to.
//
// Type names the kind of target (e.g. "account", "settlement") and ID the
// concrete instance. A zero TargetID means the signal has not been routed yet.
type TargetID struct {
	Type TargetTypeString
	ID   string
}

// IsZero reports whether the TargetID has not been resolved yet.
func (t TargetID) IsZero() bool {
	return t.Type == "" && t.ID == ""
}

// Key returns a stable string key for the TargetID, used for shard assignment and de-duplication.
func (t TargetID) Key() string {
	return t.Type + "/" + t.ID
}

// Signal is the immutable envelope flowing through the dispatch pipeline.
//
// It is built on scalars and an opaque JSON payload to be completely agnostic
// of the domain types in the client code.
//
// While its properties are exported, it should only be constructed with the
// supplied factory methods:
//   - BuildCommandSignal
//   - BuildEventSignal
//   - BuildRejectionSignal
//
// and derived from an existing Signal with:
//   - DeriveCommand
//   - DeriveEvent
//   - DeriveRejection
type Signal struct {
	ID          SignalIDString
	Kind        Kind
	Type        SignalTypeString
	Target      TargetID
	TenantID    TenantIDString
	PayloadJSON []byte
	CausationID SignalIDString
	RootID      SignalIDString
	OccurredAt  time.Time
}

// BuildCommandSignal is a factory method for a Signal of KindCommand.
//
// It assigns a fresh id and sets the causation chain root to that id.
// Returns an error if payloadJSON is not valid JSON, or tenantID or signalType is empty.
func BuildCommandSignal(tenantID TenantIDString, target TargetID, signalType SignalTypeString, payloadJSON []byte) (Signal, error) {
	return buildSignal(KindCommand, tenantID, target, signalType, payloadJSON)
}

// BuildEventSignal is a factory method for a Signal of KindEvent.
//
// It assigns a fresh id and sets the causation chain root to that id.
// Returns an error if payloadJSON is not valid JSON, or tenantID or signalType is empty.
func BuildEventSignal(tenantID TenantIDString, target TargetID, signalType SignalTypeString, payloadJSON []byte) (Signal, error) {
	return buildSignal(KindEvent, tenantID, target, signalType, payloadJSON)
}

// BuildRejectionSignal is a factory method for a Signal of KindRejection.
//
// It assigns a fresh id and sets the causation chain root to that id.
// Returns an error if payloadJSON is not valid JSON, or tenantID or signalType is empty.
func BuildRejectionSignal(tenantID TenantIDString, target TargetID, signalType SignalTypeString, payloadJSON []byte) (Signal, error) {
	return buildSignal(KindRejection, tenantID, target, signalType, payloadJSON)
}

func buildSignal(
	kind Kind,
	tenantID TenantIDString,
	target TargetID,
	signalType SignalTypeString,
	payloadJSON []byte,
) (Signal, error) {

	if tenantID == "" {
		return Signal{}, ErrEmptyTenantID
	}

	if signalType == "" {
		return Signal{}, ErrEmptySignalType
	}

	if !json.Valid(payloadJSON) {
		return Signal{}, ErrInvalidPayloadJSON
	}

	id := uuid.New().String()

	return Signal{
		ID:          id,
		Kind:        kind,
		Type:        signalType,
		Target:      target,
		TenantID:    tenantID,
		PayloadJSON: payloadJSON,
		CausationID: id,
		RootID:      id,
		OccurredAt:  time.Now().UTC(),
	}, nil
}

// DeriveCommand builds a new command Signal caused by s.
//
// The derived signal carries a fresh id, s.ID as CausationID, and inherits
// s.RootID and s.TenantID, forming the causation chain used for tracing and
// idempotence keys.
func (s Signal) DeriveCommand(target TargetID, signalType SignalTypeString, payloadJSON []byte) (Signal, error) {
	return s.derive(KindCommand, target, signalType, payloadJSON)
}

// DeriveEvent builds a new event Signal caused by s. See DeriveCommand for the causation chain rules.
func (s Signal) DeriveEvent(target TargetID, signalType SignalTypeString, payloadJSON []byte) (Signal, error) {
	return s.derive(KindEvent, target, signalType, payloadJSON)
}

// DeriveRejection builds a new rejection Signal caused by s. See DeriveCommand for the causation chain rules.
func (s Signal) DeriveRejection(signalType SignalTypeString, payloadJSON []byte) (Signal, error) {
	return s.derive(KindRejection, s.Target, signalType, payloadJSON)
}

func (s Signal) derive(kind Kind, target TargetID, signalType SignalTypeString, payloadJSON []byte) (Signal, error) {
	if signalType == "" {
		return Signal{}, ErrEmptySignalType
	}

	if !json.Valid(payloadJSON) {
		return Signal{}, ErrInvalidPayloadJSON
	}

	return Signal{
		ID:          uuid.New().String(),
		Kind:        kind,
		Type:        signalType,
		Target:      target,
		TenantID:    s.TenantID,
		PayloadJSON: payloadJSON,
		CausationID: s.ID,
		RootID:      s.RootID,
		OccurredAt:  time.Now().UTC(),
	}, nil
}

// WithTarget returns a copy of the Signal routed to the given target.
// It is the only sanctioned "mutation": routing a signal whose target was
// unknown at production time. The id and causation chain are unchanged.
func (s Signal) WithTarget(target TargetID) Signal {
	s.Target = target
	return s
}
