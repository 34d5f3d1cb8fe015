package signals

import (
	"encoding/json"
	"errors"
	"time"

	jsoniter "github.com/json-iterator/go"
)

// ErrMarshalingSignalFailed is returned when signal serialization fails.
var ErrMarshalingSignalFailed = errors.New("marshaling signal failed")

// ErrUnmarshalingSignalFailed is returned when signal deserialization fails.
var ErrUnmarshalingSignalFailed = errors.New("unmarshaling signal failed")

// signalEnvelope is the wire shape of a Signal, used by transport adapters
// and durable queues that need to carry signals across process boundaries.
type signalEnvelope struct {
	ID          string          `json:"id"`
	Kind        string          `json:"kind"`
	Type        string          `json:"type"`
	TargetType  string          `json:"targetType"`
	TargetID    string          `json:"targetId"`
	TenantID    string          `json:"tenantId"`
	Payload     json.RawMessage `json:"payload"`
	CausationID string          `json:"causationId"`
	RootID      string          `json:"rootId"`
	OccurredAt  time.Time       `json:"occurredAt"`
}

// SignalToJSON serializes a Signal to its wire shape.
func SignalToJSON(sig Signal) ([]byte, error) {
	envelope := signalEnvelope{
		ID:          sig.ID,
		Kind:        sig.Kind.String(),
		Type:        sig.Type,
		TargetType:  sig.Target.Type,
		TargetID:    sig.Target.ID,
		TenantID:    sig.TenantID,
		Payload:     sig.PayloadJSON,
		CausationID: sig.CausationID,
		RootID:      sig.RootID,
		OccurredAt:  sig.OccurredAt,
	}

	data, err := jsoniter.ConfigFastest.Marshal(envelope)
	if err != nil {
		return nil, errors.Join(ErrMarshalingSignalFailed, err)
	}

	return data, nil
}

// SignalFromJSON deserializes a Signal from its wire shape.
func SignalFromJSON(data []byte) (Signal, error) {
	envelope := new(signalEnvelope)
	if err := jsoniter.ConfigFastest.Unmarshal(data, envelope); err != nil {
		return Signal{}, errors.Join(ErrUnmarshalingSignalFailed, err)
	}

	kind, err := kindFromString(envelope.Kind)
	if err != nil {
		return Signal{}, errors.Join(ErrUnmarshalingSignalFailed, err)
	}

	return Signal{
		ID:          envelope.ID,
		Kind:        kind,
		Type:        envelope.Type,
		Target:      TargetID{Type: envelope.TargetType, ID: envelope.TargetID},
		TenantID:    envelope.TenantID,
		PayloadJSON: envelope.Payload,
		CausationID: envelope.CausationID,
		RootID:      envelope.RootID,
		OccurredAt:  envelope.OccurredAt,
	}, nil
}

func kindFromString(kind string) (Kind, error) {
	switch kind {
	case KindCommand.String():
		return KindCommand, nil
	case KindEvent.String():
		return KindEvent, nil
	case KindRejection.String():
		return KindRejection, nil
	default:
		return KindUnknown, ErrInvalidSignalKind
	}
}
