package signals_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/signal-dispatch-go/signals"
)

func Test_SignalToJSON_And_SignalFromJSON_RoundTrip(t *testing.T) {
	// arrange
	origin, err := signals.BuildCommandSignal(
		"tenant-1",
		signals.TargetID{Type: "account", ID: "acc-1"},
		"WithdrawFunds",
		[]byte(`{"amount_cents":100}`),
	)
	require.NoError(t, err)

	derived, err := origin.DeriveEvent(
		signals.TargetID{Type: "balances", ID: "tenant-1"},
		"FundsWithdrawn",
		[]byte(`{"amount_cents":100}`),
	)
	require.NoError(t, err)

	// act
	data, marshalErr := signals.SignalToJSON(derived)
	require.NoError(t, marshalErr)

	decoded, unmarshalErr := signals.SignalFromJSON(data)

	// assert
	require.NoError(t, unmarshalErr)
	assert.Equal(t, derived.ID, decoded.ID)
	assert.Equal(t, signals.KindEvent, decoded.Kind)
	assert.Equal(t, derived.Type, decoded.Type)
	assert.Equal(t, derived.Target, decoded.Target)
	assert.Equal(t, derived.TenantID, decoded.TenantID)
	assert.JSONEq(t, string(derived.PayloadJSON), string(decoded.PayloadJSON))
	assert.Equal(t, derived.CausationID, decoded.CausationID)
	assert.Equal(t, derived.RootID, decoded.RootID)
	assert.True(t, derived.OccurredAt.Equal(decoded.OccurredAt))
}

func Test_SignalFromJSON_FailsForMalformedInput(t *testing.T) {
	_, err := signals.SignalFromJSON([]byte(`{broken`))

	assert.ErrorIs(t, err, signals.ErrUnmarshalingSignalFailed)
}

func Test_SignalFromJSON_FailsForUnknownKind(t *testing.T) {
	// arrange
	data := []byte(`{"id":"sig-1","kind":"notification","type":"Foo","tenantId":"tenant-1","payload":{}}`)

	// act
	_, err := signals.SignalFromJSON(data)

	// assert
	assert.ErrorIs(t, err, signals.ErrUnmarshalingSignalFailed)
	assert.ErrorIs(t, err, signals.ErrInvalidSignalKind)
}
