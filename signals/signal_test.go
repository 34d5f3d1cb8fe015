package signals_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/signal-dispatch-go/signals"
)

func Test_BuildCommandSignal_AssignsFreshIdentityAndCausationRoot(t *testing.T) {
	// arrange
	target := signals.TargetID{Type: "account", ID: "acc-1"}

	// act
	sig, err := signals.BuildCommandSignal("tenant-1", target, "OpenAccount", []byte(`{"owner":"Ada"}`))

	// assert
	require.NoError(t, err)
	assert.NotEmpty(t, sig.ID)
	assert.Equal(t, signals.KindCommand, sig.Kind)
	assert.Equal(t, "OpenAccount", sig.Type)
	assert.Equal(t, target, sig.Target)
	assert.Equal(t, "tenant-1", sig.TenantID)
	assert.Equal(t, sig.ID, sig.CausationID)
	assert.Equal(t, sig.ID, sig.RootID)
	assert.False(t, sig.OccurredAt.IsZero())
}

func Test_BuildSignal_ValidationFailures(t *testing.T) {
	target := signals.TargetID{Type: "account", ID: "acc-1"}

	tests := []struct {
		name        string
		tenantID    string
		signalType  string
		payload     []byte
		expectedErr error
	}{
		{
			name:        "empty_tenant_id",
			tenantID:    "",
			signalType:  "OpenAccount",
			payload:     []byte(`{}`),
			expectedErr: signals.ErrEmptyTenantID,
		},
		{
			name:        "empty_signal_type",
			tenantID:    "tenant-1",
			signalType:  "",
			payload:     []byte(`{}`),
			expectedErr: signals.ErrEmptySignalType,
		},
		{
			name:        "invalid_payload_json",
			tenantID:    "tenant-1",
			signalType:  "OpenAccount",
			payload:     []byte(`{broken`),
			expectedErr: signals.ErrInvalidPayloadJSON,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := signals.BuildCommandSignal(tc.tenantID, target, tc.signalType, tc.payload)
			assert.ErrorIs(t, err, tc.expectedErr)
		})
	}
}

func Test_DeriveEvent_FormsCausationChain(t *testing.T) {
	// arrange
	origin, err := signals.BuildCommandSignal(
		"tenant-1",
		signals.TargetID{Type: "account", ID: "acc-1"},
		"WithdrawFunds",
		[]byte(`{}`),
	)
	require.NoError(t, err)

	derivedTarget := signals.TargetID{Type: "balances", ID: "tenant-1"}

	// act
	derived, deriveErr := origin.DeriveEvent(derivedTarget, "FundsWithdrawn", []byte(`{"amount_cents":100}`))

	// assert
	require.NoError(t, deriveErr)
	assert.NotEqual(t, origin.ID, derived.ID)
	assert.Equal(t, signals.KindEvent, derived.Kind)
	assert.Equal(t, derivedTarget, derived.Target)
	assert.Equal(t, origin.ID, derived.CausationID)
	assert.Equal(t, origin.RootID, derived.RootID)
	assert.Equal(t, origin.TenantID, derived.TenantID)
}

func Test_DeriveRejection_KeepsOriginTarget(t *testing.T) {
	// arrange
	origin, err := signals.BuildCommandSignal(
		"tenant-1",
		signals.TargetID{Type: "account", ID: "acc-1"},
		"WithdrawFunds",
		[]byte(`{}`),
	)
	require.NoError(t, err)

	// act
	rejection, deriveErr := origin.DeriveRejection("WithdrawalDeclined", []byte(`{"reason":"insufficient funds"}`))

	// assert
	require.NoError(t, deriveErr)
	assert.Equal(t, signals.KindRejection, rejection.Kind)
	assert.Equal(t, origin.Target, rejection.Target)
	assert.Equal(t, origin.ID, rejection.CausationID)
}

func Test_WithTarget_RoutesWithoutChangingIdentity(t *testing.T) {
	// arrange
	sig, err := signals.BuildEventSignal("tenant-1", signals.TargetID{}, "FundsWithdrawn", []byte(`{}`))
	require.NoError(t, err)
	require.True(t, sig.Target.IsZero())

	routed := signals.TargetID{Type: "settlement", ID: "acc-1"}

	// act
	routedSig := sig.WithTarget(routed)

	// assert
	assert.Equal(t, routed, routedSig.Target)
	assert.Equal(t, sig.ID, routedSig.ID)
	assert.Equal(t, sig.CausationID, routedSig.CausationID)
	assert.True(t, sig.Target.IsZero(), "the original signal must not be mutated")
}

func Test_TargetID_Key_IsStable(t *testing.T) {
	target := signals.TargetID{Type: "account", ID: "acc-1"}

	assert.Equal(t, "account/acc-1", target.Key())
	assert.Equal(t, target.Key(), target.Key())
}

func Test_Kind_String(t *testing.T) {
	tests := []struct {
		kind     signals.Kind
		expected string
	}{
		{signals.KindCommand, "command"},
		{signals.KindEvent, "event"},
		{signals.KindRejection, "rejection"},
		{signals.KindUnknown, "unknown"},
	}

	for _, tc := range tests {
		assert.Equal(t, tc.expected, tc.kind.String())
	}
}
