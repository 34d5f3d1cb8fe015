package pipeline_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/signal-dispatch-go/dispatch"
	"github.com/AntonStoeckl/signal-dispatch-go/dispatch/pipeline"
	"github.com/AntonStoeckl/signal-dispatch-go/signals"
	"github.com/AntonStoeckl/signal-dispatch-go/testutil/testdoubles"
)

type directoryStub struct {
	handled map[signals.SignalTypeString]bool
}

func (d *directoryStub) HandlesSignalType(signalType signals.SignalTypeString) bool {
	return d.handled[signalType]
}

type sinkSpy struct {
	enqueued []signals.Signal
	failWith error
}

func (s *sinkSpy) Enqueue(_ signals.TargetID, sig signals.Signal) error {
	if s.failWith != nil {
		return s.failWith
	}

	s.enqueued = append(s.enqueued, sig)

	return nil
}

func handlingDirectory(signalTypes ...signals.SignalTypeString) *directoryStub {
	handled := make(map[signals.SignalTypeString]bool, len(signalTypes))
	for _, signalType := range signalTypes {
		handled[signalType] = true
	}

	return &directoryStub{handled: handled}
}

func buildCommand(t *testing.T) signals.Signal {
	t.Helper()

	sig, err := signals.BuildCommandSignal(
		"tenant-1",
		signals.TargetID{Type: "account", ID: "acc-1"},
		"OpenAccount",
		[]byte(`{"owner":"Ada"}`),
	)
	require.NoError(t, err)

	return sig
}

func Test_PostingPipeline_Post_AdmitsValidSignal(t *testing.T) {
	// arrange
	sink := &sinkSpy{}
	metricsSpy := testdoubles.NewMetricsSpy()
	poster, err := pipeline.NewPostingPipeline(
		handlingDirectory("OpenAccount"),
		sink,
		pipeline.WithMetrics(metricsSpy),
	)
	require.NoError(t, err)

	sig := buildCommand(t)

	// act
	ack := poster.Post(context.Background(), sig)

	// assert
	assert.True(t, ack.IsAccepted())
	require.Len(t, sink.enqueued, 1)
	assert.Equal(t, sig.ID, sink.enqueued[0].ID)
	assert.True(t, metricsSpy.HasCounterRecord(dispatch.SignalsPostedMetric))
}

func Test_PostingPipeline_Post_RejectsInvalidSignals(t *testing.T) {
	// arrange
	sink := &sinkSpy{}
	poster, err := pipeline.NewPostingPipeline(handlingDirectory("OpenAccount"), sink)
	require.NoError(t, err)

	valid := buildCommand(t)

	tests := []struct {
		name   string
		mutate func(sig signals.Signal) signals.Signal
	}{
		{
			name: "empty_signal_id",
			mutate: func(sig signals.Signal) signals.Signal {
				sig.ID = ""
				return sig
			},
		},
		{
			name: "invalid_kind",
			mutate: func(sig signals.Signal) signals.Signal {
				sig.Kind = signals.KindUnknown
				return sig
			},
		},
		{
			name: "empty_signal_type",
			mutate: func(sig signals.Signal) signals.Signal {
				sig.Type = ""
				return sig
			},
		},
		{
			name: "empty_tenant_id",
			mutate: func(sig signals.Signal) signals.Signal {
				sig.TenantID = ""
				return sig
			},
		},
		{
			name: "invalid_payload_json",
			mutate: func(sig signals.Signal) signals.Signal {
				sig.PayloadJSON = []byte(`{broken`)
				return sig
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ack := poster.Post(context.Background(), tc.mutate(valid))

			assert.False(t, ack.IsAccepted())
			assert.Equal(t, dispatch.StageValidation, ack.Stage())
			assert.NotEmpty(t, ack.Reason())
		})
	}

	assert.Empty(t, sink.enqueued)
}

func Test_PostingPipeline_Post_DropsDeadSignals(t *testing.T) {
	// arrange
	sink := &sinkSpy{}
	metricsSpy := testdoubles.NewMetricsSpy()
	poster, err := pipeline.NewPostingPipeline(
		handlingDirectory("DepositFunds"),
		sink,
		pipeline.WithMetrics(metricsSpy),
	)
	require.NoError(t, err)

	// act
	ack := poster.Post(context.Background(), buildCommand(t))

	// assert
	assert.False(t, ack.IsAccepted())
	assert.Equal(t, dispatch.StageDeadSignal, ack.Stage())
	assert.Empty(t, sink.enqueued)
	assert.True(t, metricsSpy.HasCounterRecordWithLabel(dispatch.SignalsRejectedMetric, "stage", "dead_signal"))
}

func Test_PostingPipeline_Post_RunsRegisteredFiltersInOrder(t *testing.T) {
	// arrange
	var order []string
	sink := &sinkSpy{}
	poster, err := pipeline.NewPostingPipeline(
		handlingDirectory("OpenAccount"),
		sink,
		pipeline.WithFilters(
			pipeline.FilterFunc(func(_ context.Context, _ signals.Signal) error {
				order = append(order, "first")
				return nil
			}),
			pipeline.FilterFunc(func(_ context.Context, _ signals.Signal) error {
				order = append(order, "second")
				return nil
			}),
		),
	)
	require.NoError(t, err)

	// act
	ack := poster.Post(context.Background(), buildCommand(t))

	// assert
	assert.True(t, ack.IsAccepted())
	assert.Equal(t, []string{"first", "second"}, order)
}

func Test_PostingPipeline_Post_FilterRejectionCarriesReason(t *testing.T) {
	// arrange
	sink := &sinkSpy{}
	poster, err := pipeline.NewPostingPipeline(
		handlingDirectory("OpenAccount"),
		sink,
		pipeline.WithFilters(
			pipeline.FilterFunc(func(_ context.Context, _ signals.Signal) error {
				return pipeline.Reject("tenant is suspended")
			}),
		),
	)
	require.NoError(t, err)

	// act
	ack := poster.Post(context.Background(), buildCommand(t))

	// assert
	assert.False(t, ack.IsAccepted())
	assert.Equal(t, dispatch.StageFilters, ack.Stage())
	assert.Equal(t, "tenant is suspended", ack.Reason())
	assert.Empty(t, sink.enqueued)
}

func Test_PostingPipeline_Post_FilterRejectionWinsOverDeadSignalCheck(t *testing.T) {
	// arrange: the signal has no handler anywhere, but a registered filter
	// rejects it first; the producer must see the filter's reason
	sink := &sinkSpy{}
	poster, err := pipeline.NewPostingPipeline(
		handlingDirectory(),
		sink,
		pipeline.WithFilters(
			pipeline.FilterFunc(func(_ context.Context, _ signals.Signal) error {
				return pipeline.Reject("tenant is suspended")
			}),
		),
	)
	require.NoError(t, err)

	// act
	ack := poster.Post(context.Background(), buildCommand(t))

	// assert
	assert.False(t, ack.IsAccepted())
	assert.Equal(t, dispatch.StageFilters, ack.Stage())
	assert.Equal(t, "tenant is suspended", ack.Reason())
	assert.Empty(t, sink.enqueued)
}

func Test_PostingPipeline_Post_RoutesUnroutedSignalThroughRouter(t *testing.T) {
	// arrange
	sink := &sinkSpy{}
	routed := signals.TargetID{Type: "balances", ID: "tenant-1"}
	poster, err := pipeline.NewPostingPipeline(
		handlingDirectory("FundsDeposited"),
		sink,
		pipeline.WithRouter(func(_ signals.Signal) (signals.TargetID, error) {
			return routed, nil
		}),
	)
	require.NoError(t, err)

	sig, buildErr := signals.BuildEventSignal("tenant-1", signals.TargetID{}, "FundsDeposited", []byte(`{}`))
	require.NoError(t, buildErr)

	// act
	ack := poster.Post(context.Background(), sig)

	// assert
	assert.True(t, ack.IsAccepted())
	require.Len(t, sink.enqueued, 1)
	assert.Equal(t, routed, sink.enqueued[0].Target)
}

func Test_PostingPipeline_Post_RejectsUnroutedSignalWithoutRouter(t *testing.T) {
	// arrange
	sink := &sinkSpy{}
	poster, err := pipeline.NewPostingPipeline(handlingDirectory("FundsDeposited"), sink)
	require.NoError(t, err)

	sig, buildErr := signals.BuildEventSignal("tenant-1", signals.TargetID{}, "FundsDeposited", []byte(`{}`))
	require.NoError(t, buildErr)

	// act
	ack := poster.Post(context.Background(), sig)

	// assert
	assert.False(t, ack.IsAccepted())
	assert.Equal(t, dispatch.StageRouting, ack.Stage())
}

func Test_PostingPipeline_Post_ReportsSinkFailureAsDeliveryRejection(t *testing.T) {
	// arrange
	sink := &sinkSpy{failWith: errors.New("delivery lane is full")}
	poster, err := pipeline.NewPostingPipeline(handlingDirectory("OpenAccount"), sink)
	require.NoError(t, err)

	// act
	ack := poster.Post(context.Background(), buildCommand(t))

	// assert
	assert.False(t, ack.IsAccepted())
	assert.Equal(t, dispatch.StageDelivery, ack.Stage())
	assert.Equal(t, "delivery lane is full", ack.Reason())
}

func Test_NewPostingPipeline_ValidationFailures(t *testing.T) {
	_, err := pipeline.NewPostingPipeline(nil, &sinkSpy{})
	assert.ErrorIs(t, err, pipeline.ErrNilDirectorySupplied)

	_, err = pipeline.NewPostingPipeline(handlingDirectory(), nil)
	assert.ErrorIs(t, err, pipeline.ErrNilSinkSupplied)
}
