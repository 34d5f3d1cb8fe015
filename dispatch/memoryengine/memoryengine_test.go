package memoryengine_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/signal-dispatch-go/dispatch"
	"github.com/AntonStoeckl/signal-dispatch-go/dispatch/memoryengine"
	"github.com/AntonStoeckl/signal-dispatch-go/signals"
)

var accountTarget = signals.TargetID{Type: "account", ID: "acc-1"}

func storedAccount(t *testing.T, engine *memoryengine.MemoryEngine, version dispatch.EntityVersionUint) dispatch.Entity {
	t.Helper()

	entity := dispatch.Entity{
		Target:    accountTarget,
		TenantID:  "tenant-1",
		StateJSON: []byte(`{"opened":true}`),
		Version:   version,
	}
	require.NoError(t, engine.Store(context.Background(), entity, version-1))

	return entity
}

func Test_MemoryEngine_Load_ReportsUnknownTargetAsAbsent(t *testing.T) {
	engine := memoryengine.NewMemoryEngine()

	_, found, err := engine.Load(context.Background(), "tenant-1", accountTarget)

	require.NoError(t, err)
	assert.False(t, found)
}

func Test_MemoryEngine_StoreAndLoad_RoundTrip(t *testing.T) {
	// arrange
	engine := memoryengine.NewMemoryEngine()
	stored := storedAccount(t, engine, 1)

	// act
	loaded, found, err := engine.Load(context.Background(), "tenant-1", accountTarget)

	// assert
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, stored.StateJSON, loaded.StateJSON)
	assert.Equal(t, dispatch.EntityVersionUint(1), loaded.Version)
}

func Test_MemoryEngine_Load_DetachesStateBytes(t *testing.T) {
	// arrange
	engine := memoryengine.NewMemoryEngine()
	storedAccount(t, engine, 1)

	loaded, _, err := engine.Load(context.Background(), "tenant-1", accountTarget)
	require.NoError(t, err)

	// act: scribbling over the loaded state must not leak into the store
	loaded.StateJSON[2] = 'X'

	// assert
	reloaded, _, err := engine.Load(context.Background(), "tenant-1", accountTarget)
	require.NoError(t, err)
	assert.Equal(t, []byte(`{"opened":true}`), reloaded.StateJSON)
}

func Test_MemoryEngine_Store_DetectsVersionConflicts(t *testing.T) {
	// arrange
	engine := memoryengine.NewMemoryEngine()
	entity := storedAccount(t, engine, 1)

	tests := []struct {
		name            string
		expectedVersion dispatch.EntityVersionUint
	}{
		{name: "stale_expected_version", expectedVersion: 0},
		{name: "future_expected_version", expectedVersion: 2},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			entity.Version = tc.expectedVersion + 1

			err := engine.Store(context.Background(), entity, tc.expectedVersion)

			assert.ErrorIs(t, err, dispatch.ErrVersionConflict)
		})
	}
}

func Test_MemoryEngine_Store_RejectsCreationWithNonZeroExpectedVersion(t *testing.T) {
	engine := memoryengine.NewMemoryEngine()
	entity := dispatch.Entity{
		Target:    accountTarget,
		TenantID:  "tenant-1",
		StateJSON: []byte(`{}`),
		Version:   4,
	}

	err := engine.Store(context.Background(), entity, 3)

	assert.ErrorIs(t, err, dispatch.ErrVersionConflict)
}

func Test_MemoryEngine_DeletedEntity_ActsAsTombstone(t *testing.T) {
	// arrange
	engine := memoryengine.NewMemoryEngine()
	entity := storedAccount(t, engine, 1)

	require.NoError(t, engine.MarkLifecycle(context.Background(), "tenant-1", accountTarget, dispatch.DeleteChange()))

	// assert: a normal load reports the entity as absent
	_, found, loadErr := engine.Load(context.Background(), "tenant-1", accountTarget)
	require.NoError(t, loadErr)
	assert.False(t, found)

	// assert: re-creation attempts are blocked by the tombstone
	entity.Version = 1
	storeErr := engine.Store(context.Background(), entity, 0)
	assert.ErrorIs(t, storeErr, dispatch.ErrEntityDeleted)
}

func Test_MemoryEngine_MarkLifecycle_ArchivesWithoutMovingVersion(t *testing.T) {
	// arrange
	engine := memoryengine.NewMemoryEngine()
	storedAccount(t, engine, 1)

	// act
	err := engine.MarkLifecycle(context.Background(), "tenant-1", accountTarget, dispatch.ArchiveChange())

	// assert
	require.NoError(t, err)

	loaded, found, loadErr := engine.Load(context.Background(), "tenant-1", accountTarget)
	require.NoError(t, loadErr)
	require.True(t, found)
	assert.True(t, loaded.Archived)
	assert.Equal(t, dispatch.EntityVersionUint(1), loaded.Version)
}

func Test_MemoryEngine_MarkLifecycle_FailsForUnknownTarget(t *testing.T) {
	engine := memoryengine.NewMemoryEngine()

	err := engine.MarkLifecycle(context.Background(), "tenant-1", accountTarget, dispatch.ArchiveChange())

	assert.ErrorIs(t, err, dispatch.ErrEntityNotFound)
}

func Test_MemoryEngine_Ledger_RecordsIdempotently(t *testing.T) {
	// arrange
	engine := memoryengine.NewMemoryEngine()
	ctx := context.Background()

	applied, err := engine.WasApplied(ctx, accountTarget, "sig-1")
	require.NoError(t, err)
	require.False(t, applied)

	// act
	require.NoError(t, engine.RecordApplied(ctx, accountTarget, "sig-1"))
	require.NoError(t, engine.RecordApplied(ctx, accountTarget, "sig-1"))

	// assert
	applied, err = engine.WasApplied(ctx, accountTarget, "sig-1")
	require.NoError(t, err)
	assert.True(t, applied)

	otherTarget := signals.TargetID{Type: "account", ID: "acc-2"}
	applied, err = engine.WasApplied(ctx, otherTarget, "sig-1")
	require.NoError(t, err)
	assert.False(t, applied, "the ledger is scoped per target")
}

func Test_MemoryEngine_StoreAndRecord_RefusesAlreadyRecordedSignal(t *testing.T) {
	// arrange: the signal passed the dedup check, then a concurrent deliverer committed it
	engine := memoryengine.NewMemoryEngine()
	ctx := context.Background()
	storedAccount(t, engine, 1)
	require.NoError(t, engine.RecordApplied(ctx, accountTarget, "sig-1"))

	reapplied := dispatch.Entity{
		Target:    accountTarget,
		TenantID:  "tenant-1",
		StateJSON: []byte(`{"opened":true,"applied_twice":true}`),
		Version:   2,
	}

	// act
	err := engine.StoreAndRecord(ctx, reapplied, 1, "sig-1")

	// assert: the entity must not advance a second time for the same signal
	assert.ErrorIs(t, err, dispatch.ErrVersionConflict)

	loaded, found, loadErr := engine.Load(context.Background(), "tenant-1", accountTarget)
	require.NoError(t, loadErr)
	require.True(t, found)
	assert.Equal(t, dispatch.EntityVersionUint(1), loaded.Version)
	assert.Equal(t, []byte(`{"opened":true}`), loaded.StateJSON)
}

func Test_MemoryEngine_StoreAndRecord_CommitsBothOrNothing(t *testing.T) {
	// arrange
	engine := memoryengine.NewMemoryEngine()
	ctx := context.Background()
	entity := dispatch.Entity{
		Target:    accountTarget,
		TenantID:  "tenant-1",
		StateJSON: []byte(`{"opened":true}`),
		Version:   1,
	}

	// act
	require.NoError(t, engine.StoreAndRecord(ctx, entity, 0, "sig-1"))

	// assert
	applied, err := engine.WasApplied(ctx, accountTarget, "sig-1")
	require.NoError(t, err)
	assert.True(t, applied)

	// act: a conflicting commit must record nothing
	entity.Version = 1
	storeErr := engine.StoreAndRecord(ctx, entity, 0, "sig-2")

	// assert
	assert.ErrorIs(t, storeErr, dispatch.ErrVersionConflict)

	applied, err = engine.WasApplied(ctx, accountTarget, "sig-2")
	require.NoError(t, err)
	assert.False(t, applied)
}
