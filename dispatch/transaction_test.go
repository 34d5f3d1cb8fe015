package dispatch_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/AntonStoeckl/signal-dispatch-go/dispatch"
	"github.com/AntonStoeckl/signal-dispatch-go/signals"
)

func Test_BeginTransaction_SnapshotsStateAndVersion(t *testing.T) {
	// arrange
	entity := dispatch.Entity{
		Target:    signals.TargetID{Type: "account", ID: "acc-1"},
		TenantID:  "tenant-1",
		StateJSON: []byte(`{"balance_cents":100}`),
		Version:   7,
	}

	// act
	tx := dispatch.BeginTransaction(entity)

	// assert
	assert.Equal(t, entity.StateJSON, tx.StateJSON())
	assert.Equal(t, dispatch.EntityVersionUint(7), tx.Version())
	assert.False(t, tx.IsModified())
}

func Test_Transaction_SetStateJSON_MarksModified(t *testing.T) {
	// arrange
	tx := dispatch.BeginTransaction(dispatch.BuildFreshEntity("tenant-1", signals.TargetID{Type: "account", ID: "acc-1"}))

	// act
	tx.SetStateJSON([]byte(`{"opened":true}`))

	// assert
	assert.True(t, tx.IsModified())
	assert.Equal(t, []byte(`{"opened":true}`), tx.StateJSON())
}

func Test_Transaction_Entity_AppliesInTransactionState(t *testing.T) {
	// arrange
	original := dispatch.Entity{
		Target:    signals.TargetID{Type: "account", ID: "acc-1"},
		TenantID:  "tenant-1",
		StateJSON: []byte(`{}`),
		Version:   3,
	}
	tx := dispatch.BeginTransaction(original)
	tx.SetStateJSON([]byte(`{"opened":true}`))

	// act
	committed := tx.Entity()

	// assert
	assert.Equal(t, []byte(`{"opened":true}`), committed.StateJSON)
	assert.Equal(t, dispatch.EntityVersionUint(3), committed.Version)
	assert.Equal(t, original.Target, committed.Target)
	assert.Equal(t, []byte(`{}`), original.StateJSON, "the original entity must not be mutated")
}

func Test_Transaction_AbortIsDiscardingTheTransaction(t *testing.T) {
	// arrange
	entity := dispatch.Entity{
		Target:    signals.TargetID{Type: "account", ID: "acc-1"},
		TenantID:  "tenant-1",
		StateJSON: []byte(`{"balance_cents":100}`),
		Version:   1,
	}
	tx := dispatch.BeginTransaction(entity)
	tx.SetStateJSON([]byte(`{"balance_cents":0}`))

	// act: abort means simply not using the transaction any further

	// assert
	assert.Equal(t, []byte(`{"balance_cents":100}`), entity.StateJSON)
	assert.Equal(t, dispatch.EntityVersionUint(1), entity.Version)
}

func Test_LifecycleChange_Builders(t *testing.T) {
	assert.True(t, dispatch.LifecycleChange{}.IsZero())

	archive := dispatch.ArchiveChange()
	assert.False(t, archive.IsZero())
	assert.True(t, *archive.Archived)
	assert.Nil(t, archive.Deleted)

	remove := dispatch.DeleteChange()
	assert.False(t, remove.IsZero())
	assert.True(t, *remove.Deleted)
	assert.Nil(t, remove.Archived)
}
