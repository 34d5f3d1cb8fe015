package dispatch_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/signal-dispatch-go/dispatch"
)

func Test_TenantFromContext_WithoutBinding(t *testing.T) {
	tenantID, bound := dispatch.TenantFromContext(context.Background())

	assert.False(t, bound)
	assert.Empty(t, tenantID)
}

func Test_RunBoundToTenant_BindsForTheUnitOfWork(t *testing.T) {
	// arrange
	var observed string

	// act
	err := dispatch.RunBoundToTenant(context.Background(), "tenant-1", func(ctx context.Context) error {
		observed, _ = dispatch.TenantFromContext(ctx)
		return nil
	})

	// assert
	require.NoError(t, err)
	assert.Equal(t, "tenant-1", observed)
}

func Test_RunBoundToTenant_RejectsEmptyTenant(t *testing.T) {
	err := dispatch.RunBoundToTenant(context.Background(), "", func(_ context.Context) error {
		t.Fatal("unit of work must not run without a tenant")
		return nil
	})

	assert.ErrorIs(t, err, dispatch.ErrEmptyTenantBinding)
}

func Test_WithTenant_NestedBindingsRestoreOnUnwind(t *testing.T) {
	// arrange
	outer := dispatch.WithTenant(context.Background(), "tenant-outer")

	// act
	inner := dispatch.WithTenant(outer, "tenant-inner")

	// assert
	innerTenant, _ := dispatch.TenantFromContext(inner)
	assert.Equal(t, "tenant-inner", innerTenant)

	outerTenant, _ := dispatch.TenantFromContext(outer)
	assert.Equal(t, "tenant-outer", outerTenant)
}
