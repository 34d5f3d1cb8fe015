package dispatch

import (
	"context"
	"errors"

	"github.com/AntonStoeckl/signal-dispatch-go/signals"
)

// ErrEmptyTenantBinding is returned when a unit of work requires a tenant but none is bound.
var ErrEmptyTenantBinding = errors.New("no tenant bound to context")

type tenantContextKey struct{}

// WithTenant binds a tenant to the context for the duration of one unit of
// work. The binding follows context scoping: nested operations inherit the
// innermost tenant, and the prior binding is restored simply by using the
// parent context again, on all exit paths.
func WithTenant(ctx context.Context, tenantID signals.TenantIDString) context.Context {
	return context.WithValue(ctx, tenantContextKey{}, tenantID)
}

// TenantFromContext returns the innermost bound tenant.
func TenantFromContext(ctx context.Context) (signals.TenantIDString, bool) {
	tenantID, ok := ctx.Value(tenantContextKey{}).(signals.TenantIDString)
	if !ok || tenantID == "" {
		return "", false
	}

	return tenantID, true
}

// RunBoundToTenant executes fn with the tenant bound to its context.
//
// Every pipeline admission and every dispatch endpoint invocation runs
// through it, so no signal is ever processed against the wrong tenant's
// storage partition. The binding is released when fn returns, including on
// error and panic paths, because it only ever lives on the derived context.
func RunBoundToTenant(
	ctx context.Context,
	tenantID signals.TenantIDString,
	fn func(ctx context.Context) error,
) error {

	if tenantID == "" {
		return ErrEmptyTenantBinding
	}

	return fn(WithTenant(ctx, tenantID))
}
