package shared

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTenantID(t *testing.T) {
	tenant, err := ParseTenantID(" 42 ")
	require.NoError(t, err)
	assert.Equal(t, TenantID(42), tenant)

	_, err = ParseTenantID("")
	assert.True(t, errors.Is(err, ErrTenantRequired))

	for _, raw := range []string{"abc", "0", "-3"} {
		_, err = ParseTenantID(raw)
		assert.True(t, errors.Is(err, ErrTenantInvalid), raw)
	}
}

func TestTenantContextRoundTrip(t *testing.T) {
	_, ok := TenantFromContext(context.Background())
	assert.False(t, ok)

	ctx := ContextWithTenant(context.Background(), 7)
	tenant, ok := TenantFromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, TenantID(7), tenant)
}
