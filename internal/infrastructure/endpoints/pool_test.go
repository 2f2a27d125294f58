package endpoints_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/teleport-bridge/teleportd/internal/infrastructure/endpoints"
)

func TestPoolRotation(t *testing.T) {
	_, err := endpoints.NewPool(nil)
	require.Error(t, err)

	pool, err := endpoints.NewPool([]string{"a", "b", "c"})
	require.NoError(t, err)
	require.Equal(t, 3, pool.Len())

	require.Equal(t, "a", pool.Endpoint())
	require.Equal(t, "b", pool.Rotate())
	require.Equal(t, "b", pool.Endpoint())
	require.Equal(t, "c", pool.Rotate())

	// wraps around after the last endpoint
	require.Equal(t, "a", pool.Rotate())
	require.Equal(t, "a", pool.Endpoint())
}

func TestPoolAll(t *testing.T) {
	pool, err := endpoints.NewPool([]string{"a", "b", "c"})
	require.NoError(t, err)

	pool.Rotate()
	require.Equal(t, []string{"b", "c", "a"}, pool.All())
}
