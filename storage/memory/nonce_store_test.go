package memorystore_test

import (
	"context"
	"testing"

	"github.com/PaulFidika/quickauth/nonce"
	memorystore "github.com/PaulFidika/quickauth/storage/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	_ nonce.Store   = (*memorystore.NonceStore)(nil)
	_ nonce.Expirer = (*memorystore.NonceStore)(nil)
)

func TestNonceStore(t *testing.T) {
	ctx := context.Background()
	s := memorystore.NewNonceStore()

	_, ok, err := s.Get(ctx, "n1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Put(ctx, "n1", 1000))
	require.NoError(t, s.Put(ctx, "n2", 2000))
	exp, ok, err := s.Get(ctx, "n1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(1000), exp)

	n, err := s.DeleteExpired(ctx, 1000)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.Equal(t, 1, s.Len())

	require.NoError(t, s.Delete(ctx, "n2"))
	require.NoError(t, s.Delete(ctx, "n2"))
	assert.Equal(t, 0, s.Len())
}
