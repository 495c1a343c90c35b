package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCustody_RoundTrip(t *testing.T) {
	ctx := context.Background()
	c := New()
	c.Credit("alice", 1000)

	require.NoError(t, c.TransferIn(ctx, "alice", 400))
	assert.Equal(t, int64(600), c.Balance("alice"))
	assert.Equal(t, int64(400), c.Vault())

	require.NoError(t, c.TransferOut(ctx, "alice", 150))
	assert.Equal(t, int64(750), c.Balance("alice"))
	assert.Equal(t, int64(250), c.Vault())

	require.NoError(t, c.Burn(ctx, 250))
	assert.Equal(t, int64(0), c.Vault())
	assert.Equal(t, int64(250), c.Burned())
}

func TestCustody_InsufficientBalance(t *testing.T) {
	c := New()
	c.Credit("bob", 10)

	err := c.TransferIn(context.Background(), "bob", 11)
	assert.ErrorIs(t, err, ErrInsufficientBalance)
	assert.Equal(t, int64(10), c.Balance("bob"))
	assert.Equal(t, int64(0), c.Vault())
}
