package memory

import (
	"context"
	"errors"
	"sync"

	"ghostpool/internal/custody"
)

// ErrInsufficientBalance is returned when a user cannot cover a transfer-in.
var ErrInsufficientBalance = errors.New("insufficient balance")

// Custody is an in-memory implementation of custody.Custody. It tracks user
// balances, the vault balance and the cumulative burn so tests and the
// simulator can assert value conservation end to end.
type Custody struct {
	mu       sync.Mutex
	balances map[string]int64
	vault    int64
	burned   int64
}

// New creates an in-memory custody ledger.
func New() *Custody {
	return &Custody{balances: make(map[string]int64)}
}

// Credit funds a user balance. Test and simulator setup only.
func (c *Custody) Credit(user string, amount int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.balances[user] += amount
}

// TransferIn pulls amount from the user into the vault.
func (c *Custody) TransferIn(_ context.Context, from string, amount int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.balances[from] < amount {
		return ErrInsufficientBalance
	}
	c.balances[from] -= amount
	c.vault += amount
	return nil
}

// TransferOut pays amount from the vault to the user.
func (c *Custody) TransferOut(_ context.Context, to string, amount int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.vault -= amount
	c.balances[to] += amount
	return nil
}

// Burn destroys amount held by the vault.
func (c *Custody) Burn(_ context.Context, amount int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.vault -= amount
	c.burned += amount
	return nil
}

// Balance returns a user's balance.
func (c *Custody) Balance(user string) int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.balances[user]
}

// Vault returns the vault balance.
func (c *Custody) Vault() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.vault
}

// Burned returns the cumulative burned value.
func (c *Custody) Burned() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.burned
}

// Verify interface compliance at compile time.
var _ custody.Custody = (*Custody)(nil)
