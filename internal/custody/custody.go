// Package custody defines the value-custody boundary. The settlement core
// never holds value accounting outside its own ledger fields; custody is a
// pure move-value oracle implemented by the host environment.
package custody

import "context"

// Custody moves value between users, the vault and the burn sink.
type Custody interface {
	// TransferIn pulls amount from the user into the vault.
	TransferIn(ctx context.Context, from string, amount int64) error

	// TransferOut pays amount from the vault to the user.
	TransferOut(ctx context.Context, to string, amount int64) error

	// Burn destroys amount held by the vault.
	Burn(ctx context.Context, amount int64) error
}
