package bank

import (
	sdkmath "cosmossdk.io/math"
)

// AssetLedger defines the interface to the external fungible-asset
// ledger the staking core moves balances through. All three
// operations may fail (insufficient balance or allowance); the core
// decides per call site whether a failure aborts the transaction or
// is tolerated.
type AssetLedger interface {
	// TransferFrom moves amount from the owner account into to,
	// consuming the allowance the owner granted to to.
	TransferFrom(from, to string, amount sdkmath.Int) error

	// Transfer moves amount directly between two accounts.
	Transfer(from, to string, amount sdkmath.Int) error

	// BalanceOf returns the current balance of an account. Unknown
	// accounts report zero.
	BalanceOf(account string) sdkmath.Int
}
