/*

This file contains the in-memory implementation of the asset ledger,
used by the daemon for local operation and by tests. It models the
balance/allowance semantics of a standard fungible token.

*/

package bank

import (
	"fmt"
	"sync"

	sdkmath "cosmossdk.io/math"

	"github.com/ringfi/ringstake/internal/logger"
)

var bankLogger = logger.GetForComponent("asset_bank")

// MemoryBank is a thread-safe in-memory AssetLedger.
type MemoryBank struct {
	mu         sync.Mutex
	balances   map[string]sdkmath.Int
	allowances map[string]map[string]sdkmath.Int // owner -> spender -> remaining
}

// NewMemoryBank returns an empty in-memory asset ledger.
func NewMemoryBank() *MemoryBank {
	return &MemoryBank{
		balances:   make(map[string]sdkmath.Int),
		allowances: make(map[string]map[string]sdkmath.Int),
	}
}

// Mint credits amount to an account out of thin air.
func (b *MemoryBank) Mint(account string, amount sdkmath.Int) {
	if !amount.IsPositive() {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.balances[account] = b.balance(account).Add(amount)
	bankLogger.Debug().Str("account", account).Str("amount", amount.String()).Msg("Minted balance")
}

// Approve sets the allowance an owner grants a spender. It replaces
// any previous allowance rather than adding to it.
func (b *MemoryBank) Approve(owner, spender string, amount sdkmath.Int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	grants, ok := b.allowances[owner]
	if !ok {
		grants = make(map[string]sdkmath.Int)
		b.allowances[owner] = grants
	}
	grants[spender] = amount
}

// Allowance returns the remaining allowance from owner to spender.
func (b *MemoryBank) Allowance(owner, spender string) sdkmath.Int {
	b.mu.Lock()
	defer b.mu.Unlock()
	if grants, ok := b.allowances[owner]; ok {
		if a, ok := grants[spender]; ok && !a.IsNil() {
			return a
		}
	}
	return sdkmath.ZeroInt()
}

// TransferFrom implements AssetLedger.
func (b *MemoryBank) TransferFrom(from, to string, amount sdkmath.Int) error {
	if err := validAmount(amount); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	grants := b.allowances[from]
	allowance := sdkmath.ZeroInt()
	if grants != nil {
		if a, ok := grants[to]; ok && !a.IsNil() {
			allowance = a
		}
	}
	if allowance.LT(amount) {
		return fmt.Errorf("insufficient allowance from %s to %s: have %s, need %s",
			from, to, allowance.String(), amount.String())
	}
	if err := b.move(from, to, amount); err != nil {
		return err
	}
	grants[to] = allowance.Sub(amount)
	return nil
}

// Transfer implements AssetLedger.
func (b *MemoryBank) Transfer(from, to string, amount sdkmath.Int) error {
	if err := validAmount(amount); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.move(from, to, amount)
}

// BalanceOf implements AssetLedger.
func (b *MemoryBank) BalanceOf(account string) sdkmath.Int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.balance(account)
}

// move debits from and credits to. Callers must hold the lock.
func (b *MemoryBank) move(from, to string, amount sdkmath.Int) error {
	fromBal := b.balance(from)
	if fromBal.LT(amount) {
		return fmt.Errorf("insufficient balance in %s: have %s, need %s",
			from, fromBal.String(), amount.String())
	}
	b.balances[from] = fromBal.Sub(amount)
	b.balances[to] = b.balance(to).Add(amount)
	return nil
}

// balance reads an account balance without locking.
func (b *MemoryBank) balance(account string) sdkmath.Int {
	if bal, ok := b.balances[account]; ok && !bal.IsNil() {
		return bal
	}
	return sdkmath.ZeroInt()
}

func validAmount(amount sdkmath.Int) error {
	if amount.IsNil() {
		return fmt.Errorf("transfer amount is nil")
	}
	if amount.IsNegative() {
		return fmt.Errorf("transfer amount is negative: %s", amount.String())
	}
	return nil
}
