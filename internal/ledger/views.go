/*

This file contains the read-only snapshot views: they recompute
pending yield and lock status on demand and never mutate state. Each
takes the read lock so the HTTP goroutines never observe a
transaction mid-mutation.

*/

package ledger

import (
	sdkmath "cosmossdk.io/math"

	"github.com/ringfi/ringstake/internal/types"
)

// PoolSnapshot returns one ring's configuration and ledger.
func (l *Ledger) PoolSnapshot(pool types.PoolID) (types.PoolSnapshot, error) {
	if err := l.checkPool(pool); err != nil {
		return types.PoolSnapshot{}, err
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	return types.PoolSnapshot{
		ID:     pool,
		Config: l.configs[pool],
		State:  l.states[pool],
	}, nil
}

// Snapshots returns all rings in index order.
func (l *Ledger) Snapshots() []types.PoolSnapshot {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]types.PoolSnapshot, types.NumPools)
	for i := range l.states {
		out[i] = types.PoolSnapshot{
			ID:     types.PoolID(i),
			Config: l.configs[i],
			State:  l.states[i],
		}
	}
	return out
}

// PositionView returns an account's position in a ring with derived
// asset value, pending yield and lock status. Accounts that never
// deposited report an empty, unlocked position.
func (l *Ledger) PositionView(pool types.PoolID, account string) (types.PositionView, error) {
	if err := l.checkPool(pool); err != nil {
		return types.PositionView{}, err
	}

	view := types.PositionView{
		Pool:         pool,
		Account:      account,
		Shares:       sdkmath.ZeroInt(),
		AssetValue:   sdkmath.ZeroInt(),
		PendingYield: sdkmath.ZeroInt(),
	}

	l.mu.RLock()
	defer l.mu.RUnlock()
	pos, ok := l.positions[types.PositionKey{Pool: pool, Account: account}]
	if !ok {
		return view, nil
	}

	st := &l.states[pool]
	view.Shares = pos.Shares
	view.AssetValue = sharesToAssets(pos.Shares, st)
	view.PendingYield = pendingYield(pos, st.AccPerShare)
	view.UnlockAt = lockExpiry(pos, &l.configs[pool])
	view.Locked = pos.Shares.IsPositive() && l.now().Before(view.UnlockAt)

	return view, nil
}

// Paused reports the pause flag.
func (l *Ledger) Paused() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.paused
}

// Account returns the ledger's own account on the asset ledger.
func (l *Ledger) Account() string {
	return l.account
}

// VaultBalance returns the asset-ledger balance backing the rings
// (principal plus undistributed yield and any surplus).
func (l *Ledger) VaultBalance() sdkmath.Int {
	return l.bank.BalanceOf(l.account)
}
