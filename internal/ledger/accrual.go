/*

This file contains the accrual engine: the fixed-point arithmetic
tying a ring's cumulative yield-per-share accumulator to each
position's reward-debt checkpoint, and the share<->asset conversion
used by every transaction. All intermediates are computed at full
width (sdkmath.Int is arbitrary precision) with a single truncating
division at the end.

*/

package ledger

import (
	sdkmath "cosmossdk.io/math"

	"github.com/ringfi/ringstake/internal/types"
)

// pendingYield returns shares*accPerShare/Scale - rewardDebt. Under
// correct bookkeeping the result is never negative.
func pendingYield(pos *types.Position, accPerShare sdkmath.Int) sdkmath.Int {
	return pos.Shares.Mul(accPerShare).Quo(types.Scale).Sub(pos.RewardDebt)
}

// settleRewardDebt re-stamps the checkpoint from the current
// (post-mutation) share count, zeroing the position's pending yield.
// Used when pending has just been settled (harvest, withdraw,
// migration source).
func settleRewardDebt(pos *types.Position, accPerShare sdkmath.Int) {
	pos.RewardDebt = pos.Shares.Mul(accPerShare).Quo(types.Scale)
}

// restampPreserving re-stamps the checkpoint from the post-mutation
// share count while keeping previously accrued, unclaimed yield in
// place. Used when shares change without a payout (deposit,
// migration destination). preserved must be the pending yield
// computed before the share mutation.
func restampPreserving(pos *types.Position, accPerShare, preserved sdkmath.Int) {
	pos.RewardDebt = pos.Shares.Mul(accPerShare).Quo(types.Scale).Sub(preserved)
}

// sharesToAssets converts shares to assets at the ring's current
// valuation: shares * totalAssets / totalShares. An empty ring
// redeems to zero rather than dividing by zero.
func sharesToAssets(shares sdkmath.Int, st *types.PoolState) sdkmath.Int {
	if st.TotalShares.IsZero() {
		return sdkmath.ZeroInt()
	}
	return shares.Mul(st.TotalAssets).Quo(st.TotalShares)
}

// sharesForDeposit returns the shares minted for a deposit of amount
// at the ring's current valuation. The first depositor bootstraps
// 1:1; a ring whose assets rounded down to zero while shares remain
// also mints 1:1 to avoid a zero divisor.
func sharesForDeposit(amount sdkmath.Int, st *types.PoolState) sdkmath.Int {
	if st.TotalShares.IsZero() || st.TotalAssets.IsZero() {
		return amount
	}
	return amount.Mul(st.TotalShares).Quo(st.TotalAssets)
}

// accrualDelta returns the accumulator increment for a net yield
// injection: net*Scale*amplifier/(totalShares*Scale). The double
// Scale composes two 1e18-scaled quantities; amplifier > 1e18 turns
// the same net yield into proportionally larger per-share accrual.
// totalShares must be non-zero.
func accrualDelta(net, amplifier, totalShares sdkmath.Int) sdkmath.Int {
	return net.Mul(types.Scale).Mul(amplifier).Quo(totalShares.Mul(types.Scale))
}

// minInt returns the smaller of two Ints.
func minInt(a, b sdkmath.Int) sdkmath.Int {
	if a.LT(b) {
		return a
	}
	return b
}
