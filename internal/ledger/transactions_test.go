package ledger

import (
	"testing"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/stretchr/testify/require"

	"github.com/ringfi/ringstake/internal/types"
)

func TestDepositBootstrapOneToOne(t *testing.T) {
	env := newTestEnv(t, nil)

	minted, err := env.ledger.Deposit(alice, 0, i(1000))
	require.NoError(t, err)
	require.Equal(t, int64(1000), minted.Int64())

	snap, err := env.ledger.PoolSnapshot(0)
	require.NoError(t, err)
	require.Equal(t, int64(1000), snap.State.TotalAssets.Int64())
	require.Equal(t, int64(1000), snap.State.TotalShares.Int64())
	require.Equal(t, int64(1000), env.bank.BalanceOf(vaultAccount).Int64())

	ev := env.sink.last(t)
	require.Equal(t, types.EventDeposit, ev.Kind)
	require.Equal(t, alice, ev.Account)
	require.Equal(t, int64(1000), ev.Amount.Int64())
	require.Equal(t, int64(1000), ev.Shares.Int64())
}

func TestDepositProportionalMint(t *testing.T) {
	env := newTestEnv(t, nil)

	_, err := env.ledger.Deposit(alice, 0, i(1000))
	require.NoError(t, err)

	minted, err := env.ledger.Deposit(bob, 0, i(500))
	require.NoError(t, err)
	require.Equal(t, int64(500), minted.Int64())

	snap, _ := env.ledger.PoolSnapshot(0)
	require.Equal(t, int64(1500), snap.State.TotalAssets.Int64())
	require.Equal(t, int64(1500), snap.State.TotalShares.Int64())
}

func TestDepositRejections(t *testing.T) {
	env := newTestEnv(t, nil)

	_, err := env.ledger.Deposit(alice, 7, i(1000))
	var invalid InvalidPoolError
	require.ErrorAs(t, err, &invalid)
	require.Equal(t, types.PoolID(7), invalid.Pool)

	_, err = env.ledger.Deposit(alice, -1, i(1000))
	require.ErrorAs(t, err, &invalid)

	_, err = env.ledger.Deposit(alice, 0, i(9)) // floor is 10
	var tooSmall AmountTooSmallError
	require.ErrorAs(t, err, &tooSmall)

	_, err = env.ledger.Deposit(alice, 0, sdkmath.Int{})
	require.ErrorAs(t, err, &tooSmall)
}

func TestDepositPoolCap(t *testing.T) {
	env := newTestEnv(t, func(cfg *Config) {
		cfg.PoolCap = i(1000)
	})

	_, err := env.ledger.Deposit(alice, 0, i(600))
	require.NoError(t, err)

	_, err = env.ledger.Deposit(bob, 0, i(500))
	var capErr PoolCapError
	require.ErrorAs(t, err, &capErr)
	require.Equal(t, int64(1100), capErr.Resulting.Int64())

	// The cap is per ring: the same amount fits elsewhere.
	_, err = env.ledger.Deposit(bob, 1, i(500))
	require.NoError(t, err)
}

func TestDepositTransferFailureLeavesNoState(t *testing.T) {
	env := newTestEnv(t, nil)
	env.bank.failTransferFrom = true

	_, err := env.ledger.Deposit(alice, 0, i(1000))
	var transferErr TransferError
	require.ErrorAs(t, err, &transferErr)
	require.Equal(t, "deposit", transferErr.Op)

	snap, _ := env.ledger.PoolSnapshot(0)
	require.True(t, snap.State.TotalAssets.IsZero())
	require.True(t, snap.State.TotalShares.IsZero())

	view, err := env.ledger.PositionView(0, alice)
	require.NoError(t, err)
	require.True(t, view.Shares.IsZero())
	require.Empty(t, env.sink.events)
}

func TestDepositPreservesPendingYield(t *testing.T) {
	env := newTestEnv(t, nil)

	_, err := env.ledger.Deposit(alice, 0, i(1000))
	require.NoError(t, err)
	_, err = env.ledger.InjectYield(bob, 0, i(100))
	require.NoError(t, err)

	view, _ := env.ledger.PositionView(0, alice)
	require.Equal(t, int64(100), view.PendingYield.Int64())

	// Topping up must neither pay out nor erase the accrued 100.
	_, err = env.ledger.Deposit(alice, 0, i(3000))
	require.NoError(t, err)

	view, _ = env.ledger.PositionView(0, alice)
	require.Equal(t, int64(100), view.PendingYield.Int64())
}

func TestWithdrawRoundTrip(t *testing.T) {
	env := newTestEnv(t, nil)
	before := env.bank.BalanceOf(alice)

	minted, err := env.ledger.Deposit(alice, 0, i(1000))
	require.NoError(t, err)

	assets, err := env.ledger.Withdraw(alice, 0, minted)
	require.NoError(t, err)
	require.Equal(t, int64(1000), assets.Int64())
	require.Equal(t, before.String(), env.bank.BalanceOf(alice).String())

	snap, _ := env.ledger.PoolSnapshot(0)
	require.True(t, snap.State.TotalAssets.IsZero())
	require.True(t, snap.State.TotalShares.IsZero())
	require.True(t, env.bank.BalanceOf(vaultAccount).IsZero())
}

func TestWithdrawPaysPendingYield(t *testing.T) {
	env := newTestEnv(t, nil)

	_, err := env.ledger.Deposit(alice, 0, i(1000))
	require.NoError(t, err)
	_, err = env.ledger.InjectYield(bob, 0, i(100))
	require.NoError(t, err)

	before := env.bank.BalanceOf(alice)
	assets, err := env.ledger.Withdraw(alice, 0, i(1000))
	require.NoError(t, err)
	require.Equal(t, int64(1000), assets.Int64())

	// Principal plus the full 100 of settled yield came back.
	require.Equal(t, before.AddRaw(1100).String(), env.bank.BalanceOf(alice).String())

	ev := env.sink.last(t)
	require.Equal(t, types.EventWithdraw, ev.Kind)
	require.Equal(t, int64(100), ev.YieldPaid.Int64())
}

func TestWithdrawInsufficientShares(t *testing.T) {
	env := newTestEnv(t, nil)

	// No position at all.
	_, err := env.ledger.Withdraw(alice, 0, i(10))
	var insufficient InsufficientSharesError
	require.ErrorAs(t, err, &insufficient)
	require.True(t, insufficient.Held.IsZero())

	_, err = env.ledger.Deposit(alice, 0, i(1000))
	require.NoError(t, err)

	_, err = env.ledger.Withdraw(alice, 0, i(1001))
	require.ErrorAs(t, err, &insufficient)
	require.Equal(t, int64(1000), insufficient.Held.Int64())

	_, err = env.ledger.Withdraw(alice, 0, i(0))
	require.ErrorAs(t, err, &insufficient)
}

func TestWithdrawLockBoundary(t *testing.T) {
	env := newTestEnv(t, nil)

	_, err := env.ledger.Deposit(alice, 3, i(1000)) // one-hour lock
	require.NoError(t, err)

	env.clock.Advance(time.Hour - time.Second)
	_, err = env.ledger.Withdraw(alice, 3, i(1000))
	var locked PositionLockedError
	require.ErrorAs(t, err, &locked)
	require.Equal(t, types.PoolID(3), locked.Pool)

	// The lock expires at the boundary instant, not after it.
	env.clock.Advance(time.Second)
	_, err = env.ledger.Withdraw(alice, 3, i(1000))
	require.NoError(t, err)
}

func TestDepositRestartsLockTimer(t *testing.T) {
	env := newTestEnv(t, nil)

	_, err := env.ledger.Deposit(alice, 3, i(1000))
	require.NoError(t, err)

	env.clock.Advance(59 * time.Minute)
	_, err = env.ledger.Deposit(alice, 3, i(1000))
	require.NoError(t, err)

	// The top-up re-anchored the lock; the original hour is not enough.
	env.clock.Advance(time.Minute)
	_, err = env.ledger.Withdraw(alice, 3, i(2000))
	var locked PositionLockedError
	require.ErrorAs(t, err, &locked)

	env.clock.Advance(59 * time.Minute)
	_, err = env.ledger.Withdraw(alice, 3, i(2000))
	require.NoError(t, err)
}

func TestWithdrawPrincipalTransferFailureAborts(t *testing.T) {
	env := newTestEnv(t, nil)

	_, err := env.ledger.Deposit(alice, 0, i(1000))
	require.NoError(t, err)

	env.bank.failTransfer = true
	_, err = env.ledger.Withdraw(alice, 0, i(400))
	var transferErr TransferError
	require.ErrorAs(t, err, &transferErr)
	require.Equal(t, "withdraw", transferErr.Op)

	// Nothing moved and nothing was burned.
	view, _ := env.ledger.PositionView(0, alice)
	require.Equal(t, int64(1000), view.Shares.Int64())
	snap, _ := env.ledger.PoolSnapshot(0)
	require.Equal(t, int64(1000), snap.State.TotalShares.Int64())
	require.Equal(t, int64(1000), env.bank.BalanceOf(vaultAccount).Int64())
}

func TestWithdrawYieldShortfallSkipsPayout(t *testing.T) {
	env := newTestEnv(t, nil)

	// The 2x ring promises more than the vault holds: 1000 principal
	// plus 2000 injected backs a 4000 pending claim.
	_, err := env.ledger.Deposit(alice, 4, i(1000))
	require.NoError(t, err)
	_, err = env.ledger.InjectYield(bob, 4, i(2000))
	require.NoError(t, err)

	before := env.bank.BalanceOf(alice)
	assets, err := env.ledger.Withdraw(alice, 4, i(1000))
	require.NoError(t, err)
	require.Equal(t, int64(1000), assets.Int64())

	// Principal came back; the uncoverable yield was forfeited whole.
	require.Equal(t, before.AddRaw(1000).String(), env.bank.BalanceOf(alice).String())
	require.True(t, env.sink.last(t).YieldPaid.IsZero())
}

func TestHarvest(t *testing.T) {
	env := newTestEnv(t, nil)

	// No position and no pending are both silent no-ops.
	paid, err := env.ledger.Harvest(alice, 0)
	require.NoError(t, err)
	require.True(t, paid.IsZero())

	_, err = env.ledger.Deposit(alice, 0, i(1000))
	require.NoError(t, err)
	paid, err = env.ledger.Harvest(alice, 0)
	require.NoError(t, err)
	require.True(t, paid.IsZero())

	_, err = env.ledger.InjectYield(bob, 0, i(100))
	require.NoError(t, err)

	paid, err = env.ledger.Harvest(alice, 0)
	require.NoError(t, err)
	require.Equal(t, int64(100), paid.Int64())

	ev := env.sink.last(t)
	require.Equal(t, types.EventHarvest, ev.Kind)
	require.Equal(t, int64(100), ev.YieldPaid.Int64())

	// Harvesting again pays nothing.
	paid, err = env.ledger.Harvest(alice, 0)
	require.NoError(t, err)
	require.True(t, paid.IsZero())
}

func TestHarvestPartialOnShortfall(t *testing.T) {
	env := newTestEnv(t, nil)

	_, err := env.ledger.Deposit(alice, 4, i(1000)) // 2x amplifier
	require.NoError(t, err)
	_, err = env.ledger.InjectYield(bob, 4, i(2000))
	require.NoError(t, err)

	view, _ := env.ledger.PositionView(4, alice)
	require.Equal(t, int64(4000), view.PendingYield.Int64())

	// The vault holds only 3000; harvest drains it and no more.
	paid, err := env.ledger.Harvest(alice, 4)
	require.NoError(t, err)
	require.Equal(t, int64(3000), paid.Int64())
	require.True(t, env.bank.BalanceOf(vaultAccount).IsZero())
}

func TestOrbitReferenceScenario(t *testing.T) {
	// Ring 1 carries a 47 bps fee. Two equal stakers, a 100 injection:
	// the fee truncates to zero and each staker accrues exactly 50.
	env := newTestEnv(t, nil)

	_, err := env.ledger.Deposit(alice, 1, i(1000))
	require.NoError(t, err)
	_, err = env.ledger.Deposit(bob, 1, i(1000))
	require.NoError(t, err)

	res, err := env.ledger.InjectYield(adminAccount, 1, i(100))
	require.NoError(t, err)
	require.Equal(t, int64(100), res.Gross.Int64())
	require.True(t, res.Fee.IsZero()) // 100 * 47 / 10000 truncates
	require.Equal(t, int64(100), res.Net.Int64())
	require.False(t, res.Stranded)

	for _, account := range []string{alice, bob} {
		view, err := env.ledger.PositionView(1, account)
		require.NoError(t, err)
		require.Equal(t, int64(50), view.PendingYield.Int64(), "account %s", account)
	}
}

func TestOrbitFeeRouting(t *testing.T) {
	env := newTestEnv(t, nil)

	_, err := env.ledger.Deposit(alice, 2, i(1000)) // 10% fee ring
	require.NoError(t, err)

	res, err := env.ledger.InjectYield(bob, 2, i(1000))
	require.NoError(t, err)
	require.Equal(t, int64(100), res.Fee.Int64())
	require.Equal(t, int64(900), res.Net.Int64())

	require.Equal(t, int64(100), env.bank.BalanceOf(feeAccount).Int64())
	view, _ := env.ledger.PositionView(2, alice)
	require.Equal(t, int64(900), view.PendingYield.Int64())

	ev := env.sink.last(t)
	require.Equal(t, types.EventOrbit, ev.Kind)
	require.Equal(t, int64(100), ev.Fee.Int64())
}

func TestOrbitFeeRoutingFailureKeepsSurplus(t *testing.T) {
	env := newTestEnv(t, nil)

	_, err := env.ledger.Deposit(alice, 2, i(1000))
	require.NoError(t, err)

	env.bank.failTransfer = true
	res, err := env.ledger.InjectYield(bob, 2, i(1000))
	require.NoError(t, err) // fee routing failure does not abort
	require.Equal(t, int64(100), res.Fee.Int64())

	// The fee never left; it is recoverable by a sweep.
	require.True(t, env.bank.BalanceOf(feeAccount).IsZero())
	env.bank.failTransfer = false
	swept, err := env.ledger.SweepFees(adminAccount)
	require.NoError(t, err)
	// Surplus = vault balance (1000 + 1000) minus principal (1000):
	// the undistributed 900 stays claimable only through pending
	// accounting, so the sweep takes everything above principal.
	require.Equal(t, int64(1000), swept.Int64())
}

func TestOrbitAmplifier(t *testing.T) {
	env := newTestEnv(t, nil)

	_, err := env.ledger.Deposit(alice, 4, i(1000)) // 2x ring
	require.NoError(t, err)
	_, err = env.ledger.InjectYield(bob, 4, i(100))
	require.NoError(t, err)

	view, _ := env.ledger.PositionView(4, alice)
	require.Equal(t, int64(200), view.PendingYield.Int64())
}

func TestOrbitZeroShareRingStrands(t *testing.T) {
	env := newTestEnv(t, nil)

	res, err := env.ledger.InjectYield(alice, 0, i(500))
	require.NoError(t, err)
	require.True(t, res.Stranded)

	snap, _ := env.ledger.PoolSnapshot(0)
	require.True(t, snap.State.AccPerShare.IsZero())

	// A later depositor gets no claim on the stranded amount.
	_, err = env.ledger.Deposit(bob, 0, i(1000))
	require.NoError(t, err)
	view, _ := env.ledger.PositionView(0, bob)
	require.True(t, view.PendingYield.IsZero())

	// The sweep recovers it.
	swept, err := env.ledger.SweepFees(adminAccount)
	require.NoError(t, err)
	require.Equal(t, int64(500), swept.Int64())
	require.Equal(t, int64(500), env.bank.BalanceOf(feeAccount).Int64())
}

func TestOrbitRejections(t *testing.T) {
	env := newTestEnv(t, nil)

	_, err := env.ledger.InjectYield(alice, 9, i(100))
	var invalid InvalidPoolError
	require.ErrorAs(t, err, &invalid)

	_, err = env.ledger.InjectYield(alice, 0, i(0))
	var tooSmall AmountTooSmallError
	require.ErrorAs(t, err, &tooSmall)

	env.bank.failTransferFrom = true
	_, err = env.ledger.InjectYield(alice, 0, i(100))
	var transferErr TransferError
	require.ErrorAs(t, err, &transferErr)
	require.Equal(t, "orbit", transferErr.Op)
}

func TestYieldConservation(t *testing.T) {
	// The sum of all pending claims never exceeds what was injected
	// net of fees, regardless of how the stake is distributed.
	env := newTestEnv(t, nil)

	_, err := env.ledger.Deposit(alice, 1, i(333))
	require.NoError(t, err)
	_, err = env.ledger.Deposit(bob, 1, i(667))
	require.NoError(t, err)

	res, err := env.ledger.InjectYield(adminAccount, 1, i(997))
	require.NoError(t, err)

	aliceView, _ := env.ledger.PositionView(1, alice)
	bobView, _ := env.ledger.PositionView(1, bob)
	total := aliceView.PendingYield.Add(bobView.PendingYield)
	require.True(t, total.LTE(res.Net),
		"claims %s exceed net injection %s", total.String(), res.Net.String())
}

func TestMigrateRing(t *testing.T) {
	env := newTestEnv(t, nil)

	_, err := env.ledger.Deposit(alice, 0, i(1000))
	require.NoError(t, err)
	vaultBefore := env.bank.BalanceOf(vaultAccount)

	minted, err := env.ledger.MigrateRing(alice, 0, 3, i(400))
	require.NoError(t, err)
	require.Equal(t, int64(400), minted.Int64())

	// Principal never touched the asset ledger.
	require.Equal(t, vaultBefore.String(), env.bank.BalanceOf(vaultAccount).String())

	src, _ := env.ledger.PoolSnapshot(0)
	require.Equal(t, int64(600), src.State.TotalAssets.Int64())
	dest, _ := env.ledger.PoolSnapshot(3)
	require.Equal(t, int64(400), dest.State.TotalAssets.Int64())

	ev := env.sink.last(t)
	require.Equal(t, types.EventMigrate, ev.Kind)
	require.Equal(t, types.PoolID(0), ev.FromPool)
	require.Equal(t, types.PoolID(3), ev.ToPool)
	require.Equal(t, int64(400), ev.Amount.Int64())
}

func TestMigratePaysSourcePending(t *testing.T) {
	env := newTestEnv(t, nil)

	_, err := env.ledger.Deposit(alice, 0, i(1000))
	require.NoError(t, err)
	_, err = env.ledger.InjectYield(bob, 0, i(100))
	require.NoError(t, err)

	before := env.bank.BalanceOf(alice)
	_, err = env.ledger.MigrateRing(alice, 0, 1, i(1000))
	require.NoError(t, err)
	require.Equal(t, before.AddRaw(100).String(), env.bank.BalanceOf(alice).String())
	require.Equal(t, int64(100), env.sink.last(t).YieldPaid.Int64())
}

func TestMigrateSourceLockGates(t *testing.T) {
	env := newTestEnv(t, nil)

	// Into a locked ring: allowed, the destination lock only starts
	// counting now.
	_, err := env.ledger.Deposit(alice, 0, i(1000))
	require.NoError(t, err)
	_, err = env.ledger.MigrateRing(alice, 0, 3, i(500))
	require.NoError(t, err)

	view, _ := env.ledger.PositionView(3, alice)
	require.True(t, view.Locked)
	require.Equal(t, env.clock.Now().Add(time.Hour), view.UnlockAt)

	// Out of a locked ring: gated until the source lock expires.
	_, err = env.ledger.MigrateRing(alice, 3, 1, i(500))
	var locked PositionLockedError
	require.ErrorAs(t, err, &locked)
	require.Equal(t, types.PoolID(3), locked.Pool)

	env.clock.Advance(time.Hour)
	_, err = env.ledger.MigrateRing(alice, 3, 1, i(500))
	require.NoError(t, err)
}

func TestMigrateRejections(t *testing.T) {
	env := newTestEnv(t, nil)

	_, err := env.ledger.Deposit(alice, 0, i(1000))
	require.NoError(t, err)

	_, err = env.ledger.MigrateRing(alice, 0, 0, i(100))
	require.ErrorIs(t, err, ErrSamePool)

	_, err = env.ledger.MigrateRing(alice, 0, 5, i(100))
	var invalid InvalidPoolError
	require.ErrorAs(t, err, &invalid)

	_, err = env.ledger.MigrateRing(alice, 1, 0, i(100))
	var insufficient InsufficientSharesError
	require.ErrorAs(t, err, &insufficient)

	_, err = env.ledger.MigrateRing(alice, 0, 1, i(1001))
	require.ErrorAs(t, err, &insufficient)
}

func TestMigrateDestinationCap(t *testing.T) {
	env := newTestEnv(t, func(cfg *Config) {
		cfg.PoolCap = i(1000)
	})

	_, err := env.ledger.Deposit(alice, 0, i(800))
	require.NoError(t, err)
	_, err = env.ledger.Deposit(bob, 1, i(800))
	require.NoError(t, err)

	_, err = env.ledger.MigrateRing(alice, 0, 1, i(800))
	var capErr PoolCapError
	require.ErrorAs(t, err, &capErr)
	require.Equal(t, types.PoolID(1), capErr.Pool)

	// Nothing moved on either side.
	src, _ := env.ledger.PoolSnapshot(0)
	require.Equal(t, int64(800), src.State.TotalAssets.Int64())
	dest, _ := env.ledger.PoolSnapshot(1)
	require.Equal(t, int64(800), dest.State.TotalAssets.Int64())
}

func TestPauseGating(t *testing.T) {
	env := newTestEnv(t, nil)

	_, err := env.ledger.Deposit(alice, 0, i(1000))
	require.NoError(t, err)
	_, err = env.ledger.InjectYield(bob, 0, i(100))
	require.NoError(t, err)

	require.NoError(t, env.ledger.SetPaused(adminAccount, true))
	require.True(t, env.ledger.Paused())

	_, err = env.ledger.Deposit(alice, 0, i(100))
	require.ErrorIs(t, err, ErrPaused)
	_, err = env.ledger.InjectYield(bob, 0, i(100))
	require.ErrorIs(t, err, ErrPaused)
	_, err = env.ledger.MigrateRing(alice, 0, 1, i(100))
	require.ErrorIs(t, err, ErrPaused)

	// Exits stay open while paused.
	paid, err := env.ledger.Harvest(alice, 0)
	require.NoError(t, err)
	require.Equal(t, int64(100), paid.Int64())
	_, err = env.ledger.Withdraw(alice, 0, i(1000))
	require.NoError(t, err)

	require.NoError(t, env.ledger.SetPaused(adminAccount, false))
	_, err = env.ledger.Deposit(alice, 0, i(100))
	require.NoError(t, err)
}

func TestReentrantCallFails(t *testing.T) {
	env := newTestEnv(t, nil)

	_, err := env.ledger.Deposit(alice, 0, i(1000))
	require.NoError(t, err)

	// A collaborator calling back into the ledger mid-transaction must
	// be rejected, not deadlock.
	var nestedErr error
	env.bank.transferHook = func() {
		_, nestedErr = env.ledger.Deposit(bob, 0, i(100))
	}

	_, err = env.ledger.Withdraw(alice, 0, i(1000))
	require.NoError(t, err)
	require.ErrorIs(t, nestedErr, ErrReentrantCall)

	// The guard released; normal operation resumes.
	_, err = env.ledger.Deposit(bob, 0, i(100))
	require.NoError(t, err)
}
