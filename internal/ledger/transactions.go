/*

This file contains the transaction surface: deposit, withdraw,
harvest, orbit (yield injection) and ring migration. Each is a single
atomic operation. Validation and every fallible external call happen
before the first state write, so an abort on any path leaves the
ledger exactly as it was.

*/

package ledger

import (
	sdkmath "cosmossdk.io/math"

	"github.com/ringfi/ringstake/internal/types"
)

// Deposit pulls amount from caller into a ring and mints shares at
// the ring's current valuation (1:1 for the first depositor). Any
// yield the position had already accrued stays pending; deposit does
// not auto-harvest.
func (l *Ledger) Deposit(caller string, pool types.PoolID, amount sdkmath.Int) (sdkmath.Int, error) {
	release, err := l.begin()
	if err != nil {
		return sdkmath.ZeroInt(), err
	}
	defer release()

	if err := l.checkPool(pool); err != nil {
		return sdkmath.ZeroInt(), err
	}
	if l.paused {
		return sdkmath.ZeroInt(), ErrPaused
	}
	if amount.IsNil() || amount.LT(l.minDeposit) {
		return sdkmath.ZeroInt(), AmountTooSmallError{Amount: amount, Floor: l.minDeposit}
	}

	st := &l.states[pool]
	resulting := st.TotalAssets.Add(amount)
	if resulting.GT(l.poolCap) {
		return sdkmath.ZeroInt(), PoolCapError{Pool: pool, Resulting: resulting, Cap: l.poolCap}
	}

	minted := sharesForDeposit(amount, st)

	if err := l.bank.TransferFrom(caller, l.account, amount); err != nil {
		return sdkmath.ZeroInt(), TransferError{Op: "deposit", Err: err}
	}

	pos := l.position(pool, caller)
	preserved := pendingYield(pos, st.AccPerShare)
	pos.Shares = pos.Shares.Add(minted)
	pos.LastTopUpTime = l.now()
	restampPreserving(pos, st.AccPerShare, preserved)

	st.TotalAssets = resulting
	st.TotalShares = st.TotalShares.Add(minted)

	l.logger.Info().
		Str("account", caller).
		Int("pool", int(pool)).
		Str("amount", amount.String()).
		Str("shares", minted.String()).
		Msg("Deposit committed")

	l.emit(types.Event{
		Kind:     types.EventDeposit,
		Account:  caller,
		FromPool: pool,
		ToPool:   types.NoPool,
		Amount:   amount,
		Shares:   minted,
	})

	return minted, nil
}

// Withdraw redeems shares from a ring at its current valuation after
// the lock period has elapsed, settles the position's pending yield
// (paid best-effort), and transfers the redeemed principal to the
// caller. A failed principal transfer aborts the whole withdrawal; a
// yield shortfall only skips the yield payout.
func (l *Ledger) Withdraw(caller string, pool types.PoolID, shares sdkmath.Int) (sdkmath.Int, error) {
	release, err := l.begin()
	if err != nil {
		return sdkmath.ZeroInt(), err
	}
	defer release()

	if err := l.checkPool(pool); err != nil {
		return sdkmath.ZeroInt(), err
	}

	st := &l.states[pool]
	cfg := &l.configs[pool]
	pos, ok := l.lookupPosition(pool, caller)
	if !ok {
		return sdkmath.ZeroInt(), InsufficientSharesError{Pool: pool, Requested: shares, Held: sdkmath.ZeroInt()}
	}

	if shares.IsNil() || !shares.IsPositive() || shares.GT(pos.Shares) {
		return sdkmath.ZeroInt(), InsufficientSharesError{Pool: pool, Requested: shares, Held: pos.Shares}
	}
	if unlockAt := lockExpiry(pos, cfg); l.now().Before(unlockAt) {
		return sdkmath.ZeroInt(), PositionLockedError{Pool: pool, UnlockAt: unlockAt}
	}

	assets := sharesToAssets(shares, st)
	pending := pendingYield(pos, st.AccPerShare)

	// Principal leaves first: the only fallible step that may abort.
	if assets.IsPositive() {
		if err := l.bank.Transfer(l.account, caller, assets); err != nil {
			return sdkmath.ZeroInt(), TransferError{Op: "withdraw", Err: err}
		}
	}

	paid := l.payYield(caller, pending)

	pos.Shares = pos.Shares.Sub(shares)
	settleRewardDebt(pos, st.AccPerShare)
	st.TotalShares = st.TotalShares.Sub(shares)
	st.TotalAssets = st.TotalAssets.Sub(assets)

	l.logger.Info().
		Str("account", caller).
		Int("pool", int(pool)).
		Str("shares", shares.String()).
		Str("assets", assets.String()).
		Str("yieldPaid", paid.String()).
		Msg("Withdrawal committed")

	l.emit(types.Event{
		Kind:      types.EventWithdraw,
		Account:   caller,
		FromPool:  pool,
		ToPool:    types.NoPool,
		Amount:    assets,
		Shares:    shares,
		YieldPaid: paid,
	})

	return assets, nil
}

// Harvest settles and pays out the caller's pending yield in a ring,
// capped at whatever balance the asset ledger actually holds. A zero
// pending is a silent no-op with no state change.
func (l *Ledger) Harvest(caller string, pool types.PoolID) (sdkmath.Int, error) {
	release, err := l.begin()
	if err != nil {
		return sdkmath.ZeroInt(), err
	}
	defer release()

	if err := l.checkPool(pool); err != nil {
		return sdkmath.ZeroInt(), err
	}

	st := &l.states[pool]
	pos, ok := l.lookupPosition(pool, caller)
	if !ok {
		return sdkmath.ZeroInt(), nil
	}

	pending := pendingYield(pos, st.AccPerShare)
	if !pending.IsPositive() {
		return sdkmath.ZeroInt(), nil
	}

	paid := l.payYieldCapped(caller, pending)
	settleRewardDebt(pos, st.AccPerShare)

	l.logger.Info().
		Str("account", caller).
		Int("pool", int(pool)).
		Str("pending", pending.String()).
		Str("paid", paid.String()).
		Msg("Harvest committed")

	l.emit(types.Event{
		Kind:      types.EventHarvest,
		Account:   caller,
		FromPool:  pool,
		ToPool:    types.NoPool,
		YieldPaid: paid,
	})

	return paid, nil
}

// OrbitResult reports how an injection was split and whether the net
// yield could be distributed at all.
type OrbitResult struct {
	Gross sdkmath.Int `json:"gross"`
	Fee   sdkmath.Int `json:"fee"`
	Net   sdkmath.Int `json:"net"`

	// Stranded is true when the ring had zero outstanding shares:
	// the accumulator was left untouched and the net yield sits in
	// the ledger account as surplus, recoverable only by a sweep.
	Stranded bool `json:"stranded"`
}

// InjectYield pulls a gross yield amount from caller into a ring,
// routes the fee cut to the fee recipient and distributes the
// remainder to all current shareholders through the accumulator.
func (l *Ledger) InjectYield(caller string, pool types.PoolID, gross sdkmath.Int) (OrbitResult, error) {
	release, err := l.begin()
	if err != nil {
		return OrbitResult{}, err
	}
	defer release()

	if err := l.checkPool(pool); err != nil {
		return OrbitResult{}, err
	}
	if l.paused {
		return OrbitResult{}, ErrPaused
	}
	if gross.IsNil() || !gross.IsPositive() {
		return OrbitResult{}, AmountTooSmallError{Amount: gross, Floor: sdkmath.OneInt()}
	}

	cfg := &l.configs[pool]
	st := &l.states[pool]

	fee := gross.MulRaw(int64(cfg.FeeBps)).QuoRaw(types.BpsDenom)
	net := gross.Sub(fee)

	if err := l.bank.TransferFrom(caller, l.account, gross); err != nil {
		return OrbitResult{}, TransferError{Op: "orbit", Err: err}
	}

	// Fee routing is tolerant: on failure the fee stays in the
	// ledger account as sweepable surplus.
	if fee.IsPositive() {
		if err := l.bank.Transfer(l.account, l.feeRecipient, fee); err != nil {
			l.logger.Warn().Err(err).
				Int("pool", int(pool)).
				Str("fee", fee.String()).
				Msg("Fee routing failed; fee retained as surplus")
		}
	}

	res := OrbitResult{Gross: gross, Fee: fee, Net: net}

	if st.TotalShares.IsZero() {
		res.Stranded = true
		l.logger.Warn().
			Int("pool", int(pool)).
			Str("net", net.String()).
			Msg("Yield injected into a zero-share ring; amount stranded as surplus")
	} else {
		st.AccPerShare = st.AccPerShare.Add(accrualDelta(net, cfg.YieldAmplifier, st.TotalShares))
		st.LastUpdateTime = l.now()
	}

	l.logger.Info().
		Str("account", caller).
		Int("pool", int(pool)).
		Str("gross", gross.String()).
		Str("fee", fee.String()).
		Str("net", net.String()).
		Bool("stranded", res.Stranded).
		Msg("Yield injection committed")

	l.emit(types.Event{
		Kind:     types.EventOrbit,
		Account:  caller,
		FromPool: pool,
		ToPool:   types.NoPool,
		Amount:   gross,
		Fee:      fee,
		Stranded: res.Stranded,
	})

	return res, nil
}

// MigrateRing atomically relocates value between rings: shares are
// redeemed from the source at its current valuation and re-minted in
// the destination for the same asset amount, without the principal
// ever leaving the ledger account. The source ring's lock gates the
// move; the destination position's lock timer restarts. Source
// pending yield is settled and paid best-effort.
func (l *Ledger) MigrateRing(caller string, fromPool, toPool types.PoolID, shares sdkmath.Int) (sdkmath.Int, error) {
	release, err := l.begin()
	if err != nil {
		return sdkmath.ZeroInt(), err
	}
	defer release()

	if err := l.checkPool(fromPool); err != nil {
		return sdkmath.ZeroInt(), err
	}
	if err := l.checkPool(toPool); err != nil {
		return sdkmath.ZeroInt(), err
	}
	if fromPool == toPool {
		return sdkmath.ZeroInt(), ErrSamePool
	}
	if l.paused {
		return sdkmath.ZeroInt(), ErrPaused
	}

	srcSt := &l.states[fromPool]
	srcCfg := &l.configs[fromPool]
	srcPos, ok := l.lookupPosition(fromPool, caller)
	if !ok {
		return sdkmath.ZeroInt(), InsufficientSharesError{Pool: fromPool, Requested: shares, Held: sdkmath.ZeroInt()}
	}

	if shares.IsNil() || !shares.IsPositive() || shares.GT(srcPos.Shares) {
		return sdkmath.ZeroInt(), InsufficientSharesError{Pool: fromPool, Requested: shares, Held: srcPos.Shares}
	}
	if unlockAt := lockExpiry(srcPos, srcCfg); l.now().Before(unlockAt) {
		return sdkmath.ZeroInt(), PositionLockedError{Pool: fromPool, UnlockAt: unlockAt}
	}

	assets := sharesToAssets(shares, srcSt)

	destSt := &l.states[toPool]
	destResulting := destSt.TotalAssets.Add(assets)
	if destResulting.GT(l.poolCap) {
		return sdkmath.ZeroInt(), PoolCapError{Pool: toPool, Resulting: destResulting, Cap: l.poolCap}
	}

	srcPending := pendingYield(srcPos, srcSt.AccPerShare)
	paid := l.payYield(caller, srcPending)

	// Source side: burn shares, keep the remaining position's
	// original lock anchor.
	srcPos.Shares = srcPos.Shares.Sub(shares)
	settleRewardDebt(srcPos, srcSt.AccPerShare)
	srcSt.TotalShares = srcSt.TotalShares.Sub(shares)
	srcSt.TotalAssets = srcSt.TotalAssets.Sub(assets)

	// Destination side: mint at the destination's valuation and
	// restart its lock timer.
	minted := sharesForDeposit(assets, destSt)
	destPos := l.position(toPool, caller)
	destPreserved := pendingYield(destPos, destSt.AccPerShare)
	destPos.Shares = destPos.Shares.Add(minted)
	destPos.LastTopUpTime = l.now()
	restampPreserving(destPos, destSt.AccPerShare, destPreserved)
	destSt.TotalShares = destSt.TotalShares.Add(minted)
	destSt.TotalAssets = destResulting

	l.logger.Info().
		Str("account", caller).
		Int("fromPool", int(fromPool)).
		Int("toPool", int(toPool)).
		Str("sharesBurned", shares.String()).
		Str("assets", assets.String()).
		Str("sharesMinted", minted.String()).
		Str("yieldPaid", paid.String()).
		Msg("Migration committed")

	l.emit(types.Event{
		Kind:      types.EventMigrate,
		Account:   caller,
		FromPool:  fromPool,
		ToPool:    toPool,
		Amount:    assets,
		Shares:    minted,
		YieldPaid: paid,
	})

	return minted, nil
}

// payYield settles pending yield to an account during withdraw and
// migrate: the payout happens only when the ledger balance covers it
// in full; a shortfall or transfer failure silently skips it rather
// than aborting the surrounding transaction. Returns what actually
// moved.
func (l *Ledger) payYield(account string, pending sdkmath.Int) sdkmath.Int {
	if !pending.IsPositive() {
		return sdkmath.ZeroInt()
	}
	if l.bank.BalanceOf(l.account).LT(pending) {
		l.logger.Warn().
			Str("account", account).
			Str("pending", pending.String()).
			Msg("Yield payout skipped: ledger balance insufficient")
		return sdkmath.ZeroInt()
	}
	if err := l.bank.Transfer(l.account, account, pending); err != nil {
		l.logger.Warn().Err(err).
			Str("account", account).
			Str("pending", pending.String()).
			Msg("Yield payout skipped: transfer failed")
		return sdkmath.ZeroInt()
	}
	return pending
}

// payYieldCapped settles pending yield during harvest: a graceful
// partial payout of min(pending, available ledger balance).
func (l *Ledger) payYieldCapped(account string, pending sdkmath.Int) sdkmath.Int {
	if !pending.IsPositive() {
		return sdkmath.ZeroInt()
	}
	payable := minInt(pending, l.bank.BalanceOf(l.account))
	if !payable.IsPositive() {
		l.logger.Warn().
			Str("account", account).
			Str("pending", pending.String()).
			Msg("Yield payout skipped: ledger balance exhausted")
		return sdkmath.ZeroInt()
	}
	if err := l.bank.Transfer(l.account, account, payable); err != nil {
		l.logger.Warn().Err(err).
			Str("account", account).
			Str("payable", payable.String()).
			Msg("Yield payout skipped: transfer failed")
		return sdkmath.ZeroInt()
	}
	return payable
}
