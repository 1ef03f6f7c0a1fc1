/*

This file contains the administrative surface: the pause flag gating
deposit/orbit/migrate (withdraw and harvest stay open so users can
always exit) and the fee sweep that recovers any asset balance in
excess of the rings' recorded principal.

*/

package ledger

import (
	sdkmath "cosmossdk.io/math"

	"github.com/ringfi/ringstake/internal/types"
)

// SetPaused toggles the pause flag. Admin only.
func (l *Ledger) SetPaused(caller string, paused bool) error {
	release, err := l.begin()
	if err != nil {
		return err
	}
	defer release()

	if caller != l.admin {
		return ErrUnauthorized
	}
	if l.paused == paused {
		return nil
	}
	l.paused = paused

	l.logger.Info().Bool("paused", paused).Msg("Pause flag toggled")

	l.emit(types.Event{
		Kind:     types.EventPauseToggle,
		Account:  caller,
		FromPool: types.NoPool,
		ToPool:   types.NoPool,
		Paused:   paused,
	})
	return nil
}

// SweepFees transfers any ledger-account balance in excess of the sum
// of all rings' recorded total assets to the fee recipient. This is
// how stranded injections, forfeited yield remainders and external
// donations are recovered. Admin only. Returns the amount swept.
func (l *Ledger) SweepFees(caller string) (sdkmath.Int, error) {
	release, err := l.begin()
	if err != nil {
		return sdkmath.ZeroInt(), err
	}
	defer release()

	if caller != l.admin {
		return sdkmath.ZeroInt(), ErrUnauthorized
	}

	principal := sdkmath.ZeroInt()
	for i := range l.states {
		principal = principal.Add(l.states[i].TotalAssets)
	}

	surplus := l.bank.BalanceOf(l.account).Sub(principal)
	if !surplus.IsPositive() {
		return sdkmath.ZeroInt(), nil
	}

	if err := l.bank.Transfer(l.account, l.feeRecipient, surplus); err != nil {
		return sdkmath.ZeroInt(), TransferError{Op: "sweep", Err: err}
	}

	l.logger.Info().
		Str("surplus", surplus.String()).
		Str("recipient", l.feeRecipient).
		Msg("Fee sweep committed")

	l.emit(types.Event{
		Kind:     types.EventFeeSweep,
		Account:  caller,
		FromPool: types.NoPool,
		ToPool:   types.NoPool,
		Amount:   surplus,
	})

	return surplus, nil
}
