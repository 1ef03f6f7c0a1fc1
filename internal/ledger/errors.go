/*

This file contains the closed set of failure conditions a ledger
transaction can abort with. Conditions that carry offending values
are typed structs; the rest are sentinel errors. Every abort leaves
ledger and position state exactly as it was.

*/

package ledger

import (
	"errors"
	"fmt"
	"time"

	sdkmath "cosmossdk.io/math"

	"github.com/ringfi/ringstake/internal/types"
)

var (
	// ErrReentrantCall is returned when a mutating transaction is
	// invoked while another one is still in flight.
	ErrReentrantCall = errors.New("reentrant call rejected: a transaction is already in flight")

	// ErrPaused is returned when deposit, orbit or migrate is
	// attempted while the ledger is paused.
	ErrPaused = errors.New("ledger is paused")

	// ErrUnauthorized is returned when a privileged operation is
	// invoked by a non-privileged caller.
	ErrUnauthorized = errors.New("caller is not authorized")

	// ErrSamePool is returned when a migration names the same ring
	// as source and destination.
	ErrSamePool = errors.New("source and destination rings are identical")
)

// InvalidPoolError reports a ring index outside the registry.
type InvalidPoolError struct {
	Pool types.PoolID
}

func (e InvalidPoolError) Error() string {
	return fmt.Sprintf("invalid ring index %d: must be in [0, %d)", e.Pool, types.NumPools)
}

// AmountTooSmallError reports a deposit or injection below the floor.
type AmountTooSmallError struct {
	Amount sdkmath.Int
	Floor  sdkmath.Int
}

func (e AmountTooSmallError) Error() string {
	return fmt.Sprintf("amount %s is below the minimum of %s", e.Amount.String(), e.Floor.String())
}

// PoolCapError reports a deposit or inbound migration that would push
// a ring's total assets past its cap.
type PoolCapError struct {
	Pool      types.PoolID
	Resulting sdkmath.Int
	Cap       sdkmath.Int
}

func (e PoolCapError) Error() string {
	return fmt.Sprintf("ring %d cap exceeded: total assets would become %s, cap is %s",
		e.Pool, e.Resulting.String(), e.Cap.String())
}

// InsufficientSharesError reports a share redemption larger than the
// position's balance (or a non-positive request).
type InsufficientSharesError struct {
	Pool      types.PoolID
	Requested sdkmath.Int
	Held      sdkmath.Int
}

func (e InsufficientSharesError) Error() string {
	return fmt.Sprintf("insufficient shares in ring %d: requested %s, holding %s",
		e.Pool, e.Requested.String(), e.Held.String())
}

// PositionLockedError reports an exit attempted before the ring's
// minimum lock duration has elapsed.
type PositionLockedError struct {
	Pool     types.PoolID
	UnlockAt time.Time
}

func (e PositionLockedError) Error() string {
	return fmt.Sprintf("position in ring %d is locked until %s", e.Pool, e.UnlockAt.Format(time.RFC3339))
}

// TransferError wraps an asset-ledger failure that aborts the
// transaction.
type TransferError struct {
	Op  string
	Err error
}

func (e TransferError) Error() string {
	return fmt.Sprintf("asset transfer failed during %s: %v", e.Op, e.Err)
}

func (e TransferError) Unwrap() error {
	return e.Err
}
