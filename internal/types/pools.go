/*

This file contains the types for the ring registry and the per-ring
ledger: the immutable configuration set at initialization and the
mutable running totals every transaction reads and updates.

*/

package types

import (
	"time"

	sdkmath "cosmossdk.io/math"
)

// PoolID indexes one of the rings (0..NumPools-1).
type PoolID int

const (
	// NumPools is the fixed number of rings in the registry.
	NumPools = 5

	// BpsDenom is the basis-point denominator used for fee math.
	BpsDenom = 10_000
)

// Scale is the shared fixed-point scale (1e18) for AccPerShare,
// RewardDebt and YieldAmplifier.
var Scale = sdkmath.NewIntWithDecimal(1, 18)

// PoolConfig is the immutable configuration of a single ring.
type PoolConfig struct {
	WeightBps       uint32        `json:"weight_bps"`        // Informational target allocation weight, not enforced
	FeeBps          uint32        `json:"fee_bps"`           // Fraction of injected yield routed to the fee recipient
	MinLockDuration time.Duration `json:"min_lock_duration"` // Minimum time a position must remain before exit
	YieldAmplifier  sdkmath.Int   `json:"yield_amplifier"`   // 1e18-scaled multiplier applied to net yield
}

// PoolState is the mutable ledger of a single ring.
type PoolState struct {
	TotalAssets    sdkmath.Int `json:"total_assets"`     // Sum of all principal attributed to the ring
	TotalShares    sdkmath.Int `json:"total_shares"`     // Sum of all outstanding shares
	AccPerShare    sdkmath.Int `json:"acc_per_share"`    // 1e18-scaled cumulative net yield per share, never decreases
	LastUpdateTime time.Time   `json:"last_update_time"` // Timestamp of the most recent distributed injection
}

// NewPoolState returns a zeroed ledger for an empty ring.
func NewPoolState() PoolState {
	return PoolState{
		TotalAssets: sdkmath.ZeroInt(),
		TotalShares: sdkmath.ZeroInt(),
		AccPerShare: sdkmath.ZeroInt(),
	}
}

// PoolSnapshot combines a ring's configuration and ledger for the
// read-only views and the persisted snapshot history.
type PoolSnapshot struct {
	ID     PoolID     `json:"pool_id"`
	Config PoolConfig `json:"config"`
	State  PoolState  `json:"state"`
}
