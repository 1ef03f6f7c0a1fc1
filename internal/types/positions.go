/*

This file contains the types for positions: one record per (ring,
account) pair, created lazily on first deposit and kept as a zeroed
tombstone after a full exit.

*/

package types

import (
	"time"

	sdkmath "cosmossdk.io/math"
)

// PositionKey identifies a position by ring and account.
type PositionKey struct {
	Pool    PoolID
	Account string
}

// Position is an account's claim on a single ring.
type Position struct {
	Shares        sdkmath.Int `json:"shares"`           // Claim size in the ring's internal share unit
	LastTopUpTime time.Time   `json:"last_top_up_time"` // Lock anchor; stamped on deposit and inbound migration only
	RewardDebt    sdkmath.Int `json:"reward_debt"`      // 1e18-scaled checkpoint of shares*AccPerShare at last settlement
}

// NewPosition returns an empty position record.
func NewPosition() *Position {
	return &Position{
		Shares:     sdkmath.ZeroInt(),
		RewardDebt: sdkmath.ZeroInt(),
	}
}

// PositionView is the read-only projection of a position with the
// derived quantities the snapshot views recompute on demand.
type PositionView struct {
	Pool         PoolID      `json:"pool_id"`
	Account      string      `json:"account"`
	Shares       sdkmath.Int `json:"shares"`
	AssetValue   sdkmath.Int `json:"asset_value"`   // Proportional claim at current ring valuation
	PendingYield sdkmath.Int `json:"pending_yield"` // Accrued but unsettled yield
	Locked       bool        `json:"locked"`
	UnlockAt     time.Time   `json:"unlock_at"`
}
