/*

This file contains the observable event types emitted by the ledger
for external auditors and indexers, and the sink interface the core
records them through.

*/

package types

import (
	"time"

	sdkmath "cosmossdk.io/math"
)

// EventKind discriminates the ledger event types.
type EventKind string

const (
	EventDeposit     EventKind = "DEPOSIT"
	EventWithdraw    EventKind = "WITHDRAW"
	EventOrbit       EventKind = "ORBIT"
	EventHarvest     EventKind = "HARVEST"
	EventMigrate     EventKind = "MIGRATE"
	EventPauseToggle EventKind = "PAUSE_TOGGLE"
	EventFeeSweep    EventKind = "FEE_SWEEP"
)

// NoPool marks an event pool field that does not apply.
const NoPool PoolID = -1

// Event is a single observable ledger event. Amounts that do not
// apply to a given kind are left as zero Ints.
type Event struct {
	ID        string      `json:"event_id"`
	Kind      EventKind   `json:"kind"`
	Account   string      `json:"account,omitempty"` // Acting account, empty for admin-less events
	FromPool  PoolID      `json:"from_pool"`         // NoPool when not applicable
	ToPool    PoolID      `json:"to_pool"`           // NoPool except for migrations
	Amount    sdkmath.Int `json:"amount"`            // Principal moved or gross yield injected
	Shares    sdkmath.Int `json:"shares"`            // Shares minted or burned
	Fee       sdkmath.Int `json:"fee"`               // Protocol fee taken
	YieldPaid sdkmath.Int `json:"yield_paid"`        // Yield actually transferred to the account
	Paused    bool        `json:"paused,omitempty"`  // New flag value for pause toggles
	Stranded  bool        `json:"stranded,omitempty"` // Orbit hit a zero-share ring
	Timestamp time.Time   `json:"timestamp"`
}

// EventSink receives every committed ledger event. Implementations
// must not call back into the ledger.
type EventSink interface {
	Record(Event)
}
