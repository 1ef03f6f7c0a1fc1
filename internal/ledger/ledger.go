/*

This file contains the ledger process itself: the ring registry, the
per-ring ledgers, the position store, the reentrancy guard and the
pause flag, all held on one context object that every transaction
handler receives. Construction validates the full configuration;
there is no teardown beyond process lifetime.

*/

package ledger

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ringfi/ringstake/internal/bank"
	"github.com/ringfi/ringstake/internal/logger"
	"github.com/ringfi/ringstake/internal/types"
)

// Ledger is the multi-ring staking ledger. All mutating transactions
// are serialized by the in-flight guard; a nested or concurrent
// mutating call fails immediately with ErrReentrantCall. The
// read-only views run on the HTTP server's goroutines and are
// synchronized against transactions through mu.
type Ledger struct {
	logger zerolog.Logger

	bank         bank.AssetLedger
	account      string // the ledger's own account on the asset ledger
	feeRecipient string
	admin        string

	configs [types.NumPools]types.PoolConfig
	states  [types.NumPools]types.PoolState

	positions map[types.PositionKey]*types.Position

	minDeposit sdkmath.Int
	poolCap    sdkmath.Int

	events types.EventSink
	now    func() time.Time

	paused   bool
	inFlight atomic.Bool
	mu       sync.RWMutex
}

// Config holds everything needed to construct a Ledger.
type Config struct {
	// Bank is the external asset ledger the staking core moves
	// balances through.
	Bank bank.AssetLedger

	// Account is the ledger's own account on the asset ledger; it
	// holds all pooled principal and undistributed yield.
	Account string

	// FeeRecipient receives protocol fees and swept surplus.
	FeeRecipient string

	// Admin may toggle the pause flag and sweep fees.
	Admin string

	// Pools is the immutable registry, one entry per ring.
	Pools [types.NumPools]types.PoolConfig

	// MinDeposit is the floor below which deposits are rejected.
	MinDeposit sdkmath.Int

	// PoolCap is the maximum total assets any single ring may hold.
	PoolCap sdkmath.Int

	// Events receives every committed event. May be nil.
	Events types.EventSink

	// Now supplies timestamps; defaults to time.Now.
	Now func() time.Time
}

// New validates the configuration and returns a ledger with five
// empty rings.
func New(cfg Config) (*Ledger, error) {
	if err := validateConfig(cfg); err != nil {
		return nil, fmt.Errorf("ledger configuration validation failed: %w", err)
	}

	l := &Ledger{
		logger:       logger.GetForComponent("ring_ledger"),
		bank:         cfg.Bank,
		account:      cfg.Account,
		feeRecipient: cfg.FeeRecipient,
		admin:        cfg.Admin,
		configs:      cfg.Pools,
		positions:    make(map[types.PositionKey]*types.Position),
		minDeposit:   cfg.MinDeposit,
		poolCap:      cfg.PoolCap,
		events:       cfg.Events,
		now:          cfg.Now,
	}
	if l.now == nil {
		l.now = time.Now
	}
	for i := range l.states {
		l.states[i] = types.NewPoolState()
	}

	l.logger.Info().
		Str("account", l.account).
		Str("feeRecipient", l.feeRecipient).
		Str("poolCap", l.poolCap.String()).
		Str("minDeposit", l.minDeposit.String()).
		Msg("Ring ledger initialized")

	return l, nil
}

// validateConfig checks the construction-time invariants.
func validateConfig(cfg Config) error {
	if cfg.Bank == nil {
		return fmt.Errorf("asset ledger cannot be nil")
	}
	if cfg.Account == "" {
		return fmt.Errorf("ledger account cannot be empty")
	}
	if cfg.FeeRecipient == "" {
		return fmt.Errorf("fee recipient cannot be empty")
	}
	if cfg.Admin == "" {
		return fmt.Errorf("admin account cannot be empty")
	}
	if cfg.MinDeposit.IsNil() || !cfg.MinDeposit.IsPositive() {
		return fmt.Errorf("minimum deposit must be positive")
	}
	if cfg.PoolCap.IsNil() || !cfg.PoolCap.IsPositive() {
		return fmt.Errorf("pool cap must be positive")
	}
	if cfg.PoolCap.LT(cfg.MinDeposit) {
		return fmt.Errorf("pool cap %s is below the minimum deposit %s",
			cfg.PoolCap.String(), cfg.MinDeposit.String())
	}
	for i, pc := range cfg.Pools {
		if pc.FeeBps > types.BpsDenom {
			return fmt.Errorf("ring %d fee %d bps exceeds %d", i, pc.FeeBps, types.BpsDenom)
		}
		if pc.WeightBps > types.BpsDenom {
			return fmt.Errorf("ring %d weight %d bps exceeds %d", i, pc.WeightBps, types.BpsDenom)
		}
		if pc.MinLockDuration < 0 {
			return fmt.Errorf("ring %d lock duration is negative", i)
		}
		if pc.YieldAmplifier.IsNil() || !pc.YieldAmplifier.IsPositive() {
			return fmt.Errorf("ring %d yield amplifier must be positive", i)
		}
	}
	return nil
}

// begin acquires the single-transaction guard and the state write
// lock. The CAS flag is checked before the lock so a reentrant call
// on the transaction's own goroutine fails fast instead of
// self-deadlocking. The returned release function must be deferred
// by the caller.
func (l *Ledger) begin() (func(), error) {
	if !l.inFlight.CompareAndSwap(false, true) {
		return nil, ErrReentrantCall
	}
	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		l.inFlight.Store(false)
	}, nil
}

// checkPool validates a ring index. Every transaction performs this
// check before touching any state.
func (l *Ledger) checkPool(pool types.PoolID) error {
	if pool < 0 || pool >= types.NumPools {
		return InvalidPoolError{Pool: pool}
	}
	return nil
}

// position returns the record for (pool, account), creating it
// lazily on first touch.
func (l *Ledger) position(pool types.PoolID, account string) *types.Position {
	key := types.PositionKey{Pool: pool, Account: account}
	pos, ok := l.positions[key]
	if !ok {
		pos = types.NewPosition()
		l.positions[key] = pos
	}
	return pos
}

// lookupPosition returns the record for (pool, account) without
// creating one, so failed redemptions leave no tombstone behind.
func (l *Ledger) lookupPosition(pool types.PoolID, account string) (*types.Position, bool) {
	pos, ok := l.positions[types.PositionKey{Pool: pool, Account: account}]
	return pos, ok
}

// lockExpiry returns the instant a position becomes eligible to
// withdraw or migrate out of a ring.
func lockExpiry(pos *types.Position, cfg *types.PoolConfig) time.Time {
	return pos.LastTopUpTime.Add(cfg.MinLockDuration)
}

// emit stamps and records an event. Events are recorded only after
// the transaction's state changes have fully applied.
func (l *Ledger) emit(ev types.Event) {
	if l.events == nil {
		return
	}
	ev.ID = uuid.New().String()
	ev.Timestamp = l.now()
	zeroFillEvent(&ev)
	l.events.Record(ev)
}

// zeroFillEvent replaces nil Int fields so sinks never see nil.
func zeroFillEvent(ev *types.Event) {
	for _, p := range []*sdkmath.Int{&ev.Amount, &ev.Shares, &ev.Fee, &ev.YieldPaid} {
		if p.IsNil() {
			*p = sdkmath.ZeroInt()
		}
	}
}
