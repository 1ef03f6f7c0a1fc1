/*

This file contains the default ring registry. The five rings trade
off lock duration against fee rate and yield amplification: the
longer an exit is gated, the larger the share of each injection the
ring's stakers keep and the harder their per-share accrual is
amplified.

*/

package config

import (
	"encoding/json"
	"errors"
	"os"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/rs/zerolog/log"

	"github.com/ringfi/ringstake/internal/types"
)

// PoolConfigs is the ring registry the ledger is initialized with.
// Populated by LoadConfig from defaults or the RING_POOL_CONFIGS
// override; immutable afterwards.
var PoolConfigs [types.NumPools]types.PoolConfig

// amp returns a 1e18-scaled amplifier from a value expressed in
// hundredths (125 -> 1.25x).
func amp(hundredths int64) sdkmath.Int {
	return sdkmath.NewInt(hundredths).Mul(sdkmath.NewIntWithDecimal(1, 16))
}

// DefaultPoolConfigs returns the baseline registry used when no
// override is configured.
func DefaultPoolConfigs() [types.NumPools]types.PoolConfig {
	return [types.NumPools]types.PoolConfig{
		// Ring 0: no lock, highest fee, no amplification. Entry ring.
		{WeightBps: 3000, FeeBps: 500, MinLockDuration: 0, YieldAmplifier: amp(100)},
		// Ring 1: one day lock.
		{WeightBps: 2500, FeeBps: 300, MinLockDuration: 24 * time.Hour, YieldAmplifier: amp(110)},
		// Ring 2: one week lock.
		{WeightBps: 2000, FeeBps: 200, MinLockDuration: 7 * 24 * time.Hour, YieldAmplifier: amp(125)},
		// Ring 3: one month lock.
		{WeightBps: 1500, FeeBps: 100, MinLockDuration: 30 * 24 * time.Hour, YieldAmplifier: amp(150)},
		// Ring 4: one quarter lock, lowest fee, heaviest amplification.
		{WeightBps: 1000, FeeBps: 50, MinLockDuration: 90 * 24 * time.Hour, YieldAmplifier: amp(200)},
	}
}

// poolConfigEnv is the JSON shape of one ring in RING_POOL_CONFIGS.
type poolConfigEnv struct {
	WeightBps   uint32 `json:"weight_bps"`
	FeeBps      uint32 `json:"fee_bps"`
	LockSeconds int64  `json:"lock_seconds"`
	Amplifier   string `json:"amplifier"` // 1e18-scaled integer string
}

// loadPoolConfigs fills PoolConfigs from RING_POOL_CONFIGS when set,
// otherwise from the defaults. An override must describe exactly
// NumPools rings.
func loadPoolConfigs() error {
	raw, exists := os.LookupEnv("RING_POOL_CONFIGS")
	if !exists {
		PoolConfigs = DefaultPoolConfigs()
		log.Debug().Msg("Using default ring registry")
		return nil
	}

	var entries []poolConfigEnv
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		return errors.New("environment variable RING_POOL_CONFIGS is not valid JSON: " + err.Error())
	}
	if len(entries) != types.NumPools {
		return errors.New("environment variable RING_POOL_CONFIGS must describe exactly 5 rings")
	}

	for i, e := range entries {
		amplifier, ok := sdkmath.NewIntFromString(e.Amplifier)
		if !ok || !amplifier.IsPositive() {
			return errors.New("RING_POOL_CONFIGS: amplifier must be a positive integer string")
		}
		if e.LockSeconds < 0 {
			return errors.New("RING_POOL_CONFIGS: lock_seconds must be non-negative")
		}
		PoolConfigs[i] = types.PoolConfig{
			WeightBps:       e.WeightBps,
			FeeBps:          e.FeeBps,
			MinLockDuration: time.Duration(e.LockSeconds) * time.Second,
			YieldAmplifier:  amplifier,
		}
	}

	log.Info().Msg("Ring registry loaded from RING_POOL_CONFIGS")
	return nil
}

// LoadGenesisBalances parses RING_GENESIS_BALANCES, a JSON object of
// account -> integer amount, used to seed the in-memory asset ledger
// for local operation. Returns an empty map when unset.
func LoadGenesisBalances() (map[string]sdkmath.Int, error) {
	balances := make(map[string]sdkmath.Int)

	raw, exists := os.LookupEnv("RING_GENESIS_BALANCES")
	if !exists {
		return balances, nil
	}

	var entries map[string]string
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		return nil, errors.New("environment variable RING_GENESIS_BALANCES is not valid JSON: " + err.Error())
	}
	for account, amountStr := range entries {
		amount, ok := sdkmath.NewIntFromString(amountStr)
		if !ok || amount.IsNegative() {
			return nil, errors.New("RING_GENESIS_BALANCES: amount for " + account + " must be a non-negative integer string")
		}
		balances[account] = amount
	}

	return balances, nil
}
