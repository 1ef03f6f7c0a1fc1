package config

import (
	"testing"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/stretchr/testify/require"

	"github.com/ringfi/ringstake/internal/types"
)

func TestDefaultPoolConfigs(t *testing.T) {
	defaults := DefaultPoolConfigs()
	require.Len(t, defaults[:], types.NumPools)

	weightTotal := uint32(0)
	for idx, pc := range defaults {
		weightTotal += pc.WeightBps
		require.LessOrEqual(t, pc.FeeBps, uint32(types.BpsDenom), "ring %d", idx)
		require.True(t, pc.YieldAmplifier.IsPositive(), "ring %d", idx)
		if idx > 0 {
			prev := defaults[idx-1]
			// Longer locks buy lower fees and heavier amplification.
			require.Greater(t, pc.MinLockDuration, prev.MinLockDuration, "ring %d", idx)
			require.Less(t, pc.FeeBps, prev.FeeBps, "ring %d", idx)
			require.True(t, pc.YieldAmplifier.GT(prev.YieldAmplifier), "ring %d", idx)
		}
	}
	require.Equal(t, uint32(types.BpsDenom), weightTotal)
}

func TestAmp(t *testing.T) {
	require.Equal(t, sdkmath.NewIntWithDecimal(1, 18).String(), amp(100).String())
	require.Equal(t, sdkmath.NewIntWithDecimal(125, 16).String(), amp(125).String())
}

func TestLoadPoolConfigsDefault(t *testing.T) {
	require.NoError(t, loadPoolConfigs())
	require.Equal(t, DefaultPoolConfigs(), PoolConfigs)
}

func TestLoadPoolConfigsOverride(t *testing.T) {
	t.Setenv("RING_POOL_CONFIGS", `[
		{"weight_bps":2000,"fee_bps":100,"lock_seconds":0,"amplifier":"1000000000000000000"},
		{"weight_bps":2000,"fee_bps":80,"lock_seconds":3600,"amplifier":"1100000000000000000"},
		{"weight_bps":2000,"fee_bps":60,"lock_seconds":86400,"amplifier":"1250000000000000000"},
		{"weight_bps":2000,"fee_bps":40,"lock_seconds":604800,"amplifier":"1500000000000000000"},
		{"weight_bps":2000,"fee_bps":20,"lock_seconds":2592000,"amplifier":"2000000000000000000"}
	]`)

	require.NoError(t, loadPoolConfigs())
	require.Equal(t, uint32(100), PoolConfigs[0].FeeBps)
	require.Equal(t, time.Hour, PoolConfigs[1].MinLockDuration)
	require.Equal(t, sdkmath.NewIntWithDecimal(2, 18).String(), PoolConfigs[4].YieldAmplifier.String())
}

func TestLoadPoolConfigsRejectsBadOverrides(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"not json", "nope"},
		{"wrong ring count", `[{"weight_bps":1,"fee_bps":1,"lock_seconds":0,"amplifier":"1"}]`},
		{"zero amplifier", `[
			{"weight_bps":2000,"fee_bps":0,"lock_seconds":0,"amplifier":"0"},
			{"weight_bps":2000,"fee_bps":0,"lock_seconds":0,"amplifier":"1"},
			{"weight_bps":2000,"fee_bps":0,"lock_seconds":0,"amplifier":"1"},
			{"weight_bps":2000,"fee_bps":0,"lock_seconds":0,"amplifier":"1"},
			{"weight_bps":2000,"fee_bps":0,"lock_seconds":0,"amplifier":"1"}
		]`},
		{"negative lock", `[
			{"weight_bps":2000,"fee_bps":0,"lock_seconds":-1,"amplifier":"1"},
			{"weight_bps":2000,"fee_bps":0,"lock_seconds":0,"amplifier":"1"},
			{"weight_bps":2000,"fee_bps":0,"lock_seconds":0,"amplifier":"1"},
			{"weight_bps":2000,"fee_bps":0,"lock_seconds":0,"amplifier":"1"},
			{"weight_bps":2000,"fee_bps":0,"lock_seconds":0,"amplifier":"1"}
		]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("RING_POOL_CONFIGS", tt.raw)
			require.Error(t, loadPoolConfigs())
		})
	}
}

func TestLoadGenesisBalances(t *testing.T) {
	balances, err := LoadGenesisBalances()
	require.NoError(t, err)
	require.Empty(t, balances)

	t.Setenv("RING_GENESIS_BALANCES", `{"alice":"1000000","bob":"250"}`)
	balances, err = LoadGenesisBalances()
	require.NoError(t, err)
	require.Len(t, balances, 2)
	require.Equal(t, int64(1_000_000), balances["alice"].Int64())
	require.Equal(t, int64(250), balances["bob"].Int64())

	t.Setenv("RING_GENESIS_BALANCES", `{"alice":"-5"}`)
	_, err = LoadGenesisBalances()
	require.Error(t, err)

	t.Setenv("RING_GENESIS_BALANCES", `not json`)
	_, err = LoadGenesisBalances()
	require.Error(t, err)
}
