package ledger

import (
	"fmt"
	"testing"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/stretchr/testify/require"

	"github.com/ringfi/ringstake/internal/bank"
	"github.com/ringfi/ringstake/internal/types"
)

const (
	vaultAccount = "ringstake-vault"
	feeAccount   = "fee-recipient"
	adminAccount = "admin"
	alice        = "alice"
	bob          = "bob"
)

// testClock is a manually advanced time source.
type testClock struct {
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.now = c.now.Add(d)
}

// recordingSink collects emitted events in order.
type recordingSink struct {
	events []types.Event
}

func (r *recordingSink) Record(ev types.Event) {
	r.events = append(r.events, ev)
}

func (r *recordingSink) last(t *testing.T) types.Event {
	t.Helper()
	require.NotEmpty(t, r.events)
	return r.events[len(r.events)-1]
}

// flakyBank wraps the in-memory bank so individual operations can be
// forced to fail or hooked for reentrancy tests.
type flakyBank struct {
	*bank.MemoryBank
	failTransfer     bool
	failTransferFrom bool
	transferHook     func()
}

func (f *flakyBank) Transfer(from, to string, amount sdkmath.Int) error {
	if f.transferHook != nil {
		hook := f.transferHook
		f.transferHook = nil
		hook()
	}
	if f.failTransfer {
		return fmt.Errorf("transfer rejected")
	}
	return f.MemoryBank.Transfer(from, to, amount)
}

func (f *flakyBank) TransferFrom(from, to string, amount sdkmath.Int) error {
	if f.failTransferFrom {
		return fmt.Errorf("transferFrom rejected")
	}
	return f.MemoryBank.TransferFrom(from, to, amount)
}

// onePointZero is a 1.0x amplifier at 1e18 scale.
func onePointZero() sdkmath.Int {
	return sdkmath.NewIntWithDecimal(1, 18)
}

// testPools returns a registry exercising the interesting corners:
// ring 0 is plain, ring 1 carries the 47 bps fee from the reference
// scenario, ring 2 has a 10% fee, ring 3 a one-hour lock, ring 4 a
// 2.0x amplifier.
func testPools() [types.NumPools]types.PoolConfig {
	return [types.NumPools]types.PoolConfig{
		{WeightBps: 2000, FeeBps: 0, MinLockDuration: 0, YieldAmplifier: onePointZero()},
		{WeightBps: 2000, FeeBps: 47, MinLockDuration: 0, YieldAmplifier: onePointZero()},
		{WeightBps: 2000, FeeBps: 1000, MinLockDuration: 0, YieldAmplifier: onePointZero()},
		{WeightBps: 2000, FeeBps: 0, MinLockDuration: time.Hour, YieldAmplifier: onePointZero()},
		{WeightBps: 2000, FeeBps: 0, MinLockDuration: 0, YieldAmplifier: sdkmath.NewIntWithDecimal(2, 18)},
	}
}

// testEnv bundles a ledger with its collaborators.
type testEnv struct {
	ledger *Ledger
	bank   *flakyBank
	clock  *testClock
	sink   *recordingSink
}

// newTestEnv builds a funded ledger. mutate may adjust the config
// before construction; nil leaves the defaults.
func newTestEnv(t *testing.T, mutate func(*Config)) *testEnv {
	t.Helper()

	fb := &flakyBank{MemoryBank: bank.NewMemoryBank()}
	clk := newTestClock()
	sink := &recordingSink{}

	cfg := Config{
		Bank:         fb,
		Account:      vaultAccount,
		FeeRecipient: feeAccount,
		Admin:        adminAccount,
		Pools:        testPools(),
		MinDeposit:   sdkmath.NewInt(10),
		PoolCap:      sdkmath.NewInt(1_000_000),
		Events:       sink,
		Now:          clk.Now,
	}
	if mutate != nil {
		mutate(&cfg)
	}

	l, err := New(cfg)
	require.NoError(t, err)

	for _, account := range []string{alice, bob, adminAccount} {
		fb.Mint(account, sdkmath.NewInt(1_000_000))
		fb.Approve(account, vaultAccount, sdkmath.NewInt(1_000_000))
	}

	return &testEnv{ledger: l, bank: fb, clock: clk, sink: sink}
}

func i(v int64) sdkmath.Int {
	return sdkmath.NewInt(v)
}
