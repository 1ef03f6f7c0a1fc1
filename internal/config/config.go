package config

import (
	"errors"
	"os"
	"strconv"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/rs/zerolog/log"
)

// Application configuration loaded from environment variables.
// These are populated at startup by the LoadConfig function.
var (
	// VaultAccount is the ledger's own account on the asset ledger;
	// it holds all pooled principal and undistributed yield.
	VaultAccount string
	// FeeRecipient receives protocol fees and swept surplus.
	FeeRecipient string
	// AdminAccount may pause the ledger and sweep fees.
	AdminAccount string

	// MinDeposit is the floor below which deposits are rejected.
	MinDeposit sdkmath.Int
	// PoolCap is the maximum total assets any single ring may hold.
	PoolCap sdkmath.Int

	// WebPort is the port the snapshot/transaction API listens on.
	WebPort string
	// SnapshotInterval is how often ring snapshots are persisted.
	SnapshotInterval time.Duration
)

// LoadConfig loads configuration from environment variables and sets
// the global config vars. The account identities are required; the
// numeric knobs fall back to defaults.
func LoadConfig() error {
	log.Info().Msg("Loading application configuration from environment variables...")

	var err error

	VaultAccount, err = getEnv("RING_VAULT_ACCOUNT")
	if err != nil {
		return err
	}

	FeeRecipient, err = getEnv("RING_FEE_RECIPIENT")
	if err != nil {
		return err
	}

	AdminAccount, err = getEnv("RING_ADMIN_ACCOUNT")
	if err != nil {
		return err
	}

	MinDeposit, err = getEnvAsInt("RING_MIN_DEPOSIT", sdkmath.NewInt(1_000))
	if err != nil {
		return err
	}

	PoolCap, err = getEnvAsInt("RING_POOL_CAP", sdkmath.NewIntWithDecimal(1, 24))
	if err != nil {
		return err
	}

	WebPort = getEnvOr("WEB_PORT", "8080")

	SnapshotInterval, err = getEnvAsDuration("RING_SNAPSHOT_INTERVAL", 10*time.Minute)
	if err != nil {
		return err
	}

	// Load the ring registry (defaults or RING_POOL_CONFIGS override)
	if err := loadPoolConfigs(); err != nil {
		return err
	}

	log.Debug().
		Str("VaultAccount", VaultAccount).
		Str("FeeRecipient", FeeRecipient).
		Str("AdminAccount", AdminAccount).
		Str("MinDeposit", MinDeposit.String()).
		Str("PoolCap", PoolCap.String()).
		Msg("Configuration loaded successfully.")

	return nil
}

// getEnv retrieves a string environment variable. Returns error if not set.
func getEnv(key string) (string, error) {
	if value, exists := os.LookupEnv(key); exists {
		return value, nil
	}
	return "", errors.New("environment variable " + key + " is required but not set")
}

// getEnvOr retrieves a string environment variable with a default.
func getEnvOr(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

// getEnvAsInt retrieves an environment variable as an sdkmath.Int.
// Returns the fallback when unset, an error when invalid.
func getEnvAsInt(key string, fallback sdkmath.Int) (sdkmath.Int, error) {
	valueStr, exists := os.LookupEnv(key)
	if !exists {
		return fallback, nil
	}
	value, ok := sdkmath.NewIntFromString(valueStr)
	if !ok || value.IsNegative() {
		return sdkmath.ZeroInt(), errors.New("environment variable " + key + " must be a non-negative integer, got: " + valueStr)
	}
	return value, nil
}

// getEnvAsDuration retrieves an environment variable as seconds.
// Returns the fallback when unset, an error when invalid.
func getEnvAsDuration(key string, fallback time.Duration) (time.Duration, error) {
	valueStr, exists := os.LookupEnv(key)
	if !exists {
		return fallback, nil
	}
	seconds, err := strconv.ParseInt(valueStr, 10, 64)
	if err != nil || seconds < 0 {
		return 0, errors.New("environment variable " + key + " must be a non-negative number of seconds, got: " + valueStr)
	}
	return time.Duration(seconds) * time.Second, nil
}
