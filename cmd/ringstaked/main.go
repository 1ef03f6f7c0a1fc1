package main

import (
	"context"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/ringfi/ringstake/internal/bank"
	"github.com/ringfi/ringstake/internal/config"
	"github.com/ringfi/ringstake/internal/ledger"
	"github.com/ringfi/ringstake/internal/logger"
	"github.com/ringfi/ringstake/internal/state"
	"github.com/ringfi/ringstake/internal/web"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// main is the entry point for the ringstake staking ledger daemon.
func main() {
	// --- 1. Initialization Phase ---
	if err := godotenv.Load(); err != nil {
		log.Warn().Msg("Warning: .env file not found. Relying on OS environment variables.")
	}

	// Load configuration from environment variables
	if err := config.LoadConfig(); err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logger.Initialize(os.Getenv("LOG_LEVEL"))
	log.Info().Msg("Ringstake staking ledger starting...")

	// Initialize Database Connection (event journal and snapshots)
	dbCfg := state.DBConfig{
		Host: os.Getenv("DB_HOST"), Port: mustAtoi(os.Getenv("DB_PORT"), 5432),
		User: os.Getenv("DB_USER"), Password: os.Getenv("DB_PASSWORD"),
		DBName: os.Getenv("DB_NAME"), SSLMode: os.Getenv("DB_SSLMODE"),
	}
	if err := state.InitDB(dbCfg); err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer state.CloseDB()
	if err := state.EnsureSchema(); err != nil {
		log.Fatal().Err(err).Msg("Failed to ensure database schema")
	}

	// --- 2. Asset Ledger Initialization ---
	assetBank := bank.NewMemoryBank()
	genesis, err := config.LoadGenesisBalances()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load genesis balances")
	}
	for account, amount := range genesis {
		assetBank.Mint(account, amount)
	}
	if len(genesis) > 0 {
		log.Info().Int("accounts", len(genesis)).Msg("Genesis balances minted")
	}

	// --- 3. Ledger Construction with Dependency Injection ---
	core, err := ledger.New(ledger.Config{
		Bank:         assetBank,
		Account:      config.VaultAccount,
		FeeRecipient: config.FeeRecipient,
		Admin:        config.AdminAccount,
		Pools:        config.PoolConfigs,
		MinDeposit:   config.MinDeposit,
		PoolCap:      config.PoolCap,
		Events:       state.NewJournal(),
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create ring ledger")
	}

	// --- 4. Start Web Server ---
	webServer := web.NewWebServer(config.WebPort, core)
	go func() {
		log.Info().Str("port", config.WebPort).Str("url", "http://localhost:"+config.WebPort).Msg("Starting ringstake API server")
		if err := webServer.Start(); err != nil {
			log.Error().Err(err).Msg("Web server failed to start")
		}
	}()

	// --- 5. Snapshot Loop ---
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh
		log.Info().Str("signal", sig.String()).Msg("Shutdown signal received")
		cancel()
	}()

	log.Info().Str("interval", config.SnapshotInterval.String()).Msg("Starting snapshot loop")
	runSnapshotLoop(ctx, core, config.SnapshotInterval)

	log.Info().Msg("Ringstake staking ledger stopped")
}

// runSnapshotLoop persists ring snapshots at a fixed interval until
// the context is cancelled.
func runSnapshotLoop(ctx context.Context, core *ledger.Ledger, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// Persist an initial snapshot immediately
	persistSnapshots(core)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			persistSnapshots(core)
		}
	}
}

// persistSnapshots saves the current state of every ring
func persistSnapshots(core *ledger.Ledger) {
	if err := state.SavePoolSnapshots(core.Snapshots(), core.VaultBalance()); err != nil {
		log.Error().Err(err).Msg("Failed to persist ring snapshots")
		return
	}
	log.Debug().Msg("Ring snapshots persisted")
}

// Helper to convert string to int with a default value
func mustAtoi(s string, defaultValue int) int {
	i, err := strconv.Atoi(s)
	if err != nil {
		return defaultValue
	}
	return i
}
