// ./internal/state/snapshot_store.go
package state

import (
	"fmt"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/rs/zerolog/log"

	"github.com/ringfi/ringstake/internal/types"
)

// SnapshotRecord is one persisted ring snapshot row.
type SnapshotRecord struct {
	SnapshotID   int64       `json:"snapshot_id"`
	Timestamp    time.Time   `json:"timestamp"`
	PoolID       types.PoolID `json:"pool_id"`
	TotalAssets  sdkmath.Int `json:"total_assets"`
	TotalShares  sdkmath.Int `json:"total_shares"`
	AccPerShare  sdkmath.Int `json:"acc_per_share"`
	VaultBalance sdkmath.Int `json:"vault_balance"`
}

// SavePoolSnapshots persists one row per ring, all stamped with the
// same vault balance so auditors can reconcile principal against the
// asset ledger.
func SavePoolSnapshots(snapshots []types.PoolSnapshot, vaultBalance sdkmath.Int) error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}

	query := `
		INSERT INTO pool_snapshots (
			pool_id, total_assets, total_shares, acc_per_share, last_update_time, vault_balance
		) VALUES ($1, $2, $3, $4, $5, $6);
	`

	for _, snap := range snapshots {
		var lastUpdate interface{}
		if !snap.State.LastUpdateTime.IsZero() {
			lastUpdate = snap.State.LastUpdateTime
		}
		_, err := DB.Exec(
			query,
			int(snap.ID),
			snap.State.TotalAssets.String(),
			snap.State.TotalShares.String(),
			snap.State.AccPerShare.String(),
			lastUpdate,
			vaultBalance.String(),
		)
		if err != nil {
			return fmt.Errorf("failed to save snapshot for ring %d: %w", snap.ID, err)
		}
	}

	log.Debug().
		Int("rings", len(snapshots)).
		Str("vault_balance", vaultBalance.String()).
		Msg("Ring snapshots saved to database")

	return nil
}

// GetRecentSnapshots returns the newest snapshot rows, most recent
// first.
func GetRecentSnapshots(limit int) ([]SnapshotRecord, error) {
	if DB == nil {
		return nil, fmt.Errorf("database not initialized")
	}

	query := `
		SELECT snapshot_id, snapshot_timestamp, pool_id,
		       total_assets, total_shares, acc_per_share, vault_balance
		FROM pool_snapshots
		ORDER BY snapshot_timestamp DESC, pool_id ASC
		LIMIT $1;
	`

	rows, err := DB.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query pool snapshots: %w", err)
	}
	defer rows.Close()

	var records []SnapshotRecord
	for rows.Next() {
		var (
			rec                                            SnapshotRecord
			poolID                                         int
			assetsStr, sharesStr, accStr, balanceStr string
		)
		if err := rows.Scan(
			&rec.SnapshotID, &rec.Timestamp, &poolID,
			&assetsStr, &sharesStr, &accStr, &balanceStr,
		); err != nil {
			return nil, fmt.Errorf("failed to scan pool snapshot: %w", err)
		}
		rec.PoolID = types.PoolID(poolID)
		if rec.TotalAssets, err = parseNumeric(assetsStr); err != nil {
			return nil, err
		}
		if rec.TotalShares, err = parseNumeric(sharesStr); err != nil {
			return nil, err
		}
		if rec.AccPerShare, err = parseNumeric(accStr); err != nil {
			return nil, err
		}
		if rec.VaultBalance, err = parseNumeric(balanceStr); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate pool snapshots: %w", err)
	}

	return records, nil
}
