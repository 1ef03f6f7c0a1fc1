// ./internal/state/event_journal.go
package state

import (
	"fmt"

	sdkmath "cosmossdk.io/math"
	"github.com/rs/zerolog/log"

	"github.com/ringfi/ringstake/internal/types"
)

// Journal persists committed ledger events to PostgreSQL. It
// implements types.EventSink; persistence failures are logged rather
// than propagated because the ledger transaction has already
// committed by the time the sink runs.
type Journal struct{}

// NewJournal returns an event journal backed by the global DB.
func NewJournal() *Journal {
	return &Journal{}
}

// Record implements types.EventSink.
func (j *Journal) Record(ev types.Event) {
	if err := SaveEvent(ev); err != nil {
		log.Error().Err(err).
			Str("event_id", ev.ID).
			Str("kind", string(ev.Kind)).
			Msg("Failed to persist ledger event")
	}
}

// SaveEvent appends one event to the journal.
func SaveEvent(ev types.Event) error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}

	query := `
		INSERT INTO ledger_events (
			event_id, kind, account, from_pool, to_pool,
			amount, shares, fee, yield_paid, paused, stranded, event_timestamp
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12);
	`

	_, err := DB.Exec(
		query,
		ev.ID, string(ev.Kind), ev.Account, int(ev.FromPool), int(ev.ToPool),
		ev.Amount.String(), ev.Shares.String(), ev.Fee.String(), ev.YieldPaid.String(),
		ev.Paused, ev.Stranded, ev.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("failed to save ledger event: %w", err)
	}

	log.Debug().
		Str("event_id", ev.ID).
		Str("kind", string(ev.Kind)).
		Msg("Ledger event journaled")

	return nil
}

// GetRecentEvents returns the newest events, most recent first.
func GetRecentEvents(limit int) ([]types.Event, error) {
	if DB == nil {
		return nil, fmt.Errorf("database not initialized")
	}

	query := `
		SELECT event_id, kind, account, from_pool, to_pool,
		       amount, shares, fee, yield_paid, paused, stranded, event_timestamp
		FROM ledger_events
		ORDER BY event_timestamp DESC
		LIMIT $1;
	`

	rows, err := DB.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query ledger events: %w", err)
	}
	defer rows.Close()

	var events []types.Event
	for rows.Next() {
		var (
			ev                                   types.Event
			kind                                 string
			fromPool, toPool                     int
			amountStr, sharesStr, feeStr, yieldStr string
		)
		if err := rows.Scan(
			&ev.ID, &kind, &ev.Account, &fromPool, &toPool,
			&amountStr, &sharesStr, &feeStr, &yieldStr,
			&ev.Paused, &ev.Stranded, &ev.Timestamp,
		); err != nil {
			return nil, fmt.Errorf("failed to scan ledger event: %w", err)
		}
		ev.Kind = types.EventKind(kind)
		ev.FromPool = types.PoolID(fromPool)
		ev.ToPool = types.PoolID(toPool)
		if ev.Amount, err = parseNumeric(amountStr); err != nil {
			return nil, err
		}
		if ev.Shares, err = parseNumeric(sharesStr); err != nil {
			return nil, err
		}
		if ev.Fee, err = parseNumeric(feeStr); err != nil {
			return nil, err
		}
		if ev.YieldPaid, err = parseNumeric(yieldStr); err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate ledger events: %w", err)
	}

	return events, nil
}

// parseNumeric converts a NUMERIC(78,0) column value back to an Int.
func parseNumeric(s string) (sdkmath.Int, error) {
	value, ok := sdkmath.NewIntFromString(s)
	if !ok {
		return sdkmath.ZeroInt(), fmt.Errorf("failed to parse numeric column value %q", s)
	}
	return value, nil
}
