package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/fleetops/fuelrecon/internal/domain/fleet"
)

const transactionColumns = `t.id, t.timestamp, t.card_number, t.fuel_type, t.quantity,
	t.station_id, t.vehicle_id, t.organization_id`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (*fleet.Transaction, error) {
	var (
		tx                          fleet.Transaction
		timestamp                   string
		quantity                    decimal.Decimal
		stationID, vehicleID, orgID sql.NullInt64
	)
	if err := row.Scan(&tx.ID, &timestamp, &tx.CardNumber, &tx.FuelType, &quantity,
		&stationID, &vehicleID, &orgID); err != nil {
		return nil, err
	}

	ts, err := parseTime(timestamp)
	if err != nil {
		return nil, err
	}
	tx.Timestamp = ts
	tx.Quantity = quantity
	tx.StationID = int64Ptr(stationID)
	tx.VehicleID = int64Ptr(vehicleID)
	tx.OrganizationID = int64Ptr(orgID)
	return &tx, nil
}

// GetTransaction retrieves a transaction by ID
func (s *Storage) GetTransaction(ctx context.Context, id int64) (*fleet.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions t WHERE t.id = ?`

	tx, err := scanTransaction(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, notFound(err, "transaction", id)
	}
	return tx, nil
}

// ListTransactions returns transactions matching the filter, oldest first.
// The card and vehicle filters go through the card table so a transaction
// without its own vehicle still matches through its card.
func (s *Storage) ListTransactions(ctx context.Context, filter TransactionFilter) ([]*fleet.Transaction, error) {
	query := `SELECT ` + transactionColumns + `
	FROM transactions t
	LEFT JOIN fuel_cards c ON c.number = t.card_number
	WHERE 1=1`
	var args []any

	if !filter.From.IsZero() {
		query += ` AND t.timestamp >= ?`
		args = append(args, formatTime(filter.From))
	}
	if !filter.To.IsZero() {
		query += ` AND t.timestamp <= ?`
		args = append(args, formatTime(filter.To))
	}
	if len(filter.CardIDs) > 0 {
		in, inArgs := inClause(filter.CardIDs)
		query += ` AND c.id IN (` + in + `)`
		args = append(args, inArgs...)
	}
	if len(filter.VehicleIDs) > 0 {
		in, inArgs := inClause(filter.VehicleIDs)
		query += ` AND (t.vehicle_id IN (` + in + `) OR c.vehicle_id IN (` + in + `))`
		args = append(args, inArgs...)
		args = append(args, inArgs...)
	}
	if len(filter.OrganizationIDs) > 0 {
		in, inArgs := inClause(filter.OrganizationIDs)
		query += ` AND t.organization_id IN (` + in + `)`
		args = append(args, inArgs...)
	}

	query += ` ORDER BY t.timestamp ASC, t.id ASC`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	txs := make([]*fleet.Transaction, 0)
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		txs = append(txs, tx)
	}
	return txs, rows.Err()
}

// SaveTransaction inserts or replaces a transaction
func (s *Storage) SaveTransaction(ctx context.Context, tx *fleet.Transaction) error {
	query := `
	INSERT INTO transactions
	(id, timestamp, card_number, fuel_type, quantity, station_id, vehicle_id, organization_id)
	VALUES (NULLIF(?, 0), ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		timestamp = excluded.timestamp,
		card_number = excluded.card_number,
		fuel_type = excluded.fuel_type,
		quantity = excluded.quantity,
		station_id = excluded.station_id,
		vehicle_id = excluded.vehicle_id,
		organization_id = excluded.organization_id
	`

	result, err := s.db.ExecContext(ctx, query,
		tx.ID,
		formatTime(tx.Timestamp),
		strings.TrimSpace(tx.CardNumber),
		tx.FuelType,
		tx.Quantity.String(),
		nullInt64(tx.StationID),
		nullInt64(tx.VehicleID),
		nullInt64(tx.OrganizationID),
	)
	if err != nil {
		return fmt.Errorf("failed to save transaction: %w", err)
	}

	if tx.ID == 0 {
		id, err := result.LastInsertId()
		if err != nil {
			return err
		}
		tx.ID = id
	}
	return nil
}
