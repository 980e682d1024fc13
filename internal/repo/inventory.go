package repo

import (
	"context"
	"database/sql"

	"github.com/crucial707/hci-inventory/internal/inventory"
	"github.com/crucial707/hci-inventory/internal/models"
)

// ========================
// REPOSITORY STRUCT
// ========================

// InventoryRepo stores the inventory in the inventory_records table. Row
// order is kept in the position column.
type InventoryRepo struct {
	DB *sql.DB
}

func NewInventoryRepo(db *sql.DB) *InventoryRepo {
	return &InventoryRepo{DB: db}
}

// ========================
// LOAD ALL RECORDS
// ========================

func (r *InventoryRepo) Load(ctx context.Context) ([]models.Record, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT id, owner, department, model, ip, os, status
		 FROM inventory_records
		 ORDER BY position`)
	if err != nil {
		return nil, &inventory.StorageError{Op: "load", Err: err}
	}
	defer rows.Close()

	records := []models.Record{}
	for rows.Next() {
		var rec models.Record
		if err := rows.Scan(&rec.ID, &rec.Owner, &rec.Department, &rec.Model, &rec.IP, &rec.OS, &rec.Status); err != nil {
			return nil, &inventory.StorageError{Op: "load", Err: err}
		}
		records = append(records, inventory.Normalize(rec.Raw()))
	}
	if err := rows.Err(); err != nil {
		return nil, &inventory.StorageError{Op: "load", Err: err}
	}
	return records, nil
}

// ========================
// SAVE ALL RECORDS
// ========================

// Save replaces the table contents in one transaction.
func (r *InventoryRepo) Save(ctx context.Context, records []models.Record) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return &inventory.StorageError{Op: "save", Err: err}
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM inventory_records`); err != nil {
		return &inventory.StorageError{Op: "save", Err: err}
	}

	for i, rec := range records {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO inventory_records (position, id, owner, department, model, ip, os, status)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			i, rec.ID, rec.Owner, rec.Department, rec.Model, rec.IP, rec.OS, rec.Status,
		)
		if err != nil {
			return &inventory.StorageError{Op: "save", Err: err}
		}
	}

	if err := tx.Commit(); err != nil {
		return &inventory.StorageError{Op: "save", Err: err}
	}
	return nil
}
