package db

import (
	"database/sql"
	"time"

	"coaching-chat/internal/models"
)

// CreateGuestPass inserts a new pass. maxUses of 0 means unlimited.
func (d *DB) CreateGuestPass(code string, expiresAt time.Time, maxUses int) error {
	return d.WithLock(func() error {
		_, err := d.db.Exec(
			`INSERT INTO guest_passes (code, expires_at, max_uses) VALUES (?, ?, ?)`,
			code, expiresAt, maxUses,
		)
		return err
	})
}

// GetGuestPass retrieves a pass by code.
func (d *DB) GetGuestPass(code string) (*models.GuestPass, error) {
	return WithLockResult(d, func() (*models.GuestPass, error) {
		row := d.db.QueryRow(
			`SELECT code, created_at, expires_at, max_uses, uses FROM guest_passes WHERE code = ?`,
			code,
		)

		var pass models.GuestPass
		if err := row.Scan(&pass.Code, &pass.CreatedAt, &pass.ExpiresAt, &pass.MaxUses, &pass.Uses); err != nil {
			return nil, err
		}
		return &pass, nil
	})
}

// RecordGuestPassUse increments the use counter for a pass.
func (d *DB) RecordGuestPassUse(code string) error {
	return d.WithLock(func() error {
		result, err := d.db.Exec(
			`UPDATE guest_passes SET uses = uses + 1 WHERE code = ?`,
			code,
		)
		if err != nil {
			return err
		}
		rows, err := result.RowsAffected()
		if err != nil {
			return err
		}
		if rows == 0 {
			return sql.ErrNoRows
		}
		return nil
	})
}
