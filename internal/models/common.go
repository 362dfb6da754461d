package models

import "time"

// AuditFields mirrors the audit columns shared by ledger tables.
type AuditFields struct {
	CreatedAt     time.Time `db:"created_at"`
	CreatedBy     string    `db:"created_by"`
	LastUpdatedAt time.Time `db:"last_updated_at"`
	LastUpdatedBy string    `db:"last_updated_by"`
	Version       int64     `db:"version"`
}

// SoftDelete mirrors the tombstone columns.
type SoftDelete struct {
	IsDeleted bool       `db:"is_deleted"`
	DeletedAt *time.Time `db:"deleted_at"`
	DeletedBy *string    `db:"deleted_by"`
}
