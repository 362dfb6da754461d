package domain

import "time"

// AuditFields holds standard audit information for domain entities.
type AuditFields struct {
	CreatedAt     time.Time `json:"createdAt"`
	CreatedBy     string    `json:"createdBy"`
	LastUpdatedAt time.Time `json:"lastUpdatedAt"`
	LastUpdatedBy string    `json:"lastUpdatedBy"`
	Version       int64     `json:"version"`
}

// SoftDelete marks a record as tombstoned. Deleted records are never removed
// from the store and are excluded from every enumeration.
type SoftDelete struct {
	IsDeleted bool       `json:"isDeleted"`
	DeletedAt *time.Time `json:"deletedAt,omitempty"`
	DeletedBy *string    `json:"deletedBy,omitempty"`
}

// MarkDeleted stamps the record as deleted by actor at now.
func (s *SoftDelete) MarkDeleted(actor string, now time.Time) {
	s.IsDeleted = true
	s.DeletedAt = &now
	s.DeletedBy = &actor
}

// Touch re-stamps the last-updated fields.
func (a *AuditFields) Touch(actor string, now time.Time) {
	a.LastUpdatedAt = now
	a.LastUpdatedBy = actor
}
