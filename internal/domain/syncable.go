package domain

import "time"

// Record provides the common identity and timestamp fields embedded in persisted entities.
type Record struct {
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	ID        string    `json:"id"`
}

// Touch updates the UpdatedAt timestamp.
// Call this whenever the underlying entity changes.
func (r *Record) Touch(now time.Time) {
	r.UpdatedAt = now
}

// InitTimestamps sets both CreatedAt and UpdatedAt.
// Call this when creating a new entity.
func (r *Record) InitTimestamps(now time.Time) {
	r.CreatedAt = now
	r.UpdatedAt = now
}
