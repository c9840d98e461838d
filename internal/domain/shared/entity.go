package shared

import "time"

// Timestamps holds creation and modification times shared by persisted entities
type Timestamps struct {
	CreatedAt time.Time
	UpdatedAt time.Time
}

// GetCreatedAt returns the creation timestamp
func (t *Timestamps) GetCreatedAt() time.Time {
	return t.CreatedAt
}

// GetUpdatedAt returns the last update timestamp
func (t *Timestamps) GetUpdatedAt() time.Time {
	return t.UpdatedAt
}

// Touch updates the UpdatedAt timestamp
func (t *Timestamps) Touch(now time.Time) {
	t.UpdatedAt = now
}

// NewTimestamps creates timestamps set to now
func NewTimestamps(now time.Time) Timestamps {
	return Timestamps{CreatedAt: now, UpdatedAt: now}
}
