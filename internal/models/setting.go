package models

import (
	"encoding/json"
	"time"
)

// Setting stores one DB-backed configuration entry. Billing knobs (default
// multiplier, credit value, conversion mode, grace window) live here so admins can
// change them without a redeploy.
type Setting struct {
	Key       string          `gorm:"type:varchar(255);primaryKey"` // Configuration key.
	Value     json.RawMessage `gorm:"type:jsonb"`                   // JSON-encoded value.
	UpdatedAt time.Time       `gorm:"not null;autoUpdateTime"`      // Last update timestamp.
}
