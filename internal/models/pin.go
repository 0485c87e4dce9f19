package models

import (
	"time"

	"gorm.io/gorm"
)

// PairingPin — the last PIN issued by the relay, kept for display to the user.
// Expiry is enforced by the relay; the local row is informational.
type PairingPin struct {
	gorm.Model
	Pin       string    `gorm:"column:pin"`
	ExpiresAt time.Time `gorm:"column:expires_at"`
}
