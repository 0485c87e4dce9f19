package models

import "gorm.io/gorm"

// DeviceIdentity — the stable identity this desktop registers with at the relay.
// Exactly one row exists per installation (until an explicit reset).
type DeviceIdentity struct {
	gorm.Model
	DeviceID    string `gorm:"column:device_id;uniqueIndex"`
	DeviceName  string `gorm:"column:device_name"`
	Fingerprint string `gorm:"column:fingerprint"`
}
