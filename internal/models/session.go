package models

import (
	"time"

	"gorm.io/gorm"
)

// SessionHistory — one row per remote terminal session, for the local UI.
// The live session set is owned by the relay registry; this is an audit trail.
type SessionHistory struct {
	gorm.Model
	SessionID     string `gorm:"column:session_id;index"`
	MobileID      string `gorm:"column:mobile_id;index"`
	WorkspaceID   string `gorm:"column:workspace_id"`
	WorkspaceName string `gorm:"column:workspace_name"`
	StartedAt     time.Time
	EndedAt       *time.Time
}
