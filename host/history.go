package host

import (
	"time"

	"tether/internal/logs"
	"tether/internal/models"
	"tether/internal/relay"

	"gorm.io/gorm"
)

// gormHistory writes the session audit trail. Failures are logged and
// swallowed: history is never allowed to affect the relay path.
type gormHistory struct {
	db *gorm.DB
}

func newGormHistory(db *gorm.DB) *gormHistory { return &gormHistory{db: db} }

func (h *gormHistory) SessionStarted(s relay.RemoteSession) {
	row := models.SessionHistory{
		SessionID:     s.ID,
		MobileID:      s.MobileID,
		WorkspaceID:   s.WorkspaceID,
		WorkspaceName: s.WorkspaceName,
		StartedAt:     s.CreatedAt,
	}
	if err := h.db.Create(&row).Error; err != nil {
		logs.Logger.Warnf("session history insert: %v", err)
	}
}

func (h *gormHistory) SessionEnded(sessionID string, at time.Time) {
	err := h.db.Model(&models.SessionHistory{}).
		Where("session_id = ? AND ended_at IS NULL", sessionID).
		Update("ended_at", at).Error
	if err != nil {
		logs.Logger.Warnf("session history update: %v", err)
	}
}
