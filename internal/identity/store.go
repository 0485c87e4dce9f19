package identity

import (
	"errors"
	"sync"

	"tether/internal/models"

	"gorm.io/gorm"
)

// Store — contract for persisting the single identity record.
type Store interface {
	Load() (*models.DeviceIdentity, error)
	Save(*models.DeviceIdentity) error
	Delete() error
}

// ─────────────────────────── gorm store ───────────────────────────

type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore { return &GormStore{db: db} }

func (s *GormStore) Load() (*models.DeviceIdentity, error) {
	var m models.DeviceIdentity
	if err := s.db.Order("id asc").First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &m, nil
}

func (s *GormStore) Save(m *models.DeviceIdentity) error {
	if m.ID != 0 {
		return s.db.Save(m).Error
	}
	// only one identity row may exist
	var existing models.DeviceIdentity
	err := s.db.Order("id asc").First(&existing).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return s.db.Create(m).Error
	case err != nil:
		return err
	default:
		m.ID = existing.ID
		m.CreatedAt = existing.CreatedAt
		return s.db.Save(m).Error
	}
}

func (s *GormStore) Delete() error {
	return s.db.Where("1 = 1").Delete(&models.DeviceIdentity{}).Error
}

// ─────────────────────────── in-memory store (fallback / tests) ───────────────────────────

type MemStore struct {
	mu  sync.Mutex
	rec *models.DeviceIdentity
}

func NewMemStore() *MemStore { return &MemStore{} }

func (s *MemStore) Load() (*models.DeviceIdentity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.rec == nil {
		return nil, nil
	}
	cp := *s.rec
	return &cp, nil
}

func (s *MemStore) Save(m *models.DeviceIdentity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *m
	s.rec = &cp
	return nil
}

func (s *MemStore) Delete() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rec = nil
	return nil
}
