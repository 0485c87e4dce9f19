package pairing

import (
	"errors"
	"sync"

	"tether/internal/models"

	"gorm.io/gorm"
)

// ─────────────────────────── gorm store ───────────────────────────

type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore { return &GormStore{db: db} }

func (s *GormStore) SavePin(p Pin) error {
	return s.db.Create(&models.PairingPin{Pin: p.Value, ExpiresAt: p.ExpiresAt}).Error
}

func (s *GormStore) LastPin() (*Pin, error) {
	var m models.PairingPin
	if err := s.db.Order("id desc").First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &Pin{Value: m.Pin, ExpiresAt: m.ExpiresAt}, nil
}

// ─────────────────────────── in-memory store (fallback / tests) ───────────────────────────

type MemStore struct {
	mu   sync.Mutex
	last *Pin
}

func NewMemStore() *MemStore { return &MemStore{} }

func (s *MemStore) SavePin(p Pin) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := p
	s.last = &cp
	return nil
}

func (s *MemStore) LastPin() (*Pin, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last == nil {
		return nil, nil
	}
	cp := *s.last
	return &cp, nil
}
