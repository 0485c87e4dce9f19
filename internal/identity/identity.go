// Package identity produces and persists the stable, human-memorable device
// identifier this desktop registers with at the relay. The id is derived
// deterministically from a hardware fingerprint so a reinstall on the same
// machine does not force mobiles to re-pair; without a fingerprint it falls
// back to a random pick from the same word lists.
package identity

import (
	"fmt"
	"strings"
	"sync"

	"tether/internal/models"
)

// Identity is the read-only view handed to the relay manager.
type Identity struct {
	DeviceID   string `json:"deviceId"`
	DeviceName string `json:"deviceName"`
}

type Service struct {
	store Store

	mu      sync.Mutex
	current *models.DeviceIdentity

	// fingerprintFn is replaceable in tests.
	fingerprintFn func() string
}

func NewService(store Store) *Service {
	if store == nil {
		store = NewMemStore()
	}
	return &Service{store: store, fingerprintFn: readFingerprint}
}

// GetOrCreate returns the persisted identity, creating and persisting one on
// first use. DeviceName defaults to DeviceID until renamed.
func (s *Service) GetOrCreate() (Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current != nil {
		return view(s.current), nil
	}
	rec, err := s.store.Load()
	if err != nil {
		return Identity{}, fmt.Errorf("load identity: %w", err)
	}
	if rec == nil {
		rec = s.generate()
		if err := s.store.Save(rec); err != nil {
			return Identity{}, fmt.Errorf("save identity: %w", err)
		}
	}
	s.current = rec
	return view(rec), nil
}

// Rename sets the display name and persists immediately.
func (s *Service) Rename(name string) (Identity, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Identity{}, fmt.Errorf("device name must not be empty")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureLoadedLocked(); err != nil {
		return Identity{}, err
	}
	s.current.DeviceName = name
	if err := s.store.Save(s.current); err != nil {
		return Identity{}, fmt.Errorf("save identity: %w", err)
	}
	return view(s.current), nil
}

// Reset discards the identity and generates a fresh one. Paired mobiles will
// need to pair again.
func (s *Service) Reset() (Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.store.Delete(); err != nil {
		return Identity{}, fmt.Errorf("delete identity: %w", err)
	}
	rec := s.generate()
	if err := s.store.Save(rec); err != nil {
		return Identity{}, fmt.Errorf("save identity: %w", err)
	}
	s.current = rec
	return view(rec), nil
}

func (s *Service) ensureLoadedLocked() error {
	if s.current != nil {
		return nil
	}
	rec, err := s.store.Load()
	if err != nil {
		return fmt.Errorf("load identity: %w", err)
	}
	if rec == nil {
		rec = s.generate()
		if err := s.store.Save(rec); err != nil {
			return fmt.Errorf("save identity: %w", err)
		}
	}
	s.current = rec
	return nil
}

func (s *Service) generate() *models.DeviceIdentity {
	fp := s.fingerprintFn()
	id, ok := deriveID(fp)
	if !ok {
		id = randomID()
		fp = ""
	}
	return &models.DeviceIdentity{
		DeviceID:    id,
		DeviceName:  id,
		Fingerprint: fp,
	}
}

func view(m *models.DeviceIdentity) Identity {
	return Identity{DeviceID: m.DeviceID, DeviceName: m.DeviceName}
}
