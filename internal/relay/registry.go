package relay

import (
	"sort"
	"sync"
	"time"
)

// Status is the connection state of the relay channel. Exactly one value at
// a time.
type Status string

const (
	StatusDisconnected Status = "disconnected"
	StatusConnecting   Status = "connecting"
	StatusConnected    Status = "connected"
	StatusError        Status = "error"
)

// MobileConnection — a paired mobile currently attached through the relay.
type MobileConnection struct {
	MobileID     string    `json:"mobileId"`
	ConnectedAt  time.Time `json:"connectedAt"`
	LastActivity time.Time `json:"lastActivity"`
}

// RemoteSession — a terminal process opened on behalf of a mobile against a
// workspace. IDs are never reused.
type RemoteSession struct {
	ID            string    `json:"id"`
	MobileID      string    `json:"mobileId"`
	WorkspaceID   string    `json:"workspaceId"`
	WorkspaceName string    `json:"workspaceName"`
	CreatedAt     time.Time `json:"createdAt"`
}

// Snapshot is the status view pushed to local UI surfaces on every change.
type Snapshot struct {
	Status           Status             `json:"status"`
	DeviceID         string             `json:"deviceId"`
	DeviceName       string             `json:"deviceName"`
	ConnectedMobiles []MobileConnection `json:"connectedMobiles"`
	ActiveSessions   []RemoteSession    `json:"activeSessions"`
}

// Registry holds the mobile and session maps. It is mutated only from the
// manager's serialized dispatch path; the mutex exists because local HTTP
// handlers read snapshots concurrently.
type Registry struct {
	mu       sync.RWMutex
	mobiles  map[string]*MobileConnection
	sessions map[string]*RemoteSession
}

func NewRegistry() *Registry {
	return &Registry{
		mobiles:  make(map[string]*MobileConnection),
		sessions: make(map[string]*RemoteSession),
	}
}

func (r *Registry) AddMobile(mobileID string, now time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.mobiles[mobileID] = &MobileConnection{
		MobileID:     mobileID,
		ConnectedAt:  now,
		LastActivity: now,
	}
}

// TouchMobile bumps the activity timestamp; it is strictly monotonic even
// when two inputs arrive within the clock's resolution.
func (r *Registry) TouchMobile(mobileID string, now time.Time) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.mobiles[mobileID]
	if !ok {
		return false
	}
	if !now.After(m.LastActivity) {
		now = m.LastActivity.Add(time.Nanosecond)
	}
	m.LastActivity = now
	return true
}

// RemoveMobile drops the mobile and every session it owns, returning the
// removed sessions so the caller can cascade to the bridge and history.
func (r *Registry) RemoveMobile(mobileID string) []RemoteSession {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.mobiles, mobileID)
	var removed []RemoteSession
	for id, s := range r.sessions {
		if s.MobileID == mobileID {
			removed = append(removed, *s)
			delete(r.sessions, id)
		}
	}
	return removed
}

func (r *Registry) AddSession(s RemoteSession) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := s
	r.sessions[s.ID] = &cp
}

func (r *Registry) RemoveSession(id string) (RemoteSession, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return RemoteSession{}, false
	}
	delete(r.sessions, id)
	return *s, true
}

func (r *Registry) SessionIDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.sessions))
	for id := range r.sessions {
		ids = append(ids, id)
	}
	return ids
}

// Clear empties both maps. Used by disconnect.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.mobiles = make(map[string]*MobileConnection)
	r.sessions = make(map[string]*RemoteSession)
}

// Snapshot builds the UI view. Slices are sorted for stable output.
func (r *Registry) Snapshot(status Status, deviceID, deviceName string) Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()

	mobiles := make([]MobileConnection, 0, len(r.mobiles))
	for _, m := range r.mobiles {
		mobiles = append(mobiles, *m)
	}
	sort.Slice(mobiles, func(i, j int) bool { return mobiles[i].MobileID < mobiles[j].MobileID })

	sessions := make([]RemoteSession, 0, len(r.sessions))
	for _, s := range r.sessions {
		sessions = append(sessions, *s)
	}
	sort.Slice(sessions, func(i, j int) bool { return sessions[i].CreatedAt.Before(sessions[j].CreatedAt) })

	return Snapshot{
		Status:           status,
		DeviceID:         deviceID,
		DeviceName:       deviceName,
		ConnectedMobiles: mobiles,
		ActiveSessions:   sessions,
	}
}
