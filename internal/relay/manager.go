// Package relay owns the single connection between this desktop and the
// cloud relay: registration, keepalive, reconnect, and the dispatch of
// inbound protocol messages into terminal-bridge operations and registry
// state. All three pieces of state it coordinates — the connection handle,
// the paired-mobile set, and the live-session set — are mutated only through
// the manager, so they stay consistent under disconnects and concurrent
// mobile activity.
package relay

import (
	"context"
	"net/url"
	"strings"
	"sync"
	"time"

	"tether/config"
	"tether/internal/bridge"
	"tether/internal/identity"
	"tether/internal/logs"
	"tether/internal/workspace"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	defaultKeepaliveInterval = 30 * time.Second
	defaultReconnectDelay    = 5 * time.Second
)

// History records session lifecycle for the local audit trail. Optional.
type History interface {
	SessionStarted(RemoteSession)
	SessionEnded(sessionID string, at time.Time)
}

type Options struct {
	Settings   config.RelaySettings
	Identity   identity.Identity
	Bridge     bridge.Bridge
	Workspaces workspace.Provider
	History    History // optional

	// Injection points for tests.
	Dial              Dialer
	NewID             func() string
	KeepaliveInterval time.Duration
	ReconnectDelay    time.Duration
}

type Manager struct {
	bridge     bridge.Bridge
	workspaces workspace.Provider
	history    History
	registry   *Registry

	dial           Dialer
	newID          func() string
	keepaliveEvery time.Duration
	reconnectAfter time.Duration

	mu            sync.Mutex
	settings      config.RelaySettings
	ident         identity.Identity
	status        Status
	conn          Conn
	gen           uint64 // connection generation; events from stale pumps are ignored
	keepaliveStop chan struct{}
	reconnect     *time.Timer
	listeners     []func(Snapshot)

	writeMu sync.Mutex
}

func NewManager(o Options) *Manager {
	m := &Manager{
		bridge:         o.Bridge,
		workspaces:     o.Workspaces,
		history:        o.History,
		registry:       NewRegistry(),
		dial:           o.Dial,
		newID:          o.NewID,
		keepaliveEvery: o.KeepaliveInterval,
		reconnectAfter: o.ReconnectDelay,
		settings:       o.Settings,
		ident:          o.Identity,
		status:         StatusDisconnected,
	}
	if m.dial == nil {
		m.dial = wsDial
	}
	if m.newID == nil {
		m.newID = uuid.NewString
	}
	if m.keepaliveEvery <= 0 {
		m.keepaliveEvery = defaultKeepaliveInterval
	}
	if m.reconnectAfter <= 0 {
		m.reconnectAfter = defaultReconnectDelay
	}
	return m
}

// Callbacks wires the terminal bridge back into the manager. Must be handed
// to the bridge at construction.
func (m *Manager) Callbacks() bridge.Callbacks {
	return bridge.Callbacks{
		OnOutput: func(sessionID, ownerID string, data []byte) {
			m.send(TypeTerminalOutput, TerminalOutputPayload{
				SessionID: sessionID,
				To:        ownerID,
				Data:      string(data),
			})
		},
		OnExit: func(sessionID, ownerID string) {
			if _, ok := m.registry.RemoveSession(sessionID); ok {
				m.recordEnd(sessionID)
			}
			// the owner may already be gone; the relay drops the message then
			m.send(TypeSessionClose, SessionClosePayload{SessionID: sessionID, To: ownerID})
			m.broadcast()
		},
	}
}

// Connect opens the relay connection and registers the device. Returns true
// if this attempt (or an existing connection) ends connected; all further
// lifecycle is asynchronous.
func (m *Manager) Connect(ctx context.Context) bool {
	m.mu.Lock()
	if m.conn != nil && m.status == StatusConnected {
		m.mu.Unlock()
		return true
	}
	if m.status == StatusConnecting {
		// an attempt is already in flight
		m.mu.Unlock()
		return false
	}
	endpoint := relayEndpoint(m.settings.RelayURL, m.ident.DeviceID)
	ident := m.ident
	m.status = StatusConnecting
	m.mu.Unlock()
	m.broadcast()

	conn, err := m.dial(ctx, endpoint)
	if err != nil {
		logs.Logger.Warnf("relay dial %s: %v", endpoint, err)
		m.mu.Lock()
		if m.status == StatusConnecting {
			m.status = StatusError
		}
		m.mu.Unlock()
		m.broadcast()
		return false
	}

	m.mu.Lock()
	if m.status != StatusConnecting {
		// Disconnect raced the dial; drop the fresh connection
		m.mu.Unlock()
		_ = conn.Close()
		return false
	}
	m.gen++
	gen := m.gen
	m.conn = conn
	m.status = StatusConnected
	stop := make(chan struct{})
	m.keepaliveStop = stop
	m.mu.Unlock()

	// register must be the first outbound message
	m.sendOn(conn, TypeRegister, RegisterPayload{DeviceID: ident.DeviceID, DeviceName: ident.DeviceName})

	go m.keepalive(conn, stop)
	go m.readPump(conn, gen)

	logs.Logger.Infof("connected to relay as %s (%s)", ident.DeviceID, ident.DeviceName)
	m.broadcast()
	return true
}

// Disconnect tears everything down: timers, the connection, every backing
// terminal process, and all mobile/session state. Safe to call at any time,
// any number of times.
func (m *Manager) Disconnect() {
	m.mu.Lock()
	if m.reconnect != nil {
		m.reconnect.Stop()
		m.reconnect = nil
	}
	if m.keepaliveStop != nil {
		close(m.keepaliveStop)
		m.keepaliveStop = nil
	}
	conn := m.conn
	m.conn = nil
	m.gen++
	m.status = StatusDisconnected
	m.mu.Unlock()

	if conn != nil {
		_ = conn.Close()
	}
	m.bridge.CloseAll()
	for _, id := range m.registry.SessionIDs() {
		m.recordEnd(id)
	}
	m.registry.Clear()
	m.broadcast()
}

// ApplySettings stores the new settings. Only flipping enabled has an
// immediate side effect: off→on connects, on→off disconnects. URL and
// auto-connect changes take effect on the next attempt.
func (m *Manager) ApplySettings(ctx context.Context, s config.RelaySettings) {
	m.mu.Lock()
	wasEnabled := m.settings.Enabled
	m.settings = s
	m.mu.Unlock()

	switch {
	case s.Enabled && !wasEnabled:
		m.Connect(ctx)
	case !s.Enabled && wasEnabled:
		m.Disconnect()
	}
}

// SetIdentity updates the identity used for future registrations (rename or
// reset). An active connection keeps its original registration until it
// reconnects.
func (m *Manager) SetIdentity(id identity.Identity) {
	m.mu.Lock()
	m.ident = id
	m.mu.Unlock()
	m.broadcast()
}

// Status returns the current snapshot.
func (m *Manager) Status() Snapshot {
	m.mu.Lock()
	st := m.status
	ident := m.ident
	m.mu.Unlock()
	return m.registry.Snapshot(st, ident.DeviceID, ident.DeviceName)
}

// AddStatusListener registers a snapshot consumer; it is invoked on every
// connection/mobile/session change.
func (m *Manager) AddStatusListener(fn func(Snapshot)) {
	m.mu.Lock()
	m.listeners = append(m.listeners, fn)
	m.mu.Unlock()
}

// ─────────────────────────── connection internals ───────────────────────────

func (m *Manager) readPump(conn Conn, gen uint64) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			m.handleClose(gen, err)
			return
		}
		if m.stale(gen) {
			return
		}
		m.dispatch(data)
	}
}

func (m *Manager) stale(gen uint64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return gen != m.gen
}

// handleClose reacts to a transport close that we did not initiate.
func (m *Manager) handleClose(gen uint64, err error) {
	m.mu.Lock()
	if gen != m.gen {
		// close caused by a local Disconnect; already handled
		m.mu.Unlock()
		return
	}
	if m.keepaliveStop != nil {
		close(m.keepaliveStop)
		m.keepaliveStop = nil
	}
	if m.conn != nil {
		_ = m.conn.Close()
		m.conn = nil
	}
	m.gen++
	m.status = StatusDisconnected
	retry := m.settings.Enabled && m.settings.AutoConnect
	m.mu.Unlock()

	logs.Logger.Warnf("relay connection lost: %v", err)
	m.broadcast()
	if retry {
		m.scheduleReconnect()
	}
}

// scheduleReconnect arms the single reconnect timer; a request while one is
// pending is a no-op.
func (m *Manager) scheduleReconnect() {
	m.mu.Lock()
	if m.reconnect != nil {
		m.mu.Unlock()
		return
	}
	m.reconnect = time.AfterFunc(m.reconnectAfter, m.reconnectNow)
	m.mu.Unlock()
	logs.Logger.Infof("reconnecting to relay in %s", m.reconnectAfter)
}

func (m *Manager) reconnectNow() {
	m.mu.Lock()
	m.reconnect = nil
	eligible := m.settings.Enabled && m.settings.AutoConnect && m.status != StatusConnected && m.status != StatusConnecting
	m.mu.Unlock()
	if !eligible {
		return
	}
	if !m.Connect(context.Background()) {
		m.mu.Lock()
		retry := m.settings.Enabled && m.settings.AutoConnect
		m.mu.Unlock()
		if retry {
			m.scheduleReconnect()
		}
	}
}

func (m *Manager) keepalive(conn Conn, stop chan struct{}) {
	t := time.NewTicker(m.keepaliveEvery)
	defer t.Stop()
	for {
		select {
		case <-stop:
			return
		case <-t.C:
			m.sendOn(conn, TypePing, nil)
		}
	}
}

func (m *Manager) send(t MessageType, payload any) {
	m.mu.Lock()
	conn := m.conn
	m.mu.Unlock()
	if conn == nil {
		logs.Logger.Debugf("not connected, dropping outbound %s", t)
		return
	}
	m.sendOn(conn, t, payload)
}

func (m *Manager) sendOn(conn Conn, t MessageType, payload any) {
	data, err := newEnvelope(t, payload)
	if err != nil {
		logs.Logger.Errorf("encode %s: %v", t, err)
		return
	}
	m.writeMu.Lock()
	defer m.writeMu.Unlock()
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		logs.Logger.Debugf("send %s: %v", t, err)
	}
}

// ─────────────────────────── inbound dispatch ───────────────────────────

func (m *Manager) dispatch(data []byte) {
	env, err := parseEnvelope(data)
	if err != nil {
		logs.Logger.Warnf("dropping inbound message: %v", err)
		return
	}

	switch env.Type {
	case TypeRegistered:
		logs.Logger.Info("relay acknowledged registration")
		m.broadcast()

	case TypeMobileConnected:
		var p MobileConnectedPayload
		if err := decodePayload(env, &p); err != nil {
			logs.Logger.Warnf("dropping: %v", err)
			return
		}
		m.registry.AddMobile(p.MobileID, time.Now())
		logs.Logger.Infof("mobile %s connected", p.MobileID)
		m.broadcast()

	case TypeMobileDisconnect:
		var p MobileDisconnectPayload
		if err := decodePayload(env, &p); err != nil {
			logs.Logger.Warnf("dropping: %v", err)
			return
		}
		m.bridge.CloseSessionsForOwner(p.MobileID)
		removed := m.registry.RemoveMobile(p.MobileID)
		for _, s := range removed {
			m.recordEnd(s.ID)
		}
		logs.Logger.Infof("mobile %s disconnected, closed %d session(s)", p.MobileID, len(removed))
		m.broadcast()

	case TypeWorkspaceList:
		var p WorkspaceListPayload
		if err := decodePayload(env, &p); err != nil {
			logs.Logger.Warnf("dropping: %v", err)
			return
		}
		m.send(TypeWorkspaceData, WorkspaceDataPayload{
			To:         p.RequestFrom,
			Workspaces: m.workspaces.List(),
		})

	case TypeSessionCreate:
		var p SessionCreatePayload
		if err := decodePayload(env, &p); err != nil {
			logs.Logger.Warnf("dropping: %v", err)
			return
		}
		m.handleSessionCreate(p)

	case TypeSessionClose:
		var p SessionClosePayload
		if err := decodePayload(env, &p); err != nil {
			logs.Logger.Warnf("dropping: %v", err)
			return
		}
		m.bridge.CloseSession(p.SessionID)
		if _, ok := m.registry.RemoveSession(p.SessionID); ok {
			m.recordEnd(p.SessionID)
		}
		m.broadcast()

	case TypeTerminalInput:
		var p TerminalInputPayload
		if err := decodePayload(env, &p); err != nil {
			logs.Logger.Warnf("dropping: %v", err)
			return
		}
		m.bridge.Write(p.SessionID, []byte(p.Data))
		m.registry.TouchMobile(p.From, time.Now())

	case TypeTerminalResize:
		var p TerminalResizePayload
		if err := decodePayload(env, &p); err != nil {
			logs.Logger.Warnf("dropping: %v", err)
			return
		}
		m.bridge.Resize(p.SessionID, p.Cols, p.Rows)

	case TypePong:
		// keepalive acknowledgment; no liveness bookkeeping is kept

	case TypeError:
		var p ErrorPayload
		if err := decodePayload(env, &p); err != nil {
			logs.Logger.Warnf("relay error (unreadable payload): %v", err)
			return
		}
		logs.Logger.Warnf("relay error: %s", p.Message)

	default:
		logs.Logger.Warnf("unrecognized message type %q", env.Type)
	}
}

func (m *Manager) handleSessionCreate(p SessionCreatePayload) {
	ws, ok := m.workspaces.Get(p.WorkspaceID)
	if !ok {
		// the requester gets no reply; it only sees silence
		logs.Logger.Warnf("session_create for unknown workspace %q from %s dropped", p.WorkspaceID, p.RequestFrom)
		return
	}

	id := m.newID()
	spec := bridge.SessionSpec{
		ID:          id,
		OwnerID:     p.RequestFrom,
		WorkspaceID: ws.ID,
		Name:        p.Name,
	}
	if err := m.bridge.CreateSession(spec, ws.Path); err != nil {
		logs.Logger.Errorf("create session in %s: %v", ws.Path, err)
		return
	}

	sess := RemoteSession{
		ID:            id,
		MobileID:      p.RequestFrom,
		WorkspaceID:   ws.ID,
		WorkspaceName: ws.Name,
		CreatedAt:     time.Now(),
	}
	m.registry.AddSession(sess)
	if m.history != nil {
		m.history.SessionStarted(sess)
	}
	m.send(TypeSessionCreated, SessionCreatedPayload{SessionID: id, Name: p.Name, To: p.RequestFrom})
	logs.Logger.Infof("session %s started for %s in %s", id, p.RequestFrom, ws.Name)
	m.broadcast()
}

func (m *Manager) recordEnd(sessionID string) {
	if m.history != nil {
		m.history.SessionEnded(sessionID, time.Now())
	}
}

func (m *Manager) broadcast() {
	m.mu.Lock()
	st := m.status
	ident := m.ident
	ls := append(make([]func(Snapshot), 0, len(m.listeners)), m.listeners...)
	m.mu.Unlock()

	snap := m.registry.Snapshot(st, ident.DeviceID, ident.DeviceName)
	for _, fn := range ls {
		fn(snap)
	}
}

// relayEndpoint builds the duplex endpoint for this device.
func relayEndpoint(relayURL, deviceID string) string {
	base := strings.TrimRight(relayURL, "/")
	return base + "/connect/" + url.PathEscape(deviceID) + "?type=desktop"
}
