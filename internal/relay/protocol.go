package relay

import (
	"encoding/json"
	"fmt"
	"time"

	"tether/internal/workspace"
)

// MessageType enumerates the relay wire protocol. The set is closed: anything
// else is logged and dropped without touching state.
type MessageType string

const (
	TypeRegister         MessageType = "register"
	TypeRegistered       MessageType = "registered"
	TypeMobileConnected  MessageType = "mobile_connected"
	TypeMobileDisconnect MessageType = "mobile_disconnect"
	TypeWorkspaceList    MessageType = "workspace_list"
	TypeWorkspaceData    MessageType = "workspace_data"
	TypeSessionCreate    MessageType = "session_create"
	TypeSessionCreated   MessageType = "session_created"
	TypeSessionClose     MessageType = "session_close"
	TypeTerminalInput    MessageType = "terminal_input"
	TypeTerminalOutput   MessageType = "terminal_output"
	TypeTerminalResize   MessageType = "terminal_resize"
	TypePing             MessageType = "ping"
	TypePong             MessageType = "pong"
	TypeError            MessageType = "error"
)

// Envelope is the JSON frame exchanged with the relay. Timestamp is stamped
// at send time, in Unix milliseconds.
type Envelope struct {
	Type      MessageType     `json:"type"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Timestamp int64           `json:"timestamp,omitempty"`
}

func parseEnvelope(data []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Envelope{}, fmt.Errorf("malformed envelope: %w", err)
	}
	if env.Type == "" {
		return Envelope{}, fmt.Errorf("envelope without type")
	}
	return env, nil
}

func newEnvelope(t MessageType, payload any) ([]byte, error) {
	env := Envelope{Type: t, Timestamp: time.Now().UnixMilli()}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshal %s payload: %w", t, err)
		}
		env.Payload = raw
	}
	return json.Marshal(env)
}

// ─────────────────────────── payloads ───────────────────────────

type RegisterPayload struct {
	DeviceID   string `json:"deviceId"`
	DeviceName string `json:"deviceName"`
}

type MobileConnectedPayload struct {
	MobileID string `json:"mobileId"`
}

type MobileDisconnectPayload struct {
	MobileID string `json:"mobileId"`
}

type WorkspaceListPayload struct {
	RequestFrom string `json:"requestFrom"`
}

type WorkspaceDataPayload struct {
	To         string                `json:"to"`
	Workspaces []workspace.Workspace `json:"workspaces"`
}

type SessionCreatePayload struct {
	WorkspaceID string `json:"workspaceId"`
	Name        string `json:"name"`
	RequestFrom string `json:"requestFrom"`
}

type SessionCreatedPayload struct {
	SessionID string `json:"sessionId"`
	Name      string `json:"name"`
	To        string `json:"to,omitempty"`
}

// SessionClosePayload travels both directions: inbound with RequestFrom set,
// outbound (process exit) with To set.
type SessionClosePayload struct {
	SessionID   string `json:"sessionId"`
	RequestFrom string `json:"requestFrom,omitempty"`
	To          string `json:"to,omitempty"`
}

type TerminalInputPayload struct {
	SessionID string `json:"sessionId"`
	Data      string `json:"data"`
	From      string `json:"from"`
}

type TerminalOutputPayload struct {
	SessionID string `json:"sessionId"`
	To        string `json:"to"`
	Data      string `json:"data"`
}

type TerminalResizePayload struct {
	SessionID string `json:"sessionId"`
	Cols      uint16 `json:"cols"`
	Rows      uint16 `json:"rows"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}

// decodePayload unmarshals a payload into its typed record; a nil payload is
// a mismatch for every type that carries data.
func decodePayload(env Envelope, into any) error {
	if env.Payload == nil {
		return fmt.Errorf("%s: missing payload", env.Type)
	}
	if err := json.Unmarshal(env.Payload, into); err != nil {
		return fmt.Errorf("%s: bad payload: %w", env.Type, err)
	}
	return nil
}
