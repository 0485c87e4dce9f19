package relay

import (
	"encoding/json"
	"testing"
	"time"
)

func TestParseEnvelope(t *testing.T) {
	env, err := parseEnvelope([]byte(`{"type":"ping","timestamp":123}`))
	if err != nil {
		t.Fatal(err)
	}
	if env.Type != TypePing || env.Timestamp != 123 {
		t.Fatalf("envelope = %+v", env)
	}
}

func TestParseEnvelopeRejects(t *testing.T) {
	for _, raw := range []string{"", "not json", "[]", `{"payload":{}}`} {
		if _, err := parseEnvelope([]byte(raw)); err == nil {
			t.Errorf("parse(%q) accepted", raw)
		}
	}
}

func TestNewEnvelopeStampsTimestamp(t *testing.T) {
	before := time.Now().UnixMilli()
	data, err := newEnvelope(TypeRegister, RegisterPayload{DeviceID: "d", DeviceName: "n"})
	if err != nil {
		t.Fatal(err)
	}
	after := time.Now().UnixMilli()

	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		t.Fatal(err)
	}
	if env.Timestamp < before || env.Timestamp > after {
		t.Fatalf("timestamp %d outside [%d, %d]", env.Timestamp, before, after)
	}
	var p RegisterPayload
	if err := json.Unmarshal(env.Payload, &p); err != nil {
		t.Fatal(err)
	}
	if p.DeviceID != "d" {
		t.Fatalf("payload = %+v", p)
	}
}

func TestDecodePayloadMissing(t *testing.T) {
	env := Envelope{Type: TypeSessionCreate}
	var p SessionCreatePayload
	if err := decodePayload(env, &p); err == nil {
		t.Fatal("nil payload decoded")
	}
}
