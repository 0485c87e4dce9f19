package host

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"tether/config"
)

func newTestApp(t *testing.T) *App {
	t.Helper()
	cfg := &config.Config{}
	cfg.Server.Address = "127.0.0.1"
	cfg.Server.HTTPPort = "0"
	cfg.Logging.Level = "error"

	a := &App{}
	if err := a.Initialize(cfg); err != nil {
		t.Fatal(err)
	}
	return a
}

func do(t *testing.T, a *App, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	rec := httptest.NewRecorder()
	a.Router.ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	a := newTestApp(t)
	rec := do(t, a, http.MethodGet, "/healthz", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("healthz = %d", rec.Code)
	}
}

func TestStatusEndpoint(t *testing.T) {
	a := newTestApp(t)
	rec := do(t, a, http.MethodGet, "/api/v1/status", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body)
	}
	var snap struct {
		Status   string `json:"status"`
		DeviceID string `json:"deviceId"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &snap); err != nil {
		t.Fatal(err)
	}
	if snap.Status != "disconnected" {
		t.Fatalf("fresh host status = %q", snap.Status)
	}
	if snap.DeviceID == "" {
		t.Fatal("status carries no device id")
	}
}

func TestRenameFlow(t *testing.T) {
	a := newTestApp(t)

	rec := do(t, a, http.MethodPost, "/api/v1/identity/rename", `{"name":"Lab Box"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("rename = %d: %s", rec.Code, rec.Body)
	}

	rec = do(t, a, http.MethodGet, "/api/v1/identity", "")
	var ident struct {
		DeviceName string `json:"deviceName"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &ident); err != nil {
		t.Fatal(err)
	}
	if ident.DeviceName != "Lab Box" {
		t.Fatalf("name after rename = %q", ident.DeviceName)
	}

	rec = do(t, a, http.MethodPost, "/api/v1/identity/rename", `{"name":"  "}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("blank rename = %d", rec.Code)
	}
}

func TestSettingsRoundTrip(t *testing.T) {
	a := newTestApp(t)

	rec := do(t, a, http.MethodGet, "/api/v1/settings", "")
	var s config.RelaySettings
	if err := json.Unmarshal(rec.Body.Bytes(), &s); err != nil {
		t.Fatal(err)
	}
	if s.Enabled {
		t.Fatal("relay enabled on a fresh host")
	}

	// leaving Enabled false must not trigger a dial
	rec = do(t, a, http.MethodPut, "/api/v1/settings", `{"enabled":false,"relayUrl":"wss://other.example","autoConnect":true}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("put settings = %d: %s", rec.Code, rec.Body)
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &s); err != nil {
		t.Fatal(err)
	}
	if s.RelayURL != "wss://other.example" || !s.AutoConnect {
		t.Fatalf("settings after put = %+v", s)
	}
}

func TestWorkspacesEndpoint(t *testing.T) {
	a := newTestApp(t)
	rec := do(t, a, http.MethodGet, "/api/v1/workspaces", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("workspaces = %d", rec.Code)
	}
	var list []any
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatalf("body %q: %v", rec.Body, err)
	}
	if len(list) != 0 {
		t.Fatalf("unconfigured host lists %d workspaces", len(list))
	}
}

func TestLastPinWithoutIssue(t *testing.T) {
	a := newTestApp(t)
	rec := do(t, a, http.MethodGet, "/api/v1/pair", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("last pin on fresh host = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/problem+json") {
		t.Fatalf("error content type = %q", ct)
	}
}

func TestUIRedirect(t *testing.T) {
	a := newTestApp(t)
	rec := do(t, a, http.MethodGet, "/", "")
	if rec.Code != http.StatusFound {
		t.Fatalf("root = %d", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != "/ui/" {
		t.Fatalf("redirect to %q", loc)
	}
	rec = do(t, a, http.MethodGet, "/ui/", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "<html") {
		t.Fatalf("ui = %d", rec.Code)
	}
}
