package host

import (
	"encoding/json"
	"net/http"
	"strings"

	"tether/config"
	"tether/internal/logs"
	"tether/internal/models"
)

func (a *App) registerAPI() {
	api := a.Router.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/status", a.getStatus).Methods(http.MethodGet)
	api.HandleFunc("/events", a.events.ServeHTTP).Methods(http.MethodGet)

	api.HandleFunc("/workspaces", a.listWorkspaces).Methods(http.MethodGet)

	api.HandleFunc("/pair", a.createPin).Methods(http.MethodPost)
	api.HandleFunc("/pair", a.lastPin).Methods(http.MethodGet)

	api.HandleFunc("/settings", a.getSettings).Methods(http.MethodGet)
	api.HandleFunc("/settings", a.putSettings).Methods(http.MethodPut)

	api.HandleFunc("/identity", a.getIdentity).Methods(http.MethodGet)
	api.HandleFunc("/identity/rename", a.renameIdentity).Methods(http.MethodPost)
	api.HandleFunc("/identity/reset", a.resetIdentity).Methods(http.MethodPost)

	api.HandleFunc("/relay/connect", a.relayConnect).Methods(http.MethodPost)
	api.HandleFunc("/relay/disconnect", a.relayDisconnect).Methods(http.MethodPost)
}

func writeJSON(w http.ResponseWriter, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	_ = json.NewEncoder(w).Encode(body)
}

func (a *App) getStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, a.manager.Status())
}

func (a *App) listWorkspaces(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, a.workspaces.List())
}

func (a *App) createPin(w http.ResponseWriter, r *http.Request) {
	ident, err := a.identity.GetOrCreate()
	if err != nil {
		models.WriteProblem(w, http.StatusInternalServerError, "Identity unavailable", err.Error(), nil)
		return
	}
	pin, err := a.pairing.CreatePin(r.Context(), a.cfg.RelaySettings().RelayURL, ident)
	if err != nil {
		logs.Logger.Warnf("pin request failed: %v", err)
		models.WriteProblem(w, http.StatusBadGateway, "Pairing failed", err.Error(), nil)
		return
	}
	writeJSON(w, pin)
}

func (a *App) lastPin(w http.ResponseWriter, _ *http.Request) {
	pin, err := a.pairing.Last()
	if err != nil {
		models.WriteProblem(w, http.StatusInternalServerError, "Lookup failed", err.Error(), nil)
		return
	}
	if pin == nil {
		models.WriteProblem(w, http.StatusNotFound, "Not found", "no pin has been issued", nil)
		return
	}
	writeJSON(w, pin)
}

func (a *App) getSettings(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, a.cfg.RelaySettings())
}

func (a *App) putSettings(w http.ResponseWriter, r *http.Request) {
	var in config.RelaySettings
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		models.WriteProblem(w, http.StatusBadRequest, "Bad JSON", err.Error(), nil)
		return
	}
	if err := a.cfg.SetRelaySettings(in); err != nil {
		logs.Logger.Warnf("persist settings: %v", err)
	}
	a.manager.ApplySettings(r.Context(), a.cfg.RelaySettings())
	writeJSON(w, a.cfg.RelaySettings())
}

func (a *App) getIdentity(w http.ResponseWriter, _ *http.Request) {
	ident, err := a.identity.GetOrCreate()
	if err != nil {
		models.WriteProblem(w, http.StatusInternalServerError, "Identity unavailable", err.Error(), nil)
		return
	}
	writeJSON(w, ident)
}

func (a *App) renameIdentity(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		models.WriteProblem(w, http.StatusBadRequest, "Bad JSON", err.Error(), nil)
		return
	}
	if strings.TrimSpace(in.Name) == "" {
		models.WriteProblem(w, http.StatusBadRequest, "Bad name", "name must not be empty", nil)
		return
	}
	ident, err := a.identity.Rename(in.Name)
	if err != nil {
		models.WriteProblem(w, http.StatusInternalServerError, "Rename failed", err.Error(), nil)
		return
	}
	a.manager.SetIdentity(ident)
	writeJSON(w, ident)
}

func (a *App) resetIdentity(w http.ResponseWriter, _ *http.Request) {
	ident, err := a.identity.Reset()
	if err != nil {
		models.WriteProblem(w, http.StatusInternalServerError, "Reset failed", err.Error(), nil)
		return
	}
	a.manager.SetIdentity(ident)
	writeJSON(w, ident)
}

func (a *App) relayConnect(w http.ResponseWriter, r *http.Request) {
	ok := a.manager.Connect(r.Context())
	writeJSON(w, map[string]bool{"connected": ok})
}

func (a *App) relayDisconnect(w http.ResponseWriter, _ *http.Request) {
	a.manager.Disconnect()
	writeJSON(w, map[string]bool{"connected": false})
}
