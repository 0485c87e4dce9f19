// Package bridge owns the OS-level terminal processes backing remote
// sessions. The relay manager drives it through the Bridge contract and
// receives output/exit through callbacks registered at construction; those
// callbacks re-enter the manager's dispatch path, never its locks.
package bridge

// SessionSpec describes the session to back with a terminal process.
type SessionSpec struct {
	ID          string
	OwnerID     string // mobile that requested the session
	WorkspaceID string
	Name        string
}

// Callbacks deliver terminal events. Data buffers are only valid for the
// duration of the call.
type Callbacks struct {
	OnOutput func(sessionID, ownerID string, data []byte)
	OnExit   func(sessionID, ownerID string)
}

// Bridge — contract for the terminal-process engine.
type Bridge interface {
	// CreateSession spawns a backing process rooted at cwd. The session is
	// live once this returns nil.
	CreateSession(spec SessionSpec, cwd string) error

	// Write forwards input to the session. Unknown session ids are ignored.
	Write(sessionID string, data []byte)

	// Resize updates the terminal dimensions. Unknown session ids are ignored.
	Resize(sessionID string, cols, rows uint16)

	// CloseSession terminates one session. Idempotent.
	CloseSession(sessionID string)

	// CloseSessionsForOwner terminates every session owned by ownerID.
	CloseSessionsForOwner(ownerID string)

	// CloseAll terminates everything. Used on disconnect and shutdown.
	CloseAll()

	// SessionIDs returns the ids of live sessions.
	SessionIDs() []string
}
