package bridge

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"syscall"

	"tether/internal/logs"

	"github.com/creack/pty"
)

const readBufSize = 32 * 1024

// PTYBridge runs each session in a pseudo-terminal. One reader goroutine per
// session pumps output into the OnOutput callback; process exit fires OnExit
// exactly once.
type PTYBridge struct {
	shell string

	mu       sync.Mutex
	cb       Callbacks
	sessions map[string]*ptySession
}

type ptySession struct {
	spec SessionSpec
	file *os.File
	cmd  *exec.Cmd

	closeOnce sync.Once
}

func NewPTYBridge(shell string) *PTYBridge {
	if shell == "" {
		shell = os.Getenv("SHELL")
	}
	if shell == "" {
		shell = "/bin/sh"
	}
	return &PTYBridge{shell: shell, sessions: make(map[string]*ptySession)}
}

// SetCallbacks wires the consumer in. Must be called before the first
// CreateSession; the bridge and its consumer reference each other, so one
// side has to be attached late.
func (b *PTYBridge) SetCallbacks(cb Callbacks) {
	b.mu.Lock()
	b.cb = cb
	b.mu.Unlock()
}

func (b *PTYBridge) callbacks() Callbacks {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.cb
}

func (b *PTYBridge) CreateSession(spec SessionSpec, cwd string) error {
	cmd := exec.Command(b.shell)
	cmd.Dir = cwd
	cmd.Env = append(os.Environ(), "TERM=xterm-256color")

	f, err := pty.Start(cmd)
	if err != nil {
		return fmt.Errorf("start pty: %w", err)
	}

	s := &ptySession{spec: spec, file: f, cmd: cmd}

	b.mu.Lock()
	if _, dup := b.sessions[spec.ID]; dup {
		b.mu.Unlock()
		_ = f.Close()
		_ = cmd.Process.Kill()
		// no pump runs for this process, so reap it here
		go func() { _ = cmd.Wait() }()
		return fmt.Errorf("session %s already exists", spec.ID)
	}
	b.sessions[spec.ID] = s
	b.mu.Unlock()

	go b.pump(s)
	return nil
}

// pump reads PTY output until the process exits, then reaps it.
func (b *PTYBridge) pump(s *ptySession) {
	buf := make([]byte, readBufSize)
	for {
		n, err := s.file.Read(buf)
		if n > 0 {
			if cb := b.callbacks(); cb.OnOutput != nil {
				cb.OnOutput(s.spec.ID, s.spec.OwnerID, buf[:n])
			}
		}
		if err != nil {
			if err != io.EOF {
				logs.Logger.Debugf("pty read %s: %v", s.spec.ID, err)
			}
			break
		}
	}
	_ = s.cmd.Wait()
	_ = s.file.Close()

	b.mu.Lock()
	// only report exit if the session is still ours (Close* removes it first)
	if cur, ok := b.sessions[s.spec.ID]; ok && cur == s {
		cb := b.cb
		delete(b.sessions, s.spec.ID)
		b.mu.Unlock()
		if cb.OnExit != nil {
			cb.OnExit(s.spec.ID, s.spec.OwnerID)
		}
		return
	}
	b.mu.Unlock()
}

func (b *PTYBridge) Write(sessionID string, data []byte) {
	b.mu.Lock()
	s, ok := b.sessions[sessionID]
	b.mu.Unlock()
	if !ok {
		logs.Logger.Debugf("write to unknown session %s dropped", sessionID)
		return
	}
	if _, err := s.file.Write(data); err != nil {
		logs.Logger.Debugf("pty write %s: %v", sessionID, err)
	}
}

func (b *PTYBridge) Resize(sessionID string, cols, rows uint16) {
	b.mu.Lock()
	s, ok := b.sessions[sessionID]
	b.mu.Unlock()
	if !ok {
		return
	}
	if err := pty.Setsize(s.file, &pty.Winsize{Cols: cols, Rows: rows}); err != nil {
		logs.Logger.Debugf("pty resize %s: %v", sessionID, err)
	}
}

func (b *PTYBridge) CloseSession(sessionID string) {
	b.mu.Lock()
	s, ok := b.sessions[sessionID]
	if ok {
		delete(b.sessions, sessionID)
	}
	b.mu.Unlock()
	if ok {
		terminate(s)
	}
}

func (b *PTYBridge) CloseSessionsForOwner(ownerID string) {
	b.mu.Lock()
	var victims []*ptySession
	for id, s := range b.sessions {
		if s.spec.OwnerID == ownerID {
			victims = append(victims, s)
			delete(b.sessions, id)
		}
	}
	b.mu.Unlock()
	for _, s := range victims {
		terminate(s)
	}
}

func (b *PTYBridge) CloseAll() {
	b.mu.Lock()
	victims := make([]*ptySession, 0, len(b.sessions))
	for id, s := range b.sessions {
		victims = append(victims, s)
		delete(b.sessions, id)
	}
	b.mu.Unlock()
	for _, s := range victims {
		terminate(s)
	}
}

func (b *PTYBridge) SessionIDs() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	ids := make([]string, 0, len(b.sessions))
	for id := range b.sessions {
		ids = append(ids, id)
	}
	return ids
}

// terminate asks the shell to exit, then kills it. The pump goroutine reaps
// the process; since the session was already removed from the map, no OnExit
// fires for deliberate closes.
func terminate(s *ptySession) {
	s.closeOnce.Do(func() {
		if s.cmd.Process != nil {
			_ = s.cmd.Process.Signal(syscall.SIGHUP)
			_ = s.cmd.Process.Kill()
		}
		_ = s.file.Close()
	})
}
