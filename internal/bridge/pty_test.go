package bridge

import (
	"bytes"
	"os"
	"sync"
	"testing"
	"time"
)

func requireShell(t *testing.T) {
	t.Helper()
	if _, err := os.Stat("/bin/sh"); err != nil {
		t.Skip("no /bin/sh on this machine")
	}
}

type capture struct {
	mu     sync.Mutex
	output map[string][]byte
	exits  []string
}

func newCapture() *capture {
	return &capture{output: make(map[string][]byte)}
}

func (c *capture) callbacks() Callbacks {
	return Callbacks{
		OnOutput: func(sessionID, _ string, data []byte) {
			c.mu.Lock()
			c.output[sessionID] = append(c.output[sessionID], data...)
			c.mu.Unlock()
		},
		OnExit: func(sessionID, _ string) {
			c.mu.Lock()
			c.exits = append(c.exits, sessionID)
			c.mu.Unlock()
		},
	}
}

func (c *capture) outputOf(id string) []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]byte(nil), c.output[id]...)
}

func (c *capture) exitCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.exits)
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestSessionRoundTrip(t *testing.T) {
	requireShell(t)
	b := NewPTYBridge("/bin/sh")
	rec := newCapture()
	b.SetCallbacks(rec.callbacks())
	defer b.CloseAll()

	if err := b.CreateSession(SessionSpec{ID: "s1", OwnerID: "mob-1"}, t.TempDir()); err != nil {
		t.Fatal(err)
	}

	b.Write("s1", []byte("echo marker-$((40+2))\n"))
	waitFor(t, "echoed output", func() bool {
		return bytes.Contains(rec.outputOf("s1"), []byte("marker-42"))
	})

	b.CloseSession("s1")
	waitFor(t, "session removal", func() bool { return len(b.SessionIDs()) == 0 })
	// deliberate close must not report an exit
	time.Sleep(100 * time.Millisecond)
	if n := rec.exitCount(); n != 0 {
		t.Fatalf("exits after deliberate close = %d", n)
	}
}

func TestShellExitFiresOnExit(t *testing.T) {
	requireShell(t)
	b := NewPTYBridge("/bin/sh")
	rec := newCapture()
	b.SetCallbacks(rec.callbacks())
	defer b.CloseAll()

	if err := b.CreateSession(SessionSpec{ID: "s1", OwnerID: "mob-1"}, t.TempDir()); err != nil {
		t.Fatal(err)
	}
	b.Write("s1", []byte("exit\n"))

	waitFor(t, "exit callback", func() bool { return rec.exitCount() == 1 })
	if len(b.SessionIDs()) != 0 {
		t.Fatal("exited session still tracked")
	}
}

func TestCloseSessionsForOwner(t *testing.T) {
	requireShell(t)
	b := NewPTYBridge("/bin/sh")
	b.SetCallbacks(newCapture().callbacks())
	defer b.CloseAll()

	dir := t.TempDir()
	for _, s := range []SessionSpec{
		{ID: "a", OwnerID: "mob-1"},
		{ID: "b", OwnerID: "mob-1"},
		{ID: "c", OwnerID: "mob-2"},
	} {
		if err := b.CreateSession(s, dir); err != nil {
			t.Fatal(err)
		}
	}

	b.CloseSessionsForOwner("mob-1")
	ids := b.SessionIDs()
	if len(ids) != 1 || ids[0] != "c" {
		t.Fatalf("surviving sessions = %v", ids)
	}
}

func TestDuplicateSessionID(t *testing.T) {
	requireShell(t)
	b := NewPTYBridge("/bin/sh")
	b.SetCallbacks(newCapture().callbacks())
	defer b.CloseAll()

	dir := t.TempDir()
	if err := b.CreateSession(SessionSpec{ID: "dup", OwnerID: "m"}, dir); err != nil {
		t.Fatal(err)
	}
	if err := b.CreateSession(SessionSpec{ID: "dup", OwnerID: "m"}, dir); err == nil {
		t.Fatal("duplicate session id accepted")
	}
	// the rejected attempt must not disturb the original session
	if ids := b.SessionIDs(); len(ids) != 1 || ids[0] != "dup" {
		t.Fatalf("sessions after rejection = %v", ids)
	}
}

func TestUnknownSessionOpsAreNoops(t *testing.T) {
	b := NewPTYBridge("/bin/sh")
	b.SetCallbacks(newCapture().callbacks())
	b.Write("ghost", []byte("x"))
	b.Resize("ghost", 80, 24)
	b.CloseSession("ghost")
	b.CloseSessionsForOwner("nobody")
	b.CloseAll()
}
