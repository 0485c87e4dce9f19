package relay

import (
	"testing"
	"time"
)

func TestTouchMobileMonotonic(t *testing.T) {
	r := NewRegistry()
	now := time.Now()
	r.AddMobile("mob-1", now)

	// two inputs inside the clock's resolution still move the timestamp forward
	if !r.TouchMobile("mob-1", now) {
		t.Fatal("touch of known mobile returned false")
	}
	first := r.Snapshot(StatusConnected, "", "").ConnectedMobiles[0].LastActivity
	if !first.After(now) {
		t.Fatalf("activity %v did not advance past %v", first, now)
	}

	r.TouchMobile("mob-1", now)
	second := r.Snapshot(StatusConnected, "", "").ConnectedMobiles[0].LastActivity
	if !second.After(first) {
		t.Fatalf("second touch %v did not advance past %v", second, first)
	}

	if r.TouchMobile("ghost", time.Now()) {
		t.Fatal("touch of unknown mobile returned true")
	}
}

func TestRemoveMobileReturnsOwnedSessions(t *testing.T) {
	r := NewRegistry()
	now := time.Now()
	r.AddMobile("mob-1", now)
	r.AddSession(RemoteSession{ID: "a", MobileID: "mob-1", CreatedAt: now})
	r.AddSession(RemoteSession{ID: "b", MobileID: "mob-1", CreatedAt: now.Add(time.Second)})
	r.AddSession(RemoteSession{ID: "c", MobileID: "mob-2", CreatedAt: now})

	removed := r.RemoveMobile("mob-1")
	if len(removed) != 2 {
		t.Fatalf("removed = %d sessions, want 2", len(removed))
	}
	for _, s := range removed {
		if s.MobileID != "mob-1" {
			t.Fatalf("removed session owned by %s", s.MobileID)
		}
	}
	if ids := r.SessionIDs(); len(ids) != 1 || ids[0] != "c" {
		t.Fatalf("surviving sessions = %v", ids)
	}
}

func TestRemoveSession(t *testing.T) {
	r := NewRegistry()
	r.AddSession(RemoteSession{ID: "a", MobileID: "mob-1"})

	s, ok := r.RemoveSession("a")
	if !ok || s.ID != "a" {
		t.Fatalf("remove = %+v, %v", s, ok)
	}
	if _, ok := r.RemoveSession("a"); ok {
		t.Fatal("second remove of the same id succeeded")
	}
}

func TestSnapshotSorted(t *testing.T) {
	r := NewRegistry()
	now := time.Now()
	r.AddMobile("zeta", now)
	r.AddMobile("alpha", now)
	r.AddSession(RemoteSession{ID: "late", CreatedAt: now.Add(time.Minute)})
	r.AddSession(RemoteSession{ID: "early", CreatedAt: now})

	snap := r.Snapshot(StatusConnected, "dev", "Dev")
	if snap.ConnectedMobiles[0].MobileID != "alpha" {
		t.Fatalf("mobiles not sorted: %+v", snap.ConnectedMobiles)
	}
	if snap.ActiveSessions[0].ID != "early" {
		t.Fatalf("sessions not sorted by creation: %+v", snap.ActiveSessions)
	}
}

func TestClear(t *testing.T) {
	r := NewRegistry()
	r.AddMobile("mob-1", time.Now())
	r.AddSession(RemoteSession{ID: "a"})
	r.Clear()
	snap := r.Snapshot(StatusDisconnected, "", "")
	if len(snap.ConnectedMobiles)+len(snap.ActiveSessions) != 0 {
		t.Fatalf("clear left state: %+v", snap)
	}
}
