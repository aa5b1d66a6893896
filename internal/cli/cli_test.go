package cli

import (
	"errors"
	"testing"

	"github.com/atomozero/meshcore-go/internal/mesh/session"
)

type fakeNode struct {
	name      string
	lat, lon  float64
	hasLoc    bool
	clock     uint32
	sleepErr  error
	lastAlert string
}

func (f *fakeNode) StatusText() string            { return "status-ok" }
func (f *fakeNode) StatsText() string              { return "stats-ok" }
func (f *fakeNode) LifetimeText() string           { return "lifetime-ok" }
func (f *fakeNode) RadioStatsText() string         { return "radiostats-ok" }
func (f *fakeNode) PacketStatsText() string        { return "packetstats-ok" }
func (f *fakeNode) BuildLocalAdvert() (string, error) { return "advert-bytes", nil }
func (f *fakeNode) SetAdvertInterval(int) error    { return nil }
func (f *fakeNode) NodesText() string              { return "nodes-ok" }
func (f *fakeNode) ContactsText() string           { return "contacts-ok" }
func (f *fakeNode) ContactText(string) (string, error) { return "contact-ok", nil }
func (f *fakeNode) NeighboursText() string         { return "neighbours-ok" }
func (f *fakeNode) IdentityText() string           { return "identity-ok" }
func (f *fakeNode) Name() string                   { return f.name }
func (f *fakeNode) SetName(n string) error         { f.name = n; return nil }
func (f *fakeNode) Location() (float64, float64, bool) { return f.lat, f.lon, f.hasLoc }
func (f *fakeNode) SetLocation(lat, lon float64) error {
	f.lat, f.lon, f.hasLoc = lat, lon, true
	return nil
}
func (f *fakeNode) ClearLocation() error { f.hasLoc = false; return nil }
func (f *fakeNode) Time() uint32         { return f.clock }
func (f *fakeNode) SetTime(ts uint32) error {
	f.clock = ts
	return nil
}
func (f *fakeNode) SetNodeType(bool) error            { return nil }
func (f *fakeNode) SetPassword(bool, string) error    { return nil }
func (f *fakeNode) SetSleep(bool) error                { return f.sleepErr }
func (f *fakeNode) SetRxBoost(bool) error              { return nil }
func (f *fakeNode) SetMode(int) error                  { return nil }
func (f *fakeNode) AlertStatus() string                { return "alert-off" }
func (f *fakeNode) SetAlertEnabled(bool) error          { return nil }
func (f *fakeNode) SetAlertDest(hex string) error {
	f.lastAlert = hex
	return nil
}
func (f *fakeNode) ClearAlertDest() error { return nil }
func (f *fakeNode) TestAlert() error      { return nil }
func (f *fakeNode) Ping(string) (string, error) { return "pong", nil }
func (f *fakeNode) NewIdentity() error    { return nil }
func (f *fakeNode) ResetConfig() error    { return nil }
func (f *fakeNode) Save() error           { return nil }
func (f *fakeNode) Reboot() error         { return nil }

func TestGuestCanRunReadOnlyCommands(t *testing.T) {
	in := New(&fakeNode{})
	for _, line := range []string{"status", "stats", "nodes", "neighbours", "identity"} {
		if got := in.Execute(session.PermGuest, line); got == permissionDenied {
			t.Fatalf("guest should be able to run %q, got %q", line, got)
		}
	}
}

func TestGuestDeniedAdminCommands(t *testing.T) {
	in := New(&fakeNode{})
	for _, line := range []string{"passwd admin secret", "reboot", "newid", "reset", "mode 1"} {
		if got := in.Execute(session.PermGuest, line); got != permissionDenied {
			t.Fatalf("guest running %q: want %q, got %q", line, permissionDenied, got)
		}
	}
}

func TestAdminCanRunEverything(t *testing.T) {
	in := New(&fakeNode{})
	if got := in.Execute(session.PermAdmin, "reboot"); got != "OK" {
		t.Fatalf("admin reboot: got %q", got)
	}
}

func TestUnknownCommandReturnsErr(t *testing.T) {
	in := New(&fakeNode{})
	if got := in.Execute(session.PermAdmin, "bogus"); got != "Err:?" {
		t.Fatalf("want Err:?, got %q", got)
	}
}

func TestNameGetAndSet(t *testing.T) {
	node := &fakeNode{name: "repeater1"}
	in := New(node)
	if got := in.Execute(session.PermAdmin, "name"); got != "repeater1" {
		t.Fatalf("want repeater1, got %q", got)
	}
	if got := in.Execute(session.PermAdmin, "name new name"); got != "OK" {
		t.Fatalf("want OK, got %q", got)
	}
	if node.name != "new name" {
		t.Fatalf("name not updated: %q", node.name)
	}
}

func TestLocationSetGetClear(t *testing.T) {
	node := &fakeNode{}
	in := New(node)
	if got := in.Execute(session.PermAdmin, "location"); got != "none" {
		t.Fatalf("want none, got %q", got)
	}
	if got := in.Execute(session.PermAdmin, "location 45.5 9.2"); got != "OK" {
		t.Fatalf("want OK, got %q", got)
	}
	if got := in.Execute(session.PermAdmin, "location clear"); got != "OK" {
		t.Fatalf("want OK, got %q", got)
	}
	if got := in.Execute(session.PermAdmin, "location bad args here"); got != "Err:?" {
		t.Fatalf("want Err:?, got %q", got)
	}
}

func TestSleepRejectsBadArg(t *testing.T) {
	in := New(&fakeNode{})
	if got := in.Execute(session.PermAdmin, "sleep maybe"); got != "Err:?" {
		t.Fatalf("want Err:?, got %q", got)
	}
}

func TestSleepPropagatesError(t *testing.T) {
	node := &fakeNode{sleepErr: errors.New("boom")}
	in := New(node)
	if got := in.Execute(session.PermAdmin, "sleep on"); got != "E:1" {
		t.Fatalf("want E:1, got %q", got)
	}
}

func TestAlertDestRequiresTwoArgs(t *testing.T) {
	in := New(&fakeNode{})
	if got := in.Execute(session.PermAdmin, "alert dest"); got != "Err:?" {
		t.Fatalf("want Err:?, got %q", got)
	}
	if got := in.Execute(session.PermAdmin, "alert dest abcd1234"); got != "OK" {
		t.Fatalf("want OK, got %q", got)
	}
}
