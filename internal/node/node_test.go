package node

import (
	"encoding/hex"
	"log/slog"
	"testing"
	"time"

	"github.com/atomozero/meshcore-go/internal/config"
	"github.com/atomozero/meshcore-go/internal/identity"
	meshmetrics "github.com/atomozero/meshcore-go/internal/metrics"
	"github.com/atomozero/meshcore-go/internal/mesh/dedup"
	"github.com/atomozero/meshcore-go/internal/mesh/dispatch"
	"github.com/atomozero/meshcore-go/internal/mesh/forward"
	"github.com/atomozero/meshcore-go/internal/mesh/ratelimit"
	"github.com/atomozero/meshcore-go/internal/mesh/session"
	"github.com/atomozero/meshcore-go/internal/mesh/tables"
	"github.com/atomozero/meshcore-go/internal/mesh/timesync"
	"github.com/atomozero/meshcore-go/internal/persist"
	"github.com/atomozero/meshcore-go/internal/reactor"
	"github.com/atomozero/meshcore-go/internal/transport"
)

func newTestNode(t *testing.T) *Node {
	t.Helper()

	var seed [32]byte
	seed[0] = 0x42
	self, err := identity.FromSeed(seed, "test-repeater", identity.NodeTypeRepeater)
	if err != nil {
		t.Fatalf("FromSeed: %v", err)
	}

	medium := transport.NewMedium(0)
	radio := medium.Attach(-60, 30)

	r := reactor.New(reactor.DefaultConfig())
	r.Radio = radio
	r.Self = self
	r.Clock = timesync.New(nil)

	acl := session.NewACL("admin", "guest")
	d := dispatch.New(self, r.Clock, nil)
	d.Seen = tables.NewSeenNodes(0)
	d.Contacts = tables.NewContacts(0, func(identity.PublicKey) ([32]byte, error) { return [32]byte{}, nil })
	d.Neighbors = tables.NewNeighbors(0)
	d.Sessions = session.NewManager(0, acl, nil)
	d.Limits = ratelimit.NewSet(nil)
	r.Dispatcher = d
	r.Forwarder = forward.New(self.Hash(), dedup.New(16), ratelimit.New(100, time.Minute, nil))

	cfg := config.DefaultConfig()
	store := persist.NewStore(t.TempDir() + "/node.bin")
	logger := slog.New(slog.DiscardHandler)

	return New(r, cfg, acl, store, meshmetrics.Noop(), logger)
}

func TestStatusTextIncludesIdentity(t *testing.T) {
	n := newTestNode(t)
	got := n.StatusText()
	if got == "" {
		t.Fatal("StatusText() is empty")
	}
}

func TestSetNameRejectsTooLong(t *testing.T) {
	n := newTestNode(t)
	long := "this-name-is-way-too-long-for-the-wire"
	if err := n.SetName(long); err != identity.ErrNameTooLong {
		t.Fatalf("SetName(long) error = %v, want ErrNameTooLong", err)
	}
}

func TestSetAndClearLocation(t *testing.T) {
	n := newTestNode(t)

	if err := n.SetLocation(45.5, 7.25); err != nil {
		t.Fatalf("SetLocation: %v", err)
	}
	lat, lon, ok := n.Location()
	if !ok || lat != 45.5 || lon != 7.25 {
		t.Fatalf("Location() = %v,%v,%v, want 45.5,7.25,true", lat, lon, ok)
	}

	if err := n.ClearLocation(); err != nil {
		t.Fatalf("ClearLocation: %v", err)
	}
	if _, _, ok := n.Location(); ok {
		t.Fatal("Location() still ok after ClearLocation")
	}
}

func TestSetTimeForcesSync(t *testing.T) {
	n := newTestNode(t)
	if err := n.SetTime(1_700_000_000); err != nil {
		t.Fatalf("SetTime: %v", err)
	}
	if got := n.Time(); got != 1_700_000_000 {
		t.Errorf("Time() = %d, want 1700000000", got)
	}
}

func TestPingUnknownHashFails(t *testing.T) {
	n := newTestNode(t)
	if _, err := n.Ping("ff"); err != ErrContactNotFound {
		t.Fatalf("Ping() error = %v, want ErrContactNotFound", err)
	}
}

func TestPingKnownSeenNode(t *testing.T) {
	n := newTestNode(t)
	n.Reactor.Dispatcher.Seen.Observe(0xAB, -70, 8, "peer", time.Now())

	out, err := n.Ping("ab")
	if err != nil {
		t.Fatalf("Ping: %v", err)
	}
	if out == "" {
		t.Fatal("Ping() returned empty text")
	}
}

func TestNewIdentityChangesKeypair(t *testing.T) {
	n := newTestNode(t)
	before := n.Reactor.Self.Public

	if err := n.NewIdentity(); err != nil {
		t.Fatalf("NewIdentity: %v", err)
	}
	if n.Reactor.Self.Public == before {
		t.Fatal("NewIdentity did not change the public key")
	}
}

func TestSaveAndReload(t *testing.T) {
	n := newTestNode(t)
	n.IncPacketsRX()
	n.IncPacketsRX()

	if err := n.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}

	id, _, stats, err := n.Store.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if id.Public != n.Reactor.Self.Public {
		t.Error("reloaded identity does not match")
	}
	if stats.PacketsRX != 2 {
		t.Errorf("reloaded PacketsRX = %d, want 2", stats.PacketsRX)
	}
}

func TestSaveRestoreRoundTripsACLAndCounters(t *testing.T) {
	n := newTestNode(t)
	n.ACL.SetAdminPassword("topsecret")
	n.ACL.SetGuestPassword("guestpass")
	n.IncPacketsRX()
	n.IncPacketsRX()
	n.IncPacketsTX()

	if err := n.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}

	_, cfgRecord, statsRecord, err := n.Store.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	fresh := newTestNode(t)
	fresh.Restore(cfgRecord, statsRecord)

	if fresh.ACL.AdminPassword() != "topsecret" {
		t.Errorf("restored admin password = %q, want %q", fresh.ACL.AdminPassword(), "topsecret")
	}
	if fresh.ACL.GuestPassword() != "guestpass" {
		t.Errorf("restored guest password = %q, want %q", fresh.ACL.GuestPassword(), "guestpass")
	}
	if fresh.packetsRX != 2 {
		t.Errorf("restored packetsRX = %d, want 2", fresh.packetsRX)
	}
	if fresh.packetsTX != 1 {
		t.Errorf("restored packetsTX = %d, want 1", fresh.packetsTX)
	}
}

func TestAlertDestRoundTrip(t *testing.T) {
	n := newTestNode(t)

	var pub identity.PublicKey
	pub[0] = 0x11
	hexKey := hex.EncodeToString(pub[:])

	if err := n.SetAlertDest(hexKey); err != nil {
		t.Fatalf("SetAlertDest: %v", err)
	}
	if err := n.SetAlertEnabled(true); err != nil {
		t.Fatalf("SetAlertEnabled: %v", err)
	}
	if err := n.TestAlert(); err != nil {
		t.Fatalf("TestAlert: %v", err)
	}

	if err := n.ClearAlertDest(); err != nil {
		t.Fatalf("ClearAlertDest: %v", err)
	}
	if err := n.TestAlert(); err != ErrNoAlertDest {
		t.Fatalf("TestAlert() after clear error = %v, want ErrNoAlertDest", err)
	}
}

func TestRunCLIWithoutCommandsChannelRunsInline(t *testing.T) {
	n := newTestNode(t)
	out := n.RunCLI(session.PermAdmin, "identity")
	if out == "" {
		t.Fatal("RunCLI returned empty text")
	}
}

func TestExecuteRunsInline(t *testing.T) {
	n := newTestNode(t)
	out := n.Execute(session.PermAdmin, "identity")
	if out == "" {
		t.Fatal("Execute returned empty text")
	}
}

func TestSnapshotReflectsCounters(t *testing.T) {
	n := newTestNode(t)
	n.IncPacketsRX()
	n.IncPacketsRX()
	n.IncPacketsTX()

	snap := n.Snapshot()
	if snap.PacketsRX != 2 {
		t.Errorf("PacketsRX = %d, want 2", snap.PacketsRX)
	}
	if snap.PacketsTX != 1 {
		t.Errorf("PacketsTX = %d, want 1", snap.PacketsTX)
	}
	if len(snap.Serialize()) != dispatch.RepeaterStatsSize {
		t.Errorf("Serialize() length = %d, want %d", len(snap.Serialize()), dispatch.RepeaterStatsSize)
	}
}

func TestMinMaxAvgNoSamples(t *testing.T) {
	n := newTestNode(t)
	got := n.MinMaxAvg()
	if got != (dispatch.RadioStats{}) {
		t.Errorf("MinMaxAvg() with no samples = %+v, want zero value", got)
	}
}

func TestMinMaxAvgReflectsObservations(t *testing.T) {
	n := newTestNode(t)
	n.ObserveRadioQuality(-80, 4)
	n.ObserveRadioQuality(-60, 10)

	got := n.MinMaxAvg()
	if got.MinRSSI != -80 || got.MaxRSSI != -60 {
		t.Errorf("MinMaxAvg() RSSI = %d/%d, want -80/-60", got.MinRSSI, got.MaxRSSI)
	}
	if got.MinSNR != 4 || got.MaxSNR != 10 {
		t.Errorf("MinMaxAvg() SNR = %d/%d, want 4/10", got.MinSNR, got.MaxSNR)
	}
}

func TestReadingsReportsBattery(t *testing.T) {
	n := newTestNode(t)
	n.batteryMV = 3700

	reading := n.Readings()
	if reading.BatteryVolts != 3.7 {
		t.Errorf("BatteryVolts = %v, want 3.7", reading.BatteryVolts)
	}
	if len(reading.EncodeCayenneLPP()) == 0 {
		t.Error("EncodeCayenneLPP() is empty")
	}
}

func TestScheduleRebootDoesNotPanic(t *testing.T) {
	n := newTestNode(t)
	n.ScheduleReboot()
}
