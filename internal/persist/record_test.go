package persist

import (
	"testing"

	"github.com/atomozero/meshcore-go/internal/identity"
)

func testIdentity(t *testing.T) *identity.Identity {
	t.Helper()
	var seed [32]byte
	for i := range seed {
		seed[i] = byte(i)
	}
	id, err := identity.FromSeed(seed, "node-a", identity.NodeTypeRepeater)
	if err != nil {
		t.Fatalf("FromSeed: %v", err)
	}
	id.HasLoc = true
	id.LatMicro = 45_000_000
	id.LonMicro = 7_000_000
	return id
}

func TestIdentityRoundTrip(t *testing.T) {
	want := testIdentity(t)

	data, err := EncodeIdentity(want)
	if err != nil {
		t.Fatalf("EncodeIdentity: %v", err)
	}
	if len(data) != IdentityRecordSize {
		t.Fatalf("encoded length = %d, want %d", len(data), IdentityRecordSize)
	}

	got, err := DecodeIdentity(data)
	if err != nil {
		t.Fatalf("DecodeIdentity: %v", err)
	}
	if got.Public != want.Public || got.Private != want.Private {
		t.Fatal("keypair did not round-trip")
	}
	if got.Name != want.Name || got.Type != want.Type {
		t.Errorf("name/type mismatch: got %q/%d, want %q/%d", got.Name, got.Type, want.Name, want.Type)
	}
	if got.HasLoc != want.HasLoc || got.LatMicro != want.LatMicro || got.LonMicro != want.LonMicro {
		t.Errorf("location mismatch: got %+v, want %+v", got, want)
	}
}

func TestIdentityRejectsCorruption(t *testing.T) {
	data, err := EncodeIdentity(testIdentity(t))
	if err != nil {
		t.Fatalf("EncodeIdentity: %v", err)
	}
	data[0] ^= 0xFF

	if _, err := DecodeIdentity(data); err != ErrCRCMismatch {
		t.Fatalf("DecodeIdentity() error = %v, want ErrCRCMismatch", err)
	}
}

func TestNodeConfigRoundTrip(t *testing.T) {
	want := NodeConfigRecord{
		AdminPassword:     "letmein",
		GuestPassword:     "guest",
		AdvertIntervalSec: 900,
		SleepEnabled:      true,
		RxBoost:           true,
		Mode:              1,
		AlertEnabled:      true,
		HasAlertDest:      true,
		FirstBootUnix:     1700000000,
	}
	want.AlertDest[0] = 0xAB

	data := EncodeNodeConfig(want)
	if len(data) != NodeConfigRecordSize {
		t.Fatalf("encoded length = %d, want %d", len(data), NodeConfigRecordSize)
	}

	got, err := DecodeNodeConfig(data)
	if err != nil {
		t.Fatalf("DecodeNodeConfig: %v", err)
	}
	if got != want {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

func TestStatsRoundTrip(t *testing.T) {
	want := StatsRecord{
		PacketsRX: 100, PacketsTX: 50, PacketsFwd: 20,
		Logins: 4, LoginFailures: 1, RateLimited: 2,
		AirtimeSecs: 3600, BootCount: 7,
	}

	data := EncodeStats(want)
	got, err := DecodeStats(data)
	if err != nil {
		t.Fatalf("DecodeStats: %v", err)
	}
	if got != want {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

func TestStorePersistsAcrossLoad(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir + "/node.bin")

	if _, _, _, err := store.Load(); err != ErrNotFound {
		t.Fatalf("Load() on missing file: err = %v, want ErrNotFound", err)
	}

	id := testIdentity(t)
	cfg := NodeConfigRecord{AdminPassword: "admin", AdvertIntervalSec: 600, FirstBootUnix: 1700000000}
	stats := StatsRecord{PacketsRX: 10, BootCount: 1}

	if err := store.Save(id, cfg, stats); err != nil {
		t.Fatalf("Save: %v", err)
	}

	gotID, gotCfg, gotStats, err := store.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if gotID.Public != id.Public {
		t.Error("identity did not survive Save/Load")
	}
	if gotCfg.AdminPassword != cfg.AdminPassword {
		t.Error("node config did not survive Save/Load")
	}
	if gotStats.PacketsRX != stats.PacketsRX {
		t.Error("stats did not survive Save/Load")
	}
}
