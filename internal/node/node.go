// Package node implements the concrete node context: the single type
// that owns the reactor, tables, identity, and configuration, and backs
// both the in-mesh SEND_CLI interpreter and the ConnectRPC control plane.
package node

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/atomozero/meshcore-go/internal/cli"
	"github.com/atomozero/meshcore-go/internal/config"
	"github.com/atomozero/meshcore-go/internal/identity"
	meshmetrics "github.com/atomozero/meshcore-go/internal/metrics"
	"github.com/atomozero/meshcore-go/internal/mesh/advert"
	"github.com/atomozero/meshcore-go/internal/mesh/codec"
	"github.com/atomozero/meshcore-go/internal/mesh/dispatch"
	"github.com/atomozero/meshcore-go/internal/mesh/session"
	"github.com/atomozero/meshcore-go/internal/mesh/tables"
	"github.com/atomozero/meshcore-go/internal/persist"
	"github.com/atomozero/meshcore-go/internal/reactor"
)

// eventBufferSize bounds the fan-out event channel. If a WatchEvents
// consumer falls behind, further events are dropped rather than blocking
// the reactor goroutine that emits them.
const eventBufferSize = 64

// EventType enumerates the kinds of event Node.Events() emits.
type EventType int

const (
	EventUnspecified EventType = iota
	EventNodeJoined
	EventStateChange
	EventRadioError
)

// Event is one entry of the node's event stream, consumed by the
// ConnectRPC WatchEvents RPC.
type Event struct {
	Type      EventType
	NodeHash  byte
	Detail    string
	Timestamp time.Time
}

// ErrNotHexPrefix indicates a CLI argument that does not parse as a
// one-byte hex node hash.
var ErrNotHexPrefix = errors.New("node: argument is not a one-byte hex prefix")

// ErrContactNotFound indicates no contact matches the requested hash.
var ErrContactNotFound = errors.New("node: no contact with that hash")

// ErrNoAlertDest indicates TestAlert was called with no alert destination
// configured.
var ErrNoAlertDest = errors.New("node: no alert destination configured")

// Node is the single concrete implementation of cli.NodeContext,
// reactor.Stats, and dispatch.Stats. It owns everything the reactor
// doesn't: ACL, metrics, persistence, and the mutable subset of
// configuration the CLI and control plane can change at runtime.
//
// Reads and writes of this mutable state are protected by mu, since the
// control plane (server.go) may call these methods from a goroutine
// other than the one running Reactor.Run; mesh-originated SEND_CLI calls
// are marshaled onto the reactor goroutine via Reactor.Commands so they
// never race the packet pipeline either.
type Node struct {
	mu sync.Mutex

	Reactor *reactor.Reactor
	Cfg     *config.Config
	ACL     *session.ACL
	Store   *persist.Store
	Metrics meshmetrics.Reporter
	Logger  *slog.Logger

	Interp *cli.Interpreter

	rand io.Reader

	packetsRX, packetsTX, packetsFwd uint32
	byType                           map[codec.PayloadType]uint32
	logins, loginFailures            uint32
	rateLimited                      map[string]uint32
	bootCount                        uint32
	firstBoot                        time.Time

	minRSSI, maxRSSI int16
	sumRSSI          int64
	minSNR, maxSNR   int16
	sumSNR           int64
	countRadio       int64
	lastRSSI         int16

	advertIntervalSec int
	alertEnabled      bool
	alertDest         *identity.PublicKey

	batteryMV int
	mode      int

	events chan Event
}

// New wires a Node around an already-constructed Reactor. cfg, acl, store,
// metrics, and logger are required collaborators; metrics may be
// meshmetrics.Noop().
func New(r *reactor.Reactor, cfg *config.Config, acl *session.ACL, store *persist.Store, metrics meshmetrics.Reporter, logger *slog.Logger) *Node {
	n := &Node{
		Reactor:           r,
		Cfg:               cfg,
		ACL:               acl,
		Store:             store,
		Metrics:           metrics,
		Logger:            logger,
		rand:              rand.Reader,
		byType:            make(map[codec.PayloadType]uint32),
		rateLimited:       make(map[string]uint32),
		minRSSI:           0,
		minSNR:            0,
		advertIntervalSec: int(cfg.Reactor.BeaconInterval / time.Second),
		firstBoot:         time.Now(),
		events:            make(chan Event, eventBufferSize),
	}
	n.Interp = cli.New(n)
	r.Stats = n
	r.Hooks.OnRadioReset = n.onRadioReset
	r.Dispatcher.CLI = n
	return n
}

// onRadioReset is wired to Reactor.Hooks.OnRadioReset: a radio error
// threshold trip is the one reactor-detected condition surfaced on the
// event stream today.
func (n *Node) onRadioReset() {
	n.emitEvent(Event{Type: EventRadioError, Detail: "radio error threshold exceeded, radio reset"})
}

// emitEvent delivers ev to any active WatchEvents subscriber. Non-blocking:
// a full buffer (a slow or absent consumer) drops the event rather than
// stalling the caller, which may be the reactor goroutine itself.
func (n *Node) emitEvent(ev Event) {
	ev.Timestamp = time.Now()
	select {
	case n.events <- ev:
	default:
	}
}

// Events returns the node's event stream for WatchEvents to drain.
func (n *Node) Events() <-chan Event {
	return n.events
}

// --- reactor.Stats ----------------------------------------------------

// IncPacketsRX implements reactor.Stats.
func (n *Node) IncPacketsRX() {
	n.mu.Lock()
	n.packetsRX++
	n.mu.Unlock()
}

// IncPacketsTX implements reactor.Stats.
func (n *Node) IncPacketsTX() {
	n.mu.Lock()
	n.packetsTX++
	n.mu.Unlock()
}

// IncPacketsFwd implements reactor.Stats.
func (n *Node) IncPacketsFwd() {
	n.mu.Lock()
	n.packetsFwd++
	n.mu.Unlock()
	n.Metrics.IncPacketsForwarded()
}

// ObserveRadioQuality implements reactor.Stats.
func (n *Node) ObserveRadioQuality(rssi, snr int16) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.countRadio == 0 || rssi < n.minRSSI {
		n.minRSSI = rssi
	}
	if n.countRadio == 0 || rssi > n.maxRSSI {
		n.maxRSSI = rssi
	}
	if n.countRadio == 0 || snr < n.minSNR {
		n.minSNR = snr
	}
	if n.countRadio == 0 || snr > n.maxSNR {
		n.maxSNR = snr
	}
	n.sumRSSI += int64(rssi)
	n.sumSNR += int64(snr)
	n.countRadio++
	n.lastRSSI = rssi
}

// --- dispatch.Stats -----------------------------------------------------

// IncLogin implements dispatch.Stats.
func (n *Node) IncLogin() {
	n.mu.Lock()
	n.logins++
	n.mu.Unlock()
	n.Metrics.IncLoginSuccess()
}

// IncLoginFailure implements dispatch.Stats.
func (n *Node) IncLoginFailure() {
	n.mu.Lock()
	n.loginFailures++
	n.mu.Unlock()
	n.Metrics.IncLoginFailure()
}

// IncRateLimited implements dispatch.Stats.
func (n *Node) IncRateLimited(scope string) {
	n.mu.Lock()
	n.rateLimited[scope]++
	n.mu.Unlock()
	n.Metrics.IncRateLimited(scope)
}

// IncPacketsByType implements dispatch.Stats.
func (n *Node) IncPacketsByType(t codec.PayloadType) {
	n.mu.Lock()
	n.byType[t]++
	n.mu.Unlock()
	n.Metrics.IncPacketsReceived(t.String())
}

var _ dispatch.Stats = (*Node)(nil)
var _ reactor.Stats = (*Node)(nil)
var _ cli.NodeContext = (*Node)(nil)
var _ dispatch.CLIRunner = (*Node)(nil)
var _ dispatch.RepeaterStatsProvider = (*Node)(nil)
var _ dispatch.TelemetryProvider = (*Node)(nil)
var _ dispatch.RadioStatsProvider = (*Node)(nil)
var _ dispatch.RebootScheduler = (*Node)(nil)

// --- cli.NodeContext: status/stats text ---------------------------------

// StatusText implements cli.NodeContext.
func (n *Node) StatusText() string {
	n.mu.Lock()
	defer n.mu.Unlock()

	self := n.Reactor.Self
	return fmt.Sprintf(
		"pubkey=%s hash=%02x name=%q repeater=%v uptime=%s battery_mv=%d queue=%d",
		hex.EncodeToString(self.Public[:]), self.Hash(), self.Name,
		self.Type == identity.NodeTypeRepeater,
		time.Since(n.Reactor.BootTime()).Round(time.Second),
		n.batteryMV, n.Reactor.QueueLen(),
	)
}

// StatsText implements cli.NodeContext.
func (n *Node) StatsText() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return fmt.Sprintf(
		"rx=%d tx=%d fwd=%d logins=%d login_failures=%d sessions=%d nodes=%d contacts=%d neighbours=%d",
		n.packetsRX, n.packetsTX, n.packetsFwd, n.logins, n.loginFailures,
		n.Reactor.Dispatcher.Sessions.Len(),
		n.Reactor.Dispatcher.Seen.Len(),
		n.Reactor.Dispatcher.Contacts.Len(),
		n.Reactor.Dispatcher.Neighbors.Len(),
	)
}

// LifetimeText implements cli.NodeContext.
func (n *Node) LifetimeText() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return fmt.Sprintf(
		"boot_count=%d first_boot_unix=%d airtime_secs=%d uptime=%s",
		n.bootCount, n.firstBoot.Unix(), n.Reactor.AirtimeSeconds(),
		time.Since(n.Reactor.BootTime()).Round(time.Second),
	)
}

// RadioStatsText implements cli.NodeContext.
func (n *Node) RadioStatsText() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.countRadio == 0 {
		return "no radio samples yet"
	}
	avgRSSI := n.sumRSSI / n.countRadio
	avgSNR := n.sumSNR / n.countRadio
	return fmt.Sprintf(
		"rssi(min=%d max=%d avg=%d) snr(min=%d max=%d avg=%d)",
		n.minRSSI, n.maxRSSI, avgRSSI, n.minSNR, n.maxSNR, avgSNR,
	)
}

// PacketStatsText implements cli.NodeContext.
func (n *Node) PacketStatsText() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	var b strings.Builder
	for t := codec.PayloadAdvert; t <= codec.PayloadGroupTxt; t++ {
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		fmt.Fprintf(&b, "%s=%d", t.String(), n.byType[t])
	}
	return b.String()
}

// --- advertisement --------------------------------------------------------

// BuildLocalAdvert implements cli.NodeContext.
func (n *Node) BuildLocalAdvert() (string, error) {
	n.mu.Lock()
	self := n.Reactor.Self
	clock := n.Reactor.Clock
	n.mu.Unlock()

	payload, err := advert.Build(self, clock.Now())
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(payload), nil
}

// SetAdvertInterval implements cli.NodeContext.
func (n *Node) SetAdvertInterval(seconds int) error {
	if seconds <= 0 {
		return fmt.Errorf("node: advert interval must be positive")
	}
	n.mu.Lock()
	n.advertIntervalSec = seconds
	n.mu.Unlock()
	n.Reactor.Cfg.BeaconInterval = time.Duration(seconds) * time.Second
	return nil
}

// --- tables ---------------------------------------------------------------

// NodesText implements cli.NodeContext.
func (n *Node) NodesText() string {
	var b strings.Builder
	for _, sn := range n.Reactor.Dispatcher.Seen.All() {
		fmt.Fprintf(&b, "%02x %q rssi=%d snr=%d seen=%s\n",
			sn.Hash, sn.Name, sn.LastRSSI, sn.LastSNR, sn.LastSeen.Format(time.RFC3339))
	}
	return strings.TrimRight(b.String(), "\n")
}

// ContactsText implements cli.NodeContext.
func (n *Node) ContactsText() string {
	var b strings.Builder
	for _, pub := range contactKeys(n.Reactor.Dispatcher.Contacts) {
		ct, _ := n.Reactor.Dispatcher.Contacts.Get(pub)
		fmt.Fprintf(&b, "%02x %q rssi=%d snr=%d\n", pub[0], ct.Name, ct.LastRSSI, ct.LastSNR)
	}
	return strings.TrimRight(b.String(), "\n")
}

// contactKeys is a small helper since tables.Contacts exposes lookup by
// key or hash but not a full key enumeration; it rebuilds the key list
// via ByHash over the full byte range, which is adequate for the
// capacity-8 table this walks.
func contactKeys(c *tables.Contacts) []identity.PublicKey {
	var keys []identity.PublicKey
	seen := make(map[identity.PublicKey]bool)
	for h := 0; h < 256; h++ {
		ct, ok := c.ByHash(byte(h))
		if !ok || seen[ct.PubKey] {
			continue
		}
		seen[ct.PubKey] = true
		keys = append(keys, ct.PubKey)
	}
	return keys
}

// SeenSnapshot returns every currently-tracked node, for the control
// plane's ListNodes RPC (the CLI-facing equivalent is NodesText).
func (n *Node) SeenSnapshot() []*tables.SeenNode {
	return n.Reactor.Dispatcher.Seen.All()
}

// ContactsSnapshot returns every currently-known contact, for the control
// plane's ListContacts RPC (the CLI-facing equivalent is ContactsText).
func (n *Node) ContactsSnapshot() []*tables.Contact {
	out := make([]*tables.Contact, 0, len(contactKeys(n.Reactor.Dispatcher.Contacts)))
	for _, pub := range contactKeys(n.Reactor.Dispatcher.Contacts) {
		ct, _ := n.Reactor.Dispatcher.Contacts.Get(pub)
		out = append(out, ct)
	}
	return out
}

// NeighboursSnapshot returns every currently-known zero-hop neighbour, for
// the control plane's ListNeighbours RPC (the CLI-facing equivalent is
// NeighboursText).
func (n *Node) NeighboursSnapshot() []*tables.Neighbor {
	return n.Reactor.Dispatcher.Neighbors.All(time.Now())
}

// StatusSnapshot returns the fields GetStatus reports, sidestepping the
// CLI text format StatusText renders for a human terminal.
func (n *Node) StatusSnapshot() (pubKey identity.PublicKey, hash byte, name string, repeater bool, uptime time.Duration, batteryMV, queueLen int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	self := n.Reactor.Self
	return self.Public, self.Hash(), self.Name, self.Type == identity.NodeTypeRepeater,
		time.Since(n.Reactor.BootTime()).Round(time.Second), n.batteryMV, n.Reactor.QueueLen()
}

// ContactText implements cli.NodeContext.
func (n *Node) ContactText(hexPrefix string) (string, error) {
	hash, err := parseHashPrefix(hexPrefix)
	if err != nil {
		return "", err
	}
	ct, ok := n.Reactor.Dispatcher.Contacts.ByHash(hash)
	if !ok {
		return "", ErrContactNotFound
	}
	return fmt.Sprintf("%02x %q rssi=%d snr=%d pubkey=%s",
		ct.PubKey[0], ct.Name, ct.LastRSSI, ct.LastSNR, hex.EncodeToString(ct.PubKey[:])), nil
}

// NeighboursText implements cli.NodeContext.
func (n *Node) NeighboursText() string {
	var b strings.Builder
	for _, nb := range n.Reactor.Dispatcher.Neighbors.All(time.Now()) {
		fmt.Fprintf(&b, "%02x %q seen=%s\n", nb.Hash, nb.Name, nb.LastSeen.Format(time.RFC3339))
	}
	return strings.TrimRight(b.String(), "\n")
}

// IdentityText implements cli.NodeContext.
func (n *Node) IdentityText() string {
	self := n.Reactor.Self
	return fmt.Sprintf("pubkey=%s hash=%02x", hex.EncodeToString(self.Public[:]), self.Hash())
}

func parseHashPrefix(hexPrefix string) (byte, error) {
	v, err := strconv.ParseUint(hexPrefix, 16, 8)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrNotHexPrefix, err)
	}
	return byte(v), nil
}

// --- name/location/time ----------------------------------------------------

// Name implements cli.NodeContext.
func (n *Node) Name() string {
	return n.Reactor.Self.Name
}

// SetName implements cli.NodeContext.
func (n *Node) SetName(name string) error {
	if len(name) > identity.MaxNameLen {
		return identity.ErrNameTooLong
	}
	n.mu.Lock()
	n.Reactor.Self.Name = name
	n.mu.Unlock()
	return nil
}

// Location implements cli.NodeContext.
func (n *Node) Location() (lat, lon float64, ok bool) {
	self := n.Reactor.Self
	if !self.HasLoc {
		return 0, 0, false
	}
	return float64(self.LatMicro) / 1e6, float64(self.LonMicro) / 1e6, true
}

// SetLocation implements cli.NodeContext.
func (n *Node) SetLocation(lat, lon float64) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.Reactor.Self.HasLoc = true
	n.Reactor.Self.LatMicro = int32(lat * 1e6)
	n.Reactor.Self.LonMicro = int32(lon * 1e6)
	return nil
}

// ClearLocation implements cli.NodeContext.
func (n *Node) ClearLocation() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.Reactor.Self.HasLoc = false
	n.Reactor.Self.LatMicro = 0
	n.Reactor.Self.LonMicro = 0
	return nil
}

// Time implements cli.NodeContext.
func (n *Node) Time() uint32 {
	return n.Reactor.Clock.Now()
}

// SetTime implements cli.NodeContext.
func (n *Node) SetTime(unix uint32) error {
	n.Reactor.Clock.ForceSync(unix)
	return nil
}

// --- node type / password / power ------------------------------------------

// SetNodeType implements cli.NodeContext.
func (n *Node) SetNodeType(chat bool) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if chat {
		n.Reactor.Self.Type = identity.NodeTypeClient
	} else {
		n.Reactor.Self.Type = identity.NodeTypeRepeater
	}
	return nil
}

// SetPassword implements cli.NodeContext.
func (n *Node) SetPassword(admin bool, password string) error {
	if len(password) > session.MaxPasswordLen {
		password = password[:session.MaxPasswordLen]
	}
	if admin {
		n.ACL.SetAdminPassword(password)
	} else {
		n.ACL.SetGuestPassword(password)
	}
	return nil
}

// SetSleep implements cli.NodeContext.
func (n *Node) SetSleep(enabled bool) error {
	n.Reactor.Cfg.DeepSleepEnabled = enabled
	return nil
}

// SetRxBoost implements cli.NodeContext.
func (n *Node) SetRxBoost(enabled bool) error {
	return n.Reactor.Radio.SetRxBoost(enabled)
}

// SetMode implements cli.NodeContext. Mode is advisory client-role
// metadata (0=normal, 1=repeater-only, 2=low-power); it has no direct
// radio side effect here, matching how the "mode" command is documented
// as a client display hint rather than a PHY reconfiguration.
func (n *Node) SetMode(mode int) error {
	if mode < 0 || mode > 2 {
		return fmt.Errorf("node: mode out of range")
	}
	n.mu.Lock()
	n.mode = mode
	n.mu.Unlock()
	return nil
}

// --- alerts -----------------------------------------------------------------

// AlertStatus implements cli.NodeContext.
func (n *Node) AlertStatus() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	dest := "none"
	if n.alertDest != nil {
		dest = hex.EncodeToString(n.alertDest[:])
	}
	return fmt.Sprintf("enabled=%v dest=%s", n.alertEnabled, dest)
}

// SetAlertEnabled implements cli.NodeContext.
func (n *Node) SetAlertEnabled(enabled bool) error {
	n.mu.Lock()
	n.alertEnabled = enabled
	n.mu.Unlock()
	return nil
}

// SetAlertDest implements cli.NodeContext.
func (n *Node) SetAlertDest(hexPubKey string) error {
	raw, err := hex.DecodeString(hexPubKey)
	if err != nil || len(raw) != 32 {
		return fmt.Errorf("node: alert destination must be a 32-byte hex public key")
	}
	var pub identity.PublicKey
	copy(pub[:], raw)

	n.mu.Lock()
	n.alertDest = &pub
	n.mu.Unlock()
	n.Reactor.Dispatcher.AlertDest = &pub
	return nil
}

// ClearAlertDest implements cli.NodeContext.
func (n *Node) ClearAlertDest() error {
	n.mu.Lock()
	n.alertDest = nil
	n.mu.Unlock()
	n.Reactor.Dispatcher.AlertDest = nil
	return nil
}

// TestAlert implements cli.NodeContext.
func (n *Node) TestAlert() error {
	n.mu.Lock()
	dest := n.alertDest
	n.mu.Unlock()
	if dest == nil {
		return ErrNoAlertDest
	}
	n.Logger.Info("sending test alert", slog.String("dest", hex.EncodeToString(dest[:])))
	return nil
}

// --- ping, identity lifecycle, persistence ----------------------------------

// Ping implements cli.NodeContext: a directed link-quality probe against
// an already-seen or already-contacted node, reported from cached signal
// data rather than a live round trip (the radio's single in-flight frame
// budget has no room for a blocking request/response inside a CLI call).
func (n *Node) Ping(hexPrefix string) (string, error) {
	hash, err := parseHashPrefix(hexPrefix)
	if err != nil {
		return "", err
	}
	if sn, ok := n.Reactor.Dispatcher.Seen.Get(hash); ok {
		return fmt.Sprintf("%02x rssi=%d snr=%d seen=%s", sn.Hash, sn.LastRSSI, sn.LastSNR, sn.LastSeen.Format(time.RFC3339)), nil
	}
	if ct, ok := n.Reactor.Dispatcher.Contacts.ByHash(hash); ok {
		return fmt.Sprintf("%02x rssi=%d snr=%d", ct.PubKey[0], ct.LastRSSI, ct.LastSNR), nil
	}
	return "", ErrContactNotFound
}

// NewIdentity implements cli.NodeContext: regenerates the node's Ed25519
// keypair. Invariant: only ever reachable from an explicit admin command,
// never automatically.
func (n *Node) NewIdentity() error {
	n.mu.Lock()
	defer n.mu.Unlock()

	id, err := identity.Generate(n.rand, n.Reactor.Self.Name, n.Reactor.Self.Type)
	if err != nil {
		return err
	}
	n.Reactor.Self = id
	return nil
}

// ResetConfig implements cli.NodeContext.
func (n *Node) ResetConfig() error {
	n.mu.Lock()
	defer n.mu.Unlock()

	def := config.DefaultConfig()
	n.ACL.SetAdminPassword(def.ACL.AdminPassword)
	n.ACL.SetGuestPassword(def.ACL.GuestPassword)
	n.Reactor.Cfg.BeaconInterval = def.Reactor.BeaconInterval
	n.advertIntervalSec = int(def.Reactor.BeaconInterval / time.Second)
	n.alertEnabled = false
	n.alertDest = nil
	n.Reactor.Dispatcher.AlertDest = nil
	return nil
}

// Save implements cli.NodeContext: persists identity, ACL, and lifetime
// counters to the Store.
func (n *Node) Save() error {
	n.mu.Lock()
	cfgRecord := persist.NodeConfigRecord{
		AdminPassword:     n.ACL.AdminPassword(),
		GuestPassword:     n.ACL.GuestPassword(),
		AdvertIntervalSec: uint32(n.advertIntervalSec),
		SleepEnabled:      n.Reactor.Cfg.DeepSleepEnabled,
		AlertEnabled:      n.alertEnabled,
		FirstBootUnix:     uint32(n.firstBoot.Unix()),
	}
	if n.alertDest != nil {
		cfgRecord.HasAlertDest = true
		cfgRecord.AlertDest = *n.alertDest
	}
	statsRecord := persist.StatsRecord{
		PacketsRX:     n.packetsRX,
		PacketsTX:     n.packetsTX,
		PacketsFwd:    n.packetsFwd,
		Logins:        n.logins,
		LoginFailures: n.loginFailures,
		AirtimeSecs:   uint32(n.Reactor.AirtimeSeconds()),
		BootCount:     n.bootCount,
	}
	self := n.Reactor.Self
	n.mu.Unlock()

	if n.Store == nil {
		return nil
	}
	return n.Store.Save(self, cfgRecord, statsRecord)
}

// Reboot implements cli.NodeContext: invokes the reactor's OnReboot hook
// if one is wired (cmd/meshcored wires this to an actual process restart
// via systemd); a nil hook makes Reboot a no-op suitable for tests.
func (n *Node) Reboot() error {
	n.Metrics.IncReboots()
	if n.Reactor.Hooks.OnReboot != nil {
		n.Reactor.Hooks.OnReboot()
	}
	return nil
}

// RunCLI marshals a control-plane-originated SEND_CLI line onto the
// reactor goroutine via Reactor.Commands, so it never races packet
// processing, and returns the command's text reply.
func (n *Node) RunCLI(perm session.Permission, line string) string {
	if n.Reactor.Commands == nil {
		return n.Interp.Execute(perm, line)
	}
	reply := make(chan string, 1)
	n.Reactor.Commands <- func() {
		reply <- n.Interp.Execute(perm, line)
	}
	return <-reply
}

// Execute implements dispatch.CLIRunner: a mesh-originated SEND_CLI
// request already runs on the reactor goroutine (Dispatcher.Dispatch is
// only ever called from Reactor.Run), so unlike RunCLI this calls the
// interpreter directly rather than marshaling through Reactor.Commands.
func (n *Node) Execute(perm session.Permission, line string) string {
	return n.Interp.Execute(perm, line)
}

// Snapshot implements dispatch.RepeaterStatsProvider, answering GET_STATUS.
func (n *Node) Snapshot() dispatch.RepeaterStats {
	n.mu.Lock()
	defer n.mu.Unlock()

	var rateLimited uint32
	for _, v := range n.rateLimited {
		rateLimited += v
	}

	return dispatch.RepeaterStats{
		BatteryMV:     uint16(n.batteryMV),
		QueueLen:      uint8(n.Reactor.QueueLen()),
		NoiseFloor:    n.minRSSI,
		LastRSSI:      n.lastRSSI,
		PacketsRX:     n.packetsRX,
		PacketsTX:     n.packetsTX,
		PacketsFwd:    n.packetsFwd,
		UniqueNodes:   uint32(n.Reactor.Dispatcher.Seen.Len()),
		Logins:        n.logins,
		LoginFailures: n.loginFailures,
		RateLimited:   rateLimited,
		AirtimeSecs:   uint32(n.Reactor.AirtimeSeconds()),
		UptimeSecs:    uint32(time.Since(n.Reactor.BootTime()) / time.Second),
		BootCount:     n.bootCount,
	}
}

// MinMaxAvg implements dispatch.RadioStatsProvider, answering GET_MINMAXAVG.
func (n *Node) MinMaxAvg() dispatch.RadioStats {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.countRadio == 0 {
		return dispatch.RadioStats{}
	}
	return dispatch.RadioStats{
		MinRSSI: n.minRSSI,
		MaxRSSI: n.maxRSSI,
		AvgRSSI: int16(n.sumRSSI / n.countRadio),
		MinSNR:  n.minSNR,
		MaxSNR:  n.maxSNR,
		AvgSNR:  int16(n.sumSNR / n.countRadio),
	}
}

// Readings implements dispatch.TelemetryProvider, answering GET_TELEMETRY.
// Only battery voltage is backed by a real sensor reading today; this
// node has no temperature or analog-input probe and reports no GPS fix,
// so those fields are left at their zero value rather than fabricated.
func (n *Node) Readings() dispatch.TelemetryReading {
	n.mu.Lock()
	defer n.mu.Unlock()
	return dispatch.TelemetryReading{
		BatteryVolts: float32(n.batteryMV) / 1000,
	}
}

// ScheduleReboot implements dispatch.RebootScheduler. The SEND_CLI
// response carrying the "reboot" command's reply is still sitting in the
// reactor's TX queue when this is called, so the actual reboot is
// deferred briefly to give it a chance to go out over the radio first.
func (n *Node) ScheduleReboot() {
	time.AfterFunc(2*time.Second, func() {
		n.Reboot()
	})
}

// LoadOrInit restores identity/config/stats from Store, or seeds fresh
// ones from cfg.Identity/cfg.ACL on first boot (ErrNotFound).
func LoadOrInit(cfg *config.Config, store *persist.Store) (*identity.Identity, persist.NodeConfigRecord, persist.StatsRecord, error) {
	id, cfgRecord, statsRecord, err := store.Load()
	switch {
	case err == nil:
		statsRecord.BootCount++
		return id, cfgRecord, statsRecord, nil
	case errors.Is(err, persist.ErrNotFound):
		typ := identity.NodeTypeClient
		if cfg.Identity.Repeater {
			typ = identity.NodeTypeRepeater
		}
		fresh, genErr := identity.Generate(rand.Reader, cfg.Identity.Name, typ)
		if genErr != nil {
			return nil, persist.NodeConfigRecord{}, persist.StatsRecord{}, genErr
		}
		return fresh, persist.NodeConfigRecord{
			AdminPassword:     cfg.ACL.AdminPassword,
			GuestPassword:     cfg.ACL.GuestPassword,
			AdvertIntervalSec: uint32(cfg.Reactor.BeaconInterval / time.Second),
			FirstBootUnix:     uint32(time.Now().Unix()),
		}, persist.StatsRecord{BootCount: 1}, nil
	default:
		return nil, persist.NodeConfigRecord{}, persist.StatsRecord{}, err
	}
}

// Restore applies a NodeConfigRecord/StatsRecord pair loaded via
// LoadOrInit onto a freshly constructed Node, so a restart resumes with
// the same ACL passwords, advert interval, alert destination, and
// lifetime counters it had before the store was last saved.
func (n *Node) Restore(cfgRecord persist.NodeConfigRecord, statsRecord persist.StatsRecord) {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.ACL.SetAdminPassword(cfgRecord.AdminPassword)
	n.ACL.SetGuestPassword(cfgRecord.GuestPassword)
	n.advertIntervalSec = int(cfgRecord.AdvertIntervalSec)
	if cfgRecord.AdvertIntervalSec > 0 {
		n.Reactor.Cfg.BeaconInterval = time.Duration(cfgRecord.AdvertIntervalSec) * time.Second
	}
	n.Reactor.Cfg.DeepSleepEnabled = cfgRecord.SleepEnabled
	n.alertEnabled = cfgRecord.AlertEnabled
	if cfgRecord.HasAlertDest {
		dest := cfgRecord.AlertDest
		n.alertDest = &dest
		n.Reactor.Dispatcher.AlertDest = &dest
	}
	if cfgRecord.FirstBootUnix != 0 {
		n.firstBoot = time.Unix(int64(cfgRecord.FirstBootUnix), 0)
	}

	n.packetsRX = statsRecord.PacketsRX
	n.packetsTX = statsRecord.PacketsTX
	n.packetsFwd = statsRecord.PacketsFwd
	n.logins = statsRecord.Logins
	n.loginFailures = statsRecord.LoginFailures
	n.bootCount = statsRecord.BootCount
}
