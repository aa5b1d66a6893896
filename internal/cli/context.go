// Package cli implements the fixed SEND_CLI command table: an
// exact-name-dispatched, tagged-variant set of commands returning short text
// replies, matching the "runtime-dispatched command table" design note
// rather than per-command polymorphic types.
package cli

import "github.com/atomozero/meshcore-go/internal/mesh/session"

// NodeContext is everything a CLI command needs from the running node.
// A single concrete type (the reactor's owning node context) implements
// this; the interpreter never touches tables or identity directly.
type NodeContext interface {
	StatusText() string
	StatsText() string
	LifetimeText() string
	RadioStatsText() string
	PacketStatsText() string

	BuildLocalAdvert() (string, error)
	SetAdvertInterval(seconds int) error

	NodesText() string
	ContactsText() string
	ContactText(hexPrefix string) (string, error)
	NeighboursText() string

	IdentityText() string

	Name() string
	SetName(name string) error

	Location() (lat, lon float64, ok bool)
	SetLocation(lat, lon float64) error
	ClearLocation() error

	Time() uint32
	SetTime(unix uint32) error

	SetNodeType(chat bool) error

	SetPassword(admin bool, password string) error

	SetSleep(enabled bool) error
	SetRxBoost(enabled bool) error
	SetMode(mode int) error

	AlertStatus() string
	SetAlertEnabled(enabled bool) error
	SetAlertDest(hexPubKey string) error
	ClearAlertDest() error
	TestAlert() error

	Ping(hexPrefix string) (string, error)

	NewIdentity() error
	ResetConfig() error
	Save() error
	Reboot() error
}

// guestAllowed is the read-only command-name subset available without
// admin permission. "time" and "location" are listed for their read
// forms only; Execute refuses them to non-admins when arguments are given.
var guestAllowed = map[string]bool{
	"status":     true,
	"stats":      true,
	"time":       true,
	"nodes":      true,
	"neighbours": true,
	"identity":   true,
	"location":   true,
	"lifetime":   true,
	"help":       true,
}

// permissionDenied is the fixed short text every unauthorized command
// returns.
const permissionDenied = "E:admin"

func allowed(name string, perm session.Permission) bool {
	if perm == session.PermAdmin {
		return true
	}
	return guestAllowed[name]
}
