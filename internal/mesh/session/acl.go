package session

import "errors"

// ErrLoginDenied is returned when a login password matches neither the
// admin nor the guest slot.
var ErrLoginDenied = errors.New("session: login denied")

// ACLCapacity is the size of a per-client ACL entry list. The ACL type
// below holds only the admin/guest password pair and keeps no per-client
// entries, so nothing in this package reads this constant.
const ACLCapacity = 16

// MaxPasswordLen matches the CLI passwd command's limit.
const MaxPasswordLen = 15

// ACL holds the node's admin and guest credentials. A guest password of
// empty string disables guest login entirely.
type ACL struct {
	adminPassword string
	guestPassword string
}

// NewACL creates an ACL with the given admin and guest passwords, each
// truncated to MaxPasswordLen.
func NewACL(adminPassword, guestPassword string) *ACL {
	return &ACL{
		adminPassword: truncatePassword(adminPassword),
		guestPassword: truncatePassword(guestPassword),
	}
}

// Resolve classifies a login password as admin, guest, or denied. Admin is
// checked first so an admin password equal to the guest password still
// grants admin rights.
func (a *ACL) Resolve(password string) (Permission, bool) {
	if a.adminPassword != "" && password == a.adminPassword {
		return PermAdmin, true
	}
	if a.guestPassword != "" && password == a.guestPassword {
		return PermGuest, true
	}
	return PermNone, false
}

// SetAdminPassword updates the admin password (CLI "passwd" command).
func (a *ACL) SetAdminPassword(password string) {
	a.adminPassword = truncatePassword(password)
}

// SetGuestPassword updates the guest password.
func (a *ACL) SetGuestPassword(password string) {
	a.guestPassword = truncatePassword(password)
}

// AdminPassword returns the current admin password, for persistence.
func (a *ACL) AdminPassword() string {
	return a.adminPassword
}

// GuestPassword returns the current guest password, for persistence.
func (a *ACL) GuestPassword() string {
	return a.guestPassword
}

func truncatePassword(p string) string {
	if len(p) > MaxPasswordLen {
		return p[:MaxPasswordLen]
	}
	return p
}
