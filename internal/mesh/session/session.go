// Package session implements authenticated client sessions: ANON_REQ login,
// replay-protected REQUEST/PLAIN decryption, and the admin/guest ACL.
package session

import (
	"time"

	"github.com/atomozero/meshcore-go/internal/identity"
)

// Permission is the access level granted to a session.
type Permission byte

const (
	PermNone Permission = iota
	PermGuest
	PermAdmin
)

// SessionsCapacity is the fixed capacity of the ClientSession table.
const SessionsCapacity = 8

// ClientSession is an authenticated context keyed on a client's ephemeral
// public key.
type ClientSession struct {
	EphemeralPub identity.PublicKey
	SharedSecret [32]byte
	Permission   Permission
	LastTS       uint32 // replay watermark
	LastActivity time.Time
	ReturnPath   []byte
}

// Hash returns the single-byte node hash a REQUEST/PLAIN header uses to
// address this session (the first byte of the ephemeral public key).
func (s *ClientSession) Hash() byte {
	return s.EphemeralPub[0]
}

// Manager owns the bounded ClientSession table plus the ACL, and
// implements the login/replay rules of the request dispatcher.
type Manager struct {
	capacity int
	order    []identity.PublicKey
	byPub    map[identity.PublicKey]*ClientSession
	byHash   map[byte]*ClientSession

	acl *ACL

	now func() time.Time
}

// NewManager creates a session Manager backed by the given ACL.
func NewManager(capacity int, acl *ACL, nowFn func() time.Time) *Manager {
	if capacity <= 0 {
		capacity = SessionsCapacity
	}
	if nowFn == nil {
		nowFn = time.Now
	}
	return &Manager{
		capacity: capacity,
		byPub:    make(map[identity.PublicKey]*ClientSession, capacity),
		byHash:   make(map[byte]*ClientSession, capacity),
		acl:      acl,
		now:      nowFn,
	}
}

// Login installs or refreshes a session for ephemeralPub, authenticated by
// password against the ACL's admin then guest slots. Returns ErrLoginDenied
// if neither matches.
func (m *Manager) Login(ephemeralPub identity.PublicKey, secret [32]byte, password string, ts uint32) (*ClientSession, error) {
	perm, ok := m.acl.Resolve(password)
	if !ok {
		return nil, ErrLoginDenied
	}

	if existing, ok := m.byPub[ephemeralPub]; ok {
		existing.SharedSecret = secret
		existing.Permission = perm
		existing.LastTS = ts
		existing.LastActivity = m.now()
		m.touch(ephemeralPub)
		return existing, nil
	}

	if len(m.order) >= m.capacity {
		m.evictLRU()
	}

	cs := &ClientSession{
		EphemeralPub: ephemeralPub,
		SharedSecret: secret,
		Permission:   perm,
		LastTS:       ts,
		LastActivity: m.now(),
	}
	m.byPub[ephemeralPub] = cs
	m.byHash[cs.Hash()] = cs
	m.order = append(m.order, ephemeralPub)
	return cs, nil
}

// Lookup finds a session by the single-byte node hash carried in a
// REQUEST/PLAIN header's src_hash field.
func (m *Manager) Lookup(hash byte) (*ClientSession, bool) {
	cs, ok := m.byHash[hash]
	return cs, ok
}

// CheckReplay reports whether ts is newer than the session's watermark. On
// success it is the caller's responsibility to call Advance.
func (m *Manager) CheckReplay(cs *ClientSession, ts uint32) bool {
	return ts > cs.LastTS
}

// Advance updates a session's replay watermark and activity time after a
// successfully processed request.
func (m *Manager) Advance(cs *ClientSession, ts uint32) {
	cs.LastTS = ts
	cs.LastActivity = m.now()
	m.touch(cs.EphemeralPub)
}

// Len returns the number of active sessions.
func (m *Manager) Len() int {
	return len(m.order)
}

func (m *Manager) touch(pub identity.PublicKey) {
	for i, k := range m.order {
		if k == pub {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	m.order = append(m.order, pub)
}

func (m *Manager) evictLRU() {
	if len(m.order) == 0 {
		return
	}
	oldest := m.order[0]
	m.order = m.order[1:]
	cs := m.byPub[oldest]
	delete(m.byPub, oldest)
	if cs != nil {
		delete(m.byHash, cs.Hash())
	}
}
