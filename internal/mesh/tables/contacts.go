package tables

import "github.com/atomozero/meshcore-go/internal/identity"

// ContactsCapacity is the fixed capacity of the Contacts table.
const ContactsCapacity = 8

// Contact is a known peer's full public key, cached ECDH secret, and
// signal data.
type Contact struct {
	PubKey       identity.PublicKey
	SharedSecret [32]byte
	Name         string
	LastRSSI     int16
	LastSNR      int16
}

// SecretDeriver computes a fresh shared secret for a contact's public key,
// invoked whenever a slot is created or reused.
type SecretDeriver func(pub identity.PublicKey) ([32]byte, error)

// Contacts is a capacity-8 LRU table of full contact records.
type Contacts struct {
	capacity int
	order    []identity.PublicKey
	byKey    map[identity.PublicKey]*Contact
	derive   SecretDeriver
}

// NewContacts creates a Contacts table. derive computes the shared secret
// for a pubkey; it is called once per slot creation/reuse, never cached
// across node hash collisions.
func NewContacts(capacity int, derive SecretDeriver) *Contacts {
	if capacity <= 0 {
		capacity = ContactsCapacity
	}
	return &Contacts{
		capacity: capacity,
		byKey:    make(map[identity.PublicKey]*Contact, capacity),
		derive:   derive,
	}
}

// Observe records or refreshes a contact, deriving the shared secret only
// when the slot is newly created (an existing contact's cached secret is
// never recomputed).
func (c *Contacts) Observe(pub identity.PublicKey, name string, rssi, snr int16) (*Contact, error) {
	if ct, ok := c.byKey[pub]; ok {
		ct.LastRSSI = rssi
		ct.LastSNR = snr
		if name != "" {
			ct.Name = name
		}
		c.touch(pub)
		return ct, nil
	}

	if len(c.order) >= c.capacity {
		c.evictOldest()
	}

	secret, err := c.derive(pub)
	if err != nil {
		return nil, err
	}

	ct := &Contact{
		PubKey:       pub,
		SharedSecret: secret,
		Name:         name,
		LastRSSI:     rssi,
		LastSNR:      snr,
	}
	c.byKey[pub] = ct
	c.order = append(c.order, pub)
	return ct, nil
}

// Get returns the contact for pub, if present.
func (c *Contacts) Get(pub identity.PublicKey) (*Contact, bool) {
	ct, ok := c.byKey[pub]
	return ct, ok
}

// Len returns the number of tracked contacts.
func (c *Contacts) Len() int {
	return len(c.order)
}

// ByHash returns the contact whose public key's node hash (first byte)
// matches hash, if any. Collisions resolve to whichever contact was
// inserted into that slot; callers needing certainty compare full keys.
func (c *Contacts) ByHash(hash byte) (*Contact, bool) {
	for _, pub := range c.order {
		if pub[0] == hash {
			return c.byKey[pub], true
		}
	}
	return nil, false
}

func (c *Contacts) touch(pub identity.PublicKey) {
	for i, k := range c.order {
		if k == pub {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	c.order = append(c.order, pub)
}

func (c *Contacts) evictOldest() {
	if len(c.order) == 0 {
		return
	}
	oldest := c.order[0]
	c.order = c.order[1:]
	delete(c.byKey, oldest)
}
