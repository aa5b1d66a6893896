package dispatch

import (
	"github.com/atomozero/meshcore-go/internal/identity"
	"github.com/atomozero/meshcore-go/internal/mesh/advert"
	"github.com/atomozero/meshcore-go/internal/mesh/codec"
)

func (d *Dispatcher) handleAdvert(pkt *codec.Packet) {
	info, err := advert.Parse(pkt.Data)
	if err != nil {
		return
	}

	d.Clock.Feed(info.Timestamp)

	_, alreadySeen := d.Seen.Get(info.PubKeyHash)

	now := d.now()
	d.Seen.Observe(info.PubKeyHash, pkt.RSSI, pkt.SNR, info.Name, now)
	d.Contacts.Observe(info.PubKey, info.Name, pkt.RSSI, pkt.SNR)

	zeroHop := len(pkt.Path) == 0
	if zeroHop && info.IsRepeater {
		d.Neighbors.ObserveZeroHop(info.PubKeyHash, info.Name, now)
	}

	if !alreadySeen {
		d.sendNodeAlert(info.PubKeyHash)
	}
}

// sendNodeAlert emits a best-effort PLAIN message to the configured alert
// destination announcing a newly observed node hash. Silently does
// nothing if alerting is disabled or the shared secret cannot be derived.
func (d *Dispatcher) sendNodeAlert(newHash byte) {
	if d.AlertDest == nil || d.Out == nil {
		return
	}

	secret, err := computeAlertSecret(d.Self, *d.AlertDest)
	if err != nil {
		return
	}

	body := []byte{newHash}
	d.sendEncryptedPlain(secret, textTypeAlert, body)
}

func computeAlertSecret(self *identity.Identity, dest identity.PublicKey) ([32]byte, error) {
	return sharedSecretFor(self, dest)
}
