package dispatch

import (
	"encoding/binary"
	"fmt"

	"github.com/atomozero/meshcore-go/internal/mesh/codec"
	"github.com/atomozero/meshcore-go/internal/meshcrypto"
)

// textTypeCLI marks a PLAIN message's post-timestamp type byte (upper 6
// bits) as a CLI command line; any other value is ordinary message
// traffic.
const textTypeCLI = 1

// textTypeAlert marks an outbound PLAIN message built by sendNodeAlert.
const textTypeAlert = 2

// pingDP and pingPO are the 2-byte directed-ping probe and reply tokens.
const (
	pingDP = "DP"
	pingPO = "PO"
)

// handlePlain implements PLAIN (TXT_MSG): same session/decrypt/replay
// rules as REQUEST, dispatched by the upper 6 bits of the post-timestamp
// type byte, with a directed-ping fast path.
func (d *Dispatcher) handlePlain(pkt *codec.Packet) {
	if len(pkt.Data) < 4 {
		return
	}
	destHash, srcHash := pkt.Data[0], pkt.Data[1]
	if destHash != d.Self.Hash() {
		return
	}

	if !d.Limits.Request.Allow() {
		if d.Stats != nil {
			d.Stats.IncRateLimited("request")
		}
		return
	}

	cs, ok := d.Sessions.Lookup(srcHash)
	if !ok {
		return
	}

	plaintext, err := meshcrypto.Decrypt(cs.SharedSecret, pkt.Data[2:])
	if err != nil {
		return
	}
	if len(plaintext) < 5 {
		return
	}

	ts := binary.LittleEndian.Uint32(plaintext[0:4])
	if !d.Sessions.CheckReplay(cs, ts) {
		return
	}
	d.Sessions.Advance(cs, ts)

	textType := plaintext[4] >> 2
	data := plaintext[5:]

	if len(data) >= 2 && string(data[:2]) == pingDP {
		d.replyDirectedPing(pkt.RSSI, srcHash)
		return
	}

	if textType == textTypeCLI {
		out := d.CLI.Execute(cs.Permission, string(data))
		d.sendEncryptedResponse(cs, srcHash, ts, []byte(out))
		return
	}

	// Ordinary message traffic: keep SeenNodes/Contacts fresh but do not
	// respond.
	d.Seen.Observe(srcHash, pkt.RSSI, pkt.SNR, "", d.now())
}

func (d *Dispatcher) replyDirectedPing(rssi int16, senderHash byte) {
	body := fmt.Sprintf("%s %s %d", pingPO, d.Self.Name, rssi)
	out := make([]byte, 0, 2+len(body))
	out = append(out, senderHash, d.Self.Hash())
	out = append(out, body...)
	d.enqueueFlood(codec.PayloadTxtMsg, out)
}

// sendEncryptedPlain builds and enqueues an encrypted PLAIN message to a
// contact identified only by shared secret (the node-alert path has no
// ClientSession, since the destination is a configured contact, not a
// logged-in client).
func (d *Dispatcher) sendEncryptedPlain(secret [32]byte, textType byte, body []byte) {
	inner := make([]byte, 0, 5+len(body))
	var tsBuf [4]byte
	binary.LittleEndian.PutUint32(tsBuf[:], d.Clock.Now())
	inner = append(inner, tsBuf[:]...)
	inner = append(inner, textType<<2)
	inner = append(inner, body...)

	framed, err := meshcrypto.Encrypt(secret, inner)
	if err != nil {
		return
	}

	out := make([]byte, 0, 2+len(framed))
	out = append(out, 0, d.Self.Hash())
	out = append(out, framed...)

	d.enqueueFlood(codec.PayloadTxtMsg, out)
}
