package dispatch

import (
	"crypto/rand"
	"encoding/binary"

	"github.com/atomozero/meshcore-go/internal/identity"
	"github.com/atomozero/meshcore-go/internal/mesh/codec"
	"github.com/atomozero/meshcore-go/internal/meshcrypto"
)

// ephemeralPubLen is the width of the client's ephemeral X25519 public key
// carried in an ANON_REQ payload.
const ephemeralPubLen = 32

// handleAnonReq implements the anonymous login handshake: verify
// addressing, rate-limit, MAC-then-decrypt, check the password against
// admin then guest, and install or refresh a ClientSession.
func (d *Dispatcher) handleAnonReq(pkt *codec.Packet) {
	if len(pkt.Data) < 1+ephemeralPubLen+meshcrypto.MACSize {
		return
	}

	destHash := pkt.Data[0]
	if destHash != d.Self.Hash() {
		return
	}

	if !d.Limits.Login.Allow() {
		if d.Stats != nil {
			d.Stats.IncRateLimited("login")
		}
		return
	}

	var ephemeralPub [32]byte
	copy(ephemeralPub[:], pkt.Data[1:1+ephemeralPubLen])

	framed := pkt.Data[1+ephemeralPubLen:]

	secret, err := ephemeralSharedSecret(d.Self, ephemeralPub)
	if err != nil {
		d.failLogin()
		return
	}

	plaintext, err := meshcrypto.Decrypt(secret, framed)
	if err != nil {
		d.failLogin()
		return
	}
	if len(plaintext) < 4 {
		d.failLogin()
		return
	}

	ts := binary.LittleEndian.Uint32(plaintext[0:4])
	password := trimTrailingZeros(plaintext[4:])

	var ephemeralAsPub identity.PublicKey
	copy(ephemeralAsPub[:], ephemeralPub[:])

	randSrc := d.Rand
	if randSrc == nil {
		randSrc = rand.Reader
	}

	cs, err := d.Sessions.Login(ephemeralAsPub, secret, password, ts)
	if err != nil {
		d.failLogin()
		return
	}

	if d.Stats != nil {
		d.Stats.IncLogin()
	}

	resp, err := buildLoginResponse(randSrc, ts, d.KeepAliveSeconds, cs.Permission, d.FirmwareByte)
	if err != nil {
		return
	}

	framedResp, err := meshcrypto.Encrypt(secret, resp)
	if err != nil {
		return
	}

	out := make([]byte, 0, 2+len(framedResp))
	out = append(out, ephemeralPub[0], d.Self.Hash())
	out = append(out, framedResp...)

	d.enqueueFlood(codec.PayloadResponse, out)
}

func (d *Dispatcher) failLogin() {
	if d.Stats != nil {
		d.Stats.IncLoginFailure()
	}
}

func trimTrailingZeros(b []byte) string {
	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}
