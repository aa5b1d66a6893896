package dispatch

import (
	"encoding/binary"

	"github.com/atomozero/meshcore-go/internal/mesh/codec"
	"github.com/atomozero/meshcore-go/internal/mesh/session"
	"github.com/atomozero/meshcore-go/internal/meshcrypto"
)

// Request-type bytes, carried in the byte that follows the 4-byte
// timestamp of a decrypted REQUEST body. 0x07 is SEND_CLI; the codes are
// this repository's own consistent numbering.
const (
	ReqGetStatus     byte = 0x01
	ReqGetTelemetry  byte = 0x02
	ReqGetNeighbours byte = 0x03
	ReqGetMinMaxAvg  byte = 0x04
	ReqGetAccessList byte = 0x05
	ReqKeepAlive     byte = 0x06
	ReqSendCLI       byte = 0x07
)

// RepeaterStatsProvider supplies the fixed 52-byte GET_STATUS snapshot.
type RepeaterStatsProvider interface {
	Snapshot() RepeaterStats
}

// TelemetryProvider supplies sensor readings for GET_TELEMETRY.
type TelemetryProvider interface {
	Readings() TelemetryReading
}

// RadioStatsProvider supplies GET_MINMAXAVG radio statistics.
type RadioStatsProvider interface {
	MinMaxAvg() RadioStats
}

// RebootScheduler defers a restart for a "reboot" SEND_CLI command so its
// reply can be queued first. The node implementation waits a fixed delay;
// it does not watch the TX queue for the reply to leave.
type RebootScheduler interface {
	ScheduleReboot()
}

func (d *Dispatcher) handleRequest(pkt *codec.Packet) {
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

	reqType := plaintext[4]
	body := plaintext[5:]

	resp := d.runRequest(cs, reqType, body)
	if resp == nil {
		return
	}

	d.sendEncryptedResponse(cs, srcHash, ts, resp)
}

// runRequest dispatches by request-type byte and returns the response
// body (not yet encrypted), or nil to send nothing.
func (d *Dispatcher) runRequest(cs *session.ClientSession, reqType byte, body []byte) []byte {
	switch reqType {
	case ReqGetStatus:
		if sp, ok := d.CLI.(RepeaterStatsProvider); ok {
			snap := sp.Snapshot()
			return snap.Serialize()
		}
		return nil

	case ReqGetTelemetry:
		if tp, ok := d.CLI.(TelemetryProvider); ok {
			return tp.Readings().EncodeCayenneLPP()
		}
		return nil

	case ReqGetNeighbours:
		return d.buildNeighboursResponse()

	case ReqGetMinMaxAvg:
		if rp, ok := d.CLI.(RadioStatsProvider); ok {
			return rp.MinMaxAvg().Serialize()
		}
		return nil

	case ReqGetAccessList:
		if cs.Permission != session.PermAdmin {
			return []byte("E:admin")
		}
		return d.buildAccessListResponse()

	case ReqKeepAlive:
		return []byte{}

	case ReqSendCLI:
		if cs.Permission != session.PermAdmin {
			return []byte("E:admin")
		}
		line := string(body)
		if line == "reboot" {
			if rs, ok := d.CLI.(RebootScheduler); ok {
				rs.ScheduleReboot()
				return []byte("OK")
			}
		}
		out := d.CLI.Execute(cs.Permission, line)
		return []byte(out)

	default:
		return nil
	}
}

// sendEncryptedResponse builds a RESPONSE packet: dest_hash|src_hash|mac|
// ciphertext, with inner body ts || body, encrypted under the session's
// shared secret, flood-routed with an empty path.
func (d *Dispatcher) sendEncryptedResponse(cs *session.ClientSession, srcHash byte, ts uint32, body []byte) {
	inner := make([]byte, 0, 4+len(body))
	var tsBuf [4]byte
	binary.LittleEndian.PutUint32(tsBuf[:], ts)
	inner = append(inner, tsBuf[:]...)
	inner = append(inner, body...)

	framed, err := meshcrypto.Encrypt(cs.SharedSecret, inner)
	if err != nil {
		return
	}

	out := make([]byte, 0, 2+len(framed))
	out = append(out, srcHash, d.Self.Hash())
	out = append(out, framed...)

	d.enqueueFlood(codec.PayloadResponse, out)
}

func (d *Dispatcher) buildNeighboursResponse() []byte {
	now := d.now()
	neighbors := d.Neighbors.All(now)

	out := make([]byte, 4, 4+len(neighbors)*11)
	binary.LittleEndian.PutUint16(out[0:2], uint16(len(neighbors)))
	binary.LittleEndian.PutUint16(out[2:4], uint16(len(neighbors)))

	for _, nb := range neighbors {
		var prefix [6]byte
		if ct, ok := d.Contacts.ByHash(nb.Hash); ok {
			copy(prefix[:], ct.PubKey[:6])
		}
		out = append(out, prefix[:]...)

		secsSince := uint32(now.Sub(nb.LastSeen).Seconds())
		var secsBuf [4]byte
		binary.LittleEndian.PutUint32(secsBuf[:], secsSince)
		out = append(out, secsBuf[:]...)

		snr := int8(0)
		if ct, ok := d.Contacts.ByHash(nb.Hash); ok {
			snr = int8(ct.LastSNR / 4)
		}
		out = append(out, byte(snr))
	}
	return out
}

func (d *Dispatcher) buildAccessListResponse() []byte {
	// No ACL-entry enumeration interface exists yet beyond the
	// admin/guest password pair; report an empty list rather than
	// inventing entries.
	return []byte{0, 0}
}
