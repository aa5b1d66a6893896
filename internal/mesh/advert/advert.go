// Package advert builds and parses signed ADVERT payloads, including a
// tolerant fallback parser for a known peer bug that omits the flags byte
// when the sender carries a location.
package advert

import (
	"encoding/binary"
	"errors"

	"github.com/atomozero/meshcore-go/internal/identity"
)

// PubKeyLen, TimestampLen, SignatureLen are the fixed-width fields at the
// head of every ADVERT payload.
const (
	PubKeyLen    = 32
	TimestampLen = 4
	SignatureLen = identity.SignatureSize
	headerLen    = PubKeyLen + TimestampLen + SignatureLen
)

const (
	flagHasLocation = 1 << 4
	flagHasName     = 1 << 5
)

// ErrTooShort indicates a payload shorter than the fixed pubkey+ts+sig
// header.
var ErrTooShort = errors.New("advert: payload shorter than pubkey+ts+sig header")

// ErrSelfVerifyFailed indicates Build produced a signature that failed its
// own verification; this should never happen and indicates a crypto bug.
var ErrSelfVerifyFailed = errors.New("advert: self-verification of freshly built signature failed")

// Info is the best-effort result of parsing an incoming ADVERT.
type Info struct {
	PubKey         identity.PublicKey
	PubKeyHash     byte
	Timestamp      uint32
	SignatureValid bool

	Flags       byte
	HasLocation bool
	LatMicro    int32
	LonMicro    int32
	HasName     bool
	Name        string

	IsRepeater bool
	IsChat     bool
}

// Build serializes and signs an ADVERT for id at timestamp ts. The builder
// self-verifies the produced signature and returns ErrSelfVerifyFailed on
// mismatch rather than emitting a broken advert.
func Build(id *identity.Identity, ts uint32) ([]byte, error) {
	appdata := buildAppdata(id)

	msg := make([]byte, 0, PubKeyLen+TimestampLen+len(appdata))
	msg = append(msg, id.Public[:]...)
	msg = appendU32LE(msg, ts)
	msg = append(msg, appdata...)

	sig := id.Sign(msg)

	if !identity.Verify(id.Public, msg, sig) {
		return nil, ErrSelfVerifyFailed
	}

	payload := make([]byte, 0, headerLen+len(appdata))
	payload = append(payload, id.Public[:]...)
	payload = appendU32LE(payload, ts)
	payload = append(payload, sig[:]...)
	payload = append(payload, appdata...)

	return payload, nil
}

func buildAppdata(id *identity.Identity) []byte {
	// Bit 7 marks the byte as a flags byte; Parse requires it before
	// reading the appdata in the canonical layout.
	out := []byte{id.FlagsByte() | 0x80}

	if id.HasLoc {
		out = appendU32LE(out, uint32(id.LatMicro))
		out = appendU32LE(out, uint32(id.LonMicro))
	}
	if id.Name != "" {
		out = append(out, []byte(id.Name)...)
	}
	return out
}

// Parse decodes an incoming ADVERT payload. It never returns an error for
// a malformed appdata tail; it degrades to a best-effort Info instead,
// since peers with the known flags-byte-omission bug must still be usable.
func Parse(payload []byte) (*Info, error) {
	if len(payload) < headerLen {
		return nil, ErrTooShort
	}

	var pub identity.PublicKey
	copy(pub[:], payload[:PubKeyLen])

	ts := binary.LittleEndian.Uint32(payload[PubKeyLen : PubKeyLen+TimestampLen])

	var sig [SignatureLen]byte
	copy(sig[:], payload[PubKeyLen+TimestampLen:headerLen])

	appdata := payload[headerLen:]

	msg := make([]byte, 0, PubKeyLen+TimestampLen+len(appdata))
	msg = append(msg, payload[:PubKeyLen+TimestampLen]...)
	msg = append(msg, appdata...)

	info := &Info{
		PubKey:         pub,
		PubKeyHash:     pub[0],
		Timestamp:      ts,
		SignatureValid: identity.Verify(pub, msg, sig),
	}

	parseAppdata(appdata, info)
	return info, nil
}

func parseAppdata(appdata []byte, info *Info) {
	if len(appdata) == 0 {
		return
	}

	flagsByte := appdata[0]
	canonical := flagsByte&0x80 != 0 && (flagsByte&0x0F) <= byte(identity.NodeTypeSensor)

	if canonical {
		parseCanonical(flagsByte, appdata[1:], info)
		return
	}

	parseTolerant(appdata, info)
}

func parseCanonical(flagsByte byte, rest []byte, info *Info) {
	info.Flags = flagsByte
	typ := identity.NodeType(flagsByte & 0x0F)
	info.IsRepeater = typ == identity.NodeTypeRepeater
	info.IsChat = typ == identity.NodeTypeClient

	if flagsByte&flagHasLocation != 0 && len(rest) >= 8 {
		info.HasLocation = true
		info.LatMicro = int32(binary.LittleEndian.Uint32(rest[0:4]))
		info.LonMicro = int32(binary.LittleEndian.Uint32(rest[4:8]))
		rest = rest[8:]
	}

	if flagsByte&flagHasName != 0 && len(rest) > 0 {
		info.HasName = true
		info.Name = sanitizeName(rest)
	}
}

// parseTolerant handles peers that omit the flags byte when carrying a
// location: scan for the first plausible name start and classify whatever
// precedes it as absent or a truncated location.
func parseTolerant(appdata []byte, info *Info) {
	nameStart := findNameStart(appdata)
	if nameStart < 0 {
		return
	}

	prefix := appdata[:nameStart]
	info.HasName = true
	info.Name = sanitizeName(appdata[nameStart:])

	if len(prefix) >= 8 {
		info.HasLocation = true
		info.LatMicro = int32(binary.LittleEndian.Uint32(prefix[0:4]))
		info.LonMicro = int32(binary.LittleEndian.Uint32(prefix[4:8]))
	}
}

// findNameStart returns the index of the first ASCII letter followed by at
// least 3 more name characters ([A-Za-z0-9-]), or -1 if none is found.
func findNameStart(b []byte) int {
	for i := 0; i+3 < len(b); i++ {
		if !isNameLetter(b[i]) {
			continue
		}
		ok := true
		for j := i + 1; j < i+4; j++ {
			if !isNameChar(b[j]) {
				ok = false
				break
			}
		}
		if ok {
			return i
		}
	}
	return -1
}

func isNameLetter(c byte) bool {
	return (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z')
}

func isNameChar(c byte) bool {
	return isNameLetter(c) || (c >= '0' && c <= '9') || c == '-'
}

func sanitizeName(b []byte) string {
	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}

func appendU32LE(b []byte, v uint32) []byte {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], v)
	return append(b, buf[:]...)
}
