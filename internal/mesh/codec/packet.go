// Package codec implements the MeshCore wire framing: header bit-packing
// and serialize/deserialize of the fixed byte layout
// [header:1 | path_len:1 | path[path_len] | payload[remaining]].
package codec

import (
	"errors"
	"sync"
)

// RouteType occupies bits 0-1 of the header byte.
type RouteType byte

const (
	RouteTransportFlood RouteType = iota
	RouteFlood
	RouteDirect
	RouteTransportDirect
)

// PayloadType occupies bits 2-5 of the header byte.
type PayloadType byte

const (
	PayloadAdvert PayloadType = iota
	PayloadAnonReq
	PayloadControl
	PayloadRequest
	PayloadResponse
	PayloadTxtMsg
	PayloadPathTrace
	PayloadAck
	PayloadGroupTxt
)

const (
	routeMask   = 0x03
	payloadMask = 0x0F
	payloadSh   = 2
	versionMask = 0x03
	versionSh   = 6
)

// String names a PayloadType for logging and per-type metrics/CLI labels.
func (p PayloadType) String() string {
	switch p {
	case PayloadAdvert:
		return "advert"
	case PayloadAnonReq:
		return "anon_req"
	case PayloadControl:
		return "control"
	case PayloadRequest:
		return "request"
	case PayloadResponse:
		return "response"
	case PayloadTxtMsg:
		return "txt_msg"
	case PayloadPathTrace:
		return "path_trace"
	case PayloadAck:
		return "ack"
	case PayloadGroupTxt:
		return "group_txt"
	default:
		return "unknown"
	}
}

// MaxPathLen is the largest number of single-byte hop hashes a path may
// carry.
const MaxPathLen = 63

// MaxPayloadLen is the largest payload this wire format tolerates; longer
// declared payloads are clamped, matching deployed peers.
const MaxPayloadLen = 180

// MaxFrameLen is the largest total wire frame.
const MaxFrameLen = 255

var (
	// ErrTooShort indicates fewer than 2 bytes were supplied.
	ErrTooShort = errors.New("codec: frame shorter than header+path_len")

	// ErrBadPath indicates a declared path_len exceeding MaxPathLen.
	ErrBadPath = errors.New("codec: path_len exceeds maximum")

	// ErrBadLength indicates the declared path overruns the buffer.
	ErrBadLength = errors.New("codec: declared path overruns frame")
)

// Packet is the in-memory representation of one mesh frame, with RX
// metadata attached by the receiving transport.
type Packet struct {
	Route   RouteType
	Payload PayloadType
	Version byte
	Path    []byte
	Data    []byte

	RSSI      int16
	SNR       int16
	ArrivalMS int64
}

// Header packs route, payload type, and version into a single byte.
func (p *Packet) Header() byte {
	return byte(p.Route)&routeMask | (byte(p.Payload)&payloadMask)<<payloadSh | (p.Version&versionMask)<<versionSh
}

// SetHeader unpacks a header byte into Route, Payload, and Version.
func (p *Packet) SetHeader(h byte) {
	p.Route = RouteType(h & routeMask)
	p.Payload = PayloadType((h >> payloadSh) & payloadMask)
	p.Version = (h >> versionSh) & versionMask
}

var bufPool = sync.Pool{
	New: func() any {
		buf := make([]byte, 0, MaxFrameLen)
		return &buf
	},
}

// Serialize writes the packet to its wire representation. The returned
// slice is owned by the caller.
func Serialize(p *Packet) []byte {
	pathLen := len(p.Path)
	if pathLen > MaxPathLen {
		pathLen = MaxPathLen
	}

	bufPtr, _ := bufPool.Get().(*[]byte)
	buf := (*bufPtr)[:0]
	defer func() {
		*bufPtr = buf
		bufPool.Put(bufPtr)
	}()

	buf = append(buf, p.Header(), byte(pathLen))
	buf = append(buf, p.Path[:pathLen]...)

	payload := p.Data
	if len(payload) > MaxPayloadLen {
		payload = payload[:MaxPayloadLen]
	}
	buf = append(buf, payload...)

	out := make([]byte, len(buf))
	copy(out, buf)
	return out
}

// Deserialize parses a wire frame into a Packet. Payload length is not on
// the wire; it is the trailing remainder after path. Declared payloads
// longer than MaxPayloadLen are silently clamped (a deliberate tolerance
// matching deployed peers), not rejected.
func Deserialize(raw []byte) (*Packet, error) {
	if len(raw) < 2 {
		return nil, ErrTooShort
	}

	pathLen := int(raw[1])
	if pathLen > MaxPathLen {
		return nil, ErrBadPath
	}
	if len(raw) < 2+pathLen {
		return nil, ErrBadLength
	}

	p := &Packet{}
	p.SetHeader(raw[0])

	p.Path = make([]byte, pathLen)
	copy(p.Path, raw[2:2+pathLen])

	payload := raw[2+pathLen:]
	if len(payload) > MaxPayloadLen {
		payload = payload[:MaxPayloadLen]
	}
	p.Data = make([]byte, len(payload))
	copy(p.Data, payload)

	return p, nil
}
