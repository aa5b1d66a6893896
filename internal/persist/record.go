package persist

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/atomozero/meshcore-go/internal/identity"
)

// ErrCRCMismatch indicates a record failed its trailing CRC-16 check,
// most often because storage was never written (first boot) or was torn
// by a power loss mid-write.
var ErrCRCMismatch = errors.New("persist: CRC-16 mismatch")

const maxNameLen = identity.MaxNameLen + 1 // length-prefixed, padded

// IdentityRecord is the fixed-layout on-disk form of an identity.Identity.
type IdentityRecord struct {
	PubKey   identity.PublicKey
	Priv     identity.PrivateKey
	Name     string
	Type     identity.NodeType
	HasLoc   bool
	LatMicro int32
	LonMicro int32
}

// IdentityRecordSize is the encoded length of an IdentityRecord, CRC
// included.
const IdentityRecordSize = 32 + 64 + maxNameLen + 1 + 1 + 4 + 4 + 2

// EncodeIdentity serializes id into IdentityRecordSize bytes.
func EncodeIdentity(id *identity.Identity) ([]byte, error) {
	if len(id.Name) > identity.MaxNameLen {
		return nil, identity.ErrNameTooLong
	}

	buf := new(bytes.Buffer)
	buf.Write(id.Public[:])
	buf.Write(id.Private[:])

	var nameField [maxNameLen]byte
	nameField[0] = byte(len(id.Name))
	copy(nameField[1:], id.Name)
	buf.Write(nameField[:])

	buf.WriteByte(byte(id.Type))
	if id.HasLoc {
		buf.WriteByte(1)
	} else {
		buf.WriteByte(0)
	}
	binary.Write(buf, binary.LittleEndian, id.LatMicro)
	binary.Write(buf, binary.LittleEndian, id.LonMicro)

	payload := buf.Bytes()
	crc := crc16(payload)
	binary.Write(buf, binary.LittleEndian, crc)

	return buf.Bytes(), nil
}

// DecodeIdentity parses and CRC-checks an IdentityRecord produced by
// EncodeIdentity.
func DecodeIdentity(data []byte) (*identity.Identity, error) {
	if len(data) != IdentityRecordSize {
		return nil, fmt.Errorf("persist: identity record length %d, want %d", len(data), IdentityRecordSize)
	}

	payload, wantCRC := data[:len(data)-2], data[len(data)-2:]
	if crc16(payload) != binary.LittleEndian.Uint16(wantCRC) {
		return nil, ErrCRCMismatch
	}

	r := bytes.NewReader(payload)
	id := &identity.Identity{}
	io_readFull(r, id.Public[:])
	io_readFull(r, id.Private[:])

	var nameField [maxNameLen]byte
	io_readFull(r, nameField[:])
	n := int(nameField[0])
	if n > identity.MaxNameLen {
		n = identity.MaxNameLen
	}
	id.Name = string(nameField[1 : 1+n])

	var typ, hasLoc byte
	binary.Read(r, binary.LittleEndian, &typ)
	binary.Read(r, binary.LittleEndian, &hasLoc)
	id.Type = identity.NodeType(typ)
	id.HasLoc = hasLoc != 0
	binary.Read(r, binary.LittleEndian, &id.LatMicro)
	binary.Read(r, binary.LittleEndian, &id.LonMicro)

	return id, nil
}

// io_readFull reads exactly len(dst) bytes from r, panicking only if the
// caller passed a slice longer than the already length-checked buffer
// backing r (a programming error, not a runtime condition).
func io_readFull(r *bytes.Reader, dst []byte) {
	if _, err := r.Read(dst); err != nil {
		panic(fmt.Sprintf("persist: short read decoding fixed record: %v", err))
	}
}

// NodeConfigRecord is the fixed-layout on-disk form of the node's runtime
// configuration: ACL passwords, advert interval, power/radio toggles, and
// the alert destination.
type NodeConfigRecord struct {
	AdminPassword     string
	GuestPassword     string
	AdvertIntervalSec uint32
	SleepEnabled      bool
	RxBoost           bool
	Mode              byte
	AlertEnabled      bool
	HasAlertDest      bool
	AlertDest         identity.PublicKey
	FirstBootUnix     uint32
}

const passwordFieldLen = 16 // 1-byte length prefix + 15 bytes of content

// NodeConfigRecordSize is the encoded length of a NodeConfigRecord, CRC
// included.
const NodeConfigRecordSize = passwordFieldLen*2 + 4 + 1 + 1 + 1 + 1 + 1 + 32 + 4 + 2

// EncodeNodeConfig serializes cfg into NodeConfigRecordSize bytes.
func EncodeNodeConfig(cfg NodeConfigRecord) []byte {
	buf := new(bytes.Buffer)
	writePasswordField(buf, cfg.AdminPassword)
	writePasswordField(buf, cfg.GuestPassword)
	binary.Write(buf, binary.LittleEndian, cfg.AdvertIntervalSec)
	buf.WriteByte(boolByte(cfg.SleepEnabled))
	buf.WriteByte(boolByte(cfg.RxBoost))
	buf.WriteByte(cfg.Mode)
	buf.WriteByte(boolByte(cfg.AlertEnabled))
	buf.WriteByte(boolByte(cfg.HasAlertDest))
	buf.Write(cfg.AlertDest[:])
	binary.Write(buf, binary.LittleEndian, cfg.FirstBootUnix)

	payload := buf.Bytes()
	crc := crc16(payload)
	binary.Write(buf, binary.LittleEndian, crc)
	return buf.Bytes()
}

// DecodeNodeConfig parses and CRC-checks a NodeConfigRecord produced by
// EncodeNodeConfig.
func DecodeNodeConfig(data []byte) (NodeConfigRecord, error) {
	if len(data) != NodeConfigRecordSize {
		return NodeConfigRecord{}, fmt.Errorf("persist: node config record length %d, want %d", len(data), NodeConfigRecordSize)
	}

	payload, wantCRC := data[:len(data)-2], data[len(data)-2:]
	if crc16(payload) != binary.LittleEndian.Uint16(wantCRC) {
		return NodeConfigRecord{}, ErrCRCMismatch
	}

	r := bytes.NewReader(payload)
	cfg := NodeConfigRecord{}
	cfg.AdminPassword = readPasswordField(r)
	cfg.GuestPassword = readPasswordField(r)
	binary.Read(r, binary.LittleEndian, &cfg.AdvertIntervalSec)

	var sleep, rxboost, alertEnabled, hasDest byte
	binary.Read(r, binary.LittleEndian, &sleep)
	binary.Read(r, binary.LittleEndian, &rxboost)
	binary.Read(r, binary.LittleEndian, &cfg.Mode)
	binary.Read(r, binary.LittleEndian, &alertEnabled)
	binary.Read(r, binary.LittleEndian, &hasDest)
	io_readFull(r, cfg.AlertDest[:])
	binary.Read(r, binary.LittleEndian, &cfg.FirstBootUnix)

	cfg.SleepEnabled = sleep != 0
	cfg.RxBoost = rxboost != 0
	cfg.AlertEnabled = alertEnabled != 0
	cfg.HasAlertDest = hasDest != 0

	return cfg, nil
}

func writePasswordField(buf *bytes.Buffer, p string) {
	var field [passwordFieldLen]byte
	if len(p) > passwordFieldLen-1 {
		p = p[:passwordFieldLen-1]
	}
	field[0] = byte(len(p))
	copy(field[1:], p)
	buf.Write(field[:])
}

func readPasswordField(r *bytes.Reader) string {
	var field [passwordFieldLen]byte
	io_readFull(r, field[:])
	n := int(field[0])
	if n > passwordFieldLen-1 {
		n = passwordFieldLen - 1
	}
	return string(field[1 : 1+n])
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}

// StatsRecord is the fixed-layout on-disk form of the lifetime counters
// GET_STATUS and "lifetime" report.
type StatsRecord struct {
	PacketsRX     uint32
	PacketsTX     uint32
	PacketsFwd    uint32
	Logins        uint32
	LoginFailures uint32
	RateLimited   uint32
	AirtimeSecs   uint32
	BootCount     uint32
}

// StatsRecordSize is the encoded length of a StatsRecord, CRC included.
const StatsRecordSize = 4*8 + 2

// EncodeStats serializes s into StatsRecordSize bytes.
func EncodeStats(s StatsRecord) []byte {
	buf := new(bytes.Buffer)
	for _, v := range []uint32{
		s.PacketsRX, s.PacketsTX, s.PacketsFwd,
		s.Logins, s.LoginFailures, s.RateLimited,
		s.AirtimeSecs, s.BootCount,
	} {
		binary.Write(buf, binary.LittleEndian, v)
	}
	payload := buf.Bytes()
	crc := crc16(payload)
	binary.Write(buf, binary.LittleEndian, crc)
	return buf.Bytes()
}

// DecodeStats parses and CRC-checks a StatsRecord produced by EncodeStats.
func DecodeStats(data []byte) (StatsRecord, error) {
	if len(data) != StatsRecordSize {
		return StatsRecord{}, fmt.Errorf("persist: stats record length %d, want %d", len(data), StatsRecordSize)
	}
	payload, wantCRC := data[:len(data)-2], data[len(data)-2:]
	if crc16(payload) != binary.LittleEndian.Uint16(wantCRC) {
		return StatsRecord{}, ErrCRCMismatch
	}

	r := bytes.NewReader(payload)
	var s StatsRecord
	fields := []*uint32{
		&s.PacketsRX, &s.PacketsTX, &s.PacketsFwd,
		&s.Logins, &s.LoginFailures, &s.RateLimited,
		&s.AirtimeSecs, &s.BootCount,
	}
	for _, f := range fields {
		binary.Read(r, binary.LittleEndian, f)
	}
	return s, nil
}
