package session

import (
	"encoding/binary"
	"io"
)

// LoginOKSize is the fixed size of a LOGIN_OK response payload.
const LoginOKSize = 13

// KeepAliveUnit is the granularity the keep_alive field is expressed in;
// the wire byte is keepAliveSeconds/KeepAliveUnit.
const KeepAliveUnit = 4

// BuildLoginOK encodes the LOGIN_OK response for a freshly authenticated
// session: ts | code=0 | keep_alive/4 | is_admin | permissions | random(4) |
// firmware_byte.
func BuildLoginOK(rand io.Reader, ts uint32, keepAliveSeconds uint32, perm Permission, firmwareByte byte) ([]byte, error) {
	out := make([]byte, 0, LoginOKSize)

	var tsBuf [4]byte
	binary.LittleEndian.PutUint32(tsBuf[:], ts)
	out = append(out, tsBuf[:]...)

	out = append(out, 0) // code: success

	out = append(out, byte(keepAliveSeconds/KeepAliveUnit))

	isAdmin := byte(0)
	if perm == PermAdmin {
		isAdmin = 1
	}
	out = append(out, isAdmin)
	out = append(out, byte(perm))

	var randBuf [4]byte
	if _, err := io.ReadFull(rand, randBuf[:]); err != nil {
		return nil, err
	}
	out = append(out, randBuf[:]...)

	out = append(out, firmwareByte)

	return out, nil
}
