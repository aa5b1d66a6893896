package codec

import "crypto/sha256"

// FingerprintSize is the length of a packet fingerprint.
const FingerprintSize = sha256.Size

// Fingerprint computes the deduplication key for p: a hash of the header
// byte, the first 8 path bytes, and the first 16 payload bytes. Shorter
// path/payload are used in full; no padding is applied, since the
// distinguishing entropy lives in whatever bytes are actually present.
func Fingerprint(p *Packet) [FingerprintSize]byte {
	h := sha256.New()
	h.Write([]byte{p.Header()})

	pathN := len(p.Path)
	if pathN > 8 {
		pathN = 8
	}
	h.Write(p.Path[:pathN])

	dataN := len(p.Data)
	if dataN > 16 {
		dataN = 16
	}
	h.Write(p.Data[:dataN])

	var out [FingerprintSize]byte
	copy(out[:], h.Sum(nil))
	return out
}
