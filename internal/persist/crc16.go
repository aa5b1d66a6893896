// Package persist implements the fixed-layout, CRC-16-protected record
// format the node's identity, configuration, and lifetime counters are
// saved to. The underlying storage medium (flash, a plain file, whatever
// the host provides) is an external collaborator; this package only
// defines and checks the on-disk record shape.
package persist

// crc16 computes CRC-16/CCITT-FALSE (poly 0x1021, init 0xFFFF, no
// reflection), the variant most embedded persistence formats use for a
// single-block sanity check.
func crc16(data []byte) uint16 {
	var crc uint16 = 0xFFFF
	for _, b := range data {
		crc ^= uint16(b) << 8
		for i := 0; i < 8; i++ {
			if crc&0x8000 != 0 {
				crc = crc<<1 ^ 0x1021
			} else {
				crc <<= 1
			}
		}
	}
	return crc
}
