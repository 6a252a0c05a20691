// Package util holds byte-order helpers shared by the config space
// transports.
package util

import "encoding/binary"

// U32ToLEBytes encodes v as 4 little-endian bytes, the wire order of
// every multi-byte config space register.
func U32ToLEBytes(v uint32) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, v)
	return b
}

// LEBytesToU32 decodes 4 little-endian bytes. Short slices decode to 0.
func LEBytesToU32(b []byte) uint32 {
	if len(b) < 4 {
		return 0
	}
	return binary.LittleEndian.Uint32(b)
}

// LEBytesToU16 decodes 2 little-endian bytes. Short slices decode to 0.
func LEBytesToU16(b []byte) uint16 {
	if len(b) < 2 {
		return 0
	}
	return binary.LittleEndian.Uint16(b)
}
