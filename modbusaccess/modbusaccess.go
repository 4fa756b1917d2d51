package modbusaccess

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
)

// DataKind identifies how a register value is encoded on the wire.
type DataKind string

const (
	U32 DataKind = "U32" // 32 bit unsigned integer, two registers
	U64 DataKind = "U64" // 64 bit unsigned integer, four registers
	F32 DataKind = "F32" // IEEE 754 single precision float, two registers
)

// Words returns how many 16 bit registers the kind occupies, or 0 for an
// unknown kind.
func (k DataKind) Words() uint16 {
	switch k {
	case U32, F32:
		return 2
	case U64:
		return 4
	default:
		return 0
	}
}

// ByteOrder identifies how the bytes of a multi-register value must be
// reassembled. The tags name the byte sequence of a 32 bit value whose
// big-endian layout would be ABCD; the same word/byte swaps extend to 64 bit
// values.
type ByteOrder string

const (
	ABCD ByteOrder = "ABCD" // big-endian words, big-endian bytes
	DCBA ByteOrder = "DCBA" // little-endian words, little-endian bytes
	CDAB ByteOrder = "CDAB" // little-endian words, big-endian bytes
	BADC ByteOrder = "BADC" // big-endian words, little-endian bytes
)

// KnownOrder reports whether o is one of the supported layouts.
func KnownOrder(o ByteOrder) bool {
	switch o {
	case ABCD, DCBA, CDAB, BADC:
		return true
	}
	return false
}

// arrange rewrites b into plain big-endian (ABCD) order. b is treated as a
// sequence of two-byte words.
func arrange(order ByteOrder, b []byte) ([]byte, error) {
	if len(b)%2 != 0 {
		return nil, fmt.Errorf("odd byte count %d", len(b))
	}
	out := make([]byte, len(b))
	words := len(b) / 2
	for w := 0; w < words; w++ {
		src := w
		if order == CDAB || order == DCBA {
			src = words - 1 - w // reverse word order
		}
		hi, lo := b[src*2], b[src*2+1]
		if order == BADC || order == DCBA {
			hi, lo = lo, hi // swap bytes within the word
		}
		out[w*2], out[w*2+1] = hi, lo
	}
	return out, nil
}

// Decode converts the raw register bytes of one value into a float64
// according to its declared kind and byte order.
func Decode(kind DataKind, order ByteOrder, b []byte) (float64, error) {
	want := int(kind.Words()) * 2
	if want == 0 {
		return 0, fmt.Errorf("unknown data kind %q", kind)
	}
	if len(b) < want {
		return 0, fmt.Errorf("%s needs %d bytes, got %d", kind, want, len(b))
	}
	if !KnownOrder(order) {
		return 0, fmt.Errorf("unknown byte order %q", order)
	}

	be, err := arrange(order, b[:want])
	if err != nil {
		return 0, err
	}

	switch kind {
	case F32:
		return float64(math.Float32frombits(binary.BigEndian.Uint32(be))), nil
	case U32:
		return float64(binary.BigEndian.Uint32(be)), nil
	case U64:
		return float64(binary.BigEndian.Uint64(be)), nil
	}
	return 0, fmt.Errorf("unknown data kind %q", kind)
}

// DecodeString interprets register bytes as a null-padded ASCII identifier.
// Used by the device probe to read the model string.
func DecodeString(b []byte) string {
	return string(bytes.Trim(b, "\x00 "))
}
