package abi

import (
	"encoding/binary"
	"math"
)

// MaxElements caps element counts taken from target memory.
const MaxElements = 1 << 27

func SafeMul(a, b uint64) (uint64, bool) {
	if b != 0 && a > math.MaxUint64/b {
		return 0, false
	}
	return a * b, true
}

func SafeAdd(a, b uint64) (uint64, bool) {
	if a > math.MaxUint64-b {
		return 0, false
	}
	return a + b, true
}

// Window returns data[off:off+n] or false if it is out of bounds.
func Window(data []byte, off, n uint64) ([]byte, bool) {
	end, ok := SafeAdd(off, n)
	if !ok || end > uint64(len(data)) {
		return nil, false
	}
	return data[off:end], true
}

// ReadUint reads a little-endian unsigned integer of 1 to 8 bytes.
func ReadUint(data []byte, off, size uint64) (uint64, bool) {
	if size == 0 || size > 8 {
		return 0, false
	}
	w, ok := Window(data, off, size)
	if !ok {
		return 0, false
	}
	var buf [8]byte
	copy(buf[:], w)
	return binary.LittleEndian.Uint64(buf[:]), true
}

// SignExtend interprets the low size bytes of v as a two's complement integer.
func SignExtend(v, size uint64) int64 {
	if size == 0 || size >= 8 {
		return int64(v)
	}
	shift := 64 - size*8
	return int64(v<<shift) >> shift
}

// ValidateChar rejects surrogates (0xD800-0xDFFF) and values >= 0x110000.
func ValidateChar(r uint32) bool {
	if r >= 0xD800 && r <= 0xDFFF {
		return false
	}
	return r < 0x110000
}
