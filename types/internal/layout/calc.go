package layout

import "math"

// Info is the computed size, alignment and member offsets of a shape.
type Info struct {
	Offsets []uint64
	Size    uint64
	Align   uint64
}

// Member is the size and alignment of one member.
type Member struct {
	Size  uint64
	Align uint64
}

// AlignTo rounds offset up to a multiple of align. Align must be 0 or a power of two.
func AlignTo(offset, align uint64) uint64 {
	if align == 0 {
		return offset
	}
	return (offset + align - 1) &^ (align - 1)
}

// SafeMul multiplies a and b, reporting overflow.
func SafeMul(a, b uint64) (uint64, bool) {
	if b != 0 && a > math.MaxUint64/b {
		return 0, false
	}
	return a * b, true
}

// Record lays members out sequentially.
func Record(members []Member) Info {
	if len(members) == 0 {
		return Info{Size: 0, Align: 1}
	}

	offsets := make([]uint64, len(members))
	maxAlign := uint64(1)
	offset := uint64(0)

	for i, m := range members {
		align := max(m.Align, 1)
		offset = AlignTo(offset, align)
		offsets[i] = offset

		if align > maxAlign {
			maxAlign = align
		}

		offset += m.Size
	}

	return Info{
		Size:    AlignTo(offset, maxAlign),
		Align:   maxAlign,
		Offsets: offsets,
	}
}

// Union overlays members at offset 0.
func Union(members []Member) Info {
	maxAlign := uint64(1)
	maxSize := uint64(0)
	offsets := make([]uint64, len(members))

	for _, m := range members {
		if m.Align > maxAlign {
			maxAlign = m.Align
		}
		if m.Size > maxSize {
			maxSize = m.Size
		}
	}

	return Info{
		Size:    AlignTo(maxSize, maxAlign),
		Align:   maxAlign,
		Offsets: offsets,
	}
}

// Array returns the layout of n consecutive elements. ok is false on overflow.
func Array(elem Member, n uint64) (Info, bool) {
	size, ok := SafeMul(AlignTo(elem.Size, max(elem.Align, 1)), n)
	if !ok {
		return Info{}, false
	}
	return Info{Size: size, Align: max(elem.Align, 1)}, true
}
