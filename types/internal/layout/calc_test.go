package layout

import (
	"math"
	"testing"
)

func TestAlignTo(t *testing.T) {
	tests := []struct {
		offset, align, want uint64
	}{
		{0, 1, 0},
		{1, 1, 1},
		{1, 4, 4},
		{4, 4, 4},
		{5, 8, 8},
		{9, 0, 9},
	}
	for _, tt := range tests {
		if got := AlignTo(tt.offset, tt.align); got != tt.want {
			t.Errorf("AlignTo(%d, %d) = %d, want %d", tt.offset, tt.align, got, tt.want)
		}
	}
}

func TestRecord(t *testing.T) {
	tests := []struct {
		name    string
		members []Member
		size    uint64
		align   uint64
		offsets []uint64
	}{
		{"empty", nil, 0, 1, nil},
		{"u8 u32", []Member{{1, 1}, {4, 4}}, 8, 4, []uint64{0, 4}},
		{"u32 u8", []Member{{4, 4}, {1, 1}}, 8, 4, []uint64{0, 4}},
		{"u8 u8", []Member{{1, 1}, {1, 1}}, 2, 1, []uint64{0, 1}},
		{"zero sized middle", []Member{{1, 1}, {0, 1}, {2, 2}}, 4, 2, []uint64{0, 1, 2}},
		{"u64 u16", []Member{{8, 8}, {2, 2}}, 16, 8, []uint64{0, 8}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info := Record(tt.members)
			if info.Size != tt.size || info.Align != tt.align {
				t.Errorf("Record = size %d align %d, want size %d align %d", info.Size, info.Align, tt.size, tt.align)
			}
			for i, off := range tt.offsets {
				if info.Offsets[i] != off {
					t.Errorf("offset[%d] = %d, want %d", i, info.Offsets[i], off)
				}
			}
		})
	}
}

func TestUnion(t *testing.T) {
	info := Union([]Member{{1, 1}, {4, 4}, {2, 2}})
	if info.Size != 4 || info.Align != 4 {
		t.Errorf("Union = size %d align %d, want 4/4", info.Size, info.Align)
	}
	for i, off := range info.Offsets {
		if off != 0 {
			t.Errorf("offset[%d] = %d, want 0", i, off)
		}
	}
}

func TestArray(t *testing.T) {
	info, ok := Array(Member{Size: 4, Align: 4}, 3)
	if !ok || info.Size != 12 || info.Align != 4 {
		t.Errorf("Array = %+v ok=%v", info, ok)
	}

	info, ok = Array(Member{Size: 4, Align: 4}, 0)
	if !ok || info.Size != 0 {
		t.Errorf("empty Array = %+v ok=%v", info, ok)
	}

	if _, ok := Array(Member{Size: 8, Align: 8}, math.MaxUint64/2); ok {
		t.Error("expected overflow")
	}
}
