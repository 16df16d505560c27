package abi

import (
	"math"
	"testing"
)

func TestSafeMul(t *testing.T) {
	tests := []struct {
		name   string
		a, b   uint64
		want   uint64
		wantOK bool
	}{
		{"zero * zero", 0, 0, 0, true},
		{"zero * max", 0, math.MaxUint64, 0, true},
		{"small", 100, 200, 20000, true},
		{"max * one", math.MaxUint64, 1, math.MaxUint64, true},
		{"overflow", math.MaxUint64, 2, 0, false},
		{"overflow symmetric", 2, math.MaxUint64, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := SafeMul(tt.a, tt.b)
			if ok != tt.wantOK {
				t.Errorf("SafeMul(%d, %d) ok = %v, want %v", tt.a, tt.b, ok, tt.wantOK)
			}
			if ok && got != tt.want {
				t.Errorf("SafeMul(%d, %d) = %d, want %d", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestWindow(t *testing.T) {
	data := []byte{1, 2, 3, 4}
	tests := []struct {
		name   string
		off, n uint64
		wantOK bool
	}{
		{"full", 0, 4, true},
		{"empty at end", 4, 0, true},
		{"past end", 3, 2, false},
		{"offset past end", 5, 0, false},
		{"wraps", math.MaxUint64, 2, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := Window(data, tt.off, tt.n)
			if ok != tt.wantOK {
				t.Errorf("Window(%d, %d) ok = %v", tt.off, tt.n, ok)
			}
		})
	}
}

func TestReadUint(t *testing.T) {
	data := []byte{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08, 0xFF}
	tests := []struct {
		off, size uint64
		want      uint64
		wantOK    bool
	}{
		{0, 1, 0x01, true},
		{0, 2, 0x0201, true},
		{0, 4, 0x04030201, true},
		{0, 8, 0x0807060504030201, true},
		{8, 1, 0xFF, true},
		{8, 2, 0, false},
		{0, 0, 0, false},
		{0, 9, 0, false},
	}
	for _, tt := range tests {
		got, ok := ReadUint(data, tt.off, tt.size)
		if ok != tt.wantOK || got != tt.want {
			t.Errorf("ReadUint(%d, %d) = %x, %v; want %x, %v", tt.off, tt.size, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestSignExtend(t *testing.T) {
	tests := []struct {
		v, size uint64
		want    int64
	}{
		{0xFF, 1, -1},
		{0x7F, 1, 127},
		{0xFFFE, 2, -2},
		{0x80000000, 4, math.MinInt32},
		{math.MaxUint64, 8, -1},
	}
	for _, tt := range tests {
		if got := SignExtend(tt.v, tt.size); got != tt.want {
			t.Errorf("SignExtend(%x, %d) = %d, want %d", tt.v, tt.size, got, tt.want)
		}
	}
}

func TestValidateChar(t *testing.T) {
	tests := []struct {
		r    uint32
		want bool
	}{
		{'a', true},
		{0x10FFFF, true},
		{0xD800, false},
		{0xDFFF, false},
		{0x110000, false},
	}
	for _, tt := range tests {
		if got := ValidateChar(tt.r); got != tt.want {
			t.Errorf("ValidateChar(%x) = %v, want %v", tt.r, got, tt.want)
		}
	}
}
