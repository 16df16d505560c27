package debugeval

import (
	"fmt"
	"sort"
)

// Memory is the read side of the target process.
// Implementations must return exactly length bytes or an error.
type Memory interface {
	ReadMemory(addr uint64, length uint64) ([]byte, error)
}

// MemoryFunc adapts a function to Memory.
type MemoryFunc func(addr uint64, length uint64) ([]byte, error)

// ReadMemory calls f.
func (f MemoryFunc) ReadMemory(addr uint64, length uint64) ([]byte, error) {
	return f(addr, length)
}

// Region is a contiguous block of target memory.
type Region struct {
	Data []byte
	Addr uint64
}

// End returns the first address past the region.
func (r Region) End() uint64 {
	return r.Addr + uint64(len(r.Data))
}

// Snapshot is an in-process Memory over a set of non-overlapping regions.
// Reads that straddle two adjacent regions are served from both.
type Snapshot struct {
	regions []Region
}

// NewSnapshot creates a snapshot from regions. Overlapping regions are rejected.
func NewSnapshot(regions ...Region) (*Snapshot, error) {
	s := &Snapshot{}
	for _, r := range regions {
		if err := s.Map(r.Addr, r.Data); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Map adds a region at addr. The data is copied.
func (s *Snapshot) Map(addr uint64, data []byte) error {
	if addr+uint64(len(data)) < addr {
		return fmt.Errorf("region at 0x%x overflows address space", addr)
	}
	nr := Region{Addr: addr, Data: append([]byte(nil), data...)}
	for _, r := range s.regions {
		if nr.Addr < r.End() && r.Addr < nr.End() {
			return fmt.Errorf("region [0x%x, 0x%x) overlaps [0x%x, 0x%x)", nr.Addr, nr.End(), r.Addr, r.End())
		}
	}
	s.regions = append(s.regions, nr)
	sort.Slice(s.regions, func(i, j int) bool { return s.regions[i].Addr < s.regions[j].Addr })
	return nil
}

// Regions returns the mapped regions in address order.
func (s *Snapshot) Regions() []Region {
	return append([]Region(nil), s.regions...)
}

// ReadMemory implements Memory.
func (s *Snapshot) ReadMemory(addr uint64, length uint64) ([]byte, error) {
	if length == 0 {
		return []byte{}, nil
	}
	if addr+length < addr {
		return nil, fmt.Errorf("memory read out of bounds: addr=0x%x, length=%d", addr, length)
	}
	out := make([]byte, 0, length)
	cur := addr
	end := addr + length
	for _, r := range s.regions {
		if cur >= end {
			break
		}
		if r.End() <= cur {
			continue
		}
		if r.Addr > cur {
			break
		}
		stop := min(end, r.End())
		out = append(out, r.Data[cur-r.Addr:stop-r.Addr]...)
		cur = stop
	}
	if cur != end {
		return nil, fmt.Errorf("memory read out of bounds: addr=0x%x, length=%d", addr, length)
	}
	return out, nil
}
