package types

import (
	"fmt"
)

// StrategyKind selects how an enum's active variant is recovered from bytes.
type StrategyKind uint8

const (
	StrategyUnset StrategyKind = iota
	StrategyDirect
	StrategyNiche
	StrategySingle
	StrategyEmpty
)

func (k StrategyKind) String() string {
	switch k {
	case StrategyDirect:
		return "direct"
	case StrategyNiche:
		return "niche"
	case StrategySingle:
		return "single"
	case StrategyEmpty:
		return "empty"
	}
	return "unset"
}

// Niche maps one sentinel value of the niche field to a variant index.
type Niche struct {
	Value   uint64
	Variant int
}

// Strategy is the discriminant layout of an enum.
//
// For StrategyDirect, Offset and Size locate the tag and Signed controls its
// sign extension before it is matched against Variant.Discriminant.
//
// For StrategyNiche, Offset and Size locate the niche bytes inside the data
// variant's payload. A value equal to one of Niches selects that variant;
// any other value selects DataVariant.
type Strategy struct {
	Niches      []Niche
	Offset      uint64
	Size        uint64
	DataVariant int
	Kind        StrategyKind
	Signed      bool
}

// Direct returns a tag strategy.
func Direct(offset, size uint64, signed bool) Strategy {
	return Strategy{Kind: StrategyDirect, Offset: offset, Size: size, Signed: signed}
}

// NicheFill returns a niche strategy.
func NicheFill(offset, size uint64, dataVariant int, niches ...Niche) Strategy {
	return Strategy{
		Kind:        StrategyNiche,
		Offset:      offset,
		Size:        size,
		DataVariant: dataVariant,
		Niches:      niches,
	}
}

// Single returns the strategy of a one-variant enum.
func Single() Strategy {
	return Strategy{Kind: StrategySingle}
}

// Empty returns the strategy of an uninhabited enum.
func Empty() Strategy {
	return Strategy{Kind: StrategyEmpty}
}

// NicheRange builds the contiguous encoding the compiler emits: variants
// first..last are assigned start, start+1, and so on.
func NicheRange(start uint64, first, last int) []Niche {
	if last < first {
		return nil
	}
	out := make([]Niche, 0, last-first+1)
	for v := first; v <= last; v++ {
		out = append(out, Niche{Value: start + uint64(v-first), Variant: v})
	}
	return out
}

// Mask truncates v to the strategy's field width.
func (s *Strategy) Mask(v uint64) uint64 {
	if s.Size >= 8 {
		return v
	}
	return v & (uint64(1)<<(s.Size*8) - 1)
}

// NicheVariant returns the variant selected by a niche field value.
func (s *Strategy) NicheVariant(raw uint64) int {
	raw = s.Mask(raw)
	for _, n := range s.Niches {
		if s.Mask(n.Value) == raw {
			return n.Variant
		}
	}
	return s.DataVariant
}

// NicheValue returns the sentinel that encodes variant, if any.
func (s *Strategy) NicheValue(variant int) (uint64, bool) {
	for _, n := range s.Niches {
		if n.Variant == variant {
			return s.Mask(n.Value), true
		}
	}
	return 0, false
}

func validTagSize(n uint64) bool {
	switch n {
	case 1, 2, 4, 8:
		return true
	}
	return false
}

func (s *Strategy) validate(d *Descriptor) error {
	n := len(d.Variants)

	switch s.Kind {
	case StrategyUnset:
		return fmt.Errorf("enum has no discriminant strategy")

	case StrategyEmpty:
		if n != 0 {
			return fmt.Errorf("empty strategy with %d variants", n)
		}

	case StrategySingle:
		if n != 1 {
			return fmt.Errorf("single strategy with %d variants", n)
		}

	case StrategyDirect:
		if n == 0 {
			return fmt.Errorf("direct strategy without variants")
		}
		if !validTagSize(s.Size) {
			return fmt.Errorf("tag size %d", s.Size)
		}
		if s.Offset+s.Size > d.Size {
			return fmt.Errorf("tag [%d, %d) exceeds size %d", s.Offset, s.Offset+s.Size, d.Size)
		}
		seen := make(map[int64]string, n)
		for _, v := range d.Variants {
			if prev, dup := seen[v.Discriminant]; dup {
				return fmt.Errorf("variants %s and %s share discriminant %d", prev, v.Name, v.Discriminant)
			}
			seen[v.Discriminant] = v.Name
		}

	case StrategyNiche:
		if n < 2 {
			return fmt.Errorf("niche strategy with %d variants", n)
		}
		if s.DataVariant < 0 || s.DataVariant >= n {
			return fmt.Errorf("data variant %d out of range", s.DataVariant)
		}
		if s.Size == 0 || s.Size > 8 {
			return fmt.Errorf("niche size %d", s.Size)
		}
		if s.Offset+s.Size > d.Size {
			return fmt.Errorf("niche [%d, %d) exceeds size %d", s.Offset, s.Offset+s.Size, d.Size)
		}
		values := make(map[uint64]int, len(s.Niches))
		covered := make(map[int]bool, len(s.Niches))
		for _, nc := range s.Niches {
			if nc.Variant < 0 || nc.Variant >= n || nc.Variant == s.DataVariant {
				return fmt.Errorf("niche value 0x%x maps to invalid variant %d", nc.Value, nc.Variant)
			}
			v := s.Mask(nc.Value)
			if prev, dup := values[v]; dup {
				return fmt.Errorf("niche value 0x%x used by variants %d and %d", v, prev, nc.Variant)
			}
			if covered[nc.Variant] {
				return fmt.Errorf("variant %d has more than one niche value", nc.Variant)
			}
			values[v] = nc.Variant
			covered[nc.Variant] = true
			if d.Variants[nc.Variant].PayloadSize() != 0 {
				return fmt.Errorf("niche variant %s carries a payload", d.Variants[nc.Variant].Name)
			}
		}
		for i := range d.Variants {
			if i != s.DataVariant && !covered[i] {
				return fmt.Errorf("variant %s has no niche value", d.Variants[i].Name)
			}
		}

	default:
		return fmt.Errorf("unknown strategy %d", s.Kind)
	}
	return nil
}
