package decoder

import (
	"github.com/wippyai/debug-eval/decoder/internal/abi"
	"github.com/wippyai/debug-eval/errors"
	"github.com/wippyai/debug-eval/types"
	"github.com/wippyai/debug-eval/value"
	"go.uber.org/zap"
)

func (d *Decoder) decodeEnum(typ *types.Descriptor, data []byte, addr uint64, st *state, path []string) (*value.Value, error) {
	if uint64(len(data)) < typ.Size {
		return nil, errors.ShortBuffer(path, typ.Identity(), uint64(len(data)), typ.Size)
	}

	idx, err := d.selectVariant(typ, data, path)
	if err != nil {
		return nil, err
	}

	variant := &typ.Variants[idx]
	Logger().Debug("enum variant selected",
		zap.String("type", typ.Identity()),
		zap.String("strategy", typ.Strategy.Kind.String()),
		zap.String("variant", variant.Name),
		zap.Uint64("addr", addr))

	fields, err := d.decodeFields(typ, variant.Fields, data, addr, st, appendPath(path, variant.Name))
	if err != nil {
		return nil, err
	}
	return value.Enum(typ, idx, fields, st.origin(addr)), nil
}

// selectVariant recovers the active variant index from the enum's bytes.
func (d *Decoder) selectVariant(typ *types.Descriptor, data []byte, path []string) (int, error) {
	s := &typ.Strategy

	switch s.Kind {
	case types.StrategySingle:
		return 0, nil

	case types.StrategyEmpty:
		return 0, errors.MalformedLayout(path, typ.Identity(), "enum has no variants")

	case types.StrategyDirect:
		raw, ok := abi.ReadUint(data, s.Offset, s.Size)
		if !ok {
			return 0, errors.ShortBuffer(path, typ.Identity(), uint64(len(data)), s.Offset+s.Size)
		}
		tag := int64(raw)
		if s.Signed {
			tag = abi.SignExtend(raw, s.Size)
		}
		for i := range typ.Variants {
			if typ.Variants[i].Discriminant == tag {
				return i, nil
			}
		}
		return 0, errors.InvalidDiscriminant(path, typ.Identity(), raw)

	case types.StrategyNiche:
		raw, ok := abi.ReadUint(data, s.Offset, s.Size)
		if !ok {
			return 0, errors.ShortBuffer(path, typ.Identity(), uint64(len(data)), s.Offset+s.Size)
		}
		idx := s.NicheVariant(raw)
		if idx < 0 || idx >= len(typ.Variants) {
			return 0, errors.InvalidDiscriminant(path, typ.Identity(), raw)
		}
		return idx, nil
	}

	return 0, errors.MalformedLayout(path, typ.Identity(), "enum has no discriminant strategy")
}
