package ast

import "github.com/driftdb/driftdb/gns"

// ToTypeExpr flattens the parsed tree into the outermost-first layer list
// gns.Field expects.
func (t TypeExprNode) ToTypeExpr() gns.TypeExpr {
	if t.IsList {
		return append(gns.TypeExpr{{Kind: gns.LayerList}}, t.Inner.ToTypeExpr()...)
	}
	return gns.TypeExpr{{Kind: scalarLayerKind(t.Scalar)}}
}

func scalarLayerKind(sc scalarTypeTok) gns.LayerKind {
	switch sc.kind {
	case scBool:
		return gns.LayerBool
	case scUInt:
		switch sc.width {
		case 8:
			return gns.LayerUInt8
		case 16:
			return gns.LayerUInt16
		case 32:
			return gns.LayerUInt32
		default:
			return gns.LayerUInt64
		}
	case scSInt:
		switch sc.width {
		case 8:
			return gns.LayerSInt8
		case 16:
			return gns.LayerSInt16
		case 32:
			return gns.LayerSInt32
		default:
			return gns.LayerSInt64
		}
	case scFloat:
		if sc.width == 32 {
			return gns.LayerFloat32
		}
		return gns.LayerFloat64
	case scBin:
		return gns.LayerBin
	default:
		return gns.LayerStr
	}
}
