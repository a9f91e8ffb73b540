package gns

// Datacell is the sum-type value stored in a row's field map.
// Go has no native sum type, so Datacell is a tagged struct: exactly one of
// its payload fields is meaningful, selected by Tag.
type Datacell struct {
	Tag LayerKind
	// Null, when true, marks this cell as Null : NullKind, distinguishing
	// "null of a declared type" from an absent map entry.
	Null bool
	// NullKind is the declared scalar type of a Null cell. Ignored when
	// Null is false.
	NullKind LayerKind

	// bits holds Bool/UInt*/SInt*(bit-cast)/Float32/Float64 payloads.
	bits uint64
	// bytes holds Bin/Str payloads.
	bytes []byte
	// list holds List payloads; every element shares list[0]'s Tag.
	list []Datacell
}

// NewNull builds a Null cell declared at scalar kind kind.
func NewNull(kind LayerKind) Datacell {
	return Datacell{Tag: kind, Null: true, NullKind: kind}
}

// NewBool builds a Bool cell.
func NewBool(v bool) Datacell {
	var b uint64
	if v {
		b = 1
	}
	return Datacell{Tag: LayerBool, bits: b}
}

// NewUInt builds a UInt cell of the given width tag (LayerUInt8..64).
func NewUInt(width LayerKind, v uint64) Datacell {
	return Datacell{Tag: width, bits: v}
}

// NewSInt builds an SInt cell of the given width tag (LayerSInt8..64),
// bit-cast into the unsigned payload, matching the on-disk cell layout.
func NewSInt(width LayerKind, v int64) Datacell {
	return Datacell{Tag: width, bits: uint64(v)}
}

// NewFloat32 builds a Float32 cell.
func NewFloat32(v float32) Datacell {
	return Datacell{Tag: LayerFloat32, bits: uint64(float32bits(v))}
}

// NewFloat64 builds a Float64 cell.
func NewFloat64(v float64) Datacell {
	return Datacell{Tag: LayerFloat64, bits: float64bits(v)}
}

// NewBin builds a Bin cell.
func NewBin(v []byte) Datacell {
	return Datacell{Tag: LayerBin, bytes: v}
}

// NewStr builds a Str cell.
func NewStr(v []byte) Datacell {
	return Datacell{Tag: LayerStr, bytes: v}
}

// NewList builds a List cell. Every element must share the same Tag;
// NewList does not itself validate this, callers constructing cells from
// parsed literals are expected to.
func NewList(elems []Datacell) Datacell {
	return Datacell{Tag: LayerList, list: elems}
}

// Bool returns the cell's boolean payload.
func (d Datacell) Bool() bool { return d.bits != 0 }

// UInt returns the cell's unsigned payload.
func (d Datacell) UInt() uint64 { return d.bits }

// SInt returns the cell's signed payload (bit-cast back from storage).
func (d Datacell) SInt() int64 { return int64(d.bits) }

// Float32 returns the cell's float32 payload.
func (d Datacell) Float32() float32 { return float32frombits(uint32(d.bits)) }

// Float64 returns the cell's float64 payload.
func (d Datacell) Float64() float64 { return float64frombits(d.bits) }

// Bytes returns the cell's Bin/Str payload.
func (d Datacell) Bytes() []byte { return d.bytes }

// List returns the cell's List payload.
func (d Datacell) List() []Datacell { return d.list }

// Equal performs a structural, value-based equality check (used by
// Property 1's round-trip test).
func (d Datacell) Equal(o Datacell) bool {
	if d.Tag != o.Tag || d.Null != o.Null {
		return false
	}
	if d.Null {
		return d.NullKind == o.NullKind
	}
	switch d.Tag {
	case LayerBin, LayerStr:
		return bytesEqual(d.bytes, o.bytes)
	case LayerList:
		if len(d.list) != len(o.list) {
			return false
		}
		for i := range d.list {
			if !d.list[i].Equal(o.list[i]) {
				return false
			}
		}
		return true
	default:
		return d.bits == o.bits
	}
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
