package gns

// PrimaryIndexKeyTag selects which of the four representations a
// PrimaryIndexKey holds.
type PrimaryIndexKeyTag uint8

const (
	PKUInt PrimaryIndexKeyTag = iota
	PKSInt
	PKBin
	PKStr
)

// PrimaryIndexKey is the compact, comparable representation of a row's
// primary key: scalar (UInt/SInt) keys are stored inline, Bin/Str keys are
// stored out-of-line as a string so the struct itself remains a valid Go
// map key.
type PrimaryIndexKey struct {
	Tag PrimaryIndexKeyTag
	u64 uint64
	str string
}

// PKFromUInt builds a UInt primary key.
func PKFromUInt(v uint64) PrimaryIndexKey { return PrimaryIndexKey{Tag: PKUInt, u64: v} }

// PKFromSInt builds an SInt primary key.
func PKFromSInt(v int64) PrimaryIndexKey { return PrimaryIndexKey{Tag: PKSInt, u64: uint64(v)} }

// PKFromBin builds a Bin primary key.
func PKFromBin(v []byte) PrimaryIndexKey { return PrimaryIndexKey{Tag: PKBin, str: string(v)} }

// PKFromStr builds a Str primary key. str must already be validated UTF-8.
func PKFromStr(v string) PrimaryIndexKey { return PrimaryIndexKey{Tag: PKStr, str: v} }

// UInt returns the inline unsigned value.
func (k PrimaryIndexKey) UInt() uint64 { return k.u64 }

// SInt returns the inline signed value.
func (k PrimaryIndexKey) SInt() int64 { return int64(k.u64) }

// Bytes returns the out-of-line Bin/Str payload.
func (k PrimaryIndexKey) Bytes() []byte { return []byte(k.str) }

// Str returns the out-of-line Str payload as a string.
func (k PrimaryIndexKey) Str() string { return k.str }

// FromDatacell derives a PrimaryIndexKey from a scalar cell matching one of
// the four supported primary-key classes.
func FromDatacell(d Datacell) (PrimaryIndexKey, bool) {
	switch d.Tag {
	case LayerUInt8, LayerUInt16, LayerUInt32, LayerUInt64:
		return PKFromUInt(d.UInt()), true
	case LayerSInt8, LayerSInt16, LayerSInt32, LayerSInt64:
		return PKFromSInt(d.SInt()), true
	case LayerBin:
		return PKFromBin(d.Bytes()), true
	case LayerStr:
		return PKFromStr(string(d.Bytes())), true
	default:
		return PrimaryIndexKey{}, false
	}
}
