package gns

import (
	"encoding/binary"
	"unicode/utf8"

	"github.com/driftdb/driftdb/lib/ferr"
)

// EncodeDict serializes a Dict the same way cells and primary keys are
// encoded elsewhere in the engine: a length-prefixed sequence of
// (key, isDict flag, value) entries, recursing into nested dicts. Map
// iteration order is not preserved; Dict order is insignificant, so
// encode/decode round-trips compare equal as maps, not as bytes.
func EncodeDict(dst []byte, d Dict) []byte {
	dst = appendU64LE(dst, uint64(len(d)))
	for k, v := range d {
		dst = appendU64LE(dst, uint64(len(k)))
		dst = append(dst, k...)
		if v.IsDict() {
			dst = append(dst, 1)
			dst = EncodeDict(dst, v.Nested)
		} else {
			dst = append(dst, 0)
			dst = EncodeCell(dst, v.Cell)
		}
	}
	return dst
}

// DecodeDict parses one encoded Dict from the front of src, returning the
// dict and the number of bytes consumed. Decoded Null cells carry the
// placeholder scalar kind, as with DecodeCell.
func DecodeDict(src []byte) (Dict, int, error) {
	if len(src) < 8 {
		return nil, 0, ferr.New(ferr.InternalDecodeStructureCorrupted, "short dict: missing entry count")
	}
	n := binary.LittleEndian.Uint64(src[:8])
	off := 8
	d := make(Dict, n)
	for i := uint64(0); i < n; i++ {
		if len(src[off:]) < 8 {
			return nil, 0, ferr.New(ferr.InternalDecodeStructureCorrupted, "short dict: missing key length")
		}
		klen := binary.LittleEndian.Uint64(src[off : off+8])
		off += 8
		if uint64(len(src[off:])) < klen {
			return nil, 0, ferr.New(ferr.InternalDecodeStructureCorrupted, "truncated dict key")
		}
		key := make([]byte, klen)
		copy(key, src[off:off+int(klen)])
		off += int(klen)
		if !utf8.Valid(key) {
			return nil, 0, ferr.New(ferr.InternalDecodeStructureCorrupted, "dict key is not valid UTF-8")
		}
		if len(src[off:]) < 1 {
			return nil, 0, ferr.New(ferr.InternalDecodeStructureCorrupted, "short dict: missing value discriminant")
		}
		isDict := src[off] == 1
		off++
		if isDict {
			nested, used, err := DecodeDict(src[off:])
			if err != nil {
				return nil, 0, err
			}
			d[string(key)] = Branch(nested)
			off += used
		} else {
			cell, used, err := DecodeCell(src[off:], LayerKind(0))
			if err != nil {
				return nil, 0, err
			}
			d[string(key)] = Leaf(cell)
			off += used
		}
	}
	return d, off, nil
}
