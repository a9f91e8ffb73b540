package gns

import (
	"encoding/binary"
	"math"
	"unicode/utf8"

	"github.com/driftdb/driftdb/lib/ferr"
)

// cellTagNull is the wire discriminant for a Null cell.
// It is distinct from every LayerKind constant.
const cellTagNull = 0x00

// EncodeCell appends the wire representation of d to dst and returns the
// extended slice. Scalars are padded to 8 bytes;
// variable-length Bin/Str are length-prefixed; List is length-prefixed and
// recursive.
func EncodeCell(dst []byte, d Datacell) []byte {
	if d.Null {
		return append(dst, cellTagNull)
	}
	dst = append(dst, byte(d.Tag))
	switch d.Tag {
	case LayerBin, LayerStr:
		dst = appendU64LE(dst, uint64(len(d.bytes)))
		dst = append(dst, d.bytes...)
	case LayerList:
		dst = appendU64LE(dst, uint64(len(d.list)))
		for _, e := range d.list {
			dst = EncodeCell(dst, e)
		}
	default:
		dst = appendU64LE(dst, d.bits)
	}
	return dst
}

func appendU64LE(dst []byte, v uint64) []byte {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	return append(dst, b[:]...)
}

// DecodeCell parses one cell from src, returning the cell and the number of
// bytes consumed. nullKind supplies the declared scalar kind to stamp onto
// a decoded Null cell, since the wire form of Null carries no payload
//: the caller (row/field-aware code) knows this from
// schema context.
func DecodeCell(src []byte, nullKind LayerKind) (Datacell, int, error) {
	if len(src) < 1 {
		return Datacell{}, 0, ferr.New(ferr.V1DataBatchDecodeCorruptedEntry, "short cell: missing discriminant")
	}
	tag := src[0]
	if tag == cellTagNull {
		return NewNull(nullKind), 1, nil
	}
	kind := LayerKind(tag)
	switch kind {
	case LayerBin, LayerStr:
		if len(src) < 9 {
			return Datacell{}, 0, ferr.New(ferr.V1DataBatchDecodeCorruptedEntry, "short cell: missing length")
		}
		n := binary.LittleEndian.Uint64(src[1:9])
		if n > math.MaxInt32 {
			return Datacell{}, 0, ferr.New(ferr.InternalDecodeStructureCorrupted, "cell length exceeds bound")
		}
		end := 9 + int(n)
		if len(src) < end {
			return Datacell{}, 0, ferr.New(ferr.V1DataBatchDecodeCorruptedEntry, "truncated bin/str payload")
		}
		payload := make([]byte, n)
		copy(payload, src[9:end])
		if kind == LayerStr {
			if !isValidUTF8(payload) {
				return Datacell{}, 0, ferr.New(ferr.V1DataBatchDecodeCorruptedEntry, "string payload is not valid UTF-8")
			}
			return NewStr(payload), end, nil
		}
		return NewBin(payload), end, nil
	case LayerList:
		if len(src) < 9 {
			return Datacell{}, 0, ferr.New(ferr.V1DataBatchDecodeCorruptedEntry, "short cell: missing list length")
		}
		n := binary.LittleEndian.Uint64(src[1:9])
		if n > math.MaxInt32 {
			return Datacell{}, 0, ferr.New(ferr.InternalDecodeStructureCorrupted, "list length exceeds bound")
		}
		off := 9
		elems := make([]Datacell, 0, n)
		var classTag LayerKind
		for i := uint64(0); i < n; i++ {
			elem, used, err := DecodeCell(src[off:], LayerKind(0))
			if err != nil {
				return Datacell{}, 0, err
			}
			if i == 0 {
				classTag = elem.Tag
			} else if elem.Tag != classTag {
				return Datacell{}, 0, ferr.New(ferr.V1DataBatchDecodeCorruptedEntry, "list element class mismatch")
			}
			elems = append(elems, elem)
			off += used
		}
		return NewList(elems), off, nil
	default:
		if len(src) < 9 {
			return Datacell{}, 0, ferr.New(ferr.V1DataBatchDecodeCorruptedEntry, "short cell: missing scalar payload")
		}
		bits := binary.LittleEndian.Uint64(src[1:9])
		return Datacell{Tag: kind, bits: bits}, 9, nil
	}
}

func isValidUTF8(b []byte) bool {
	return utf8.Valid(b)
}
