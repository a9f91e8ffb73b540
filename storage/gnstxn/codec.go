package gnstxn

import (
	"encoding/binary"
	"math"

	"github.com/driftdb/driftdb/bytesio"
	"github.com/driftdb/driftdb/gns"
	"github.com/driftdb/driftdb/lib/ferr"
)

// Payload wire helpers. Every event's payload is built in memory first and
// written length-prefixed, so the reader can pull the whole block and
// parse it with a bytesio.Scanner instead of threading a streaming reader
// through every field.

func appendU64LE(dst []byte, v uint64) []byte {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	return append(dst, b[:]...)
}

func appendString(dst []byte, s string) []byte {
	dst = appendU64LE(dst, uint64(len(s)))
	return append(dst, s...)
}

func appendBool(dst []byte, v bool) []byte {
	if v {
		return append(dst, 1)
	}
	return append(dst, 0)
}

func appendField(dst []byte, f gns.Field) []byte {
	dst = appendBool(dst, f.Nullable)
	dst = appendBool(dst, f.Primary)
	dst = appendU64LE(dst, uint64(len(f.Layers)))
	for _, l := range f.Layers {
		dst = append(dst, byte(l.Kind))
	}
	return dst
}

func appendFieldSpecs(dst []byte, specs []FieldSpec) []byte {
	dst = appendU64LE(dst, uint64(len(specs)))
	for _, sp := range specs {
		dst = appendString(dst, sp.Name)
		dst = appendField(dst, sp.Field)
	}
	return dst
}

func appendUUID(dst []byte, u gns.UUID) []byte {
	return append(dst, u[:]...)
}

func readLen(sc *bytesio.Scanner, what string) (int, error) {
	n, ok := sc.NextU64LE()
	if !ok {
		return 0, ferr.Newf(ferr.InternalDecodeStructureCorrupted, "short event payload: missing %s length", what)
	}
	if n > math.MaxInt/2 {
		return 0, ferr.Newf(ferr.InternalDecodeStructureCorrupted, "%s length %d exceeds addressable range", what, n)
	}
	return int(n), nil
}

func readString(sc *bytesio.Scanner, what string) (string, error) {
	n, err := readLen(sc, what)
	if err != nil {
		return "", err
	}
	b, ok := sc.NextVariableBlock(n)
	if !ok {
		return "", ferr.Newf(ferr.InternalDecodeStructureCorrupted, "truncated %s", what)
	}
	return string(b), nil
}

func readBool(sc *bytesio.Scanner, what string) (bool, error) {
	b, ok := sc.NextByte()
	if !ok {
		return false, ferr.Newf(ferr.InternalDecodeStructureCorrupted, "short event payload: missing %s flag", what)
	}
	return b != 0, nil
}

func readField(sc *bytesio.Scanner) (gns.Field, error) {
	nullable, err := readBool(sc, "nullable")
	if err != nil {
		return gns.Field{}, err
	}
	primary, err := readBool(sc, "primary")
	if err != nil {
		return gns.Field{}, err
	}
	n, err := readLen(sc, "layer list")
	if err != nil {
		return gns.Field{}, err
	}
	layers := make(gns.TypeExpr, 0, n)
	for i := 0; i < n; i++ {
		k, ok := sc.NextByte()
		if !ok {
			return gns.Field{}, ferr.New(ferr.InternalDecodeStructureCorrupted, "truncated layer list")
		}
		layers = append(layers, gns.Layer{Kind: gns.LayerKind(k)})
	}
	f := gns.Field{Layers: layers, Nullable: nullable, Primary: primary}
	if err := f.Validate(); err != nil {
		return gns.Field{}, ferr.Wrap(err, ferr.InternalDecodeStructureCorrupted, "decoded field fails layer invariants")
	}
	return f, nil
}

func readFieldSpecs(sc *bytesio.Scanner) ([]FieldSpec, error) {
	n, err := readLen(sc, "field list")
	if err != nil {
		return nil, err
	}
	specs := make([]FieldSpec, 0, n)
	for i := 0; i < n; i++ {
		name, err := readString(sc, "field name")
		if err != nil {
			return nil, err
		}
		f, err := readField(sc)
		if err != nil {
			return nil, err
		}
		specs = append(specs, FieldSpec{Name: name, Field: f})
	}
	return specs, nil
}

func readUUID(sc *bytesio.Scanner) (gns.UUID, error) {
	b, ok := sc.NextVariableBlock(16)
	if !ok {
		return gns.UUID{}, ferr.New(ferr.InternalDecodeStructureCorrupted, "truncated uuid")
	}
	var u gns.UUID
	copy(u[:], b)
	return u, nil
}

func readDict(sc *bytesio.Scanner, what string) (gns.Dict, error) {
	d, used, err := gns.DecodeDict(sc.Rest())
	if err != nil {
		return nil, ferr.Wrapf(err, ferr.InternalDecodeStructureCorrupted, "bad %s dict", what)
	}
	if _, ok := sc.NextVariableBlock(used); !ok {
		return nil, ferr.Newf(ferr.InternalDecodeStructureCorrupted, "bad %s dict framing", what)
	}
	return d, nil
}

// encodePayload renders one event's payload bytes (everything after the
// event_id/meta pair, before the CRC trailer).
func encodePayload(e Event) []byte {
	var dst []byte
	switch ev := e.(type) {
	case CreateSpaceEvent:
		dst = appendString(dst, ev.Name)
		dst = appendUUID(dst, ev.UUID)
		dst = gns.EncodeDict(dst, ev.Props)
	case AlterSpaceEvent:
		dst = appendString(dst, ev.Name)
		dst = gns.EncodeDict(dst, ev.Props)
	case DropSpaceEvent:
		dst = appendString(dst, ev.Name)
	case CreateModelEvent:
		dst = appendString(dst, ev.Space)
		dst = appendString(dst, ev.Model)
		dst = appendUUID(dst, ev.UUID)
		dst = appendFieldSpecs(dst, ev.Fields)
		dst = appendBool(dst, ev.Volatile)
	case AlterModelAddEvent:
		dst = appendString(dst, ev.Space)
		dst = appendString(dst, ev.Model)
		dst = appendString(dst, ev.FieldName)
		dst = appendField(dst, ev.Field)
	case AlterModelRemoveEvent:
		dst = appendString(dst, ev.Space)
		dst = appendString(dst, ev.Model)
		dst = appendString(dst, ev.FieldName)
	case AlterModelUpdateEvent:
		dst = appendString(dst, ev.Space)
		dst = appendString(dst, ev.Model)
		dst = appendString(dst, ev.FieldName)
		dst = appendField(dst, ev.Field)
	case DropModelEvent:
		dst = appendString(dst, ev.Space)
		dst = appendString(dst, ev.Model)
	}
	return dst
}

// decodePayload parses one event's payload given its meta.
func decodePayload(meta uint64, payload []byte) (Event, error) {
	sc := bytesio.NewScanner(payload)
	switch meta {
	case metaCreateSpace:
		name, err := readString(sc, "space name")
		if err != nil {
			return nil, err
		}
		u, err := readUUID(sc)
		if err != nil {
			return nil, err
		}
		props, err := readDict(sc, "space props")
		if err != nil {
			return nil, err
		}
		return CreateSpaceEvent{Name: name, UUID: u, Props: props}, nil
	case metaAlterSpace:
		name, err := readString(sc, "space name")
		if err != nil {
			return nil, err
		}
		props, err := readDict(sc, "space props")
		if err != nil {
			return nil, err
		}
		return AlterSpaceEvent{Name: name, Props: props}, nil
	case metaDropSpace:
		name, err := readString(sc, "space name")
		if err != nil {
			return nil, err
		}
		return DropSpaceEvent{Name: name}, nil
	case metaCreateModel:
		space, err := readString(sc, "space name")
		if err != nil {
			return nil, err
		}
		model, err := readString(sc, "model name")
		if err != nil {
			return nil, err
		}
		u, err := readUUID(sc)
		if err != nil {
			return nil, err
		}
		specs, err := readFieldSpecs(sc)
		if err != nil {
			return nil, err
		}
		volatile, err := readBool(sc, "volatile")
		if err != nil {
			return nil, err
		}
		return CreateModelEvent{Space: space, Model: model, UUID: u, Fields: specs, Volatile: volatile}, nil
	case metaAlterModelAdd:
		space, err := readString(sc, "space name")
		if err != nil {
			return nil, err
		}
		model, err := readString(sc, "model name")
		if err != nil {
			return nil, err
		}
		fieldName, err := readString(sc, "field name")
		if err != nil {
			return nil, err
		}
		f, err := readField(sc)
		if err != nil {
			return nil, err
		}
		return AlterModelAddEvent{Space: space, Model: model, FieldName: fieldName, Field: f}, nil
	case metaAlterModelRemove:
		space, err := readString(sc, "space name")
		if err != nil {
			return nil, err
		}
		model, err := readString(sc, "model name")
		if err != nil {
			return nil, err
		}
		fieldName, err := readString(sc, "field name")
		if err != nil {
			return nil, err
		}
		return AlterModelRemoveEvent{Space: space, Model: model, FieldName: fieldName}, nil
	case metaAlterModelUpdate:
		space, err := readString(sc, "space name")
		if err != nil {
			return nil, err
		}
		model, err := readString(sc, "model name")
		if err != nil {
			return nil, err
		}
		fieldName, err := readString(sc, "field name")
		if err != nil {
			return nil, err
		}
		f, err := readField(sc)
		if err != nil {
			return nil, err
		}
		return AlterModelUpdateEvent{Space: space, Model: model, FieldName: fieldName, Field: f}, nil
	case metaDropModel:
		space, err := readString(sc, "space name")
		if err != nil {
			return nil, err
		}
		model, err := readString(sc, "model name")
		if err != nil {
			return nil, err
		}
		return DropModelEvent{Space: space, Model: model}, nil
	}
	return nil, ferr.Newf(ferr.InternalDecodeStructureCorrupted, "unknown gns event meta %d", meta)
}
