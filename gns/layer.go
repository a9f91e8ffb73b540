package gns

import "github.com/driftdb/driftdb/lib/ferr"

// LayerKind enumerates every scalar and compound type layer.
// The numeric values double as the on-disk cell discriminant for
// scalars; List cells use LayerList (0x0E) on the wire too.
type LayerKind uint8

const (
	LayerBool    LayerKind = 0x01
	LayerUInt8   LayerKind = 0x02
	LayerUInt16  LayerKind = 0x03
	LayerUInt32  LayerKind = 0x04
	LayerUInt64  LayerKind = 0x05
	LayerSInt8   LayerKind = 0x06
	LayerSInt16  LayerKind = 0x07
	LayerSInt32  LayerKind = 0x08
	LayerSInt64  LayerKind = 0x09
	LayerFloat32 LayerKind = 0x0A
	LayerFloat64 LayerKind = 0x0B
	LayerBin     LayerKind = 0x0C
	LayerStr     LayerKind = 0x0D
	LayerList    LayerKind = 0x0E
)

// IsScalar reports whether k is a terminal, non-compound layer.
func (k LayerKind) IsScalar() bool { return k != LayerList }

// Layer is one element of a field's composite type, outermost first.
type Layer struct {
	Kind LayerKind
}

// TypeExpr is an ordered list of layers describing a field's composite
// type. The only compound layer is List; every TypeExpr must terminate in
// a scalar layer.
type TypeExpr []Layer

// Validate checks the non-empty/scalar-terminated invariant.
func (t TypeExpr) Validate() error {
	if len(t) == 0 {
		return ferr.New(ferr.QLInvalidTypeDefinitionSyntax, "empty type expression")
	}
	last := t[len(t)-1]
	if !last.Kind.IsScalar() {
		return ferr.New(ferr.QLInvalidTypeDefinitionSyntax, "type expression does not terminate in a scalar layer")
	}
	for _, l := range t[:len(t)-1] {
		if l.Kind != LayerList {
			return ferr.New(ferr.QLInvalidTypeDefinitionSyntax, "only list is a valid compound layer")
		}
	}
	return nil
}

// Depth returns how many List wrappers precede the terminal scalar.
func (t TypeExpr) Depth() int {
	d := 0
	for _, l := range t {
		if l.Kind == LayerList {
			d++
		}
	}
	return d
}

// ScalarKind returns the terminal scalar layer kind.
func (t TypeExpr) ScalarKind() LayerKind {
	return t[len(t)-1].Kind
}
