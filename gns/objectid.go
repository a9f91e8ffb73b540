package gns

import "github.com/driftdb/driftdb/lib/ferr"

// ObjectIDCapacity is the maximum byte length of a space or model name.
const ObjectIDCapacity = 64

// ObjectID is a fixed-capacity inline identifier: a length plus up to
// ObjectIDCapacity bytes, comparable and hashable by content. It is not a
// Go string so its zero value and capacity bound are both explicit.
type ObjectID struct {
	len  uint8
	data [ObjectIDCapacity]byte
}

// NewObjectID builds an ObjectID from s, rejecting names over capacity.
func NewObjectID(s string) (ObjectID, error) {
	if len(s) > ObjectIDCapacity {
		return ObjectID{}, ferr.Newf(ferr.QLInvalidSyntax, "identifier %q exceeds %d bytes", s, ObjectIDCapacity)
	}
	var oid ObjectID
	oid.len = uint8(len(s))
	copy(oid.data[:], s)
	return oid, nil
}

// String returns the identifier's textual form.
func (o ObjectID) String() string {
	return string(o.data[:o.len])
}

// Len returns the identifier's byte length.
func (o ObjectID) Len() int { return int(o.len) }
