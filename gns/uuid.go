package gns

import "github.com/google/uuid"

// UUID is the 128-bit opaque identity stamped on every space and model at
// creation. It wraps google/uuid.UUID, the identity library
// the rest of the project already depends on.
type UUID = uuid.UUID

// NewUUID mints a fresh random (v4) identity.
func NewUUID() UUID {
	return uuid.New()
}
