package gns

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestObjectIDRoundTrip(t *testing.T) {
	oid, err := NewObjectID("users")
	require.NoError(t, err)
	require.Equal(t, "users", oid.String())
	require.Equal(t, 5, oid.Len())
}

func TestObjectIDRejectsOverCapacity(t *testing.T) {
	name := strings.Repeat("x", ObjectIDCapacity+1)
	_, err := NewObjectID(name)
	require.Error(t, err)
}

func TestObjectIDAcceptsExactCapacity(t *testing.T) {
	name := strings.Repeat("y", ObjectIDCapacity)
	oid, err := NewObjectID(name)
	require.NoError(t, err)
	require.Equal(t, name, oid.String())
}

func TestObjectIDEqualityByContent(t *testing.T) {
	a, _ := NewObjectID("app")
	b, _ := NewObjectID("app")
	c, _ := NewObjectID("other")
	require.Equal(t, a, b)
	require.NotEqual(t, a, c)

	m := map[ObjectID]bool{a: true}
	require.True(t, m[b])
}
