package fractal

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPerModelDeltaMaxPositiveForSingleModel(t *testing.T) {
	got, err := PerModelDeltaMax(context.Background(), 1)
	require.NoError(t, err)
	require.Greater(t, got, uint64(0))
}

func TestPerModelDeltaMaxShrinksAsModelCountGrows(t *testing.T) {
	one, err := PerModelDeltaMax(context.Background(), 1)
	require.NoError(t, err)
	many, err := PerModelDeltaMax(context.Background(), 1000)
	require.NoError(t, err)
	require.LessOrEqual(t, many, one)
}

func TestPerModelDeltaMaxClampsNonPositiveModelCount(t *testing.T) {
	zero, err := PerModelDeltaMax(context.Background(), 0)
	require.NoError(t, err)
	one, err := PerModelDeltaMax(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, one, zero)

	negative, err := PerModelDeltaMax(context.Background(), -5)
	require.NoError(t, err)
	require.Equal(t, one, negative)
}
