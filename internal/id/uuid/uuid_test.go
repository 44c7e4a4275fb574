package uuid

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewRunID(t *testing.T) {
	t.Parallel()

	gen := NewGenerator()
	a, err := gen.NewRunID()
	require.NoError(t, err)
	b, err := gen.NewRunID()
	require.NoError(t, err)
	require.NotEqual(t, a, b)
	require.Equal(t, uuidVersion(a), 7)
}

func uuidVersion(id [16]byte) int {
	return int(id[6] >> 4)
}
