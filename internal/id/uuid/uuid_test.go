package uuid

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewIDShapeAndUniqueness(t *testing.T) {
	t.Parallel()

	gen := NewGenerator()
	seen := make(map[string]struct{})

	for i := 0; i < 1000; i++ {
		id, err := gen.NewID()
		require.NoError(t, err)
		require.Len(t, id, scanIDLength)
		for _, c := range id {
			require.Contains(t, "0123456789abcdef", string(c))
		}
		_, dup := seen[id]
		require.Falsef(t, dup, "duplicate id %q after %d draws", id, i)
		seen[id] = struct{}{}
	}
}
