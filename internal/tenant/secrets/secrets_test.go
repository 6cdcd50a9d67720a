package secrets

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 100; i++ {
		key, err := Generate()
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(key, keyPrefix))
		assert.Len(t, key, len(keyPrefix)+43)
		_, dup := seen[key]
		require.False(t, dup, "generated duplicate key")
		seen[key] = struct{}{}
	}
}
