package secret

import (
	"github.com/stretchr/testify/require"
	"testing"
)

func TestMustNew(t *testing.T) {
	raw, hash := MustNew(32)
	require.Len(t, raw, 43)
	require.Equal(t, Hash(raw), hash)
	require.Len(t, hash, 64)

	other, _ := MustNew(32)
	require.NotEqual(t, raw, other)
}

func TestHashIsDeterministic(t *testing.T) {
	require.Equal(t, Hash("token"), Hash("token"))
	require.NotEqual(t, Hash("token"), Hash("token2"))
}
