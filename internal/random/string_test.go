package random

import (
	"github.com/stretchr/testify/require"
	"strings"
	"testing"
)

func TestString(t *testing.T) {
	str := String(16, CharsetAlphanumeric)
	require.Len(t, str, 16)
	for _, char := range str {
		require.True(t, strings.ContainsRune(string(CharsetAlphanumeric), char))
	}
	require.Equal(t, "aaaa", String(4, []rune("a")))
}
