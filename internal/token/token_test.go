package token

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate_Shape(t *testing.T) {
	for i := 0; i < 200; i++ {
		tok, err := Generate()
		require.NoError(t, err)
		assert.Len(t, tok, Length)
		assert.True(t, Valid(tok), "generated token %q failed Valid", tok)
	}
}

func TestGenerate_Unique(t *testing.T) {
	seen := make(map[string]struct{}, 1000)
	for i := 0; i < 1000; i++ {
		tok, err := Generate()
		require.NoError(t, err)
		_, dup := seen[tok]
		require.False(t, dup, "duplicate token %q", tok)
		seen[tok] = struct{}{}
	}
}

func TestGenerate_UsesWholeAlphabet(t *testing.T) {
	counts := make(map[byte]int)
	for i := 0; i < 2000; i++ {
		tok, err := Generate()
		require.NoError(t, err)
		for j := 0; j < len(tok); j++ {
			counts[tok[j]]++
		}
	}
	// 50k draws over 62 symbols; every symbol shows up.
	assert.Len(t, counts, len(alphabet))
}

func TestValid(t *testing.T) {
	assert.True(t, Valid("abcdefghijklmnopqrstuvwxy"))
	assert.True(t, Valid("ABCDEFGHIJKLMNOPQRSTUVW01"))
	assert.False(t, Valid(""))
	assert.False(t, Valid("short"))
	assert.False(t, Valid("abcdefghijklmnopqrstuvwxyz"))
	assert.False(t, Valid("abcdefghijklmnopqrstuvwx-"))
	assert.False(t, Valid("abcdefghijklmnopqrstuvwx\x00"))
}
