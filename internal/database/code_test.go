// internal/database/code_test.go
package database

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oscarnight/server/internal/models"
)

func TestGenerateRoomCode(t *testing.T) {
	for i := 0; i < 100; i++ {
		code := GenerateRoomCode()
		require.Len(t, code, roomCodeLength)
		for _, r := range code {
			assert.True(t, strings.ContainsRune(roomCodeAlphabet, r),
				"code %q contains %q outside the alphabet", code, r)
		}
		require.NoError(t, ValidateRoomCode(code))
	}
}

func TestAlphabetExcludesAmbiguousCharacters(t *testing.T) {
	for _, r := range "OIL01" {
		assert.False(t, strings.ContainsRune(roomCodeAlphabet, r))
	}
}

func TestNormalizeRoomCode(t *testing.T) {
	assert.Equal(t, "7F3K", NormalizeRoomCode("7f3k"))
	assert.Equal(t, "7F3K", NormalizeRoomCode("  7F3k "))
}

func TestValidateRoomCode(t *testing.T) {
	assert.NoError(t, ValidateRoomCode("7F3K"))

	for _, bad := range []string{"", "ABC", "ABCDE", "AB0D", "ab!d", "A B C"} {
		err := ValidateRoomCode(NormalizeRoomCode(bad))
		assert.ErrorIs(t, err, models.ErrInvalidCode, "code %q should be invalid", bad)
	}
}
