// internal/database/code.go
package database

import (
	"math/rand"
	"strings"

	"github.com/oscarnight/server/internal/models"
)

// Room codes are 4 characters drawn from an alphabet without the
// visually-ambiguous letters O, I and L or the digits 0 and 1, so a code
// read off someone's screen types in unambiguously.
const (
	roomCodeLength   = 4
	roomCodeAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"
)

// GenerateRoomCode returns a random code from the restricted alphabet.
// Uniqueness is enforced by the rooms.code constraint, not here.
func GenerateRoomCode() string {
	var b strings.Builder
	for i := 0; i < roomCodeLength; i++ {
		b.WriteByte(roomCodeAlphabet[rand.Intn(len(roomCodeAlphabet))])
	}
	return b.String()
}

// NormalizeRoomCode upper-cases and trims a code so lookups are
// case-insensitive.
func NormalizeRoomCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// ValidateRoomCode checks a normalized code against the length and alphabet
// rules. Returns models.ErrInvalidCode on any violation.
func ValidateRoomCode(code string) error {
	if len(code) != roomCodeLength {
		return models.ErrInvalidCode
	}
	for i := 0; i < len(code); i++ {
		if !strings.ContainsRune(roomCodeAlphabet, rune(code[i])) {
			return models.ErrInvalidCode
		}
	}
	return nil
}
