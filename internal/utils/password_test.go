package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestValidatePasswordStrength(t *testing.T) {
	cases := []struct {
		name     string
		password string
		want     error
	}{
		{"too short", "Ab1!", ErrPasswordTooShort},
		{"single class", "abcdefghijklmnop", ErrPasswordTooWeak},
		{"two classes", "abcdefgh12345", ErrPasswordTooWeak},
		{"three classes", "abcdefgh1234X", nil},
		{"passphrase with spaces", "Correct horse battery", nil},
		{"four classes", "Offline-Sync-2024", nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.ErrorIs(t, ValidatePasswordStrength(tc.password), tc.want)
		})
	}
}

func TestHashAndCheckPassword(t *testing.T) {
	hash, err := hashWithCost("Offline-Sync-2024", bcrypt.MinCost)
	require.NoError(t, err)

	assert.NoError(t, CheckPassword(hash, "Offline-Sync-2024"))
	assert.ErrorIs(t, CheckPassword(hash, "offline-sync-2024"), ErrPasswordMismatch)

	err = CheckPassword("not-a-hash", "Offline-Sync-2024")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrPasswordMismatch)
}

func TestHashPassword_RejectsWeak(t *testing.T) {
	_, err := HashPassword("short")
	assert.ErrorIs(t, err, ErrPasswordTooShort)
}
