package cryptox

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHashAndVerifyPassword(t *testing.T) {
	SetPepperPath(filepath.Join(t.TempDir(), "pepper"))

	hash, err := HashPassword("hunter2-but-longer")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(hash, "$argon2id$v=19$"))

	require.NoError(t, VerifyPassword("hunter2-but-longer", hash))
	require.ErrorIs(t, VerifyPassword("wrong-password", hash), ErrPasswordMismatch)
}

func TestHashPasswordSaltsDiffer(t *testing.T) {
	SetPepperPath(filepath.Join(t.TempDir(), "pepper"))

	h1, err := HashPassword("same-password")
	require.NoError(t, err)
	h2, err := HashPassword("same-password")
	require.NoError(t, err)
	require.NotEqual(t, h1, h2)

	require.NoError(t, VerifyPassword("same-password", h1))
	require.NoError(t, VerifyPassword("same-password", h2))
}

func TestVerifyPasswordMalformedHash(t *testing.T) {
	SetPepperPath(filepath.Join(t.TempDir(), "pepper"))

	require.Error(t, VerifyPassword("pw", "not-a-phc-string"))
	require.Error(t, VerifyPassword("pw", "$argon2id$v=19$m=19456,t=2,p=1$short"))
	require.Error(t, VerifyPassword("pw", "$argon2id$v=19$m=19456,t=2,p=1$!!$!!"))
}
