package cryptox

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	// Use a throwaway pepper file so tests never touch a real one.
	pepperPath := filepath.Join(os.TempDir(), "portal-test-pepper")
	SetPepperPath(pepperPath)

	os.Remove(pepperPath)
	defer os.Remove(pepperPath)

	os.Exit(m.Run())
}

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := HashPassword("Passw0rd!")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(hash, "$argon2id$v=19$"))

	require.NoError(t, VerifyPassword("Passw0rd!", hash))
	require.Error(t, VerifyPassword("wrong-password", hash))
}

func TestHashPasswordProducesUniqueSalts(t *testing.T) {
	a, err := HashPassword("same-input")
	require.NoError(t, err)
	b, err := HashPassword("same-input")
	require.NoError(t, err)

	require.NotEqual(t, a, b)
}

func TestVerifyPasswordRejectsMalformedHashes(t *testing.T) {
	for _, encoded := range []string{
		"",
		"plaintext",
		"$bcrypt$v=19$m=19456,t=2,p=1$c2FsdA$aGFzaA",
		"$argon2id$v=18$m=19456,t=2,p=1$c2FsdA$aGFzaA",
		"$argon2id$v=19$m=19456,t=2,p=1$!!!$aGFzaA",
	} {
		require.Error(t, VerifyPassword("anything", encoded), "hash %q", encoded)
	}
}

func TestGenerateToken(t *testing.T) {
	tok, err := GenerateToken(TokenSize256)
	require.NoError(t, err)
	require.Len(t, tok, 43)

	other, err := GenerateToken(TokenSize256)
	require.NoError(t, err)
	require.NotEqual(t, tok, other)

	_, err = GenerateToken(0)
	require.Error(t, err)
}

func TestGenerateEd25519Key(t *testing.T) {
	pemBytes, err := GenerateEd25519Key()
	require.NoError(t, err)
	require.Contains(t, string(pemBytes), "BEGIN PRIVATE KEY")
}
