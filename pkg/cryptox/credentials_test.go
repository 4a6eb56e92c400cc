package cryptox

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	// Set up a temporary pepper file for testing
	tmpDir := os.TempDir()
	pepperPath := filepath.Join(tmpDir, "test-pepper")
	SetPepperPath(pepperPath)

	// Clean up pepper file before and after tests
	os.Remove(pepperPath)
	defer os.Remove(pepperPath)

	os.Exit(m.Run())
}

func TestGenerateSecret(t *testing.T) {
	t.Run("returns requested length", func(t *testing.T) {
		b, err := GenerateSecret(SecretSize)
		require.NoError(t, err)
		require.Len(t, b, SecretSize)
	})

	t.Run("successive secrets differ", func(t *testing.T) {
		a, err := GenerateSecret(SecretSize)
		require.NoError(t, err)
		b, err := GenerateSecret(SecretSize)
		require.NoError(t, err)
		require.NotEqual(t, a, b)
	})

	t.Run("rejects non-positive sizes", func(t *testing.T) {
		_, err := GenerateSecret(0)
		require.Error(t, err)
		_, err = GenerateSecret(-1)
		require.Error(t, err)
	})
}

func TestDigest(t *testing.T) {
	hexPattern := regexp.MustCompile(`^[0-9a-f]{40}$`)

	t.Run("is 40 lowercase hex chars", func(t *testing.T) {
		require.Regexp(t, hexPattern, Digest([]byte("input")))
		require.Regexp(t, hexPattern, Digest(nil))
	})

	t.Run("is deterministic", func(t *testing.T) {
		require.Equal(t, Digest([]byte("same")), Digest([]byte("same")))
		require.NotEqual(t, Digest([]byte("one")), Digest([]byte("two")))
	})
}

func TestHashSecret(t *testing.T) {
	tests := []struct {
		name   string
		secret string
	}{
		{"simple secret", "secret123"},
		{"digest-shaped secret", Digest([]byte("random"))},
		{"long secret", strings.Repeat("a", 100)},
		{"empty secret", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hash, err := HashSecret(tt.secret)
			require.NoError(t, err)
			require.NotEmpty(t, hash)

			// Verify PHC format
			require.True(t, strings.HasPrefix(hash, "$argon2id$v=19$"),
				"hash should be in PHC format")

			parts := strings.Split(hash, "$")
			require.Len(t, parts, 6, "PHC hash should have 6 parts")
			require.Contains(t, parts[3], "m=", "should contain memory parameter")
			require.Contains(t, parts[3], "t=", "should contain iterations parameter")
			require.Contains(t, parts[3], "p=", "should contain parallelism parameter")
			require.NotEmpty(t, parts[4], "salt should not be empty")
			require.NotEmpty(t, parts[5], "hash should not be empty")
		})
	}

	t.Run("same secret hashes differently", func(t *testing.T) {
		a, err := HashSecret("secret")
		require.NoError(t, err)
		b, err := HashSecret("secret")
		require.NoError(t, err)
		require.NotEqual(t, a, b, "salts must differ")
	})
}

func TestVerifySecret(t *testing.T) {
	hash, err := HashSecret("correct-secret")
	require.NoError(t, err)

	t.Run("accepts matching secret", func(t *testing.T) {
		require.NoError(t, VerifySecret("correct-secret", hash))
	})

	t.Run("rejects wrong secret", func(t *testing.T) {
		require.ErrorIs(t, VerifySecret("wrong-secret", hash), ErrSecretMismatch)
	})

	t.Run("rejects malformed hashes", func(t *testing.T) {
		for _, bad := range []string{
			"",
			"not-a-hash",
			"$bcrypt$v=19$m=19456,t=2,p=1$c2FsdA$aGFzaA",
			"$argon2id$v=18$m=19456,t=2,p=1$c2FsdA$aGFzaA",
			"$argon2id$v=19$m=19456,t=2,p=1$!!!$aGFzaA",
		} {
			require.Error(t, VerifySecret("secret", bad), "input %q", bad)
		}
	})
}
