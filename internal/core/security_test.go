// AngelaMos | 2026
// security_test.go

package core

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashPasswordRoundTrip(t *testing.T) {
	hash, err := HashPassword("correct horse battery staple")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(hash, "$argon2id$v=19$m=65536,t=1,p=4$"))

	ok, err := VerifyPassword("correct horse battery staple", hash)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = VerifyPassword("wrong", hash)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestVerifyRejectsMalformedHash(t *testing.T) {
	for _, bad := range []string{"", "plain", "$bcrypt$v=19$m=1,t=1,p=1$AA$AA", "$argon2id$v=1$m=1,t=1,p=1$AA$AA"} {
		_, err := VerifyPassword("x", bad)
		assert.ErrorIs(t, err, ErrInvalidHash, bad)
	}
}

func TestRehashWhenParamsChange(t *testing.T) {
	weak := Argon2Params{Memory: 8 * 1024, Time: 1, Threads: 1, KeyLen: 32, SaltLen: 16}
	old, err := hashWith("pw", weak)
	require.NoError(t, err)

	ok, fresh, err := VerifyPasswordWithRehash("pw", old)
	require.NoError(t, err)
	assert.True(t, ok)
	require.NotEmpty(t, fresh)

	ok, again, err := VerifyPasswordWithRehash("pw", fresh)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Empty(t, again)
}

func TestTimingSafeMissingHash(t *testing.T) {
	ok, newHash, err := VerifyPasswordTimingSafe("anything", nil)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, newHash)
}

func TestHashTokenIsStable(t *testing.T) {
	token, err := GenerateRefreshToken()
	require.NoError(t, err)
	assert.Equal(t, HashToken(token), HashToken(token))
	assert.Len(t, HashToken(token), 64)
}
