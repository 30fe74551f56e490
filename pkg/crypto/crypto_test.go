package crypto

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := HashPassword("s3cret-value")
	require.NoError(t, err)
	require.NotEqual(t, "s3cret-value", hash)

	require.True(t, VerifyPassword(hash, "s3cret-value"))
	require.False(t, VerifyPassword(hash, "wrong"))
}
