package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateAPIKeyStrength(t *testing.T) {
	assert.ErrorIs(t, ValidateAPIKeyStrength("short"), ErrAPIKeyTooShort)
	assert.ErrorIs(t, ValidateAPIKeyStrength(strings.Repeat("k", 73)), ErrAPIKeyTooLong)
	assert.NoError(t, ValidateAPIKeyStrength(strings.Repeat("k", 32)))
}

func TestGenerateHashCompare(t *testing.T) {
	key, err := GenerateAPIKey()
	require.NoError(t, err)
	assert.Len(t, key, 43)

	hash, err := HashAPIKey(key)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(hash, "$2a$"))
	assert.True(t, CompareAPIKey(hash, key))
	assert.False(t, CompareAPIKey(hash, key+"x"))
	assert.False(t, CompareAPIKey("not-a-hash", key))
}

func TestHashAPIKey_RejectsWeakKey(t *testing.T) {
	_, err := HashAPIKey("abc")
	assert.ErrorIs(t, err, ErrAPIKeyTooShort)
}
