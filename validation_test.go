package main

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsValidUsername(t *testing.T) {
	assert.True(t, isValidUsername("alice"))
	assert.True(t, isValidUsername("bob_42"))
	assert.True(t, isValidUsername("coin-hunter"))

	assert.False(t, isValidUsername("ab"))
	assert.False(t, isValidUsername(strings.Repeat("a", 33)))
	assert.False(t, isValidUsername("has space"))
	assert.False(t, isValidUsername("semi;colon"))
	assert.False(t, isValidUsername(""))
}

func TestIsValidPlayerID(t *testing.T) {
	assert.True(t, isValidPlayerID("abc123"))
	assert.True(t, isValidPlayerID("a-b_c"))

	assert.False(t, isValidPlayerID(""))
	assert.False(t, isValidPlayerID(strings.Repeat("x", 65)))
	assert.False(t, isValidPlayerID("no/slash"))
}

func TestIsValidDisplayName(t *testing.T) {
	assert.True(t, isValidDisplayName("Alice"))
	assert.True(t, isValidDisplayName("Coin Hunter 9000"))

	assert.False(t, isValidDisplayName(""))
	assert.False(t, isValidDisplayName(strings.Repeat("a", 65)))
	assert.False(t, isValidDisplayName("line\nbreak"))
}
