package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLeagueFor(t *testing.T) {
	assert.Equal(t, "bronze", LeagueFor(0).LeagueID)
	assert.Equal(t, "bronze", LeagueFor(4_999).LeagueID)
	assert.Equal(t, "silver", LeagueFor(5_000).LeagueID)
	assert.Equal(t, "gold", LeagueFor(30_000).LeagueID)
	assert.Equal(t, "master", LeagueFor(2_000_000).LeagueID)
	assert.Equal(t, "master", LeagueFor(999_999_999).LeagueID)
}

func TestNextLeague(t *testing.T) {
	next := NextLeague(0)
	require.NotNil(t, next)
	assert.Equal(t, "silver", next.LeagueID)

	next = NextLeague(5_000)
	require.NotNil(t, next)
	assert.Equal(t, "gold", next.LeagueID)

	assert.Nil(t, NextLeague(2_000_000))
}

func TestLeagueBounds(t *testing.T) {
	lo, hi, ok := leagueBounds("silver")
	require.True(t, ok)
	assert.Equal(t, int64(5_000), lo)
	assert.Equal(t, int64(25_000), hi)

	lo, hi, ok = leagueBounds("master")
	require.True(t, ok)
	assert.Equal(t, int64(2_000_000), lo)
	assert.Zero(t, hi)

	_, _, ok = leagueBounds("wood")
	assert.False(t, ok)
}

func TestAllLeaguesIsACopy(t *testing.T) {
	out := AllLeagues()
	out[0].Name = "Mutated"
	assert.Equal(t, "Bronze", AllLeagues()[0].Name)
}
