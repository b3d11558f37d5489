package main

type League struct {
	LeagueID  string `json:"leagueId"`
	Name      string `json:"name"`
	Threshold int64  `json:"threshold"`
}

// League bands on lifetime earnings. Lifetime earnings never decrease, so a
// player can only move up the table.
var leagues = []League{
	{LeagueID: "bronze", Name: "Bronze", Threshold: 0},
	{LeagueID: "silver", Name: "Silver", Threshold: 5_000},
	{LeagueID: "gold", Name: "Gold", Threshold: 25_000},
	{LeagueID: "platinum", Name: "Platinum", Threshold: 100_000},
	{LeagueID: "diamond", Name: "Diamond", Threshold: 500_000},
	{LeagueID: "master", Name: "Master", Threshold: 2_000_000},
}

func AllLeagues() []League {
	out := make([]League, len(leagues))
	copy(out, leagues)
	return out
}

func LeagueFor(lifetimeEarned int64) League {
	current := leagues[0]
	for _, l := range leagues {
		if lifetimeEarned >= l.Threshold {
			current = l
		}
	}
	return current
}

// NextLeague returns the band above the player's current one, or nil at the
// top of the table.
func NextLeague(lifetimeEarned int64) *League {
	for i := range leagues {
		if lifetimeEarned < leagues[i].Threshold {
			next := leagues[i]
			return &next
		}
	}
	return nil
}
