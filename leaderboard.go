package main

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
)

type leaderboardFilters struct {
	Query    string
	League   string
	Sort     string
	Page     int
	PageSize int
}

type LeaderboardEntry struct {
	Rank           int    `json:"rank"`
	PlayerID       string `json:"playerId"`
	DisplayName    string `json:"displayName"`
	LifetimeEarned int64  `json:"lifetimeEarned"`
	Coins          int64  `json:"coins"`
	MintCount      int    `json:"mintCount"`
	League         string `json:"league"`
	ActiveSkin     string `json:"activeSkin"`
}

type LeaderboardResponse struct {
	Page     int                `json:"page"`
	PageSize int                `json:"pageSize"`
	Total    int                `json:"total"`
	Results  []LeaderboardEntry `json:"results"`
}

func leaderboardHandler(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filters := parseLeaderboardFilters(r)
		orderBy := leaderboardOrderBy(filters.Sort)

		whereClauses := []string{"1=1"}
		args := []interface{}{}
		argIndex := 1

		if filters.Query != "" {
			whereClauses = append(whereClauses, "(a.username ILIKE $"+strconv.Itoa(argIndex)+" OR a.display_name ILIKE $"+strconv.Itoa(argIndex)+")")
			args = append(args, "%"+filters.Query+"%")
			argIndex++
		}

		if filters.League != "" {
			lo, hi, ok := leagueBounds(filters.League)
			if !ok {
				writeJSON(w, SimpleResponse{OK: false, Error: "NOT_FOUND"})
				return
			}
			whereClauses = append(whereClauses, "p.lifetime_earned >= $"+strconv.Itoa(argIndex))
			args = append(args, lo)
			argIndex++
			if hi > 0 {
				whereClauses = append(whereClauses, "p.lifetime_earned < $"+strconv.Itoa(argIndex))
				args = append(args, hi)
				argIndex++
			}
		}

		baseCTE := fmt.Sprintf(`
			WITH player_stats AS (
				SELECT
					p.player_id,
					p.coins,
					p.lifetime_earned,
					p.active_skin,
					p.created_at,
					COALESCE(a.display_name, a.username, p.player_id) AS display_name,
					COUNT(pm.instance_id) AS mint_count
				FROM players p
				LEFT JOIN accounts a ON a.player_id = p.player_id
				LEFT JOIN player_mints pm ON pm.player_id = p.player_id
				WHERE %s
				GROUP BY p.player_id, p.coins, p.lifetime_earned, p.active_skin, p.created_at, a.display_name, a.username
			)
		`, strings.Join(whereClauses, " AND "))

		countQuery := baseCTE + "SELECT COUNT(*) FROM player_stats"
		var total int
		if err := db.QueryRow(countQuery, args...).Scan(&total); err != nil {
			writeJSON(w, SimpleResponse{OK: false, Error: "INTERNAL_ERROR"})
			return
		}

		offset := (filters.Page - 1) * filters.PageSize
		argsWithPage := append(args, filters.PageSize, offset)
		resultsQuery := fmt.Sprintf(`
			%s
			SELECT
				ROW_NUMBER() OVER (ORDER BY %s) AS rank,
				player_id,
				display_name,
				lifetime_earned,
				coins,
				mint_count,
				active_skin
			FROM player_stats
			ORDER BY %s
			LIMIT $%d OFFSET $%d
		`, baseCTE, orderBy, orderBy, len(args)+1, len(args)+2)

		rows, err := db.Query(resultsQuery, argsWithPage...)
		if err != nil {
			writeJSON(w, SimpleResponse{OK: false, Error: "INTERNAL_ERROR"})
			return
		}
		defer rows.Close()

		results := []LeaderboardEntry{}
		for rows.Next() {
			var entry LeaderboardEntry
			if err := rows.Scan(&entry.Rank, &entry.PlayerID, &entry.DisplayName, &entry.LifetimeEarned, &entry.Coins, &entry.MintCount, &entry.ActiveSkin); err != nil {
				continue
			}
			entry.League = LeagueFor(entry.LifetimeEarned).LeagueID
			results = append(results, entry)
		}

		json.NewEncoder(w).Encode(LeaderboardResponse{
			Page:     filters.Page,
			PageSize: filters.PageSize,
			Total:    total,
			Results:  results,
		})
	}
}

func parseLeaderboardFilters(r *http.Request) leaderboardFilters {
	query := r.URL.Query()
	page := parsePositiveInt(query.Get("page"), 1)
	pageSize := parsePositiveInt(query.Get("pageSize"), 50)
	if pageSize > 200 {
		pageSize = 200
	}

	return leaderboardFilters{
		Query:    strings.TrimSpace(query.Get("q")),
		League:   strings.TrimSpace(query.Get("league")),
		Sort:     strings.TrimSpace(query.Get("sort")),
		Page:     page,
		PageSize: pageSize,
	}
}

// leagueBounds returns the half-open lifetime-earnings interval for a league
// band; hi is 0 for the top band.
func leagueBounds(leagueID string) (lo int64, hi int64, ok bool) {
	for i, l := range leagues {
		if l.LeagueID != leagueID {
			continue
		}
		lo = l.Threshold
		if i+1 < len(leagues) {
			hi = leagues[i+1].Threshold
		}
		return lo, hi, true
	}
	return 0, 0, false
}

func leaderboardOrderBy(sortKey string) string {
	switch sortKey {
	case "earned_asc":
		return "lifetime_earned ASC, created_at ASC, player_id ASC"
	case "coins_desc":
		return "coins DESC, lifetime_earned DESC, created_at ASC, player_id ASC"
	case "mints_desc":
		return "mint_count DESC, lifetime_earned DESC, created_at ASC, player_id ASC"
	case "earned_desc", "":
		fallthrough
	default:
		return "lifetime_earned DESC, created_at ASC, player_id ASC"
	}
}

func parsePositiveInt(value string, fallback int) int {
	parsed, err := strconv.Atoi(value)
	if err != nil || parsed < 1 {
		return fallback
	}
	return parsed
}
