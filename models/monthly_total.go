package models

import (
	"time"
)

// MonthlyTotal is the cached running sum for a (store, talent, month) key.
// It is a materialized view over SettledPayment and can be rebuilt at any time.
type MonthlyTotal struct {
	StoreID     string    `db:"store_id"`
	TalentID    string    `db:"talent_id"`
	MonthKey    string    `db:"month_key"`
	TotalAmount int64     `db:"total_amount"`
	RefreshedAt time.Time `db:"refreshed_at"`
}

// RankingEntry is one row of a store leaderboard
type RankingEntry struct {
	Rank        int     `json:"rank"`
	TalentID    string  `json:"talentId"`
	Name        string  `json:"name"`
	Slug        string  `json:"slug"`
	TotalAmount int64   `json:"totalAmount"`
	PhotoURL    *string `json:"photoUrl"`
}

// Ranking is a store leaderboard for one civil month
type Ranking struct {
	Month string          `json:"month"`
	Items []*RankingEntry `json:"items"`
}
