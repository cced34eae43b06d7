// Package model defines shared data structures.
package model

import "time"

// Quote is a passage from the practice corpus.
type Quote struct {
	ID     int    `json:"id" toml:"id"`
	Text   string `json:"text" toml:"text"`
	Source string `json:"source" toml:"source"`
}

// RaceRecord captures one completed typing race.
type RaceRecord struct {
	ID          string    `json:"id"`
	UserID      string    `json:"userId,omitempty"`
	QuoteID     int       `json:"quoteId"`
	QuoteSource string    `json:"quoteSource"`
	WPM         int       `json:"wpm" validate:"gte=0,lte=500"`
	Accuracy    float64   `json:"accuracy" validate:"gte=0,lte=100"`
	TimeSeconds float64   `json:"timeSeconds" validate:"gte=0"`
	Errors      int       `json:"errors" validate:"gte=0"`
	RewardName  string    `json:"pokemonName"`
	CreatedAt   time.Time `json:"createdAt"`
}

// QuoteRecord is the best race recorded for one quote.
type QuoteRecord struct {
	WPM         int       `json:"wpm"`
	Accuracy    float64   `json:"accuracy"`
	TimeSeconds float64   `json:"timeSeconds"`
	CreatedAt   time.Time `json:"createdAt"`
}

// AggregateStats summarizes the whole race history.
type AggregateStats struct {
	TotalRaces       int      `json:"totalRaces"`
	TotalTimeSpent   float64  `json:"totalTimeSpent"`
	AverageWPM       int      `json:"averageWpm"`
	AverageAccuracy  float64  `json:"averageAccuracy"`
	RewardsCollected []string `json:"pokemonCaught"`
}

// PersonalStore is the local document holding a user's history and bests.
type PersonalStore struct {
	OverallBestWPM      int                 `json:"overallBestWpm"`
	OverallBestAccuracy float64             `json:"overallBestAccuracy"`
	QuoteRecords        map[int]QuoteRecord `json:"quoteRecords"`
	RaceHistory         []RaceRecord        `json:"raceHistory"`
	Stats               AggregateStats      `json:"stats"`
}

// SortField selects the ordering key for history queries.
type SortField string

// Supported history sort fields.
const (
	SortByDate     SortField = "date"
	SortByWPM      SortField = "wpm"
	SortByAccuracy SortField = "accuracy"
	SortByTime     SortField = "time"
	SortByErrors   SortField = "errors"
)

// HistoryQuery filters, sorts and paginates the local race history.
type HistoryQuery struct {
	QuoteID    *int
	RewardName string
	Since      *time.Time
	Until      *time.Time
	SortBy     SortField
	Ascending  bool
	Limit      int
	Offset     int
}

// HistoryPage is one page of a history query.
type HistoryPage struct {
	Records []RaceRecord `json:"data"`
	Total   int          `json:"total"`
	HasMore bool         `json:"hasMore"`
}

// RacePage is one page of remotely stored races for a user.
type RacePage struct {
	Records []RaceRecord `json:"data"`
	Total   int          `json:"total"`
}

// RaceFilter narrows races read from the authoritative store.
type RaceFilter struct {
	UserID  string
	QuoteID *int
	// After keeps races created strictly after the instant.
	After *time.Time
}

// User is a registered account.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	DisplayName  string    `json:"displayName"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}

// AuthResult is returned by register and login.
type AuthResult struct {
	User  User   `json:"user"`
	Token string `json:"token"`
}

// Period restricts leaderboards to a trailing time window.
type Period string

// Leaderboard periods.
const (
	PeriodWeekly  Period = "weekly"
	PeriodMonthly Period = "monthly"
	PeriodAllTime Period = "alltime"
)

// LeaderboardEntry is one computed leaderboard row.
type LeaderboardEntry struct {
	Rank        int       `json:"rank"`
	UserID      string    `json:"userId"`
	DisplayName string    `json:"displayName"`
	WPM         int       `json:"wpm"`
	Accuracy    float64   `json:"accuracy"`
	QuoteID     int       `json:"quoteId"`
	QuoteSource string    `json:"quoteSource"`
	Date        time.Time `json:"date"`
}

// UserRank is the rank of a user by personal best.
type UserRank struct {
	UserID string `json:"userId"`
	Rank   *int   `json:"rank"`
}

// RaceSummary is the server-side aggregate for one user's races.
type RaceSummary struct {
	AggregateStats
	BestWPM      int     `json:"bestWpm"`
	BestAccuracy float64 `json:"bestAccuracy"`
}
