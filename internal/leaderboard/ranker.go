// Package leaderboard ranks races across users.
package leaderboard

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/verte-zerg/typerush/internal/model"
)

// Default result sizes.
const (
	DefaultLimit      = 50
	DefaultQuoteLimit = 10
)

// AnonymousName is shown for races whose owner has no display name.
const AnonymousName = "Anonymous"

// RaceSource reads races from the authoritative store.
type RaceSource interface {
	ListAll(ctx context.Context, filter model.RaceFilter) ([]model.RaceRecord, error)
}

// NameResolver maps user ids to display names.
type NameResolver interface {
	DisplayNames(ctx context.Context, ids []string) (map[string]string, error)
}

// Ranker computes leaderboards. It holds no state between calls.
type Ranker struct {
	races RaceSource
	names NameResolver
	now   func() time.Time
}

// New creates a Ranker. now defaults to time.Now.
func New(races RaceSource, names NameResolver, now func() time.Time) *Ranker {
	if now == nil {
		now = time.Now
	}
	return &Ranker{races: races, names: names, now: now}
}

// ParsePeriod validates a period name. An empty name means all time.
func ParsePeriod(s string) (model.Period, error) {
	switch model.Period(s) {
	case "", model.PeriodAllTime:
		return model.PeriodAllTime, nil
	case model.PeriodWeekly, model.PeriodMonthly:
		return model.Period(s), nil
	default:
		return "", fmt.Errorf("%w: unknown period %q", model.ErrValidation, s)
	}
}

// PeriodStart returns the exclusive lower bound of a period, or nil for all
// time.
func PeriodStart(period model.Period, now time.Time) *time.Time {
	var start time.Time
	switch period {
	case model.PeriodWeekly:
		start = now.AddDate(0, 0, -7)
	case model.PeriodMonthly:
		start = now.AddDate(0, -1, 0)
	default:
		return nil
	}
	return &start
}

// Global ranks individual races by wpm. Every race is its own row, so one
// user can hold several places. Ties keep the earlier race first and rank
// is the row number.
func (r *Ranker) Global(ctx context.Context, limit int, quoteID *int, period model.Period) ([]model.LeaderboardEntry, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	races, err := r.races.ListAll(ctx, model.RaceFilter{
		QuoteID: quoteID,
		After:   PeriodStart(period, r.now()),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load races: %w", err)
	}
	sort.SliceStable(races, func(i, j int) bool {
		if races[i].WPM != races[j].WPM {
			return races[i].WPM > races[j].WPM
		}
		return races[i].CreatedAt.Before(races[j].CreatedAt)
	})
	if len(races) > limit {
		races = races[:limit]
	}

	names, err := r.resolve(ctx, races)
	if err != nil {
		return nil, err
	}
	entries := make([]model.LeaderboardEntry, 0, len(races))
	for i, race := range races {
		name := names[race.UserID]
		if name == "" {
			name = AnonymousName
		}
		entries = append(entries, model.LeaderboardEntry{
			Rank:        i + 1,
			UserID:      race.UserID,
			DisplayName: name,
			WPM:         race.WPM,
			Accuracy:    race.Accuracy,
			QuoteID:     race.QuoteID,
			QuoteSource: race.QuoteSource,
			Date:        race.CreatedAt,
		})
	}
	return entries, nil
}

// TopByQuote is the all-time leaderboard of one quote.
func (r *Ranker) TopByQuote(ctx context.Context, quoteID, limit int) ([]model.LeaderboardEntry, error) {
	if limit <= 0 {
		limit = DefaultQuoteLimit
	}
	return r.Global(ctx, limit, &quoteID, model.PeriodAllTime)
}

// UserRank ranks a user by personal best: one plus the number of distinct
// users whose best in the same scope is strictly faster. ok is false when
// the user has no race in scope.
func (r *Ranker) UserRank(ctx context.Context, userID string, quoteID *int) (rank int, ok bool, err error) {
	races, err := r.races.ListAll(ctx, model.RaceFilter{QuoteID: quoteID})
	if err != nil {
		return 0, false, fmt.Errorf("failed to load races: %w", err)
	}
	best := make(map[string]int)
	for _, race := range races {
		if cur, seen := best[race.UserID]; !seen || race.WPM > cur {
			best[race.UserID] = race.WPM
		}
	}
	mine, ok := best[userID]
	if !ok {
		return 0, false, nil
	}
	faster := 0
	for id, wpm := range best {
		if id != userID && wpm > mine {
			faster++
		}
	}
	return faster + 1, true, nil
}

func (r *Ranker) resolve(ctx context.Context, races []model.RaceRecord) (map[string]string, error) {
	if r.names == nil || len(races) == 0 {
		return map[string]string{}, nil
	}
	seen := make(map[string]struct{}, len(races))
	ids := make([]string, 0, len(races))
	for _, race := range races {
		if _, dup := seen[race.UserID]; dup || race.UserID == "" {
			continue
		}
		seen[race.UserID] = struct{}{}
		ids = append(ids, race.UserID)
	}
	names, err := r.names.DisplayNames(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve display names: %w", err)
	}
	return names, nil
}
