package records

import (
	"sort"

	"github.com/verte-zerg/typerush/internal/model"
)

// QuoteBest pairs a quote id with its best record.
type QuoteBest struct {
	QuoteID int
	model.QuoteRecord
}

// QuoteCount is the number of races run on one quote.
type QuoteCount struct {
	QuoteID     int
	QuoteSource string
	Count       int
}

// RewardCount is the number of times a reward was collected.
type RewardCount struct {
	Name  string
	Count int
}

// Query filters, sorts and paginates the history without mutating it.
// A zero Limit returns every matching record.
func (s *Store) Query(q model.HistoryQuery) model.HistoryPage {
	s.mu.Lock()
	history := append([]model.RaceRecord{}, s.data.RaceHistory...)
	s.mu.Unlock()

	filtered := history[:0]
	for _, rec := range history {
		if q.QuoteID != nil && rec.QuoteID != *q.QuoteID {
			continue
		}
		if q.RewardName != "" && rec.RewardName != q.RewardName {
			continue
		}
		if q.Since != nil && rec.CreatedAt.Before(*q.Since) {
			continue
		}
		if q.Until != nil && rec.CreatedAt.After(*q.Until) {
			continue
		}
		filtered = append(filtered, rec)
	}

	less := lessFor(q.SortBy)
	sort.SliceStable(filtered, func(i, j int) bool {
		if q.Ascending {
			return less(filtered[i], filtered[j])
		}
		return less(filtered[j], filtered[i])
	})

	total := len(filtered)
	offset := q.Offset
	if offset < 0 {
		offset = 0
	}
	if offset > total {
		offset = total
	}
	end := total
	if q.Limit > 0 && offset+q.Limit < total {
		end = offset + q.Limit
	}
	return model.HistoryPage{
		Records: append([]model.RaceRecord{}, filtered[offset:end]...),
		Total:   total,
		HasMore: end < total,
	}
}

func lessFor(field model.SortField) func(a, b model.RaceRecord) bool {
	switch field {
	case model.SortByWPM:
		return func(a, b model.RaceRecord) bool { return a.WPM < b.WPM }
	case model.SortByAccuracy:
		return func(a, b model.RaceRecord) bool { return a.Accuracy < b.Accuracy }
	case model.SortByTime:
		return func(a, b model.RaceRecord) bool { return a.TimeSeconds < b.TimeSeconds }
	case model.SortByErrors:
		return func(a, b model.RaceRecord) bool { return a.Errors < b.Errors }
	default:
		return func(a, b model.RaceRecord) bool { return a.CreatedAt.Before(b.CreatedAt) }
	}
}

// QuoteRecord returns the best record for quoteID, if any.
func (s *Store) QuoteRecord(quoteID int) (model.QuoteRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.data.QuoteRecords[quoteID]
	return rec, ok
}

// OverallBest returns the best wpm and best accuracy over the history.
func (s *Store) OverallBest() (int, float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.OverallBestWPM, s.data.OverallBestAccuracy
}

// IsNewRecord reports whether wpm would beat the current best for quoteID.
func (s *Store) IsNewRecord(quoteID, wpm int) bool {
	rec, ok := s.QuoteRecord(quoteID)
	return !ok || wpm > rec.WPM
}

// IsNewOverallRecord reports whether wpm would beat the overall best.
func (s *Store) IsNewOverallRecord(wpm int) bool {
	best, _ := s.OverallBest()
	return wpm > best
}

// Stats returns the aggregate stats.
func (s *Store) Stats() model.AggregateStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	stats := s.data.Stats
	stats.RewardsCollected = append([]string{}, stats.RewardsCollected...)
	return stats
}

// History returns the newest-first history.
func (s *Store) History() []model.RaceRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.RaceRecord{}, s.data.RaceHistory...)
}

// Len returns the number of recorded races.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.data.RaceHistory)
}

// Snapshot returns a deep copy of the whole document.
func (s *Store) Snapshot() model.PersonalStore {
	s.mu.Lock()
	defer s.mu.Unlock()
	return clone(s.data)
}

// BestPerQuote lists per-quote bests, fastest first.
func (s *Store) BestPerQuote() []QuoteBest {
	s.mu.Lock()
	out := make([]QuoteBest, 0, len(s.data.QuoteRecords))
	for id, rec := range s.data.QuoteRecords {
		out = append(out, QuoteBest{QuoteID: id, QuoteRecord: rec})
	}
	s.mu.Unlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].WPM == out[j].WPM {
			return out[i].QuoteID < out[j].QuoteID
		}
		return out[i].WPM > out[j].WPM
	})
	return out
}

// UniqueQuotes lists the ids of quotes raced at least once, ascending.
func (s *Store) UniqueQuotes() []int {
	counts := s.RaceCountByQuote()
	ids := make([]int, 0, len(counts))
	for _, c := range counts {
		ids = append(ids, c.QuoteID)
	}
	sort.Ints(ids)
	return ids
}

// RaceCountByQuote counts races per quote, most played first.
func (s *Store) RaceCountByQuote() []QuoteCount {
	return CountByQuote(s.History())
}

// RaceCountByReward counts races per reward name, most collected first.
func (s *Store) RaceCountByReward() []RewardCount {
	return CountByReward(s.History())
}

// CountByQuote counts races per quote, most played first.
func CountByQuote(history []model.RaceRecord) []QuoteCount {
	idx := map[int]int{}
	var out []QuoteCount
	for _, rec := range history {
		i, ok := idx[rec.QuoteID]
		if !ok {
			idx[rec.QuoteID] = len(out)
			out = append(out, QuoteCount{QuoteID: rec.QuoteID, QuoteSource: rec.QuoteSource})
			i = len(out) - 1
		}
		out[i].Count++
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	return out
}

// CountByReward counts races per non-empty reward name, most collected first.
func CountByReward(history []model.RaceRecord) []RewardCount {
	idx := map[string]int{}
	var out []RewardCount
	for _, rec := range history {
		if rec.RewardName == "" {
			continue
		}
		i, ok := idx[rec.RewardName]
		if !ok {
			idx[rec.RewardName] = len(out)
			out = append(out, RewardCount{Name: rec.RewardName})
			i = len(out) - 1
		}
		out[i].Count++
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	return out
}
