package records

import (
	"math"

	"github.com/verte-zerg/typerush/internal/model"
)

// Recompute derives bests, per-quote records and stats from a newest-first
// history. The result holds its own copy of history.
func Recompute(history []model.RaceRecord) model.PersonalStore {
	data := Empty()
	data.RaceHistory = append(data.RaceHistory, history...)
	sumWPM := 0
	sumAccuracy := 0.0
	for i := len(history) - 1; i >= 0; i-- {
		rec := history[i]
		if cur, ok := data.QuoteRecords[rec.QuoteID]; !ok || beats(rec, cur) {
			data.QuoteRecords[rec.QuoteID] = quoteRecordOf(rec)
		}
		if rec.WPM > data.OverallBestWPM {
			data.OverallBestWPM = rec.WPM
		}
		if rec.Accuracy > data.OverallBestAccuracy {
			data.OverallBestAccuracy = rec.Accuracy
		}
		sumWPM += rec.WPM
		sumAccuracy += rec.Accuracy
		data.Stats = appendStats(data.Stats, rec, len(history)-i, sumWPM, sumAccuracy)
	}
	return data
}

// beats reports whether rec replaces cur as the per-quote best: higher wpm,
// or equal wpm set earlier.
func beats(rec model.RaceRecord, cur model.QuoteRecord) bool {
	if rec.WPM != cur.WPM {
		return rec.WPM > cur.WPM
	}
	return rec.CreatedAt.Before(cur.CreatedAt)
}

func quoteRecordOf(rec model.RaceRecord) model.QuoteRecord {
	return model.QuoteRecord{
		WPM:         rec.WPM,
		Accuracy:    rec.Accuracy,
		TimeSeconds: rec.TimeSeconds,
		CreatedAt:   rec.CreatedAt,
	}
}

// appendStats folds rec, the count-th oldest race, into stats.
func appendStats(stats model.AggregateStats, rec model.RaceRecord, count, sumWPM int, sumAccuracy float64) model.AggregateStats {
	stats.TotalRaces = count
	stats.TotalTimeSpent += rec.TimeSeconds
	if count > 0 {
		stats.AverageWPM = int(math.Round(float64(sumWPM) / float64(count)))
		stats.AverageAccuracy = math.Round(sumAccuracy/float64(count)*10) / 10
	}
	if rec.RewardName != "" && !contains(stats.RewardsCollected, rec.RewardName) {
		stats.RewardsCollected = append(stats.RewardsCollected, rec.RewardName)
	}
	return stats
}

func contains(items []string, needle string) bool {
	for _, item := range items {
		if item == needle {
			return true
		}
	}
	return false
}
