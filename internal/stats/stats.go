// Package stats derives dashboard statistics from the race history and
// renders them as text.
package stats

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/verte-zerg/typerush/internal/model"
	"github.com/verte-zerg/typerush/internal/records"
)

const sparkChars = " .:-=+*#%@"

// Improvement compares the oldest and newest races.
type Improvement struct {
	OldAverage    int
	NewAverage    int
	Improvement   int
	PercentChange int
}

// Bucket is one bar of a distribution.
type Bucket struct {
	Range      string
	Count      int
	Percentage int
}

// Streaks counts consecutive UTC days with at least one race.
type Streaks struct {
	Current int
	Longest int
}

// TrendPoint is the race summary of one UTC day.
type TrendPoint struct {
	Date       string
	AverageWPM int
	RaceCount  int
	BestWPM    int
}

// Collection is the reward collection progress.
type Collection struct {
	Caught     int
	Total      int
	Percentage int
}

// improvementWindow is the number of races averaged at each end of the
// history. Improvement needs twice as many races.
const improvementWindow = 5

// MostPlayedLimit caps the most played quotes list.
const MostPlayedLimit = 5

// FormatTotalTime renders seconds as "42s", "3m 5s" or "2h 10m".
func FormatTotalTime(seconds float64) string {
	switch {
	case seconds < 60:
		return fmt.Sprintf("%ds", int(math.Round(seconds)))
	case seconds < 3600:
		minutes := int(seconds / 60)
		secs := int(math.Round(math.Mod(seconds, 60)))
		return fmt.Sprintf("%dm %ds", minutes, secs)
	default:
		hours := int(seconds / 3600)
		minutes := int(math.Mod(seconds, 3600) / 60)
		return fmt.Sprintf("%dh %dm", hours, minutes)
	}
}

// TotalErrors sums errors over the history.
func TotalErrors(history []model.RaceRecord) int {
	total := 0
	for _, rec := range history {
		total += rec.Errors
	}
	return total
}

// WPMImprovement compares the five oldest with the five newest races of a
// newest-first history. It is nil with fewer than ten races.
func WPMImprovement(history []model.RaceRecord) *Improvement {
	if len(history) < 2*improvementWindow {
		return nil
	}
	newAvg := averageWPM(history[:improvementWindow])
	oldAvg := averageWPM(history[len(history)-improvementWindow:])
	imp := &Improvement{
		OldAverage:  int(math.Round(oldAvg)),
		NewAverage:  int(math.Round(newAvg)),
		Improvement: int(math.Round(newAvg - oldAvg)),
	}
	if oldAvg > 0 {
		imp.PercentChange = int(math.Round((newAvg - oldAvg) / oldAvg * 100))
	}
	return imp
}

func averageWPM(races []model.RaceRecord) float64 {
	if len(races) == 0 {
		return 0
	}
	sum := 0
	for _, r := range races {
		sum += r.WPM
	}
	return float64(sum) / float64(len(races))
}

// AccuracyBuckets groups races by accuracy, best bucket first.
func AccuracyBuckets(history []model.RaceRecord) []Bucket {
	buckets := []Bucket{{Range: "100%"}, {Range: "95-99%"}, {Range: "90-94%"}, {Range: "80-89%"}, {Range: "<80%"}}
	for _, rec := range history {
		switch acc := rec.Accuracy; {
		case acc >= 100:
			buckets[0].Count++
		case acc >= 95:
			buckets[1].Count++
		case acc >= 90:
			buckets[2].Count++
		case acc >= 80:
			buckets[3].Count++
		default:
			buckets[4].Count++
		}
	}
	return withPercentages(buckets, len(history))
}

// WPMBuckets groups races by speed, fastest bucket first.
func WPMBuckets(history []model.RaceRecord) []Bucket {
	buckets := []Bucket{{Range: "100+"}, {Range: "80-99"}, {Range: "60-79"}, {Range: "40-59"}, {Range: "<40"}}
	for _, rec := range history {
		switch wpm := rec.WPM; {
		case wpm >= 100:
			buckets[0].Count++
		case wpm >= 80:
			buckets[1].Count++
		case wpm >= 60:
			buckets[2].Count++
		case wpm >= 40:
			buckets[3].Count++
		default:
			buckets[4].Count++
		}
	}
	return withPercentages(buckets, len(history))
}

func withPercentages(buckets []Bucket, total int) []Bucket {
	if total == 0 {
		return buckets
	}
	for i := range buckets {
		buckets[i].Percentage = int(math.Round(float64(buckets[i].Count) / float64(total) * 100))
	}
	return buckets
}

func dayKey(t time.Time) string {
	return t.UTC().Format(time.DateOnly)
}

// StreakStats computes the current and longest daily streaks. The current
// streak only counts when the latest race day is today or yesterday.
func StreakStats(history []model.RaceRecord, now time.Time) Streaks {
	if len(history) == 0 {
		return Streaks{}
	}
	seen := map[string]struct{}{}
	var days []time.Time
	for _, rec := range history {
		key := dayKey(rec.CreatedAt)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		day, _ := time.Parse(time.DateOnly, key)
		days = append(days, day)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].After(days[j]) })

	consecutive := func(i int) bool {
		return days[i-1].Sub(days[i]) == 24*time.Hour
	}

	var streaks Streaks
	today := dayKey(now)
	yesterday := dayKey(now.Add(-24 * time.Hour))
	if latest := days[0].Format(time.DateOnly); latest == today || latest == yesterday {
		streaks.Current = 1
		for i := 1; i < len(days) && consecutive(i); i++ {
			streaks.Current++
		}
	}
	streaks.Longest = 1
	run := 1
	for i := 1; i < len(days); i++ {
		if consecutive(i) {
			run++
		} else {
			run = 1
		}
		if run > streaks.Longest {
			streaks.Longest = run
		}
	}
	return streaks
}

// WPMTrend summarizes races per UTC day over the last days, oldest day first.
func WPMTrend(history []model.RaceRecord, now time.Time, days int) []TrendPoint {
	cutoff := now.AddDate(0, 0, -days)
	byDay := map[string][]model.RaceRecord{}
	for _, rec := range history {
		if rec.CreatedAt.Before(cutoff) {
			continue
		}
		key := dayKey(rec.CreatedAt)
		byDay[key] = append(byDay[key], rec)
	}
	out := make([]TrendPoint, 0, len(byDay))
	for day, races := range byDay {
		best := 0
		for _, r := range races {
			if r.WPM > best {
				best = r.WPM
			}
		}
		out = append(out, TrendPoint{
			Date:       day,
			AverageWPM: int(math.Round(averageWPM(races))),
			RaceCount:  len(races),
			BestWPM:    best,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}

// CollectionProgress reports collected distinct rewards against the pool size.
func CollectionProgress(collected []string, poolSize int) Collection {
	c := Collection{Caught: len(collected), Total: poolSize}
	if poolSize > 0 {
		c.Percentage = int(math.Round(float64(c.Caught) / float64(poolSize) * 100))
	}
	return c
}

// MostPlayed returns up to MostPlayedLimit quotes by race count.
func MostPlayed(history []model.RaceRecord) []records.QuoteCount {
	counts := records.CountByQuote(history)
	if len(counts) > MostPlayedLimit {
		counts = counts[:MostPlayedLimit]
	}
	return counts
}

// FavouriteReward returns the most collected reward.
func FavouriteReward(history []model.RaceRecord) (records.RewardCount, bool) {
	counts := records.CountByReward(history)
	if len(counts) == 0 {
		return records.RewardCount{}, false
	}
	return counts[0], true
}

// MovingAverage computes a rolling mean over the provided window size.
func MovingAverage(values []float64, window int) []float64 {
	if window <= 1 || len(values) == 0 {
		out := make([]float64, len(values))
		copy(out, values)
		return out
	}
	out := make([]float64, len(values))
	var sum float64
	for i := 0; i < len(values); i++ {
		sum += values[i]
		if i >= window {
			sum -= values[i-window]
		}
		den := float64(i + 1)
		if i >= window {
			den = float64(window)
		}
		out[i] = sum / den
	}
	return out
}

// Sparkline renders a single-line ASCII sparkline for the values.
func Sparkline(values []float64) string {
	if len(values) == 0 {
		return ""
	}
	minVal, maxVal := values[0], values[0]
	for _, v := range values[1:] {
		minVal = math.Min(minVal, v)
		maxVal = math.Max(maxVal, v)
	}
	if math.Abs(maxVal-minVal) < 1e-9 {
		return strings.Repeat(string(sparkChars[len(sparkChars)/2]), len(values))
	}
	var b strings.Builder
	for _, v := range values {
		pos := (v - minVal) / (maxVal - minVal)
		idx := int(math.Round(pos * float64(len(sparkChars)-1)))
		idx = max(0, min(idx, len(sparkChars)-1))
		b.WriteByte(sparkChars[idx])
	}
	return b.String()
}
