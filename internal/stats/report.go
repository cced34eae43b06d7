package stats

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/verte-zerg/typerush/internal/model"
	"github.com/verte-zerg/typerush/internal/records"
)

// DefaultTrendDays is the trend window of the dashboard.
const DefaultTrendDays = 30

// Dashboard is every statistic shown by the stats command.
type Dashboard struct {
	TotalRaces      int
	TotalTime       string
	AverageWPM      int
	AverageAccuracy float64
	BestWPM         int
	BestAccuracy    float64
	TotalErrors     int
	Improvement     *Improvement
	Streaks         Streaks
	Collection      Collection
	Favourite       *records.RewardCount
	MostPlayed      []records.QuoteCount
	AccuracyBuckets []Bucket
	WPMBuckets      []Bucket
	Trend           []TrendPoint
}

// Build derives the dashboard from a snapshot of the personal store.
func Build(data model.PersonalStore, rewardPool int, now time.Time, trendDays int) Dashboard {
	if trendDays <= 0 {
		trendDays = DefaultTrendDays
	}
	history := data.RaceHistory
	d := Dashboard{
		TotalRaces:      data.Stats.TotalRaces,
		TotalTime:       FormatTotalTime(data.Stats.TotalTimeSpent),
		AverageWPM:      data.Stats.AverageWPM,
		AverageAccuracy: data.Stats.AverageAccuracy,
		BestWPM:         data.OverallBestWPM,
		BestAccuracy:    data.OverallBestAccuracy,
		TotalErrors:     TotalErrors(history),
		Improvement:     WPMImprovement(history),
		Streaks:         StreakStats(history, now),
		Collection:      CollectionProgress(data.Stats.RewardsCollected, rewardPool),
		MostPlayed:      MostPlayed(history),
		AccuracyBuckets: AccuracyBuckets(history),
		WPMBuckets:      WPMBuckets(history),
		Trend:           WPMTrend(history, now, trendDays),
	}
	if fav, ok := FavouriteReward(history); ok {
		d.Favourite = &fav
	}
	return d
}

// RenderDashboard prints the dashboard. width bounds the trend sparkline.
func RenderDashboard(w io.Writer, d Dashboard, width int) error {
	if d.TotalRaces == 0 {
		_, err := fmt.Fprintln(w, "No races yet.")
		return err
	}
	lines := []string{
		"Summary",
		fmt.Sprintf("Races: %d", d.TotalRaces),
		fmt.Sprintf("Time typing: %s", d.TotalTime),
		fmt.Sprintf("Avg WPM: %d", d.AverageWPM),
		fmt.Sprintf("Best WPM: %d", d.BestWPM),
		fmt.Sprintf("Avg Accuracy: %.1f%%", d.AverageAccuracy),
		fmt.Sprintf("Best Accuracy: %.1f%%", d.BestAccuracy),
		fmt.Sprintf("Errors: %d", d.TotalErrors),
		fmt.Sprintf("Streak: %d days (longest %d)", d.Streaks.Current, d.Streaks.Longest),
		fmt.Sprintf("Collection: %d/%d (%d%%)", d.Collection.Caught, d.Collection.Total, d.Collection.Percentage),
	}
	if d.Favourite != nil {
		lines = append(lines, fmt.Sprintf("Favourite: %s (x%d)", d.Favourite.Name, d.Favourite.Count))
	}
	if d.Improvement != nil {
		lines = append(lines, fmt.Sprintf("Improvement: %+d WPM (%d -> %d, %+d%%)",
			d.Improvement.Improvement, d.Improvement.OldAverage, d.Improvement.NewAverage, d.Improvement.PercentChange))
	}
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}

	if len(d.Trend) > 0 {
		values := make([]float64, len(d.Trend))
		for i, p := range d.Trend {
			values[i] = float64(p.AverageWPM)
		}
		values = MovingAverage(values, 3)
		if width > 0 && len(values) > width {
			values = values[len(values)-width:]
		}
		if _, err := fmt.Fprintf(w, "\nWPM trend (%s .. %s)\n%s\n", d.Trend[0].Date, d.Trend[len(d.Trend)-1].Date, Sparkline(values)); err != nil {
			return err
		}
	}

	if err := renderBuckets(w, "Accuracy", d.AccuracyBuckets); err != nil {
		return err
	}
	if err := renderBuckets(w, "WPM", d.WPMBuckets); err != nil {
		return err
	}

	if len(d.MostPlayed) > 0 {
		if _, err := fmt.Fprintln(w, "\nMost played"); err != nil {
			return err
		}
		rows := make([][]string, 0, len(d.MostPlayed))
		for _, q := range d.MostPlayed {
			rows = append(rows, []string{strconv.Itoa(q.QuoteID), q.QuoteSource, strconv.Itoa(q.Count)})
		}
		if err := writeTable(w, []string{"Quote", "Source", "Races"}, rows, map[int]bool{0: true, 2: true}); err != nil {
			return err
		}
	}
	return nil
}

func renderBuckets(w io.Writer, title string, buckets []Bucket) error {
	if _, err := fmt.Fprintf(w, "\n%s\n", title); err != nil {
		return err
	}
	rows := make([][]string, 0, len(buckets))
	for _, b := range buckets {
		rows = append(rows, []string{b.Range, strconv.Itoa(b.Count), fmt.Sprintf("%d%%", b.Percentage)})
	}
	return writeTable(w, []string{"Range", "Races", "Share"}, rows, map[int]bool{1: true, 2: true})
}

// RenderHistory prints a page of races.
func RenderHistory(w io.Writer, page model.HistoryPage) error {
	if len(page.Records) == 0 {
		_, err := fmt.Fprintln(w, "No races found.")
		return err
	}
	rows := make([][]string, 0, len(page.Records))
	for _, rec := range page.Records {
		rows = append(rows, []string{
			rec.CreatedAt.Local().Format("2006-01-02 15:04"),
			strconv.Itoa(rec.QuoteID),
			rec.QuoteSource,
			strconv.Itoa(rec.WPM),
			fmt.Sprintf("%.0f%%", rec.Accuracy),
			FormatTotalTime(rec.TimeSeconds),
			strconv.Itoa(rec.Errors),
			rec.RewardName,
		})
	}
	headers := []string{"Date", "Quote", "Source", "WPM", "Acc", "Time", "Errors", "Reward"}
	if err := writeTable(w, headers, rows, map[int]bool{1: true, 3: true, 4: true, 5: true, 6: true}); err != nil {
		return err
	}
	if page.HasMore {
		_, err := fmt.Fprintf(w, "Showing %d of %d races.\n", len(page.Records), page.Total)
		return err
	}
	return nil
}

// RenderQuoteBests prints the per-quote bests.
func RenderQuoteBests(w io.Writer, bests []records.QuoteBest, sources map[int]string) error {
	if len(bests) == 0 {
		_, err := fmt.Fprintln(w, "No personal bests yet.")
		return err
	}
	rows := make([][]string, 0, len(bests))
	for _, b := range bests {
		rows = append(rows, []string{
			strconv.Itoa(b.QuoteID),
			sources[b.QuoteID],
			strconv.Itoa(b.WPM),
			fmt.Sprintf("%.0f%%", b.Accuracy),
			b.CreatedAt.Local().Format(time.DateOnly),
		})
	}
	return writeTable(w, []string{"Quote", "Source", "Best WPM", "Acc", "Date"}, rows, map[int]bool{0: true, 2: true, 3: true})
}

// RenderLeaderboard prints leaderboard entries. highlight marks a user's rows.
func RenderLeaderboard(w io.Writer, entries []model.LeaderboardEntry, highlight string) error {
	if len(entries) == 0 {
		_, err := fmt.Fprintln(w, "No races on this leaderboard yet.")
		return err
	}
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		name := e.DisplayName
		if highlight != "" && e.UserID == highlight {
			name += " *"
		}
		rows = append(rows, []string{
			strconv.Itoa(e.Rank),
			name,
			strconv.Itoa(e.WPM),
			fmt.Sprintf("%.0f%%", e.Accuracy),
			e.QuoteSource,
			e.Date.Local().Format(time.DateOnly),
		})
	}
	return writeTable(w, []string{"#", "Player", "WPM", "Acc", "Quote", "Date"}, rows, map[int]bool{0: true, 2: true, 3: true})
}
