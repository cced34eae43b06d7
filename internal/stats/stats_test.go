package stats

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/verte-zerg/typerush/internal/model"
	"github.com/verte-zerg/typerush/internal/records"
)

var day0 = time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

func raceAt(at time.Time, wpm int, acc float64) model.RaceRecord {
	return model.RaceRecord{
		ID:          "race-" + at.Format(time.RFC3339),
		QuoteID:     wpm % 3,
		QuoteSource: "Test",
		WPM:         wpm,
		Accuracy:    acc,
		TimeSeconds: 30,
		Errors:      2,
		RewardName:  "Mew",
		CreatedAt:   at,
	}
}

func TestFormatTotalTime(t *testing.T) {
	cases := map[float64]string{
		0:    "0s",
		42.4: "42s",
		185:  "3m 5s",
		7800: "2h 10m",
	}
	for in, want := range cases {
		if got := FormatTotalTime(in); got != want {
			t.Fatalf("FormatTotalTime(%v) = %q, want %q", in, got, want)
		}
	}
}

func TestWPMImprovement(t *testing.T) {
	var history []model.RaceRecord
	for i := 0; i < 9; i++ {
		history = append(history, raceAt(day0.Add(-time.Duration(i)*time.Hour), 60, 100))
	}
	if WPMImprovement(history) != nil {
		t.Fatalf("expected no improvement below ten races")
	}
	history = history[:5]
	for i := 5; i < 10; i++ {
		history = append(history, raceAt(day0.Add(-time.Duration(i)*time.Hour), 40, 100))
	}
	imp := WPMImprovement(history)
	if imp == nil {
		t.Fatalf("expected improvement")
	}
	if imp.OldAverage != 40 || imp.NewAverage != 60 || imp.Improvement != 20 || imp.PercentChange != 50 {
		t.Fatalf("unexpected improvement %+v", imp)
	}
}

func TestBuckets(t *testing.T) {
	history := []model.RaceRecord{
		raceAt(day0, 120, 100),
		raceAt(day0, 85, 97),
		raceAt(day0, 65, 91),
		raceAt(day0, 45, 85),
		raceAt(day0, 20, 50),
	}
	for _, buckets := range [][]Bucket{AccuracyBuckets(history), WPMBuckets(history)} {
		if len(buckets) != 5 {
			t.Fatalf("expected 5 buckets, got %d", len(buckets))
		}
		for _, b := range buckets {
			if b.Count != 1 || b.Percentage != 20 {
				t.Fatalf("unexpected bucket %+v", b)
			}
		}
	}
	empty := AccuracyBuckets(nil)
	if empty[0].Percentage != 0 || empty[0].Range != "100%" {
		t.Fatalf("unexpected empty bucket %+v", empty[0])
	}
	if TotalErrors(history) != 10 {
		t.Fatalf("expected 10 errors, got %d", TotalErrors(history))
	}
}

func TestStreakStats(t *testing.T) {
	days := func(offsets ...int) []model.RaceRecord {
		var out []model.RaceRecord
		for _, off := range offsets {
			out = append(out, raceAt(day0.AddDate(0, 0, -off), 50, 100))
		}
		return out
	}

	got := StreakStats(days(0, 0, 1, 2, 5, 6), day0)
	if got.Current != 3 || got.Longest != 3 {
		t.Fatalf("unexpected streaks %+v", got)
	}
	got = StreakStats(days(1, 2), day0)
	if got.Current != 2 {
		t.Fatalf("a streak ending yesterday must still count, got %+v", got)
	}
	got = StreakStats(days(3, 4, 5, 6), day0)
	if got.Current != 0 || got.Longest != 4 {
		t.Fatalf("unexpected broken streak %+v", got)
	}
	if got := StreakStats(nil, day0); got != (Streaks{}) {
		t.Fatalf("expected zero streaks, got %+v", got)
	}
}

func TestWPMTrend(t *testing.T) {
	history := []model.RaceRecord{
		raceAt(day0, 70, 100),
		raceAt(day0.Add(-time.Hour), 50, 100),
		raceAt(day0.AddDate(0, 0, -1), 40, 100),
		raceAt(day0.AddDate(0, 0, -40), 10, 100),
	}
	trend := WPMTrend(history, day0, 30)
	if len(trend) != 2 {
		t.Fatalf("expected 2 days, got %+v", trend)
	}
	if trend[0].Date != "2024-03-09" || trend[0].AverageWPM != 40 {
		t.Fatalf("unexpected first day %+v", trend[0])
	}
	if trend[1].AverageWPM != 60 || trend[1].BestWPM != 70 || trend[1].RaceCount != 2 {
		t.Fatalf("unexpected last day %+v", trend[1])
	}
}

func TestBuildAndRenderDashboard(t *testing.T) {
	history := []model.RaceRecord{
		raceAt(day0, 70, 100),
		raceAt(day0.Add(-time.Hour), 50, 90),
		raceAt(day0.AddDate(0, 0, -1), 60, 95),
	}
	history[2].RewardName = "Eevee"
	d := Build(records.Recompute(history), 15, day0, 0)

	if d.TotalRaces != 3 || d.BestWPM != 70 || d.AverageWPM != 60 {
		t.Fatalf("unexpected dashboard %+v", d)
	}
	if d.Collection.Caught != 2 || d.Collection.Total != 15 || d.Collection.Percentage != 13 {
		t.Fatalf("unexpected collection %+v", d.Collection)
	}
	if d.Favourite == nil || d.Favourite.Name != "Mew" || d.Favourite.Count != 2 {
		t.Fatalf("unexpected favourite %+v", d.Favourite)
	}
	if d.Streaks.Current != 2 || len(d.Trend) != 2 || d.Improvement != nil {
		t.Fatalf("unexpected derived values %+v", d)
	}

	var buf bytes.Buffer
	if err := RenderDashboard(&buf, d, 40); err != nil {
		t.Fatalf("render: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"Races: 3", "Time typing: 1m 30s", "Favourite: Mew (x2)", "WPM trend", "Most played"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output:\n%s", want, out)
		}
	}

	buf.Reset()
	if err := RenderDashboard(&buf, Build(records.Empty(), 15, day0, 0), 40); err != nil {
		t.Fatalf("render empty: %v", err)
	}
	if strings.TrimSpace(buf.String()) != "No races yet." {
		t.Fatalf("unexpected empty output %q", buf.String())
	}
}

func TestRenderLeaderboardHighlightsUser(t *testing.T) {
	entries := []model.LeaderboardEntry{
		{Rank: 1, UserID: "u1", DisplayName: "One", WPM: 90, Accuracy: 99, QuoteSource: "Tolkien", Date: day0},
		{Rank: 2, UserID: "u2", DisplayName: "Two", WPM: 80, Accuracy: 97, QuoteSource: "Austen", Date: day0},
	}
	var buf bytes.Buffer
	if err := RenderLeaderboard(&buf, entries, "u2"); err != nil {
		t.Fatalf("render: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 || !strings.Contains(lines[2], "Two *") || strings.Contains(lines[1], "*") {
		t.Fatalf("unexpected leaderboard output:\n%s", buf.String())
	}
}

func TestSparklineAndMovingAverage(t *testing.T) {
	avg := MovingAverage([]float64{10, 20, 30, 40}, 2)
	want := []float64{10, 15, 25, 35}
	for i := range want {
		if avg[i] != want[i] {
			t.Fatalf("unexpected moving average %v", avg)
		}
	}
	if got := Sparkline([]float64{0, 9}); got != " @" {
		t.Fatalf("unexpected sparkline %q", got)
	}
	if got := Sparkline([]float64{5, 5, 5}); got != "+++" {
		t.Fatalf("unexpected flat sparkline %q", got)
	}
}
