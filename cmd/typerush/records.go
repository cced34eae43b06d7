package main

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/verte-zerg/typerush/internal/app"
	"github.com/verte-zerg/typerush/internal/model"
	"github.com/verte-zerg/typerush/internal/stats"
	"github.com/verte-zerg/typerush/internal/statsui"
)

const defaultHistoryLimit = 20

var (
	historyLimit  int
	historyOffset int
	historySort   string
	historyOrder  string
	historyQuote  int
	historyReward string
	historySince  string
	historyUntil  string

	statsTrendDays   int
	statsInteractive bool

	resetYes bool
)

func newQuotesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "quotes",
		Short: "List quotes with your personal bests",
		Args:  cobra.NoArgs,
		RunE:  runQuotesCmd,
	}
}

func runQuotesCmd(cmd *cobra.Command, _ []string) error {
	a, closeApp, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer closeApp()

	bests := a.Records().BestPerQuote()
	if err := stats.RenderQuoteBests(cmd.OutOrStdout(), bests, quoteSources(a)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return writeOut(cmd, "%d of %d quotes raced.\n", len(bests), len(a.Corpus().Quotes))
}

func quoteSources(a *app.App) map[int]string {
	sources := make(map[int]string, len(a.Corpus().Quotes))
	for _, q := range a.Corpus().Quotes {
		sources[q.ID] = q.Source
	}
	return sources
}

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show past races",
		Args:  cobra.NoArgs,
		RunE:  runHistoryCmd,
	}
	cmd.Flags().IntVar(&historyLimit, "limit", defaultHistoryLimit, "races per page (0 for all)")
	cmd.Flags().IntVar(&historyOffset, "offset", 0, "races to skip")
	cmd.Flags().StringVar(&historySort, "sort", string(model.SortByDate), "sort by date, wpm, accuracy, time or errors")
	cmd.Flags().StringVar(&historyOrder, "order", "desc", "asc or desc")
	cmd.Flags().IntVar(&historyQuote, "quote", 0, "only races on this quote id")
	cmd.Flags().StringVar(&historyReward, "reward", "", "only races that caught this reward")
	cmd.Flags().StringVar(&historySince, "since", "", "only races on or after this date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&historyUntil, "until", "", "only races on or before this date (YYYY-MM-DD)")
	return cmd
}

func runHistoryCmd(cmd *cobra.Command, _ []string) error {
	q, err := historyQuery()
	if err != nil {
		return err
	}
	a, closeApp, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer closeApp()

	page := a.Records().Query(q)
	if err := stats.RenderHistory(cmd.OutOrStdout(), page); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func historyQuery() (model.HistoryQuery, error) {
	q := model.HistoryQuery{
		RewardName: strings.TrimSpace(historyReward),
		Limit:      historyLimit,
		Offset:     historyOffset,
	}
	if historyLimit < 0 || historyOffset < 0 {
		return q, fmt.Errorf("limit and offset must not be negative")
	}

	switch field := model.SortField(strings.ToLower(historySort)); field {
	case model.SortByDate, model.SortByWPM, model.SortByAccuracy, model.SortByTime, model.SortByErrors:
		q.SortBy = field
	default:
		return q, fmt.Errorf("unknown sort field %q", historySort)
	}
	switch strings.ToLower(historyOrder) {
	case "asc":
		q.Ascending = true
	case "desc":
	default:
		return q, fmt.Errorf("order must be asc or desc")
	}

	if historyQuote != 0 {
		id := historyQuote
		q.QuoteID = &id
	}
	if historySince != "" {
		since, err := parseDay(historySince)
		if err != nil {
			return q, err
		}
		q.Since = &since
	}
	if historyUntil != "" {
		until, err := parseDay(historyUntil)
		if err != nil {
			return q, err
		}
		end := until.AddDate(0, 0, 1).Add(-time.Nanosecond)
		q.Until = &end
	}
	return q, nil
}

func parseDay(value string) (time.Time, error) {
	day, err := time.ParseInLocation(time.DateOnly, value, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q (expected YYYY-MM-DD)", value)
	}
	return day, nil
}

func newStatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show your statistics dashboard",
		Args:  cobra.NoArgs,
		RunE:  runStatsCmd,
	}
	cmd.Flags().IntVar(&statsTrendDays, "trend-days", stats.DefaultTrendDays, "days covered by the WPM trend")
	cmd.Flags().BoolVarP(&statsInteractive, "interactive", "i", false, "browse stats and history in a TUI")
	return cmd
}

func runStatsCmd(cmd *cobra.Command, _ []string) error {
	if statsTrendDays <= 0 {
		return fmt.Errorf("trend-days must be positive")
	}
	a, closeApp, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer closeApp()

	if statsInteractive {
		m := statsui.NewModel(statsui.Config{
			Records:    a.Records(),
			Sources:    quoteSources(a),
			RewardPool: len(a.Corpus().Rewards),
			TrendDays:  statsTrendDays,
		})
		if _, err := tea.NewProgram(m, tea.WithAltScreen()).Run(); err != nil {
			return fmt.Errorf("failed to run stats UI: %w", err)
		}
		return nil
	}

	d := stats.Build(a.Records().Snapshot(), len(a.Corpus().Rewards), time.Now(), statsTrendDays)
	if err := stats.RenderDashboard(cmd.OutOrStdout(), d, stats.TerminalWidth()); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func newResetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete all local races and records",
		Args:  cobra.NoArgs,
		RunE:  runResetCmd,
	}
	cmd.Flags().BoolVarP(&resetYes, "yes", "y", false, "skip the confirmation prompt")
	return cmd
}

func runResetCmd(cmd *cobra.Command, _ []string) error {
	a, closeApp, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer closeApp()

	n := a.Records().Len()
	if n == 0 {
		return writeOut(cmd, "Nothing to reset.\n")
	}
	if !resetYes {
		logErrf("Delete %d local races? Server copies are kept. [y/N] ", n)
		answer, err := stdin.ReadString('\n')
		if err != nil && answer == "" {
			return errCancelled
		}
		if reply := strings.ToLower(strings.TrimSpace(answer)); reply != "y" && reply != "yes" {
			return errCancelled
		}
	}
	if err := a.Records().Reset(cmd.Context()); err != nil {
		return err
	}
	return writeOut(cmd, "Deleted %d races.\n", n)
}
