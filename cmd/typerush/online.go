package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/verte-zerg/typerush/internal/app"
	"github.com/verte-zerg/typerush/internal/leaderboard"
	"github.com/verte-zerg/typerush/internal/model"
	"github.com/verte-zerg/typerush/internal/stats"
	"github.com/verte-zerg/typerush/internal/syncer"
)

var (
	syncPullOnly bool

	boardLimit  int
	boardQuote  int
	boardPeriod string

	rankQuote int
	rankUser  string
)

func newSyncCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Upload local races and pull races from the server",
		Args:  cobra.NoArgs,
		RunE:  runSyncCmd,
	}
	cmd.Flags().BoolVar(&syncPullOnly, "pull-only", false, "only fetch races from the server")
	return cmd
}

func runSyncCmd(cmd *cobra.Command, _ []string) error {
	a, closeApp, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer closeApp()
	if a.Remote() == nil {
		return accountError(app.ErrNoServer)
	}

	if syncPullOnly {
		n, err := a.Sync().PullAndMerge(cmd.Context())
		if err != nil {
			return accountError(err)
		}
		return writeOut(cmd, "Merged %d races from the server.\n", n)
	}
	rep, err := a.Sync().SyncAll(cmd.Context())
	if err != nil {
		return accountError(err)
	}
	return writeOut(cmd, "Uploaded %d races, merged %d from the server. Last sync %s.\n",
		rep.Uploaded, rep.Merged, a.Sync().LastSync().Local().Format(time.DateTime))
}

func newLeaderboardCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "leaderboard",
		Short: "Show the fastest races on the server",
		Args:  cobra.NoArgs,
		RunE:  runLeaderboardCmd,
	}
	cmd.Flags().IntVar(&boardLimit, "limit", 0, "rows to show (default: server default)")
	cmd.Flags().IntVar(&boardQuote, "quote", 0, "only races on this quote id")
	cmd.Flags().StringVar(&boardPeriod, "period", string(model.PeriodAllTime), "weekly, monthly or alltime")
	return cmd
}

func runLeaderboardCmd(cmd *cobra.Command, _ []string) error {
	period, err := leaderboard.ParsePeriod(boardPeriod)
	if err != nil {
		return err
	}
	if boardLimit < 0 {
		return fmt.Errorf("limit must not be negative")
	}
	a, closeApp, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer closeApp()
	if err := requireOnline(a); err != nil {
		return err
	}

	ctx, cancel := commandContext(cmd)
	defer cancel()
	var entries []model.LeaderboardEntry
	if boardQuote != 0 && period == model.PeriodAllTime {
		limit := boardLimit
		if limit == 0 {
			limit = leaderboard.DefaultQuoteLimit
		}
		entries, err = a.Remote().QuoteLeaderboard(ctx, boardQuote, limit)
	} else {
		entries, err = a.Remote().Leaderboard(ctx, boardLimit, optionalQuote(boardQuote), period)
	}
	if err != nil {
		return accountError(err)
	}

	highlight := ""
	if user, ok := a.User(); ok {
		highlight = user.ID
	}
	if err := stats.RenderLeaderboard(cmd.OutOrStdout(), entries, highlight); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func newRankCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rank",
		Short: "Show a leaderboard rank by personal best",
		Args:  cobra.NoArgs,
		RunE:  runRankCmd,
	}
	cmd.Flags().IntVar(&rankQuote, "quote", 0, "rank on this quote id only")
	cmd.Flags().StringVar(&rankUser, "user", "", "user id to look up (default: you)")
	return cmd
}

func runRankCmd(cmd *cobra.Command, _ []string) error {
	a, closeApp, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer closeApp()
	if err := requireOnline(a); err != nil {
		return err
	}

	ctx, cancel := commandContext(cmd)
	defer cancel()
	var res model.UserRank
	if rankUser != "" {
		res, err = a.Remote().UserRank(ctx, rankUser, optionalQuote(rankQuote))
	} else {
		token := a.Token()
		if token == "" {
			return accountError(syncer.ErrNotSignedIn)
		}
		res, err = a.Remote().MyRank(ctx, token, optionalQuote(rankQuote))
	}
	if err != nil {
		return accountError(err)
	}

	scope := "overall"
	if rankQuote != 0 {
		scope = fmt.Sprintf("on quote %d", rankQuote)
	}
	if res.Rank == nil {
		return writeOut(cmd, "No ranked races %s yet.\n", scope)
	}
	return writeOut(cmd, "Rank #%d %s.\n", *res.Rank, scope)
}

func requireOnline(a *app.App) error {
	if a.Remote() == nil {
		return accountError(app.ErrNoServer)
	}
	if !a.Online() {
		return accountError(syncer.ErrOffline)
	}
	return nil
}

func optionalQuote(id int) *int {
	if id == 0 {
		return nil
	}
	return &id
}
