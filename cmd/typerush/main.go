// Package main provides the CLI entrypoint for typerush.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/verte-zerg/typerush/internal/app"
	"github.com/verte-zerg/typerush/internal/config"
	"github.com/verte-zerg/typerush/internal/corpus"
	"github.com/verte-zerg/typerush/internal/generator"
	"github.com/verte-zerg/typerush/internal/logging"
	"github.com/verte-zerg/typerush/internal/model"
	"github.com/verte-zerg/typerush/internal/remote"
	"github.com/verte-zerg/typerush/internal/tui"
)

const (
	defaultSyncTimeout = 10 * time.Second
	defaultPullLimit   = 1000
	defaultLogLevel    = "info"
)

var (
	clientDB        string
	clientCorpus    string
	clientRewards   string
	clientServer    string
	clientTimeout   time.Duration
	clientPullLimit int
	clientOffline   bool
	clientLogLevel  string
	clientLogFile   string

	practiceQuote int
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "typerush",
		Short:         "Quote typing races with records and leaderboards",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE:          runPracticeCmd,
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&clientDB, "db", config.DefaultDBPath(), "local database path")
	pf.StringVar(&clientCorpus, "corpus", "", "quote corpus TOML file (default: bundled)")
	pf.StringVar(&clientRewards, "rewards", "", "reward pool file, one name per line (default: from corpus)")
	pf.StringVar(&clientServer, "server", "", "sync server URL")
	pf.DurationVar(&clientTimeout, "timeout", defaultSyncTimeout, "timeout of a single server call")
	pf.IntVar(&clientPullLimit, "pull-limit", defaultPullLimit, "races fetched when pulling from the server")
	pf.BoolVar(&clientOffline, "offline", false, "never contact the server")
	pf.StringVar(&clientLogLevel, "log-level", defaultLogLevel, "log level (debug, info, warn, error)")
	pf.StringVar(&clientLogFile, "log-file", config.DefaultLogPath(), "log file path")

	rootCmd.Flags().IntVar(&practiceQuote, "quote", 0, "race a specific quote id first")

	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newQuotesCmd())
	rootCmd.AddCommand(newHistoryCmd())
	rootCmd.AddCommand(newStatsCmd())
	rootCmd.AddCommand(newResetCmd())
	rootCmd.AddCommand(newRegisterCmd())
	rootCmd.AddCommand(newLoginCmd())
	rootCmd.AddCommand(newLogoutCmd())
	rootCmd.AddCommand(newWhoamiCmd())
	rootCmd.AddCommand(newRenameCmd())
	rootCmd.AddCommand(newSyncCmd())
	rootCmd.AddCommand(newLeaderboardCmd())
	rootCmd.AddCommand(newRankCmd())
	rootCmd.AddCommand(newServeCmd())

	return rootCmd
}

func runPracticeCmd(cmd *cobra.Command, _ []string) error {
	a, closeApp, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer closeApp()

	var first *model.Quote
	if practiceQuote != 0 {
		q, ok := a.Corpus().QuoteByID(practiceQuote)
		if !ok {
			return fmt.Errorf("unknown quote id %d", practiceQuote)
		}
		first = &q
	}

	player := ""
	if user, ok := a.User(); ok {
		player = user.DisplayName
	}

	session := a.NewSession(generator.New())
	m := tui.NewModel(tui.Config{
		Session: session,
		Sync:    a.Sync(),
		Player:  player,
		Quote:   first,
	})
	program := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run TUI: %w", err)
	}

	// Give the upload of the last race a chance to land before exiting.
	if res := session.Result(); res != nil && res.Sync != nil {
		select {
		case <-res.Sync.Done():
			if err := res.Sync.Err(); err != nil && !isQuietSyncErr(err) {
				logErrf("Race saved locally; upload failed: %v\n", err)
			}
		case <-time.After(clientTimeout):
			logErrln("Race saved locally; upload still pending.")
		}
	}
	return nil
}

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Create/open config file",
		Args:  cobra.NoArgs,
		RunE:  runConfigCmd,
	}
}

func runConfigCmd(_ *cobra.Command, _ []string) error {
	path := config.DefaultConfigPath()
	if err := config.EnsureConfig(path); err != nil {
		return err
	}

	editor := strings.TrimSpace(os.Getenv("EDITOR"))
	if editor == "" {
		editor = "vi"
	}
	parts := strings.Fields(editor)
	if len(parts) == 0 {
		return fmt.Errorf("editor command is empty")
	}
	cmd := exec.Command(parts[0], append(parts[1:], path)...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to open editor: %w", err)
	}
	return nil
}

// applyClientConfig overlays the config file onto flags the user did not set.
func applyClientConfig(cmd *cobra.Command) error {
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	applyStringConfig(cmd, "corpus", &clientCorpus, fileCfg.Race.Corpus)
	applyStringConfig(cmd, "rewards", &clientRewards, fileCfg.Race.Rewards)
	applyStringConfig(cmd, "server", &clientServer, fileCfg.Sync.ServerURL)
	applyIntConfig(cmd, "pull-limit", &clientPullLimit, fileCfg.Sync.PullLimit)
	applyBoolConfig(cmd, "offline", &clientOffline, fileCfg.Sync.Offline)
	applyStringConfig(cmd, "log-level", &clientLogLevel, fileCfg.Log.Level)
	applyStringConfig(cmd, "log-file", &clientLogFile, fileCfg.Log.File)
	if err := applyDurationConfig(cmd, "timeout", &clientTimeout, fileCfg.Sync.Timeout); err != nil {
		return err
	}
	if clientTimeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if clientPullLimit <= 0 {
		return fmt.Errorf("pull-limit must be positive")
	}
	return nil
}

// openApp resolves the client settings and opens the local store. The
// returned func closes the app and flushes the logger.
func openApp(cmd *cobra.Command) (*app.App, func(), error) {
	if err := applyClientConfig(cmd); err != nil {
		return nil, nil, err
	}
	logger, err := logging.New(clientLogLevel, clientLogFile)
	if err != nil {
		return nil, nil, err
	}

	c := corpus.Default()
	if clientCorpus != "" {
		c, err = corpus.Load(clientCorpus)
		if err != nil {
			_ = logger.Sync()
			return nil, nil, err
		}
	}
	if clientRewards != "" {
		c.Rewards, err = corpus.LoadRewards(clientRewards)
		if err != nil {
			_ = logger.Sync()
			return nil, nil, err
		}
	}

	var client *remote.Client
	if clientServer != "" {
		client, err = remote.New(clientServer, &http.Client{Timeout: clientTimeout})
		if err != nil {
			_ = logger.Sync()
			return nil, nil, err
		}
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), clientTimeout)
	defer cancel()
	a, err := app.Open(ctx, app.Config{
		DBPath:      clientDB,
		Corpus:      c,
		Remote:      client,
		Offline:     clientOffline,
		SyncTimeout: clientTimeout,
		PullLimit:   clientPullLimit,
		Logger:      logger,
	})
	if err != nil {
		_ = logger.Sync()
		return nil, nil, fmt.Errorf("failed to open local data: %w", err)
	}
	logger.Debug("client started",
		zap.String("db", clientDB),
		zap.Bool("online", a.Online()),
		zap.Bool("signedIn", a.Token() != ""),
	)

	closeApp := func() {
		if cerr := a.Close(); cerr != nil {
			logErrf("failed to close db: %v\n", cerr)
		}
		_ = logger.Sync()
	}
	return a, closeApp, nil
}

func applyStringConfig(cmd *cobra.Command, name string, target, value *string) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyIntConfig(cmd *cobra.Command, name string, target, value *int) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyBoolConfig(cmd *cobra.Command, name string, target, value *bool) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyDurationConfig(cmd *cobra.Command, name string, target *time.Duration, value *string) error {
	if value == nil {
		return nil
	}
	if cmd.Flags().Changed(name) {
		return nil
	}
	d, err := time.ParseDuration(*value)
	if err != nil {
		return fmt.Errorf("invalid %s in config: %w", name, err)
	}
	*target = d
	return nil
}

func applyStringsConfig(cmd *cobra.Command, name string, target *[]string, value []string) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = value
}

// commandContext bounds a server call by the client timeout.
func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmd.Context(), clientTimeout)
}

func logErrf(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}

func logErrln(args ...any) {
	if _, err := fmt.Fprintln(os.Stderr, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}

func writeOut(cmd *cobra.Command, format string, args ...any) error {
	if _, err := fmt.Fprintf(cmd.OutOrStdout(), format, args...); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

var errCancelled = errors.New("cancelled")
