package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/verte-zerg/typerush/internal/auth"
	"github.com/verte-zerg/typerush/internal/config"
	"github.com/verte-zerg/typerush/internal/leaderboard"
	"github.com/verte-zerg/typerush/internal/logging"
	"github.com/verte-zerg/typerush/internal/server"
	"github.com/verte-zerg/typerush/internal/store"
)

const (
	defaultServeAddr = ":8080"
	shutdownTimeout  = 10 * time.Second
)

var (
	serveAddr     string
	serveDB       string
	serveTokenKey string
	serveTokenTTL time.Duration
	serveOrigins  []string
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the sync and leaderboard server",
		Args:  cobra.NoArgs,
		RunE:  runServeCmd,
	}
	cmd.Flags().StringVar(&serveAddr, "addr", defaultServeAddr, "listen address")
	cmd.Flags().StringVar(&serveDB, "server-db", config.DefaultServerDBPath(), "server database path")
	cmd.Flags().StringVar(&serveTokenKey, "token-key", "", "hex-encoded 32-byte token key (random when empty)")
	cmd.Flags().DurationVar(&serveTokenTTL, "token-ttl", auth.DefaultTokenTTL, "lifetime of issued tokens")
	cmd.Flags().StringSliceVar(&serveOrigins, "allowed-origins", nil, "CORS origins (default: http://localhost:*)")
	return cmd
}

func applyServeConfig(cmd *cobra.Command) error {
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	applyStringConfig(cmd, "addr", &serveAddr, fileCfg.Server.Addr)
	applyStringConfig(cmd, "server-db", &serveDB, fileCfg.Server.DB)
	applyStringConfig(cmd, "token-key", &serveTokenKey, fileCfg.Server.TokenKey)
	applyStringsConfig(cmd, "allowed-origins", &serveOrigins, fileCfg.Server.AllowedOrigins)
	applyStringConfig(cmd, "log-level", &clientLogLevel, fileCfg.Log.Level)
	return applyDurationConfig(cmd, "token-ttl", &serveTokenTTL, fileCfg.Server.TokenTTL)
}

func runServeCmd(cmd *cobra.Command, _ []string) error {
	if err := applyServeConfig(cmd); err != nil {
		return err
	}
	logger, err := logging.New(clientLogLevel, "")
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()
	log := logger.Sugar()

	if serveTokenKey == "" {
		serveTokenKey, err = auth.GenerateKey()
		if err != nil {
			return err
		}
		log.Warnw("no token key configured, using a random one; tokens will not survive a restart")
	}
	tokens, err := auth.NewTokenService(serveTokenKey, serveTokenTTL)
	if err != nil {
		return err
	}

	st, err := store.Open(serveDB)
	if err != nil {
		return fmt.Errorf("failed to open db: %w", err)
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			log.Errorw("failed to close db", "error", cerr)
		}
	}()

	handler := server.New(server.Config{
		Store:          st,
		Authority:      auth.NewAuthority(st, tokens),
		Ranker:         leaderboard.New(st, st, nil),
		Logger:         logger,
		AllowedOrigins: serveOrigins,
	})
	srv := &http.Server{
		Addr:              serveAddr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Infow("HTTP server starting", "addr", srv.Addr, "db", serveDB)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Infow("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	if err := g.Wait(); err != nil {
		log.Errorw("server stopped", "error", err)
		return err
	}
	log.Infow("server stopped")
	return nil
}
