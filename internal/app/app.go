// Package app holds the client's session-wide state: the local store, the
// signed-in account and the sync reconciler. Open initializes it in a fixed
// order: load the persisted store, verify the saved token, mark initialized.
package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/verte-zerg/typerush/internal/corpus"
	"github.com/verte-zerg/typerush/internal/generator"
	"github.com/verte-zerg/typerush/internal/model"
	"github.com/verte-zerg/typerush/internal/race"
	"github.com/verte-zerg/typerush/internal/records"
	"github.com/verte-zerg/typerush/internal/remote"
	"github.com/verte-zerg/typerush/internal/store"
	"github.com/verte-zerg/typerush/internal/syncer"
)

// TokenKey is the local key holding the bearer token.
const TokenKey = "typerush-token"

// ErrNoServer is returned by account operations when no server is configured.
var ErrNoServer = errors.New("no server configured")

// Config configures Open.
type Config struct {
	DBPath string
	Corpus *corpus.Corpus
	// Remote is nil for a purely local client.
	Remote      *remote.Client
	Offline     bool
	SyncTimeout time.Duration
	PullLimit   int
	Logger      *zap.Logger
	Now         func() time.Time
}

// App is the client context passed to every command and screen.
type App struct {
	store   *store.Store
	records *records.Store
	corpus  *corpus.Corpus
	remote  *remote.Client
	sync    *syncer.Reconciler
	offline bool
	logger  *zap.SugaredLogger
	now     func() time.Time

	mu          sync.RWMutex
	token       string
	user        *model.User
	initialized bool
}

// Open builds the client context.
func Open(ctx context.Context, cfg Config) (*App, error) {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Corpus == nil {
		cfg.Corpus = corpus.Default()
	}

	st, err := store.Open(cfg.DBPath)
	if err != nil {
		return nil, err
	}
	recs, err := records.Open(ctx, st, cfg.Now)
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	a := &App{
		store:   st,
		records: recs,
		corpus:  cfg.Corpus,
		remote:  cfg.Remote,
		offline: cfg.Offline,
		logger:  cfg.Logger.Sugar(),
		now:     cfg.Now,
	}
	var rem syncer.Remote
	if cfg.Remote != nil {
		rem = cfg.Remote
	}
	a.sync = syncer.New(syncer.Config{
		Remote:    rem,
		Local:     recs,
		Marker:    st,
		Token:     a.Token,
		Online:    a.Online,
		Timeout:   cfg.SyncTimeout,
		PullLimit: cfg.PullLimit,
		Logger:    cfg.Logger,
		Now:       cfg.Now,
	})

	if err := a.restoreSession(ctx); err != nil {
		_ = st.Close()
		return nil, err
	}
	a.mu.Lock()
	a.initialized = true
	a.mu.Unlock()
	return a, nil
}

// restoreSession verifies a saved token. A rejected token is discarded; an
// unreachable server keeps it so an offline start stays signed in.
func (a *App) restoreSession(ctx context.Context) error {
	token, ok, err := a.store.Get(ctx, TokenKey)
	if err != nil {
		return fmt.Errorf("failed to load token: %w", err)
	}
	if !ok || token == "" {
		return nil
	}
	a.mu.Lock()
	a.token = token
	a.mu.Unlock()
	if !a.Online() {
		return nil
	}

	user, err := a.remote.Me(ctx, token)
	switch {
	case err == nil:
		a.mu.Lock()
		a.user = &user
		a.mu.Unlock()
	case errors.Is(err, model.ErrUnauthorized):
		a.logger.Infow("discarding rejected token")
		return a.clearSession(ctx)
	default:
		a.logger.Warnw("could not verify token", "error", err)
	}
	return nil
}

// Close releases the local store.
func (a *App) Close() error {
	return a.store.Close()
}

// Initialized reports whether Open completed.
func (a *App) Initialized() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.initialized
}

// Token returns the bearer token, "" when signed out.
func (a *App) Token() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.token
}

// User returns the verified account, if any.
func (a *App) User() (model.User, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.user == nil {
		return model.User{}, false
	}
	return *a.user, true
}

// Online reports whether a server is configured and not disabled.
func (a *App) Online() bool {
	return a.remote != nil && !a.offline
}

// Records returns the local record store.
func (a *App) Records() *records.Store {
	return a.records
}

// Corpus returns the quote corpus.
func (a *App) Corpus() *corpus.Corpus {
	return a.corpus
}

// Sync returns the reconciler.
func (a *App) Sync() *syncer.Reconciler {
	return a.sync
}

// Remote returns the server client, or nil.
func (a *App) Remote() *remote.Client {
	return a.remote
}

// NewSession creates a typing session wired to the local store and sync.
func (a *App) NewSession(gen *generator.Generator) *race.Session {
	return race.New(race.Config{
		Quotes:    a.corpus.Quotes,
		Rewards:   a.corpus.Rewards,
		Generator: gen,
		Records:   a.records,
		Sync:      a.sync,
		Now:       a.now,
	})
}

// Register creates an account and signs in.
func (a *App) Register(ctx context.Context, email, password, displayName string) (model.User, error) {
	if err := a.requireServer(); err != nil {
		return model.User{}, err
	}
	res, err := a.remote.Register(ctx, email, password, displayName)
	if err != nil {
		return model.User{}, err
	}
	return res.User, a.setSession(ctx, res)
}

// Login signs in with credentials.
func (a *App) Login(ctx context.Context, email, password string) (model.User, error) {
	if err := a.requireServer(); err != nil {
		return model.User{}, err
	}
	res, err := a.remote.Login(ctx, email, password)
	if err != nil {
		return model.User{}, err
	}
	return res.User, a.setSession(ctx, res)
}

// Logout forgets the token. Local records are kept and a failed server
// call does not keep the session.
func (a *App) Logout(ctx context.Context) error {
	if token := a.Token(); token != "" && a.Online() {
		if err := a.remote.Logout(ctx, token); err != nil {
			a.logger.Debugw("logout request failed", "error", err)
		}
	}
	return a.clearSession(ctx)
}

// UpdateDisplayName renames the signed-in account.
func (a *App) UpdateDisplayName(ctx context.Context, name string) (model.User, error) {
	if err := a.requireServer(); err != nil {
		return model.User{}, err
	}
	token := a.Token()
	if token == "" {
		return model.User{}, syncer.ErrNotSignedIn
	}
	user, err := a.remote.UpdateDisplayName(ctx, token, name)
	if err != nil {
		return model.User{}, err
	}
	a.mu.Lock()
	a.user = &user
	a.mu.Unlock()
	return user, nil
}

func (a *App) requireServer() error {
	if a.remote == nil {
		return ErrNoServer
	}
	if a.offline {
		return syncer.ErrOffline
	}
	return nil
}

func (a *App) setSession(ctx context.Context, res model.AuthResult) error {
	if err := a.store.Set(ctx, TokenKey, res.Token); err != nil {
		return fmt.Errorf("failed to save token: %w", err)
	}
	user := res.User
	a.mu.Lock()
	a.token = res.Token
	a.user = &user
	a.mu.Unlock()
	a.logger.Infow("signed in", "userId", user.ID)
	return nil
}

func (a *App) clearSession(ctx context.Context) error {
	if err := a.store.Remove(ctx, TokenKey); err != nil {
		return fmt.Errorf("failed to remove token: %w", err)
	}
	a.mu.Lock()
	a.token = ""
	a.user = nil
	a.mu.Unlock()
	return nil
}
