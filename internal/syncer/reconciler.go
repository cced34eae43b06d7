// Package syncer reconciles the local race history with the remote server.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/verte-zerg/typerush/internal/model"
)

// MigratedKey records when the local history was last uploaded.
const MigratedKey = "typerush-migrated-at"

var (
	// ErrNotSignedIn is returned when no bearer token is held.
	ErrNotSignedIn = errors.New("not signed in")
	// ErrOffline is returned when the network is reported unreachable.
	ErrOffline = errors.New("offline")
)

// Remote is the server-side race repository as seen by the client.
type Remote interface {
	CreateRace(ctx context.Context, token string, rec model.RaceRecord) (model.RaceRecord, error)
	ImportRaces(ctx context.Context, token string, recs []model.RaceRecord) (int, error)
	ListRaces(ctx context.Context, token string, limit, offset int) (model.RacePage, error)
}

// Local is the local record store.
type Local interface {
	History() []model.RaceRecord
	Merge(ctx context.Context, recs []model.RaceRecord) (int, error)
}

// Marker persists the migration timestamp.
type Marker interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
}

// Config configures a Reconciler.
type Config struct {
	Remote Remote
	Local  Local
	Marker Marker
	// Token returns the current bearer token, "" when signed out.
	Token func() string
	// Online reports network reachability. nil means always online.
	Online    func() bool
	Timeout   time.Duration
	PullLimit int
	Logger    *zap.Logger
	Now       func() time.Time
}

// Report summarizes a full sync.
type Report struct {
	Uploaded int
	Merged   int
}

// Reconciler pushes, migrates and pulls race records. Failures are reported
// through the status and never touch local data.
type Reconciler struct {
	remote    Remote
	local     Local
	marker    Marker
	token     func() string
	online    func() bool
	timeout   time.Duration
	pullLimit int
	logger    *zap.SugaredLogger
	now       func() time.Time

	mu       sync.Mutex
	inflight int
	status   Status
	lastErr  error
	lastSync time.Time
}

// New creates a Reconciler, filling in defaults.
func New(cfg Config) *Reconciler {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.PullLimit <= 0 {
		cfg.PullLimit = 1000
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Token == nil {
		cfg.Token = func() string { return "" }
	}
	if cfg.Online == nil {
		cfg.Online = func() bool { return true }
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Reconciler{
		remote:    cfg.Remote,
		local:     cfg.Local,
		marker:    cfg.Marker,
		token:     cfg.Token,
		online:    cfg.Online,
		timeout:   cfg.Timeout,
		pullLimit: cfg.PullLimit,
		logger:    cfg.Logger.Sugar(),
		now:       cfg.Now,
	}
}

// Status returns the outcome of the latest operation, or pending while any
// operation is in flight.
func (r *Reconciler) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.inflight > 0 {
		return StatusPending
	}
	return r.status
}

// LastError returns the error of the latest failed operation.
func (r *Reconciler) LastError() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastErr
}

// LastSync returns when an operation last succeeded.
func (r *Reconciler) LastSync() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastSync
}

// Ready reports whether sync can be attempted.
func (r *Reconciler) Ready() error {
	if r.token() == "" {
		return ErrNotSignedIn
	}
	if !r.online() {
		return ErrOffline
	}
	return nil
}

// Push sends one race to the server. It never retries.
func (r *Reconciler) Push(ctx context.Context, rec model.RaceRecord) (model.RaceRecord, error) {
	token, err := r.begin()
	if err != nil {
		return model.RaceRecord{}, err
	}
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	stored, err := r.remote.CreateRace(ctx, token, rec)
	if err != nil {
		err = fmt.Errorf("failed to push race: %w", err)
	}
	r.end("push", err)
	return stored, err
}

// PushAsync pushes rec in the background. The returned task resolves idle
// without contacting the server when sync is not possible.
func (r *Reconciler) PushAsync(rec model.RaceRecord) *Task {
	if err := r.Ready(); err != nil {
		return finishedTask(StatusIdle, err)
	}
	task := newTask()
	go func() {
		_, err := r.Push(context.Background(), rec)
		switch {
		case err == nil:
			task.finish(StatusOK, nil)
		case errors.Is(err, ErrNotSignedIn), errors.Is(err, ErrOffline):
			task.finish(StatusIdle, err)
		default:
			task.finish(StatusFailed, err)
		}
	}()
	return task
}

// MigrateLocalHistory uploads the whole local history as one import batch.
// The server skips races it already holds, so repeating it does not
// duplicate them, but a repeat is still logged.
func (r *Reconciler) MigrateLocalHistory(ctx context.Context) (int, error) {
	token, err := r.begin()
	if err != nil {
		return 0, err
	}
	n, err := r.migrate(ctx, token)
	r.end("migrate", err)
	return n, err
}

func (r *Reconciler) migrate(ctx context.Context, token string) (int, error) {
	history := r.local.History()
	if len(history) == 0 {
		return 0, nil
	}
	if r.marker != nil {
		if at, ok, err := r.marker.Get(ctx, MigratedKey); err == nil && ok {
			r.logger.Warnw("local history was already migrated, uploading again",
				"migratedAt", at, "races", len(history))
		}
	}

	callCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	n, err := r.remote.ImportRaces(callCtx, token, history)
	if err != nil {
		return 0, fmt.Errorf("failed to migrate history: %w", err)
	}
	if r.marker != nil {
		if err := r.marker.Set(ctx, MigratedKey, r.now().UTC().Format(time.RFC3339)); err != nil {
			r.logger.Warnw("failed to record migration marker", "error", err)
		}
	}
	return n, nil
}

// PullAndMerge fetches the latest remote races and merges the unseen ones
// into local history.
func (r *Reconciler) PullAndMerge(ctx context.Context) (int, error) {
	token, err := r.begin()
	if err != nil {
		return 0, err
	}
	n, err := r.pull(ctx, token)
	r.end("pull", err)
	return n, err
}

func (r *Reconciler) pull(ctx context.Context, token string) (int, error) {
	callCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	page, err := r.remote.ListRaces(callCtx, token, r.pullLimit, 0)
	if err != nil {
		return 0, fmt.Errorf("failed to pull races: %w", err)
	}
	n, err := r.local.Merge(ctx, page.Records)
	if err != nil {
		return 0, fmt.Errorf("failed to merge races: %w", err)
	}
	return n, nil
}

// SyncAll migrates the local history and then pulls remote races.
func (r *Reconciler) SyncAll(ctx context.Context) (Report, error) {
	token, err := r.begin()
	if err != nil {
		return Report{}, err
	}
	var rep Report
	rep.Uploaded, err = r.migrate(ctx, token)
	if err == nil {
		rep.Merged, err = r.pull(ctx, token)
	}
	r.end("sync", err)
	return rep, err
}

func (r *Reconciler) begin() (string, error) {
	token := r.token()
	if token == "" {
		return "", ErrNotSignedIn
	}
	if !r.online() {
		return "", ErrOffline
	}
	r.mu.Lock()
	r.inflight++
	r.mu.Unlock()
	return token, nil
}

func (r *Reconciler) end(op string, err error) {
	r.mu.Lock()
	r.inflight--
	if err != nil {
		r.status = StatusFailed
		r.lastErr = err
	} else {
		r.status = StatusOK
		r.lastErr = nil
		r.lastSync = r.now()
	}
	r.mu.Unlock()

	if err != nil {
		r.logger.Warnw("sync failed", "op", op, "error", err)
		return
	}
	r.logger.Debugw("sync ok", "op", op)
}
