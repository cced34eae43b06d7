package syncer

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/verte-zerg/typerush/internal/model"
	"github.com/verte-zerg/typerush/internal/records"
)

type fakeRemote struct {
	mu       sync.Mutex
	created  []model.RaceRecord
	imported [][]model.RaceRecord
	stored   []model.RaceRecord
	fail     error
	block    chan struct{}
	tokens   []string
}

func (f *fakeRemote) CreateRace(ctx context.Context, token string, rec model.RaceRecord) (model.RaceRecord, error) {
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return model.RaceRecord{}, ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tokens = append(f.tokens, token)
	if f.fail != nil {
		return model.RaceRecord{}, f.fail
	}
	f.created = append(f.created, rec)
	rec.ID = "srv-" + rec.ID
	return rec, nil
}

func (f *fakeRemote) ImportRaces(_ context.Context, _ string, recs []model.RaceRecord) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return 0, f.fail
	}
	f.imported = append(f.imported, recs)
	return len(recs), nil
}

func (f *fakeRemote) ListRaces(_ context.Context, _ string, limit, _ int) (model.RacePage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return model.RacePage{}, f.fail
	}
	recs := f.stored
	if len(recs) > limit {
		recs = recs[:limit]
	}
	return model.RacePage{Records: append([]model.RaceRecord{}, recs...), Total: len(f.stored)}, nil
}

type memKV struct {
	mu     sync.Mutex
	values map[string]string
}

func (m *memKV) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *memKV) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

func (m *memKV) Remove(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	return nil
}

func newFixture(t *testing.T, token string) (*Reconciler, *fakeRemote, *records.Store, *memKV) {
	t.Helper()
	kv := &memKV{values: map[string]string{}}
	local, err := records.Open(context.Background(), kv, nil)
	if err != nil {
		t.Fatalf("open records: %v", err)
	}
	remote := &fakeRemote{}
	r := New(Config{
		Remote:  remote,
		Local:   local,
		Marker:  kv,
		Token:   func() string { return token },
		Timeout: time.Second,
	})
	return r, remote, local, kv
}

func TestPushRequiresToken(t *testing.T) {
	r, remote, _, _ := newFixture(t, "")
	task := r.PushAsync(model.RaceRecord{QuoteID: 1, WPM: 40})
	if err := task.Wait(); !errors.Is(err, ErrNotSignedIn) {
		t.Fatalf("expected ErrNotSignedIn, got %v", err)
	}
	if task.Status() != StatusIdle || r.Status() != StatusIdle {
		t.Fatalf("expected idle status, got task=%s reconciler=%s", task.Status(), r.Status())
	}
	if len(remote.created) != 0 {
		t.Fatalf("remote must not be called without a token")
	}
}

func TestPushOffline(t *testing.T) {
	r, remote, _, _ := newFixture(t, "tok")
	r.online = func() bool { return false }
	if _, err := r.Push(context.Background(), model.RaceRecord{QuoteID: 1}); !errors.Is(err, ErrOffline) {
		t.Fatalf("expected ErrOffline, got %v", err)
	}
	if len(remote.created) != 0 || r.Status() != StatusIdle {
		t.Fatalf("offline push must not reach the remote")
	}
}

func TestPushAsyncSuccess(t *testing.T) {
	r, remote, _, _ := newFixture(t, "tok")
	remote.block = make(chan struct{})
	task := r.PushAsync(model.RaceRecord{ID: "race-1", QuoteID: 1, WPM: 40})
	if task.Status() != StatusPending {
		t.Fatalf("expected pending task, got %s", task.Status())
	}
	close(remote.block)
	if err := task.Wait(); err != nil {
		t.Fatalf("push: %v", err)
	}
	if task.Status() != StatusOK || r.Status() != StatusOK {
		t.Fatalf("expected ok, got task=%s reconciler=%s", task.Status(), r.Status())
	}
	if len(remote.tokens) != 1 || remote.tokens[0] != "tok" {
		t.Fatalf("expected bearer token to be forwarded, got %v", remote.tokens)
	}
	if r.LastSync().IsZero() {
		t.Fatalf("expected last sync time")
	}
}

func TestPushFailureLeavesLocalStateAlone(t *testing.T) {
	r, remote, local, _ := newFixture(t, "tok")
	ctx := context.Background()
	res, err := local.Save(ctx, model.RaceRecord{QuoteID: 1, WPM: 40, Accuracy: 90})
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	remote.fail = model.ErrNetwork
	task := r.PushAsync(res.Record)
	if err := task.Wait(); !errors.Is(err, model.ErrNetwork) {
		t.Fatalf("expected network error, got %v", err)
	}
	if task.Status() != StatusFailed || r.Status() != StatusFailed {
		t.Fatalf("expected failed status")
	}
	if !errors.Is(r.LastError(), model.ErrNetwork) {
		t.Fatalf("expected last error to be recorded, got %v", r.LastError())
	}
	if local.Len() != 1 {
		t.Fatalf("failed push must not change local history")
	}
}

func TestPushTimesOut(t *testing.T) {
	r, remote, _, _ := newFixture(t, "tok")
	r.timeout = 20 * time.Millisecond
	remote.block = make(chan struct{})
	defer close(remote.block)
	_, err := r.Push(context.Background(), model.RaceRecord{QuoteID: 1})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestMigrateLocalHistoryMarksMigration(t *testing.T) {
	r, remote, local, kv := newFixture(t, "tok")
	ctx := context.Background()
	n, err := r.MigrateLocalHistory(ctx)
	if err != nil || n != 0 || len(remote.imported) != 0 {
		t.Fatalf("empty history should not upload, n=%d err=%v", n, err)
	}
	for _, wpm := range []int{30, 45} {
		if _, err := local.Save(ctx, model.RaceRecord{QuoteID: 1, WPM: wpm, Accuracy: 90}); err != nil {
			t.Fatalf("save: %v", err)
		}
	}
	n, err = r.MigrateLocalHistory(ctx)
	if err != nil || n != 2 {
		t.Fatalf("expected 2 uploaded, got %d err=%v", n, err)
	}
	if len(remote.imported) != 1 || len(remote.imported[0]) != 2 {
		t.Fatalf("expected one batch of two races, got %v", remote.imported)
	}
	if _, ok := kv.values[MigratedKey]; !ok {
		t.Fatalf("expected migration marker")
	}
	if _, err := r.MigrateLocalHistory(ctx); err != nil {
		t.Fatalf("repeat migration: %v", err)
	}
	if len(remote.imported) != 2 {
		t.Fatalf("repeat migration should still upload")
	}
}

func TestPullAndMergeIsIdempotent(t *testing.T) {
	r, remote, local, _ := newFixture(t, "tok")
	ctx := context.Background()
	saved, err := local.Save(ctx, model.RaceRecord{QuoteID: 2, WPM: 50, Accuracy: 90})
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	earlier := saved.Record.CreatedAt.Add(-time.Hour)
	remote.stored = []model.RaceRecord{
		{ID: "srv-a", QuoteID: 2, WPM: 50, Accuracy: 90, CreatedAt: saved.Record.CreatedAt},
		{ID: "srv-b", QuoteID: 2, WPM: 80, Accuracy: 97, CreatedAt: earlier},
	}
	n, err := r.PullAndMerge(ctx)
	if err != nil || n != 1 {
		t.Fatalf("expected 1 merged, got %d err=%v", n, err)
	}
	n, err = r.PullAndMerge(ctx)
	if err != nil || n != 0 {
		t.Fatalf("second pull should merge nothing, got %d err=%v", n, err)
	}
	if rec, _ := local.QuoteRecord(2); rec.WPM != 80 {
		t.Fatalf("expected pulled race to become quote best, got %d", rec.WPM)
	}
}

func TestPullRespectsLimit(t *testing.T) {
	r, remote, local, _ := newFixture(t, "tok")
	r.pullLimit = 2
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		remote.stored = append(remote.stored, model.RaceRecord{QuoteID: 1, WPM: 40 + i, Accuracy: 90, CreatedAt: base.Add(time.Duration(i) * time.Minute)})
	}
	n, err := r.PullAndMerge(context.Background())
	if err != nil || n != 2 || local.Len() != 2 {
		t.Fatalf("expected 2 merged, got %d len=%d err=%v", n, local.Len(), err)
	}
}

func TestSyncAllReportsBothSteps(t *testing.T) {
	r, remote, local, _ := newFixture(t, "tok")
	ctx := context.Background()
	if _, err := local.Save(ctx, model.RaceRecord{QuoteID: 1, WPM: 40, Accuracy: 90}); err != nil {
		t.Fatalf("save: %v", err)
	}
	remote.stored = []model.RaceRecord{{ID: "srv-x", QuoteID: 3, WPM: 60, Accuracy: 95, CreatedAt: time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)}}
	rep, err := r.SyncAll(ctx)
	if err != nil {
		t.Fatalf("sync: %v", err)
	}
	if rep.Uploaded != 1 || rep.Merged != 1 {
		t.Fatalf("unexpected report %+v", rep)
	}

	remote.fail = errors.New("boom")
	if _, err := r.SyncAll(ctx); err == nil || r.Status() != StatusFailed {
		t.Fatalf("expected failure status, err=%v", err)
	}
	if local.Len() != 2 {
		t.Fatalf("failed sync must not change local history")
	}
}
