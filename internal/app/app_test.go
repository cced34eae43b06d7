package app

import (
	"context"
	"errors"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/verte-zerg/typerush/internal/auth"
	"github.com/verte-zerg/typerush/internal/corpus"
	"github.com/verte-zerg/typerush/internal/generator"
	"github.com/verte-zerg/typerush/internal/remote"
	"github.com/verte-zerg/typerush/internal/server"
	"github.com/verte-zerg/typerush/internal/store"
	"github.com/verte-zerg/typerush/internal/syncer"
)

type stepClock struct {
	mu  sync.Mutex
	cur time.Time
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cur = c.cur.Add(time.Second)
	return c.cur
}

func newServer(t *testing.T) (*httptest.Server, *store.Store) {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "server.db"))
	if err != nil {
		t.Fatalf("open server store: %v", err)
	}
	key, err := auth.GenerateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	tokens, err := auth.NewTokenService(key, time.Hour)
	if err != nil {
		t.Fatalf("token service: %v", err)
	}
	srv := httptest.NewServer(server.New(server.Config{
		Store:     st,
		Authority: auth.NewAuthority(st, tokens),
		Logger:    zap.NewNop(),
	}))
	t.Cleanup(func() {
		srv.Close()
		_ = st.Close()
	})
	return srv, st
}

func testCorpus(t *testing.T) *corpus.Corpus {
	t.Helper()
	c, err := corpus.Parse(`
[[quote]]
id = 1
text = "abc"
source = "Alphabet"

[rewards]
names = ["Mew"]
`)
	if err != nil {
		t.Fatalf("parse corpus: %v", err)
	}
	return c
}

func openApp(t *testing.T, dbPath string, rem *remote.Client) *App {
	t.Helper()
	clock := &stepClock{cur: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
	a, err := Open(context.Background(), Config{
		DBPath: dbPath,
		Corpus: testCorpus(t),
		Remote: rem,
		Logger: zap.NewNop(),
		Now:    clock.Now,
	})
	if err != nil {
		t.Fatalf("open app: %v", err)
	}
	return a
}

func playRace(t *testing.T, a *App) *syncer.Task {
	t.Helper()
	session := a.NewSession(generator.NewWithSeed(1))
	if _, err := session.StartRace(); err != nil {
		t.Fatalf("start race: %v", err)
	}
	for _, r := range "abc" {
		if err := session.HandleKeyPress(context.Background(), r); err != nil {
			t.Fatalf("key %q: %v", r, err)
		}
	}
	res := session.Result()
	if res == nil {
		t.Fatalf("expected finished race")
	}
	return res.Sync
}

func TestLocalOnlyApp(t *testing.T) {
	a := openApp(t, filepath.Join(t.TempDir(), "local.db"), nil)
	defer func() {
		_ = a.Close()
	}()
	if !a.Initialized() || a.Token() != "" || a.Online() {
		t.Fatalf("unexpected initial state")
	}
	task := playRace(t, a)
	if err := task.Wait(); !errors.Is(err, syncer.ErrNotSignedIn) || task.Status() != syncer.StatusIdle {
		t.Fatalf("expected idle push, got %v %v", task.Status(), err)
	}
	if a.Records().Len() != 1 {
		t.Fatalf("expected the race to be saved locally")
	}
	if _, err := a.Login(context.Background(), "a@example.com", "secret1"); !errors.Is(err, ErrNoServer) {
		t.Fatalf("expected no server error, got %v", err)
	}
}

func TestSignInPersistsAndPushes(t *testing.T) {
	srv, serverStore := newServer(t)
	rem, err := remote.New(srv.URL, srv.Client())
	if err != nil {
		t.Fatalf("remote: %v", err)
	}
	dbPath := filepath.Join(t.TempDir(), "local.db")
	a := openApp(t, dbPath, rem)

	user, err := a.Register(context.Background(), "ash@example.com", "pikachu", "Ash")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	task := playRace(t, a)
	if err := task.Wait(); err != nil {
		t.Fatalf("push: %v", err)
	}
	page, err := serverStore.ListRacesByUser(context.Background(), user.ID, 10, 0)
	if err != nil || page.Total != 1 {
		t.Fatalf("expected pushed race on server: %+v err=%v", page, err)
	}
	_ = a.Close()

	reopened := openApp(t, dbPath, rem)
	defer func() {
		_ = reopened.Close()
	}()
	got, ok := reopened.User()
	if !ok || got.ID != user.ID {
		t.Fatalf("expected saved token to restore the account, got %+v ok=%v", got, ok)
	}
	if err := reopened.Logout(context.Background()); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if reopened.Token() != "" {
		t.Fatalf("expected token to be cleared")
	}
	if reopened.Records().Len() != 1 {
		t.Fatalf("logout must keep local records")
	}
}

func TestRejectedTokenIsDiscarded(t *testing.T) {
	srv, _ := newServer(t)
	rem, err := remote.New(srv.URL, srv.Client())
	if err != nil {
		t.Fatalf("remote: %v", err)
	}
	dbPath := filepath.Join(t.TempDir(), "local.db")
	seedToken(t, dbPath, "garbage")

	a := openApp(t, dbPath, rem)
	defer func() {
		_ = a.Close()
	}()
	if a.Token() != "" {
		t.Fatalf("expected rejected token to be cleared")
	}
	if _, ok := a.User(); ok {
		t.Fatalf("expected no user")
	}
}

func TestUnreachableServerKeepsToken(t *testing.T) {
	srv := httptest.NewServer(nil)
	addr := srv.URL
	srv.Close()
	rem, err := remote.New(addr, nil)
	if err != nil {
		t.Fatalf("remote: %v", err)
	}
	dbPath := filepath.Join(t.TempDir(), "local.db")
	seedToken(t, dbPath, "saved-token")

	a := openApp(t, dbPath, rem)
	defer func() {
		_ = a.Close()
	}()
	if a.Token() != "saved-token" {
		t.Fatalf("expected token to survive an unreachable server, got %q", a.Token())
	}
	if _, ok := a.User(); ok {
		t.Fatalf("user must stay unverified")
	}
	if !a.Initialized() {
		t.Fatalf("expected app to be initialized")
	}
}

func seedToken(t *testing.T, dbPath, token string) {
	t.Helper()
	st, err := store.Open(dbPath)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := st.Set(context.Background(), TokenKey, token); err != nil {
		t.Fatalf("set token: %v", err)
	}
	_ = st.Close()
}
