package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/verte-zerg/typerush/internal/model"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := Open(filepath.Join(t.TempDir(), "typerush.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		_ = st.Close()
	})
	return st
}

func TestKeyValueRoundTrip(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	if _, ok, err := st.Get(ctx, "token"); err != nil || ok {
		t.Fatalf("expected missing key, ok=%v err=%v", ok, err)
	}
	if err := st.Set(ctx, "token", "a"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := st.Set(ctx, "token", "b"); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	value, ok, err := st.Get(ctx, "token")
	if err != nil || !ok || value != "b" {
		t.Fatalf("unexpected value %q ok=%v err=%v", value, ok, err)
	}
	if err := st.Remove(ctx, "token"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if _, ok, _ := st.Get(ctx, "token"); ok {
		t.Fatalf("expected key removed")
	}
	if err := st.Remove(ctx, "token"); err != nil {
		t.Fatalf("removing a missing key should not fail: %v", err)
	}
}

func TestCreateUserRejectsDuplicateEmail(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	user := model.User{ID: "u1", Email: "a@example.com", DisplayName: "Ash", PasswordHash: "h", CreatedAt: time.Now()}
	if err := st.CreateUser(ctx, user); err != nil {
		t.Fatalf("create user: %v", err)
	}
	user.ID = "u2"
	if err := st.CreateUser(ctx, user); !errors.Is(err, model.ErrDuplicateAccount) {
		t.Fatalf("expected ErrDuplicateAccount, got %v", err)
	}
	got, ok, err := st.UserByEmail(ctx, "a@example.com")
	if err != nil || !ok || got.ID != "u1" {
		t.Fatalf("unexpected lookup %+v ok=%v err=%v", got, ok, err)
	}
	if _, ok, _ := st.UserByID(ctx, "missing"); ok {
		t.Fatalf("expected missing user to be absent")
	}
	names, err := st.DisplayNames(ctx, []string{"u1", "missing"})
	if err != nil {
		t.Fatalf("display names: %v", err)
	}
	if len(names) != 1 || names["u1"] != "Ash" {
		t.Fatalf("unexpected names %v", names)
	}
}

func TestCreateRaceAssignsServerIDAndDedups(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	created := time.Date(2024, 5, 1, 10, 0, 0, 123456789, time.UTC)
	rec := model.RaceRecord{ID: "race-local", QuoteID: 3, WPM: 70, Accuracy: 96, TimeSeconds: 20, CreatedAt: created}

	first, err := st.CreateRace(ctx, "u1", rec)
	if err != nil {
		t.Fatalf("create race: %v", err)
	}
	if first.ID == "race-local" || first.ID == "" {
		t.Fatalf("expected server assigned id, got %q", first.ID)
	}
	if !first.CreatedAt.Equal(created.Truncate(time.Millisecond)) {
		t.Fatalf("expected client createdAt to be kept, got %v", first.CreatedAt)
	}
	second, err := st.CreateRace(ctx, "u1", rec)
	if err != nil {
		t.Fatalf("create duplicate race: %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("expected duplicate submission to return stored race %q, got %q", first.ID, second.ID)
	}
	page, err := st.ListRacesByUser(ctx, "u1", 10, 0)
	if err != nil {
		t.Fatalf("list races: %v", err)
	}
	if page.Total != 1 {
		t.Fatalf("expected one stored race, got %d", page.Total)
	}
	got, ok, err := st.RaceByID(ctx, first.ID)
	if err != nil || !ok || got.WPM != 70 {
		t.Fatalf("unexpected race lookup %+v ok=%v err=%v", got, ok, err)
	}
	if _, ok, _ := st.RaceByID(ctx, "nope"); ok {
		t.Fatalf("expected missing race to be absent")
	}
}

func TestImportRacesIsRepeatable(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	batch := []model.RaceRecord{
		{QuoteID: 1, WPM: 50, Accuracy: 90, CreatedAt: base},
		{QuoteID: 1, WPM: 70, Accuracy: 95, CreatedAt: base.Add(time.Hour)},
		{QuoteID: 2, WPM: 60, Accuracy: 99, CreatedAt: base.Add(2 * time.Hour)},
	}
	n, err := st.ImportRaces(ctx, "u1", batch)
	if err != nil || n != 3 {
		t.Fatalf("expected 3 imported, got %d err=%v", n, err)
	}
	n, err = st.ImportRaces(ctx, "u1", batch)
	if err != nil || n != 0 {
		t.Fatalf("expected re-import to skip all, got %d err=%v", n, err)
	}
	n, err = st.ImportRaces(ctx, "u2", batch[:1])
	if err != nil || n != 1 {
		t.Fatalf("expected other user import to insert, got %d err=%v", n, err)
	}

	page, err := st.ListRacesByUser(ctx, "u1", 2, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if page.Total != 3 || len(page.Records) != 2 {
		t.Fatalf("unexpected page total=%d len=%d", page.Total, len(page.Records))
	}
	if page.Records[0].WPM != 60 || page.Records[1].WPM != 70 {
		t.Fatalf("expected newest first, got %+v", page.Records)
	}
}

func TestListAllFilters(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	if _, err := st.ImportRaces(ctx, "u1", []model.RaceRecord{
		{QuoteID: 5, WPM: 90, CreatedAt: base},
		{QuoteID: 6, WPM: 40, CreatedAt: base.Add(48 * time.Hour)},
	}); err != nil {
		t.Fatalf("import: %v", err)
	}
	if _, err := st.ImportRaces(ctx, "u2", []model.RaceRecord{
		{QuoteID: 5, WPM: 80, CreatedAt: base.Add(24 * time.Hour)},
	}); err != nil {
		t.Fatalf("import: %v", err)
	}

	quote := 5
	got, err := st.ListAll(ctx, model.RaceFilter{QuoteID: &quote})
	if err != nil {
		t.Fatalf("list all: %v", err)
	}
	if len(got) != 2 || got[0].UserID != "u2" {
		t.Fatalf("unexpected quote filter result %+v", got)
	}
	after := base.Add(24 * time.Hour)
	got, err = st.ListAll(ctx, model.RaceFilter{After: &after})
	if err != nil {
		t.Fatalf("list all: %v", err)
	}
	if len(got) != 1 || got[0].QuoteID != 6 {
		t.Fatalf("expected strict after filter, got %+v", got)
	}
	got, err = st.ListAll(ctx, model.RaceFilter{UserID: "u2"})
	if err != nil || len(got) != 1 {
		t.Fatalf("unexpected user filter result %+v err=%v", got, err)
	}
}
