// Package records keeps the local-first race history, per-quote bests and
// aggregate stats, persisting the whole document after every mutation.
package records

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/verte-zerg/typerush/internal/model"
)

// StoreKey is the key holding the serialized PersonalStore.
const StoreKey = "typerush-personal-bests"

// KV is the persistent key-value surface the store writes through.
type KV interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
}

// SaveResult reports how a saved race compares to the state before it.
type SaveResult struct {
	Record              model.RaceRecord
	IsNewQuoteRecord    bool
	IsNewOverallRecord  bool
	PreviousQuoteRecord *model.QuoteRecord
}

// Store holds the PersonalStore in memory. Every mutation builds the next
// state on a copy, persists it, and only then replaces the in-memory state.
type Store struct {
	mu  sync.Mutex
	kv  KV
	now func() time.Time

	data        model.PersonalStore
	sumWPM      int
	sumAccuracy float64
}

// Open loads the persisted document from kv, upgrading partial documents to
// the full shape. now defaults to time.Now.
func Open(ctx context.Context, kv KV, now func() time.Time) (*Store, error) {
	if now == nil {
		now = time.Now
	}
	s := &Store{kv: kv, now: now}
	raw, ok, err := kv.Get(ctx, StoreKey)
	if err != nil {
		return nil, fmt.Errorf("failed to load personal store: %w", err)
	}
	data := Empty()
	if ok && raw != "" {
		var stored model.PersonalStore
		if err := json.Unmarshal([]byte(raw), &stored); err != nil {
			return nil, fmt.Errorf("failed to decode personal store: %w", err)
		}
		history := stored.RaceHistory
		sortNewestFirst(history)
		data = Recompute(history)
	}
	s.replace(data)
	return s, nil
}

// Empty returns the default, empty document shape.
func Empty() model.PersonalStore {
	return model.PersonalStore{
		QuoteRecords: map[int]model.QuoteRecord{},
		RaceHistory:  []model.RaceRecord{},
		Stats:        model.AggregateStats{RewardsCollected: []string{}},
	}
}

// NewID returns a client-side race id.
func NewID() (string, error) {
	id, err := gonanoid.New()
	if err != nil {
		return "", fmt.Errorf("generate race id: %w", err)
	}
	return "race-" + id, nil
}

// Save validates rec and records it. Missing ids and timestamps are filled
// in. The result flags report whether rec strictly beats the bests held
// before the call. A record older than the newest race is placed by its
// timestamp and the derived fields are recomputed.
func (s *Store) Save(ctx context.Context, rec model.RaceRecord) (SaveResult, error) {
	if err := model.ValidateRace(rec); err != nil {
		return SaveResult{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.prepare(rec)
	if err != nil {
		return SaveResult{}, err
	}

	result := SaveResult{Record: rec}
	prev, hadPrev := s.data.QuoteRecords[rec.QuoteID]
	if hadPrev {
		p := prev
		result.PreviousQuoteRecord = &p
	}
	result.IsNewQuoteRecord = !hadPrev || rec.WPM > prev.WPM
	result.IsNewOverallRecord = rec.WPM > s.data.OverallBestWPM

	if h := s.data.RaceHistory; len(h) > 0 && rec.CreatedAt.Before(h[0].CreatedAt) {
		history := make([]model.RaceRecord, 0, len(h)+1)
		history = append(history, rec)
		history = append(history, h...)
		sortNewestFirst(history)
		next := Recompute(history)
		if err := s.persist(ctx, next); err != nil {
			return SaveResult{}, err
		}
		s.replace(next)
		return result, nil
	}

	next := clone(s.data)
	if !hadPrev || beats(rec, prev) {
		next.QuoteRecords[rec.QuoteID] = quoteRecordOf(rec)
	}
	if rec.WPM > next.OverallBestWPM {
		next.OverallBestWPM = rec.WPM
	}
	if rec.Accuracy > next.OverallBestAccuracy {
		next.OverallBestAccuracy = rec.Accuracy
	}

	next.RaceHistory = append([]model.RaceRecord{rec}, next.RaceHistory...)

	sumWPM := s.sumWPM + rec.WPM
	sumAccuracy := s.sumAccuracy + rec.Accuracy
	next.Stats = appendStats(next.Stats, rec, len(next.RaceHistory), sumWPM, sumAccuracy)

	if err := s.persist(ctx, next); err != nil {
		return SaveResult{}, err
	}
	s.data = next
	s.sumWPM = sumWPM
	s.sumAccuracy = sumAccuracy
	return result, nil
}

// ImportBatch appends records keeping their own timestamps. It does not
// deduplicate; see Merge. Derived fields are fully recomputed.
func (s *Store) ImportBatch(ctx context.Context, recs []model.RaceRecord) (int, error) {
	for _, rec := range recs {
		if err := model.ValidateRace(rec); err != nil {
			return 0, err
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.importLocked(ctx, recs)
}

// Merge imports the remote records that are not already present locally.
// Two races are the same when createdAt, wpm and quoteId are all equal.
// Invalid remote records are skipped. It returns the number merged.
func (s *Store) Merge(ctx context.Context, remote []model.RaceRecord) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	known := make(map[mergeKey]struct{}, len(s.data.RaceHistory)+len(remote))
	for _, rec := range s.data.RaceHistory {
		known[keyOf(rec)] = struct{}{}
	}
	fresh := make([]model.RaceRecord, 0, len(remote))
	for _, rec := range remote {
		if model.ValidateRace(rec) != nil {
			continue
		}
		k := keyOf(rec)
		if _, dup := known[k]; dup {
			continue
		}
		known[k] = struct{}{}
		fresh = append(fresh, rec)
	}
	if len(fresh) == 0 {
		return 0, nil
	}
	return s.importLocked(ctx, fresh)
}

// Reset clears all local data. It is only used for explicit user requests.
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := Empty()
	if err := s.persist(ctx, next); err != nil {
		return err
	}
	s.replace(next)
	return nil
}

func (s *Store) importLocked(ctx context.Context, recs []model.RaceRecord) (int, error) {
	if len(recs) == 0 {
		return 0, nil
	}
	history := make([]model.RaceRecord, 0, len(s.data.RaceHistory)+len(recs))
	history = append(history, s.data.RaceHistory...)
	for _, rec := range recs {
		prepared, err := s.prepare(rec)
		if err != nil {
			return 0, err
		}
		history = append(history, prepared)
	}
	sortNewestFirst(history)
	next := Recompute(history)
	if err := s.persist(ctx, next); err != nil {
		return 0, err
	}
	s.replace(next)
	return len(recs), nil
}

func (s *Store) prepare(rec model.RaceRecord) (model.RaceRecord, error) {
	if rec.ID == "" {
		id, err := NewID()
		if err != nil {
			return model.RaceRecord{}, err
		}
		rec.ID = id
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = s.now()
	}
	rec.CreatedAt = rec.CreatedAt.UTC().Truncate(time.Millisecond)
	return rec, nil
}

func (s *Store) persist(ctx context.Context, data model.PersonalStore) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to encode personal store: %w", err)
	}
	if err := s.kv.Set(ctx, StoreKey, string(raw)); err != nil {
		return fmt.Errorf("failed to persist personal store: %w", err)
	}
	return nil
}

func (s *Store) replace(data model.PersonalStore) {
	s.data = data
	s.sumWPM = 0
	s.sumAccuracy = 0
	for i := len(data.RaceHistory) - 1; i >= 0; i-- {
		s.sumWPM += data.RaceHistory[i].WPM
		s.sumAccuracy += data.RaceHistory[i].Accuracy
	}
}

type mergeKey struct {
	createdMs int64
	wpm       int
	quoteID   int
}

func keyOf(rec model.RaceRecord) mergeKey {
	return mergeKey{createdMs: rec.CreatedAt.UnixMilli(), wpm: rec.WPM, quoteID: rec.QuoteID}
}

func sortNewestFirst(history []model.RaceRecord) {
	sort.SliceStable(history, func(i, j int) bool {
		return history[i].CreatedAt.After(history[j].CreatedAt)
	})
}

func clone(data model.PersonalStore) model.PersonalStore {
	out := data
	out.QuoteRecords = make(map[int]model.QuoteRecord, len(data.QuoteRecords))
	for k, v := range data.QuoteRecords {
		out.QuoteRecords[k] = v
	}
	out.RaceHistory = append([]model.RaceRecord{}, data.RaceHistory...)
	out.Stats.RewardsCollected = append([]string{}, data.Stats.RewardsCollected...)
	return out
}
