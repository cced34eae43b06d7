package store

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/verte-zerg/typerush/internal/model"
)

const raceColumns = `id, user_id, quote_id, quote_source, wpm, accuracy, time_seconds, errors, reward_name, created_at_ms`

// DedupKey derives the content key that identifies the same logical race
// across client and server ids.
func DedupKey(userID string, rec model.RaceRecord) string {
	h := sha256.New()
	h.Write([]byte(userID))
	h.Write([]byte{0})
	h.Write([]byte(strconv.Itoa(rec.QuoteID)))
	h.Write([]byte{0})
	h.Write([]byte(strconv.FormatInt(rec.CreatedAt.UnixMilli(), 10)))
	h.Write([]byte{0})
	h.Write([]byte(strconv.Itoa(rec.WPM)))
	h.Write([]byte{0})
	h.Write([]byte(strconv.FormatFloat(rec.Accuracy, 'f', -1, 64)))
	return hex.EncodeToString(h.Sum(nil))
}

// CreateRace stores one race for userID under a server-assigned id. A zero
// CreatedAt is stamped with the current time. Submitting a race whose content
// key already exists returns the stored race instead of a duplicate.
func (s *Store) CreateRace(ctx context.Context, userID string, rec model.RaceRecord) (model.RaceRecord, error) {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	rec = normalizeRace(userID, rec)
	key := DedupKey(userID, rec)
	res, err := s.db.ExecContext(ctx, insertRaceSQL, raceArgs(rec, key)...)
	if err != nil {
		return model.RaceRecord{}, fmt.Errorf("failed to insert race: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return model.RaceRecord{}, err
	}
	if n == 1 {
		return rec, nil
	}
	existing, found, err := s.scanRace(s.db.QueryRowContext(ctx,
		`SELECT `+raceColumns+` FROM races WHERE user_id = ? AND dedup_key = ?`, userID, key))
	if err != nil {
		return model.RaceRecord{}, err
	}
	if !found {
		return model.RaceRecord{}, fmt.Errorf("race %s vanished after conflict", key)
	}
	return existing, nil
}

// ImportRaces stores a batch of races for userID keeping each supplied
// CreatedAt. Races already present by content key are skipped; the returned
// count covers newly inserted rows only.
func (s *Store) ImportRaces(ctx context.Context, userID string, recs []model.RaceRecord) (int, error) {
	if len(recs) == 0 {
		return 0, nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() {
		if err != nil {
			if rerr := tx.Rollback(); rerr != nil {
				// Best-effort rollback.
				_ = rerr
			}
		}
	}()

	stmt, err := tx.PrepareContext(ctx, insertRaceSQL)
	if err != nil {
		return 0, err
	}
	defer func() {
		if cerr := stmt.Close(); cerr != nil {
			// Best-effort statement close.
			_ = cerr
		}
	}()

	imported := 0
	now := time.Now()
	for _, rec := range recs {
		if rec.CreatedAt.IsZero() {
			rec.CreatedAt = now
		}
		rec = normalizeRace(userID, rec)
		var res sql.Result
		res, err = stmt.ExecContext(ctx, raceArgs(rec, DedupKey(userID, rec))...)
		if err != nil {
			return 0, fmt.Errorf("failed to import race: %w", err)
		}
		var n int64
		n, err = res.RowsAffected()
		if err != nil {
			return 0, err
		}
		imported += int(n)
	}
	if err = tx.Commit(); err != nil {
		return 0, err
	}
	return imported, nil
}

// ListRacesByUser returns a newest-first page of a user's races and the total count.
func (s *Store) ListRacesByUser(ctx context.Context, userID string, limit, offset int) (model.RacePage, error) {
	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM races WHERE user_id = ?`, userID).Scan(&total); err != nil {
		return model.RacePage{}, err
	}
	if limit <= 0 {
		limit = -1
	}
	if offset < 0 {
		offset = 0
	}
	records, err := s.queryRaces(ctx,
		`SELECT `+raceColumns+` FROM races WHERE user_id = ? ORDER BY created_at_ms DESC, id ASC LIMIT ? OFFSET ?`,
		userID, limit, offset)
	if err != nil {
		return model.RacePage{}, err
	}
	return model.RacePage{Records: records, Total: total}, nil
}

// RaceByID returns a race by its server id.
func (s *Store) RaceByID(ctx context.Context, id string) (model.RaceRecord, bool, error) {
	return s.scanRace(s.db.QueryRowContext(ctx, `SELECT `+raceColumns+` FROM races WHERE id = ?`, id))
}

// ListAll returns every race matching filter, newest first.
func (s *Store) ListAll(ctx context.Context, filter model.RaceFilter) ([]model.RaceRecord, error) {
	clauses := []string{"1=1"}
	args := []any{}
	if filter.UserID != "" {
		clauses = append(clauses, "user_id = ?")
		args = append(args, filter.UserID)
	}
	if filter.QuoteID != nil {
		clauses = append(clauses, "quote_id = ?")
		args = append(args, *filter.QuoteID)
	}
	if filter.After != nil {
		clauses = append(clauses, "created_at_ms > ?")
		args = append(args, filter.After.UnixMilli())
	}
	query := fmt.Sprintf(`SELECT %s FROM races WHERE %s ORDER BY created_at_ms DESC, id ASC`,
		raceColumns, strings.Join(clauses, " AND "))
	return s.queryRaces(ctx, query, args...)
}

const insertRaceSQL = `INSERT OR IGNORE INTO races (` + raceColumns + `, dedup_key)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

func normalizeRace(userID string, rec model.RaceRecord) model.RaceRecord {
	rec.ID = uuid.NewString()
	rec.UserID = userID
	rec.CreatedAt = rec.CreatedAt.UTC().Truncate(time.Millisecond)
	return rec
}

func raceArgs(rec model.RaceRecord, key string) []any {
	return []any{
		rec.ID,
		rec.UserID,
		rec.QuoteID,
		rec.QuoteSource,
		rec.WPM,
		rec.Accuracy,
		rec.TimeSeconds,
		rec.Errors,
		rec.RewardName,
		rec.CreatedAt.UnixMilli(),
		key,
	}
}

func (s *Store) queryRaces(ctx context.Context, query string, args ...any) ([]model.RaceRecord, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var result []model.RaceRecord
	for rows.Next() {
		rec, err := scanRaceRow(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRaceRow(row rowScanner) (model.RaceRecord, error) {
	var rec model.RaceRecord
	var createdMs int64
	if err := row.Scan(&rec.ID, &rec.UserID, &rec.QuoteID, &rec.QuoteSource, &rec.WPM, &rec.Accuracy,
		&rec.TimeSeconds, &rec.Errors, &rec.RewardName, &createdMs); err != nil {
		return model.RaceRecord{}, err
	}
	rec.CreatedAt = time.UnixMilli(createdMs).UTC()
	return rec, nil
}

func (s *Store) scanRace(row *sql.Row) (model.RaceRecord, bool, error) {
	rec, err := scanRaceRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.RaceRecord{}, false, nil
	}
	if err != nil {
		return model.RaceRecord{}, false, err
	}
	return rec, true, nil
}
