package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/verte-zerg/typerush/internal/model"
)

// CreateUser inserts a new account. A taken email yields model.ErrDuplicateAccount.
func (s *Store) CreateUser(ctx context.Context, user model.User) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			if rerr := tx.Rollback(); rerr != nil {
				// Best-effort rollback.
				_ = rerr
			}
		}
	}()

	var existing int
	if err = tx.QueryRowContext(ctx, `SELECT COUNT(1) FROM users WHERE email = ?`, user.Email).Scan(&existing); err != nil {
		return err
	}
	if existing > 0 {
		err = fmt.Errorf("%w: %s", model.ErrDuplicateAccount, user.Email)
		return err
	}
	if _, err = tx.ExecContext(ctx,
		`INSERT INTO users (id, email, display_name, password_hash, created_at_ms) VALUES (?, ?, ?, ?, ?)`,
		user.ID, user.Email, user.DisplayName, user.PasswordHash, user.CreatedAt.UnixMilli(),
	); err != nil {
		return err
	}
	err = tx.Commit()
	return err
}

// UserByEmail looks up an account by email.
func (s *Store) UserByEmail(ctx context.Context, email string) (model.User, bool, error) {
	return s.scanUser(s.db.QueryRowContext(ctx,
		`SELECT id, email, display_name, password_hash, created_at_ms FROM users WHERE email = ?`, email))
}

// UserByID looks up an account by id.
func (s *Store) UserByID(ctx context.Context, id string) (model.User, bool, error) {
	return s.scanUser(s.db.QueryRowContext(ctx,
		`SELECT id, email, display_name, password_hash, created_at_ms FROM users WHERE id = ?`, id))
}

// UpdateDisplayName changes the display name of an account.
func (s *Store) UpdateDisplayName(ctx context.Context, id, displayName string) (model.User, bool, error) {
	res, err := s.db.ExecContext(ctx, `UPDATE users SET display_name = ? WHERE id = ?`, displayName, id)
	if err != nil {
		return model.User{}, false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return model.User{}, false, err
	}
	if n == 0 {
		return model.User{}, false, nil
	}
	return s.UserByID(ctx, id)
}

// DisplayNames maps user ids to display names. Unknown ids are omitted.
func (s *Store) DisplayNames(ctx context.Context, ids []string) (map[string]string, error) {
	result := map[string]string{}
	if len(ids) == 0 {
		return result, nil
	}
	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = id
	}
	query := fmt.Sprintf(`SELECT id, display_name FROM users WHERE id IN (%s)`, strings.Join(placeholders, ","))
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
	for rows.Next() {
		var id, name string
		if err := rows.Scan(&id, &name); err != nil {
			return nil, err
		}
		result[id] = name
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Store) scanUser(row *sql.Row) (model.User, bool, error) {
	var user model.User
	var createdMs int64
	err := row.Scan(&user.ID, &user.Email, &user.DisplayName, &user.PasswordHash, &createdMs)
	if errors.Is(err, sql.ErrNoRows) {
		return model.User{}, false, nil
	}
	if err != nil {
		return model.User{}, false, err
	}
	user.CreatedAt = time.UnixMilli(createdMs).UTC()
	return user, true, nil
}
