package sqlite

import (
	"context"
	"fmt"

	"shop-ledger/internal/core"
	"shop-ledger/internal/store"
)

const userColumns = `id, shop_id, username, email, password_hash, role, is_active, created_at`

func scanUser(row scanner) (*core.User, error) {
	u := &core.User{}
	var created string
	if err := row.Scan(&u.ID, &u.ShopID, &u.Username, &u.Email, &u.PasswordHash, &u.Role, &u.IsActive, &created); err != nil {
		return nil, mapError(err)
	}
	t, err := parseTime(created)
	if err != nil {
		return nil, err
	}
	u.CreatedAt = t
	return u, nil
}

func (s *SQLiteStore) GetByUsername(ctx context.Context, username string) (*core.User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE username = ? AND is_active = 1 LIMIT 1`, username))
	if err != nil {
		return nil, fmt.Errorf("user %q: %w", username, err)
	}
	return u, nil
}

func (s *SQLiteStore) GetByID(ctx context.Context, userID int) (*core.User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, userID))
	if err != nil {
		return nil, fmt.Errorf("user id=%d: %w", userID, err)
	}
	return u, nil
}

func (s *SQLiteStore) CreateUser(ctx context.Context, in core.User, password string) (*core.User, error) {
	u, err := store.PrepareUser(in, password, s.now())
	if err != nil {
		return nil, err
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO users (shop_id, username, email, password_hash, role, is_active, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		u.ShopID, u.Username, u.Email, u.PasswordHash, u.Role, u.IsActive, formatTime(u.CreatedAt))
	if err != nil {
		return nil, fmt.Errorf("failed to create user %q: %w", u.Username, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to read user id: %w", err)
	}
	u.ID = int(id)
	return &u, nil
}
