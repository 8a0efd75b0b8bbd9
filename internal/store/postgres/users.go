package postgres

import (
	"context"
	"fmt"

	"shop-ledger/internal/core"
	"shop-ledger/internal/store"
)

func (s *pgStore) GetByUsername(ctx context.Context, username string) (*core.User, error) {
	u := &core.User{}
	err := s.pool.QueryRow(ctx, `
		SELECT id, shop_id, username, email, password_hash, role, is_active, created_at
		FROM users
		WHERE username = $1 AND is_active = true
		LIMIT 1`,
		username,
	).Scan(&u.ID, &u.ShopID, &u.Username, &u.Email, &u.PasswordHash, &u.Role, &u.IsActive, &u.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("user %q: %w", username, mapError(err))
	}
	return u, nil
}

func (s *pgStore) GetByID(ctx context.Context, userID int) (*core.User, error) {
	u := &core.User{}
	err := s.pool.QueryRow(ctx, `
		SELECT id, shop_id, username, email, password_hash, role, is_active, created_at
		FROM users
		WHERE id = $1`,
		userID,
	).Scan(&u.ID, &u.ShopID, &u.Username, &u.Email, &u.PasswordHash, &u.Role, &u.IsActive, &u.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("user id=%d: %w", userID, mapError(err))
	}
	return u, nil
}

func (s *pgStore) CreateUser(ctx context.Context, in core.User, password string) (*core.User, error) {
	u, err := store.PrepareUser(in, password, s.now())
	if err != nil {
		return nil, err
	}
	err = s.pool.QueryRow(ctx, `
		INSERT INTO users (shop_id, username, email, password_hash, role, is_active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`,
		u.ShopID, u.Username, u.Email, u.PasswordHash, u.Role, u.IsActive, u.CreatedAt,
	).Scan(&u.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to create user %q: %w", u.Username, mapError(err))
	}
	return &u, nil
}
