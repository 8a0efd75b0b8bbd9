package postgres

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"shop-ledger/internal/core"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

func TestMapError(t *testing.T) {
	other := errors.New("boom")
	tests := []struct {
		name string
		in   error
		want error
	}{
		{"no rows", fmt.Errorf("scan: %w", pgx.ErrNoRows), core.ErrRecordNotFound},
		{"bad password", &pgconn.PgError{Code: "28P01", Message: "password authentication failed"}, core.ErrUnauthorized},
		{"connection failure", &pgconn.PgError{Code: "08006"}, core.ErrUpstreamUnavailable},
		{"admin shutdown", &pgconn.PgError{Code: "57P01"}, core.ErrUpstreamUnavailable},
		{"deadline", context.DeadlineExceeded, core.ErrUpstreamUnavailable},
		{"unique violation passes through", &pgconn.PgError{Code: "23505"}, nil},
		{"unknown passes through", other, other},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := mapError(tt.in)
			if tt.want == nil {
				if got != tt.in {
					t.Errorf("mapError changed %v to %v", tt.in, got)
				}
				return
			}
			if !errors.Is(got, tt.want) {
				t.Errorf("mapError(%v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
	if mapError(nil) != nil {
		t.Error("mapError(nil) != nil")
	}
}
