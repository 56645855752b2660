package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
)

type dbPool interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type mockDBPool struct {
	queryRowFunc func(ctx context.Context, sql string, args ...any) pgx.Row
}

func (m *mockDBPool) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	if m.queryRowFunc != nil {
		return m.queryRowFunc(ctx, sql, args...)
	}
	return nil
}

type mockRow struct {
	scanFunc func(dest ...any) error
}

func (m *mockRow) Scan(dest ...any) error {
	if m.scanFunc != nil {
		return m.scanFunc(dest...)
	}
	return nil
}

// Test double mirroring registryCacheRepository.Get over a mockable pool.
type testRegistryCacheRepository struct {
	db     dbPool
	ttl    time.Duration
	logger *zap.Logger
}

func (r *testRegistryCacheRepository) Get(ctx context.Context, key string) (map[string]any, bool, error) {
	query := `SELECT payload FROM registry_cache WHERE cache_key = $1 AND created_at > now() - $2::interval`

	var raw []byte
	err := r.db.QueryRow(ctx, query, key, r.ttl.String()).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to read registry cache: %w", err)
	}

	var payload map[string]any
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, false, fmt.Errorf("failed to decode cached payload: %w", err)
	}
	return payload, true, nil
}

func TestRegistryCacheGet(t *testing.T) {
	tests := []struct {
		name            string
		key             string
		mockPayload     string
		mockError       error
		expectedPayload map[string]any
		expectedHit     bool
		expectedError   string
	}{
		{
			name:            "cache_hit",
			key:             "abc123",
			mockPayload:     `{"issues": []}`,
			expectedPayload: map[string]any{"issues": []any{}},
			expectedHit:     true,
		},
		{
			name:        "cache_miss_is_not_an_error",
			key:         "nonexistent",
			mockError:   pgx.ErrNoRows,
			expectedHit: false,
		},
		{
			name:          "database_error",
			key:           "error_key",
			mockError:     errors.New("database connection failed"),
			expectedError: "failed to read registry cache",
		},
		{
			name:          "corrupt_payload",
			key:           "abc123",
			mockPayload:   "not json",
			expectedError: "failed to decode cached payload",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var queriedKey, queriedTTL any
			mockPool := &mockDBPool{
				queryRowFunc: func(ctx context.Context, sql string, args ...any) pgx.Row {
					if len(args) == 2 {
						queriedKey, queriedTTL = args[0], args[1]
					}
					return &mockRow{
						scanFunc: func(dest ...any) error {
							if tt.mockError != nil {
								return tt.mockError
							}
							if len(dest) > 0 {
								if bytesPtr, ok := dest[0].(*[]byte); ok {
									*bytesPtr = []byte(tt.mockPayload)
								}
							}
							return nil
						},
					}
				},
			}

			repo := &testRegistryCacheRepository{
				db:     mockPool,
				ttl:    15 * time.Minute,
				logger: zaptest.NewLogger(t),
			}

			payload, hit, err := repo.Get(context.Background(), tt.key)

			if tt.expectedError != "" {
				if err == nil {
					t.Errorf("expected error containing '%s', but got nil", tt.expectedError)
					return
				}
				if !cacheContainsError(err.Error(), tt.expectedError) {
					t.Errorf("expected error containing '%s', but got '%s'", tt.expectedError, err.Error())
				}
				return
			}

			if err != nil {
				t.Errorf("unexpected error: %v", err)
				return
			}

			if hit != tt.expectedHit {
				t.Errorf("expected hit=%v, but got %v", tt.expectedHit, hit)
			}
			if tt.expectedHit {
				if queriedKey != tt.key {
					t.Errorf("expected query key '%s', but got '%v'", tt.key, queriedKey)
				}
				if queriedTTL != (15 * time.Minute).String() {
					t.Errorf("expected ttl interval '%s', but got '%v'", (15 * time.Minute).String(), queriedTTL)
				}
				raw, _ := json.Marshal(payload)
				want, _ := json.Marshal(tt.expectedPayload)
				if string(raw) != string(want) {
					t.Errorf("expected payload %s, but got %s", want, raw)
				}
			}
		})
	}
}

func cacheContainsError(got, want string) bool {
	return len(got) > 0 && len(want) > 0 && (got == want ||
		(len(got) >= len(want) && got[:len(want)] == want))
}
