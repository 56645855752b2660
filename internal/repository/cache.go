package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// RegistryCacheRepository stores raw registry payloads keyed by a content hash
// of the query, so repeated live lookups within the TTL reuse the stored
// response instead of hitting the registry again.
type RegistryCacheRepository interface {
	Get(ctx context.Context, key string) (map[string]any, bool, error)
	Put(ctx context.Context, key string, payload map[string]any) error
}

type registryCacheRepository struct {
	db     *pgxpool.Pool
	ttl    time.Duration
	logger *zap.Logger
}

func NewRegistryCacheRepository(db *pgxpool.Pool, ttl time.Duration, logger *zap.Logger) RegistryCacheRepository {
	return &registryCacheRepository{db: db, ttl: ttl, logger: logger}
}

func (r *registryCacheRepository) Get(ctx context.Context, key string) (map[string]any, bool, error) {
	query := `SELECT payload FROM registry_cache WHERE cache_key = $1 AND created_at > now() - $2::interval`

	var raw []byte
	err := r.db.QueryRow(ctx, query, key, r.ttl.String()).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, nil
		}
		r.logger.Error("failed to read registry cache", zap.Error(err), zap.String("key", key))
		return nil, false, fmt.Errorf("failed to read registry cache: %w", err)
	}

	var payload map[string]any
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, false, fmt.Errorf("failed to decode cached payload: %w", err)
	}

	r.logger.Debug("registry cache hit", zap.String("key", key))
	return payload, true, nil
}

func (r *registryCacheRepository) Put(ctx context.Context, key string, payload map[string]any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode payload for cache: %w", err)
	}

	query := `
		INSERT INTO registry_cache (id, cache_key, payload)
		VALUES ($1, $2, $3)
		ON CONFLICT (cache_key) DO UPDATE SET payload = EXCLUDED.payload, created_at = now()
	`
	if _, err := r.db.Exec(ctx, query, uuid.New().String(), key, raw); err != nil {
		r.logger.Error("failed to write registry cache", zap.Error(err), zap.String("key", key))
		return fmt.Errorf("failed to write registry cache: %w", err)
	}
	return nil
}
