package registry

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"sourcing_marketplace/internal/models"
)

// Source is a single external registry lookup. Fetch never fails past its
// boundary: transport, auth and decode errors degrade to a synthetic fallback
// result tagged Synthetic=true so auditing can tell real data apart.
type Source interface {
	Name() string
	Fetch(ctx context.Context, supplier *models.Supplier) models.SourceResult
}

// Credentials enumerates the API key each source needs. An empty key switches
// that source (and only that source) into synthetic mode.
type Credentials struct {
	FSSP     string
	RNP      string
	EGRUL    string
	Licenses string
}

// PayloadCache stores raw registry responses keyed by a query hash. A nil
// cache disables caching.
type PayloadCache interface {
	Get(ctx context.Context, key string) (map[string]any, bool, error)
	Put(ctx context.Context, key string, payload map[string]any) error
}

const defaultFetchTimeout = 30 * time.Second

var (
	scoreFloor   = decimal.New(2, -1)  // 0.2
	issuePenalty = decimal.New(15, -2) // 0.15
	statusOKAt   = decimal.New(85, -2)
	statusWarnAt = decimal.New(65, -2)
)

// New returns the fixed ordered list of registry sources checked during a run.
func New(creds Credentials, fetchTimeout time.Duration, cache PayloadCache, logger *zap.Logger) []Source {
	if fetchTimeout <= 0 {
		fetchTimeout = defaultFetchTimeout
	}
	f := &fetcher{
		client: &http.Client{Timeout: fetchTimeout},
		cache:  cache,
		logger: logger,
	}
	return []Source{
		&fsspSource{apiKey: creds.FSSP, fetcher: f},
		&rnpSource{apiKey: creds.RNP, fetcher: f},
		&egrulSource{apiKey: creds.EGRUL, fetcher: f},
		&licensesSource{apiKey: creds.Licenses, fetcher: f},
	}
}

// fetcher is the live-mode plumbing shared by all sources.
type fetcher struct {
	client *http.Client
	cache  PayloadCache
	logger *zap.Logger
}

// fetch runs the shared live-mode flow for one source: a missing key or any
// request failure yields a synthetic result instead of an error.
func (f *fetcher) fetch(ctx context.Context, src, apiKey string, supplier *models.Supplier, endpoint string, params url.Values) models.SourceResult {
	if apiKey == "" {
		return syntheticResult(src, supplier)
	}

	key := cacheKey(src, endpoint, params)
	if f.cache != nil {
		if payload, ok, err := f.cache.Get(ctx, key); err == nil && ok {
			return resultFromPayload(src, payload)
		}
	}

	payload, err := f.fetchJSON(ctx, endpoint, params)
	if err != nil {
		f.logger.Warn("registry source failed, using synthetic fallback",
			zap.String("source", src),
			zap.String("supplier_id", supplier.ID),
			zap.Error(err))
		return syntheticResult(src, supplier)
	}

	if f.cache != nil {
		if err := f.cache.Put(ctx, key, payload); err != nil {
			f.logger.Warn("failed to cache registry payload", zap.String("source", src), zap.Error(err))
		}
	}
	return resultFromPayload(src, payload)
}

func (f *fetcher) fetchJSON(ctx context.Context, endpoint string, params url.Values) (map[string]any, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build registry request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("registry request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("registry returned status %d", resp.StatusCode)
	}

	var payload map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode registry response: %w", err)
	}
	return payload, nil
}

func cacheKey(src, endpoint string, params url.Values) string {
	sum := sha256.Sum256([]byte(src + "|" + endpoint + "?" + params.Encode()))
	return hex.EncodeToString(sum[:])
}

func resultFromPayload(src string, payload map[string]any) models.SourceResult {
	score := scoreFromPayload(payload)
	return models.SourceResult{
		Source:  src,
		Status:  statusFromScore(score),
		Score:   score,
		Payload: payload,
	}
}

// scoreFromPayload derives a score from the number of issues the registry
// reported: 1.00 minus 0.15 per issue, floored at 0.20.
func scoreFromPayload(payload map[string]any) decimal.Decimal {
	issues, ok := payload["issues"].([]any)
	if !ok {
		issues, _ = payload["result"].([]any)
	}

	score := decimal.NewFromInt(1).Sub(issuePenalty.Mul(decimal.NewFromInt(int64(len(issues)))))
	if score.LessThan(scoreFloor) {
		score = scoreFloor
	}
	return score.Round(2)
}

func statusFromScore(score decimal.Decimal) models.SourceStatus {
	switch {
	case score.GreaterThanOrEqual(statusOKAt):
		return models.SourceStatusOK
	case score.GreaterThanOrEqual(statusWarnAt):
		return models.SourceStatusWarning
	default:
		return models.SourceStatusError
	}
}
