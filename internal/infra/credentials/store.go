package credentials

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"receptionist/internal/infra"
	"receptionist/internal/sqlinline"
)

const ProviderGemini = "gemini"

// Store keeps provider API keys in the integration_tokens table. Keys are
// read once at startup and treated as read-only configuration afterwards.
type Store struct {
	sql infra.SQLExecutor
}

func NewStore(sql infra.SQLExecutor) *Store {
	return &Store{sql: sql}
}

// EnsureSchema creates the token table when it does not exist yet.
func (s *Store) EnsureSchema(ctx context.Context) error {
	_, err := s.sql.Exec(ctx, sqlinline.QEnsureIntegrationTokens)
	return err
}

func (s *Store) GeminiAPIKey(ctx context.Context) (string, error) {
	return s.Token(ctx, ProviderGemini)
}

// Token returns the stored token for provider, or "" when none is stored.
func (s *Store) Token(ctx context.Context, provider string) (string, error) {
	row := s.sql.QueryRow(ctx, sqlinline.QSelectIntegrationToken, provider)
	var token string
	if err := row.Scan(&token); err != nil {
		if infra.IsNoRows(err) {
			return "", nil
		}
		return "", err
	}
	return strings.TrimSpace(token), nil
}

func (s *Store) SetGeminiAPIKey(ctx context.Context, key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return errors.New("gemini api key is required")
	}
	return s.upsert(ctx, ProviderGemini, key, map[string]any{"source": "cli"})
}

func (s *Store) upsert(ctx context.Context, provider, token string, props map[string]any) error {
	payload := props
	if payload == nil {
		payload = map[string]any{}
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	_, err = s.sql.Exec(ctx, sqlinline.QUpsertIntegrationToken, provider, token, raw)
	return err
}

// ResolveGeminiAPIKey prefers the configured key and falls back to the store.
// A nil store is allowed.
func ResolveGeminiAPIKey(ctx context.Context, configured string, store *Store) (string, error) {
	if key := strings.TrimSpace(configured); key != "" {
		return key, nil
	}
	if store == nil {
		return "", nil
	}
	return store.GeminiAPIKey(ctx)
}

// LookupGeminiAPIKey returns cfg.GeminiAPIKey, or the stored key when the
// environment has none and DATABASE_URL is set. The pool is closed before
// returning; the key is read once per process.
func LookupGeminiAPIKey(ctx context.Context, cfg *infra.Config, logger infra.Logger) (string, error) {
	if key := strings.TrimSpace(cfg.GeminiAPIKey); key != "" {
		return key, nil
	}
	pool, err := infra.NewDBPool(ctx, cfg)
	if errors.Is(err, infra.ErrNoDatabase) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	defer pool.Close()
	return ResolveGeminiAPIKey(ctx, "", NewStore(infra.NewSQLRunner(pool, logger)))
}
