// Package settings keeps the single global settings document, cached in
// redis between saves.
package settings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"backend-mongoliatrails/internal/db"
	"backend-mongoliatrails/internal/i18n"
	"backend-mongoliatrails/internal/shared/apperr"
	"backend-mongoliatrails/internal/shared/validate"

	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
)

const (
	documentID = "global_settings"
	cacheKey   = "settings:global"
	cacheTTL   = 10 * time.Minute
)

type Service struct {
	db    db.Querier
	cache *redis.Client
}

// NewService builds the settings service. cache may be nil.
func NewService(q db.Querier, cache *redis.Client) *Service {
	return &Service{db: q, cache: cache}
}

func (s *Service) Get(ctx context.Context) (Settings, error) {
	if cached, ok := s.fromCache(ctx); ok {
		return cached, nil
	}

	var raw []byte
	err := s.db.QueryRow(ctx, `SELECT data FROM settings WHERE id = $1`, documentID).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return Defaults(), nil
	}
	if err != nil {
		return Settings{}, err
	}

	out := Defaults()
	if err := json.Unmarshal(raw, &out); err != nil {
		return Settings{}, fmt.Errorf("decode settings: %w", err)
	}
	s.store(ctx, raw)
	return out, nil
}

// Save replaces the document and drops the cached copy.
func (s *Service) Save(ctx context.Context, in Settings) (Settings, error) {
	if err := validate.Struct(in); err != nil {
		return Settings{}, err
	}
	if len(in.SiteName) > 0 && !in.SiteName.HasBase() {
		return Settings{}, apperr.Invalid("siteName", fmt.Sprintf("%s entry is required", i18n.Base))
	}
	if in.SiteName == nil {
		in.SiteName = Defaults().SiteName
	}
	if in.AnnouncementBar == nil {
		in.AnnouncementBar = i18n.Text{}
	}

	raw, err := json.Marshal(in)
	if err != nil {
		return Settings{}, err
	}
	_, err = s.db.Exec(ctx, `
		INSERT INTO settings (id, data, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (id) DO UPDATE SET data = EXCLUDED.data, updated_at = now()
	`, documentID, raw)
	if err != nil {
		return Settings{}, fmt.Errorf("save settings: %w", err)
	}

	if s.cache != nil {
		if err := s.cache.Del(ctx, cacheKey).Err(); err != nil {
			log.Printf("settings cache invalidate failed err=%v", err)
		}
	}
	return in, nil
}

func (s *Service) fromCache(ctx context.Context) (Settings, bool) {
	if s.cache == nil {
		return Settings{}, false
	}
	raw, err := s.cache.Get(ctx, cacheKey).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.Printf("settings cache read failed err=%v", err)
		}
		return Settings{}, false
	}
	out := Defaults()
	if err := json.Unmarshal(raw, &out); err != nil {
		return Settings{}, false
	}
	return out, true
}

func (s *Service) store(ctx context.Context, raw []byte) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, cacheKey, raw, cacheTTL).Err(); err != nil {
		log.Printf("settings cache write failed err=%v", err)
	}
}
