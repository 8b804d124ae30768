// Package storage hosts images for trips, posts and reviews, on S3 when it
// is configured and on local disk otherwise.
package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"backend-mongoliatrails/internal/db"
	"backend-mongoliatrails/internal/shared/apperr"

	"github.com/google/uuid"
)

const (
	MaxUploadSize = 10 << 20
	defaultKind   = "general"
)

var kinds = map[string]bool{"trip": true, "blog": true, "comment": true, "avatar": true, defaultKind: true}

type Object struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

type Service struct {
	db       db.Querier
	uploader Uploader
	now      func() time.Time
}

func NewService(q db.Querier, uploader Uploader) *Service {
	return &Service{db: q, uploader: uploader, now: time.Now}
}

// Upload stores an image and records who uploaded it.
func (s *Service) Upload(ctx context.Context, userID, kind, filename string, size int64, body io.Reader) (Object, error) {
	kind = strings.ToLower(strings.TrimSpace(kind))
	if kind == "" {
		kind = defaultKind
	}
	if !kinds[kind] {
		return Object{}, apperr.Invalid("kind", "unknown upload kind")
	}
	if size > MaxUploadSize {
		return Object{}, apperr.Invalid("file", "file is too large")
	}

	buf, err := io.ReadAll(io.LimitReader(body, MaxUploadSize+1))
	if err != nil {
		return Object{}, fmt.Errorf("read upload: %w", err)
	}
	if len(buf) > MaxUploadSize {
		return Object{}, apperr.Invalid("file", "file is too large")
	}
	contentType := http.DetectContentType(buf)
	if !strings.HasPrefix(contentType, "image/") {
		return Object{}, apperr.Invalid("file", "only images can be uploaded")
	}

	id := uuid.NewString()
	key := fmt.Sprintf("%s/%d-%s%s", kind, s.now().Unix(), id[:8], strings.ToLower(filepath.Ext(filename)))
	url, err := s.uploader.Upload(ctx, key, contentType, bytes.NewReader(buf))
	if err != nil {
		return Object{}, err
	}

	if _, err := s.db.Exec(ctx, `
		INSERT INTO storage_objects (id, user_id, url, kind)
		VALUES ($1, $2, $3, $4)
	`, id, userID, url, kind); err != nil {
		return Object{}, fmt.Errorf("record upload: %w", err)
	}
	log.Printf("upload stored id=%s kind=%s size=%d", id, kind, len(buf))
	return Object{ID: id, URL: url}, nil
}
