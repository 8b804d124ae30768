package blog

import (
	"context"
	"errors"
	"strings"
	"time"

	"backend-mongoliatrails/internal/db"
	"backend-mongoliatrails/internal/i18n"
	"backend-mongoliatrails/internal/shared/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const (
	postColumns   = `id, title, excerpt, content, category, author, author_img, image, read_time, featured, published_at, created_at`
	featuredLimit = 3
	allCategories = "all"
)

type Service struct {
	db db.Querier
}

func NewService(q db.Querier) *Service {
	return &Service{db: q}
}

func scanPost(row pgx.Row, p *Post) error {
	return row.Scan(&p.ID, &p.Title, &p.Excerpt, &p.Content, &p.Category, &p.Author, &p.AuthorImg, &p.Image,
		&p.ReadTime, &p.Featured, &p.PublishedAt, &p.CreatedAt)
}

// List returns posts newest first. An empty category or "all" lists everything.
func (s *Service) List(ctx context.Context, category string) ([]Post, error) {
	category = strings.TrimSpace(category)
	if category == "" || strings.EqualFold(category, allCategories) {
		return s.query(ctx, `SELECT `+postColumns+` FROM posts ORDER BY published_at DESC, created_at DESC`)
	}
	return s.query(ctx, `SELECT `+postColumns+` FROM posts WHERE category = $1 ORDER BY published_at DESC, created_at DESC`, category)
}

func (s *Service) Featured(ctx context.Context) ([]Post, error) {
	return s.query(ctx, `SELECT `+postColumns+` FROM posts WHERE featured ORDER BY published_at DESC LIMIT $1`, featuredLimit)
}

func (s *Service) query(ctx context.Context, sql string, args ...any) ([]Post, error) {
	rows, err := s.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	posts := []Post{}
	for rows.Next() {
		var p Post
		if err := scanPost(rows, &p); err != nil {
			return nil, err
		}
		posts = append(posts, p)
	}
	return posts, rows.Err()
}

func (s *Service) Get(ctx context.Context, id string) (Post, error) {
	var p Post
	err := scanPost(s.db.QueryRow(ctx, `SELECT `+postColumns+` FROM posts WHERE id = $1`, id), &p)
	if errors.Is(err, pgx.ErrNoRows) {
		return Post{}, apperr.NotFound("post")
	}
	if err != nil {
		return Post{}, err
	}
	return p, nil
}

func (s *Service) Create(ctx context.Context, p Post) (Post, error) {
	normalize(&p)
	if !p.Title.HasBase() {
		return Post{}, apperr.Invalid("title", "needs an mn entry")
	}
	p.ID = uuid.NewString()
	if p.PublishedAt.IsZero() {
		p.PublishedAt = time.Now().UTC()
	}

	err := s.db.QueryRow(ctx, `
		INSERT INTO posts (id, title, excerpt, content, category, author, author_img, image, read_time, featured, published_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING created_at
	`, p.ID, p.Title, p.Excerpt, p.Content, p.Category, p.Author, p.AuthorImg, p.Image, p.ReadTime, p.Featured, p.PublishedAt,
	).Scan(&p.CreatedAt)
	if err != nil {
		return Post{}, err
	}
	return p, nil
}

func (s *Service) Update(ctx context.Context, id string, patch Patch) (Post, error) {
	p, err := s.Get(ctx, id)
	if err != nil {
		return Post{}, err
	}
	apply(&p, patch)
	if !p.Title.HasBase() {
		return Post{}, apperr.Invalid("title", "needs an mn entry")
	}

	tag, err := s.db.Exec(ctx, `
		UPDATE posts
		SET title = $2, excerpt = $3, content = $4, category = $5, author = $6, author_img = $7, image = $8,
		    read_time = $9, featured = $10, published_at = $11
		WHERE id = $1
	`, p.ID, p.Title, p.Excerpt, p.Content, p.Category, p.Author, p.AuthorImg, p.Image, p.ReadTime, p.Featured, p.PublishedAt)
	if err != nil {
		return Post{}, err
	}
	if tag.RowsAffected() == 0 {
		return Post{}, apperr.NotFound("post")
	}
	return p, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM posts WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("post")
	}
	return nil
}

func apply(p *Post, patch Patch) {
	if patch.Title != nil {
		p.Title = patch.Title
	}
	if patch.Excerpt != nil {
		p.Excerpt = patch.Excerpt
	}
	if patch.Content != nil {
		p.Content = patch.Content
	}
	if patch.Category != nil {
		p.Category = *patch.Category
	}
	if patch.Author != nil {
		p.Author = *patch.Author
	}
	if patch.AuthorImg != nil {
		p.AuthorImg = *patch.AuthorImg
	}
	if patch.Image != nil {
		p.Image = *patch.Image
	}
	if patch.ReadTime != nil {
		p.ReadTime = *patch.ReadTime
	}
	if patch.Featured != nil {
		p.Featured = *patch.Featured
	}
	if patch.PublishedAt != nil {
		p.PublishedAt = *patch.PublishedAt
	}
}

func normalize(p *Post) {
	if p.Title == nil {
		p.Title = i18n.Text{}
	}
	if p.Excerpt == nil {
		p.Excerpt = i18n.Text{}
	}
	if p.Content == nil {
		p.Content = i18n.Text{}
	}
}
