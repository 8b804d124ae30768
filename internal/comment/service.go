// Package comment stores traveller reviews. Public submissions wait for an
// admin to approve them before they are listed.
package comment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"backend-mongoliatrails/internal/db"
	"backend-mongoliatrails/internal/i18n"
	"backend-mongoliatrails/internal/shared/apperr"
	"backend-mongoliatrails/internal/shared/validate"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const (
	commentColumns  = `id, name, trip, text, location, rating, language, status, created_by, date_str, created_at`
	publicLimit     = 20
	defaultTrip     = "General"
	defaultLocation = "Unknown"
	defaultRating   = 5
)

type Service struct {
	db  db.Querier
	now func() time.Time
}

func NewService(q db.Querier) *Service {
	return &Service{db: q, now: time.Now}
}

func scanComment(row pgx.Row, c *Comment) error {
	return row.Scan(&c.ID, &c.Name, &c.Trip, &c.Text, &c.Location, &c.Rating, &c.Language, &c.Status, &c.CreatedBy,
		&c.DateStr, &c.CreatedAt)
}

// ListApproved returns the newest approved reviews, optionally in one language.
func (s *Service) ListApproved(ctx context.Context, lang string) ([]Comment, error) {
	if lang == "" {
		return s.query(ctx, `SELECT `+commentColumns+` FROM comments WHERE status = 'approved' ORDER BY created_at DESC LIMIT $1`, publicLimit)
	}
	return s.query(ctx, `SELECT `+commentColumns+` FROM comments WHERE status = 'approved' AND language = $1 ORDER BY created_at DESC LIMIT $2`, lang, publicLimit)
}

func (s *Service) ListAll(ctx context.Context) ([]Comment, error) {
	return s.query(ctx, `SELECT `+commentColumns+` FROM comments ORDER BY created_at DESC`)
}

func (s *Service) query(ctx context.Context, sql string, args ...any) ([]Comment, error) {
	rows, err := s.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Comment{}
	for rows.Next() {
		var c Comment
		if err := scanComment(rows, &c); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Submit stores a public review as pending. userID is empty for anonymous
// reviewers.
func (s *Service) Submit(ctx context.Context, userID string, req SubmitRequest) (Comment, error) {
	if err := validate.Struct(req); err != nil {
		return Comment{}, err
	}
	return s.insert(ctx, Comment{
		Name:      req.Name,
		Trip:      req.Trip,
		Text:      req.Text,
		Location:  req.Location,
		Rating:    req.Rating,
		Language:  req.Language,
		Status:    StatusPending,
		CreatedBy: userID,
	})
}

// Create stores a review entered by an admin, approved unless told otherwise.
func (s *Service) Create(ctx context.Context, adminID string, req CreateRequest) (Comment, error) {
	if err := validate.Struct(req); err != nil {
		return Comment{}, err
	}
	c := Comment{
		Name:      req.Name,
		Trip:      req.Trip,
		Text:      req.Text,
		Location:  req.Location,
		Rating:    req.Rating,
		Language:  req.Language,
		Status:    req.Status,
		CreatedBy: adminID,
	}
	if c.Status == "" {
		c.Status = StatusApproved
	}
	if c.Rating == 0 {
		c.Rating = defaultRating
	}
	return s.insert(ctx, c)
}

func (s *Service) insert(ctx context.Context, c Comment) (Comment, error) {
	c.ID = uuid.NewString()
	c.Name = strings.TrimSpace(c.Name)
	c.Trip = orDefault(c.Trip, defaultTrip)
	c.Location = orDefault(c.Location, defaultLocation)
	c.Language = string(i18n.ParseLang(c.Language, i18n.Base))
	c.DateStr = s.now().UTC().Format("2006-01-02")

	err := s.db.QueryRow(ctx, `
		INSERT INTO comments (id, name, trip, text, location, rating, language, status, created_by, date_str)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at
	`, c.ID, c.Name, c.Trip, c.Text, c.Location, c.Rating, c.Language, c.Status, c.CreatedBy, c.DateStr,
	).Scan(&c.CreatedAt)
	if err != nil {
		return Comment{}, fmt.Errorf("insert comment: %w", err)
	}
	return c, nil
}

// Update moderates a review: status, text and rating can change.
func (s *Service) Update(ctx context.Context, id string, p Patch) (Comment, error) {
	if err := validate.Struct(p); err != nil {
		return Comment{}, err
	}
	var c Comment
	err := scanComment(s.db.QueryRow(ctx, `
		UPDATE comments
		SET status = COALESCE($2, status), text = COALESCE($3, text), rating = COALESCE($4, rating)
		WHERE id = $1
		RETURNING `+commentColumns, id, p.Status, p.Text, p.Rating), &c)
	if errors.Is(err, pgx.ErrNoRows) {
		return Comment{}, apperr.NotFound("comment")
	}
	if err != nil {
		return Comment{}, err
	}
	return c, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM comments WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("comment")
	}
	return nil
}

func orDefault(s, def string) string {
	if s = strings.TrimSpace(s); s == "" {
		return def
	}
	return s
}
