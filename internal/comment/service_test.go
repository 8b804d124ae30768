package comment

import (
	"context"
	"errors"
	"testing"
	"time"

	"backend-mongoliatrails/internal/shared/apperr"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
)

var commentCols = []string{"id", "name", "trip", "text", "location", "rating", "language", "status", "created_by",
	"date_str", "created_at"}

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("mock pool: %v", err)
	}
	t.Cleanup(mock.Close)
	return mock
}

func fixedService(mock pgxmock.PgxPoolIface) *Service {
	svc := NewService(mock)
	svc.now = func() time.Time { return time.Date(2025, 7, 1, 23, 30, 0, 0, time.UTC) }
	return svc
}

func TestListApproved(t *testing.T) {
	mock := newMock(t)
	mock.ExpectQuery(`WHERE status = 'approved' ORDER BY created_at DESC LIMIT \$1`).
		WithArgs(publicLimit).
		WillReturnRows(pgxmock.NewRows(commentCols).
			AddRow("c1", "Bat", "Gobi", "Great", "UB", 5, "mn", StatusApproved, "", "2025-06-01", time.Now()))
	mock.ExpectQuery(`WHERE status = 'approved' AND language = \$1`).
		WithArgs("ko", publicLimit).
		WillReturnRows(pgxmock.NewRows(commentCols))

	svc := NewService(mock)
	all, err := svc.ListApproved(context.Background(), "")
	if err != nil || len(all) != 1 || all[0].Name != "Bat" {
		t.Fatalf("list approved: %v %v", err, all)
	}
	ko, err := svc.ListApproved(context.Background(), "ko")
	if err != nil || ko == nil || len(ko) != 0 {
		t.Fatalf("expected empty list, got %v %v", ko, err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestSubmitDefaults(t *testing.T) {
	mock := newMock(t)
	mock.ExpectQuery(`INSERT INTO comments`).
		WithArgs(pgxmock.AnyArg(), "Bat", defaultTrip, "Amazing trip", defaultLocation, 4, "mn", StatusPending, "", "2025-07-01").
		WillReturnRows(pgxmock.NewRows([]string{"created_at"}).AddRow(time.Now()))

	c, err := fixedService(mock).Submit(context.Background(), "", SubmitRequest{Name: " Bat ", Text: "Amazing trip", Rating: 4})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if c.Status != StatusPending || c.ID == "" {
		t.Fatalf("unexpected comment %+v", c)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestSubmitValidation(t *testing.T) {
	svc := NewService(newMock(t))
	cases := []SubmitRequest{
		{Text: "no name", Rating: 5},
		{Name: "Bat", Rating: 5},
		{Name: "Bat", Text: "x", Rating: 6},
		{Name: "Bat", Text: "x"},
		{Name: "Bat", Text: "x", Rating: 3, Language: "de"},
	}
	for _, req := range cases {
		if _, err := svc.Submit(context.Background(), "", req); !apperr.IsValidation(err) {
			t.Fatalf("expected validation error for %+v, got %v", req, err)
		}
	}
}

func TestAdminCreateDefaults(t *testing.T) {
	mock := newMock(t)
	mock.ExpectQuery(`INSERT INTO comments`).
		WithArgs(pgxmock.AnyArg(), "Saraa", "Khuvsgul", "Lovely", defaultLocation, defaultRating, "en", StatusApproved, "admin-1", "2025-07-01").
		WillReturnRows(pgxmock.NewRows([]string{"created_at"}).AddRow(time.Now()))

	c, err := fixedService(mock).Create(context.Background(), "admin-1", CreateRequest{
		Name: "Saraa", Trip: "Khuvsgul", Text: "Lovely", Language: "en",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if c.Status != StatusApproved || c.Rating != defaultRating || c.CreatedBy != "admin-1" {
		t.Fatalf("unexpected comment %+v", c)
	}

	if _, err := fixedService(mock).Create(context.Background(), "admin-1", CreateRequest{Name: "x", Text: "y"}); !apperr.IsValidation(err) {
		t.Fatalf("language is required for admin entries, got %v", err)
	}
}

func TestUpdate(t *testing.T) {
	mock := newMock(t)
	mock.ExpectQuery(`UPDATE comments`).
		WithArgs("c1", pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows(commentCols).
			AddRow("c1", "Bat", "Gobi", "Great", "UB", 5, "mn", StatusApproved, "", "2025-06-01", time.Now()))
	mock.ExpectQuery(`UPDATE comments`).
		WithArgs("missing", pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(pgx.ErrNoRows)

	svc := NewService(mock)
	approved := StatusApproved
	c, err := svc.Update(context.Background(), "c1", Patch{Status: &approved})
	if err != nil || c.Status != StatusApproved {
		t.Fatalf("update: %v %+v", err, c)
	}
	if _, err := svc.Update(context.Background(), "missing", Patch{Status: &approved}); !apperr.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}

	bad := "spam"
	if _, err := svc.Update(context.Background(), "c1", Patch{Status: &bad}); !apperr.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestDelete(t *testing.T) {
	mock := newMock(t)
	mock.ExpectExec(`DELETE FROM comments`).WithArgs("c1").WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectExec(`DELETE FROM comments`).WithArgs("c2").WillReturnResult(pgxmock.NewResult("DELETE", 0))
	mock.ExpectExec(`DELETE FROM comments`).WithArgs("c3").WillReturnError(errors.New("db down"))

	svc := NewService(mock)
	if err := svc.Delete(context.Background(), "c1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := svc.Delete(context.Background(), "c2"); !apperr.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
	if err := svc.Delete(context.Background(), "c3"); err == nil {
		t.Fatalf("expected error")
	}
}
