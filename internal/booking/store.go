package booking

import (
	"context"
	"errors"
	"fmt"

	"backend-mongoliatrails/internal/db"
	"backend-mongoliatrails/internal/shared/apperr"

	"github.com/jackc/pgx/v5"
)

// ErrNoSeats is returned when a departure cannot take the requested travelers.
var ErrNoSeats = apperr.ConflictError{Resource: "departure", Msg: "not enough seats left"}

// Store persists bookings together with the seat counters they hold.
// Create and Cancel adjust the counter in the same transaction as the booking row.
type Store interface {
	Create(ctx context.Context, b Booking) (Booking, *SeatState, error)
	Cancel(ctx context.Context, id string) (CancelResult, error)
	Get(ctx context.Context, id string) (Booking, error)
	ListActive(ctx context.Context, tripID, dateID string) ([]Booking, error)
	ListByUser(ctx context.Context, userID string) ([]Booking, error)
	UpdateStatus(ctx context.Context, id string, from, to Status) (Booking, error)
}

const bookingColumns = `id, trip_id, COALESCE(date_id, ''), COALESCE(user_id, ''), user_name, user_email, guest_phone, trip_title, trip_image, date, travelers, unit_price, total_price, currency, language, origin, status, created_at, updated_at`

type PGStore struct {
	db db.TxQuerier
}

func NewPGStore(q db.TxQuerier) *PGStore {
	return &PGStore{db: q}
}

func scanBooking(row pgx.Row, b *Booking) error {
	return row.Scan(&b.ID, &b.TripID, &b.DateID, &b.UserID, &b.UserName, &b.UserEmail, &b.GuestPhone,
		&b.TripTitle, &b.TripImage, &b.Date, &b.Travelers, &b.UnitPrice, &b.TotalPrice, &b.Currency,
		&b.Language, &b.Origin, &b.Status, &b.CreatedAt, &b.UpdatedAt)
}

func (s *PGStore) Create(ctx context.Context, b Booking) (Booking, *SeatState, error) {
	var seats *SeatState
	err := db.InTx(ctx, s.db, func(tx pgx.Tx) error {
		if err := lockTrip(ctx, tx, b.TripID); err != nil {
			return err
		}
		if b.DateID != "" {
			st, err := reserveSeats(ctx, tx, b.TripID, b.DateID, b.Travelers)
			if err != nil {
				return err
			}
			seats = &st
		}

		err := tx.QueryRow(ctx, `
			INSERT INTO bookings (id, trip_id, date_id, user_id, user_name, user_email, guest_phone, trip_title, trip_image,
				date, travelers, unit_price, total_price, currency, language, origin, status)
			VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''), $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
			RETURNING created_at, updated_at
		`, b.ID, b.TripID, b.DateID, b.UserID, b.UserName, b.UserEmail, b.GuestPhone, b.TripTitle, b.TripImage,
			b.Date, b.Travelers, b.UnitPrice, b.TotalPrice, b.Currency, b.Language, b.Origin, b.Status,
		).Scan(&b.CreatedAt, &b.UpdatedAt)
		if err != nil {
			return fmt.Errorf("insert booking: %w", err)
		}
		return nil
	})
	if err != nil {
		return Booking{}, nil, err
	}
	return b, seats, nil
}

// lockTrip holds a share lock on the trip row until commit, so a trip delete
// either waits for this booking or has already removed the trip.
func lockTrip(ctx context.Context, tx pgx.Tx, tripID string) error {
	var id string
	err := tx.QueryRow(ctx, `SELECT id FROM trips WHERE id = $1 FOR SHARE`, tripID).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return apperr.NotFound("trip")
	}
	return err
}

// reserveSeats takes n seats only if they fit. Concurrent reservations on the
// same departure serialize on its row lock and re-check the capacity.
func reserveSeats(ctx context.Context, tx pgx.Tx, tripID, dateID string, n int) (SeatState, error) {
	st := SeatState{TripID: tripID, DateID: dateID}
	err := tx.QueryRow(ctx, `
		UPDATE trip_dates SET booked_seats = booked_seats + $3
		WHERE trip_id = $1 AND id = $2 AND booked_seats + $3 <= max_seats
		RETURNING booked_seats, max_seats
	`, tripID, dateID, n).Scan(&st.BookedSeats, &st.MaxSeats)
	if errors.Is(err, pgx.ErrNoRows) {
		var exists bool
		if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM trip_dates WHERE trip_id = $1 AND id = $2)`, tripID, dateID).Scan(&exists); err != nil {
			return st, err
		}
		if !exists {
			return st, apperr.NotFound("departure")
		}
		return st, ErrNoSeats
	}
	if err != nil {
		return st, fmt.Errorf("reserve seats: %w", err)
	}
	return st, nil
}

func (s *PGStore) Cancel(ctx context.Context, id string) (CancelResult, error) {
	var res CancelResult
	err := db.InTx(ctx, s.db, func(tx pgx.Tx) error {
		err := scanBooking(tx.QueryRow(ctx, `
			UPDATE bookings SET status = 'cancelled', updated_at = now()
			WHERE id = $1 AND status IN ('pending', 'confirmed')
			RETURNING `+bookingColumns, id), &res.Booking)
		if errors.Is(err, pgx.ErrNoRows) {
			current, err := getBooking(ctx, tx, id)
			if err != nil {
				return err
			}
			res.Booking = current
			if current.Status == StatusCancelled {
				return nil
			}
			return apperr.Conflict("booking", fmt.Sprintf("a %s booking cannot be cancelled", current.Status))
		}
		if err != nil {
			return fmt.Errorf("cancel booking: %w", err)
		}
		res.Changed = true

		if res.Booking.DateID == "" {
			return nil
		}
		st := SeatState{TripID: res.Booking.TripID, DateID: res.Booking.DateID}
		err = tx.QueryRow(ctx, `
			UPDATE trip_dates SET booked_seats = GREATEST(booked_seats - $3, 0)
			WHERE trip_id = $1 AND id = $2
			RETURNING booked_seats, max_seats
		`, st.TripID, st.DateID, res.Booking.Travelers).Scan(&st.BookedSeats, &st.MaxSeats)
		if errors.Is(err, pgx.ErrNoRows) {
			// the departure is gone; nothing to release
			return nil
		}
		if err != nil {
			return fmt.Errorf("release seats: %w", err)
		}
		res.Seats = &st
		return nil
	})
	if err != nil {
		return CancelResult{}, err
	}
	return res, nil
}

func (s *PGStore) Get(ctx context.Context, id string) (Booking, error) {
	return getBooking(ctx, s.db, id)
}

func getBooking(ctx context.Context, q db.Querier, id string) (Booking, error) {
	var b Booking
	err := scanBooking(q.QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = $1`, id), &b)
	if errors.Is(err, pgx.ErrNoRows) {
		return Booking{}, apperr.NotFound("booking")
	}
	if err != nil {
		return Booking{}, err
	}
	return b, nil
}

// ListActive returns the passengers of a departure in the order they booked.
// An empty dateID lists the trip's bookings that have no departure.
func (s *PGStore) ListActive(ctx context.Context, tripID, dateID string) ([]Booking, error) {
	return s.list(ctx, `
		SELECT `+bookingColumns+` FROM bookings
		WHERE trip_id = $1 AND COALESCE(date_id, '') = $2 AND status <> 'cancelled'
		ORDER BY created_at, seq
	`, tripID, dateID)
}

func (s *PGStore) ListByUser(ctx context.Context, userID string) ([]Booking, error) {
	return s.list(ctx, `
		SELECT `+bookingColumns+` FROM bookings
		WHERE user_id = $1
		ORDER BY date DESC, created_at DESC
	`, userID)
}

func (s *PGStore) list(ctx context.Context, query string, args ...any) ([]Booking, error) {
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Booking{}
	for rows.Next() {
		var b Booking
		if err := scanBooking(rows, &b); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// UpdateStatus moves a booking from one status to another. It fails with a
// conflict when the booking is no longer in from.
func (s *PGStore) UpdateStatus(ctx context.Context, id string, from, to Status) (Booking, error) {
	var b Booking
	err := scanBooking(s.db.QueryRow(ctx, `
		UPDATE bookings SET status = $3, updated_at = now()
		WHERE id = $1 AND status = $2
		RETURNING `+bookingColumns, id, from, to), &b)
	if errors.Is(err, pgx.ErrNoRows) {
		if _, err := s.Get(ctx, id); err != nil {
			return Booking{}, err
		}
		return Booking{}, apperr.Conflict("booking", "status changed concurrently")
	}
	if err != nil {
		return Booking{}, err
	}
	return b, nil
}
