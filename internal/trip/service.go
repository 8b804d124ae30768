package trip

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"backend-mongoliatrails/internal/db"
	"backend-mongoliatrails/internal/i18n"
	"backend-mongoliatrails/internal/shared/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const defaultType = "standard"

const tripColumns = `id, type, region, category, title, location, description, duration, price, old_price, image, rating, tags, perks, itinerary, featured, created_at`

type Service struct {
	db db.TxQuerier
}

func NewService(q db.TxQuerier) *Service {
	return &Service{db: q}
}

func scanTrip(row pgx.Row, t *Trip) error {
	return row.Scan(&t.ID, &t.Type, &t.Region, &t.Category, &t.Title, &t.Location, &t.Description, &t.Duration,
		&t.Price, &t.OldPrice, &t.Image, &t.Rating, &t.Tags, &t.Perks, &t.Itinerary, &t.Featured, &t.CreatedAt)
}

func (s *Service) List(ctx context.Context, f Filter) ([]Trip, error) {
	var where []string
	var args []any
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if f.Type != "" {
		add("type = $%d", f.Type)
	}
	if f.Region != "" {
		add("region = $%d", f.Region)
	}
	if f.Category != "" {
		add("category = $%d", f.Category)
	}
	if len(f.IDs) > 0 {
		add("id = ANY($%d)", f.IDs)
	}
	if f.Featured != nil {
		add("featured = $%d", *f.Featured)
	}

	query := `SELECT ` + tripColumns + ` FROM trips`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, ` AND `)
	}
	query += ` ORDER BY created_at DESC`
	if f.Limit > 0 {
		args = append(args, f.Limit)
		query += fmt.Sprintf(` LIMIT $%d`, len(args))
	}

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	trips := []Trip{}
	var ids []string
	for rows.Next() {
		var t Trip
		if err := scanTrip(rows, &t); err != nil {
			return nil, err
		}
		trips = append(trips, t)
		ids = append(ids, t.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return trips, nil
	}

	departures, err := loadDepartures(ctx, s.db, ids)
	if err != nil {
		return nil, err
	}
	for i := range trips {
		trips[i].Dates = departures[trips[i].ID]
		if trips[i].Dates == nil {
			trips[i].Dates = []Departure{}
		}
	}
	return trips, nil
}

func (s *Service) Get(ctx context.Context, id string) (Trip, error) {
	var t Trip
	err := scanTrip(s.db.QueryRow(ctx, `SELECT `+tripColumns+` FROM trips WHERE id = $1`, id), &t)
	if errors.Is(err, pgx.ErrNoRows) {
		return Trip{}, apperr.NotFound("trip")
	}
	if err != nil {
		return Trip{}, err
	}

	departures, err := loadDepartures(ctx, s.db, []string{id})
	if err != nil {
		return Trip{}, err
	}
	t.Dates = departures[id]
	if t.Dates == nil {
		t.Dates = []Departure{}
	}
	return t, nil
}

func loadDepartures(ctx context.Context, q db.Querier, tripIDs []string) (map[string][]Departure, error) {
	rows, err := q.Query(ctx, `
		SELECT trip_id, id, start_date, end_date, max_seats, booked_seats
		FROM trip_dates
		WHERE trip_id = ANY($1)
		ORDER BY trip_id, position, start_date
	`, tripIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string][]Departure, len(tripIDs))
	for rows.Next() {
		var tripID string
		var d Departure
		if err := rows.Scan(&tripID, &d.ID, &d.StartDate, &d.EndDate, &d.MaxSeats, &d.BookedSeats); err != nil {
			return nil, err
		}
		out[tripID] = append(out[tripID], d)
	}
	return out, rows.Err()
}

func (s *Service) Create(ctx context.Context, input Trip) (Trip, error) {
	input.ID = uuid.NewString()
	normalize(&input)
	if err := validateTrip(input); err != nil {
		return Trip{}, err
	}
	seen := map[string]bool{}
	for i := range input.Dates {
		if input.Dates[i].ID == "" {
			input.Dates[i].ID = uuid.NewString()
		}
		if seen[input.Dates[i].ID] {
			return Trip{}, apperr.Invalid("dates", "duplicate departure id "+input.Dates[i].ID)
		}
		seen[input.Dates[i].ID] = true
		if err := validateDeparture(input.Dates[i]); err != nil {
			return Trip{}, err
		}
	}

	err := db.InTx(ctx, s.db, func(tx pgx.Tx) error {
		row := tx.QueryRow(ctx, `
			INSERT INTO trips (id, type, region, category, title, location, description, duration, price, old_price, image, rating, tags, perks, itinerary, featured)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)
			RETURNING created_at
		`, input.ID, input.Type, input.Region, input.Category, input.Title, input.Location, input.Description, input.Duration,
			input.Price, input.OldPrice, input.Image, input.Rating, input.Tags, input.Perks, input.Itinerary, input.Featured)
		if err := row.Scan(&input.CreatedAt); err != nil {
			return fmt.Errorf("insert trip: %w", err)
		}
		for i, d := range input.Dates {
			if _, err := tx.Exec(ctx, `
				INSERT INTO trip_dates (trip_id, id, start_date, end_date, max_seats, booked_seats, position)
				VALUES ($1,$2,$3,$4,$5,$6,$7)
			`, input.ID, d.ID, d.StartDate, d.EndDate, d.MaxSeats, d.BookedSeats, i); err != nil {
				return fmt.Errorf("insert departure: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return Trip{}, err
	}
	return input, nil
}

func (s *Service) Update(ctx context.Context, id string, p Patch) (Trip, error) {
	t, err := s.Get(ctx, id)
	if err != nil {
		return Trip{}, err
	}
	apply(&t, p)
	normalize(&t)
	if err := validateTrip(t); err != nil {
		return Trip{}, err
	}

	_, err = s.db.Exec(ctx, `
		UPDATE trips
		SET type=$2, region=$3, category=$4, title=$5, location=$6, description=$7, duration=$8, price=$9,
			old_price=$10, image=$11, rating=$12, tags=$13, perks=$14, itinerary=$15, featured=$16
		WHERE id=$1
	`, t.ID, t.Type, t.Region, t.Category, t.Title, t.Location, t.Description, t.Duration, t.Price,
		t.OldPrice, t.Image, t.Rating, t.Tags, t.Perks, t.Itinerary, t.Featured)
	if err != nil {
		return Trip{}, err
	}
	return t, nil
}

// Delete removes a trip and its departures. Trips with live bookings stay.
// The row lock makes concurrent bookings, which share-lock the trip, finish
// before the check runs.
func (s *Service) Delete(ctx context.Context, id string) error {
	return db.InTx(ctx, s.db, func(tx pgx.Tx) error {
		var locked string
		err := tx.QueryRow(ctx, `SELECT id FROM trips WHERE id = $1 FOR UPDATE`, id).Scan(&locked)
		if errors.Is(err, pgx.ErrNoRows) {
			return apperr.NotFound("trip")
		}
		if err != nil {
			return err
		}

		var active bool
		if err := tx.QueryRow(ctx, `
			SELECT EXISTS (SELECT 1 FROM bookings WHERE trip_id = $1 AND status IN ('pending', 'confirmed'))
		`, id).Scan(&active); err != nil {
			return err
		}
		if active {
			return apperr.Conflict("trip", "trip has active bookings")
		}

		_, err = tx.Exec(ctx, `DELETE FROM trips WHERE id = $1`, id)
		return err
	})
}

func (s *Service) AddDeparture(ctx context.Context, tripID string, d Departure) (Departure, error) {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	d.BookedSeats = 0
	if err := validateDeparture(d); err != nil {
		return Departure{}, err
	}

	_, err := s.db.Exec(ctx, `
		INSERT INTO trip_dates (trip_id, id, start_date, end_date, max_seats, booked_seats, position)
		SELECT $1, $2, $3, $4, $5, 0, COALESCE(MAX(position) + 1, 0)
		FROM trip_dates WHERE trip_id = $1
	`, tripID, d.ID, d.StartDate, d.EndDate, d.MaxSeats)
	switch {
	case db.IsForeignKeyViolation(err):
		return Departure{}, apperr.NotFound("trip")
	case db.IsUniqueViolation(err):
		return Departure{}, apperr.Conflict("departure", "departure id already exists")
	case err != nil:
		return Departure{}, err
	}
	return d, nil
}

// UpdateDeparture changes dates or capacity. Capacity never drops below the
// seats already booked.
func (s *Service) UpdateDeparture(ctx context.Context, tripID, dateID string, p DeparturePatch) (Departure, error) {
	if p.MaxSeats != nil && *p.MaxSeats <= 0 {
		return Departure{}, apperr.Invalid("maxSeats", "must be at least 1")
	}

	var d Departure
	err := s.db.QueryRow(ctx, `
		UPDATE trip_dates
		SET start_date = COALESCE($3, start_date),
			end_date = COALESCE($4, end_date),
			max_seats = COALESCE($5, max_seats)
		WHERE trip_id = $1 AND id = $2 AND COALESCE($5, max_seats) >= booked_seats
		RETURNING id, start_date, end_date, max_seats, booked_seats
	`, tripID, dateID, p.StartDate, p.EndDate, p.MaxSeats).Scan(&d.ID, &d.StartDate, &d.EndDate, &d.MaxSeats, &d.BookedSeats)
	switch {
	case db.IsCheckViolation(err):
		return Departure{}, apperr.Invalid("endDate", "must not be before startDate")
	case errors.Is(err, pgx.ErrNoRows):
		booked, lookupErr := s.bookedSeats(ctx, tripID, dateID)
		if lookupErr != nil {
			return Departure{}, lookupErr
		}
		return Departure{}, apperr.Conflict("departure", fmt.Sprintf("maxSeats cannot go below %d booked seats", booked))
	case err != nil:
		return Departure{}, err
	}
	return d, nil
}

// RemoveDeparture deletes a departure that has no pending or confirmed bookings.
func (s *Service) RemoveDeparture(ctx context.Context, tripID, dateID string) error {
	tag, err := s.db.Exec(ctx, `
		DELETE FROM trip_dates
		WHERE trip_id = $1 AND id = $2
			AND NOT EXISTS (
				SELECT 1 FROM bookings
				WHERE trip_id = $1 AND date_id = $2 AND status IN ('pending', 'confirmed')
			)
	`, tripID, dateID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() > 0 {
		return nil
	}
	if _, err := s.bookedSeats(ctx, tripID, dateID); err != nil {
		return err
	}
	return apperr.Conflict("departure", "departure has active bookings")
}

func (s *Service) bookedSeats(ctx context.Context, tripID, dateID string) (int, error) {
	var booked int
	err := s.db.QueryRow(ctx, `SELECT booked_seats FROM trip_dates WHERE trip_id = $1 AND id = $2`, tripID, dateID).Scan(&booked)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, apperr.NotFound("departure")
	}
	return booked, err
}

func apply(t *Trip, p Patch) {
	if p.Type != nil {
		t.Type = *p.Type
	}
	if p.Region != nil {
		t.Region = *p.Region
	}
	if p.Category != nil {
		t.Category = *p.Category
	}
	if p.Title != nil {
		t.Title = p.Title
	}
	if p.Location != nil {
		t.Location = p.Location
	}
	if p.Description != nil {
		t.Description = p.Description
	}
	if p.Duration != nil {
		t.Duration = p.Duration
	}
	if p.Price != nil {
		t.Price = p.Price
	}
	if p.OldPrice != nil {
		t.OldPrice = *p.OldPrice
	}
	if p.Image != nil {
		t.Image = *p.Image
	}
	if p.Rating != nil {
		t.Rating = *p.Rating
	}
	if p.Tags != nil {
		t.Tags = p.Tags
	}
	if p.Perks != nil {
		t.Perks = p.Perks
	}
	if p.Itinerary != nil {
		t.Itinerary = p.Itinerary
	}
	if p.Featured != nil {
		t.Featured = *p.Featured
	}
}

// normalize fills empty JSONB fields so NOT NULL columns never receive null.
func normalize(t *Trip) {
	t.Type = strings.TrimSpace(t.Type)
	if t.Type == "" {
		t.Type = defaultType
	}
	if t.Title == nil {
		t.Title = i18n.Text{}
	}
	if t.Location == nil {
		t.Location = i18n.Text{}
	}
	if t.Description == nil {
		t.Description = i18n.Text{}
	}
	if t.Duration == nil {
		t.Duration = i18n.Text{}
	}
	if t.Price == nil {
		t.Price = i18n.Price{}
	}
	if t.Tags == nil {
		t.Tags = []string{}
	}
	if t.Perks == nil {
		t.Perks = []i18n.Text{}
	}
	if t.Itinerary == nil {
		t.Itinerary = []ItineraryDay{}
	}
	if t.Dates == nil {
		t.Dates = []Departure{}
	}
}

func validateTrip(t Trip) error {
	if !t.Title.HasBase() {
		return apperr.Invalid("title", "a Mongolian (mn) title is required")
	}
	for lang, amount := range t.Price {
		if !lang.Valid() {
			return apperr.Invalid("price", "unsupported language "+string(lang))
		}
		if amount < 0 {
			return apperr.Invalid("price", "must not be negative")
		}
	}
	if t.Rating < 0 || t.Rating > 5 {
		return apperr.Invalid("rating", "must be between 0 and 5")
	}
	return nil
}

func validateDeparture(d Departure) error {
	switch {
	case d.StartDate.IsZero():
		return apperr.Invalid("startDate", "is required")
	case d.EndDate.IsZero():
		return apperr.Invalid("endDate", "is required")
	case d.EndDate.Before(d.StartDate):
		return apperr.Invalid("endDate", "must not be before startDate")
	case d.MaxSeats <= 0:
		return apperr.Invalid("maxSeats", "must be at least 1")
	case d.BookedSeats < 0 || d.BookedSeats > d.MaxSeats:
		return apperr.Invalid("bookedSeats", "must be between 0 and maxSeats")
	}
	return nil
}
