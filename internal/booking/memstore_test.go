package booking

import (
	"context"
	"fmt"
	"sync"
	"time"

	"backend-mongoliatrails/internal/shared/apperr"
)

// memStore keeps bookings and seat counters in memory under one lock, the
// same all-or-nothing behaviour the postgres store gets from a transaction.
type memStore struct {
	mu       sync.Mutex
	bookings map[string]Booking
	order    []string
	seats    map[string]*SeatState
}

func newMemStore() *memStore {
	return &memStore{bookings: map[string]Booking{}, seats: map[string]*SeatState{}}
}

func seatKey(tripID, dateID string) string { return tripID + "/" + dateID }

func (m *memStore) addDeparture(tripID, dateID string, booked, maxSeats int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seats[seatKey(tripID, dateID)] = &SeatState{TripID: tripID, DateID: dateID, BookedSeats: booked, MaxSeats: maxSeats}
}

func (m *memStore) booked(tripID, dateID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.seats[seatKey(tripID, dateID)].BookedSeats
}

func (m *memStore) Create(_ context.Context, b Booking) (Booking, *SeatState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out *SeatState
	if b.DateID != "" {
		st, ok := m.seats[seatKey(b.TripID, b.DateID)]
		if !ok {
			return Booking{}, nil, apperr.NotFound("departure")
		}
		if st.BookedSeats+b.Travelers > st.MaxSeats {
			return Booking{}, nil, ErrNoSeats
		}
		st.BookedSeats += b.Travelers
		cp := *st
		out = &cp
	}
	if _, dup := m.bookings[b.ID]; dup {
		return Booking{}, nil, fmt.Errorf("duplicate booking id %s", b.ID)
	}
	b.CreatedAt = time.Now()
	b.UpdatedAt = b.CreatedAt
	m.bookings[b.ID] = b
	m.order = append(m.order, b.ID)
	return b, out, nil
}

func (m *memStore) Cancel(_ context.Context, id string) (CancelResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.bookings[id]
	if !ok {
		return CancelResult{}, apperr.NotFound("booking")
	}
	switch b.Status {
	case StatusCancelled:
		return CancelResult{Booking: b}, nil
	case StatusCompleted:
		return CancelResult{}, apperr.Conflict("booking", "completed")
	}
	b.Status = StatusCancelled
	m.bookings[id] = b

	res := CancelResult{Booking: b, Changed: true}
	if st, ok := m.seats[seatKey(b.TripID, b.DateID)]; ok && b.DateID != "" {
		st.BookedSeats = max(st.BookedSeats-b.Travelers, 0)
		cp := *st
		res.Seats = &cp
	}
	return res, nil
}

func (m *memStore) Get(_ context.Context, id string) (Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[id]
	if !ok {
		return Booking{}, apperr.NotFound("booking")
	}
	return b, nil
}

func (m *memStore) ListActive(_ context.Context, tripID, dateID string) ([]Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []Booking{}
	for _, id := range m.order {
		b := m.bookings[id]
		if b.TripID == tripID && b.DateID == dateID && b.Status != StatusCancelled {
			out = append(out, b)
		}
	}
	return out, nil
}

func (m *memStore) ListByUser(_ context.Context, userID string) ([]Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []Booking{}
	for _, id := range m.order {
		if b := m.bookings[id]; b.UserID == userID {
			out = append(out, b)
		}
	}
	return out, nil
}

func (m *memStore) UpdateStatus(_ context.Context, id string, from, to Status) (Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[id]
	if !ok {
		return Booking{}, apperr.NotFound("booking")
	}
	if b.Status != from {
		return Booking{}, apperr.Conflict("booking", "status changed concurrently")
	}
	b.Status = to
	m.bookings[id] = b
	return b, nil
}
