package booking

import (
	"strings"
	"time"

	"backend-mongoliatrails/internal/i18n"
	"backend-mongoliatrails/internal/shared/civil"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// Origin records which flow created a booking. Public bookings start pending,
// admin ones confirmed.
type Origin string

const (
	OriginPublic Origin = "public"
	OriginAdmin  Origin = "admin"
)

// Booking holds a snapshot of the trip as it was when the booking was made.
// Later trip edits never change TripTitle, UnitPrice or TotalPrice.
type Booking struct {
	ID         string     `json:"id"`
	TripID     string     `json:"tripId"`
	DateID     string     `json:"dateId,omitempty"`
	UserID     string     `json:"userId,omitempty"`
	UserName   string     `json:"userName"`
	UserEmail  string     `json:"userEmail"`
	GuestPhone string     `json:"guestPhone"`
	TripTitle  i18n.Text  `json:"tripTitle"`
	TripImage  string     `json:"tripImage"`
	Date       civil.Date `json:"date"`
	Travelers  int        `json:"travelers"`
	UnitPrice  float64    `json:"unitPrice"`
	TotalPrice float64    `json:"totalPrice"`
	Currency   string     `json:"currency"`
	Language   i18n.Lang  `json:"language"`
	Origin     Origin     `json:"origin"`
	Status     Status     `json:"status"`
	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  time.Time  `json:"updatedAt"`
}

// CreateRequest is the booking form body. Either DateID or Date picks the
// departure; a Date that matches no departure books the trip without one.
type CreateRequest struct {
	TripID     string     `json:"tripId" validate:"required"`
	DateID     string     `json:"dateId"`
	Date       civil.Date `json:"date"`
	Travelers  int        `json:"travelers" validate:"required,gte=1,lte=50"`
	GuestName  string     `json:"guestName" validate:"required"`
	GuestEmail string     `json:"guestEmail" validate:"omitempty,email"`
	GuestPhone string     `json:"guestPhone"`
	Language   string     `json:"language" validate:"omitempty,oneof=mn en ko"`
	UserID     string     `json:"userId"`
}

// AdminCreateRequest is the add-passenger body. UserName and UserEmail are
// the account fields the admin screen sends; guest fields take precedence.
type AdminCreateRequest struct {
	CreateRequest
	UserName  string `json:"userName"`
	UserEmail string `json:"userEmail"`
}

// Booking returns the request as a booking form, travelers defaulting to one.
func (r AdminCreateRequest) Booking() CreateRequest {
	req := r.CreateRequest
	if strings.TrimSpace(req.GuestName) == "" {
		req.GuestName = r.UserName
	}
	if strings.TrimSpace(req.GuestEmail) == "" {
		req.GuestEmail = r.UserEmail
	}
	if req.Travelers == 0 {
		req.Travelers = 1
	}
	return req
}

// CreateInput is a CreateRequest with the caller's identity attached.
type CreateInput struct {
	CreateRequest
	Origin         Origin
	IdempotencyKey string
}

type CancelRequest struct {
	BookingID string `json:"bookingId"`
}

type StatusRequest struct {
	Status Status `json:"status"`
}

// SeatState is the stored counter of a departure after a change.
type SeatState struct {
	TripID      string
	DateID      string
	BookedSeats int
	MaxSeats    int
}

type CancelResult struct {
	Booking Booking
	// Changed is false when the booking was already cancelled.
	Changed bool
	Seats   *SeatState
}

// Dashboard splits a user's bookings the way the profile page shows them.
type Dashboard struct {
	Upcoming []Booking `json:"upcoming"`
	Past     []Booking `json:"past"`
}
