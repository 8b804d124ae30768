// Package booking sells seats on trip departures. Every change to a booking
// and the seat counter it holds happens in one database transaction.
package booking

import (
	"context"
	"log"
	"slices"
	"strings"
	"time"

	"backend-mongoliatrails/internal/auth"
	"backend-mongoliatrails/internal/i18n"
	"backend-mongoliatrails/internal/notify"
	"backend-mongoliatrails/internal/shared/apperr"
	"backend-mongoliatrails/internal/shared/civil"
	"backend-mongoliatrails/internal/shared/validate"
	"backend-mongoliatrails/internal/stream"
	"backend-mongoliatrails/internal/trip"

	"github.com/google/uuid"
)

type TripReader interface {
	Get(ctx context.Context, id string) (trip.Trip, error)
}

// UserReader looks up the account an admin books a passenger for.
type UserReader interface {
	Get(ctx context.Context, id string) (auth.User, error)
}

// SeatPublisher pushes the stored counter of a departure to live clients.
type SeatPublisher interface {
	PublishSeats(ctx context.Context, u stream.SeatUpdate) error
}

type Option func(*Service)

func WithSeatPublisher(p SeatPublisher) Option {
	return func(s *Service) { s.seats = p }
}

func WithNotifier(n notify.Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

func WithUserReader(u UserReader) Option {
	return func(s *Service) { s.users = u }
}

func WithIdempotency(i Idempotency) Option {
	return func(s *Service) { s.idem = i }
}

// WithLocation sets the calendar that decides which bookings are in the past.
func WithLocation(loc *time.Location) Option {
	return func(s *Service) {
		if loc != nil {
			s.loc = loc
		}
	}
}

func WithDefaultLanguage(lang i18n.Lang) Option {
	return func(s *Service) {
		if lang.Valid() {
			s.lang = lang
		}
	}
}

// WithReceiptFont points receipts at a UTF-8 TrueType font so Cyrillic and
// Hangul titles render. Without it receipts use the core Helvetica font.
func WithReceiptFont(path string) Option {
	return func(s *Service) { s.receiptFont = path }
}

type Service struct {
	store       Store
	trips       TripReader
	users       UserReader
	seats       SeatPublisher
	notifier    notify.Notifier
	idem        Idempotency
	loc         *time.Location
	lang        i18n.Lang
	receiptFont string

	now   func() time.Time
	async func(func())
}

func NewService(store Store, trips TripReader, opts ...Option) *Service {
	s := &Service{
		store:    store,
		trips:    trips,
		notifier: notify.Nop{},
		loc:      time.UTC,
		lang:     i18n.Base,
		now:      time.Now,
		async:    func(f func()) { go f() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) today() civil.Date {
	return civil.Of(s.now().In(s.loc))
}

// CreateBooking prices the booking from the trip, takes its seats and stores
// it. Repeating a request with the same idempotency key returns the booking
// the first request made.
func (s *Service) CreateBooking(ctx context.Context, in CreateInput) (Booking, error) {
	if in.Origin == OriginAdmin {
		if err := s.fillFromUser(ctx, &in.CreateRequest); err != nil {
			return Booking{}, err
		}
	}
	if err := validate.Struct(in.CreateRequest); err != nil {
		return Booking{}, err
	}
	if in.Origin == "" {
		in.Origin = OriginPublic
	}
	if in.Origin == OriginPublic && strings.TrimSpace(in.GuestEmail) == "" {
		return Booking{}, apperr.Invalid("guestEmail", "is required")
	}

	key := ""
	if in.IdempotencyKey != "" && s.idem != nil {
		scoped := in.UserID + ":" + in.IdempotencyKey
		existingID, claimed, err := s.idem.Claim(ctx, scoped)
		switch {
		case apperr.IsConflict(err):
			return Booking{}, err
		case err != nil:
			log.Printf("booking: idempotency claim key=%s: %v", scoped, err)
		case !claimed:
			return s.store.Get(ctx, existingID)
		default:
			key = scoped
		}
	}

	b, err := s.create(ctx, in)
	if key != "" {
		if err != nil {
			s.idem.Release(context.WithoutCancel(ctx), key)
		} else if err := s.idem.Complete(context.WithoutCancel(ctx), key, b.ID); err != nil {
			// a pending key would turn every retry into a 409 until it expires
			log.Printf("booking: idempotency complete key=%s booking=%s: %v", key, b.ID, err)
			s.idem.Release(context.WithoutCancel(ctx), key)
		}
	}
	return b, err
}

// fillFromUser completes the guest details of an admin booking from the
// passenger's account. Details the admin typed win.
func (s *Service) fillFromUser(ctx context.Context, req *CreateRequest) error {
	if req.UserID == "" || s.users == nil {
		return nil
	}
	if strings.TrimSpace(req.GuestName) != "" && strings.TrimSpace(req.GuestEmail) != "" && strings.TrimSpace(req.GuestPhone) != "" {
		return nil
	}
	u, err := s.users.Get(ctx, req.UserID)
	if err != nil {
		return err
	}
	if strings.TrimSpace(req.GuestName) == "" {
		req.GuestName = firstNonEmpty(u.FullName, u.Username, u.Email)
	}
	if strings.TrimSpace(req.GuestEmail) == "" {
		req.GuestEmail = u.Email
	}
	if strings.TrimSpace(req.GuestPhone) == "" {
		req.GuestPhone = u.Phone
	}
	return nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

func (s *Service) create(ctx context.Context, in CreateInput) (Booking, error) {
	t, err := s.trips.Get(ctx, in.TripID)
	if err != nil {
		return Booking{}, err
	}

	dep, hasDeparture, err := pickDeparture(t, in.DateID, in.Date)
	if err != nil {
		return Booking{}, err
	}
	date := in.Date
	if hasDeparture {
		date = dep.StartDate
	}
	if in.Origin == OriginPublic && date.Before(s.today()) {
		return Booking{}, apperr.Invalid("date", "must not be in the past")
	}

	lang := i18n.ParseLang(in.Language, s.lang)
	unit, currency := t.Price.Resolve(lang)
	status := StatusPending
	if in.Origin == OriginAdmin {
		status = StatusConfirmed
	}

	b := Booking{
		ID:         uuid.NewString(),
		TripID:     t.ID,
		DateID:     dep.ID,
		UserID:     in.UserID,
		UserName:   strings.TrimSpace(in.GuestName),
		UserEmail:  strings.ToLower(strings.TrimSpace(in.GuestEmail)),
		GuestPhone: strings.TrimSpace(in.GuestPhone),
		TripTitle:  t.Title.Clone(),
		TripImage:  t.Image,
		Date:       date,
		Travelers:  in.Travelers,
		UnitPrice:  unit,
		TotalPrice: unit * float64(in.Travelers),
		Currency:   currency,
		Language:   lang,
		Origin:     in.Origin,
		Status:     status,
	}

	created, seats, err := s.store.Create(ctx, b)
	if err != nil {
		return Booking{}, err
	}
	log.Printf("booking: created id=%s trip=%s date_id=%s travelers=%d origin=%s", created.ID, created.TripID, created.DateID, created.Travelers, created.Origin)

	s.publish(ctx, seats)
	notice := noticeFor(created)
	nctx := context.WithoutCancel(ctx)
	s.async(func() { s.notifier.BookingCreated(nctx, notice) })
	return created, nil
}

// pickDeparture resolves the departure a booking consumes. A bare date books a
// departure starting that day, or the trip itself when none does.
func pickDeparture(t trip.Trip, dateID string, date civil.Date) (trip.Departure, bool, error) {
	if dateID != "" {
		d, ok := t.Departure(dateID)
		if !ok {
			return trip.Departure{}, false, apperr.NotFound("departure")
		}
		return d, true, nil
	}
	if date.IsZero() {
		return trip.Departure{}, false, apperr.Invalid("date", "dateId or date is required")
	}
	for _, d := range t.Dates {
		if d.StartDate.Equal(date.Time) {
			return d, true, nil
		}
	}
	return trip.Departure{}, false, nil
}

// CancelBooking cancels a pending or confirmed booking and gives its seats
// back. Cancelling an already cancelled booking succeeds without touching the
// counter.
func (s *Service) CancelBooking(ctx context.Context, id string) (Booking, error) {
	if strings.TrimSpace(id) == "" {
		return Booking{}, apperr.Invalid("bookingId", "is required")
	}
	res, err := s.store.Cancel(ctx, id)
	if err != nil {
		return Booking{}, err
	}
	if !res.Changed {
		return res.Booking, nil
	}
	log.Printf("booking: cancelled id=%s trip=%s date_id=%s travelers=%d", id, res.Booking.TripID, res.Booking.DateID, res.Booking.Travelers)

	s.publish(ctx, res.Seats)
	notice := noticeFor(res.Booking)
	nctx := context.WithoutCancel(ctx)
	s.async(func() { s.notifier.BookingCancelled(nctx, notice) })
	return res.Booking, nil
}

func (s *Service) ListActiveBookings(ctx context.Context, tripID, dateID string) ([]Booking, error) {
	if tripID == "" {
		return nil, apperr.Invalid("tripId", "is required")
	}
	return s.store.ListActive(ctx, tripID, dateID)
}

func (s *Service) ListUserBookings(ctx context.Context, userID string) (Dashboard, error) {
	if userID == "" {
		return Dashboard{}, apperr.UnauthorizedError{}
	}
	bookings, err := s.store.ListByUser(ctx, userID)
	if err != nil {
		return Dashboard{}, err
	}
	return Partition(bookings, s.today()), nil
}

// Partition splits bookings into upcoming and past relative to today.
// Completed bookings are always past. Cancelled bookings that have not
// happened yet appear in neither list.
func Partition(bookings []Booking, today civil.Date) Dashboard {
	d := Dashboard{Upcoming: []Booking{}, Past: []Booking{}}
	for _, b := range bookings {
		switch {
		case b.Status == StatusCompleted || b.Date.Before(today):
			d.Past = append(d.Past, b)
		case b.Status != StatusCancelled:
			d.Upcoming = append(d.Upcoming, b)
		}
	}
	slices.SortStableFunc(d.Upcoming, func(a, b Booking) int { return a.Date.Compare(b.Date.Time) })
	slices.SortStableFunc(d.Past, func(a, b Booking) int { return b.Date.Compare(a.Date.Time) })
	return d
}

var transitions = map[Status][]Status{
	StatusPending:   {StatusConfirmed},
	StatusConfirmed: {StatusCompleted},
}

// UpdateStatus applies an admin status change. Cancellation goes through
// CancelBooking so the seats are released.
func (s *Service) UpdateStatus(ctx context.Context, id string, to Status) (Booking, error) {
	if !to.Valid() {
		return Booking{}, apperr.Invalid("status", "must be one of pending confirmed completed cancelled")
	}
	if to == StatusCancelled {
		return s.CancelBooking(ctx, id)
	}

	current, err := s.store.Get(ctx, id)
	if err != nil {
		return Booking{}, err
	}
	if current.Status == to {
		return current, nil
	}
	if !slices.Contains(transitions[current.Status], to) {
		return Booking{}, apperr.Conflict("booking", "cannot move from "+string(current.Status)+" to "+string(to))
	}

	updated, err := s.store.UpdateStatus(ctx, id, current.Status, to)
	if err != nil {
		return Booking{}, err
	}
	log.Printf("booking: status id=%s from=%s to=%s", id, current.Status, to)
	return updated, nil
}

// Receipt renders the booking as a PDF for its owner or an admin.
func (s *Service) Receipt(ctx context.Context, id, requesterID string, admin bool) ([]byte, error) {
	b, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !admin && (b.UserID == "" || b.UserID != requesterID) {
		return nil, apperr.ForbiddenError{Msg: "not your booking"}
	}
	return renderReceipt(b, s.receiptFont)
}

func (s *Service) publish(ctx context.Context, st *SeatState) {
	if st == nil || s.seats == nil {
		return
	}
	u := stream.SeatUpdate{
		TripID:      st.TripID,
		DateID:      st.DateID,
		BookedSeats: st.BookedSeats,
		MaxSeats:    st.MaxSeats,
		SeatsLeft:   max(st.MaxSeats-st.BookedSeats, 0),
	}
	if err := s.seats.PublishSeats(context.WithoutCancel(ctx), u); err != nil {
		log.Printf("booking: publish seats trip=%s date_id=%s: %v", st.TripID, st.DateID, err)
	}
}

func noticeFor(b Booking) notify.BookingNotice {
	return notify.BookingNotice{
		BookingID:  b.ID,
		TripTitle:  b.TripTitle,
		Date:       b.Date,
		Travelers:  b.Travelers,
		TotalPrice: b.TotalPrice,
		Currency:   b.Currency,
		Language:   b.Language,
		Status:     string(b.Status),
		Origin:     string(b.Origin),
		GuestName:  b.UserName,
		GuestEmail: b.UserEmail,
		GuestPhone: b.GuestPhone,
	}
}
