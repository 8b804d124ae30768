package booking

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"backend-mongoliatrails/internal/auth"
	"backend-mongoliatrails/internal/i18n"
	"backend-mongoliatrails/internal/notify"
	"backend-mongoliatrails/internal/shared/apperr"
	"backend-mongoliatrails/internal/shared/civil"
	"backend-mongoliatrails/internal/stream"
	"backend-mongoliatrails/internal/trip"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2025, time.July, 1, 10, 0, 0, 0, time.UTC)

type tripStub struct {
	mu    sync.Mutex
	trips map[string]trip.Trip
}

func (f *tripStub) Get(_ context.Context, id string) (trip.Trip, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.trips[id]
	if !ok {
		return trip.Trip{}, apperr.NotFound("trip")
	}
	return t, nil
}

func (f *tripStub) setPrice(id string, p i18n.Price) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t := f.trips[id]
	t.Price = p
	f.trips[id] = t
}

type mockPublisher struct{ mock.Mock }

func (m *mockPublisher) PublishSeats(_ context.Context, u stream.SeatUpdate) error {
	return m.Called(u).Error(0)
}

type mockNotifier struct{ mock.Mock }

func (m *mockNotifier) BookingCreated(_ context.Context, n notify.BookingNotice)   { m.MethodCalled("created", n) }
func (m *mockNotifier) BookingCancelled(_ context.Context, n notify.BookingNotice) { m.MethodCalled("cancelled", n) }

func gobiTrip() trip.Trip {
	return trip.Trip{
		ID:    "gobi",
		Title: i18n.Text{i18n.MN: "Говийн аялал", i18n.EN: "Gobi Tour"},
		Image: "gobi.jpg",
		Price: i18n.Price{i18n.MN: 1500000, i18n.EN: 450},
		Dates: []trip.Departure{
			{ID: "d1", StartDate: civil.New(2025, time.August, 1), EndDate: civil.New(2025, time.August, 5), MaxSeats: 10},
			{ID: "full", StartDate: civil.New(2025, time.August, 10), EndDate: civil.New(2025, time.August, 14), MaxSeats: 2, BookedSeats: 2},
			{ID: "old", StartDate: civil.New(2025, time.June, 1), EndDate: civil.New(2025, time.June, 5), MaxSeats: 10},
		},
	}
}

func newFixture(t *testing.T, opts ...Option) (*Service, *memStore, *tripStub) {
	t.Helper()
	store := newMemStore()
	store.addDeparture("gobi", "d1", 0, 10)
	store.addDeparture("gobi", "full", 2, 2)
	store.addDeparture("gobi", "old", 0, 10)
	trips := &tripStub{trips: map[string]trip.Trip{"gobi": gobiTrip()}}

	svc := NewService(store, trips, opts...)
	svc.now = func() time.Time { return testNow }
	svc.async = func(f func()) { f() }
	return svc, store, trips
}

func request(dateID string, travelers int) CreateInput {
	return CreateInput{
		CreateRequest: CreateRequest{
			TripID:     "gobi",
			DateID:     dateID,
			Travelers:  travelers,
			GuestName:  "Bat",
			GuestEmail: "Bat@Example.com",
			Language:   "en",
			UserID:     "u1",
		},
		Origin: OriginPublic,
	}
}

func TestCreateBookingSnapshotsTripAndTakesSeats(t *testing.T) {
	pub := &mockPublisher{}
	pub.On("PublishSeats", stream.SeatUpdate{TripID: "gobi", DateID: "d1", BookedSeats: 3, MaxSeats: 10, SeatsLeft: 7}).Return(nil).Once()
	notifier := &mockNotifier{}
	notifier.On("created", mock.MatchedBy(func(n notify.BookingNotice) bool {
		return n.GuestEmail == "bat@example.com" && n.Title() == "Gobi Tour" && n.Travelers == 3
	})).Once()

	svc, store, _ := newFixture(t, WithSeatPublisher(pub), WithNotifier(notifier))
	b, err := svc.CreateBooking(context.Background(), request("d1", 3))
	require.NoError(t, err)

	assert.Equal(t, StatusPending, b.Status)
	assert.Equal(t, "d1", b.DateID)
	assert.Equal(t, civil.New(2025, time.August, 1), b.Date)
	assert.Equal(t, 450.0, b.UnitPrice)
	assert.Equal(t, 1350.0, b.TotalPrice)
	assert.Equal(t, "USD", b.Currency)
	assert.Equal(t, i18n.EN, b.Language)
	assert.Equal(t, "gobi.jpg", b.TripImage)
	assert.Equal(t, 3, store.booked("gobi", "d1"))
	pub.AssertExpectations(t)
	notifier.AssertExpectations(t)
}

func TestCreateBookingAdminIsConfirmedAndMayUseAnyDate(t *testing.T) {
	svc, store, _ := newFixture(t)
	in := request("old", 1)
	in.Origin = OriginAdmin
	in.GuestEmail = ""
	in.Language = ""

	b, err := svc.CreateBooking(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, b.Status)
	assert.Equal(t, "MNT", b.Currency)
	assert.Equal(t, 1500000.0, b.TotalPrice)
	assert.Equal(t, 1, store.booked("gobi", "old"))
}

func TestCreateBookingValidation(t *testing.T) {
	svc, _, _ := newFixture(t)

	cases := map[string]func(*CreateInput){
		"travelers":  func(in *CreateInput) { in.Travelers = 0 },
		"guestName":  func(in *CreateInput) { in.GuestName = "" },
		"guestEmail": func(in *CreateInput) { in.GuestEmail = "" },
		"language":   func(in *CreateInput) { in.Language = "fr" },
		"date":       func(in *CreateInput) { in.DateID = "" },
		"past":       func(in *CreateInput) { in.DateID = "old" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			in := request("d1", 1)
			mutate(&in)
			_, err := svc.CreateBooking(context.Background(), in)
			assert.True(t, apperr.IsValidation(err), "got %v", err)
		})
	}
}

func TestCreateBookingUnknownTripOrDeparture(t *testing.T) {
	svc, _, _ := newFixture(t)

	in := request("d1", 1)
	in.TripID = "missing"
	_, err := svc.CreateBooking(context.Background(), in)
	assert.True(t, apperr.IsNotFound(err))

	_, err = svc.CreateBooking(context.Background(), request("nope", 1))
	assert.True(t, apperr.IsNotFound(err))
}

func TestCreateBookingByDateUsesMatchingDeparture(t *testing.T) {
	svc, store, _ := newFixture(t)
	in := request("", 2)
	in.Date = civil.New(2025, time.August, 1)

	b, err := svc.CreateBooking(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, "d1", b.DateID)
	assert.Equal(t, 2, store.booked("gobi", "d1"))
}

func TestCreateBookingFreeDateHoldsNoSeats(t *testing.T) {
	pub := &mockPublisher{}
	svc, store, _ := newFixture(t, WithSeatPublisher(pub))
	in := request("", 2)
	in.Date = civil.New(2025, time.September, 3)

	b, err := svc.CreateBooking(context.Background(), in)
	require.NoError(t, err)
	assert.Empty(t, b.DateID)
	assert.Equal(t, 0, store.booked("gobi", "d1"))
	pub.AssertNotCalled(t, "PublishSeats", mock.Anything)
}

func TestConcurrentCreatesNeverOversell(t *testing.T) {
	svc, store, _ := newFixture(t)
	const seats = 10

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		rejected  int
	)
	for i := 0; i < seats+1; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.CreateBooking(context.Background(), request("d1", 1))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, ErrNoSeats):
				rejected++
			default:
				assert.Fail(t, "unexpected error", err.Error())
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, seats, succeeded)
	assert.Equal(t, 1, rejected)
	assert.Equal(t, seats, store.booked("gobi", "d1"))
}

func TestCreateCancelCyclesDoNotDrift(t *testing.T) {
	svc, store, _ := newFixture(t)
	store.addDeparture("gobi", "d1", 4, 10)

	for i := 0; i < 100; i++ {
		b, err := svc.CreateBooking(context.Background(), request("d1", 3))
		require.NoError(t, err)
		_, err = svc.CancelBooking(context.Background(), b.ID)
		require.NoError(t, err)
	}
	assert.Equal(t, 4, store.booked("gobi", "d1"))
}

func TestCancelTwiceReleasesOnce(t *testing.T) {
	pub := &mockPublisher{}
	pub.On("PublishSeats", mock.Anything).Return(nil)
	notifier := &mockNotifier{}
	notifier.On("created", mock.Anything)
	notifier.On("cancelled", mock.Anything).Once()

	svc, store, _ := newFixture(t, WithSeatPublisher(pub), WithNotifier(notifier))
	b, err := svc.CreateBooking(context.Background(), request("d1", 2))
	require.NoError(t, err)
	store.addDeparture("gobi", "d1", 5, 10)

	first, err := svc.CancelBooking(context.Background(), b.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, first.Status)
	assert.Equal(t, 3, store.booked("gobi", "d1"))

	second, err := svc.CancelBooking(context.Background(), b.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, second.Status)
	assert.Equal(t, 3, store.booked("gobi", "d1"))

	pub.AssertNumberOfCalls(t, "PublishSeats", 2)
	notifier.AssertNumberOfCalls(t, "cancelled", 1)
}

func TestCancelCompletedAndUnknown(t *testing.T) {
	svc, _, _ := newFixture(t)
	b, err := svc.CreateBooking(context.Background(), request("d1", 1))
	require.NoError(t, err)
	_, err = svc.UpdateStatus(context.Background(), b.ID, StatusConfirmed)
	require.NoError(t, err)
	_, err = svc.UpdateStatus(context.Background(), b.ID, StatusCompleted)
	require.NoError(t, err)

	_, err = svc.CancelBooking(context.Background(), b.ID)
	assert.True(t, apperr.IsConflict(err))

	_, err = svc.CancelBooking(context.Background(), "missing")
	assert.True(t, apperr.IsNotFound(err))

	_, err = svc.CancelBooking(context.Background(), "")
	assert.True(t, apperr.IsValidation(err))
}

func TestPriceSnapshotSurvivesTripEdit(t *testing.T) {
	svc, store, trips := newFixture(t)
	b, err := svc.CreateBooking(context.Background(), request("d1", 2))
	require.NoError(t, err)

	trips.setPrice("gobi", i18n.Price{i18n.MN: 9999999, i18n.EN: 9999})

	stored, err := store.Get(context.Background(), b.ID)
	require.NoError(t, err)
	assert.Equal(t, 900.0, stored.TotalPrice)
	assert.Equal(t, 450.0, stored.UnitPrice)
}

func TestOversellRejected(t *testing.T) {
	svc, store, _ := newFixture(t)
	in := request("full", 1)
	in.Origin = OriginAdmin

	_, err := svc.CreateBooking(context.Background(), in)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoSeats)
	assert.Equal(t, 409, apperr.Status(err))
	assert.Equal(t, 2, store.booked("gobi", "full"))
}

func TestListActiveBookingsKeepsInsertionOrder(t *testing.T) {
	svc, _, _ := newFixture(t)
	var ids []string
	for i := 0; i < 3; i++ {
		b, err := svc.CreateBooking(context.Background(), request("d1", 1))
		require.NoError(t, err)
		ids = append(ids, b.ID)
	}
	_, err := svc.CancelBooking(context.Background(), ids[1])
	require.NoError(t, err)

	list, err := svc.ListActiveBookings(context.Background(), "gobi", "d1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, ids[0], list[0].ID)
	assert.Equal(t, ids[2], list[1].ID)

	_, err = svc.ListActiveBookings(context.Background(), "", "d1")
	assert.True(t, apperr.IsValidation(err))
}

func TestPartition(t *testing.T) {
	today := civil.New(2025, time.July, 1)
	tomorrow := civil.New(2025, time.July, 2)
	yesterday := civil.New(2025, time.June, 30)

	bookings := []Booking{
		{ID: "completed-tomorrow", Date: tomorrow, Status: StatusCompleted},
		{ID: "pending-later", Date: civil.New(2025, time.August, 1), Status: StatusPending},
		{ID: "confirmed-today", Date: today, Status: StatusConfirmed},
		{ID: "cancelled-tomorrow", Date: tomorrow, Status: StatusCancelled},
		{ID: "cancelled-yesterday", Date: yesterday, Status: StatusCancelled},
		{ID: "confirmed-yesterday", Date: yesterday, Status: StatusConfirmed},
	}
	d := Partition(bookings, today)

	ids := func(list []Booking) []string {
		out := []string{}
		for _, b := range list {
			out = append(out, b.ID)
		}
		return out
	}
	assert.Equal(t, []string{"confirmed-today", "pending-later"}, ids(d.Upcoming))
	assert.Equal(t, []string{"completed-tomorrow", "cancelled-yesterday", "confirmed-yesterday"}, ids(d.Past))

	empty := Partition(nil, today)
	assert.NotNil(t, empty.Upcoming)
	assert.NotNil(t, empty.Past)
}

func TestListUserBookingsUsesAgencyCalendar(t *testing.T) {
	ulaanbaatar := time.FixedZone("ULAT", 8*3600)
	svc, store, _ := newFixture(t, WithLocation(ulaanbaatar))
	// 2025-07-01 20:00 UTC is already July 2 in Ulaanbaatar
	svc.now = func() time.Time { return time.Date(2025, time.July, 1, 20, 0, 0, 0, time.UTC) }

	_, _, err := store.Create(context.Background(), Booking{ID: "x", TripID: "gobi", UserID: "u1", Date: civil.New(2025, time.July, 1), Travelers: 1, Status: StatusConfirmed})
	require.NoError(t, err)

	dash, err := svc.ListUserBookings(context.Background(), "u1")
	require.NoError(t, err)
	assert.Empty(t, dash.Upcoming)
	require.Len(t, dash.Past, 1)

	_, err = svc.ListUserBookings(context.Background(), "")
	assert.True(t, apperr.IsUnauthorized(err))
}

func TestUpdateStatusTransitions(t *testing.T) {
	svc, store, _ := newFixture(t)
	b, err := svc.CreateBooking(context.Background(), request("d1", 2))
	require.NoError(t, err)

	_, err = svc.UpdateStatus(context.Background(), b.ID, StatusCompleted)
	assert.True(t, apperr.IsConflict(err), "pending cannot complete directly")

	same, err := svc.UpdateStatus(context.Background(), b.ID, StatusPending)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, same.Status)

	confirmed, err := svc.UpdateStatus(context.Background(), b.ID, StatusConfirmed)
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, confirmed.Status)

	_, err = svc.UpdateStatus(context.Background(), b.ID, StatusPending)
	assert.True(t, apperr.IsConflict(err))

	cancelled, err := svc.UpdateStatus(context.Background(), b.ID, StatusCancelled)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, cancelled.Status)
	assert.Equal(t, 0, store.booked("gobi", "d1"))

	_, err = svc.UpdateStatus(context.Background(), b.ID, Status("lost"))
	assert.True(t, apperr.IsValidation(err))
}

func TestPublishFailureDoesNotFailBooking(t *testing.T) {
	pub := &mockPublisher{}
	pub.On("PublishSeats", mock.Anything).Return(errors.New("redis down"))

	svc, _, _ := newFixture(t, WithSeatPublisher(pub))
	_, err := svc.CreateBooking(context.Background(), request("d1", 1))
	assert.NoError(t, err)
}

func TestReceipt(t *testing.T) {
	svc, _, _ := newFixture(t)
	b, err := svc.CreateBooking(context.Background(), request("d1", 2))
	require.NoError(t, err)

	pdf, err := svc.Receipt(context.Background(), b.ID, "u1", false)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(pdf, []byte("%PDF")))

	_, err = svc.Receipt(context.Background(), b.ID, "someone-else", false)
	assert.True(t, apperr.IsForbidden(err))

	_, err = svc.Receipt(context.Background(), b.ID, "admin-1", true)
	assert.NoError(t, err)

	_, err = svc.Receipt(context.Background(), "missing", "u1", false)
	assert.True(t, apperr.IsNotFound(err))
}

func TestReceiptMissingFont(t *testing.T) {
	svc, _, _ := newFixture(t, WithReceiptFont("/nonexistent/font.ttf"))
	b, err := svc.CreateBooking(context.Background(), request("d1", 1))
	require.NoError(t, err)

	_, err = svc.Receipt(context.Background(), b.ID, "u1", false)
	assert.Error(t, err)
}

type userStub map[string]auth.User

func (u userStub) Get(_ context.Context, id string) (auth.User, error) {
	user, ok := u[id]
	if !ok {
		return auth.User{}, apperr.NotFound("user")
	}
	return user, nil
}

func TestAdminBookingFillsDetailsFromAccount(t *testing.T) {
	users := userStub{"u7": {ID: "u7", FullName: "Saraa Bat", Email: "Saraa@Example.com", Phone: "99001122"}}
	svc, store, _ := newFixture(t, WithUserReader(users))

	b, err := svc.CreateBooking(context.Background(), CreateInput{
		CreateRequest: CreateRequest{TripID: "gobi", DateID: "d1", Travelers: 1, UserID: "u7"},
		Origin:        OriginAdmin,
	})
	require.NoError(t, err)
	assert.Equal(t, "Saraa Bat", b.UserName)
	assert.Equal(t, "saraa@example.com", b.UserEmail)
	assert.Equal(t, "99001122", b.GuestPhone)
	assert.Equal(t, 1, store.booked("gobi", "d1"))

	typed, err := svc.CreateBooking(context.Background(), CreateInput{
		CreateRequest: CreateRequest{TripID: "gobi", DateID: "d1", Travelers: 1, UserID: "u7", GuestName: "Saraa B."},
		Origin:        OriginAdmin,
	})
	require.NoError(t, err)
	assert.Equal(t, "Saraa B.", typed.UserName, "typed details win over the account")

	_, err = svc.CreateBooking(context.Background(), CreateInput{
		CreateRequest: CreateRequest{TripID: "gobi", DateID: "d1", Travelers: 1, UserID: "ghost"},
		Origin:        OriginAdmin,
	})
	assert.True(t, apperr.IsNotFound(err))
	assert.Equal(t, 2, store.booked("gobi", "d1"))
}
