// Package notify tells guests and the back office about booking changes.
// Delivery is best effort: failures are logged and never reach the caller.
package notify

import (
	"context"

	"backend-mongoliatrails/internal/i18n"
	"backend-mongoliatrails/internal/shared/civil"
)

type BookingNotice struct {
	BookingID  string
	TripTitle  i18n.Text
	Date       civil.Date
	Travelers  int
	TotalPrice float64
	Currency   string
	Language   i18n.Lang
	Status     string
	Origin     string
	GuestName  string
	GuestEmail string
	GuestPhone string
}

// Title resolves the trip title in the booking's language.
func (n BookingNotice) Title() string {
	return n.TripTitle.Resolve(n.Language)
}

type Notifier interface {
	BookingCreated(ctx context.Context, n BookingNotice)
	BookingCancelled(ctx context.Context, n BookingNotice)
}

type Nop struct{}

func (Nop) BookingCreated(context.Context, BookingNotice)   {}
func (Nop) BookingCancelled(context.Context, BookingNotice) {}

// Multi fans a notice out to every notifier in order.
type Multi []Notifier

func (m Multi) BookingCreated(ctx context.Context, n BookingNotice) {
	for _, notifier := range m {
		notifier.BookingCreated(ctx, n)
	}
}

func (m Multi) BookingCancelled(ctx context.Context, n BookingNotice) {
	for _, notifier := range m {
		notifier.BookingCancelled(ctx, n)
	}
}
