package notify

import (
	"context"
	"fmt"
	"log"

	"backend-mongoliatrails/internal/i18n"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type botSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Telegram posts booking activity to the back-office chat.
type Telegram struct {
	bot    botSender
	chatID int64
}

// NewTelegram returns a disabled notifier when token or chat id is missing.
func NewTelegram(token string, chatID int64) (*Telegram, error) {
	if token == "" || chatID == 0 {
		log.Printf("notify: telegram token or chat id empty, admin notifications disabled")
		return &Telegram{}, nil
	}
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}
	return &Telegram{bot: bot, chatID: chatID}, nil
}

func (t *Telegram) BookingCreated(ctx context.Context, n BookingNotice) {
	text := fmt.Sprintf(
		"*New booking* (%s, %s)\n\nTrip: %s\nDate: %s\nTravelers: %d\nTotal: %s\nGuest: %s, %s, %s\nRef: `%s`",
		n.Origin, n.Status, md(n.TripTitle.Resolve(i18n.Base)), n.Date.String(), n.Travelers,
		md(FormatMoney(n.TotalPrice, n.Currency)), md(n.GuestName), md(n.GuestEmail), md(n.GuestPhone), n.BookingID,
	)
	t.send(ctx, text)
}

func (t *Telegram) BookingCancelled(ctx context.Context, n BookingNotice) {
	text := fmt.Sprintf(
		"*Booking cancelled*\n\nTrip: %s\nDate: %s\nSeats released: %d\nGuest: %s\nRef: `%s`",
		md(n.TripTitle.Resolve(i18n.Base)), n.Date.String(), n.Travelers, md(n.GuestName), n.BookingID,
	)
	t.send(ctx, text)
}

// md escapes text typed by guests and admins; a stray _ or * would make
// Telegram reject the whole message.
func md(s string) string {
	return tgbotapi.EscapeText(tgbotapi.ModeMarkdown, s)
}

func (t *Telegram) send(ctx context.Context, text string) {
	if t.bot == nil {
		return
	}
	if err := ctx.Err(); err != nil {
		log.Printf("notify: telegram skipped: %v", err)
		return
	}
	msg := tgbotapi.NewMessage(t.chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	if _, err := t.bot.Send(msg); err != nil {
		log.Printf("notify: telegram chat=%d: %v", t.chatID, err)
	}
}
