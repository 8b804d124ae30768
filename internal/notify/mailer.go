package notify

import (
	"context"
	"fmt"
	"log"
	"net/smtp"
	"strings"

	"backend-mongoliatrails/internal/config"
	"backend-mongoliatrails/internal/i18n"
)

type sendMailFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// Mailer e-mails the guest in the language the booking was made in.
type Mailer struct {
	addr     string
	auth     smtp.Auth
	from     string
	sendMail sendMailFunc
}

// NewMailer returns nil when SMTP is not configured.
func NewMailer(cfg config.Config) *Mailer {
	if cfg.SMTPHost == "" || cfg.MailFrom == "" {
		log.Printf("notify: smtp not configured, guest e-mails disabled")
		return nil
	}
	var auth smtp.Auth
	if cfg.SMTPUser != "" {
		auth = smtp.PlainAuth("", cfg.SMTPUser, cfg.SMTPPassword, cfg.SMTPHost)
	}
	return &Mailer{
		addr:     cfg.SMTPHost + ":" + cfg.SMTPPort,
		auth:     auth,
		from:     cfg.MailFrom,
		sendMail: smtp.SendMail,
	}
}

type mailText struct {
	createdSubject   string
	cancelledSubject string
	greeting         string
	created          string
	cancelled        string
	trip             string
	date             string
	travelers        string
	total            string
	reference        string
}

var mailTexts = map[i18n.Lang]mailText{
	i18n.MN: {
		createdSubject:   "Таны захиалга хүлээн авлаа",
		cancelledSubject: "Таны захиалга цуцлагдлаа",
		greeting:         "Сайн байна уу, %s!",
		created:          "Бид таны захиалгыг хүлээн авлаа. Манай ажилтан тантай удахгүй холбогдоно.",
		cancelled:        "Таны захиалга цуцлагдсан байна.",
		trip:             "Аялал",
		date:             "Огноо",
		travelers:        "Аялагчдын тоо",
		total:            "Нийт үнэ",
		reference:        "Захиалгын дугаар",
	},
	i18n.EN: {
		createdSubject:   "We received your booking",
		cancelledSubject: "Your booking was cancelled",
		greeting:         "Hello %s,",
		created:          "Thank you for your booking. Our team will contact you shortly.",
		cancelled:        "Your booking has been cancelled.",
		trip:             "Trip",
		date:             "Date",
		travelers:        "Travelers",
		total:            "Total",
		reference:        "Reference",
	},
	i18n.KO: {
		createdSubject:   "예약이 접수되었습니다",
		cancelledSubject: "예약이 취소되었습니다",
		greeting:         "%s님, 안녕하세요.",
		created:          "예약해 주셔서 감사합니다. 곧 담당자가 연락드리겠습니다.",
		cancelled:        "예약이 취소되었습니다.",
		trip:             "여행",
		date:             "날짜",
		travelers:        "인원",
		total:            "총액",
		reference:        "예약 번호",
	},
}

func textsFor(lang i18n.Lang) mailText {
	if t, ok := mailTexts[lang]; ok {
		return t
	}
	return mailTexts[i18n.Base]
}

func (m *Mailer) BookingCreated(ctx context.Context, n BookingNotice) {
	t := textsFor(n.Language)
	m.send(ctx, n, t.createdSubject, t.created)
}

func (m *Mailer) BookingCancelled(ctx context.Context, n BookingNotice) {
	t := textsFor(n.Language)
	m.send(ctx, n, t.cancelledSubject, t.cancelled)
}

func (m *Mailer) send(ctx context.Context, n BookingNotice, subject, lead string) {
	if m == nil || n.GuestEmail == "" {
		return
	}
	if err := ctx.Err(); err != nil {
		log.Printf("notify: mail to %s skipped: %v", n.GuestEmail, err)
		return
	}
	msg := composeMail(m.from, n.GuestEmail, subject, mailBody(n, lead))
	if err := m.sendMail(m.addr, m.auth, m.from, []string{n.GuestEmail}, msg); err != nil {
		log.Printf("notify: mail booking=%s to=%s: %v", n.BookingID, n.GuestEmail, err)
	}
}

func mailBody(n BookingNotice, lead string) string {
	t := textsFor(n.Language)
	var b strings.Builder
	fmt.Fprintf(&b, t.greeting+"\r\n\r\n", n.GuestName)
	b.WriteString(lead + "\r\n\r\n")
	fmt.Fprintf(&b, "%s: %s\r\n", t.trip, n.Title())
	fmt.Fprintf(&b, "%s: %s\r\n", t.date, n.Date.String())
	fmt.Fprintf(&b, "%s: %d\r\n", t.travelers, n.Travelers)
	fmt.Fprintf(&b, "%s: %s\r\n", t.total, FormatMoney(n.TotalPrice, n.Currency))
	fmt.Fprintf(&b, "%s: %s\r\n", t.reference, n.BookingID)
	return b.String()
}

func composeMail(from, to, subject, body string) []byte {
	var b strings.Builder
	b.WriteString("From: " + from + "\r\n")
	b.WriteString("To: " + to + "\r\n")
	b.WriteString("Subject: " + mimeHeader(subject) + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=\"UTF-8\"\r\n")
	b.WriteString("Content-Transfer-Encoding: 8bit\r\n\r\n")
	b.WriteString(body)
	return []byte(b.String())
}
