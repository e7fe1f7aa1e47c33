package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/go-gomail/gomail"
	"github.com/shopspring/decimal"
)

// BookingConfirmation is sent to the patient right after a slot is reserved.
type BookingConfirmation struct {
	To          string
	PatientName string
	DoctorName  string
	Date        time.Time
	SlotStart   string
	SlotEnd     string
	Fee         decimal.Decimal
}

// PaymentDueNotice is sent by the reminder worker for unpaid bills past due.
type PaymentDueNotice struct {
	To          string
	PatientName string
	BillNumber  string
	Amount      decimal.Decimal
	DueDate     time.Time
}

// Mailer delivers notifications over SMTP. Callers treat delivery as
// fire-and-forget: a failed send is logged by the caller, never propagated
// past it.
type Mailer struct {
	host     string
	port     int
	from     string
	password string
}

func NewMailer(host string, port int, from, password string) *Mailer {
	return &Mailer{
		host:     host,
		port:     port,
		from:     from,
		password: password,
	}
}

func (m *Mailer) BookingConfirmed(ctx context.Context, n BookingConfirmation) error {
	body := fmt.Sprintf(
		"<h2>Appointment Confirmed</h2>"+
			"<p>Dear %s,</p>"+
			"<p>Your appointment has been scheduled with Dr. %s</p>"+
			"<p><strong>Date:</strong> %s</p>"+
			"<p><strong>Time:</strong> %s - %s</p>"+
			"<p><strong>Consultation Fee:</strong> %s</p>"+
			"<p>Thank you for choosing our healthcare system.</p>",
		n.PatientName, n.DoctorName, n.Date.Format("02 Jan 2006"),
		n.SlotStart, n.SlotEnd, n.Fee.StringFixed(2),
	)
	return m.send(n.To, "Appointment Confirmation", body)
}

func (m *Mailer) PaymentDue(ctx context.Context, n PaymentDueNotice) error {
	body := fmt.Sprintf(
		"<h2>Payment Due</h2>"+
			"<p>Dear %s,</p>"+
			"<p>Bill %s for %s is unpaid and was due on %s.</p>"+
			"<p>Please settle it at your earliest convenience.</p>",
		n.PatientName, n.BillNumber, n.Amount.StringFixed(2),
		n.DueDate.Format("02 Jan 2006"),
	)
	return m.send(n.To, "Payment Due Reminder", body)
}

func (m *Mailer) send(to, subject, htmlBody string) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", htmlBody)

	d := gomail.NewDialer(m.host, m.port, m.from, m.password)
	if err := d.DialAndSend(msg); err != nil {
		return fmt.Errorf("send email to %s: %w", to, err)
	}

	return nil
}
