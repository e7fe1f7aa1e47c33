package billing

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type PaymentMethod string

const (
	MethodCash      PaymentMethod = "cash"
	MethodCard      PaymentMethod = "card"
	MethodOnline    PaymentMethod = "online"
	MethodInsurance PaymentMethod = "insurance"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case MethodCash, MethodCard, MethodOnline, MethodInsurance:
		return true
	}
	return false
}

type PaymentStatus string

const (
	PaymentPending       PaymentStatus = "pending"
	PaymentPaid          PaymentStatus = "paid"
	PaymentPartiallyPaid PaymentStatus = "partially_paid"
	PaymentRefunded      PaymentStatus = "refunded"
)

type Item struct {
	Description string          `json:"description"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	LineTotal   decimal.Decimal `json:"line_total"`
}

// Bill is an itemized charge record, optionally tied to one appointment.
// Amounts are fixed at creation and never recomputed; amendments require a
// new bill.
type Bill struct {
	ID              uuid.UUID
	BillNumber      string
	PatientID       uuid.UUID
	AppointmentID   *uuid.UUID
	Items           []Item
	ConsultationFee decimal.Decimal
	MedicinesCost   decimal.Decimal
	TestsCost       decimal.Decimal
	OtherCharges    decimal.Decimal
	Subtotal        decimal.Decimal
	Tax             decimal.Decimal
	Discount        decimal.Decimal
	TotalAmount     decimal.Decimal
	PaymentMethod   *PaymentMethod
	PaymentStatus   PaymentStatus
	PaidAmount      decimal.Decimal
	ProviderRef     *string
	DueDate         *time.Time
	LastRemindedAt  *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
