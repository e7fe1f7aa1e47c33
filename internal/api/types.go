package api

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/hackgods/healthcare-booking/internal/appointment"
	"github.com/hackgods/healthcare-booking/internal/billing"
	"github.com/hackgods/healthcare-booking/internal/directory"
	"github.com/hackgods/healthcare-booking/internal/review"
)

const dateLayout = "2006-01-02"

// -- Requests --

type TimeSlot struct {
	StartTime string `json:"start_time" validate:"required"`
	EndTime   string `json:"end_time" validate:"required"`
}

type CreateAppointmentRequest struct {
	PatientID  string   `json:"patient_id" validate:"required"`
	DoctorID   string   `json:"doctor_id" validate:"required"`
	HospitalID string   `json:"hospital_id"`
	Date       string   `json:"appointment_date" validate:"required"`
	TimeSlot   TimeSlot `json:"time_slot" validate:"required"`
	Reason     string   `json:"reason"`
	Symptoms   []string `json:"symptoms"`
}

type UpdateAppointmentRequest struct {
	Status    *string `json:"status"`
	Date      *string `json:"appointment_date"`
	SlotStart *string `json:"slot_start"`
	SlotEnd   *string `json:"slot_end"`
	Notes     *string `json:"notes"`
}

type MedicineRequest struct {
	Name      string `json:"name" validate:"required"`
	Dosage    string `json:"dosage"`
	Frequency string `json:"frequency"`
	Duration  string `json:"duration"`
}

type PrescriptionRequest struct {
	Medicines    []MedicineRequest `json:"medicines" validate:"required,min=1,dive"`
	Instructions string            `json:"instructions"`
	FollowUpDate *string           `json:"follow_up_date"`
}

type BillItemRequest struct {
	Description string          `json:"description" validate:"required"`
	Quantity    int             `json:"quantity" validate:"required,min=1"`
	UnitPrice   decimal.Decimal `json:"unit_price" validate:"required"`
}

type CreateBillRequest struct {
	PatientID       string            `json:"patient_id" validate:"required"`
	AppointmentID   string            `json:"appointment_id"`
	Items           []BillItemRequest `json:"items" validate:"dive"`
	ConsultationFee decimal.Decimal   `json:"consultation_fee"`
	MedicinesCost   decimal.Decimal   `json:"medicines_cost"`
	TestsCost       decimal.Decimal   `json:"tests_cost"`
	OtherCharges    decimal.Decimal   `json:"other_charges"`
	Tax             decimal.Decimal   `json:"tax"`
	Discount        decimal.Decimal   `json:"discount"`
	DueDate         *string           `json:"due_date"`
}

type RecordPaymentRequest struct {
	PaymentMethod string `json:"payment_method" validate:"required"`
	ProviderRef   string `json:"provider_ref"`
}

type AddReviewRequest struct {
	PatientID string `json:"patient_id" validate:"required"`
	Rating    int    `json:"rating" validate:"required,min=1,max=5"`
	Comment   string `json:"comment"`
}

// -- Responses --

type PrescriptionResponse struct {
	Medicines    []MedicineRequest `json:"medicines"`
	Instructions string            `json:"instructions"`
	FollowUpDate *string           `json:"follow_up_date,omitempty"`
}

type AppointmentResponse struct {
	ID            uuid.UUID             `json:"id"`
	PatientID     uuid.UUID             `json:"patient_id"`
	DoctorID      uuid.UUID             `json:"doctor_id"`
	HospitalID    *uuid.UUID            `json:"hospital_id,omitempty"`
	Date          string                `json:"appointment_date"`
	TimeSlot      TimeSlot              `json:"time_slot"`
	Status        string                `json:"status"`
	Reason        string                `json:"reason,omitempty"`
	Symptoms      []string              `json:"symptoms,omitempty"`
	Notes         string                `json:"notes,omitempty"`
	Prescription  *PrescriptionResponse `json:"prescription,omitempty"`
	PaymentStatus string                `json:"payment_status"`
	Amount        decimal.Decimal       `json:"amount"`
	CreatedAt     time.Time             `json:"created_at"`
}

type BillItemResponse struct {
	Description string          `json:"description"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	LineTotal   decimal.Decimal `json:"line_total"`
}

type BillResponse struct {
	ID              uuid.UUID          `json:"id"`
	BillNumber      string             `json:"bill_number"`
	PatientID       uuid.UUID          `json:"patient_id"`
	AppointmentID   *uuid.UUID         `json:"appointment_id,omitempty"`
	Items           []BillItemResponse `json:"items"`
	ConsultationFee decimal.Decimal    `json:"consultation_fee"`
	MedicinesCost   decimal.Decimal    `json:"medicines_cost"`
	TestsCost       decimal.Decimal    `json:"tests_cost"`
	OtherCharges    decimal.Decimal    `json:"other_charges"`
	Subtotal        decimal.Decimal    `json:"subtotal"`
	Tax             decimal.Decimal    `json:"tax"`
	Discount        decimal.Decimal    `json:"discount"`
	TotalAmount     decimal.Decimal    `json:"total_amount"`
	PaymentMethod   *string            `json:"payment_method,omitempty"`
	PaymentStatus   string             `json:"payment_status"`
	PaidAmount      decimal.Decimal    `json:"paid_amount"`
	ProviderRef     *string            `json:"provider_ref,omitempty"`
	DueDate         *time.Time         `json:"due_date,omitempty"`
	CreatedAt       time.Time          `json:"created_at"`
}

type PaymentIntentResponse struct {
	ClientSecret string `json:"client_secret"`
}

type DoctorResponse struct {
	ID              uuid.UUID       `json:"id"`
	Name            string          `json:"name"`
	Specialization  string          `json:"specialization"`
	Qualifications  []string        `json:"qualifications,omitempty"`
	ExperienceYears int             `json:"experience_years"`
	ConsultationFee decimal.Decimal `json:"consultation_fee"`
	HospitalID      *uuid.UUID      `json:"hospital_id,omitempty"`
	Rating          decimal.Decimal `json:"rating"`
	ReviewCount     int             `json:"review_count"`
}

type ReviewResponse struct {
	ID        uuid.UUID `json:"id"`
	PatientID uuid.UUID `json:"patient_id"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type DoctorDetailResponse struct {
	DoctorResponse
	Reviews []ReviewResponse `json:"reviews"`
}

type HospitalResponse struct {
	ID         uuid.UUID `json:"id"`
	Name       string    `json:"name"`
	City       string    `json:"city"`
	State      string    `json:"state"`
	Phone      string    `json:"phone"`
	Email      *string   `json:"email,omitempty"`
	Facilities []string  `json:"facilities,omitempty"`
}

type ListResponse[T any] struct {
	Count int `json:"count"`
	Data  []T `json:"data"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// -- Converters --

func toAppointmentResponse(a *appointment.Appointment) AppointmentResponse {
	resp := AppointmentResponse{
		ID:         a.ID,
		PatientID:  a.PatientID,
		DoctorID:   a.DoctorID,
		HospitalID: a.HospitalID,
		Date:       a.Date.Format(dateLayout),
		TimeSlot: TimeSlot{
			StartTime: a.SlotStart,
			EndTime:   a.SlotEnd,
		},
		Status:        string(a.Status),
		Reason:        a.Reason,
		Symptoms:      a.Symptoms,
		Notes:         a.Notes,
		PaymentStatus: string(a.PaymentStatus),
		Amount:        a.Amount,
		CreatedAt:     a.CreatedAt,
	}

	if a.Prescription != nil {
		p := &PrescriptionResponse{
			Instructions: a.Prescription.Instructions,
		}
		for _, m := range a.Prescription.Medicines {
			p.Medicines = append(p.Medicines, MedicineRequest(m))
		}
		if a.Prescription.FollowUpDate != nil {
			f := a.Prescription.FollowUpDate.Format(dateLayout)
			p.FollowUpDate = &f
		}
		resp.Prescription = p
	}

	return resp
}

func toBillResponse(b *billing.Bill) BillResponse {
	items := make([]BillItemResponse, 0, len(b.Items))
	for _, it := range b.Items {
		items = append(items, BillItemResponse(it))
	}

	var method *string
	if b.PaymentMethod != nil {
		m := string(*b.PaymentMethod)
		method = &m
	}

	return BillResponse{
		ID:              b.ID,
		BillNumber:      b.BillNumber,
		PatientID:       b.PatientID,
		AppointmentID:   b.AppointmentID,
		Items:           items,
		ConsultationFee: b.ConsultationFee,
		MedicinesCost:   b.MedicinesCost,
		TestsCost:       b.TestsCost,
		OtherCharges:    b.OtherCharges,
		Subtotal:        b.Subtotal,
		Tax:             b.Tax,
		Discount:        b.Discount,
		TotalAmount:     b.TotalAmount,
		PaymentMethod:   method,
		PaymentStatus:   string(b.PaymentStatus),
		PaidAmount:      b.PaidAmount,
		ProviderRef:     b.ProviderRef,
		DueDate:         b.DueDate,
		CreatedAt:       b.CreatedAt,
	}
}

func toDoctorResponse(d *directory.Doctor) DoctorResponse {
	return DoctorResponse{
		ID:              d.ID,
		Name:            d.UserName,
		Specialization:  d.Specialization,
		Qualifications:  d.Qualifications,
		ExperienceYears: d.ExperienceYears,
		ConsultationFee: d.ConsultationFee,
		HospitalID:      d.HospitalID,
		Rating:          d.Rating,
		ReviewCount:     d.ReviewCount,
	}
}

func toReviewResponse(rev review.Review) ReviewResponse {
	return ReviewResponse{
		ID:        rev.ID,
		PatientID: rev.PatientID,
		Rating:    rev.Rating,
		Comment:   rev.Comment,
		CreatedAt: rev.CreatedAt,
	}
}

func toHospitalResponse(h *directory.Hospital) HospitalResponse {
	return HospitalResponse{
		ID:         h.ID,
		Name:       h.Name,
		City:       h.City,
		State:      h.State,
		Phone:      h.Phone,
		Email:      h.Email,
		Facilities: h.Facilities,
	}
}
