package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/healthcare-booking/internal/billing"
	"github.com/hackgods/healthcare-booking/internal/payment"
)

func createBillHandler(svc *billing.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateBillRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}
		if err := validate.Struct(req); err != nil {
			writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
			return
		}

		patientID, err := uuid.Parse(req.PatientID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_patient_id", "patient_id must be a valid UUID")
			return
		}

		var appointmentID *uuid.UUID
		if req.AppointmentID != "" {
			id, err := uuid.Parse(req.AppointmentID)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_appointment_id", "appointment_id must be a valid UUID")
				return
			}
			appointmentID = &id
		}

		var dueDate *time.Time
		if req.DueDate != nil {
			d, err := time.Parse(dateLayout, *req.DueDate)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_date", "due_date must be YYYY-MM-DD")
				return
			}
			dueDate = &d
		}

		in := billing.CreateBillInput{
			PatientID:       patientID,
			AppointmentID:   appointmentID,
			ConsultationFee: req.ConsultationFee,
			MedicinesCost:   req.MedicinesCost,
			TestsCost:       req.TestsCost,
			OtherCharges:    req.OtherCharges,
			Tax:             req.Tax,
			Discount:        req.Discount,
			DueDate:         dueDate,
		}
		for _, it := range req.Items {
			in.Items = append(in.Items, billing.ItemInput{
				Description: it.Description,
				Quantity:    it.Quantity,
				UnitPrice:   it.UnitPrice,
			})
		}

		bill, err := svc.CreateBill(r.Context(), in)
		if err != nil {
			handleBillingError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, toBillResponse(bill))
	}
}

func listBillsHandler(svc *billing.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var filter billing.ListFilter

		if v := r.URL.Query().Get("patient_id"); v != "" {
			id, err := uuid.Parse(v)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_patient_id", "patient_id must be a valid UUID")
				return
			}
			filter.PatientID = &id
		}

		limit, offset := paging(r)

		bills, err := svc.List(r.Context(), filter, limit, offset)
		if err != nil {
			handleBillingError(w, err)
			return
		}

		resp := ListResponse[BillResponse]{Count: len(bills), Data: make([]BillResponse, 0, len(bills))}
		for i := range bills {
			resp.Data = append(resp.Data, toBillResponse(&bills[i]))
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func getBillHandler(svc *billing.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}

		bill, err := svc.Get(r.Context(), id)
		if err != nil {
			handleBillingError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toBillResponse(bill))
	}
}

func createPaymentIntentHandler(svc *billing.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}

		clientSecret, err := svc.CreatePaymentIntent(r.Context(), id)
		if err != nil {
			handleBillingError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, PaymentIntentResponse{ClientSecret: clientSecret})
	}
}

func recordPaymentHandler(svc *billing.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}

		var req RecordPaymentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}
		if err := validate.Struct(req); err != nil {
			writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
			return
		}

		bill, err := svc.RecordPayment(r.Context(), id, billing.PaymentMethod(req.PaymentMethod), req.ProviderRef)
		if err != nil {
			handleBillingError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toBillResponse(bill))
	}
}

func handleBillingError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, billing.ErrBillNotFound):
		writeError(w, http.StatusNotFound, "bill_not_found", err.Error())
	case errors.Is(err, billing.ErrInvalidMethod):
		writeError(w, http.StatusBadRequest, "invalid_payment_method", err.Error())
	case errors.Is(err, payment.ErrProviderFailure):
		writeError(w, http.StatusBadGateway, "payment_provider_error", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}
