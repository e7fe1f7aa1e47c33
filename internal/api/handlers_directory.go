package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/hackgods/healthcare-booking/internal/directory"
	"github.com/hackgods/healthcare-booking/internal/review"
)

func listDoctorsHandler(repo directory.Repository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var filter directory.DoctorFilter

		filter.Specialization = r.URL.Query().Get("specialization")
		if v := r.URL.Query().Get("hospital_id"); v != "" {
			id, err := uuid.Parse(v)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_hospital_id", "hospital_id must be a valid UUID")
				return
			}
			filter.HospitalID = &id
		}

		limit, offset := paging(r)

		doctors, err := repo.ListDoctors(r.Context(), filter, limit, offset)
		if err != nil {
			handleDirectoryError(w, err)
			return
		}

		resp := ListResponse[DoctorResponse]{Count: len(doctors), Data: make([]DoctorResponse, 0, len(doctors))}
		for i := range doctors {
			resp.Data = append(resp.Data, toDoctorResponse(&doctors[i]))
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func getDoctorHandler(repo directory.Repository, reviews *review.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}

		doctor, err := repo.GetDoctorByID(r.Context(), id)
		if err != nil {
			handleDirectoryError(w, err)
			return
		}

		revs, err := reviews.ListByDoctor(r.Context(), id)
		if err != nil {
			handleDirectoryError(w, err)
			return
		}

		resp := DoctorDetailResponse{
			DoctorResponse: toDoctorResponse(doctor),
			Reviews:        make([]ReviewResponse, 0, len(revs)),
		}
		for _, rev := range revs {
			resp.Reviews = append(resp.Reviews, toReviewResponse(rev))
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func addReviewHandler(svc *review.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doctorID, ok := pathID(w, r)
		if !ok {
			return
		}

		var req AddReviewRequest
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

		if err := svc.AddReview(r.Context(), doctorID, patientID, req.Rating, req.Comment); err != nil {
			handleDirectoryError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, map[string]string{"message": "review added"})
	}
}

func listHospitalsHandler(repo directory.Repository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, offset := paging(r)

		hospitals, err := repo.ListHospitals(r.Context(), limit, offset)
		if err != nil {
			handleDirectoryError(w, err)
			return
		}

		resp := ListResponse[HospitalResponse]{Count: len(hospitals), Data: make([]HospitalResponse, 0, len(hospitals))}
		for i := range hospitals {
			resp.Data = append(resp.Data, toHospitalResponse(&hospitals[i]))
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func getHospitalHandler(repo directory.Repository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}

		hospital, err := repo.GetHospitalByID(r.Context(), id)
		if err != nil {
			handleDirectoryError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toHospitalResponse(hospital))
	}
}

func handleDirectoryError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, directory.ErrDoctorNotFound),
		errors.Is(err, review.ErrDoctorNotFound):
		writeError(w, http.StatusNotFound, "doctor_not_found", err.Error())
	case errors.Is(err, directory.ErrHospitalNotFound):
		writeError(w, http.StatusNotFound, "hospital_not_found", err.Error())
	case errors.Is(err, directory.ErrPatientNotFound):
		writeError(w, http.StatusNotFound, "patient_not_found", err.Error())
	case errors.Is(err, review.ErrDuplicateReview):
		writeError(w, http.StatusBadRequest, "already_reviewed", err.Error())
	case errors.Is(err, review.ErrInvalidRating):
		writeError(w, http.StatusBadRequest, "invalid_rating", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}

// paging reads limit/offset query parameters with the service-side defaults
// left to the services themselves.
func paging(r *http.Request) (limit, offset int) {
	limit = 20
	offset = 0
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			limit = n
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			offset = n
		}
	}
	return limit, offset
}
