package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/verihr/verihr-backend-go/internal/domain/attendance"
	"github.com/verihr/verihr-backend-go/internal/handler/http/middleware"
	"github.com/verihr/verihr-backend-go/internal/handler/http/response"
	"github.com/verihr/verihr-backend-go/internal/pkg/validator"
)

type AttendanceHandler interface {
	GetMyAttendance(w http.ResponseWriter, r *http.Request)
	GetByDate(w http.ResponseWriter, r *http.Request)
	LockDay(w http.ResponseWriter, r *http.Request)
}

type attendanceHandlerImpl struct {
	attendanceService attendance.Service
}

func NewAttendanceHandler(attendanceService attendance.Service) AttendanceHandler {
	return &attendanceHandlerImpl{
		attendanceService: attendanceService,
	}
}

// GetMyAttendance implements AttendanceHandler.
func (h *attendanceHandlerImpl) GetMyAttendance(w http.ResponseWriter, r *http.Request) {
	identity, err := middleware.IdentityFromContext(r.Context())
	if err != nil {
		response.Unauthorized(w, err.Error())
		return
	}

	filter := attendance.RangeFilter{
		StartDate: r.URL.Query().Get("start_date"),
		EndDate:   r.URL.Query().Get("end_date"),
	}

	records, err := h.attendanceService.ListMine(r.Context(), identity.TenantID, identity.PersonID, filter)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, records)
}

// GetByDate implements AttendanceHandler.
func (h *attendanceHandlerImpl) GetByDate(w http.ResponseWriter, r *http.Request) {
	identity, err := middleware.IdentityFromContext(r.Context())
	if err != nil {
		response.Unauthorized(w, err.Error())
		return
	}

	date, ok := validator.IsValidDate(chi.URLParam(r, "date"))
	if !ok {
		response.BadRequest(w, "Date must be in YYYY-MM-DD format", nil)
		return
	}

	record, err := h.attendanceService.GetDay(r.Context(), identity.TenantID, identity.PersonID, date.UTC())
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, record)
}

// LockDay implements AttendanceHandler. Admin-only payroll finality: once
// locked, the day's record rejects further punches and edits.
func (h *attendanceHandlerImpl) LockDay(w http.ResponseWriter, r *http.Request) {
	identity, err := middleware.IdentityFromContext(r.Context())
	if err != nil {
		response.Unauthorized(w, err.Error())
		return
	}

	personID := chi.URLParam(r, "personID")
	date, ok := validator.IsValidDate(chi.URLParam(r, "date"))
	if !ok {
		response.BadRequest(w, "Date must be in YYYY-MM-DD format", nil)
		return
	}

	if err := h.attendanceService.LockDay(r.Context(), identity.TenantID, personID, date.UTC()); err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Attendance record locked for "+date.Format(time.DateOnly), nil)
}
