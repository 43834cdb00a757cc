package scheduling

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/aihealth/agent-api/internal/domain/recommend"
)

type Handler struct {
	directory DoctorDirectory
	store     AppointmentStore
}

func NewHandler(directory DoctorDirectory, store AppointmentStore) *Handler {
	return &Handler{directory: directory, store: store}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/doctors", h.CreateDoctor)
	api.GET("/doctors", h.ListDoctors)
	api.GET("/doctors/:id", h.GetDoctor)
	api.PUT("/doctors/:id/availability", h.UpsertAvailability)
	api.GET("/doctors/:id/availability", h.ListAvailability)
	api.POST("/appointments", h.BookAppointment)
	api.GET("/appointments/:id", h.GetAppointment)
	api.PATCH("/appointments/:id/status", h.UpdateAppointmentStatus)
}

type createDoctorRequest struct {
	FullName       string `json:"full_name"`
	SpecialistType string `json:"specialist_type"`
}

func (h *Handler) CreateDoctor(c echo.Context) error {
	var body createDoctorRequest
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if body.FullName == "" || body.SpecialistType == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "full_name and specialist_type are required")
	}

	now := time.Now().UTC()
	d := &Doctor{
		ID:             uuid.New(),
		FullName:       body.FullName,
		SpecialistType: body.SpecialistType,
		IsActive:       true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := h.directory.CreateDoctor(c.Request().Context(), d); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusCreated, d)
}

func (h *Handler) ListDoctors(c echo.Context) error {
	specialistType := c.QueryParam("specialist_type")
	if specialistType == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "specialist_type query parameter is required")
	}
	doctors, err := h.directory.ListBySpecialty(c.Request().Context(), specialistType)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, doctors)
}

func (h *Handler) GetDoctor(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid doctor id")
	}
	d, err := h.directory.GetDoctor(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "doctor not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, d)
}

type availabilityRequest struct {
	DayOfWeek int    `json:"day_of_week"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	IsActive  *bool  `json:"is_active"`
}

// UpsertAvailability replaces the recurring weekly window identified by
// (doctor, day_of_week, start_time).
func (h *Handler) UpsertAvailability(c echo.Context) error {
	doctorID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid doctor id")
	}
	var body availabilityRequest
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if body.DayOfWeek < 0 || body.DayOfWeek > 6 {
		return echo.NewHTTPError(http.StatusBadRequest, "day_of_week must be 0 (Sunday) through 6 (Saturday)")
	}

	active := true
	if body.IsActive != nil {
		active = *body.IsActive
	}
	a := &Availability{
		ID:        uuid.New(),
		DoctorID:  doctorID,
		DayOfWeek: time.Weekday(body.DayOfWeek),
		StartTime: body.StartTime,
		EndTime:   body.EndTime,
		IsActive:  active,
	}
	// Reject windows the slot search could not expand.
	if _, _, err := a.Window(time.Now().UTC()); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.directory.UpsertAvailability(c.Request().Context(), a); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) ListAvailability(c echo.Context) error {
	doctorID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid doctor id")
	}
	windows, err := h.directory.ListAvailability(c.Request().Context(), doctorID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, windows)
}

type bookRequest struct {
	PatientID       uuid.UUID `json:"patient_id"`
	DoctorID        uuid.UUID `json:"doctor_id"`
	StartTime       string    `json:"start_datetime"`
	DurationMinutes int       `json:"duration_minutes"`
	Reason          string    `json:"reason"`
}

// BookAppointment handles manual booking. It runs through the same atomic
// store method as the auto-booking engine, so a lost race returns 409
// rather than a double-booked doctor.
func (h *Handler) BookAppointment(c echo.Context) error {
	var body bookRequest
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if body.PatientID == uuid.Nil || body.DoctorID == uuid.Nil {
		return echo.NewHTTPError(http.StatusBadRequest, "patient_id and doctor_id are required")
	}
	start, err := time.Parse(time.RFC3339, body.StartTime)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "start_datetime must be RFC3339")
	}
	duration := body.DurationMinutes
	if duration <= 0 {
		duration = DurationFor(recommend.Low)
	}

	now := time.Now().UTC()
	a := &Appointment{
		ID:              uuid.New(),
		PatientID:       body.PatientID,
		DoctorID:        body.DoctorID,
		StartTime:       start.UTC(),
		DurationMinutes: duration,
		Status:          StatusScheduled,
		BookingMethod:   BookedManually,
		Reason:          body.Reason,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := h.store.Book(c.Request().Context(), a); err != nil {
		if errors.Is(err, ErrSlotTaken) {
			return echo.NewHTTPError(http.StatusConflict, "the requested slot is already taken")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusCreated, a)
}

func (h *Handler) GetAppointment(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid appointment id")
	}
	a, err := h.store.GetAppointment(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "appointment not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, a)
}

type statusRequest struct {
	Status AppointmentStatus `json:"status"`
}

func (h *Handler) UpdateAppointmentStatus(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid appointment id")
	}
	var body statusRequest
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	switch body.Status {
	case StatusScheduled, StatusConfirmed, StatusCompleted, StatusCancelled:
	default:
		return echo.NewHTTPError(http.StatusBadRequest, "unknown status")
	}

	a, err := h.store.UpdateStatus(c.Request().Context(), id, body.Status)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			return echo.NewHTTPError(http.StatusNotFound, "appointment not found")
		case errors.Is(err, ErrInvalidTransition):
			return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
		default:
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
	}
	return c.JSON(http.StatusOK, a)
}
