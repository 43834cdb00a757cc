package agent

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/aihealth/agent-api/internal/domain/metric"
	"github.com/aihealth/agent-api/internal/platform/i18n"
	"github.com/aihealth/agent-api/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/agent/analyze", h.Analyze)
	api.GET("/agent/recommendations", h.ListRecommendations)
	api.GET("/agent/recommendations/:id", h.GetRecommendation)
}

type analyzeRequest struct {
	PatientID        uuid.UUID             `json:"patient_id"`
	Metrics          []metric.HealthMetric `json:"metrics"`
	AutoBookCritical bool                  `json:"auto_book_critical"`
	Preferred        string                `json:"preferred_datetime"`
	Language         string                `json:"language"`
}

// Analyze handles POST /agent/analyze. Degraded pipeline stages never
// surface as HTTP errors; only malformed requests do.
func (h *Handler) Analyze(c echo.Context) error {
	var body analyzeRequest
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if body.PatientID == uuid.Nil {
		return echo.NewHTTPError(http.StatusBadRequest, "patient_id is required")
	}
	if len(body.Metrics) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "metrics are required")
	}

	req := AnalyzeRequest{
		PatientID:        body.PatientID,
		Metrics:          body.Metrics,
		AutoBookCritical: body.AutoBookCritical,
		Language:         i18n.Parse(body.Language),
	}
	if body.Preferred != "" {
		preferred, err := time.Parse(time.RFC3339, body.Preferred)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "preferred_datetime must be RFC 3339")
		}
		preferred = preferred.UTC()
		req.Preferred = &preferred
	}

	rec, err := h.svc.AnalyzeAndAct(c.Request().Context(), req)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, rec)
}

func (h *Handler) GetRecommendation(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	rec, err := h.svc.GetRecommendation(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "recommendation not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, rec)
}

func (h *Handler) ListRecommendations(c echo.Context) error {
	patientID, err := uuid.Parse(c.QueryParam("patient_id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "patient_id is required")
	}
	pg := pagination.FromContext(c)
	recs, total, err := h.svc.ListRecommendations(c.Request().Context(), patientID, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(recs, c.Request().URL.Path, total, pg))
}
