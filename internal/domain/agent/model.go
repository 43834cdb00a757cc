package agent

import (
	"time"

	"github.com/google/uuid"

	"github.com/aihealth/agent-api/internal/domain/metric"
	"github.com/aihealth/agent-api/internal/domain/recommend"
	"github.com/aihealth/agent-api/internal/domain/scheduling"
	"github.com/aihealth/agent-api/internal/platform/i18n"
)

// Recommendation is the assembled result of one analysis run, persisted
// for audit. Subsequent runs create new records; existing records are
// never mutated.
type Recommendation struct {
	ID                uuid.UUID                            `json:"id"`
	PatientID         uuid.UUID                            `json:"patient_id"`
	Language          i18n.Language                        `json:"language"`
	Summary           recommend.Summary                    `json:"analysis_summary"`
	Metrics           []metric.HealthMetric                `json:"metrics"`
	Specialists       []recommend.SpecialistRecommendation `json:"specialists"`
	Explanations      map[string]string                    `json:"explanations"`
	NextSteps         []string                             `json:"next_steps"`
	ActionsTaken      []string                             `json:"actions_taken"`
	AppointmentBooked *scheduling.Appointment              `json:"appointment_booked,omitempty"`
	CreatedAt         time.Time                            `json:"created_at"`
}
