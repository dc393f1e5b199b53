package treatment

import (
	"strings"
	"time"

	"github.com/medplatform/dossier/internal/platform/apperr"
)

type Treatment struct {
	ID                int64      `json:"id"`
	PatientID         int64      `json:"patient_id"`
	MedicationID      int64      `json:"medication_id"`
	BrandName         string     `json:"brand_name"`
	MoleculeName      string     `json:"molecule_name"`
	Posology          string     `json:"posology"`
	StartDate         time.Time  `json:"start_date"`
	EndDate           *time.Time `json:"end_date,omitempty"`
	Permanent         bool       `json:"permanent"`
	PrescribedBy      int64      `json:"prescribed_by"`
	PrescriberName    string     `json:"prescriber_name,omitempty"`
	PrescribedAt      time.Time  `json:"prescribed_at"`
	Instructions      string     `json:"instructions"`
	Reminder          bool       `json:"reminder"`
	ReminderFrequency string     `json:"reminder_frequency,omitempty"`
}

// ActiveSince reports whether t is permanent, open ended, or ended on or
// after cutoff.
func (t *Treatment) ActiveSince(cutoff time.Time) bool {
	return t.Permanent || t.EndDate == nil || !t.EndDate.Before(cutoff)
}

type AddInput struct {
	MedicationID      *int64
	MedicationName    string
	Posology          string
	StartDate         *time.Time
	EndDate           *time.Time
	Permanent         bool
	Instructions      string
	Reminder          bool
	ReminderFrequency string
}

func (in *AddInput) Validate() error {
	if (in.MedicationID == nil && strings.TrimSpace(in.MedicationName) == "") ||
		strings.TrimSpace(in.Posology) == "" || in.StartDate == nil {
		return apperr.Invalid("medication, posology and start_date are required")
	}
	return checkDates(*in.StartDate, in.EndDate)
}

// UpdateInput is a partial update; nil fields keep the stored value.
// Setting Permanent to true clears the end date.
type UpdateInput struct {
	Posology          *string
	StartDate         *time.Time
	EndDate           *time.Time
	Permanent         *bool
	Instructions      *string
	Reminder          *bool
	ReminderFrequency *string
}

func (in *UpdateInput) apply(t *Treatment) error {
	if in.Posology != nil {
		if strings.TrimSpace(*in.Posology) == "" {
			return apperr.Invalid("posology must not be empty")
		}
		t.Posology = strings.TrimSpace(*in.Posology)
	}
	if in.StartDate != nil {
		t.StartDate = *in.StartDate
	}
	if in.EndDate != nil {
		t.EndDate = in.EndDate
	}
	if in.Permanent != nil {
		t.Permanent = *in.Permanent
		if t.Permanent {
			t.EndDate = nil
		}
	}
	if in.Instructions != nil {
		t.Instructions = *in.Instructions
	}
	if in.Reminder != nil {
		t.Reminder = *in.Reminder
	}
	if in.ReminderFrequency != nil {
		t.ReminderFrequency = *in.ReminderFrequency
	}
	return checkDates(t.StartDate, t.EndDate)
}

func checkDates(start time.Time, end *time.Time) error {
	if end != nil && !end.After(start) {
		return apperr.Invalid("end_date must be after start_date")
	}
	return nil
}
