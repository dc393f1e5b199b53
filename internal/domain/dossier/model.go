package dossier

import (
	"time"

	"github.com/medplatform/dossier/internal/domain/history"
	"github.com/medplatform/dossier/internal/domain/note"
	"github.com/medplatform/dossier/internal/domain/patient"
	"github.com/medplatform/dossier/internal/domain/treatment"
)

// Allergy severities. Only SeveritySevere and SeverityLifeThreatening raise
// an alert.
const (
	SeverityMild            = "mild"
	SeverityModerate        = "moderate"
	SeveritySevere          = "severe"
	SeverityLifeThreatening = "life-threatening"
)

type Allergy struct {
	AllergyID   int64      `json:"allergy_id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	DiagnosedOn *time.Time `json:"diagnosed_on"`
	Severity    string     `json:"severity"`
	Notes       string     `json:"notes"`
}

func (a *Allergy) Alerting() bool {
	return a.Severity == SeveritySevere || a.Severity == SeverityLifeThreatening
}

type Consultation struct {
	ID           int64      `json:"id"`
	Date         time.Time  `json:"date"`
	Reason       string     `json:"reason"`
	Anamnesis    string     `json:"anamnesis"`
	Examination  string     `json:"examination"`
	Diagnosis    string     `json:"diagnosis"`
	Conclusion   string     `json:"conclusion"`
	Complete     bool       `json:"complete"`
	FollowUpDate *time.Time `json:"follow_up_date"`
	DoctorName   string     `json:"doctor_name"`
	Specialty    string     `json:"specialty"`
	EncounterID  *int64     `json:"encounter_id"`
}

type VitalSign struct {
	ID               int64     `json:"id"`
	MeasuredAt       time.Time `json:"measured_at"`
	TemperatureC     *float64  `json:"temperature_c"`
	Systolic         *int      `json:"systolic"`
	Diastolic        *int      `json:"diastolic"`
	HeartRate        *int      `json:"heart_rate"`
	OxygenSaturation *float64  `json:"oxygen_saturation"`
	RespiratoryRate  *int      `json:"respiratory_rate"`
	Glucose          *float64  `json:"glucose"`
	WeightKG         *float64  `json:"weight_kg"`
	HeightCM         *float64  `json:"height_cm"`
	BMI              *float64  `json:"bmi"`
	Notes            string    `json:"notes"`
	ConsultationID   *int64    `json:"consultation_id"`
}

type Encounter struct {
	ID          int64      `json:"id"`
	StartsAt    time.Time  `json:"starts_at"`
	EndsAt      *time.Time `json:"ends_at"`
	Reason      string     `json:"reason"`
	Status      string     `json:"status"`
	Mode        string     `json:"mode"`
	DoctorName  string     `json:"doctor_name"`
	Specialty   string     `json:"specialty"`
	Institution string     `json:"institution"`
	CreatedAt   time.Time  `json:"created_at"`
}

// EncounterStats is computed by the store over every encounter of the
// patient. The trailing window is the twelve months before the read.
type EncounterStats struct {
	Total             int        `json:"total"`
	Completed         int        `json:"completed"`
	PastYear          int        `json:"past_year"`
	CompletedPastYear int        `json:"completed_past_year"`
	LastEncounterAt   *time.Time `json:"last_encounter_at"`
}

type LabResult struct {
	ID             int64      `json:"id"`
	TestName       string     `json:"test_name"`
	Category       string     `json:"category"`
	PrescribedOn   *time.Time `json:"prescribed_on"`
	PerformedOn    *time.Time `json:"performed_on"`
	Laboratory     string     `json:"laboratory"`
	NumericValue   *float64   `json:"numeric_value"`
	TextValue      string     `json:"text_value"`
	Unit           string     `json:"unit"`
	NormalMin      *float64   `json:"normal_min"`
	NormalMax      *float64   `json:"normal_max"`
	Interpretation string     `json:"interpretation"`
	Normal         *bool      `json:"normal"`
	Critical       bool       `json:"critical"`
	DocumentURL    string     `json:"document_url"`
	PrescriberName string     `json:"prescriber_name"`
}

type ImagingResult struct {
	ID             int64      `json:"id"`
	Modality       string     `json:"modality"`
	PrescribedOn   *time.Time `json:"prescribed_on"`
	PerformedOn    *time.Time `json:"performed_on"`
	Interpretation string     `json:"interpretation"`
	Conclusion     string     `json:"conclusion"`
	ImageURLs      []string   `json:"image_urls"`
	PrescriberName string     `json:"prescriber_name"`
	Institution    string     `json:"institution"`
}

type Document struct {
	ID          int64     `json:"id"`
	Kind        string    `json:"kind"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	URL         string    `json:"url"`
	Shared      bool      `json:"shared"`
	AuthorName  string    `json:"author_name"`
	CreatedAt   time.Time `json:"created_at"`
}

type Summary struct {
	TotalConsultations   int            `json:"total_consultations"`
	TotalTreatments      int            `json:"total_treatments"`
	TotalAllergies       int            `json:"total_allergies"`
	Encounters           EncounterStats `json:"encounters"`
	LastConsultationDate *time.Time     `json:"last_consultation_date"`
	HasActiveAlerts      bool           `json:"has_active_alerts"`
}

// Snapshot is one consistent view of a patient's record. Each collection is
// ordered newest first on its own timestamp; collections are not aligned
// with one another.
type Snapshot struct {
	Patient       *patient.Patient       `json:"patient"`
	Allergies     []*Allergy             `json:"allergies"`
	History       []*history.Entry       `json:"history"`
	Treatments    []*treatment.Treatment `json:"treatments"`
	Consultations []*Consultation        `json:"consultations"`
	VitalSigns    []*VitalSign           `json:"vital_signs"`
	Encounters    []*Encounter           `json:"encounters"`
	Notes         []*note.Note           `json:"notes"`
	LabResults    []*LabResult           `json:"lab_results"`
	Imaging       []*ImagingResult       `json:"imaging"`
	Documents     []*Document            `json:"documents"`
	Summary       Summary                `json:"summary"`
}
