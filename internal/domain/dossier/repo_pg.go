package dossier

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/medplatform/dossier/internal/platform/db"
)

type readerPG struct {
	db db.Querier
}

func NewReader(q db.Querier) Reader {
	return &readerPG{db: q}
}

const doctorName = `COALESCE(d.first_name || ' ' || d.last_name, '')`

// list runs a query and scans every row with scan.
func list[T any](ctx context.Context, q db.Querier, what string, scan func(pgx.CollectableRow) (*T, error), sql string, args ...any) ([]*T, error) {
	rows, err := db.Conn(ctx, q).Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", what, err)
	}
	out, err := pgx.CollectRows(rows, scan)
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", what, err)
	}
	return out, nil
}

func (r *readerPG) Allergies(ctx context.Context, patientID int64) ([]*Allergy, error) {
	return list(ctx, r.db, "allergies", func(row pgx.CollectableRow) (*Allergy, error) {
		var a Allergy
		err := row.Scan(&a.AllergyID, &a.Name, &a.Description, &a.DiagnosedOn, &a.Severity, &a.Notes)
		return &a, err
	}, `
		SELECT pa.allergy_type_id, t.name, t.description, pa.diagnosed_on, pa.severity, pa.notes
		FROM patient_allergies pa
		JOIN allergy_types t ON t.id = pa.allergy_type_id
		WHERE pa.patient_id = $1
		ORDER BY pa.diagnosed_on DESC NULLS LAST, t.name`, patientID)
}

func (r *readerPG) Consultations(ctx context.Context, patientID int64, limit int) ([]*Consultation, error) {
	return list(ctx, r.db, "consultations", func(row pgx.CollectableRow) (*Consultation, error) {
		var c Consultation
		err := row.Scan(&c.ID, &c.Date, &c.Reason, &c.Anamnesis, &c.Examination, &c.Diagnosis,
			&c.Conclusion, &c.Complete, &c.FollowUpDate, &c.DoctorName, &c.Specialty, &c.EncounterID)
		return &c, err
	}, `
		SELECT c.id, c.consulted_at, c.reason, c.anamnesis, c.examination, c.diagnosis,
			c.conclusion, c.complete, c.follow_up_date, `+doctorName+`, COALESCE(d.specialty, ''), c.encounter_id
		FROM consultations c
		LEFT JOIN doctors d ON d.id = c.doctor_id
		WHERE c.patient_id = $1
		ORDER BY c.consulted_at DESC
		LIMIT $2`, patientID, limit)
}

func (r *readerPG) VitalSigns(ctx context.Context, patientID int64, limit int) ([]*VitalSign, error) {
	return list(ctx, r.db, "vital signs", func(row pgx.CollectableRow) (*VitalSign, error) {
		var v VitalSign
		err := row.Scan(&v.ID, &v.MeasuredAt, &v.TemperatureC, &v.Systolic, &v.Diastolic, &v.HeartRate,
			&v.OxygenSaturation, &v.RespiratoryRate, &v.Glucose, &v.WeightKG, &v.HeightCM, &v.BMI,
			&v.Notes, &v.ConsultationID)
		return &v, err
	}, `
		SELECT id, measured_at, temperature_c, systolic, diastolic, heart_rate,
			oxygen_saturation, respiratory_rate, glucose, weight_kg, height_cm, bmi,
			notes, consultation_id
		FROM vital_signs
		WHERE patient_id = $1
		ORDER BY measured_at DESC
		LIMIT $2`, patientID, limit)
}

func (r *readerPG) Encounters(ctx context.Context, patientID int64, limit int) ([]*Encounter, error) {
	return list(ctx, r.db, "encounters", func(row pgx.CollectableRow) (*Encounter, error) {
		var e Encounter
		err := row.Scan(&e.ID, &e.StartsAt, &e.EndsAt, &e.Reason, &e.Status, &e.Mode,
			&e.DoctorName, &e.Specialty, &e.Institution, &e.CreatedAt)
		return &e, err
	}, `
		SELECT e.id, e.starts_at, e.ends_at, e.reason, e.status, e.mode,
			`+doctorName+`, COALESCE(d.specialty, ''), e.institution, e.created_at
		FROM encounters e
		LEFT JOIN doctors d ON d.id = e.doctor_id
		WHERE e.patient_id = $1
		ORDER BY e.starts_at DESC
		LIMIT $2`, patientID, limit)
}

func (r *readerPG) EncounterStats(ctx context.Context, patientID int64, since time.Time) (*EncounterStats, error) {
	var s EncounterStats
	err := db.Conn(ctx, r.db).QueryRow(ctx, `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE status = 'completed'),
			COUNT(*) FILTER (WHERE starts_at >= $2),
			COUNT(*) FILTER (WHERE status = 'completed' AND starts_at >= $2),
			MAX(starts_at)
		FROM encounters
		WHERE patient_id = $1`, patientID, since,
	).Scan(&s.Total, &s.Completed, &s.PastYear, &s.CompletedPastYear, &s.LastEncounterAt)
	if err != nil {
		return nil, fmt.Errorf("query encounter stats: %w", err)
	}
	return &s, nil
}

func (r *readerPG) LabResults(ctx context.Context, patientID int64, limit int) ([]*LabResult, error) {
	return list(ctx, r.db, "lab results", func(row pgx.CollectableRow) (*LabResult, error) {
		var l LabResult
		err := row.Scan(&l.ID, &l.TestName, &l.Category, &l.PrescribedOn, &l.PerformedOn, &l.Laboratory,
			&l.NumericValue, &l.TextValue, &l.Unit, &l.NormalMin, &l.NormalMax, &l.Interpretation,
			&l.Normal, &l.Critical, &l.DocumentURL, &l.PrescriberName)
		return &l, err
	}, `
		SELECT l.id, l.test_name, l.category, l.prescribed_on, l.performed_on, l.laboratory,
			l.numeric_value, l.text_value, l.unit, l.normal_min, l.normal_max, l.interpretation,
			l.is_normal, l.is_critical, l.document_url, `+doctorName+`
		FROM lab_results l
		LEFT JOIN doctors d ON d.id = l.prescribed_by
		WHERE l.patient_id = $1
		ORDER BY l.performed_on DESC NULLS LAST, l.prescribed_on DESC
		LIMIT $2`, patientID, limit)
}

func (r *readerPG) ImagingResults(ctx context.Context, patientID int64, limit int) ([]*ImagingResult, error) {
	return list(ctx, r.db, "imaging", func(row pgx.CollectableRow) (*ImagingResult, error) {
		var i ImagingResult
		err := row.Scan(&i.ID, &i.Modality, &i.PrescribedOn, &i.PerformedOn, &i.Interpretation,
			&i.Conclusion, &i.ImageURLs, &i.PrescriberName, &i.Institution)
		return &i, err
	}, `
		SELECT i.id, i.modality, i.prescribed_on, i.performed_on, i.interpretation,
			i.conclusion, i.image_urls, `+doctorName+`, i.institution
		FROM imaging_results i
		LEFT JOIN doctors d ON d.id = i.prescribed_by
		WHERE i.patient_id = $1
		ORDER BY i.performed_on DESC NULLS LAST, i.prescribed_on DESC
		LIMIT $2`, patientID, limit)
}

func (r *readerPG) Documents(ctx context.Context, patientID int64, limit int) ([]*Document, error) {
	return list(ctx, r.db, "documents", func(row pgx.CollectableRow) (*Document, error) {
		var doc Document
		err := row.Scan(&doc.ID, &doc.Kind, &doc.Title, &doc.Description, &doc.URL,
			&doc.Shared, &doc.AuthorName, &doc.CreatedAt)
		return &doc, err
	}, `
		SELECT m.id, m.kind, m.title, m.description, m.url, m.shared, `+doctorName+`, m.created_at
		FROM medical_documents m
		LEFT JOIN doctors d ON d.id = m.author_id
		WHERE m.patient_id = $1
		ORDER BY m.created_at DESC
		LIMIT $2`, patientID, limit)
}
