package treatment

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/medplatform/dossier/internal/platform/apperr"
	"github.com/medplatform/dossier/internal/platform/db"
)

type repoPG struct {
	db db.Querier
}

func NewRepo(q db.Querier) Repository {
	return &repoPG{db: q}
}

const treatmentSelect = `
	SELECT t.id, t.patient_id, t.medication_id, m.brand_name, m.molecule_name, t.posology,
		t.start_date, t.end_date, t.permanent, t.prescribed_by,
		COALESCE(d.first_name || ' ' || d.last_name, ''), t.prescribed_at,
		t.instructions, t.reminder, t.reminder_frequency
	FROM treatments t
	JOIN medications m ON m.id = t.medication_id
	LEFT JOIN doctors d ON d.id = t.prescribed_by`

func scanTreatment(row pgx.Row) (*Treatment, error) {
	var t Treatment
	err := row.Scan(&t.ID, &t.PatientID, &t.MedicationID, &t.BrandName, &t.MoleculeName, &t.Posology,
		&t.StartDate, &t.EndDate, &t.Permanent, &t.PrescribedBy,
		&t.PrescriberName, &t.PrescribedAt,
		&t.Instructions, &t.Reminder, &t.ReminderFrequency)
	return &t, err
}

func (r *repoPG) Get(ctx context.Context, patientID, id int64) (*Treatment, error) {
	t, err := scanTreatment(db.Conn(ctx, r.db).QueryRow(ctx,
		treatmentSelect+` WHERE t.id = $1 AND t.patient_id = $2`, id, patientID))
	if err != nil {
		return nil, apperr.FromPG(err, fmt.Sprintf("treatment %d not found", id))
	}
	return t, nil
}

func (r *repoPG) Insert(ctx context.Context, t *Treatment) error {
	err := db.Conn(ctx, r.db).QueryRow(ctx, `
		INSERT INTO treatments (patient_id, medication_id, posology, start_date, end_date, permanent,
			prescribed_by, instructions, reminder, reminder_frequency)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, prescribed_at`,
		t.PatientID, t.MedicationID, t.Posology, t.StartDate, t.EndDate, t.Permanent,
		t.PrescribedBy, t.Instructions, t.Reminder, t.ReminderFrequency,
	).Scan(&t.ID, &t.PrescribedAt)
	if err != nil {
		return fmt.Errorf("insert treatment: %w", err)
	}
	return nil
}

func (r *repoPG) Update(ctx context.Context, t *Treatment) error {
	tag, err := db.Conn(ctx, r.db).Exec(ctx, `
		UPDATE treatments SET
			posology = $3, start_date = $4, end_date = $5, permanent = $6,
			instructions = $7, reminder = $8, reminder_frequency = $9
		WHERE id = $1 AND patient_id = $2`,
		t.ID, t.PatientID, t.Posology, t.StartDate, t.EndDate, t.Permanent,
		t.Instructions, t.Reminder, t.ReminderFrequency,
	)
	if err != nil {
		return fmt.Errorf("update treatment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("treatment %d not found", t.ID)
	}
	return nil
}

func (r *repoPG) Delete(ctx context.Context, patientID, id int64) error {
	tag, err := db.Conn(ctx, r.db).Exec(ctx,
		`DELETE FROM treatments WHERE id = $1 AND patient_id = $2`, id, patientID)
	if err != nil {
		return fmt.Errorf("delete treatment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("treatment %d not found", id)
	}
	return nil
}

func (r *repoPG) ListActiveByPatient(ctx context.Context, patientID int64, endedSince time.Time) ([]*Treatment, error) {
	rows, err := db.Conn(ctx, r.db).Query(ctx, treatmentSelect+`
		WHERE t.patient_id = $1
		  AND (t.permanent OR t.end_date IS NULL OR t.end_date >= $2)
		ORDER BY t.prescribed_at DESC, t.id DESC`, patientID, endedSince)
	if err != nil {
		return nil, fmt.Errorf("list treatments: %w", err)
	}
	defer rows.Close()

	var out []*Treatment
	for rows.Next() {
		t, err := scanTreatment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan treatment: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
