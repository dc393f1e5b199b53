package measurement

import (
	"context"
	"errors"
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

const recordSelect = `
	SELECT id, patient_id, kind, value, unit, measured_on, note, recorded_by, created_at
	FROM patient_measurements`

func scanRecord(row pgx.Row) (*Record, error) {
	var r Record
	var kind string
	err := row.Scan(&r.ID, &r.PatientID, &kind, &r.Value, &r.Unit,
		&r.Date, &r.Note, &r.RecordedBy, &r.CreatedAt)
	r.Kind = Kind(kind)
	return &r, err
}

func (r *repoPG) ListByPatient(ctx context.Context, patientID int64) ([]*Record, error) {
	rows, err := db.Conn(ctx, r.db).Query(ctx, recordSelect+`
		WHERE patient_id = $1
		ORDER BY measured_on DESC, kind`, patientID)
	if err != nil {
		return nil, fmt.Errorf("list measurements: %w", err)
	}
	defer rows.Close()

	var out []*Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan measurement: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (r *repoPG) Get(ctx context.Context, patientID, id int64) (*Record, error) {
	rec, err := scanRecord(db.Conn(ctx, r.db).QueryRow(ctx,
		recordSelect+` WHERE id = $1 AND patient_id = $2`, id, patientID))
	if err != nil {
		return nil, apperr.FromPG(err, fmt.Sprintf("measurement %d not found", id))
	}
	return rec, nil
}

func (r *repoPG) FindForDate(ctx context.Context, patientID int64, kind Kind, date time.Time) (*Record, error) {
	rec, err := scanRecord(db.Conn(ctx, r.db).QueryRow(ctx,
		recordSelect+` WHERE patient_id = $1 AND kind = $2 AND measured_on = $3`,
		patientID, string(kind), date))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find measurement: %w", err)
	}
	return rec, nil
}

func (r *repoPG) Insert(ctx context.Context, rec *Record) error {
	err := db.Conn(ctx, r.db).QueryRow(ctx, `
		INSERT INTO patient_measurements (patient_id, kind, value, unit, measured_on, note, recorded_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at`,
		rec.PatientID, string(rec.Kind), rec.Value, rec.Unit, rec.Date, rec.Note, rec.RecordedBy,
	).Scan(&rec.ID, &rec.CreatedAt)
	if apperr.IsUniqueViolation(err) {
		return apperr.Conflict("%s already recorded on %s", rec.Kind, rec.Date.Format(dateLayout))
	}
	if err != nil {
		return fmt.Errorf("insert measurement: %w", err)
	}
	return nil
}

func (r *repoPG) Update(ctx context.Context, rec *Record) error {
	tag, err := db.Conn(ctx, r.db).Exec(ctx, `
		UPDATE patient_measurements SET value = $3, measured_on = $4, note = $5
		WHERE id = $1 AND patient_id = $2`,
		rec.ID, rec.PatientID, rec.Value, rec.Date, rec.Note)
	if apperr.IsUniqueViolation(err) {
		return apperr.Conflict("%s already recorded on %s", rec.Kind, rec.Date.Format(dateLayout))
	}
	if err != nil {
		return fmt.Errorf("update measurement: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("measurement %d not found", rec.ID)
	}
	return nil
}

func (r *repoPG) Delete(ctx context.Context, patientID, id int64) error {
	tag, err := db.Conn(ctx, r.db).Exec(ctx,
		`DELETE FROM patient_measurements WHERE id = $1 AND patient_id = $2`, id, patientID)
	if err != nil {
		return fmt.Errorf("delete measurement: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("measurement %d not found", id)
	}
	return nil
}

func (r *repoPG) DeleteByDate(ctx context.Context, patientID int64, date time.Time) ([]int64, error) {
	rows, err := db.Conn(ctx, r.db).Query(ctx, `
		DELETE FROM patient_measurements
		WHERE patient_id = $1 AND measured_on = $2
		RETURNING id`, patientID, date)
	if err != nil {
		return nil, fmt.Errorf("delete measurements by date: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[int64])
	if err != nil {
		return nil, fmt.Errorf("delete measurements by date: %w", err)
	}
	return ids, nil
}
