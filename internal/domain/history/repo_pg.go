package history

import (
	"context"
	"fmt"

	"github.com/medplatform/dossier/internal/platform/db"
)

type repoPG struct {
	db db.Querier
}

func NewRepo(q db.Querier) Repository {
	return &repoPG{db: q}
}

func (r *repoPG) Insert(ctx context.Context, e *Entry) error {
	err := db.Conn(ctx, r.db).QueryRow(ctx, `
		INSERT INTO medical_history (patient_id, kind, description, start_date, end_date, chronic, recorded_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, recorded_at`,
		e.PatientID, string(e.Kind), e.Description, e.StartDate, e.EndDate, e.Chronic, e.RecordedBy,
	).Scan(&e.ID, &e.RecordedAt)
	if err != nil {
		return fmt.Errorf("insert history entry: %w", err)
	}
	return nil
}

func (r *repoPG) ListByPatient(ctx context.Context, patientID int64) ([]*Entry, error) {
	rows, err := db.Conn(ctx, r.db).Query(ctx, `
		SELECT id, patient_id, kind, description, start_date, end_date, chronic, recorded_by, recorded_at
		FROM medical_history
		WHERE patient_id = $1
		ORDER BY recorded_at DESC, id DESC`, patientID)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	defer rows.Close()

	var out []*Entry
	for rows.Next() {
		var e Entry
		var kind string
		if err := rows.Scan(&e.ID, &e.PatientID, &kind, &e.Description, &e.StartDate, &e.EndDate,
			&e.Chronic, &e.RecordedBy, &e.RecordedAt); err != nil {
			return nil, fmt.Errorf("scan history entry: %w", err)
		}
		e.Kind = Kind(kind)
		out = append(out, &e)
	}
	return out, rows.Err()
}
