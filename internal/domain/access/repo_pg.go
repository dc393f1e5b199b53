package access

import (
	"context"
	"fmt"

	"github.com/medplatform/dossier/internal/platform/apperr"
	"github.com/medplatform/dossier/internal/platform/db"
)

type storePG struct {
	db db.Querier
}

func NewStore(q db.Querier) Store {
	return &storePG{db: q}
}

func (s *storePG) HasEncounter(ctx context.Context, doctorID, patientID int64) (bool, error) {
	var ok bool
	err := db.Conn(ctx, s.db).QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM encounters WHERE doctor_id = $1 AND patient_id = $2)`,
		doctorID, patientID,
	).Scan(&ok)
	if err != nil {
		return false, fmt.Errorf("query encounter relationship: %w", err)
	}
	return ok, nil
}

func (s *storePG) TreatmentPrescriber(ctx context.Context, patientID, treatmentID int64) (int64, error) {
	var prescriber int64
	err := db.Conn(ctx, s.db).QueryRow(ctx,
		`SELECT prescribed_by FROM treatments WHERE id = $1 AND patient_id = $2`,
		treatmentID, patientID,
	).Scan(&prescriber)
	if err != nil {
		return 0, apperr.FromPG(err, fmt.Sprintf("treatment %d not found", treatmentID))
	}
	return prescriber, nil
}

func (s *storePG) NoteAuthor(ctx context.Context, patientID, noteID int64) (int64, error) {
	var author int64
	err := db.Conn(ctx, s.db).QueryRow(ctx,
		`SELECT author_id FROM patient_notes WHERE id = $1 AND patient_id = $2`,
		noteID, patientID,
	).Scan(&author)
	if err != nil {
		return 0, apperr.FromPG(err, fmt.Sprintf("note %d not found", noteID))
	}
	return author, nil
}
