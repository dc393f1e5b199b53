package note

import (
	"context"
	"fmt"

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

const noteSelect = `
	SELECT n.id, n.patient_id, n.author_id, COALESCE(d.first_name || ' ' || d.last_name, ''),
		n.content, n.important, n.category, n.note_date, n.created_at
	FROM patient_notes n
	LEFT JOIN doctors d ON d.id = n.author_id`

func scanNote(row pgx.Row) (*Note, error) {
	var n Note
	err := row.Scan(&n.ID, &n.PatientID, &n.AuthorID, &n.AuthorName,
		&n.Content, &n.Important, &n.Category, &n.NoteDate, &n.CreatedAt)
	return &n, err
}

func (r *repoPG) Get(ctx context.Context, patientID, id int64) (*Note, error) {
	n, err := scanNote(db.Conn(ctx, r.db).QueryRow(ctx,
		noteSelect+` WHERE n.id = $1 AND n.patient_id = $2`, id, patientID))
	if err != nil {
		return nil, apperr.FromPG(err, fmt.Sprintf("note %d not found", id))
	}
	return n, nil
}

func (r *repoPG) Insert(ctx context.Context, n *Note) error {
	err := db.Conn(ctx, r.db).QueryRow(ctx, `
		INSERT INTO patient_notes (patient_id, author_id, content, important, category, note_date)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`,
		n.PatientID, n.AuthorID, n.Content, n.Important, n.Category, n.NoteDate,
	).Scan(&n.ID, &n.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert note: %w", err)
	}
	return nil
}

func (r *repoPG) Update(ctx context.Context, n *Note) error {
	tag, err := db.Conn(ctx, r.db).Exec(ctx, `
		UPDATE patient_notes SET content = $3, important = $4, category = $5, note_date = $6
		WHERE id = $1 AND patient_id = $2`,
		n.ID, n.PatientID, n.Content, n.Important, n.Category, n.NoteDate)
	if err != nil {
		return fmt.Errorf("update note: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("note %d not found", n.ID)
	}
	return nil
}

func (r *repoPG) Delete(ctx context.Context, patientID, id int64) error {
	tag, err := db.Conn(ctx, r.db).Exec(ctx,
		`DELETE FROM patient_notes WHERE id = $1 AND patient_id = $2`, id, patientID)
	if err != nil {
		return fmt.Errorf("delete note: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("note %d not found", id)
	}
	return nil
}

func (r *repoPG) ListByPatient(ctx context.Context, patientID int64, limit int) ([]*Note, error) {
	rows, err := db.Conn(ctx, r.db).Query(ctx, noteSelect+`
		WHERE n.patient_id = $1
		ORDER BY n.note_date DESC, n.created_at DESC
		LIMIT $2`, patientID, limit)
	if err != nil {
		return nil, fmt.Errorf("list notes: %w", err)
	}
	defer rows.Close()

	var out []*Note
	for rows.Next() {
		n, err := scanNote(rows)
		if err != nil {
			return nil, fmt.Errorf("scan note: %w", err)
		}
		out = append(out, n)
	}
	return out, rows.Err()
}
