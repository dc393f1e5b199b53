package catalog

import (
	"context"
	"errors"
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

func (r *repoPG) SearchMedications(ctx context.Context, term string, limit int) ([]*Medication, error) {
	rows, err := db.Conn(ctx, r.db).Query(ctx, `
		SELECT id, brand_name, molecule_name, dosage, form
		FROM medications
		WHERE brand_name ILIKE '%' || $1 || '%' OR molecule_name ILIKE '%' || $1 || '%'
		ORDER BY brand_name
		LIMIT $2`, term, limit)
	if err != nil {
		return nil, fmt.Errorf("search medications: %w", err)
	}
	defer rows.Close()

	var out []*Medication
	for rows.Next() {
		var m Medication
		if err := rows.Scan(&m.ID, &m.BrandName, &m.MoleculeName, &m.Dosage, &m.Form); err != nil {
			return nil, fmt.Errorf("scan medication: %w", err)
		}
		out = append(out, &m)
	}
	return out, rows.Err()
}

func (r *repoPG) SearchAllergyTypes(ctx context.Context, term string, limit int) ([]*AllergyType, error) {
	rows, err := db.Conn(ctx, r.db).Query(ctx, `
		SELECT id, name, description
		FROM allergy_types
		WHERE name ILIKE '%' || $1 || '%'
		ORDER BY name
		LIMIT $2`, term, limit)
	if err != nil {
		return nil, fmt.Errorf("search allergy types: %w", err)
	}
	defer rows.Close()

	var out []*AllergyType
	for rows.Next() {
		var a AllergyType
		if err := rows.Scan(&a.ID, &a.Name, &a.Description); err != nil {
			return nil, fmt.Errorf("scan allergy type: %w", err)
		}
		out = append(out, &a)
	}
	return out, rows.Err()
}

func (r *repoPG) MedicationExists(ctx context.Context, id int64) (bool, error) {
	var ok bool
	err := db.Conn(ctx, r.db).QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM medications WHERE id = $1)`, id).Scan(&ok)
	if err != nil {
		return false, fmt.Errorf("check medication: %w", err)
	}
	return ok, nil
}

func (r *repoPG) FindMedicationByName(ctx context.Context, name string) (*Medication, error) {
	var m Medication
	err := db.Conn(ctx, r.db).QueryRow(ctx, `
		SELECT id, brand_name, molecule_name, dosage, form
		FROM medications
		WHERE lower(brand_name) = lower($1) OR lower(molecule_name) = lower($1)
		ORDER BY id
		LIMIT 1`, name,
	).Scan(&m.ID, &m.BrandName, &m.MoleculeName, &m.Dosage, &m.Form)
	if err != nil {
		return nil, apperr.FromPG(err, fmt.Sprintf("medication %q not found", name))
	}
	return &m, nil
}

// InsertMedication never raises a unique violation, which would abort the
// surrounding transaction. A brand name taken by a concurrent writer is
// loaded instead.
func (r *repoPG) InsertMedication(ctx context.Context, m *Medication) error {
	conn := db.Conn(ctx, r.db)
	err := conn.QueryRow(ctx, `
		INSERT INTO medications (brand_name, molecule_name, dosage, form)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (lower(brand_name)) DO NOTHING
		RETURNING id`,
		m.BrandName, m.MoleculeName, m.Dosage, m.Form,
	).Scan(&m.ID)
	if err == nil {
		return nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("insert medication %q: %w", m.BrandName, err)
	}

	err = conn.QueryRow(ctx, `
		SELECT id, brand_name, molecule_name, dosage, form
		FROM medications
		WHERE lower(brand_name) = lower($1)`, m.BrandName,
	).Scan(&m.ID, &m.BrandName, &m.MoleculeName, &m.Dosage, &m.Form)
	if err != nil {
		return apperr.FromPG(err, fmt.Sprintf("medication %q not found", m.BrandName))
	}
	return nil
}
