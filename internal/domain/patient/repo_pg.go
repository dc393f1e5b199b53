package patient

import (
	"context"
	"fmt"

	"github.com/medplatform/dossier/internal/platform/apperr"
	"github.com/medplatform/dossier/internal/platform/db"
)

type repoPG struct {
	db db.Querier
}

func NewRepo(q db.Querier) Repository {
	return &repoPG{db: q}
}

const patientCols = `id, first_name, last_name, birth_date, sex, national_id, email, phone,
	street, city, postal_code, country, blood_group, height_cm, weight_kg,
	smoker, alcohol_use, physical_activity, profession,
	emergency_contact_name, emergency_contact_phone, emergency_contact_relation,
	allergy_notes, registered_at`

func (r *repoPG) GetByID(ctx context.Context, id int64) (*Patient, error) {
	var p Patient
	err := db.Conn(ctx, r.db).QueryRow(ctx,
		`SELECT `+patientCols+` FROM patients WHERE id = $1`, id,
	).Scan(&p.ID, &p.FirstName, &p.LastName, &p.BirthDate, &p.Sex, &p.NationalID, &p.Email, &p.Phone,
		&p.Street, &p.City, &p.PostalCode, &p.Country, &p.BloodGroup, &p.HeightCM, &p.WeightKG,
		&p.Smoker, &p.AlcoholUse, &p.PhysicalActivity, &p.Profession,
		&p.EmergencyContactName, &p.EmergencyContactPhone, &p.EmergencyContactRelation,
		&p.AllergyNotes, &p.RegisteredAt)
	if err != nil {
		return nil, apperr.FromPG(err, fmt.Sprintf("patient %d not found", id))
	}
	return &p, nil
}

func (r *repoPG) Exists(ctx context.Context, id int64) (bool, error) {
	var ok bool
	err := db.Conn(ctx, r.db).QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM patients WHERE id = $1)`, id).Scan(&ok)
	if err != nil {
		return false, fmt.Errorf("check patient: %w", err)
	}
	return ok, nil
}

func (r *repoPG) Update(ctx context.Context, id int64, u *ProfileUpdate) error {
	tag, err := db.Conn(ctx, r.db).Exec(ctx, `
		UPDATE patients SET
			first_name = COALESCE($2, first_name),
			last_name = COALESCE($3, last_name),
			birth_date = COALESCE($4, birth_date),
			sex = COALESCE($5, sex),
			national_id = COALESCE($6, national_id),
			email = COALESCE($7, email),
			phone = COALESCE($8, phone),
			street = COALESCE($9, street),
			city = COALESCE($10, city),
			postal_code = COALESCE($11, postal_code),
			country = COALESCE($12, country),
			blood_group = COALESCE($13, blood_group),
			height_cm = COALESCE($14, height_cm),
			weight_kg = COALESCE($15, weight_kg),
			smoker = COALESCE($16, smoker),
			alcohol_use = COALESCE($17, alcohol_use),
			physical_activity = COALESCE($18, physical_activity),
			profession = COALESCE($19, profession),
			emergency_contact_name = COALESCE($20, emergency_contact_name),
			emergency_contact_phone = COALESCE($21, emergency_contact_phone),
			emergency_contact_relation = COALESCE($22, emergency_contact_relation),
			allergy_notes = COALESCE($23, allergy_notes)
		WHERE id = $1`,
		id, u.FirstName, u.LastName, u.BirthDate, u.Sex, u.NationalID, u.Email, u.Phone,
		u.Street, u.City, u.PostalCode, u.Country, u.BloodGroup, u.HeightCM, u.WeightKG,
		u.Smoker, u.AlcoholUse, u.PhysicalActivity, u.Profession,
		u.EmergencyContactName, u.EmergencyContactPhone, u.EmergencyContactRelation, u.AllergyNotes,
	)
	if err != nil {
		return apperr.FromPG(err, "update patient profile")
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("patient %d not found", id)
	}
	return nil
}

func (r *repoPG) EmailTaken(ctx context.Context, email string, excludeID int64) (bool, error) {
	var taken bool
	err := db.Conn(ctx, r.db).QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM patients WHERE lower(email) = lower($1) AND id <> $2)`,
		email, excludeID).Scan(&taken)
	if err != nil {
		return false, fmt.Errorf("check email uniqueness: %w", err)
	}
	return taken, nil
}

func (r *repoPG) NationalIDTaken(ctx context.Context, nationalID string, excludeID int64) (bool, error) {
	var taken bool
	err := db.Conn(ctx, r.db).QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM patients WHERE national_id = $1 AND id <> $2)`,
		nationalID, excludeID).Scan(&taken)
	if err != nil {
		return false, fmt.Errorf("check national id uniqueness: %w", err)
	}
	return taken, nil
}

func (r *repoPG) UpdateBaseline(ctx context.Context, id int64, weightKG, heightCM *float64) error {
	_, err := db.Conn(ctx, r.db).Exec(ctx, `
		UPDATE patients SET
			weight_kg = COALESCE($2, weight_kg),
			height_cm = COALESCE($3, height_cm)
		WHERE id = $1`, id, weightKG, heightCM)
	if err != nil {
		return fmt.Errorf("update patient baseline: %w", err)
	}
	return nil
}
