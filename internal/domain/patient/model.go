package patient

import (
	"strings"
	"time"

	"github.com/medplatform/dossier/internal/platform/apperr"
)

type Patient struct {
	ID                       int64      `json:"id"`
	FirstName                string     `json:"first_name"`
	LastName                 string     `json:"last_name"`
	BirthDate                *time.Time `json:"birth_date,omitempty"`
	Sex                      string     `json:"sex"`
	NationalID               *string    `json:"national_id,omitempty"`
	Email                    *string    `json:"email,omitempty"`
	Phone                    string     `json:"phone"`
	Street                   string     `json:"street"`
	City                     string     `json:"city"`
	PostalCode               string     `json:"postal_code"`
	Country                  string     `json:"country"`
	BloodGroup               string     `json:"blood_group"`
	HeightCM                 *float64   `json:"height_cm,omitempty"`
	WeightKG                 *float64   `json:"weight_kg,omitempty"`
	Smoker                   bool       `json:"smoker"`
	AlcoholUse               bool       `json:"alcohol_use"`
	PhysicalActivity         string     `json:"physical_activity"`
	Profession               string     `json:"profession"`
	EmergencyContactName     string     `json:"emergency_contact_name"`
	EmergencyContactPhone    string     `json:"emergency_contact_phone"`
	EmergencyContactRelation string     `json:"emergency_contact_relation"`
	AllergyNotes             string     `json:"allergy_notes"`
	RegisteredAt             time.Time  `json:"registered_at"`
}

func (p *Patient) FullName() string {
	return strings.TrimSpace(p.FirstName + " " + p.LastName)
}

// ProfileUpdate is a partial update: nil fields keep the stored value.
type ProfileUpdate struct {
	FirstName                *string    `json:"first_name"`
	LastName                 *string    `json:"last_name"`
	BirthDate                *time.Time `json:"-"`
	Sex                      *string    `json:"sex"`
	NationalID               *string    `json:"national_id"`
	Email                    *string    `json:"email"`
	Phone                    *string    `json:"phone"`
	Street                   *string    `json:"street"`
	City                     *string    `json:"city"`
	PostalCode               *string    `json:"postal_code"`
	Country                  *string    `json:"country"`
	BloodGroup               *string    `json:"blood_group"`
	HeightCM                 *float64   `json:"height_cm"`
	WeightKG                 *float64   `json:"weight_kg"`
	Smoker                   *bool      `json:"smoker"`
	AlcoholUse               *bool      `json:"alcohol_use"`
	PhysicalActivity         *string    `json:"physical_activity"`
	Profession               *string    `json:"profession"`
	EmergencyContactName     *string    `json:"emergency_contact_name"`
	EmergencyContactPhone    *string    `json:"emergency_contact_phone"`
	EmergencyContactRelation *string    `json:"emergency_contact_relation"`
	AllergyNotes             *string    `json:"allergy_notes"`
}

var validSex = map[string]bool{"M": true, "F": true}

var validBloodGroups = map[string]bool{
	"A+": true, "A-": true, "B+": true, "B-": true,
	"AB+": true, "AB-": true, "O+": true, "O-": true,
}

func (u *ProfileUpdate) Validate() error {
	if u.FirstName != nil && strings.TrimSpace(*u.FirstName) == "" {
		return apperr.Invalid("first_name must not be empty")
	}
	if u.LastName != nil && strings.TrimSpace(*u.LastName) == "" {
		return apperr.Invalid("last_name must not be empty")
	}
	if u.Sex != nil && !validSex[*u.Sex] {
		return apperr.Invalid("sex must be M or F")
	}
	if u.BloodGroup != nil && *u.BloodGroup != "" && !validBloodGroups[*u.BloodGroup] {
		return apperr.Invalid("invalid blood group %q", *u.BloodGroup)
	}
	if u.Email != nil && !strings.Contains(*u.Email, "@") {
		return apperr.Invalid("invalid email address")
	}
	if u.HeightCM != nil && *u.HeightCM <= 0 {
		return apperr.Invalid("height_cm must be positive")
	}
	if u.WeightKG != nil && *u.WeightKG <= 0 {
		return apperr.Invalid("weight_kg must be positive")
	}
	if u.BirthDate != nil && u.BirthDate.After(time.Now()) {
		return apperr.Invalid("birth_date is in the future")
	}
	return nil
}
