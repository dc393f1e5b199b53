// Package catalog serves the medication and allergy reference lists and
// resolves free-text medication names to catalog entries.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/medplatform/dossier/internal/platform/apperr"
)

type Medication struct {
	ID           int64  `json:"id"`
	BrandName    string `json:"brand_name"`
	MoleculeName string `json:"molecule_name"`
	Dosage       string `json:"dosage"`
	Form         string `json:"form"`
}

type AllergyType struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

const searchLimit = 50

type Repository interface {
	SearchMedications(ctx context.Context, term string, limit int) ([]*Medication, error)
	SearchAllergyTypes(ctx context.Context, term string, limit int) ([]*AllergyType, error)
	MedicationExists(ctx context.Context, id int64) (bool, error)
	// FindMedicationByName matches brand or molecule name exactly, ignoring
	// case. NotFound when nothing matches.
	FindMedicationByName(ctx context.Context, name string) (*Medication, error)
	// InsertMedication stores m, or fills m from the entry that already
	// holds its brand name.
	InsertMedication(ctx context.Context, m *Medication) error
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) SearchMedications(ctx context.Context, term string) ([]*Medication, error) {
	return s.repo.SearchMedications(ctx, strings.TrimSpace(term), searchLimit)
}

func (s *Service) SearchAllergies(ctx context.Context, term string) ([]*AllergyType, error) {
	return s.repo.SearchAllergyTypes(ctx, strings.TrimSpace(term), searchLimit)
}

// ResolveMedication returns the catalog id for a treatment. An explicit id
// must exist. Otherwise name is matched against brand and molecule names and
// a new entry is created when nothing matches, so repeated calls with the
// same name resolve to the same entry.
func (s *Service) ResolveMedication(ctx context.Context, id *int64, name string) (int64, error) {
	if id != nil {
		ok, err := s.repo.MedicationExists(ctx, *id)
		if err != nil {
			return 0, err
		}
		if !ok {
			return 0, apperr.NotFound("medication %d not found", *id)
		}
		return *id, nil
	}

	name = strings.TrimSpace(name)
	if name == "" {
		return 0, apperr.Invalid("medication id or name is required")
	}

	m, err := s.repo.FindMedicationByName(ctx, name)
	if err == nil {
		return m.ID, nil
	}
	if !errors.Is(err, apperr.ErrNotFound) {
		return 0, err
	}

	m = &Medication{BrandName: name, MoleculeName: name}
	if err := s.repo.InsertMedication(ctx, m); err != nil {
		return 0, fmt.Errorf("resolve medication %q: %w", name, err)
	}
	return m.ID, nil
}
