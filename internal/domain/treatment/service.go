// Package treatment manages prescriptions on a patient's record.
package treatment

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/medplatform/dossier/internal/domain/access"
	"github.com/medplatform/dossier/internal/domain/audit"
	"github.com/medplatform/dossier/internal/platform/apperr"
	"github.com/medplatform/dossier/internal/platform/auth"
	"github.com/medplatform/dossier/internal/platform/db"
)

type PatientChecker interface {
	Exists(ctx context.Context, id int64) (bool, error)
}

type MedicationResolver interface {
	ResolveMedication(ctx context.Context, id *int64, name string) (int64, error)
}

type Authorizer interface {
	Authorize(ctx context.Context, actor auth.Actor, patientID int64, check access.Check) error
}

type Service struct {
	repo        Repository
	patients    PatientChecker
	medications MedicationResolver
	gate        Authorizer
	tx          db.Transactor
	audit       audit.Recorder
	now         func() time.Time
}

func NewService(repo Repository, patients PatientChecker, meds MedicationResolver, gate Authorizer, tx db.Transactor, rec audit.Recorder) *Service {
	return &Service{
		repo:        repo,
		patients:    patients,
		medications: meds,
		gate:        gate,
		tx:          tx,
		audit:       rec,
		now:         time.Now,
	}
}

// ActiveCutoff is the earliest end date an ended treatment may have and
// still be listed.
func ActiveCutoff(now time.Time) time.Time {
	return now.AddDate(0, -6, 0)
}

func (s *Service) ListActive(ctx context.Context, patientID int64) ([]*Treatment, error) {
	if err := s.requirePatient(ctx, patientID); err != nil {
		return nil, err
	}
	return s.repo.ListActiveByPatient(ctx, patientID, ActiveCutoff(s.now()))
}

func (s *Service) Add(ctx context.Context, actor auth.Actor, patientID int64, in AddInput) (*Treatment, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	t := &Treatment{
		PatientID:         patientID,
		Posology:          strings.TrimSpace(in.Posology),
		StartDate:         *in.StartDate,
		EndDate:           in.EndDate,
		Permanent:         in.Permanent,
		PrescribedBy:      actor.DoctorID,
		Instructions:      in.Instructions,
		Reminder:          in.Reminder,
		ReminderFrequency: in.ReminderFrequency,
	}
	if t.Permanent {
		t.EndDate = nil
	}

	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		if err := s.requirePatient(ctx, patientID); err != nil {
			return err
		}
		if err := s.gate.Authorize(ctx, actor, patientID, access.Check{Op: access.OpAddTreatment}); err != nil {
			return err
		}
		medID, err := s.medications.ResolveMedication(ctx, in.MedicationID, in.MedicationName)
		if err != nil {
			return err
		}
		t.MedicationID = medID
		if err := s.repo.Insert(ctx, t); err != nil {
			return err
		}
		stored, err := s.repo.Get(ctx, patientID, t.ID)
		if err != nil {
			return err
		}
		*t = *stored
		return s.audit.Record(ctx, &audit.Entry{
			ActorID:     actor.UserID,
			Action:      audit.ActionAddTreatment,
			TargetType:  audit.TargetTreatment,
			TargetID:    t.ID,
			Description: fmt.Sprintf("prescribed %s to patient %d", t.BrandName, patientID),
		})
	})
	if err != nil {
		return nil, err
	}
	return t, nil
}

// Update is allowed for the prescriber and for any physician treating the
// patient.
func (s *Service) Update(ctx context.Context, actor auth.Actor, patientID, id int64, in UpdateInput) (*Treatment, error) {
	var t *Treatment
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		var err error
		t, err = s.repo.Get(ctx, patientID, id)
		if err != nil {
			return err
		}
		if err := s.gate.Authorize(ctx, actor, patientID, access.Check{Op: access.OpUpdateTreatment, Target: id}); err != nil {
			return err
		}
		if err := in.apply(t); err != nil {
			return err
		}
		if err := s.repo.Update(ctx, t); err != nil {
			return err
		}
		return s.audit.Record(ctx, &audit.Entry{
			ActorID:     actor.UserID,
			Action:      audit.ActionUpdateTreatment,
			TargetType:  audit.TargetTreatment,
			TargetID:    id,
			Description: fmt.Sprintf("updated %s for patient %d", t.BrandName, patientID),
		})
	})
	if err != nil {
		return nil, err
	}
	return t, nil
}

// Delete is reserved to the prescriber.
func (s *Service) Delete(ctx context.Context, actor auth.Actor, patientID, id int64) error {
	return s.tx.InTx(ctx, func(ctx context.Context) error {
		t, err := s.repo.Get(ctx, patientID, id)
		if err != nil {
			return err
		}
		if err := s.gate.Authorize(ctx, actor, patientID, access.Check{Op: access.OpDeleteTreatment, Target: id}); err != nil {
			return err
		}
		if err := s.repo.Delete(ctx, patientID, id); err != nil {
			return err
		}
		return s.audit.Record(ctx, &audit.Entry{
			ActorID:     actor.UserID,
			Action:      audit.ActionDeleteTreatment,
			TargetType:  audit.TargetTreatment,
			TargetID:    id,
			Description: fmt.Sprintf("removed %s from patient %d", t.BrandName, patientID),
		})
	})
}

func (s *Service) requirePatient(ctx context.Context, id int64) error {
	ok, err := s.patients.Exists(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.NotFound("patient %d not found", id)
	}
	return nil
}
