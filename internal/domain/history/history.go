// Package history records medical, surgical and family history entries.
package history

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

type Kind string

const (
	KindMedical  Kind = "medical"
	KindSurgical Kind = "surgical"
	KindFamily   Kind = "family"
)

func (k Kind) Valid() bool {
	return k == KindMedical || k == KindSurgical || k == KindFamily
}

type Entry struct {
	ID          int64      `json:"id"`
	PatientID   int64      `json:"patient_id"`
	Kind        Kind       `json:"kind"`
	Description string     `json:"description"`
	StartDate   *time.Time `json:"start_date,omitempty"`
	EndDate     *time.Time `json:"end_date,omitempty"`
	Chronic     bool       `json:"chronic"`
	RecordedBy  int64      `json:"recorded_by"`
	RecordedAt  time.Time  `json:"recorded_at"`
}

type Input struct {
	Kind        Kind
	Description string
	StartDate   *time.Time
	EndDate     *time.Time
	Chronic     bool
}

func (in *Input) Validate() error {
	if in.Kind == "" || strings.TrimSpace(in.Description) == "" {
		return apperr.Invalid("kind and description are required")
	}
	if !in.Kind.Valid() {
		return apperr.Invalid("kind must be one of medical, surgical, family")
	}
	if in.StartDate != nil && in.EndDate != nil && in.EndDate.Before(*in.StartDate) {
		return apperr.Invalid("end_date must not be before start_date")
	}
	return nil
}

type Repository interface {
	Insert(ctx context.Context, e *Entry) error
	ListByPatient(ctx context.Context, patientID int64) ([]*Entry, error)
}

type PatientChecker interface {
	Exists(ctx context.Context, id int64) (bool, error)
}

type Authorizer interface {
	Authorize(ctx context.Context, actor auth.Actor, patientID int64, check access.Check) error
}

type Service struct {
	repo     Repository
	patients PatientChecker
	gate     Authorizer
	tx       db.Transactor
	audit    audit.Recorder
}

func NewService(repo Repository, patients PatientChecker, gate Authorizer, tx db.Transactor, rec audit.Recorder) *Service {
	return &Service{repo: repo, patients: patients, gate: gate, tx: tx, audit: rec}
}

func (s *Service) List(ctx context.Context, patientID int64) ([]*Entry, error) {
	if err := s.requirePatient(ctx, patientID); err != nil {
		return nil, err
	}
	return s.repo.ListByPatient(ctx, patientID)
}

func (s *Service) Add(ctx context.Context, actor auth.Actor, patientID int64, in Input) (*Entry, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	e := &Entry{
		PatientID:   patientID,
		Kind:        in.Kind,
		Description: strings.TrimSpace(in.Description),
		StartDate:   in.StartDate,
		EndDate:     in.EndDate,
		Chronic:     in.Chronic,
		RecordedBy:  actor.DoctorID,
	}
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		if err := s.requirePatient(ctx, patientID); err != nil {
			return err
		}
		if err := s.gate.Authorize(ctx, actor, patientID, access.Check{Op: access.OpAddHistory}); err != nil {
			return err
		}
		if err := s.repo.Insert(ctx, e); err != nil {
			return err
		}
		return s.audit.Record(ctx, &audit.Entry{
			ActorID:     actor.UserID,
			Action:      audit.ActionAddHistory,
			TargetType:  audit.TargetHistory,
			TargetID:    e.ID,
			Description: fmt.Sprintf("added %s history entry for patient %d", e.Kind, patientID),
		})
	})
	if err != nil {
		return nil, err
	}
	return e, nil
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
