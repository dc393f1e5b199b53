package patient

import (
	"context"
	"fmt"
	"strings"

	"github.com/medplatform/dossier/internal/domain/access"
	"github.com/medplatform/dossier/internal/domain/audit"
	"github.com/medplatform/dossier/internal/platform/apperr"
	"github.com/medplatform/dossier/internal/platform/auth"
	"github.com/medplatform/dossier/internal/platform/db"
)

type Authorizer interface {
	Authorize(ctx context.Context, actor auth.Actor, patientID int64, check access.Check) error
}

type Service struct {
	repo  Repository
	gate  Authorizer
	tx    db.Transactor
	audit audit.Recorder
}

func NewService(repo Repository, gate Authorizer, tx db.Transactor, rec audit.Recorder) *Service {
	return &Service{repo: repo, gate: gate, tx: tx, audit: rec}
}

func (s *Service) Get(ctx context.Context, id int64) (*Patient, error) {
	return s.repo.GetByID(ctx, id)
}

// UpdateProfile applies a partial profile update for a treating physician.
// Email and national id must stay unique across patients.
func (s *Service) UpdateProfile(ctx context.Context, actor auth.Actor, id int64, u *ProfileUpdate) (*Patient, error) {
	if err := u.Validate(); err != nil {
		return nil, err
	}
	if u.Email != nil {
		email := strings.TrimSpace(*u.Email)
		u.Email = &email
	}

	var updated *Patient
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		p, err := s.repo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if err := s.gate.Authorize(ctx, actor, id, access.Check{Op: access.OpUpdateProfile}); err != nil {
			return err
		}

		if u.Email != nil {
			taken, err := s.repo.EmailTaken(ctx, *u.Email, id)
			if err != nil {
				return err
			}
			if taken {
				return apperr.Conflict("email is already used by another patient")
			}
		}
		if u.NationalID != nil && *u.NationalID != "" {
			taken, err := s.repo.NationalIDTaken(ctx, *u.NationalID, id)
			if err != nil {
				return err
			}
			if taken {
				return apperr.Conflict("national id is already used by another patient")
			}
		}

		if err := s.repo.Update(ctx, id, u); err != nil {
			return err
		}
		if err := s.audit.Record(ctx, &audit.Entry{
			ActorID:     actor.UserID,
			Action:      audit.ActionUpdateProfile,
			TargetType:  audit.TargetPatient,
			TargetID:    id,
			Description: fmt.Sprintf("updated profile of patient %s", p.FullName()),
		}); err != nil {
			return err
		}

		updated, err = s.repo.GetByID(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}
