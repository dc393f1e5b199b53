// Package note manages physicians' free-text notes on a patient. Notes can
// only be changed by their author.
package note

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

const DefaultCategory = "general"

type Note struct {
	ID         int64     `json:"id"`
	PatientID  int64     `json:"patient_id"`
	AuthorID   int64     `json:"author_id"`
	AuthorName string    `json:"author_name,omitempty"`
	Content    string    `json:"content"`
	Important  bool      `json:"important"`
	Category   string    `json:"category"`
	NoteDate   time.Time `json:"note_date"`
	CreatedAt  time.Time `json:"created_at"`
}

type Input struct {
	Content   string
	Important bool
	Category  string
	Date      *time.Time
}

type UpdateInput struct {
	Content   *string
	Important *bool
	Category  *string
	Date      *time.Time
}

type Repository interface {
	Get(ctx context.Context, patientID, id int64) (*Note, error)
	Insert(ctx context.Context, n *Note) error
	Update(ctx context.Context, n *Note) error
	Delete(ctx context.Context, patientID, id int64) error
	ListByPatient(ctx context.Context, patientID int64, limit int) ([]*Note, error)
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
	now      func() time.Time
}

func NewService(repo Repository, patients PatientChecker, gate Authorizer, tx db.Transactor, rec audit.Recorder) *Service {
	return &Service{repo: repo, patients: patients, gate: gate, tx: tx, audit: rec, now: time.Now}
}

func (s *Service) List(ctx context.Context, patientID int64, limit int) ([]*Note, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if err := s.requirePatient(ctx, patientID); err != nil {
		return nil, err
	}
	return s.repo.ListByPatient(ctx, patientID, limit)
}

func (s *Service) Add(ctx context.Context, actor auth.Actor, patientID int64, in Input) (*Note, error) {
	content := strings.TrimSpace(in.Content)
	if content == "" {
		return nil, apperr.Invalid("content is required")
	}
	n := &Note{
		PatientID: patientID,
		AuthorID:  actor.DoctorID,
		Content:   content,
		Important: in.Important,
		Category:  strings.TrimSpace(in.Category),
	}
	if n.Category == "" {
		n.Category = DefaultCategory
	}
	if in.Date != nil {
		n.NoteDate = *in.Date
	} else {
		n.NoteDate = today(s.now())
	}

	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		if err := s.requirePatient(ctx, patientID); err != nil {
			return err
		}
		if err := s.gate.Authorize(ctx, actor, patientID, access.Check{Op: access.OpAddNote}); err != nil {
			return err
		}
		if err := s.repo.Insert(ctx, n); err != nil {
			return err
		}
		return s.audit.Record(ctx, &audit.Entry{
			ActorID:     actor.UserID,
			Action:      audit.ActionAddNote,
			TargetType:  audit.TargetNote,
			TargetID:    n.ID,
			Description: fmt.Sprintf("added %s note for patient %d", n.Category, patientID),
		})
	})
	if err != nil {
		return nil, err
	}
	return n, nil
}

func (s *Service) Update(ctx context.Context, actor auth.Actor, patientID, id int64, in UpdateInput) (*Note, error) {
	if in.Content != nil && strings.TrimSpace(*in.Content) == "" {
		return nil, apperr.Invalid("content must not be empty")
	}

	var n *Note
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		var err error
		n, err = s.repo.Get(ctx, patientID, id)
		if err != nil {
			return err
		}
		if err := s.gate.Authorize(ctx, actor, patientID, access.Check{Op: access.OpUpdateNote, Target: id}); err != nil {
			return err
		}
		if in.Content != nil {
			n.Content = strings.TrimSpace(*in.Content)
		}
		if in.Important != nil {
			n.Important = *in.Important
		}
		if in.Category != nil {
			n.Category = strings.TrimSpace(*in.Category)
			if n.Category == "" {
				n.Category = DefaultCategory
			}
		}
		if in.Date != nil {
			n.NoteDate = *in.Date
		}
		if err := s.repo.Update(ctx, n); err != nil {
			return err
		}
		return s.audit.Record(ctx, &audit.Entry{
			ActorID:     actor.UserID,
			Action:      audit.ActionUpdateNote,
			TargetType:  audit.TargetNote,
			TargetID:    id,
			Description: fmt.Sprintf("updated note %d for patient %d", id, patientID),
		})
	})
	if err != nil {
		return nil, err
	}
	return n, nil
}

func (s *Service) Delete(ctx context.Context, actor auth.Actor, patientID, id int64) error {
	return s.tx.InTx(ctx, func(ctx context.Context) error {
		if _, err := s.repo.Get(ctx, patientID, id); err != nil {
			return err
		}
		if err := s.gate.Authorize(ctx, actor, patientID, access.Check{Op: access.OpDeleteNote, Target: id}); err != nil {
			return err
		}
		if err := s.repo.Delete(ctx, patientID, id); err != nil {
			return err
		}
		return s.audit.Record(ctx, &audit.Entry{
			ActorID:     actor.UserID,
			Action:      audit.ActionDeleteNote,
			TargetType:  audit.TargetNote,
			TargetID:    id,
			Description: fmt.Sprintf("deleted note %d for patient %d", id, patientID),
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

func today(now time.Time) time.Time {
	y, m, d := now.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
