// Package audit appends who-did-what entries for dossier views and clinical
// mutations and mirrors them to a Redis stream once they are committed.
package audit

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/medplatform/dossier/internal/platform/db"
	"github.com/medplatform/dossier/internal/platform/metrics"
)

type Action string

const (
	ActionViewDossier       Action = "VIEW_DOSSIER"
	ActionUpdateProfile     Action = "UPDATE_PATIENT_PROFILE"
	ActionAddHistory        Action = "ADD_MEDICAL_HISTORY"
	ActionAddTreatment      Action = "ADD_TREATMENT"
	ActionUpdateTreatment   Action = "UPDATE_TREATMENT"
	ActionDeleteTreatment   Action = "DELETE_TREATMENT"
	ActionAddNote           Action = "ADD_PATIENT_NOTE"
	ActionUpdateNote        Action = "UPDATE_PATIENT_NOTE"
	ActionDeleteNote        Action = "DELETE_PATIENT_NOTE"
	ActionAddMeasurement    Action = "ADD_MEASUREMENT"
	ActionUpdateMeasurement Action = "UPDATE_MEASUREMENT"
	ActionDeleteMeasurement Action = "DELETE_MEASUREMENT"
)

// Target entity types recorded on entries.
const (
	TargetPatient     = "patients"
	TargetHistory     = "medical_history"
	TargetTreatment   = "treatments"
	TargetNote        = "patient_notes"
	TargetMeasurement = "patient_measurements"
)

type Entry struct {
	ID          int64     `json:"id"`
	ActorID     int64     `json:"actor_id"`
	Action      Action    `json:"action"`
	TargetType  string    `json:"target_type"`
	TargetID    int64     `json:"target_id"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

// Recorder is what services depend on to leave an audit entry.
type Recorder interface {
	Record(ctx context.Context, e *Entry) error
}

type Repository interface {
	Append(ctx context.Context, e *Entry) error
	ListByTarget(ctx context.Context, targetType string, targetID int64, limit int) ([]*Entry, error)
}

type Publisher interface {
	PublishJSON(ctx context.Context, data any) (string, error)
}

type Trail struct {
	repo    Repository
	pub     Publisher
	metrics *metrics.Metrics
	logger  zerolog.Logger
}

// NewTrail builds a Trail. pub may be nil, in which case entries are only
// stored.
func NewTrail(repo Repository, pub Publisher, m *metrics.Metrics, logger zerolog.Logger) *Trail {
	return &Trail{repo: repo, pub: pub, metrics: m, logger: logger}
}

// Record appends e using the transaction in ctx, if any. The stream copy is
// published after commit and its failure is only logged.
func (t *Trail) Record(ctx context.Context, e *Entry) error {
	if e.Action == "" {
		return errors.New("audit entry requires an action")
	}
	if e.ActorID <= 0 {
		return errors.New("audit entry requires an actor")
	}
	if err := t.repo.Append(ctx, e); err != nil {
		return err
	}
	t.metrics.AuditEntry(string(e.Action))

	if t.pub != nil {
		entry := *e
		db.AfterCommit(ctx, func(ctx context.Context) {
			if _, err := t.pub.PublishJSON(ctx, entry); err != nil {
				t.metrics.AuditPublishFailed()
				t.logger.Warn().Err(err).
					Int64("audit_id", entry.ID).
					Str("action", string(entry.Action)).
					Msg("audit stream publish failed")
			}
		})
	}
	return nil
}

func (t *Trail) ListByTarget(ctx context.Context, targetType string, targetID int64, limit int) ([]*Entry, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return t.repo.ListByTarget(ctx, targetType, targetID, limit)
}
