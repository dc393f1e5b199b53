package treatment

import (
	"context"
	"time"
)

type Repository interface {
	Get(ctx context.Context, patientID, id int64) (*Treatment, error)
	Insert(ctx context.Context, t *Treatment) error
	Update(ctx context.Context, t *Treatment) error
	Delete(ctx context.Context, patientID, id int64) error
	// ListActiveByPatient returns treatments that are permanent, open ended
	// or ended on or after endedSince, most recently prescribed first.
	ListActiveByPatient(ctx context.Context, patientID int64, endedSince time.Time) ([]*Treatment, error)
}
