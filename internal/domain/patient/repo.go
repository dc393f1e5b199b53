package patient

import "context"

type Repository interface {
	GetByID(ctx context.Context, id int64) (*Patient, error)
	Exists(ctx context.Context, id int64) (bool, error)
	Update(ctx context.Context, id int64, u *ProfileUpdate) error
	EmailTaken(ctx context.Context, email string, excludeID int64) (bool, error)
	NationalIDTaken(ctx context.Context, nationalID string, excludeID int64) (bool, error)
	// UpdateBaseline overwrites the non-nil baseline values.
	UpdateBaseline(ctx context.Context, id int64, weightKG, heightCM *float64) error
}
