// Package measurement records a patient's mass and stature over time and
// resolves the three reference shapes callers use to address them.
package measurement

import (
	"context"
	"time"

	"github.com/medplatform/dossier/internal/platform/apperr"
)

type Kind string

const (
	KindMass    Kind = "mass"
	KindStature Kind = "stature"
)

var kinds = []Kind{KindMass, KindStature}

func (k Kind) Unit() string {
	if k == KindMass {
		return "kg"
	}
	return "cm"
}

// Record is one stored value. At most one record exists per patient, kind
// and date.
type Record struct {
	ID         int64     `json:"id"`
	PatientID  int64     `json:"patient_id"`
	Kind       Kind      `json:"kind"`
	Value      float64   `json:"value"`
	Unit       string    `json:"unit"`
	Date       time.Time `json:"date"`
	Note       string    `json:"note"`
	RecordedBy int64     `json:"recorded_by"`
	CreatedAt  time.Time `json:"created_at"`
}

// Composite pairs the mass and stature records of one date.
type Composite struct {
	Reference string    `json:"id"`
	Date      time.Time `json:"date"`
	Mass      *float64  `json:"mass"`
	Stature   *float64  `json:"stature"`
	Note      string    `json:"note"`
}

// Input carries the values of an add or update request. A nil or zero value
// is absent.
type Input struct {
	Mass    *float64
	Stature *float64
	Date    *time.Time
	Note    *string
}

func (in Input) value(k Kind) (float64, bool) {
	v := in.Mass
	if k == KindStature {
		v = in.Stature
	}
	if v == nil || *v <= 0 {
		return 0, false
	}
	return *v, true
}

func (in Input) any() bool {
	_, m := in.value(KindMass)
	_, s := in.value(KindStature)
	return m || s
}

func (in Input) validate() error {
	if in.Mass != nil && *in.Mass < 0 {
		return apperr.Invalid("mass must not be negative")
	}
	if in.Stature != nil && *in.Stature < 0 {
		return apperr.Invalid("stature must not be negative")
	}
	return nil
}

func (in Input) note() string {
	if in.Note == nil {
		return ""
	}
	return *in.Note
}

type Repository interface {
	// ListByPatient returns records newest date first.
	ListByPatient(ctx context.Context, patientID int64) ([]*Record, error)
	Get(ctx context.Context, patientID, id int64) (*Record, error)
	// FindForDate returns nil when no record of kind exists on date.
	FindForDate(ctx context.Context, patientID int64, kind Kind, date time.Time) (*Record, error)
	Insert(ctx context.Context, r *Record) error
	Update(ctx context.Context, r *Record) error
	Delete(ctx context.Context, patientID, id int64) error
	// DeleteByDate returns the ids it removed.
	DeleteByDate(ctx context.Context, patientID int64, date time.Time) ([]int64, error)
}

// Group folds records into one Composite per date, keeping the input order
// of dates.
func Group(records []*Record) []*Composite {
	var out []*Composite
	byDate := map[string]*Composite{}
	refs := map[string]*Compound{}
	for _, r := range records {
		key := r.Date.Format(dateLayout)
		c, ok := byDate[key]
		if !ok {
			c = &Composite{Date: r.Date}
			byDate[key] = c
			refs[key] = &Compound{}
			out = append(out, c)
		}
		v := r.Value
		switch r.Kind {
		case KindMass:
			if c.Mass != nil {
				continue
			}
			c.Mass = &v
			refs[key].MassID = r.ID
			if r.Note != "" {
				c.Note = r.Note
			}
		case KindStature:
			if c.Stature != nil {
				continue
			}
			c.Stature = &v
			refs[key].StatureID = r.ID
			if c.Note == "" {
				c.Note = r.Note
			}
		}
	}
	for key, c := range byDate {
		c.Reference = refs[key].String()
	}
	return out
}
