package measurement

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/medplatform/dossier/internal/domain/access"
	"github.com/medplatform/dossier/internal/domain/audit"
	"github.com/medplatform/dossier/internal/platform/apperr"
	"github.com/medplatform/dossier/internal/platform/auth"
	"github.com/medplatform/dossier/internal/platform/db"
	"github.com/medplatform/dossier/internal/platform/metrics"
)

// Patients is the slice of the patient store the resolver needs.
type Patients interface {
	Exists(ctx context.Context, id int64) (bool, error)
	UpdateBaseline(ctx context.Context, id int64, weightKG, heightCM *float64) error
}

type Authorizer interface {
	Authorize(ctx context.Context, actor auth.Actor, patientID int64, check access.Check) error
}

type Service struct {
	repo     Repository
	patients Patients
	gate     Authorizer
	tx       db.Transactor
	audit    audit.Recorder
	metrics  *metrics.Metrics
	now      func() time.Time
}

func NewService(repo Repository, patients Patients, gate Authorizer, tx db.Transactor, rec audit.Recorder, m *metrics.Metrics) *Service {
	return &Service{repo: repo, patients: patients, gate: gate, tx: tx, audit: rec, metrics: m, now: time.Now}
}

func (s *Service) List(ctx context.Context, patientID int64) ([]*Composite, error) {
	if err := s.requirePatient(ctx, patientID); err != nil {
		return nil, err
	}
	records, err := s.repo.ListByPatient(ctx, patientID)
	if err != nil {
		return nil, err
	}
	return Group(records), nil
}

// Add records each supplied kind on the given date (today by default) and
// overwrites the patient's baseline with the supplied values. A kind already
// recorded on that date is a Conflict.
func (s *Service) Add(ctx context.Context, actor auth.Actor, patientID int64, in Input) ([]*Record, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	if !in.any() {
		return nil, apperr.Invalid("mass or stature is required")
	}
	date := s.today()
	if in.Date != nil {
		date = day(*in.Date)
	}

	var created []*Record
	err := s.mutate(ctx, actor, patientID, func(ctx context.Context) (*audit.Entry, error) {
		var names []string
		for _, k := range kinds {
			v, ok := in.value(k)
			if !ok {
				continue
			}
			existing, err := s.repo.FindForDate(ctx, patientID, k, date)
			if err != nil {
				return nil, err
			}
			if existing != nil {
				return nil, apperr.Conflict("%s already recorded on %s", k, date.Format(dateLayout))
			}
			r, err := s.insert(ctx, actor, patientID, k, v, date, in.note())
			if err != nil {
				return nil, err
			}
			created = append(created, r)
			names = append(names, string(k))
		}

		var mass, stature *float64
		if v, ok := in.value(KindMass); ok {
			mass = &v
		}
		if v, ok := in.value(KindStature); ok {
			stature = &v
		}
		if err := s.patients.UpdateBaseline(ctx, patientID, mass, stature); err != nil {
			return nil, err
		}

		return &audit.Entry{
			Action:   audit.ActionAddMeasurement,
			TargetID: created[0].ID,
			Description: fmt.Sprintf("recorded %s for patient %d on %s",
				strings.Join(names, " and "), patientID, date.Format(dateLayout)),
		}, nil
	})
	if err != nil {
		return nil, err
	}
	s.metrics.MeasurementMutation("add", "new")
	return created, nil
}

// Update dispatches on the reference shape. Direct updates one record whose
// kind must match the supplied value. Compound updates named halves, deletes
// named halves whose value is cleared and creates the missing half. Legacy
// deletes every record of the date and inserts the supplied kinds.
func (s *Service) Update(ctx context.Context, actor auth.Actor, patientID int64, ref Reference, in Input) error {
	if err := in.validate(); err != nil {
		return err
	}
	if ref.Scheme() != SchemeCompound && !in.any() {
		return apperr.Invalid("mass or stature is required")
	}

	err := s.mutate(ctx, actor, patientID, func(ctx context.Context) (*audit.Entry, error) {
		var target int64
		var err error
		switch r := ref.(type) {
		case Direct:
			target, err = s.updateDirect(ctx, patientID, r, in)
		case Compound:
			target, err = s.updateCompound(ctx, actor, patientID, r, in)
		case LegacyDate:
			target, err = s.replaceDate(ctx, actor, patientID, r, in)
		default:
			err = apperr.Invalid("unsupported measurement reference %q", ref)
		}
		if err != nil {
			return nil, err
		}
		return &audit.Entry{
			Action:      audit.ActionUpdateMeasurement,
			TargetID:    target,
			Description: fmt.Sprintf("updated measurement %s for patient %d", ref, patientID),
		}, nil
	})
	if err != nil {
		return err
	}
	s.metrics.MeasurementMutation("update", string(ref.Scheme()))
	return nil
}

func (s *Service) updateDirect(ctx context.Context, patientID int64, ref Direct, in Input) (int64, error) {
	rec, err := s.repo.Get(ctx, patientID, ref.ID)
	if err != nil {
		return 0, err
	}
	v, ok := in.value(rec.Kind)
	if !ok {
		return 0, apperr.Invalid("measurement %d is a %s record, a %s value is required", rec.ID, rec.Kind, rec.Kind)
	}
	rec.Value = v
	if in.Date != nil {
		rec.Date = day(*in.Date)
	}
	if in.Note != nil {
		rec.Note = *in.Note
	}
	return rec.ID, s.repo.Update(ctx, rec)
}

func (s *Service) updateCompound(ctx context.Context, actor auth.Actor, patientID int64, ref Compound, in Input) (int64, error) {
	named, err := s.resolveCompound(ctx, patientID, ref)
	if err != nil {
		return 0, err
	}

	date := s.today()
	switch {
	case in.Date != nil:
		date = day(*in.Date)
	case named[KindMass] != nil:
		date = named[KindMass].Date
	case named[KindStature] != nil:
		date = named[KindStature].Date
	}

	var target int64
	touch := func(id int64) {
		if target == 0 {
			target = id
		}
	}
	for _, k := range kinds {
		v, ok := in.value(k)
		rec := named[k]
		switch {
		case ref.IDFor(k) != 0 && rec == nil:
			// named but already gone
		case rec != nil && ok:
			rec.Value, rec.Date = v, date
			if in.Note != nil {
				rec.Note = *in.Note
			}
			if err := s.repo.Update(ctx, rec); err != nil {
				return 0, err
			}
			touch(rec.ID)
		case rec != nil:
			if err := s.repo.Delete(ctx, patientID, rec.ID); err != nil {
				return 0, err
			}
			touch(rec.ID)
		case ok:
			existing, err := s.repo.FindForDate(ctx, patientID, k, date)
			if err != nil {
				return 0, err
			}
			if existing != nil {
				existing.Value = v
				if in.Note != nil {
					existing.Note = *in.Note
				}
				if err := s.repo.Update(ctx, existing); err != nil {
					return 0, err
				}
				touch(existing.ID)
				continue
			}
			r, err := s.insert(ctx, actor, patientID, k, v, date, in.note())
			if err != nil {
				return 0, err
			}
			touch(r.ID)
		}
	}
	if target == 0 {
		return 0, apperr.NotFound("measurement %s not found", ref)
	}
	return target, nil
}

func (s *Service) replaceDate(ctx context.Context, actor auth.Actor, patientID int64, ref LegacyDate, in Input) (int64, error) {
	if _, err := s.repo.DeleteByDate(ctx, patientID, ref.Date); err != nil {
		return 0, err
	}
	date := ref.Date
	if in.Date != nil {
		date = day(*in.Date)
	}
	var target int64
	for _, k := range kinds {
		v, ok := in.value(k)
		if !ok {
			continue
		}
		r, err := s.insert(ctx, actor, patientID, k, v, date, in.note())
		if err != nil {
			return 0, err
		}
		if target == 0 {
			target = r.ID
		}
	}
	return target, nil
}

// Delete removes what ref names. A compound reference skips halves that are
// already gone and fails with NotFound only when none of them exists.
func (s *Service) Delete(ctx context.Context, actor auth.Actor, patientID int64, ref Reference) error {
	err := s.mutate(ctx, actor, patientID, func(ctx context.Context) (*audit.Entry, error) {
		var target int64
		switch r := ref.(type) {
		case Direct:
			if _, err := s.repo.Get(ctx, patientID, r.ID); err != nil {
				return nil, err
			}
			if err := s.repo.Delete(ctx, patientID, r.ID); err != nil {
				return nil, err
			}
			target = r.ID
		case Compound:
			named, err := s.resolveCompound(ctx, patientID, r)
			if err != nil {
				return nil, err
			}
			for _, k := range kinds {
				rec := named[k]
				if rec == nil {
					continue
				}
				if err := s.repo.Delete(ctx, patientID, rec.ID); err != nil {
					return nil, err
				}
				if target == 0 {
					target = rec.ID
				}
			}
			if target == 0 {
				return nil, apperr.NotFound("measurement %s not found", ref)
			}
		case LegacyDate:
			ids, err := s.repo.DeleteByDate(ctx, patientID, r.Date)
			if err != nil {
				return nil, err
			}
			if len(ids) == 0 {
				return nil, apperr.NotFound("no measurements on %s", r.Date.Format(dateLayout))
			}
			target = ids[0]
		default:
			return nil, apperr.Invalid("unsupported measurement reference %q", ref)
		}
		return &audit.Entry{
			Action:      audit.ActionDeleteMeasurement,
			TargetID:    target,
			Description: fmt.Sprintf("deleted measurement %s for patient %d", ref, patientID),
		}, nil
	})
	if err != nil {
		return err
	}
	s.metrics.MeasurementMutation("delete", string(ref.Scheme()))
	return nil
}

// resolveCompound loads the records a compound reference names. Absent ids
// are left out; an id naming a record of the other kind is rejected.
func (s *Service) resolveCompound(ctx context.Context, patientID int64, ref Compound) (map[Kind]*Record, error) {
	named := make(map[Kind]*Record, 2)
	for _, k := range kinds {
		id := ref.IDFor(k)
		if id == 0 {
			continue
		}
		rec, err := s.repo.Get(ctx, patientID, id)
		if errors.Is(err, apperr.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if rec.Kind != k {
			return nil, apperr.Invalid("measurement %d is a %s record", id, rec.Kind)
		}
		named[k] = rec
	}
	return named, nil
}

func (s *Service) insert(ctx context.Context, actor auth.Actor, patientID int64, k Kind, v float64, date time.Time, note string) (*Record, error) {
	r := &Record{
		PatientID:  patientID,
		Kind:       k,
		Value:      v,
		Unit:       k.Unit(),
		Date:       date,
		Note:       note,
		RecordedBy: actor.DoctorID,
	}
	if err := s.repo.Insert(ctx, r); err != nil {
		return nil, err
	}
	return r, nil
}

// mutate runs fn in a transaction after the patient and gate checks and
// appends the returned audit entry in the same transaction.
func (s *Service) mutate(ctx context.Context, actor auth.Actor, patientID int64, fn func(context.Context) (*audit.Entry, error)) error {
	return s.tx.InTx(ctx, func(ctx context.Context) error {
		if err := s.requirePatient(ctx, patientID); err != nil {
			return err
		}
		if err := s.gate.Authorize(ctx, actor, patientID, access.Check{Op: access.OpMutateMeasurement}); err != nil {
			return err
		}
		entry, err := fn(ctx)
		if err != nil {
			return err
		}
		entry.ActorID = actor.UserID
		entry.TargetType = audit.TargetMeasurement
		return s.audit.Record(ctx, entry)
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

func (s *Service) today() time.Time { return day(s.now()) }

func day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
