// Package access decides whether a physician may mutate a patient's
// clinical data. Decisions are recomputed from the store on every call.
package access

import (
	"context"
	"fmt"

	"github.com/medplatform/dossier/internal/platform/apperr"
	"github.com/medplatform/dossier/internal/platform/auth"
	"github.com/medplatform/dossier/internal/platform/metrics"
)

type Operation string

const (
	OpUpdateProfile     Operation = "update-profile"
	OpAddHistory        Operation = "add-history"
	OpAddTreatment      Operation = "add-treatment"
	OpUpdateTreatment   Operation = "update-treatment"
	OpDeleteTreatment   Operation = "delete-treatment"
	OpAddNote           Operation = "add-note"
	OpUpdateNote        Operation = "update-note"
	OpDeleteNote        Operation = "delete-note"
	OpMutateMeasurement Operation = "mutate-measurement"
)

var operations = map[Operation]bool{
	OpUpdateProfile: true, OpAddHistory: true, OpAddTreatment: true,
	OpUpdateTreatment: true, OpDeleteTreatment: true, OpAddNote: true,
	OpUpdateNote: true, OpDeleteNote: true, OpMutateMeasurement: true,
}

func ParseOperation(s string) (Operation, error) {
	op := Operation(s)
	if !operations[op] {
		return "", apperr.Invalid("unknown operation %q", s)
	}
	return op, nil
}

// NeedsTarget reports whether op is decided against a specific treatment or
// note rather than the patient alone.
func (op Operation) NeedsTarget() bool {
	switch op {
	case OpUpdateTreatment, OpDeleteTreatment, OpUpdateNote, OpDeleteNote:
		return true
	}
	return false
}

// Check names the operation and, for treatment and note operations, the
// target record id.
type Check struct {
	Op     Operation
	Target int64
}

const (
	ReasonNoRelationship = "no relationship"
	ReasonNotPrescriber  = "not prescriber"
	ReasonNotAuthor      = "not author"
	ReasonNotPhysician   = "not a physician"
)

type Decision struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason,omitempty"`
}

func allow() Decision              { return Decision{Allowed: true} }
func deny(reason string) Decision { return Decision{Reason: reason} }

type Store interface {
	// HasEncounter reports whether any encounter links doctor and patient.
	HasEncounter(ctx context.Context, doctorID, patientID int64) (bool, error)
	// TreatmentPrescriber returns NotFound when the treatment does not
	// belong to the patient.
	TreatmentPrescriber(ctx context.Context, patientID, treatmentID int64) (int64, error)
	NoteAuthor(ctx context.Context, patientID, noteID int64) (int64, error)
}

type Gate struct {
	store   Store
	metrics *metrics.Metrics
}

func NewGate(store Store, m *metrics.Metrics) *Gate {
	return &Gate{store: store, metrics: m}
}

// CanMutate evaluates check for actor on patientID. A denial is a Decision,
// not an error; errors are reserved for unknown targets and store failures.
func (g *Gate) CanMutate(ctx context.Context, actor auth.Actor, patientID int64, check Check) (Decision, error) {
	d, err := g.decide(ctx, actor.DoctorID, patientID, check)
	if err != nil {
		return Decision{}, err
	}
	g.metrics.AccessDecision(string(check.Op), d.Allowed)
	return d, nil
}

// Authorize is CanMutate with a denial turned into a Forbidden error.
func (g *Gate) Authorize(ctx context.Context, actor auth.Actor, patientID int64, check Check) error {
	d, err := g.CanMutate(ctx, actor, patientID, check)
	if err != nil {
		return err
	}
	if !d.Allowed {
		return apperr.Forbidden("%s", d.Reason)
	}
	return nil
}

func (g *Gate) decide(ctx context.Context, doctorID, patientID int64, check Check) (Decision, error) {
	if !operations[check.Op] {
		return Decision{}, apperr.Invalid("unknown operation %q", check.Op)
	}
	if check.Op.NeedsTarget() && check.Target <= 0 {
		return Decision{}, apperr.Invalid("operation %s requires a target id", check.Op)
	}
	if doctorID <= 0 {
		return deny(ReasonNotPhysician), nil
	}

	switch check.Op {
	case OpDeleteTreatment:
		prescriber, err := g.store.TreatmentPrescriber(ctx, patientID, check.Target)
		if err != nil {
			return Decision{}, err
		}
		if prescriber != doctorID {
			return deny(ReasonNotPrescriber), nil
		}
		return allow(), nil

	case OpUpdateTreatment:
		prescriber, err := g.store.TreatmentPrescriber(ctx, patientID, check.Target)
		if err != nil {
			return Decision{}, err
		}
		if prescriber == doctorID {
			return allow(), nil
		}
		return g.relationship(ctx, doctorID, patientID)

	case OpUpdateNote, OpDeleteNote:
		author, err := g.store.NoteAuthor(ctx, patientID, check.Target)
		if err != nil {
			return Decision{}, err
		}
		if author != doctorID {
			return deny(ReasonNotAuthor), nil
		}
		return allow(), nil
	}

	return g.relationship(ctx, doctorID, patientID)
}

func (g *Gate) relationship(ctx context.Context, doctorID, patientID int64) (Decision, error) {
	ok, err := g.store.HasEncounter(ctx, doctorID, patientID)
	if err != nil {
		return Decision{}, fmt.Errorf("check encounter relationship: %w", err)
	}
	if !ok {
		return deny(ReasonNoRelationship), nil
	}
	return allow(), nil
}
