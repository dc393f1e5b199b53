// Package dossier assembles a patient's full clinical record in one read.
package dossier

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/medplatform/dossier/internal/domain/audit"
	"github.com/medplatform/dossier/internal/domain/history"
	"github.com/medplatform/dossier/internal/domain/note"
	"github.com/medplatform/dossier/internal/domain/patient"
	"github.com/medplatform/dossier/internal/domain/treatment"
	"github.com/medplatform/dossier/internal/platform/apperr"
	"github.com/medplatform/dossier/internal/platform/auth"
	"github.com/medplatform/dossier/internal/platform/metrics"
)

const (
	consultationLimit = 20
	vitalSignLimit    = 10
	encounterLimit    = 15
	noteLimit         = 10
	labResultLimit    = 20
	imagingLimit      = 10
	documentLimit     = 15
)

// Reader serves the read-only projections owned by this package.
type Reader interface {
	Allergies(ctx context.Context, patientID int64) ([]*Allergy, error)
	Consultations(ctx context.Context, patientID int64, limit int) ([]*Consultation, error)
	VitalSigns(ctx context.Context, patientID int64, limit int) ([]*VitalSign, error)
	Encounters(ctx context.Context, patientID int64, limit int) ([]*Encounter, error)
	EncounterStats(ctx context.Context, patientID int64, since time.Time) (*EncounterStats, error)
	LabResults(ctx context.Context, patientID int64, limit int) ([]*LabResult, error)
	ImagingResults(ctx context.Context, patientID int64, limit int) ([]*ImagingResult, error)
	Documents(ctx context.Context, patientID int64, limit int) ([]*Document, error)
}

type PatientFinder interface {
	GetByID(ctx context.Context, id int64) (*patient.Patient, error)
}

type HistoryLister interface {
	ListByPatient(ctx context.Context, patientID int64) ([]*history.Entry, error)
}

type TreatmentLister interface {
	ListActiveByPatient(ctx context.Context, patientID int64, endedSince time.Time) ([]*treatment.Treatment, error)
}

type NoteLister interface {
	ListByPatient(ctx context.Context, patientID int64, limit int) ([]*note.Note, error)
}

// Sources are the stores the engine reads from.
type Sources struct {
	Patients   PatientFinder
	History    HistoryLister
	Treatments TreatmentLister
	Notes      NoteLister
	Records    Reader
}

type Engine struct {
	src     Sources
	audit   audit.Recorder
	metrics *metrics.Metrics
	timeout time.Duration
	now     func() time.Time
}

// NewEngine returns an engine. A positive timeout bounds the concurrent
// reads of one dossier.
func NewEngine(src Sources, rec audit.Recorder, m *metrics.Metrics, timeout time.Duration) *Engine {
	return &Engine{src: src, audit: rec, metrics: m, timeout: timeout, now: time.Now}
}

// GetDossier returns the snapshot of a patient and records the view. A
// missing patient fails before any other read; any failed read fails the
// whole call and nothing is recorded.
func (e *Engine) GetDossier(ctx context.Context, patientID int64, actor auth.Actor) (*Snapshot, error) {
	snap, fanout, err := e.aggregate(ctx, patientID)
	if err == nil {
		err = e.audit.Record(ctx, &audit.Entry{
			ActorID:     actor.UserID,
			Action:      audit.ActionViewDossier,
			TargetType:  audit.TargetPatient,
			TargetID:    patientID,
			Description: fmt.Sprintf("viewed dossier of %s", snap.Patient.FullName()),
		})
	}
	e.metrics.ObserveDossier(outcome(err), fanout)
	if err != nil {
		return nil, err
	}
	return snap, nil
}

func (e *Engine) aggregate(ctx context.Context, patientID int64) (*Snapshot, time.Duration, error) {
	p, err := e.src.Patients.GetByID(ctx, patientID)
	if err != nil {
		return nil, 0, err
	}

	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	now := e.now()
	snap := &Snapshot{Patient: p}
	var stats *EncounterStats
	rec := e.src.Records

	start := time.Now()
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		snap.Allergies, err = rec.Allergies(gctx, patientID)
		return readErr("allergies", err)
	})
	g.Go(func() (err error) {
		snap.History, err = e.src.History.ListByPatient(gctx, patientID)
		return readErr("history", err)
	})
	g.Go(func() (err error) {
		snap.Treatments, err = e.src.Treatments.ListActiveByPatient(gctx, patientID, treatment.ActiveCutoff(now))
		return readErr("treatments", err)
	})
	g.Go(func() (err error) {
		snap.Consultations, err = rec.Consultations(gctx, patientID, consultationLimit)
		return readErr("consultations", err)
	})
	g.Go(func() (err error) {
		snap.VitalSigns, err = rec.VitalSigns(gctx, patientID, vitalSignLimit)
		return readErr("vital signs", err)
	})
	g.Go(func() (err error) {
		snap.Encounters, err = rec.Encounters(gctx, patientID, encounterLimit)
		return readErr("encounters", err)
	})
	g.Go(func() (err error) {
		stats, err = rec.EncounterStats(gctx, patientID, now.AddDate(-1, 0, 0))
		return readErr("encounter stats", err)
	})
	g.Go(func() (err error) {
		snap.Notes, err = e.src.Notes.ListByPatient(gctx, patientID, noteLimit)
		return readErr("notes", err)
	})
	g.Go(func() (err error) {
		snap.LabResults, err = rec.LabResults(gctx, patientID, labResultLimit)
		return readErr("lab results", err)
	})
	g.Go(func() (err error) {
		snap.Imaging, err = rec.ImagingResults(gctx, patientID, imagingLimit)
		return readErr("imaging", err)
	})
	g.Go(func() (err error) {
		snap.Documents, err = rec.Documents(gctx, patientID, documentLimit)
		return readErr("documents", err)
	})
	err = g.Wait()
	fanout := time.Since(start)
	if err != nil {
		return nil, fanout, err
	}

	fillEmpty(snap)
	snap.Summary = summarize(snap, stats)
	return snap, fanout, nil
}

func summarize(s *Snapshot, stats *EncounterStats) Summary {
	sum := Summary{
		TotalConsultations: len(s.Consultations),
		TotalTreatments:    len(s.Treatments),
		TotalAllergies:     len(s.Allergies),
	}
	if stats != nil {
		sum.Encounters = *stats
	}
	for _, c := range s.Consultations {
		if sum.LastConsultationDate == nil || c.Date.After(*sum.LastConsultationDate) {
			d := c.Date
			sum.LastConsultationDate = &d
		}
	}
	for _, a := range s.Allergies {
		if a.Alerting() {
			sum.HasActiveAlerts = true
			break
		}
	}
	return sum
}

func readErr(what string, err error) error {
	if err != nil {
		return fmt.Errorf("read %s: %w", what, err)
	}
	return nil
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, apperr.ErrNotFound):
		return "not_found"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	default:
		return "error"
	}
}

func fillEmpty(s *Snapshot) {
	s.Allergies = orEmpty(s.Allergies)
	s.History = orEmpty(s.History)
	s.Treatments = orEmpty(s.Treatments)
	s.Consultations = orEmpty(s.Consultations)
	s.VitalSigns = orEmpty(s.VitalSigns)
	s.Encounters = orEmpty(s.Encounters)
	s.Notes = orEmpty(s.Notes)
	s.LabResults = orEmpty(s.LabResults)
	s.Imaging = orEmpty(s.Imaging)
	s.Documents = orEmpty(s.Documents)
}

func orEmpty[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
