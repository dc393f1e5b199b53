package note

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medplatform/dossier/internal/domain/access"
	"github.com/medplatform/dossier/internal/domain/audit"
	"github.com/medplatform/dossier/internal/platform/apperr"
	"github.com/medplatform/dossier/internal/platform/auth"
)

type memRepo struct {
	rows   map[int64]*Note
	nextID int64
}

func (m *memRepo) Get(_ context.Context, patientID, id int64) (*Note, error) {
	n, ok := m.rows[id]
	if !ok || n.PatientID != patientID {
		return nil, apperr.NotFound("note %d not found", id)
	}
	cp := *n
	return &cp, nil
}

func (m *memRepo) Insert(_ context.Context, n *Note) error {
	m.nextID++
	n.ID = m.nextID
	n.CreatedAt = time.Now()
	cp := *n
	m.rows[n.ID] = &cp
	return nil
}

func (m *memRepo) Update(_ context.Context, n *Note) error {
	cp := *n
	m.rows[n.ID] = &cp
	return nil
}

func (m *memRepo) Delete(_ context.Context, _, id int64) error {
	delete(m.rows, id)
	return nil
}

func (m *memRepo) ListByPatient(_ context.Context, patientID int64, limit int) ([]*Note, error) {
	var out []*Note
	for _, n := range m.rows {
		if n.PatientID == patientID && len(out) < limit {
			out = append(out, n)
		}
	}
	return out, nil
}

type accessStore struct{ repo *memRepo }

func (accessStore) HasEncounter(_ context.Context, doctorID, patientID int64) (bool, error) {
	return doctorID != stranger.DoctorID, nil
}

func (accessStore) TreatmentPrescriber(context.Context, int64, int64) (int64, error) {
	return 0, apperr.NotFound("no treatments here")
}

func (s accessStore) NoteAuthor(ctx context.Context, patientID, id int64) (int64, error) {
	n, err := s.repo.Get(ctx, patientID, id)
	if err != nil {
		return 0, err
	}
	return n.AuthorID, nil
}

type patients map[int64]bool

func (p patients) Exists(_ context.Context, id int64) (bool, error) { return p[id], nil }

type passTx struct{}

func (passTx) InTx(ctx context.Context, fn func(context.Context) error) error { return fn(ctx) }

type memAudit struct{ entries []*audit.Entry }

func (a *memAudit) Record(_ context.Context, e *audit.Entry) error {
	a.entries = append(a.entries, e)
	return nil
}

const patientID int64 = 4

var (
	author    = auth.Actor{UserID: 11, DoctorID: 1, Roles: []string{"physician"}}
	colleague = auth.Actor{UserID: 12, DoctorID: 2, Roles: []string{"physician"}}
	stranger  = auth.Actor{UserID: 13, DoctorID: 3, Roles: []string{"physician"}}
)

func newService() (*Service, *memRepo, *memAudit) {
	repo := &memRepo{rows: map[int64]*Note{}}
	rec := &memAudit{}
	svc := NewService(repo, patients{patientID: true}, access.NewGate(accessStore{repo: repo}, nil), passTx{}, rec)
	svc.now = func() time.Time { return time.Date(2026, 10, 15, 14, 30, 0, 0, time.UTC) }
	return svc, repo, rec
}

func TestAdd_Defaults(t *testing.T) {
	svc, _, rec := newService()

	n, err := svc.Add(context.Background(), author, patientID, Input{Content: "  follow up in 2 weeks "})
	require.NoError(t, err)

	assert.Equal(t, "follow up in 2 weeks", n.Content)
	assert.Equal(t, DefaultCategory, n.Category)
	assert.Equal(t, time.Date(2026, 10, 15, 0, 0, 0, 0, time.UTC), n.NoteDate)
	assert.Equal(t, author.DoctorID, n.AuthorID)
	require.Len(t, rec.entries, 1)
	assert.Equal(t, audit.ActionAddNote, rec.entries[0].Action)
	assert.Equal(t, audit.TargetNote, rec.entries[0].TargetType)
	assert.Equal(t, n.ID, rec.entries[0].TargetID)
}

func TestAdd_Rejections(t *testing.T) {
	svc, repo, rec := newService()
	ctx := context.Background()

	_, err := svc.Add(ctx, author, patientID, Input{Content: "   "})
	assert.True(t, errors.Is(err, apperr.ErrInvalidArgument))

	_, err = svc.Add(ctx, author, 99, Input{Content: "x"})
	assert.True(t, errors.Is(err, apperr.ErrNotFound))

	_, err = svc.Add(ctx, stranger, patientID, Input{Content: "x"})
	assert.True(t, errors.Is(err, apperr.ErrForbidden))

	assert.Empty(t, repo.rows)
	assert.Empty(t, rec.entries)
}

func TestUpdateAndDelete_AuthorOnly(t *testing.T) {
	svc, repo, rec := newService()
	ctx := context.Background()

	n, err := svc.Add(ctx, author, patientID, Input{Content: "baseline", Category: "cardiology"})
	require.NoError(t, err)

	content := "edited"
	_, err = svc.Update(ctx, colleague, patientID, n.ID, UpdateInput{Content: &content})
	assert.True(t, errors.Is(err, apperr.ErrForbidden), "colleague update: %v", err)

	err = svc.Delete(ctx, colleague, patientID, n.ID)
	assert.True(t, errors.Is(err, apperr.ErrForbidden), "colleague delete: %v", err)
	assert.Equal(t, "baseline", repo.rows[n.ID].Content)

	important := true
	got, err := svc.Update(ctx, author, patientID, n.ID, UpdateInput{Content: &content, Important: &important})
	require.NoError(t, err)
	assert.Equal(t, "edited", got.Content)
	assert.True(t, got.Important)
	assert.Equal(t, "cardiology", got.Category)

	require.NoError(t, svc.Delete(ctx, author, patientID, n.ID))
	assert.Empty(t, repo.rows)

	var actions []audit.Action
	for _, e := range rec.entries {
		actions = append(actions, e.Action)
	}
	assert.Equal(t, []audit.Action{audit.ActionAddNote, audit.ActionUpdateNote, audit.ActionDeleteNote}, actions)
}

func TestUpdate_UnknownNote(t *testing.T) {
	svc, _, _ := newService()
	_, err := svc.Update(context.Background(), author, patientID, 77, UpdateInput{})
	assert.True(t, errors.Is(err, apperr.ErrNotFound))

	err = svc.Delete(context.Background(), author, patientID, 77)
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
}

func TestUpdate_EmptyContentRejected(t *testing.T) {
	svc, _, _ := newService()
	n, err := svc.Add(context.Background(), author, patientID, Input{Content: "x"})
	require.NoError(t, err)

	blank := " "
	_, err = svc.Update(context.Background(), author, patientID, n.ID, UpdateInput{Content: &blank})
	assert.True(t, errors.Is(err, apperr.ErrInvalidArgument))
}
