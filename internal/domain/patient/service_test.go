package patient

import (
	"context"
	"errors"
	"testing"

	"github.com/medplatform/dossier/internal/domain/access"
	"github.com/medplatform/dossier/internal/domain/audit"
	"github.com/medplatform/dossier/internal/platform/apperr"
	"github.com/medplatform/dossier/internal/platform/auth"
)

type mockRepo struct {
	patients map[int64]*Patient
}

func newMockRepo() *mockRepo {
	email := "jane@example.com"
	other := "other@example.com"
	nid := "AB123"
	return &mockRepo{patients: map[int64]*Patient{
		1: {ID: 1, FirstName: "Jane", LastName: "Roe", Email: &email, Phone: "0600"},
		2: {ID: 2, FirstName: "John", LastName: "Doe", Email: &other, NationalID: &nid},
	}}
}

func (m *mockRepo) GetByID(_ context.Context, id int64) (*Patient, error) {
	p, ok := m.patients[id]
	if !ok {
		return nil, apperr.NotFound("patient %d not found", id)
	}
	cp := *p
	return &cp, nil
}

func (m *mockRepo) Exists(_ context.Context, id int64) (bool, error) {
	_, ok := m.patients[id]
	return ok, nil
}

func (m *mockRepo) Update(_ context.Context, id int64, u *ProfileUpdate) error {
	p, ok := m.patients[id]
	if !ok {
		return apperr.NotFound("patient %d not found", id)
	}
	if u.FirstName != nil {
		p.FirstName = *u.FirstName
	}
	if u.Email != nil {
		p.Email = u.Email
	}
	if u.Phone != nil {
		p.Phone = *u.Phone
	}
	if u.NationalID != nil {
		p.NationalID = u.NationalID
	}
	return nil
}

func (m *mockRepo) EmailTaken(_ context.Context, email string, excludeID int64) (bool, error) {
	for id, p := range m.patients {
		if id != excludeID && p.Email != nil && *p.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockRepo) NationalIDTaken(_ context.Context, nid string, excludeID int64) (bool, error) {
	for id, p := range m.patients {
		if id != excludeID && p.NationalID != nil && *p.NationalID == nid {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockRepo) UpdateBaseline(_ context.Context, id int64, w, h *float64) error {
	p := m.patients[id]
	if w != nil {
		p.WeightKG = w
	}
	if h != nil {
		p.HeightCM = h
	}
	return nil
}

type stubGate struct{ reason string }

func (g stubGate) Authorize(context.Context, auth.Actor, int64, access.Check) error {
	if g.reason != "" {
		return apperr.Forbidden("%s", g.reason)
	}
	return nil
}

type passTx struct{}

func (passTx) InTx(ctx context.Context, fn func(context.Context) error) error { return fn(ctx) }

type memAudit struct{ entries []*audit.Entry }

func (a *memAudit) Record(_ context.Context, e *audit.Entry) error {
	a.entries = append(a.entries, e)
	return nil
}

var physician = auth.Actor{UserID: 101, DoctorID: 1, Roles: []string{"physician"}}

func strPtr(s string) *string { return &s }

func TestUpdateProfile_PartialUpdate(t *testing.T) {
	repo := newMockRepo()
	rec := &memAudit{}
	svc := NewService(repo, stubGate{}, passTx{}, rec)

	p, err := svc.UpdateProfile(context.Background(), physician, 1, &ProfileUpdate{Phone: strPtr("0611")})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Phone != "0611" || p.FirstName != "Jane" {
		t.Errorf("unexpected patient after update: %+v", p)
	}
	if len(rec.entries) != 1 {
		t.Fatalf("expected 1 audit entry, got %d", len(rec.entries))
	}
	e := rec.entries[0]
	if e.Action != audit.ActionUpdateProfile || e.ActorID != physician.UserID || e.TargetID != 1 {
		t.Errorf("unexpected audit entry %+v", e)
	}
}

func TestUpdateProfile_NotFound(t *testing.T) {
	svc := NewService(newMockRepo(), stubGate{}, passTx{}, &memAudit{})
	_, err := svc.UpdateProfile(context.Background(), physician, 99, &ProfileUpdate{Phone: strPtr("1")})
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("expected NotFound, got %v", err)
	}
}

func TestUpdateProfile_Forbidden(t *testing.T) {
	rec := &memAudit{}
	svc := NewService(newMockRepo(), stubGate{reason: access.ReasonNoRelationship}, passTx{}, rec)
	_, err := svc.UpdateProfile(context.Background(), physician, 1, &ProfileUpdate{Phone: strPtr("1")})
	if !errors.Is(err, apperr.ErrForbidden) {
		t.Errorf("expected Forbidden, got %v", err)
	}
	if len(rec.entries) != 0 {
		t.Error("denied update must not be audited")
	}
}

func TestUpdateProfile_EmailConflict(t *testing.T) {
	svc := NewService(newMockRepo(), stubGate{}, passTx{}, &memAudit{})
	_, err := svc.UpdateProfile(context.Background(), physician, 1, &ProfileUpdate{Email: strPtr("other@example.com")})
	if !errors.Is(err, apperr.ErrConflict) {
		t.Errorf("expected Conflict, got %v", err)
	}
}

func TestUpdateProfile_OwnEmailIsNotConflict(t *testing.T) {
	svc := NewService(newMockRepo(), stubGate{}, passTx{}, &memAudit{})
	_, err := svc.UpdateProfile(context.Background(), physician, 1, &ProfileUpdate{Email: strPtr("jane@example.com")})
	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestUpdateProfile_NationalIDConflict(t *testing.T) {
	svc := NewService(newMockRepo(), stubGate{}, passTx{}, &memAudit{})
	_, err := svc.UpdateProfile(context.Background(), physician, 1, &ProfileUpdate{NationalID: strPtr("AB123")})
	if !errors.Is(err, apperr.ErrConflict) {
		t.Errorf("expected Conflict, got %v", err)
	}
}

func TestProfileUpdate_Validate(t *testing.T) {
	bad := -1.0
	tests := []struct {
		name string
		upd  ProfileUpdate
	}{
		{"empty first name", ProfileUpdate{FirstName: strPtr(" ")}},
		{"bad sex", ProfileUpdate{Sex: strPtr("X")}},
		{"bad blood group", ProfileUpdate{BloodGroup: strPtr("C+")}},
		{"bad email", ProfileUpdate{Email: strPtr("nope")}},
		{"negative height", ProfileUpdate{HeightCM: &bad}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.upd.Validate(); !errors.Is(err, apperr.ErrInvalidArgument) {
				t.Errorf("expected InvalidArgument, got %v", err)
			}
		})
	}
}
