package access

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medplatform/dossier/internal/platform/apperr"
)

func TestStorePG_HasEncounter(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("SELECT EXISTS").
		WithArgs(int64(2), int64(9)).
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))

	ok, err := NewStore(mock).HasEncounter(context.Background(), 2, 9)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStorePG_TreatmentPrescriberNotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("SELECT prescribed_by FROM treatments").
		WithArgs(int64(50), int64(9)).
		WillReturnError(pgx.ErrNoRows)

	_, err = NewStore(mock).TreatmentPrescriber(context.Background(), 9, 50)
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStorePG_NoteAuthor(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("SELECT author_id FROM patient_notes").
		WithArgs(int64(70), int64(9)).
		WillReturnRows(pgxmock.NewRows([]string{"author_id"}).AddRow(int64(1)))

	author, err := NewStore(mock).NoteAuthor(context.Background(), 9, 70)
	require.NoError(t, err)
	assert.Equal(t, int64(1), author)
	assert.NoError(t, mock.ExpectationsWereMet())
}
