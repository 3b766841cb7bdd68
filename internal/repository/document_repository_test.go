package repository

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/referral-service/internal/model"
)

func newDocumentRepoWithMock(t *testing.T) (*DocumentRepo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewDocumentRepo(db), mock
}

func TestInsertTx(t *testing.T) {
	repo, mock := newDocumentRepoWithMock(t)

	payload := `{"documentType_id":3,"num":"AB1"}`
	mock.ExpectExec(`INSERT INTO documents \(user_id, type_id, data\) VALUES \(\?, \?, \?\)`).
		WithArgs(uint64(7), 3, payload).
		WillReturnResult(sqlmock.NewResult(11, 1))

	d := &model.Document{UserID: 7, TypeID: 3, Data: json.RawMessage(payload)}
	require.NoError(t, repo.InsertTx(context.Background(), repo.DB, d))
	assert.Equal(t, uint64(11), d.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertTx_Error(t *testing.T) {
	repo, mock := newDocumentRepoWithMock(t)

	mock.ExpectExec(`INSERT INTO documents`).WillReturnError(errors.New("fk violation"))

	err := repo.InsertTx(context.Background(), repo.DB, &model.Document{UserID: 1, TypeID: 1, Data: json.RawMessage(`{}`)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insert document")
}

func TestListByUser_RoundTripsPayload(t *testing.T) {
	repo, mock := newDocumentRepoWithMock(t)

	mock.ExpectQuery(`SELECT id, user_id, data FROM documents WHERE user_id = \? ORDER BY id`).
		WithArgs(uint64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "data"}).
			AddRow(1, 7, `{"documentType_id":3,"num":"AB1"}`).
			AddRow(2, 7, `{"documentType_id":4}`))

	docs, err := repo.ListByUser(context.Background(), 7)
	require.NoError(t, err)
	require.Len(t, docs, 2)

	var first map[string]any
	require.NoError(t, json.Unmarshal(docs[0], &first))
	assert.Equal(t, "AB1", first["num"])
}

func TestListByUser_NoDocuments(t *testing.T) {
	repo, mock := newDocumentRepoWithMock(t)

	mock.ExpectQuery(`FROM documents WHERE user_id`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "data"}))

	docs, err := repo.ListByUser(context.Background(), 7)
	require.NoError(t, err)
	assert.NotNil(t, docs)
	assert.Empty(t, docs)
}

func TestListByUser_MalformedStoredPayload(t *testing.T) {
	repo, mock := newDocumentRepoWithMock(t)

	mock.ExpectQuery(`FROM documents WHERE user_id`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "data"}).AddRow(9, 7, `{"num":`))

	_, err := repo.ListByUser(context.Background(), 7)
	require.ErrorIs(t, err, ErrMalformedDocument)
	assert.Contains(t, err.Error(), "document 9")
}

func TestListByUser_NonObjectPayloadIsMalformed(t *testing.T) {
	repo, mock := newDocumentRepoWithMock(t)

	mock.ExpectQuery(`FROM documents WHERE user_id`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "data"}).AddRow(9, 7, `null`))

	_, err := repo.ListByUser(context.Background(), 7)
	assert.ErrorIs(t, err, ErrMalformedDocument)
}

func TestListAllByUser_Groups(t *testing.T) {
	repo, mock := newDocumentRepoWithMock(t)

	mock.ExpectQuery(`SELECT id, user_id, data FROM documents ORDER BY user_id, id`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "data"}).
			AddRow(1, 1, `{"a":1}`).
			AddRow(2, 2, `{"b":2}`).
			AddRow(3, 2, `{"c":3}`))

	byUser, err := repo.ListAllByUser(context.Background())
	require.NoError(t, err)
	assert.Len(t, byUser[1], 1)
	assert.Len(t, byUser[2], 2)
	assert.JSONEq(t, `{"c":3}`, string(byUser[2][1]))
}
