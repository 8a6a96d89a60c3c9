package postgres

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/graphmail/internal/service/profile"
)

func setupTestDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, mock
}

// =============================================================================
// PROFILE REPOSITORY
// =============================================================================

func TestProfileRepo_Settings(t *testing.T) {
	db, mock := setupTestDB(t)
	repo := NewProfileRepo(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM sender_profiles p")).
		WithArgs("Office365").
		WillReturnRows(sqlmock.NewRows([]string{"key", "value"}).
			AddRow("tenantId", "t-1").
			AddRow("batchSize", "50"))

	settings, err := repo.Settings(context.Background(), "Office365")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"tenantId": "t-1", "batchSize": "50"}, settings)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProfileRepo_SettingsEmptyProfile(t *testing.T) {
	db, mock := setupTestDB(t)
	repo := NewProfileRepo(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM sender_profiles p")).
		WithArgs("Office365").
		WillReturnRows(sqlmock.NewRows([]string{"key", "value"}).AddRow(nil, nil))

	settings, err := repo.Settings(context.Background(), "Office365")
	require.NoError(t, err)
	assert.Empty(t, settings)
}

func TestProfileRepo_SettingsNotFound(t *testing.T) {
	db, mock := setupTestDB(t)
	repo := NewProfileRepo(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM sender_profiles p")).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"key", "value"}))

	_, err := repo.Settings(context.Background(), "missing")
	assert.True(t, errors.Is(err, profile.ErrNotFound))
}

func TestProfileRepo_CreateIfAbsent(t *testing.T) {
	db, mock := setupTestDB(t)
	repo := NewProfileRepo(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO sender_profiles")).
		WithArgs("Office365").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO sender_profile_settings")).
		WithArgs("Office365", "batchSize", "100").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO sender_profile_settings")).
		WithArgs("Office365", "senderType", "office365").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	created, err := repo.CreateIfAbsent(context.Background(), "Office365", map[string]string{
		"senderType": "office365",
		"batchSize":  "100",
	})
	require.NoError(t, err)
	assert.True(t, created)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProfileRepo_CreateIfAbsentExisting(t *testing.T) {
	db, mock := setupTestDB(t)
	repo := NewProfileRepo(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO sender_profiles")).
		WithArgs("Office365").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	created, err := repo.CreateIfAbsent(context.Background(), "Office365", map[string]string{"batchSize": "100"})
	require.NoError(t, err)
	assert.False(t, created)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProfileRepo_SaveSettingsRollsBackOnError(t *testing.T) {
	db, mock := setupTestDB(t)
	repo := NewProfileRepo(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO sender_profiles")).
		WithArgs("Office365").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO sender_profile_settings")).
		WithArgs("Office365", "clientSecret", "s").
		WillReturnError(errors.New("connection lost"))
	mock.ExpectRollback()

	err := repo.SaveSettings(context.Background(), "Office365", map[string]string{"clientSecret": "s"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "upsert setting clientSecret")
	assert.NotContains(t, err.Error(), `"s"`)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProfileRepo_List(t *testing.T) {
	db, mock := setupTestDB(t)
	repo := NewProfileRepo(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT name FROM sender_profiles")).
		WillReturnRows(sqlmock.NewRows([]string{"name"}).AddRow("Marketing").AddRow("Office365"))

	names, err := repo.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"Marketing", "Office365"}, names)
}
