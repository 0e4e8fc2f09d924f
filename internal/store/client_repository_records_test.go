package store

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lzhahn/CountMe-sub003/internal/logger"
	"github.com/lzhahn/CountMe-sub003/models"
)

func newTestDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, mock
}

func testContext() context.Context {
	l := zerolog.Nop()
	return l.WithContext(context.Background())
}

func newMockRecordRepo(t *testing.T) (RecordStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock := newTestDB(t)
	storeDB := &DB{DB: db, errorClassificator: NewSQLiteErrorClassifier(), logger: logger.Nop()}
	return NewLocalRecordRepository(storeDB, logger.Nop()), mock
}

func TestLocalRecordRepository_Create_ExecError(t *testing.T) {
	repo, mock := newMockRecordRepo(t)
	mock.ExpectExec(`INSERT INTO records`).WillReturnError(errors.New("disk full"))

	err := repo.Create(testContext(), food("f", "", models.StatusSynced, baseTime))

	assert.ErrorIs(t, err, ErrExecutingStatement)
	assert.NotErrorIs(t, err, ErrRecordExists)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLocalRecordRepository_Create_Duplicate(t *testing.T) {
	repo, mock := newMockRecordRepo(t)
	mock.ExpectExec(`INSERT INTO records`).
		WillReturnError(sqlite3.Error{Code: sqlite3.ErrConstraint, ExtendedCode: sqlite3.ErrConstraintPrimaryKey})

	err := repo.Create(testContext(), food("f", "", models.StatusSynced, baseTime))

	assert.ErrorIs(t, err, ErrRecordExists)
}

func TestLocalRecordRepository_Update_BusyIsTemporary(t *testing.T) {
	repo, mock := newMockRecordRepo(t)
	mock.ExpectExec(`UPDATE records SET`).WillReturnError(sqlite3.Error{Code: sqlite3.ErrBusy})

	err := repo.Update(testContext(), food("f", "", models.StatusSynced, baseTime))

	assert.ErrorIs(t, err, ErrTemporarilyUnavailable)
}

func TestLocalRecordRepository_Update_NoRows(t *testing.T) {
	repo, mock := newMockRecordRepo(t)
	mock.ExpectExec(`UPDATE records SET`).WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Update(testContext(), food("f", "", models.StatusSynced, baseTime))

	assert.ErrorIs(t, err, ErrRecordNotFound)
}

func TestLocalRecordRepository_Read_ScanError(t *testing.T) {
	repo, mock := newMockRecordRepo(t)
	mock.ExpectQuery(`SELECT document FROM records WHERE`).
		WithArgs("food_entry", "f").
		WillReturnError(errors.New("io"))

	_, err := repo.Read(testContext(), models.EntityFoodEntry, "f")

	assert.ErrorIs(t, err, ErrScanningRow)
}

func TestLocalRecordRepository_Query_SkipsCorruptRows(t *testing.T) {
	repo, mock := newMockRecordRepo(t)

	good, err := newRecordRow(food("ok", "", models.StatusSynced, baseTime))
	require.NoError(t, err)

	mock.ExpectQuery(`SELECT document FROM records WHERE`).
		WillReturnRows(sqlmock.NewRows([]string{"document"}).
			AddRow(`{"not":"a food entry"}`).
			AddRow(good.Document))

	recs, err := repo.Query(testContext(), Predicate{EntityType: models.EntityFoodEntry})

	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "ok", recs[0].Meta().ID)
}

func TestLocalRecordRepository_SaveQueue_RollsBackOnFailure(t *testing.T) {
	repo, mock := newMockRecordRepo(t)

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM pending_operations`).WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(`INSERT INTO pending_operations`).WillReturnError(errors.New("constraint"))
	mock.ExpectRollback()

	err := repo.SaveQueue(testContext(), []models.QueuedOperation{
		{Seq: 1, EntityID: "a", EntityType: models.EntityFoodEntry, Kind: models.OperationCreate, EnqueuedAt: baseTime},
	})

	assert.ErrorIs(t, err, ErrExecutingStatement)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLocalRecordRepository_SaveQueue_BeginError(t *testing.T) {
	repo, mock := newMockRecordRepo(t)
	mock.ExpectBegin().WillReturnError(errors.New("locked"))

	err := repo.SaveQueue(testContext(), nil)

	assert.ErrorIs(t, err, ErrBeginningTransaction)
}

// ── Query builders ──────────────────────────────────────────────────────────

func TestBuildQueryRecordsQuery(t *testing.T) {
	query, args, err := buildQueryRecordsQuery(Predicate{
		EntityType: models.EntityDailyLog,
		Owners:     []string{"", "owner-1"},
		Statuses:   []models.SyncStatus{models.StatusSynced},
	})
	require.NoError(t, err)

	assert.Equal(t,
		"SELECT document FROM records WHERE entity_type = ? AND owner_id IN (?,?) AND sync_status IN (?) AND deleted = ? ORDER BY last_modified, id",
		query)
	assert.Equal(t, []any{"daily_log", "", "owner-1", "synced", false}, args)
}

func TestBuildQueryRecordsQuery_OccurredOn(t *testing.T) {
	day := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	query, args, err := buildQueryRecordsQuery(Predicate{EntityType: models.EntityDailyLog, OccurredOn: &day})
	require.NoError(t, err)

	assert.Equal(t,
		"SELECT document FROM records WHERE entity_type = ? AND occurred_at = ? AND deleted = ? ORDER BY last_modified, id",
		query)
	assert.Equal(t, []any{"daily_log", day.UnixMilli(), false}, args)
}

func TestBuildQueryRecordsQuery_Minimal(t *testing.T) {
	query, args, err := buildQueryRecordsQuery(Predicate{EntityType: models.EntityCustomMeal, IncludeDeleted: true})
	require.NoError(t, err)

	assert.Equal(t, "SELECT document FROM records WHERE entity_type = ? ORDER BY last_modified, id", query)
	assert.Equal(t, []any{"custom_meal"}, args)
}
