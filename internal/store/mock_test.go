package store

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"codeberg.org/mutker/vitalsd/internal/errors"
	"codeberg.org/mutker/vitalsd/internal/logger"
	"codeberg.org/mutker/vitalsd/internal/metric"
	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockStore(t *testing.T, driver string) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	s := New(sqlx.NewDb(db, driver), logger.Nop())
	s.now = func() time.Time { return t0 }
	t.Cleanup(func() { db.Close() })
	return s, mock
}

func TestCreateUserRollsBackOnConfigFailure(t *testing.T) {
	s, mock := newMockStore(t, DriverSQLite)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO users").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO simulation_configs").WillReturnError(sql.ErrConnDone)
	mock.ExpectRollback()

	_, err := s.CreateUser(context.Background(), User{Email: "tx@example.com"})
	assert.True(t, errors.HasCode(err, ErrStorageAccess))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateUserCommitFailure(t *testing.T) {
	s, mock := newMockStore(t, DriverSQLite)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO users").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO simulation_configs").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit().WillReturnError(sql.ErrConnDone)

	_, err := s.CreateUser(context.Background(), User{Email: "tx@example.com"})
	assert.True(t, errors.HasCode(err, ErrTransactionFailed))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateReadingStorageFailure(t *testing.T) {
	s, mock := newMockStore(t, DriverSQLite)

	mock.ExpectExec("INSERT INTO readings").WillReturnError(sql.ErrConnDone)

	r := &metric.HeartRate{
		Base:          metric.Base{UserID: "u1", Timestamp: t0, Source: metric.SourceDevice},
		Value:         72,
		ActivityLevel: metric.ActivityResting,
	}
	err := s.Create(context.Background(), r)
	assert.True(t, errors.HasCode(err, ErrStorageAccess))
	assert.ErrorIs(t, err, sql.ErrConnDone)
	assert.Empty(t, r.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetSimulationConfigMissing(t *testing.T) {
	s, mock := newMockStore(t, DriverSQLite)

	mock.ExpectQuery("FROM simulation_configs WHERE user_id = ?").
		WithArgs("u1").
		WillReturnError(sql.ErrNoRows)

	_, err := s.GetSimulationConfig(context.Background(), "u1")
	assert.True(t, errors.HasCode(err, ErrConfigMissing))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestQueryUsesPostgresPlaceholders(t *testing.T) {
	s, mock := newMockStore(t, DriverPostgres)
	assert.Equal(t, DriverPostgres, s.d.name)

	start := t0.Add(-24 * time.Hour)
	mock.ExpectQuery(regexp.QuoteMeta(
		"WHERE user_id = $1 AND kind = $2 AND recorded_at >= $3 AND recorded_at < $4 " +
			"ORDER BY recorded_at DESC, created_at DESC, id DESC LIMIT 1")).
		WithArgs("u1", string(metric.KindSpO2), toMillis(start), toMillis(t0)).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "user_id", "kind", "recorded_at", "source", "created_at", "updated_at", "value", "measurement_method",
		}).AddRow("r1", "u1", "spo2", toMillis(t0.Add(-time.Hour)), "device", toMillis(t0), toMillis(t0), 96, "WEARABLE"))

	got, err := s.Query(context.Background(), metric.Filter{
		UserID: "u1",
		Kind:   metric.KindSpO2,
		Start:  start,
		End:    t0,
		Order:  metric.Descending,
		Limit:  1,
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
	spo2 := got[0].(*metric.SpO2)
	assert.Equal(t, 96, spo2.Value)
	assert.Equal(t, metric.MethodWearable, spo2.MeasurementMethod)
	assert.Equal(t, t0.Add(-time.Hour), spo2.Timestamp)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestQueryRejectsUnknownStoredKind(t *testing.T) {
	s, mock := newMockStore(t, DriverSQLite)

	mock.ExpectQuery("FROM readings").
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "kind", "recorded_at", "source", "created_at", "updated_at"}).
			AddRow("r1", "u1", "glucose", 0, "device", 0, 0))

	_, err := s.Query(context.Background(), metric.Filter{UserID: "u1", Kind: metric.KindHeartRate})
	assert.True(t, errors.HasCode(err, ErrUnknownKind))
}

func TestClosePostgresSkipsCheckpoint(t *testing.T) {
	s, mock := newMockStore(t, DriverPostgres)
	mock.ExpectClose()

	require.NoError(t, s.Close())
	assert.NoError(t, mock.ExpectationsWereMet())
}
