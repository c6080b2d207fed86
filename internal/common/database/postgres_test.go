package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "insightx-workers/internal/common/errors"
)

func TestPostgresClient_WaitReady(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	client := &PostgresClient{DB: db}
	defer client.Close()

	mock.ExpectPing().WillReturnError(errors.New("connection refused"))
	mock.ExpectPing()

	require.NoError(t, client.WaitReady(context.Background(), 3, time.Millisecond))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresClient_WaitReadyGivesUp(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	client := &PostgresClient{DB: db}
	defer client.Close()

	mock.ExpectPing().WillReturnError(errors.New("connection refused"))
	mock.ExpectPing().WillReturnError(errors.New("connection refused"))

	err = client.WaitReady(context.Background(), 2, time.Millisecond)
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeDatabaseConnectionFailed))
	assert.Contains(t, err.(*apperrors.StandardError).Details, "after 2 attempts")
}

func TestPostgresClient_HasTable(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	client := &PostgresClient{DB: db}
	defer client.Close()

	mock.ExpectQuery(`SELECT to_regclass`).WithArgs("public.upi_transactions").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectQuery(`SELECT to_regclass`).WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectQuery(`SELECT to_regclass`).WithArgs("broken").
		WillReturnError(errors.New("connection reset"))

	ok, err := client.HasTable(context.Background(), "public.upi_transactions")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = client.HasTable(context.Background(), "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = client.HasTable(context.Background(), "broken")
	assert.ErrorContains(t, err, "connection reset")

	assert.NoError(t, mock.ExpectationsWereMet())
}
