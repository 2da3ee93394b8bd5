package db

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// withMockDriver routes openDB to sqlmock connections that expect a ping.
func withMockDriver(t *testing.T, openErr error) *int {
	t.Helper()
	calls := 0
	prev := openDB
	openDB = func(driverName, dsn string) (*sql.DB, error) {
		calls++
		if openErr != nil && calls == 1 {
			return nil, openErr
		}
		database, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
		if err != nil {
			return nil, err
		}
		mock.ExpectPing()
		return database, nil
	}
	t.Cleanup(func() { openDB = prev })
	return &calls
}

func resetShared(t *testing.T) {
	t.Helper()
	shared.mu.Lock()
	shared.db = nil
	shared.mu.Unlock()
}

func TestDefaultsByProfile(t *testing.T) {
	assert.Equal(t, 2, Defaults(ProfileLambda).MaxOpenConns)
	assert.Equal(t, 1, Defaults(ProfileMigrate).MaxOpenConns)
	assert.Equal(t, 10, Defaults(ProfileServer).MaxOpenConns)
	assert.Equal(t, ProfileLambda, ProfileFor(true))
	assert.Equal(t, ProfileServer, ProfileFor(false))
}

func TestOverrideKeepsDefaultsForZeroFields(t *testing.T) {
	opts := Defaults(ProfileServer).Override(Options{MaxOpenConns: 7, ConnMaxIdleTime: 45 * time.Second})

	assert.Equal(t, 7, opts.MaxOpenConns)
	assert.Equal(t, 5, opts.MaxIdleConns)
	assert.Equal(t, 45*time.Second, opts.ConnMaxIdleTime)
	assert.Equal(t, time.Hour, opts.ConnMaxLifetime)
}

func TestConnectRequiresURL(t *testing.T) {
	_, err := Connect(context.Background(), "  ", Defaults(ProfileServer))
	require.ErrorIs(t, err, ErrNoURL)
}

func TestConnectAppliesPoolSize(t *testing.T) {
	withMockDriver(t, nil)

	database, err := Connect(context.Background(), "postgres://ignored", Options{MaxOpenConns: 3})
	require.NoError(t, err)
	defer database.Close()

	assert.Equal(t, 3, database.Stats().MaxOpenConnections)
}

func TestSharedReusesPool(t *testing.T) {
	resetShared(t)
	calls := withMockDriver(t, nil)

	first, err := Shared(context.Background(), "postgres://ignored", Defaults(ProfileLambda))
	require.NoError(t, err)
	second, err := Shared(context.Background(), "postgres://ignored", Defaults(ProfileLambda))
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, 1, *calls)
	resetShared(t)
}

func TestSharedRetriesAfterFailure(t *testing.T) {
	resetShared(t)
	withMockDriver(t, errors.New("dial tcp: connection refused"))

	_, err := Shared(context.Background(), "postgres://ignored", Defaults(ProfileLambda))
	require.Error(t, err)

	database, err := Shared(context.Background(), "postgres://ignored", Defaults(ProfileLambda))
	require.NoError(t, err)
	assert.NotNil(t, database)
	resetShared(t)
}
