package slashbot

import (
	"context"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateDBAppliesLogSettings(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	t.Cleanup(cancel)

	level := &slog.LevelVar{}
	level.Set(slog.LevelDebug)

	db, err := CreateDB(
		ctx,
		dbTypeSQLite,
		filepath.Join(t.TempDir(), "slashbot_test.sqlite3"),
		level,
		50*time.Millisecond,
	)
	require.NoError(t, err)

	gormLogger, ok := db.Config.Logger.(*gormStructuredLogger)
	require.True(t, ok)
	assert.Equal(t, 50*time.Millisecond, gormLogger.SlowThreshold)
}

func TestCreateDBDefaultsLogSettings(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	t.Cleanup(cancel)

	db, err := CreateDB(
		ctx,
		dbTypeSQLite,
		filepath.Join(t.TempDir(), "slashbot_test.sqlite3"),
		nil,
		0,
	)
	require.NoError(t, err)

	gormLogger, ok := db.Config.Logger.(*gormStructuredLogger)
	require.True(t, ok)
	assert.Equal(t, DefaultDatabaseSlowThreshold, gormLogger.SlowThreshold)
}

func TestCreateDBRejectsUnknownType(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	t.Cleanup(cancel)

	_, err := CreateDB(ctx, "mysql", "dsn", nil, 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported database type")
}
