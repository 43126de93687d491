package database

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/fairway-edge/internal/logger"
)

func TestMigrationsAreOrdered(t *testing.T) {
	require.NotEmpty(t, Migrations)
	for i, m := range Migrations {
		assert.Equal(t, i+1, m.Version, "versions are contiguous from 1")
		assert.NotEmpty(t, m.Description)
		assert.NotEmpty(t, m.Statements)
	}
	assert.Equal(t, len(Migrations), LatestVersion())
}

func TestRunChildrenCascade(t *testing.T) {
	var cascades int
	for _, m := range Migrations {
		for _, stmt := range m.Statements {
			if strings.Contains(stmt, "REFERENCES runs (id) ON DELETE CASCADE") {
				cascades++
			}
		}
	}
	assert.Equal(t, 2, cascades, "recommendations and artifacts are removed with their run")
}

func TestMigrateIntegration(t *testing.T) {
	db := SetupTestDB(t)

	applied, err := Migrate(context.Background(), db, logger.Discard())
	require.NoError(t, err)
	assert.Zero(t, applied, "second migrate is a no-op")

	version, err := SchemaVersion(context.Background(), db)
	require.NoError(t, err)
	assert.Equal(t, LatestVersion(), version)
}
