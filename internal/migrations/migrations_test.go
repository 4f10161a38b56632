package migrations

import (
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLatestVersion(t *testing.T) {
	v, err := LatestVersion()
	require.NoError(t, err)
	assert.Equal(t, uint(1), v)
}

func TestEmbeddedSchema(t *testing.T) {
	up, err := migrationFiles.ReadFile("files/000001_init.up.sql")
	require.NoError(t, err)

	schema := string(up)
	for _, table := range []string{"users", "habits", "completions", "subscriptions", "notification_settings", "device_tokens"} {
		assert.Contains(t, schema, "CREATE TABLE IF NOT EXISTS "+table+" (")
	}
	assert.Contains(t, schema, "UNIQUE (habit_id, user_id, date)")
	assert.Contains(t, schema, "PRIMARY KEY (user_id, habit_id)")
	assert.Contains(t, schema, "CHECK (remind_time BETWEEN 0 AND 23)")
	assert.Equal(t, 2, strings.Count(schema, "REFERENCES habits(id) ON DELETE CASCADE"))

	down, err := migrationFiles.ReadFile("files/000001_init.down.sql")
	require.NoError(t, err)
	assert.Contains(t, string(down), "DROP TABLE IF EXISTS users;")
}

func TestDriverURL(t *testing.T) {
	assert.Equal(t, "pgx5://u:p@localhost:5432/habits", driverURL("postgres://u:p@localhost:5432/habits"))
	assert.Equal(t, "pgx5://localhost/habits", driverURL("postgresql://localhost/habits"))
	assert.Equal(t, "pgx5://already", driverURL("pgx5://already"))
}

func TestMigrateUp_Idempotent(t *testing.T) {
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	require.NoError(t, MigrateUp(url))
	require.NoError(t, MigrateUp(url))

	current, dirty, latest, err := Status(url)
	require.NoError(t, err)
	assert.False(t, dirty)
	assert.Equal(t, latest, current)
}
