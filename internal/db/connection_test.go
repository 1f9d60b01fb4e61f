package db

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

type recordingExecer struct {
	statements []string
	err        error
}

func (r *recordingExecer) Exec(_ context.Context, sql string, _ ...any) (pgconn.CommandTag, error) {
	r.statements = append(r.statements, sql)
	return pgconn.CommandTag{}, r.err
}

func TestConnString(t *testing.T) {
	tests := []struct {
		name     string
		config   Config
		expected string
	}{
		{
			name: "URL wins",
			config: Config{
				URL:  "postgres://u:p@db:5432/x",
				Host: "ignored",
			},
			expected: "postgres://u:p@db:5432/x",
		},
		{
			name: "Built from fields",
			config: Config{
				Host:     "localhost",
				Port:     5432,
				Database: "venaarauhassa",
				User:     "postgres",
				Password: "secret",
				SSLMode:  "disable",
			},
			expected: "host=localhost port=5432 dbname=venaarauhassa user=postgres password=secret sslmode=disable",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.config.ConnString())
		})
	}
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("DB_PORT", "6543")
	t.Setenv("DB_MAX_CONNS", "8")

	config := LoadConfigFromEnv()
	assert.Equal(t, "db.internal", config.Host)
	assert.Equal(t, 6543, config.Port)
	assert.Equal(t, int32(8), config.MaxConns)
	assert.Equal(t, "venaarauhassa", config.Database)
}

func TestEnsureSchema(t *testing.T) {
	t.Run("Creates session table", func(t *testing.T) {
		execer := &recordingExecer{}
		assert.NoError(t, EnsureSchema(context.Background(), execer))
		assert.Len(t, execer.statements, 1)
		assert.Contains(t, execer.statements[0], "CREATE TABLE IF NOT EXISTS session")
	})

	t.Run("Wraps errors", func(t *testing.T) {
		execer := &recordingExecer{err: errors.New("boom")}
		err := EnsureSchema(context.Background(), execer)
		assert.ErrorContains(t, err, "boom")
	})
}
