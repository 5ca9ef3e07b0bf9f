package migration

import (
	"context"
	"os"
	"testing"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunner_Version(t *testing.T) {
	assert.Equal(t, "1.0.0", NewRunner().Version())

	var _ Migrator = NewRunner()
}

func TestRunner_Idempotent(t *testing.T) {
	url := os.Getenv("GOPI_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("GOPI_TEST_DATABASE_URL not set")
	}

	db, err := sqlx.Connect("postgres", url)
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()
	require.NoError(t, NewRunner().Run(ctx, db))
	require.NoError(t, NewRunner().Run(ctx, db))

	var exists bool
	require.NoError(t, db.GetContext(ctx, &exists, `
		SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_name = 'runs')
	`))
	assert.True(t, exists)
}
