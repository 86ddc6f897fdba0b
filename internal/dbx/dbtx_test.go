package dbx

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDialect_Rebind(t *testing.T) {
	q := `INSERT INTO x (a, b, c) VALUES (?, ?, 'what?') RETURNING ?`

	require.Equal(t, q, DialectSQLite.Rebind(q))
	require.Equal(t,
		`INSERT INTO x (a, b, c) VALUES ($1, $2, 'what?') RETURNING $3`,
		DialectPostgres.Rebind(q))
}

func TestDialect_DriverName(t *testing.T) {
	require.Equal(t, "pgx", DialectPostgres.DriverName())
	require.Equal(t, "sqlite", DialectSQLite.DriverName())
}
