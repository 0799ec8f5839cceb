package db

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMigrationsAreOrderedAndComplete(t *testing.T) {
	migrations, err := Migrations()
	require.NoError(t, err)
	require.Len(t, migrations, 3)

	versions := make([]string, 0, len(migrations))
	for _, m := range migrations {
		versions = append(versions, m.Version)
		require.NotEmpty(t, strings.TrimSpace(m.SQL), m.Name)
	}
	require.Equal(t, []string{"0001", "0002", "0003"}, versions)
	require.Equal(t, "identity", migrations[0].Name)
}

func TestMigrationsCreateCoreTables(t *testing.T) {
	migrations, err := Migrations()
	require.NoError(t, err)

	var all strings.Builder
	for _, m := range migrations {
		all.WriteString(m.SQL)
	}
	for _, table := range []string{"roles", "users", "permissions", "audit_logs"} {
		require.Contains(t, all.String(), "CREATE TABLE IF NOT EXISTS "+table+" (", table)
	}
}
