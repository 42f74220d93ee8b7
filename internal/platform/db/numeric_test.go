package db

import (
	"testing"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestNumericRoundTrip(t *testing.T) {
	amount := decimal.RequireFromString("45000.25")
	got := NumericToDecimal(DecimalToNumeric(amount))
	require.True(t, amount.Equal(got), "got %s", got)
}

func TestNumericToDecimalNull(t *testing.T) {
	require.True(t, NumericToDecimal(pgtype.Numeric{}).IsZero())
	require.True(t, NumericToDecimal(pgtype.Numeric{Valid: true, NaN: true}).IsZero())
}

func TestMigrationURL(t *testing.T) {
	require.Equal(t, "pgx5://u:p@localhost:5432/db?sslmode=disable", MigrationURL("postgres://u:p@localhost:5432/db?sslmode=disable"))
	require.Equal(t, "pgx5://localhost/db", MigrationURL("postgresql://localhost/db"))
	require.Equal(t, "pgx5://already", MigrationURL("pgx5://already"))
}

func TestEmbeddedMigrationsPresent(t *testing.T) {
	entries, err := migrationFS.ReadDir("migrations")
	require.NoError(t, err)
	require.Len(t, entries, 4)
}
