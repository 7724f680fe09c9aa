package database

import (
	"context"
	"fmt"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/college-staff-api/pkg/config"
)

func TestDSN(t *testing.T) {
	dsn := DSN(config.DatabaseConfig{Host: "db", Port: 5432, User: "u", Password: "p", Name: "college", SSLMode: "disable"})
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=college sslmode=disable", dsn)
}

func TestPQErrorClassification(t *testing.T) {
	unique := fmt.Errorf("insert staff: %w", &pq.Error{Code: "23505", Constraint: "staff_email_key"})
	assert.True(t, IsUniqueViolation(unique))
	assert.False(t, IsForeignKeyViolation(unique))
	assert.Equal(t, "staff_email_key", Constraint(unique))

	fk := &pq.Error{Code: "23503"}
	assert.True(t, IsForeignKeyViolation(fk))
	assert.False(t, IsUniqueViolation(fmt.Errorf("plain")))
}

func TestApplySchemaRunsEveryMigration(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	names, err := Migrations()
	require.NoError(t, err)
	require.NotEmpty(t, names)

	mock.ExpectBegin()
	for range names {
		mock.ExpectExec("CREATE TABLE IF NOT EXISTS users").WillReturnResult(sqlmock.NewResult(0, 0))
	}
	mock.ExpectCommit()

	require.NoError(t, ApplySchema(context.Background(), sqlx.NewDb(db, "sqlmock")))
	assert.NoError(t, mock.ExpectationsWereMet())
}
