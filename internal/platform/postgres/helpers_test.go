package postgres

import (
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/apitask/internal/domain"
)

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, mock.ExpectationsWereMet())
		_ = db.Close()
	})
	return db, mock
}

func day(d int) time.Time {
	return domain.NewDate(2025, time.January, d)
}

var taskRowColumns = []string{
	"id", "user_id", "name", "description", "completed", "created_on", "completed_on", "expiration_date",
}

func taskRow(rows *sqlmock.Rows, id, userID uuid.UUID, name string, expires any) *sqlmock.Rows {
	return rows.AddRow(id.String(), userID.String(), name, "", false, day(1), nil, expires)
}
