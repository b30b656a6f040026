//go:build integration

// Package testdb provides helpers for integration tests that need a real
// PostgreSQL database.
//
// Tests run inside a transaction that is always rolled back, so they can
// share one migrated schema and run in parallel:
//
//	func TestSomething(t *testing.T) {
//	    db := testdb.GetTestDBWithT(t)
//	    testdb.WithTx(t, db, func(t *testing.T, tx *sql.Tx) {
//	        users := postgres.NewPostgresUserStore(tx, nil)
//	        ...
//	    })
//	}
//
// The connection string comes from DATABASE_URL, falling back to
// APITASK_TEST_DB_URL. Tests are skipped when neither is set.
package testdb
