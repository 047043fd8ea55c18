// Package testdb provides database helpers for tests of the SQL artifact
// stores.
//
// Postgres helpers connect to DATABASE_URL (or VADEMECUM_TEST_DB_URL) and
// skip the test when neither is set. SQLite helpers create a fresh file under
// t.TempDir(). Both apply the embedded migrations before returning.
//
// Tests that write should use WithTx so their rows are rolled back:
//
//	func TestSomething(t *testing.T) {
//	    db := testdb.GetTestDBWithT(t)
//	    testdb.WithTx(t, db, func(t *testing.T, tx *sql.Tx) {
//	        testdb.SeedArticle(t, tx, testdb.Postgres, "codigo_penal", "121", "Matar alguém.")
//	        s := postgres.NewPostgresArtifactStore(tx, nil)
//	        ...
//	    })
//	}
package testdb
