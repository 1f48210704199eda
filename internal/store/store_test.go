package store

import (
	"database/sql"
	"os"
	"path/filepath"
	"testing"
)

func TestOpen_CreatesNewDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer s.Close()

	// Verify file was created
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Error("database file was not created")
	}
}

func TestOpen_OpensExistingDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	// Create database
	s1, err := Open(path)
	if err != nil {
		t.Fatalf("first Open() failed: %v", err)
	}
	s1.Close()

	// Reopen database
	s2, err := Open(path)
	if err != nil {
		t.Fatalf("second Open() failed: %v", err)
	}
	defer s2.Close()

	// Verify we can query it
	var count int
	err = s2.db.QueryRow("SELECT COUNT(*) FROM runs").Scan(&count)
	if err != nil {
		t.Errorf("query failed: %v", err)
	}
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	// Open multiple times
	for i := 0; i < 3; i++ {
		s, err := Open(path)
		if err != nil {
			t.Fatalf("Open() iteration %d failed: %v", i, err)
		}
		s.Close()
	}

	// Final open should work
	s, err := Open(path)
	if err != nil {
		t.Fatalf("final Open() failed: %v", err)
	}
	defer s.Close()

	// Verify schema is intact
	tables := []string{"records", "runs", "reports", "artifacts"}
	for _, table := range tables {
		var name string
		err := s.db.QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?",
			table,
		).Scan(&name)
		if err != nil {
			t.Errorf("table %q not found after idempotent opens: %v", table, err)
		}
	}
}

func TestOpen_InvalidPath(t *testing.T) {
	// Try to open in non-existent directory
	path := "/nonexistent/dir/test.db"

	_, err := Open(path)
	if err == nil {
		t.Error("expected error for invalid path, got nil")
	}
}

func TestClose_NilDB(t *testing.T) {
	s := &Store{db: nil}
	err := s.Close()
	if err != nil {
		t.Errorf("Close() on nil db should not error: %v", err)
	}
}

func TestClose_MultipleCalls(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}

	// First close should succeed
	if err := s.Close(); err != nil {
		t.Errorf("first Close() failed: %v", err)
	}

	// Second close should not panic (though may error)
	// We just verify it doesn't panic
	_ = s.Close()
}

func TestDB_ReturnsUnderlyingConnection(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer s.Close()

	db := s.DB()
	if db == nil {
		t.Error("DB() returned nil")
	}

	// Verify it's usable
	if err := db.Ping(); err != nil {
		t.Errorf("DB() connection not usable: %v", err)
	}
}

// Pragma tests

func TestPragma_JournalMode(t *testing.T) {
	s := createTestStore(t)

	if err := s.verifyPragma("journal_mode", "wal"); err != nil {
		t.Error(err)
	}
}

func TestPragma_Synchronous(t *testing.T) {
	s := createTestStore(t)

	// NORMAL = 1
	if err := s.verifyPragma("synchronous", "1"); err != nil {
		t.Error(err)
	}
}

func TestPragma_BusyTimeout(t *testing.T) {
	s := createTestStore(t)

	if err := s.verifyPragma("busy_timeout", "5000"); err != nil {
		t.Error(err)
	}
}

func TestPragma_ForeignKeys(t *testing.T) {
	s := createTestStore(t)

	// ON = 1
	if err := s.verifyPragma("foreign_keys", "1"); err != nil {
		t.Error(err)
	}
}

// Schema table tests

func TestSchema_RecordsTable(t *testing.T) {
	s := createTestStore(t)

	columns := getTableColumns(t, s.db, "records")

	expected := []string{"fingerprint", "part", "archetype", "payload"}

	for _, col := range expected {
		if !contains(columns, col) {
			t.Errorf("records table missing column %q", col)
		}
	}
}

func TestSchema_RunsTable(t *testing.T) {
	s := createTestStore(t)

	columns := getTableColumns(t, s.db, "runs")

	expected := []string{"id", "created_at", "source", "part", "archetype", "fingerprint"}

	for _, col := range expected {
		if !contains(columns, col) {
			t.Errorf("runs table missing column %q", col)
		}
	}
}

func TestSchema_ReportsTable(t *testing.T) {
	s := createTestStore(t)

	columns := getTableColumns(t, s.db, "reports")

	expected := []string{"run_id", "payload"}

	for _, col := range expected {
		if !contains(columns, col) {
			t.Errorf("reports table missing column %q", col)
		}
	}
}

func TestSchema_ArtifactsTable(t *testing.T) {
	s := createTestStore(t)

	columns := getTableColumns(t, s.db, "artifacts")

	expected := []string{"id", "run_id", "kind", "path"}

	for _, col := range expected {
		if !contains(columns, col) {
			t.Errorf("artifacts table missing column %q", col)
		}
	}
}

// Index tests

func TestSchema_RunsIndexes(t *testing.T) {
	s := createTestStore(t)

	indexes := getTableIndexes(t, s.db, "runs")

	expected := []string{
		"idx_runs_archetype",
		"idx_runs_created_at",
	}

	for _, idx := range expected {
		if !contains(indexes, idx) {
			t.Errorf("runs table missing index %q", idx)
		}
	}
}

// Constraint tests

func TestConstraint_ArtifactsUniqueTriple(t *testing.T) {
	s := createTestStore(t)

	insertRunRow(t, s.db, "run1", "fp1")

	// Insert first artifact
	_, err := s.db.Exec(`
		INSERT INTO artifacts (run_id, kind, path)
		VALUES ('run1', 'dxf', 'out/drawing.dxf')
	`)
	if err != nil {
		t.Fatalf("failed to insert first artifact: %v", err)
	}

	// Try to insert duplicate (same run_id, kind, path)
	_, err = s.db.Exec(`
		INSERT INTO artifacts (run_id, kind, path)
		VALUES ('run1', 'dxf', 'out/drawing.dxf')
	`)
	if err == nil {
		t.Error("expected UNIQUE constraint violation, got nil")
	}
}

func TestConstraint_ArtifactsAllowDifferentPaths(t *testing.T) {
	s := createTestStore(t)

	insertRunRow(t, s.db, "run1", "fp1")

	// Same kind, different paths - should succeed
	for _, path := range []string{"a/model.stl", "b/model.stl", "c/model.stl"} {
		_, err := s.db.Exec(`
			INSERT INTO artifacts (run_id, kind, path)
			VALUES ('run1', 'stl', ?)
		`, path)
		if err != nil {
			t.Errorf("failed to insert artifact with path %q: %v", path, err)
		}
	}
}

func TestConstraint_ArtifactsKindCheck(t *testing.T) {
	s := createTestStore(t)

	insertRunRow(t, s.db, "run1", "fp1")

	// Unknown kind violates the CHECK constraint
	_, err := s.db.Exec(`
		INSERT INTO artifacts (run_id, kind, path)
		VALUES ('run1', 'gcode', 'out/toolpath.gcode')
	`)
	if err == nil {
		t.Error("expected CHECK constraint violation for unknown kind, got nil")
	}
}

func TestConstraint_ForeignKeyRunToRecord(t *testing.T) {
	s := createTestStore(t)

	// Try to insert run with non-existent fingerprint
	_, err := s.db.Exec(`
		INSERT INTO runs (id, created_at, source, part, archetype, fingerprint)
		VALUES ('run1', '2026-01-15T10:00:00.000000000Z', 'photo.png', 'cover_plate', 'plate', 'nonexistent')
	`)
	if err == nil {
		t.Error("expected foreign key constraint violation, got nil")
	}
}

func TestConstraint_ForeignKeyArtifactToRun(t *testing.T) {
	s := createTestStore(t)

	// Try to insert artifact with non-existent run_id
	_, err := s.db.Exec(`
		INSERT INTO artifacts (run_id, kind, path)
		VALUES ('nonexistent', 'svg', 'out/drawing.svg')
	`)
	if err == nil {
		t.Error("expected foreign key constraint violation, got nil")
	}
}

func TestConstraint_ForeignKeyReportToRun(t *testing.T) {
	s := createTestStore(t)

	// Try to insert report with non-existent run_id
	_, err := s.db.Exec(`
		INSERT INTO reports (run_id, payload)
		VALUES ('nonexistent', '{}')
	`)
	if err == nil {
		t.Error("expected foreign key constraint violation, got nil")
	}
}

func TestConstraint_ReportUniqueRunID(t *testing.T) {
	// Each run has at most ONE report (PRIMARY KEY on run_id).
	s := createTestStore(t)

	insertRunRow(t, s.db, "run1", "fp1")

	// Insert first report - should succeed
	_, err := s.db.Exec(`
		INSERT INTO reports (run_id, payload)
		VALUES ('run1', '{}')
	`)
	if err != nil {
		t.Fatalf("failed to insert first report: %v", err)
	}

	// Try to insert second report for same run - should fail
	_, err = s.db.Exec(`
		INSERT INTO reports (run_id, payload)
		VALUES ('run1', '{"notes":[]}')
	`)
	if err == nil {
		t.Error("expected PRIMARY KEY violation on run_id, got nil")
	}
}

// Migration tests

func TestMigration_SchemaVersion(t *testing.T) {
	s := createTestStore(t)

	// Verify user_version is set to currentSchemaVersion
	var version int
	err := s.db.QueryRow("PRAGMA user_version").Scan(&version)
	if err != nil {
		t.Fatalf("failed to get user_version: %v", err)
	}

	if version != currentSchemaVersion {
		t.Errorf("user_version = %d, want %d", version, currentSchemaVersion)
	}
}

func TestMigration_IdempotentUpgrade(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	// Open and close multiple times - migrations should be idempotent
	for i := 0; i < 3; i++ {
		s, err := Open(path)
		if err != nil {
			t.Fatalf("Open() iteration %d failed: %v", i, err)
		}

		// Verify version is correct each time
		var version int
		err = s.db.QueryRow("PRAGMA user_version").Scan(&version)
		if err != nil {
			t.Fatalf("failed to get user_version: %v", err)
		}

		if version != currentSchemaVersion {
			t.Errorf("iteration %d: user_version = %d, want %d", i, version, currentSchemaVersion)
		}

		s.Close()
	}
}

func TestMigration_UpgradeFromV0(t *testing.T) {
	// Simulate a pre-migration database (version 0)
	path := filepath.Join(t.TempDir(), "test.db")

	// Create database manually without migration
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}

	// Apply schema but NOT migrations (simulates pre-migration state)
	if _, err := db.Exec(schemaSQL); err != nil {
		t.Fatalf("failed to apply schema: %v", err)
	}

	// Drop the index the migration adds, then set version to 0
	if _, err := db.Exec("DROP INDEX IF EXISTS idx_runs_created_at"); err != nil {
		t.Fatalf("failed to drop index: %v", err)
	}
	if _, err := db.Exec("PRAGMA user_version = 0"); err != nil {
		t.Fatalf("failed to set user_version: %v", err)
	}
	db.Close()

	// Now open through our normal path - should trigger migration
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer s.Close()

	// Verify version was upgraded
	var version int
	err = s.db.QueryRow("PRAGMA user_version").Scan(&version)
	if err != nil {
		t.Fatalf("failed to get user_version: %v", err)
	}

	if version != currentSchemaVersion {
		t.Errorf("user_version = %d, want %d after migration", version, currentSchemaVersion)
	}

	// Verify the migration recreated the index
	indexes := getTableIndexes(t, s.db, "runs")
	if !contains(indexes, "idx_runs_created_at") {
		t.Errorf("expected idx_runs_created_at after migration, got indexes: %v", indexes)
	}
}

// Helper functions

// insertRunRow inserts a bare records+runs pair for constraint tests that
// exercise SQL directly.
func insertRunRow(t *testing.T, db *sql.DB, runID, fingerprint string) {
	t.Helper()

	_, err := db.Exec(`
		INSERT INTO records (fingerprint, part, archetype, payload)
		VALUES (?, 'cover_plate', 'plate', '{}')
	`, fingerprint)
	if err != nil {
		t.Fatalf("failed to insert record: %v", err)
	}

	_, err = db.Exec(`
		INSERT INTO runs (id, created_at, source, part, archetype, fingerprint)
		VALUES (?, '2026-01-15T10:00:00.000000000Z', 'photo.png', 'cover_plate', 'plate', ?)
	`, runID, fingerprint)
	if err != nil {
		t.Fatalf("failed to insert run: %v", err)
	}
}

func getTableColumns(t *testing.T, db *sql.DB, table string) []string {
	t.Helper()

	rows, err := db.Query("PRAGMA table_info(" + table + ")")
	if err != nil {
		t.Fatalf("failed to get table info for %q: %v", table, err)
	}
	defer rows.Close()

	var columns []string
	for rows.Next() {
		var cid int
		var name, ctype string
		var notnull, pk int
		var dfltValue interface{}
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dfltValue, &pk); err != nil {
			t.Fatalf("failed to scan column info: %v", err)
		}
		columns = append(columns, name)
	}
	return columns
}

func getTableIndexes(t *testing.T, db *sql.DB, table string) []string {
	t.Helper()

	rows, err := db.Query("SELECT name FROM sqlite_master WHERE type='index' AND tbl_name=?", table)
	if err != nil {
		t.Fatalf("failed to get indexes for %q: %v", table, err)
	}
	defer rows.Close()

	var indexes []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			t.Fatalf("failed to scan index name: %v", err)
		}
		indexes = append(indexes, name)
	}
	return indexes
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
