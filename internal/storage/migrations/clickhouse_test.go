package migrations

import (
	"testing"

	"affect-lab/internal/storage/sqlsplit"
)

func TestDatabaseFromDSN(t *testing.T) {
	db, err := databaseFromDSN("clickhouse://localhost:9000/affect")
	if err != nil {
		t.Fatalf("databaseFromDSN: %v", err)
	}
	if db != "affect" {
		t.Errorf("expected affect, got %s", db)
	}

	if _, err := databaseFromDSN("clickhouse://localhost:9000"); err == nil {
		t.Error("expected error for dsn without database")
	}
}

func TestLoad_OrderedVersions(t *testing.T) {
	pg, err := load(postgresFS, "postgres")
	if err != nil {
		t.Fatalf("load postgres: %v", err)
	}
	want := []string{"001_readings", "002_daily_scalars", "003_emotion_labels", "004_ingest_progress"}
	if len(pg) != len(want) {
		t.Fatalf("expected %d migrations, got %d", len(want), len(pg))
	}
	for i, m := range pg {
		if m.Version != want[i] {
			t.Errorf("migration %d: expected %s, got %s", i, want[i], m.Version)
		}
	}

	ch, err := load(clickhouseFS, "clickhouse")
	if err != nil {
		t.Fatalf("load clickhouse: %v", err)
	}
	if len(ch) == 0 || len(sqlsplit.Statements(ch[0].SQL)) == 0 {
		t.Error("expected at least one clickhouse statement")
	}
}
