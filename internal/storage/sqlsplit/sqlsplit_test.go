package sqlsplit

import (
	"testing"
)

func TestStatements(t *testing.T) {
	input := `-- header comment
CREATE TABLE a (x Int64) ENGINE = MergeTree ORDER BY x;

-- second
CREATE TABLE b (y String DEFAULT 'a;b -- c') ENGINE = MergeTree ORDER BY y; -- trailing
SELECT 'it''s';
`
	stmts := Statements(input)
	if len(stmts) != 3 {
		t.Fatalf("expected 3 statements, got %d: %q", len(stmts), stmts)
	}
	if stmts[0] != "CREATE TABLE a (x Int64) ENGINE = MergeTree ORDER BY x" {
		t.Errorf("unexpected first statement %q", stmts[0])
	}
	if stmts[1] != "CREATE TABLE b (y String DEFAULT 'a;b -- c') ENGINE = MergeTree ORDER BY y" {
		t.Errorf("quoted semicolon must not split, got %q", stmts[1])
	}
	if stmts[2] != "SELECT 'it''s'" {
		t.Errorf("escaped quote mishandled, got %q", stmts[2])
	}
}

func TestStatements_OnlyComments(t *testing.T) {
	if stmts := Statements("-- nothing here\n\n"); len(stmts) != 0 {
		t.Errorf("expected no statements, got %q", stmts)
	}
}

func TestStatements_NoTrailingSemicolon(t *testing.T) {
	stmts := Statements("SELECT 1;\nSELECT 2")
	if len(stmts) != 2 || stmts[1] != "SELECT 2" {
		t.Errorf("expected the unterminated tail kept, got %q", stmts)
	}
}
