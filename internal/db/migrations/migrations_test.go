package migrations

import (
	"strings"
	"testing"
)

func TestSchemasDeclareSlugConstraint(t *testing.T) {
	for name, schema := range map[string]string{
		"postgres": PostgresSchema(),
		"sqlite":   SQLiteSchema(),
	} {
		t.Run(name, func(t *testing.T) {
			if !strings.Contains(schema, "links_slug_unique") {
				t.Error("schema is missing the links_slug_unique constraint")
			}
			if !strings.Contains(schema, "links_owner_id_created_at_idx") {
				t.Error("schema is missing the owner index")
			}
		})
	}
}

func TestStatements(t *testing.T) {
	got := statements("CREATE TABLE a (x INT);\n\n  CREATE INDEX b ON a (x);\n")
	if len(got) != 2 {
		t.Fatalf("statements() returned %d entries, want 2: %q", len(got), got)
	}
	if got[0] != "CREATE TABLE a (x INT)" {
		t.Errorf("statements()[0] = %q", got[0])
	}
	if got[1] != "CREATE INDEX b ON a (x)" {
		t.Errorf("statements()[1] = %q", got[1])
	}

	if n := len(statements(SQLiteSchema())); n != 2 {
		t.Errorf("sqlite schema split into %d statements, want 2", n)
	}
}
