package classifier

import "testing"

func TestClassifyWhitelistedForms(t *testing.T) {
	tests := []struct {
		name string
		sql  string
		want Kind
	}{
		{"version", "SELECT @@version", Version},
		{"version trailing semicolon", "select @@version;", Version},
		{"show tables", "SHOW TABLES", ShowTables},
		{"describe", "DESCRIBE users", DescribeUsers},
		{"desc short form", "desc users", DescribeUsers},
		{"pk lookup", "SELECT * FROM users WHERE id = 'u001';", PkLookup},
		{"full scan", "SELECT * FROM users", FullScan},
		{"token verify", "SELECT qr_verify('abc123')", TokenVerify},
		{"set chatter", "SET NAMES utf8mb4", Noop},
		{"use chatter", "USE mydb", Noop},
		{"show variables", "SHOW VARIABLES LIKE 'autocommit'", Noop},
		{"select one", "SELECT 1", Noop},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.sql, true)
			if got.Kind != tt.want {
				t.Errorf("Classify(%q) = %v, want %v", tt.sql, got.Kind, tt.want)
			}
		})
	}
}

func TestClassifyPkLookupExtractsValue(t *testing.T) {
	got := Classify("SELECT * FROM users WHERE id = 'u001'", true)
	if got.Kind != PkLookup {
		t.Fatalf("expected PkLookup, got %v", got.Kind)
	}
	if got.Table != "users" || got.Column != "id" || got.Value != "u001" {
		t.Errorf("unexpected fields: %+v", got)
	}
}

func TestClassifyTokenVerifyExtractsToken(t *testing.T) {
	got := Classify("SELECT qr_verify('abc-123_xyz')", true)
	if got.Kind != TokenVerify {
		t.Fatalf("expected TokenVerify, got %v", got.Kind)
	}
	if got.Token != "abc-123_xyz" {
		t.Errorf("got token %q", got.Token)
	}
}

func TestClassifyUnescapesLiteral(t *testing.T) {
	got := Classify(`SELECT * FROM users WHERE id = 'o''brien'`, true)
	if got.Kind != PkLookup {
		t.Fatalf("expected PkLookup, got %v", got.Kind)
	}
	if got.Value != "o'brien" {
		t.Errorf("got value %q, want o'brien", got.Value)
	}
}

func TestClassifyFullScanRejectedWhenDisallowed(t *testing.T) {
	got := Classify("SELECT * FROM users", false)
	if got.Kind != Rejected {
		t.Errorf("expected Rejected when allowScan is false, got %v", got.Kind)
	}
}

// TestClassifyRejectsForbiddenTokens covers spec's property that any SQL
// text containing a rejection-set token anywhere outside a string literal
// is Rejected. The session-chatter Noop forms (SET, USE, SHOW VARIABLES,
// SELECT 1) are matched before that scan, so they are not covered here.
func TestClassifyRejectsForbiddenTokens(t *testing.T) {
	forbidden := []string{
		"SELECT * FROM users WHERE id = 'u001' AND name = 'Alice'",
		"SELECT * FROM users WHERE id = 'u001' OR id = 'u002'",
		"SELECT * FROM users WHERE name LIKE '%a%'",
		"SELECT * FROM users WHERE id IN ('u001', 'u002')",
		"SELECT * FROM users JOIN tokens ON users.id = tokens.user_id",
		"SELECT * FROM users ORDER BY name",
		"SELECT * FROM users GROUP BY name",
		"SELECT * FROM users LIMIT 10",
		"SELECT * FROM users OFFSET 5",
		"SELECT * FROM users UNION SELECT * FROM auth",
		"SELECT * FROM users WHERE id = (SELECT id FROM users)",
		"INSERT INTO users VALUES ('u001', 'Alice')",
		"UPDATE users SET name = 'Bob' WHERE id = 'u001'",
		"DELETE FROM users WHERE id = 'u001'",
		"REPLACE INTO users VALUES ('u001', 'Alice')",
		"CREATE TABLE foo (id INT)",
		"DROP TABLE users",
		"ALTER TABLE users ADD COLUMN x INT",
		"TRUNCATE TABLE users",
		"GRANT ALL ON users TO 'x'",
		"REVOKE ALL ON users FROM 'x'",
		"SELECT * FROM users WHERE id > 'u001'",
		"SELECT * FROM users WHERE id != 'u001'",
		"SELECT id, name FROM users",
		"SELECT now()",
	}

	for _, sql := range forbidden {
		got := Classify(sql, true)
		if got.Kind != Rejected {
			t.Errorf("Classify(%q) = %v, want Rejected", sql, got.Kind)
		}
	}
}

func TestClassifyForbiddenWordInsideLiteralStillRejectedByShape(t *testing.T) {
	// "AND" inside the literal must not by itself force rejection via the
	// keyword scan, but this text still does not match any whitelisted
	// shape (extra trailing text), so it is Rejected regardless.
	got := Classify("SELECT * FROM users WHERE id = 'rock AND roll' extra", true)
	if got.Kind != Rejected {
		t.Errorf("expected Rejected, got %v", got.Kind)
	}
}

func TestClassifyLiteralContainingKeywordDoesNotBlockPkLookup(t *testing.T) {
	got := Classify("SELECT * FROM users WHERE id = 'order'", true)
	if got.Kind != PkLookup {
		t.Errorf("literal text resembling a keyword must not force rejection, got %v", got.Kind)
	}
	if got.Value != "order" {
		t.Errorf("got value %q", got.Value)
	}
}

func TestClassifyEmptyAndGarbage(t *testing.T) {
	for _, sql := range []string{"", "   ", ";", "not sql at all"} {
		if got := Classify(sql, true); got.Kind != Rejected {
			t.Errorf("Classify(%q) = %v, want Rejected", sql, got.Kind)
		}
	}
}
