package executor

import (
	"context"
	"testing"
	"time"

	"mysqlredisd/internal/classifier"
	"mysqlredisd/internal/store"
)

func cellText(t *testing.T, v Value) string {
	t.Helper()
	if v.IsNull() {
		return "<NULL>"
	}
	return v.Text()
}

func TestExecVersion(t *testing.T) {
	e := New(store.NewMemoryClient(), 100, nil)
	rs := e.Execute(context.Background(), classifier.Result{Kind: classifier.Version}, "127.0.0.1")
	if len(rs.Rows) != 1 || rs.Rows[0][0].Text() != classifier.ServerVersion() {
		t.Fatalf("unexpected version result: %+v", rs)
	}
}

func TestExecPkLookupFound(t *testing.T) {
	mem := store.NewMemoryClient()
	mem.Seed("users.u001", `{"name":"Alice","email":"alice@example.com","age":28,"created_at":"2024-01-15 10:30:00"}`)

	e := New(mem, 100, nil)
	rs := e.Execute(context.Background(), classifier.Result{Kind: classifier.PkLookup, Table: "users", Column: "id", Value: "u001"}, "127.0.0.1")

	if len(rs.Rows) != 1 {
		t.Fatalf("expected one row, got %d", len(rs.Rows))
	}
	row := rs.Rows[0]
	want := []string{"u001", "Alice", "alice@example.com", "28", "2024-01-15 10:30:00"}
	for i, w := range want {
		if cellText(t, row[i]) != w {
			t.Errorf("column %d: got %q want %q", i, cellText(t, row[i]), w)
		}
	}
}

func TestExecPkLookupNullAge(t *testing.T) {
	mem := store.NewMemoryClient()
	mem.Seed("users.u005", `{"name":"Eve","email":"eve@example.com","age":null,"created_at":"2024-01-15 10:30:00"}`)

	e := New(mem, 100, nil)
	rs := e.Execute(context.Background(), classifier.Result{Kind: classifier.PkLookup, Value: "u005"}, "127.0.0.1")

	if len(rs.Rows) != 1 {
		t.Fatalf("expected one row, got %d", len(rs.Rows))
	}
	if !rs.Rows[0][3].IsNull() {
		t.Errorf("expected age to be NULL, got %q", rs.Rows[0][3].Text())
	}
}

func TestExecPkLookupMissing(t *testing.T) {
	e := New(store.NewMemoryClient(), 100, nil)
	rs := e.Execute(context.Background(), classifier.Result{Kind: classifier.PkLookup, Value: "nope"}, "127.0.0.1")
	if len(rs.Rows) != 0 {
		t.Errorf("expected zero rows for missing key, got %d", len(rs.Rows))
	}
}

func TestExecFullScanRespectsLimit(t *testing.T) {
	mem := store.NewMemoryClient()
	for i := 1; i <= 5; i++ {
		mem.Seed(
			"users.u00"+string(rune('0'+i)),
			`{"name":"n","email":"e","age":1,"created_at":"2024-01-01 00:00:00"}`,
		)
	}

	e := New(mem, 3, nil)
	rs := e.Execute(context.Background(), classifier.Result{Kind: classifier.FullScan, Table: "users"}, "127.0.0.1")

	if len(rs.Rows) != 3 {
		t.Fatalf("expected scan-limit 3 rows, got %d", len(rs.Rows))
	}
}

func TestExecFullScanDisabledWhenLimitZero(t *testing.T) {
	mem := store.NewMemoryClient()
	mem.Seed("users.u001", `{"name":"n","email":"e","age":1,"created_at":"x"}`)

	e := New(mem, 0, nil)
	rs := e.Execute(context.Background(), classifier.Result{Kind: classifier.FullScan, Table: "users"}, "127.0.0.1")

	if len(rs.Rows) != 0 {
		t.Fatalf("expected zero rows when scan-limit is 0, got %d", len(rs.Rows))
	}
}

func TestExecTokenVerifyConsumesOnce(t *testing.T) {
	mem := store.NewMemoryClient()
	mem.SeedTTL("auth:abc123", `{"user_id":"u001","facility":"fac-tokyo"}`, 30*time.Second)

	e := New(mem, 100, nil)
	ctx := context.Background()

	first := e.Execute(ctx, classifier.Result{Kind: classifier.TokenVerify, Token: "abc123"}, "127.0.0.1")
	if len(first.Rows) != 1 {
		t.Fatalf("expected one row on first verify, got %d", len(first.Rows))
	}
	if first.Rows[0][0].Text() != "1" || first.Rows[0][1].Text() != "u001" || first.Rows[0][2].Text() != "fac-tokyo" {
		t.Errorf("unexpected row: %+v", first.Rows[0])
	}

	second := e.Execute(ctx, classifier.Result{Kind: classifier.TokenVerify, Token: "abc123"}, "127.0.0.1")
	if len(second.Rows) != 0 {
		t.Fatalf("expected zero rows on second verify, got %d", len(second.Rows))
	}
}

func TestExecTokenVerifyConcurrentExactlyOnce(t *testing.T) {
	mem := store.NewMemoryClient()
	mem.SeedTTL("auth:tok", `{"user_id":"u001","facility":"f"}`, 30*time.Second)

	e := New(mem, 100, nil)
	ctx := context.Background()

	const n = 20
	results := make(chan int, n)
	for i := 0; i < n; i++ {
		go func() {
			rs := e.Execute(ctx, classifier.Result{Kind: classifier.TokenVerify, Token: "tok"}, "127.0.0.1")
			results <- len(rs.Rows)
		}()
	}

	total := 0
	for i := 0; i < n; i++ {
		total += <-results
	}
	if total != 1 {
		t.Fatalf("expected exactly one successful verification across %d callers, got %d", n, total)
	}
}

func TestExecNoop(t *testing.T) {
	e := New(store.NewMemoryClient(), 100, nil)
	rs := e.Execute(context.Background(), classifier.Result{Kind: classifier.Noop}, "127.0.0.1")
	if !rs.OK {
		t.Errorf("expected OK result for Noop")
	}
}

func TestExecRejected(t *testing.T) {
	e := New(store.NewMemoryClient(), 100, nil)
	rs := e.Execute(context.Background(), classifier.Result{Kind: classifier.Rejected}, "127.0.0.1")
	if len(rs.Rows) != 0 {
		t.Errorf("expected empty result for Rejected, got %d rows", len(rs.Rows))
	}
}
