package wire

import (
	"bytes"
	"testing"
)

func TestWriteAndReadPacketRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	payload := []byte("hello")

	if err := writePacket(&buf, payload, 3); err != nil {
		t.Fatalf("writePacket: %v", err)
	}

	got, seq, err := readPacket(&buf)
	if err != nil {
		t.Fatalf("readPacket: %v", err)
	}
	if seq != 3 {
		t.Errorf("got seq %d, want 3", seq)
	}
	if !bytes.Equal(got, payload) {
		t.Errorf("got payload %q, want %q", got, payload)
	}
}

func TestLengthEncodedIntRoundTrip(t *testing.T) {
	for _, v := range []uint64{0, 1, 250, 251, 65535, 65536, 1 << 24, 1 << 40} {
		buf := appendLengthEncodedInt(nil, v)
		got, next, err := readLengthEncodedInt(buf, 0)
		if err != nil {
			t.Fatalf("readLengthEncodedInt(%d): %v", v, err)
		}
		if got != v {
			t.Errorf("round trip %d: got %d", v, got)
		}
		if next != len(buf) {
			t.Errorf("round trip %d: consumed %d of %d bytes", v, next, len(buf))
		}
	}
}

func TestLengthEncodedStringRoundTrip(t *testing.T) {
	buf := appendLengthEncodedString(nil, "user-data")
	got, next, err := readLengthEncodedString(buf, 0)
	if err != nil {
		t.Fatalf("readLengthEncodedString: %v", err)
	}
	if got != "user-data" {
		t.Errorf("got %q", got)
	}
	if next != len(buf) {
		t.Errorf("consumed %d of %d bytes", next, len(buf))
	}
}

func TestNullTerminatedStringRoundTrip(t *testing.T) {
	buf := appendNullTerminatedString(nil, "root")
	buf = append(buf, 0xff) // trailing byte after the terminator

	got, next, err := readNullTerminatedString(buf, 0)
	if err != nil {
		t.Fatalf("readNullTerminatedString: %v", err)
	}
	if got != "root" {
		t.Errorf("got %q", got)
	}
	if next != len(buf)-1 {
		t.Errorf("expected offset just past NUL, got %d", next)
	}
}

func TestSubstituteParamsQuotesStrings(t *testing.T) {
	stmts := newStatementTable()
	stmt := stmts.prepare("SELECT * FROM users WHERE id = ?")

	payload := []byte{comStmtExecute, 1, 0, 0, 0, 0, 1, 0, 0, 0}
	payload = append(payload, 0x00) // null bitmap, 1 bit -> 1 byte, not null
	payload = append(payload, 0x01) // new-params-bound = 1
	payload = append(payload, mysqlTypeVarchar, 0x00)
	payload = appendLengthEncodedString(payload, "u001")

	sql, err := substituteParams(stmt, payload, 10)
	if err != nil {
		t.Fatalf("substituteParams: %v", err)
	}
	want := "SELECT * FROM users WHERE id = 'u001'"
	if sql != want {
		t.Errorf("got %q, want %q", sql, want)
	}
}

func TestSubstituteParamsEscapesQuoteInValue(t *testing.T) {
	stmts := newStatementTable()
	stmt := stmts.prepare("SELECT * FROM users WHERE id = ?")

	payload := []byte{comStmtExecute, 1, 0, 0, 0, 0, 1, 0, 0, 0}
	payload = append(payload, 0x00)
	payload = append(payload, 0x01)
	payload = append(payload, mysqlTypeVarchar, 0x00)
	payload = appendLengthEncodedString(payload, "o'brien")

	sql, err := substituteParams(stmt, payload, 10)
	if err != nil {
		t.Fatalf("substituteParams: %v", err)
	}
	want := "SELECT * FROM users WHERE id = 'o''brien'"
	if sql != want {
		t.Errorf("got %q, want %q", sql, want)
	}
}
