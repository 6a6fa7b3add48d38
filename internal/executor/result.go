package executor

// Value is a single result-set cell. The zero Value is SQL NULL; otherwise
// it holds the cell's text-protocol representation, already formatted
// the way the wire layer writes it onto the socket.
type Value struct {
	valid bool
	text  string
}

// IsNull reports whether the cell is SQL NULL.
func (v Value) IsNull() bool { return !v.valid }

// Text returns the cell's text-protocol representation. Callers must
// check IsNull first; Text of a NULL value is the empty string.
func (v Value) Text() string { return v.text }

func str(s string) Value { return Value{valid: true, text: s} }

func null() Value { return Value{} }

// ResultSet is what the wire layer encodes onto the socket: either an
// OK (no rows, no columns) or a set of named columns with rows.
type ResultSet struct {
	Columns []string
	Rows    [][]Value

	// OK marks a bare acknowledgement with no rows (Noop.4).
	OK bool
}

func okResult() ResultSet {
	return ResultSet{OK: true}
}

func emptyResult(columns []string) ResultSet {
	return ResultSet{Columns: columns}
}
