package wire

import (
	"fmt"
	"strconv"
	"strings"
)

// preparedStatement holds the text a COM_STMT_PREPARE call registered,
// with '?' placeholders later substituted by COM_STMT_EXECUTE.
type preparedStatement struct {
	id      uint32
	text    string
	numArgs int
}

// statementTable tracks prepared statements for the lifetime of one
// connection; each connection's IDs start at 1, and statements are never
// shared across connections.
type statementTable struct {
	next  uint32
	stmts map[uint32]*preparedStatement
}

func newStatementTable() *statementTable {
	return &statementTable{stmts: make(map[uint32]*preparedStatement)}
}

func (t *statementTable) prepare(text string) *preparedStatement {
	t.next++
	stmt := &preparedStatement{
		id:      t.next,
		text:    text,
		numArgs: strings.Count(text, "?"),
	}
	t.stmts[stmt.id] = stmt
	return stmt
}

func (t *statementTable) get(id uint32) (*preparedStatement, bool) {
	stmt, ok := t.stmts[id]
	return stmt, ok
}

func (t *statementTable) close(id uint32) {
	delete(t.stmts, id)
}

// mysqlTypeString/Long/LongLong/Null are the handful of
// COM_STMT_EXECUTE binary parameter types this adapter needs to
// decode; the classifier only ever accepts quoted string literals, so
// numeric parameters, which are rendered bare, classify as Rejected.
const (
	mysqlTypeString   byte = 0xfe
	mysqlTypeVarchar  byte = 0x0f
	mysqlTypeLong     byte = 0x03
	mysqlTypeLongLong byte = 0x08
	mysqlTypeNull     byte = 0x06
)

// substituteParams parses the COM_STMT_EXECUTE parameter block, which
// starts at offset in payload (just past the leading command byte,
// statement ID, flags, and iteration count), and substitutes the decoded parameters into stmt's text, quoting string
// values the way a hand-written query would be quoted.
func substituteParams(stmt *preparedStatement, payload []byte, offset int) (string, error) {
	if stmt.numArgs == 0 {
		return stmt.text, nil
	}

	nullBitmapLen := (stmt.numArgs + 7) / 8
	if offset+nullBitmapLen+1 > len(payload) {
		return "", fmt.Errorf("wire: truncated stmt-execute null bitmap")
	}
	nullBitmap := payload[offset : offset+nullBitmapLen]
	offset += nullBitmapLen

	newParamsBound := payload[offset]
	offset++

	types := make([]byte, stmt.numArgs)
	if newParamsBound == 1 {
		for i := 0; i < stmt.numArgs; i++ {
			if offset+2 > len(payload) {
				return "", fmt.Errorf("wire: truncated stmt-execute param types")
			}
			types[i] = payload[offset]
			offset += 2
		}
	}

	values := make([]string, stmt.numArgs)
	for i := 0; i < stmt.numArgs; i++ {
		if isParamNull(nullBitmap, i) {
			values[i] = "NULL"
			continue
		}

		var err error
		values[i], offset, err = decodeParam(payload, offset, types[i])
		if err != nil {
			return "", err
		}
	}

	return substitutePlaceholders(stmt.text, values), nil
}

func isParamNull(bitmap []byte, i int) bool {
	byteIdx := i / 8
	bitIdx := uint(i % 8)
	if byteIdx >= len(bitmap) {
		return false
	}
	return bitmap[byteIdx]&(1<<bitIdx) != 0
}

func decodeParam(payload []byte, offset int, typ byte) (string, int, error) {
	switch typ {
	case mysqlTypeString, mysqlTypeVarchar, mysqlTypeVarString:
		s, next, err := readLengthEncodedString(payload, offset)
		if err != nil {
			return "", 0, err
		}
		return quoteLiteral(s), next, nil
	case mysqlTypeLong:
		if offset+4 > len(payload) {
			return "", 0, fmt.Errorf("wire: truncated int param")
		}
		v := int32(uint32(payload[offset]) | uint32(payload[offset+1])<<8 | uint32(payload[offset+2])<<16 | uint32(payload[offset+3])<<24)
		return strconv.FormatInt(int64(v), 10), offset + 4, nil
	case mysqlTypeLongLong:
		if offset+8 > len(payload) {
			return "", 0, fmt.Errorf("wire: truncated bigint param")
		}
		var v int64
		for i := 7; i >= 0; i-- {
			v = v<<8 | int64(payload[offset+i])
		}
		return strconv.FormatInt(v, 10), offset + 8, nil
	case mysqlTypeNull:
		return "NULL", offset, nil
	default:
		s, next, err := readLengthEncodedString(payload, offset)
		if err != nil {
			return "", 0, err
		}
		return quoteLiteral(s), next, nil
	}
}

// quoteLiteral wraps s in single quotes, escaping embedded single
// quotes by doubling them so the substituted text still parses as one
// literal under the classifier's own unescaping rules.
func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

func substitutePlaceholders(text string, values []string) string {
	var b strings.Builder
	vi := 0
	for i := 0; i < len(text); i++ {
		if text[i] == '?' && vi < len(values) {
			b.WriteString(values[vi])
			vi++
			continue
		}
		b.WriteByte(text[i])
	}
	return b.String()
}
