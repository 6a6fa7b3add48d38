package wire

import (
	"io"

	"mysqlredisd/internal/executor"
)

// mysqlTypeVarString is the column type used for every projected
// column; every value this adapter ever returns is text.
const mysqlTypeVarString byte = 0xfd

// writeResultSet encodes a ResultSet onto w using the MySQL text
// protocol, starting sequence numbers at startSeq and returning the
// next unused sequence number.
func writeResultSet(w io.Writer, rs executor.ResultSet, startSeq byte) (byte, error) {
	seq := startSeq

	if rs.OK {
		if err := writeOKPacket(w, seq); err != nil {
			return seq, err
		}
		return seq + 1, nil
	}

	countPayload := appendLengthEncodedInt(nil, uint64(len(rs.Columns)))
	if err := writePacket(w, countPayload, seq); err != nil {
		return seq, err
	}
	seq++

	for _, col := range rs.Columns {
		if err := writeColumnDefinition(w, seq, col); err != nil {
			return seq, err
		}
		seq++
	}

	if err := writeEOFPacket(w, seq); err != nil {
		return seq, err
	}
	seq++

	for _, row := range rs.Rows {
		if err := writeRow(w, seq, row); err != nil {
			return seq, err
		}
		seq++
	}

	if err := writeEOFPacket(w, seq); err != nil {
		return seq, err
	}
	seq++

	return seq, nil
}

// writeColumnDefinition writes a Protocol::ColumnDefinition41 packet
// naming a single text column.
func writeColumnDefinition(w io.Writer, seq byte, name string) error {
	buf := make([]byte, 0, 64)
	buf = appendLengthEncodedString(buf, "def")
	buf = appendLengthEncodedString(buf, "")   // schema
	buf = appendLengthEncodedString(buf, "")   // table
	buf = appendLengthEncodedString(buf, "")   // org_table
	buf = appendLengthEncodedString(buf, name) // name
	buf = appendLengthEncodedString(buf, name) // org_name
	buf = append(buf, 0x0c)                    // length of fixed fields
	buf = appendUint16(buf, 0x21)               // charset utf8_general_ci
	buf = appendUint32(buf, 1024)                // column length
	buf = append(buf, mysqlTypeVarString)
	buf = appendUint16(buf, 0x0000) // flags
	buf = append(buf, 0x00)         // decimals
	buf = appendUint16(buf, 0x0000) // filler

	return writePacket(w, buf, seq)
}

func writeEOFPacket(w io.Writer, seq byte) error {
	payload := []byte{eofPacketHeader, 0x00, 0x00, 0x02, 0x00}
	return writePacket(w, payload, seq)
}

// writeRow writes one text-protocol row: each column is a
// length-encoded string, or 0xfb for SQL NULL.
func writeRow(w io.Writer, seq byte, row []executor.Value) error {
	buf := make([]byte, 0, 64)
	for _, v := range row {
		if v.IsNull() {
			buf = append(buf, 0xfb)
			continue
		}
		buf = appendLengthEncodedString(buf, v.Text())
	}
	return writePacket(w, buf, seq)
}

// writeFieldList answers COM_FIELD_LIST with column definitions for
// the users table followed by an EOF and no rows.
func writeFieldList(w io.Writer, startSeq byte, columns []string) (byte, error) {
	seq := startSeq
	for _, col := range columns {
		if err := writeColumnDefinition(w, seq, col); err != nil {
			return seq, err
		}
		seq++
	}
	if err := writeEOFPacket(w, seq); err != nil {
		return seq, err
	}
	return seq + 1, nil
}
