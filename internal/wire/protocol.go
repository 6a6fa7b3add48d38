// Package wire implements enough of the MySQL client/server protocol to
// satisfy stock clients: handshake, command dispatch, and text-protocol
// result sets. It is grounded on the same packet framing
// JeelKantaria-db-bouncer's proxy uses (4-byte header, one command byte,
// length-encoded strings) hand-rolled rather than pulled in from a
// driver, since nothing here needs a real MySQL backend.
package wire

import (
	"encoding/binary"
	"fmt"
	"io"
)

// Command bytes, MySQL client/server protocol §14.6.3.
const (
	comQuit        byte = 0x01
	comInitDB      byte = 0x02
	comQuery       byte = 0x03
	comFieldList   byte = 0x04
	comPing        byte = 0x0e
	comStmtPrepare byte = 0x16
	comStmtExecute byte = 0x17
	comStmtClose   byte = 0x19
)

const (
	okPacketHeader  byte = 0x00
	eofPacketHeader byte = 0xfe
	errPacketHeader byte = 0xff
)

// readPacket reads one MySQL packet: a 3-byte little-endian length
// followed by a 1-byte sequence number, then that many payload bytes.
func readPacket(r io.Reader) ([]byte, byte, error) {
	var header [4]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, 0, err
	}

	length := int(header[0]) | int(header[1])<<8 | int(header[2])<<16
	seq := header[3]

	payload := make([]byte, length)
	if length > 0 {
		if _, err := io.ReadFull(r, payload); err != nil {
			return nil, 0, err
		}
	}

	return payload, seq, nil
}

// writePacket frames payload with the 4-byte MySQL packet header and
// writes it in a single call.
func writePacket(w io.Writer, payload []byte, seq byte) error {
	length := len(payload)
	buf := make([]byte, 4+length)
	buf[0] = byte(length)
	buf[1] = byte(length >> 8)
	buf[2] = byte(length >> 16)
	buf[3] = seq
	copy(buf[4:], payload)

	_, err := w.Write(buf)
	return err
}

// writeOKPacket writes the text-protocol OK packet with no affected
// rows and no warnings.
func writeOKPacket(w io.Writer, seq byte) error {
	payload := []byte{
		okPacketHeader,
		0x00,       // affected rows, length-encoded 0
		0x00,       // last insert id, length-encoded 0
		0x02, 0x00, // status flags: SERVER_STATUS_AUTOCOMMIT
		0x00, 0x00, // warnings
	}
	return writePacket(w, payload, seq)
}

// writeErrPacket writes a protocol-level ERR packet. The adapter never
// sends this for query-level rejections; it exists only for unrecoverable
// framing problems that must still produce a well-formed response
// before the connection is dropped.
func writeErrPacket(w io.Writer, seq byte, code uint16, message string) error {
	buf := []byte{errPacketHeader}
	buf = appendUint16(buf, code)
	buf = append(buf, '#')
	buf = append(buf, []byte("HY000")...)
	buf = append(buf, []byte(message)...)
	return writePacket(w, buf, seq)
}

func appendUint16(buf []byte, v uint16) []byte {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	return append(buf, b[:]...)
}

func appendUint32(buf []byte, v uint32) []byte {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	return append(buf, b[:]...)
}

// appendLengthEncodedInt appends a MySQL length-encoded integer.
func appendLengthEncodedInt(buf []byte, v uint64) []byte {
	switch {
	case v < 251:
		return append(buf, byte(v))
	case v < 1<<16:
		buf = append(buf, 0xfc)
		return appendUint16(buf, uint16(v))
	case v < 1<<24:
		buf = append(buf, 0xfd)
		return append(buf, byte(v), byte(v>>8), byte(v>>16))
	default:
		buf = append(buf, 0xfe)
		var b [8]byte
		binary.LittleEndian.PutUint64(b[:], v)
		return append(buf, b[:]...)
	}
}

// appendLengthEncodedString appends a length-encoded string: its byte
// length as a length-encoded int, followed by the raw bytes.
func appendLengthEncodedString(buf []byte, s string) []byte {
	buf = appendLengthEncodedInt(buf, uint64(len(s)))
	return append(buf, s...)
}

// appendNullTerminatedString appends s followed by a NUL byte.
func appendNullTerminatedString(buf []byte, s string) []byte {
	buf = append(buf, s...)
	return append(buf, 0x00)
}

// readNullTerminatedString reads bytes from buf starting at offset up
// to (not including) the next NUL byte, returning the string and the
// offset just past the NUL.
func readNullTerminatedString(buf []byte, offset int) (string, int, error) {
	idx := offset
	for idx < len(buf) && buf[idx] != 0x00 {
		idx++
	}
	if idx >= len(buf) {
		return "", 0, fmt.Errorf("wire: unterminated string at offset %d", offset)
	}
	return string(buf[offset:idx]), idx + 1, nil
}

// readLengthEncodedInt decodes a MySQL length-encoded integer starting
// at offset, returning its value and the offset just past it.
func readLengthEncodedInt(buf []byte, offset int) (uint64, int, error) {
	if offset >= len(buf) {
		return 0, 0, fmt.Errorf("wire: length-encoded int out of bounds at %d", offset)
	}

	first := buf[offset]
	switch {
	case first < 0xfb:
		return uint64(first), offset + 1, nil
	case first == 0xfc:
		if offset+3 > len(buf) {
			return 0, 0, fmt.Errorf("wire: truncated 2-byte length-encoded int")
		}
		return uint64(binary.LittleEndian.Uint16(buf[offset+1 : offset+3])), offset + 3, nil
	case first == 0xfd:
		if offset+4 > len(buf) {
			return 0, 0, fmt.Errorf("wire: truncated 3-byte length-encoded int")
		}
		v := uint64(buf[offset+1]) | uint64(buf[offset+2])<<8 | uint64(buf[offset+3])<<16
		return v, offset + 4, nil
	case first == 0xfe:
		if offset+9 > len(buf) {
			return 0, 0, fmt.Errorf("wire: truncated 8-byte length-encoded int")
		}
		return binary.LittleEndian.Uint64(buf[offset+1 : offset+9]), offset + 9, nil
	default:
		return 0, 0, fmt.Errorf("wire: invalid length-encoded int marker 0x%x", first)
	}
}

// readLengthEncodedString decodes a length-encoded string starting at
// offset, returning its value and the offset just past it.
func readLengthEncodedString(buf []byte, offset int) (string, int, error) {
	length, next, err := readLengthEncodedInt(buf, offset)
	if err != nil {
		return "", 0, err
	}
	end := next + int(length)
	if end > len(buf) {
		return "", 0, fmt.Errorf("wire: length-encoded string out of bounds")
	}
	return string(buf[next:end]), end, nil
}
