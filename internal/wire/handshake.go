package wire

import (
	"io"
)

const serverVersionString = "8.0.36-mini-mysql-redis"

// Capability flags, MySQL client/server protocol §14.1.3.1. Only the
// ones the handshake itself needs to reason about are named.
const (
	clientLongPassword    uint32 = 0x00000001
	clientConnectWithDB   uint32 = 0x00000008
	clientProtocol41      uint32 = 0x00000200
	clientSecureConn      uint32 = 0x00008000
	clientPluginAuth      uint32 = 0x00080000
	clientPluginAuthData  uint32 = 0x00200000
)

const serverCapabilities uint32 = clientLongPassword | clientProtocol41 | clientSecureConn | clientPluginAuth

const authPluginName = "mysql_native_password"

// sendHandshake writes a Protocol::Handshake v10 greeting advertising
// serverVersionString and capabilities sufficient to complete a
// connection with any credentials.
func sendHandshake(w io.Writer, connectionID uint32) error {
	payload := make([]byte, 0, 64)
	payload = append(payload, 0x0a) // protocol version 10
	payload = appendNullTerminatedString(payload, serverVersionString)
	payload = appendUint32(payload, connectionID)

	authPluginData := authChallenge()
	payload = append(payload, authPluginData[:8]...)
	payload = append(payload, 0x00) // filler

	payload = appendUint16(payload, uint16(serverCapabilities&0xffff))
	payload = append(payload, 0x21) // charset: utf8_general_ci (33)
	payload = appendUint16(payload, 0x0002)
	payload = appendUint16(payload, uint16(serverCapabilities>>16))
	payload = append(payload, byte(len(authPluginData)+1))
	payload = append(payload, make([]byte, 10)...) // reserved

	payload = append(payload, authPluginData[8:]...)
	payload = append(payload, 0x00)

	payload = appendNullTerminatedString(payload, authPluginName)

	return writePacket(w, payload, 0)
}

// authChallenge returns a fixed 20-byte auth-plugin-data value. Since
// the adapter accepts any credentials, its content never needs to be
// unpredictable; it exists only to satisfy clients that expect the
// field to be present and correctly sized.
func authChallenge() []byte {
	return []byte("0123456789ABCDEFGHIJ")[:20]
}

// handshakeResponse holds the fields of the client's response this
// adapter actually needs.
type handshakeResponse struct {
	database string
}

// readHandshakeResponse parses a HandshakeResponse41 packet, ignoring
// the supplied username and auth response entirely: the deployment
// model is a trusted private network and any credentials are accepted.
func readHandshakeResponse(r io.Reader) (handshakeResponse, error) {
	payload, _, err := readPacket(r)
	if err != nil {
		return handshakeResponse{}, err
	}
	if len(payload) < 32 {
		return handshakeResponse{}, io.ErrUnexpectedEOF
	}

	clientFlags := uint32(payload[0]) | uint32(payload[1])<<8 | uint32(payload[2])<<16 | uint32(payload[3])<<24

	offset := 32
	_, offset, err = readNullTerminatedString(payload, offset)
	if err != nil {
		return handshakeResponse{}, err
	}

	switch {
	case clientFlags&clientPluginAuthData != 0:
		authLen, next, err := readLengthEncodedInt(payload, offset)
		if err != nil {
			return handshakeResponse{}, err
		}
		offset = next + int(authLen)
	case clientFlags&clientSecureConn != 0:
		if offset >= len(payload) {
			return handshakeResponse{}, io.ErrUnexpectedEOF
		}
		authLen := int(payload[offset])
		offset += 1 + authLen
	default:
		_, offset, err = readNullTerminatedString(payload, offset)
		if err != nil {
			return handshakeResponse{}, err
		}
	}

	var database string
	if clientFlags&clientConnectWithDB != 0 && offset < len(payload) {
		database, _, err = readNullTerminatedString(payload, offset)
		if err != nil {
			return handshakeResponse{}, err
		}
	}

	return handshakeResponse{database: database}, nil
}
