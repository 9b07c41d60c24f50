package pgwire

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
)

// Frame lengths are client-controlled, so cap them before allocating a
// payload buffer.
const maxMessageSize = 1 << 24 // 16 MiB

// StartupKind classifies the initial untyped message on a connection.
type StartupKind int

const (
	StartupNew    StartupKind = iota // protocol 3.0 startup
	StartupSSL                       // SSLRequest; answer the negotiation, read again
	StartupCancel                    // CancelRequest targeting another backend
)

// Reader reads PostgreSQL wire protocol messages from a connection.
type Reader struct {
	r *bufio.Reader
}

// NewReader wraps an io.Reader for reading PG protocol messages.
func NewReader(r io.Reader) *Reader {
	return &Reader{r: bufio.NewReader(r)}
}

// readFrame reads one length-prefixed frame body. The length field counts
// itself, so the body is length-4 bytes; min is the smallest frame the
// caller can accept.
func (r *Reader) readFrame(min int32) ([]byte, error) {
	var head [4]byte
	if _, err := io.ReadFull(r.r, head[:]); err != nil {
		return nil, err
	}
	length := int32(binary.BigEndian.Uint32(head[:]))
	if length < min {
		return nil, fmt.Errorf("frame length %d below minimum %d", length, min)
	}
	if length > maxMessageSize {
		return nil, fmt.Errorf("frame length %d exceeds limit", length)
	}
	body := make([]byte, length-4)
	if _, err := io.ReadFull(r.r, body); err != nil {
		return nil, fmt.Errorf("read frame body: %w", err)
	}
	return body, nil
}

// ReadStartup reads and classifies the initial untyped message. msg is set
// only for StartupNew; after StartupSSL the caller refuses (or accepts) the
// negotiation and calls ReadStartup again.
func (r *Reader) ReadStartup() (msg *StartupMessage, kind StartupKind, err error) {
	body, err := r.readFrame(8)
	if err != nil {
		return nil, StartupNew, fmt.Errorf("startup: %w", err)
	}

	c := &cursor{b: body}
	code, err := c.int32()
	if err != nil {
		return nil, StartupNew, fmt.Errorf("startup: %w", err)
	}
	switch code {
	case SSLRequestCode:
		return nil, StartupSSL, nil
	case CancelRequestCode:
		return nil, StartupCancel, nil
	}
	if code != ProtocolVersion {
		return nil, StartupNew, fmt.Errorf("unsupported protocol version %d.%d",
			code>>16, code&0xFFFF)
	}

	msg = &StartupMessage{
		ProtocolVersion: code,
		Parameters:      make(map[string]string),
	}
	// Key/value pairs, closed by one empty key.
	for len(c.b) > 1 {
		key, err := c.cstring()
		if err != nil {
			return nil, StartupNew, fmt.Errorf("startup parameters: %w", err)
		}
		if key == "" {
			break
		}
		value, err := c.cstring()
		if err != nil {
			return nil, StartupNew, fmt.Errorf("startup parameters: %w", err)
		}
		msg.Parameters[key] = value
	}
	return msg, StartupNew, nil
}

// ReadMessage reads a typed message: 1-byte type, int32 length, payload.
func (r *Reader) ReadMessage() (msgType byte, payload []byte, err error) {
	msgType, err = r.r.ReadByte()
	if err != nil {
		return 0, nil, err
	}
	payload, err = r.readFrame(4)
	if err != nil {
		return 0, nil, fmt.Errorf("message '%c': %w", msgType, err)
	}
	return msgType, payload, nil
}
