package pgwire

import (
	"encoding/binary"
	"fmt"
)

// ParseMessage is a decoded frontend Parse ('P') payload.
type ParseMessage struct {
	Name      string // prepared statement name, "" = unnamed
	Query     string
	ParamOIDs []int32 // declared parameter types, 0 = unspecified
}

// BindMessage is a decoded frontend Bind ('B') payload.
type BindMessage struct {
	Portal        string
	Statement     string
	ParamFormats  []int16
	Params        [][]byte // nil element = NULL
	ResultFormats []int16
}

// DescribeMessage is a decoded frontend Describe ('D') payload.
type DescribeMessage struct {
	Kind byte // TargetStatement or TargetPortal
	Name string
}

// ExecuteMessage is a decoded frontend Execute ('E') payload.
type ExecuteMessage struct {
	Portal  string
	MaxRows int32 // 0 = no limit
}

// CloseMessage is a decoded frontend Close ('C') payload.
type CloseMessage struct {
	Kind byte
	Name string
}

// cursor is a small helper for walking a message payload.
type cursor struct {
	b []byte
}

func (c *cursor) cstring() (string, error) {
	for i, ch := range c.b {
		if ch == 0 {
			s := string(c.b[:i])
			c.b = c.b[i+1:]
			return s, nil
		}
	}
	return "", fmt.Errorf("unterminated string")
}

func (c *cursor) int16() (int16, error) {
	if len(c.b) < 2 {
		return 0, fmt.Errorf("truncated int16")
	}
	v := int16(binary.BigEndian.Uint16(c.b))
	c.b = c.b[2:]
	return v, nil
}

func (c *cursor) int32() (int32, error) {
	if len(c.b) < 4 {
		return 0, fmt.Errorf("truncated int32")
	}
	v := int32(binary.BigEndian.Uint32(c.b))
	c.b = c.b[4:]
	return v, nil
}

func (c *cursor) bytes(n int) ([]byte, error) {
	if n < 0 || len(c.b) < n {
		return nil, fmt.Errorf("truncated byte field of length %d", n)
	}
	v := c.b[:n]
	c.b = c.b[n:]
	return v, nil
}

// DecodeParse decodes a Parse message payload.
func DecodeParse(payload []byte) (*ParseMessage, error) {
	c := &cursor{b: payload}
	m := &ParseMessage{}
	var err error
	if m.Name, err = c.cstring(); err != nil {
		return nil, fmt.Errorf("parse message: %w", err)
	}
	if m.Query, err = c.cstring(); err != nil {
		return nil, fmt.Errorf("parse message: %w", err)
	}
	n, err := c.int16()
	if err != nil {
		return nil, fmt.Errorf("parse message: %w", err)
	}
	m.ParamOIDs = make([]int32, n)
	for i := range m.ParamOIDs {
		if m.ParamOIDs[i], err = c.int32(); err != nil {
			return nil, fmt.Errorf("parse message: %w", err)
		}
	}
	return m, nil
}

// DecodeBind decodes a Bind message payload.
func DecodeBind(payload []byte) (*BindMessage, error) {
	c := &cursor{b: payload}
	m := &BindMessage{}
	var err error
	if m.Portal, err = c.cstring(); err != nil {
		return nil, fmt.Errorf("bind message: %w", err)
	}
	if m.Statement, err = c.cstring(); err != nil {
		return nil, fmt.Errorf("bind message: %w", err)
	}

	nFormats, err := c.int16()
	if err != nil {
		return nil, fmt.Errorf("bind message: %w", err)
	}
	m.ParamFormats = make([]int16, nFormats)
	for i := range m.ParamFormats {
		if m.ParamFormats[i], err = c.int16(); err != nil {
			return nil, fmt.Errorf("bind message: %w", err)
		}
	}

	nParams, err := c.int16()
	if err != nil {
		return nil, fmt.Errorf("bind message: %w", err)
	}
	m.Params = make([][]byte, nParams)
	for i := range m.Params {
		length, err := c.int32()
		if err != nil {
			return nil, fmt.Errorf("bind message: %w", err)
		}
		if length == -1 {
			continue // NULL
		}
		if m.Params[i], err = c.bytes(int(length)); err != nil {
			return nil, fmt.Errorf("bind message: %w", err)
		}
	}

	nResults, err := c.int16()
	if err != nil {
		return nil, fmt.Errorf("bind message: %w", err)
	}
	m.ResultFormats = make([]int16, nResults)
	for i := range m.ResultFormats {
		if m.ResultFormats[i], err = c.int16(); err != nil {
			return nil, fmt.Errorf("bind message: %w", err)
		}
	}
	return m, nil
}

// DecodeDescribe decodes a Describe message payload.
func DecodeDescribe(payload []byte) (*DescribeMessage, error) {
	if len(payload) < 1 {
		return nil, fmt.Errorf("describe message: empty payload")
	}
	c := &cursor{b: payload[1:]}
	name, err := c.cstring()
	if err != nil {
		return nil, fmt.Errorf("describe message: %w", err)
	}
	kind := payload[0]
	if kind != TargetStatement && kind != TargetPortal {
		return nil, fmt.Errorf("describe message: unknown target kind '%c'", kind)
	}
	return &DescribeMessage{Kind: kind, Name: name}, nil
}

// DecodeExecute decodes an Execute message payload.
func DecodeExecute(payload []byte) (*ExecuteMessage, error) {
	c := &cursor{b: payload}
	m := &ExecuteMessage{}
	var err error
	if m.Portal, err = c.cstring(); err != nil {
		return nil, fmt.Errorf("execute message: %w", err)
	}
	if m.MaxRows, err = c.int32(); err != nil {
		return nil, fmt.Errorf("execute message: %w", err)
	}
	return m, nil
}

// DecodeClose decodes a Close message payload.
func DecodeClose(payload []byte) (*CloseMessage, error) {
	if len(payload) < 1 {
		return nil, fmt.Errorf("close message: empty payload")
	}
	c := &cursor{b: payload[1:]}
	name, err := c.cstring()
	if err != nil {
		return nil, fmt.Errorf("close message: %w", err)
	}
	kind := payload[0]
	if kind != TargetStatement && kind != TargetPortal {
		return nil, fmt.Errorf("close message: unknown target kind '%c'", kind)
	}
	return &CloseMessage{Kind: kind, Name: name}, nil
}
