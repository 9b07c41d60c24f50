package pgwire

import (
	"bytes"
	"encoding/binary"
	"testing"
)

// roundTrip writes a message with fn and reads it back through a Reader.
func roundTrip(t *testing.T, fn func(*Writer) error) (byte, []byte) {
	t.Helper()
	var buf bytes.Buffer
	w := NewWriter(&buf)
	if err := fn(w); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := w.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}
	msgType, payload, err := NewReader(&buf).ReadMessage()
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	return msgType, payload
}

func TestReadyForQueryFraming(t *testing.T) {
	msgType, payload := roundTrip(t, func(w *Writer) error {
		return w.WriteReadyForQuery(TxInTx)
	})
	if msgType != MsgReadyForQuery {
		t.Fatalf("expected Z, got %c", msgType)
	}
	if len(payload) != 1 || payload[0] != TxInTx {
		t.Fatalf("expected payload [T], got %v", payload)
	}
}

func TestCommandCompleteFraming(t *testing.T) {
	msgType, payload := roundTrip(t, func(w *Writer) error {
		return w.WriteCommandComplete("SELECT 1")
	})
	if msgType != MsgCommandComplete {
		t.Fatalf("expected C, got %c", msgType)
	}
	if string(payload) != "SELECT 1\x00" {
		t.Fatalf("expected null-terminated tag, got %q", payload)
	}
}

func TestDataRowNullEncoding(t *testing.T) {
	_, payload := roundTrip(t, func(w *Writer) error {
		return w.WriteDataRow([][]byte{[]byte("ab"), nil})
	})
	// int16 count, then per value: int32 length + bytes; NULL = length -1.
	if n := binary.BigEndian.Uint16(payload); n != 2 {
		t.Fatalf("expected 2 fields, got %d", n)
	}
	if l := int32(binary.BigEndian.Uint32(payload[2:])); l != 2 {
		t.Fatalf("expected first length 2, got %d", l)
	}
	if string(payload[6:8]) != "ab" {
		t.Fatalf("expected ab, got %q", payload[6:8])
	}
	if l := int32(binary.BigEndian.Uint32(payload[8:])); l != -1 {
		t.Fatalf("expected NULL marker -1, got %d", l)
	}
}

func TestErrorResponseFields(t *testing.T) {
	msgType, payload := roundTrip(t, func(w *Writer) error {
		return w.WriteErrorResponse("ERROR", "42601", "syntax error")
	})
	if msgType != MsgErrorResponse {
		t.Fatalf("expected E, got %c", msgType)
	}
	fields := map[byte]string{}
	for len(payload) > 1 {
		key := payload[0]
		rest := payload[1:]
		end := bytes.IndexByte(rest, 0)
		if end < 0 {
			t.Fatal("unterminated field")
		}
		fields[key] = string(rest[:end])
		payload = rest[end+1:]
	}
	if fields['S'] != "ERROR" || fields['C'] != "42601" || fields['M'] != "syntax error" {
		t.Fatalf("unexpected fields %v", fields)
	}
}

func TestRowDescriptionFraming(t *testing.T) {
	cols := []ColumnInfo{
		{Name: "a", DataTypeOID: 20, DataTypeSize: 8, TypeModifier: -1},
		{Name: "b", DataTypeOID: 25, DataTypeSize: -1, TypeModifier: -1, FormatCode: FormatBinary},
	}
	_, payload := roundTrip(t, func(w *Writer) error {
		return w.WriteRowDescription(cols)
	})
	if n := binary.BigEndian.Uint16(payload); n != 2 {
		t.Fatalf("expected 2 columns, got %d", n)
	}
	// First column: "a\x00" then 4+2+4+2+4+2 = 18 fixed bytes.
	if payload[2] != 'a' || payload[3] != 0 {
		t.Fatalf("unexpected first column name encoding: %v", payload[2:4])
	}
	if oid := int32(binary.BigEndian.Uint32(payload[10:])); oid != 20 {
		t.Fatalf("expected OID 20, got %d", oid)
	}
}

func TestReadStartupMessage(t *testing.T) {
	body := []byte{0, 3, 0, 0} // protocol 3.0
	body = append(body, "user\x00alice\x00database\x00db1\x00\x00"...)
	var buf bytes.Buffer
	binary.Write(&buf, binary.BigEndian, int32(len(body)+4))
	buf.Write(body)

	msg, kind, err := NewReader(&buf).ReadStartup()
	if err != nil {
		t.Fatal(err)
	}
	if kind != StartupNew {
		t.Fatalf("expected StartupNew, got %d", kind)
	}
	if msg.ProtocolVersion != ProtocolVersion {
		t.Errorf("unexpected version %d", msg.ProtocolVersion)
	}
	if msg.Parameters["user"] != "alice" || msg.Parameters["database"] != "db1" {
		t.Errorf("unexpected parameters %v", msg.Parameters)
	}
}

func TestReadStartupSSLRequest(t *testing.T) {
	var buf bytes.Buffer
	binary.Write(&buf, binary.BigEndian, int32(8))
	binary.Write(&buf, binary.BigEndian, SSLRequestCode)

	msg, kind, err := NewReader(&buf).ReadStartup()
	if err != nil {
		t.Fatal(err)
	}
	if kind != StartupSSL || msg != nil {
		t.Fatalf("expected SSL request, got msg=%v kind=%d", msg, kind)
	}
}

func TestReadStartupCancelRequest(t *testing.T) {
	var buf bytes.Buffer
	binary.Write(&buf, binary.BigEndian, int32(16))
	binary.Write(&buf, binary.BigEndian, CancelRequestCode)
	binary.Write(&buf, binary.BigEndian, int32(1234)) // pid
	binary.Write(&buf, binary.BigEndian, int32(5678)) // secret

	msg, kind, err := NewReader(&buf).ReadStartup()
	if err != nil {
		t.Fatal(err)
	}
	if kind != StartupCancel || msg != nil {
		t.Fatalf("expected cancel request, got msg=%v kind=%d", msg, kind)
	}
}

func TestReadMessageRejectsOversizedFrame(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteByte('Q')
	binary.Write(&buf, binary.BigEndian, int32(1<<30))

	if _, _, err := NewReader(&buf).ReadMessage(); err == nil {
		t.Fatal("expected frame length limit error")
	}
}

func TestReadStartupRejectsShortFrame(t *testing.T) {
	var buf bytes.Buffer
	binary.Write(&buf, binary.BigEndian, int32(4))

	if _, _, err := NewReader(&buf).ReadStartup(); err == nil {
		t.Fatal("expected error for undersized startup frame")
	}
}

func TestDecodeParse(t *testing.T) {
	var b []byte
	b = append(b, "stmt1\x00"...)
	b = append(b, "SELECT $1::text\x00"...)
	b = binary.BigEndian.AppendUint16(b, 1)
	b = binary.BigEndian.AppendUint32(b, 25)

	m, err := DecodeParse(b)
	if err != nil {
		t.Fatal(err)
	}
	if m.Name != "stmt1" || m.Query != "SELECT $1::text" {
		t.Errorf("unexpected fields %+v", m)
	}
	if len(m.ParamOIDs) != 1 || m.ParamOIDs[0] != 25 {
		t.Errorf("unexpected param OIDs %v", m.ParamOIDs)
	}
}

func TestDecodeBindWithNullParam(t *testing.T) {
	var b []byte
	b = append(b, 0)        // portal ""
	b = append(b, "s1\x00"...) // statement
	b = binary.BigEndian.AppendUint16(b, 1) // one format code
	b = binary.BigEndian.AppendUint16(b, uint16(FormatBinary))
	b = binary.BigEndian.AppendUint16(b, 2) // two params
	b = binary.BigEndian.AppendUint32(b, 3) // first: 3 bytes
	b = append(b, "abc"...)
	b = binary.BigEndian.AppendUint32(b, 0xFFFFFFFF) // second: NULL
	b = binary.BigEndian.AppendUint16(b, 0)          // no result formats

	m, err := DecodeBind(b)
	if err != nil {
		t.Fatal(err)
	}
	if m.Statement != "s1" || m.Portal != "" {
		t.Errorf("unexpected names %+v", m)
	}
	if len(m.ParamFormats) != 1 || m.ParamFormats[0] != FormatBinary {
		t.Errorf("unexpected formats %v", m.ParamFormats)
	}
	if string(m.Params[0]) != "abc" || m.Params[1] != nil {
		t.Errorf("unexpected params %v", m.Params)
	}
}

func TestDecodeDescribe(t *testing.T) {
	m, err := DecodeDescribe([]byte("Sstmt\x00"))
	if err != nil {
		t.Fatal(err)
	}
	if m.Kind != TargetStatement || m.Name != "stmt" {
		t.Errorf("unexpected describe %+v", m)
	}
	if _, err := DecodeDescribe([]byte("Xno\x00")); err == nil {
		t.Error("expected error for unknown target kind")
	}
}

func TestDecodeExecute(t *testing.T) {
	var b []byte
	b = append(b, 0) // portal ""
	b = binary.BigEndian.AppendUint32(b, 50)
	m, err := DecodeExecute(b)
	if err != nil {
		t.Fatal(err)
	}
	if m.Portal != "" || m.MaxRows != 50 {
		t.Errorf("unexpected execute %+v", m)
	}
}

func TestDecodeBindTruncated(t *testing.T) {
	if _, err := DecodeBind([]byte{0}); err == nil {
		t.Error("expected error for truncated bind")
	}
}
