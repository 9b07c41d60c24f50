package executor

import (
	"bytes"
	"encoding/binary"
	"testing"
	"time"
)

func TestFormatTextValues(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{int64(42), "42"},
		{int64(-1), "-1"},
		{3.14, "3.14"},
		{true, "t"},
		{false, "f"},
		{"abc", "abc"},
	}
	for _, tt := range tests {
		if got := string(FormatText(tt.in)); got != tt.want {
			t.Errorf("FormatText(%#v) = %q, want %q", tt.in, got, tt.want)
		}
	}
	if FormatText(nil) != nil {
		t.Error("FormatText(nil) must be nil")
	}
}

func TestFormatTextTimestamp(t *testing.T) {
	ts := time.Date(2024, 3, 15, 12, 30, 45, 123456000, time.UTC)
	got := string(FormatText(ts))
	want := "2024-03-15 12:30:45.123456+00"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestEncodeBinaryTimestampEpoch(t *testing.T) {
	// The PostgreSQL binary epoch: 2000-01-01 00:00:00 UTC encodes as zero.
	data, err := EncodeValue(pgEpoch, OIDTimestampTZ, 1)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(data, make([]byte, 8)) {
		t.Errorf("epoch should encode to 8 zero bytes, got %x", data)
	}

	oneSec, err := EncodeValue(pgEpoch.Add(time.Second), OIDTimestampTZ, 1)
	if err != nil {
		t.Fatal(err)
	}
	if micros := int64(binary.BigEndian.Uint64(oneSec)); micros != 1_000_000 {
		t.Errorf("expected 1000000 micros, got %d", micros)
	}
}

func TestEncodeBinaryInt4OutOfRange(t *testing.T) {
	_, err := EncodeValue(int64(1<<40), OIDInt4, 1)
	if err == nil {
		t.Fatal("expected out-of-range error")
	}
}

func TestBinaryParamRoundTrip(t *testing.T) {
	ts := time.Date(2024, 6, 1, 8, 0, 0, 250000000, time.UTC)
	data, err := EncodeValue(ts, OIDTimestampTZ, 1)
	if err != nil {
		t.Fatal(err)
	}
	back, err := DecodeParam(OIDTimestampTZ, 1, data)
	if err != nil {
		t.Fatal(err)
	}
	if !back.(time.Time).Equal(ts) {
		t.Errorf("round trip changed value: %v != %v", back, ts)
	}
}

func TestDecodeTextParamTypes(t *testing.T) {
	v, err := DecodeParam(OIDInt4, 0, []byte("123"))
	if err != nil || v != int64(123) {
		t.Errorf("int4: got %#v, %v", v, err)
	}
	v, err = DecodeParam(OIDBool, 0, []byte("t"))
	if err != nil || v != true {
		t.Errorf("bool: got %#v, %v", v, err)
	}
	v, err = DecodeParam(OIDText, 0, []byte("as-is"))
	if err != nil || v != "as-is" {
		t.Errorf("text: got %#v, %v", v, err)
	}
	if _, err = DecodeParam(OIDInt4, 0, []byte("xyz")); err == nil {
		t.Error("expected invalid text representation error")
	}
}
