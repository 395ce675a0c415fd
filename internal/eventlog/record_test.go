package eventlog

import "testing"

func TestRecordRoundtrip(t *testing.T) {
	rec := EncodeRecord("block", []byte(`{"height":1}`))
	dec, ok := DecodeRecord(rec)
	if !ok {
		t.Fatalf("decode failed")
	}
	if dec.Field != "block" {
		t.Fatalf("field mismatch: %q", dec.Field)
	}
	if string(dec.Payload) != `{"height":1}` {
		t.Fatalf("payload mismatch")
	}
}

func TestRecordCRCFail(t *testing.T) {
	rec := EncodeRecord("block", []byte("y"))
	rec[len(rec)-1] ^= 0xFF
	if _, ok := DecodeRecord(rec); ok {
		t.Fatalf("expected crc failure")
	}
}

func TestRecordTruncated(t *testing.T) {
	rec := EncodeRecord("block", []byte("payload"))
	if _, ok := DecodeRecord(rec[:3]); ok {
		t.Fatalf("expected truncation failure")
	}
}
