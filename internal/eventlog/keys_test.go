package eventlog

import (
	"bytes"
	"testing"
)

func TestKeyOrderingEntries(t *testing.T) {
	a := KeyLogEntry("blocks", Cursor{Height: 10, Seq: 9})
	b := KeyLogEntry("blocks", Cursor{Height: 11, Seq: 0})
	c := KeyLogEntry("blocks", Cursor{Height: 11, Seq: 1})
	if !bytes.HasPrefix(a, KeyEntryPrefix("blocks")) {
		t.Fatalf("entry key should carry the topic prefix")
	}
	if bytes.Compare(a, b) >= 0 || bytes.Compare(b, c) >= 0 {
		t.Fatalf("expected 10-9 < 11-0 < 11-1")
	}
	got, ok := cursorFromKey(c)
	if !ok || got != (Cursor{Height: 11, Seq: 1}) {
		t.Fatalf("cursor roundtrip from key: %+v", got)
	}
}

func TestMetaKeyOutsideEntryRange(t *testing.T) {
	if bytes.HasPrefix(KeyLogMeta("blocks"), KeyEntryPrefix("blocks")) {
		t.Fatalf("meta key must not fall inside the entry range")
	}
}
