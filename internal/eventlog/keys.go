package eventlog

import (
	"encoding/binary"
)

// Keyspace helpers for Pebble keys.
//
// Layout (byte-wise, lexicographically sortable):
// - log/{topic}/m                          (last appended cursor)
// - log/{topic}/e/{height_be8}{seq_be8}    (entries)

var (
	logPrefix  = []byte("log/")
	metaSuffix = []byte("/m")
	entrySeg   = []byte("/e/")
)

const cursorKeyLen = 16

func appendBE8(dst []byte, v uint64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	return append(dst, b[:]...)
}

// KeyLogMeta builds the log metadata key.
func KeyLogMeta(topic string) []byte {
	k := make([]byte, 0, len(topic)+8)
	k = append(k, logPrefix...)
	k = append(k, topic...)
	k = append(k, metaSuffix...)
	return k
}

// KeyEntryPrefix returns the prefix shared by every entry of topic.
func KeyEntryPrefix(topic string) []byte {
	k := make([]byte, 0, len(topic)+8)
	k = append(k, logPrefix...)
	k = append(k, topic...)
	k = append(k, entrySeg...)
	return k
}

// KeyLogEntry builds the entry key; big-endian height then seq keeps cursor order.
func KeyLogEntry(topic string, c Cursor) []byte {
	k := KeyEntryPrefix(topic)
	k = appendBE8(k, c.Height)
	k = appendBE8(k, c.Seq)
	return k
}

func encodeCursor(c Cursor) []byte {
	b := make([]byte, 0, cursorKeyLen)
	b = appendBE8(b, c.Height)
	return appendBE8(b, c.Seq)
}

func decodeCursor(b []byte) (Cursor, bool) {
	if len(b) < cursorKeyLen {
		return Cursor{}, false
	}
	return Cursor{
		Height: binary.BigEndian.Uint64(b[:8]),
		Seq:    binary.BigEndian.Uint64(b[8:16]),
	}, true
}

// cursorFromKey extracts the cursor suffix of an entry key.
func cursorFromKey(key []byte) (Cursor, bool) {
	if len(key) < cursorKeyLen {
		return Cursor{}, false
	}
	return decodeCursor(key[len(key)-cursorKeyLen:])
}
