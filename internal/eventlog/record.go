package eventlog

import (
	"encoding/binary"
	"hash/crc32"
)

// Record encoding: varint fieldLen | field | payload | crc32c(field|payload)
//
// field mirrors the single field name of a Redis stream entry ("block").

var castagnoli = crc32.MakeTable(crc32.Castagnoli)

// EncodeRecord serializes one entry value.
func EncodeRecord(field string, payload []byte) []byte {
	out := make([]byte, 0, binary.MaxVarintLen64+len(field)+len(payload)+4)
	var tmp [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(tmp[:], uint64(len(field)))
	out = append(out, tmp[:n]...)
	out = append(out, field...)
	out = append(out, payload...)

	crc := crc32.Update(0, castagnoli, []byte(field))
	crc = crc32.Update(crc, castagnoli, payload)
	var crcb [4]byte
	binary.BigEndian.PutUint32(crcb[:], crc)
	return append(out, crcb[:]...)
}

// Decoded is the parsed form of an encoded record.
type Decoded struct {
	Field   string
	Payload []byte
}

// DecodeRecord parses and checksums b. ok is false on truncation or CRC mismatch.
func DecodeRecord(b []byte) (Decoded, bool) {
	if len(b) < 1+4 {
		return Decoded{}, false
	}
	flen, n := binary.Uvarint(b)
	if n <= 0 {
		return Decoded{}, false
	}
	if uint64(n)+flen+4 > uint64(len(b)) {
		return Decoded{}, false
	}
	field := b[n : n+int(flen)]
	payload := b[n+int(flen) : len(b)-4]
	expect := binary.BigEndian.Uint32(b[len(b)-4:])
	crc := crc32.Update(0, castagnoli, field)
	crc = crc32.Update(crc, castagnoli, payload)
	if crc != expect {
		return Decoded{}, false
	}
	return Decoded{Field: string(field), Payload: append([]byte(nil), payload...)}, true
}
