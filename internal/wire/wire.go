package wire

import (
	"bytes"
	"encoding/binary"
	"errors"
)

const (
	formatVersion byte = 1
	kindEntry     byte = 1

	headerLen = 4 + 1 + 1 + 8 + 4
)

var (
	ErrCorrupt = errors.New("vercache: corrupt entry")
	magic4     = [...]byte{'V', 'E', 'R', 'C'}
)

func hasMagic(b []byte) bool {
	return len(b) >= 4 && bytes.Equal(b[:4], magic4[:])
}

// Entry: magic(4) | fmt(1) | kind(1=entry) | groupVersion(u64 be) | vlen(u32 be) | payload(vlen)
//
// groupVersion repeats the version embedded in the storage key, so a value that
// landed under the wrong key (foreign writer, manual edit) is detected on read.
func EncodeEntry(groupVersion uint64, payload []byte) []byte {
	var buf bytes.Buffer
	buf.Grow(headerLen + len(payload))

	buf.Write(magic4[:])
	buf.WriteByte(formatVersion)
	buf.WriteByte(kindEntry)

	var u8 [8]byte
	var u4 [4]byte

	binary.BigEndian.PutUint64(u8[:], groupVersion)
	buf.Write(u8[:])

	binary.BigEndian.PutUint32(u4[:], uint32(len(payload)))
	buf.Write(u4[:])

	buf.Write(payload)
	return buf.Bytes()
}

// DecodeEntry returns the payload as a subslice of b.
func DecodeEntry(b []byte) (groupVersion uint64, payload []byte, err error) {
	if len(b) < headerLen || !hasMagic(b) || b[4] != formatVersion || b[5] != kindEntry {
		return 0, nil, ErrCorrupt
	}

	off := 6
	groupVersion = binary.BigEndian.Uint64(b[off : off+8])
	off += 8

	vlen := int(binary.BigEndian.Uint32(b[off : off+4]))
	off += 4
	if vlen < 0 || vlen != len(b)-off { // exact: trailing bytes are corruption too
		return 0, nil, ErrCorrupt
	}

	return groupVersion, b[off : off+vlen], nil
}
