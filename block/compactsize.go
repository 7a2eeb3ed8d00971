package block

import (
	"encoding/binary"
	"io"
	"math"
)

// Markers selecting the width of a compact-size integer.
const (
	markerU16 = 0xfd
	markerU32 = 0xfe
	markerU64 = 0xff
)

// ReadCompactSize decodes a compact-size integer from r.
//
// The encoding is one marker byte followed by 0, 2, 4 or 8 little-endian
// bytes: 0xff selects 8 bytes, 0xfe selects 4, 0xfd selects 2, and any
// other marker is itself the value.
//
// A missing marker byte returns io.EOF; a marker with truncated
// continuation bytes returns io.ErrUnexpectedEOF.
func ReadCompactSize(r io.Reader) (uint64, error) {
	var buf [8]byte
	if _, err := io.ReadFull(r, buf[:1]); err != nil {
		return 0, err
	}

	switch buf[0] {
	case markerU64:
		if _, err := io.ReadFull(r, buf[:8]); err != nil {
			return 0, noEOF(err)
		}
		return binary.LittleEndian.Uint64(buf[:8]), nil
	case markerU32:
		if _, err := io.ReadFull(r, buf[:4]); err != nil {
			return 0, noEOF(err)
		}
		return uint64(binary.LittleEndian.Uint32(buf[:4])), nil
	case markerU16:
		if _, err := io.ReadFull(r, buf[:2]); err != nil {
			return 0, noEOF(err)
		}
		return uint64(binary.LittleEndian.Uint16(buf[:2])), nil
	default:
		return uint64(buf[0]), nil
	}
}

// AppendCompactSize appends the canonical (minimal-width) compact-size
// encoding of v to b and returns the extended slice.
func AppendCompactSize(b []byte, v uint64) []byte {
	switch {
	case v < markerU16:
		return append(b, byte(v))
	case v <= math.MaxUint16:
		b = append(b, markerU16)
		return binary.LittleEndian.AppendUint16(b, uint16(v))
	case v <= math.MaxUint32:
		b = append(b, markerU32)
		return binary.LittleEndian.AppendUint32(b, uint32(v))
	default:
		b = append(b, markerU64)
		return binary.LittleEndian.AppendUint64(b, v)
	}
}

// noEOF converts io.EOF to io.ErrUnexpectedEOF. io.ReadFull reports a read
// of zero bytes as io.EOF, but after a marker byte any truncation is
// unexpected.
func noEOF(err error) error {
	if err == io.EOF {
		return io.ErrUnexpectedEOF
	}
	return err
}
