package encoding

import (
	"bytes"
	"encoding/binary"
	"io"
)

// readUvarint reads an unsigned LEB128 integer, which is exactly what
// encoding/binary's varint functions implement for Uvarint (7 data bits per
// byte, MSB as the continuation flag).
func readUvarint(r io.ByteReader) (uint64, error) {
	return binary.ReadUvarint(r)
}

func writeUvarint(buf *bytes.Buffer, v uint64) {
	var tmp [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(tmp[:], v)
	buf.Write(tmp[:n])
}

// readVarint reads a *signed* LEB128 integer. This is not the same
// encoding as encoding/binary's zigzag Varint, so it is hand rolled: each
// byte contributes 7 data bits: the value is sign-extended from the
// highest data bit of the final byte.
func readVarint(r io.ByteReader, bitSize int) (int64, error) {
	var result int64
	var shift uint
	for {
		b, err := r.ReadByte()
		if err != nil {
			return 0, err
		}
		result |= int64(b&0x7f) << shift
		shift += 7
		if b&0x80 == 0 {
			if shift < uint(bitSize) && b&0x40 != 0 {
				result |= -1 << shift
			}
			break
		}
	}
	return result, nil
}

func writeVarint(buf *bytes.Buffer, v int64) {
	for {
		b := byte(v & 0x7f)
		v >>= 7
		signBitSet := b&0x40 != 0
		if (v == 0 && !signBitSet) || (v == -1 && signBitSet) {
			buf.WriteByte(b)
			return
		}
		buf.WriteByte(b | 0x80)
	}
}

func readName(r *bytes.Reader) (string, error) {
	n, err := readUvarint(r)
	if err != nil {
		return "", err
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}

func writeName(buf *bytes.Buffer, s string) {
	writeUvarint(buf, uint64(len(s)))
	buf.WriteString(s)
}

func readBytes(r *bytes.Reader, n uint64) ([]byte, error) {
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	return buf, nil
}
