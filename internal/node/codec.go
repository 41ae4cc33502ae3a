package node

import "encoding/binary"

// Codec describes how to turn a fixed-size Go value of type T into bytes
// and back, plus the size and alignment layout arithmetic needs. Go has no
// const generics, so this stands in for the compile-time size parameters
// the spec assumes: a tree's Layout is derived once from a Codec pair.
type Codec[T any] interface {
	Size() int
	Align() int
	Encode(buf []byte, v T)
	Decode(buf []byte) T
}

// Comparator orders two keys: negative if a < b, zero if equal, positive
// if a > b.
type Comparator[T any] func(a, b T) int

// Uint64Codec encodes uint64 keys or values, little-endian, 8-byte aligned.
type Uint64Codec struct{}

func (Uint64Codec) Size() int  { return 8 }
func (Uint64Codec) Align() int { return 8 }
func (Uint64Codec) Encode(buf []byte, v uint64) {
	binary.LittleEndian.PutUint64(buf, v)
}
func (Uint64Codec) Decode(buf []byte) uint64 {
	return binary.LittleEndian.Uint64(buf)
}

// Uint32Codec encodes uint32 keys or values, little-endian, 4-byte aligned.
type Uint32Codec struct{}

func (Uint32Codec) Size() int  { return 4 }
func (Uint32Codec) Align() int { return 4 }
func (Uint32Codec) Encode(buf []byte, v uint32) {
	binary.LittleEndian.PutUint32(buf, v)
}
func (Uint32Codec) Decode(buf []byte) uint32 {
	return binary.LittleEndian.Uint32(buf)
}

// FixedBytes16 is a 16-byte fixed-size key or value, e.g. a UUID.
type FixedBytes16 [16]byte

// FixedBytes16Codec encodes FixedBytes16 verbatim, unaligned.
type FixedBytes16Codec struct{}

func (FixedBytes16Codec) Size() int  { return 16 }
func (FixedBytes16Codec) Align() int { return 1 }
func (FixedBytes16Codec) Encode(buf []byte, v FixedBytes16) {
	copy(buf, v[:])
}
func (FixedBytes16Codec) Decode(buf []byte) FixedBytes16 {
	var v FixedBytes16
	copy(v[:], buf[:16])
	return v
}

// FixedBytes32 is a 32-byte fixed-size key or value, e.g. a content hash.
type FixedBytes32 [32]byte

// FixedBytes32Codec encodes FixedBytes32 verbatim, unaligned.
type FixedBytes32Codec struct{}

func (FixedBytes32Codec) Size() int  { return 32 }
func (FixedBytes32Codec) Align() int { return 1 }
func (FixedBytes32Codec) Encode(buf []byte, v FixedBytes32) {
	copy(buf, v[:])
}
func (FixedBytes32Codec) Decode(buf []byte) FixedBytes32 {
	var v FixedBytes32
	copy(v[:], buf[:32])
	return v
}
