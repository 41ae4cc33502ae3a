package zdb

import "github.com/oda/zdb/internal/node"

// Codec describes how to encode and decode a fixed-size key or value type
// to and from a page's byte layout. Size and Align must be constant for a
// given Codec instance; Encode/Decode are called with a slice exactly
// Size() bytes long.
type Codec[T any] = node.Codec[T]

// Comparator orders two keys, returning <0, 0, or >0 like bytes.Compare.
type Comparator[T any] = node.Comparator[T]

// Uint64Codec encodes a uint64 key or value as 8 little-endian bytes.
type Uint64Codec = node.Uint64Codec

// Uint32Codec encodes a uint32 key or value as 4 little-endian bytes.
type Uint32Codec = node.Uint32Codec

// FixedBytes16 is a fixed 16-byte key or value, useful for UUIDs or short
// hashes.
type FixedBytes16 = node.FixedBytes16

// FixedBytes16Codec encodes a FixedBytes16 as its raw 16 bytes.
type FixedBytes16Codec = node.FixedBytes16Codec

// FixedBytes32 is a fixed 32-byte key or value, useful for hashes or
// digests.
type FixedBytes32 = node.FixedBytes32

// FixedBytes32Codec encodes a FixedBytes32 as its raw 32 bytes.
type FixedBytes32Codec = node.FixedBytes32Codec

// CompareUint64 orders two uint64 keys numerically.
func CompareUint64(a, b uint64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// CompareUint32 orders two uint32 keys numerically.
func CompareUint32(a, b uint32) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
