// Package node provides the on-disk layout and operations for B+Tree
// leaf and internal node pages.
package node

import "encoding/binary"

const (
	headerSize  = 4
	pageIDSize  = 4
	pageIDAlign = 4
)

// Kind identifies whether a page holds a leaf or an internal node.
type Kind byte

const (
	// KindInternal marks a page as an internal (routing) node.
	KindInternal Kind = 0
	// KindLeaf marks a page as a leaf node.
	KindLeaf Kind = 1
)

// Header layout, 4 bytes total:
//   byte 0:   Kind
//   byte 1-2: KeyCount, little-endian
//   byte 3:   padding

// GetKind returns the node kind stored in a page's header.
func GetKind(data []byte) Kind {
	return Kind(data[0])
}

// SetKind sets the node kind in a page's header.
func SetKind(data []byte, k Kind) {
	data[0] = byte(k)
}

// GetKeyCount returns the number of keys stored in a page.
func GetKeyCount(data []byte) uint16 {
	return binary.LittleEndian.Uint16(data[1:3])
}

// SetKeyCount sets the number of keys stored in a page.
func SetKeyCount(data []byte, count uint16) {
	binary.LittleEndian.PutUint16(data[1:3], count)
}
