// Package pager manages page-based storage using memory-mapped files.
package pager

import "encoding/binary"

const (
	// PageSize is the size of each page in bytes: the host's minimum
	// memory-mapping granularity.
	PageSize = 4096

	// MetaPageID is the page id of the metadata page. Never freed or
	// allocated to a node.
	MetaPageID PageID = 0

	// Magic identifies a zdb file: "ZDB!" little-endian.
	Magic uint32 = 0x5A444221

	// Version of the on-disk format this package reads and writes.
	Version uint32 = 1

	// InitialPageCount is the number of pages a freshly created database
	// file is extended to.
	InitialPageCount uint32 = 16

	// GrowthFactor is the multiplier applied to the page count whenever
	// the free list is exhausted and the file must grow.
	GrowthFactor = 2
)

// PageID identifies a page within the file. 0 is reserved for the
// metadata page.
type PageID uint32

// MetaPage is the file header, stored at page 0.
type MetaPage struct {
	Magic        uint32
	Version      uint32
	PageSize     uint32
	PageCount    uint32
	FreeListHead PageID
	RootPage     PageID
	TxID         uint64
}

// MetaPageSize is the serialized size of MetaPage, in bytes.
const MetaPageSize = 4 + 4 + 4 + 4 + 4 + 4 + 8 // 32 bytes

// Serialize writes the meta page to the start of buf, little-endian.
func (m *MetaPage) Serialize(buf []byte) {
	binary.LittleEndian.PutUint32(buf[0:4], m.Magic)
	binary.LittleEndian.PutUint32(buf[4:8], m.Version)
	binary.LittleEndian.PutUint32(buf[8:12], m.PageSize)
	binary.LittleEndian.PutUint32(buf[12:16], m.PageCount)
	binary.LittleEndian.PutUint32(buf[16:20], uint32(m.FreeListHead))
	binary.LittleEndian.PutUint32(buf[20:24], uint32(m.RootPage))
	binary.LittleEndian.PutUint64(buf[24:32], m.TxID)
}

// Deserialize reads the meta page from the start of buf, little-endian.
func (m *MetaPage) Deserialize(buf []byte) {
	m.Magic = binary.LittleEndian.Uint32(buf[0:4])
	m.Version = binary.LittleEndian.Uint32(buf[4:8])
	m.PageSize = binary.LittleEndian.Uint32(buf[8:12])
	m.PageCount = binary.LittleEndian.Uint32(buf[12:16])
	m.FreeListHead = PageID(binary.LittleEndian.Uint32(buf[16:20]))
	m.RootPage = PageID(binary.LittleEndian.Uint32(buf[20:24]))
	m.TxID = binary.LittleEndian.Uint64(buf[24:32])
}
