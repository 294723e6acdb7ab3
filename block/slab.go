// Package block defines the on-disk slab header diskstage prefixes onto
// every file it writes: enough metadata (link, timeframe, block count,
// compression, total payload size) for an offline reader to walk the
// file without re-deriving it from the filename.
//
// Mirrors simple-column-db's schema/disk_slab_header.go: same
// fixed-size, versioned, reserved-tail layout, repurposed from
// column-group statistics to block-slice metadata.
package block

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/dot5enko/readout-core/bits"
)

const (
	// HeaderSize is the fixed on-disk footprint of a SlabHeader.
	HeaderSize = 40

	headerSizeUsed = 2 + 4 + 8 + 2 + 1 + 8
	reservedSize   = HeaderSize - headerSizeUsed
)

// CompressionType identifies how the slab's block payloads were encoded.
type CompressionType uint8

const (
	CompressionNone CompressionType = 0
	CompressionLZ4  CompressionType = 1
)

// SlabHeader is written once at the start of every slab file diskstage
// produces.
type SlabHeader struct {
	Version uint16

	LinkID      uint32
	TimeframeID uint64

	BlockCount uint16

	Compression CompressionType

	// TotalSize is the byte length of the payload that follows the
	// header (compressed, if Compression != CompressionNone).
	TotalSize uint64
}

// Encode writes h to the first HeaderSize bytes of buf.
func Encode(buf []byte, h SlabHeader) error {
	if len(buf) < HeaderSize {
		return fmt.Errorf("block: buffer too small for slab header: %d < %d", len(buf), HeaderSize)
	}

	w := bits.NewEncodeBuffer(buf[:HeaderSize], binary.LittleEndian)
	w.PutUint16(h.Version)
	w.PutUint32(h.LinkID)
	w.PutUint64(h.TimeframeID)
	w.PutUint16(h.BlockCount)
	w.WriteByte(uint8(h.Compression))
	w.PutUint64(h.TotalSize)
	w.EmptyBytes(reservedSize)

	return nil
}

// Decode reads a SlabHeader from the first HeaderSize bytes of buf.
func Decode(buf []byte) (SlabHeader, error) {
	var h SlabHeader

	if len(buf) < HeaderSize {
		return h, fmt.Errorf("block: buffer too small for slab header: %d < %d", len(buf), HeaderSize)
	}

	r := bits.NewReader(bytes.NewReader(buf[:HeaderSize]), binary.LittleEndian)

	var err error
	if h.Version, err = r.ReadU16(); err != nil {
		return h, fmt.Errorf("block: decode version: %w", err)
	}
	if h.LinkID, err = r.ReadU32(); err != nil {
		return h, fmt.Errorf("block: decode linkId: %w", err)
	}
	if h.TimeframeID, err = r.ReadU64(); err != nil {
		return h, fmt.Errorf("block: decode timeframeId: %w", err)
	}
	if h.BlockCount, err = r.ReadU16(); err != nil {
		return h, fmt.Errorf("block: decode blockCount: %w", err)
	}
	compression, err := r.ReadU8()
	if err != nil {
		return h, fmt.Errorf("block: decode compression: %w", err)
	}
	h.Compression = CompressionType(compression)
	if h.TotalSize, err = r.ReadU64(); err != nil {
		return h, fmt.Errorf("block: decode totalSize: %w", err)
	}

	return h, nil
}
