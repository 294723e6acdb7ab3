// Package datablock defines the software header written at offset 0 of
// every page minted by pagepool.Pool, and read back by slicer.Slicer to
// group blocks into timeframe slices.
//
// This header is distinct from the hardware wire format described in
// package rdh: rdh.Header carries only what the front-end electronics put
// on the wire (no timeframeId slot exists there), while datablock.Header
// is assigned by the readout software itself once a block has been
// classified.
package datablock

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/dot5enko/readout-core/bits"
	"github.com/dot5enko/readout-core/compression"
)

// Size is the fixed on-page footprint of a Header, in bytes.
const Size = 40

// Sentinel values denoting "unspecified", matching the all-ones convention
// used throughout the wire formats.
const (
	UndefinedLinkID      uint32 = 0xffffffff
	UndefinedTimeframeID uint64 = 0xffffffffffffffff
	UndefinedBlockID     uint64 = 0xffffffffffffffff
	UndefinedEquipmentID uint32 = 0xffffffff
)

// Header is the fixed binary preamble at page offset 0.
type Header struct {
	LinkID      uint32
	TimeframeID uint64
	BlockID     uint64
	EquipmentID uint32
	DataSize    uint32
	HeaderSize  uint32
}

// Default returns the sentinel header pagepool.Pool.Wrap writes into a
// freshly minted page: all ids unspecified, dataSize sized to the
// remaining page capacity.
func Default(pageSize int) Header {
	return Header{
		LinkID:      UndefinedLinkID,
		TimeframeID: UndefinedTimeframeID,
		BlockID:     UndefinedBlockID,
		EquipmentID: UndefinedEquipmentID,
		HeaderSize:  Size,
		DataSize:    uint32(pageSize - Size),
	}
}

// Encode writes the header to the beginning of page, which must have at
// least Size bytes of capacity.
func Encode(page []byte, h Header) error {
	if len(page) < Size {
		return fmt.Errorf("datablock: page too small for header: %d < %d", len(page), Size)
	}

	bw := bits.NewEncodeBuffer(page[:Size], binary.LittleEndian)
	bw.PutUint32(h.LinkID)
	bw.PutUint64(h.TimeframeID)
	bw.PutUint64(h.BlockID)
	bw.PutUint32(h.EquipmentID)
	bw.PutUint32(h.DataSize)
	bw.PutUint32(h.HeaderSize)
	bw.EmptyBytes(Size - bw.Position())

	return nil
}

// Decode reads the header from the beginning of page.
func Decode(page []byte) (Header, error) {
	var h Header

	if len(page) < Size {
		return h, fmt.Errorf("datablock: page too small for header: %d < %d", len(page), Size)
	}

	r := bits.NewReader(bytes.NewReader(page[:Size]), binary.LittleEndian)

	var err error
	if h.LinkID, err = r.ReadU32(); err != nil {
		return h, fmt.Errorf("datablock: decode linkId: %w", err)
	}
	if h.TimeframeID, err = r.ReadU64(); err != nil {
		return h, fmt.Errorf("datablock: decode timeframeId: %w", err)
	}
	if h.BlockID, err = r.ReadU64(); err != nil {
		return h, fmt.Errorf("datablock: decode blockId: %w", err)
	}
	if h.EquipmentID, err = r.ReadU32(); err != nil {
		return h, fmt.Errorf("datablock: decode equipmentId: %w", err)
	}
	if h.DataSize, err = r.ReadU32(); err != nil {
		return h, fmt.Errorf("datablock: decode dataSize: %w", err)
	}
	if h.HeaderSize, err = r.ReadU32(); err != nil {
		return h, fmt.Errorf("datablock: decode headerSize: %w", err)
	}

	return h, nil
}

// AlignmentReport runs the struct-packing check from
// compression/aligner.go against the in-memory Header struct, flagging
// wasteful field ordering. It has no bearing on the fixed on-wire layout
// Encode and Decode produce; it is purely a development-time diagnostic
// for whether the Go struct itself wastes padding.
func AlignmentReport() compression.AlignmentReport {
	return compression.GetWellAlignedStructReport(Header{})
}

// LinkSpecified reports whether the header carries a real link id rather
// than the all-ones sentinel.
func (h Header) LinkSpecified() bool {
	return h.LinkID != UndefinedLinkID
}

// TimeframeSpecified reports whether the header carries a real
// timeframe id rather than the all-ones sentinel.
func (h Header) TimeframeSpecified() bool {
	return h.TimeframeID != UndefinedTimeframeID
}
