// Package rdh decodes and encodes the RAW Data Header (RDH), the fixed
// binary preamble front-end electronics place at the start of a detector
// block's payload. Three versions are supported: v2 (4x64-bit words), v3
// and v4 (16x32-bit words each); v4 is canonical for newly emitted blocks.
//
// The core treats this header as opaque beyond linkId: it never appears
// at page offset 0 (see package datablock for that), but readers and
// diagnostics need to parse it out of a block's payload on demand.
package rdh

import "fmt"

// Version identifies which RDH layout a buffer follows.
type Version uint8

const (
	V2 Version = 2
	V3 Version = 3
	V4 Version = 4
)

// HeaderSize is the canonical (v3/v4) header size in bytes: 16 32-bit words.
const HeaderSize = 0x40

// undefined/sentinel field values, matching the hardware default-value
// conventions (all-ones for 32-bit id fields, as emitted by an
// unconfigured link).
const (
	undefined8  = 0xff
	undefined16 = 0xffff
	undefined32 = 0xffffffff
)

// Header is the version-independent view of an RDH used by this module.
// Fields absent from a given wire version decode to zero.
type Header struct {
	Version Version

	HeaderSize  uint16
	BlockLength uint16

	FeeID        uint16
	PriorityBit  uint8
	LinkID       uint16 // 8 bits in v3/v4, 8 bits in v2 too; widened for v2's feeId overlap cases
	PacketCounter uint8
	CruID        uint16
	DpwID        uint8

	OffsetNextPacket uint16
	MemorySize       uint16

	TriggerOrbit   uint32
	HeartbeatOrbit uint32

	TriggerBC   uint16
	HeartbeatBC uint16
	TriggerType uint32

	DetectorField uint16
	Par           uint16

	StopBit      uint8
	PagesCounter uint16
}

// DefaultV4 returns the all-sentinel v4 header emitted when a link has
// not yet been configured, matching the wire defaults: version=4,
// headerSize=0x40, ids all-ones, orbits all-ones.
func DefaultV4() Header {
	return Header{
		Version:        V4,
		HeaderSize:     HeaderSize,
		FeeID:          undefined16,
		LinkID:         undefined8,
		PacketCounter:  undefined8,
		CruID:          0xfff,
		DpwID:          0xf,
		TriggerOrbit:   undefined32,
		HeartbeatOrbit: undefined32,
	}
}

// DecodeAny reads the version byte at buf[0] and dispatches to the
// matching decoder. buf must contain at least the header's declared size.
func DecodeAny(buf []byte) (Header, error) {
	if len(buf) == 0 {
		return Header{}, fmt.Errorf("rdh: empty buffer")
	}

	switch v := Version(buf[0]); v {
	case V2:
		return decodeV2(buf)
	case V3:
		return decodeV3(buf)
	case V4:
		return decodeV4(buf)
	default:
		return Header{}, fmt.Errorf("rdh: unsupported version %d", buf[0])
	}
}

// Encode serializes h in its canonical form (v4 regardless of h.Version,
// per the spec's "canonical emitted version is v4").
func Encode(h Header) []byte {
	return encodeV4(h)
}
