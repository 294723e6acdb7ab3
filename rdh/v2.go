package rdh

import (
	"encoding/binary"
	"fmt"
)

const sizeV2 = 32 // 4 x 64-bit words

func decodeV2(buf []byte) (Header, error) {
	if len(buf) < sizeV2 {
		return Header{}, fmt.Errorf("rdh: v2 buffer too short: %d < %d", len(buf), sizeV2)
	}

	w0 := binary.LittleEndian.Uint64(buf[0:8])
	w1 := binary.LittleEndian.Uint64(buf[8:16])
	w2 := binary.LittleEndian.Uint64(buf[16:24])
	w3 := binary.LittleEndian.Uint64(buf[24:32])

	h := Header{
		Version:     Version(w0 & 0xff),
		BlockLength: uint16((w0 >> 8) & 0xffff),
		FeeID:       uint16((w0 >> 24) & 0xffff),
		LinkID:      uint16((w0 >> 40) & 0xff),
		HeaderSize:  uint16((w0 >> 48) & 0xff),

		TriggerOrbit:   uint32(w1 & 0xffffffff),
		HeartbeatOrbit: uint32((w1 >> 32) & 0xffffffff),

		TriggerBC:   uint16(w2 & 0xfff),
		TriggerType: uint32((w2 >> 12) & 0xffffffff),
		HeartbeatBC: uint16((w2 >> 44) & 0xfff),

		PagesCounter:  uint16(w3 & 0xffff),
		StopBit:       uint8((w3 >> 16) & 0xff),
		DetectorField: uint16((w3 >> 24) & 0xffff),
		Par:           uint16((w3 >> 40) & 0xffff),
	}

	return h, nil
}
