package rdh

import "fmt"

const sizeV4 = 64 // 16 x 32-bit words, canonical

func decodeV4(buf []byte) (Header, error) {
	if len(buf) < sizeV4 {
		return Header{}, fmt.Errorf("rdh: v4 buffer too short: %d < %d", len(buf), sizeV4)
	}

	word3 := readWord(buf, offWord3)
	word2 := readWord(buf, offWord2)
	word1 := readWord(buf, offWord1)
	word0 := readWord(buf, offWord0)
	word7 := readWord(buf, offWord7)
	word6 := readWord(buf, offWord6)
	word11 := readWord(buf, offWord11)
	word10 := readWord(buf, offWord10)
	word15 := readWord(buf, offWord15)
	word14 := readWord(buf, offWord14)

	h := Header{
		Version:     Version(word3 & 0xff),
		HeaderSize:  uint16((word3 >> 8) & 0xff),
		BlockLength: uint16((word3 >> 16) & 0xffff),

		FeeID:       uint16(word2 & 0xffff),
		PriorityBit: uint8((word2 >> 16) & 0xff),

		OffsetNextPacket: uint16(word1 & 0xffff),
		MemorySize:       uint16((word1 >> 16) & 0xffff),

		LinkID:        uint16(word0 & 0xff),
		PacketCounter: uint8((word0 >> 8) & 0xff),
		CruID:         uint16((word0 >> 16) & 0xfff),
		DpwID:         uint8((word0 >> 28) & 0xf),

		TriggerOrbit:   word7,
		HeartbeatOrbit: word6,

		TriggerBC:   uint16(word11 & 0xfff),
		HeartbeatBC: uint16((word11 >> 16) & 0xfff),
		TriggerType: word10,

		DetectorField: uint16(word15 & 0xffff),
		Par:           uint16((word15 >> 16) & 0xffff),

		StopBit:      uint8(word14 & 0xff),
		PagesCounter: uint16((word14 >> 8) & 0xffff),
	}

	return h, nil
}

func encodeV4(h Header) []byte {
	buf := make([]byte, sizeV4)

	word3 := uint32(V4) | uint32(HeaderSize)<<8 | uint32(h.BlockLength)<<16
	word2 := uint32(h.FeeID) | uint32(h.PriorityBit)<<16
	word1 := uint32(h.OffsetNextPacket) | uint32(h.MemorySize)<<16
	word0 := uint32(h.LinkID&0xff) | uint32(h.PacketCounter)<<8 | uint32(h.CruID&0xfff)<<16 | uint32(h.DpwID&0xf)<<28
	word11 := uint32(h.TriggerBC&0xfff) | uint32(h.HeartbeatBC&0xfff)<<16
	word15 := uint32(h.DetectorField) | uint32(h.Par)<<16
	word14 := uint32(h.StopBit) | uint32(h.PagesCounter)<<8

	writeWord(buf, offWord3, word3)
	writeWord(buf, offWord2, word2)
	writeWord(buf, offWord1, word1)
	writeWord(buf, offWord0, word0)
	writeWord(buf, offWord7, h.TriggerOrbit)
	writeWord(buf, offWord6, h.HeartbeatOrbit)
	writeWord(buf, offWord11, word11)
	writeWord(buf, offWord10, h.TriggerType)
	writeWord(buf, offWord15, word15)
	writeWord(buf, offWord14, word14)

	return buf
}
