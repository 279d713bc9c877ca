package tuya

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"
)

// Frame magic constants and layout sizes.
const (
	// framePrefix opens every frame.
	framePrefix uint32 = 0x000055AA

	// frameSuffix closes every frame.
	frameSuffix uint32 = 0x0000AA55

	// requestHeaderSize is prefix + seqno + cmd + length.
	requestHeaderSize = 16

	// responseHeaderSize is prefix + seqno + cmd + length + return code.
	responseHeaderSize = 20

	// trailerSize is crc + suffix. The length field counts the trailer.
	trailerSize = 8
)

// Frame is an outgoing request message before packing.
//
// The payload must already be encoded for the target protocol generation
// (see encodePayload); Pack only frames it.
type Frame struct {
	SeqNo   uint32
	Cmd     uint32
	Payload []byte
}

// Response is a decoded incoming message.
//
// The return code is zero on success. CRC is the checksum as received; it is
// verified during unpacking only when strict mode is enabled.
type Response struct {
	SeqNo   uint32
	Cmd     uint32
	RetCode uint32
	Payload []byte
	CRC     uint32
}

// Pack serialises the frame to wire bytes.
//
// Layout (all words big-endian):
//
//	prefix(4) seqno(4) cmd(4) length(4) payload crc(4) suffix(4)
//
// where length = len(payload) + 8 (the trailer is counted) and crc is CRC32
// over everything that precedes it.
func (f Frame) Pack() []byte {
	total := requestHeaderSize + len(f.Payload) + trailerSize
	buf := make([]byte, total)

	binary.BigEndian.PutUint32(buf[0:4], framePrefix)
	binary.BigEndian.PutUint32(buf[4:8], f.SeqNo)
	binary.BigEndian.PutUint32(buf[8:12], f.Cmd)
	binary.BigEndian.PutUint32(buf[12:16], uint32(len(f.Payload)+trailerSize)) //nolint:gosec // bounded by small payload sizes
	copy(buf[requestHeaderSize:], f.Payload)

	crc := crc32.ChecksumIEEE(buf[:total-trailerSize])
	binary.BigEndian.PutUint32(buf[total-8:total-4], crc)
	binary.BigEndian.PutUint32(buf[total-4:], frameSuffix)

	return buf
}

// UnpackResponse parses a complete received frame.
//
// Layout (all words big-endian):
//
//	prefix(4) seqno(4) cmd(4) length(4) retcode(4) payload crc(4) suffix(4)
//
// The payload is sliced positionally from the frame boundaries. In strict
// mode the prefix, suffix, and checksum are verified and a mismatch is an
// ErrProtocol; otherwise the frame is trusted as received, matching the
// reference behaviour of the device firmware's peers.
func UnpackResponse(data []byte, strict bool) (Response, error) {
	if len(data) < responseHeaderSize+trailerSize {
		return Response{}, fmt.Errorf("%w: frame too short (%d bytes)", ErrProtocol, len(data))
	}

	resp := Response{
		SeqNo:   binary.BigEndian.Uint32(data[4:8]),
		Cmd:     binary.BigEndian.Uint32(data[8:12]),
		RetCode: binary.BigEndian.Uint32(data[16:20]),
		CRC:     binary.BigEndian.Uint32(data[len(data)-8 : len(data)-4]),
	}

	payload := data[responseHeaderSize : len(data)-trailerSize]
	resp.Payload = make([]byte, len(payload))
	copy(resp.Payload, payload)

	if strict {
		if prefix := binary.BigEndian.Uint32(data[0:4]); prefix != framePrefix {
			return Response{}, fmt.Errorf("%w: bad prefix 0x%08X", ErrProtocol, prefix)
		}
		if suffix := binary.BigEndian.Uint32(data[len(data)-4:]); suffix != frameSuffix {
			return Response{}, fmt.Errorf("%w: bad suffix 0x%08X", ErrProtocol, suffix)
		}
		if crc := crc32.ChecksumIEEE(data[:len(data)-trailerSize]); crc != resp.CRC {
			return Response{}, fmt.Errorf("%w: checksum mismatch (got 0x%08X, want 0x%08X)", ErrProtocol, resp.CRC, crc)
		}
	}

	return resp, nil
}
