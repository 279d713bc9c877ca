package tuya

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"
	"testing"
)

// packResponse builds a wire-format response frame for tests.
func packResponse(seqNo, cmd, retCode uint32, payload []byte, corrupt func([]byte)) []byte {
	total := responseHeaderSize + len(payload) + trailerSize
	buf := make([]byte, total)

	binary.BigEndian.PutUint32(buf[0:4], framePrefix)
	binary.BigEndian.PutUint32(buf[4:8], seqNo)
	binary.BigEndian.PutUint32(buf[8:12], cmd)
	binary.BigEndian.PutUint32(buf[12:16], uint32(4+len(payload)+trailerSize))
	binary.BigEndian.PutUint32(buf[16:20], retCode)
	copy(buf[responseHeaderSize:], payload)

	crc := crc32.ChecksumIEEE(buf[:total-trailerSize])
	binary.BigEndian.PutUint32(buf[total-8:total-4], crc)
	binary.BigEndian.PutUint32(buf[total-4:], frameSuffix)

	if corrupt != nil {
		corrupt(buf)
	}
	return buf
}

func TestFramePack(t *testing.T) {
	payload := []byte(`{"gwId":"abc","devId":"abc"}`)
	raw := Frame{SeqNo: 7, Cmd: CmdDPQuery, Payload: payload}.Pack()

	if got := binary.BigEndian.Uint32(raw[0:4]); got != framePrefix {
		t.Errorf("prefix = 0x%08X, want 0x%08X", got, framePrefix)
	}
	if got := binary.BigEndian.Uint32(raw[4:8]); got != 7 {
		t.Errorf("seqno = %d, want 7", got)
	}
	if got := binary.BigEndian.Uint32(raw[8:12]); got != CmdDPQuery {
		t.Errorf("cmd = %d, want %d", got, CmdDPQuery)
	}

	// Length counts the payload plus the 8-byte trailer.
	if got := binary.BigEndian.Uint32(raw[12:16]); got != uint32(len(payload)+trailerSize) {
		t.Errorf("length = %d, want %d", got, len(payload)+trailerSize)
	}

	if !bytes.Equal(raw[requestHeaderSize:requestHeaderSize+len(payload)], payload) {
		t.Error("payload bytes not preserved")
	}

	wantCRC := crc32.ChecksumIEEE(raw[:len(raw)-trailerSize])
	if got := binary.BigEndian.Uint32(raw[len(raw)-8 : len(raw)-4]); got != wantCRC {
		t.Errorf("crc = 0x%08X, want 0x%08X", got, wantCRC)
	}
	if got := binary.BigEndian.Uint32(raw[len(raw)-4:]); got != frameSuffix {
		t.Errorf("suffix = 0x%08X, want 0x%08X", got, frameSuffix)
	}
}

func TestUnpackResponse(t *testing.T) {
	payload := []byte(`{"dps":{"1":true}}`)

	tests := []struct {
		name    string
		data    []byte
		strict  bool
		wantErr bool
	}{
		{
			name:   "valid frame lenient",
			data:   packResponse(3, CmdDPQuery, 0, payload, nil),
			strict: false,
		},
		{
			name:   "valid frame strict",
			data:   packResponse(3, CmdDPQuery, 0, payload, nil),
			strict: true,
		},
		{
			name: "corrupt checksum tolerated when lenient",
			data: packResponse(3, CmdDPQuery, 0, payload, func(b []byte) {
				b[len(b)-8] ^= 0xFF
			}),
			strict: false,
		},
		{
			name: "corrupt checksum rejected when strict",
			data: packResponse(3, CmdDPQuery, 0, payload, func(b []byte) {
				b[len(b)-8] ^= 0xFF
			}),
			strict:  true,
			wantErr: true,
		},
		{
			name: "bad prefix rejected when strict",
			data: packResponse(3, CmdDPQuery, 0, payload, func(b []byte) {
				b[0] = 0xDE
			}),
			strict:  true,
			wantErr: true,
		},
		{
			name: "bad suffix rejected when strict",
			data: packResponse(3, CmdDPQuery, 0, payload, func(b []byte) {
				b[len(b)-1] = 0x00
			}),
			strict:  true,
			wantErr: true,
		},
		{
			name:    "too short",
			data:    []byte{0x00, 0x00, 0x55, 0xAA},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := UnpackResponse(tt.data, tt.strict)

			if tt.wantErr {
				if err == nil {
					t.Error("UnpackResponse() expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("UnpackResponse() unexpected error: %v", err)
			}

			if got.SeqNo != 3 {
				t.Errorf("SeqNo = %d, want 3", got.SeqNo)
			}
			if got.Cmd != CmdDPQuery {
				t.Errorf("Cmd = %d, want %d", got.Cmd, CmdDPQuery)
			}
			if got.RetCode != 0 {
				t.Errorf("RetCode = %d, want 0", got.RetCode)
			}
			if !bytes.Equal(got.Payload, payload) {
				t.Errorf("Payload = %q, want %q", got.Payload, payload)
			}
		})
	}
}

func TestSeqCounterMonotonic(t *testing.T) {
	var seq SeqCounter
	prev := seq.Next()
	for i := 0; i < 100; i++ {
		next := seq.Next()
		if next <= prev {
			t.Fatalf("sequence went backwards: %d after %d", next, prev)
		}
		prev = next
	}
}
