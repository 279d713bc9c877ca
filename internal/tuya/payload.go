package tuya

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// version33Header is the 16-byte header carried by most "3.3" payloads:
// the ASCII version bytes followed by 12 zero bytes.
var version33Header = append([]byte(Version33), make([]byte, 12)...)

// commandBody is the JSON body sent with a command. Field order matches the
// reference payload templates. Fields not selected by the command descriptor
// stay empty and are omitted.
type commandBody struct {
	GwID  string         `json:"gwId,omitempty"`
	DevID string         `json:"devId,omitempty"`
	UID   string         `json:"uid,omitempty"`
	T     string         `json:"t,omitempty"`
	DPS   map[string]any `json:"dps,omitempty"`
	DPID  []int          `json:"dpId,omitempty"`
}

// buildCommandJSON renders the JSON body for cmd addressed to deviceID.
//
// The descriptor table selects which identity fields are populated; dps (or
// the dpId list for UPDATEDPS) carries the caller's data. Spaces are stripped
// from the serialised form: devices do not respond to payloads containing
// them.
func buildCommandJSON(cmd uint32, deviceID string, now time.Time, data map[string]any) ([]byte, error) {
	spec, ok := commandTable[cmd]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownCommand, cmd)
	}

	body := commandBody{}
	if spec.gwID {
		body.GwID = deviceID
	}
	if spec.devID {
		body.DevID = deviceID
	}
	if spec.uid {
		body.UID = deviceID
	}
	if spec.timestamp {
		body.T = strconv.FormatInt(now.Unix(), 10)
	}

	switch {
	case spec.dpID:
		body.DPID = defaultUpdateDPS
	case data != nil:
		body.DPS = data
	}

	raw, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("%w: marshalling command body: %w", ErrProtocol, err)
	}

	return bytes.ReplaceAll(raw, []byte(" "), nil), nil
}

// encodePayload wraps plain JSON for the wire according to the command's
// resolved policy for the protocol generation.
func encodePayload(version Version, cmd uint32, key, plain []byte) ([]byte, error) {
	spec, err := resolveWireSpec(version, cmd)
	if err != nil {
		return nil, err
	}

	payload := plain
	switch spec.crypto {
	case cryptoNone:
		// plain UTF-8 JSON

	case cryptoECB:
		c, err := newCipher(key)
		if err != nil {
			return nil, err
		}
		payload, err = c.encrypt(plain)
		if err != nil {
			return nil, err
		}

	case cryptoECBSigned:
		c, err := newCipher(key)
		if err != nil {
			return nil, err
		}
		enc, err := c.encrypt(plain)
		if err != nil {
			return nil, err
		}
		b64 := make([]byte, base64.StdEncoding.EncodedLen(len(enc)))
		base64.StdEncoding.Encode(b64, enc)

		signed := make([]byte, 0, len(Version31)+16+len(b64))
		signed = append(signed, Version31...)
		signed = append(signed, sign31(b64, key)...)
		signed = append(signed, b64...)
		payload = signed
	}

	if spec.header == headerVersion {
		withHeader := make([]byte, 0, len(version33Header)+len(payload))
		withHeader = append(withHeader, version33Header...)
		withHeader = append(withHeader, payload...)
		payload = withHeader
	}

	return payload, nil
}

// decodePayload recovers the plain JSON bytes from a received payload.
//
// Decoding branches on the payload shape rather than on the request that
// produced it:
//
//   - a "3.1" ASCII prefix marks a signed payload: strip the version bytes,
//     skip the 16-character signature, base64 decode, decrypt
//   - otherwise, when the device speaks "3.3": strip the optional 16-byte
//     version header and decrypt the remainder (no base64)
//   - otherwise a leading '{' is plain UTF-8 JSON
//
// Any other shape is a protocol error. An empty payload decodes to nil.
func decodePayload(version Version, key, payload []byte) ([]byte, error) {
	if len(payload) == 0 {
		return nil, nil
	}

	if bytes.HasPrefix(payload, []byte(Version31)) {
		rest := payload[len(Version31):]
		if len(rest) < 16 {
			return nil, fmt.Errorf("%w: signed payload too short", ErrProtocol)
		}
		rest = rest[16:] // signature is not verified, matching the reference

		enc := make([]byte, base64.StdEncoding.DecodedLen(len(rest)))
		n, err := base64.StdEncoding.Decode(enc, rest)
		if err != nil {
			return nil, fmt.Errorf("%w: base64 decode: %w", ErrProtocol, err)
		}
		c, err := newCipher(key)
		if err != nil {
			return nil, err
		}
		return c.decrypt(enc[:n])
	}

	if version == Version33 {
		enc := payload
		if bytes.HasPrefix(enc, []byte(Version33)) {
			if len(enc) < len(version33Header) {
				return nil, fmt.Errorf("%w: truncated version header", ErrProtocol)
			}
			enc = enc[len(version33Header):]
		}
		if len(enc) == 0 {
			return nil, nil
		}
		c, err := newCipher(key)
		if err != nil {
			return nil, err
		}
		return c.decrypt(enc)
	}

	if payload[0] == '{' {
		return payload, nil
	}

	return nil, fmt.Errorf("%w: unexpected payload shape (%d bytes)", ErrProtocol, len(payload))
}
