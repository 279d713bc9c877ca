package discovery

import (
	"crypto/aes"
	"crypto/md5" //nolint:gosec // protocol-defined discovery key derivation
	"encoding/json"
	"fmt"
)

// Datagram framing shared by both broadcast variants.
const (
	datagramHeaderSize = 20
	datagramFooterSize = 8
)

// udpKey is the fixed "3.3" broadcast key: MD5 of a constant passphrase
// baked into every device of that generation. Credit to tuya-convert for
// documenting it.
var udpKey = func() []byte {
	sum := md5.Sum([]byte("yGAdlopoPVldABfn")) //nolint:gosec // protocol constant
	return sum[:]
}()

// ScanResult is one decoded presence announcement.
//
// It is a pure value: full-tuple equality is the de-duplication key, and the
// device id (GwID) is the lookup key when binding to a device record.
type ScanResult struct {
	IP         string `json:"ip"`
	GwID       string `json:"gwId"`
	Active     int    `json:"active"`
	Ability    int    `json:"ability"`
	Mode       int    `json:"mode"`
	Encrypt    bool   `json:"encrypt"`
	ProductKey string `json:"productKey"`
	Version    string `json:"version"`
}

// parseDatagram strips the fixed framing from a broadcast datagram and
// decodes the body into a ScanResult.
//
// Parameters:
//   - data: Raw datagram bytes as received from the socket
//   - encrypted: true for the "3.3" variant (port 6667)
//
// Returns:
//   - ScanResult: The decoded announcement
//   - error: ErrBadDatagram if framing, decryption, or JSON parsing fails
func parseDatagram(data []byte, encrypted bool) (ScanResult, error) {
	if len(data) <= datagramHeaderSize+datagramFooterSize {
		return ScanResult{}, fmt.Errorf("%w: %d bytes", ErrBadDatagram, len(data))
	}

	body := data[datagramHeaderSize : len(data)-datagramFooterSize]

	if encrypted {
		plain, err := decryptUDP(body)
		if err != nil {
			return ScanResult{}, err
		}
		body = plain
	}

	var result ScanResult
	if err := json.Unmarshal(body, &result); err != nil {
		return ScanResult{}, fmt.Errorf("%w: %w", ErrBadDatagram, err)
	}
	return result, nil
}

// decryptUDP decrypts a "3.3" broadcast body with the fixed discovery key.
func decryptUDP(body []byte) ([]byte, error) {
	if len(body) == 0 || len(body)%aes.BlockSize != 0 {
		return nil, fmt.Errorf("%w: ciphertext length %d", ErrBadDatagram, len(body))
	}

	block, err := aes.NewCipher(udpKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBadDatagram, err)
	}

	out := make([]byte, len(body))
	for i := 0; i < len(body); i += aes.BlockSize {
		block.Decrypt(out[i:i+aes.BlockSize], body[i:i+aes.BlockSize])
	}

	padLen := int(out[len(out)-1])
	if padLen == 0 || padLen > len(out) {
		return nil, fmt.Errorf("%w: invalid padding", ErrBadDatagram)
	}
	return out[:len(out)-padLen], nil
}
