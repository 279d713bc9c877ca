package tuya

import (
	"crypto/aes"
	"crypto/md5" //nolint:gosec // protocol-mandated signature, not used for security
	"encoding/hex"
	"fmt"
)

// cipher implements the AES-128-ECB mode used by every Tuya LAN generation.
//
// ECB has no IV and encrypts each 16-byte block independently; this is a
// protocol requirement, not a choice. Padding is PKCS#7 over the block size.
type cipher struct {
	key []byte
}

// newCipher creates a cipher for the given 16-byte local key.
func newCipher(key []byte) (*cipher, error) {
	if len(key) != aes.BlockSize {
		return nil, fmt.Errorf("%w: got %d bytes, need %d", ErrBadKey, len(key), aes.BlockSize)
	}
	return &cipher{key: key}, nil
}

// encrypt pads raw to the block size and encrypts it block by block.
func (c *cipher) encrypt(raw []byte) ([]byte, error) {
	block, err := aes.NewCipher(c.key)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBadKey, err)
	}

	padded := pkcs7Pad(raw, aes.BlockSize)
	out := make([]byte, len(padded))
	for i := 0; i < len(padded); i += aes.BlockSize {
		block.Encrypt(out[i:i+aes.BlockSize], padded[i:i+aes.BlockSize])
	}
	return out, nil
}

// decrypt decrypts enc block by block and strips the padding.
func (c *cipher) decrypt(enc []byte) ([]byte, error) {
	block, err := aes.NewCipher(c.key)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBadKey, err)
	}
	if len(enc) == 0 || len(enc)%aes.BlockSize != 0 {
		return nil, fmt.Errorf("%w: ciphertext length %d not a multiple of %d", ErrProtocol, len(enc), aes.BlockSize)
	}

	out := make([]byte, len(enc))
	for i := 0; i < len(enc); i += aes.BlockSize {
		block.Decrypt(out[i:i+aes.BlockSize], enc[i:i+aes.BlockSize])
	}
	return pkcs7Unpad(out)
}

// pkcs7Pad appends 1..blockSize bytes, each equal to the pad length.
func pkcs7Pad(data []byte, blockSize int) []byte {
	padLen := blockSize - len(data)%blockSize
	padded := make([]byte, len(data)+padLen)
	copy(padded, data)
	for i := len(data); i < len(padded); i++ {
		padded[i] = byte(padLen)
	}
	return padded
}

// pkcs7Unpad validates and strips PKCS#7 padding.
func pkcs7Unpad(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty plaintext", ErrProtocol)
	}
	padLen := int(data[len(data)-1])
	if padLen == 0 || padLen > len(data) {
		return nil, fmt.Errorf("%w: invalid padding length %d", ErrProtocol, padLen)
	}
	return data[:len(data)-padLen], nil
}

// sign31 computes the "3.1" CONTROL payload signature: the middle 16 hex
// characters (offset 8) of the hex MD5 digest over the documented
// concatenation of the base64 ciphertext, the version bytes, and the key.
func sign31(b64Payload, key []byte) []byte {
	buf := make([]byte, 0, len(b64Payload)+len(key)+16)
	buf = append(buf, "data="...)
	buf = append(buf, b64Payload...)
	buf = append(buf, "||lpv="...)
	buf = append(buf, Version31...)
	buf = append(buf, "||"...)
	buf = append(buf, key...)

	sum := md5.Sum(buf) //nolint:gosec // protocol-mandated
	digest := hex.EncodeToString(sum[:])
	return []byte(digest[8 : 8+16])
}
