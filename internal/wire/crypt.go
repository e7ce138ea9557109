package wire

import (
	"crypto/aes"
	"crypto/md5"
	"fmt"
)

const blockSize = aes.BlockSize // 16

// SessionKey derives the AES-128 key from the client's API key and the
// salt the server returns in the ENCRYPT response: md5(apiKey + salt),
// per spec.md §4.1.4.
func SessionKey(apiKey, salt string) [16]byte {
	return md5.Sum([]byte(apiKey + salt))
}

// pad appends n bytes of value n so the buffer is a multiple of the AES
// block size (PKCS#7 padding: a full extra block when the input is
// already block-aligned — grounded on adbb/link.py's encrypt/decrypt
// helpers).
func pad(data []byte) []byte {
	n := blockSize - (len(data) % blockSize)
	if n == 0 {
		n = blockSize
	}
	out := make([]byte, len(data)+n)
	copy(out, data)
	for i := len(data); i < len(out); i++ {
		out[i] = byte(n)
	}
	return out
}

func unpad(data []byte) []byte {
	if len(data) == 0 {
		return data
	}
	n := int(data[len(data)-1])
	if n <= 0 || n > blockSize || n > len(data) {
		return data
	}
	return data[:len(data)-n]
}

// Encrypt encrypts plaintext with AES-128 in ECB mode under key,
// padding to a block boundary first.
func Encrypt(key [16]byte, plaintext []byte) ([]byte, error) {
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, fmt.Errorf("wire: aes key: %w", err)
	}
	padded := pad(plaintext)
	out := make([]byte, len(padded))
	for off := 0; off < len(padded); off += blockSize {
		block.Encrypt(out[off:off+blockSize], padded[off:off+blockSize])
	}
	return out, nil
}

// Decrypt decrypts an AES-128-ECB ciphertext under key and removes the
// trailing pad bytes.
func Decrypt(key [16]byte, ciphertext []byte) ([]byte, error) {
	if len(ciphertext)%blockSize != 0 {
		return nil, fmt.Errorf("wire: ciphertext length %d not block-aligned", len(ciphertext))
	}
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, fmt.Errorf("wire: aes key: %w", err)
	}
	out := make([]byte, len(ciphertext))
	for off := 0; off < len(ciphertext); off += blockSize {
		block.Decrypt(out[off:off+blockSize], ciphertext[off:off+blockSize])
	}
	return unpad(out), nil
}
