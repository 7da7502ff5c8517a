package cryptox

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/ecdh"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

const (
	saltSize     = 16
	headerFixed  = saltSize + 4 + 1
	cekSize      = 16
	nonceSize    = 12
	gcmTagSize   = 16
	lastRecord   = 0x02
	middleRecord = 0x01
)

var (
	ErrMalformedPayload = errors.New("malformed aes128gcm payload")
	ErrDecrypt          = errors.New("push payload decryption failed")
)

// Decrypt opens an aes128gcm body addressed to k.
//
// Layout: salt(16) | rs(4) | idlen(1) | keyid(idlen) | records. For Web Push
// the keyid is the sender's ephemeral uncompressed P-256 public key.
func (k *PushKeys) Decrypt(body []byte) ([]byte, error) {
	if len(body) < headerFixed {
		return nil, ErrMalformedPayload
	}

	salt := body[:saltSize]
	rs := binary.BigEndian.Uint32(body[saltSize : saltSize+4])
	idLen := int(body[saltSize+4])
	if rs <= gcmTagSize+1 || len(body) < headerFixed+idLen {
		return nil, ErrMalformedPayload
	}

	senderPub, err := ecdh.P256().NewPublicKey(body[headerFixed : headerFixed+idLen])
	if err != nil {
		return nil, fmt.Errorf("%w: sender key: %v", ErrMalformedPayload, err)
	}
	records := body[headerFixed+idLen:]
	if len(records) == 0 {
		return nil, ErrMalformedPayload
	}

	shared, err := k.Private.ECDH(senderPub)
	if err != nil {
		return nil, fmt.Errorf("%w: ecdh: %v", ErrDecrypt, err)
	}

	// RFC 8291 section 3.4
	keyInfo := make([]byte, 0, 14+65+65)
	keyInfo = append(keyInfo, "WebPush: info\x00"...)
	keyInfo = append(keyInfo, k.Private.PublicKey().Bytes()...)
	keyInfo = append(keyInfo, senderPub.Bytes()...)

	ikm, err := expand(shared, k.Auth, keyInfo, 32)
	if err != nil {
		return nil, err
	}
	cek, err := expand(ikm, salt, []byte("Content-Encoding: aes128gcm\x00"), cekSize)
	if err != nil {
		return nil, err
	}
	baseNonce, err := expand(ikm, salt, []byte("Content-Encoding: nonce\x00"), nonceSize)
	if err != nil {
		return nil, err
	}

	block, err := aes.NewCipher(cek)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	var out bytes.Buffer
	for seq := uint64(0); len(records) > 0; seq++ {
		n := int(rs)
		if n > len(records) {
			n = len(records)
		}
		record := records[:n]
		records = records[n:]

		plain, err := gcm.Open(nil, recordNonce(baseNonce, seq), record, nil)
		if err != nil {
			return nil, fmt.Errorf("%w: record %d: %v", ErrDecrypt, seq, err)
		}

		data, delim, err := unpad(plain)
		if err != nil {
			return nil, err
		}
		last := len(records) == 0
		if (last && delim != lastRecord) || (!last && delim != middleRecord) {
			return nil, fmt.Errorf("%w: bad padding delimiter in record %d", ErrMalformedPayload, seq)
		}
		out.Write(data)
	}

	return out.Bytes(), nil
}

func expand(secret, salt, info []byte, size int) ([]byte, error) {
	out := make([]byte, size)
	if _, err := io.ReadFull(hkdf.New(sha256.New, secret, salt, info), out); err != nil {
		return nil, fmt.Errorf("hkdf: %w", err)
	}
	return out, nil
}

func recordNonce(base []byte, seq uint64) []byte {
	nonce := append([]byte(nil), base...)
	var s [8]byte
	binary.BigEndian.PutUint64(s[:], seq)
	for i := 0; i < 8; i++ {
		nonce[nonceSize-8+i] ^= s[i]
	}
	return nonce
}

// unpad strips trailing zero padding and returns the data before the
// delimiter octet.
func unpad(plain []byte) ([]byte, byte, error) {
	i := len(plain) - 1
	for i >= 0 && plain[i] == 0 {
		i--
	}
	if i < 0 {
		return nil, 0, fmt.Errorf("%w: record has no delimiter", ErrMalformedPayload)
	}
	return plain[:i], plain[i], nil
}
