package cryptox

import (
	"crypto/ecdh"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/storysync/internal/common"
)

const authSecretSize = 16

// PushKeys is the user-agent key material of a push subscription.
type PushKeys struct {
	Private *ecdh.PrivateKey
	Auth    []byte
}

// GeneratePushKeys creates a fresh P-256 key pair and a 16-byte auth secret.
func GeneratePushKeys() (*PushKeys, error) {
	priv, err := ecdh.P256().GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generate p256 key: %w", err)
	}
	return &PushKeys{Private: priv, Auth: common.GenerateRandByteArray(authSecretSize)}, nil
}

// LoadPushKeys rebuilds PushKeys from the raw private scalar and auth secret
// as persisted by Marshal.
func LoadPushKeys(private, auth []byte) (*PushKeys, error) {
	if len(auth) != authSecretSize {
		return nil, fmt.Errorf("auth secret must be %d bytes, got %d", authSecretSize, len(auth))
	}
	priv, err := ecdh.P256().NewPrivateKey(private)
	if err != nil {
		return nil, fmt.Errorf("load p256 key: %w", err)
	}
	return &PushKeys{Private: priv, Auth: append([]byte(nil), auth...)}, nil
}

// Marshal returns the raw private scalar and the auth secret.
func (k *PushKeys) Marshal() (private, auth []byte) {
	return k.Private.Bytes(), append([]byte(nil), k.Auth...)
}

// P256dh is the uncompressed public key, base64url without padding, as it
// appears in a subscription's keys.p256dh field.
func (k *PushKeys) P256dh() string {
	return base64.RawURLEncoding.EncodeToString(k.Private.PublicKey().Bytes())
}

// AuthSecret is the auth secret in the subscription's keys.auth encoding.
func (k *PushKeys) AuthSecret() string {
	return base64.RawURLEncoding.EncodeToString(k.Auth)
}

// DecodeKey accepts base64 in any of the url/std, padded/raw variants that
// push libraries emit.
func DecodeKey(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, errors.New("empty key")
	}
	for _, enc := range []*base64.Encoding{
		base64.RawURLEncoding,
		base64.URLEncoding,
		base64.RawStdEncoding,
		base64.StdEncoding,
	} {
		if b, err := enc.DecodeString(s); err == nil {
			return b, nil
		}
	}
	return nil, fmt.Errorf("key %q is not base64", s)
}
