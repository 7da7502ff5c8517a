package cryptox

import (
	"bytes"
	"crypto/ecdh"
	"crypto/ecdsa"
	"crypto/elliptic"
	"errors"
	"fmt"
	"math/big"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrVAPID = errors.New("vapid verification failed")

// ParseAuthorization splits an Authorization header of the form
// "scheme k=v, k=v" into the scheme and its parameters.
func ParseAuthorization(header string) (string, map[string]string) {
	header = strings.TrimSpace(header)
	params := map[string]string{}

	scheme, rest, ok := strings.Cut(header, " ")
	if !ok {
		return header, params
	}

	for _, p := range strings.Split(rest, ",") {
		key, value, ok := strings.Cut(strings.TrimSpace(p), "=")
		if !ok {
			continue
		}
		params[strings.TrimSpace(key)] = strings.TrimSpace(value)
	}
	return strings.ToLower(scheme), params
}

// Audience returns the origin (scheme://host) of an endpoint URL, which is
// what senders put into the VAPID aud claim.
func Audience(endpoint string) (string, error) {
	u, err := url.Parse(endpoint)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("endpoint %q has no origin", endpoint)
	}
	return u.Scheme + "://" + u.Host, nil
}

// VerifyVAPID checks a "vapid t=..., k=..." header: k must equal
// applicationServerKey, the token must be an ES256 JWT signed by k, carry an
// aud matching audience and not be expired at now.
func VerifyVAPID(header, applicationServerKey, audience string, now time.Time) (*jwt.RegisteredClaims, error) {
	scheme, params := ParseAuthorization(header)
	if scheme != "vapid" {
		return nil, fmt.Errorf("%w: unexpected scheme %q", ErrVAPID, scheme)
	}

	got, err := DecodeKey(params["k"])
	if err != nil {
		return nil, fmt.Errorf("%w: k: %v", ErrVAPID, err)
	}
	want, err := DecodeKey(applicationServerKey)
	if err != nil {
		return nil, fmt.Errorf("%w: configured key: %v", ErrVAPID, err)
	}
	if !bytes.Equal(got, want) {
		return nil, fmt.Errorf("%w: key mismatch", ErrVAPID)
	}

	pub, err := ecdsaPublicKey(got)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrVAPID, err)
	}

	claims := &jwt.RegisteredClaims{}
	_, err = jwt.ParseWithClaims(params["t"], claims,
		func(*jwt.Token) (any, error) { return pub, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodES256.Alg()}),
		jwt.WithAudience(audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(func() time.Time { return now }),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrVAPID, err)
	}
	return claims, nil
}

func ecdsaPublicKey(uncompressed []byte) (*ecdsa.PublicKey, error) {
	if _, err := ecdh.P256().NewPublicKey(uncompressed); err != nil {
		return nil, fmt.Errorf("not a p256 point: %v", err)
	}
	return &ecdsa.PublicKey{
		Curve: elliptic.P256(),
		X:     new(big.Int).SetBytes(uncompressed[1:33]),
		Y:     new(big.Int).SetBytes(uncompressed[33:65]),
	}, nil
}

// TokenExpired reports whether a bearer JWT carries an exp claim in the past.
// The signature is not checked: the agent only needs to know whether a stored
// token is still worth presenting to the story server. Opaque tokens that do
// not parse as JWT are treated as unexpired.
func TokenExpired(token string, now time.Time) bool {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return !exp.After(now)
}
