package imagegen

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Sign returns hex(HMAC-SHA256(secretKey, accessKey+timestamp)), where
// timestamp is decimal seconds since the epoch.
func Sign(accessKey, secretKey, timestamp string) string {
	mac := hmac.New(sha256.New, []byte(secretKey))
	mac.Write([]byte(accessKey + timestamp))
	return hex.EncodeToString(mac.Sum(nil))
}

// Credentials are the authentication headers attached to a request.
type Credentials map[string]string

// Apply sets the credential headers on h.
func (c Credentials) Apply(h http.Header) {
	for k, v := range c {
		h.Set(k, v)
	}
}

// Signer produces request credentials for the async provider.
type Signer interface {
	Credentials(accessKey, secretKey string, now time.Time) (Credentials, error)
}

// HMACSigner sends the access key as a bearer token with X-Timestamp and
// X-Signature headers.
type HMACSigner struct{}

func (HMACSigner) Credentials(accessKey, secretKey string, now time.Time) (Credentials, error) {
	ts := strconv.FormatInt(now.Unix(), 10)
	return Credentials{
		"Authorization": "Bearer " + accessKey,
		"X-Timestamp":   ts,
		"X-Signature":   Sign(accessKey, secretKey, ts),
	}, nil
}

// JWTSigner sends an HS256 token with iss=accessKey as the bearer token.
type JWTSigner struct {
	// TTL bounds token validity; zero means 30 minutes.
	TTL time.Duration
}

func (s JWTSigner) Credentials(accessKey, secretKey string, now time.Time) (Credentials, error) {
	ttl := s.TTL
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Issuer:    accessKey,
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		NotBefore: jwt.NewNumericDate(now.Add(-5 * time.Second)),
	})
	signed, err := token.SignedString([]byte(secretKey))
	if err != nil {
		return nil, fmt.Errorf("sign jwt: %w", err)
	}
	return Credentials{"Authorization": "Bearer " + signed}, nil
}

// SignerFor returns the signer for an auth mode name ("hmac" or "jwt").
func SignerFor(mode string) Signer {
	if mode == "jwt" {
		return JWTSigner{}
	}
	return HMACSigner{}
}
