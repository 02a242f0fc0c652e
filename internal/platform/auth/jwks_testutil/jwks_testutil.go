package jwks_testutil

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type Keypair struct {
	Kid     string
	Private *rsa.PrivateKey
}

func GenerateRSAKeypair(kid string) (Keypair, error) {
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return Keypair{}, err
	}
	return Keypair{Kid: kid, Private: priv}, nil
}

// JWKSJSON renders the public halves of keys as a JWKS document.
func JWKSJSON(keys []Keypair) []byte {
	type jwk struct {
		Kty string `json:"kty"`
		Use string `json:"use"`
		Alg string `json:"alg"`
		Kid string `json:"kid"`
		N   string `json:"n"`
		E   string `json:"e"`
	}
	type jwks struct {
		Keys []jwk `json:"keys"`
	}
	out := jwks{Keys: make([]jwk, 0, len(keys))}
	for _, kp := range keys {
		pub := kp.Private.PublicKey
		out.Keys = append(out.Keys, jwk{
			Kty: "RSA",
			Use: "sig",
			Alg: "RS256",
			Kid: kp.Kid,
			N:   base64.RawURLEncoding.EncodeToString(pub.N.Bytes()),
			// e is a big-endian unsigned int.
			E: base64.RawURLEncoding.EncodeToString(big.NewInt(int64(pub.E)).Bytes()),
		})
	}
	b, _ := json.Marshal(out)
	return b
}

// NewRotatingJWKSServer returns a JWKS server whose key set can be swapped at runtime.
//
// Use SetKeys to rotate keys.
func NewRotatingJWKSServer() (*httptest.Server, func(keys []Keypair)) {
	var jwksJSON atomic.Value // []byte
	jwksJSON.Store([]byte(`{"keys":[]}`))

	setKeys := func(keys []Keypair) {
		jwksJSON.Store(JWKSJSON(keys))
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(jwksJSON.Load().([]byte))
	}))

	return srv, setKeys
}

// TokenSpec describes an access token to mint.
type TokenSpec struct {
	Issuer   string
	Audience []string
	Subject  string
	Email    string
	// AppRole is written to app_metadata.role ("admin" grants admin).
	AppRole string

	Now       time.Time
	ExpiresIn time.Duration
	// NotBefore is relative to Now; nil omits nbf.
	NotBefore *time.Duration
}

// MintRS256JWT creates a signed RS256 access token shaped like the identity provider's.
func MintRS256JWT(kp Keypair, spec TokenSpec) (string, error) {
	claims := jwt.MapClaims{
		"iss":  spec.Issuer,
		"sub":  spec.Subject,
		"iat":  spec.Now.Unix(),
		"exp":  spec.Now.Add(spec.ExpiresIn).Unix(),
		"role": "authenticated",
	}
	switch len(spec.Audience) {
	case 0:
	case 1:
		claims["aud"] = spec.Audience[0]
	default:
		claims["aud"] = spec.Audience
	}
	if spec.Email != "" {
		claims["email"] = spec.Email
	}
	if spec.AppRole != "" {
		claims["app_metadata"] = map[string]any{"role": spec.AppRole}
	}
	if spec.NotBefore != nil {
		claims["nbf"] = spec.Now.Add(*spec.NotBefore).Unix()
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = kp.Kid
	return token.SignedString(kp.Private)
}
