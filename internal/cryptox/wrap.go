package cryptox

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/dmitrijs2005/gophshare/internal/common"
)

// contentKeyJWK is the serialized form of a content key inside a wrap
// envelope: a symmetric ("oct") JSON Web Key.
type contentKeyJWK struct {
	Alg    string   `json:"alg"`
	Ext    bool     `json:"ext"`
	K      string   `json:"k"`
	KeyOps []string `json:"key_ops"`
	Kty    string   `json:"kty"`
}

// Wrap encrypts key for the holder of pub using RSA-OAEP with SHA-256.
func Wrap(key []byte, pub *rsa.PublicKey) ([]byte, error) {
	payload, err := json.Marshal(contentKeyJWK{
		Alg:    "A256GCM",
		Ext:    true,
		K:      base64.RawURLEncoding.EncodeToString(key),
		KeyOps: []string{"encrypt", "decrypt"},
		Kty:    "oct",
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrCryptoFailure, err)
	}

	wrapped, err := rsa.EncryptOAEP(sha256.New(), rand.Reader, pub, payload, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrCryptoFailure, err)
	}
	return wrapped, nil
}

// Unwrap recovers a content key wrapped by Wrap. A private key that does not
// match the wrapping public key yields ErrUnwrapFailure.
func Unwrap(wrapped []byte, priv *rsa.PrivateKey) ([]byte, error) {
	payload, err := rsa.DecryptOAEP(sha256.New(), nil, priv, wrapped, nil)
	if err != nil {
		return nil, common.ErrUnwrapFailure
	}
	defer common.WipeByteArray(payload)

	var jwk contentKeyJWK
	if err := json.Unmarshal(payload, &jwk); err != nil {
		return nil, fmt.Errorf("%w: bad envelope", common.ErrUnwrapFailure)
	}
	if jwk.Kty != "oct" {
		return nil, fmt.Errorf("%w: kty %q", common.ErrUnwrapFailure, jwk.Kty)
	}
	key, err := base64.RawURLEncoding.DecodeString(jwk.K)
	if err != nil || len(key) != KeySize {
		return nil, fmt.Errorf("%w: bad key material", common.ErrUnwrapFailure)
	}
	return key, nil
}
