package identity

import (
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/dmitrijs2005/gophshare/internal/common"
)

// PortableKey is the JSON Web Key form of an RSA key. Public keys carry only
// kty, n and e; private keys add the remaining numeric fields. All numbers
// are unpadded base64url big-endian integers, as in RFC 7518 §6.3.
type PortableKey struct {
	Kty    string   `json:"kty"`
	N      string   `json:"n"`
	E      string   `json:"e"`
	D      string   `json:"d,omitempty"`
	P      string   `json:"p,omitempty"`
	Q      string   `json:"q,omitempty"`
	DP     string   `json:"dp,omitempty"`
	DQ     string   `json:"dq,omitempty"`
	QI     string   `json:"qi,omitempty"`
	Alg    string   `json:"alg,omitempty"`
	Ext    bool     `json:"ext,omitempty"`
	KeyOps []string `json:"key_ops,omitempty"`
}

// ParsePortableKey decodes JSON text into a PortableKey.
func ParsePortableKey(b []byte) (PortableKey, error) {
	var k PortableKey
	if err := json.Unmarshal(b, &k); err != nil {
		return PortableKey{}, fmt.Errorf("%w: %v", common.ErrInvalidKeyFormat, err)
	}
	return k, nil
}

// JSON returns the indented JSON text of k, the form exchanged out-of-band.
func (k PortableKey) JSON() ([]byte, error) {
	return json.MarshalIndent(k, "", "  ")
}

// Public strips every private field.
func (k PortableKey) Public() PortableKey {
	return PortableKey{Kty: k.Kty, N: k.N, E: k.E, Alg: k.Alg, Ext: k.Ext, KeyOps: []string{"encrypt"}}
}

// IsPrivate reports whether k carries a private exponent.
func (k PortableKey) IsPrivate() bool {
	return k.D != ""
}

// Equal compares the public identity (kty, n, e) of two keys.
func (k PortableKey) Equal(other PortableKey) bool {
	return k.Kty == other.Kty && k.N == other.N && k.E == other.E
}

func encodeInt(i *big.Int) string {
	return base64.RawURLEncoding.EncodeToString(i.Bytes())
}

func decodeInt(field, s string) (*big.Int, error) {
	if s == "" {
		return nil, fmt.Errorf("%w: missing %s", common.ErrInvalidKeyFormat, field)
	}
	b, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: bad %s: %v", common.ErrInvalidKeyFormat, field, err)
	}
	return new(big.Int).SetBytes(b), nil
}

func publicFromJWK(k PortableKey) (*rsa.PublicKey, error) {
	if k.Kty != "RSA" {
		return nil, fmt.Errorf("%w: kty %q", common.ErrInvalidKeyFormat, k.Kty)
	}
	n, err := decodeInt("n", k.N)
	if err != nil {
		return nil, err
	}
	e, err := decodeInt("e", k.E)
	if err != nil {
		return nil, err
	}
	if n.BitLen() != KeyBits {
		return nil, fmt.Errorf("%w: modulus is %d bits", common.ErrInvalidKeyFormat, n.BitLen())
	}
	if !e.IsInt64() || e.Int64() < 3 || e.Int64() > 1<<31-1 || e.Bit(0) == 0 {
		return nil, fmt.Errorf("%w: bad public exponent", common.ErrInvalidKeyFormat)
	}
	return &rsa.PublicKey{N: n, E: int(e.Int64())}, nil
}

func privateFromJWK(k PortableKey) (*rsa.PrivateKey, error) {
	pub, err := publicFromJWK(k)
	if err != nil {
		return nil, err
	}
	d, err := decodeInt("d", k.D)
	if err != nil {
		return nil, err
	}
	p, err := decodeInt("p", k.P)
	if err != nil {
		return nil, err
	}
	q, err := decodeInt("q", k.Q)
	if err != nil {
		return nil, err
	}

	priv := &rsa.PrivateKey{
		PublicKey: *pub,
		D:         d,
		Primes:    []*big.Int{p, q},
	}
	if err := priv.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrInvalidKeyFormat, err)
	}
	priv.Precompute()
	return priv, nil
}

func jwkFromPublic(pub *rsa.PublicKey) PortableKey {
	return PortableKey{
		Kty:    "RSA",
		N:      encodeInt(pub.N),
		E:      encodeInt(big.NewInt(int64(pub.E))),
		Alg:    Algorithm,
		Ext:    true,
		KeyOps: []string{"encrypt"},
	}
}

func jwkFromPrivate(priv *rsa.PrivateKey) PortableKey {
	k := jwkFromPublic(&priv.PublicKey)
	k.D = encodeInt(priv.D)
	k.P = encodeInt(priv.Primes[0])
	k.Q = encodeInt(priv.Primes[1])
	k.DP = encodeInt(priv.Precomputed.Dp)
	k.DQ = encodeInt(priv.Precomputed.Dq)
	k.QI = encodeInt(priv.Precomputed.Qinv)
	k.KeyOps = []string{"decrypt"}
	return k
}
