// Package identity manages the RSA keypairs that serve as user identities.
//
// A public key, exported as a JSON Web Key, is the durable handle other
// participants use to share files with its holder. The private half stays in
// the holder's process; it leaves only through ExportPrivate or SaveKeyFile,
// both explicit offline-backup actions. Nothing here touches the blob store
// or the ledger.
package identity

import (
	"crypto/rand"
	"crypto/rsa"
	"fmt"
	"os"

	"github.com/dmitrijs2005/gophshare/internal/common"
	"github.com/dmitrijs2005/gophshare/internal/filex"
)

const (
	// KeyBits is the only modulus size accepted on import.
	KeyBits = 2048
	// Algorithm is advertised in exported keys (RSA-OAEP with SHA-256).
	Algorithm = "RSA-OAEP-256"
)

// Keypair is one user's identity.
type Keypair struct {
	private *rsa.PrivateKey
}

// GenerateKeypair creates a fresh RSA-2048 keypair with e=65537.
func GenerateKeypair() (*Keypair, error) {
	priv, err := rsa.GenerateKey(rand.Reader, KeyBits)
	if err != nil {
		return nil, fmt.Errorf("%w: generate rsa key: %v", common.ErrCryptoFailure, err)
	}
	return &Keypair{private: priv}, nil
}

// ExportPublic returns the portable public half of kp.
func ExportPublic(kp *Keypair) PortableKey {
	return jwkFromPublic(&kp.private.PublicKey)
}

// ExportPrivate returns the full portable key, for offline backup only.
func ExportPrivate(kp *Keypair) PortableKey {
	return jwkFromPrivate(kp.private)
}

// ImportKeypair rebuilds both halves from a private portable key.
func ImportKeypair(k PortableKey) (*Keypair, error) {
	priv, err := privateFromJWK(k)
	if err != nil {
		return nil, err
	}
	return &Keypair{private: priv}, nil
}

// ImportPublic parses a portable public key. Private fields, if present,
// are ignored.
func ImportPublic(k PortableKey) (*rsa.PublicKey, error) {
	return publicFromJWK(k)
}

// PublicKey returns the RSA public key used for wrapping.
func (kp *Keypair) PublicKey() *rsa.PublicKey {
	return &kp.private.PublicKey
}

// PrivateKey returns the RSA private key used for unwrapping.
func (kp *Keypair) PrivateKey() *rsa.PrivateKey {
	return kp.private
}

// PublicJWK is shorthand for ExportPublic(kp).
func (kp *Keypair) PublicJWK() PortableKey {
	return ExportPublic(kp)
}

// SaveKeyFile writes the private portable key to path with 0600 permissions.
func SaveKeyFile(path string, kp *Keypair) error {
	b, err := ExportPrivate(kp).JSON()
	if err != nil {
		return fmt.Errorf("marshal key: %w", err)
	}
	return filex.WriteFile(path, b, 0o600)
}

// LoadKeyFile reads a private portable key written by SaveKeyFile (or any
// RSA private JWK) and imports it.
func LoadKeyFile(path string) (*Keypair, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read key file: %w", err)
	}
	k, err := ParsePortableKey(b)
	if err != nil {
		return nil, err
	}
	return ImportKeypair(k)
}
