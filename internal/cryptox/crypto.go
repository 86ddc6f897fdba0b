// Package cryptox is the symmetric cipher engine: AES-256-GCM over file
// bytes, PBKDF2-SHA256 password derivation, and RSA-OAEP wrapping of
// content keys for individual readers.
package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"fmt"

	"github.com/dmitrijs2005/gophshare/internal/common"
	"golang.org/x/crypto/pbkdf2"
)

const (
	KeySize          = 32
	IVSize           = 12
	SaltSize         = 16
	PBKDF2Iterations = 200_000
)

// NewContentKey returns a random 256-bit content key.
func NewContentKey() ([]byte, error) {
	key := make([]byte, KeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrCryptoFailure, err)
	}
	return key, nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

// Encrypt seals plaintext under key with a fresh random 12-byte IV.
//
// The returned ciphertext has the 16-byte GCM tag appended, which is the
// layout WebCrypto's AES-GCM produces, so records written by other
// implementations decrypt unchanged.
func Encrypt(plaintext, key []byte) (ciphertext, iv []byte, err error) {
	aesgcm, err := newGCM(key)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", common.ErrCryptoFailure, err)
	}

	iv = make([]byte, IVSize)
	if _, err := rand.Read(iv); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", common.ErrCryptoFailure, err)
	}

	ciphertext = aesgcm.Seal(nil, iv, plaintext, nil)
	return ciphertext, iv, nil
}

// Decrypt opens ciphertext produced by Encrypt. Every failure, including a
// key or IV of the wrong size, is reported as ErrAuthenticationFailure so
// callers cannot tell a wrong key from corrupted data.
func Decrypt(ciphertext, iv, key []byte) ([]byte, error) {
	if len(iv) != IVSize {
		return nil, common.ErrAuthenticationFailure
	}
	aesgcm, err := newGCM(key)
	if err != nil {
		return nil, common.ErrAuthenticationFailure
	}

	plaintext, err := aesgcm.Open(nil, iv, ciphertext, nil)
	if err != nil {
		return nil, common.ErrAuthenticationFailure
	}
	return plaintext, nil
}

// DeriveFromPassword derives a content key from password and salt with
// PBKDF2-HMAC-SHA256. A nil salt is replaced by a fresh random one, which
// is returned so it can be stored next to the ciphertext.
func DeriveFromPassword(password, salt []byte) (key, usedSalt []byte, err error) {
	if salt == nil {
		salt = make([]byte, SaltSize)
		if _, err := rand.Read(salt); err != nil {
			return nil, nil, fmt.Errorf("%w: %v", common.ErrCryptoFailure, err)
		}
	}
	key = pbkdf2.Key(password, salt, PBKDF2Iterations, KeySize, sha256.New)
	return key, salt, nil
}
