// Package models holds the ledger payload types and their persisted JSON
// shapes. Field names are part of the interchange format and must not change.
package models

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophshare/internal/common"
	"github.com/dmitrijs2005/gophshare/internal/identity"
	"github.com/go-playground/validator/v10"
)

type Protection string

const (
	ProtectionRSA      Protection = "rsa"
	ProtectionPassword Protection = "password"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// CapabilityEntry grants one recipient access: the record's content key
// wrapped under that recipient's public key.
type CapabilityEntry struct {
	PublicKey           identity.PortableKey `json:"publicKey"`
	EncryptedContentKey string               `json:"encryptedSymKeyB64" validate:"required,base64"`
}

// FileRecord is the ledger payload describing one published file.
//
// Password records carry Salt and no key material. RSA records carry
// OwnerPublicKey, EncryptedContentKey and SharedWith.
type FileRecord struct {
	FileName            string                `json:"fileName" validate:"required"`
	Protection          Protection            `json:"protection" validate:"required,oneof=rsa password"`
	CID                 string                `json:"cid" validate:"required"`
	IV                  ByteArray             `json:"iv" validate:"len=12"`
	Timestamp           time.Time             `json:"timestamp" validate:"required"`
	OwnerPublicKey      *identity.PortableKey `json:"ownerPublicKey,omitempty" validate:"required_if=Protection rsa"`
	EncryptedContentKey string                `json:"encryptedSymKeyB64,omitempty" validate:"required_if=Protection rsa,omitempty,base64"`
	Salt                ByteArray             `json:"salt,omitempty" validate:"required_if=Protection password"`
	SharedWith          []CapabilityEntry     `json:"sharedWith" validate:"dive"`
	SharedBy            *identity.PortableKey `json:"sharedBy,omitempty"`
}

type fileRecordJSON FileRecord

// MarshalJSON emits sharedWith as [] for rsa records and omits it for
// password records.
func (r FileRecord) MarshalJSON() ([]byte, error) {
	type wire struct {
		fileRecordJSON
		SharedWith *[]CapabilityEntry `json:"sharedWith,omitempty"`
	}
	w := wire{fileRecordJSON: fileRecordJSON(r)}
	if r.Protection == ProtectionRSA || len(r.SharedWith) > 0 {
		shared := r.SharedWith
		if shared == nil {
			shared = []CapabilityEntry{}
		}
		w.SharedWith = &shared
	}
	return json.Marshal(w)
}

// Validate checks the structural invariants of a record before it is
// appended. Violations wrap common.ErrorIncorrectMetadata.
func (r FileRecord) Validate() error {
	if err := validate.Struct(r); err != nil {
		return fmt.Errorf("%w: %v", common.ErrorIncorrectMetadata, err)
	}
	if r.Protection == ProtectionPassword && (r.EncryptedContentKey != "" || len(r.SharedWith) > 0) {
		return fmt.Errorf("%w: password record carries key material", common.ErrorIncorrectMetadata)
	}
	if r.OwnerPublicKey != nil && r.OwnerPublicKey.IsPrivate() {
		return fmt.Errorf("%w: private key in record", common.ErrorIncorrectMetadata)
	}
	for i, c := range r.SharedWith {
		if c.PublicKey.N == "" || c.PublicKey.IsPrivate() {
			return fmt.Errorf("%w: sharedWith[%d] has no usable public key", common.ErrorIncorrectMetadata, i)
		}
	}
	return nil
}

// WrappedKey decodes EncryptedContentKey.
func (r FileRecord) WrappedKey() ([]byte, error) {
	return DecodeWrappedKey(r.EncryptedContentKey)
}

// WrappedKey decodes the recipient's wrapped content key.
func (c CapabilityEntry) WrappedKey() ([]byte, error) {
	return DecodeWrappedKey(c.EncryptedContentKey)
}

// CapabilityFor returns the capability granted to pub, if any.
func (r FileRecord) CapabilityFor(pub identity.PortableKey) (CapabilityEntry, bool) {
	for _, c := range r.SharedWith {
		if c.PublicKey.Equal(pub) {
			return c, true
		}
	}
	return CapabilityEntry{}, false
}

// Clone returns a deep copy, so a derived record never aliases the
// original's slices or keys.
func (r FileRecord) Clone() FileRecord {
	out := r
	out.IV = ByteArray(common.CloneBytes(r.IV))
	out.Salt = ByteArray(common.CloneBytes(r.Salt))
	out.OwnerPublicKey = cloneKey(r.OwnerPublicKey)
	out.SharedBy = cloneKey(r.SharedBy)
	if r.SharedWith != nil {
		out.SharedWith = make([]CapabilityEntry, len(r.SharedWith))
		for i, c := range r.SharedWith {
			c.PublicKey.KeyOps = append([]string(nil), c.PublicKey.KeyOps...)
			out.SharedWith[i] = c
		}
	}
	return out
}

func cloneKey(k *identity.PortableKey) *identity.PortableKey {
	if k == nil {
		return nil
	}
	c := *k
	c.KeyOps = append([]string(nil), k.KeyOps...)
	return &c
}

// EncodeWrappedKey is the inverse of DecodeWrappedKey.
func EncodeWrappedKey(b []byte) string {
	return base64.StdEncoding.EncodeToString(b)
}

func DecodeWrappedKey(s string) ([]byte, error) {
	return base64.StdEncoding.DecodeString(s)
}
