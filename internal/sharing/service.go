// Package sharing orchestrates upload, share and download of encrypted
// files on top of a blob store and the metadata ledger.
//
// Access control is purely cryptographic: a caller can read or re-share a
// record exactly when one of its wrapped content keys unwraps under the
// caller's private key. Sharing never edits a record; it appends a copy
// carrying one more capability.
package sharing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophshare/internal/blobstore"
	"github.com/dmitrijs2005/gophshare/internal/common"
	"github.com/dmitrijs2005/gophshare/internal/cryptox"
	"github.com/dmitrijs2005/gophshare/internal/identity"
	"github.com/dmitrijs2005/gophshare/internal/ledger"
	"github.com/dmitrijs2005/gophshare/internal/logging"
	"github.com/dmitrijs2005/gophshare/internal/models"
)

// Ledger is the metadata log contract. *ledger.Log and *remote.Ledger
// satisfy it.
type Ledger interface {
	Append(ctx context.Context, rec models.FileRecord) (string, error)
	Subscribe(ctx context.Context, cb ledger.Callback) (ledger.Unsubscribe, error)
	List(ctx context.Context, limit int) ([]models.Entry, error)
	Get(ctx context.Context, id string) (*models.Entry, error)
}

type UploadOptions struct {
	// Password selects password protection. Empty means rsa protection
	// under the uploader's own public key.
	Password string
}

type Service struct {
	store  blobstore.Store
	ledger Ledger
	logger logging.Logger
	now    func() time.Time
}

func NewService(store blobstore.Store, l Ledger, logger logging.Logger) *Service {
	return &Service{
		store:  store,
		ledger: l,
		logger: logging.OrNop(logger),
		now:    time.Now,
	}
}

// Upload encrypts data, stores the ciphertext and appends its record.
func (s *Service) Upload(ctx context.Context, data []byte, fileName string, id *identity.Keypair, opts UploadOptions) (*models.Entry, error) {
	if fileName == "" {
		return nil, fmt.Errorf("%w: empty file name", common.ErrorIncorrectMetadata)
	}

	rec := models.FileRecord{
		FileName:  fileName,
		Timestamp: s.now().UTC().Truncate(time.Millisecond),
	}

	var key []byte
	if opts.Password != "" {
		k, salt, err := cryptox.DeriveFromPassword([]byte(opts.Password), nil)
		if err != nil {
			return nil, err
		}
		key = k
		rec.Protection = models.ProtectionPassword
		rec.Salt = salt
	} else {
		if id == nil {
			return nil, common.ErrNoIdentity
		}
		k, err := cryptox.NewContentKey()
		if err != nil {
			return nil, err
		}
		key = k
		rec.Protection = models.ProtectionRSA
	}
	defer common.WipeByteArray(key)

	s.logger.Info(ctx, "upload started", "fileName", fileName, "protection", rec.Protection, "size", len(data))

	ciphertext, iv, err := cryptox.Encrypt(data, key)
	if err != nil {
		s.logger.Error(ctx, "upload encryption failed", "fileName", fileName, "error", err)
		return nil, err
	}
	rec.IV = iv

	if rec.Protection == models.ProtectionRSA {
		wrapped, err := cryptox.Wrap(key, id.PublicKey())
		if err != nil {
			s.logger.Error(ctx, "upload key wrap failed", "fileName", fileName, "error", err)
			return nil, err
		}
		owner := id.PublicJWK()
		rec.OwnerPublicKey = &owner
		rec.EncryptedContentKey = models.EncodeWrappedKey(wrapped)
		rec.SharedWith = []models.CapabilityEntry{}
	}

	cid, err := s.store.Put(ctx, ciphertext)
	if err != nil {
		s.logger.Error(ctx, "upload store failed", "fileName", fileName, "error", err)
		return nil, fmt.Errorf("store ciphertext: %w", err)
	}
	rec.CID = cid

	recordID, err := s.ledger.Append(ctx, rec)
	if err != nil {
		// The blob stays behind unreferenced.
		s.logger.Error(ctx, "upload append failed", "fileName", fileName, "cid", cid, "error", err)
		return nil, fmt.Errorf("append record: %w", err)
	}

	s.logger.Info(ctx, "upload finished", "fileName", fileName, "cid", cid, "recordId", recordID)
	return &models.Entry{ID: recordID, Payload: rec}, nil
}

// Share grants recipientPublicKeyJSON access to the record recordID by
// appending a copy of it with one more capability. The caller must be able
// to unwrap the record's content key, either as owner or through its own
// capability on that record.
func (s *Service) Share(ctx context.Context, recordID string, recipientPublicKeyJSON []byte, id *identity.Keypair) (*models.Entry, error) {
	if id == nil {
		return nil, common.ErrNoIdentity
	}

	recipient, err := identity.ParsePortableKey(recipientPublicKeyJSON)
	if err != nil {
		return nil, err
	}
	recipient = recipient.Public()
	recipientPub, err := identity.ImportPublic(recipient)
	if err != nil {
		return nil, err
	}

	entry, err := s.ledger.Get(ctx, recordID)
	if err != nil {
		return nil, err
	}
	orig := entry.Payload

	s.logger.Info(ctx, "share started", "fileName", orig.FileName, "cid", orig.CID, "recordId", recordID)

	if orig.Protection != models.ProtectionRSA {
		return nil, fmt.Errorf("%w: record %s is password protected", common.ErrUnwrapFailure, recordID)
	}

	key, err := unwrapFor(orig, id)
	if err != nil {
		s.logger.Warn(ctx, "share refused", "recordId", recordID, "error", err)
		return nil, err
	}
	defer common.WipeByteArray(key)

	wrapped, err := cryptox.Wrap(key, recipientPub)
	if err != nil {
		return nil, err
	}

	derived := orig.Clone()
	sharer := id.PublicJWK()
	derived.SharedBy = &sharer
	derived.SharedWith = append(derived.SharedWith, models.CapabilityEntry{
		PublicKey:           recipient,
		EncryptedContentKey: models.EncodeWrappedKey(wrapped),
	})

	newID, err := s.ledger.Append(ctx, derived)
	if err != nil {
		s.logger.Error(ctx, "share append failed", "recordId", recordID, "error", err)
		return nil, fmt.Errorf("append record: %w", err)
	}

	s.logger.Info(ctx, "share finished", "fileName", orig.FileName, "cid", orig.CID, "recordId", newID, "from", recordID)
	return &models.Entry{ID: newID, Payload: derived}, nil
}

// Subscribe forwards to the ledger subscription.
func (s *Service) Subscribe(ctx context.Context, cb func([]models.Entry)) (ledger.Unsubscribe, error) {
	return s.ledger.Subscribe(ctx, cb)
}

// Find returns the ledger entry recordID.
func (s *Service) Find(ctx context.Context, recordID string) (*models.Entry, error) {
	return s.ledger.Get(ctx, recordID)
}

// List returns ledger entries, all of them when limit <= 0.
func (s *Service) List(ctx context.Context, limit int) ([]models.Entry, error) {
	return s.ledger.List(ctx, limit)
}

// unwrapFor recovers the content key of an rsa record with the caller's
// private key. The caller's capability is tried first, then the owner key.
func unwrapFor(rec models.FileRecord, id *identity.Keypair) ([]byte, error) {
	var errs []error

	if c, ok := rec.CapabilityFor(id.PublicJWK()); ok {
		key, err := unwrapEncoded(c.WrappedKey, id)
		if err == nil {
			return key, nil
		}
		errs = append(errs, err)
	}

	if rec.EncryptedContentKey != "" {
		key, err := unwrapEncoded(rec.WrappedKey, id)
		if err == nil {
			return key, nil
		}
		errs = append(errs, err)
	}

	if len(errs) == 0 {
		return nil, fmt.Errorf("%w: no wrapped key for caller", common.ErrUnwrapFailure)
	}
	return nil, errors.Join(errs...)
}

func unwrapEncoded(decode func() ([]byte, error), id *identity.Keypair) ([]byte, error) {
	wrapped, err := decode()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrUnwrapFailure, err)
	}
	return cryptox.Unwrap(wrapped, id.PrivateKey())
}
