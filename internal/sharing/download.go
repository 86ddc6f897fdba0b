package sharing

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/dmitrijs2005/gophshare/internal/blobstore"
	"github.com/dmitrijs2005/gophshare/internal/common"
	"github.com/dmitrijs2005/gophshare/internal/cryptox"
	"github.com/dmitrijs2005/gophshare/internal/filex"
	"github.com/dmitrijs2005/gophshare/internal/identity"
	"github.com/dmitrijs2005/gophshare/internal/models"
)

type DownloadOptions struct {
	// Password is required for password-protected records.
	Password string
	// Raw skips decryption and returns the ciphertext with its sidecar.
	Raw bool
}

type DownloadResult struct {
	FileName string
	Data     []byte
	Raw      bool
	// Sidecar is set for raw downloads only.
	Sidecar *models.Sidecar
}

// Download fetches the ciphertext of entry and decrypts it with the key the
// caller can resolve. Every credential or authentication failure is
// reported as common.ErrAccessDenied, without saying which step failed.
func (s *Service) Download(ctx context.Context, entry models.Entry, id *identity.Keypair, opts DownloadOptions) (*DownloadResult, error) {
	rec := entry.Payload
	log := s.logger.With("fileName", rec.FileName, "cid", rec.CID, "recordId", entry.ID)

	if opts.Raw {
		ciphertext, err := s.fetch(ctx, rec.CID)
		if err != nil {
			log.Error(ctx, "raw download failed", "error", err)
			return nil, err
		}
		sc := models.SidecarFor(rec)
		log.Info(ctx, "raw download finished", "size", len(ciphertext))
		return &DownloadResult{FileName: rec.FileName, Data: ciphertext, Raw: true, Sidecar: &sc}, nil
	}

	log.Info(ctx, "download started", "protection", rec.Protection)

	key, err := resolveKey(rec, id, opts.Password)
	if err != nil {
		log.Warn(ctx, "download denied", "error", err)
		return nil, err
	}
	defer common.WipeByteArray(key)

	ciphertext, err := s.fetch(ctx, rec.CID)
	if err != nil {
		log.Error(ctx, "download fetch failed", "error", err)
		return nil, err
	}

	plain, err := cryptox.Decrypt(ciphertext, rec.IV, key)
	if err != nil {
		log.Warn(ctx, "download denied", "error", err)
		return nil, fmt.Errorf("%w: %w", common.ErrAccessDenied, err)
	}

	log.Info(ctx, "download finished", "size", len(plain))
	return &DownloadResult{FileName: rec.FileName, Data: plain}, nil
}

// ExportRaw writes the ciphertext of entry and its sidecar into dir as
// <name>.encrypted and <name>.metadata.json.
func (s *Service) ExportRaw(ctx context.Context, entry models.Entry, dir string) (cipherPath, sidecarPath string, err error) {
	res, err := s.Download(ctx, entry, nil, DownloadOptions{Raw: true})
	if err != nil {
		return "", "", err
	}

	name, err := SafeFileName(res.FileName)
	if err != nil {
		return "", "", err
	}
	dir, err = filex.EnsureDir(dir)
	if err != nil {
		return "", "", err
	}

	sidecar, err := json.MarshalIndent(res.Sidecar, "", "  ")
	if err != nil {
		return "", "", fmt.Errorf("encode sidecar: %w", err)
	}

	cipherPath = filepath.Join(dir, name+".encrypted")
	sidecarPath = filepath.Join(dir, name+".metadata.json")
	if err := filex.WriteFile(cipherPath, res.Data, 0o600); err != nil {
		return "", "", err
	}
	if err := filex.WriteFile(sidecarPath, sidecar, 0o600); err != nil {
		return "", "", err
	}

	s.logger.Info(ctx, "raw export written", "recordId", entry.ID, "path", cipherPath)
	return cipherPath, sidecarPath, nil
}

// DecryptOffline decrypts a raw export without touching the store or the
// ledger. RSA sidecars carry only the owner's wrapped key.
func DecryptOffline(ciphertext []byte, sc models.Sidecar, id *identity.Keypair, password string) ([]byte, error) {
	rec := models.FileRecord{
		FileName:            sc.FileName,
		Protection:          sc.Protection,
		IV:                  sc.IV,
		CID:                 sc.CID,
		EncryptedContentKey: sc.EncryptedContentKey,
		Salt:                sc.Salt,
	}

	if want, err := blobstore.ComputeCID(ciphertext); err == nil && sc.CID != "" && want != sc.CID {
		return nil, fmt.Errorf("%w: ciphertext does not match sidecar cid", common.ErrAccessDenied)
	}

	key, err := resolveKey(rec, id, password)
	if err != nil {
		return nil, err
	}
	defer common.WipeByteArray(key)

	plain, err := cryptox.Decrypt(ciphertext, rec.IV, key)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrAccessDenied, err)
	}
	return plain, nil
}

// ParseSidecar decodes a sidecar document.
func ParseSidecar(b []byte) (models.Sidecar, error) {
	var sc models.Sidecar
	if err := json.Unmarshal(b, &sc); err != nil {
		return models.Sidecar{}, fmt.Errorf("%w: %v", common.ErrorIncorrectMetadata, err)
	}
	return sc, nil
}

// resolveKey returns the content key of rec for the caller.
func resolveKey(rec models.FileRecord, id *identity.Keypair, password string) ([]byte, error) {
	switch rec.Protection {
	case models.ProtectionPassword:
		if password == "" {
			return nil, common.ErrPasswordRequired
		}
		if len(rec.Salt) != cryptox.SaltSize {
			return nil, fmt.Errorf("%w: record has no usable salt", common.ErrAccessDenied)
		}
		key, _, err := cryptox.DeriveFromPassword([]byte(password), rec.Salt)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", common.ErrAccessDenied, err)
		}
		return key, nil

	case models.ProtectionRSA:
		if id == nil {
			return nil, fmt.Errorf("%w: %w", common.ErrAccessDenied, common.ErrNoIdentity)
		}
		key, err := unwrapFor(rec, id)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", common.ErrAccessDenied, err)
		}
		return key, nil

	default:
		return nil, fmt.Errorf("%w: unknown protection %q", common.ErrAccessDenied, rec.Protection)
	}
}

func (s *Service) fetch(ctx context.Context, cid string) ([]byte, error) {
	chunks, err := s.store.Get(ctx, cid)
	if err != nil {
		return nil, err
	}
	return blobstore.ReadAll(chunks)
}

// SafeFileName reduces a record file name to a single path element so it
// cannot escape the output directory.
func SafeFileName(name string) (string, error) {
	base := filepath.Base(filepath.Clean(name))
	if base == "." || base == ".." || base == string(filepath.Separator) || base == "" {
		return "", fmt.Errorf("%w: unusable file name %q", common.ErrorIncorrectMetadata, name)
	}
	return base, nil
}
