package cli

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/dmitrijs2005/gophshare/internal/common"
	"github.com/dmitrijs2005/gophshare/internal/filex"
	"github.com/dmitrijs2005/gophshare/internal/identity"
)

// fingerprint is a short, stable label for a public key.
func fingerprint(k identity.PortableKey) string {
	sum := sha256.Sum256([]byte(k.N + "." + k.E))
	return hex.EncodeToString(sum[:6])
}

func (a *App) saveIdentity(ctx context.Context, kp *identity.Keypair, force bool) error {
	if a.identity != nil && !force {
		return fmt.Errorf("identity %s already loaded; repeat with -f to replace it", fingerprint(a.identity.PublicJWK()))
	}
	if _, err := filex.EnsureDir(a.config.DataDir); err != nil {
		return err
	}
	if err := identity.SaveKeyFile(a.config.KeyPath(), kp); err != nil {
		return err
	}
	a.identity = kp
	a.logger.Info(ctx, "identity saved", "keyFile", a.config.KeyPath(), "fingerprint", fingerprint(kp.PublicJWK()))
	return nil
}

// Keygen creates a keypair and stores it as the CLI identity.
func (a *App) Keygen(ctx context.Context, args []string) error {
	args, force := splitFlag(args, "-f")
	if len(args) != 0 {
		return usageError("keygen [-f]")
	}

	kp, err := identity.GenerateKeypair()
	if err != nil {
		return err
	}
	if err := a.saveIdentity(ctx, kp, force); err != nil {
		return err
	}
	a.printf("Generated identity %s\n", fingerprint(kp.PublicJWK()))
	return nil
}

// Import loads a private JWK from file and makes it the CLI identity.
func (a *App) Import(ctx context.Context, args []string) error {
	args, force := splitFlag(args, "-f")
	if len(args) != 1 {
		return usageError("import <file> [-f]")
	}

	kp, err := identity.LoadKeyFile(args[0])
	if err != nil {
		return err
	}
	if err := a.saveIdentity(ctx, kp, force); err != nil {
		return err
	}
	a.printf("Imported identity %s\n", fingerprint(kp.PublicJWK()))
	return nil
}

// Export writes the public JWK to file for recipients to share with.
func (a *App) Export(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return usageError("export <file>")
	}
	if a.identity == nil {
		return common.ErrNoIdentity
	}

	b, err := a.identity.PublicJWK().JSON()
	if err != nil {
		return err
	}
	if err := filex.WriteFile(args[0], b, 0o644); err != nil {
		return err
	}
	a.printf("Public key written to %s\n", args[0])
	return nil
}

// Whoami prints the public JWK.
func (a *App) Whoami(ctx context.Context, args []string) error {
	if a.identity == nil {
		return common.ErrNoIdentity
	}
	b, err := a.identity.PublicJWK().JSON()
	if err != nil {
		return err
	}
	a.printf("%s\n", b)
	return nil
}
