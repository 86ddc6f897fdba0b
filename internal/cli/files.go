package cli

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/dmitrijs2005/gophshare/internal/common"
	"github.com/dmitrijs2005/gophshare/internal/filex"
	"github.com/dmitrijs2005/gophshare/internal/models"
	"github.com/dmitrijs2005/gophshare/internal/sharing"
)

// askPassword prompts for a password. ok is false when the user entered
// nothing, which cancels the command.
func (a *App) askPassword() (pw string, ok bool, err error) {
	b, err := GetPassword(lockedWriter{a})
	if err != nil {
		return "", false, err
	}
	defer common.WipeByteArray(b)
	if len(b) == 0 {
		return "", false, nil
	}
	return string(b), true, nil
}

// Upload encrypts a local file and publishes it. With -p the file is
// protected by a password instead of the identity.
func (a *App) Upload(ctx context.Context, args []string) error {
	args, usePassword := splitFlag(args, "-p")
	if len(args) != 1 {
		return usageError("upload <path> [-p]")
	}

	var opts sharing.UploadOptions
	if usePassword {
		pw, ok, err := a.askPassword()
		if err != nil || !ok {
			return err
		}
		opts.Password = pw
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}

	entry, err := a.service.Upload(ctx, data, filepath.Base(args[0]), a.identity, opts)
	if err != nil {
		return err
	}
	a.printf("Uploaded %q (%s) as %s\n", entry.Payload.FileName, entry.Payload.Protection, entry.ID)
	return nil
}

func (a *App) accessLabel(rec models.FileRecord) string {
	if rec.Protection == models.ProtectionPassword {
		return "password"
	}
	if a.identity == nil {
		return "-"
	}
	me := a.identity.PublicJWK()
	if _, ok := rec.CapabilityFor(me); ok {
		return "shared"
	}
	if rec.OwnerPublicKey != nil && rec.OwnerPublicKey.Equal(me) {
		return "owner"
	}
	return "-"
}

// List prints every ledger record in insertion order.
func (a *App) List(ctx context.Context, args []string) error {
	entries, err := a.service.List(ctx, 0)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		a.printf("No records\n")
		return nil
	}

	var buf bytes.Buffer
	tw := tabwriter.NewWriter(&buf, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tACCESS\tRECIPIENTS\tUPLOADED")
	for _, e := range entries {
		rec := e.Payload
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n",
			e.ID, rec.FileName, a.accessLabel(rec), len(rec.SharedWith), rec.Timestamp.Local().Format(time.DateTime))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	a.printf("%s", buf.String())
	return nil
}

// Share grants the holder of the public JWK in recipientFile access to a
// record.
func (a *App) Share(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return usageError("share <recordId> <recipient.json>")
	}

	recipient, err := os.ReadFile(args[1])
	if err != nil {
		return err
	}

	entry, err := a.service.Share(ctx, args[0], recipient, a.identity)
	if err != nil {
		return err
	}
	a.printf("Shared %q; new record %s\n", entry.Payload.FileName, entry.ID)
	return nil
}

// Download decrypts a record into outDir. Password records always prompt.
func (a *App) Download(ctx context.Context, args []string) error {
	args, usePassword := splitFlag(args, "-p")
	if len(args) != 2 {
		return usageError("download <recordId> <outDir> [-p]")
	}

	entry, err := a.service.Find(ctx, args[0])
	if err != nil {
		return err
	}

	var opts sharing.DownloadOptions
	if usePassword || entry.Payload.Protection == models.ProtectionPassword {
		pw, ok, err := a.askPassword()
		if err != nil || !ok {
			return err
		}
		opts.Password = pw
	}

	res, err := a.service.Download(ctx, *entry, a.identity, opts)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(res.Data)

	path, err := a.writeOutput(args[1], res.FileName, res.Data)
	if err != nil {
		return err
	}
	a.printf("Saved %s (%d bytes)\n", path, len(res.Data))
	return nil
}

func (a *App) writeOutput(dir, name string, data []byte) (string, error) {
	name, err := sharing.SafeFileName(name)
	if err != nil {
		return "", err
	}
	dir, err = filex.EnsureDir(dir)
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, name)
	if err := filex.WriteFile(path, data, 0o600); err != nil {
		return "", err
	}
	return path, nil
}

// Raw exports a record's ciphertext and sidecar without decrypting.
func (a *App) Raw(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return usageError("raw <recordId> <outDir>")
	}

	entry, err := a.service.Find(ctx, args[0])
	if err != nil {
		return err
	}
	cipherPath, sidecarPath, err := a.service.ExportRaw(ctx, *entry, args[1])
	if err != nil {
		return err
	}
	a.printf("Ciphertext: %s\nSidecar:    %s\n", cipherPath, sidecarPath)
	return nil
}

// Decrypt opens a raw export offline, without touching the backends.
func (a *App) Decrypt(ctx context.Context, args []string) error {
	args, usePassword := splitFlag(args, "-p")
	if len(args) != 3 {
		return usageError("decrypt <cipher> <sidecar> <outPath> [-p]")
	}

	ciphertext, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	raw, err := os.ReadFile(args[1])
	if err != nil {
		return err
	}
	sc, err := sharing.ParseSidecar(raw)
	if err != nil {
		return err
	}

	var password string
	if usePassword || sc.Protection == models.ProtectionPassword {
		pw, ok, err := a.askPassword()
		if err != nil || !ok {
			return err
		}
		password = pw
	}

	plain, err := sharing.DecryptOffline(ciphertext, sc, a.identity, password)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(plain)

	if err := filex.WriteFile(args[2], plain, 0o600); err != nil {
		return err
	}
	a.printf("Decrypted %q to %s\n", sc.FileName, args[2])
	return nil
}

// Watch toggles a live feed of ledger snapshots.
func (a *App) Watch(ctx context.Context, args []string) error {
	if a.stopWatch() {
		a.printf("Stopped watching\n")
		return nil
	}

	seen := -1
	unsubscribe, err := a.service.Subscribe(ctx, func(entries []models.Entry) {
		if seen >= 0 && len(entries) > seen {
			for _, e := range entries[seen:] {
				a.printf("[watch] new record %s: %q (%s)\n", e.ID, e.Payload.FileName, a.accessLabel(e.Payload))
			}
		} else {
			a.printf("[watch] %d records\n", len(entries))
		}
		seen = len(entries)
	})
	if err != nil {
		return err
	}

	a.mu.Lock()
	a.watch = unsubscribe
	a.mu.Unlock()
	a.printf("Watching for new records (run watch again to stop)\n")
	return nil
}

// stopWatch ends the live feed and reports whether one was running.
func (a *App) stopWatch() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.watch == nil {
		return false
	}
	a.watch()
	a.watch = nil
	return true
}
