package identity

import (
	"encoding/base64"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/dmitrijs2005/gophshare/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newKeypair(t *testing.T) *Keypair {
	t.Helper()
	kp, err := GenerateKeypair()
	require.NoError(t, err)
	return kp
}

func TestGenerateKeypair_Shape(t *testing.T) {
	kp := newKeypair(t)

	assert.Equal(t, KeyBits, kp.PublicKey().N.BitLen())
	assert.Equal(t, 65537, kp.PublicKey().E)

	pub := ExportPublic(kp)
	assert.Equal(t, "RSA", pub.Kty)
	assert.Equal(t, "AQAB", pub.E)
	assert.False(t, pub.IsPrivate())
	assert.Empty(t, pub.P)
}

func TestExportPrivate_ImportKeypair_RoundTrip(t *testing.T) {
	kp := newKeypair(t)

	priv := ExportPrivate(kp)
	require.True(t, priv.IsPrivate())

	b, err := priv.JSON()
	require.NoError(t, err)
	parsed, err := ParsePortableKey(b)
	require.NoError(t, err)

	back, err := ImportKeypair(parsed)
	require.NoError(t, err)

	assert.True(t, ExportPublic(back).Equal(ExportPublic(kp)))
	assert.Equal(t, 0, back.PrivateKey().D.Cmp(kp.PrivateKey().D))
}

func TestImportPublic_IgnoresPrivateFields(t *testing.T) {
	kp := newKeypair(t)

	pub, err := ImportPublic(ExportPrivate(kp))
	require.NoError(t, err)
	assert.Equal(t, 0, pub.N.Cmp(kp.PublicKey().N))
}

func TestImportKeypair_InvalidFormats(t *testing.T) {
	kp := newKeypair(t)
	good := ExportPrivate(kp)

	small := good
	small.N = base64.RawURLEncoding.EncodeToString(kp.PublicKey().N.Bytes()[:128])

	tests := []struct {
		name   string
		mutate func(k PortableKey) PortableKey
	}{
		{"wrong kty", func(k PortableKey) PortableKey { k.Kty = "EC"; return k }},
		{"missing e", func(k PortableKey) PortableKey { k.E = ""; return k }},
		{"missing d", func(k PortableKey) PortableKey { k.D = ""; return k }},
		{"missing p", func(k PortableKey) PortableKey { k.P = ""; return k }},
		{"missing q", func(k PortableKey) PortableKey { k.Q = ""; return k }},
		{"bad base64", func(k PortableKey) PortableKey { k.N = "!!!"; return k }},
		{"1024-bit modulus", func(PortableKey) PortableKey { return small }},
		{"even exponent", func(k PortableKey) PortableKey { k.E = "AQAA"; return k }},
		{"mismatched d", func(k PortableKey) PortableKey { k.D = k.P; return k }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ImportKeypair(tt.mutate(good))
			require.ErrorIs(t, err, common.ErrInvalidKeyFormat)
		})
	}
}

func TestImportPublic_RejectsPublicOnlyAsKeypair(t *testing.T) {
	kp := newKeypair(t)
	_, err := ImportKeypair(ExportPublic(kp))
	require.ErrorIs(t, err, common.ErrInvalidKeyFormat)
}

func TestParsePortableKey_MalformedJSON(t *testing.T) {
	_, err := ParsePortableKey([]byte(`{"kty":`))
	require.ErrorIs(t, err, common.ErrInvalidKeyFormat)
}

func TestPortableKey_EqualIgnoresMetadata(t *testing.T) {
	kp := newKeypair(t)
	a := ExportPublic(kp)
	b := a
	b.Alg = ""
	b.KeyOps = nil
	assert.True(t, a.Equal(b))
	assert.True(t, a.Equal(ExportPrivate(kp).Public()))

	other := ExportPublic(newKeypair(t))
	assert.False(t, a.Equal(other))
}

func TestSaveAndLoadKeyFile(t *testing.T) {
	kp := newKeypair(t)
	path := filepath.Join(t.TempDir(), "identity.json")

	require.NoError(t, SaveKeyFile(path, kp))

	if runtime.GOOS != "windows" {
		fi, err := os.Stat(path)
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0o600), fi.Mode().Perm())
	}

	loaded, err := LoadKeyFile(path)
	require.NoError(t, err)
	assert.True(t, loaded.PublicJWK().Equal(kp.PublicJWK()))
}

func TestLoadKeyFile_Missing(t *testing.T) {
	_, err := LoadKeyFile(filepath.Join(t.TempDir(), "nope.json"))
	require.Error(t, err)
}
