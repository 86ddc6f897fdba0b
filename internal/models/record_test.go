package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/dmitrijs2005/gophshare/internal/common"
	"github.com/dmitrijs2005/gophshare/internal/identity"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testKey = identity.PortableKey{Kty: "RSA", N: "sXchDaQebHnPiGvyDOAT4saGEUetSyo9MKLOoWFsueri23bOdgWp4Dy1WlUzewbgBHod5pcM9H95GQRV3JDXboIRROSBigeC5yjU1hGzHHyXss8UDprecbAYxknTcQkhslANGRUZmdTOQ5qTRsLAt6BTYuyvVRdhS8exSZEy_c4gs_7svlJJQ4H9_NxsiIoLwAEk7-Q3UXERGYw_75IDrGA84-lA_-Ct4eTlXHBIY2EaV7t7LjJaynVJCpkv4LKjTTAumiGUIuQhrNhZLuF_RJLqHpM2kgWFLU7-VTdL1VbC2tejvcI2BlMkEpk1BzBZI0KQB0GaDWFLN-aEAw3vRw", E: "AQAB"}

func rsaRecord() FileRecord {
	return FileRecord{
		FileName:            "notes.txt",
		Protection:          ProtectionRSA,
		CID:                 "bafkreigh2akiscaildcqabsyg3dfr6chu3fgpregiymsck7e7aqa4s52zy",
		IV:                  ByteArray{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12},
		Timestamp:           time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		OwnerPublicKey:      &testKey,
		EncryptedContentKey: "AAECAw==",
	}
}

func passwordRecord() FileRecord {
	return FileRecord{
		FileName:   "secret.txt",
		Protection: ProtectionPassword,
		CID:        "bafkreigh2akiscaildcqabsyg3dfr6chu3fgpregiymsck7e7aqa4s52zy",
		IV:         ByteArray{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12},
		Timestamp:  time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		Salt:       ByteArray{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15},
	}
}

func TestFileRecord_JSONShape_RSA(t *testing.T) {
	b, err := json.Marshal(rsaRecord())
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(b, &m))

	assert.Equal(t, "notes.txt", m["fileName"])
	assert.Equal(t, "rsa", m["protection"])
	assert.Equal(t, "2026-01-02T03:04:05Z", m["timestamp"])
	assert.Equal(t, "AAECAw==", m["encryptedSymKeyB64"])
	assert.Equal(t, []any{}, m["sharedWith"])
	assert.Len(t, m["iv"], 12)
	assert.Equal(t, float64(1), m["iv"].([]any)[0])
	assert.NotContains(t, m, "salt")
	assert.NotContains(t, m, "sharedBy")
	assert.Contains(t, m, "ownerPublicKey")
}

func TestFileRecord_JSONShape_Password(t *testing.T) {
	b, err := json.Marshal(passwordRecord())
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(b, &m))

	assert.Equal(t, "password", m["protection"])
	assert.Len(t, m["salt"], 16)
	assert.NotContains(t, m, "sharedWith")
	assert.NotContains(t, m, "encryptedSymKeyB64")
	assert.NotContains(t, m, "ownerPublicKey")
}

func TestFileRecord_JSONRoundTripPreservesRecord(t *testing.T) {
	in := rsaRecord()
	in.SharedWith = []CapabilityEntry{{PublicKey: testKey, EncryptedContentKey: "BAUG"}}
	in.SharedBy = &testKey

	b, err := json.Marshal(in)
	require.NoError(t, err)

	var out FileRecord
	require.NoError(t, json.Unmarshal(b, &out))
	assert.Empty(t, cmp.Diff(in, out))
}

func TestFileRecord_UnmarshalFromForeignWriter(t *testing.T) {
	raw := `{"fileName":"a.bin","protection":"password","salt":[255,0],"iv":[0,0,0,0,0,0,0,0,0,0,0,1],"cid":"x","timestamp":"2024-05-01T10:20:30.123Z"}`
	var r FileRecord
	require.NoError(t, json.Unmarshal([]byte(raw), &r))
	assert.Equal(t, ByteArray{255, 0}, r.Salt)
	assert.Equal(t, 123*time.Millisecond, time.Duration(r.Timestamp.Nanosecond()))
}

func TestByteArray_RejectsOutOfRange(t *testing.T) {
	var b ByteArray
	require.Error(t, json.Unmarshal([]byte(`[1,256]`), &b))
	require.Error(t, json.Unmarshal([]byte(`"AAE="`), &b))
}

func TestFileRecord_Validate(t *testing.T) {
	tests := []struct {
		name   string
		record func() FileRecord
		ok     bool
	}{
		{"rsa ok", rsaRecord, true},
		{"password ok", passwordRecord, true},
		{"missing name", func() FileRecord { r := rsaRecord(); r.FileName = ""; return r }, false},
		{"bad protection", func() FileRecord { r := rsaRecord(); r.Protection = "aes"; return r }, false},
		{"short iv", func() FileRecord { r := rsaRecord(); r.IV = r.IV[:8]; return r }, false},
		{"rsa without key", func() FileRecord { r := rsaRecord(); r.EncryptedContentKey = ""; return r }, false},
		{"rsa without owner", func() FileRecord { r := rsaRecord(); r.OwnerPublicKey = nil; return r }, false},
		{"password without salt", func() FileRecord { r := passwordRecord(); r.Salt = nil; return r }, false},
		{"password with key material", func() FileRecord { r := passwordRecord(); r.EncryptedContentKey = "AAAA"; return r }, false},
		{"zero timestamp", func() FileRecord { r := rsaRecord(); r.Timestamp = time.Time{}; return r }, false},
		{"private owner key", func() FileRecord {
			r := rsaRecord()
			k := testKey
			k.D = "secret"
			r.OwnerPublicKey = &k
			return r
		}, false},
		{"capability without key", func() FileRecord {
			r := rsaRecord()
			r.SharedWith = []CapabilityEntry{{EncryptedContentKey: "AAAA"}}
			return r
		}, false},
		{"capability bad base64", func() FileRecord {
			r := rsaRecord()
			r.SharedWith = []CapabilityEntry{{PublicKey: testKey, EncryptedContentKey: "%%%"}}
			return r
		}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.record().Validate()
			if tt.ok {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, common.ErrorIncorrectMetadata)
		})
	}
}

func TestFileRecord_CloneIsDeep(t *testing.T) {
	orig := rsaRecord()
	orig.SharedWith = []CapabilityEntry{{PublicKey: testKey, EncryptedContentKey: "AAAA"}}

	c := orig.Clone()
	c.IV[0] = 99
	c.SharedWith[0].EncryptedContentKey = "BBBB"
	c.SharedWith = append(c.SharedWith, CapabilityEntry{})
	c.OwnerPublicKey.N = "changed"

	assert.Equal(t, byte(1), orig.IV[0])
	assert.Equal(t, "AAAA", orig.SharedWith[0].EncryptedContentKey)
	assert.Len(t, orig.SharedWith, 1)
	assert.Equal(t, testKey.N, orig.OwnerPublicKey.N)
}

func TestFileRecord_CapabilityFor(t *testing.T) {
	r := rsaRecord()
	other := identity.PortableKey{Kty: "RSA", N: "other", E: "AQAB"}
	r.SharedWith = []CapabilityEntry{{PublicKey: other, EncryptedContentKey: "AAAA"}}

	c, ok := r.CapabilityFor(identity.PortableKey{Kty: "RSA", N: "other", E: "AQAB", Alg: "RSA-OAEP-256"})
	require.True(t, ok)
	assert.Equal(t, "AAAA", c.EncryptedContentKey)

	_, ok = r.CapabilityFor(testKey)
	assert.False(t, ok)
}

func TestWrappedKey_RoundTrip(t *testing.T) {
	r := rsaRecord()
	r.EncryptedContentKey = EncodeWrappedKey([]byte{9, 8, 7})
	b, err := r.WrappedKey()
	require.NoError(t, err)
	assert.Equal(t, []byte{9, 8, 7}, b)
}

func TestSidecarFor(t *testing.T) {
	s := SidecarFor(rsaRecord())
	assert.Equal(t, "AAECAw==", s.EncryptedContentKey)
	assert.Nil(t, s.Salt)

	p := SidecarFor(passwordRecord())
	assert.Empty(t, p.EncryptedContentKey)
	assert.Len(t, p.Salt, 16)

	b, err := json.Marshal(p)
	require.NoError(t, err)
	assert.NotContains(t, string(b), "encryptedSymKeyB64")
}

func TestCloneEntries(t *testing.T) {
	in := []Entry{{ID: "a", Payload: rsaRecord(), Seq: 1}}
	out := CloneEntries(in)
	out[0].Payload.IV[0] = 42
	assert.Equal(t, byte(1), in[0].Payload.IV[0])
	assert.Equal(t, int64(1), out[0].Seq)
}
