package models

import "time"

// Sidecar accompanies a raw ciphertext export and holds what is needed to
// decrypt it offline later.
type Sidecar struct {
	FileName            string     `json:"fileName"`
	Protection          Protection `json:"protection"`
	IV                  ByteArray  `json:"iv"`
	CID                 string     `json:"cid"`
	Timestamp           time.Time  `json:"timestamp"`
	EncryptedContentKey string     `json:"encryptedSymKeyB64,omitempty"`
	Salt                ByteArray  `json:"salt,omitempty"`
}

// SidecarFor builds the sidecar of r.
func SidecarFor(r FileRecord) Sidecar {
	s := Sidecar{
		FileName:   r.FileName,
		Protection: r.Protection,
		IV:         ByteArray(append([]byte(nil), r.IV...)),
		CID:        r.CID,
		Timestamp:  r.Timestamp,
	}
	switch r.Protection {
	case ProtectionRSA:
		s.EncryptedContentKey = r.EncryptedContentKey
	case ProtectionPassword:
		s.Salt = ByteArray(append([]byte(nil), r.Salt...))
	}
	return s
}
