package blobstore

import (
	"fmt"

	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"
)

var cidBuilder = cid.V1Builder{Codec: cid.Raw, MhType: multihash.SHA2_256, MhLength: -1}

// ComputeCID returns the CIDv1 (raw codec, sha2-256) of data in its default
// base32 string form.
func ComputeCID(data []byte) (string, error) {
	c, err := cidBuilder.Sum(data)
	if err != nil {
		return "", fmt.Errorf("compute cid: %w", err)
	}
	return c.String(), nil
}

// ValidCID reports whether s parses as a CID.
func ValidCID(s string) bool {
	_, err := cid.Decode(s)
	return err == nil
}
