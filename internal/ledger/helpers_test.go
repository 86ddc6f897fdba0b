package ledger

import (
	"fmt"
	"testing"
	"time"

	"github.com/dmitrijs2005/gophshare/internal/models"
)

func passwordRecord(t *testing.T, name string) models.FileRecord {
	t.Helper()
	return models.FileRecord{
		FileName:   name,
		Protection: models.ProtectionPassword,
		CID:        fmt.Sprintf("bafkrei-%s", name),
		IV:         models.ByteArray(make([]byte, 12)),
		Timestamp:  time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC),
		Salt:       models.ByteArray(make([]byte, 16)),
	}
}

const (
	timeout = time.Second
	tick    = 10 * time.Millisecond
)
