package domain

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"
)

// NewDraftID returns "draft_{unixMillis}_{8 hex chars}".
func NewDraftID(now time.Time) string {
	b := make([]byte, 4)
	if _, err := rand.Read(b); err != nil {
		// fallback (should be rare)
		return fmt.Sprintf("draft_%d_%08x", now.UnixMilli(), now.UnixNano()&0xffffffff)
	}
	return fmt.Sprintf("draft_%d_%s", now.UnixMilli(), hex.EncodeToString(b))
}
