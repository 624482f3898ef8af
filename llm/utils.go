package llm

import (
	"crypto/rand"
	"encoding/binary"
	"encoding/hex"
	"time"
)

// NewBatchID returns a 24 character hex id: 4 bytes of unix time followed by 8 random bytes.
// Every call made during one drafting session shares a batch id in the call log.
func NewBatchID() string {
	id := make([]byte, 12)
	binary.BigEndian.PutUint32(id[:4], uint32(time.Now().Unix()))
	_, _ = rand.Read(id[4:])
	return hex.EncodeToString(id)
}

func isValidBatchID(s string) bool {
	_, err := hex.DecodeString(s)
	return err == nil && len(s) == 24
}

// EnsureBatchID returns s when it is a valid batch id and a fresh one otherwise.
func EnsureBatchID(s string) string {
	if !isValidBatchID(s) {
		return NewBatchID()
	}
	return s
}
