package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// ComputeTransferID computes a deterministic transfer record ID using SHA256.
// Formula: SHA256(run_id|address|recipient_index)
// Returns hex-encoded hash (64 characters).
func ComputeTransferID(runID string, address string, recipientIndex int) string {
	data := fmt.Sprintf("%s|%s|%d",
		runID,
		address,
		recipientIndex,
	)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
