package ingest

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"
	"time"
)

// Fingerprint computes the stable dedup hash for an email: the SHA-256 of a
// canonical JSON object built from the lower-cased sender, trimmed subject,
// and RFC 3339 received time. encoding/json emits map keys in sorted order,
// so the serialization is deterministic.
//
// A missing received time canonicalizes to the empty string. Two emails with
// the same sender and subject and no timestamp therefore collide; that favors
// dedup recall over precision and is intentional.
func Fingerprint(email *InboundEmail) string {
	receivedAt := ""
	if email.ReceivedAt != nil {
		receivedAt = email.ReceivedAt.UTC().Format(time.RFC3339)
	}

	canonical := map[string]string{
		"sender":      strings.TrimSpace(strings.ToLower(email.Sender)),
		"subject":     strings.TrimSpace(email.Subject),
		"received_at": receivedAt,
	}

	// Marshaling a map of strings cannot fail.
	serialized, _ := json.Marshal(canonical)

	sum := sha256.Sum256(serialized)
	return hex.EncodeToString(sum[:])
}
