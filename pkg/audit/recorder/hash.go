package recorder

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"caduceus-hq/veil/pkg/audit"
)

const (
	// MaxHashSize is the maximum number of bytes to hash from large values.
	// Hashing only the first 1MB prevents memory exhaustion while still
	// providing reasonable collision resistance.
	MaxHashSize = 1024 * 1024 // 1MB
)

// HashContent computes the SHA-256 hash of the content and returns it as a
// hex-encoded string. For content exceeding MaxHashSize, only the first
// MaxHashSize bytes are hashed.
//
// Returns an empty string if content is empty.
func HashContent(content []byte) string {
	if len(content) == 0 {
		return ""
	}

	contentToHash := content
	if len(content) > MaxHashSize {
		contentToHash = content[:MaxHashSize]
	}

	hash := sha256.Sum256(contentToHash)
	return hex.EncodeToString(hash[:])
}

// HashString is a convenience function that hashes a string and returns
// the hex-encoded SHA-256 hash.
func HashString(content string) string {
	return HashContent([]byte(content))
}

// ComputeIntegrityHash computes the tamper-detection digest for a record.
// The digest covers a fixed field subset: policy name and version,
// operation count, validation verdict, original tag count and anonymized
// tag count. Any change to these fields after the record was written
// makes the stored hash unverifiable.
func ComputeIntegrityHash(policy audit.PolicyRef, operationCount int, validationPassed bool, originalTagCount, anonymizedTagCount int) string {
	payload := fmt.Sprintf("%s|%s|%d|%t|%d|%d",
		policy.Name,
		policy.Version,
		operationCount,
		validationPassed,
		originalTagCount,
		anonymizedTagCount,
	)
	return HashString(payload)
}

// RecordIntegrityHash recomputes the integrity hash from a record's own
// summary fields. The operation count comes from the summary, not the
// operations slice, so sealed records verify without the key.
func RecordIntegrityHash(record *audit.Record) string {
	return ComputeIntegrityHash(
		record.Policy,
		record.Summary.TagsProcessed,
		record.Summary.ValidationPassed,
		record.Summary.OriginalTagCount,
		record.Summary.AnonymizedTagCount,
	)
}
