// Package recorder converts completed anonymization operations into
// immutable audit records.
//
// The recorder is a pure transformation plus one storage write: it
// computes summary counts, sanitizes tag operations down to presence,
// length and a SHA-256 hash, assesses HIPAA compliance against a fixed
// identifier table, derives GDPR compliance from the validator's PHI
// verdict, and seals the record with an integrity hash over a fixed field
// subset. VerifyIntegrity later proves a record unaltered by recomputing
// that hash.
//
// Raw tag values never reach storage. A non-compliant result is still
// recorded; compliance is data, not an error.
package recorder
