// Package crypto provides optional at-rest confidentiality for audit
// payloads using AES-256-GCM. Keys are loaded from a hex-encoded key
// file; every sealed payload carries its own random nonce.
package crypto
