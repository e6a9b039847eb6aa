package store

import "crypto/sha256"

// ComputeRequestDigest computes the SHA256 hash of the raw synthesis request
// body. The hash is computed on the bytes as received, before decoding.
// Returns a 32-byte digest suitable for BYTEA storage.
func ComputeRequestDigest(body []byte) []byte {
	h := sha256.Sum256(body)
	return h[:]
}
