package cachestore

import "github.com/cespare/xxhash/v2"

// ContentHash returns the 64-bit non-cryptographic content hash used as a
// FileNode's identity fingerprint and as the cache's tail checksum.
func ContentHash(data []byte) uint64 {
	return xxhash.Sum64(data)
}
