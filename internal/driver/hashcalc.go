package driver

import (
	"crypto/sha256"

	"cxxsema/internal/frontend/cxx"
	"cxxsema/internal/version"
)

// Digest keys the disk cache.
type Digest [32]byte

// unitDigest: H(tool version || schema || language || content hash).
// Any of them changing invalidates the cached analysis.
func unitDigest(lang cxx.Language, content [32]byte) Digest {
	h := sha256.New()
	_, _ = h.Write([]byte(version.Plain()))
	_, _ = h.Write([]byte{byte(diskCacheSchemaVersion >> 8), byte(diskCacheSchemaVersion), byte(lang)})
	_, _ = h.Write(content[:])
	var out Digest
	copy(out[:], h.Sum(nil))
	return out
}
