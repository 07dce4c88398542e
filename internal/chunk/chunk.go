// Package chunk implements content-defined chunking and the 64-bit chunk
// identifier used throughout binsync (spec §4.1, §4.2).
package chunk

import (
	"crypto/md5" //nolint:gosec // not a security boundary, see HashBytes
	"encoding/binary"
)

// Chunk identifies a contiguous byte range within a specific file and
// carries its content-addressed id. Two chunks are "same content" iff
// Hash matches; equality with a freshly computed CDC record additionally
// requires matching Offset and Length (used to detect an in-place match
// during planning, spec §4.6).
type Chunk struct {
	Hash   uint64
	Offset uint64
	Length uint64
}

// SameContent reports whether two chunks address identical bytes.
func (c Chunk) SameContent(other Chunk) bool {
	return c.Hash == other.Hash
}

// SamePlacement reports whether two chunks occupy the identical byte range,
// which combined with SameContent means "already in place" (spec §3).
func (c Chunk) SamePlacement(other Chunk) bool {
	return c.Offset == other.Offset && c.Length == other.Length
}

// HashBytes derives the 64-bit chunk id from the first 8 bytes (little
// endian) of the MD5 digest of the chunk bytes (spec §4.2). This is not a
// cryptographic integrity check — it is chosen for speed and manifest
// compactness, and collisions are an accepted, documented risk. Do not
// swap the hash without regenerating every existing manifest.
func HashBytes(data []byte) uint64 {
	digest := md5.Sum(data) //nolint:gosec
	return binary.LittleEndian.Uint64(digest[:8])
}
