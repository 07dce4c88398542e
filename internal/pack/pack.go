// Package pack groups manifest chunks into size-bounded transport units
// for remote sync (spec §4.4), and defines RemoteManifest (spec §3).
package pack

import (
	"encoding/binary"

	"github.com/FairForge/binsync/internal/chunk"
	"github.com/FairForge/binsync/internal/manifest"
)

// DefaultSizeLimit is the default pack size: 100 MiB, chosen to be
// remote-friendly batching (spec §4.4).
const DefaultSizeLimit = 100 * 1024 * 1024

// Pack is a size-bounded grouping of chunks used as a transport unit.
// Invariant: the sum of member chunk lengths equals Length; no chunk
// appears in more than one pack; Length <= the configured size limit,
// except for a pack holding a single chunk that is itself longer than the
// limit (spec §3).
type Pack struct {
	Hash   uint64
	Length uint64
	Chunks []uint64 // chunk ids, in pack order
}

// RemoteManifest wraps a Manifest plus the Packs that group its chunks for
// remote transport. Invariant: every chunk id referenced by any
// FileChunkInfo appears in exactly one Pack (spec §3).
type RemoteManifest struct {
	Source manifest.Manifest
	Packs  []Pack
}

// Build greedily bin-packs the manifest's chunks, in manifest iteration
// order, into packs no larger than sizeLimit (spec §4.4). Chunks are never
// split: a chunk longer than sizeLimit gets a pack of its own, which is
// then longer than sizeLimit. Pack contents
// are fully determined by the manifest and sizeLimit, so pack ids are
// deterministic across runs for a fixed manifest (spec §8 "Pack id
// determinism").
func Build(m *manifest.Manifest, sizeLimit uint64) []Pack {
	if sizeLimit == 0 {
		sizeLimit = DefaultSizeLimit
	}

	var packs []Pack
	var accumLength uint64
	var accumIDs []uint64

	flush := func() {
		if len(accumIDs) == 0 {
			return
		}
		packs = append(packs, Pack{
			Hash:   hashIDs(accumIDs),
			Length: accumLength,
			Chunks: accumIDs,
		})
		accumLength = 0
		accumIDs = nil
	}

	for _, f := range m.Files {
		for _, c := range f.Chunks {
			if accumLength+c.Length > sizeLimit && len(accumIDs) > 0 {
				flush()
			}
			accumLength += c.Length
			accumIDs = append(accumIDs, c.Hash)
		}
	}
	flush()

	return packs
}

// BuildRemote builds a RemoteManifest by packing m's chunks with sizeLimit
// and embedding the source manifest, matching the Rust original's
// RemoteManifest-construction loop (src/chunk/network.rs) as a first-class
// builder function (SPEC_FULL §4).
func BuildRemote(m *manifest.Manifest, sizeLimit uint64) RemoteManifest {
	return RemoteManifest{
		Source: *m,
		Packs:  Build(m, sizeLimit),
	}
}

// hashIDs derives a pack's content-dependent id from the little-endian
// concatenation of its member chunk ids, the same MD5-prefix scheme used
// for individual chunks (spec §3, §4.2).
func hashIDs(ids []uint64) uint64 {
	buf := make([]byte, 8*len(ids))
	for i, id := range ids {
		binary.LittleEndian.PutUint64(buf[i*8:], id)
	}
	return chunk.HashBytes(buf)
}
