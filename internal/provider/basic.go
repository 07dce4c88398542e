package provider

import (
	"os"
	"path/filepath"

	"github.com/FairForge/binsync/internal/binsyncerr"
	"github.com/FairForge/binsync/internal/manifest"
	"github.com/FairForge/binsync/internal/plan"
)

type location struct {
	filePath string
	offset   uint64
	length   uint64
}

// Basic is the simplest ChunkProvider: it indexes a source-side manifest
// once, then opens, seeks, and reads exactly `length` bytes per call. No
// caching — O(open+seek+read) per GetChunk (spec §4.5.1).
type Basic struct {
	index map[uint64]location
}

// NewBasic builds a Basic provider over root using the chunk locations
// recorded in m.
func NewBasic(root string, m *manifest.Manifest) *Basic {
	index := make(map[uint64]location)
	for _, f := range m.Files {
		fullPath := filepath.Join(root, filepath.FromSlash(f.Path))
		for _, c := range f.Chunks {
			index[c.Hash] = location{filePath: fullPath, offset: c.Offset, length: c.Length}
		}
	}
	return &Basic{index: index}
}

// SetPlan is a no-op for Basic — it has no per-plan optimization to do.
func (b *Basic) SetPlan(*plan.SyncPlan) {}

// GetChunk opens the chunk's source file, seeks to its offset, and reads
// exactly its recorded length.
func (b *Basic) GetChunk(id uint64) ([]byte, error) {
	loc, ok := b.index[id]
	if !ok {
		return nil, binsyncerr.ErrChunkNotFound(id)
	}

	f, err := os.Open(loc.filePath)
	if err != nil {
		return nil, binsyncerr.ErrAccessDenied(loc.filePath, err)
	}
	defer f.Close()

	buf := make([]byte, loc.length)
	if _, err := f.ReadAt(buf, int64(loc.offset)); err != nil {
		return nil, binsyncerr.ErrAccessDenied(loc.filePath, err)
	}

	return buf, nil
}
