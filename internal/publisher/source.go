package publisher

import (
	"os"
	"path/filepath"

	"github.com/FairForge/binsync/internal/manifest"
	"github.com/FairForge/binsync/internal/pack"
)

// FileTreePackSource assembles packs directly from a source directory tree
// by reading each member chunk's byte range from its original file, rather
// than requiring packs to be materialized on disk ahead of time.
type FileTreePackSource struct {
	root  string
	index map[uint64]chunkLocation
}

type chunkLocation struct {
	path   string
	offset uint64
	length uint64
}

// NewFileTreePackSource indexes m's chunk locations under root.
func NewFileTreePackSource(root string, m *manifest.Manifest) *FileTreePackSource {
	index := make(map[uint64]chunkLocation)
	for _, f := range m.Files {
		full := filepath.Join(root, filepath.FromSlash(f.Path))
		for _, c := range f.Chunks {
			index[c.Hash] = chunkLocation{path: full, offset: c.Offset, length: c.Length}
		}
	}
	return &FileTreePackSource{root: root, index: index}
}

// AssemblePack reads and concatenates p's member chunks in pack order.
func (s *FileTreePackSource) AssemblePack(p pack.Pack) ([]byte, error) {
	buf := make([]byte, 0, p.Length)
	for _, id := range p.Chunks {
		loc, ok := s.index[id]
		if !ok {
			continue
		}
		data, err := readChunkRange(loc)
		if err != nil {
			return nil, err
		}
		buf = append(buf, data...)
	}
	return buf, nil
}

func readChunkRange(loc chunkLocation) ([]byte, error) {
	f, err := os.Open(loc.path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	buf := make([]byte, loc.length)
	if _, err := f.ReadAt(buf, int64(loc.offset)); err != nil {
		return nil, err
	}
	return buf, nil
}
