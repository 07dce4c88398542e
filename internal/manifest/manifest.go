// Package manifest builds and (de)serializes the chunk manifest of a
// source directory tree (spec §4.3, §6).
package manifest

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/FairForge/binsync/internal/chunk"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// FileChunkInfo describes one file's ordered, contiguous chunk sequence.
// Invariant: chunks[0].Offset == 0, chunks[i].Offset ==
// chunks[i-1].Offset+chunks[i-1].Length, and the sum of lengths equals the
// file size (spec §3).
type FileChunkInfo struct {
	Path   string // forward-slash relative path under the source root
	Chunks []chunk.Chunk
}

// Manifest is the ordered, path-sorted list of files and their chunks. The
// sort makes pack ids deterministic across runs (spec §3).
type Manifest struct {
	Files []FileChunkInfo
}

// Build walks root, chunks every regular file in parallel across a bounded
// worker pool, and returns a Manifest sorted by path. Any I/O error during
// a per-file task is fatal to the whole build (fail-fast, spec §4.3).
func Build(root string, workers int, logger *zap.Logger) (*Manifest, error) {
	paths, err := listFiles(root)
	if err != nil {
		return nil, err
	}
	return buildFromPaths(root, paths, workers, logger)
}

// BuildFiltered builds a manifest over an explicit subset of files relative
// to root, instead of a full directory walk. This supplements spec.md with
// a feature from the Rust original (Manifest::from_file_list): callers
// that already track their own file list (e.g. an incremental publishing
// workflow) can skip the walk entirely.
func BuildFiltered(root string, relPaths []string, workers int, logger *zap.Logger) (*Manifest, error) {
	return buildFromPaths(root, relPaths, workers, logger)
}

func buildFromPaths(root string, relPaths []string, workers int, logger *zap.Logger) (*Manifest, error) {
	if workers <= 0 {
		workers = 4
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	chunker, err := chunk.Default()
	if err != nil {
		return nil, err
	}

	var mu sync.Mutex
	files := make([]FileChunkInfo, 0, len(relPaths))

	g, ctx := errgroup.WithContext(context.Background())
	g.SetLimit(workers)

	for _, relPath := range relPaths {
		relPath := relPath
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			info, err := chunkFile(root, relPath, chunker)
			if err != nil {
				logger.Error("failed to chunk file", zap.String("path", relPath), zap.Error(err))
				return err
			}

			mu.Lock()
			files = append(files, info)
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })

	logger.Info("manifest built", zap.Int("files", len(files)))
	return &Manifest{Files: files}, nil
}

func chunkFile(root, relPath string, chunker *chunk.Chunker) (FileChunkInfo, error) {
	data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(relPath)))
	if err != nil {
		return FileChunkInfo{}, err
	}

	chunks, err := chunker.Split(data)
	if err != nil {
		return FileChunkInfo{}, err
	}

	return FileChunkInfo{Path: filepath.ToSlash(relPath), Chunks: chunks}, nil
}

// listFiles enumerates every regular file under root, returning
// forward-slash paths relative to root. Directory traversal order is
// irrelevant to correctness (spec §4.3); the manifest is sorted
// afterwards.
func listFiles(root string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		paths = append(paths, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return paths, nil
}
