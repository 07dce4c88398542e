// Package planner computes a SyncPlan by intersecting destination content
// with a source manifest (spec §4.6).
package planner

import (
	"os"
	"path/filepath"

	"github.com/FairForge/binsync/internal/chunk"
	"github.com/FairForge/binsync/internal/manifest"
	"github.com/FairForge/binsync/internal/plan"
	"go.uber.org/zap"
)

// haveEntry records where a chunk already sits in the destination file.
type haveEntry struct {
	offset uint64
	length uint64
}

// Build plans a sync of m's files into destRoot. For each manifest file it
// chunks the existing destination file (if any) and, for each source
// chunk, emits Seek (already in place), Copy (same content, different
// offset), or Fetch (not present at the destination). A file whose
// resulting operations are all Seek is omitted — it is already in sync
// (spec §4.6).
func Build(m *manifest.Manifest, destRoot string, logger *zap.Logger) (*plan.SyncPlan, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	chunker, err := chunk.Default()
	if err != nil {
		return nil, err
	}

	result := &plan.SyncPlan{}

	for _, f := range m.Files {
		destPath := filepath.Join(destRoot, filepath.FromSlash(f.Path))

		ops, err := planFile(f, destPath, chunker)
		if err != nil {
			return nil, err
		}

		if allSeek(ops) {
			continue
		}

		result.Files = append(result.Files, plan.FileOps{Path: f.Path, Operations: ops})
		result.TotalOps += len(ops)
	}

	logger.Info("plan built",
		zap.Int("files_to_sync", len(result.Files)),
		zap.Int("total_ops", result.TotalOps))

	return result, nil
}

func planFile(f manifest.FileChunkInfo, destPath string, chunker *chunk.Chunker) ([]plan.Operation, error) {
	data, err := os.ReadFile(destPath)
	if err != nil {
		if os.IsNotExist(err) {
			ops := make([]plan.Operation, 0, len(f.Chunks))
			for _, s := range f.Chunks {
				ops = append(ops, plan.FetchOp(s))
			}
			return ops, nil
		}
		return nil, err
	}

	destChunks, err := chunker.Split(data)
	if err != nil {
		return nil, err
	}

	// Left-to-right iteration means a duplicate hash's last occurrence
	// wins, which is deterministic because CDC iteration is
	// left-to-right (spec §4.6 tie-break policy).
	have := make(map[uint64]haveEntry, len(destChunks))
	for _, c := range destChunks {
		have[c.Hash] = haveEntry{offset: c.Offset, length: c.Length}
	}

	ops := make([]plan.Operation, 0, len(f.Chunks))
	for _, s := range f.Chunks {
		entry, ok := have[s.Hash]
		switch {
		case ok && entry.offset == s.Offset && entry.length == s.Length:
			ops = append(ops, plan.SeekOp(int64(s.Length)))
		case ok:
			ops = append(ops, plan.CopyOp(chunk.Chunk{
				Hash:   s.Hash,
				Offset: entry.offset,
				Length: entry.length,
			}))
		default:
			ops = append(ops, plan.FetchOp(s))
		}
	}

	return ops, nil
}

func allSeek(ops []plan.Operation) bool {
	for _, op := range ops {
		if op.Kind != plan.OpSeek {
			return false
		}
	}
	return true
}
