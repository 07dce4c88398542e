// Package executor applies a SyncPlan to a destination file tree (spec
// §4.7): it rewrites each file in place, pulling bytes from itself (Copy),
// the chunk provider (Fetch), or nowhere at all (Seek).
package executor

import (
	"bufio"
	"io"
	"os"
	"path/filepath"

	"github.com/FairForge/binsync/internal/binsyncerr"
	"github.com/FairForge/binsync/internal/plan"
	"github.com/FairForge/binsync/internal/provider"
	"go.uber.org/zap"
)

// ProgressFunc is called after every operation with the integer percentage
// of the whole plan completed so far: floor(opsDone/totalOps*100).
type ProgressFunc func(percent int)

// Executor applies a SyncPlan against a destination root directory.
type Executor struct {
	destRoot   string
	provider   provider.ChunkProvider
	logger     *zap.Logger
	onProgress ProgressFunc
}

// New builds an Executor writing into destRoot, resolving Fetch operations
// through p.
func New(destRoot string, p provider.ChunkProvider, logger *zap.Logger) *Executor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Executor{destRoot: destRoot, provider: p, logger: logger}
}

// OnProgress registers a callback invoked after each operation across the
// whole plan.
func (e *Executor) OnProgress(cb ProgressFunc) {
	e.onProgress = cb
}

// Execute applies every file's operation program in plan p. The provider's
// SetPlan is called once, up front, so implementations can preload or
// reference-count before any GetChunk call arrives.
func (e *Executor) Execute(p *plan.SyncPlan) error {
	if e.provider != nil {
		e.provider.SetPlan(p)
	}

	opsDone := 0
	for _, f := range p.Files {
		if err := e.executeFile(f, &opsDone, p.TotalOps); err != nil {
			return binsyncerr.Wrap(err, "executing "+f.Path)
		}
	}
	return nil
}

func (e *Executor) reportProgress(opsDone, totalOps int) {
	if e.onProgress == nil || totalOps == 0 {
		return
	}
	e.onProgress(opsDone * 100 / totalOps)
}

func (e *Executor) executeFile(f plan.FileOps, opsDone *int, totalOps int) error {
	destPath := filepath.Join(e.destRoot, filepath.FromSlash(f.Path))
	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return binsyncerr.ErrAccessDenied(filepath.Dir(destPath), err)
	}

	file, err := os.OpenFile(destPath, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return binsyncerr.ErrAccessDenied(destPath, err)
	}
	defer file.Close()

	// Copy-preload pass: every Copy operation reads from the destination
	// file at its source offset. Because the write pass can overwrite
	// any byte range before a later Copy needs to read it (the "shuffled
	// self-copy" case, spec §8), every Copy range must be read into
	// memory before the first write happens.
	preloaded := make(map[int]([]byte))
	for i, op := range f.Operations {
		if op.Kind != plan.OpCopy {
			continue
		}
		buf := make([]byte, op.Chunk.Length)
		if _, err := file.ReadAt(buf, int64(op.Chunk.Offset)); err != nil {
			return binsyncerr.ErrAccessDenied(destPath, err)
		}
		preloaded[i] = buf
	}

	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return binsyncerr.ErrAccessDenied(destPath, err)
	}
	w := bufio.NewWriter(file)

	var cursor int64
	for i, op := range f.Operations {
		switch op.Kind {
		case plan.OpSeek:
			if err := flushAndSeek(w, file, &cursor, op.Seek); err != nil {
				return err
			}
		case plan.OpCopy:
			buf, ok := preloaded[i]
			if !ok {
				return binsyncerr.ErrChunkNotFound(op.Chunk.Hash)
			}
			n, err := w.Write(buf)
			if err != nil {
				return binsyncerr.ErrAccessDenied(destPath, err)
			}
			cursor += int64(n)
		case plan.OpFetch:
			if e.provider == nil {
				return binsyncerr.ErrChunkNotFound(op.Chunk.Hash)
			}
			data, err := e.provider.GetChunk(op.Chunk.Hash)
			if err != nil {
				return err
			}
			if uint64(len(data)) != op.Chunk.Length {
				e.logger.Error("provider returned mismatched chunk length",
					zap.Uint64("chunk_id", op.Chunk.Hash),
					zap.Uint64("expected", op.Chunk.Length),
					zap.Int("got", len(data)))
				return binsyncerr.Unspecified
			}
			n, err := w.Write(data)
			if err != nil {
				return binsyncerr.ErrAccessDenied(destPath, err)
			}
			cursor += int64(n)
		}

		*opsDone++
		e.reportProgress(*opsDone, totalOps)
	}

	if err := w.Flush(); err != nil {
		return binsyncerr.ErrAccessDenied(destPath, err)
	}
	if err := file.Truncate(cursor); err != nil {
		return binsyncerr.ErrAccessDenied(destPath, err)
	}

	return nil
}

// flushAndSeek advances the write cursor by delta without touching the
// destination's bytes: the chunk it covers already matches the source at
// this exact offset. Because the underlying file descriptor only advances
// through writes, any bytes bufio.Writer is still holding must be flushed
// to disk first, or the subsequent os-level Seek would leave them stranded
// at the wrong offset.
func flushAndSeek(w *bufio.Writer, file *os.File, cursor *int64, delta int64) error {
	if delta == 0 {
		return nil
	}
	if err := w.Flush(); err != nil {
		return binsyncerr.ErrAccessDenied(file.Name(), err)
	}
	if _, err := file.Seek(delta, io.SeekCurrent); err != nil {
		return binsyncerr.ErrAccessDenied(file.Name(), err)
	}
	*cursor += delta
	return nil
}
