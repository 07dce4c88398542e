// Package plan defines the SyncPlan data model produced by the planner and
// consumed by the executor and chunk providers (spec §3, §4.6).
package plan

import "github.com/FairForge/binsync/internal/chunk"

// OpKind tags the three operation variants an Operation can hold.
type OpKind int

const (
	// OpSeek advances the destination write cursor without writing,
	// covering a chunk already in place.
	OpSeek OpKind = iota
	// OpCopy writes bytes from a ranged read of the same destination
	// file — content the destination already has, at a different
	// offset.
	OpCopy
	// OpFetch writes bytes obtained from the chunk provider.
	OpFetch
)

func (k OpKind) String() string {
	switch k {
	case OpSeek:
		return "seek"
	case OpCopy:
		return "copy"
	case OpFetch:
		return "fetch"
	default:
		return "unknown"
	}
}

// Operation is a single step in a file's operation program. Seek is only
// meaningful when Kind is OpSeek; Chunk is only meaningful when Kind is
// OpCopy or OpFetch. Seek uses a signed delta because a destination
// rewrite can, in principle, need to move the cursor either direction,
// matching the source representation.
type Operation struct {
	Kind  OpKind
	Seek  int64
	Chunk chunk.Chunk
}

// SeekOp builds a Seek operation.
func SeekOp(delta int64) Operation { return Operation{Kind: OpSeek, Seek: delta} }

// CopyOp builds a Copy operation addressing bytes already in the
// destination file at c.Offset.
func CopyOp(c chunk.Chunk) Operation { return Operation{Kind: OpCopy, Chunk: c} }

// FetchOp builds a Fetch operation addressing bytes the provider must
// supply.
func FetchOp(c chunk.Chunk) Operation { return Operation{Kind: OpFetch, Chunk: c} }

// FileOps holds the ordered operation program for a single file.
// Invariant: executing these operations in order starting at offset 0
// reproduces the source file's exact byte sequence (spec §3).
type FileOps struct {
	Path       string
	Operations []Operation
}

// SyncPlan is the per-file program of operations that, executed from
// offset 0 for every file, reconstructs the source tree at the
// destination. Files that are already bit-identical to the source are
// omitted entirely (spec §4.6 step 4).
type SyncPlan struct {
	Files    []FileOps
	TotalOps int
}

// NeedsFetch reports whether any file in the plan contains at least one
// Fetch operation, i.e. whether executing it needs a chunk provider at
// all.
func (p *SyncPlan) NeedsFetch() bool {
	for _, f := range p.Files {
		for _, op := range f.Operations {
			if op.Kind == OpFetch {
				return true
			}
		}
	}
	return false
}
