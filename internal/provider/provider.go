// Package provider implements the chunk provider contract (spec §4.5) and
// its three reference implementations: Basic (filesystem, no caching),
// Caching (filesystem, background prefetch), and Remote (HTTP pack
// batching with a bounded prefetch cache).
package provider

import "github.com/FairForge/binsync/internal/plan"

// ChunkProvider is the capability set an Executor depends on to resolve
// Fetch operations (spec §4.5, §9). Concrete providers are selected at
// construction time rather than looked up in a shared registry, and the
// Executor calls them through this interface — the same shape the
// teacher's engine.Driver/engine.Engine interfaces use for backend
// selection.
type ChunkProvider interface {
	// SetPlan is informational: the provider may pre-count references or
	// pre-enqueue background work. The Executor always calls SetPlan
	// before issuing any GetChunk calls.
	SetPlan(p *plan.SyncPlan)

	// GetChunk returns the bytes of the chunk identified by id. It is
	// called at most once per Fetch operation in the plan. Returned byte
	// length must equal the chunk's recorded length (spec §4.5).
	GetChunk(id uint64) ([]byte, error)
}
