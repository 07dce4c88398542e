package provider

import (
	"net/http"

	"github.com/FairForge/binsync/internal/binsyncerr"
	"github.com/FairForge/binsync/internal/pack"
	"github.com/FairForge/binsync/internal/plan"
	"go.uber.org/zap"
)

type packLocation struct {
	packID     uint64
	packLength uint64
	offset     uint64
	length     uint64
}

// Remote is a ChunkProvider backed by an HTTP pack server (spec §4.5.3).
// Chunks are addressed indirectly: each chunk id resolves to a pack id and
// a byte range within that pack, so a GetChunk call costs at most one pack
// download rather than one request per chunk.
type Remote struct {
	downloader *packDownloader
	chunkMap   map[uint64]packLocation
	packLength map[uint64]uint64
	logger     *zap.Logger
}

// RemoteOptions configures a Remote provider's transport. Zero values pick
// the same defaults as config.RemoteConfig.
type RemoteOptions struct {
	CacheLimit     uint64
	RequestsPerSec float64
	HTTPClient     *http.Client
	Logger         *zap.Logger
}

// NewRemote builds a Remote provider over baseURL using the pack/chunk
// layout recorded in rm.
func NewRemote(baseURL string, rm *pack.RemoteManifest, opts RemoteOptions) *Remote {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	cacheLimit := opts.CacheLimit
	if cacheLimit == 0 {
		cacheLimit = 100 * 1024 * 1024
	}

	chunkMap := make(map[uint64]packLocation)
	packLength := make(map[uint64]uint64)
	sourceChunks := indexSourceChunks(rm)
	for _, p := range rm.Packs {
		packLength[p.Hash] = p.Length
		var offset uint64
		for _, id := range p.Chunks {
			c, ok := sourceChunks[id]
			if !ok {
				continue
			}
			chunkMap[id] = packLocation{packID: p.Hash, packLength: p.Length, offset: offset, length: c.Length}
			offset += c.Length
		}
	}

	downloader := newPackDownloader(baseURL, cacheLimit, opts.HTTPClient, opts.RequestsPerSec, logger)

	return &Remote{
		downloader: downloader,
		chunkMap:   chunkMap,
		packLength: packLength,
		logger:     logger,
	}
}

func indexSourceChunks(rm *pack.RemoteManifest) map[uint64]struct{ Length uint64 } {
	idx := make(map[uint64]struct{ Length uint64 })
	for _, f := range rm.Source.Files {
		for _, c := range f.Chunks {
			idx[c.Hash] = struct{ Length uint64 }{Length: c.Length}
		}
	}
	return idx
}

// SetPlan preloads every pack that the plan's Fetch operations will need,
// subject to the downloader's cache bound. Packs dropped here are fetched
// on demand by GetChunk instead.
func (r *Remote) SetPlan(p *plan.SyncPlan) {
	seen := make(map[uint64]bool)
	for _, f := range p.Files {
		for _, op := range f.Operations {
			if op.Kind != plan.OpFetch {
				continue
			}
			loc, ok := r.chunkMap[op.Chunk.Hash]
			if !ok || seen[loc.packID] {
				continue
			}
			seen[loc.packID] = true
			r.downloader.Preload(loc.packID, loc.packLength)
		}
	}
}

// GetChunk resolves id to its containing pack, forces that pack to
// download if it hasn't already, and slices out the chunk's byte range.
func (r *Remote) GetChunk(id uint64) ([]byte, error) {
	loc, ok := r.chunkMap[id]
	if !ok {
		return nil, binsyncerr.ErrChunkNotFound(id)
	}

	r.downloader.Download(loc.packID, loc.packLength)
	data, err := r.downloader.GetPackBlocking(loc.packID)
	if err != nil {
		return nil, err
	}

	end := loc.offset + loc.length
	if uint64(len(data)) < end {
		r.logger.Error("pack shorter than chunk range",
			zap.Uint64("pack_id", loc.packID), zap.Uint64("chunk_id", id))
		return nil, binsyncerr.ErrChunkNotFound(id)
	}

	return data[loc.offset:end], nil
}

// Close releases the background downloader goroutine.
func (r *Remote) Close() {
	r.downloader.Close()
}
