// Package syncer exposes the engine's public surface (spec §6): build a
// manifest for a source tree, plan a destination sync against it, then
// execute that plan through a chunk provider.
package syncer

import (
	"github.com/FairForge/binsync/internal/executor"
	"github.com/FairForge/binsync/internal/manifest"
	"github.com/FairForge/binsync/internal/plan"
	"github.com/FairForge/binsync/internal/planner"
	"github.com/FairForge/binsync/internal/provider"
	"go.uber.org/zap"
)

// GenerateManifest walks root and returns its chunk manifest, using
// workers parallel chunking tasks.
func GenerateManifest(root string, workers int, logger *zap.Logger) (*manifest.Manifest, error) {
	return manifest.Build(root, workers, logger)
}

// Syncer ties a destination root, a chunk provider, and a source manifest
// together into the two-step plan/sync workflow.
type Syncer struct {
	destRoot string
	provider provider.ChunkProvider
	manifest *manifest.Manifest
	logger   *zap.Logger

	plan       *plan.SyncPlan
	onProgress executor.ProgressFunc
}

// New builds a Syncer that will bring destRoot in line with m, fetching
// any missing bytes through p.
func New(destRoot string, p provider.ChunkProvider, m *manifest.Manifest, logger *zap.Logger) *Syncer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Syncer{destRoot: destRoot, provider: p, manifest: m, logger: logger}
}

// OnProgress registers a callback invoked after each operation is applied
// during Sync, with the integer percentage of the whole plan completed.
func (s *Syncer) OnProgress(cb executor.ProgressFunc) {
	s.onProgress = cb
}

// Plan computes (and caches) the SyncPlan for the destination against the
// syncer's manifest, without writing anything.
func (s *Syncer) Plan() (*plan.SyncPlan, error) {
	p, err := planner.Build(s.manifest, s.destRoot, s.logger)
	if err != nil {
		return nil, err
	}
	s.plan = p
	return p, nil
}

// Sync computes a plan (if Plan hasn't already been called) and applies it
// to the destination.
func (s *Syncer) Sync() error {
	if s.plan == nil {
		if _, err := s.Plan(); err != nil {
			return err
		}
	}

	ex := executor.New(s.destRoot, s.provider, s.logger)
	if s.onProgress != nil {
		ex.OnProgress(s.onProgress)
	}
	return ex.Execute(s.plan)
}
