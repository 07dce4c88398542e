package syncer

import (
	"crypto/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/FairForge/binsync/internal/provider"
	"github.com/stretchr/testify/require"
)

func TestSyncer_PlanThenSync_ReproducesSource(t *testing.T) {
	srcRoot := t.TempDir()
	data := make([]byte, 400*1024)
	_, err := rand.Read(data)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(srcRoot, "a.bin"), data, 0o644))

	m, err := GenerateManifest(srcRoot, 4, nil)
	require.NoError(t, err)

	destRoot := t.TempDir()
	prov := provider.NewBasic(srcRoot, m)
	s := New(destRoot, prov, m, nil)

	var percents []int
	s.OnProgress(func(pct int) { percents = append(percents, pct) })

	p, err := s.Plan()
	require.NoError(t, err)
	require.NotEmpty(t, p.Files)

	require.NoError(t, s.Sync())
	require.NotEmpty(t, percents)
	require.Equal(t, 100, percents[len(percents)-1])

	got, err := os.ReadFile(filepath.Join(destRoot, "a.bin"))
	require.NoError(t, err)
	require.Equal(t, data, got)
}

func TestSyncer_Sync_WithoutExplicitPlan(t *testing.T) {
	srcRoot := t.TempDir()
	data := make([]byte, 10*1024)
	_, err := rand.Read(data)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(srcRoot, "a.bin"), data, 0o644))

	m, err := GenerateManifest(srcRoot, 4, nil)
	require.NoError(t, err)

	destRoot := t.TempDir()
	prov := provider.NewBasic(srcRoot, m)
	s := New(destRoot, prov, m, nil)

	require.NoError(t, s.Sync())

	got, err := os.ReadFile(filepath.Join(destRoot, "a.bin"))
	require.NoError(t, err)
	require.Equal(t, data, got)
}

func TestSyncer_AlreadyInSync_NoProvider(t *testing.T) {
	srcRoot := t.TempDir()
	data := make([]byte, 10*1024)
	_, err := rand.Read(data)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(srcRoot, "a.bin"), data, 0o644))

	m, err := GenerateManifest(srcRoot, 4, nil)
	require.NoError(t, err)

	destRoot := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(destRoot, "a.bin"), data, 0o644))

	s := New(destRoot, nil, m, nil)
	require.NoError(t, s.Sync())
}
