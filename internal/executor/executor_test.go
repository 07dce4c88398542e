package executor

import (
	"crypto/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/FairForge/binsync/internal/manifest"
	"github.com/FairForge/binsync/internal/planner"
	"github.com/FairForge/binsync/internal/provider"
	"github.com/stretchr/testify/require"
)

func randBytes(t *testing.T, n int) []byte {
	t.Helper()
	b := make([]byte, n)
	_, err := rand.Read(b)
	require.NoError(t, err)
	return b
}

func TestExecute_MissingDestination_FetchesEverything(t *testing.T) {
	srcRoot := t.TempDir()
	data := randBytes(t, 300*1024)
	require.NoError(t, os.WriteFile(filepath.Join(srcRoot, "a.bin"), data, 0o644))

	m, err := manifest.Build(srcRoot, 4, nil)
	require.NoError(t, err)

	destRoot := t.TempDir()
	p, err := planner.Build(m, destRoot, nil)
	require.NoError(t, err)

	prov := provider.NewBasic(srcRoot, m)
	ex := New(destRoot, prov, nil)

	var lastPercent int
	ex.OnProgress(func(pct int) { lastPercent = pct })

	require.NoError(t, ex.Execute(p))
	require.Equal(t, 100, lastPercent)

	got, err := os.ReadFile(filepath.Join(destRoot, "a.bin"))
	require.NoError(t, err)
	require.Equal(t, data, got)
}

func TestExecute_ShuffledDestination_SelfCopyNoProvider(t *testing.T) {
	half := randBytes(t, 100*1024)
	otherHalf := randBytes(t, 100*1024)
	source := append(append([]byte{}, half...), otherHalf...)
	shuffledDest := append(append([]byte{}, otherHalf...), half...)

	srcRoot := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(srcRoot, "a.bin"), source, 0o644))
	m, err := manifest.Build(srcRoot, 4, nil)
	require.NoError(t, err)

	destRoot := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(destRoot, "a.bin"), shuffledDest, 0o644))

	p, err := planner.Build(m, destRoot, nil)
	require.NoError(t, err)
	require.False(t, p.NeedsFetch(), "shuffled self-copy should never need the provider")

	ex := New(destRoot, nil, nil)
	require.NoError(t, ex.Execute(p))

	got, err := os.ReadFile(filepath.Join(destRoot, "a.bin"))
	require.NoError(t, err)
	require.Equal(t, source, got)
}

func TestExecute_LongerDestination_Truncates(t *testing.T) {
	srcRoot := t.TempDir()
	source := randBytes(t, 64*1024)
	require.NoError(t, os.WriteFile(filepath.Join(srcRoot, "a.bin"), source, 0o644))
	m, err := manifest.Build(srcRoot, 4, nil)
	require.NoError(t, err)

	destRoot := t.TempDir()
	longer := append(append([]byte{}, source...), randBytes(t, 500)...)
	require.NoError(t, os.WriteFile(filepath.Join(destRoot, "a.bin"), longer, 0o644))

	p, err := planner.Build(m, destRoot, nil)
	require.NoError(t, err)

	prov := provider.NewBasic(srcRoot, m)
	ex := New(destRoot, prov, nil)
	require.NoError(t, ex.Execute(p))

	got, err := os.ReadFile(filepath.Join(destRoot, "a.bin"))
	require.NoError(t, err)
	require.Equal(t, source, got)
}

func TestExecute_NestedDestinationPath_CreatesDirs(t *testing.T) {
	srcRoot := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(srcRoot, "nested", "deep"), 0o755))
	data := randBytes(t, 10*1024)
	require.NoError(t, os.WriteFile(filepath.Join(srcRoot, "nested", "deep", "f.bin"), data, 0o644))

	m, err := manifest.Build(srcRoot, 4, nil)
	require.NoError(t, err)

	destRoot := t.TempDir()
	p, err := planner.Build(m, destRoot, nil)
	require.NoError(t, err)

	prov := provider.NewBasic(srcRoot, m)
	ex := New(destRoot, prov, nil)
	require.NoError(t, ex.Execute(p))

	got, err := os.ReadFile(filepath.Join(destRoot, "nested", "deep", "f.bin"))
	require.NoError(t, err)
	require.Equal(t, data, got)
}

func TestExecute_EmptyPlan_NoOp(t *testing.T) {
	srcRoot := t.TempDir()
	data := randBytes(t, 10*1024)
	require.NoError(t, os.WriteFile(filepath.Join(srcRoot, "a.bin"), data, 0o644))
	m, err := manifest.Build(srcRoot, 4, nil)
	require.NoError(t, err)

	destRoot := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(destRoot, "a.bin"), data, 0o644))

	p, err := planner.Build(m, destRoot, nil)
	require.NoError(t, err)
	require.Empty(t, p.Files)

	ex := New(destRoot, nil, nil)
	require.NoError(t, ex.Execute(p))
}
