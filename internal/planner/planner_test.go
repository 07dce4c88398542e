package planner

import (
	"crypto/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/FairForge/binsync/internal/manifest"
	"github.com/FairForge/binsync/internal/plan"
	"github.com/stretchr/testify/require"
)

func buildManifestFromBytes(t *testing.T, name string, data []byte) (*manifest.Manifest, string) {
	t.Helper()
	srcRoot := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(srcRoot, name), data, 0o644))
	m, err := manifest.Build(srcRoot, 4, nil)
	require.NoError(t, err)
	return m, srcRoot
}

func randomBytes(t *testing.T, n int) []byte {
	t.Helper()
	data := make([]byte, n)
	_, err := rand.Read(data)
	require.NoError(t, err)
	return data
}

func TestBuild_MissingDestination_AllFetch(t *testing.T) {
	data := randomBytes(t, 200*1024)
	m, _ := buildManifestFromBytes(t, "test.bin", data)

	destRoot := t.TempDir()
	p, err := Build(m, destRoot, nil)
	require.NoError(t, err)

	require.Len(t, p.Files, 1)
	for _, op := range p.Files[0].Operations {
		require.Equal(t, plan.OpFetch, op.Kind)
	}
}

func TestBuild_IdenticalDestination_EmptyPlan(t *testing.T) {
	data := randomBytes(t, 200*1024)
	m, _ := buildManifestFromBytes(t, "test.bin", data)

	destRoot := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(destRoot, "test.bin"), data, 0o644))

	p, err := Build(m, destRoot, nil)
	require.NoError(t, err)
	require.Empty(t, p.Files)
	require.Equal(t, 0, p.TotalOps)
}

func TestBuild_ShuffledDestination_UsesCopy(t *testing.T) {
	half := randomBytes(t, 100*1024)
	otherHalf := randomBytes(t, 100*1024)
	source := append(append([]byte{}, half...), otherHalf...)
	shuffledDest := append(append([]byte{}, otherHalf...), half...)

	m, _ := buildManifestFromBytes(t, "test.bin", source)

	destRoot := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(destRoot, "test.bin"), shuffledDest, 0o644))

	p, err := Build(m, destRoot, nil)
	require.NoError(t, err)
	require.Len(t, p.Files, 1)

	var sawCopy, sawFetch bool
	for _, op := range p.Files[0].Operations {
		switch op.Kind {
		case plan.OpCopy:
			sawCopy = true
		case plan.OpFetch:
			sawFetch = true
		}
	}
	require.True(t, sawCopy, "expected at least one Copy operation")
	require.False(t, sawFetch, "shuffled self-copy should need no Fetch operations")
}

func TestBuild_LongerDestination_StillPlans(t *testing.T) {
	source := randomBytes(t, 1024*1024)
	dest := randomBytes(t, 1024*1024+101)

	m, _ := buildManifestFromBytes(t, "test.bin", source)

	destRoot := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(destRoot, "test.bin"), dest, 0o644))

	p, err := Build(m, destRoot, nil)
	require.NoError(t, err)
	require.Len(t, p.Files, 1)
	require.NotEmpty(t, p.Files[0].Operations)
}

func TestBuild_TotalOpsAccumulatesAcrossFiles(t *testing.T) {
	srcRoot := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(srcRoot, "a.bin"), randomBytes(t, 50*1024), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(srcRoot, "b.bin"), randomBytes(t, 50*1024), 0o644))
	m, err := manifest.Build(srcRoot, 4, nil)
	require.NoError(t, err)

	destRoot := t.TempDir()
	p, err := Build(m, destRoot, nil)
	require.NoError(t, err)

	var sum int
	for _, f := range p.Files {
		sum += len(f.Operations)
	}
	require.Equal(t, sum, p.TotalOps)
	require.Equal(t, 2, len(p.Files))
}
