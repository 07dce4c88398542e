package publisher

import (
	"crypto/rand"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/FairForge/binsync/internal/manifest"
	"github.com/FairForge/binsync/internal/pack"
	"github.com/stretchr/testify/require"
)

func buildFixture(t *testing.T) (string, *pack.RemoteManifest) {
	t.Helper()
	root := t.TempDir()
	data := make([]byte, 200*1024)
	_, err := rand.Read(data)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.bin"), data, 0o644))

	m, err := manifest.Build(root, 4, nil)
	require.NoError(t, err)

	rm := pack.BuildRemote(m, 64*1024)
	return root, &rm
}

func TestServer_Manifest_RoundTrips(t *testing.T) {
	root, rm := buildFixture(t)
	src := NewFileTreePackSource(root, &rm.Source)
	srv := httptest.NewServer(NewServer(rm, src, nil))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/manifest.binsync")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	decoded, err := pack.DecodeRemote(resp.Body)
	require.NoError(t, err)
	require.Equal(t, len(rm.Packs), len(decoded.Packs))
	require.Equal(t, len(rm.Source.Files), len(decoded.Source.Files))
}

func TestServer_Pack_ServesAssembledBytes(t *testing.T) {
	root, rm := buildFixture(t)
	src := NewFileTreePackSource(root, &rm.Source)
	srv := httptest.NewServer(NewServer(rm, src, nil))
	defer srv.Close()

	require.NotEmpty(t, rm.Packs)
	p := rm.Packs[0]

	resp, err := http.Get(srv.URL + "/" + strconv.FormatUint(p.Hash, 10) + ".binpack")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	want, err := src.AssemblePack(p)
	require.NoError(t, err)

	got, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Equal(t, want, got)
}

func TestServer_Pack_UnknownID(t *testing.T) {
	root, rm := buildFixture(t)
	src := NewFileTreePackSource(root, &rm.Source)
	srv := httptest.NewServer(NewServer(rm, src, nil))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/999999999.binpack")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}
