package chunk

import (
	"bytes"
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNew_InvalidParams(t *testing.T) {
	_, err := New(0, 1024, 2048)
	require.Error(t, err)

	_, err = New(4096, 1024, 2048)
	require.Error(t, err)

	_, err = New(1024, 4096, 2048)
	require.Error(t, err)
}

func TestChunker_SmallData(t *testing.T) {
	c, err := New(32768, 65536, 131072)
	require.NoError(t, err)

	data := []byte("hello, world!")
	chunks, err := c.Split(data)
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	require.Equal(t, uint64(0), chunks[0].Offset)
	require.Equal(t, uint64(len(data)), chunks[0].Length)
}

func TestChunker_EmptyData(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)

	chunks, err := c.Split(nil)
	require.NoError(t, err)
	require.Nil(t, chunks)
}

func TestChunker_LargeData_ContiguousCoverage(t *testing.T) {
	c, err := New(1024, 4096, 8192)
	require.NoError(t, err)

	data := make([]byte, 100*1024)
	_, err = rand.Read(data)
	require.NoError(t, err)

	chunks, payloads, err := c.SplitBytes(data)
	require.NoError(t, err)
	require.Greater(t, len(chunks), 1)

	var total uint64
	var reassembled []byte
	for i, ch := range chunks {
		require.Equal(t, total, ch.Offset)
		total += ch.Length
		reassembled = append(reassembled, payloads[i]...)
	}
	require.Equal(t, uint64(len(data)), total)
	require.True(t, bytes.Equal(reassembled, data))
}

func TestChunker_Deterministic(t *testing.T) {
	c1, err := New(1024, 4096, 8192)
	require.NoError(t, err)
	c2, err := New(1024, 4096, 8192)
	require.NoError(t, err)

	data := make([]byte, 50*1024)
	_, err = rand.Read(data)
	require.NoError(t, err)

	chunks1, err := c1.Split(data)
	require.NoError(t, err)
	chunks2, err := c2.Split(data)
	require.NoError(t, err)

	require.Equal(t, len(chunks1), len(chunks2))
	for i := range chunks1 {
		require.Equal(t, chunks1[i].Hash, chunks2[i].Hash)
		require.Equal(t, chunks1[i].Length, chunks2[i].Length)
	}
}

func TestChunker_BoundsRespected(t *testing.T) {
	c, err := New(1024, 4096, 8192)
	require.NoError(t, err)

	data := make([]byte, 200*1024)
	_, err = rand.Read(data)
	require.NoError(t, err)

	chunks, err := c.Split(data)
	require.NoError(t, err)

	for i, ch := range chunks {
		if i == len(chunks)-1 {
			continue // final chunk may be shorter than minSize
		}
		require.GreaterOrEqual(t, ch.Length, uint64(1024))
		require.LessOrEqual(t, ch.Length, uint64(8192))
	}
}
