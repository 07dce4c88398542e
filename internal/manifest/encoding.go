package manifest

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/FairForge/binsync/internal/chunk"
)

// Encode writes the manifest binary format described in spec §6: a
// sequence of FileChunkInfo records, each a length-prefixed UTF-8 path
// followed by a count-prefixed sequence of Chunk{hash, offset, length}
// records, all fields little-endian (the file count, path length, and
// chunk count are u32; chunk fields are u64). This is a fixed schema, not a
// general-purpose serialization framework (spec §1's non-goal on
// serialization "wiring" — the manifest still needs a concrete wire
// format because the Remote provider transports it over HTTP).
func Encode(w io.Writer, m *Manifest) error {
	bw := bufio.NewWriter(w)

	if err := binary.Write(bw, binary.LittleEndian, uint32(len(m.Files))); err != nil {
		return err
	}

	for _, f := range m.Files {
		if err := writeString(bw, f.Path); err != nil {
			return err
		}
		if err := binary.Write(bw, binary.LittleEndian, uint32(len(f.Chunks))); err != nil {
			return err
		}
		for _, c := range f.Chunks {
			if err := writeChunk(bw, c); err != nil {
				return err
			}
		}
	}

	return bw.Flush()
}

// Decode reads the manifest binary format written by Encode.
func Decode(r io.Reader) (*Manifest, error) {
	br := bufio.NewReader(r)

	var fileCount uint32
	if err := binary.Read(br, binary.LittleEndian, &fileCount); err != nil {
		return nil, fmt.Errorf("manifest: decode file count: %w", err)
	}

	files := make([]FileChunkInfo, 0, fileCount)
	for i := uint32(0); i < fileCount; i++ {
		path, err := readString(br)
		if err != nil {
			return nil, fmt.Errorf("manifest: decode path: %w", err)
		}

		var chunkCount uint32
		if err := binary.Read(br, binary.LittleEndian, &chunkCount); err != nil {
			return nil, fmt.Errorf("manifest: decode chunk count: %w", err)
		}

		chunks := make([]chunk.Chunk, 0, chunkCount)
		for j := uint32(0); j < chunkCount; j++ {
			c, err := readChunk(br)
			if err != nil {
				return nil, fmt.Errorf("manifest: decode chunk: %w", err)
			}
			chunks = append(chunks, c)
		}

		files = append(files, FileChunkInfo{Path: path, Chunks: chunks})
	}

	return &Manifest{Files: files}, nil
}

func writeString(w io.Writer, s string) error {
	if err := binary.Write(w, binary.LittleEndian, uint32(len(s))); err != nil {
		return err
	}
	_, err := io.WriteString(w, s)
	return err
}

func readString(r io.Reader) (string, error) {
	var n uint32
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return "", err
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}

func writeChunk(w io.Writer, c chunk.Chunk) error {
	if err := binary.Write(w, binary.LittleEndian, c.Hash); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, c.Offset); err != nil {
		return err
	}
	return binary.Write(w, binary.LittleEndian, c.Length)
}

func readChunk(r io.Reader) (chunk.Chunk, error) {
	var c chunk.Chunk
	if err := binary.Read(r, binary.LittleEndian, &c.Hash); err != nil {
		return c, err
	}
	if err := binary.Read(r, binary.LittleEndian, &c.Offset); err != nil {
		return c, err
	}
	if err := binary.Read(r, binary.LittleEndian, &c.Length); err != nil {
		return c, err
	}
	return c, nil
}
