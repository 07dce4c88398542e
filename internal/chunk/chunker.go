package chunk

import (
	"bytes"
	"fmt"
	"io"

	resticchunker "github.com/restic/chunker"
)

// Polynomial is the fixed irreducible polynomial used to derive chunk
// boundaries. The CDC parameters (min/avg/max size) and this polynomial
// together form the format contract described in spec §4.1: any two
// parties that need to produce identical manifests for the same bytes
// must use identical values here. Unlike a randomly generated polynomial,
// a fixed one guarantees that two independent runs of the manifest builder
// against the same source tree produce byte-identical chunk boundaries.
const Polynomial = resticchunker.Pol(0x3DA3358B4DC173)

// Default CDC boundaries (spec §4.1).
const (
	DefaultMinSize = 32768
	DefaultAvgSize = 65536
	DefaultMaxSize = 131072
)

// Chunker splits a byte buffer into content-defined chunks with fixed
// boundaries. It wraps github.com/restic/chunker the way
// internal/crypto/chunker.go wraps it in the teacher repo, generalized to
// the spec's fixed parameters instead of per-instance tunable ones. Cut
// points come from that library's rolling Rabin fingerprint over
// Polynomial; this is not FastCDC, so the boundaries differ from those a
// FastCDC chunker would produce for the same bytes.
type Chunker struct {
	minSize uint
	maxSize uint
	pol     resticchunker.Pol
}

// New creates a Chunker with the given boundaries and the fixed format
// polynomial. minSize, avgSize, and maxSize must satisfy
// minSize <= avgSize <= maxSize; avgSize is accepted for documentation and
// config-validation purposes (spec §4.1's naming) but, like the teacher's
// wrapper, is not separately threaded into the underlying chunker call —
// the library controls average chunk size via its internal split mask and
// the min/max boundaries supplied here.
func New(minSize, avgSize, maxSize uint) (*Chunker, error) {
	if minSize == 0 || avgSize == 0 || maxSize == 0 {
		return nil, fmt.Errorf("chunk: sizes must be positive")
	}
	if minSize > avgSize || avgSize > maxSize {
		return nil, fmt.Errorf("chunk: sizes must satisfy min <= avg <= max")
	}

	return &Chunker{
		minSize: minSize,
		maxSize: maxSize,
		pol:     Polynomial,
	}, nil
}

// Default creates a Chunker using the spec's fixed CDC parameters.
func Default() (*Chunker, error) {
	return New(DefaultMinSize, DefaultAvgSize, DefaultMaxSize)
}

// Split chunks an in-memory buffer and returns the chunk records in offset
// order (SplitBytes also returns each chunk's raw bytes). A buffer smaller
// than minSize produces a
// single chunk spanning the whole buffer (spec §4.1, §8 boundary case).
func (c *Chunker) Split(data []byte) ([]Chunk, error) {
	if len(data) == 0 {
		return nil, nil
	}

	chunker := resticchunker.NewWithBoundaries(bytes.NewReader(data), c.pol, c.minSize, c.maxSize)
	buf := make([]byte, c.maxSize)

	var chunks []Chunk
	var offset uint64

	for {
		rec, err := chunker.Next(buf)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("chunk: split failed at offset %d: %w", offset, err)
		}

		chunkData := make([]byte, rec.Length)
		copy(chunkData, rec.Data)

		chunks = append(chunks, Chunk{
			Hash:   HashBytes(chunkData),
			Offset: offset,
			Length: uint64(rec.Length),
		})

		offset += uint64(rec.Length)
	}

	return chunks, nil
}

// SplitBytes is like Split but also returns the byte slice for each chunk,
// for callers that need both the chunk record and its raw data in one
// pass. The manifest builder and the planner use Split.
func (c *Chunker) SplitBytes(data []byte) ([]Chunk, [][]byte, error) {
	if len(data) == 0 {
		return nil, nil, nil
	}

	chunker := resticchunker.NewWithBoundaries(bytes.NewReader(data), c.pol, c.minSize, c.maxSize)
	buf := make([]byte, c.maxSize)

	var chunks []Chunk
	var payloads [][]byte
	var offset uint64

	for {
		rec, err := chunker.Next(buf)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("chunk: split failed at offset %d: %w", offset, err)
		}

		chunkData := make([]byte, rec.Length)
		copy(chunkData, rec.Data)

		chunks = append(chunks, Chunk{
			Hash:   HashBytes(chunkData),
			Offset: offset,
			Length: uint64(rec.Length),
		})
		payloads = append(payloads, chunkData)

		offset += uint64(rec.Length)
	}

	return chunks, payloads, nil
}
