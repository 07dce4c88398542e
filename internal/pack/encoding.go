package pack

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/FairForge/binsync/internal/manifest"
)

// EncodeRemote writes the RemoteManifest binary format (spec §6): the
// wrapped Manifest (manifest.Encode) followed by a count-prefixed sequence
// of Pack{hash u64 LE, length u64 LE, chunk id count u32 LE, chunk ids u64
// LE}.
func EncodeRemote(w io.Writer, rm *RemoteManifest) error {
	if err := manifest.Encode(w, &rm.Source); err != nil {
		return fmt.Errorf("pack: encode source manifest: %w", err)
	}

	bw := bufio.NewWriter(w)
	if err := binary.Write(bw, binary.LittleEndian, uint32(len(rm.Packs))); err != nil {
		return err
	}

	for _, p := range rm.Packs {
		if err := binary.Write(bw, binary.LittleEndian, p.Hash); err != nil {
			return err
		}
		if err := binary.Write(bw, binary.LittleEndian, p.Length); err != nil {
			return err
		}
		if err := binary.Write(bw, binary.LittleEndian, uint32(len(p.Chunks))); err != nil {
			return err
		}
		for _, id := range p.Chunks {
			if err := binary.Write(bw, binary.LittleEndian, id); err != nil {
				return err
			}
		}
	}

	return bw.Flush()
}

// DecodeRemote reads the binary format written by EncodeRemote.
func DecodeRemote(r io.Reader) (*RemoteManifest, error) {
	br := bufio.NewReader(r)

	source, err := manifest.Decode(br)
	if err != nil {
		return nil, fmt.Errorf("pack: decode source manifest: %w", err)
	}

	var packCount uint32
	if err := binary.Read(br, binary.LittleEndian, &packCount); err != nil {
		return nil, fmt.Errorf("pack: decode pack count: %w", err)
	}

	packs := make([]Pack, 0, packCount)
	for i := uint32(0); i < packCount; i++ {
		var p Pack
		if err := binary.Read(br, binary.LittleEndian, &p.Hash); err != nil {
			return nil, err
		}
		if err := binary.Read(br, binary.LittleEndian, &p.Length); err != nil {
			return nil, err
		}

		var chunkCount uint32
		if err := binary.Read(br, binary.LittleEndian, &chunkCount); err != nil {
			return nil, err
		}
		p.Chunks = make([]uint64, chunkCount)
		for j := uint32(0); j < chunkCount; j++ {
			if err := binary.Read(br, binary.LittleEndian, &p.Chunks[j]); err != nil {
				return nil, err
			}
		}

		packs = append(packs, p)
	}

	return &RemoteManifest{Source: *source, Packs: packs}, nil
}
