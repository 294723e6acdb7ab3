// Package diskstage is an example consumer of the aggregator's output
// queue: it prefixes every slice with a block.SlabHeader, optionally
// lz4-compresses the payload bytes, writes the result to a configured
// directory, then recycles every page back to its pool.
//
// This is explicitly a collaborator, not part of the core readout chain:
// the transport that ships slices off-node is out of scope, so diskstage
// stands in for "a downstream consumer that recycles pages." It reuses
// the compression and file-I/O code from compression/lz4.go,
// io/file_reader.go, and block/slab.go (itself mirroring
// schema/disk_slab_header.go) so those dependencies get exercised
// somewhere in this module.
package diskstage

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dot5enko/readout-core/block"
	"github.com/dot5enko/readout-core/compression"
	ioutil "github.com/dot5enko/readout-core/io"
	"github.com/dot5enko/readout-core/slicer"
)

const slabHeaderVersion = 1

// Sink writes slices to Dir, one slab file per slice, named by link and
// timeframe id. When Compress is true, each block's payload is
// lz4-compressed before being written, and the written
// block.SlabHeader.Compression field records that fact for readers.
type Sink struct {
	Dir      string
	Compress bool
}

// New returns a Sink writing to dir.
func New(dir string, compress bool) *Sink {
	return &Sink{Dir: dir, Compress: compress}
}

// Consume writes ds to disk as one slab file and releases every block
// container in it, regardless of whether the write succeeded, so pages
// are never leaked on a write failure.
func (s *Sink) Consume(ds slicer.DataSet) error {
	defer func() {
		for _, c := range ds.Blocks {
			c.Release()
		}
	}()

	payloads, err := s.encodeBlocks(ds)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return fmt.Errorf("diskstage: mkdir: %w", err)
	}

	totalSize := uint64(0)
	for _, p := range payloads {
		totalSize += uint64(len(p))
	}

	compressionKind := block.CompressionNone
	if s.Compress {
		compressionKind = block.CompressionLZ4
	}
	header := block.SlabHeader{
		Version:     slabHeaderVersion,
		LinkID:      ds.LinkID,
		TimeframeID: ds.TimeframeID,
		BlockCount:  uint16(len(ds.Blocks)),
		Compression: compressionKind,
		TotalSize:   totalSize,
	}

	headerBuf := make([]byte, block.HeaderSize)
	if err := block.Encode(headerBuf, header); err != nil {
		return fmt.Errorf("diskstage: encode slab header: %w", err)
	}

	path := filepath.Join(s.Dir, fmt.Sprintf("link%d_tf%d.slab", ds.LinkID, ds.TimeframeID))
	f := ioutil.NewFileReader(path)
	if err := f.Open(false); err != nil {
		return fmt.Errorf("diskstage: open: %w", err)
	}
	defer f.Close()

	if err := f.WriteAt(headerBuf, 0, len(headerBuf)); err != nil {
		return fmt.Errorf("diskstage: write slab header: %w", err)
	}

	offset := len(headerBuf)
	for _, p := range payloads {
		if err := f.WriteAt(p, offset, len(p)); err != nil {
			return fmt.Errorf("diskstage: write block payload: %w", err)
		}
		offset += len(p)
	}

	return nil
}

// encodeBlocks returns ds's block payloads in file order, lz4-compressed
// if s.Compress is set.
func (s *Sink) encodeBlocks(ds slicer.DataSet) ([][]byte, error) {
	out := make([][]byte, len(ds.Blocks))

	for i, c := range ds.Blocks {
		payload := c.Page()

		if !s.Compress {
			out[i] = payload
			continue
		}

		var compressed bytes.Buffer
		if err := compression.CompressLz4(payload, &compressed); err != nil {
			return nil, fmt.Errorf("diskstage: compress block %d: %w", i, err)
		}
		out[i] = compressed.Bytes()
	}

	return out, nil
}
