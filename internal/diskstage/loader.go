package diskstage

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/dot5enko/readout-core/block"
	"golang.org/x/sync/singleflight"
)

// Loader reads back slab files written by Sink, deduplicating concurrent
// requests for the same (linkId, timeframeId) slab into one disk read.
//
// Mirrors simple-column-db's manager/meta/slab_manager.go, which
// guards its own on-disk slab loads with a singleflight.Group so that
// concurrent cache misses for the same slab collapse into a single
// read.
type Loader struct {
	Dir string

	loadGroup singleflight.Group
}

// NewLoader returns a Loader reading slabs from dir.
func NewLoader(dir string) *Loader {
	return &Loader{Dir: dir}
}

// Slab is a decoded slab file: its header plus the raw (still possibly
// compressed) payload bytes that followed it.
type Slab struct {
	Header  block.SlabHeader
	Payload []byte
}

// Load reads the slab for (linkID, timeframeID), decoding its header.
// Concurrent calls for the same key share one disk read.
func (l *Loader) Load(linkID uint32, timeframeID uint64) (Slab, error) {
	key := fmt.Sprintf("%d:%d", linkID, timeframeID)

	v, err, _ := l.loadGroup.Do(key, func() (interface{}, error) {
		return l.loadFromDisk(linkID, timeframeID)
	})
	if err != nil {
		return Slab{}, err
	}
	return v.(Slab), nil
}

func (l *Loader) loadFromDisk(linkID uint32, timeframeID uint64) (Slab, error) {
	path := filepath.Join(l.Dir, fmt.Sprintf("link%d_tf%d.slab", linkID, timeframeID))

	data, err := os.ReadFile(path)
	if err != nil {
		return Slab{}, fmt.Errorf("diskstage: read %s: %w", path, err)
	}

	header, err := block.Decode(data)
	if err != nil {
		return Slab{}, fmt.Errorf("diskstage: decode slab header: %w", err)
	}

	return Slab{Header: header, Payload: data[block.HeaderSize:]}, nil
}
