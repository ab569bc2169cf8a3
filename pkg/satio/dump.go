// Package satio stores computed summed-area tables and their slice totals
// as zstd compressed dumps.
package satio

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/klauspost/compress/zstd"

	"satfilter/internal/models"
	"satfilter/pkg/format"
	"satfilter/pkg/sat"
)

const (
	magic   = "SATD"
	version = uint32(1)
)

// Dump errors.
var (
	// ErrBadMagic is returned when the stream is not a table dump.
	ErrBadMagic = errors.New("satio: not a table dump")

	// ErrVersion is returned for dumps written by an unknown version.
	ErrVersion = errors.New("satio: unsupported dump version")

	// ErrCorrupt is returned when header fields are inconsistent.
	ErrCorrupt = errors.New("satio: corrupt dump")
)

// Dump is a table image together with its slice totals.
type Dump struct {
	Mode   sat.Mode
	Origin sat.Origin

	// Image holds the encoded table values.
	Image *models.Image

	// Totals holds the slice totals indexed [region][layer][z][channel].
	Totals [][][][]float64
}

// NewDump builds a dump from a filter result.
func NewDump(f *sat.Filter, img *models.Image, res *sat.Result) *Dump {
	d := &Dump{Mode: f.Mode, Origin: f.Origin, Image: img}
	d.Totals = make([][][][]float64, len(res.Totals))
	for r := range res.Totals {
		d.Totals[r] = make([][][]float64, len(res.Totals[r]))
		for l := range res.Totals[r] {
			d.Totals[r][l] = make([][]float64, len(res.Totals[r][l]))
			for z, total := range res.Totals[r][l] {
				d.Totals[r][l][z] = total.Float64()
			}
		}
	}
	return d
}

// header mirrors the fixed part of the dump.
type header struct {
	Version     uint32
	Format      uint32
	Mode        uint32
	Origin      uint32
	Width       uint32
	Height      uint32
	Depth       uint32
	ArrayLayers uint32
	Regions     uint32
	BufferSize  uint64
}

type regionRecord struct {
	BufferOffset uint64
	Width        uint32
	Height       uint32
	Depth        uint32
	LayerCount   uint32
}

// Write compresses d into w. Only the bytes up to the end of the last
// region are stored.
func Write(w io.Writer, d *Dump) error {
	img := d.Image
	if len(img.Regions) > maxRegions {
		return fmt.Errorf("satio: %d regions, at most %d supported", len(img.Regions), maxRegions)
	}
	end, err := payloadSize(img)
	if err != nil {
		return err
	}
	if end > uint64(len(img.Buffer)) {
		return fmt.Errorf("satio: regions end at %d, buffer holds %d bytes", end, len(img.Buffer))
	}

	enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedBetterCompression))
	if err != nil {
		return fmt.Errorf("satio: create encoder: %w", err)
	}
	bw := bufio.NewWriter(enc)

	h := header{
		Version:     version,
		Format:      uint32(img.Format),
		Mode:        uint32(d.Mode),
		Origin:      uint32(d.Origin),
		Width:       uint32(img.Extent.Width),
		Height:      uint32(img.Extent.Height),
		Depth:       uint32(img.Extent.Depth),
		ArrayLayers: uint32(img.ArrayLayers),
		Regions:     uint32(len(img.Regions)),
		BufferSize:  end,
	}
	if _, err := bw.WriteString(magic); err != nil {
		enc.Close()
		return err
	}
	if err := binary.Write(bw, binary.LittleEndian, &h); err != nil {
		enc.Close()
		return fmt.Errorf("satio: write header: %w", err)
	}
	for _, r := range img.Regions {
		rec := regionRecord{
			BufferOffset: uint64(r.BufferOffset),
			Width:        uint32(r.Extent.Width),
			Height:       uint32(r.Extent.Height),
			Depth:        uint32(r.Extent.Depth),
			LayerCount:   uint32(r.LayerCount),
		}
		if err := binary.Write(bw, binary.LittleEndian, &rec); err != nil {
			enc.Close()
			return fmt.Errorf("satio: write region: %w", err)
		}
	}
	for r := range d.Totals {
		for l := range d.Totals[r] {
			for _, total := range d.Totals[r][l] {
				if err := binary.Write(bw, binary.LittleEndian, total); err != nil {
					enc.Close()
					return fmt.Errorf("satio: write totals: %w", err)
				}
			}
		}
	}
	if _, err := bw.Write(img.Buffer[:end]); err != nil {
		enc.Close()
		return fmt.Errorf("satio: write values: %w", err)
	}
	if err := bw.Flush(); err != nil {
		enc.Close()
		return err
	}
	return enc.Close()
}

// maxRegions bounds the region count accepted from a dump header.
const maxRegions = 1 << 16

// payloadSize returns the end of the last region in img.Buffer, computed
// without overflow.
func payloadSize(img *models.Image) (uint64, error) {
	var end uint64
	for i, r := range img.Regions {
		size, ok := r.CheckedByteSize(img.Format)
		if !ok || r.BufferOffset < 0 || uint64(r.BufferOffset) > math.MaxUint64-size {
			return 0, fmt.Errorf("%w: region %d size overflows", ErrCorrupt, i)
		}
		end = max(end, uint64(r.BufferOffset)+size)
	}
	return end, nil
}

// Read decompresses a dump written by Write. Sizes in the header are
// checked against each other before anything is allocated from them, and
// the table values are read incrementally so a short stream fails without
// reserving the claimed buffer.
func Read(r io.Reader) (*Dump, error) {
	dec, err := zstd.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("satio: create decoder: %w", err)
	}
	defer dec.Close()

	var m [len(magic)]byte
	if _, err := io.ReadFull(dec, m[:]); err != nil {
		return nil, fmt.Errorf("satio: read magic: %w", err)
	}
	if string(m[:]) != magic {
		return nil, ErrBadMagic
	}

	var h header
	if err := binary.Read(dec, binary.LittleEndian, &h); err != nil {
		return nil, fmt.Errorf("satio: read header: %w", err)
	}
	if h.Version != version {
		return nil, fmt.Errorf("%w: %d", ErrVersion, h.Version)
	}
	f := format.Format(h.Format)
	if !f.IsValid() {
		return nil, fmt.Errorf("%w: format %d", ErrCorrupt, h.Format)
	}
	if h.Regions > maxRegions {
		return nil, fmt.Errorf("%w: %d regions", ErrCorrupt, h.Regions)
	}
	if h.BufferSize > math.MaxInt {
		return nil, fmt.Errorf("%w: buffer size %d", ErrCorrupt, h.BufferSize)
	}

	img := &models.Image{
		Format: f,
		Extent: models.Extent{
			Width:  int(h.Width),
			Height: int(h.Height),
			Depth:  int(h.Depth),
		},
		ArrayLayers: int(h.ArrayLayers),
	}
	for i := 0; i < int(h.Regions); i++ {
		var rec regionRecord
		if err := binary.Read(dec, binary.LittleEndian, &rec); err != nil {
			return nil, fmt.Errorf("satio: read region: %w", err)
		}
		if rec.Width == 0 || rec.Height == 0 || rec.Depth == 0 || rec.LayerCount == 0 ||
			rec.Width > h.Width || rec.Height > h.Height || rec.Depth > h.Depth ||
			rec.LayerCount > h.ArrayLayers {
			return nil, fmt.Errorf("%w: region %d does not fit the image", ErrCorrupt, i)
		}
		if rec.BufferOffset > h.BufferSize {
			return nil, fmt.Errorf("%w: region %d outside buffer", ErrCorrupt, i)
		}
		img.Regions = append(img.Regions, models.Region{
			BufferOffset: int(rec.BufferOffset),
			Extent: models.Extent{
				Width:  int(rec.Width),
				Height: int(rec.Height),
				Depth:  int(rec.Depth),
			},
			LayerCount: int(rec.LayerCount),
		})
	}

	// The buffer must end exactly where the last region ends; Write never
	// stores bytes past it.
	end, err := payloadSize(img)
	if err != nil {
		return nil, err
	}
	if end != h.BufferSize {
		return nil, fmt.Errorf("%w: buffer size %d, regions end at %d", ErrCorrupt, h.BufferSize, end)
	}

	d := &Dump{Mode: sat.Mode(h.Mode), Origin: sat.Origin(h.Origin), Image: img}
	for _, reg := range img.Regions {
		var layers [][][]float64
		for l := 0; l < reg.LayerCount; l++ {
			var slices [][]float64
			for z := 0; z < reg.Extent.Depth; z++ {
				total := make([]float64, f.Channels())
				if err := binary.Read(dec, binary.LittleEndian, total); err != nil {
					return nil, fmt.Errorf("satio: read totals: %w", err)
				}
				slices = append(slices, total)
			}
			layers = append(layers, slices)
		}
		d.Totals = append(d.Totals, layers)
	}

	values, err := io.ReadAll(io.LimitReader(dec, int64(h.BufferSize)))
	if err != nil {
		return nil, fmt.Errorf("satio: read values: %w", err)
	}
	if uint64(len(values)) != h.BufferSize {
		return nil, fmt.Errorf("%w: %d of %d value bytes", ErrCorrupt, len(values), h.BufferSize)
	}
	img.Buffer = values
	return d, nil
}
