package satio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"math"
	"testing"

	"github.com/klauspost/compress/zstd"

	"satfilter/internal/models"
	"satfilter/pkg/format"
	"satfilter/pkg/sat"
)

// TestDumpRoundTrip writes a computed table and reads it back
func TestDumpRoundTrip(t *testing.T) {
	extent := models.Extent{Width: 3, Height: 2, Depth: 2}
	in := models.NewImage(format.FormatRGBA8Uint, extent, 1)
	for i := range in.Buffer {
		in.Buffer[i] = byte(i % 7)
	}
	out := models.NewImage(format.FormatRGBA32Uint, extent, 1)

	f := &sat.Filter{Mode: sat.Exclusive, Origin: sat.OriginBottomLeft}
	st := &sat.State{Scratch: sat.NewScratch(in)}
	st.Input, st.Output = in, out
	res, err := f.Execute(st)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	var buf bytes.Buffer
	if err := Write(&buf, NewDump(f, out, res)); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	d, err := Read(&buf)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if d.Mode != sat.Exclusive || d.Origin != sat.OriginBottomLeft {
		t.Errorf("Expected exclusive/bottom-left, got %v/%v", d.Mode, d.Origin)
	}
	if d.Image.Format != out.Format || d.Image.Extent != out.Extent {
		t.Errorf("Expected %v %+v, got %v %+v", out.Format, out.Extent, d.Image.Format, d.Image.Extent)
	}
	if !bytes.Equal(d.Image.Buffer, out.Buffer) {
		t.Error("Expected identical table values")
	}
	if len(d.Totals) != 1 || len(d.Totals[0][0]) != 2 {
		t.Fatalf("Expected totals for 2 slices, got %v", d.Totals)
	}
	for z := 0; z < 2; z++ {
		want := res.SliceTotal(0, 0, z).Float64()
		got := d.Totals[0][0][z]
		for c := range want {
			if got[c] != want[c] {
				t.Errorf("slice %d channel %d: expected %f, got %f", z, c, want[c], got[c])
			}
		}
	}
}

func TestReadBadMagic(t *testing.T) {
	var buf bytes.Buffer
	enc, err := zstd.NewWriter(&buf)
	if err != nil {
		t.Fatalf("NewWriter failed: %v", err)
	}
	if _, err := enc.Write([]byte("NOPE and more bytes")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	if _, err := Read(&buf); !errors.Is(err, ErrBadMagic) {
		t.Errorf("Expected ErrBadMagic, got %v", err)
	}
}

// encodeRaw compresses a hand built dump stream.
func encodeRaw(t *testing.T, h header, regions []regionRecord, tail []byte) *bytes.Buffer {
	t.Helper()
	var raw bytes.Buffer
	raw.WriteString(magic)
	if err := binary.Write(&raw, binary.LittleEndian, &h); err != nil {
		t.Fatalf("Failed to write header: %v", err)
	}
	for _, rec := range regions {
		if err := binary.Write(&raw, binary.LittleEndian, &rec); err != nil {
			t.Fatalf("Failed to write region: %v", err)
		}
	}
	raw.Write(tail)

	var buf bytes.Buffer
	enc, err := zstd.NewWriter(&buf)
	if err != nil {
		t.Fatalf("NewWriter failed: %v", err)
	}
	if _, err := enc.Write(raw.Bytes()); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	return &buf
}

// TestReadCorruptHeaders verifies that inconsistent sizes are rejected
// before the reader allocates from them
func TestReadCorruptHeaders(t *testing.T) {
	oneTexel := header{
		Version: version, Format: uint32(format.FormatR8Uint),
		Width: 2, Height: 2, Depth: 1, ArrayLayers: 1,
		Regions: 1, BufferSize: 4,
	}
	square := regionRecord{Width: 2, Height: 2, Depth: 1, LayerCount: 1}
	total := make([]byte, 8)
	binary.LittleEndian.PutUint64(total, math.Float64bits(10))

	wide := oneTexel
	wide.Width, wide.Height = 1<<31, 1<<30
	wide.BufferSize = 16

	maxed := header{
		Version: version, Format: uint32(format.FormatRGBA64Sfloat),
		Width: math.MaxUint32, Height: math.MaxUint32, Depth: math.MaxUint32, ArrayLayers: math.MaxUint32,
		Regions: 1, BufferSize: 64,
	}

	noRegions := oneTexel
	noRegions.Regions = 0
	noRegions.BufferSize = 1 << 30

	tooMany := oneTexel
	tooMany.Regions = maxRegions + 1

	huge := oneTexel
	huge.BufferSize = math.MaxUint64

	tests := []struct {
		name    string
		h       header
		regions []regionRecord
		tail    []byte
	}{
		{"region larger than image", oneTexel,
			[]regionRecord{{Width: 1 << 31, Height: 1 << 30, Depth: 1, LayerCount: 1}}, nil},
		{"region past buffer", wide,
			[]regionRecord{{Width: 1 << 31, Height: 1 << 30, Depth: 1, LayerCount: 1}}, nil},
		{"region size overflows", maxed,
			[]regionRecord{{Width: math.MaxUint32, Height: math.MaxUint32, Depth: math.MaxUint32, LayerCount: math.MaxUint32}}, nil},
		{"empty region", oneTexel, []regionRecord{{Width: 2, Height: 0, Depth: 1, LayerCount: 1}}, nil},
		{"offset past buffer", oneTexel, []regionRecord{{BufferOffset: 5, Width: 2, Height: 2, Depth: 1, LayerCount: 1}}, nil},
		{"buffer without regions", noRegions, nil, nil},
		{"buffer larger than regions", huge, []regionRecord{square}, nil},
		{"too many regions", tooMany, nil, nil},
		{"truncated values", oneTexel, []regionRecord{square}, append(total, 1, 2)},
	}
	for _, tt := range tests {
		_, err := Read(encodeRaw(t, tt.h, tt.regions, tt.tail))
		if !errors.Is(err, ErrCorrupt) {
			t.Errorf("%s: expected ErrCorrupt, got %v", tt.name, err)
		}
	}

	// the same stream with all four values is accepted
	d, err := Read(encodeRaw(t, oneTexel, []regionRecord{square}, append(total, 1, 2, 3, 4)))
	if err != nil {
		t.Fatalf("Read failed for a well formed stream: %v", err)
	}
	if !bytes.Equal(d.Image.Buffer, []byte{1, 2, 3, 4}) || d.Totals[0][0][0][0] != 10 {
		t.Errorf("Expected values [1 2 3 4] and total 10, got %v and %v", d.Image.Buffer, d.Totals)
	}
}

// TestWriteStoresRegionsOnly verifies that bytes past the last region are
// not part of the dump
func TestWriteStoresRegionsOnly(t *testing.T) {
	img := models.NewImage(format.FormatR8Uint, models.Extent{Width: 2, Height: 1, Depth: 1}, 1)
	img.Buffer = append(img.Buffer, 0xff, 0xff)
	d := &Dump{Image: img, Totals: [][][][]float64{{{{0}}}}}

	var buf bytes.Buffer
	if err := Write(&buf, d); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	got, err := Read(&buf)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if len(got.Image.Buffer) != 2 {
		t.Errorf("Expected 2 stored bytes, got %d", len(got.Image.Buffer))
	}

	img.Regions[0].BufferOffset = 3
	if err := Write(&bytes.Buffer{}, d); err == nil {
		t.Error("Expected an error for a region past the buffer")
	}
}
