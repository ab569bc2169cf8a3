// Package models holds the image data structures shared by the satfilter
// packages.
package models

import (
	"math/bits"

	"satfilter/pkg/format"
)

// Extent is the size of a texel grid in texels
type Extent struct {
	Width  int
	Height int
	Depth  int
}

// Voxels returns the number of texels covered by the extent
func (e Extent) Voxels() int {
	return e.Width * e.Height * e.Depth
}

// IsEmpty reports whether any dimension is non-positive
func (e Extent) IsEmpty() bool {
	return e.Width <= 0 || e.Height <= 0 || e.Depth <= 0
}

// Region represents a rectangular sub-volume of an image's texel data
type Region struct {
	// BufferOffset is the byte offset of the region's first texel
	BufferOffset int

	// Extent is the size of the region in texels
	Extent Extent

	// LayerCount is the number of array layers stored for this region.
	// Layers follow each other in the buffer without padding.
	LayerCount int
}

// Voxels returns the number of texels across all layers of the region
func (r Region) Voxels() int {
	return r.Extent.Voxels() * r.LayerCount
}

// LayerByteSize returns the byte size of one layer for the given format
func (r Region) LayerByteSize(f format.Format) int {
	return r.Extent.Voxels() * f.TexelBytes()
}

// ByteSize returns the byte size of all layers for the given format
func (r Region) ByteSize(f format.Format) int {
	return r.LayerByteSize(f) * r.LayerCount
}

// CheckedByteSize is ByteSize computed in uint64. ok is false when a
// dimension is negative or the product overflows.
func (r Region) CheckedByteSize(f format.Format) (size uint64, ok bool) {
	factors := []int{r.Extent.Width, r.Extent.Height, r.Extent.Depth, r.LayerCount, f.TexelBytes()}
	size = 1
	for _, n := range factors {
		if n < 0 {
			return 0, false
		}
		hi, lo := bits.Mul64(size, uint64(n))
		if hi != 0 {
			return 0, false
		}
		size = lo
	}
	return size, true
}

// Image is a view of a possibly 3-D, possibly layered texel grid split into
// regions. All regions share the image format.
type Image struct {
	// Format is the pixel format of every region
	Format format.Format

	// Extent is the size of the whole image
	Extent Extent

	// ArrayLayers is the number of array layers of the image
	ArrayLayers int

	// Regions lists the texel regions in buffer order
	Regions []Region

	// Buffer holds the raw texel bytes of all regions
	Buffer []byte
}

// NewImage creates an image with a single region covering the whole extent
// and a zeroed buffer
func NewImage(f format.Format, extent Extent, layers int) *Image {
	region := Region{Extent: extent, LayerCount: layers}
	return &Image{
		Format:      f,
		Extent:      extent,
		ArrayLayers: layers,
		Regions:     []Region{region},
		Buffer:      make([]byte, region.ByteSize(f)),
	}
}

// TexelOffset returns the byte offset of texel (x, y, z) of the given layer
// inside region r
func (img *Image) TexelOffset(r Region, layer, x, y, z int) int {
	e := r.Extent
	idx := (z*e.Height+y)*e.Width + x
	return r.BufferOffset + layer*r.LayerByteSize(img.Format) + idx*img.Format.TexelBytes()
}

// Texel returns the raw bytes of texel (x, y, z) of the given layer inside
// region r
func (img *Image) Texel(r Region, layer, x, y, z int) []byte {
	off := img.TexelOffset(r, layer, x, y, z)
	return img.Buffer[off : off+img.Format.TexelBytes()]
}
