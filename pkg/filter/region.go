// Package filter provides the plumbing shared by image filters that read one
// image and write another of the same size: region validation, clipping and
// ordered texel iteration.
package filter

import (
	"satfilter/internal/models"
)

// Texel identifies one visited texel.
type Texel struct {
	Layer   int
	X, Y, Z int

	// Offset is the byte offset of the texel in the image buffer.
	Offset int
}

// Box is a half-open texel range inside a region.
type Box struct {
	Min, Max [3]int
}

// IsEmpty reports whether the box covers no texels.
func (b Box) IsEmpty() bool {
	return b.Max[0] <= b.Min[0] || b.Max[1] <= b.Min[1] || b.Max[2] <= b.Min[2]
}

// ClipFunc restricts the texels visited inside a region of img.
type ClipFunc func(img *models.Image, r models.Region) Box

// ClipToImage limits a region to the image extent.
func ClipToImage(img *models.Image, r models.Region) Box {
	return Box{Max: [3]int{
		min(r.Extent.Width, img.Extent.Width),
		min(r.Extent.Height, img.Extent.Height),
		min(r.Extent.Depth, img.Extent.Depth),
	}}
}

// ForEachTexel visits every texel of region r that survives clip, layer by
// layer, in z, y, x order. A nil clip visits the whole region.
func ForEachTexel(img *models.Image, r models.Region, clip ClipFunc, fn func(Texel)) {
	box := Box{Max: [3]int{r.Extent.Width, r.Extent.Height, r.Extent.Depth}}
	if clip != nil {
		box = clip(img, r)
	}
	if box.IsEmpty() {
		return
	}

	texelBytes := img.Format.TexelBytes()
	for layer := 0; layer < r.LayerCount; layer++ {
		for z := box.Min[2]; z < box.Max[2]; z++ {
			for y := box.Min[1]; y < box.Max[1]; y++ {
				off := img.TexelOffset(r, layer, box.Min[0], y, z)
				for x := box.Min[0]; x < box.Max[0]; x++ {
					fn(Texel{Layer: layer, X: x, Y: y, Z: z, Offset: off})
					off += texelBytes
				}
			}
		}
	}
}
