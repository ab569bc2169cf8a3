package visualization

import (
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/tiff"

	"satfilter/internal/models"
	"satfilter/pkg/format"
)

// Viewer renders slices of one channel of a table volume as grayscale
// images. Values are scaled per slice so the largest entry maps to white.
type Viewer struct {
	// volumeData holds one channel of the volume in z, y, x order
	volumeData []float64

	// dimensions of the volume
	width  int
	height int
	depth  int
}

// NewViewer creates a viewer over volumeData
func NewViewer(volumeData []float64, width, height, depth int) *Viewer {
	return &Viewer{
		volumeData: volumeData,
		width:      width,
		height:     height,
		depth:      depth,
	}
}

// NewViewerFromImage decodes one channel of one layer of a region of img
func NewViewerFromImage(img *models.Image, region, layer, channel int) (*Viewer, error) {
	if region < 0 || region >= len(img.Regions) {
		return nil, fmt.Errorf("region %d out of range", region)
	}
	r := img.Regions[region]
	if layer < 0 || layer >= r.LayerCount {
		return nil, fmt.Errorf("layer %d out of range", layer)
	}
	if channel < 0 || channel >= img.Format.Channels() {
		return nil, fmt.Errorf("channel %d out of range for %s", channel, img.Format)
	}

	e := r.Extent
	data := make([]float64, 0, e.Voxels())
	var texel [format.MaxChannels]float64
	for z := 0; z < e.Depth; z++ {
		for y := 0; y < e.Height; y++ {
			for x := 0; x < e.Width; x++ {
				if err := format.DecodeFloat(img.Format, img.Texel(r, layer, x, y, z), &texel); err != nil {
					return nil, err
				}
				data = append(data, texel[channel])
			}
		}
	}
	return NewViewer(data, e.Width, e.Height, e.Depth), nil
}

// ExtractSlice extracts a 2D slice from the volume along the specified axis
func (v *Viewer) ExtractSlice(axis string, position int) (image.Image, error) {
	if position < 0 {
		return nil, fmt.Errorf("position must be non-negative")
	}

	var (
		w, h int
		at   func(i, j int) float64
	)
	switch axis {
	case "x", "X":
		if position >= v.width {
			return nil, fmt.Errorf("position %d exceeds width %d", position, v.width)
		}
		w, h = v.depth, v.height
		at = func(z, y int) float64 { return v.volumeData[v.index(position, y, z)] }
	case "y", "Y":
		if position >= v.height {
			return nil, fmt.Errorf("position %d exceeds height %d", position, v.height)
		}
		w, h = v.width, v.depth
		at = func(x, z int) float64 { return v.volumeData[v.index(x, position, z)] }
	case "z", "Z":
		if position >= v.depth {
			return nil, fmt.Errorf("position %d exceeds depth %d", position, v.depth)
		}
		w, h = v.width, v.height
		at = func(x, y int) float64 { return v.volumeData[v.index(x, y, position)] }
	default:
		return nil, fmt.Errorf("invalid axis: %s (must be x, y, or z)", axis)
	}

	lo, hi := math.Inf(1), math.Inf(-1)
	for j := 0; j < h; j++ {
		for i := 0; i < w; i++ {
			lo = math.Min(lo, at(i, j))
			hi = math.Max(hi, at(i, j))
		}
	}
	scale := 0.0
	if hi > lo {
		scale = 1 / (hi - lo)
	}

	img := image.NewGray16(image.Rect(0, 0, w, h))
	for j := 0; j < h; j++ {
		for i := 0; i < w; i++ {
			value := uint16(math.Round((at(i, j) - lo) * scale * 65535))
			img.SetGray16(i, j, color.Gray16{Y: value})
		}
	}
	return img, nil
}

func (v *Viewer) index(x, y, z int) int {
	return (z*v.height+y)*v.width + x
}

// SaveSlice saves an extracted slice. The encoder is chosen by file
// extension: .tif/.tiff, .jpg/.jpeg, anything else PNG.
func (v *Viewer) SaveSlice(img image.Image, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	switch strings.ToLower(filepath.Ext(filename)) {
	case ".tif", ".tiff":
		return tiff.Encode(file, img, &tiff.Options{Compression: tiff.Deflate})
	case ".jpg", ".jpeg":
		return jpeg.Encode(file, img, &jpeg.Options{Quality: 90})
	default:
		return png.Encode(file, img)
	}
}

// SaveSliceSequence extracts and saves every slice along the specified axis
func (v *Viewer) SaveSliceSequence(axis string, outputDir string, ext string) error {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return err
	}

	var maxPos int
	switch axis {
	case "x", "X":
		maxPos = v.width
	case "y", "Y":
		maxPos = v.height
	case "z", "Z":
		maxPos = v.depth
	default:
		return fmt.Errorf("invalid axis: %s (must be x, y, or z)", axis)
	}

	for pos := 0; pos < maxPos; pos++ {
		img, err := v.ExtractSlice(axis, pos)
		if err != nil {
			return err
		}

		filename := filepath.Join(outputDir, fmt.Sprintf("slice_%s_%03d%s", axis, pos, ext))
		if err := v.SaveSlice(img, filename); err != nil {
			return err
		}
	}

	return nil
}
