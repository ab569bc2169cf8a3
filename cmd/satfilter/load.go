package main

import (
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg"
	_ "image/png"
	"os"

	_ "golang.org/x/image/tiff"

	"satfilter/internal/models"
	"satfilter/pkg/format"
)

// loadImage decodes a PNG, JPEG or TIFF file
func loadImage(path string) (image.Image, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	img, _, err := image.Decode(file)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return img, nil
}

// formatOf picks the storage format for a decoded image. Integer formats
// make the filter accumulate exact integer sums.
func formatOf(img image.Image, integer bool) format.Format {
	switch img.(type) {
	case *image.Gray:
		if integer {
			return format.FormatR8Uint
		}
		return format.FormatR8Unorm
	case *image.Gray16:
		if integer {
			return format.FormatR16Uint
		}
		return format.FormatR16Unorm
	default:
		if integer {
			return format.FormatRGBA8Uint
		}
		return format.FormatRGBA8Unorm
	}
}

// storeTexels writes img into dst in f, row by row
func storeTexels(img image.Image, f format.Format, dst []byte) {
	b := img.Bounds()
	texelBytes := f.TexelBytes()
	i := 0
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			px := dst[i*texelBytes:]
			switch f.Channels() {
			case 1:
				g := color.Gray16Model.Convert(img.At(x, y)).(color.Gray16).Y
				if f.BytesPerChannel() == 1 {
					px[0] = byte(g >> 8)
				} else {
					px[0], px[1] = byte(g), byte(g>>8)
				}
			default:
				c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
				px[0], px[1], px[2], px[3] = c.R, c.G, c.B, c.A
			}
			i++
		}
	}
}

// buildImage stacks the decoded files either as depth slices of one layer
// or as array layers of one slice
func buildImage(images []image.Image, integer, asLayers bool) (*models.Image, error) {
	if len(images) == 0 {
		return nil, fmt.Errorf("no input images")
	}
	b := images[0].Bounds()
	f := formatOf(images[0], integer)
	for i, img := range images[1:] {
		if img.Bounds().Size() != b.Size() {
			return nil, fmt.Errorf("input %d is %v, expected %v", i+1, img.Bounds().Size(), b.Size())
		}
		if formatOf(img, integer) != f {
			return nil, fmt.Errorf("input %d has a different pixel type", i+1)
		}
	}

	extent := models.Extent{Width: b.Dx(), Height: b.Dy(), Depth: len(images)}
	layers := 1
	if asLayers {
		extent.Depth = 1
		layers = len(images)
	}

	out := models.NewImage(f, extent, layers)
	sliceBytes := b.Dx() * b.Dy() * f.TexelBytes()
	for i, img := range images {
		storeTexels(img, f, out.Buffer[i*sliceBytes:])
	}
	return out, nil
}
