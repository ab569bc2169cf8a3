// Package query answers rectangle sum, mean and variance queries from
// summed-area tables produced by package sat.
package query

import (
	"errors"
	"fmt"
	"image"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"satfilter/internal/models"
	"satfilter/pkg/format"
	"satfilter/pkg/sat"
)

// Query errors.
var (
	// ErrOutOfBounds is returned for slices or rectangles outside the table.
	ErrOutOfBounds = errors.New("query: out of bounds")

	// ErrChannel is returned for a channel the format does not have.
	ErrChannel = errors.New("query: invalid channel")
)

// Table is one channel of one depth slice of an inclusive summed-area
// table, stored with a top-left origin.
type Table struct {
	Width, Height int

	// Values holds the table entries in row-major order.
	Values []float64
}

// NewTable computes the inclusive table of a row-major channel of values.
func NewTable(values []float64, width, height int) (*Table, error) {
	if width <= 0 || height <= 0 || len(values) < width*height {
		return nil, fmt.Errorf("%w: %dx%d table from %d values", ErrOutOfBounds, width, height, len(values))
	}

	extent := models.Extent{Width: width, Height: height, Depth: 1}
	in := models.NewImage(format.FormatR64Sfloat, extent, 1)
	out := models.NewImage(format.FormatR64Sfloat, extent, 1)
	var texel [format.MaxChannels]float64
	for i, v := range values[:width*height] {
		texel[0] = v
		if err := format.EncodeFloat(in.Format, in.Buffer[i*8:], &texel); err != nil {
			return nil, err
		}
	}

	st := &sat.State{Scratch: sat.NewScratch(in)}
	st.Input, st.Output = in, out
	if _, err := sat.NewFilter(sat.Inclusive).Execute(st); err != nil {
		return nil, err
	}
	return FromImage(out, 0, 0, 0, 0, sat.OriginTopLeft)
}

// FromImage extracts one channel of one slice of an inclusive table that
// was encoded into img by a filter with the given origin. Tables computed
// with OriginBottomLeft are flipped on the way in, so their rows count from
// the bottom of the image.
func FromImage(img *models.Image, region, layer, z, channel int, origin sat.Origin) (*Table, error) {
	if region < 0 || region >= len(img.Regions) {
		return nil, fmt.Errorf("%w: region %d", ErrOutOfBounds, region)
	}
	r := img.Regions[region]
	if layer < 0 || layer >= r.LayerCount || z < 0 || z >= r.Extent.Depth {
		return nil, fmt.Errorf("%w: layer %d slice %d", ErrOutOfBounds, layer, z)
	}
	if channel < 0 || channel >= img.Format.Channels() {
		return nil, fmt.Errorf("%w: %d", ErrChannel, channel)
	}

	w, h := r.Extent.Width, r.Extent.Height
	t := &Table{Width: w, Height: h, Values: make([]float64, w*h)}
	var texel [format.MaxChannels]float64
	for y := 0; y < h; y++ {
		dstY := y
		if origin == sat.OriginBottomLeft {
			dstY = h - 1 - y
		}
		for x := 0; x < w; x++ {
			if err := format.DecodeFloat(img.Format, img.Texel(r, layer, x, y, z), &texel); err != nil {
				return nil, err
			}
			t.Values[dstY*w+x] = texel[channel]
		}
	}
	return t, nil
}

// At returns the inclusive entry at (x, y), or 0 outside the table on the
// low side.
func (t *Table) At(x, y int) float64 {
	if x < 0 || y < 0 {
		return 0
	}
	return t.Values[y*t.Width+x]
}

// Total returns the sum of the whole slice.
func (t *Table) Total() float64 {
	return t.At(t.Width-1, t.Height-1)
}

// Sum returns the sum of the texels inside rect (half-open, top-left
// origin) from four lookups.
func (t *Table) Sum(rect image.Rectangle) (float64, error) {
	if rect.Empty() {
		return 0, nil
	}
	if !rect.In(image.Rect(0, 0, t.Width, t.Height)) {
		return 0, fmt.Errorf("%w: %v", ErrOutOfBounds, rect)
	}
	x0, y0 := rect.Min.X-1, rect.Min.Y-1
	x1, y1 := rect.Max.X-1, rect.Max.Y-1
	return t.At(x1, y1) - t.At(x0, y1) - t.At(x1, y0) + t.At(x0, y0), nil
}

// Mean returns the average value inside rect.
func (t *Table) Mean(rect image.Rectangle) (float64, error) {
	sum, err := t.Sum(rect)
	if err != nil || rect.Empty() {
		return 0, err
	}
	return sum / float64(rect.Dx()*rect.Dy()), nil
}

// MeanStdDev returns the mean and standard deviation inside rect given the
// table of values and the table of squared values.
func MeanStdDev(values, squares *Table, rect image.Rectangle) (mean, stddev float64, err error) {
	mean, err = values.Mean(rect)
	if err != nil {
		return 0, 0, err
	}
	meanSq, err := squares.Mean(rect)
	if err != nil {
		return 0, 0, err
	}
	variance := meanSq - mean*mean
	if variance < 0 {
		variance = 0
	}
	return mean, math.Sqrt(variance), nil
}

// BoxFilter returns the mean over a (2*radius+1) square window around every
// texel, clamped to the table, in row-major order.
func (t *Table) BoxFilter(radius int) []float64 {
	out := make([]float64, t.Width*t.Height)
	bounds := image.Rect(0, 0, t.Width, t.Height)
	for y := 0; y < t.Height; y++ {
		for x := 0; x < t.Width; x++ {
			win := image.Rect(x-radius, y-radius, x+radius+1, y+radius+1).Intersect(bounds)
			out[y*t.Width+x], _ = t.Mean(win)
		}
	}
	return out
}

// Moments returns the first and second raw moments of the slice, as stored
// by variance shadow maps.
func (t *Table) Moments(squares *Table) (m1, m2 float64) {
	n := float64(t.Width * t.Height)
	return t.Total() / n, squares.Total() / n
}

// Squares returns the element-wise squares of values.
func Squares(values []float64) []float64 {
	out := make([]float64, len(values))
	floats.MulTo(out, values, values)
	return out
}

// Texels recovers the source values of the slice by differencing the table.
func (t *Table) Texels() []float64 {
	out := make([]float64, t.Width*t.Height)
	for y := 0; y < t.Height; y++ {
		for x := 0; x < t.Width; x++ {
			out[y*t.Width+x] = t.At(x, y) - t.At(x-1, y) - t.At(x, y-1) + t.At(x-1, y-1)
		}
	}
	return out
}

// Stats summarizes one slice.
type Stats struct {
	Total    float64
	Mean     float64
	StdDev   float64
	Min, Max float64
}

// SliceStats returns population statistics of the values the table was
// built from.
func SliceStats(t *Table) Stats {
	texels := t.Texels()
	mean, variance := stat.PopMeanVariance(texels, nil)
	return Stats{
		Total:  t.Total(),
		Mean:   mean,
		StdDev: math.Sqrt(variance),
		Min:    floats.Min(texels),
		Max:    floats.Max(texels),
	}
}
