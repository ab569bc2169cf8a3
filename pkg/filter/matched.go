package filter

import (
	"errors"
	"fmt"

	"satfilter/internal/models"
)

// Common errors for matched-size filters.
var (
	// ErrNilImage is returned when the input or output image is missing.
	ErrNilImage = errors.New("filter: missing input or output image")

	// ErrInvalidFormat is returned when an image format is not recognized.
	ErrInvalidFormat = errors.New("filter: invalid image format")

	// ErrRegionMismatch is returned when input and output regions differ in
	// count, extent or layer count.
	ErrRegionMismatch = errors.New("filter: input and output regions do not match")

	// ErrBufferTooSmall is returned when a region extends past its buffer.
	ErrBufferTooSmall = errors.New("filter: image buffer too small for regions")
)

// State is the input/output pair every matched-size filter operates on.
type State struct {
	Input  *models.Image
	Output *models.Image
}

// RegionPair is the data handed to a per-region callback.
type RegionPair struct {
	// Index is the position of the region in both region lists.
	Index int

	In  models.Region
	Out models.Region

	Input  *models.Image
	Output *models.Image

	// Clip limits texel iteration to the image extent.
	Clip ClipFunc
}

// Validate checks that input and output images are present and that their
// regions pair up with identical extents and layer counts.
func Validate(st *State) error {
	if st == nil || st.Input == nil || st.Output == nil {
		return ErrNilImage
	}
	if !st.Input.Format.IsValid() || !st.Output.Format.IsValid() {
		return ErrInvalidFormat
	}

	in, out := st.Input, st.Output
	if len(in.Regions) != len(out.Regions) {
		return fmt.Errorf("%w: %d input regions, %d output regions",
			ErrRegionMismatch, len(in.Regions), len(out.Regions))
	}
	if in.Extent != out.Extent || in.ArrayLayers != out.ArrayLayers {
		return fmt.Errorf("%w: image extents differ", ErrRegionMismatch)
	}

	for i := range in.Regions {
		ir, or := in.Regions[i], out.Regions[i]
		if ir.Extent.IsEmpty() || ir.LayerCount <= 0 {
			return fmt.Errorf("%w: region %d is empty", ErrRegionMismatch, i)
		}
		if ir.Extent != or.Extent || ir.LayerCount != or.LayerCount {
			return fmt.Errorf("%w: region %d", ErrRegionMismatch, i)
		}
		if ir.Extent.Width > in.Extent.Width || ir.Extent.Height > in.Extent.Height ||
			ir.Extent.Depth > in.Extent.Depth {
			return fmt.Errorf("%w: region %d exceeds image extent", ErrRegionMismatch, i)
		}
		if ir.LayerCount > in.ArrayLayers {
			return fmt.Errorf("%w: region %d has %d layers, image has %d",
				ErrRegionMismatch, i, ir.LayerCount, in.ArrayLayers)
		}
		if err := checkBuffer(in, ir); err != nil {
			return fmt.Errorf("input region %d: %w", i, err)
		}
		if err := checkBuffer(out, or); err != nil {
			return fmt.Errorf("output region %d: %w", i, err)
		}
	}
	return nil
}

func checkBuffer(img *models.Image, r models.Region) error {
	size, ok := r.CheckedByteSize(img.Format)
	if !ok {
		return fmt.Errorf("%w: region size overflows", ErrBufferTooSmall)
	}
	n := uint64(len(img.Buffer))
	if r.BufferOffset < 0 || size > n || uint64(r.BufferOffset) > n-size {
		return ErrBufferTooSmall
	}
	return nil
}

// Execute validates st and calls perRegion for every region pair in order.
// It stops at the first callback error.
func Execute(st *State, perRegion func(RegionPair) error) error {
	if err := Validate(st); err != nil {
		return err
	}
	for i := range st.Input.Regions {
		pair := RegionPair{
			Index:  i,
			In:     st.Input.Regions[i],
			Out:    st.Output.Regions[i],
			Input:  st.Input,
			Output: st.Output,
			Clip:   ClipToImage,
		}
		if err := perRegion(pair); err != nil {
			return fmt.Errorf("region %d: %w", i, err)
		}
	}
	return nil
}
