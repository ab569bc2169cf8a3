package sat

import (
	"gonum.org/v1/gonum/floats"

	"satfilter/internal/models"
	"satfilter/pkg/filter"
	"satfilter/pkg/format"
)

// Execute validates st, computes the summed-area table of every input
// region and encodes it into the matching output region.
//
// On a validation failure nothing is written and the error is a
// *ValidationError.
func (f *Filter) Execute(st *State) (*Result, error) {
	if err := f.Validate(st); err != nil {
		return nil, err
	}

	Logger().Debug("sat: execute",
		"input", st.Input.Format.String(),
		"output", st.Output.Format.String(),
		"regions", len(st.Input.Regions),
		"scratchBytes", RequiredScratchByteSize(st.Input),
		"mode", f.Mode.String(),
		"origin", f.Origin.String())

	if st.Input.Format.IsInteger() {
		return execute(f, st, scratchView[uint64](st.Scratch))
	}
	return execute(f, st, scratchView[float64](st.Scratch))
}

func execute[T accumulator](f *Filter, st *State, scratch []T) (*Result, error) {
	if err := decodeImage(st.Input, scratch); err != nil {
		return nil, err
	}

	res := &Result{
		Integer: st.Input.Format.IsInteger(),
		Totals:  make([][][]Total, len(st.Input.Regions)),
	}
	offsets := regionOffsets(st.Input)
	channels := st.Input.Format.Channels()
	normalize := st.Normalize && !st.Input.Format.IsNormalized()

	err := filter.Execute(&st.State, func(p filter.RegionPair) error {
		region := scratch[offsets[p.Index] : offsets[p.Index]+p.In.Voxels()*channels]

		totals, err := scanRegion(f, p, region)
		if err != nil {
			return err
		}
		if normalize {
			normalizeRegion(p.In, region, channels, totals)
		}
		if err := encodeRegion(p, region); err != nil {
			return err
		}

		res.Totals[p.Index] = make([][]Total, len(totals))
		for layer := range totals {
			res.Totals[p.Index][layer] = make([]Total, len(totals[layer]))
			for z := range totals[layer] {
				res.Totals[p.Index][layer][z] = makeTotal(&totals[layer][z], channels)
			}
		}

		Logger().Debug("sat: region done",
			"region", p.Index,
			"extent", p.In.Extent,
			"layers", p.In.LayerCount,
			"normalized", normalize)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

func decodeTexel[T accumulator](f format.Format, src []byte, dst *[format.MaxChannels]T) error {
	switch d := any(dst).(type) {
	case *[format.MaxChannels]uint64:
		return format.DecodeUint(f, src, d)
	case *[format.MaxChannels]float64:
		return format.DecodeFloat(f, src, d)
	}
	return format.ErrInvalid
}

func encodeTexel[T accumulator](f format.Format, dst []byte, src *[format.MaxChannels]T) error {
	switch s := any(src).(type) {
	case *[format.MaxChannels]uint64:
		return format.EncodeUint(f, dst, s)
	case *[format.MaxChannels]float64:
		return format.EncodeFloat(f, dst, s)
	}
	return format.ErrInvalid
}

// decodeImage zeroes scratch and fills it with the decoded texels of every
// region of img, region after region, layer after layer.
func decodeImage[T accumulator](img *models.Image, scratch []T) error {
	clear(scratch)

	channels := img.Format.Channels()
	var (
		texel [format.MaxChannels]T
		err   error
	)
	base := 0
	for _, r := range img.Regions {
		layerVoxels := r.Extent.Voxels()
		filter.ForEachTexel(img, r, nil, func(t filter.Texel) {
			if err != nil {
				return
			}
			if err = decodeTexel(img.Format, img.Buffer[t.Offset:], &texel); err != nil {
				return
			}
			idx := base + (t.Layer*layerVoxels+voxelIndex(r.Extent, t.X, t.Y, t.Z))*channels
			copy(scratch[idx:idx+channels], texel[:channels])
		})
		if err != nil {
			return err
		}
		base += r.Voxels() * channels
	}

	Logger().Debug("sat: decoded image", "regions", len(img.Regions), "values", base)
	return nil
}

func voxelIndex(e models.Extent, x, y, z int) int {
	return (z*e.Height+y)*e.Width + x
}

// normalizeRegion divides every entry by the total of its slice. Channels
// whose total is zero are left unchanged.
func normalizeRegion[T accumulator](r models.Region, region []T, channels int, totals [][][format.MaxChannels]T) {
	e := r.Extent
	sliceValues := e.Width * e.Height * channels
	skipped := 0

	for layer := range totals {
		for z := range totals[layer] {
			var divisor [format.MaxChannels]T
			for c := 0; c < channels; c++ {
				divisor[c] = totals[layer][z][c]
				if divisor[c] == 0 {
					divisor[c] = 1
					skipped++
				}
			}

			start := (layer*e.Depth + z) * sliceValues
			slice := region[start : start+sliceValues]
			switch s := any(slice).(type) {
			case []float64:
				d := any(divisor[:channels]).([]float64)
				for i := 0; i < len(s); i += channels {
					floats.Div(s[i:i+channels], d)
				}
			default:
				for i := 0; i < len(slice); i += channels {
					for c := 0; c < channels; c++ {
						slice[i+c] /= divisor[c]
					}
				}
			}
		}
	}

	if skipped > 0 {
		Logger().Warn("sat: zero slice totals left unnormalized", "channels", skipped)
	}
}

// encodeRegion writes the scratch values of one region into the output
// image format.
func encodeRegion[T accumulator](p filter.RegionPair, region []T) error {
	out := p.Output
	channels := out.Format.Channels()
	layerVoxels := p.Out.Extent.Voxels()

	var (
		texel [format.MaxChannels]T
		err   error
	)
	filter.ForEachTexel(out, p.Out, p.Clip, func(t filter.Texel) {
		if err != nil {
			return
		}
		idx := (t.Layer*layerVoxels + voxelIndex(p.Out.Extent, t.X, t.Y, t.Z)) * channels
		copy(texel[:channels], region[idx:idx+channels])
		err = encodeTexel(out.Format, out.Buffer[t.Offset:], &texel)
	})
	return err
}
