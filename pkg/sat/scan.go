package sat

import (
	"satfilter/pkg/filter"
	"satfilter/pkg/format"
)

// scanner holds the running sums of one region pass.
type scanner[T accumulator] struct {
	extent   [3]int
	channels int

	// row is the running sum of the current row up to the visited texel.
	row [format.MaxChannels]T

	// column holds, per depth slice and column, the inclusive table value
	// of the previously accumulated row. Indexed (z*width+x)*channels.
	column []T

	// totals holds the inclusive grand total per layer and depth slice.
	totals [][][format.MaxChannels]T
}

func newScanner[T accumulator](width, height, depth, layers, channels int) *scanner[T] {
	totals := make([][][format.MaxChannels]T, layers)
	for l := range totals {
		totals[l] = make([][format.MaxChannels]T, depth)
	}
	return &scanner[T]{
		extent:   [3]int{width, height, depth},
		channels: channels,
		column:   make([]T, width*depth*channels),
		totals:   totals,
	}
}

// scanRegion turns the decoded values of one region into table values. The
// texels are decoded a second time straight from the input image; the
// scratch copy is only overwritten.
//
// Rows are visited top to bottom. With OriginBottomLeft the visited row y
// maps onto memory row height-1-y, so sums start at the bottom row.
func scanRegion[T accumulator](f *Filter, p filter.RegionPair, region []T) ([][][format.MaxChannels]T, error) {
	e := p.In.Extent
	channels := p.Input.Format.Channels()
	s := newScanner[T](e.Width, e.Height, e.Depth, p.In.LayerCount, channels)
	layerVoxels := e.Voxels()

	var (
		value     [format.MaxChannels]T
		inclusive [format.MaxChannels]T
		err       error
	)
	filter.ForEachTexel(p.Input, p.In, p.Clip, func(t filter.Texel) {
		if err != nil {
			return
		}
		if t.X == 0 && t.Y == 0 && t.Z == 0 {
			clear(s.column)
		}

		memY := t.Y
		off := t.Offset
		if f.Origin == OriginBottomLeft {
			memY = e.Height - 1 - t.Y
			off = p.Input.TexelOffset(p.In, t.Layer, t.X, memY, t.Z)
		}
		if err = decodeTexel(p.Input.Format, p.Input.Buffer[off:], &value); err != nil {
			return
		}

		idx := (t.Layer*layerVoxels + voxelIndex(e, t.X, memY, t.Z)) * channels
		s.accumulate(f.Mode, t.X, t.Z, &value, region[idx:idx+channels], &inclusive)

		if t.X == e.Width-1 {
			if t.Y == e.Height-1 {
				s.totals[t.Layer][t.Z] = inclusive
			}
			s.row = [format.MaxChannels]T{}
		}
	})
	if err != nil {
		return nil, err
	}
	return s.totals, nil
}

// accumulate adds one texel value to the running sums and writes the table
// entry to dst. inclusive receives the inclusive entry whatever the mode.
//
// With column[x] holding the table value of the same column one row back:
//
//	exclusive = row + column[x]
//	row      += value
//	inclusive = row + column[x]
//	column[x] = inclusive
func (s *scanner[T]) accumulate(mode Mode, x, z int, value *[format.MaxChannels]T, dst []T, inclusive *[format.MaxChannels]T) {
	col := s.column[(z*s.extent[0]+x)*s.channels:]
	for c := 0; c < s.channels; c++ {
		exclusive := s.row[c] + col[c]
		s.row[c] += value[c]
		inclusive[c] = s.row[c] + col[c]
		col[c] = inclusive[c]

		if mode == Exclusive {
			dst[c] = exclusive
		} else {
			dst[c] = inclusive[c]
		}
	}
}
