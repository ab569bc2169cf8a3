package sat

import (
	"errors"

	"satfilter/pkg/filter"
	"satfilter/pkg/format"
)

// Validation errors. Each is wrapped in a *ValidationError.
var (
	// ErrNilState is returned when no state is given.
	ErrNilState = errors.New("sat: nil state")

	// ErrScratchTooSmall is returned when the scratch buffer is shorter
	// than RequiredScratchByteSize.
	ErrScratchTooSmall = errors.New("sat: scratch buffer too small")

	// ErrScratchMisaligned is returned when the scratch buffer does not
	// start on an 8 byte boundary.
	ErrScratchMisaligned = errors.New("sat: scratch buffer not 8 byte aligned")

	// ErrChannelMismatch is returned when input and output formats have
	// different channel counts.
	ErrChannelMismatch = errors.New("sat: input and output channel counts differ")

	// ErrFormatClass is returned when the output format class is lower
	// than the input format class.
	ErrFormatClass = errors.New("sat: output format class lower than input")
)

// ValidationError reports a failed precondition. No output was written.
type ValidationError struct {
	Err error
}

func (e *ValidationError) Error() string {
	return "sat: validation failed: " + e.Err.Error()
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// Mode selects whether a texel's own value is part of its table entry.
type Mode uint8

const (
	// Inclusive entries include the texel itself.
	Inclusive Mode = iota
	// Exclusive entries cover everything up to, but not including, the
	// texel itself.
	Exclusive
)

func (m Mode) String() string {
	if m == Exclusive {
		return "exclusive"
	}
	return "inclusive"
}

// Origin selects the corner the sums start from.
type Origin uint8

const (
	// OriginTopLeft accumulates from the first memory row downward.
	OriginTopLeft Origin = iota
	// OriginBottomLeft accumulates from the last memory row upward.
	OriginBottomLeft
)

func (o Origin) String() string {
	if o == OriginBottomLeft {
		return "bottom-left"
	}
	return "top-left"
}

// Filter computes summed-area tables. Its fields are fixed for the
// lifetime of the filter; per call data lives in State.
type Filter struct {
	Mode   Mode
	Origin Origin
}

// NewFilter returns a filter with the given mode and top-left origin.
func NewFilter(mode Mode) *Filter {
	return &Filter{Mode: mode}
}

// State is the per call configuration.
type State struct {
	filter.State

	// Scratch is caller owned working memory of at least
	// RequiredScratchByteSize(Input) bytes.
	Scratch []byte

	// Normalize divides every entry by its slice total. It is ignored for
	// normalized input formats.
	Normalize bool
}

// Total is the grand total of one depth slice. Exactly one of Uint and
// Float is set, matching Result.Integer.
type Total struct {
	Uint  []uint64
	Float []float64
}

// Float64 returns the total converted to float64 values.
func (t Total) Float64() []float64 {
	if t.Float != nil {
		return t.Float
	}
	out := make([]float64, len(t.Uint))
	for i, v := range t.Uint {
		out[i] = float64(v)
	}
	return out
}

// Result is returned by a successful Execute.
type Result struct {
	// Integer is true when sums were accumulated as uint64.
	Integer bool

	// Totals holds the slice totals indexed [region][layer][z].
	Totals [][][]Total
}

// SliceTotal returns the total of slice z of the given region and layer.
func (r *Result) SliceTotal(region, layer, z int) Total {
	return r.Totals[region][layer][z]
}

// accumulator is the numeric type sums are kept in.
type accumulator interface {
	~uint64 | ~float64
}

// makeTotal copies the first channels values of v into a Total.
func makeTotal[T accumulator](v *[format.MaxChannels]T, channels int) Total {
	switch vals := any(v).(type) {
	case *[format.MaxChannels]uint64:
		return Total{Uint: append([]uint64(nil), vals[:channels]...)}
	case *[format.MaxChannels]float64:
		return Total{Float: append([]float64(nil), vals[:channels]...)}
	}
	return Total{}
}
