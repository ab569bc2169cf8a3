// Package format describes the pixel formats understood by satfilter and
// converts single texels between their byte representation and the numeric
// accumulators used by the summed-area-table filter.
package format

// Format represents a pixel storage format.
type Format uint8

const (
	// FormatUndefined is the zero value and never valid.
	FormatUndefined Format = iota

	// FormatR8Unorm is one 8-bit unsigned normalized channel.
	FormatR8Unorm
	// FormatRG8Unorm is two 8-bit unsigned normalized channels.
	FormatRG8Unorm
	// FormatRGBA8Unorm is four 8-bit unsigned normalized channels.
	FormatRGBA8Unorm
	// FormatR8Uint is one 8-bit unsigned integer channel.
	FormatR8Uint
	// FormatRGBA8Uint is four 8-bit unsigned integer channels.
	FormatRGBA8Uint

	// FormatR16Unorm is one 16-bit unsigned normalized channel.
	FormatR16Unorm
	// FormatR16Uint is one 16-bit unsigned integer channel.
	FormatR16Uint
	// FormatRGBA16Uint is four 16-bit unsigned integer channels.
	FormatRGBA16Uint
	// FormatR16Sfloat is one IEEE half-precision channel.
	FormatR16Sfloat
	// FormatRGBA16Sfloat is four IEEE half-precision channels.
	FormatRGBA16Sfloat

	// FormatR32Uint is one 32-bit unsigned integer channel.
	FormatR32Uint
	// FormatRGBA32Uint is four 32-bit unsigned integer channels.
	FormatRGBA32Uint
	// FormatR32Sfloat is one IEEE single-precision channel.
	FormatR32Sfloat
	// FormatRG32Sfloat is two IEEE single-precision channels.
	FormatRG32Sfloat
	// FormatRGBA32Sfloat is four IEEE single-precision channels.
	FormatRGBA32Sfloat

	// FormatR64Uint is one 64-bit unsigned integer channel.
	FormatR64Uint
	// FormatR64Sfloat is one IEEE double-precision channel.
	FormatR64Sfloat
	// FormatRGBA64Sfloat is four IEEE double-precision channels.
	FormatRGBA64Sfloat

	// formatCount is the number of formats (for internal use).
	formatCount
)

// Kind is the numeric interpretation of a format's channels.
type Kind uint8

const (
	// KindUnorm channels are unsigned integers mapped onto [0, 1].
	KindUnorm Kind = iota + 1
	// KindUint channels are plain unsigned integers.
	KindUint
	// KindFloat channels are IEEE floating point numbers.
	KindFloat
)

// Class groups formats by texel bit size. Classes are ordered: a higher
// class can hold the data of a lower one without narrowing.
type Class uint8

const (
	ClassUnknown Class = iota
	Class8Bit
	Class16Bit
	Class32Bit
	Class64Bit
	Class128Bit
	Class256Bit
)

// MaxChannels is the largest channel count of any format.
const MaxChannels = 4

// FormatInfo contains metadata about a pixel format.
type FormatInfo struct {
	// Name is the human readable name.
	Name string

	// Channels is the number of channels per texel.
	Channels int

	// BitsPerChannel is the storage width of a single channel.
	BitsPerChannel int

	// Kind is the numeric interpretation of the channels.
	Kind Kind
}

var formatInfoTable = [formatCount]FormatInfo{
	FormatR8Unorm:      {Name: "R8Unorm", Channels: 1, BitsPerChannel: 8, Kind: KindUnorm},
	FormatRG8Unorm:     {Name: "RG8Unorm", Channels: 2, BitsPerChannel: 8, Kind: KindUnorm},
	FormatRGBA8Unorm:   {Name: "RGBA8Unorm", Channels: 4, BitsPerChannel: 8, Kind: KindUnorm},
	FormatR8Uint:       {Name: "R8Uint", Channels: 1, BitsPerChannel: 8, Kind: KindUint},
	FormatRGBA8Uint:    {Name: "RGBA8Uint", Channels: 4, BitsPerChannel: 8, Kind: KindUint},
	FormatR16Unorm:     {Name: "R16Unorm", Channels: 1, BitsPerChannel: 16, Kind: KindUnorm},
	FormatR16Uint:      {Name: "R16Uint", Channels: 1, BitsPerChannel: 16, Kind: KindUint},
	FormatRGBA16Uint:   {Name: "RGBA16Uint", Channels: 4, BitsPerChannel: 16, Kind: KindUint},
	FormatR16Sfloat:    {Name: "R16Sfloat", Channels: 1, BitsPerChannel: 16, Kind: KindFloat},
	FormatRGBA16Sfloat: {Name: "RGBA16Sfloat", Channels: 4, BitsPerChannel: 16, Kind: KindFloat},
	FormatR32Uint:      {Name: "R32Uint", Channels: 1, BitsPerChannel: 32, Kind: KindUint},
	FormatRGBA32Uint:   {Name: "RGBA32Uint", Channels: 4, BitsPerChannel: 32, Kind: KindUint},
	FormatR32Sfloat:    {Name: "R32Sfloat", Channels: 1, BitsPerChannel: 32, Kind: KindFloat},
	FormatRG32Sfloat:   {Name: "RG32Sfloat", Channels: 2, BitsPerChannel: 32, Kind: KindFloat},
	FormatRGBA32Sfloat: {Name: "RGBA32Sfloat", Channels: 4, BitsPerChannel: 32, Kind: KindFloat},
	FormatR64Uint:      {Name: "R64Uint", Channels: 1, BitsPerChannel: 64, Kind: KindUint},
	FormatR64Sfloat:    {Name: "R64Sfloat", Channels: 1, BitsPerChannel: 64, Kind: KindFloat},
	FormatRGBA64Sfloat: {Name: "RGBA64Sfloat", Channels: 4, BitsPerChannel: 64, Kind: KindFloat},
}

// Info returns the FormatInfo for this format.
func (f Format) Info() FormatInfo {
	if f >= formatCount {
		return FormatInfo{}
	}
	return formatInfoTable[f]
}

// IsValid returns true if the format is a valid known format.
func (f Format) IsValid() bool {
	return f > FormatUndefined && f < formatCount
}

// Channels returns the number of channels per texel.
func (f Format) Channels() int {
	return f.Info().Channels
}

// BytesPerChannel returns the storage size of one channel.
func (f Format) BytesPerChannel() int {
	return f.Info().BitsPerChannel / 8
}

// TexelBytes returns the storage size of one texel.
func (f Format) TexelBytes() int {
	return f.Channels() * f.BytesPerChannel()
}

// IsInteger reports whether channels are plain (non-normalized) integers.
func (f Format) IsInteger() bool {
	return f.Info().Kind == KindUint
}

// IsNormalized reports whether channels are normalized integers.
func (f Format) IsNormalized() bool {
	return f.Info().Kind == KindUnorm
}

// IsFloat reports whether channels are floating point numbers.
func (f Format) IsFloat() bool {
	return f.Info().Kind == KindFloat
}

// Class returns the format class derived from the texel bit size.
func (f Format) Class() Class {
	switch f.TexelBytes() {
	case 1:
		return Class8Bit
	case 2:
		return Class16Bit
	case 3, 4:
		return Class32Bit
	case 6, 8:
		return Class64Bit
	case 12, 16:
		return Class128Bit
	case 32:
		return Class256Bit
	default:
		return ClassUnknown
	}
}

// String returns a string representation of the format.
func (f Format) String() string {
	if !f.IsValid() {
		return "Unknown"
	}
	return f.Info().Name
}

// Parse returns the format with the given name.
func Parse(name string) (Format, bool) {
	for f := FormatUndefined + 1; f < formatCount; f++ {
		if formatInfoTable[f].Name == name {
			return f, true
		}
	}
	return FormatUndefined, false
}

// String returns a string representation of the class.
func (c Class) String() string {
	switch c {
	case Class8Bit:
		return "8-bit"
	case Class16Bit:
		return "16-bit"
	case Class32Bit:
		return "32-bit"
	case Class64Bit:
		return "64-bit"
	case Class128Bit:
		return "128-bit"
	case Class256Bit:
		return "256-bit"
	default:
		return "unknown"
	}
}
