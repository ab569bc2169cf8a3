package format

import (
	"encoding/binary"
	"errors"
	"math"

	"github.com/x448/float16"
)

// Codec errors.
var (
	// ErrInvalid is returned for operations on an unknown format.
	ErrInvalid = errors.New("format: invalid format")

	// ErrShortTexel is returned when a byte slice cannot hold one texel.
	ErrShortTexel = errors.New("format: texel buffer too small")
)

// loadChannel reads the raw bits of channel c from src, zero extended.
func loadChannel(bytesPerChannel int, src []byte, c int) uint64 {
	off := c * bytesPerChannel
	switch bytesPerChannel {
	case 1:
		return uint64(src[off])
	case 2:
		return uint64(binary.LittleEndian.Uint16(src[off:]))
	case 4:
		return uint64(binary.LittleEndian.Uint32(src[off:]))
	default:
		return binary.LittleEndian.Uint64(src[off:])
	}
}

// storeChannel writes the low bits of v as channel c of dst.
func storeChannel(bytesPerChannel int, dst []byte, c int, v uint64) {
	off := c * bytesPerChannel
	switch bytesPerChannel {
	case 1:
		dst[off] = byte(v)
	case 2:
		binary.LittleEndian.PutUint16(dst[off:], uint16(v))
	case 4:
		binary.LittleEndian.PutUint32(dst[off:], uint32(v))
	default:
		binary.LittleEndian.PutUint64(dst[off:], v)
	}
}

// maxUint returns the largest integer representable in bits.
func maxUint(bits int) uint64 {
	if bits >= 64 {
		return math.MaxUint64
	}
	return 1<<uint(bits) - 1
}

// bitsToFloat interprets raw channel bits of a float format.
func bitsToFloat(bytesPerChannel int, raw uint64) float64 {
	switch bytesPerChannel {
	case 2:
		return float64(float16.Frombits(uint16(raw)).Float32())
	case 4:
		return float64(math.Float32frombits(uint32(raw)))
	default:
		return math.Float64frombits(raw)
	}
}

// floatToBits produces raw channel bits of a float format.
func floatToBits(bytesPerChannel int, v float64) uint64 {
	switch bytesPerChannel {
	case 2:
		return uint64(float16.Fromfloat32(float32(v)).Bits())
	case 4:
		return uint64(math.Float32bits(float32(v)))
	default:
		return math.Float64bits(v)
	}
}

// saturateFloat rounds v to the nearest integer in [0, limit].
func saturateFloat(v float64, limit uint64) uint64 {
	if math.IsNaN(v) || v <= 0 {
		return 0
	}
	v = math.Round(v)
	if v >= float64(limit) {
		return limit
	}
	return uint64(v)
}

// DecodeFloat decodes the texel at the start of src into dst. Normalized
// channels map onto [0, 1]; channels past the format's count are zeroed.
func DecodeFloat(f Format, src []byte, dst *[MaxChannels]float64) error {
	info := f.Info()
	if !f.IsValid() {
		return ErrInvalid
	}
	if len(src) < f.TexelBytes() {
		return ErrShortTexel
	}
	bpc := info.BitsPerChannel / 8
	*dst = [MaxChannels]float64{}
	for c := 0; c < info.Channels; c++ {
		raw := loadChannel(bpc, src, c)
		switch info.Kind {
		case KindUnorm:
			dst[c] = float64(raw) / float64(maxUint(info.BitsPerChannel))
		case KindUint:
			dst[c] = float64(raw)
		case KindFloat:
			dst[c] = bitsToFloat(bpc, raw)
		}
	}
	return nil
}

// DecodeUint decodes the texel at the start of src into dst. Integer and
// normalized channels yield their raw stored value, float channels are
// rounded and clamped at zero.
func DecodeUint(f Format, src []byte, dst *[MaxChannels]uint64) error {
	info := f.Info()
	if !f.IsValid() {
		return ErrInvalid
	}
	if len(src) < f.TexelBytes() {
		return ErrShortTexel
	}
	bpc := info.BitsPerChannel / 8
	*dst = [MaxChannels]uint64{}
	for c := 0; c < info.Channels; c++ {
		raw := loadChannel(bpc, src, c)
		if info.Kind == KindFloat {
			dst[c] = saturateFloat(bitsToFloat(bpc, raw), math.MaxUint64)
			continue
		}
		dst[c] = raw
	}
	return nil
}

// EncodeFloat writes the first f.Channels() values of src as one texel at
// the start of dst, saturating to the format's range.
func EncodeFloat(f Format, dst []byte, src *[MaxChannels]float64) error {
	info := f.Info()
	if !f.IsValid() {
		return ErrInvalid
	}
	if len(dst) < f.TexelBytes() {
		return ErrShortTexel
	}
	bpc := info.BitsPerChannel / 8
	limit := maxUint(info.BitsPerChannel)
	for c := 0; c < info.Channels; c++ {
		v := src[c]
		var raw uint64
		switch info.Kind {
		case KindUnorm:
			raw = saturateFloat(math.Min(math.Max(v, 0), 1)*float64(limit), limit)
		case KindUint:
			raw = saturateFloat(v, limit)
		case KindFloat:
			raw = floatToBits(bpc, v)
		}
		storeChannel(bpc, dst, c, raw)
	}
	return nil
}

// EncodeUint writes the first f.Channels() values of src as one texel at
// the start of dst. Integer and normalized channels store the value
// saturated to the channel width.
func EncodeUint(f Format, dst []byte, src *[MaxChannels]uint64) error {
	info := f.Info()
	if !f.IsValid() {
		return ErrInvalid
	}
	if len(dst) < f.TexelBytes() {
		return ErrShortTexel
	}
	bpc := info.BitsPerChannel / 8
	limit := maxUint(info.BitsPerChannel)
	for c := 0; c < info.Channels; c++ {
		v := src[c]
		if info.Kind == KindFloat {
			storeChannel(bpc, dst, c, floatToBits(bpc, float64(v)))
			continue
		}
		storeChannel(bpc, dst, c, min(v, limit))
	}
	return nil
}
