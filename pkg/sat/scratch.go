package sat

import (
	"unsafe"

	"satfilter/internal/models"
)

// decodeElementSize is the byte size of both accumulator types.
const decodeElementSize = 8

// RequiredScratchByteSize returns the exact scratch size needed to decode
// every region and layer of img.
func RequiredScratchByteSize(img *models.Image) int {
	if img == nil {
		return 0
	}
	voxels := 0
	for _, r := range img.Regions {
		voxels += r.Voxels()
	}
	return voxels * img.Format.Channels() * decodeElementSize
}

// NewScratch allocates an aligned scratch buffer for img.
func NewScratch(img *models.Image) []byte {
	n := RequiredScratchByteSize(img)
	if n == 0 {
		return nil
	}
	words := make([]uint64, n/decodeElementSize)
	return unsafe.Slice((*byte)(unsafe.Pointer(unsafe.SliceData(words))), n)
}

func isAligned(b []byte) bool {
	if len(b) == 0 {
		return true
	}
	return uintptr(unsafe.Pointer(unsafe.SliceData(b)))%decodeElementSize == 0
}

// scratchView reinterprets b as accumulators. b must be aligned.
func scratchView[T accumulator](b []byte) []T {
	n := len(b) / decodeElementSize
	if n == 0 {
		return nil
	}
	return unsafe.Slice((*T)(unsafe.Pointer(unsafe.SliceData(b))), n)
}

// regionOffsets returns the accumulator offset of every region inside the
// scratch buffer. Offsets are a running sum over preceding regions.
func regionOffsets(img *models.Image) []int {
	channels := img.Format.Channels()
	offsets := make([]int, len(img.Regions))
	off := 0
	for i, r := range img.Regions {
		offsets[i] = off
		off += r.Voxels() * channels
	}
	return offsets
}
