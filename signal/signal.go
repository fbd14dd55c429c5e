// Package signal provides an API to manipulate digital signals. It allows to:
// 	- convert interleaved int data to non-interleaved float buffers
//	- convert bit depth for int signals
//	- reuse buffers with pools
package signal

import (
	"math"
	"time"
)

// Float64 is a non-interleaved float64 signal. Every channel is a separate
// slice and all channels have the same length.
type Float64 [][]float64

// Frequency is a sample rate in samples per second.
type Frequency int

const (
	// BitDepth8 is 8 bit depth. Samples are unsigned.
	BitDepth8 = BitDepth(8)
	// BitDepth16 is 16 bit depth.
	BitDepth16 = BitDepth(16)
	// BitDepth24 is 24 bit depth.
	BitDepth24 = BitDepth(24)
	// BitDepth32 is 32 bit depth.
	BitDepth32 = BitDepth(32)
)

// BitDepth contains values required for int-to-float and backward conversion.
type BitDepth int

// InterInt is an interleaved int signal.
type InterInt struct {
	Data     []int
	Channels int
	BitDepth
}

// MaxValue returns the biggest signed value for this bit depth. Zero is
// returned for unknown depths.
func (b BitDepth) MaxValue() int {
	switch b {
	case BitDepth8:
		return math.MaxInt8
	case BitDepth16:
		return math.MaxInt16
	case BitDepth24:
		return 1<<23 - 1
	case BitDepth32:
		return math.MaxInt32
	}
	return 0
}

// Offset returns the value of silence. Only 8 bit samples are stored
// unsigned and have non-zero offset.
func (b BitDepth) Offset() int {
	if b == BitDepth8 {
		return 128
	}
	return 0
}

// Supported reports whether conversions are defined for the bit depth.
func (b BitDepth) Supported() bool {
	return b.MaxValue() != 0
}

// Duration returns time duration of samples at this sample rate.
func (f Frequency) Duration(samples int) time.Duration {
	if f <= 0 {
		return 0
	}
	return time.Duration(float64(samples) / float64(f) * float64(time.Second))
}

// Length returns number of samples per channel.
func (ints InterInt) Length() int {
	if ints.Channels == 0 {
		return 0
	}
	return int(math.Ceil(float64(len(ints.Data)) / float64(ints.Channels)))
}

// CopyToFloat64 converts interleaved ints into the provided buffer and
// returns the number of samples per channel written. Missing samples of
// the last frame are set to zero.
func (ints InterInt) CopyToFloat64(floats Float64) int {
	if ints.Channels == 0 || floats.Channels() != ints.Channels {
		return 0
	}
	length := ints.Length()
	if l := floats.Length(); l < length {
		length = l
	}
	max := float64(ints.BitDepth.MaxValue())
	if max == 0 {
		max = 1
	}
	offset := ints.BitDepth.Offset()
	for c := range floats {
		for i := 0; i < length; i++ {
			pos := i*ints.Channels + c
			if pos < len(ints.Data) {
				floats[c][i] = float64(ints.Data[pos]-offset) / max
			} else {
				floats[c][i] = 0
			}
		}
	}
	return length
}

// AsFloat64 converts interleaved int signal to a new float64 buffer.
func (ints InterInt) AsFloat64() Float64 {
	if ints.Data == nil || ints.Channels == 0 {
		return nil
	}
	floats := Allocator{Channels: ints.Channels, Length: ints.Length()}.Float64()
	ints.CopyToFloat64(floats)
	return floats
}

// AsInterInt converts float64 signal to interleaved ints. Values are
// clipped to the range of the bit depth.
func (floats Float64) AsInterInt(bitDepth BitDepth, ints []int) []int {
	channels := floats.Channels()
	if channels == 0 {
		return ints[:0]
	}
	size := floats.Length() * channels
	if cap(ints) < size {
		ints = make([]int, size)
	}
	ints = ints[:size]
	max := float64(bitDepth.MaxValue())
	if max == 0 {
		max = 1
	}
	offset := bitDepth.Offset()
	for c := range floats {
		for i, v := range floats[c] {
			v = math.Round(v * max)
			switch {
			case v > max:
				v = max
			case v < -max-1:
				v = -max - 1
			}
			ints[i*channels+c] = int(v) + offset
		}
	}
	return ints
}

// Channels returns number of channels in this buffer.
func (floats Float64) Channels() int {
	return len(floats)
}

// Length returns number of samples in a single channel.
func (floats Float64) Length() int {
	if floats.Channels() == 0 {
		return 0
	}
	return len(floats[0])
}

// Slice returns a view of the buffer between start and end positions. It
// shares memory with the original buffer. End is capped to the buffer
// capacity.
func (floats Float64) Slice(start, end int) Float64 {
	if floats == nil || start < 0 || end < start {
		return nil
	}
	result := make(Float64, floats.Channels())
	for i := range floats {
		e := end
		if c := cap(floats[i]); e > c {
			e = c
		}
		s := start
		if s > e {
			s = e
		}
		result[i] = floats[i][s:e]
	}
	return result
}

// Append copies samples of source to the end of the buffer. New buffer is
// returned if floats is nil.
func (floats Float64) Append(source Float64) Float64 {
	if floats == nil {
		floats = make(Float64, source.Channels())
		for i := range floats {
			floats[i] = make([]float64, 0, source.Length())
		}
	}
	for i := range source {
		floats[i] = append(floats[i], source[i]...)
	}
	return floats
}

// CopyTo copies samples into destination and returns number of samples
// per channel copied. Only channels present in both buffers are copied.
func (floats Float64) CopyTo(dest Float64) int {
	var n int
	for i := range floats {
		if i >= len(dest) {
			break
		}
		n = copy(dest[i], floats[i])
	}
	return n
}
