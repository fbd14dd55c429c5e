// Package fdsink writes signal into an already open file descriptor.
package fdsink

import (
	"bufio"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"golang.org/x/sys/unix"

	pipe "pipelined.dev/wavpipe"
	"pipelined.dev/wavpipe/mutable"
	"pipelined.dev/wavpipe/signal"
)

// Format defines how items are encoded.
type Format int

const (
	// Complex64 items are pairs of little-endian float32 values: real
	// and imaginary parts. Input must have two channels.
	Complex64 Format = iota
	// Float32 items are little-endian float32 values, channels are
	// interleaved.
	Float32
)

var (
	// ErrInvalidDescriptor is returned when descriptor is not open for
	// writing.
	ErrInvalidDescriptor = errors.New("invalid file descriptor")
	// ErrUnsupportedFormat is returned when input cannot be written in
	// requested format.
	ErrUnsupportedFormat = errors.New("unsupported format")
)

// ItemSize returns the size of a single item in bytes.
func (f Format) ItemSize() int {
	switch f {
	case Complex64:
		return 8
	case Float32:
		return 4
	}
	return 0
}

func (f Format) String() string {
	switch f {
	case Complex64:
		return "complex64"
	case Float32:
		return "float32"
	}
	return fmt.Sprintf("format(%d)", int(f))
}

// Valid checks that descriptor is open and can be written.
func Valid(fd int) error {
	var st unix.Stat_t
	if err := unix.Fstat(fd, &st); err != nil {
		return fmt.Errorf("%w %d: %w", ErrInvalidDescriptor, fd, err)
	}
	flags, err := unix.FcntlInt(uintptr(fd), unix.F_GETFL, 0)
	if err != nil {
		return fmt.Errorf("%w %d: %w", ErrInvalidDescriptor, fd, err)
	}
	if flags&unix.O_ACCMODE == unix.O_RDONLY {
		return fmt.Errorf("%w %d: read only", ErrInvalidDescriptor, fd)
	}
	return nil
}

// writer writes into descriptor until all bytes are written.
type writer int

func (w writer) Write(p []byte) (int, error) {
	var written int
	for written < len(p) {
		n, err := unix.Write(int(w), p[written:])
		if errors.Is(err, unix.EINTR) {
			continue
		}
		if err != nil {
			return written, err
		}
		if n == 0 {
			return written, io.ErrShortWrite
		}
		written += n
	}
	return written, nil
}

type sink struct {
	fd       int
	format   Format
	channels int
	w        *bufio.Writer
	buf      []byte
}

// Sink writes items into the descriptor. The descriptor is never closed
// by the sink, buffered bytes are written on flush.
func Sink(fd int, format Format) pipe.SinkAllocatorFunc {
	return func(mctx mutable.Context, bufferSize int, input pipe.SignalProperties) (pipe.Sink, error) {
		switch format {
		case Complex64:
			if input.Channels != 2 {
				return pipe.Sink{}, fmt.Errorf("%w: %v requires 2 channels, got %d", ErrUnsupportedFormat, format, input.Channels)
			}
		case Float32:
		default:
			return pipe.Sink{}, fmt.Errorf("%w: %v", ErrUnsupportedFormat, format)
		}
		s := sink{
			fd:       fd,
			format:   format,
			channels: input.Channels,
			buf:      make([]byte, bufferSize*input.Channels*4),
		}
		s.w = bufio.NewWriterSize(writer(fd), len(s.buf))
		return pipe.Sink{
			SinkFunc:  s.write,
			StartFunc: s.start,
			FlushFunc: s.flush,
		}, nil
	}
}

func (s *sink) start(context.Context) error {
	if err := Valid(s.fd); err != nil {
		return err
	}
	s.w.Reset(writer(s.fd))
	return nil
}

// write encodes channels interleaved, for complex items it's re, im.
func (s *sink) write(in signal.Float64) error {
	size := in.Length() * s.channels * 4
	b := s.buf[:size]
	pos := 0
	for i := 0; i < in.Length(); i++ {
		for c := 0; c < s.channels; c++ {
			binary.LittleEndian.PutUint32(b[pos:], math.Float32bits(float32(in[c][i])))
			pos += 4
		}
	}
	if _, err := s.w.Write(b); err != nil {
		return fmt.Errorf("error writing to descriptor %d: %w", s.fd, err)
	}
	return nil
}

func (s *sink) flush(context.Context) error {
	if err := s.w.Flush(); err != nil {
		return fmt.Errorf("error flushing descriptor %d: %w", s.fd, err)
	}
	return nil
}
