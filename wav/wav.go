// Package wav provides source and sink components for WAV files.
package wav

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	pipe "pipelined.dev/wavpipe"
	"pipelined.dev/wavpipe/mutable"
	"pipelined.dev/wavpipe/signal"
)

const (
	formatPCM        = 1
	formatFloat      = 3
	formatExtensible = 0xFFFE
)

var (
	// ErrUnsupportedBitDepth is returned when unsupported bit depth is used.
	ErrUnsupportedBitDepth = errors.New("only 8, 16, 24 and 32 bit depth is supported")
	// ErrUnsupportedFormat is returned when file contains neither PCM nor
	// IEEE float data.
	ErrUnsupportedFormat = errors.New("only PCM and IEEE float formats are supported")
	// ErrInvalidFile is returned when file has no valid WAV header.
	ErrInvalidFile = errors.New("wav is not valid")
)

// Properties of the decoded WAV file.
type Properties struct {
	SampleRate signal.Frequency
	Channels   int
	BitDepth   signal.BitDepth
	// Float is set for 32 bit IEEE float samples.
	Float bool
}

type source struct {
	path    string
	loop    bool
	props   Properties
	file    *os.File
	decoder *wav.Decoder
	ib      *audio.IntBuffer
	rewound bool
}

// Source reads signal from the WAV file. The header is read when source is
// allocated, so the sample rate and number of channels are known before the
// pipe is started. The file is opened on start and closed on flush. If loop
// is set, reading restarts from the beginning of data when it's exhausted.
func Source(path string, loop bool) pipe.SourceAllocatorFunc {
	return func(mctx mutable.Context, bufferSize int) (pipe.Source, error) {
		props, err := ReadProperties(path)
		if err != nil {
			return pipe.Source{}, err
		}
		s := source{
			path:  path,
			loop:  loop,
			props: props,
			ib: &audio.IntBuffer{
				Format: &audio.Format{
					NumChannels: props.Channels,
					SampleRate:  int(props.SampleRate),
				},
				Data:           make([]int, bufferSize*props.Channels),
				SourceBitDepth: int(props.BitDepth),
			},
		}
		return pipe.Source{
			SourceFunc: s.read,
			StartFunc:  s.open,
			FlushFunc:  s.close,
			Output: pipe.SignalProperties{
				SampleRate: props.SampleRate,
				Channels:   props.Channels,
			},
		}, nil
	}
}

// ReadProperties reads the header of WAV file and validates that its
// content can be decoded.
func ReadProperties(path string) (Properties, error) {
	f, err := os.Open(path)
	if err != nil {
		return Properties{}, err
	}
	defer f.Close()

	d := wav.NewDecoder(f)
	if !d.IsValidFile() {
		return Properties{}, fmt.Errorf("%w: %s", ErrInvalidFile, path)
	}
	bitDepth := signal.BitDepth(d.BitDepth)
	switch d.WavAudioFormat {
	case formatPCM, formatExtensible:
		if !bitDepth.Supported() {
			return Properties{}, fmt.Errorf("%w: %d", ErrUnsupportedBitDepth, bitDepth)
		}
	case formatFloat:
		if bitDepth != signal.BitDepth32 {
			return Properties{}, fmt.Errorf("%w: %d float", ErrUnsupportedBitDepth, bitDepth)
		}
	default:
		return Properties{}, fmt.Errorf("%w: format %d", ErrUnsupportedFormat, d.WavAudioFormat)
	}
	return Properties{
		SampleRate: signal.Frequency(d.SampleRate),
		Channels:   int(d.NumChans),
		BitDepth:   bitDepth,
		Float:      d.WavAudioFormat == formatFloat,
	}, nil
}

func (s *source) open(context.Context) error {
	f, err := os.Open(s.path)
	if err != nil {
		return err
	}
	d := wav.NewDecoder(f)
	if !d.IsValidFile() {
		f.Close()
		return fmt.Errorf("%w: %s", ErrInvalidFile, s.path)
	}
	s.file = f
	s.decoder = d
	return nil
}

func (s *source) read(out signal.Float64) (int, error) {
	for {
		n, err := s.decoder.PCMBuffer(s.ib)
		if err != nil && !errors.Is(err, io.EOF) {
			return 0, fmt.Errorf("error reading %s: %w", s.path, err)
		}
		if n > 0 {
			s.rewound = false
			if s.props.Float {
				return copyFloat32(s.ib.Data[:n], s.props.Channels, out), nil
			}
			return signal.InterInt{
				Data:     s.ib.Data[:n],
				Channels: s.props.Channels,
				BitDepth: s.props.BitDepth,
			}.CopyToFloat64(out), nil
		}
		// empty data chunk must not loop forever
		if !s.loop || s.rewound {
			return 0, io.EOF
		}
		if err := s.rewind(); err != nil {
			return 0, err
		}
	}
}

// copyFloat32 converts interleaved IEEE float samples into the buffer.
// Decoder returns them as bit patterns of 32 bit ints.
func copyFloat32(data []int, channels int, out signal.Float64) int {
	length := min(signal.InterInt{Data: data, Channels: channels}.Length(), out.Length())
	for c := range out {
		for i := 0; i < length; i++ {
			if pos := i*channels + c; pos < len(data) {
				out[c][i] = float64(math.Float32frombits(uint32(data[pos])))
			} else {
				out[c][i] = 0
			}
		}
	}
	return length
}

func (s *source) rewind() error {
	if _, err := s.file.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("error rewinding %s: %w", s.path, err)
	}
	s.decoder = wav.NewDecoder(s.file)
	if !s.decoder.IsValidFile() {
		return fmt.Errorf("%w: %s", ErrInvalidFile, s.path)
	}
	s.rewound = true
	return nil
}

func (s *source) close(context.Context) error {
	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	s.decoder = nil
	return err
}

type sink struct {
	path     string
	bitDepth signal.BitDepth
	channels int
	rate     signal.Frequency
	file     *os.File
	encoder  *wav.Encoder
	ints     []int
}

// Sink writes signal into the WAV file with provided bit depth. The file is
// created on start and finalized on flush.
func Sink(path string, bitDepth signal.BitDepth) pipe.SinkAllocatorFunc {
	return func(mctx mutable.Context, bufferSize int, input pipe.SignalProperties) (pipe.Sink, error) {
		if !bitDepth.Supported() {
			return pipe.Sink{}, fmt.Errorf("%w: %d", ErrUnsupportedBitDepth, bitDepth)
		}
		s := sink{
			path:     path,
			bitDepth: bitDepth,
			channels: input.Channels,
			rate:     input.SampleRate,
			ints:     make([]int, bufferSize*input.Channels),
		}
		return pipe.Sink{
			SinkFunc:  s.write,
			StartFunc: s.create,
			FlushFunc: s.close,
		}, nil
	}
}

func (s *sink) create(context.Context) error {
	f, err := os.Create(s.path)
	if err != nil {
		return err
	}
	s.file = f
	s.encoder = wav.NewEncoder(f, int(s.rate), int(s.bitDepth), s.channels, formatPCM)
	return nil
}

func (s *sink) write(in signal.Float64) error {
	s.ints = in.AsInterInt(s.bitDepth, s.ints)
	return s.encoder.Write(&audio.IntBuffer{
		Format: &audio.Format{
			NumChannels: s.channels,
			SampleRate:  int(s.rate),
		},
		Data:           s.ints,
		SourceBitDepth: int(s.bitDepth),
	})
}

func (s *sink) close(context.Context) error {
	if s.file == nil {
		return nil
	}
	err := s.encoder.Close()
	if closeErr := s.file.Close(); err == nil {
		err = closeErr
	}
	s.file = nil
	s.encoder = nil
	return err
}
