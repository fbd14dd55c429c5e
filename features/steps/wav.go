//go:build integration

package steps

import (
	"math"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// writeWav creates a mono 16 bit sine file.
func writeWav(path string, sampleRate, frames int) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	data := make([]int, frames)
	for i := range data {
		data[i] = int(math.Round(16000 * math.Sin(2*math.Pi*441*float64(i)/float64(sampleRate))))
	}
	e := wav.NewEncoder(f, sampleRate, 16, 1, 1)
	if err := e.Write(&audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: sampleRate},
		Data:           data,
		SourceBitDepth: 16,
	}); err != nil {
		return err
	}
	return e.Close()
}
