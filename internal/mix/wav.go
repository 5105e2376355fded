package mix

import (
	"fmt"
	"io"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// Output container format. Samples are written as-is; nothing is
// resampled or remapped to match it.
const (
	SampleRate  = 44100
	NumChannels = 2
	BitDepth    = 16

	pcmFormat = 1
	chunkSize = 8192
)

// WriteWAV encodes samples into a 16-bit stereo 44.1kHz WAV file at path,
// replacing any existing file, and returns the resulting file size.
func WriteWAV(path string, samples []float32) (int64, error) {
	f, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("create %s: %w", path, err)
	}

	if err := Encode(f, samples); err != nil {
		f.Close()
		return 0, err
	}

	if err := f.Close(); err != nil {
		return 0, fmt.Errorf("close %s: %w", path, err)
	}

	info, err := os.Stat(path)
	if err != nil {
		return 0, fmt.Errorf("stat %s: %w", path, err)
	}
	return info.Size(), nil
}

// Encode writes samples as interleaved PCM16 to w and finalizes the header.
// A trailing sample that does not complete a stereo frame is dropped.
func Encode(w io.WriteSeeker, samples []float32) error {
	enc := wav.NewEncoder(w, SampleRate, BitDepth, NumChannels, pcmFormat)

	buf := &audio.IntBuffer{
		Format: &audio.Format{
			SampleRate:  SampleRate,
			NumChannels: NumChannels,
		},
		SourceBitDepth: BitDepth,
		Data:           make([]int, 0, min(len(samples), chunkSize)),
	}

	// The encoder emits its header on the first Write, so an empty
	// recording still goes through one empty write.
	i := 0
	for {
		end := min(i+chunkSize, len(samples))

		buf.Data = buf.Data[:0]
		for _, s := range samples[i:end] {
			buf.Data = append(buf.Data, int(Float32ToInt16(s)))
		}

		if err := enc.Write(buf); err != nil {
			return fmt.Errorf("write samples: %w", err)
		}

		i = end
		if i >= len(samples) {
			break
		}
	}

	if err := enc.Close(); err != nil {
		return fmt.Errorf("finalize wav: %w", err)
	}
	return nil
}
