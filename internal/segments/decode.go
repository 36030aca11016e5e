package segments

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// Decoder shells out to ffmpeg to turn MPEG-TS audio segments into
// normalized mono WAV files. Codec work is delegated entirely to the
// external utility.
type Decoder struct {
	FfmpegPath string
	SampleRate int
}

// NewDecoder returns a decoder using the given ffmpeg binary, "ffmpeg" when
// empty, and a 48 kHz mono target.
func NewDecoder(ffmpegPath string, sampleRate int) *Decoder {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if sampleRate <= 0 {
		sampleRate = 48000
	}
	return &Decoder{FfmpegPath: ffmpegPath, SampleRate: sampleRate}
}

// DecodeToWav converts one .ts segment to a mono WAV next to it and returns
// the WAV path.
func (d *Decoder) DecodeToWav(ctx context.Context, tsPath string) (string, error) {
	wavPath := strings.TrimSuffix(tsPath, ".ts") + ".wav"
	if _, err := os.Stat(wavPath); err == nil {
		return wavPath, nil
	}
	args := []string{
		"-loglevel", "error", "-y",
		"-i", tsPath,
		"-ac", "1",
		"-ar", strconv.Itoa(d.SampleRate),
		wavPath,
	}
	cmd := exec.CommandContext(ctx, d.FfmpegPath, args...)
	if out, err := cmd.CombinedOutput(); err != nil {
		return "", fmt.Errorf("ffmpeg decode %s: %w: %s", tsPath, err, strings.TrimSpace(string(out)))
	}
	return wavPath, nil
}

// Stitch concatenates .ts segments in order and decodes the result to a
// single mono WAV at outPath. MPEG-TS streams concatenate at the container
// level, so the concat protocol suffices.
func (d *Decoder) Stitch(ctx context.Context, tsPaths []string, outPath string) error {
	if len(tsPaths) == 0 {
		return errors.New("stitch: no segments")
	}
	input := "concat:" + strings.Join(tsPaths, "|")
	args := []string{
		"-loglevel", "error", "-y",
		"-i", input,
		"-ac", "1",
		"-ar", strconv.Itoa(d.SampleRate),
		outPath,
	}
	cmd := exec.CommandContext(ctx, d.FfmpegPath, args...)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("ffmpeg stitch: %w: %s", err, strings.TrimSpace(string(out)))
	}
	return nil
}

// ReadWavMono reads a WAV file into float64 samples normalized to [-1, 1],
// averaging channels when the file is not mono. Returns samples and sample
// rate.
func ReadWavMono(path string) ([]float64, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("opening wav %s: %w", path, err)
	}
	defer f.Close()

	decoder := wav.NewDecoder(f)
	decoder.ReadInfo()
	if !decoder.IsValidFile() {
		return nil, 0, fmt.Errorf("invalid WAV file: %s", path)
	}

	divisor, err := sampleDivisor(int(decoder.BitDepth))
	if err != nil {
		return nil, 0, err
	}
	channels := int(decoder.NumChans)
	rate := int(decoder.SampleRate)

	var samples []float64
	buf := &audio.IntBuffer{
		Data:   make([]int, 8192*channels),
		Format: &audio.Format{SampleRate: rate, NumChannels: channels},
	}
	for {
		n, err := decoder.PCMBuffer(buf)
		if err != nil {
			return nil, 0, fmt.Errorf("reading wav %s: %w", path, err)
		}
		if n == 0 {
			break
		}
		data := buf.Data[:n]
		if channels <= 1 {
			for _, v := range data {
				samples = append(samples, float64(v)/divisor)
			}
		} else {
			for i := 0; i+channels <= len(data); i += channels {
				sum := 0.0
				for c := 0; c < channels; c++ {
					sum += float64(data[i+c])
				}
				samples = append(samples, sum/float64(channels)/divisor)
			}
		}
	}
	return samples, rate, nil
}

func sampleDivisor(bitDepth int) (float64, error) {
	switch bitDepth {
	case 8:
		return 128, nil
	case 16:
		return 32768, nil
	case 24:
		return 8388608, nil
	case 32:
		return 2147483648, nil
	default:
		return 0, fmt.Errorf("unsupported bit depth: %d", bitDepth)
	}
}
