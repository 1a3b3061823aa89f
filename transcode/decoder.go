package transcode

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/RyanBlaney/sonido-pitch/logging"
)

const (
	outputFormat   = "f64le"
	bytesPerSample = 8
	maxChannels    = 8
)

// AudioData represents decoded audio data
type AudioData struct {
	PCM        []float64      `json:"-"` // Interleaved samples
	SampleRate int            `json:"sample_rate"`
	Channels   int            `json:"channels"`
	Duration   time.Duration  `json:"duration"`
	Source     string         `json:"source"`
	Metadata   *AudioMetadata `json:"metadata,omitempty"` // Input stream as reported by ffprobe
}

// Frames returns the number of samples per channel
func (a *AudioData) Frames() int {
	if a.Channels <= 0 {
		return 0
	}
	return len(a.PCM) / a.Channels
}

// Deinterleave splits the interleaved PCM into one slice per channel. A
// trailing partial frame is dropped.
func (a *AudioData) Deinterleave() [][]float64 {
	return Deinterleave(a.PCM, a.Channels)
}

// Deinterleave splits interleaved samples into one slice per channel
func Deinterleave(pcm []float64, channels int) [][]float64 {
	if channels <= 0 {
		return nil
	}

	frames := len(pcm) / channels
	out := make([][]float64, channels)
	for ch := range out {
		out[ch] = make([]float64, frames)
	}
	for i := 0; i < frames; i++ {
		for ch := 0; ch < channels; ch++ {
			out[ch][i] = pcm[i*channels+ch]
		}
	}
	return out
}

// DecoderConfig holds decoder configuration
type DecoderConfig struct {
	SampleRate      int           `json:"sample_rate" yaml:"sample_rate"`           // Output rate; 0 keeps the source rate
	Channels        int           `json:"channels" yaml:"channels"`                 // Output channels; 0 keeps the source layout
	MaxDuration     time.Duration `json:"max_duration" yaml:"max_duration"`         // 0 = whole file
	ResampleQuality string        `json:"resample_quality" yaml:"resample_quality"` // "fast", "medium", "high"
	FFmpegPath      string        `json:"ffmpeg_path" yaml:"ffmpeg_path"`           // Path to ffmpeg binary
	FFprobePath     string        `json:"ffprobe_path" yaml:"ffprobe_path"`         // Path to ffprobe binary
	Timeout         time.Duration `json:"timeout" yaml:"timeout"`                   // Timeout for each ffmpeg run
}

// DefaultDecoderConfig returns default decoder configuration
func DefaultDecoderConfig() *DecoderConfig {
	return &DecoderConfig{
		SampleRate:      44100,
		Channels:        0, // Every channel gets its own detector
		MaxDuration:     0,
		ResampleQuality: "high",
		FFmpegPath:      "ffmpeg",  // Assume in PATH
		FFprobePath:     "ffprobe", // Assume in PATH
		Timeout:         60 * time.Second,
	}
}

// Validate checks the configuration without touching the filesystem
func (c *DecoderConfig) Validate() error {
	var errs []error
	if c.SampleRate < 0 {
		errs = append(errs, fmt.Errorf("sample_rate must not be negative: %d", c.SampleRate))
	}
	if c.Channels < 0 || c.Channels > maxChannels {
		errs = append(errs, fmt.Errorf("channels must be between 0 and %d: %d", maxChannels, c.Channels))
	}
	if c.MaxDuration < 0 {
		errs = append(errs, fmt.Errorf("max_duration must not be negative: %v", c.MaxDuration))
	}
	if c.Timeout < 0 {
		errs = append(errs, fmt.Errorf("timeout must not be negative: %v", c.Timeout))
	}
	switch c.ResampleQuality {
	case "", "fast", "medium", "high":
	default:
		errs = append(errs, fmt.Errorf("resample_quality %q is invalid; valid values: fast, medium, high", c.ResampleQuality))
	}
	return errors.Join(errs...)
}

// AudioMetadata holds detected audio properties from FFprobe
type AudioMetadata struct {
	SampleRate int     `json:"sample_rate"`
	Channels   int     `json:"channels"`
	Codec      string  `json:"codec"`
	Duration   float64 `json:"duration"`
	Bitrate    int     `json:"bitrate"`
	Format     string  `json:"format"`
}

// Decoder handles audio decoding using FFmpeg
type Decoder struct {
	config *DecoderConfig
}

// NewDecoder creates a new audio decoder
func NewDecoder(config *DecoderConfig) *Decoder {
	if config == nil {
		config = DefaultDecoderConfig()
	}
	return &Decoder{config: config}
}

// DecodeFile decodes an audio file and returns interleaved PCM
func (d *Decoder) DecodeFile(ctx context.Context, filename string) (*AudioData, error) {
	logger := logging.WithFields(logging.Fields{
		"component": "audio_decoder",
		"function":  "DecodeFile",
		"filename":  filename,
	})

	logger.Debug("Starting audio file decode")

	metadata, err := d.probe(ctx, filename, nil)
	if err != nil {
		logger.Error(err, "Failed to probe audio file")
		return nil, err
	}

	return d.decode(ctx, filename, nil, metadata, logger)
}

// DecodeReader decodes audio piped through ffmpeg's stdin
func (d *Decoder) DecodeReader(ctx context.Context, reader io.Reader) (*AudioData, error) {
	logger := logging.WithFields(logging.Fields{
		"component": "audio_decoder",
		"function":  "DecodeReader",
	})

	data, err := io.ReadAll(reader)
	if err != nil {
		logger.Error(err, "Failed to read data from reader")
		return nil, err
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("empty audio data")
	}

	logger.Debug("Data read from reader", logging.Fields{
		"data_size": len(data),
	})

	metadata, err := d.probe(ctx, "pipe:0", data)
	if err != nil {
		logger.Error(err, "Failed to probe audio data")
		return nil, err
	}

	return d.decode(ctx, "pipe:0", data, metadata, logger)
}

// probe runs ffprobe on input, feeding stdin when given
func (d *Decoder) probe(ctx context.Context, input string, stdin []byte) (*AudioMetadata, error) {
	args := []string{
		"-v", "quiet", // Suppress verbose output
		"-print_format", "json", // JSON output
		"-show_streams",          // Show stream info
		"-select_streams", "a:0", // First audio stream only
		input,
	}

	output, err := d.run(ctx, d.config.FFprobePath, args, stdin)
	if err != nil {
		return nil, fmt.Errorf("ffprobe failed: %w", err)
	}
	return parseFFprobeOutput(output)
}

func (d *Decoder) decode(ctx context.Context, input string, stdin []byte, metadata *AudioMetadata, logger logging.Logger) (*AudioData, error) {
	logger.Debug("Audio metadata detected", logging.Fields{
		"input_sample_rate": metadata.SampleRate,
		"input_channels":    metadata.Channels,
		"input_codec":       metadata.Codec,
		"input_duration":    metadata.Duration,
	})

	sampleRate, channels := d.outputLayout(metadata)
	args := d.buildFFmpegArgs(input, metadata, sampleRate, channels)

	logger.Debug("Running ffmpeg command", logging.Fields{
		"args": strings.Join(args, " "),
	})

	start := time.Now()
	output, err := d.run(ctx, d.config.FFmpegPath, args, stdin)
	if err != nil {
		logger.Error(err, "FFmpeg decode failed")
		return nil, fmt.Errorf("ffmpeg decode failed: %w", err)
	}

	samples := bytesToFloat64(output)
	if len(samples) == 0 {
		return nil, fmt.Errorf("no audio samples decoded")
	}

	audio := &AudioData{
		PCM:        samples,
		SampleRate: sampleRate,
		Channels:   channels,
		Source:     input,
		Metadata:   metadata,
	}
	audio.Duration = time.Duration(audio.Frames()) * time.Second / time.Duration(sampleRate)

	logger.Debug("FFmpeg decode completed", logging.Fields{
		"output_samples":     len(samples),
		"output_sample_rate": sampleRate,
		"output_channels":    channels,
		"output_duration":    audio.Duration.Seconds(),
		"decode_time":        time.Since(start).Seconds(),
	})

	return audio, nil
}

// run executes a command under the configured timeout and returns stdout.
// Failures carry ffmpeg's stderr.
func (d *Decoder) run(ctx context.Context, path string, args []string, stdin []byte) ([]byte, error) {
	if d.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.config.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, path, args...)
	if stdin != nil {
		cmd.Stdin = bytes.NewReader(stdin)
	}

	output, err := cmd.Output()
	if err != nil {
		var exitError *exec.ExitError
		if errors.As(err, &exitError) {
			return nil, fmt.Errorf("%w, stderr: %s", err, strings.TrimSpace(string(exitError.Stderr)))
		}
		return nil, err
	}
	return output, nil
}

// outputLayout resolves zero config values to the source's own rate and
// channel count
func (d *Decoder) outputLayout(metadata *AudioMetadata) (sampleRate, channels int) {
	sampleRate, channels = d.config.SampleRate, d.config.Channels
	if sampleRate == 0 {
		sampleRate = metadata.SampleRate
	}
	if channels == 0 {
		channels = metadata.Channels
	}
	return sampleRate, channels
}

// buildFFmpegArgs builds the ffmpeg arguments for one decode to raw float64
// little-endian on stdout
func (d *Decoder) buildFFmpegArgs(input string, metadata *AudioMetadata, sampleRate, channels int) []string {
	args := []string{
		"-v", "error", // Suppress ffmpeg output
		"-i", input,
		"-vn",
		"-map", "0:a:0",
		"-f", outputFormat,
		"-ac", strconv.Itoa(channels),
		"-ar", strconv.Itoa(sampleRate),
	}

	if metadata != nil && metadata.SampleRate != sampleRate {
		switch d.config.ResampleQuality {
		case "fast":
			args = append(args, "-af", "aresample=resampler=soxr:precision=16")
		case "medium":
			args = append(args, "-af", "aresample=resampler=soxr:precision=20")
		case "high":
			args = append(args, "-af", "aresample=resampler=soxr:precision=28")
		}
	}

	if d.config.MaxDuration > 0 {
		args = append(args, "-t", fmt.Sprintf("%.3f", d.config.MaxDuration.Seconds()))
	}

	return append(args, "pipe:1")
}

// parseFFprobeOutput parses ffprobe JSON to extract audio metadata
func parseFFprobeOutput(jsonData []byte) (*AudioMetadata, error) {
	var probe struct {
		Streams []struct {
			CodecType     string `json:"codec_type"`
			CodecName     string `json:"codec_name"`
			SampleRate    string `json:"sample_rate"`
			Channels      int    `json:"channels"`
			Duration      string `json:"duration"`
			BitRate       string `json:"bit_rate"`
			CodecLongName string `json:"codec_long_name"`
		} `json:"streams"`
	}

	if err := json.Unmarshal(jsonData, &probe); err != nil {
		return nil, fmt.Errorf("failed to parse ffprobe output: %w", err)
	}

	if len(probe.Streams) == 0 {
		return nil, fmt.Errorf("no audio streams found")
	}

	stream := probe.Streams[0]
	if stream.CodecType != "audio" {
		return nil, fmt.Errorf("stream is not audio type: %s", stream.CodecType)
	}

	sampleRate, err := strconv.Atoi(stream.SampleRate)
	if err != nil || sampleRate <= 0 {
		return nil, fmt.Errorf("invalid sample rate: %q", stream.SampleRate)
	}

	if stream.Channels <= 0 || stream.Channels > maxChannels {
		return nil, fmt.Errorf("invalid channel count: %d", stream.Channels)
	}

	// Duration and bitrate are informational only
	duration, _ := strconv.ParseFloat(stream.Duration, 64)
	bitrate, _ := strconv.Atoi(stream.BitRate)

	return &AudioMetadata{
		SampleRate: sampleRate,
		Channels:   stream.Channels,
		Codec:      stream.CodecName,
		Duration:   duration,
		Bitrate:    bitrate,
		Format:     stream.CodecLongName,
	}, nil
}

// bytesToFloat64 converts raw float64 little-endian bytes to []float64.
// Trailing bytes short of a full sample are dropped.
func bytesToFloat64(data []byte) []float64 {
	sampleCount := len(data) / bytesPerSample
	if sampleCount == 0 {
		return nil
	}

	samples := make([]float64, sampleCount)
	for i := 0; i < sampleCount; i++ {
		bits := binary.LittleEndian.Uint64(data[i*bytesPerSample:])
		samples[i] = math.Float64frombits(bits)
	}

	return samples
}

// CheckAvailability checks that ffmpeg and ffprobe can be executed
func (d *Decoder) CheckAvailability(ctx context.Context) error {
	for _, path := range []string{d.config.FFmpegPath, d.config.FFprobePath} {
		if err := exec.CommandContext(ctx, path, "-version").Run(); err != nil {
			return fmt.Errorf("%s not available: %w", path, err)
		}
	}
	return nil
}
