// Command pitchtrack estimates the pitch of audio files with the bitstream
// period detector, one detector per channel.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/RyanBlaney/sonido-pitch/algorithms/filters"
	"github.com/RyanBlaney/sonido-pitch/algorithms/pitch"
	"github.com/RyanBlaney/sonido-pitch/config"
	"github.com/RyanBlaney/sonido-pitch/logging"
	"github.com/RyanBlaney/sonido-pitch/transcode"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout))
}

func run(args []string, stdin io.Reader, stdout io.Writer) int {
	fs := flag.NewFlagSet("pitchtrack", flag.ContinueOnError)
	configPath := fs.String("config", "", "path to the YAML configuration file (defaults apply when empty)")
	jsonOut := fs.Bool("json", false, "write JSON instead of text")
	frames := fs.Bool("frames", false, "include every frame, not only the summary")
	crossCheck := fs.Bool("spectral", false, "add an FFT peak estimate per channel")
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "usage: pitchtrack [flags] file... (use - for stdin)\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return 2
	}

	cfg := config.Default()
	if *configPath != "" {
		var err error
		cfg, err = config.Load(*configPath)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				fmt.Fprintf(os.Stderr, "pitchtrack: config file %q not found\n", *configPath)
			} else {
				fmt.Fprintf(os.Stderr, "pitchtrack: %v\n", err)
			}
			return 1
		}
	}
	logging.SetGlobalLogger(cfg.Logger())

	opts := reportOptions{
		frames:         *frames || cfg.Report.Frames,
		spectral:       *crossCheck,
		minPeriodicity: cfg.Report.MinPeriodicity,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	decoder := transcode.NewDecoder(&cfg.Decoder)
	status := 0
	for _, source := range fs.Args() {
		report, err := analyzeSource(ctx, decoder, cfg, source, stdin, opts)
		if err != nil {
			logging.Error(err, "Analysis failed", logging.Fields{"source": source})
			if errors.Is(err, context.Canceled) {
				return 130
			}
			status = 1
			continue
		}

		if *jsonOut {
			err = writeJSON(stdout, report)
		} else {
			err = writeText(stdout, report)
		}
		if err != nil {
			logging.Error(err, "Failed to write report")
			return 1
		}
	}
	return status
}

// analyzeSource decodes one file (or stdin for "-") and runs a detector over
// every channel concurrently
func analyzeSource(ctx context.Context, decoder *transcode.Decoder, cfg *config.Config, source string, stdin io.Reader, opts reportOptions) (fileReport, error) {
	logger := logging.WithFields(logging.Fields{
		"component": "pitchtrack",
		"source":    source,
	})

	var (
		audio *transcode.AudioData
		err   error
	)
	if source == "-" {
		audio, err = decoder.DecodeReader(ctx, stdin)
	} else {
		audio, err = decoder.DecodeFile(ctx, source)
	}
	if err != nil {
		return fileReport{}, fmt.Errorf("decode %s: %w", source, err)
	}

	channels := audio.Deinterleave()
	params := cfg.DetectorFor(audio.SampleRate)
	if err := prefilter(channels, audio.SampleRate, cfg.Prefilter); err != nil {
		return fileReport{}, err
	}

	logger.Info("Analyzing", logging.Fields{
		"sample_rate": audio.SampleRate,
		"channels":    len(channels),
		"duration":    audio.Duration.Seconds(),
	})

	results, err := pitch.AnalyzeChannels(ctx, channels, params)
	if err != nil {
		return fileReport{}, fmt.Errorf("analyze %s: %w", source, err)
	}

	return buildReport(source, params, channels, results, opts), nil
}

// prefilter lowpasses every channel in place when the config asks for it
func prefilter(channels [][]float64, sampleRate int, pf config.PrefilterConfig) error {
	if pf.LowpassHz <= 0 {
		return nil
	}

	q := pf.Q
	if q == 0 {
		q = filters.ButterworthQ
	}
	for ch, samples := range channels {
		lp, err := filters.NewLowpass(sampleRate, pf.LowpassHz, q)
		if err != nil {
			return fmt.Errorf("prefilter: %w", err)
		}
		channels[ch] = lp.ProcessBuffer(samples)
	}
	return nil
}
