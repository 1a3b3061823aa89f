package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/RyanBlaney/sonido-pitch/algorithms/pitch"
	"github.com/RyanBlaney/sonido-pitch/algorithms/spectral"
)

type reportOptions struct {
	frames         bool
	spectral       bool
	minPeriodicity float64
}

type channelReport struct {
	Channel  int                 `json:"channel"`
	Summary  pitch.TrackSummary  `json:"summary"`
	Spectral *spectral.Peak      `json:"spectral,omitempty"`
	Frames   []pitch.FrameResult `json:"frames,omitempty"`
}

type fileReport struct {
	Source     string          `json:"source"`
	SampleRate int             `json:"sample_rate"`
	Lowest     float64         `json:"lowest_frequency"`
	Highest    float64         `json:"highest_frequency"`
	Channels   []channelReport `json:"channels"`
}

func buildReport(source string, params pitch.PeriodDetectorParams, channels [][]float64, results [][]pitch.FrameResult, opts reportOptions) fileReport {
	report := fileReport{
		Source:     source,
		SampleRate: params.SampleRate,
		Lowest:     params.LowestFrequency,
		Highest:    params.HighestFrequency,
		Channels:   make([]channelReport, len(results)),
	}

	fft := spectral.NewFFT()
	for ch, frames := range results {
		cr := channelReport{
			Channel: ch,
			Summary: pitch.Summarize(frames, params.SampleRate, opts.minPeriodicity),
		}
		if opts.frames {
			cr.Frames = frames
		}
		if opts.spectral && ch < len(channels) {
			if peak, ok := fft.PeakFrequency(channels[ch], params.SampleRate, params.LowestFrequency, params.HighestFrequency); ok {
				cr.Spectral = &peak
			}
		}
		report.Channels[ch] = cr
	}
	return report
}

func writeJSON(w io.Writer, report fileReport) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}

func writeText(w io.Writer, report fileReport) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	fmt.Fprintf(tw, "%s (%d Hz, %.1f-%.1f Hz)\n", report.Source, report.SampleRate, report.Lowest, report.Highest)
	for _, ch := range report.Channels {
		s := ch.Summary
		if s.ValidFrames == 0 {
			fmt.Fprintf(tw, "  ch%d\tno pitch\t%d frames\n", ch.Channel, s.Frames)
		} else {
			fmt.Fprintf(tw, "  ch%d\t%.2f Hz\tperiod %.3f ± %.3f\tperiodicity %.3f\t%d/%d frames\n",
				ch.Channel, s.Frequency, s.MeanPeriod, s.PeriodStdDev, s.MeanPeriodicity, s.ValidFrames, s.Frames)
		}
		if ch.Spectral != nil {
			fmt.Fprintf(tw, "  \tfft %.2f Hz\t\t\t\n", ch.Spectral.Frequency)
		}
		for _, f := range ch.Frames {
			fmt.Fprintf(tw, "    #%d\t@%d\tfirst %s\tsecond %s\tpredicted %.2f\n",
				f.Frame, f.SampleIndex, formatCandidate(f.First), formatCandidate(f.Second), f.PredictedPeriod)
		}
	}

	return tw.Flush()
}

func formatCandidate(c pitch.CandidatePeriod) string {
	if !c.IsValid() {
		return "-"
	}
	return fmt.Sprintf("%.3f (%.3f)", c.Period, c.Periodicity)
}
