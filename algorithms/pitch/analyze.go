package pitch

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/RyanBlaney/sonido-pitch/algorithms/common"
)

// FrameResult is the detector output for one completed frame
type FrameResult struct {
	Frame           int64           `json:"frame"`
	SampleIndex     int64           `json:"sample_index"` // sample that completed the frame
	First           CandidatePeriod `json:"first"`
	Second          CandidatePeriod `json:"second"`
	PredictedPeriod float64         `json:"predicted_period"`
}

// Analyze runs a fresh detector over a buffer and collects every frame
func Analyze(samples []float64, params PeriodDetectorParams) ([]FrameResult, error) {
	return AnalyzeContext(context.Background(), samples, params)
}

// AnalyzeContext is Analyze with cancellation checked at every frame
func AnalyzeContext(ctx context.Context, samples []float64, params PeriodDetectorParams) ([]FrameResult, error) {
	pd, err := NewPeriodDetectorWithParams(params)
	if err != nil {
		return nil, err
	}

	var results []FrameResult
	for i, s := range samples {
		if !pd.Push(s) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return results, err
		}
		results = append(results, FrameResult{
			Frame:           pd.frame,
			SampleIndex:     int64(i),
			First:           pd.First(),
			Second:          pd.Second(),
			PredictedPeriod: pd.PredictPeriod(),
		})
	}

	return results, nil
}

// AnalyzeChannels analyses each channel with its own detector, concurrently.
// The first error cancels the remaining channels.
func AnalyzeChannels(ctx context.Context, channels [][]float64, params PeriodDetectorParams) ([][]FrameResult, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	results := make([][]FrameResult, len(channels))
	g, gctx := errgroup.WithContext(ctx)
	for ch, samples := range channels {
		ch, samples := ch, samples
		g.Go(func() error {
			r, err := AnalyzeContext(gctx, samples, params)
			if err != nil {
				return err
			}
			results[ch] = r
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// TrackSummary aggregates the fundamental candidates of a run of frames
type TrackSummary struct {
	Frames          int     `json:"frames"`
	ValidFrames     int     `json:"valid_frames"` // frames whose first candidate passed minPeriodicity
	MeanPeriod      float64 `json:"mean_period"`
	PeriodStdDev    float64 `json:"period_std_dev"`
	MeanPeriodicity float64 `json:"mean_periodicity"`
	Frequency       float64 `json:"frequency"` // Hz, from MeanPeriod
	PredictedPeriod float64 `json:"predicted_period"`
}

// Summarize averages the first candidates whose periodicity reaches
// minPeriodicity
func Summarize(results []FrameResult, sampleRate int, minPeriodicity float64) TrackSummary {
	summary := TrackSummary{Frames: len(results)}

	periods := make([]float64, 0, len(results))
	periodicities := make([]float64, 0, len(results))
	for _, r := range results {
		if r.PredictedPeriod > 0 {
			summary.PredictedPeriod = r.PredictedPeriod
		}
		if !r.First.IsValid() || r.First.Periodicity < minPeriodicity {
			continue
		}
		periods = append(periods, r.First.Period)
		periodicities = append(periodicities, r.First.Periodicity)
	}

	summary.ValidFrames = len(periods)
	if summary.ValidFrames == 0 {
		return summary
	}

	summary.MeanPeriod = common.Mean(periods)
	summary.PeriodStdDev = common.StandardDeviation(periods)
	summary.MeanPeriodicity = common.Mean(periodicities)
	summary.Frequency = CandidatePeriod{Period: summary.MeanPeriod}.Frequency(sampleRate)
	return summary
}
