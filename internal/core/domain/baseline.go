package domain

import "time"

// Baseline is a user's smoothed resting heart-rate reference.
// It does not exist until the user's first sample seeds it.
type Baseline struct {
	UserID string `json:"user_id"`
	// BPM is the current smoothed baseline.
	BPM float64 `json:"bpm"`
	// Samples counts how many samples have been absorbed.
	Samples int64 `json:"samples"`
	// UpdatedAt is the observation time of the last absorbed sample.
	UpdatedAt time.Time `json:"updated_at"`
}

// Evaluation is the Baseline Tracker's verdict on one sample.
type Evaluation struct {
	// BaselineBPM is the baseline the sample was compared against.
	// For a seeding sample it is the sample's own bpm.
	BaselineBPM float64
	// Deviation is (bpm - baseline) / baseline. Zero when seeding.
	Deviation float64
	// Anomalous is true when Deviation reached the spike threshold.
	Anomalous bool
	// Seeded is true when this sample created the baseline.
	Seeded bool
	// Next is the baseline after absorbing the sample.
	Next Baseline
}

// Detection holds the per-user anomaly detection parameters.
type Detection struct {
	// SpikeThreshold is the fractional deviation above baseline that
	// counts as an anomaly (0.20 = 20%).
	SpikeThreshold float64
	// Alpha is the smoothing factor of the moving average, in (0, 1].
	Alpha float64
}

// scoreEpsilon absorbs float rounding in the threshold comparison so a
// deviation that is exactly the threshold on paper counts as a spike.
const scoreEpsilon = 1e-9

// Score evaluates bpm observed at for userID against current, which is
// nil when the user has no baseline yet. The first sample seeds the
// baseline and is never anomalous.
func (d Detection) Score(current *Baseline, userID string, bpm int, at time.Time) Evaluation {
	v := float64(bpm)
	if current == nil || current.BPM <= 0 {
		return Evaluation{
			BaselineBPM: v,
			Seeded:      true,
			Next: Baseline{
				UserID:    userID,
				BPM:       v,
				Samples:   1,
				UpdatedAt: at,
			},
		}
	}

	deviation := (v - current.BPM) / current.BPM
	return Evaluation{
		BaselineBPM: current.BPM,
		Deviation:   deviation,
		Anomalous:   deviation >= d.SpikeThreshold-scoreEpsilon,
		Next: Baseline{
			UserID:    userID,
			BPM:       current.BPM*(1-d.Alpha) + v*d.Alpha,
			Samples:   current.Samples + 1,
			UpdatedAt: at,
		},
	}
}
