package analytics

// DefaultRollingWindow is the trailing window of the daily trend averages.
const DefaultRollingWindow = 7

// RollingMean returns the trailing mean of up to window values ending at
// each position. Early positions average whatever is available, so the
// result never contains gaps.
func RollingMean(values []float64, window int) []float64 {
	if window < 1 {
		window = 1
	}
	out := make([]float64, len(values))
	var sum float64
	for i, v := range values {
		sum += v
		if i >= window {
			sum -= values[i-window]
		}
		n := i + 1
		if n > window {
			n = window
		}
		out[i] = sum / float64(n)
	}
	return out
}

// CalculateTrend returns the percentage change from prev to cur. A zero
// previous value yields 100 when cur is positive and 0 otherwise.
func CalculateTrend(cur, prev float64) float64 {
	if prev == 0 {
		if cur > 0 {
			return 100
		}
		return 0
	}
	return (cur - prev) / prev * 100
}

// EffectiveRate returns payout per hour, or nil when no time was logged.
func EffectiveRate(payout float64, durationSeconds int64) *float64 {
	if durationSeconds == 0 {
		return nil
	}
	r := payout / (float64(durationSeconds) / 3600)
	return &r
}

func hours(seconds int64) float64 {
	return float64(seconds) / 3600
}
