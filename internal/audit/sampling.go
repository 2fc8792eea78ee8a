package audit

import "math/rand"

// SamplingConfig controls access log sampling rates.
type SamplingConfig struct {
	Rate      float64 // successful request sampling rate (0.0-1.0)
	ErrorRate float64 // 5xx and interrupted request sampling rate (0.0-1.0)
}

// ShouldLog determines if a request should be logged based on its outcome.
func (s SamplingConfig) ShouldLog(failed bool) bool {
	if failed {
		return s.ErrorRate >= 1.0 || rand.Float64() < s.ErrorRate
	}
	return s.Rate >= 1.0 || rand.Float64() < s.Rate
}
