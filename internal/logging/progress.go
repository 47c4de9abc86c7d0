package logging

// ProgressSampler suppresses repetitive per-item progress logs while
// preserving signal at interval boundaries and at completion.
type ProgressSampler struct {
	interval int
}

// NewProgressSampler constructs a sampler that emits every interval
// completions (default 50) and always on the final one.
func NewProgressSampler(interval int) *ProgressSampler {
	if interval <= 0 {
		interval = 50
	}
	return &ProgressSampler{interval: interval}
}

// ShouldLog reports whether a completion event should be logged. Completed is
// the 1-based count of finished items; total is the number dispatched.
func (s *ProgressSampler) ShouldLog(completed, total int) bool {
	if s == nil {
		return true
	}
	if completed <= 0 {
		return false
	}
	if completed == total {
		return true
	}
	return completed%s.interval == 0
}
