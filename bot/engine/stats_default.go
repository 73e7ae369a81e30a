package engine

import (
	"math"
	"sync"
	"time"
)

const maxLatencyMs = 60000

// DefaultStatsCollector keeps exact counters, an exact latency sum for the mean and a 1ms bucket histogram for
// percentiles. All counters of one sample change together under the lock, so a snapshot never sees a partial update.
type DefaultStatsCollector struct {
	mu sync.RWMutex

	sent, succeeded, failed int64
	malicious, normal       int64

	samples     int64
	latSum      time.Duration
	minLat      time.Duration
	maxLat      time.Duration
	latBuckets  [maxLatencyMs + 1]int64
	latOverflow int64

	statusCounts map[int]int64
	startTime    time.Time
	targetRPS    float64
	concurrency  int64
	now          func() time.Time
}

// NewDefaultStatsCollector returns an empty collector whose elapsed time starts now.
func NewDefaultStatsCollector() *DefaultStatsCollector {
	return &DefaultStatsCollector{
		minLat:       math.MaxInt64,
		statusCounts: make(map[int]int64),
		startTime:    time.Now(),
		now:          time.Now,
	}
}

// Record adds one finished item to the counters and, when it has a latency, to the histogram.
func (s *DefaultStatsCollector) Record(sample Sample) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sent++

	if sample.Succeeded {
		s.succeeded++
	} else {
		s.failed++
	}

	if sample.Malicious {
		s.malicious++
	} else {
		s.normal++
	}

	if sample.StatusCode > 0 {
		s.statusCounts[sample.StatusCode]++
	}

	if !sample.HasLatency {
		return
	}

	lat := max(sample.Latency, 0)

	s.samples++
	s.latSum += lat
	s.minLat = min(s.minLat, lat)
	s.maxLat = max(s.maxLat, lat)

	if ms := lat.Milliseconds(); ms > maxLatencyMs {
		s.latOverflow++
	} else {
		s.latBuckets[ms]++
	}
}

// SetTargetRPS stores the configured rate shown in snapshots.
func (s *DefaultStatsCollector) SetTargetRPS(rps float64) {
	s.mu.Lock()
	s.targetRPS = rps
	s.mu.Unlock()
}

// SetConcurrency stores the worker count shown in snapshots.
func (s *DefaultStatsCollector) SetConcurrency(c int64) {
	s.mu.Lock()
	s.concurrency = c
	s.mu.Unlock()
}

// Restart resets the elapsed time reference to now.
func (s *DefaultStatsCollector) Restart() {
	s.mu.Lock()
	s.startTime = s.now()
	s.mu.Unlock()
}

// Snapshot returns a consistent copy of all counters and the derived latency figures.
func (s *DefaultStatsCollector) Snapshot() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := Stats{
		Sent:         s.sent,
		Succeeded:    s.succeeded,
		Failed:       s.failed,
		Malicious:    s.malicious,
		Normal:       s.normal,
		Samples:      s.samples,
		Max:          s.maxLat,
		Elapsed:      s.now().Sub(s.startTime),
		TargetRPS:    s.targetRPS,
		Concurrency:  s.concurrency,
		StatusCounts: make(map[int]int64, len(s.statusCounts)),
	}

	for code, n := range s.statusCounts {
		stats.StatusCounts[code] = n
	}

	if s.samples == 0 {
		return stats
	}

	stats.Min = s.minLat
	stats.Avg = s.latSum / time.Duration(s.samples)
	stats.P50 = s.percentile(0.50)
	stats.P90 = s.percentile(0.90)
	stats.P99 = s.percentile(0.99)

	return stats
}

// percentile walks the histogram; callers hold the read lock.
func (s *DefaultStatsCollector) percentile(p float64) time.Duration {
	target := int64(math.Ceil(float64(s.samples) * p))

	var current int64

	for i := 0; i <= maxLatencyMs; i++ {
		current += s.latBuckets[i]
		if current >= target {
			return time.Duration(i) * time.Millisecond
		}
	}

	return s.maxLat
}
