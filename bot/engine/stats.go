package engine

import (
	"math"
	"time"
)

// Sample is the outcome of one submitted item.
type Sample struct {
	Malicious  bool
	Succeeded  bool
	HasLatency bool // false when no response was received
	Latency    time.Duration
	StatusCode int // 0 on transport errors
}

// Stats is a read-only snapshot of the counters and latency figures of a run.
type Stats struct {
	Sent, Succeeded, Failed, Malicious, Normal int64
	Samples                                    int64
	Avg, P50, P90, P99                         time.Duration
	Min, Max                                   time.Duration
	Elapsed                                    time.Duration
	TargetRPS                                  float64
	Concurrency                                int64
	StatusCounts                               map[int]int64
}

// StatsCollector aggregates samples. Record and Snapshot are safe for concurrent use.
type StatsCollector interface {
	Record(s Sample)
	Snapshot() Stats
	SetTargetRPS(rps float64)
	SetConcurrency(c int64)
}

// Summary is the periodic report line.
type Summary struct {
	Sent          int64   `json:"sent"`
	Succeeded     int64   `json:"succeeded"`
	Failed        int64   `json:"failed"`
	MaliciousSent int64   `json:"malicious_sent"`
	NormalSent    int64   `json:"normal_sent"`
	AvgLatencyMs  float64 `json:"avg_latency_ms"`
}

// Summary reduces a snapshot to the report fields. The average latency is in milliseconds rounded to two decimals.
func (s Stats) Summary() Summary {
	return Summary{
		Sent:          s.Sent,
		Succeeded:     s.Succeeded,
		Failed:        s.Failed,
		MaliciousSent: s.Malicious,
		NormalSent:    s.Normal,
		AvgLatencyMs:  roundMs(s.Avg),
	}
}

// Throughput returns the achieved requests per second.
func (s Stats) Throughput() float64 {
	if s.Elapsed <= 0 {
		return 0
	}

	return float64(s.Sent) / s.Elapsed.Seconds()
}

// LogValues flattens the summary into key/value pairs for the level logger.
func (s Summary) LogValues() []any {
	return []any{
		"sent", s.Sent,
		"succeeded", s.Succeeded,
		"failed", s.Failed,
		"malicious_sent", s.MaliciousSent,
		"normal_sent", s.NormalSent,
		"avg_latency_ms", s.AvgLatencyMs,
	}
}

func roundMs(d time.Duration) float64 {
	ms := float64(d) / float64(time.Millisecond)

	return math.Round(ms*100) / 100
}
