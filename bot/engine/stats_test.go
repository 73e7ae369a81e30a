package engine

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStatsEmptySnapshot(t *testing.T) {
	s := NewDefaultStatsCollector().Snapshot()

	assert.Zero(t, s.Sent)
	assert.Zero(t, s.Avg)
	assert.Zero(t, s.Min)
	assert.Equal(t, 0.0, s.Summary().AvgLatencyMs)
}

func TestStatsRecord(t *testing.T) {
	c := NewDefaultStatsCollector()

	c.Record(Sample{Malicious: true, Succeeded: true, HasLatency: true, Latency: 10 * time.Millisecond, StatusCode: 200})
	c.Record(Sample{Malicious: false, Succeeded: false, HasLatency: true, Latency: 30 * time.Millisecond, StatusCode: 503})
	c.Record(Sample{Malicious: false, Succeeded: false})

	s := c.Snapshot()

	assert.Equal(t, int64(3), s.Sent)
	assert.Equal(t, int64(1), s.Succeeded)
	assert.Equal(t, int64(2), s.Failed)
	assert.Equal(t, int64(1), s.Malicious)
	assert.Equal(t, int64(2), s.Normal)
	assert.Equal(t, int64(2), s.Samples, "transport errors carry no latency")
	assert.Equal(t, 20*time.Millisecond, s.Avg)
	assert.Equal(t, 10*time.Millisecond, s.Min)
	assert.Equal(t, 30*time.Millisecond, s.Max)
	assert.Equal(t, map[int]int64{200: 1, 503: 1}, s.StatusCounts)
}

func TestStatsPercentiles(t *testing.T) {
	c := NewDefaultStatsCollector()

	for i := 1; i <= 100; i++ {
		c.Record(Sample{Succeeded: true, HasLatency: true, Latency: time.Duration(i) * time.Millisecond})
	}

	s := c.Snapshot()

	assert.Equal(t, 50*time.Millisecond, s.P50)
	assert.Equal(t, 90*time.Millisecond, s.P90)
	assert.Equal(t, 99*time.Millisecond, s.P99)
	assert.Equal(t, 1*time.Millisecond, s.Min)
	assert.Equal(t, 100*time.Millisecond, s.Max)
}

func TestStatsLatencyOverflow(t *testing.T) {
	c := NewDefaultStatsCollector()
	c.Record(Sample{HasLatency: true, Latency: 2 * time.Minute})

	s := c.Snapshot()

	assert.Equal(t, 2*time.Minute, s.Max)
	assert.Equal(t, 2*time.Minute, s.P99)
	assert.Equal(t, 2*time.Minute, s.Avg)
}

func TestSummaryRounding(t *testing.T) {
	c := NewDefaultStatsCollector()

	c.Record(Sample{Succeeded: true, HasLatency: true, Latency: 12345678 * time.Nanosecond})
	c.Record(Sample{Succeeded: true, HasLatency: true, Latency: 1 * time.Millisecond})

	// (12.345678 + 1) / 2 = 6.672839 ms
	assert.Equal(t, 6.67, c.Snapshot().Summary().AvgLatencyMs)
}

func TestSummaryLogValues(t *testing.T) {
	sum := Summary{Sent: 5, Succeeded: 4, Failed: 1, MaliciousSent: 2, NormalSent: 3, AvgLatencyMs: 1.5}

	assert.Equal(t, []any{
		"sent", int64(5),
		"succeeded", int64(4),
		"failed", int64(1),
		"malicious_sent", int64(2),
		"normal_sent", int64(3),
		"avg_latency_ms", 1.5,
	}, sum.LogValues())
}

func TestStatsConservationUnderConcurrency(t *testing.T) {
	c := NewDefaultStatsCollector()

	const (
		writers = 8
		each    = 2000
	)

	var wg sync.WaitGroup

	done := make(chan struct{})

	// Snapshots taken while writers run must already be consistent.
	go func() {
		for {
			select {
			case <-done:
				return
			default:
			}

			s := c.Snapshot()
			if s.Sent != s.Succeeded+s.Failed || s.Sent != s.Malicious+s.Normal {
				t.Errorf("torn snapshot: %+v", s)

				return
			}
		}
	}()

	for w := range writers {
		wg.Go(func() {
			for i := range each {
				c.Record(Sample{
					Malicious:  (i+w)%3 == 0,
					Succeeded:  i%2 == 0,
					HasLatency: i%5 != 0,
					Latency:    time.Duration(i%50) * time.Millisecond,
				})
			}
		})
	}

	wg.Wait()
	close(done)

	s := c.Snapshot()

	assert.Equal(t, int64(writers*each), s.Sent)
	assert.Equal(t, s.Sent, s.Succeeded+s.Failed)
	assert.Equal(t, s.Sent, s.Malicious+s.Normal)
	assert.Equal(t, int64(writers*each*4/5), s.Samples)
}

func TestStatsThroughput(t *testing.T) {
	assert.Equal(t, 0.0, Stats{Sent: 10}.Throughput())
	assert.Equal(t, 5.0, Stats{Sent: 10, Elapsed: 2 * time.Second}.Throughput())
}
