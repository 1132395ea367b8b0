package stats

import (
	"sort"
	"sync"
	"time"
)

// Operation names recorded by the editor and the service.
const (
	OpParse     = "parse"
	OpMutate    = "mutate"
	OpSerialize = "serialize"
	OpImport    = "import"
)

type sample struct {
	timestamp  time.Time
	durationUs int64
}

// Snapshot is a point-in-time aggregate of one operation's latency samples.
type Snapshot struct {
	Count int     `json:"count"`
	MinUs int64   `json:"min_us"`
	MaxUs int64   `json:"max_us"`
	AvgUs float64 `json:"avg_us"`
	P50Us float64 `json:"p50_us"`
	P95Us float64 `json:"p95_us"`
	P99Us float64 `json:"p99_us"`
}

// Recorder tracks recent operation latencies within a rolling window. A nil
// Recorder discards everything.
type Recorder struct {
	mu      sync.Mutex
	samples map[string][]sample
	maxAge  time.Duration
}

func New(maxAge time.Duration) *Recorder {
	if maxAge <= 0 {
		maxAge = time.Hour
	}
	return &Recorder{
		samples: make(map[string][]sample),
		maxAge:  maxAge,
	}
}

// Record adds one sample for op.
func (r *Recorder) Record(op string, d time.Duration) {
	if r == nil {
		return
	}
	us := d.Microseconds()
	if us < 0 {
		us = 0
	}
	now := time.Now()

	r.mu.Lock()
	defer r.mu.Unlock()

	r.pruneLocked(op, now)
	r.samples[op] = append(r.samples[op], sample{
		timestamp:  now,
		durationUs: us,
	})
}

// Since records the time elapsed since start. Intended for use with defer.
func (r *Recorder) Since(op string, start time.Time) {
	r.Record(op, time.Since(start))
}

func (r *Recorder) Snapshot(op string) Snapshot {
	if r == nil {
		return Snapshot{}
	}
	now := time.Now()

	r.mu.Lock()
	defer r.mu.Unlock()

	return r.snapshotLocked(op, now)
}

// All returns a snapshot for every operation with samples in the window.
func (r *Recorder) All() map[string]Snapshot {
	out := make(map[string]Snapshot)
	if r == nil {
		return out
	}
	now := time.Now()

	r.mu.Lock()
	defer r.mu.Unlock()

	for op := range r.samples {
		if snap := r.snapshotLocked(op, now); snap.Count > 0 {
			out[op] = snap
		}
	}
	return out
}

func (r *Recorder) snapshotLocked(op string, now time.Time) Snapshot {
	r.pruneLocked(op, now)
	samples := r.samples[op]
	if len(samples) == 0 {
		return Snapshot{}
	}

	values := make([]int64, 0, len(samples))
	var sum int64
	for _, sm := range samples {
		values = append(values, sm.durationUs)
		sum += sm.durationUs
	}
	sort.Slice(values, func(i, j int) bool { return values[i] < values[j] })

	return Snapshot{
		Count: len(values),
		MinUs: values[0],
		MaxUs: values[len(values)-1],
		AvgUs: float64(sum) / float64(len(values)),
		P50Us: percentile(values, 50),
		P95Us: percentile(values, 95),
		P99Us: percentile(values, 99),
	}
}

func (r *Recorder) pruneLocked(op string, now time.Time) {
	cutoff := now.Add(-r.maxAge)
	samples := r.samples[op]
	writeIdx := 0
	for _, sm := range samples {
		if !sm.timestamp.Before(cutoff) {
			samples[writeIdx] = sm
			writeIdx++
		}
	}
	if writeIdx == 0 {
		delete(r.samples, op)
		return
	}
	r.samples[op] = samples[:writeIdx]
}

func percentile(sortedValues []int64, pct float64) float64 {
	if len(sortedValues) == 0 {
		return 0
	}
	if pct <= 0 {
		return float64(sortedValues[0])
	}
	if pct >= 100 {
		return float64(sortedValues[len(sortedValues)-1])
	}

	index := (float64(len(sortedValues)-1) * pct) / 100.0
	lower := int(index)
	upper := lower + 1
	if upper >= len(sortedValues) {
		return float64(sortedValues[lower])
	}
	weight := index - float64(lower)
	lo := float64(sortedValues[lower])
	hi := float64(sortedValues[upper])
	return lo + ((hi - lo) * weight)
}
