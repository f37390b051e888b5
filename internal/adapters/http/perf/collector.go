package perf

import (
	"math"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultRingSize is the default capacity of the ring buffer.
const DefaultRingSize = 4096

// EntryKind distinguishes what was timed.
type EntryKind uint8

const (
	KindRequest EntryKind = iota
	KindQuery
	KindBackend
)

// Entry is a single timing record stored in the ring buffer.
type Entry struct {
	Kind       EntryKind
	Path       string // "GET /bulk/{kind}", "ExecContext", or "POST /api/..."
	StatusCode int    // 0 for queries
	DurationMs float64
	Timestamp  time.Time
}

// Collector is a fixed-size ring buffer for timing entries.
// When full, the oldest entries are overwritten. Aggregation happens on read.
type Collector struct {
	mu      sync.Mutex
	entries []Entry
	size    int
	pos     int
	count   int64
}

// NewCollector creates a collector with the given ring buffer capacity.
// PRE: size > 0, otherwise DefaultRingSize is used
// POST: Returns a ready-to-use collector
func NewCollector(size int) *Collector {
	if size <= 0 {
		size = DefaultRingSize
	}
	return &Collector{
		entries: make([]Entry, size),
		size:    size,
	}
}

// Record appends an entry to the ring buffer. A nil collector ignores it.
// POST: Entry stored; if buffer full, oldest entry overwritten
func (c *Collector) Record(e Entry) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.entries[c.pos] = e
	c.pos = (c.pos + 1) % c.size
	c.mu.Unlock()
	atomic.AddInt64(&c.count, 1)
}

// TotalRecorded returns the total number of entries ever recorded.
func (c *Collector) TotalRecorded() int64 {
	return atomic.LoadInt64(&c.count)
}

// Snapshot holds aggregated performance data.
type Snapshot struct {
	TotalRecorded  int64      `json:"total_recorded"`
	RequestP50Ms   float64    `json:"request_p50_ms"`
	RequestP95Ms   float64    `json:"request_p95_ms"`
	RequestP99Ms   float64    `json:"request_p99_ms"`
	SlowestPaths   []PathStat `json:"slowest_paths"`
	SlowestQueries []PathStat `json:"slowest_queries"`
	SlowestBackend []PathStat `json:"slowest_backend"`
	BackendErrors  int        `json:"backend_errors"`
}

// PathStat aggregates timing for one path, query op, or backend endpoint.
type PathStat struct {
	Path    string  `json:"path"`
	AvgMs   float64 `json:"avg_ms"`
	MaxMs   float64 `json:"max_ms"`
	Count   int     `json:"count"`
	TotalMs float64 `json:"-"`
}

// Snapshot computes aggregated stats for entries recorded at or after since.
// PRE: topN > 0
// POST: Returns percentiles over requests and top-N lists per kind
func (c *Collector) Snapshot(since time.Time, topN int) Snapshot {
	c.mu.Lock()
	buf := make([]Entry, c.size)
	copy(buf, c.entries)
	c.mu.Unlock()

	var requestDurations []float64
	stats := map[EntryKind]map[string]*PathStat{
		KindRequest: {},
		KindQuery:   {},
		KindBackend: {},
	}
	backendErrors := 0

	for _, e := range buf {
		if e.Timestamp.IsZero() || e.Timestamp.Before(since) {
			continue
		}
		if e.Kind == KindRequest {
			requestDurations = append(requestDurations, e.DurationMs)
		}
		if e.Kind == KindBackend && (e.StatusCode == 0 || e.StatusCode >= 400) {
			backendErrors++
		}
		byPath := stats[e.Kind]
		if byPath == nil {
			continue
		}
		s, ok := byPath[e.Path]
		if !ok {
			s = &PathStat{Path: e.Path}
			byPath[e.Path] = s
		}
		s.Count++
		s.TotalMs += e.DurationMs
		if e.DurationMs > s.MaxMs {
			s.MaxMs = e.DurationMs
		}
	}

	snap := Snapshot{
		TotalRecorded:  c.TotalRecorded(),
		SlowestPaths:   topByAvg(stats[KindRequest], topN),
		SlowestQueries: topByAvg(stats[KindQuery], topN),
		SlowestBackend: topByAvg(stats[KindBackend], topN),
		BackendErrors:  backendErrors,
	}
	if len(requestDurations) > 0 {
		sort.Float64s(requestDurations)
		snap.RequestP50Ms = percentile(requestDurations, 50)
		snap.RequestP95Ms = percentile(requestDurations, 95)
		snap.RequestP99Ms = percentile(requestDurations, 99)
	}
	return snap
}

// percentile returns the p-th percentile from a sorted slice.
func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := (p / 100) * float64(len(sorted)-1)
	lower := int(math.Floor(idx))
	upper := int(math.Ceil(idx))
	if lower == upper || upper >= len(sorted) {
		return sorted[lower]
	}
	frac := idx - float64(lower)
	return sorted[lower]*(1-frac) + sorted[upper]*frac
}

// topByAvg returns the top N stats by average duration, descending.
func topByAvg(stats map[string]*PathStat, n int) []PathStat {
	list := make([]PathStat, 0, len(stats))
	for _, s := range stats {
		s.AvgMs = s.TotalMs / float64(s.Count)
		list = append(list, *s)
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].AvgMs > list[j].AvgMs
	})
	if len(list) > n {
		list = list[:n]
	}
	return list
}
