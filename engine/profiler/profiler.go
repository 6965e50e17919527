package profiler

import (
	"runtime"
	"time"

	"github.com/Carmen-Shannon/oxy-trace/common"
)

// Stats is one profiler report.
type Stats struct {
	FPS float64

	// AvgFrame is the mean frame time over the interval.
	AvgFrame time.Duration

	HeapMB      float64
	AllocRateMB float64
	SysMB       float64

	NumGC       uint32
	LastPauseUs uint64
	MaxPauseUs  uint64
}

// Profiler tracks frame rate and memory statistics and reports them at a fixed interval.
type Profiler struct {
	frameCount     int
	lastTime       time.Time
	updateInterval time.Duration
	memStats       runtime.MemStats
	lastGCCount    uint32
	lastTotalAlloc uint64
	now            func() time.Time
}

// NewProfiler creates a Profiler reporting once per interval. Intervals <= 0 mean one second.
//
// Parameters:
//   - interval: the reporting interval
//
// Returns:
//   - *Profiler: the newly created profiler instance
func NewProfiler(interval time.Duration) *Profiler {
	if interval <= 0 {
		interval = time.Second
	}
	return &Profiler{
		lastTime:       time.Now(),
		updateInterval: interval,
		now:            time.Now,
	}
}

// Tick records one frame. When the interval has elapsed it gathers memory statistics, logs
// them and returns them.
//
// Returns:
//   - Stats: the report, valid only when ok is true
//   - bool: true if a report was produced this tick
func (p *Profiler) Tick() (Stats, bool) {
	p.frameCount++
	currentTime := p.now()
	elapsed := currentTime.Sub(p.lastTime)
	if elapsed < p.updateInterval {
		return Stats{}, false
	}

	runtime.ReadMemStats(&p.memStats)
	s := Stats{
		FPS:         float64(p.frameCount) / elapsed.Seconds(),
		AvgFrame:    elapsed / time.Duration(p.frameCount),
		HeapMB:      float64(p.memStats.Alloc) / 1024 / 1024,
		SysMB:       float64(p.memStats.Sys) / 1024 / 1024,
		AllocRateMB: float64(p.memStats.TotalAlloc-p.lastTotalAlloc) / 1024 / 1024 / elapsed.Seconds(),
		NumGC:       p.memStats.NumGC,
	}

	// PauseNs is a ring of the last 256 pauses
	if s.NumGC > 0 {
		s.LastPauseUs = p.memStats.PauseNs[(s.NumGC-1)%256] / 1000
		start := p.lastGCCount
		if s.NumGC-start > 256 {
			start = s.NumGC - 256
		}
		for i := start; i < s.NumGC; i++ {
			s.MaxPauseUs = max(s.MaxPauseUs, p.memStats.PauseNs[i%256]/1000)
		}
	}

	common.Logger().Info("profiler",
		"fps", s.FPS,
		"frame", s.AvgFrame,
		"heap_mb", s.HeapMB,
		"alloc_mb_s", s.AllocRateMB,
		"gc", s.NumGC,
		"gc_last_us", s.LastPauseUs,
		"gc_max_us", s.MaxPauseUs,
		"sys_mb", s.SysMB,
	)

	p.frameCount = 0
	p.lastTime = currentTime
	p.lastGCCount = s.NumGC
	p.lastTotalAlloc = p.memStats.TotalAlloc
	return s, true
}
