package profiling

import (
	"runtime"
	"time"
)

// GCStats provides garbage collection statistics
type GCStats struct {
	NumGC        uint32        `json:"gc_runs"`
	PauseTotal   time.Duration `json:"pause_total_ns"`
	PauseRecent  time.Duration `json:"pause_recent_ns"`
	LastGC       time.Time     `json:"last_gc"`
	GCCPUPercent float64       `json:"cpu_percent"`
}

// GetGCStats returns current garbage collection statistics
func GetGCStats() GCStats {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return gcStats(&m)
}

func gcStats(m *runtime.MemStats) GCStats {
	var recentPause time.Duration
	if m.NumGC > 0 {
		recentPause = time.Duration(m.PauseNs[(m.NumGC+255)%256])
	}
	return GCStats{
		NumGC:        m.NumGC,
		PauseTotal:   time.Duration(m.PauseTotalNs),
		PauseRecent:  recentPause,
		LastGC:       time.Unix(0, int64(m.LastGC)),
		GCCPUPercent: m.GCCPUFraction * 100,
	}
}

// ForceGC triggers garbage collection and returns the stats before and after.
func ForceGC() (before, after GCStats) {
	before = GetGCStats()
	runtime.GC()
	after = GetGCStats()
	return before, after
}

// MemorySnapshot is a point-in-time view of the runtime.
type MemorySnapshot struct {
	Timestamp    time.Time `json:"timestamp"`
	Goroutines   int       `json:"goroutines"`
	GOMAXPROCS   int       `json:"gomaxprocs"`
	NumCPU       int       `json:"num_cpu"`
	Version      string    `json:"version"`
	AllocMB      float64   `json:"alloc_mb"`
	TotalAllocMB float64   `json:"total_alloc_mb"`
	SysMB        float64   `json:"sys_mb"`
	HeapAllocMB  float64   `json:"heap_alloc_mb"`
	HeapSysMB    float64   `json:"heap_sys_mb"`
	HeapObjects  uint64    `json:"heap_objects"`
	StackInUseMB float64   `json:"stack_in_use_mb"`
	GC           GCStats   `json:"gc"`
}

// TakeMemorySnapshot reads the runtime memory statistics.
func TakeMemorySnapshot() MemorySnapshot {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return MemorySnapshot{
		Timestamp:    time.Now(),
		Goroutines:   runtime.NumGoroutine(),
		GOMAXPROCS:   runtime.GOMAXPROCS(0),
		NumCPU:       runtime.NumCPU(),
		Version:      runtime.Version(),
		AllocMB:      bToMb(m.Alloc),
		TotalAllocMB: bToMb(m.TotalAlloc),
		SysMB:        bToMb(m.Sys),
		HeapAllocMB:  bToMb(m.HeapAlloc),
		HeapSysMB:    bToMb(m.HeapSys),
		HeapObjects:  m.HeapObjects,
		StackInUseMB: bToMb(m.StackInuse),
		GC:           gcStats(&m),
	}
}

// bToMb converts bytes to megabytes
func bToMb(b uint64) float64 {
	return float64(b) / 1024 / 1024
}
