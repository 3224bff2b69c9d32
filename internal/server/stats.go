package server

import (
	"runtime"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
	log "github.com/sirupsen/logrus"
)

const cpuSampleRate = 500 * time.Millisecond

var (
	cpuMu       sync.Mutex
	lastCPUTime time.Time
	lastCPU     float64
)

// SystemStats describes the host and the process.
type SystemStats struct {
	NumCPU      int     `json:"num_cpu"`
	GoRoutines  int     `json:"go_routines"`
	CPUUsage    float64 `json:"cpu_usage"`
	MemoryUsed  float64 `json:"memory_used_percent"`
	MemoryAlloc uint64  `json:"memory_alloc"`
	MemorySys   uint64  `json:"memory_sys"`
}

// cpuUsage samples total CPU load, caching the value for cpuSampleRate.
func cpuUsage() float64 {
	cpuMu.Lock()
	defer cpuMu.Unlock()

	if !lastCPUTime.IsZero() && time.Since(lastCPUTime) < cpuSampleRate {
		return lastCPU
	}

	percentages, err := cpu.Percent(200*time.Millisecond, false)
	if err != nil {
		log.Debugf("CPU usage: %v", err)
		return 0
	}
	if len(percentages) > 0 {
		lastCPU = percentages[0]
	}
	lastCPUTime = time.Now()
	return lastCPU
}

func systemStats() SystemStats {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	stats := SystemStats{
		NumCPU:      runtime.NumCPU(),
		GoRoutines:  runtime.NumGoroutine(),
		CPUUsage:    cpuUsage(),
		MemoryAlloc: ms.Alloc,
		MemorySys:   ms.Sys,
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		stats.MemoryUsed = vm.UsedPercent
	} else {
		log.Debugf("Memory usage: %v", err)
	}
	return stats
}
