package pitchmix

import (
	"sync"
	"time"
)

// ResourceMonitor tracks running engine processes and job outcomes.
// All methods are safe on a nil receiver, which records nothing.
type ResourceMonitor struct {
	mu              sync.RWMutex
	activeProcesses map[int]time.Time // PID -> start time
	totalJobs       int64
	failedJobs      int64
	fallbackRates   int64
}

// NewResourceMonitor creates an empty monitor.
func NewResourceMonitor() *ResourceMonitor {
	return &ResourceMonitor{
		activeProcesses: make(map[int]time.Time),
	}
}

// TrackProcess registers a started engine process.
func (m *ResourceMonitor) TrackProcess(pid int) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.activeProcesses[pid] = time.Now()
}

// UntrackProcess removes an exited engine process.
func (m *ResourceMonitor) UntrackProcess(pid int) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.activeProcesses, pid)
}

// RecordJob counts a finished job.
func (m *ResourceMonitor) RecordJob(err error, usedFallback bool) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.totalJobs++
	if err != nil {
		m.failedJobs++
	}
	if usedFallback {
		m.fallbackRates++
	}
}

// ActiveProcesses returns the number of running engine processes.
func (m *ResourceMonitor) ActiveProcesses() int {
	if m == nil {
		return 0
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.activeProcesses)
}

// MonitorStats is a snapshot of the monitor.
type MonitorStats struct {
	ActiveProcesses  int           `json:"active_processes" yaml:"active_processes"`
	TotalJobs        int64         `json:"total_jobs" yaml:"total_jobs"`
	FailedJobs       int64         `json:"failed_jobs" yaml:"failed_jobs"`
	FallbackRateJobs int64         `json:"fallback_rate_jobs" yaml:"fallback_rate_jobs"`
	SuccessRate      float64       `json:"success_rate" yaml:"success_rate"`
	OldestProcessAge time.Duration `json:"oldest_process_age" yaml:"oldest_process_age"`
}

// GetStats returns current statistics.
func (m *ResourceMonitor) GetStats() MonitorStats {
	if m == nil {
		return MonitorStats{SuccessRate: 100.0}
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	stats := MonitorStats{
		ActiveProcesses:  len(m.activeProcesses),
		TotalJobs:        m.totalJobs,
		FailedJobs:       m.failedJobs,
		FallbackRateJobs: m.fallbackRates,
		SuccessRate:      100.0,
	}

	if m.totalJobs > 0 {
		stats.SuccessRate = float64(m.totalJobs-m.failedJobs) / float64(m.totalJobs) * 100.0
	}

	if len(m.activeProcesses) > 0 {
		oldest := time.Now()
		for _, startTime := range m.activeProcesses {
			if startTime.Before(oldest) {
				oldest = startTime
			}
		}
		stats.OldestProcessAge = time.Since(oldest)
	}

	return stats
}

// Reset clears all statistics.
func (m *ResourceMonitor) Reset() {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.activeProcesses = make(map[int]time.Time)
	m.totalJobs = 0
	m.failedJobs = 0
	m.fallbackRates = 0
}
