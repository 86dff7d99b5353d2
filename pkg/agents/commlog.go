package agents

import (
	"sync"
	"time"
)

// DefaultLogCapacity bounds the communication log
const DefaultLogCapacity = 1000

// LogEntry records one agent call
type LogEntry struct {
	Agent     AgentName     `json:"agent"`
	Operation string        `json:"operation"`
	Duration  time.Duration `json:"duration"`
	Success   bool          `json:"success"`
	Error     string        `json:"error,omitempty"`
	Timestamp time.Time     `json:"timestamp"`
}

// AgentStats summarizes an agent's recent calls
type AgentStats struct {
	Total        int           `json:"total"`
	Successes    int           `json:"successes"`
	SuccessRate  float64       `json:"success_rate"`
	AvgLatency   time.Duration `json:"avg_latency"`
	LastActivity time.Time     `json:"last_activity"`
}

// CommunicationLog is a bounded ring buffer of agent calls; the oldest entry
// is evicted once capacity is reached.
type CommunicationLog struct {
	mu       sync.RWMutex
	entries  []LogEntry
	start    int
	count    int
	capacity int
}

// NewCommunicationLog creates a log holding at most capacity entries
func NewCommunicationLog(capacity int) *CommunicationLog {
	if capacity <= 0 {
		capacity = DefaultLogCapacity
	}
	return &CommunicationLog{
		entries:  make([]LogEntry, capacity),
		capacity: capacity,
	}
}

// Record appends an entry
func (l *CommunicationLog) Record(entry LogEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.count < l.capacity {
		l.entries[(l.start+l.count)%l.capacity] = entry
		l.count++
		return
	}
	l.entries[l.start] = entry
	l.start = (l.start + 1) % l.capacity
}

// Entries returns the retained entries, oldest first
func (l *CommunicationLog) Entries() []LogEntry {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]LogEntry, l.count)
	for i := 0; i < l.count; i++ {
		out[i] = l.entries[(l.start+i)%l.capacity]
	}
	return out
}

func (l *CommunicationLog) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.count
}

func (l *CommunicationLog) Capacity() int {
	return l.capacity
}

// Stats derives success rate and mean latency for one agent from the retained window
func (l *CommunicationLog) Stats(agent AgentName) AgentStats {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var stats AgentStats
	var total time.Duration
	for i := 0; i < l.count; i++ {
		e := l.entries[(l.start+i)%l.capacity]
		if e.Agent != agent {
			continue
		}
		stats.Total++
		total += e.Duration
		if e.Success {
			stats.Successes++
		}
		if e.Timestamp.After(stats.LastActivity) {
			stats.LastActivity = e.Timestamp
		}
	}

	if stats.Total > 0 {
		stats.SuccessRate = float64(stats.Successes) / float64(stats.Total)
		stats.AvgLatency = total / time.Duration(stats.Total)
	}
	return stats
}

// Reset drops every entry
func (l *CommunicationLog) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.start = 0
	l.count = 0
	l.entries = make([]LogEntry, l.capacity)
}
