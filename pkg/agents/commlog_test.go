package agents

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCommunicationLogEvictsOldest(t *testing.T) {
	log := NewCommunicationLog(3)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		log.Record(LogEntry{Agent: ContractAnalyzer, Operation: "op", Timestamp: base.Add(time.Duration(i) * time.Second)})
	}

	entries := log.Entries()
	assert.Equal(t, 3, log.Len())
	assert.Equal(t, 3, log.Capacity())
	assert.Equal(t, base.Add(2*time.Second), entries[0].Timestamp)
	assert.Equal(t, base.Add(4*time.Second), entries[2].Timestamp)
}

func TestCommunicationLogDefaultCapacity(t *testing.T) {
	log := NewCommunicationLog(0)
	for i := 0; i < DefaultLogCapacity+10; i++ {
		log.Record(LogEntry{Agent: ProgressAnalyzer})
	}
	assert.Equal(t, DefaultLogCapacity, log.Len())
}

func TestCommunicationLogStats(t *testing.T) {
	log := NewCommunicationLog(10)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	log.Record(LogEntry{Agent: EmotionalAnalyzer, Duration: 100 * time.Millisecond, Success: true, Timestamp: base})
	log.Record(LogEntry{Agent: EmotionalAnalyzer, Duration: 300 * time.Millisecond, Success: false, Timestamp: base.Add(time.Minute)})
	log.Record(LogEntry{Agent: ContractAnalyzer, Duration: time.Second, Success: true, Timestamp: base})

	stats := log.Stats(EmotionalAnalyzer)
	assert.Equal(t, 2, stats.Total)
	assert.Equal(t, 1, stats.Successes)
	assert.InDelta(t, 0.5, stats.SuccessRate, 1e-9)
	assert.Equal(t, 200*time.Millisecond, stats.AvgLatency)
	assert.Equal(t, base.Add(time.Minute), stats.LastActivity)

	assert.Equal(t, AgentStats{}, log.Stats(MediationAnalyzer))

	log.Reset()
	assert.Equal(t, 0, log.Len())
}
