package observability

import (
	"log/slog"
	goruntime "runtime"
	"sync"
	"time"

	"pair-relay/domain"
)

// RoomStats is what the coordinator knows about the room at a given instant.
type RoomStats struct {
	Participants  int               `json:"participants"`
	Capacity      int               `json:"capacity"`
	Identities    []domain.Identity `json:"identities"`
	Messages      int               `json:"messages"`
	PendingTimers int               `json:"pending_timers"`
}

// ProcessStats are the relay's own OS-level figures.
type ProcessStats struct {
	Pid        int32   `json:"pid"`
	Status     string  `json:"status"`
	CPUPercent float64 `json:"cpu_percent"`
	RSSBytes   uint64  `json:"rss_bytes"`
	AllocMemMb uint64  `json:"alloc_mem_mb"`
	NumGC      uint32  `json:"num_gc"`
	Goroutines int     `json:"goroutines"`
}

// MonitoringStats is served on /debug/stats
type MonitoringStats struct {
	Room      RoomStats    `json:"room"`
	Process   ProcessStats `json:"process"`
	Uptime    string       `json:"uptime"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// MonitoringManager keeps the latest snapshot pushed by the heartbeat worker.
type MonitoringManager struct {
	log       *slog.Logger
	mu        sync.RWMutex
	latest    MonitoringStats
	startedAt time.Time
}

func NewMonitoringManager(log *slog.Logger) *MonitoringManager {
	return &MonitoringManager{
		log:       log,
		startedAt: time.Now(),
		latest: MonitoringStats{
			Room: RoomStats{Identities: make([]domain.Identity, 0)},
		},
	}
}

// Update stores a new snapshot, completing the process figures with Go runtime data.
func (mm *MonitoringManager) Update(room RoomStats, process ProcessStats) {
	var m goruntime.MemStats
	goruntime.ReadMemStats(&m)
	process.AllocMemMb = m.Alloc / 1024 / 1024
	process.NumGC = m.NumGC
	process.Goroutines = goruntime.NumGoroutine()

	now := time.Now()
	mm.mu.Lock()
	defer mm.mu.Unlock()
	mm.latest = MonitoringStats{
		Room:      room,
		Process:   process,
		Uptime:    now.Sub(mm.startedAt).Round(time.Second).String(),
		UpdatedAt: now.UTC(),
	}

	mm.log.Debug("Stats updated",
		"participants", room.Participants,
		"messages", room.Messages,
		"timers", room.PendingTimers,
		"rss", process.RSSBytes,
		"goroutines", process.Goroutines,
	)
}

func (mm *MonitoringManager) GetLatest() MonitoringStats {
	mm.mu.RLock()
	defer mm.mu.RUnlock()
	return mm.latest
}
