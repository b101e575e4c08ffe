package workers

import (
	"context"
	"log/slog"
	"os"
	"time"

	"pair-relay/observability"

	"github.com/shirou/gopsutil/process"
)

// HeartbeatWorker periodically samples the room and the process
// and publishes the result to the monitoring manager.
type HeartbeatWorker struct {
	log        *slog.Logger
	room       func() observability.RoomStats
	monitoring *observability.MonitoringManager
	interval   time.Duration
}

func NewHeartbeatWorker(
	log *slog.Logger,
	room func() observability.RoomStats,
	monitoring *observability.MonitoringManager,
	interval time.Duration,
) *HeartbeatWorker {
	return &HeartbeatWorker{
		log:        log,
		room:       room,
		monitoring: monitoring,
		interval:   interval,
	}
}

func (w *HeartbeatWorker) Run(ctx context.Context) error {
	w.log.Info("Starting heartbeat worker", "interval", w.interval)
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return err
	}

	w.beat(p)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			w.beat(p)
		}
	}
}

func (w *HeartbeatWorker) beat(p *process.Process) {
	stats, err := getSelfStats(p)
	if err != nil {
		w.log.Error("Failed to collect self stats", "err", err)
	}
	room := w.room()
	w.monitoring.Update(room, stats)
	w.log.Debug("Heartbeat",
		"participants", room.Participants,
		"messages", room.Messages,
		"cpu", stats.CPUPercent,
		"rss", stats.RSSBytes)
}

// getSelfStats retrieves memory, CPU and OS status for the given process.
// Whatever could be read is returned alongside the first error.
func getSelfStats(p *process.Process) (observability.ProcessStats, error) {
	stats := observability.ProcessStats{Pid: p.Pid}

	memInfo, err := p.MemoryInfo()
	if err != nil {
		return stats, err
	}
	stats.RSSBytes = memInfo.RSS

	cpuPercent, err := p.CPUPercent()
	if err != nil {
		return stats, err
	}
	stats.CPUPercent = cpuPercent

	status, err := p.Status()
	if err != nil {
		return stats, err
	}
	stats.Status = status
	return stats, nil
}
