/*
scheduler.go - Automated week generation scheduler

PURPOSE:
  Periodically ensures the upcoming week's templated shifts exist so
  staff can book ahead without waiting for an admin to generate them.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - Generates next week's shifts from the templates (idempotent:
    existing date/type combinations and holidays are skipped)
  - Attributed to the system actor in the audit trail

CONFIGURATION:
  - CheckInterval: How often to check (default: 1 hour)
  - Horizon:       How many weeks ahead to keep generated (default: 1)
  - Enabled:       Whether scheduler is active (default: true)

USAGE:
  scheduler := NewWeekScheduler(catalog, logger)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - handlers.go: GenerateWeek endpoint (manual generation)
  - schedule/catalog.go: Catalog.GenerateWeek
*/
package api

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/warp/shift-engine/schedule"
)

// WeekScheduler keeps upcoming weeks populated with templated shifts.
type WeekScheduler struct {
	Catalog       *schedule.Catalog
	CheckInterval time.Duration
	Horizon       int
	Enabled       bool

	log    *zap.Logger
	ticker *time.Ticker
	stop   chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewWeekScheduler creates a new scheduler.
func NewWeekScheduler(catalog *schedule.Catalog, log *zap.Logger) *WeekScheduler {
	return &WeekScheduler{
		Catalog:       catalog,
		CheckInterval: 1 * time.Hour,
		Horizon:       1,
		Enabled:       true,
		log:           log,
		stop:          make(chan struct{}),
	}
}

// Start begins the scheduler.
func (ws *WeekScheduler) Start() {
	ws.mu.Lock()
	defer ws.mu.Unlock()

	if !ws.Enabled {
		ws.log.Info("week scheduler disabled, not starting")
		return
	}

	ws.ticker = time.NewTicker(ws.CheckInterval)
	ws.wg.Add(1)

	go ws.run()

	ws.log.Info("week scheduler started", zap.Duration("interval", ws.CheckInterval))
}

// Stop stops the scheduler.
func (ws *WeekScheduler) Stop() {
	ws.mu.Lock()
	defer ws.mu.Unlock()

	if ws.ticker != nil {
		ws.ticker.Stop()
		close(ws.stop)
		ws.wg.Wait()
		ws.log.Info("week scheduler stopped")
	}
}

func (ws *WeekScheduler) run() {
	defer ws.wg.Done()

	// Run immediately on start
	ws.generateUpcoming()

	for {
		select {
		case <-ws.ticker.C:
			ws.generateUpcoming()
		case <-ws.stop:
			return
		}
	}
}

func (ws *WeekScheduler) generateUpcoming() {
	ctx := context.Background()

	for week := 1; week <= ws.Horizon; week++ {
		weekStart := schedule.WeekStart(schedule.Today().AddDays(7 * week))
		created, err := ws.Catalog.GenerateWeek(ctx, schedule.System, weekStart, nil)
		if err != nil {
			ws.log.Error("week generation failed",
				zap.String("weekStart", weekStart.String()), zap.Error(err))
			continue
		}
		if len(created) > 0 {
			ws.log.Info("generated upcoming shifts",
				zap.String("weekStart", weekStart.String()), zap.Int("count", len(created)))
		}
	}
}

// RunNow triggers an immediate check (for testing/admin).
func (ws *WeekScheduler) RunNow() {
	ws.generateUpcoming()
}
