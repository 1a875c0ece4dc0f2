package scheduler

import (
	"log"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/strategiz/alert-monitor/models"
	"github.com/strategiz/alert-monitor/services/alerts"
)

// Tier cadences are fixed-delay, each with a distinct startup stagger so
// the tiers do not all fire at once on process start. The monitor's own
// guard keeps passes from overlapping; a tier whose timer fires during
// another pass skips that invocation.
const (
	proInterval     = 1 * time.Minute
	starterInterval = 5 * time.Minute
	freeInterval    = 15 * time.Minute

	proStagger     = 30 * time.Second
	starterStagger = 60 * time.Second
	freeStagger    = 120 * time.Second
)

// Scheduler manages the recurring tier evaluation jobs
type Scheduler struct {
	cron    *gocron.Scheduler
	monitor *alerts.Monitor
}

// NewScheduler creates a scheduler driving the given monitor
func NewScheduler(monitor *alerts.Monitor) *Scheduler {
	return &Scheduler{
		cron:    gocron.NewScheduler(time.UTC),
		monitor: monitor,
	}
}

// Start registers the three tier jobs and starts them asynchronously
func (s *Scheduler) Start() {
	log.Println("Starting tier scheduler...")

	now := time.Now()

	s.cron.Every(proInterval).StartAt(now.Add(proStagger)).Do(func() {
		s.monitor.RunTierPass(models.TierPro)
	})

	s.cron.Every(starterInterval).StartAt(now.Add(starterStagger)).Do(func() {
		s.monitor.RunTierPass(models.TierStarter)
	})

	s.cron.Every(freeInterval).StartAt(now.Add(freeStagger)).Do(func() {
		s.monitor.RunTierPass(models.TierFree)
	})

	s.cron.StartAsync()
	log.Println("Tier scheduler started (PRO: 1m, STARTER: 5m, FREE: 15m)")
}

// Stop stops all scheduled jobs
func (s *Scheduler) Stop() {
	s.cron.Stop()
	log.Println("Tier scheduler stopped")
}
