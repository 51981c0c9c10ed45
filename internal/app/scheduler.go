package app

import (
	"context"
	"log"
	"time"

	"github.com/robfig/cron/v3"
)

const jobTimeout = 5 * time.Minute

// SchedulerConfig holds the cron expressions for the maintenance jobs. An empty schedule
// disables the job.
type SchedulerConfig struct {
	RewardReconcileSchedule     string
	RewardReconcileBatchSize    int
	NotificationCleanupSchedule string
	NotificationRetention       time.Duration
}

// Scheduler runs periodic maintenance jobs against the service.
type Scheduler struct {
	cron    *cron.Cron
	service *Service
	config  SchedulerConfig
}

func NewScheduler(service *Service, cfg SchedulerConfig) *Scheduler {
	c := cron.New(cron.WithChain(cron.Recover(cron.PrintfLogger(log.Default()))))
	return &Scheduler{
		cron:    c,
		service: service,
		config:  cfg,
	}
}

// Start registers the jobs and starts the cron scheduler.
func (s *Scheduler) Start() {
	s.schedule("reward_reconcile", s.config.RewardReconcileSchedule, s.reconcileRewards)
	s.schedule("notification_cleanup", s.config.NotificationCleanupSchedule, s.cleanupNotifications)
	s.cron.Start()
}

// Stop halts the scheduler; the returned context is done once running jobs finish.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}

func (s *Scheduler) schedule(name, spec string, job func()) {
	if spec == "" {
		log.Printf("level=info component=scheduler job=%s msg=\"job disabled\"", name)
		return
	}
	if _, err := s.cron.AddFunc(spec, job); err != nil {
		log.Printf("level=error component=scheduler job=%s schedule=%q msg=\"failed to schedule job\" err=%v", name, spec, err)
		return
	}
	log.Printf("level=info component=scheduler job=%s schedule=%q msg=\"scheduled job\"", name, spec)
}

func (s *Scheduler) reconcileRewards() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	result, err := s.service.ReconcilePendingRewards(ctx, s.config.RewardReconcileBatchSize)
	if err != nil {
		log.Printf("level=error component=scheduler job=reward_reconcile msg=\"job failed\" err=%v", err)
		return
	}
	log.Printf("level=info component=scheduler job=reward_reconcile msg=\"job finished\" processed=%d credited=%d skipped=%d failed=%d", result.Processed, result.Credited, result.Skipped, result.Failed)
}

func (s *Scheduler) cleanupNotifications() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	removed, err := s.service.CleanupReadNotifications(ctx, s.config.NotificationRetention)
	if err != nil {
		log.Printf("level=error component=scheduler job=notification_cleanup msg=\"job failed\" err=%v", err)
		return
	}
	log.Printf("level=info component=scheduler job=notification_cleanup msg=\"job finished\" removed=%d", removed)
}
