package app

import (
	"testing"
	"time"
)

func TestScheduler_RegistersConfiguredJobs(t *testing.T) {
	service, _ := newTestService(t)

	tests := []struct {
		name string
		cfg  SchedulerConfig
		want int
	}{
		{name: "both jobs", cfg: SchedulerConfig{RewardReconcileSchedule: "@every 5m", NotificationCleanupSchedule: "@daily"}, want: 2},
		{name: "cleanup disabled", cfg: SchedulerConfig{RewardReconcileSchedule: "@every 5m"}, want: 1},
		{name: "invalid expression skipped", cfg: SchedulerConfig{RewardReconcileSchedule: "not a schedule", NotificationCleanupSchedule: "0 3 * * *"}, want: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scheduler := NewScheduler(service, tt.cfg)
			scheduler.Start()
			defer func() {
				select {
				case <-scheduler.Stop().Done():
				case <-time.After(time.Second):
					t.Fatalf("scheduler did not stop")
				}
			}()

			if got := len(scheduler.cron.Entries()); got != tt.want {
				t.Fatalf("expected %d scheduled jobs, got %d", tt.want, got)
			}
		})
	}
}

func TestScheduler_JobsRunAgainstService(t *testing.T) {
	service, _ := newTestService(t)
	scheduler := NewScheduler(service, SchedulerConfig{RewardReconcileBatchSize: 10, NotificationRetention: time.Hour})

	scheduler.reconcileRewards()
	scheduler.cleanupNotifications()
}
