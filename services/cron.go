package services

import (
	"context"
	"time"

	"github.com/go-co-op/gocron"

	"eduvisor-backend/internal/logger"
)

// CronService runs the periodic maintenance jobs: the token budget
// scan and the index cache sweep.
type CronService struct {
	scheduler      *gocron.Scheduler
	alertEvaluator *AlertEvaluator
	vectorstore    *VectorstoreService
}

func NewCronService(alertEvaluator *AlertEvaluator, vectorstore *VectorstoreService) *CronService {
	return &CronService{
		scheduler:      gocron.NewScheduler(time.UTC),
		alertEvaluator: alertEvaluator,
		vectorstore:    vectorstore,
	}
}

// Start registers the jobs and begins running them in the background.
func (c *CronService) Start() error {
	_, err := c.scheduler.Every(15).Minutes().Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		if err := c.alertEvaluator.ScanAllUsers(ctx); err != nil {
			logger.Error("token budget scan failed", "error", err)
		}
	})
	if err != nil {
		return err
	}

	_, err = c.scheduler.Every(30).Minutes().Do(func() {
		if removed := c.vectorstore.SweepExpired(); removed > 0 {
			logger.Info("swept expired index cache entries", "removed", removed)
		}
	})
	if err != nil {
		return err
	}

	c.scheduler.StartAsync()
	logger.Info("cron service started")
	return nil
}

// Stop halts all scheduled jobs.
func (c *CronService) Stop() {
	c.scheduler.Stop()
	logger.Info("cron service stopped")
}
