package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/alexanderdeibel-Fintutto/vermieter-freude-sub001/internal/database/repository"
	"github.com/alexanderdeibel-Fintutto/vermieter-freude-sub001/internal/logging"
)

const scheduledRunTimeout = 30 * time.Minute

// Scheduler periodically syncs every connection that is connected or failed
// on its last run.
type Scheduler struct {
	Sync        *SyncService
	Connections *repository.ConnectionRepo
	Logger      *zap.Logger

	mu      sync.Mutex
	cron    *cron.Cron
	running sync.Mutex
}

func NewScheduler(syncSvc *SyncService, conns *repository.ConnectionRepo, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{Sync: syncSvc, Connections: conns, Logger: logging.Or(logger, "scheduler")}
}

// Start registers the job with the given cron spec ("@every 6h", "0 3 * * *").
func (s *Scheduler) Start(spec string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cron != nil {
		return errors.New("scheduler already started")
	}
	c := cron.New(cron.WithLocation(time.UTC))
	if _, err := c.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), scheduledRunTimeout)
		defer cancel()
		s.RunOnce(ctx)
	}); err != nil {
		return fmt.Errorf("schedule bank sync %q: %w", spec, err)
	}
	c.Start()
	s.cron = c
	s.Logger.Info("bank sync scheduler started", zap.String("schedule", spec))
	return nil
}

// Stop waits for a running job to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	c := s.cron
	s.cron = nil
	s.mu.Unlock()
	if c == nil {
		return
	}
	<-c.Stop().Done()
}

// RunOnce syncs all eligible connections and returns how many sync calls ran.
// Overlapping runs are skipped.
func (s *Scheduler) RunOnce(ctx context.Context) int {
	if !s.running.TryLock() {
		s.Logger.Warn("previous bank sync still running, skipping")
		return 0
	}
	defer s.running.Unlock()

	var conns []repository.Connection
	for _, status := range []string{repository.ConnectionConnected, repository.ConnectionError} {
		list, err := s.Connections.ListByStatus(ctx, status)
		if err != nil {
			s.Logger.Error("list connections", zap.String("status", status), zap.Error(err))
			continue
		}
		conns = append(conns, list...)
	}

	runs := 0
	for _, c := range conns {
		if ctx.Err() != nil {
			break
		}
		runs++
		res, err := s.Sync.SyncOrganization(ctx, c.OrganizationID, SyncRequest{ConnectionID: c.ID})
		log := s.Logger.With(zap.String("connection_id", c.ID), zap.String("organization_id", c.OrganizationID))
		switch {
		case errors.Is(err, ErrNoAccountsFound):
			log.Debug("connection has no active accounts")
		case err != nil:
			log.Error("scheduled sync failed", zap.Error(err))
		case len(res.Failures) > 0:
			log.Warn("scheduled sync finished with failures", zap.Int("failures", len(res.Failures)))
		}
	}
	return runs
}
