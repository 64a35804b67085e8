package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/hirecraft/interview-engine/repository"
)

// SweepService runs the two background safety nets: the abandonment sweep
// that times out idle active sessions, and the scheduled reconciliation that
// repairs paid-but-locked retakes.
type SweepService struct {
	repo   *repository.GORMRepository
	broker *RetakeBroker
	cfg    SweepConfig

	cron *cron.Cron
	stop chan struct{}
	done chan struct{}
}

func NewSweepService(repo *repository.GORMRepository, broker *RetakeBroker, cfg SweepConfig) *SweepService {
	return &SweepService{
		repo:   repo,
		broker: broker,
		cfg:    cfg,
		cron:   cron.New(),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
}

// Start launches the abandonment ticker and schedules reconciliation.
func (s *SweepService) Start() error {
	if _, err := s.cron.AddFunc(s.cfg.ReconcileSchedule, s.runReconcile); err != nil {
		return err
	}
	s.cron.Start()
	go s.runAbandonmentLoop()
	slog.Info("Sweep service started",
		"interval", s.cfg.Interval, "idle_timeout", s.cfg.IdleTimeout,
		"reconcile_schedule", s.cfg.ReconcileSchedule)
	return nil
}

// Stop halts both sweeps and waits for the abandonment loop to exit.
func (s *SweepService) Stop() {
	close(s.stop)
	<-s.done
	ctx := s.cron.Stop()
	<-ctx.Done()
	slog.Info("Sweep service stopped")
}

func (s *SweepService) runAbandonmentLoop() {
	defer close(s.done)
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.SweepAbandoned(context.Background())
		}
	}
}

// SweepAbandoned times out active sessions idle past the cutoff. The
// conditional update re-checks the status so a session that received a
// message between the scan and the update is left alone.
func (s *SweepService) SweepAbandoned(ctx context.Context) int {
	cutoff := time.Now().Add(-s.cfg.IdleTimeout)
	idle, err := s.repo.ListIdleActiveSessions(ctx, cutoff)
	if err != nil {
		slog.Error("Abandonment sweep scan failed", "error", err)
		return 0
	}
	swept := 0
	for _, session := range idle {
		abandoned, err := s.repo.AbandonSessionIfActive(ctx, session.ID)
		if err != nil {
			slog.Error("Failed to abandon idle session", "session_id", session.ID, "error", err)
			continue
		}
		if abandoned {
			slog.Info("Abandoned idle session",
				"session_id", session.ID, "last_activity_at", session.LastActivityAt)
			swept++
		}
	}
	return swept
}

func (s *SweepService) runReconcile() {
	repaired, err := s.broker.Reconcile(context.Background())
	if err != nil {
		slog.Error("Retake reconciliation failed", "error", err)
		return
	}
	if repaired > 0 {
		slog.Warn("Retake reconciliation repaired sessions", "count", repaired)
	}
}
