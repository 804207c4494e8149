package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CompanyProvider lists the companies the sweeps run for
type CompanyProvider interface {
	ActiveCompanyIDs(ctx context.Context) ([]uuid.UUID, error)
}

// OverdueSweeper flags sent invoices whose due date has passed
type OverdueSweeper interface {
	MarkOverdueInvoices(ctx context.Context, now time.Time) (int, error)
}

// LeaseExpirer expires active leases past their agreed end date
type LeaseExpirer interface {
	ExpireLeases(ctx context.Context, companyID uuid.UUID, now time.Time) (int, error)
}

// SweepConfig holds configuration for the background sweeps
type SweepConfig struct {
	// Interval is how often the sweeps run
	Interval time.Duration
}

// DefaultSweepConfig returns default sweep configuration
func DefaultSweepConfig() SweepConfig {
	return SweepConfig{
		Interval: time.Hour,
	}
}

// SweepScheduler runs the overdue-invoice and lease-expiry sweeps on a
// fixed interval. Both sweeps are idempotent, so a missed or doubled run
// is harmless.
type SweepScheduler struct {
	config    SweepConfig
	companies CompanyProvider
	invoices  OverdueSweeper
	leases    LeaseExpirer
	logger    *zap.Logger

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
}

// NewSweepScheduler creates a new sweep scheduler
func NewSweepScheduler(
	config SweepConfig,
	companies CompanyProvider,
	invoices OverdueSweeper,
	leases LeaseExpirer,
	logger *zap.Logger,
) *SweepScheduler {
	if config.Interval <= 0 {
		config.Interval = DefaultSweepConfig().Interval
	}
	return &SweepScheduler{
		config:    config,
		companies: companies,
		invoices:  invoices,
		leases:    leases,
		logger:    logger,
	}
}

// Start starts the sweep scheduler
func (s *SweepScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = true
	s.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(1)
	go s.runLoop(ctx)

	s.logger.Info("Sweep scheduler started",
		zap.Duration("interval", s.config.Interval),
	)

	return nil
}

// Stop stops the sweep scheduler
func (s *SweepScheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("Sweep scheduler stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// runLoop runs the sweeps on every tick until the context is cancelled
func (s *SweepScheduler) runLoop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.RunOnce(ctx)
		}
	}
}

// RunOnce runs both sweeps immediately. Exposed so an operator endpoint
// can trigger a sweep without waiting for the next tick.
func (s *SweepScheduler) RunOnce(ctx context.Context) {
	now := time.Now()

	flagged, err := s.invoices.MarkOverdueInvoices(ctx, now)
	if err != nil {
		s.logger.Error("Overdue invoice sweep failed", zap.Error(err))
	} else if flagged > 0 {
		s.logger.Info("Overdue invoice sweep completed",
			zap.Int("flagged", flagged),
		)
	}

	companyIDs, err := s.companies.ActiveCompanyIDs(ctx)
	if err != nil {
		s.logger.Error("Failed to list companies for lease sweep", zap.Error(err))
		return
	}

	for _, companyID := range companyIDs {
		expired, err := s.leases.ExpireLeases(ctx, companyID, now)
		if err != nil {
			s.logger.Error("Lease expiry sweep failed",
				zap.String("company_id", companyID.String()),
				zap.Error(err),
			)
			continue
		}
		if expired > 0 {
			s.logger.Info("Lease expiry sweep completed",
				zap.String("company_id", companyID.String()),
				zap.Int("expired", expired),
			)
		}
	}
}
