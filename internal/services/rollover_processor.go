package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"moneytrace/internal/log"
)

// RolloverProcessorConfig holds configuration for the rollover processor
type RolloverProcessorConfig struct {
	// Interval is how often expired budgets are rolled over (default: 1h)
	Interval time.Duration
}

// DefaultRolloverProcessorConfig returns sensible defaults
func DefaultRolloverProcessorConfig() RolloverProcessorConfig {
	return RolloverProcessorConfig{
		Interval: time.Hour,
	}
}

// RolloverProcessor periodically creates successor budgets for expired ones
// and reports overdue bills.
type RolloverProcessor struct {
	svc    *Service
	config RolloverProcessorConfig
	logger *log.Logger

	// Lifecycle management
	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

func NewRolloverProcessor(svc *Service, config RolloverProcessorConfig) *RolloverProcessor {
	if config.Interval <= 0 {
		config.Interval = DefaultRolloverProcessorConfig().Interval
	}
	p := &RolloverProcessor{svc: svc, config: config}
	if svc != nil {
		p.logger = svc.logger.WithComponent(log.ComponentBudget)
	} else {
		p.logger = log.New(log.DefaultConfig()).WithComponent(log.ComponentBudget)
	}
	return p
}

// Start begins the processing loop. Returns an error if already running.
func (p *RolloverProcessor) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return fmt.Errorf("rollover processor is already running")
	}
	p.running = true
	p.stopCh = make(chan struct{})
	p.doneCh = make(chan struct{})
	p.mu.Unlock()

	go p.runLoop(ctx)

	p.logger.InfoContext(ctx, "Rollover processor started", "interval", p.config.Interval)
	return nil
}

// Stop gracefully stops the processor and waits for completion.
func (p *RolloverProcessor) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	p.mu.Unlock()

	close(p.stopCh)

	select {
	case <-p.doneCh:
		p.logger.InfoContext(ctx, "Rollover processor stopped gracefully")
	case <-ctx.Done():
		p.logger.WarnContext(ctx, "Rollover processor stop timed out")
		return ctx.Err()
	}

	p.mu.Lock()
	p.running = false
	p.mu.Unlock()

	return nil
}

// IsRunning returns whether the processor is currently running
func (p *RolloverProcessor) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// Wait blocks until the loop exits or ctx is done.
func (p *RolloverProcessor) Wait(ctx context.Context) error {
	p.mu.Lock()
	done := p.doneCh
	p.mu.Unlock()
	if done == nil {
		return nil
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *RolloverProcessor) runLoop(ctx context.Context) {
	defer close(p.doneCh)

	ticker := time.NewTicker(p.config.Interval)
	defer ticker.Stop()

	// Process immediately on startup
	p.RunOnce(ctx)

	for {
		select {
		case <-p.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.RunOnce(ctx)
		}
	}
}

// RunOnce rolls over expired budgets and reports overdue bills.
func (p *RolloverProcessor) RunOnce(ctx context.Context) {
	created, err := p.svc.RolloverExpired(ctx)
	if err != nil {
		p.logger.ErrorContext(ctx, "Budget rollover failed", log.FieldError, err)
	} else if created > 0 {
		p.logger.InfoContext(ctx, "Budgets rolled over", "created", created)
	}

	if _, err := p.svc.ProcessOverdueBills(ctx); err != nil {
		p.logger.ErrorContext(ctx, "Overdue bill check failed", log.FieldError, err)
	}
}
