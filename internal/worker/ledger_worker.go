// Package worker reacts to ledger events published on the broker and runs the
// periodic budget jobs.
package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"moneytrace/internal/amqp"
	"moneytrace/internal/backend"
	"moneytrace/internal/core"
	"moneytrace/internal/events"
	"moneytrace/internal/log"
	"moneytrace/internal/services"

	"golang.org/x/sync/errgroup"
)

// EventConsumer delivers broker messages until ctx is done.
type EventConsumer interface {
	ConsumeEvents(ctx context.Context, handler func(context.Context, *amqp.LedgerEventMessage) error) error
}

// LedgerWorker keeps exported budget reports in step with committed events.
type LedgerWorker struct {
	svc     *services.Service
	reports backend.Backend
	logger  *log.Logger
}

func NewLedgerWorker(svc *services.Service, reports backend.Backend, logger *log.Logger) *LedgerWorker {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &LedgerWorker{
		svc:     svc,
		reports: reports,
		logger:  logger.WithComponent(log.ComponentWorker),
	}
}

// HandleEvent processes a single ledger event message. Operation events
// re-export the budgets covering the days they touched; a new budget is
// exported right away. Other events need no work here.
func (w *LedgerWorker) HandleEvent(ctx context.Context, msg *amqp.LedgerEventMessage) error {
	w.logger.InfoContext(ctx, "Processing ledger event",
		log.FieldEventID, msg.EventID,
		log.FieldEventName, msg.Name,
		log.FieldUserID, msg.UserID)

	switch msg.Name {
	case events.NameOperationCreated, events.NameOperationUpdated, events.NameOperationDeleted:
		return w.exportCovering(ctx, msg.UserID, msg.ParsedDates())
	case events.NameBudgetCreated:
		_, err := w.ExportBudget(ctx, msg.UserID, msg.EntityID)
		return err
	default:
		w.logger.DebugContext(ctx, "Event needs no report export", log.FieldEventName, msg.Name)
		return nil
	}
}

func (w *LedgerWorker) exportCovering(ctx context.Context, userID int64, days []time.Time) error {
	exported := make(map[int64]struct{}, len(days))
	for _, day := range days {
		b, err := w.svc.GetCurrentBudget(ctx, userID, day)
		if errors.Is(err, core.ErrNotFound) {
			w.logger.DebugContext(ctx, "No budget covers day", log.FieldUserID, userID, "date", day.Format(time.DateOnly))
			continue
		}
		if err != nil {
			return fmt.Errorf("find budget covering %s: %w", day.Format(time.DateOnly), err)
		}
		if _, done := exported[b.ID]; done {
			continue
		}
		if _, err := w.ExportBudget(ctx, userID, b.ID); err != nil {
			return err
		}
		exported[b.ID] = struct{}{}
	}
	return nil
}

// ExportBudget computes the budget report and writes it to the report sink.
// When the stored export already shows the same figures nothing is written
// and the returned ref is empty.
func (w *LedgerWorker) ExportBudget(ctx context.Context, userID, budgetID int64) (string, error) {
	report, err := w.svc.BudgetReport(ctx, userID, budgetID)
	if err != nil {
		return "", fmt.Errorf("compute report of budget %d: %w", budgetID, err)
	}

	stored, found, err := w.reports.ReadReport(ctx, report.StartDate.Year(), budgetID)
	switch {
	case err != nil:
		w.logger.WarnContext(ctx, "Failed to read exported report, exporting anyway",
			log.FieldBudgetID, budgetID, log.FieldError, err)
	case found && stored.SameFigures(report):
		w.logger.DebugContext(ctx, "Exported report is up to date",
			log.FieldUserID, userID, log.FieldBudgetID, budgetID)
		return "", nil
	}

	ref, err := w.reports.WriteReport(ctx, report)
	if err != nil {
		return "", fmt.Errorf("export report of budget %d: %w", budgetID, err)
	}
	w.logger.InfoContext(ctx, "Budget report exported",
		log.FieldUserID, userID,
		log.FieldBudgetID, budgetID,
		"ref", ref,
		"spent", core.FormatAmount(report.TotalSpent()))
	return ref, nil
}

// Run consumes events (when consumer is not nil) and runs the rollover
// processor until ctx is done or the consumer fails.
func (w *LedgerWorker) Run(ctx context.Context, consumer EventConsumer, processor *services.RolloverProcessor) error {
	g, gctx := errgroup.WithContext(ctx)

	if consumer != nil {
		g.Go(func() error {
			err := consumer.ConsumeEvents(gctx, w.HandleEvent)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	} else {
		w.logger.WarnContext(ctx, "AMQP not configured, reports are only refreshed by the rollover job")
	}

	if processor != nil {
		g.Go(func() error {
			if err := processor.Start(gctx); err != nil {
				return err
			}
			<-gctx.Done()
			stopCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), 10*time.Second)
			defer cancel()
			return processor.Stop(stopCtx)
		})
	}

	return g.Wait()
}
