// Package services implements the ledger's commands and queries on top of
// storage, and the event handlers that keep derived state consistent.
package services

import (
	"time"

	"moneytrace/internal/cache"
	"moneytrace/internal/core"
	"moneytrace/internal/events"
	"moneytrace/internal/log"
	"moneytrace/internal/storage"
)

// Options tunes a Service. Zero values pick defaults.
type Options struct {
	Retry         RetryOptions
	CategoryCache *cache.CategoryTypes
	Logger        *log.Logger
	Now           func() time.Time
}

// Service is the entry point for every ledger command and query.
type Service struct {
	repo       *storage.SQLiteRepository
	uow        *UnitOfWork
	dispatcher *events.Dispatcher
	types      *cache.CategoryTypes
	retry      RetryOptions
	logger     *log.Logger
	now        func() time.Time
}

// New builds the service and registers the ledger's own event handlers
// (balance adjustment and user provisioning) on dispatcher.
func New(repo *storage.SQLiteRepository, dispatcher *events.Dispatcher, opts Options) *Service {
	if opts.Logger == nil {
		opts.Logger = log.New(log.DefaultConfig())
	}
	if opts.CategoryCache == nil {
		opts.CategoryCache = cache.NewCategoryTypes(1024, 5*time.Minute)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if dispatcher == nil {
		dispatcher = events.NewDispatcher(opts.Logger)
	}
	s := &Service{
		repo:       repo,
		uow:        NewUnitOfWork(repo, dispatcher),
		dispatcher: dispatcher,
		types:      opts.CategoryCache,
		retry:      opts.Retry,
		logger:     opts.Logger,
		now:        opts.Now,
	}
	s.registerHandlers()
	return s
}

func (s *Service) registerHandlers() {
	balance := &BalanceHandler{repo: s.repo, retry: s.retry, logger: s.logger.WithComponent(log.ComponentBalance)}
	events.Register(s.dispatcher, balance.OnOperationCreated)
	events.Register(s.dispatcher, balance.OnOperationUpdated)
	events.Register(s.dispatcher, balance.OnOperationDeleted)

	provision := &Provisioner{repo: s.repo, logger: s.logger.WithComponent(log.ComponentProvision)}
	events.Register(s.dispatcher, provision.OnUserCreated)
}

// Dispatcher exposes the event table so callers can add integration handlers.
func (s *Service) Dispatcher() *events.Dispatcher {
	return s.dispatcher
}

func (s *Service) today() time.Time {
	return core.DateOnly(s.now())
}

// validation wraps a coarse field check into a Validation error.
func validation(what string, err error) error {
	if err == nil {
		return nil
	}
	return core.Validation("invalid "+what, err.Error())
}

func (s *Service) store() *storage.Store {
	return s.repo.Store()
}
