package services

import (
	"context"
	"fmt"

	"moneytrace/internal/core"
	"moneytrace/internal/events"
	"moneytrace/internal/ledger"
	"moneytrace/internal/log"
	"moneytrace/internal/storage"

	"golang.org/x/sync/errgroup"
)

// references are the lookups allocation validation needs.
type references struct {
	types   ledger.CategoryTypes
	parents map[int64]int64
}

// loadReferences resolves category types through the cache and subcategory
// parents from st. Outside a transaction both lookups run concurrently.
func (s *Service) loadReferences(ctx context.Context, st *storage.Store, inTx bool, userID int64, allocation []core.Allocation) (references, error) {
	var refs references
	catIDs := make([]int64, 0, len(allocation))
	subIDs := make([]int64, 0, len(allocation))
	for _, a := range allocation {
		catIDs = append(catIDs, a.CategoryID)
		subIDs = append(subIDs, a.SubCategoryID)
	}

	loadTypes := func(ctx context.Context) error {
		types, err := s.types.Resolve(ctx, userID, catIDs, st.CategoryTypes)
		refs.types = types
		return err
	}
	loadParents := func(ctx context.Context) error {
		parents, err := st.SubCategoryParents(ctx, userID, subIDs)
		refs.parents = parents
		return err
	}

	if inTx {
		if err := loadTypes(ctx); err != nil {
			return refs, err
		}
		return refs, loadParents(ctx)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return loadTypes(gctx) })
	g.Go(func() error { return loadParents(gctx) })
	return refs, g.Wait()
}

// checkAccounts verifies that the referenced accounts and vendor belong to
// the user.
func checkAccounts(ctx context.Context, st *storage.Store, userID int64, d ledger.Draft, vendorID *int64) error {
	if _, err := st.FindAccount(ctx, userID, d.AccountID); err != nil {
		return fmt.Errorf("source account %d: %w", d.AccountID, err)
	}
	if d.Type == core.Transfer && d.DestinationAccountID != nil && *d.DestinationAccountID > 0 {
		if _, err := st.FindAccount(ctx, userID, *d.DestinationAccountID); err != nil {
			return fmt.Errorf("destination account %d: %w", *d.DestinationAccountID, err)
		}
	}
	if vendorID != nil {
		if _, err := st.FindVendor(ctx, userID, *vendorID); err != nil {
			return fmt.Errorf("vendor %d: %w", *vendorID, err)
		}
	}
	return nil
}

// checkDraft runs the allocation rules plus the subcategory ownership check
// and returns every violation at once. It fills in the category type of a
// simple draft that did not declare one.
func (s *Service) checkDraft(ctx context.Context, st *storage.Store, inTx bool, userID int64, d *ledger.Draft) error {
	refs, err := s.loadReferences(ctx, st, inTx, userID, d.Allocation)
	if err != nil {
		return err
	}

	v := ledger.ValidateAllocation(*d, refs.types)
	for i, a := range d.Allocation {
		if parent, ok := refs.parents[a.SubCategoryID]; !ok || parent != a.CategoryID {
			v = append(v, fmt.Sprintf("entry %d: subcategory %d does not belong to category %d", i, a.SubCategoryID, a.CategoryID))
		}
	}
	if err := v.Err(); err != nil {
		return err
	}

	if d.Type == core.Simple && d.CategoryType == "" {
		d.CategoryType = ledger.ResolveCategoryType(d.Allocation, refs.types)
	}
	if d.Type == core.Transfer {
		d.CategoryType = ""
	}
	return nil
}

// checkOperation validates op against st and returns it normalized.
func (s *Service) checkOperation(ctx context.Context, st *storage.Store, inTx bool, op core.Operation) (core.Operation, error) {
	op.Date = core.DateOnly(op.Date)
	op.Allocation = core.CloneAllocation(op.Allocation)
	if err := op.Validate(); err != nil {
		return op, validation("operation", err)
	}

	d := ledger.DraftOf(op)
	if err := checkAccounts(ctx, st, op.UserID, d, op.VendorID); err != nil {
		return op, err
	}
	if err := s.checkDraft(ctx, st, inTx, op.UserID, &d); err != nil {
		return op, err
	}
	op.CategoryType = d.CategoryType
	return op, nil
}

// CreateOperation validates and stores op. Its balance effect is applied by
// the OperationCreated handler after commit.
func (s *Service) CreateOperation(ctx context.Context, op core.Operation) (core.Operation, error) {
	op, err := s.checkOperation(ctx, s.store(), false, op)
	if err != nil {
		return op, err
	}

	err = s.uow.Execute(ctx, func(st *storage.Store) ([]events.Event, error) {
		var err error
		if op, err = st.AddOperation(ctx, op); err != nil {
			return nil, err
		}
		return []events.Event{events.OperationCreated{Operation: op}}, nil
	})
	if err != nil {
		return op, err
	}

	s.logger.InfoContext(ctx, "Operation created",
		log.FieldUserID, op.UserID, log.FieldID, op.ID,
		log.FieldAmount, core.FormatAmount(op.TotalAmount), "type", op.Type)
	return op, nil
}

// UpdateOperation replaces op as a whole, allocation included.
func (s *Service) UpdateOperation(ctx context.Context, op core.Operation) (core.Operation, error) {
	if op.ID <= 0 {
		return op, core.Validation("invalid operation", "operation not identified")
	}
	op, err := s.checkOperation(ctx, s.store(), false, op)
	if err != nil {
		return op, err
	}

	err = s.uow.Execute(ctx, func(st *storage.Store) ([]events.Event, error) {
		prev, err := st.FindOperation(ctx, op.UserID, op.ID)
		if err != nil {
			return nil, err
		}
		if op, err = st.UpdateOperation(ctx, op); err != nil {
			return nil, err
		}
		return []events.Event{events.OperationUpdated{Previous: prev, Current: op}}, nil
	})
	if err != nil {
		return op, err
	}

	s.logger.InfoContext(ctx, "Operation updated", log.FieldUserID, op.UserID, log.FieldID, op.ID)
	return op, nil
}

func (s *Service) DeleteOperation(ctx context.Context, userID, id int64) error {
	err := s.uow.Execute(ctx, func(st *storage.Store) ([]events.Event, error) {
		op, err := st.FindOperation(ctx, userID, id)
		if err != nil {
			return nil, err
		}
		if err := st.RemoveOperation(ctx, userID, id); err != nil {
			return nil, err
		}
		return []events.Event{events.OperationDeleted{Operation: op}}, nil
	})
	if err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "Operation deleted", log.FieldUserID, userID, log.FieldID, id)
	return nil
}

func (s *Service) GetOperation(ctx context.Context, userID, id int64) (core.Operation, error) {
	return s.store().FindOperation(ctx, userID, id)
}

func (s *Service) QueryOperations(ctx context.Context, userID int64, f storage.OperationFilter) ([]core.Operation, error) {
	if f.From != nil && f.To != nil && f.From.After(*f.To) {
		return nil, core.Validation("invalid criteria", "from date is after to date")
	}
	return s.store().QueryOperations(ctx, userID, f)
}
