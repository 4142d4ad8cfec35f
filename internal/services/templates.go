package services

import (
	"context"

	"moneytrace/internal/core"
	"moneytrace/internal/ledger"
	"moneytrace/internal/log"
	"moneytrace/internal/storage"
)

// checkTemplate applies the operation allocation rules to a template, so that
// any template materializes into a valid operation.
func (s *Service) checkTemplate(ctx context.Context, t core.Template) (core.Template, error) {
	t.Allocation = core.CloneAllocation(t.Allocation)
	if err := t.Validate(); err != nil {
		return t, validation("template", err)
	}
	d := ledger.DraftOfTemplate(t)
	st := s.store()
	if err := checkAccounts(ctx, st, t.UserID, d, t.VendorID); err != nil {
		return t, err
	}
	if err := s.checkDraft(ctx, st, false, t.UserID, &d); err != nil {
		return t, err
	}
	t.CategoryType = d.CategoryType
	return t, nil
}

func (s *Service) CreateTemplate(ctx context.Context, t core.Template) (core.Template, error) {
	t.IsEnabled = true
	t, err := s.checkTemplate(ctx, t)
	if err != nil {
		return t, err
	}
	err = s.repo.InTx(ctx, func(st *storage.Store) error {
		var err error
		t, err = st.AddTemplate(ctx, t)
		return err
	})
	if err != nil {
		return t, err
	}
	s.logger.InfoContext(ctx, "Template created", log.FieldUserID, t.UserID, log.FieldID, t.ID)
	return t, nil
}

func (s *Service) UpdateTemplate(ctx context.Context, t core.Template) (core.Template, error) {
	if t.ID <= 0 {
		return t, core.Validation("invalid template", "template not identified")
	}
	t, err := s.checkTemplate(ctx, t)
	if err != nil {
		return t, err
	}
	err = s.repo.InTx(ctx, func(st *storage.Store) error {
		var err error
		t, err = st.UpdateTemplate(ctx, t)
		return err
	})
	return t, err
}

func (s *Service) DeleteTemplate(ctx context.Context, userID, id int64) error {
	return s.store().RemoveTemplate(ctx, userID, id)
}

func (s *Service) GetTemplate(ctx context.Context, userID, id int64) (core.Template, error) {
	return s.store().FindTemplate(ctx, userID, id)
}

// ListTemplates returns the user's enabled templates.
func (s *Service) ListTemplates(ctx context.Context, userID int64) ([]core.Template, error) {
	return s.store().QueryTemplates(ctx, userID, true)
}

// NewOperationFromTemplate returns an unsaved operation built from the
// template and the overrides. Store it with CreateOperation.
func (s *Service) NewOperationFromTemplate(ctx context.Context, userID, templateID int64, o ledger.Overrides) (core.Operation, error) {
	t, err := s.store().FindTemplate(ctx, userID, templateID)
	if err != nil {
		return core.Operation{}, err
	}
	if o.TotalAmount != nil && !o.TotalAmount.IsPositive() {
		return core.Operation{}, core.Validation("invalid overrides", "total amount must be greater than 0")
	}
	return ledger.Materialize(t, o, s.now()), nil
}
