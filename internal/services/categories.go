package services

import (
	"context"
	"strings"

	"moneytrace/internal/core"
	"moneytrace/internal/log"
	"moneytrace/internal/storage"
)

// CreateCategory stores a category and its subcategories atomically.
func (s *Service) CreateCategory(ctx context.Context, userID int64, name string, typ core.CategoryType, subNames []string) (core.Category, error) {
	c := core.Category{UserID: userID, Name: strings.TrimSpace(name), Type: typ, IsEnabled: true}
	for _, sub := range subNames {
		c.SubCategories = append(c.SubCategories, core.SubCategory{Name: strings.TrimSpace(sub), IsEnabled: true})
	}
	if err := c.Validate(); err != nil {
		return c, validation("category", err)
	}

	err := s.repo.InTx(ctx, func(st *storage.Store) error {
		var err error
		c, err = st.AddCategory(ctx, c)
		return err
	})
	if err != nil {
		return c, err
	}
	s.types.Invalidate(userID)

	s.logger.InfoContext(ctx, "Category created", log.FieldUserID, userID, log.FieldID, c.ID, "type", c.Type)
	return c, nil
}

// AddSubCategory adds a subcategory to one of the user's categories.
func (s *Service) AddSubCategory(ctx context.Context, userID, categoryID int64, name string) (core.SubCategory, error) {
	sub := core.SubCategory{Name: strings.TrimSpace(name), IsEnabled: true}
	if sub.Name == "" {
		return sub, validation("subcategory", core.ErrEmptyName)
	}
	if _, err := s.store().FindCategory(ctx, userID, categoryID); err != nil {
		return sub, err
	}
	sub, err := s.store().AddSubCategory(ctx, categoryID, sub)
	if err != nil {
		return sub, err
	}
	s.types.Invalidate(userID)
	return sub, nil
}

func (s *Service) GetCategory(ctx context.Context, userID, id int64) (core.Category, error) {
	return s.store().FindCategory(ctx, userID, id)
}

func (s *Service) ListCategories(ctx context.Context, userID int64) ([]core.Category, error) {
	return s.store().QueryCategories(ctx, userID)
}

func (s *Service) CreateVendor(ctx context.Context, userID int64, name string) (core.Vendor, error) {
	v := core.Vendor{UserID: userID, Name: strings.TrimSpace(name), IsEnabled: true}
	if v.Name == "" {
		return v, validation("vendor", core.ErrEmptyName)
	}
	return s.store().AddVendor(ctx, v)
}

func (s *Service) ListVendors(ctx context.Context, userID int64) ([]core.Vendor, error) {
	return s.store().QueryVendors(ctx, userID)
}
