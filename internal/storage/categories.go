package storage

import (
	"context"

	"moneytrace/internal/core"
)

// AddCategory inserts a category with its subcategories.
func (s *Store) AddCategory(ctx context.Context, c core.Category) (core.Category, error) {
	res, err := s.q.ExecContext(ctx,
		`INSERT INTO categories (user_id, name, type, is_enabled) VALUES (?, ?, ?, ?)`,
		c.UserID, c.Name, string(c.Type), c.IsEnabled)
	if err != nil {
		return c, mapErr(err, "category")
	}
	if c.ID, err = res.LastInsertId(); err != nil {
		return c, core.Failure("category id", err)
	}
	for i := range c.SubCategories {
		sub, err := s.AddSubCategory(ctx, c.ID, c.SubCategories[i])
		if err != nil {
			return c, err
		}
		c.SubCategories[i] = sub
	}
	return c, nil
}

func (s *Store) AddSubCategory(ctx context.Context, categoryID int64, sub core.SubCategory) (core.SubCategory, error) {
	sub.CategoryID = categoryID
	res, err := s.q.ExecContext(ctx,
		`INSERT INTO sub_categories (category_id, name, is_enabled) VALUES (?, ?, ?)`,
		categoryID, sub.Name, sub.IsEnabled)
	if err != nil {
		return sub, mapErr(err, "subcategory")
	}
	if sub.ID, err = res.LastInsertId(); err != nil {
		return sub, core.Failure("subcategory id", err)
	}
	return sub, nil
}

func (s *Store) FindCategory(ctx context.Context, userID, id int64) (core.Category, error) {
	var c core.Category
	var typ string
	err := s.q.QueryRowContext(ctx,
		`SELECT id, user_id, name, type, is_enabled FROM categories WHERE id = ? AND user_id = ?`, id, userID).
		Scan(&c.ID, &c.UserID, &c.Name, &typ, &c.IsEnabled)
	if err != nil {
		return c, mapErr(err, "category")
	}
	c.Type = core.CategoryType(typ)
	subs, err := s.subCategories(ctx, c.ID)
	c.SubCategories = subs
	return c, err
}

func (s *Store) subCategories(ctx context.Context, categoryID int64) ([]core.SubCategory, error) {
	rows, err := s.q.QueryContext(ctx,
		`SELECT id, category_id, name, is_enabled FROM sub_categories WHERE category_id = ? ORDER BY id`, categoryID)
	if err != nil {
		return nil, mapErr(err, "subcategories")
	}
	defer rows.Close()

	var out []core.SubCategory
	for rows.Next() {
		var sub core.SubCategory
		if err := rows.Scan(&sub.ID, &sub.CategoryID, &sub.Name, &sub.IsEnabled); err != nil {
			return nil, mapErr(err, "subcategories")
		}
		out = append(out, sub)
	}
	return out, mapErr(rows.Err(), "subcategories")
}

// QueryCategories returns the user's categories with their subcategories.
func (s *Store) QueryCategories(ctx context.Context, userID int64) ([]core.Category, error) {
	rows, err := s.q.QueryContext(ctx,
		`SELECT id, user_id, name, type, is_enabled FROM categories WHERE user_id = ? ORDER BY name`, userID)
	if err != nil {
		return nil, mapErr(err, "categories")
	}
	var out []core.Category
	for rows.Next() {
		var c core.Category
		var typ string
		if err := rows.Scan(&c.ID, &c.UserID, &c.Name, &typ, &c.IsEnabled); err != nil {
			rows.Close()
			return nil, mapErr(err, "categories")
		}
		c.Type = core.CategoryType(typ)
		out = append(out, c)
	}
	err = rows.Err()
	rows.Close()
	if err != nil {
		return nil, mapErr(err, "categories")
	}

	for i := range out {
		if out[i].SubCategories, err = s.subCategories(ctx, out[i].ID); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// CategoryTypes resolves the type of each of the user's categories in ids.
// Unknown or foreign ids are absent from the result.
func (s *Store) CategoryTypes(ctx context.Context, userID int64, ids []int64) (map[int64]core.CategoryType, error) {
	out := make(map[int64]core.CategoryType, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	args := append([]any{userID}, int64Args(ids)...)
	rows, err := s.q.QueryContext(ctx,
		`SELECT id, type FROM categories WHERE user_id = ? AND id IN (`+placeholders(len(ids))+`)`, args...)
	if err != nil {
		return nil, mapErr(err, "categories")
	}
	defer rows.Close()
	for rows.Next() {
		var id int64
		var typ string
		if err := rows.Scan(&id, &typ); err != nil {
			return nil, mapErr(err, "categories")
		}
		out[id] = core.CategoryType(typ)
	}
	return out, mapErr(rows.Err(), "categories")
}

// SubCategoryParents maps each of the user's subcategory ids to its category.
func (s *Store) SubCategoryParents(ctx context.Context, userID int64, ids []int64) (map[int64]int64, error) {
	out := make(map[int64]int64, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	args := append([]any{userID}, int64Args(ids)...)
	rows, err := s.q.QueryContext(ctx,
		`SELECT s.id, s.category_id FROM sub_categories s JOIN categories c ON c.id = s.category_id
		 WHERE c.user_id = ? AND s.id IN (`+placeholders(len(ids))+`)`, args...)
	if err != nil {
		return nil, mapErr(err, "subcategories")
	}
	defer rows.Close()
	for rows.Next() {
		var id, parent int64
		if err := rows.Scan(&id, &parent); err != nil {
			return nil, mapErr(err, "subcategories")
		}
		out[id] = parent
	}
	return out, mapErr(rows.Err(), "subcategories")
}

// CategoryNames returns id to name for every category of the user.
func (s *Store) CategoryNames(ctx context.Context, userID int64) (map[int64]string, error) {
	rows, err := s.q.QueryContext(ctx, `SELECT id, name FROM categories WHERE user_id = ?`, userID)
	if err != nil {
		return nil, mapErr(err, "categories")
	}
	defer rows.Close()
	out := make(map[int64]string)
	for rows.Next() {
		var id int64
		var name string
		if err := rows.Scan(&id, &name); err != nil {
			return nil, mapErr(err, "categories")
		}
		out[id] = name
	}
	return out, mapErr(rows.Err(), "categories")
}
