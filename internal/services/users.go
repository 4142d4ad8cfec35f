package services

import (
	"context"
	"strings"

	"moneytrace/internal/core"
	"moneytrace/internal/events"
	"moneytrace/internal/log"
	"moneytrace/internal/storage"
)

// CreateUser stores a user and raises UserCreated, whose handler provisions
// the default accounts and categories.
func (s *Service) CreateUser(ctx context.Context, u core.User) (core.User, error) {
	u.Name = strings.TrimSpace(u.Name)
	u.Email = strings.TrimSpace(u.Email)
	if err := validateStruct("user", u); err != nil {
		return u, err
	}
	if u.DateFormat == "" {
		u.DateFormat = "2006-01-02"
	}
	if u.TimeZone == "" {
		u.TimeZone = "UTC"
	}
	u.IsEnabled = true

	err := s.uow.Execute(ctx, func(st *storage.Store) ([]events.Event, error) {
		var err error
		if u, err = st.AddUser(ctx, u); err != nil {
			return nil, err
		}
		return []events.Event{events.UserCreated{User: u}}, nil
	})
	if err != nil {
		return u, err
	}

	s.logger.InfoContext(ctx, "User created", log.FieldUserID, u.ID)
	return u, nil
}

func (s *Service) GetUser(ctx context.Context, id int64) (core.User, error) {
	return s.store().FindUser(ctx, id)
}
