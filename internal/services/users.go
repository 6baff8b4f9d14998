package services

import (
	"context"
	"fmt"

	"renovo/internal/core"
)

type UserService struct{ *deps }

func (s *UserService) Create(ctx context.Context, in core.CreateUserInput) (core.User, error) {
	in.Normalize()
	if err := in.Validate(); err != nil {
		return core.User{}, err
	}
	u, err := s.store.CreateUser(ctx, core.User{
		Email:             in.Email,
		Name:              in.Name,
		PreferredLanguage: in.PreferredLanguage,
		PreferredCurrency: in.PreferredCurrency,
	})
	if err != nil {
		return core.User{}, fmt.Errorf("create user: %w", err)
	}
	return u, nil
}

func (s *UserService) List(ctx context.Context) ([]core.User, error) {
	users, err := s.store.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

func (s *UserService) Get(ctx context.Context, id int64) (core.User, error) {
	if id <= 0 {
		return core.User{}, core.Validation("id", core.ErrMissingID)
	}
	return s.store.GetUser(ctx, id)
}

// Update changes the user's preferences.
func (s *UserService) Update(ctx context.Context, in core.UpdateUserInput) (core.User, error) {
	if err := in.Validate(); err != nil {
		return core.User{}, err
	}
	u, err := s.store.GetUser(ctx, in.ID)
	if err != nil {
		return core.User{}, err
	}
	in.Apply(&u)
	u, err = s.store.UpdateUser(ctx, u)
	if err != nil {
		return core.User{}, fmt.Errorf("update user %d: %w", in.ID, err)
	}
	return u, nil
}
