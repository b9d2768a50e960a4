package usecase

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"content-subscription-platform/internal/domain"
	"content-subscription-platform/internal/domain/model"
	"content-subscription-platform/internal/domain/ports/repository"
)

var _ UserUseCase = (*userUC)(nil)

type UserUseCase interface {
	Register(ctx context.Context, username, email string) (*model.User, error)
	FindByID(ctx context.Context, id string) (*model.User, error)
	List(ctx context.Context, offset, limit int) ([]*model.User, error)
	Count(ctx context.Context) (int, error)
	// EnsureAdmin creates (or promotes) the named admin account. Idempotent;
	// run once at process start.
	EnsureAdmin(ctx context.Context, username string) (*model.User, error)
}

type userUC struct {
	users repository.UserRepository
	log   *zerolog.Logger
}

func NewUserUseCase(users repository.UserRepository, logger *zerolog.Logger) *userUC {
	l := logger.With().Str("component", "UserUC").Logger()
	return &userUC{users: users, log: &l}
}

func (u *userUC) Register(ctx context.Context, username, email string) (*model.User, error) {
	if existing, err := u.users.FindByUsername(ctx, repository.NoTX, username); err == nil && !existing.IsZero() {
		return nil, domain.ErrAlreadyExists
	}
	user, err := model.NewUser("", username, email)
	if err != nil {
		return nil, err
	}
	if err := u.users.Save(ctx, repository.NoTX, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (u *userUC) FindByID(ctx context.Context, id string) (*model.User, error) {
	return u.users.FindByID(ctx, repository.NoTX, id)
}

func (u *userUC) List(ctx context.Context, offset, limit int) ([]*model.User, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return u.users.List(ctx, repository.NoTX, offset, limit)
}

func (u *userUC) Count(ctx context.Context) (int, error) {
	return u.users.Count(ctx, repository.NoTX)
}

func (u *userUC) EnsureAdmin(ctx context.Context, username string) (*model.User, error) {
	existing, err := u.users.FindByUsername(ctx, repository.NoTX, username)
	switch {
	case err == nil:
		if existing.IsAdmin {
			return existing, nil
		}
		existing.IsAdmin = true
		if err := u.users.Save(ctx, repository.NoTX, existing); err != nil {
			return nil, err
		}
		u.log.Info().Str("username", username).Msg("existing account promoted to admin")
		return existing, nil
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrUserNotFound):
		admin, err := model.NewUser("", username, "")
		if err != nil {
			return nil, err
		}
		admin.IsAdmin = true
		if err := u.users.Save(ctx, repository.NoTX, admin); err != nil {
			return nil, err
		}
		u.log.Info().Str("username", username).Msg("admin account created")
		return admin, nil
	default:
		return nil, err
	}
}
