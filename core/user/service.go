package user

import (
	"context"
	"errors"
	"time"

	"github.com/trezcool/darasa/core"
)

var ErrNotFound = errors.New("user not found")

type (
	Repository interface {
		CreateUser(ctx context.Context, usr User) (User, error)
		GetUserByID(ctx context.Context, id int) (User, error)
		GetUserByUsernameOrEmail(ctx context.Context, uname string) (User, error)
		UpdateOrCreateUser(ctx context.Context, usr User) (User, error)
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) Create(ctx context.Context, usr User) (User, error) {
	now := time.Now().UTC()
	usr.Name = core.CleanString(usr.Name)
	usr.Username = core.CleanString(usr.Username, true /* lower */)
	usr.Email = core.CleanString(usr.Email, true /* lower */)
	usr.IsActive = true
	usr.CreatedAt = now
	usr.UpdatedAt = now
	return svc.repo.CreateUser(ctx, usr)
}

func (svc *Service) GetByID(ctx context.Context, id int) (User, error) {
	return svc.repo.GetUserByID(ctx, id)
}

func (svc *Service) GetByUsernameOrEmail(ctx context.Context, uname string) (User, error) {
	return svc.repo.GetUserByUsernameOrEmail(ctx, core.CleanString(uname, true /* lower */))
}

// SetPassword resets the user's password and persists the change.
func (svc *Service) SetPassword(ctx context.Context, usr User, pwd string) (User, error) {
	if err := usr.SetPassword(pwd); err != nil {
		return User{}, err
	}
	usr.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateOrCreateUser(ctx, usr)
}
