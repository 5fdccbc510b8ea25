package dummydb

import (
	"context"

	"github.com/trezcool/darasa/core/user"
)

type userRepository struct {
	db *userTable
}

var _ user.Repository = (*userRepository)(nil)

func NewUserRepository(db *DB) *userRepository {
	return &userRepository{db: db.user}
}

func (r *userRepository) CreateUser(_ context.Context, usr user.User) (user.User, error) {
	r.db.Lock()
	defer r.db.Unlock()

	r.db.pk++
	usr.ID = r.db.pk
	r.db.table[usr.ID] = &usr
	return usr, nil
}

func (r *userRepository) GetUserByID(_ context.Context, id int) (user.User, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	if usr, ok := r.db.table[id]; ok {
		return *usr, nil
	}
	return user.User{}, user.ErrNotFound
}

func (r *userRepository) GetUserByUsernameOrEmail(_ context.Context, uname string) (user.User, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	for _, usr := range r.db.table {
		if usr.Username == uname || usr.Email == uname {
			return *usr, nil
		}
	}
	return user.User{}, user.ErrNotFound
}

func (r *userRepository) UpdateOrCreateUser(ctx context.Context, usr user.User) (user.User, error) {
	r.db.Lock()
	defer r.db.Unlock()

	if usr.ID != 0 {
		if _, ok := r.db.table[usr.ID]; ok {
			r.db.table[usr.ID] = &usr
			return usr, nil
		}
	}
	r.db.pk++
	usr.ID = r.db.pk
	r.db.table[usr.ID] = &usr
	return usr, nil
}
