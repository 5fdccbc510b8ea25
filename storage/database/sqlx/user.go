package sqlxrepos

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core/user"
)

type userRepository struct {
	db *sqlx.DB
}

var _ user.Repository = (*userRepository)(nil)

func NewUserRepository(db *sqlx.DB) *userRepository {
	return &userRepository{db: db}
}

func (r *userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	err := r.db.GetContext(ctx, &usr.ID, `
		INSERT INTO users (name, username, email, avatar, role, is_active, password_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id`,
		usr.Name, usr.Username, usr.Email, usr.Avatar, usr.Role, usr.IsActive, usr.PasswordHash, usr.CreatedAt, usr.UpdatedAt,
	)
	if err != nil {
		return user.User{}, errors.Wrap(err, "creating user")
	}
	return usr, nil
}

func (r *userRepository) GetUserByID(ctx context.Context, id int) (user.User, error) {
	var usr user.User
	err := r.db.GetContext(ctx, &usr, `SELECT * FROM users WHERE id = $1`, id)
	if err == sql.ErrNoRows {
		return user.User{}, user.ErrNotFound
	}
	return usr, err
}

func (r *userRepository) GetUserByUsernameOrEmail(ctx context.Context, uname string) (user.User, error) {
	var usr user.User
	err := r.db.GetContext(ctx, &usr, `SELECT * FROM users WHERE username = $1 OR email = $1`, uname)
	if err == sql.ErrNoRows {
		return user.User{}, user.ErrNotFound
	}
	return usr, err
}

func (r *userRepository) UpdateOrCreateUser(ctx context.Context, usr user.User) (user.User, error) {
	if usr.ID == 0 {
		return r.CreateUser(ctx, usr)
	}
	_, err := r.db.ExecContext(ctx, `
		UPDATE users SET name = $1, username = $2, email = $3, avatar = $4, role = $5,
			is_active = $6, password_hash = $7, updated_at = $8
		WHERE id = $9`,
		usr.Name, usr.Username, usr.Email, usr.Avatar, usr.Role, usr.IsActive, usr.PasswordHash, usr.UpdatedAt, usr.ID,
	)
	return usr, err
}
