package repos

import (
	"context"

	"github.com/jmoiron/sqlx"

	"wapistore/internal/domain"
)

const userCols = `id,email,name,password_hash,role,created_at,updated_at`

type UserRepo struct{ DB *sqlx.DB }

func NewUserRepo(db *sqlx.DB) *UserRepo { return &UserRepo{DB: db} }

func (r *UserRepo) ByEmail(ctx context.Context, email string) (*domain.User, error) {
	var u domain.User
	err := r.DB.GetContext(ctx, &u, r.DB.Rebind(`SELECT `+userCols+` FROM users WHERE LOWER(email)=LOWER(?)`), email)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepo) ByID(ctx context.Context, id string) (*domain.User, error) {
	var u domain.User
	err := r.DB.GetContext(ctx, &u, r.DB.Rebind(`SELECT `+userCols+` FROM users WHERE id=?`), id)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// List returns every account, newest first.
func (r *UserRepo) List(ctx context.Context) ([]domain.User, error) {
	out := []domain.User{}
	err := r.DB.SelectContext(ctx, &out, `SELECT `+userCols+` FROM users ORDER BY created_at DESC, id`)
	return out, err
}

func (r *UserRepo) Create(ctx context.Context, u domain.User) error {
	_, err := r.DB.NamedExecContext(ctx, `
		INSERT INTO users(id,email,name,password_hash,role,created_at,updated_at)
		VALUES(:id,:email,:name,:password_hash,:role,:created_at,:updated_at)`, u)
	return err
}

// Update writes email, name and role; the password hash is left alone.
func (r *UserRepo) Update(ctx context.Context, u domain.User) error {
	res, err := r.DB.NamedExecContext(ctx, `
		UPDATE users SET email=:email, name=:name, role=:role, updated_at=:updated_at
		WHERE id=:id`, u)
	if err != nil {
		return err
	}
	return expectOne(res)
}

// Delete removes the account while keeping its orders, which lose their owner.
func (r *UserRepo) Delete(ctx context.Context, id string) error {
	tx, err := r.DB.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, tx.Rebind(`UPDATE orders SET user_id=NULL WHERE user_id=?`), id); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM users WHERE id=?`), id)
	if err != nil {
		return err
	}
	if err := expectOne(res); err != nil {
		return err
	}
	return tx.Commit()
}
