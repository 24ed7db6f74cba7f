package services

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"wapistore/internal/apperr"
	"wapistore/internal/auth"
	"wapistore/internal/domain"
	"wapistore/internal/repos"
)

// UserInput creates an account from the admin screens. Password may be empty
// for accounts that will only sign in once it is set.
type UserInput struct {
	Email    string
	Name     string
	Role     domain.Role
	Password string
}

// UserPatch changes any of email, name and role.
type UserPatch struct {
	Email *string
	Name  *string
	Role  *domain.Role
}

type UserService struct {
	Users *repos.UserRepo
}

func NewUserService(users *repos.UserRepo) *UserService {
	return &UserService{Users: users}
}

func (s *UserService) List(ctx context.Context) ([]domain.User, error) {
	out, err := s.Users.List(ctx)
	if err != nil {
		return nil, apperr.FromStore(err, "user")
	}
	return out, nil
}

func (s *UserService) Get(ctx context.Context, id string) (*domain.User, error) {
	u, err := s.Users.ByID(ctx, id)
	if err != nil {
		return nil, apperr.FromStore(err, "user")
	}
	return u, nil
}

func (s *UserService) Create(ctx context.Context, caller auth.Identity, in UserInput) (*domain.User, error) {
	if in.Role == "" {
		in.Role = domain.RoleUser
	}
	if err := auth.CanManageUser(caller, domain.User{}, in.Role); err != nil {
		return nil, err
	}
	now := domain.Now()
	u := domain.User{
		ID:        uuid.NewString(),
		Email:     strings.ToLower(strings.TrimSpace(in.Email)),
		Name:      strings.TrimSpace(in.Name),
		Role:      in.Role,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if in.Password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), repos.BcryptCost)
		if err != nil {
			return nil, apperr.Wrap(apperr.KindInternal, err, "hashing password")
		}
		u.Hash = string(hash)
	}
	if err := s.Users.Create(ctx, u); err != nil {
		if repos.IsUniqueViolation(err) {
			return nil, apperr.Conflict("email already registered")
		}
		return nil, apperr.FromStore(err, "user")
	}
	return &u, nil
}

func (s *UserService) Update(ctx context.Context, caller auth.Identity, id string, p UserPatch) (*domain.User, error) {
	if p.Email == nil && p.Name == nil && p.Role == nil {
		return nil, apperr.Validation("no fields to update")
	}
	if err := auth.Require(caller, auth.Staff...); err != nil {
		return nil, err
	}
	u, err := s.Users.ByID(ctx, id)
	if err != nil {
		return nil, apperr.FromStore(err, "user")
	}
	newRole := u.Role
	if p.Role != nil {
		newRole = *p.Role
	}
	if err := auth.CanManageUser(caller, *u, newRole); err != nil {
		return nil, err
	}
	if p.Email != nil {
		u.Email = strings.ToLower(strings.TrimSpace(*p.Email))
	}
	if p.Name != nil {
		u.Name = strings.TrimSpace(*p.Name)
	}
	u.Role = newRole
	u.UpdatedAt = domain.Now()
	if err := s.Users.Update(ctx, *u); err != nil {
		if repos.IsUniqueViolation(err) {
			return nil, apperr.Conflict("email already registered")
		}
		return nil, apperr.FromStore(err, "user")
	}
	return u, nil
}

// Delete removes an account. Only SUPER_ADMIN may delete, and never themselves.
func (s *UserService) Delete(ctx context.Context, caller auth.Identity, id string) error {
	if err := auth.Require(caller, auth.SuperOnly...); err != nil {
		return err
	}
	u, err := s.Users.ByID(ctx, id)
	if err != nil {
		return apperr.FromStore(err, "user")
	}
	if err := auth.CanDeleteUser(caller, *u); err != nil {
		return err
	}
	return apperr.FromStore(s.Users.Delete(ctx, id), "user")
}
