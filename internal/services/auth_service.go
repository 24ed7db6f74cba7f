package services

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"wapistore/internal/apperr"
	"wapistore/internal/auth"
	"wapistore/internal/domain"
	"wapistore/internal/repos"
)

var ErrBadCreds = apperr.New(apperr.KindUnauthenticated, "invalid email or password")

// dummyHash keeps signin timing flat when the email is unknown.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("wapistore-timing-pad"), repos.BcryptCost)

type AuthService struct {
	Users  *repos.UserRepo
	Tokens *auth.Tokens
}

func NewAuthService(users *repos.UserRepo, tokens *auth.Tokens) *AuthService {
	return &AuthService{Users: users, Tokens: tokens}
}

// Signup creates a USER account.
func (s *AuthService) Signup(ctx context.Context, name, email, password string) (*domain.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), repos.BcryptCost)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, err, "hashing password")
	}
	now := domain.Now()
	u := domain.User{
		ID:        uuid.NewString(),
		Email:     strings.ToLower(strings.TrimSpace(email)),
		Name:      strings.TrimSpace(name),
		Hash:      string(hash),
		Role:      domain.RoleUser,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.Users.Create(ctx, u); err != nil {
		if repos.IsUniqueViolation(err) {
			return nil, apperr.Conflict("email already registered")
		}
		return nil, apperr.FromStore(err, "user")
	}
	return &u, nil
}

// Signin checks credentials and mints a session token.
func (s *AuthService) Signin(ctx context.Context, email, password string) (string, time.Time, *domain.User, error) {
	u, err := s.Users.ByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if apperr.KindOf(apperr.FromStore(err, "user")) != apperr.KindNotFound {
			return "", time.Time{}, nil, apperr.FromStore(err, "user")
		}
		_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
		return "", time.Time{}, nil, ErrBadCreds
	}
	if u.Hash == "" || bcrypt.CompareHashAndPassword([]byte(u.Hash), []byte(password)) != nil {
		return "", time.Time{}, nil, ErrBadCreds
	}
	token, exp, err := s.Tokens.Mint(*u)
	if err != nil {
		return "", time.Time{}, nil, apperr.Wrap(apperr.KindInternal, err, "issuing session")
	}
	return token, exp, u, nil
}

// Resolve maps a session token to the caller. Bad or expired tokens and
// vanished users resolve to anonymous; only store failures are errors.
// The role comes from the database so demotions apply immediately.
func (s *AuthService) Resolve(ctx context.Context, raw string) (auth.Identity, error) {
	if raw == "" {
		return auth.Identity{}, nil
	}
	claims, err := s.Tokens.Parse(raw)
	if err != nil {
		return auth.Identity{}, nil
	}
	u, err := s.Users.ByID(ctx, claims.Subject)
	if err != nil {
		err = apperr.FromStore(err, "user")
		if apperr.KindOf(err) == apperr.KindNotFound {
			return auth.Identity{}, nil
		}
		return auth.Identity{}, err
	}
	return auth.Identity{UserID: u.ID, Email: u.Email, Name: u.Name, Role: u.Role}, nil
}
