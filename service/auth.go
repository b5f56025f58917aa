package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/kleurijkwonen/inspections/config"
	"github.com/kleurijkwonen/inspections/model"
	"golang.org/x/crypto/bcrypt"
)

const MinPasswordLength = 6

// MaxPasswordLength is the bcrypt input limit in bytes.
const MaxPasswordLength = 72

type AuthService struct {
	store *Store
}

func NewAuthService(store *Store) *AuthService {
	return &AuthService{store: store}
}

// RegisterInput is a self-service sign-up request.
type RegisterInput struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// HashPassword returns the bcrypt hash used for stored and seeded accounts.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// Register creates a tenant or employee account. Admins are only seeded.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*model.User, error) {
	verr := &ValidationError{}
	if strings.TrimSpace(in.Name) == "" {
		verr.Missing = append(verr.Missing, "name")
	}
	if strings.TrimSpace(in.Email) == "" {
		verr.Missing = append(verr.Missing, "email")
	} else if !strings.Contains(in.Email, "@") {
		verr.Invalid = append(verr.Invalid, "email")
	}
	if in.Password == "" {
		verr.Missing = append(verr.Missing, "password")
	} else if len(in.Password) < MinPasswordLength || len(in.Password) > MaxPasswordLength {
		verr.Invalid = append(verr.Invalid, "password")
	}
	role := in.Role
	if role == "" {
		role = model.RoleTenant
	}
	if role != model.RoleTenant && role != model.RoleEmployee {
		verr.Invalid = append(verr.Invalid, "role")
	}
	if len(verr.Missing) > 0 || len(verr.Invalid) > 0 {
		return nil, verr
	}

	hash, err := HashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	user := &model.User{
		Name:         strings.TrimSpace(in.Name),
		Email:        in.Email,
		PasswordHash: hash,
		Role:         role,
	}
	if err := s.store.CreateUser(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Authenticate checks email and password. Unknown email and wrong password
// both yield ErrInvalidCredentials.
func (s *AuthService) Authenticate(ctx context.Context, email, password string) (*model.User, error) {
	user, err := s.store.FindUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

// SeedUsers creates configured accounts that do not exist yet and returns
// how many were created.
func (s *AuthService) SeedUsers(ctx context.Context, seeds []config.SeedUser) (int, error) {
	created := 0
	for _, seed := range seeds {
		if !model.ValidRole(seed.Role) {
			return created, fmt.Errorf("seed user %s has invalid role %q", seed.Email, seed.Role)
		}
		if _, err := s.store.FindUserByEmail(ctx, seed.Email); err == nil {
			continue
		} else if !errors.Is(err, ErrNotFound) {
			return created, err
		}
		user := &model.User{
			Name:         seed.Name,
			Email:        seed.Email,
			PasswordHash: seed.PasswordHash,
			Role:         seed.Role,
		}
		if err := s.store.CreateUser(ctx, user); err != nil {
			return created, err
		}
		slog.Info("seeded user", "email", user.Email, "role", user.Role)
		created++
	}
	return created, nil
}
