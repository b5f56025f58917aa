package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/kleurijkwonen/inspections/config"
	"github.com/kleurijkwonen/inspections/model"
)

func TestAuthServiceRegister(t *testing.T) {
	auth := NewAuthService(newTestStore(t))
	ctx := context.Background()

	tests := []struct {
		name        string
		input       RegisterInput
		wantRole    string
		wantErr     bool
		wantMissing []string
		wantInvalid []string
	}{
		{
			name:     "defaults to tenant",
			input:    RegisterInput{Name: "Anna", Email: "anna@example.com", Password: "secret1"},
			wantRole: model.RoleTenant,
		},
		{
			name:     "employee",
			input:    RegisterInput{Name: "Bram", Email: "bram@example.com", Password: "secret1", Role: model.RoleEmployee},
			wantRole: model.RoleEmployee,
		},
		{
			name:        "admin cannot self-register",
			input:       RegisterInput{Name: "Eve", Email: "eve@example.com", Password: "secret1", Role: model.RoleAdmin},
			wantErr:     true,
			wantInvalid: []string{"role"},
		},
		{
			name:        "missing fields",
			input:       RegisterInput{Email: "x@example.com"},
			wantErr:     true,
			wantMissing: []string{"name", "password"},
		},
		{
			name:     "password at bcrypt limit",
			input:    RegisterInput{Name: "Lang", Email: "lang@example.com", Password: strings.Repeat("p", MaxPasswordLength)},
			wantRole: model.RoleTenant,
		},
		{
			name:        "password over bcrypt limit",
			input:       RegisterInput{Name: "Langer", Email: "langer@example.com", Password: strings.Repeat("p", MaxPasswordLength+1)},
			wantErr:     true,
			wantInvalid: []string{"password"},
		},
		{
			name:        "short password and bad email",
			input:       RegisterInput{Name: "C", Email: "nope", Password: "abc"},
			wantErr:     true,
			wantInvalid: []string{"email", "password"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			user, err := auth.Register(ctx, tt.input)
			if tt.wantErr {
				var verr *ValidationError
				if !errors.As(err, &verr) {
					t.Fatalf("Expected ValidationError, got %v", err)
				}
				if !equalStrings(verr.Missing, tt.wantMissing) || !equalStrings(verr.Invalid, tt.wantInvalid) {
					t.Errorf("Unexpected validation error %+v", verr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Register failed: %v", err)
			}
			if user.Role != tt.wantRole {
				t.Errorf("Expected role %s, got %s", tt.wantRole, user.Role)
			}
			if user.PasswordHash == tt.input.Password {
				t.Error("Password must be stored hashed")
			}
		})
	}

	_, err := auth.Register(ctx, RegisterInput{Name: "Anna", Email: "ANNA@example.com", Password: "secret1"})
	if !errors.Is(err, ErrEmailTaken) {
		t.Errorf("Expected ErrEmailTaken, got %v", err)
	}
}

func TestAuthServiceAuthenticate(t *testing.T) {
	auth := NewAuthService(newTestStore(t))
	ctx := context.Background()

	if _, err := auth.Register(ctx, RegisterInput{Name: "Anna", Email: "anna@example.com", Password: "secret1"}); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	user, err := auth.Authenticate(ctx, "anna@example.com", "secret1")
	if err != nil {
		t.Fatalf("Authenticate failed: %v", err)
	}
	if user.Email != "anna@example.com" {
		t.Errorf("Unexpected user %+v", user)
	}

	if _, err := auth.Authenticate(ctx, "anna@example.com", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("Expected ErrInvalidCredentials for wrong password, got %v", err)
	}
	if _, err := auth.Authenticate(ctx, "nobody@example.com", "secret1"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("Expected ErrInvalidCredentials for unknown email, got %v", err)
	}
}

func TestAuthServiceSeedUsers(t *testing.T) {
	auth := NewAuthService(newTestStore(t))
	ctx := context.Background()

	hash, err := HashPassword("adminpass")
	if err != nil {
		t.Fatalf("HashPassword failed: %v", err)
	}
	seeds := []config.SeedUser{{Name: "Admin", Email: "admin@example.com", Role: model.RoleAdmin, PasswordHash: hash}}

	n, err := auth.SeedUsers(ctx, seeds)
	if err != nil || n != 1 {
		t.Fatalf("Expected 1 seeded user, got %d (%v)", n, err)
	}
	// idempotent
	n, err = auth.SeedUsers(ctx, seeds)
	if err != nil || n != 0 {
		t.Fatalf("Expected 0 seeded users on rerun, got %d (%v)", n, err)
	}

	user, err := auth.Authenticate(ctx, "admin@example.com", "adminpass")
	if err != nil {
		t.Fatalf("Authenticate seeded admin failed: %v", err)
	}
	if user.Role != model.RoleAdmin {
		t.Errorf("Expected admin role, got %s", user.Role)
	}

	bad := []config.SeedUser{{Name: "X", Email: "x@example.com", Role: "root", PasswordHash: hash}}
	if _, err := auth.SeedUsers(ctx, bad); err == nil {
		t.Error("Expected error for invalid seed role")
	}
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
