package service

import (
	"context"
	"testing"
	"time"

	"github.com/mediconnect/platform-api/config"
	"github.com/mediconnect/platform-api/internal/domain/entity"
)

func newTestProvider() IdentityProvider {
	return NewDemoIdentityProvider(config.AuthConfig{DemoMode: true})
}

func TestResolveInfersRoleFromEmail(t *testing.T) {
	tests := []struct {
		email string
		want  int
	}{
		{"admin@example.com", entity.RoleIDAdmin},
		{"doctor.house@example.com", entity.RoleIDDoctor},
		{"patient.zero@example.com", entity.RoleIDPatient},
		{"ADMIN@EXAMPLE.COM", entity.RoleIDAdmin},
		{"someone@example.com", entity.RoleIDPatient},
		// "patient" wins over later substrings
		{"patient.admin@example.com", entity.RoleIDPatient},
	}

	provider := newTestProvider()
	for _, tt := range tests {
		user, err := provider.Resolve(context.Background(), tt.email, "password123")
		if err != nil {
			t.Fatalf("Resolve(%s) failed: %v", tt.email, err)
		}
		if user.RoleID != tt.want {
			t.Fatalf("Resolve(%s): expected role %d, got %d", tt.email, tt.want, user.RoleID)
		}
		if user.Email != tt.email {
			t.Fatalf("Resolve(%s): expected email preserved, got %s", tt.email, user.Email)
		}
		if !user.Active() {
			t.Fatalf("Resolve(%s): expected active account", tt.email)
		}
	}
}

func TestResolveIsDeterministic(t *testing.T) {
	provider := newTestProvider()

	first, err := provider.Resolve(context.Background(), "doctor.house@example.com", "password123")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	second, err := provider.Resolve(context.Background(), "Doctor.House@example.com", "otherpassword")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	if first.ID != second.ID {
		t.Fatalf("expected the same identity across logins, got %s and %s", first.ID, second.ID)
	}
}

func TestResolveDerivesDisplayNames(t *testing.T) {
	provider := newTestProvider()

	user, err := provider.Resolve(context.Background(), "doctor.house@example.com", "password123")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if user.FirstName != "Doctor" || user.LastName != "House" {
		t.Fatalf("expected Doctor House, got %s %s", user.FirstName, user.LastName)
	}

	user, err = provider.Resolve(context.Background(), "admin@example.com", "password123")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if user.FirstName != "Admin" || user.LastName != "Admin" {
		t.Fatalf("expected Admin Admin, got %s %s", user.FirstName, user.LastName)
	}
}

func TestResolveHonorsContextCancellation(t *testing.T) {
	provider := NewDemoIdentityProvider(config.AuthConfig{DemoLatency: time.Minute})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := provider.Resolve(ctx, "patient@example.com", "password123"); err == nil {
		t.Fatal("expected error on cancelled context")
	}
}
