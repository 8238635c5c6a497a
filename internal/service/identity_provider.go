package service

import (
	"context"
	"strings"
	"time"

	"github.com/mediconnect/platform-api/config"
	"github.com/mediconnect/platform-api/internal/domain/entity"

	"github.com/google/uuid"
)

// IdentityProvider resolves an identity for credentials that have no
// local account. The demo provider below is an explicit stand-in for a
// real identity provider integration; swapping in a real one only
// requires another implementation of this interface.
type IdentityProvider interface {
	Resolve(ctx context.Context, email, password string) (*entity.User, error)
}

type demoIdentityProvider struct {
	latency time.Duration
}

// NewDemoIdentityProvider returns the demo-mode provider. It simulates
// a fixed round-trip delay and derives the role from the email address:
// an address containing "patient" maps to patient, "doctor" to doctor,
// "admin" to admin, anything else to patient.
func NewDemoIdentityProvider(cfg config.AuthConfig) IdentityProvider {
	return &demoIdentityProvider{latency: cfg.DemoLatency}
}

func (p *demoIdentityProvider) Resolve(ctx context.Context, email, password string) (*entity.User, error) {
	if err := p.simulateRoundTrip(ctx); err != nil {
		return nil, err
	}

	roleID := inferRoleID(email)
	first, last := namesFromEmail(email, roleID)

	active := true
	return &entity.User{
		// Deterministic ID so repeated demo logins resolve to the same user
		ID:        uuid.NewSHA1(uuid.NameSpaceURL, []byte("mediconnect:demo:"+strings.ToLower(email))),
		RoleID:    roleID,
		Email:     email,
		FirstName: first,
		LastName:  last,
		IsActive:  &active,
	}, nil
}

func (p *demoIdentityProvider) simulateRoundTrip(ctx context.Context) error {
	if p.latency <= 0 {
		return nil
	}
	timer := time.NewTimer(p.latency)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func inferRoleID(email string) int {
	addr := strings.ToLower(email)
	switch {
	case strings.Contains(addr, entity.RolePatient):
		return entity.RoleIDPatient
	case strings.Contains(addr, entity.RoleDoctor):
		return entity.RoleIDDoctor
	case strings.Contains(addr, entity.RoleAdmin):
		return entity.RoleIDAdmin
	default:
		return entity.RoleIDPatient
	}
}

// namesFromEmail derives display names from the address local part so
// demo accounts render something readable in the client.
func namesFromEmail(email string, roleID int) (string, string) {
	local := email
	if at := strings.Index(email, "@"); at > 0 {
		local = email[:at]
	}

	parts := strings.FieldsFunc(local, func(r rune) bool {
		return r == '.' || r == '_' || r == '-' || r == '+'
	})

	title := func(s string) string {
		if s == "" {
			return s
		}
		return strings.ToUpper(s[:1]) + s[1:]
	}

	if len(parts) >= 2 {
		return title(parts[0]), title(parts[1])
	}
	if len(parts) == 1 && parts[0] != "" {
		return title(parts[0]), title(entity.RoleNameByID(roleID))
	}
	return "Demo", title(entity.RoleNameByID(roleID))
}
