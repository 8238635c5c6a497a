// Package guard implements the role-aware navigation rules for the
// client app routes: where to send an anonymous visitor, where to send
// a signed-in user who opens a view for another role, and where the
// role landing pages live. The guard only ever redirects; it renders
// no error pages and grants no authority. API authorization is
// enforced separately by the auth and role middleware.
package guard

import "github.com/mediconnect/platform-api/internal/domain/entity"

// LoginPath is where anonymous visitors are sent.
const LoginPath = "/login"

// Decision is the outcome of a guard check: either the view is
// rendered, or the visitor is redirected.
type Decision struct {
	Allowed    bool
	RedirectTo string
}

// LandingPath returns the landing view for a role.
func LandingPath(role string) string {
	return "/" + role + "/landing"
}

// Resolve decides access to a role-scoped view. The role is the
// caller's actual role, empty for anonymous visitors.
//
// Anonymous visitors go to the login view. A role mismatch redirects
// to the visitor's own landing view, never to an error page.
func Resolve(requiredRole, role string) Decision {
	if role == "" {
		return Decision{RedirectTo: LoginPath}
	}
	if role == requiredRole {
		return Decision{Allowed: true}
	}
	return Decision{RedirectTo: LandingPath(role)}
}

// ResolveAuthView decides access to the login, registration and
// forgot-password views. A visitor who is already signed in is sent
// straight to their landing view.
func ResolveAuthView(role string) Decision {
	if role == "" {
		return Decision{Allowed: true}
	}
	return Decision{RedirectTo: LandingPath(role)}
}

// RolePrefixes lists the role-scoped path prefixes. A bare prefix with
// no trailing segment redirects to that role's landing view.
func RolePrefixes() []string {
	return []string{entity.RolePatient, entity.RoleDoctor, entity.RoleAdmin}
}
