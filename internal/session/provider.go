// Package session owns the authenticated-user lifecycle. The identity
// provider pushes session changes; that subscription is the single source
// of truth for auth state.
package session

import (
	"context"
	"strings"
	"time"

	"github.com/inkwell-app/inkwell/internal/model"
)

// EventType classifies a pushed session change.
type EventType string

const (
	SignedIn       EventType = "SIGNED_IN"
	SignedOut      EventType = "SIGNED_OUT"
	TokenRefreshed EventType = "TOKEN_REFRESHED"
)

// ProviderUser is the identity object as the provider reports it.
type ProviderUser struct {
	ID        string
	Email     string
	FullName  string
	CreatedAt time.Time
}

// Session is the provider-issued proof of authenticated identity.
type Session struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
	User         ProviderUser
}

// Event is a pushed session change. A nil Session means signed out.
type Event struct {
	Type    EventType
	Session *Session
}

// SignupResult reports the outcome of a signup request.
// ConfirmationRequired means the provider created the account but issued no
// session; confirmation happens out of band.
type SignupResult struct {
	ConfirmationRequired bool
}

// Provider abstracts the external identity provider.
type Provider interface {
	// Session returns the currently valid session, or nil when
	// unauthenticated.
	Session(ctx context.Context) (*Session, error)

	// SignIn requests password authentication. The resulting state change
	// arrives through the subscription, not the return value.
	SignIn(ctx context.Context, email, password string) error

	// SignUp creates an account with profile metadata.
	SignUp(ctx context.Context, email, password, name string) (SignupResult, error)

	// SignOut terminates the session. State change arrives via subscription.
	SignOut(ctx context.Context) error

	// Subscribe registers for session-change events. The returned func
	// unregisters and closes the channel.
	Subscribe() (<-chan Event, func())
}

// MapUser converts provider identity to the domain user. Name falls back to
// the email local-part, then to the literal "User".
func MapUser(u ProviderUser) model.User {
	name := u.FullName
	if name == "" {
		local := u.Email
		if at := strings.Index(u.Email, "@"); at >= 0 {
			local = u.Email[:at]
		}
		if local == "" {
			local = "User"
		}
		name = local
	}
	return model.User{
		ID:        u.ID,
		Email:     u.Email,
		Name:      name,
		CreatedAt: u.CreatedAt,
	}
}
