package session

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/inkwell-app/inkwell/internal/errs"
	"github.com/inkwell-app/inkwell/internal/model"
)

// User-facing messages. Provider detail is deliberately not surfaced.
const (
	MsgLoginFailed    = "Login failed. Please check your email or password."
	MsgSignupFailed   = "Signup failed. Please try again."
	MsgConfirmPending = "Account created. Please check your email to confirm your address."
)

// Controller owns currentUser. Explicit login/signup calls only ask the
// provider to act; the subscription is the sole state setter, which avoids a
// race between a "login succeeded" return path and the provider broadcast.
type Controller struct {
	provider Provider
	log      *zap.Logger

	mu      sync.RWMutex
	current *model.User
	token   string

	onChange func(u *model.User)

	unsub func()
	done  chan struct{}
}

// NewController constructs a Controller around the given provider.
func NewController(p Provider, log *zap.Logger) *Controller {
	return &Controller{provider: p, log: log}
}

// SetOnChange registers a hook invoked after every auth state replacement
// (the presentation layer reloads the collection from it). Must be called
// before Start.
func (c *Controller) SetOnChange(fn func(u *model.User)) {
	c.onChange = fn
}

// Start queries the provider for an existing session and subscribes to
// session-change events for the controller's lifetime.
func (c *Controller) Start(ctx context.Context) error {
	s, err := c.provider.Session(ctx)
	if err != nil {
		c.log.Warn("initial session query failed", zap.Error(err))
	}
	c.apply(s)

	ch, unsub := c.provider.Subscribe()
	c.unsub = unsub
	c.done = make(chan struct{})
	go func() {
		defer close(c.done)
		for ev := range ch {
			c.apply(ev.Session)
		}
	}()
	return nil
}

// Close unsubscribes from the provider and waits for the event loop to
// drain.
func (c *Controller) Close() {
	if c.unsub != nil {
		c.unsub()
		<-c.done
	}
}

// apply wholly replaces currentUser from the pushed session.
func (c *Controller) apply(s *Session) {
	c.mu.Lock()
	if s == nil {
		c.current = nil
		c.token = ""
	} else {
		u := MapUser(s.User)
		c.current = &u
		c.token = s.AccessToken
	}
	cur := c.current
	fn := c.onChange
	c.mu.Unlock()

	if fn != nil {
		fn(cur)
	}
}

// CurrentUser returns the authenticated user, or nil.
func (c *Controller) CurrentUser() *model.User {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.current == nil {
		return nil
	}
	u := *c.current
	return &u
}

// AccessToken exposes the session token for the store client. Empty when
// unauthenticated.
func (c *Controller) AccessToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// Login delegates to the provider. Rejection collapses to one fixed
// message; success sets no state here (it arrives via the subscription).
func (c *Controller) Login(ctx context.Context, email, password string) error {
	if err := c.provider.SignIn(ctx, email, password); err != nil {
		c.log.Info("login rejected", zap.Error(err))
		return &errs.AuthError{Message: MsgLoginFailed}
	}
	return nil
}

// Signup delegates to the provider with profile metadata. A
// created-but-unconfirmed account returns MsgConfirmPending and no state
// transition; that is a terminal state until out-of-band confirmation.
func (c *Controller) Signup(ctx context.Context, email, password, name string) (string, error) {
	res, err := c.provider.SignUp(ctx, email, password, name)
	if err != nil {
		c.log.Info("signup rejected", zap.Error(err))
		return "", &errs.AuthError{Message: MsgSignupFailed}
	}
	if res.ConfirmationRequired {
		return MsgConfirmPending, nil
	}
	return "", nil
}

// Logout delegates to the provider; clearing currentUser arrives through the
// subscription.
func (c *Controller) Logout(ctx context.Context) error {
	return c.provider.SignOut(ctx)
}
