package session

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/inkwell-app/inkwell/internal/errs"
)

// GoTrue is a Provider implementation over the HTTP auth API
// (password grant, signup with metadata, logout, refresh-token grant).
type GoTrue struct {
	baseURL string
	apiKey  string
	httpc   *http.Client
	log     *zap.Logger

	mu      sync.Mutex
	session *Session
	subs    map[int]chan Event
	nextSub int
}

var _ Provider = (*GoTrue)(nil)

// NewGoTrue constructs a provider client against the given base URL.
func NewGoTrue(baseURL, apiKey string, timeout time.Duration, log *zap.Logger) *GoTrue {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &GoTrue{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpc:   &http.Client{Timeout: timeout},
		log:     log,
		subs:    map[int]chan Event{},
	}
}

type wireUser struct {
	ID           string `json:"id"`
	Email        string `json:"email"`
	CreatedAt    string `json:"created_at"`
	UserMetadata struct {
		FullName string `json:"full_name"`
	} `json:"user_metadata"`
}

type wireSession struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresIn    int64     `json:"expires_in"`
	User         *wireUser `json:"user"`
}

func (w wireUser) toProviderUser() ProviderUser {
	createdAt, _ := time.Parse(time.RFC3339Nano, w.CreatedAt)
	return ProviderUser{
		ID:        w.ID,
		Email:     w.Email,
		FullName:  w.UserMetadata.FullName,
		CreatedAt: createdAt,
	}
}

// toSession converts a wire session, deriving expiry from the JWT exp claim
// when present, else from expires_in.
func (g *GoTrue) toSession(w wireSession) *Session {
	exp := time.Now().Add(time.Duration(w.ExpiresIn) * time.Second)
	var claims jwt.RegisteredClaims
	_, _ = jwt.ParseWithClaims(w.AccessToken, &claims,
		func(*jwt.Token) (any, error) { return nil, nil },
		jwt.WithoutClaimsValidation(),
	)
	if claims.ExpiresAt != nil {
		exp = claims.ExpiresAt.Time
	}
	s := &Session{
		AccessToken:  w.AccessToken,
		RefreshToken: w.RefreshToken,
		ExpiresAt:    exp,
	}
	if w.User != nil {
		s.User = w.User.toProviderUser()
	}
	return s
}

// Session returns the current session, refreshing an expired one through the
// refresh-token grant. Returns nil without error when unauthenticated.
func (g *GoTrue) Session(ctx context.Context) (*Session, error) {
	g.mu.Lock()
	s := g.session
	g.mu.Unlock()

	if s == nil {
		return nil, nil
	}
	if time.Until(s.ExpiresAt) > 30*time.Second {
		return s, nil
	}
	if s.RefreshToken == "" {
		return nil, nil
	}
	return g.refresh(ctx, s.RefreshToken)
}

// Restore resumes a session from a stored refresh token (cold start).
// The resulting state change is pushed as a TokenRefreshed event.
func (g *GoTrue) Restore(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	_, err := g.refresh(ctx, refreshToken)
	return err
}

func (g *GoTrue) refresh(ctx context.Context, refreshToken string) (*Session, error) {
	var ws wireSession
	err := g.post(ctx, "/auth/v1/token?grant_type=refresh_token",
		map[string]string{"refresh_token": refreshToken}, "", &ws)
	if err != nil {
		g.setSession(nil, SignedOut)
		return nil, err
	}
	s := g.toSession(ws)
	g.setSession(s, TokenRefreshed)
	return s, nil
}

// SignIn performs the password grant. Success is broadcast as SignedIn; the
// caller must not assume state changed until the event arrives.
func (g *GoTrue) SignIn(ctx context.Context, email, password string) error {
	var ws wireSession
	err := g.post(ctx, "/auth/v1/token?grant_type=password",
		map[string]string{"email": email, "password": password}, "", &ws)
	if err != nil {
		return err
	}
	g.setSession(g.toSession(ws), SignedIn)
	return nil
}

// SignUp creates an account carrying the profile name as metadata. When the
// provider returns a user without a session, confirmation is pending and no
// event is broadcast.
func (g *GoTrue) SignUp(ctx context.Context, email, password, name string) (SignupResult, error) {
	body := map[string]any{
		"email":    email,
		"password": password,
		"data":     map[string]string{"full_name": name},
	}
	var raw struct {
		wireSession
		ID string `json:"id"`
	}
	if err := g.post(ctx, "/auth/v1/signup", body, "", &raw); err != nil {
		return SignupResult{}, err
	}
	if raw.AccessToken != "" {
		g.setSession(g.toSession(raw.wireSession), SignedIn)
		return SignupResult{}, nil
	}
	// created-but-unconfirmed: user object present, no active session
	return SignupResult{ConfirmationRequired: true}, nil
}

// SignOut revokes the session and broadcasts SignedOut. A revocation
// transport failure still clears local state.
func (g *GoTrue) SignOut(ctx context.Context) error {
	g.mu.Lock()
	token := ""
	if g.session != nil {
		token = g.session.AccessToken
	}
	g.mu.Unlock()

	var err error
	if token != "" {
		err = g.post(ctx, "/auth/v1/logout", struct{}{}, token, nil)
	}
	g.setSession(nil, SignedOut)
	return err
}

// Subscribe registers a session-change listener for the process lifetime of
// the caller. The cancel func unregisters and closes the channel.
func (g *GoTrue) Subscribe() (<-chan Event, func()) {
	g.mu.Lock()
	defer g.mu.Unlock()
	id := g.nextSub
	g.nextSub++
	ch := make(chan Event, 16)
	g.subs[id] = ch
	return ch, func() {
		g.mu.Lock()
		defer g.mu.Unlock()
		if c, ok := g.subs[id]; ok {
			delete(g.subs, id)
			close(c)
		}
	}
}

func (g *GoTrue) setSession(s *Session, t EventType) {
	g.mu.Lock()
	g.session = s
	chans := make([]chan Event, 0, len(g.subs))
	for _, ch := range g.subs {
		chans = append(chans, ch)
	}
	g.mu.Unlock()

	ev := Event{Type: t, Session: s}
	for _, ch := range chans {
		select {
		case ch <- ev:
		default:
			g.log.Warn("dropping session event, subscriber not draining",
				zap.String("type", string(t)))
		}
	}
}

// post sends a JSON request to the auth API and decodes the response into
// out when out is non-nil. Failures are normalized into the errs taxonomy.
func (g *GoTrue) post(ctx context.Context, path string, body any, bearer string, out any) error {
	buf, err := json.Marshal(body)
	if err != nil {
		return errs.NewStoreError("auth", errs.ErrUnavailable, err.Error())
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+path, bytes.NewReader(buf))
	if err != nil {
		return errs.NewStoreError("auth", errs.ErrUnavailable, err.Error())
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("apikey", g.apiKey)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := g.httpc.Do(req)
	if err != nil {
		g.log.Warn("auth request failed", zap.String("path", path), zap.Error(err))
		return errs.NewStoreError("auth", errs.ErrUnavailable, err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := fmt.Sprintf("http %d", resp.StatusCode)
		if b, rerr := io.ReadAll(io.LimitReader(resp.Body, 4096)); rerr == nil {
			var pe struct {
				Message          string `json:"msg"`
				ErrorDescription string `json:"error_description"`
			}
			if json.Unmarshal(b, &pe) == nil {
				if pe.Message != "" {
					msg = pe.Message
				} else if pe.ErrorDescription != "" {
					msg = pe.ErrorDescription
				}
			}
		}
		kind := errs.ErrUnavailable
		if resp.StatusCode == http.StatusUnauthorized ||
			resp.StatusCode == http.StatusForbidden ||
			resp.StatusCode == http.StatusBadRequest {
			kind = errs.ErrUnauthorized
		}
		return errs.NewStoreError("auth", kind, msg)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errs.NewStoreError("auth", errs.ErrUnavailable, fmt.Sprintf("decode: %v", err))
	}
	return nil
}
