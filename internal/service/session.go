package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/repository"
	apperrors "github.com/utafrali/storefront/pkg/errors"
)

// AuthAPI is the remote side of the session.
type AuthAPI interface {
	Login(ctx context.Context, creds domain.Credentials) (domain.AuthResult, error)
	Register(ctx context.Context, reg domain.Registration) (domain.AuthResult, error)
	Logout(ctx context.Context, refresh string) error
	Refresh(ctx context.Context, refresh string) (domain.Tokens, error)
	Profile(ctx context.Context) (domain.User, error)
	UpdateProfile(ctx context.Context, upd domain.ProfileUpdate) (domain.User, error)
}

// SessionState is the auth view of the shopper.
type SessionState struct {
	User            *domain.User `json:"user"`
	IsAuthenticated bool         `json:"is_authenticated"`
	Loading         bool         `json:"loading"`
	Error           string       `json:"error,omitempty"`
}

// SessionService holds the shopper's tokens and profile. It is also the
// token source of the API client.
type SessionService struct {
	mu       sync.RWMutex
	api      AuthAPI
	store    repository.TokenRepository
	tokens   domain.Tokens
	user     *domain.User
	inFlight int
	lastErr  string
	profile  *viewGuard
	logger   *slog.Logger
	now      func() time.Time
}

// NewSessionService loads any stored tokens so a restart keeps the shopper
// logged in.
func NewSessionService(ctx context.Context, api AuthAPI, store repository.TokenRepository, logger *slog.Logger) *SessionService {
	s := &SessionService{
		api:     api,
		store:   store,
		profile: newViewGuard("profile", logger),
		logger:  logger,
		now:     time.Now,
	}

	tokens, err := store.Load(ctx)
	if err != nil {
		logger.WarnContext(ctx, "failed to load stored tokens", slog.String("error", err.Error()))
	}
	s.tokens = tokens
	return s
}

// AccessToken returns the bearer token for outgoing calls.
func (s *SessionService) AccessToken(context.Context) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tokens.Access
}

// Invalidate forgets the tokens and the user. The API client calls it when
// a request comes back 401.
func (s *SessionService) Invalidate(ctx context.Context) {
	s.profile.invalidate()

	s.mu.Lock()
	hadToken := s.tokens.Access != ""
	s.tokens = domain.Tokens{}
	s.user = nil
	s.mu.Unlock()

	if err := s.store.Delete(context.WithoutCancel(ctx)); err != nil {
		s.logger.WarnContext(ctx, "failed to remove stored tokens", slog.String("error", err.Error()))
	}
	if hadToken {
		s.logger.InfoContext(ctx, "session invalidated")
	}
}

// Login authenticates the shopper and stores the returned tokens.
func (s *SessionService) Login(ctx context.Context, creds domain.Credentials) (domain.User, error) {
	if err := validate(creds); err != nil {
		return domain.User{}, s.fail(err)
	}

	s.start()
	res, err := s.api.Login(ctx, creds)
	if err != nil {
		return domain.User{}, s.finish(err)
	}
	s.establish(ctx, res)
	s.logger.InfoContext(ctx, "shopper logged in", slog.String("user_id", res.User.ID.String()))
	return res.User, s.finish(nil)
}

// Register creates an account and logs the shopper in.
func (s *SessionService) Register(ctx context.Context, reg domain.Registration) (domain.User, error) {
	if err := validate(reg); err != nil {
		return domain.User{}, s.fail(err)
	}

	s.start()
	res, err := s.api.Register(ctx, reg)
	if err != nil {
		return domain.User{}, s.finish(err)
	}
	s.establish(ctx, res)
	s.logger.InfoContext(ctx, "shopper registered", slog.String("user_id", res.User.ID.String()))
	return res.User, s.finish(nil)
}

// Logout tells the API to blacklist the refresh token and always clears the
// local session, whatever the API answers.
func (s *SessionService) Logout(ctx context.Context) {
	s.mu.RLock()
	refresh := s.tokens.Refresh
	s.mu.RUnlock()

	if refresh != "" {
		if err := s.api.Logout(ctx, refresh); err != nil {
			s.logger.WarnContext(ctx, "remote logout failed", slog.String("error", err.Error()))
		}
	}

	s.Invalidate(ctx)
	s.mu.Lock()
	s.lastErr = ""
	s.mu.Unlock()
}

// Refresh exchanges the refresh token for a new access token.
func (s *SessionService) Refresh(ctx context.Context) error {
	s.mu.RLock()
	refresh := s.tokens.Refresh
	s.mu.RUnlock()

	if refresh == "" {
		return apperrors.Unauthorized("no active session")
	}

	tokens, err := s.api.Refresh(ctx, refresh)
	if err != nil {
		return err
	}
	if tokens.Refresh == "" {
		tokens.Refresh = refresh
	}
	s.setTokens(ctx, tokens)
	return nil
}

// Profile loads the shopper's profile. A result that arrives after a newer
// load, a logout or the caller's cancellation is returned but not kept.
func (s *SessionService) Profile(ctx context.Context) (domain.User, error) {
	ticket := s.profile.begin()

	u, err := s.api.Profile(ctx)
	if err != nil {
		return domain.User{}, err
	}

	s.mu.Lock()
	if s.profile.current(ctx, ticket) {
		s.user = &u
	}
	s.mu.Unlock()
	return u, nil
}

// UpdateProfile saves profile fields and keeps the updated user.
func (s *SessionService) UpdateProfile(ctx context.Context, upd domain.ProfileUpdate) (domain.User, error) {
	if err := validate(upd); err != nil {
		return domain.User{}, s.fail(err)
	}

	s.start()
	u, err := s.api.UpdateProfile(ctx, upd)
	if err != nil {
		return domain.User{}, s.finish(err)
	}

	s.profile.invalidate()
	s.mu.Lock()
	s.user = &u
	s.mu.Unlock()
	return u, s.finish(nil)
}

// State returns the auth view.
func (s *SessionService) State() SessionState {
	s.mu.RLock()
	defer s.mu.RUnlock()

	state := SessionState{
		IsAuthenticated: s.authenticated(),
		Loading:         s.inFlight > 0,
		Error:           s.lastErr,
	}
	if s.user != nil {
		u := *s.user
		state.User = &u
	}
	return state
}

// IsAuthenticated reports whether an unexpired access token is held.
func (s *SessionService) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.authenticated()
}

// UserID returns the logged-in user's id, or "".
func (s *SessionService) UserID(context.Context) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return ""
	}
	return s.user.ID.String()
}

// authenticated reads the exp claim without verifying the signature; the
// API is the one that verifies. A token without a readable exp counts as
// valid until the API rejects it.
func (s *SessionService) authenticated() bool {
	if s.tokens.Access == "" {
		return false
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(s.tokens.Access, claims); err != nil {
		return true
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return true
	}
	return s.now().Before(exp.Time)
}

func (s *SessionService) establish(ctx context.Context, res domain.AuthResult) {
	s.profile.invalidate()
	s.setTokens(ctx, res.Tokens)

	u := res.User
	s.mu.Lock()
	s.user = &u
	s.mu.Unlock()
}

func (s *SessionService) setTokens(ctx context.Context, tokens domain.Tokens) {
	s.mu.Lock()
	s.tokens = tokens
	s.mu.Unlock()

	if err := s.store.Save(context.WithoutCancel(ctx), tokens); err != nil {
		s.logger.WarnContext(ctx, "failed to persist tokens", slog.String("error", err.Error()))
	}
}

func (s *SessionService) start() {
	s.mu.Lock()
	s.inFlight++
	s.lastErr = ""
	s.mu.Unlock()
}

// finish ends a call started with start and records err for the view.
func (s *SessionService) finish(err error) error {
	s.mu.Lock()
	s.inFlight--
	if err != nil {
		s.lastErr = apperrors.DisplayMessage(err)
	}
	s.mu.Unlock()
	return err
}

func (s *SessionService) fail(err error) error {
	s.mu.Lock()
	s.lastErr = apperrors.DisplayMessage(err)
	s.mu.Unlock()
	return err
}
