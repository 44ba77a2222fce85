package session

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/frahmantamala/project-console/internal"
	userDatamodel "github.com/frahmantamala/project-console/internal/core/datamodel/user"
)

const defaultRefreshInterval = time.Minute

// Service owns the Session entity end to end. It is injected wherever the
// current user or token is needed; nothing else writes session state.
type Service struct {
	api             AuthAPI
	store           CredentialStore
	logger          *slog.Logger
	refreshInterval time.Duration

	mu            sync.RWMutex
	state         Session
	refreshCancel context.CancelFunc
}

func NewService(api AuthAPI, store CredentialStore, logger *slog.Logger, refreshInterval time.Duration) *Service {
	if refreshInterval <= 0 {
		refreshInterval = defaultRefreshInterval
	}
	return &Service{
		api:             api,
		store:           store,
		logger:          logger,
		refreshInterval: refreshInterval,
	}
}

// Snapshot returns a copy of the current session state.
func (s *Service) Snapshot() Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// CurrentUser satisfies permission.UserSource.
func (s *Service) CurrentUser() *userDatamodel.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.User
}

// Token satisfies the API client's token source.
func (s *Service) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Token
}

func (s *Service) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.IsAuthenticated
}

// Login authenticates against the backend. An inactive account is rejected
// before anything is persisted.
func (s *Service) Login(ctx context.Context, dto LoginDTO) error {
	if err := dto.Validate(); err != nil {
		return err
	}

	result, err := s.api.Login(ctx, dto)
	if err != nil {
		s.logger.Warn("login failed", "email", dto.Email, "error", err)
		return err
	}
	if result.Token == "" || result.User == nil {
		return internal.NewInternalError("login response missing token or user", nil)
	}
	if !IsUserActive(result.User.Status) {
		s.logger.Warn("login rejected: account inactive", "email", dto.Email)
		return internal.ErrInactiveAccount
	}

	normalized := normalizeUser(result.User)
	if err := s.store.Save(result.Token, normalized); err != nil {
		// The in-process session still works; only restarts lose it.
		s.logger.Warn("failed to persist session", "error", err)
	}

	s.setAuthenticated(result.Token, normalized)
	s.startRefreshLoop()

	s.logger.Info("login succeeded", "user_id", normalized.ID, "role", normalized.Role.Name)
	return nil
}

// Logout tears the session down. The remote call is best effort: local
// logout always succeeds.
func (s *Service) Logout(ctx context.Context) {
	s.stopRefreshLoop()

	if err := s.api.Logout(ctx); err != nil {
		s.logger.Debug("remote logout failed, continuing with local logout", "error", err)
	}
	if err := s.store.Clear(); err != nil {
		s.logger.Warn("failed to clear persisted session", "error", err)
	}

	s.reset()
	s.logger.Info("logged out")
}

// Invalidate clears local session state without a remote call. The API
// client fires this when an authenticated request comes back 401/403.
func (s *Service) Invalidate() {
	s.stopRefreshLoop()
	if err := s.store.Clear(); err != nil {
		s.logger.Warn("failed to clear persisted session", "error", err)
	}
	s.reset()
	s.logger.Info("session invalidated by server")
}

// Initialize restores the session at startup. A missing token or cached user
// resolves straight to logged-out. Otherwise the current user is re-fetched:
// auth errors clear the session, while network and server errors fall back
// to the cached user so transient connectivity loss does not punish anyone.
func (s *Service) Initialize(ctx context.Context) {
	s.setLoading(true)
	defer s.setLoading(false)

	token, cached, err := s.store.Load()
	if err != nil {
		s.logger.Warn("failed to read persisted session", "error", err)
	}
	if token == "" || cached == nil {
		s.reset()
		return
	}

	// Provisional state so the refetch goes out authenticated.
	s.setAuthenticated(token, cached)

	fresh, err := s.api.Me(ctx)
	if err != nil {
		if internal.IsAuthError(err) {
			s.logger.Info("cached session rejected by server, clearing", "error", err)
			if clearErr := s.store.Clear(); clearErr != nil {
				s.logger.Warn("failed to clear persisted session", "error", clearErr)
			}
			s.reset()
			return
		}
		if cached.Role.Name == "" {
			// A cached user without a role cannot drive permission
			// checks; treat it as unusable.
			s.logger.Warn("cached user unusable and server unreachable, clearing session", "error", err)
			s.reset()
			return
		}
		s.logger.Warn("auth check unreachable, trusting cached session", "user_id", cached.ID, "error", err)
		s.startRefreshLoop()
		return
	}

	if !IsUserActive(fresh.Status) {
		s.logger.Warn("account inactive, logging out", "user_id", fresh.ID)
		s.Logout(ctx)
		return
	}

	normalized := normalizeUser(fresh)
	if err := s.store.Save(token, normalized); err != nil {
		s.logger.Warn("failed to persist refreshed session", "error", err)
	}
	s.setAuthenticated(token, normalized)
	s.startRefreshLoop()
}

// RefreshAuth re-fetches the current user once. Failures keep the cached
// user; only a confirmed inactive status logs out.
func (s *Service) RefreshAuth(ctx context.Context) {
	if !s.IsAuthenticated() {
		return
	}

	fresh, err := s.api.Me(ctx)
	if err != nil {
		s.logger.Debug("auth refresh failed, keeping cached user", "error", err)
		return
	}
	if !IsUserActive(fresh.Status) {
		s.logger.Warn("account became inactive, logging out", "user_id", fresh.ID)
		s.Logout(ctx)
		return
	}

	normalized := normalizeUser(fresh)

	s.mu.Lock()
	token := s.state.Token
	s.state.User = normalized
	s.mu.Unlock()

	if err := s.store.Save(token, normalized); err != nil {
		s.logger.Warn("failed to persist refreshed session", "error", err)
	}
}

func (s *Service) startRefreshLoop() {
	s.mu.Lock()
	if s.refreshCancel != nil {
		s.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.refreshCancel = cancel
	s.mu.Unlock()

	go func() {
		ticker := time.NewTicker(s.refreshInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.logTokenExpiry()
				tickCtx, cancel := internal.WithTimeout(ctx, 0)
				s.RefreshAuth(tickCtx)
				cancel()
			case <-ctx.Done():
				return
			}
		}
	}()
}

// stopRefreshLoop must run on every teardown path, otherwise the background
// loop could resurrect a cleared session.
func (s *Service) stopRefreshLoop() {
	s.mu.Lock()
	cancel := s.refreshCancel
	s.refreshCancel = nil
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

func (s *Service) setAuthenticated(token string, u *userDatamodel.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = Session{User: u, Token: token, IsAuthenticated: true, IsLoading: s.state.IsLoading}
}

func (s *Service) setLoading(loading bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.IsLoading = loading
}

func (s *Service) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = Session{IsLoading: s.state.IsLoading}
}

// logTokenExpiry peeks at the bearer token's exp claim without verifying the
// signature (verification is the server's job) so imminent expiry shows up
// in logs before requests start failing.
func (s *Service) logTokenExpiry() {
	token := s.Token()
	if token == "" || strings.Count(token, ".") != 2 {
		return
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return
	}
	if remaining := time.Until(exp.Time); remaining < 2*s.refreshInterval {
		s.logger.Warn("access token close to expiry", "expires_in", remaining.Round(time.Second))
	}
}

// IsUserActive normalizes the backend's heterogeneous status encodings.
// Absent statuses count as active; unknown shapes also default to active so
// a new backend encoding cannot lock every user out.
func IsUserActive(status any) bool {
	switch v := status.(type) {
	case nil:
		return true
	case string:
		return strings.EqualFold(v, "active")
	case bool:
		return v
	case float64:
		return v == 1
	case int:
		return v == 1
	case int64:
		return v == 1
	default:
		return true
	}
}

// normalizeUser copies the subset of the user the console persists and keys
// permission checks on.
func normalizeUser(u *userDatamodel.User) *userDatamodel.User {
	if u == nil {
		return nil
	}
	permissions := make([]string, len(u.Permissions))
	copy(permissions, u.Permissions)
	return &userDatamodel.User{
		ID:           u.ID,
		Name:         u.Name,
		Email:        u.Email,
		Role:         u.Role,
		Permissions:  permissions,
		Status:       u.Status,
		Avatar:       u.Avatar,
		ProfileImage: u.ProfileImage,
	}
}
