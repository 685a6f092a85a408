// Package session orchestrates the authenticated session: it owns the
// token triple, attaches bearer tokens to backend calls, refreshes once on
// expiry, and surfaces unrecoverable failure as a session-expired state.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"github.com/setorandev/setoran-client/internal/apiclient"
	"github.com/setorandev/setoran-client/internal/authclient"
	"github.com/setorandev/setoran-client/internal/model"
	"github.com/setorandev/setoran-client/internal/snapshot"
	"github.com/setorandev/setoran-client/internal/tokenstore"
)

// State is the session lifecycle state.
type State string

const (
	StateUnauthenticated State = "unauthenticated"
	StateAuthenticating  State = "authenticating"
	StateAuthenticated   State = "authenticated"
	StateRefreshing      State = "refreshing"
	// StateSessionExpired is terminal for the current session: tokens are
	// cleared and the user must log in again.
	StateSessionExpired State = "session_expired"
)

// RoleAdvisor is the realm role required for write operations.
const RoleAdvisor = "dosen"

// Session errors.
var (
	ErrNotAuthenticated = errors.New("not authenticated, please log in")
	ErrSessionExpired   = errors.New("session expired, please log in again")
	// ErrRoleRequired is a local UX guard, not a security boundary. The
	// server enforces the real role check.
	ErrRoleRequired = errors.New("advisor role required for this operation")
)

// Controller owns the mutable session state. It is the only writer of the
// token store; every other component reads tokens through calls it
// mediates.
type Controller struct {
	auth   *authclient.Client
	api    *apiclient.Client
	tokens *tokenstore.Store
	cache  *snapshot.Cache
	log    zerolog.Logger

	mu    sync.Mutex
	state State
}

// NewController wires the session controller. An access token persisted
// from a previous run resumes the session as Authenticated.
func NewController(auth *authclient.Client, api *apiclient.Client, tokens *tokenstore.Store, cache *snapshot.Cache, log zerolog.Logger) *Controller {
	c := &Controller{
		auth:   auth,
		api:    api,
		tokens: tokens,
		cache:  cache,
		log:    log.With().Str("component", "session").Logger(),
		state:  StateUnauthenticated,
	}
	if _, ok := tokens.AccessToken(); ok {
		c.state = StateAuthenticated
	}
	return c
}

// State returns the current session state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Controller) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

// Login exchanges credentials for a token triple and persists it.
func (c *Controller) Login(ctx context.Context, username, password string) error {
	c.setState(StateAuthenticating)

	ts, err := c.auth.Login(ctx, username, password)
	if err != nil {
		c.setState(StateUnauthenticated)
		return err
	}
	if err := c.tokens.Save(ts.AccessToken, ts.RefreshToken, ts.IDToken); err != nil {
		c.setState(StateUnauthenticated)
		return fmt.Errorf("persist tokens: %w", err)
	}

	c.setState(StateAuthenticated)
	c.log.Info().Str("username", username).Msg("Logged in")
	return nil
}

// Logout terminates the server-side session best-effort and always clears
// local tokens.
func (c *Controller) Logout(ctx context.Context) error {
	if idToken, ok := c.tokens.IDToken(); ok {
		if err := c.auth.Logout(ctx, idToken); err != nil {
			c.log.Warn().Err(err).Msg("Server-side logout failed, clearing local tokens anyway")
		}
	}

	err := c.tokens.Clear()
	c.setState(StateUnauthenticated)
	return err
}

// Profile returns the display identity from the persisted id token.
func (c *Controller) Profile() (*Claims, error) {
	idToken, ok := c.tokens.IDToken()
	if !ok {
		return nil, ErrNotAuthenticated
	}
	return ParseClaims(idToken)
}

// AdvisorSummary fetches the advisor dashboard, refreshing the session
// once if the access token has expired.
func (c *Controller) AdvisorSummary(ctx context.Context) (*model.AdvisorSummary, error) {
	var out *model.AdvisorSummary
	err := c.withAuth(ctx, func(ctx context.Context, token string) error {
		sum, err := c.api.AdvisorSummary(ctx, token)
		if err != nil {
			return err
		}
		out = sum
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// StudentSubmissions fetches one student's submission detail. On success
// the result is mirrored into the snapshot cache. When the live fetch
// fails for a non-terminal reason and a snapshot for the same student
// exists, the snapshot is returned with degraded set to true.
func (c *Controller) StudentSubmissions(ctx context.Context, nim string) (detail *model.StudentDetail, degraded bool, err error) {
	err = c.withAuth(ctx, func(ctx context.Context, token string) error {
		d, aerr := c.api.StudentSubmissions(ctx, token, nim)
		if aerr != nil {
			return aerr
		}
		detail = d
		return nil
	})
	if err == nil {
		if cerr := c.cache.Save(nim, detail); cerr != nil {
			// Cache errors are never surfaced to the user.
			c.log.Warn().Err(cerr).Str("nim", nim).Msg("Snapshot write failed")
		}
		return detail, false, nil
	}

	// A dead session must route to login, not be papered over with stale data.
	if errors.Is(err, ErrSessionExpired) || errors.Is(err, ErrNotAuthenticated) {
		return nil, false, err
	}

	if cached, ok := c.cache.Load(nim); ok {
		c.log.Warn().Err(err).Str("nim", nim).Msg("Live fetch failed, serving snapshot")
		return cached, true, nil
	}
	return nil, false, err
}

// SubmitComponents marks the staged components as completed and refetches
// the student detail so callers observe the server's new state. An empty
// batch is a local no-op: no network call is issued.
func (c *Controller) SubmitComponents(ctx context.Context, nim string, items []model.SubmissionItem, date string) (*model.StudentDetail, error) {
	if len(items) == 0 {
		c.log.Debug().Str("nim", nim).Msg("Empty submission batch, nothing to do")
		return nil, nil
	}
	if err := c.requireAdvisorRole(); err != nil {
		return nil, err
	}

	err := c.withAuth(ctx, func(ctx context.Context, token string) error {
		return c.api.SubmitComponents(ctx, token, nim, items, date)
	})
	if err != nil {
		return nil, err
	}
	c.log.Info().Str("nim", nim).Int("components", len(items)).Msg("Submission saved")

	detail, _, err := c.StudentSubmissions(ctx, nim)
	if err != nil {
		return nil, fmt.Errorf("submission saved, but refetching detail failed: %w", err)
	}
	return detail, nil
}

// WithdrawComponents reverses completion for the staged components and
// refetches the student detail. An empty batch is a local no-op.
func (c *Controller) WithdrawComponents(ctx context.Context, nim string, items []model.SubmissionItem) (*model.StudentDetail, error) {
	if len(items) == 0 {
		c.log.Debug().Str("nim", nim).Msg("Empty withdrawal batch, nothing to do")
		return nil, nil
	}
	if err := c.requireAdvisorRole(); err != nil {
		return nil, err
	}

	err := c.withAuth(ctx, func(ctx context.Context, token string) error {
		return c.api.WithdrawComponents(ctx, token, nim, items)
	})
	if err != nil {
		return nil, err
	}
	c.log.Info().Str("nim", nim).Int("components", len(items)).Msg("Submission withdrawn")

	detail, _, err := c.StudentSubmissions(ctx, nim)
	if err != nil {
		return nil, fmt.Errorf("withdrawal saved, but refetching detail failed: %w", err)
	}
	return detail, nil
}

// requireAdvisorRole checks the access token's realm roles before a write
// reaches the network.
func (c *Controller) requireAdvisorRole() error {
	token, ok := c.tokens.AccessToken()
	if !ok {
		return ErrNotAuthenticated
	}
	claims, err := ParseClaims(token)
	if err != nil {
		return fmt.Errorf("parse access token: %w", err)
	}
	if !claims.HasRole(RoleAdvisor) {
		return ErrRoleRequired
	}
	return nil
}

// withAuth runs op with the current access token. On 401 it refreshes the
// token triple exactly once, persists it before retrying, and retries op
// once. A failed refresh, or a 401 on the retry, ends the session.
func (c *Controller) withAuth(ctx context.Context, op func(ctx context.Context, token string) error) error {
	token, ok := c.tokens.AccessToken()
	if !ok {
		c.setState(StateUnauthenticated)
		return ErrNotAuthenticated
	}

	err := op(ctx, token)
	if !errors.Is(err, apiclient.ErrUnauthorized) {
		return err
	}

	c.setState(StateRefreshing)
	refreshToken, ok := c.tokens.RefreshToken()
	if !ok {
		c.log.Warn().Msg("Access token expired and no refresh token available")
		return c.expire()
	}

	ts, err := c.auth.Refresh(ctx, refreshToken)
	if err != nil {
		c.log.Warn().Err(err).Msg("Token refresh failed")
		return c.expire()
	}

	// Persist before the retry so an interruption between retry and the
	// next call still leaves the refreshed triple on disk.
	if err := c.tokens.Save(ts.AccessToken, ts.RefreshToken, ts.IDToken); err != nil {
		return fmt.Errorf("persist refreshed tokens: %w", err)
	}
	c.setState(StateAuthenticated)
	c.log.Debug().Msg("Token refreshed, retrying original call")

	err = op(ctx, ts.AccessToken)
	if errors.Is(err, apiclient.ErrUnauthorized) {
		c.log.Warn().Msg("Retry with refreshed token still unauthorized")
		return c.expire()
	}
	return err
}

// expire clears the token store and parks the session in its terminal
// state.
func (c *Controller) expire() error {
	if err := c.tokens.Clear(); err != nil {
		c.log.Warn().Err(err).Msg("Clearing token store failed")
	}
	c.setState(StateSessionExpired)
	return ErrSessionExpired
}
