// Package sandbox is a self-contained local stand-in for the two services
// the client talks to: the campus identity provider (OpenID Connect token
// and logout endpoints) and the setoran backend. It exists so the CLI and
// the integration tests have a runnable counterpart without network access
// to campus infrastructure.
package sandbox

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/setorandev/setoran-client/internal/config"
	"github.com/setorandev/setoran-client/internal/model"
	"golang.org/x/crypto/bcrypt"
)

// User is a sandbox account.
type User struct {
	Username     string
	Name         string
	Email        string
	PasswordHash string
	Roles        []string
}

// Identity implements the provider's token and logout endpoints with
// HS256-signed tokens. Issued refresh tokens are tracked in memory and
// rotated on every use; a refresh token presented twice is rejected.
type Identity struct {
	cfg   *config.Config
	users map[string]User
	log   zerolog.Logger

	mu       sync.Mutex
	sessions map[string]string // refresh jti -> username
}

// NewIdentity creates the identity endpoint with the given dev accounts.
func NewIdentity(cfg *config.Config, users []User, log zerolog.Logger) *Identity {
	byName := make(map[string]User, len(users))
	for _, u := range users {
		byName[u.Username] = u
	}
	return &Identity{
		cfg:      cfg,
		users:    byName,
		sessions: make(map[string]string),
		log:      log.With().Str("component", "identity").Logger(),
	}
}

// DevUsers returns the default sandbox accounts: one advisor, one student.
// Passwords are the username with "123" appended.
func DevUsers(bcryptCost int) ([]User, error) {
	accounts := []struct {
		username, name, email string
		roles                 []string
	}{
		{"dosen1", "Dr. H. Masrul Indrayana", "masrul.indrayana@uin-suska.ac.id", []string{"dosen"}},
		{"mahasiswa1", "Ahmad Kurniawan", "ahmad.kurniawan@students.uin-suska.ac.id", []string{"mahasiswa"}},
	}

	users := make([]User, 0, len(accounts))
	for _, a := range accounts {
		hash, err := bcrypt.GenerateFromPassword([]byte(a.username+"123"), bcryptCost)
		if err != nil {
			return nil, err
		}
		users = append(users, User{
			Username:     a.username,
			Name:         a.name,
			Email:        a.email,
			PasswordHash: string(hash),
			Roles:        a.roles,
		})
	}
	return users, nil
}

// tokenClaims is the sandbox's JWT claim layout, matching what the client
// expects from the real provider.
type tokenClaims struct {
	jwt.RegisteredClaims
	Typ               string `json:"typ"`
	Name              string `json:"name,omitempty"`
	PreferredUsername string `json:"preferred_username,omitempty"`
	Email             string `json:"email,omitempty"`
	RealmAccess       *struct {
		Roles []string `json:"roles"`
	} `json:"realm_access,omitempty"`
}

// Token handles POST /realms/{realm}/protocol/openid-connect/token.
func (i *Identity) Token(c *gin.Context) {
	if c.Param("realm") != i.cfg.KCRealm {
		providerFail(c, http.StatusNotFound, "realm_not_found", "Realm does not exist")
		return
	}
	if c.PostForm("client_id") != i.cfg.KCClientID || c.PostForm("client_secret") != i.cfg.KCClientSecret {
		providerFail(c, http.StatusUnauthorized, "invalid_client", "Invalid client credentials")
		return
	}

	switch c.PostForm("grant_type") {
	case "password":
		i.passwordGrant(c)
	case "refresh_token":
		i.refreshGrant(c)
	default:
		providerFail(c, http.StatusBadRequest, "unsupported_grant_type", "Unsupported grant type")
	}
}

func (i *Identity) passwordGrant(c *gin.Context) {
	username := c.PostForm("username")
	user, ok := i.users[username]
	if !ok {
		providerFail(c, http.StatusUnauthorized, "invalid_grant", "Invalid user credentials")
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(c.PostForm("password"))) != nil {
		providerFail(c, http.StatusUnauthorized, "invalid_grant", "Invalid user credentials")
		return
	}

	ts, err := i.issue(user)
	if err != nil {
		providerFail(c, http.StatusInternalServerError, "server_error", "Token signing failed")
		return
	}
	i.log.Info().Str("username", username).Msg("Password grant issued")
	c.JSON(http.StatusOK, ts)
}

func (i *Identity) refreshGrant(c *gin.Context) {
	claims, err := i.parse(c.PostForm("refresh_token"))
	if err != nil || claims.Typ != "Refresh" {
		providerFail(c, http.StatusBadRequest, "invalid_grant", "Invalid refresh token")
		return
	}

	i.mu.Lock()
	username, live := i.sessions[claims.ID]
	if live {
		delete(i.sessions, claims.ID) // Rotation: each refresh token is single-use.
	}
	i.mu.Unlock()

	if !live {
		providerFail(c, http.StatusBadRequest, "invalid_grant", "Session not active")
		return
	}

	user, ok := i.users[username]
	if !ok {
		providerFail(c, http.StatusBadRequest, "invalid_grant", "Session not active")
		return
	}

	ts, err := i.issue(user)
	if err != nil {
		providerFail(c, http.StatusInternalServerError, "server_error", "Token signing failed")
		return
	}
	i.log.Debug().Str("username", username).Msg("Refresh grant issued")
	c.JSON(http.StatusOK, ts)
}

// Logout handles POST /realms/{realm}/protocol/openid-connect/logout:
// it revokes every live refresh token of the id_token_hint's subject.
func (i *Identity) Logout(c *gin.Context) {
	if c.PostForm("client_id") != i.cfg.KCClientID || c.PostForm("client_secret") != i.cfg.KCClientSecret {
		providerFail(c, http.StatusUnauthorized, "invalid_client", "Invalid client credentials")
		return
	}

	claims, err := i.parse(c.PostForm("id_token_hint"))
	if err != nil {
		providerFail(c, http.StatusBadRequest, "invalid_request", "Invalid id_token_hint")
		return
	}

	i.mu.Lock()
	for jti, username := range i.sessions {
		if username == claims.Subject {
			delete(i.sessions, jti)
		}
	}
	i.mu.Unlock()

	i.log.Info().Str("username", claims.Subject).Msg("Logged out")
	c.Status(http.StatusNoContent)
}

// issue signs a fresh access/refresh/id triple and registers the refresh
// token's jti.
func (i *Identity) issue(user User) (model.TokenSet, error) {
	now := time.Now()
	realmAccess := &struct {
		Roles []string `json:"roles"`
	}{Roles: user.Roles}

	access, err := i.sign(tokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Subject:   user.Username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.cfg.AccessTokenTTL)),
		},
		Typ:               "Bearer",
		Name:              user.Name,
		PreferredUsername: user.Username,
		Email:             user.Email,
		RealmAccess:       realmAccess,
	})
	if err != nil {
		return model.TokenSet{}, err
	}

	refreshJTI := uuid.New().String()
	refresh, err := i.sign(tokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        refreshJTI,
			Subject:   user.Username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.cfg.RefreshTokenTTL)),
		},
		Typ: "Refresh",
	})
	if err != nil {
		return model.TokenSet{}, err
	}

	id, err := i.sign(tokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.Username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.cfg.AccessTokenTTL)),
		},
		Typ:               "ID",
		Name:              user.Name,
		PreferredUsername: user.Username,
		Email:             user.Email,
	})
	if err != nil {
		return model.TokenSet{}, err
	}

	i.mu.Lock()
	i.sessions[refreshJTI] = user.Username
	i.mu.Unlock()

	return model.TokenSet{AccessToken: access, RefreshToken: refresh, IDToken: id}, nil
}

func (i *Identity) sign(claims tokenClaims) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(i.cfg.JWTSecret))
}

func (i *Identity) parse(tokenStr string) (*tokenClaims, error) {
	var claims tokenClaims
	_, err := jwt.ParseWithClaims(tokenStr, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(i.cfg.JWTSecret), nil
	})
	if err != nil {
		return nil, err
	}
	return &claims, nil
}

// providerFail writes the provider's standard OAuth error body.
func providerFail(c *gin.Context, status int, code, description string) {
	c.JSON(status, gin.H{"error": code, "error_description": description})
}
