package sandbox

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/setorandev/setoran-client/internal/apiclient"
	"github.com/setorandev/setoran-client/internal/authclient"
	"github.com/setorandev/setoran-client/internal/config"
	"github.com/setorandev/setoran-client/internal/model"
	"github.com/setorandev/setoran-client/internal/session"
	"github.com/setorandev/setoran-client/internal/snapshot"
	"github.com/setorandev/setoran-client/internal/tokenstore"
	"github.com/setorandev/setoran-client/internal/validator"
)

func testConfig() *config.Config {
	return &config.Config{
		KCRealm:         "dev",
		KCClientID:      "setoran-mobile-dev",
		KCClientSecret:  "sandbox-secret",
		GinMode:         gin.TestMode,
		JWTSecret:       "sandbox-jwt-secret",
		AccessTokenTTL:  5 * time.Minute,
		RefreshTokenTTL: 30 * time.Minute,
		BcryptCost:      4,
	}
}

func startSandbox(t *testing.T, cfg *config.Config) *httptest.Server {
	t.Helper()
	validator.Setup()

	users, err := DevUsers(cfg.BcryptCost)
	if err != nil {
		t.Fatalf("seed users: %v", err)
	}
	advisor := model.Advisor{NIP: "198701012015031004", Name: "Dr. H. Masrul Indrayana", Email: "masrul.indrayana@uin-suska.ac.id"}
	identity := NewIdentity(cfg, users, zerolog.Nop())
	api := NewAPI(NewStore(advisor), zerolog.Nop())

	srv := httptest.NewServer(SetupRouter(cfg, identity, api, zerolog.Nop()))
	t.Cleanup(srv.Close)
	return srv
}

func newController(t *testing.T, cfg *config.Config, baseURL string) *session.Controller {
	t.Helper()
	dir := t.TempDir()
	tokens := tokenstore.New(filepath.Join(dir, "tokens.json"), zerolog.Nop())
	cache := snapshot.New(filepath.Join(dir, "snapshot.json"), zerolog.Nop())
	auth := authclient.New(baseURL, cfg.KCRealm, cfg.KCClientID, cfg.KCClientSecret,
		"openid profile email", 5*time.Second, zerolog.Nop())
	api := apiclient.New(baseURL+APIPrefix, 5*time.Second, zerolog.Nop())
	return session.NewController(auth, api, tokens, cache, zerolog.Nop())
}

func TestFullAdvisorFlow(t *testing.T) {
	cfg := testConfig()
	srv := startSandbox(t, cfg)
	ctl := newController(t, cfg, srv.URL)
	ctx := context.Background()

	if err := ctl.Login(ctx, "dosen1", "dosen1123"); err != nil {
		t.Fatalf("login: %v", err)
	}

	profile, err := ctl.Profile()
	if err != nil {
		t.Fatalf("profile: %v", err)
	}
	if profile.DisplayName() != "Dr. H. Masrul Indrayana" {
		t.Fatalf("display name = %q", profile.DisplayName())
	}

	sum, err := ctl.AdvisorSummary(ctx)
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if len(sum.Advisees.Students) != 3 {
		t.Fatalf("students = %d, want 3", len(sum.Advisees.Students))
	}
	for _, st := range sum.Advisees.Students {
		p := st.Progress
		if p.Completed+p.Pending != p.Required {
			t.Fatalf("progress invariant broken for %s: %+v", st.NIM, p)
		}
	}

	nim := sum.Advisees.Students[0].NIM
	detail, degraded, err := ctl.StudentSubmissions(ctx, nim)
	if err != nil || degraded {
		t.Fatalf("detail: err=%v degraded=%v", err, degraded)
	}
	if len(detail.Submission.Components) == 0 {
		t.Fatal("no components in fixture")
	}

	// Submit the first component and confirm the server's view changed.
	target := detail.Submission.Components[0]
	items := []model.SubmissionItem{{ComponentID: target.ID, ComponentName: target.Name}}
	after, err := ctl.SubmitComponents(ctx, nim, items, "2024-05-01")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	updated := findComponent(t, after.Submission.Components, target.ID)
	if !updated.Completed || updated.Evidence == nil {
		t.Fatalf("component not completed after submit: %+v", updated)
	}
	if updated.Evidence.SubmittedAt != "2024-05-01" {
		t.Fatalf("submission date = %q", updated.Evidence.SubmittedAt)
	}
	if after.Submission.Summary.Completed != 1 {
		t.Fatalf("summary completed = %d", after.Submission.Summary.Completed)
	}

	// Withdraw it again.
	withdrawn, err := ctl.WithdrawComponents(ctx, nim, []model.SubmissionItem{{
		EvidenceID:    updated.Evidence.ID,
		ComponentID:   target.ID,
		ComponentName: target.Name,
	}})
	if err != nil {
		t.Fatalf("withdraw: %v", err)
	}
	reverted := findComponent(t, withdrawn.Submission.Components, target.ID)
	if reverted.Completed || reverted.Evidence != nil {
		t.Fatalf("component still completed after withdraw: %+v", reverted)
	}

	if err := ctl.Logout(ctx); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if ctl.State() != session.StateUnauthenticated {
		t.Fatalf("state after logout = %s", ctl.State())
	}
}

func TestStudentRoleCannotUseAdvisorAPI(t *testing.T) {
	cfg := testConfig()
	srv := startSandbox(t, cfg)

	// Obtain a student token straight from the provider.
	form := url.Values{
		"client_id":     {cfg.KCClientID},
		"client_secret": {cfg.KCClientSecret},
		"grant_type":    {"password"},
		"username":      {"mahasiswa1"},
		"password":      {"mahasiswa1123"},
		"scope":         {"openid profile email"},
	}
	resp, err := http.PostForm(srv.URL+"/realms/dev/protocol/openid-connect/token", form)
	if err != nil {
		t.Fatalf("token request: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("token status = %d", resp.StatusCode)
	}

	var ts model.TokenSet
	if err := jsonDecode(resp.Body, &ts); err != nil {
		t.Fatalf("decode tokens: %v", err)
	}

	req, _ := http.NewRequest(http.MethodGet, srv.URL+APIPrefix+"/dosen/pa-saya", nil)
	req.Header.Set("Authorization", "Bearer "+ts.AccessToken)
	apiResp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("api request: %v", err)
	}
	defer apiResp.Body.Close()
	if apiResp.StatusCode != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", apiResp.StatusCode)
	}
}

func TestRefreshTokenIsSingleUse(t *testing.T) {
	cfg := testConfig()
	srv := startSandbox(t, cfg)

	login := func() model.TokenSet {
		form := url.Values{
			"client_id":     {cfg.KCClientID},
			"client_secret": {cfg.KCClientSecret},
			"grant_type":    {"password"},
			"username":      {"dosen1"},
			"password":      {"dosen1123"},
			"scope":         {"openid profile email"},
		}
		resp, err := http.PostForm(srv.URL+"/realms/dev/protocol/openid-connect/token", form)
		if err != nil {
			t.Fatalf("login: %v", err)
		}
		defer resp.Body.Close()
		var ts model.TokenSet
		if err := jsonDecode(resp.Body, &ts); err != nil {
			t.Fatalf("decode: %v", err)
		}
		return ts
	}

	ts := login()
	refresh := func(token string) int {
		form := url.Values{
			"client_id":     {cfg.KCClientID},
			"client_secret": {cfg.KCClientSecret},
			"grant_type":    {"refresh_token"},
			"refresh_token": {token},
		}
		resp, err := http.PostForm(srv.URL+"/realms/dev/protocol/openid-connect/token", form)
		if err != nil {
			t.Fatalf("refresh: %v", err)
		}
		resp.Body.Close()
		return resp.StatusCode
	}

	if status := refresh(ts.RefreshToken); status != http.StatusOK {
		t.Fatalf("first refresh status = %d", status)
	}
	// Rotation: the same refresh token must now be rejected.
	if status := refresh(ts.RefreshToken); status == http.StatusOK {
		t.Fatal("reused refresh token accepted")
	}
}

func TestInvalidCredentialsRejected(t *testing.T) {
	cfg := testConfig()
	srv := startSandbox(t, cfg)
	ctl := newController(t, cfg, srv.URL)

	err := ctl.Login(context.Background(), "dosen1", "wrong-password")
	if err == nil || !strings.Contains(err.Error(), "credentials") {
		t.Fatalf("err = %v, want invalid credentials", err)
	}
}

func TestUnknownStudentIs404(t *testing.T) {
	cfg := testConfig()
	srv := startSandbox(t, cfg)
	ctl := newController(t, cfg, srv.URL)
	ctx := context.Background()

	if err := ctl.Login(ctx, "dosen1", "dosen1123"); err != nil {
		t.Fatalf("login: %v", err)
	}
	_, _, err := ctl.StudentSubmissions(ctx, "99999999")
	if err == nil {
		t.Fatal("expected error for unknown NIM")
	}
}

func jsonDecode(r io.Reader, dst interface{}) error {
	return json.NewDecoder(r).Decode(dst)
}

func findComponent(t *testing.T, components []model.SubmissionComponent, id string) model.SubmissionComponent {
	t.Helper()
	for _, comp := range components {
		if comp.ID == id {
			return comp
		}
	}
	t.Fatalf("component %s not found", id)
	return model.SubmissionComponent{}
}
