package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"jobly/internal/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func newGitHubStub(t *testing.T, emails []githubEmail) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/login/oauth/access_token", func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		if r.Form.Get("code") != "good-code" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"access_token": "gho_test", "token_type": "bearer"})
	})
	mux.HandleFunc("/user", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer gho_test" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_ = json.NewEncoder(w).Encode(githubUser{ID: 9001, Login: "octocat", Name: "Mona Lisa Octocat", AvatarURL: "https://avatars.example/9001"})
	})
	mux.HandleFunc("/user/emails", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(emails)
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func stubProvider(server *httptest.Server) *GitHubProvider {
	return NewGitHubProvider("client", "secret", "http://localhost/callback").WithEndpoints(oauth2.Endpoint{
		AuthURL:   server.URL + "/login/oauth/authorize",
		TokenURL:  server.URL + "/login/oauth/access_token",
		AuthStyle: oauth2.AuthStyleInParams,
	}, server.URL)
}

func TestGitHubProvider_Exchange(t *testing.T) {
	server := newGitHubStub(t, []githubEmail{
		{Email: "old@example.com", Primary: false, Verified: true},
		{Email: "Mona@Example.com", Primary: true, Verified: true},
	})
	provider := stubProvider(server)

	authURL, err := url.Parse(provider.AuthCodeURL("state-123"))
	require.NoError(t, err)
	assert.Equal(t, "state-123", authURL.Query().Get("state"))
	assert.Equal(t, "client", authURL.Query().Get("client_id"))

	profile, err := provider.Exchange(context.Background(), "good-code")
	require.NoError(t, err)
	assert.EqualValues(t, 9001, profile.ProviderID)
	assert.Equal(t, "Mona@Example.com", profile.Email)
	assert.Equal(t, "Mona", profile.FirstName)
	assert.Equal(t, "Lisa Octocat", profile.LastName)

	_, err = provider.Exchange(context.Background(), "bad-code")
	assert.Error(t, err)
}

func TestGitHubProvider_RequiresVerifiedPrimaryEmail(t *testing.T) {
	server := newGitHubStub(t, []githubEmail{{Email: "mona@example.com", Primary: true, Verified: false}})
	_, err := stubProvider(server).Exchange(context.Background(), "good-code")
	assert.ErrorIs(t, err, ErrOAuthEmailUnavailable)
}

type staticOAuth struct {
	profile *OAuthProfile
}

func (s staticOAuth) AuthCodeURL(state string) string { return "https://idp.example/authorize?state=" + state }

func (s staticOAuth) Exchange(context.Context, string) (*OAuthProfile, error) {
	return s.profile, nil
}

func TestAuthService_OAuthLogin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.auth.OAuthAuthURL("state")
	assert.ErrorIs(t, err, ErrOAuthNotConfigured)

	f.auth.oauth = staticOAuth{profile: &OAuthProfile{ProviderID: 77, Email: "New@Example.com", FirstName: "New", LastName: "Person"}}
	result, err := f.auth.OAuthLogin(ctx, "code", SessionMeta{})
	require.NoError(t, err)
	require.NotNil(t, result.Session)
	assert.True(t, result.User.EmailVerified)
	assert.Nil(t, result.User.PasswordHash)
	assert.Equal(t, "new@example.com", result.User.Email)

	again, err := f.auth.OAuthLogin(ctx, "code", SessionMeta{})
	require.NoError(t, err)
	assert.Equal(t, result.User.ID, again.User.ID)
	assert.EqualValues(t, 1, f.countUsers(t, "new@example.com"))

	// an existing password account is linked by email
	existing := f.verifiedUser(t, "ada@example.com")
	f.auth.oauth = staticOAuth{profile: &OAuthProfile{ProviderID: 78, Email: "ada@example.com"}}
	linked, err := f.auth.OAuthLogin(ctx, "code", SessionMeta{})
	require.NoError(t, err)
	assert.Equal(t, existing.ID, linked.User.ID)
	require.NotNil(t, linked.User.GitHubID)
	assert.EqualValues(t, 78, *linked.User.GitHubID)

	var stored entity.User
	require.NoError(t, f.db.First(&stored, "id = ?", existing.ID).Error)
	assert.NotNil(t, stored.PasswordHash)
}
